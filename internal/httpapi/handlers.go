package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type urlsRequest struct {
	URLs []string `json:"urls" binding:"required"`
}

type questionRequest struct {
	Question string `json:"question" binding:"required"`
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": ServiceName + " API",
		"endpoints": gin.H{
			"ingest":      "POST /api/ingest",
			"ask":         "POST /api/ask",
			"health":      "GET /api/health",
			"verify-urls": "POST /api/verify-urls",
			"stats":       "GET /api/stats",
		},
	})
}

func (s *Server) ingest(c *gin.Context) {
	var req urlsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.backend.Ingest(c.Request.Context(), req.URLs))
}

func (s *Server) ask(c *gin.Context) {
	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"question": req.Question,
		"answer":   s.backend.Answer(c.Request.Context(), req.Question),
		"status":   "success",
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"service":      ServiceName,
		"vector_store": s.backend.Stats().Entries,
	})
}

func (s *Server) stats(c *gin.Context) {
	st := s.backend.Stats()
	c.JSON(http.StatusOK, gin.H{
		"total_vectors": st.Entries,
		"dimension":     st.Dimension,
		"chunks_count":  st.Entries,
		"index_size":    st.SizeKB(),
	})
}

func (s *Server) verifyURLs(c *gin.Context) {
	var req urlsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.verifier.Verify(c.Request.Context(), req.URLs))
}
