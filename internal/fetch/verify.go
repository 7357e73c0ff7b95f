package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const verifyTimeout = 5 * time.Second

// URLStatus reports whether a URL answered a HEAD request.
type URLStatus struct {
	URL         string `json:"url"`
	Accessible  bool   `json:"accessible"`
	StatusCode  int    `json:"status_code,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Verify checks every URL concurrently. Results keep the input order.
func (f *Fetcher) Verify(ctx context.Context, urls []string) []URLStatus {
	out := make([]URLStatus, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, u := range urls {
		g.Go(func() error {
			out[i] = f.head(gctx, u)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (f *Fetcher) head(ctx context.Context, target string) URLStatus {
	st := URLStatus{URL: target}
	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		st.Error = err.Error()
		return st
	}
	req.Header.Set("User-Agent", f.userAgent)
	resp, err := f.client.Do(req)
	if err != nil {
		st.Error = err.Error()
		return st
	}
	resp.Body.Close()
	st.StatusCode = resp.StatusCode
	st.Accessible = resp.StatusCode == http.StatusOK
	if st.Accessible {
		st.ContentType = resp.Header.Get("Content-Type")
	} else {
		st.Error = fmt.Sprintf("HTTP status %d", resp.StatusCode)
	}
	return st
}
