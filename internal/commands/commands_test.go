package commands

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nextraction/internal/config"
)

func init() {
	color.NoColor = true
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var b bytes.Buffer
	rootCmd.SetOut(&b)
	rootCmd.SetErr(&b)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		cfgFile = ""
		rootCmd.SetArgs(nil)
	})
	_, err := rootCmd.ExecuteC()
	return b.String(), err
}

func writeConfig(t *testing.T, dir string, mutate func(*config.AppConfig)) string {
	t.Helper()
	cfg := config.Default()
	cfg.Index.Path = filepath.Join(dir, "store", "base")
	cfg.Fetch.DelayMillis = 0
	cfg.Generator.Type = "none"
	cfg.Embedder.Dimension = 64
	cfg.Log.Level = "error"
	if mutate != nil {
		mutate(cfg)
	}
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.Save(path, cfg))
	return path
}

func TestRootRejectsUnknownCommand(t *testing.T) {
	_, err := run(t, "nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown command "nonexistent" for "nextraction"`)
}

func TestIngestAskAndStats(t *testing.T) {
	body := "<html><body><main><p>" + strings.Repeat("Gophers are small burrowing rodents of North America. ", 40) + "</p></main></body></html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/empty" {
			_, _ = w.Write([]byte("<html><body><p>tiny</p></body></html>"))
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, nil)

	out, err := run(t, "--config", cfgPath, "ingest", srv.URL+"/gophers", srv.URL+"/empty")
	require.NoError(t, err)
	assert.Contains(t, out, "ok")
	assert.Contains(t, out, "insufficient content")
	assert.Contains(t, out, "1/2 urls ingested, 2 vectors in index")

	out, err = run(t, "--config", cfgPath, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "total_vectors: 2")
	assert.Contains(t, out, "dimension:     64")
	assert.Contains(t, out, "generator:     none")

	out, err = run(t, "--config", cfgPath, "ask", "what", "are", "gophers")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "relevant context found:\n\n"), out)
	assert.Contains(t, out, "burrowing rodents")
	assert.True(t, strings.HasSuffix(out, "...\n"), out)

	out, err = run(t, "--config", cfgPath, "search", "-k", "1", "burrowing rodents")
	require.NoError(t, err)
	assert.Contains(t, out, "#1 score=")
	assert.NotContains(t, out, "#2")
}

func TestAskOnEmptyIndex(t *testing.T) {
	cfgPath := writeConfig(t, t.TempDir(), func(c *config.AppConfig) { c.Generator.Type = "extractive" })
	out, err := run(t, "--config", cfgPath, "ask", "anything")
	require.NoError(t, err)
	assert.Equal(t, "no information on this topic in the knowledge base\n", out)
}

func TestConfigInitAndShow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg", "config.yaml")

	out, err := run(t, "config", "init", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)
	_, err = os.Stat(path)
	require.NoError(t, err)

	_, err = run(t, "config", "init", "--path", path)
	require.Error(t, err)

	out, err = run(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "# loaded from: "+path)
	assert.Contains(t, out, "gemini-2.5-flash")
}

func TestBuildGenerator(t *testing.T) {
	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	cfg := config.Default()
	cfg.Generator.Type = "none"
	gen, err := buildGenerator(cfg, log)
	require.NoError(t, err)
	assert.Nil(t, gen)

	cfg.Generator.Type = "gemini"
	cfg.Generator.Gemini.APIKeyEnv = "NEXTRACTION_TEST_MISSING_KEY"
	t.Setenv("NEXTRACTION_TEST_MISSING_KEY", "PUT_YOUR_KEY_HERE")
	gen, err = buildGenerator(cfg, log)
	require.NoError(t, err)
	assert.Nil(t, gen)

	t.Setenv("NEXTRACTION_TEST_MISSING_KEY", "real")
	gen, err = buildGenerator(cfg, log)
	require.NoError(t, err)
	require.NotNil(t, gen)
	assert.Equal(t, "gemini-gemini-2.5-flash", gen.Name())

	cfg.Generator.Type = "extractive"
	gen, err = buildGenerator(cfg, log)
	require.NoError(t, err)
	assert.Equal(t, "extractive", gen.Name())

	cfg.Generator.Type = "mystery"
	_, err = buildGenerator(cfg, log)
	require.Error(t, err)
}

func TestBuildEmbedderRejectsUnknownType(t *testing.T) {
	cfg := config.Default()
	cfg.Embedder.Type = "word2vec"
	_, err := buildEmbedder(cfg)
	require.Error(t, err)

	cfg.Embedder.Type = "hashing"
	g, err := buildEmbedder(cfg)
	require.NoError(t, err)
	assert.Equal(t, 384, g.Dimension())
}

func TestReadURLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("# sources\n%s\n\n  %s  \n", "https://a", "https://b")), 0o644))
	urls, err := readURLFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a", "https://b"}, urls)
}
