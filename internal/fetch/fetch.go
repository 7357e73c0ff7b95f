// Package fetch downloads web pages and extracts their main text.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nextraction/internal/domain"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) nextraction/1.0"
	DefaultTimeout   = 15 * time.Second
	DefaultDelay     = time.Second

	maxBodyBytes = 8 << 20
)

// Options configures a Fetcher. Zero values fall back to the defaults.
type Options struct {
	Client     *http.Client
	UserAgent  string
	Timeout    time.Duration
	Delay      time.Duration
	Extractors []Extractor
	Logger     *slog.Logger
}

// Fetcher retrieves a page and hands it to the first matching extractor.
type Fetcher struct {
	client     *http.Client
	userAgent  string
	delay      time.Duration
	extractors []Extractor
	log        *slog.Logger
}

// New builds a Fetcher from opts.
func New(opts Options) *Fetcher {
	f := &Fetcher{
		client:     opts.Client,
		userAgent:  opts.UserAgent,
		delay:      opts.Delay,
		extractors: opts.Extractors,
		log:        opts.Logger,
	}
	if f.client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		f.client = &http.Client{Timeout: timeout}
	}
	if f.userAgent == "" {
		f.userAgent = DefaultUserAgent
	}
	if f.delay < 0 {
		f.delay = 0
	}
	if len(f.extractors) == 0 {
		f.extractors = DefaultExtractors()
	}
	if f.log == nil {
		f.log = slog.Default()
	}
	return f
}

// Fetch returns the extracted text of rawURL. Empty text is not an error.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: invalid url %q", domain.ErrFetchFailed, rawURL)
	}
	ext := f.extractorFor(u)
	f.log.Debug("fetching page", "url", u.String(), "extractor", ext.Name())

	text, err := ext.Extract(ctx, f, u)
	if err != nil {
		if errors.Is(err, domain.ErrFetchFailed) {
			return "", err
		}
		return "", fmt.Errorf("%w: %s: %v", domain.ErrFetchFailed, u, err)
	}
	if err := f.pause(ctx); err != nil {
		return "", err
	}
	return text, nil
}

func (f *Fetcher) extractorFor(u *url.URL) Extractor {
	for _, e := range f.extractors {
		if e.Match(u) {
			return e
		}
	}
	return GenericExtractor{}
}

// pause waits the politeness delay between requests.
func (f *Fetcher) pause(ctx context.Context) error {
	if f.delay == 0 {
		return nil
	}
	t := time.NewTimer(f.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (f *Fetcher) get(ctx context.Context, target, accept string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: %s returned status %d", domain.ErrFetchFailed, target, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", domain.ErrFetchFailed, err)
	}
	return string(body), nil
}
