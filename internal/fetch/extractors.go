package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MinLineChars is the length an extracted line must exceed to be kept.
const MinLineChars = 20

// Extractor pulls the main content out of pages of one site family.
type Extractor interface {
	Name() string
	Match(u *url.URL) bool
	Extract(ctx context.Context, f *Fetcher, u *url.URL) (string, error)
}

func hostMatcher(suffixes ...string) func(*url.URL) bool {
	return func(u *url.URL) bool {
		host := strings.ToLower(u.Hostname())
		for _, s := range suffixes {
			if host == s || strings.HasSuffix(host, "."+s) {
				return true
			}
		}
		return false
	}
}

// DefaultExtractors returns the built-in extractors; the generic one matches everything.
func DefaultExtractors() []Extractor {
	return []Extractor{
		NewWikipediaExtractor("wikipedia.org"),
		NewPythonDocsExtractor("docs.python.org"),
		GenericExtractor{},
	}
}

// WikipediaExtractor prefers the REST summary endpoint and falls back to the article HTML.
type WikipediaExtractor struct {
	match func(*url.URL) bool
}

// NewWikipediaExtractor matches the given host suffixes.
func NewWikipediaExtractor(hosts ...string) WikipediaExtractor {
	return WikipediaExtractor{match: hostMatcher(hosts...)}
}

func (WikipediaExtractor) Name() string          { return "wikipedia" }
func (e WikipediaExtractor) Match(u *url.URL) bool { return e.match(u) }

func (e WikipediaExtractor) Extract(ctx context.Context, f *Fetcher, u *url.URL) (string, error) {
	if text, err := e.summary(ctx, f, u); err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	} else if err != nil {
		f.log.Debug("wikipedia summary unavailable, falling back to html", "url", u.String(), "err", err)
	}
	body, err := f.get(ctx, u.String(), "text/html")
	if err != nil {
		return "", err
	}
	doc, err := prepare(body)
	if err != nil {
		return "", err
	}
	content := find(doc, hasAttr(atom.Div, "id", "mw-content-text"))
	if content == nil {
		return joinLines(textLines(doc)), nil
	}
	removeNodes(content, hasClass("reference"))
	return joinLines(textLines(content)), nil
}

func (e WikipediaExtractor) summary(ctx context.Context, f *Fetcher, u *url.URL) (string, error) {
	parts := strings.Split(u.EscapedPath(), "/")
	if len(parts) < 3 || parts[1] != "wiki" || parts[2] == "" {
		return "", fmt.Errorf("not an article path: %s", u.Path)
	}
	api := fmt.Sprintf("%s://%s/api/rest_v1/page/summary/%s", u.Scheme, u.Host, parts[2])
	body, err := f.get(ctx, api, "application/json")
	if err != nil {
		return "", err
	}
	var page struct {
		Title   string `json:"title"`
		Extract string `json:"extract"`
	}
	if err := json.Unmarshal([]byte(body), &page); err != nil {
		return "", fmt.Errorf("decode summary: %w", err)
	}
	return page.Title + "\n\n" + page.Extract, nil
}

// PythonDocsExtractor reads the main role container of docs.python.org pages.
type PythonDocsExtractor struct {
	match func(*url.URL) bool
}

// NewPythonDocsExtractor matches the given host suffixes.
func NewPythonDocsExtractor(hosts ...string) PythonDocsExtractor {
	return PythonDocsExtractor{match: hostMatcher(hosts...)}
}

func (PythonDocsExtractor) Name() string          { return "python-docs" }
func (e PythonDocsExtractor) Match(u *url.URL) bool { return e.match(u) }

func (PythonDocsExtractor) Extract(ctx context.Context, f *Fetcher, u *url.URL) (string, error) {
	body, err := f.get(ctx, u.String(), "text/html")
	if err != nil {
		return "", err
	}
	doc, err := prepare(body)
	if err != nil {
		return "", err
	}
	main := firstOf(doc, hasAttr(atom.Div, "role", "main"), isElement(atom.Main))
	if main == nil {
		return "", nil
	}
	return joinLines(textLines(main)), nil
}

// GenericExtractor takes main, article or div.content, else the whole document.
type GenericExtractor struct{}

func (GenericExtractor) Name() string        { return "generic" }
func (GenericExtractor) Match(*url.URL) bool { return true }

func (GenericExtractor) Extract(ctx context.Context, f *Fetcher, u *url.URL) (string, error) {
	body, err := f.get(ctx, u.String(), "text/html")
	if err != nil {
		return "", err
	}
	doc, err := prepare(body)
	if err != nil {
		return "", err
	}
	return ExtractGeneric(doc), nil
}

// ExtractGeneric returns the filtered text of the main content of doc.
func ExtractGeneric(doc *html.Node) string {
	content := firstOf(doc,
		isElement(atom.Main),
		isElement(atom.Article),
		func(n *html.Node) bool { return isElement(atom.Div)(n) && hasClass("content")(n) },
	)
	if content == nil {
		content = doc
	}
	return joinLines(textLines(content))
}

func prepare(body string) (*html.Node, error) {
	doc, err := parseHTML(body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	removeNodes(doc, func(n *html.Node) bool { return n.Type == html.ElementNode && noiseTags[n.DataAtom] })
	return doc, nil
}

// joinLines keeps lines longer than MinLineChars.
func joinLines(lines []string) string {
	kept := lines[:0]
	for _, l := range lines {
		if len([]rune(l)) > MinLineChars {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}
