// Package document turns web pages and files into plain text split into
// sentences.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

// MaxBodySize caps how much of a fetched page is read.
const MaxBodySize = 10 * 1024 * 1024

// ErrBodyTooLarge is returned when a page exceeds the size limit.
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// Document is extracted text plus whatever metadata the source provided.
type Document struct {
	Kind     string
	Title    string
	Byline   string
	SiteName string
	URL      string
	Text     string
}

// Fetcher downloads pages and extracts their main article text.
type Fetcher struct {
	Client      *http.Client
	MaxBodySize int64
	UserAgent   string
}

// NewFetcher returns a fetcher with a 30s timeout and a browser user agent.
func NewFetcher() *Fetcher {
	return &Fetcher{
		Client:      &http.Client{Timeout: 30 * time.Second},
		MaxBodySize: MaxBodySize,
		UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

// Fetch downloads rawURL and runs readability over it.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	// Some sites answer 403 to clients that do not look like a browser.
	req.Header.Set("User-Agent", f.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,ja;q=0.8")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status code %d", rawURL, resp.StatusCode)
	}

	limit := f.MaxBodySize
	if limit <= 0 {
		limit = MaxBodySize
	}
	if resp.ContentLength > limit {
		return nil, fmt.Errorf("%w: content-length %d > %d", ErrBodyTooLarge, resp.ContentLength, limit)
	}
	// read one byte past the limit to tell "exactly the limit" from "truncated"
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: %d bytes", ErrBodyTooLarge, limit)
	}

	doc, err := FromHTML(bytes.NewReader(body), pageURL)
	if err != nil {
		return nil, err
	}
	doc.Kind = "website_article"
	doc.URL = rawURL
	return doc, nil
}

// FromHTML extracts the article text of an HTML page. Ruby annotations are
// removed first so that furigana is not duplicated into the text.
func FromHTML(r io.Reader, pageURL *url.URL) (*Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if pageURL == nil {
		pageURL = &url.URL{Scheme: "file", Path: "/"}
	}
	article, err := readability.FromReader(bytes.NewReader(SanitizeRuby(raw)), pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to extract article: %w", err)
	}
	return &Document{
		Kind:     "html",
		Title:    article.Title,
		Byline:   article.Byline,
		SiteName: article.SiteName,
		Text:     article.TextContent,
	}, nil
}

// ReadFile loads a local document. .html and .htm files go through
// readability; anything else is read as plain text.
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		abs, _ := filepath.Abs(path)
		doc, err := FromHTML(f, &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		doc.URL = path
		return doc, nil
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &Document{
		Kind:  "text_file",
		Title: filepath.Base(path),
		URL:   path,
		Text:  string(data),
	}, nil
}

var (
	reRT = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	reRP = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)
)

// SanitizeRuby removes <rt> and <rp> elements. It works on raw bytes, which
// is safe for Shift_JIS too since '<' never appears as a trailing byte there.
func SanitizeRuby(content []byte) []byte {
	cleaned := reRT.ReplaceAll(content, nil)
	return reRP.ReplaceAll(cleaned, nil)
}
