// Package metadata scrapes titles, descriptions, favicons and word counts
// from web pages. Every failure is reported in the result; Fetch never
// returns an error.
package metadata

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"readinglist/internal/domain"
	"readinglist/internal/logger"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "ReadingList/1.0"

	// wordsPerMinute is the reading speed used for the estimate in the
	// raw result; callers with a configured speed recompute it
	wordsPerMinute = 200
	maxBodyBytes   = 5 << 20
	maxDescription = 300
)

var (
	titleMeta = []string{
		`meta[property="og:title"]`,
		`meta[name="twitter:title"]`,
	}
	descriptionMeta = []string{
		`meta[property="og:description"]`,
		`meta[name="twitter:description"]`,
		`meta[name="description"]`,
	}
	iconLinks = []string{
		`link[rel="icon"]`,
		`link[rel="shortcut icon"]`,
		`link[rel="apple-touch-icon"]`,
	}
	contentSelectors = []string{
		"main", "article", `[role="main"]`, ".content", "#content", ".post", ".entry",
	}
)

// Fetcher downloads pages with a bounded timeout
type Fetcher struct {
	client    *http.Client
	userAgent string
	logger    *logger.Logger
}

// NewFetcher creates a fetcher. Zero values select the defaults.
func NewFetcher(timeout time.Duration, userAgent string, log *logger.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		logger:    log,
	}
}

// Fetch downloads pageURL and extracts its metadata
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) domain.MetadataResult {
	start := time.Now()

	doc, err := f.download(ctx, pageURL)
	if err != nil {
		f.logger.Warn("Metadata fetch failed for %s: %v", pageURL, err)
		return domain.MetadataResult{Success: false, Error: err.Error()}
	}

	result := Extract(doc, pageURL)
	f.logger.Debug("Fetched metadata for %s in %v", pageURL, time.Since(start))
	return result
}

func (f *Fetcher) download(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// Extract reads metadata from an already parsed page. The word count
// removes scripts, styles and page chrome from doc.
func Extract(doc *goquery.Document, pageURL string) domain.MetadataResult {
	title := extractTitle(doc, pageURL)
	words := countWords(doc)
	minutes := max(1, int(math.Ceil(float64(words)/wordsPerMinute)))

	result := domain.MetadataResult{
		Title:      &title,
		WordCount:  &words,
		EstMinutes: &minutes,
		Success:    true,
	}
	if d, ok := extractDescription(doc); ok {
		result.Description = &d
	}
	if icon, ok := extractFavicon(doc, pageURL); ok {
		result.Favicon = &icon
	}
	return result
}

func firstMeta(doc *goquery.Document, selectors []string) (string, bool) {
	for _, sel := range selectors {
		content, _ := doc.Find(sel).First().Attr("content")
		if content = strings.TrimSpace(content); content != "" {
			return content, true
		}
	}
	return "", false
}

func extractTitle(doc *goquery.Document, pageURL string) string {
	if t, ok := firstMeta(doc, titleMeta); ok {
		return t
	}
	for _, sel := range []string{"title", "h1"} {
		if t := strings.TrimSpace(doc.Find(sel).First().Text()); t != "" {
			return t
		}
	}

	u, err := url.Parse(pageURL)
	if err != nil || u.Hostname() == "" {
		return "Untitled"
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

func extractDescription(doc *goquery.Document) (string, bool) {
	if d, ok := firstMeta(doc, descriptionMeta); ok {
		return d, true
	}

	p := []rune(strings.TrimSpace(doc.Find("p").First().Text()))
	if len(p) == 0 {
		return "", false
	}
	if len(p) > maxDescription {
		p = p[:maxDescription]
	}
	return string(p), true
}

func extractFavicon(doc *goquery.Document, pageURL string) (string, bool) {
	base, err := url.Parse(pageURL)
	if err != nil || base.Host == "" {
		return "", false
	}

	for _, sel := range iconLinks {
		href, ok := doc.Find(sel).First().Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			continue
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			continue
		}
		return base.ResolveReference(ref).String(), true
	}
	return base.Scheme + "://" + base.Host + "/favicon.ico", true
}

func countWords(doc *goquery.Document) int {
	doc.Find("script, style, nav, header, footer").Remove()

	content := ""
	for _, sel := range contentSelectors {
		if text := doc.Find(sel).First().Text(); strings.TrimSpace(text) != "" {
			content = text
			break
		}
	}
	if content == "" {
		content = doc.Find("body").Text()
	}
	return len(strings.Fields(content))
}
