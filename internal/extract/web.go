package extract

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var multiSpaceRe = regexp.MustCompile(`\s+`)

// WebExtractor fetches a page and reduces it to readable text.
type WebExtractor struct {
	httpClient *http.Client
}

func NewWebExtractor(timeout time.Duration) *WebExtractor {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &WebExtractor{httpClient: &http.Client{Timeout: timeout}}
}

// Extract downloads url and returns its visible text with scripts, styles and
// boilerplate markup stripped.
func (e *WebExtractor) Extract(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch website: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("website returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse website html: %w", err)
	}

	doc.Find("script, style, noscript, iframe, svg, nav, footer, header").Remove()

	var parts []string
	doc.Find("title, h1, h2, h3, h4, p, li, td, figcaption").Each(func(_ int, sel *goquery.Selection) {
		text := multiSpaceRe.ReplaceAllString(strings.TrimSpace(sel.Text()), " ")
		if text != "" {
			parts = append(parts, text)
		}
	})
	if len(parts) == 0 {
		body := multiSpaceRe.ReplaceAllString(strings.TrimSpace(doc.Find("body").Text()), " ")
		parts = append(parts, body)
	}

	text := strings.TrimSpace(strings.Join(parts, "\n"))

	log.Printf("[Extract] Fetched %s (%d chars)", url, len(text))
	return text, nil
}
