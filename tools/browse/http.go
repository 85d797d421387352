package browse

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// contentSelectors are probed in order; the first match is treated as the
// page's main content region.
var contentSelectors = []string{
	"main", "article", ".content", "#content", ".main-content",
	".article", ".post", ".entry", ".blog-post",
}

// browserHeaders make the request look like an ordinary desktop browser;
// several sites serve reduced or blocked pages to obvious bots.
var browserHeaders = map[string]string{
	"User-Agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.5",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
	"Cache-Control":             "max-age=0",
}

// HTTPFetcher fetches a page over plain HTTP and extracts its main text.
type HTTPFetcher struct {
	Timeout  time.Duration
	MaxChars int

	// Client overrides the HTTP client, for tests.
	Client *http.Client
}

func (f *HTTPFetcher) Extract(ctx context.Context, url string) string {
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: f.Timeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Sprintf("Error browsing webpage %s: %s", url, err)
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Sprintf("Error browsing webpage %s: %s", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Sprintf("Error browsing webpage %s: unexpected status %s", url, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return fmt.Sprintf("Error extracting content from %s: %s", url, err)
	}

	text := extractText(doc)
	text = truncate(cleanText(text), f.MaxChars)
	return fmt.Sprintf("Content from %s:\n\n%s", url, text)
}

// extractText strips boilerplate markup, probes the content selectors and
// pulls paragraph text, falling back to the whole body when no selector
// matches.
func extractText(doc *goquery.Document) string {
	doc.Find("script, style, iframe, nav, footer").Remove()

	var region *goquery.Selection
	for _, selector := range contentSelectors {
		if sel := doc.Find(selector); sel.Length() > 0 {
			region = sel.First()
			break
		}
	}

	if region != nil {
		if paragraphs := region.Find("p"); paragraphs.Length() > 0 {
			var parts []string
			paragraphs.Each(func(_ int, p *goquery.Selection) {
				if t := strings.TrimSpace(p.Text()); t != "" {
					parts = append(parts, t)
				}
			})
			return strings.Join(parts, "\n\n")
		}
		return blockText(region)
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		return ""
	}
	return blockText(body)
}

// blockText renders a selection's text with paragraph separators between
// block-level children, so sibling sections do not run together.
func blockText(sel *goquery.Selection) string {
	var parts []string
	sel.Children().Each(func(_ int, child *goquery.Selection) {
		if t := strings.TrimSpace(child.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) == 0 {
		return strings.TrimSpace(sel.Text())
	}
	return strings.Join(parts, "\n\n")
}

// cleanText collapses runs of whitespace: lines are trimmed, split on double
// spaces, and empty chunks dropped.
func cleanText(text string) string {
	var chunks []string
	for _, line := range strings.Split(text, "\n") {
		for _, phrase := range strings.Split(strings.TrimSpace(line), "  ") {
			if p := strings.TrimSpace(phrase); p != "" {
				chunks = append(chunks, p)
			}
		}
	}
	return strings.Join(chunks, "\n")
}
