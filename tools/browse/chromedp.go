package browse

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	readability "github.com/go-shiori/go-readability"
)

// ChromedpFetcher renders a page in headless Chrome before extraction, for
// pages that build their content with JavaScript.
type ChromedpFetcher struct {
	Timeout  time.Duration
	MaxChars int
}

func (f *ChromedpFetcher) Extract(ctx context.Context, pageURL string) string {
	if strings.TrimSpace(pageURL) == "" {
		return "Error browsing webpage: empty url"
	}

	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	html, err := fetchHTML(ctx, pageURL)
	if err != nil {
		return fmt.Sprintf("Error browsing webpage %s: %s", pageURL, err)
	}

	parsed, err := url.Parse(pageURL)
	if err != nil {
		return fmt.Sprintf("Error browsing webpage %s: %s", pageURL, err)
	}
	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return fmt.Sprintf("Error extracting content from %s: %s", pageURL, err)
	}

	text := truncate(cleanText(strings.TrimSpace(article.TextContent)), f.MaxChars)
	return fmt.Sprintf("Content from %s:\n\n%s", pageURL, text)
}

func fetchHTML(ctx context.Context, pageURL string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent(browserHeaders["User-Agent"]),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(bctx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	return html, err
}
