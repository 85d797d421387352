// Package browse fetches webpages and extracts their principal textual
// content for use inside an agent's tool loop.
package browse

import (
	"context"
	"fmt"
	"time"

	"github.com/mohammad-safakhou/wayfarer/config"
	"github.com/mohammad-safakhou/wayfarer/tools"
)

const (
	// DefaultMaxChars bounds extracted text; anything longer is cut and
	// flagged with truncationMarker.
	DefaultMaxChars  = 8000
	DefaultTimeout   = 30 * time.Second
	truncationMarker = "...\n[Content truncated due to length]"
)

// Fetcher extracts readable text from one absolute URL. Implementations never
// return an error: failures become descriptive strings, because the result is
// fed back into a reasoning loop that needs a successful-looking observation
// to continue.
type Fetcher interface {
	Extract(ctx context.Context, url string) string
}

// FetcherType selects the extraction strategy.
type FetcherType string

const (
	HTTPFetcherType     FetcherType = "http"
	ChromedpFetcherType FetcherType = "chromedp"
)

// NewFetcher builds the configured fetcher. The plain HTTP fetcher is the
// default; chromedp renders JS-heavy pages headlessly before extraction.
func NewFetcher(cfg config.BrowseConfig) (Fetcher, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxChars := cfg.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	switch FetcherType(cfg.Fetcher) {
	case HTTPFetcherType, "":
		return &HTTPFetcher{Timeout: timeout, MaxChars: maxChars}, nil
	case ChromedpFetcherType:
		return &ChromedpFetcher{Timeout: timeout, MaxChars: maxChars}, nil
	default:
		return nil, fmt.Errorf("browse: unsupported fetcher type %q", cfg.Fetcher)
	}
}

// NewTool binds a fetcher as the browse_webpage tool.
func NewTool(f Fetcher) tools.Tool {
	return tools.Tool{
		Name:        "browse_webpage",
		Description: "Browse a webpage and extract its main content. Args: url.",
		Run: func(ctx context.Context, args tools.Args) (string, error) {
			url := args.String("url", "")
			if url == "" {
				return "", fmt.Errorf("browse_webpage: url is required")
			}
			return f.Extract(ctx, url), nil
		},
	}
}

// truncate bounds text and appends the truncation marker when it was cut.
func truncate(text string, maxChars int) string {
	if len(text) > maxChars {
		return tools.Clip(text, maxChars) + truncationMarker
	}
	return text
}
