// Package wikipedia adapts the MediaWiki APIs: article search with lead
// extracts on en.wikipedia.org, and file-namespace image search on Wikimedia
// Commons.
package wikipedia

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mohammad-safakhou/wayfarer/internal/httpx"
	"github.com/mohammad-safakhou/wayfarer/internal/telemetry"
	"github.com/mohammad-safakhou/wayfarer/tools"
)

const (
	articleAPI = "https://en.wikipedia.org/w/api.php"
	commonsAPI = "https://commons.wikimedia.org/w/api.php"

	defaultArticleResults = 10
	defaultImageLimit     = 20
	defaultThumbSize      = 250
)

// ArticleSummary is one enriched article hit.
type ArticleSummary struct {
	Title   string
	FullURL string
	Extract string
}

// ImageHit is one Commons file with a resolvable thumbnail.
type ImageHit struct {
	Title     string
	PageURL   string
	Thumbnail string
}

type searchResponse struct {
	Query struct {
		Search []struct {
			Title  string `json:"title"`
			PageID int    `json:"pageid"`
		} `json:"search"`
	} `json:"query"`
}

type pageResponse struct {
	Query struct {
		Pages map[string]struct {
			Title     string `json:"title"`
			FullURL   string `json:"fullurl"`
			Extract   string `json:"extract"`
			Thumbnail *struct {
				Source string `json:"source"`
			} `json:"thumbnail"`
		} `json:"pages"`
	} `json:"query"`
}

// Client queries the MediaWiki APIs.
type Client struct {
	http     *httpx.Client
	tele     *telemetry.Telemetry
	logger   *log.Logger
	articles string
	commons  string
}

func NewClient(hc *httpx.Client, tele *telemetry.Telemetry, logger *log.Logger) *Client {
	if hc == nil {
		hc = httpx.NewClient(30*time.Second, 0, 0)
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[WIKI] ", log.LstdFlags)
	}
	return &Client{http: hc, tele: tele, logger: logger, articles: articleAPI, commons: commonsAPI}
}

// WithEndpoints overrides the upstream endpoints, for tests.
func (c *Client) WithEndpoints(articles, commons string) *Client {
	c.articles = articles
	c.commons = commons
	return c
}

// SearchArticles returns up to numResults article summaries for the query,
// each enriched with a plain-text lead extract and canonical URL. A failed
// enrichment drops that one hit; a failed initial search yields an empty list.
func (c *Client) SearchArticles(ctx context.Context, query string, numResults int) []ArticleSummary {
	if numResults <= 0 {
		numResults = defaultArticleResults
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", strconv.Itoa(numResults))
	params.Set("format", "json")
	params.Set("origin", "*")

	start := time.Now()
	var sr searchResponse
	err := c.http.GetJSON(ctx, c.articles, params, &sr)
	c.tele.RecordAdapter("wikipedia_articles", err == nil, time.Since(start))
	if err != nil {
		c.logger.Printf("article search failed for %q: %v", query, err)
		return nil
	}

	results := make([]ArticleSummary, 0, len(sr.Query.Search))
	for _, hit := range sr.Query.Search {
		summary, err := c.enrich(ctx, hit.PageID)
		if err != nil {
			c.logger.Printf("dropping article %q (pageid %d): %v", hit.Title, hit.PageID, err)
			continue
		}
		results = append(results, summary)
	}
	return results
}

func (c *Client) enrich(ctx context.Context, pageID int) (ArticleSummary, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("pageids", strconv.Itoa(pageID))
	params.Set("prop", "info|extracts|pageimages")
	params.Set("inprop", "url")
	params.Set("exintro", "")
	params.Set("explaintext", "")
	params.Set("pithumbsize", strconv.Itoa(defaultThumbSize))
	params.Set("format", "json")
	params.Set("origin", "*")

	var pr pageResponse
	if err := c.http.GetJSON(ctx, c.articles, params, &pr); err != nil {
		return ArticleSummary{}, err
	}
	page, ok := pr.Query.Pages[strconv.Itoa(pageID)]
	if !ok {
		return ArticleSummary{}, fmt.Errorf("page %d missing from response", pageID)
	}
	return ArticleSummary{Title: page.Title, FullURL: page.FullURL, Extract: page.Extract}, nil
}

// SearchImages queries Wikimedia Commons, keeping only hits with a resolvable
// thumbnail. Zero usable hits yields a human-readable sentinel string; a
// transport or parse failure yields an error-description string.
func (c *Client) SearchImages(ctx context.Context, query string, limit, thumbSize int) string {
	if limit <= 0 {
		limit = defaultImageLimit
	}
	if thumbSize <= 0 {
		thumbSize = defaultThumbSize
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("generator", "search")
	params.Set("gsrnamespace", "6")
	params.Set("gsrsearch", "intitle:"+query)
	params.Set("gsrlimit", strconv.Itoa(limit))
	params.Set("prop", "pageimages|info")
	params.Set("pithumbsize", strconv.Itoa(thumbSize))
	params.Set("inprop", "url")
	params.Set("format", "json")
	params.Set("origin", "*")

	start := time.Now()
	var pr pageResponse
	err := c.http.GetJSON(ctx, c.commons, params, &pr)
	c.tele.RecordAdapter("wikipedia_images", err == nil, time.Since(start))
	if err != nil {
		return fmt.Sprintf("Error occurred while searching for images: %s", err)
	}

	if len(pr.Query.Pages) == 0 {
		return "No images found for your query."
	}

	// Map iteration order is random; walk pages in page-id order so the
	// listing is stable across identical calls.
	ids := make([]string, 0, len(pr.Query.Pages))
	for id := range pr.Query.Pages {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.Atoi(ids[i])
		b, _ := strconv.Atoi(ids[j])
		return a < b
	})

	var hits []ImageHit
	for _, id := range ids {
		page := pr.Query.Pages[id]
		if page.Thumbnail == nil || page.Thumbnail.Source == "" {
			continue
		}
		hits = append(hits, ImageHit{Title: page.Title, PageURL: page.FullURL, Thumbnail: page.Thumbnail.Source})
	}
	if len(hits) == 0 {
		return "No images with thumbnails found for your query."
	}

	separator := strings.Repeat("-", 30)
	var b strings.Builder
	for i, hit := range hits {
		fmt.Fprintf(&b, "\nImage %d:\n", i+1)
		fmt.Fprintf(&b, "  Title: %s\n", hit.Title)
		fmt.Fprintf(&b, "  URL: %s\n", hit.PageURL)
		fmt.Fprintf(&b, "  Thumbnail: %s\n", hit.Thumbnail)
		b.WriteString(separator)
	}
	return b.String()
}

// ArticlesTool exposes article search to agents as a formatted listing.
func (c *Client) ArticlesTool() tools.Tool {
	return tools.Tool{
		Name:        "wikipedia_search_articles",
		Description: "Search Wikipedia articles. Args: query, num_results.",
		Run: func(ctx context.Context, args tools.Args) (string, error) {
			query := args.String("query", "")
			if query == "" {
				return "", fmt.Errorf("wikipedia_search_articles: query is required")
			}
			summaries := c.SearchArticles(ctx, query, args.Int("num_results", defaultArticleResults))
			if len(summaries) == 0 {
				return "No articles found for your query.", nil
			}
			var b strings.Builder
			for i, s := range summaries {
				fmt.Fprintf(&b, "%d. %s\n", i+1, s.Title)
				fmt.Fprintf(&b, "   URL: %s\n", s.FullURL)
				fmt.Fprintf(&b, "   Extract: %s\n\n", s.Extract)
			}
			return strings.TrimSpace(b.String()), nil
		},
	}
}

// ImagesTool exposes Commons image search to agents.
func (c *Client) ImagesTool() tools.Tool {
	return tools.Tool{
		Name:        "wikipedia_search_images",
		Description: "Search Wikimedia Commons for images. Args: query, limit, thumb_size.",
		Run: func(ctx context.Context, args tools.Args) (string, error) {
			query := args.String("query", "")
			if query == "" {
				return "", fmt.Errorf("wikipedia_search_images: query is required")
			}
			return c.SearchImages(ctx, query, args.Int("limit", defaultImageLimit), args.Int("thumb_size", defaultThumbSize)), nil
		},
	}
}
