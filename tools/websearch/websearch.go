// Package websearch adapts the Serper search API into markdown-formatted
// result listings.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mohammad-safakhou/wayfarer/config"
	"github.com/mohammad-safakhou/wayfarer/internal/cache"
	"github.com/mohammad-safakhou/wayfarer/internal/httpx"
	"github.com/mohammad-safakhou/wayfarer/internal/telemetry"
	"github.com/mohammad-safakhou/wayfarer/tools"
)

// Kind selects the Serper endpoint to query.
type Kind string

const (
	KindSearch   Kind = "search"
	KindNews     Kind = "news"
	KindImages   Kind = "images"
	KindShopping Kind = "shopping"
)

// Recency restricts results to a trailing time window.
type Recency string

const (
	RecencyHour  Recency = "hour"
	RecencyDay   Recency = "day"
	RecencyWeek  Recency = "week"
	RecencyMonth Recency = "month"
	RecencyYear  Recency = "year"
)

var recencyCodes = map[Recency]string{
	RecencyHour:  "h",
	RecencyDay:   "d",
	RecencyWeek:  "w",
	RecencyMonth: "m",
	RecencyYear:  "y",
}

// Options are the optional query filters. Unset fields are omitted from the
// upstream request rather than defaulted.
type Options struct {
	NumResults *int
	Recency    Recency
	Location   string
}

// response is the subset of the Serper response consumed by the formatter.
type response struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
	News []struct {
		Title    string `json:"title"`
		Source   string `json:"source"`
		Link     string `json:"link"`
		Date     string `json:"date"`
		Snippet  string `json:"snippet"`
		ImageURL string `json:"imageUrl"`
	} `json:"news"`
	Images []struct {
		Title  string `json:"title"`
		Link   string `json:"link"`
		Source string `json:"source"`
	} `json:"images"`
	Shopping []struct {
		Title string `json:"title"`
		Price string `json:"price"`
		Link  string `json:"link"`
	} `json:"shopping"`
}

// Client queries the Serper API.
type Client struct {
	cfg   config.SearchConfig
	http  *httpx.Client
	cache cache.Cache
	tele  *telemetry.Telemetry
	ttl   time.Duration
}

func NewClient(cfg config.SearchConfig, hc *httpx.Client, store cache.Cache, ttl time.Duration, tele *telemetry.Telemetry) *Client {
	if hc == nil {
		hc = httpx.NewClient(cfg.Timeout, 0, 0)
	}
	if store == nil {
		store = cache.NewMemory()
	}
	return &Client{cfg: cfg, http: hc, cache: store, tele: tele, ttl: ttl}
}

// SearchAll issues the queries independently and returns a parallel list of
// formatted result blocks. A transport or parse failure for one query becomes
// an inline error string scoped to that query, so the rest of the batch still
// succeeds.
func (c *Client) SearchAll(ctx context.Context, queries []string, kind Kind, opts Options) []string {
	out := make([]string, 0, len(queries))
	for _, q := range queries {
		out = append(out, c.searchOne(ctx, q, kind, opts))
	}
	return out
}

// Search issues a single query and returns one formatted block.
func (c *Client) Search(ctx context.Context, query string, kind Kind, opts Options) string {
	return c.searchOne(ctx, query, kind, opts)
}

func (c *Client) searchOne(ctx context.Context, query string, kind Kind, opts Options) string {
	payload := map[string]any{
		"q":  query,
		"gl": c.cfg.Country,
		"hl": c.cfg.Lang,
	}
	if opts.NumResults != nil {
		payload["num"] = *opts.NumResults
	}
	if code, ok := recencyCodes[opts.Recency]; ok {
		payload["tbs"] = "qdr:" + code
	}
	if opts.Location != "" {
		payload["location"] = opts.Location
	}

	key := cacheKey(kind, payload)
	if v, ok := c.cache.Get(ctx, key); ok {
		return v
	}

	start := time.Now()
	var resp response
	err := c.http.DoJSON(ctx, http.MethodPost, c.cfg.BaseURL+"/"+string(kind),
		map[string]string{"X-API-KEY": c.cfg.APIKey}, payload, &resp)
	c.tele.RecordAdapter("websearch", err == nil, time.Since(start))
	if err != nil {
		return fmt.Sprintf("Error making request to Serper API for query '%s': %s", query, err)
	}

	formatted := format(resp)
	c.cache.Set(ctx, key, formatted, c.ttl)
	return formatted
}

func cacheKey(kind Kind, payload map[string]any) string {
	b, _ := json.Marshal(payload)
	return "serper:" + string(kind) + ":" + string(b)
}

// format renders the response sections in upstream order with the original
// numbered layout.
func format(resp response) string {
	var b strings.Builder

	if len(resp.Organic) > 0 {
		b.WriteString("Organic Results:\n")
		for i, r := range resp.Organic {
			fmt.Fprintf(&b, "%d. %s\n", i+1, orElse(r.Title, "No Title"))
			fmt.Fprintf(&b, "   URL: %s\n", orElse(r.Link, "No Link"))
			fmt.Fprintf(&b, "   Snippet: %s\n\n", orElse(r.Snippet, "No Snippet"))
		}
	}
	if len(resp.News) > 0 {
		b.WriteString("News Results:\n")
		for i, n := range resp.News {
			fmt.Fprintf(&b, "%d. %s\n", i+1, orElse(n.Title, "No Title"))
			fmt.Fprintf(&b, "   Source: %s\n", orElse(n.Source, "No Source"))
			fmt.Fprintf(&b, "   URL: %s\n", orElse(n.Link, "No Link"))
			fmt.Fprintf(&b, "   Date: %s\n", orElse(n.Date, "No Date"))
			fmt.Fprintf(&b, "   Snippet: %s\n", orElse(n.Snippet, "No Snippet"))
			fmt.Fprintf(&b, "   Image URL: %s\n\n", orElse(n.ImageURL, "No Image URL"))
		}
	}
	if len(resp.Images) > 0 {
		b.WriteString("Image Results:\n")
		for i, img := range resp.Images {
			fmt.Fprintf(&b, "%d. %s\n", i+1, orElse(img.Title, "No Title"))
			fmt.Fprintf(&b, "   URL: %s\n", orElse(img.Link, "No Link"))
			fmt.Fprintf(&b, "   Source: %s\n\n", orElse(img.Source, "No Source"))
		}
	}
	if len(resp.Shopping) > 0 {
		b.WriteString("Shopping Results:\n")
		for i, s := range resp.Shopping {
			fmt.Fprintf(&b, "%d. %s\n", i+1, orElse(s.Title, "No Title"))
			fmt.Fprintf(&b, "   Price: %s\n", orElse(s.Price, "No Price"))
			fmt.Fprintf(&b, "   URL: %s\n\n", orElse(s.Link, "No Link"))
		}
	}

	return strings.TrimSpace(b.String())
}

func orElse(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

var kindNames = map[string]Kind{
	"search":   KindSearch,
	"news":     KindNews,
	"images":   KindImages,
	"shopping": KindShopping,
}

var recencyNames = map[string]Recency{
	"h": RecencyHour, "hour": RecencyHour,
	"d": RecencyDay, "day": RecencyDay,
	"w": RecencyWeek, "week": RecencyWeek,
	"m": RecencyMonth, "month": RecencyMonth,
	"y": RecencyYear, "year": RecencyYear,
}

// Tool exposes the adapter to agents. A single query yields one block; a list
// of queries yields the blocks joined with separators, preserving input order.
func (c *Client) Tool() tools.Tool {
	return tools.Tool{
		Name:        "serper_search",
		Description: "Search the web. Args: query (string or list), search_type (search|news|images|shopping), num_results, date_range (h|d|w|m|y), location.",
		Run: func(ctx context.Context, args tools.Args) (string, error) {
			queries := args.StringList("query")
			if len(queries) == 0 {
				return "", fmt.Errorf("serper_search: query is required")
			}
			kind, ok := kindNames[strings.ToLower(args.String("search_type", "search"))]
			if !ok {
				kind = KindSearch
			}
			var opts Options
			if args.Has("num_results") {
				n := args.Int("num_results", 10)
				if n <= 0 {
					return "", fmt.Errorf("serper_search: num_results must be positive, got %d", n)
				}
				opts.NumResults = &n
			}
			if args.Has("date_range") {
				opts.Recency = recencyNames[strings.ToLower(args.String("date_range", ""))]
			}
			opts.Location = args.String("location", "")

			results := c.SearchAll(ctx, queries, kind, opts)
			if len(results) == 1 {
				return results[0], nil
			}
			return strings.Join(results, "\n\n---\n\n"), nil
		},
	}
}
