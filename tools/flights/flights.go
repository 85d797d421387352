// Package flights adapts the Amadeus flight-offers API: a client-credentials
// token exchange followed by an offer search, rendered as a markdown report.
package flights

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mohammad-safakhou/wayfarer/config"
	"github.com/mohammad-safakhou/wayfarer/internal/httpx"
	"github.com/mohammad-safakhou/wayfarer/internal/telemetry"
	"github.com/mohammad-safakhou/wayfarer/tools"
)

// ErrMissingCredentials reports unset Amadeus credentials, raised before any
// network request.
var ErrMissingCredentials = errors.New("flights: AMADEUS_API_KEY and AMADEUS_API_SECRET must be set")

// noOffersLine is rendered when the upstream returns zero offers.
const noOffersLine = "No flight offers found for your search criteria.\n"

// Params describe one offer search. Optional fields are sent upstream only
// when provided.
type Params struct {
	Origin        string
	Destination   string
	DepartureDate string // YYYY-MM-DD
	ReturnDate    string
	Adults        int
	Children      int
	Infants       int
	TravelClass   string // ECONOMY, PREMIUM_ECONOMY, BUSINESS, FIRST
	NonStop       bool
	Currency      string
	MaxPrice      *int
	MaxResults    int
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

type offersResponse struct {
	Data []offer `json:"data"`
}

type offer struct {
	Price struct {
		Total    string `json:"total"`
		Currency string `json:"currency"`
	} `json:"price"`
	Itineraries []itinerary `json:"itineraries"`
}

type itinerary struct {
	Segments []segment `json:"segments"`
}

type segment struct {
	CarrierCode string `json:"carrierCode"`
	Number      string `json:"number"`
	Duration    string `json:"duration"`
	Departure   struct {
		At       string `json:"at"`
		IATACode string `json:"iataCode"`
	} `json:"departure"`
	Arrival struct {
		At       string `json:"at"`
		IATACode string `json:"iataCode"`
	} `json:"arrival"`
}

// Client performs the two-step Amadeus protocol.
type Client struct {
	cfg  config.FlightsConfig
	http *httpx.Client
	tele *telemetry.Telemetry
}

func NewClient(cfg config.FlightsConfig, hc *httpx.Client, tele *telemetry.Telemetry) *Client {
	if hc == nil {
		hc = httpx.NewClient(cfg.Timeout, 0, 0)
	}
	return &Client{cfg: cfg, http: hc, tele: tele}
}

// Search obtains a bearer token, queries the offer-search endpoint and renders
// the offers. Missing credentials fail fast; any transport failure during
// either step is rendered as a markdown error report instead of an error.
func (c *Client) Search(ctx context.Context, p Params) (string, error) {
	if c.cfg.APIKey == "" || c.cfg.APISecret == "" {
		return "", ErrMissingCredentials
	}
	if p.Adults <= 0 {
		p.Adults = 1
	}
	if p.Currency == "" {
		p.Currency = "USD"
	}
	if p.MaxResults <= 0 {
		p.MaxResults = 10
	}

	start := time.Now()
	token, err := c.fetchToken(ctx)
	if err != nil {
		c.tele.RecordAdapter("flights", false, time.Since(start))
		return errorReport(err), nil
	}

	params := url.Values{}
	params.Set("originLocationCode", p.Origin)
	params.Set("destinationLocationCode", p.Destination)
	params.Set("departureDate", p.DepartureDate)
	params.Set("adults", strconv.Itoa(p.Adults))
	params.Set("children", strconv.Itoa(p.Children))
	params.Set("infants", strconv.Itoa(p.Infants))
	params.Set("currencyCode", p.Currency)
	params.Set("max", strconv.Itoa(p.MaxResults))
	if p.ReturnDate != "" {
		params.Set("returnDate", p.ReturnDate)
	}
	if p.TravelClass != "" {
		params.Set("travelClass", p.TravelClass)
	}
	if p.NonStop {
		params.Set("nonStop", "true")
	}
	if p.MaxPrice != nil {
		params.Set("maxPrice", strconv.Itoa(*p.MaxPrice))
	}

	var offers offersResponse
	err = c.http.DoJSON(ctx, "GET", c.cfg.OffersURL+"?"+params.Encode(),
		map[string]string{"Authorization": "Bearer " + token}, nil, &offers)
	c.tele.RecordAdapter("flights", err == nil, time.Since(start))
	if err != nil {
		return errorReport(err), nil
	}

	return render(p, offers), nil
}

func (c *Client) fetchToken(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.cfg.APIKey)
	form.Set("client_secret", c.cfg.APISecret)

	var tok tokenResponse
	if err := c.http.PostForm(ctx, c.cfg.TokenURL, form, &tok); err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", errors.New("empty access token in response")
	}
	return tok.AccessToken, nil
}

func render(p Params, offers offersResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Flight Options from %s to %s\n\n", p.Origin, p.Destination)

	if len(offers.Data) == 0 {
		b.WriteString(noOffersLine)
		return b.String()
	}

	max := p.MaxResults
	if max > len(offers.Data) {
		max = len(offers.Data)
	}
	for i := 0; i < max; i++ {
		o := offers.Data[i]
		fmt.Fprintf(&b, "## Option %d - %s %s\n\n", i+1, o.Price.Total, o.Price.Currency)

		if len(o.Itineraries) > 0 {
			b.WriteString("### Outbound Journey\n")
			renderSegments(&b, o.Itineraries[0].Segments)
		}
		if len(o.Itineraries) > 1 {
			b.WriteString("\n### Return Journey\n")
			renderSegments(&b, o.Itineraries[1].Segments)
		}
		b.WriteString("\n---\n\n")
	}
	return b.String()
}

func renderSegments(b *strings.Builder, segments []segment) {
	for i, s := range segments {
		fmt.Fprintf(b, "- **Segment %d**: %s %s\n", i+1, s.CarrierCode, s.Number)
		fmt.Fprintf(b, "  - Departure: %s from %s\n", s.Departure.At, s.Departure.IATACode)
		fmt.Fprintf(b, "  - Arrival: %s at %s\n", s.Arrival.At, s.Arrival.IATACode)
		fmt.Fprintf(b, "  - Duration: %s\n", s.Duration)
	}
}

// errorReport renders a transport failure as markdown, including the upstream
// status code and a bounded body excerpt when available.
func errorReport(err error) string {
	var b strings.Builder
	b.WriteString("# Error Searching Flights\n\n")
	fmt.Fprintf(&b, "Error searching for flight offers: %s", baseMessage(err))

	var se *httpx.StatusError
	if errors.As(err, &se) {
		fmt.Fprintf(&b, "\n\nResponse status code: %d", se.StatusCode)
		fmt.Fprintf(&b, "\nResponse content: %s...", tools.Clip(se.Body, 500))
	}
	return b.String()
}

func baseMessage(err error) string {
	var se *httpx.StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return err.Error()
}

// Tool exposes the adapter to agents. Only credential absence is an error;
// everything else renders as markdown.
func (c *Client) Tool() tools.Tool {
	return tools.Tool{
		Name:        "search_flights",
		Description: "Search flight offers. Args: origin, destination, departure_date (YYYY-MM-DD), return_date, adults, children, infants, travel_class, non_stop, currency, max_price, max_results.",
		Run: func(ctx context.Context, args tools.Args) (string, error) {
			p := Params{
				Origin:        args.String("origin", ""),
				Destination:   args.String("destination", ""),
				DepartureDate: args.String("departure_date", ""),
				ReturnDate:    args.String("return_date", ""),
				Adults:        args.Int("adults", 1),
				Children:      args.Int("children", 0),
				Infants:       args.Int("infants", 0),
				TravelClass:   args.String("travel_class", ""),
				NonStop:       args.Bool("non_stop", false),
				Currency:      args.String("currency", "USD"),
				MaxResults:    args.Int("max_results", 10),
			}
			if p.Origin == "" || p.Destination == "" || p.DepartureDate == "" {
				return "", fmt.Errorf("search_flights: origin, destination and departure_date are required")
			}
			if args.Has("max_price") {
				mp := args.Int("max_price", 0)
				p.MaxPrice = &mp
			}
			return c.Search(ctx, p)
		},
	}
}
