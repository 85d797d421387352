package flights

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/mohammad-safakhou/wayfarer/config"
	"github.com/mohammad-safakhou/wayfarer/internal/telemetry"
)

// amadeusStub serves the token endpoint on /token and offers on /offers.
func amadeusStub(t *testing.T, offers http.HandlerFunc) (*Client, *url.Values) {
	t.Helper()
	var captured url.Values
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "client_credentials" {
			t.Errorf("grant_type = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "test-token"})
	})
	mux.HandleFunc("/offers", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		captured = r.URL.Query()
		offers(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := config.FlightsConfig{
		APIKey:    "key",
		APISecret: "secret",
		TokenURL:  srv.URL + "/token",
		OffersURL: srv.URL + "/offers",
	}
	return NewClient(cfg, nil, telemetry.New(nil)), &captured
}

func offersJSON(data string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(data))
	}
}

func TestSearchRequiresCredentials(t *testing.T) {
	c := NewClient(config.FlightsConfig{}, nil, telemetry.New(nil))
	if _, err := c.Search(context.Background(), Params{Origin: "JFK", Destination: "CDG", DepartureDate: "2025-06-10"}); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestSearchZeroOffers(t *testing.T) {
	c, _ := amadeusStub(t, offersJSON(`{"data": []}`))

	report, err := c.Search(context.Background(), Params{Origin: "JFK", Destination: "CDG", DepartureDate: "2025-06-10"})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if !strings.Contains(report, "No flight offers found for your search criteria.\n") {
		t.Fatalf("expected no-offers line, got:\n%s", report)
	}
	if !strings.Contains(report, "# Flight Options from JFK to CDG") {
		t.Fatalf("expected report heading, got:\n%s", report)
	}
}

func TestSearchRendersRoundTripOffers(t *testing.T) {
	const data = `{"data": [{
		"price": {"total": "645.30", "currency": "USD"},
		"itineraries": [
			{"segments": [{
				"carrierCode": "AF", "number": "23", "duration": "PT7H25M",
				"departure": {"at": "2025-06-10T19:30:00", "iataCode": "JFK"},
				"arrival": {"at": "2025-06-11T08:55:00", "iataCode": "CDG"}
			}]},
			{"segments": [{
				"carrierCode": "AF", "number": "22", "duration": "PT8H10M",
				"departure": {"at": "2025-06-17T10:30:00", "iataCode": "CDG"},
				"arrival": {"at": "2025-06-17T12:40:00", "iataCode": "JFK"}
			}]}
		]
	}]}`
	c, _ := amadeusStub(t, offersJSON(data))

	report, err := c.Search(context.Background(), Params{
		Origin: "JFK", Destination: "CDG",
		DepartureDate: "2025-06-10", ReturnDate: "2025-06-17",
	})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	for _, want := range []string{
		"## Option 1 - 645.30 USD",
		"### Outbound Journey",
		"### Return Journey",
		"- **Segment 1**: AF 23",
		"Departure: 2025-06-10T19:30:00 from JFK",
		"Arrival: 2025-06-11T08:55:00 at CDG",
		"Duration: PT7H25M",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
	if idx := strings.Index(report, "### Outbound Journey"); idx > strings.Index(report, "### Return Journey") {
		t.Fatal("outbound journey should precede return journey")
	}
}

func TestSearchOptionalParams(t *testing.T) {
	c, captured := amadeusStub(t, offersJSON(`{"data": []}`))

	maxPrice := 800
	_, err := c.Search(context.Background(), Params{
		Origin: "JFK", Destination: "CDG", DepartureDate: "2025-06-10",
		ReturnDate:  "2025-06-17",
		TravelClass: "BUSINESS",
		NonStop:     true,
		MaxPrice:    &maxPrice,
	})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	q := *captured
	if q.Get("returnDate") != "2025-06-17" || q.Get("travelClass") != "BUSINESS" ||
		q.Get("nonStop") != "true" || q.Get("maxPrice") != "800" {
		t.Fatalf("optional params missing from query: %v", q)
	}
	if q.Get("adults") != "1" {
		t.Fatalf("adults should default to 1, got %q", q.Get("adults"))
	}

	// unset optionals stay out of the request
	_, err = c.Search(context.Background(), Params{Origin: "JFK", Destination: "CDG", DepartureDate: "2025-06-10"})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	q = *captured
	for _, key := range []string{"returnDate", "travelClass", "nonStop", "maxPrice"} {
		if q.Has(key) {
			t.Errorf("unset param %q sent upstream as %q", key, q.Get(key))
		}
	}
}

func TestSearchUpstreamFailureRendersErrorReport(t *testing.T) {
	body := strings.Repeat("detail ", 100) // > 500 chars
	c, _ := amadeusStub(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, body, http.StatusUnauthorized)
	})

	report, err := c.Search(context.Background(), Params{Origin: "JFK", Destination: "CDG", DepartureDate: "2025-06-10"})
	if err != nil {
		t.Fatalf("upstream failure should render, not error: %v", err)
	}
	if !strings.HasPrefix(report, "# Error Searching Flights") {
		t.Fatalf("expected error report heading, got:\n%s", report)
	}
	if !strings.Contains(report, "Response status code: 401") {
		t.Fatalf("expected status code in report:\n%s", report)
	}
	start := strings.Index(report, "Response content: ")
	if start < 0 {
		t.Fatalf("expected body excerpt in report:\n%s", report)
	}
	excerpt := report[start+len("Response content: "):]
	if len(excerpt) > 500+len("...") {
		t.Fatalf("body excerpt not truncated to 500 chars, len=%d", len(excerpt))
	}
	if !strings.HasSuffix(excerpt, "...") {
		t.Fatalf("expected truncated excerpt to end with ellipsis: %q", excerpt)
	}
}

func TestSearchErrorExcerptStaysValidUTF8(t *testing.T) {
	// 200 three-byte runes; the 500-byte cut lands mid-rune and must back
	// off to a rune boundary.
	body := strings.Repeat("界", 200)
	c, _ := amadeusStub(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, body, http.StatusBadGateway)
	})

	report, err := c.Search(context.Background(), Params{Origin: "JFK", Destination: "CDG", DepartureDate: "2025-06-10"})
	if err != nil {
		t.Fatalf("upstream failure should render, not error: %v", err)
	}
	start := strings.Index(report, "Response content: ")
	if start < 0 {
		t.Fatalf("expected body excerpt in report:\n%s", report)
	}
	excerpt := strings.TrimSuffix(report[start+len("Response content: "):], "...")
	if !utf8.ValidString(excerpt) {
		t.Fatalf("excerpt contains a split rune: %q", excerpt)
	}
	if excerpt != strings.Repeat("界", 166) {
		t.Fatalf("expected cut at rune boundary, got %d bytes", len(excerpt))
	}
}

func TestSearchTokenFailureRendersErrorReport(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid client", http.StatusBadRequest)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := NewClient(config.FlightsConfig{
		APIKey: "key", APISecret: "secret",
		TokenURL: srv.URL + "/token", OffersURL: srv.URL + "/offers",
	}, nil, telemetry.New(nil))

	report, err := c.Search(context.Background(), Params{Origin: "JFK", Destination: "CDG", DepartureDate: "2025-06-10"})
	if err != nil {
		t.Fatalf("token failure should render, not error: %v", err)
	}
	if !strings.HasPrefix(report, "# Error Searching Flights") {
		t.Fatalf("expected error report heading, got:\n%s", report)
	}
}

func TestToolRequiresRouteAndDate(t *testing.T) {
	c, _ := amadeusStub(t, offersJSON(`{"data": []}`))
	tool := c.Tool()

	if _, err := tool.Run(context.Background(), map[string]any{"origin": "JFK"}); err == nil {
		t.Fatal("expected error for missing destination and departure_date")
	}
}
