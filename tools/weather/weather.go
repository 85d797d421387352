// Package weather adapts the WeatherAPI forecast endpoint into a markdown
// weather report with derived packing advice.
package weather

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

// ErrMissingCredential reports an unset weather API key. It is a setup defect
// and is raised synchronously rather than formatted into the report.
var ErrMissingCredential = errors.New("weather: WEATHER_API_KEY is not set")

// ValidationError reports a parameter outside its contract, detected before
// any network request is issued.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("weather: %s %s", e.Field, e.Message)
}

// Params selects which report sections to include.
type Params struct {
	Location        string
	ForecastDays    *int // 1..10
	IncludeCurrent  bool
	IncludeForecast bool
	IncludeAstro    bool
	IncludeHourly   bool
	IncludeAlerts   bool
}

// defaultForecastDays applies when a forecast is requested without an
// explicit day count.
const defaultForecastDays = 3

type response struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Location struct {
		Name      string `json:"name"`
		Region    string `json:"region"`
		Country   string `json:"country"`
		LocalTime string `json:"localtime"`
	} `json:"location"`
	Current struct {
		TempC     float64 `json:"temp_c"`
		TempF     float64 `json:"temp_f"`
		FeelsC    float64 `json:"feelslike_c"`
		FeelsF    float64 `json:"feelslike_f"`
		Humidity  int     `json:"humidity"`
		WindKPH   float64 `json:"wind_kph"`
		WindMPH   float64 `json:"wind_mph"`
		WindDir   string  `json:"wind_dir"`
		UV        float64 `json:"uv"`
		PrecipMM  float64 `json:"precip_mm"`
		PrecipIN  float64 `json:"precip_in"`
		Condition struct {
			Text string `json:"text"`
		} `json:"condition"`
	} `json:"current"`
	Forecast struct {
		ForecastDay []forecastDay `json:"forecastday"`
	} `json:"forecast"`
	Alerts struct {
		Alert []alert `json:"alert"`
	} `json:"alerts"`
}

type forecastDay struct {
	Date string `json:"date"`
	Day  struct {
		MaxTempC    float64 `json:"maxtemp_c"`
		MaxTempF    float64 `json:"maxtemp_f"`
		MinTempC    float64 `json:"mintemp_c"`
		MinTempF    float64 `json:"mintemp_f"`
		AvgTempC    float64 `json:"avgtemp_c"`
		RainChance  int     `json:"daily_chance_of_rain"`
		TotalPrecMM float64 `json:"totalprecip_mm"`
		TotalPrecIN float64 `json:"totalprecip_in"`
		Condition   struct {
			Text string `json:"text"`
		} `json:"condition"`
	} `json:"day"`
	Astro struct {
		Sunrise   string `json:"sunrise"`
		Sunset    string `json:"sunset"`
		Moonrise  string `json:"moonrise"`
		Moonset   string `json:"moonset"`
		MoonPhase string `json:"moon_phase"`
	} `json:"astro"`
	Hour []struct {
		Time         string  `json:"time"`
		TempC        float64 `json:"temp_c"`
		TempF        float64 `json:"temp_f"`
		ChanceOfRain int     `json:"chance_of_rain"`
		Condition    struct {
			Text string `json:"text"`
		} `json:"condition"`
	} `json:"hour"`
}

type alert struct {
	Headline  string `json:"headline"`
	Event     string `json:"event"`
	Effective string `json:"effective"`
	Expires   string `json:"expires"`
	Desc      string `json:"desc"`
}

// Client queries WeatherAPI.
type Client struct {
	cfg  config.WeatherConfig
	http *httpx.Client
	tele *telemetry.Telemetry
}

func NewClient(cfg config.WeatherConfig, hc *httpx.Client, tele *telemetry.Telemetry) *Client {
	if hc == nil {
		hc = httpx.NewClient(cfg.Timeout, 0, 0)
	}
	return &Client{cfg: cfg, http: hc, tele: tele}
}

// Report fetches the forecast and renders the weather report. Missing
// credentials and out-of-range parameters fail before any network request.
// Transport and upstream failures are returned as errors for the tool layer
// to convert.
func (c *Client) Report(ctx context.Context, p Params) (string, error) {
	if c.cfg.APIKey == "" {
		return "", ErrMissingCredential
	}

	params := url.Values{}
	params.Set("key", c.cfg.APIKey)
	params.Set("q", p.Location)
	params.Set("aqi", "yes")
	params.Set("alerts", "yes")

	if p.ForecastDays != nil {
		if *p.ForecastDays < 1 || *p.ForecastDays > 10 {
			return "", &ValidationError{Field: "forecast_days", Message: "must be between 1 and 10"}
		}
		params.Set("forecast_days", strconv.Itoa(*p.ForecastDays))
	} else if p.IncludeForecast {
		params.Set("forecast_days", strconv.Itoa(defaultForecastDays))
	}

	start := time.Now()
	var data response
	err := c.http.GetJSON(ctx, c.cfg.BaseURL+"/forecast.json", params, &data)
	c.tele.RecordAdapter("weather", err == nil, time.Since(start))
	if err != nil {
		return "", fmt.Errorf("error making request to WeatherAPI: %w", err)
	}
	if data.Error != nil {
		return "", fmt.Errorf("WeatherAPI error: %s", data.Error.Message)
	}

	return render(data, p), nil
}

// render assembles the report sections in fixed order: location, current
// conditions, astronomy, per-day forecast, alerts, clothing recommendation.
func render(data response, p Params) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Weather Report for %s, %s\n\n", data.Location.Name, data.Location.Country)
	b.WriteString("## Location Information\n")
	fmt.Fprintf(&b, "- **Region**: %s\n", data.Location.Region)
	fmt.Fprintf(&b, "- **Local Time**: %s\n\n", data.Location.LocalTime)

	days := data.Forecast.ForecastDay

	if p.IncludeCurrent {
		cur := data.Current
		b.WriteString("## Current Conditions\n")
		fmt.Fprintf(&b, "- **Condition**: %s\n", cur.Condition.Text)
		fmt.Fprintf(&b, "- **Temperature**: %g°C / %g°F\n", cur.TempC, cur.TempF)
		fmt.Fprintf(&b, "- **Feels Like**: %g°C / %g°F\n", cur.FeelsC, cur.FeelsF)
		fmt.Fprintf(&b, "- **Humidity**: %d%%\n", cur.Humidity)
		fmt.Fprintf(&b, "- **Wind**: %g kph / %g mph, %s\n", cur.WindKPH, cur.WindMPH, cur.WindDir)
		fmt.Fprintf(&b, "- **UV Index**: %g\n", cur.UV)
		fmt.Fprintf(&b, "- **Precipitation**: %g mm / %g in\n\n", cur.PrecipMM, cur.PrecipIN)

		if p.IncludeAstro && len(days) > 0 {
			astro := days[0].Astro
			b.WriteString("## Astronomical Information (Today)\n")
			fmt.Fprintf(&b, "- **Sunrise**: %s\n", astro.Sunrise)
			fmt.Fprintf(&b, "- **Sunset**: %s\n", astro.Sunset)
			fmt.Fprintf(&b, "- **Moonrise**: %s\n", astro.Moonrise)
			fmt.Fprintf(&b, "- **Moonset**: %s\n", astro.Moonset)
			fmt.Fprintf(&b, "- **Moon Phase**: %s\n\n", astro.MoonPhase)
		}
	}

	if p.IncludeForecast && len(days) > 0 {
		b.WriteString("## Forecast\n")
		for _, day := range days {
			fmt.Fprintf(&b, "### %s\n", day.Date)
			fmt.Fprintf(&b, "- **Condition**: %s\n", day.Day.Condition.Text)
			fmt.Fprintf(&b, "- **Temperature**: Max %g°C / %g°F, Min %g°C / %g°F\n",
				day.Day.MaxTempC, day.Day.MaxTempF, day.Day.MinTempC, day.Day.MinTempF)
			fmt.Fprintf(&b, "- **Chance of Rain**: %d%%\n", day.Day.RainChance)
			fmt.Fprintf(&b, "- **Precipitation**: %g mm / %g in\n", day.Day.TotalPrecMM, day.Day.TotalPrecIN)

			if p.IncludeAstro {
				b.WriteString("#### Astronomical Information\n")
				fmt.Fprintf(&b, "- **Sunrise**: %s\n", day.Astro.Sunrise)
				fmt.Fprintf(&b, "- **Sunset**: %s\n", day.Astro.Sunset)
				fmt.Fprintf(&b, "- **Moon Phase**: %s\n", day.Astro.MoonPhase)
			}
			if p.IncludeHourly {
				b.WriteString("#### Hourly Forecast\n")
				for _, hour := range day.Hour {
					fmt.Fprintf(&b, "- **%s**: %g°C / %g°F, %s, Chance of rain: %d%%\n",
						clockOf(hour.Time), hour.TempC, hour.TempF, hour.Condition.Text, hour.ChanceOfRain)
				}
			}
			b.WriteString("\n")
		}
	}

	if p.IncludeAlerts && len(data.Alerts.Alert) > 0 {
		b.WriteString("## Weather Alerts\n")
		for _, a := range data.Alerts.Alert {
			fmt.Fprintf(&b, "- **%s**\n", a.Headline)
			fmt.Fprintf(&b, "  - Event: %s\n", a.Event)
			fmt.Fprintf(&b, "  - Effective: %s\n", a.Effective)
			fmt.Fprintf(&b, "  - Expires: %s\n", a.Expires)
			if a.Desc != "" {
				desc := tools.Clip(strings.ReplaceAll(a.Desc, "\n", " "), 200)
				fmt.Fprintf(&b, "  - Description: %s...\n", desc)
			}
			b.WriteString("\n")
		}
	}

	if advice, ok := clothingAdvice(data, p); ok {
		b.WriteString("## Clothing Recommendations\n")
		b.WriteString("- " + advice + "\n")
		if p.IncludeForecast && anyRainAbove(days, 30) {
			b.WriteString("- Don't forget rain gear: umbrella and/or rain jacket\n")
		}
	}

	return b.String()
}

// clockOf trims "2025-06-10 14:00" down to the clock portion.
func clockOf(t string) string {
	if i := strings.IndexByte(t, ' '); i >= 0 {
		return t[i+1:]
	}
	return t
}

func anyRainAbove(days []forecastDay, threshold int) bool {
	for _, day := range days {
		if day.Day.RainChance > threshold {
			return true
		}
	}
	return false
}

// clothingAdvice derives packing advice from the forecast average temperature
// when a forecast is present, else the current temperature.
func clothingAdvice(data response, p Params) (string, bool) {
	days := data.Forecast.ForecastDay
	switch {
	case p.IncludeForecast && len(days) > 0:
		var sum float64
		for _, day := range days {
			sum += day.Day.AvgTempC
		}
		return clothingForTemp(sum / float64(len(days))), true
	case p.IncludeCurrent:
		return clothingForTemp(data.Current.TempC), true
	}
	return "", false
}

// clothingForTemp is a monotonic step function over average temperature.
// Boundaries are exclusive upper bounds: exactly 10°C lands in the "<15"
// bucket.
func clothingForTemp(avgTemp float64) string {
	switch {
	case avgTemp < 0:
		return "Heavy winter coat, thermal layers, gloves, winter hat, and insulated boots"
	case avgTemp < 10:
		return "Winter coat, sweater, long-sleeve shirts, scarf, and warm footwear"
	case avgTemp < 15:
		return "Light jacket or coat, sweater, and long pants"
	case avgTemp < 20:
		return "Light jacket, long-sleeve shirts, and pants"
	case avgTemp < 25:
		return "T-shirts, light pants or shorts, and a light jacket for evenings"
	case avgTemp < 30:
		return "Light clothing, shorts, and t-shirts"
	default:
		return "Very light clothing, sun protection (hat, sunglasses), and consider breathable fabrics"
	}
}

// Tool exposes the adapter to agents. Transport and upstream failures become
// descriptive strings so the agent can report them conversationally;
// credential and validation defects propagate as errors.
func (c *Client) Tool() tools.Tool {
	return tools.Tool{
		Name:        "get_weather_data",
		Description: "Get a weather report for a location. Args: location, forecast_days (1-10), include_current, include_forecast, include_astro, include_hourly, include_alerts.",
		Run: func(ctx context.Context, args tools.Args) (string, error) {
			p := Params{
				Location:        args.String("location", ""),
				IncludeCurrent:  args.Bool("include_current", true),
				IncludeForecast: args.Bool("include_forecast", true),
				IncludeAstro:    args.Bool("include_astro", false),
				IncludeHourly:   args.Bool("include_hourly", false),
				IncludeAlerts:   args.Bool("include_alerts", false),
			}
			if p.Location == "" {
				return "", fmt.Errorf("get_weather_data: location is required")
			}
			if args.Has("forecast_days") {
				d := args.Int("forecast_days", defaultForecastDays)
				p.ForecastDays = &d
			}

			report, err := c.Report(ctx, p)
			if err != nil {
				var ve *ValidationError
				if errors.Is(err, ErrMissingCredential) || errors.As(err, &ve) {
					return "", err
				}
				return fmt.Sprintf("Error retrieving weather data for %s: %s", p.Location, err), nil
			}
			return report, nil
		},
	}
}
