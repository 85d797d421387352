package server

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammad-safakhou/wayfarer/config"
	"github.com/mohammad-safakhou/wayfarer/internal/agent"
	"github.com/mohammad-safakhou/wayfarer/internal/cache"
	"github.com/mohammad-safakhou/wayfarer/internal/httpx"
	"github.com/mohammad-safakhou/wayfarer/internal/telemetry"
	"github.com/mohammad-safakhou/wayfarer/internal/trip"
	"github.com/mohammad-safakhou/wayfarer/tools/browse"
	"github.com/mohammad-safakhou/wayfarer/tools/flights"
	"github.com/mohammad-safakhou/wayfarer/tools/weather"
	"github.com/mohammad-safakhou/wayfarer/tools/websearch"
	"github.com/mohammad-safakhou/wayfarer/tools/wikipedia"
)

const (
	adapterRetries = 3
	adapterBackoff = 500 * time.Millisecond
)

// Run wires the planner from configuration and serves the HTTP API.
func Run(cfg *config.Config) error {
	if missing := config.CheckRequired(); len(missing) > 0 {
		return fmt.Errorf("missing required credentials: %s", strings.Join(missing, ", "))
	}

	reg := prometheus.NewRegistry()
	var tele *telemetry.Telemetry
	if cfg.Telemetry.Enabled {
		tele = telemetry.New(reg)
	} else {
		tele = telemetry.New(nil)
	}

	planner, err := BuildPlanner(cfg, tele)
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	if cfg.Telemetry.Enabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	api := e.Group("/api")
	ph := &PlanHandler{Planner: planner, Logger: baseLogger}
	ph.Register(api.Group("/plan"))

	baseLogger.Printf("listening on %s", cfg.Server.Address)
	return e.Start(cfg.Server.Address)
}

// BuildPlanner assembles the adapters, agent roles and pipeline from
// configuration. The CLI shares this wiring with the HTTP server.
func BuildPlanner(cfg *config.Config, tele *telemetry.Telemetry) (*trip.Planner, error) {
	llm, err := agent.NewOpenAIProvider(cfg.LLM, tele)
	if err != nil {
		return nil, err
	}

	searchClient := websearch.NewClient(cfg.Search,
		httpx.NewClient(cfg.Search.Timeout, adapterRetries, adapterBackoff),
		cache.New(cfg.Cache), cfg.Cache.TTL, tele)
	wikiClient := wikipedia.NewClient(
		httpx.NewClient(cfg.General.DefaultTimeout, adapterRetries, adapterBackoff), tele, nil)
	weatherClient := weather.NewClient(cfg.Weather,
		httpx.NewClient(cfg.Weather.Timeout, adapterRetries, adapterBackoff), tele)
	flightsClient := flights.NewClient(cfg.Flights,
		httpx.NewClient(cfg.Flights.Timeout, adapterRetries, adapterBackoff), tele)
	fetcher, err := browse.NewFetcher(cfg.Browse)
	if err != nil {
		return nil, err
	}

	ts := agent.Toolset{
		WebSearch:    searchClient.Tool(),
		WikiArticles: wikiClient.ArticlesTool(),
		WikiImages:   wikiClient.ImagesTool(),
		Browse:       browse.NewTool(fetcher),
		Weather:      weatherClient.Tool(),
		Flights:      flightsClient.Tool(),
	}
	agentLogger := log.New(log.Writer(), "[AGENT] ", log.LstdFlags)
	factory := func() *agent.Roles { return agent.NewRoles(llm, ts, agentLogger) }

	plannerLogger := log.New(log.Writer(), "[PLANNER] ", log.LstdFlags)
	return trip.NewPlanner(factory, tele, plannerLogger), nil
}
