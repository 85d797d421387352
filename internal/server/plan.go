package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/wayfarer/internal/trip"
)

// PlanHandler streams planning runs over Server-Sent Events.
type PlanHandler struct {
	Planner *trip.Planner
	Logger  *log.Logger
}

func (h *PlanHandler) Register(g *echo.Group) {
	g.POST("", h.generate)
}

// generate starts a planning run and streams each update as one SSE event.
// The terminal event carries the full report.
func (h *PlanHandler) generate(c echo.Context) error {
	var req trip.Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	updates, err := h.Planner.GeneratePlan(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	for u := range updates {
		payload, err := json.Marshal(u)
		if err != nil {
			h.Logger.Printf("marshal update: %v", err)
			continue
		}
		if _, err := fmt.Fprintf(res, "data: %s\n\n", payload); err != nil {
			// client went away; the context cancellation stops the run
			return nil
		}
		res.Flush()
	}
	return nil
}
