package trip

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Request describes one trip to plan.
type Request struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Dates       string `json:"dates"`
	Interests   string `json:"interests"`
}

// Validate rejects requests before any agent work is scheduled.
func (r Request) Validate() error {
	var missing []string
	if strings.TrimSpace(r.Origin) == "" {
		missing = append(missing, "origin")
	}
	if strings.TrimSpace(r.Destination) == "" {
		missing = append(missing, "destination")
	}
	if strings.TrimSpace(r.Dates) == "" {
		missing = append(missing, "dates")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Session accumulates the intermediate reports of one planning run. A single
// goroutine writes it; readers only see it through the update stream.
type Session struct {
	ID        string
	Request   Request
	CreatedAt time.Time

	DestinationReport string
	EventsReport      string
	WeatherReport     string
	FlightReport      string
	FinalReport       string
}

func NewSession(req Request) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Request:   req,
		CreatedAt: time.Now().UTC(),
	}
}
