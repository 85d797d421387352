package trip

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mohammad-safakhou/wayfarer/internal/agent"
	"github.com/mohammad-safakhou/wayfarer/internal/telemetry"
)

// Update is one progress event of a planning run. The terminal update has
// Done set and carries the full report.
type Update struct {
	Status    string `json:"status"`
	Reasoning string `json:"reasoning"`
	Report    string `json:"report,omitempty"`
	Done      bool   `json:"done"`
}

// RoleFactory builds a fresh set of agents for one planning session.
type RoleFactory func() *agent.Roles

// Planner drives the five-stage planning pipeline.
type Planner struct {
	roles  RoleFactory
	tele   *telemetry.Telemetry
	logger *log.Logger
}

func NewPlanner(roles RoleFactory, tele *telemetry.Telemetry, logger *log.Logger) *Planner {
	if logger == nil {
		logger = log.New(log.Writer(), "[PLANNER] ", log.LstdFlags)
	}
	return &Planner{roles: roles, tele: tele, logger: logger}
}

var stageLabels = [5]string{
	"Researching destination information",
	"Finding local events",
	"Checking weather forecast",
	"Searching for flights",
	"Creating your travel plan",
}

// GeneratePlan validates the request and starts the pipeline. Updates arrive
// on the returned channel in stage order; the channel closes after the
// terminal update. The channel is unbuffered, so the caller must keep
// receiving until it closes or cancel the context; cancelling unblocks the
// run goroutine and stops the pipeline.
func (p *Planner) GeneratePlan(ctx context.Context, req Request) (<-chan Update, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	updates := make(chan Update)
	go p.run(ctx, NewSession(req), updates)
	return updates, nil
}

func (p *Planner) run(ctx context.Context, s *Session, updates chan<- Update) {
	defer close(updates)

	p.logger.Printf("session %s: planning %s -> %s (%s)", s.ID, s.Request.Origin, s.Request.Destination, s.Request.Dates)
	roles := p.roles()

	var reasoning strings.Builder
	emit := func(step int, report string, done bool) bool {
		u := Update{Status: statusText(step, done), Reasoning: reasoning.String(), Report: report, Done: done}
		select {
		case updates <- u:
			return true
		case <-ctx.Done():
			return false
		}
	}

	type stage struct {
		name  string
		run   func(context.Context) (string, error)
		store func(string)
	}
	stages := []stage{
		{"destination", func(ctx context.Context) (string, error) {
			return p.researchDestination(ctx, roles.Researcher, s.Request)
		}, func(r string) { s.DestinationReport = r }},
		{"events", func(ctx context.Context) (string, error) {
			return roles.Researcher.Chat(ctx, eventsPrompt(s.Request))
		}, func(r string) { s.EventsReport = r }},
		{"weather", func(ctx context.Context) (string, error) {
			return roles.TravelLogistics.Chat(ctx, weatherPrompt(s.Request))
		}, func(r string) { s.WeatherReport = r }},
		{"flights", func(ctx context.Context) (string, error) {
			return roles.TravelLogistics.Chat(ctx, flightsPrompt(s.Request))
		}, func(r string) { s.FlightReport = r }},
	}

	for i, st := range stages {
		if ctx.Err() != nil {
			return
		}
		if !emit(i, "", false) {
			return
		}
		started := time.Now()
		report, err := st.run(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.tele.RecordStage(st.name, "error", time.Since(started))
			p.logger.Printf("session %s: %s stage failed: %v", s.ID, st.name, err)
			report = stageErrorReport(st.name, err)
		} else {
			p.tele.RecordStage(st.name, "ok", time.Since(started))
		}
		st.store(report)
		reasoning.WriteString(report)
		reasoning.WriteString("\n\n")
	}

	if ctx.Err() != nil {
		return
	}
	if !emit(4, "", false) {
		return
	}
	started := time.Now()
	final, err := roles.Reporter.Chat(ctx, synthesisPrompt(s))
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.tele.RecordStage("synthesis", "error", time.Since(started))
		p.logger.Printf("session %s: synthesis failed, assembling fallback report: %v", s.ID, err)
		final = fallbackReport(s)
	} else {
		p.tele.RecordStage("synthesis", "ok", time.Since(started))
	}
	s.FinalReport = final
	reasoning.WriteString(final)

	emit(4, final, true)
	p.logger.Printf("session %s: plan complete (%d chars)", s.ID, len(final))
}

// researchDestination retries once with a reduced scope when the researcher
// runs out of reasoning budget. Any second failure yields an error report.
func (p *Planner) researchDestination(ctx context.Context, researcher *agent.Agent, req Request) (string, error) {
	report, err := researcher.Chat(ctx, destinationPrompt(req))
	if err == nil {
		return report, nil
	}
	if !errors.Is(err, agent.ErrIterationLimit) {
		return "", err
	}
	p.logger.Printf("destination research hit iteration limit, retrying with reduced scope")
	researcher.ResetMemory()
	return researcher.Chat(ctx, destinationRetryPrompt(req))
}

func statusText(current int, done bool) string {
	var b strings.Builder
	for i, label := range stageLabels {
		var mark string
		switch {
		case i < current || done:
			mark = "done"
		case i == current:
			mark = "in progress"
		default:
			mark = "pending"
		}
		fmt.Fprintf(&b, "Step %d/5: %s... [%s]\n", i+1, label, mark)
	}
	return b.String()
}

func stageErrorReport(stage string, err error) string {
	switch stage {
	case "destination":
		return fmt.Sprintf("# Error Researching Destination\n\nUnable to complete destination research: %s", err)
	case "events":
		return fmt.Sprintf("# Error Researching Events\n\nUnable to complete event research: %s", err)
	case "weather":
		return fmt.Sprintf("# Error Checking Weather\n\nUnable to retrieve weather information: %s", err)
	case "flights":
		return fmt.Sprintf("# Error Searching Flights\n\nUnable to complete flight search: %s", err)
	default:
		return fmt.Sprintf("# Error\n\nStage %s failed: %s", stage, err)
	}
}

// fallbackReport stitches the stage reports together when the reporter agent
// cannot produce a synthesis. Images and formatting survive untouched.
func fallbackReport(s *Session) string {
	return fmt.Sprintf(
		"# Travel Plan: %s to %s\n\n*%s*\n\n## Destination\n\n%s\n\n## Events\n\n%s\n\n## Weather\n\n%s\n\n## Flights\n\n%s",
		s.Request.Origin, s.Request.Destination, s.Request.Dates,
		s.DestinationReport, s.EventsReport, s.WeatherReport, s.FlightReport)
}
