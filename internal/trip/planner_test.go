package trip

import (
	"context"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/mohammad-safakhou/wayfarer/internal/agent"
	"github.com/mohammad-safakhou/wayfarer/internal/telemetry"
	"github.com/mohammad-safakhou/wayfarer/tools"
)

var testRequest = Request{
	Origin:      "New York",
	Destination: "Paris",
	Dates:       "June 10-17, 2025",
	Interests:   "Art, cuisine, architecture",
}

// stubProvider replays a script keyed by call number.
type stubProvider struct {
	script   func(call int, messages []agent.Message) (string, error)
	calls    int
	received [][]agent.Message
}

func (p *stubProvider) Chat(_ context.Context, messages []agent.Message) (string, error) {
	p.calls++
	p.received = append(p.received, messages)
	return p.script(p.calls, messages)
}

func answers(outputs ...string) *stubProvider {
	return &stubProvider{script: func(call int, _ []agent.Message) (string, error) {
		if call > len(outputs) {
			call = len(outputs)
		}
		return "Final Answer: " + outputs[call-1], nil
	}}
}

const loopingTurn = "Thought: keep going.\nAction: noop\nAction Input: {}"

func testRoles(research, logistics, reporter agent.Provider) RoleFactory {
	logger := log.New(io.Discard, "", 0)
	noop := tools.Tool{
		Name:        "noop",
		Description: "Does nothing.",
		Run:         func(context.Context, tools.Args) (string, error) { return "ok", nil },
	}
	return func() *agent.Roles {
		reg := tools.NewRegistry(noop)
		return &agent.Roles{
			Researcher:      agent.New(agent.Role{Name: "researcher", SystemPrompt: "r", Tools: reg, MemoryBudget: 3000, MaxIterations: 2}, research, logger),
			TravelLogistics: agent.New(agent.Role{Name: "travel_logistics", SystemPrompt: "t", Tools: reg, MemoryBudget: 3000, MaxIterations: 2}, logistics, logger),
			Reporter:        agent.New(agent.Role{Name: "reporter", SystemPrompt: "p", MemoryBudget: 4000, MaxIterations: 2}, reporter, logger),
		}
	}
}

func newTestPlanner(research, logistics, reporter agent.Provider) *Planner {
	return NewPlanner(testRoles(research, logistics, reporter), telemetry.New(nil), log.New(io.Discard, "", 0))
}

func collect(t *testing.T, p *Planner, req Request) []Update {
	t.Helper()
	updates, err := p.GeneratePlan(context.Background(), req)
	if err != nil {
		t.Fatalf("GeneratePlan failed: %v", err)
	}
	var got []Update
	for u := range updates {
		got = append(got, u)
	}
	return got
}

func TestGeneratePlanRunsStagesInOrder(t *testing.T) {
	research := answers("DESTINATION_CONTENT ![Louvre](https://example.com/louvre.jpg)", "EVENTS_CONTENT")
	logistics := answers("WEATHER_CONTENT", "FLIGHTS_CONTENT")
	reporter := answers("FINAL_CONTENT")
	p := newTestPlanner(research, logistics, reporter)

	got := collect(t, p, testRequest)
	if len(got) != 6 {
		t.Fatalf("expected 6 updates (5 stage starts + terminal), got %d", len(got))
	}

	first := got[0]
	if first.Done {
		t.Fatal("first update must not be terminal")
	}
	if !strings.Contains(first.Status, "Step 1/5: Researching destination information... [in progress]") {
		t.Fatalf("first status:\n%s", first.Status)
	}
	if !strings.Contains(got[1].Status, "Step 1/5: Researching destination information... [done]") ||
		!strings.Contains(got[1].Status, "Step 2/5: Finding local events... [in progress]") {
		t.Fatalf("second status:\n%s", got[1].Status)
	}

	terminal := got[len(got)-1]
	if !terminal.Done {
		t.Fatal("last update must be terminal")
	}
	if terminal.Report != "FINAL_CONTENT" {
		t.Fatalf("terminal report = %q", terminal.Report)
	}
	if strings.Contains(terminal.Status, "pending") || strings.Contains(terminal.Status, "in progress") {
		t.Fatalf("terminal status should mark every step done:\n%s", terminal.Status)
	}
}

func TestGeneratePlanSynthesisSeesAllReportsVerbatim(t *testing.T) {
	research := answers("DESTINATION_CONTENT", "EVENTS_CONTENT")
	logistics := answers("WEATHER_CONTENT", "FLIGHTS_CONTENT")
	reporter := answers("FINAL_CONTENT")
	p := newTestPlanner(research, logistics, reporter)

	collect(t, p, testRequest)

	if len(reporter.received) != 1 {
		t.Fatalf("reporter called %d times, want 1", len(reporter.received))
	}
	msgs := reporter.received[0]
	prompt := msgs[len(msgs)-1].Content
	for _, want := range []string{
		"DESTINATION REPORT:\nDESTINATION_CONTENT",
		"EVENTS REPORT:\nEVENTS_CONTENT",
		"WEATHER REPORT:\nWEATHER_CONTENT",
		"FLIGHT REPORT:\nFLIGHTS_CONTENT",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("synthesis prompt missing %q", want)
		}
	}
	labelOrder := []string{"DESTINATION REPORT:", "EVENTS REPORT:", "WEATHER REPORT:", "FLIGHT REPORT:"}
	last := -1
	for _, label := range labelOrder {
		idx := strings.Index(prompt, label)
		if idx < last {
			t.Fatalf("label %q out of order in synthesis prompt", label)
		}
		last = idx
	}
}

func TestGeneratePlanRetriesDestinationOnceOnIterationLimit(t *testing.T) {
	// first attempt burns the 2-iteration budget, the reduced-scope retry
	// succeeds, then the events stage answers normally
	research := &stubProvider{script: func(call int, messages []agent.Message) (string, error) {
		switch call {
		case 1, 2:
			return loopingTurn, nil
		case 3:
			return "Final Answer: SIMPLE_DESTINATION", nil
		default:
			return "Final Answer: EVENTS_CONTENT", nil
		}
	}}
	logistics := answers("WEATHER_CONTENT", "FLIGHTS_CONTENT")
	reporter := answers("FINAL_CONTENT")
	p := newTestPlanner(research, logistics, reporter)

	collect(t, p, testRequest)

	// the retry prompt is the reduced-scope one
	retryMsgs := research.received[2]
	prompt := retryMsgs[len(retryMsgs)-1].Content
	if !strings.Contains(prompt, "Create a simple report about Paris") {
		t.Fatalf("expected reduced-scope retry prompt, got %q", prompt)
	}

	msgs := reporter.received[0]
	synthesis := msgs[len(msgs)-1].Content
	if !strings.Contains(synthesis, "DESTINATION REPORT:\nSIMPLE_DESTINATION") {
		t.Fatalf("retry result missing from synthesis:\n%s", synthesis)
	}
}

func TestGeneratePlanDestinationRetryIsExactlyOnce(t *testing.T) {
	// the researcher never terminates, so both destination attempts and the
	// events stage hit the iteration limit
	research := &stubProvider{script: func(int, []agent.Message) (string, error) {
		return loopingTurn, nil
	}}
	logistics := answers("WEATHER_CONTENT", "FLIGHTS_CONTENT")
	reporter := answers("FINAL_CONTENT")
	p := newTestPlanner(research, logistics, reporter)

	got := collect(t, p, testRequest)

	// 2 iterations x (first attempt + single retry + events stage)
	if research.calls != 6 {
		t.Fatalf("researcher completions = %d, want 6", research.calls)
	}

	msgs := reporter.received[0]
	synthesis := msgs[len(msgs)-1].Content
	if !strings.Contains(synthesis, "# Error Researching Destination") {
		t.Fatalf("destination error block missing:\n%s", synthesis)
	}
	if !strings.Contains(synthesis, "# Error Researching Events") {
		t.Fatalf("events error block missing:\n%s", synthesis)
	}
	// the pipeline still finished
	if !got[len(got)-1].Done {
		t.Fatal("pipeline should reach the terminal update")
	}
}

func TestGeneratePlanStageFailureDoesNotStopPipeline(t *testing.T) {
	research := answers("DESTINATION_CONTENT", "EVENTS_CONTENT")
	// weather stage fails hard, flights succeeds
	logistics := &stubProvider{script: func(call int, _ []agent.Message) (string, error) {
		if call == 1 {
			return "", context.DeadlineExceeded
		}
		return "Final Answer: FLIGHTS_CONTENT", nil
	}}
	reporter := answers("FINAL_CONTENT")
	p := newTestPlanner(research, logistics, reporter)

	got := collect(t, p, testRequest)
	if !got[len(got)-1].Done {
		t.Fatal("pipeline should reach the terminal update")
	}

	msgs := reporter.received[0]
	synthesis := msgs[len(msgs)-1].Content
	if !strings.Contains(synthesis, "# Error Checking Weather") {
		t.Fatalf("weather error block missing:\n%s", synthesis)
	}
	if !strings.Contains(synthesis, "FLIGHT REPORT:\nFLIGHTS_CONTENT") {
		t.Fatalf("flights stage should still run:\n%s", synthesis)
	}
}

func TestGeneratePlanFallbackReportOnSynthesisFailure(t *testing.T) {
	research := answers("DESTINATION_CONTENT", "EVENTS_CONTENT")
	logistics := answers("WEATHER_CONTENT", "FLIGHTS_CONTENT")
	reporter := &stubProvider{script: func(int, []agent.Message) (string, error) {
		return "", context.DeadlineExceeded
	}}
	p := newTestPlanner(research, logistics, reporter)

	got := collect(t, p, testRequest)
	terminal := got[len(got)-1]
	if !terminal.Done {
		t.Fatal("expected terminal update")
	}
	for _, want := range []string{
		"# Travel Plan: New York to Paris",
		"DESTINATION_CONTENT", "EVENTS_CONTENT", "WEATHER_CONTENT", "FLIGHTS_CONTENT",
	} {
		if !strings.Contains(terminal.Report, want) {
			t.Errorf("fallback report missing %q:\n%s", want, terminal.Report)
		}
	}
}

func TestGeneratePlanValidatesRequest(t *testing.T) {
	p := newTestPlanner(answers("x"), answers("x"), answers("x"))

	_, err := p.GeneratePlan(context.Background(), Request{Interests: "art"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, field := range []string{"origin", "destination", "dates"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("validation error should name %q: %v", field, err)
		}
	}
}

func TestGeneratePlanStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	research := &stubProvider{script: func(int, []agent.Message) (string, error) {
		cancel()
		return "Final Answer: DESTINATION_CONTENT", nil
	}}
	p := newTestPlanner(research, answers("x", "x"), answers("x"))

	updates, err := p.GeneratePlan(ctx, testRequest)
	if err != nil {
		t.Fatalf("GeneratePlan failed: %v", err)
	}
	count := 0
	for range updates {
		count++
	}
	if count > 2 {
		t.Fatalf("expected the stream to stop after cancellation, got %d updates", count)
	}
}

func TestGeneratePlanCancelUnblocksAbandonedStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := newTestPlanner(answers("x", "x"), answers("x", "x"), answers("x"))

	updates, err := p.GeneratePlan(ctx, testRequest)
	if err != nil {
		t.Fatalf("GeneratePlan failed: %v", err)
	}
	// The caller walks away without receiving, leaving the run goroutine
	// blocked on its first send. Cancelling must release it so the channel
	// still closes.
	cancel()

	closed := make(chan struct{})
	go func() {
		for range updates {
		}
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("run goroutine still blocked after cancellation")
	}
}
