package agent

// Memory is a token-budgeted conversational buffer. When the estimated token
// count exceeds the budget, the oldest turns are evicted first. The system
// prompt lives outside the buffer and is never evicted.
type Memory struct {
	budget   int
	messages []Message
}

// NewMemory creates a buffer with the given token ceiling.
func NewMemory(budget int) *Memory {
	if budget <= 0 {
		budget = 3000
	}
	return &Memory{budget: budget}
}

// estimateTokens approximates token usage at four characters per token, the
// same heuristic the providers use for budgeting.
func estimateTokens(content string) int {
	return len(content) / 4
}

// Append adds a turn and evicts the oldest turns while over budget. The most
// recent turn is always kept, even if it alone exceeds the budget.
func (m *Memory) Append(role, content string) {
	m.messages = append(m.messages, Message{Role: role, Content: content})
	for m.tokens() > m.budget && len(m.messages) > 1 {
		m.messages = m.messages[1:]
	}
}

func (m *Memory) tokens() int {
	total := 0
	for _, msg := range m.messages {
		total += estimateTokens(msg.Content)
	}
	return total
}

// Messages returns the buffered turns in order.
func (m *Memory) Messages() []Message {
	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Len returns the number of buffered turns.
func (m *Memory) Len() int { return len(m.messages) }

// Reset clears the buffer, scoping the conversation to one planning session.
func (m *Memory) Reset() {
	m.messages = nil
}
