// Package conversation implements the per-session clarification state machine.
//
// Each session holds exactly one ConversationContext. State transitions are
// explicit functions on the Machine; the context itself is a serializable
// value persisted in the session store between turns.
package conversation

import "encoding/json"

// State is the conversation state for one session.
type State string

const (
	StateInitial    State = "initial"
	StateClarifying State = "clarifying"
	StatePlanning   State = "planning"
	StateExecuting  State = "executing"
	StateCompleted  State = "completed"
)

// QuestionType identifies one clarification slot to fill.
type QuestionType string

const (
	QuestionFileStructure QuestionType = "file_structure"
	QuestionDataFormat    QuestionType = "data_format"
	QuestionGoal          QuestionType = "goal"
	QuestionConstraints   QuestionType = "constraints"
)

// questionOrder is the fixed priority order for follow-up rounds.
var questionOrder = []QuestionType{
	QuestionFileStructure,
	QuestionDataFormat,
	QuestionGoal,
	QuestionConstraints,
}

// Context tracks the clarification dialogue for one session.
type Context struct {
	State State `json:"state"`

	// Count is the number of clarifying questions asked in the current
	// clarifying run. Monotonic within a run; reset on leaving clarifying.
	Count int `json:"clarification_count"`

	// Pending is the question type currently awaiting an answer.
	Pending QuestionType `json:"pending,omitempty"`

	// Answers maps answered question types to the user's replies.
	Answers map[QuestionType]string `json:"answers,omitempty"`

	// OriginalQuestion is the first question of the current thread.
	OriginalQuestion string `json:"original_question,omitempty"`

	// LastCategory is the intent that most recently drove a transition,
	// used to detect repeated planning intent.
	LastCategory string `json:"last_category,omitempty"`
}

// NewContext returns an empty context in the initial state.
func NewContext() *Context {
	return &Context{
		State:   StateInitial,
		Answers: make(map[QuestionType]string),
	}
}

// Reset clears the context back to the initial state. Called when the
// topic changes or a completed thread is followed by an unrelated question.
func (c *Context) Reset() {
	c.State = StateInitial
	c.Count = 0
	c.Pending = ""
	c.Answers = make(map[QuestionType]string)
	c.OriginalQuestion = ""
	c.LastCategory = ""
}

// MergedText returns the original question plus every collected answer,
// for re-running the classifier on the merged context.
func (c *Context) MergedText(latest string) string {
	out := c.OriginalQuestion
	for _, qt := range questionOrder {
		if a, ok := c.Answers[qt]; ok {
			out += " " + a
		}
	}
	if latest != "" {
		out += " " + latest
	}
	return out
}

// nextUnanswered returns the next question type in fixed priority order
// that has not been answered yet.
func (c *Context) nextUnanswered() (QuestionType, bool) {
	for _, qt := range questionOrder {
		if _, done := c.Answers[qt]; !done {
			return qt, true
		}
	}
	return "", false
}

// Marshal serializes the context for the session store's context blob.
func (c *Context) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// Unmarshal restores a context from the session store's context blob.
// An empty blob yields a fresh initial context.
func Unmarshal(data []byte) (*Context, error) {
	if len(data) == 0 {
		return NewContext(), nil
	}
	var c Context
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if c.Answers == nil {
		c.Answers = make(map[QuestionType]string)
	}
	if c.State == "" {
		c.State = StateInitial
	}
	return &c, nil
}
