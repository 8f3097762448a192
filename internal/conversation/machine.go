package conversation

import (
	"github.com/CHULJU-KIM/Excelly/internal/classifier"
)

// Action is what the caller should do next for this turn.
type Action int

const (
	// ActionClarify means emit the clarifying question and wait.
	ActionClarify Action = iota

	// ActionPlan means generate a plan-style answer (analytical/creative).
	ActionPlan

	// ActionExecute means generate the final answer.
	ActionExecute
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionClarify:
		return "clarify"
	case ActionPlan:
		return "plan"
	case ActionExecute:
		return "execute"
	default:
		return "unknown"
	}
}

// Decision is the state machine's verdict for one inbound turn.
type Decision struct {
	Action Action

	// Question is set when Action is ActionClarify.
	Question *ClarifyingQuestion

	// Result is the classifier output that drove the decision.
	Result classifier.Result

	// Forced is true when the clarification limit pushed the dialogue
	// forward despite remaining ambiguity; the answer should carry caveats.
	Forced bool

	// TopicReset is true when a completed thread was reset for an
	// unrelated new question.
	TopicReset bool
}

// Machine applies transitions to a session's Context.
type Machine struct {
	cls               *classifier.Classifier
	maxClarifications int
}

// NewMachine creates a state machine over the given classifier.
func NewMachine(cls *classifier.Classifier, maxClarifications int) *Machine {
	if maxClarifications <= 0 {
		maxClarifications = 3
	}
	return &Machine{cls: cls, maxClarifications: maxClarifications}
}

// MaxClarifications returns the configured clarification limit.
func (m *Machine) MaxClarifications() int {
	return m.maxClarifications
}

// Advance consumes one inbound turn, mutates the context and returns what
// to do. From every state every trigger has exactly one resulting state.
func (m *Machine) Advance(ctx *Context, in classifier.Input, known *KnownFile) Decision {
	// Debugging feedback short-circuits the dialogue: it resolves in a
	// single turn regardless of the current state.
	if in.IsFeedback {
		res := m.cls.Classify(in)
		ctx.State = StateExecuting
		ctx.LastCategory = string(res.Category)
		return Decision{Action: ActionExecute, Result: res}
	}

	switch ctx.State {
	case StateClarifying:
		return m.advanceClarifying(ctx, in, known)
	case StatePlanning:
		return m.advancePlanning(ctx, in)
	case StateCompleted:
		return m.advanceCompleted(ctx, in, known)
	default: // StateInitial, StateExecuting: a new thread starts here
		return m.advanceInitial(ctx, in, known)
	}
}

// advanceInitial handles initial -> clarifying | planning | executing.
func (m *Machine) advanceInitial(ctx *Context, in classifier.Input, known *KnownFile) Decision {
	res := m.cls.Classify(in)
	ctx.OriginalQuestion = in.Question
	ctx.LastCategory = string(res.Category)

	if !res.Specific && ctx.Count < m.maxClarifications {
		q := m.askFirst(ctx, in, known)
		return Decision{Action: ActionClarify, Question: q, Result: res}
	}

	return m.proceed(ctx, res, false)
}

// advanceClarifying handles clarifying -> clarifying | planning | executing.
func (m *Machine) advanceClarifying(ctx *Context, in classifier.Input, known *KnownFile) Decision {
	// Record the answer against the pending question type.
	if ctx.Pending != "" {
		ctx.Answers[ctx.Pending] = in.Question
		ctx.Pending = ""
	}

	// Re-run the classifier on the merged context.
	merged := in
	merged.Question = ctx.MergedText("")
	res := m.cls.Classify(merged)

	if res.Specific {
		return m.proceed(ctx, res, false)
	}

	// Counter at max forces proceeding, best-effort with caveats.
	if ctx.Count >= m.maxClarifications {
		return m.proceed(ctx, res, true)
	}

	qt, ok := ctx.nextUnanswered()
	if !ok {
		// Every slot filled yet still ambiguous: proceed best-effort.
		return m.proceed(ctx, res, true)
	}

	ctx.Pending = qt
	ctx.Count++
	return Decision{
		Action:   ActionClarify,
		Question: buildQuestion(qt, known),
		Result:   res,
	}
}

// advancePlanning handles planning -> planning | executing. The next
// inbound message is treated as execution unless it repeats the planning
// intent with another under-specified ask.
func (m *Machine) advancePlanning(ctx *Context, in classifier.Input) Decision {
	res := m.cls.Classify(in)

	repeatsPlanning := !res.Specific &&
		(res.Category == classifier.CategoryAnalytical || res.Category == classifier.CategoryCreative) &&
		string(res.Category) == ctx.LastCategory

	if repeatsPlanning {
		return Decision{Action: ActionPlan, Result: res}
	}

	ctx.State = StateExecuting
	return Decision{Action: ActionExecute, Result: res}
}

// advanceCompleted handles completed -> initial. A new question that is
// specific enough on its own, without any collected clarification field,
// is judged unrelated and resets the context. This heuristic is known to
// reset on some legitimate follow-ups.
func (m *Machine) advanceCompleted(ctx *Context, in classifier.Input, known *KnownFile) Decision {
	standalone := m.cls.Classify(in)
	if standalone.Specific {
		ctx.Reset()
		d := m.advanceInitial(ctx, in, known)
		d.TopicReset = true
		return d
	}

	// Not judged unrelated: continue the finished thread in one turn.
	res := standalone
	ctx.State = StateExecuting
	ctx.LastCategory = string(res.Category)
	return Decision{Action: ActionExecute, Result: res}
}

// proceed leaves clarifying (or initial) for planning or executing.
// Planning is chosen for analytical/creative intents; simple, complex and
// debugging resolve in a single turn.
func (m *Machine) proceed(ctx *Context, res classifier.Result, forced bool) Decision {
	ctx.Count = 0
	ctx.Pending = ""
	ctx.LastCategory = string(res.Category)

	switch res.Category {
	case classifier.CategoryAnalytical, classifier.CategoryCreative:
		ctx.State = StatePlanning
		return Decision{Action: ActionPlan, Result: res, Forced: forced}
	default:
		ctx.State = StateExecuting
		return Decision{Action: ActionExecute, Result: res, Forced: forced}
	}
}

// askFirst starts a clarifying run. Without an uploaded file there is no
// structure to ask about, so the dialogue opens with the goal slot;
// otherwise it opens with file structure per the fixed priority order.
func (m *Machine) askFirst(ctx *Context, in classifier.Input, known *KnownFile) *ClarifyingQuestion {
	qt := QuestionGoal
	if in.HasFile {
		qt = QuestionFileStructure
	}
	ctx.State = StateClarifying
	ctx.Pending = qt
	ctx.Count++
	return buildQuestion(qt, known)
}

// Complete marks the current thread answered: executing -> completed.
// Planning stays put so the next inbound message can move to execution.
func (m *Machine) Complete(ctx *Context) {
	if ctx.State == StateExecuting {
		ctx.State = StateCompleted
	}
}
