// Package prompt assembles provider prompt payloads.
//
// The assembler merges session history, collected clarification answers,
// the uploaded-file summary and the current question into one payload,
// with a persona selected by the conversation state.
package prompt

import (
	"fmt"
	"strings"

	"github.com/CHULJU-KIM/Excelly/internal/classifier"
	"github.com/CHULJU-KIM/Excelly/internal/conversation"
)

// Turn is one prior message in the session, oldest first.
type Turn struct {
	Role    string
	Content string
}

// Input is everything the assembler merges into one payload.
type Input struct {
	State    conversation.State
	Category classifier.Category
	Question string

	History []Turn
	Answers map[conversation.QuestionType]string

	FileSummary   string
	ImageAnalysis string

	// Forced marks a best-effort answer after the clarification limit.
	Forced bool
}

// Payload is the assembled prompt handed to the router.
type Payload struct {
	System   string
	Prompt   string
	Template Template
}

// Assembler builds prompt payloads within a history budget.
type Assembler struct {
	// HistoryBudget is the maximum number of turns kept: the first turn
	// of the session plus the most recent budget-1 turns.
	HistoryBudget int
}

// NewAssembler creates an assembler with the given history budget.
func NewAssembler(historyBudget int) *Assembler {
	if historyBudget < 2 {
		historyBudget = 8
	}
	return &Assembler{HistoryBudget: historyBudget}
}

// Build assembles the payload for one turn.
func (a *Assembler) Build(in Input) *Payload {
	persona, tmpl := personaFor(in.State, in.Category)

	var sb strings.Builder

	if history := a.renderHistory(in.History); history != "" {
		sb.WriteString("--- 이전 대화 ---\n")
		sb.WriteString(history)
		sb.WriteString("\n\n")
	}

	if len(in.Answers) > 0 {
		sb.WriteString("--- 확인된 정보 ---\n")
		for _, qt := range []conversation.QuestionType{
			conversation.QuestionFileStructure,
			conversation.QuestionDataFormat,
			conversation.QuestionGoal,
			conversation.QuestionConstraints,
		} {
			if v, ok := in.Answers[qt]; ok {
				sb.WriteString(fmt.Sprintf("%s: %s\n", string(qt), v))
			}
		}
		sb.WriteString("\n")
	}

	if in.FileSummary != "" {
		sb.WriteString("--- 파일 정보 ---\n")
		sb.WriteString(in.FileSummary)
		sb.WriteString("\n\n")
	}

	if in.ImageAnalysis != "" {
		sb.WriteString("--- 첨부 이미지 분석 ---\n")
		sb.WriteString(in.ImageAnalysis)
		sb.WriteString("\n\n")
	}

	sb.WriteString("--- 질문 ---\n")
	sb.WriteString(in.Question)

	if in.Forced {
		sb.WriteString("\n\n(일부 정보가 확인되지 않았습니다. 합리적인 가정을 명시하고 최선의 답변을 제시하세요.)")
	}

	return &Payload{
		System:   persona,
		Prompt:   sb.String(),
		Template: tmpl,
	}
}

// SummarizePayload builds the first-stage prompt of hybrid mode: a
// context-summarization request over the file summary and question.
func (a *Assembler) SummarizePayload(question, fileSummary string) *Payload {
	var sb strings.Builder
	if fileSummary != "" {
		sb.WriteString("--- 파일 정보 ---\n")
		sb.WriteString(fileSummary)
		sb.WriteString("\n\n")
	}
	sb.WriteString("--- 질문 ---\n")
	sb.WriteString(question)

	return &Payload{
		System:   personaSummarize,
		Prompt:   sb.String(),
		Template: TemplateSummarize,
	}
}

// ImagePayload builds the image-description request sent to the
// image-capable fast-tier provider.
func (a *Assembler) ImagePayload() *Payload {
	return &Payload{
		Prompt: "이 이미지를 Excel 관점에서 분석하세요. 화면 구성, 데이터 구조, " +
			"오류 메시지나 잘못된 수식 같은 문제점을 설명해주세요.",
		Template: TemplateImage,
	}
}

// renderHistory truncates history to the budget: the session's first turn
// keeps the original problem statement, the most recent budget-1 turns
// keep the active thread.
func (a *Assembler) renderHistory(history []Turn) string {
	kept := history
	if len(history) > a.HistoryBudget {
		kept = make([]Turn, 0, a.HistoryBudget)
		kept = append(kept, history[0])
		kept = append(kept, history[len(history)-(a.HistoryBudget-1):]...)
	}

	var sb strings.Builder
	for i, t := range kept {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(t.Role)
		sb.WriteString(": ")
		sb.WriteString(t.Content)
	}
	return sb.String()
}
