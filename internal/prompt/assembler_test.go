package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CHULJU-KIM/Excelly/internal/classifier"
	"github.com/CHULJU-KIM/Excelly/internal/conversation"
)

func TestBuildSections(t *testing.T) {
	a := NewAssembler(8)

	p := a.Build(Input{
		State:    conversation.StateExecuting,
		Category: classifier.CategorySimple,
		Question: "A열의 합계를 구해주세요",
		History: []Turn{
			{Role: "user", Content: "엑셀 파일을 올렸어요"},
			{Role: "assistant", Content: "어떤 시트에서 작업하시나요?"},
		},
		Answers: map[conversation.QuestionType]string{
			conversation.QuestionFileStructure: "Sheet1",
			conversation.QuestionGoal:          "월별 합계",
		},
		FileSummary: "파일명: sales.xlsx",
	})

	require.NotEmpty(t, p.System)
	assert.Equal(t, TemplateSimple, p.Template)

	// Every section present, question last.
	assert.Contains(t, p.Prompt, "--- 이전 대화 ---")
	assert.Contains(t, p.Prompt, "--- 확인된 정보 ---")
	assert.Contains(t, p.Prompt, "--- 파일 정보 ---")
	assert.True(t, strings.HasSuffix(p.Prompt, "A열의 합계를 구해주세요"))

	// Collected answers render in fixed slot order.
	fsIdx := strings.Index(p.Prompt, "file_structure: Sheet1")
	goalIdx := strings.Index(p.Prompt, "goal: 월별 합계")
	require.GreaterOrEqual(t, fsIdx, 0)
	require.GreaterOrEqual(t, goalIdx, 0)
	assert.Less(t, fsIdx, goalIdx)
}

func TestBuildOmitsEmptySections(t *testing.T) {
	a := NewAssembler(8)

	p := a.Build(Input{
		State:    conversation.StateExecuting,
		Category: classifier.CategorySimple,
		Question: "질문",
	})

	assert.NotContains(t, p.Prompt, "--- 이전 대화 ---")
	assert.NotContains(t, p.Prompt, "--- 확인된 정보 ---")
	assert.NotContains(t, p.Prompt, "--- 파일 정보 ---")
	assert.Contains(t, p.Prompt, "--- 질문 ---")
}

func TestBuildForcedCaveat(t *testing.T) {
	a := NewAssembler(8)

	forced := a.Build(Input{State: conversation.StateExecuting, Question: "질문", Forced: true})
	plain := a.Build(Input{State: conversation.StateExecuting, Question: "질문"})

	assert.Contains(t, forced.Prompt, "합리적인 가정")
	assert.NotContains(t, plain.Prompt, "합리적인 가정")
}

func TestHistoryBudgetKeepsFirstAndRecent(t *testing.T) {
	a := NewAssembler(4)

	var history []Turn
	for i := 0; i < 10; i++ {
		history = append(history, Turn{Role: "user", Content: fmt.Sprintf("turn-%d", i)})
	}

	p := a.Build(Input{State: conversation.StateExecuting, Question: "질문", History: history})

	// First turn survives, then the most recent three.
	assert.Contains(t, p.Prompt, "turn-0")
	assert.Contains(t, p.Prompt, "turn-7")
	assert.Contains(t, p.Prompt, "turn-8")
	assert.Contains(t, p.Prompt, "turn-9")
	assert.NotContains(t, p.Prompt, "turn-1\n")
	assert.NotContains(t, p.Prompt, "turn-6")
}

func TestPersonaSelection(t *testing.T) {
	a := NewAssembler(8)

	tests := []struct {
		state    conversation.State
		category classifier.Category
		tmpl     Template
	}{
		{conversation.StateExecuting, classifier.CategoryDebugging, TemplateDebugging},
		{conversation.StatePlanning, classifier.CategoryAnalytical, TemplatePlanning},
		{conversation.StateExecuting, classifier.CategoryComplex, TemplateCoding},
		{conversation.StateExecuting, classifier.CategoryAnalytical, TemplateAnalytic},
		{conversation.StateExecuting, classifier.CategoryCreative, TemplateCreative},
		{conversation.StateExecuting, classifier.CategorySimple, TemplateSimple},
	}

	for _, tt := range tests {
		p := a.Build(Input{State: tt.state, Category: tt.category, Question: "질문"})
		assert.Equal(t, tt.tmpl, p.Template, "state %s category %s", tt.state, tt.category)
	}
}

func TestSummarizePayload(t *testing.T) {
	a := NewAssembler(8)

	p := a.SummarizePayload("시트를 합쳐주세요", "파일명: big.xlsx")

	assert.Equal(t, TemplateSummarize, p.Template)
	assert.Contains(t, p.Prompt, "파일명: big.xlsx")
	assert.Contains(t, p.Prompt, "시트를 합쳐주세요")
	assert.NotEmpty(t, p.System)
}
