package classifier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyCategories(t *testing.T) {
	c := New(nil)

	tests := []struct {
		name     string
		in       Input
		category Category
	}{
		{
			name:     "named function is simple",
			in:       Input{Question: "VLOOKUP으로 A열에서 값을 찾고 싶어요"},
			category: CategorySimple,
		},
		{
			name:     "automation plus merge is complex",
			in:       Input{Question: "모든 시트를 하나로 합치는 매크로 만들어줘"},
			category: CategoryComplex,
		},
		{
			name:     "automation alone is not complex",
			in:       Input{Question: "이 작업을 매크로로 자동화하고 싶어요"},
			category: CategorySimple,
		},
		{
			name:     "analysis vocabulary is analytical",
			in:       Input{Question: "B열에서 중복 데이터를 분석해줘"},
			category: CategoryAnalytical,
		},
		{
			name:     "open-ended ask is creative",
			in:       Input{Question: "더 나은 방법을 추천해줘"},
			category: CategoryCreative,
		},
		{
			name:     "error vocabulary is debugging",
			in:       Input{Question: "VLOOKUP 수식이 오류가 나요"},
			category: CategoryDebugging,
		},
		{
			name:     "english error vocabulary is debugging",
			in:       Input{Question: "my SUMIF formula is not working"},
			category: CategoryDebugging,
		},
		{
			name:     "feedback flag forces debugging",
			in:       Input{Question: "결과가 달라요", IsFeedback: true},
			category: CategoryDebugging,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := c.Classify(tt.in)
			assert.Equal(t, tt.category, res.Category)
		})
	}
}

func TestCategoryPriority(t *testing.T) {
	c := New(nil)

	// Error words outrank analytical vocabulary.
	res := c.Classify(Input{Question: "평균 수식에서 오류가 발생해요"})
	assert.Equal(t, CategoryDebugging, res.Category)

	// Complex outranks analytical when both match.
	res = c.Classify(Input{Question: "모든 시트를 합쳐서 통계를 내는 매크로"})
	assert.Equal(t, CategoryComplex, res.Category)
}

func TestSpecificity(t *testing.T) {
	c := New(nil)

	tests := []struct {
		name     string
		question string
		specific bool
	}{
		{"function token", "VLOOKUP으로 A열에서 값을 찾고 싶어요", true},
		{"column reference", "B2:D10 범위의 합계를 구하고 싶어요", true},
		{"automation verb", "시트 정리를 매크로로 자동화해줘", true},
		{"no concrete object", "엑셀 작업을 도와주세요", false},
		{"vague self-description", "어떻게 해야 할지 모르겠어요 자동화하고 싶은데", false},
		{"below minimum length", "합계", false},
		{"empty", "", false},
		{"oversized", strings.Repeat("가", 5000), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := c.Classify(Input{Question: tt.question})
			assert.Equal(t, tt.specific, res.Specific)
		})
	}
}

func TestSkillLevel(t *testing.T) {
	c := New(nil)

	assert.Equal(t, SkillBeginner, c.Classify(Input{Question: "엑셀이 처음이라 쉽게 알려주세요"}).Skill)
	assert.Equal(t, SkillAdvanced, c.Classify(Input{Question: "배열 수식으로 처리하는 방법"}).Skill)
	assert.Equal(t, SkillStandard, c.Classify(Input{Question: "A열 합계를 구해주세요"}).Skill)

	// Advanced vocabulary wins when both signals appear.
	assert.Equal(t, SkillAdvanced, c.Classify(Input{Question: "처음 써보는데 파워 쿼리로 하고 싶어요"}).Skill)
}

func TestFunctionTokenBoundaries(t *testing.T) {
	// "IF" must not fire inside unrelated ASCII words.
	assert.False(t, containsToken("please shift the data down", "if"))
	assert.True(t, containsToken("use an if formula here", "if"))
	assert.True(t, containsToken("sumif 함수를 쓰세요", "sumif"))
	// Korean suffixes are not word bytes, so tokens match before them.
	assert.True(t, containsToken("vlookup으로 찾기", "vlookup"))
}

func TestClassifyIsPure(t *testing.T) {
	c := New(nil)
	in := Input{Question: "모든 시트를 합치는 매크로 만들어줘", HasFile: true}

	first := c.Classify(in)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, c.Classify(in))
	}
}
