// Package classifier keyword tables.
package classifier

import "regexp"

// Ruleset is the immutable vocabulary driving classification.
// Construct once and inject; tests substitute their own tables.
type Ruleset struct {
	// ErrorWords mark debugging turns ("this didn't work" vocabulary).
	ErrorWords []string

	// FunctionNames are spreadsheet function tokens that make a question
	// specific enough to answer directly.
	FunctionNames []string

	// AutomationWords signal macro/script requests.
	AutomationWords []string

	// MergeWords signal cross-sheet aggregation; together with
	// AutomationWords they mark a complex/VBA request.
	MergeWords []string

	// AnalyticalWords signal statistics, summaries and charts.
	AnalyticalWords []string

	// CreativeWords signal open-ended "what's the best way" questions.
	CreativeWords []string

	// VagueWords are self-descriptions that carry no concrete object.
	VagueWords []string

	// BeginnerWords and AdvancedWords feed the user-skill signal.
	BeginnerWords []string
	AdvancedWords []string

	// ColumnRefPattern matches column/row/cell references such as
	// "A열", "3행", "B2:D10" or "column A".
	ColumnRefPattern *regexp.Regexp

	// MinQuestionRunes is the threshold below which a question is never
	// specific enough; MaxQuestionRunes caps oversized input.
	MinQuestionRunes int
	MaxQuestionRunes int
}

// DefaultRules returns the default Korean/English vocabulary.
func DefaultRules() *Ruleset {
	return &Ruleset{
		ErrorWords: []string{
			"오류", "에러", "안돼", "안되", "안 되", "문제가", "실패",
			"작동하지", "동작하지", "틀렸", "이상해",
			"error", "doesn't work", "not working", "failed", "broken", "wrong result",
		},

		FunctionNames: []string{
			"VLOOKUP", "HLOOKUP", "XLOOKUP", "INDEX", "MATCH", "IF", "IFS",
			"SUM", "SUMIF", "SUMIFS", "COUNT", "COUNTIF", "COUNTIFS",
			"AVERAGE", "AVERAGEIF", "CONCATENATE", "TEXTJOIN", "LEFT", "RIGHT",
			"MID", "TRIM", "SUBSTITUTE", "PIVOT", "FILTER", "UNIQUE", "SORT",
		},

		AutomationWords: []string{
			"vba", "매크로", "스크립트", "자동화", "자동으로",
			"macro", "script", "automate", "automation",
		},

		MergeWords: []string{
			"합치", "합쳐", "병합", "취합", "모든 시트", "전체 시트", "시트마다", "하나로",
			"combine", "merge", "consolidate", "all sheets", "every sheet",
		},

		AnalyticalWords: []string{
			"분석", "통계", "평균", "합계", "차트", "그래프", "요약", "추이",
			"중복", "집계", "피벗",
			"analyze", "analysis", "statistics", "summary", "summarize",
			"chart", "graph", "trend", "duplicate", "aggregate",
		},

		CreativeWords: []string{
			"가장 좋은", "더 나은", "추천", "어떤 방법", "효율적인", "개선",
			"best way", "better way", "recommend", "suggestion", "improve", "optimize",
		},

		VagueWords: []string{
			"모르겠", "몰라", "어떻게 해야", "어떻게 하나", "어디서부터", "도와줘", "도와주세요",
			"i don't know", "how do i", "not sure", "help me", "no idea",
		},

		BeginnerWords: []string{
			"처음", "초보", "쉽게", "천천히", "기초", "몰라",
			"beginner", "new to", "simple terms", "step by step", "never used",
		},

		AdvancedWords: []string{
			"vba", "매크로", "배열 수식", "파워 쿼리", "정규식",
			"array formula", "power query", "lambda", "regex", "dynamic array",
		},

		// "A열", "A 열", "3행", "B2", "B2:D10", "column A", "row 3"
		ColumnRefPattern: regexp.MustCompile(
			`(?i)([A-Z]{1,3}\s?열|[0-9]+\s?행|\b[A-Z]{1,3}[0-9]+(:[A-Z]{1,3}[0-9]+)?\b|column\s+[A-Z]{1,3}\b|row\s+[0-9]+)`),

		MinQuestionRunes: 5,
		MaxQuestionRunes: 4000,
	}
}
