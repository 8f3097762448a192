// Package classifier provides intent classification for spreadsheet questions.
//
// Classification is purely rule-based: keyword-set membership tests against
// the normalized question text, fed by an injected Ruleset. No provider
// calls are made here.
package classifier

import (
	"strings"
	"unicode/utf8"
)

// Category represents a classified question intent.
type Category string

const (
	CategorySimple     Category = "simple"     // direct function/formula ask
	CategoryComplex    Category = "complex"    // multi-step / VBA automation
	CategoryCreative   Category = "creative"   // open-ended "best way" questions
	CategoryAnalytical Category = "analytical" // statistics, summaries, charts
	CategoryDebugging  Category = "debugging"  // error reports and feedback turns
)

// SkillLevel is a coarse signal of the user's spreadsheet proficiency,
// derived from beginner/advanced keyword tables.
type SkillLevel string

const (
	SkillBeginner SkillLevel = "beginner"
	SkillStandard SkillLevel = "standard"
	SkillAdvanced SkillLevel = "advanced"
)

// Input is everything the classifier may look at for one turn.
// For merged-context re-checks the caller concatenates collected
// clarification answers into Question; the classifier itself stays pure.
type Input struct {
	Question   string
	HasFile    bool
	HasImage   bool
	IsFeedback bool
}

// Result is the classifier's judgment of one question.
type Result struct {
	Category Category
	Specific bool
	Skill    SkillLevel
}

// Classifier classifies spreadsheet questions against an immutable ruleset.
type Classifier struct {
	rules *Ruleset
}

// New creates a classifier with the given ruleset.
// A nil ruleset falls back to the default vocabulary.
func New(rules *Ruleset) *Classifier {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Classifier{rules: rules}
}

// Classify determines the intent category and specificity of a question.
// Oversized or empty input is recovered locally: it classifies as simple
// and not specific enough, which sends the dialogue into clarification.
func (c *Classifier) Classify(in Input) Result {
	q := strings.ToLower(strings.TrimSpace(in.Question))

	return Result{
		Category: c.categorize(q, in),
		Specific: c.isSpecific(q),
		Skill:    c.skillLevel(q),
	}
}

// categorize picks the intent category. First matching category wins,
// tie-break priority: debugging > complex > analytical > creative > simple.
func (c *Classifier) categorize(q string, in Input) Category {
	if in.IsFeedback || containsAny(q, c.rules.ErrorWords) {
		return CategoryDebugging
	}
	if containsAny(q, c.rules.AutomationWords) && containsAny(q, c.rules.MergeWords) {
		return CategoryComplex
	}
	if containsAny(q, c.rules.AnalyticalWords) {
		return CategoryAnalytical
	}
	if containsAny(q, c.rules.CreativeWords) {
		return CategoryCreative
	}
	return CategorySimple
}

// isSpecific judges whether the question names enough concrete targets
// (functions, columns, automation verbs) to act on without follow-ups.
func (c *Classifier) isSpecific(q string) bool {
	n := utf8.RuneCountInString(q)
	if n == 0 || n < c.rules.MinQuestionRunes || n > c.rules.MaxQuestionRunes {
		return false
	}

	hasConcrete := c.hasFunctionToken(q) ||
		c.rules.ColumnRefPattern.MatchString(q) ||
		containsAny(q, c.rules.AutomationWords)

	if !hasConcrete {
		return false
	}

	// Vague self-description without any concrete object still fails.
	if containsAny(q, c.rules.VagueWords) && !c.hasFunctionToken(q) &&
		!c.rules.ColumnRefPattern.MatchString(q) {
		return false
	}

	return true
}

// hasFunctionToken reports whether the question names a spreadsheet function.
func (c *Classifier) hasFunctionToken(q string) bool {
	for _, fn := range c.rules.FunctionNames {
		if containsToken(q, strings.ToLower(fn)) {
			return true
		}
	}
	return false
}

// skillLevel derives the user-skill signal from the keyword tables.
// Advanced vocabulary wins over beginner vocabulary.
func (c *Classifier) skillLevel(q string) SkillLevel {
	if containsAny(q, c.rules.AdvancedWords) {
		return SkillAdvanced
	}
	if containsAny(q, c.rules.BeginnerWords) {
		return SkillBeginner
	}
	return SkillStandard
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

// containsToken matches word-ish tokens so that "IF" does not fire inside
// unrelated words like "shift". Korean text has no word boundaries, so
// short ASCII tokens get boundary checks and everything else is substring.
func containsToken(s, token string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], token)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(token)
		if !isASCIIWord(token) {
			return true
		}
		beforeOK := start == 0 || !isWordByte(s[start-1])
		afterOK := end >= len(s) || !isWordByte(s[end])
		if beforeOK && afterOK {
			return true
		}
		idx = end
	}
}

func isASCIIWord(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}
