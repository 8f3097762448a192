package conversation

import (
	"fmt"
	"strings"
)

// KnownFile carries what is already known about an uploaded file, used to
// personalize clarifying questions.
type KnownFile struct {
	Filename   string
	SheetNames []string
	Columns    []string
}

// ClarifyingQuestion is one follow-up question of a fixed type.
type ClarifyingQuestion struct {
	Type     QuestionType `json:"type"`
	Question string       `json:"question"`
	Context  string       `json:"context"`
}

// buildQuestion picks the fixed template for a question type and inserts
// any sheet names or columns already known from the file summary.
func buildQuestion(qt QuestionType, known *KnownFile) *ClarifyingQuestion {
	switch qt {
	case QuestionFileStructure:
		q := "어떤 시트에서 작업하시나요?"
		if known != nil && len(known.SheetNames) > 0 {
			q = fmt.Sprintf("업로드하신 파일에 %s 시트가 있네요. 어떤 시트에서 작업하시나요?",
				joinNames(known.SheetNames))
		}
		return &ClarifyingQuestion{
			Type:     qt,
			Question: q,
			Context:  "파일 구조를 정확히 파악하기 위해 필요합니다.",
		}

	case QuestionDataFormat:
		q := "데이터가 숫자인가요, 텍스트인가요? 특수문자나 공백이 포함되어 있나요?"
		if known != nil && len(known.Columns) > 0 {
			q = fmt.Sprintf("%s 열의 데이터가 숫자인가요, 텍스트인가요?", joinNames(known.Columns))
		}
		return &ClarifyingQuestion{
			Type:     qt,
			Question: q,
			Context:  "데이터 형식을 정확히 파악하기 위해 필요합니다.",
		}

	case QuestionConstraints:
		return &ClarifyingQuestion{
			Type:     qt,
			Question: "사용 중인 Excel 버전이 어떻게 되시나요? VBA 매크로 사용이 가능한 환경인가요?",
			Context:  "환경 제약사항을 확인하기 위해 필요합니다.",
		}

	default: // QuestionGoal
		return &ClarifyingQuestion{
			Type:     QuestionGoal,
			Question: "어떤 작업을 하고 싶으신가요? 원하는 결과를 조금 더 구체적으로 알려주세요.",
			Context:  "작업 목표를 정확히 파악하기 위해 필요합니다.",
		}
	}
}

func joinNames(names []string) string {
	const maxShown = 5
	shown := names
	if len(shown) > maxShown {
		shown = shown[:maxShown]
	}
	quoted := make([]string, len(shown))
	for i, n := range shown {
		quoted[i] = "'" + n + "'"
	}
	return strings.Join(quoted, ", ")
}
