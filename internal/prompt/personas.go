package prompt

import (
	"github.com/CHULJU-KIM/Excelly/internal/classifier"
	"github.com/CHULJU-KIM/Excelly/internal/conversation"
)

// Template identifies which prompt template produced a payload, recorded
// in message metadata for observability.
type Template string

const (
	TemplateClarify   Template = "clarify"
	TemplatePlanning  Template = "planning"
	TemplateCoding    Template = "coding"
	TemplateSimple    Template = "simple"
	TemplateAnalytic  Template = "analytical"
	TemplateCreative  Template = "creative"
	TemplateDebugging Template = "debugging"
	TemplateSummarize Template = "summarize"
	TemplateImage     Template = "image"
)

const personaClarifying = `당신은 Excelly, 친절한 스프레드시트 도우미입니다.
사용자의 질문을 정확히 이해하기 위해 꼭 필요한 정보 하나만 확인하세요.
중복 질문은 금지이며, 질문은 한 번에 하나만 합니다.`

const personaPlanning = `당신은 Excelly, 체계적인 스프레드시트 컨설턴트입니다.
사용자의 요청을 단계별 작업 계획으로 정리하세요.
각 단계에 사용할 함수나 기능을 명시하고, 주의할 점을 함께 알려주세요.`

const personaCoding = `당신은 Excelly, 정밀한 Excel 수식/VBA 전문가입니다.
요청에 맞는 수식이나 VBA 코드를 작성하고, 적용 방법을 단계별로 설명하세요.
코드에는 간단한 주석을 달고, 실행 전 주의사항을 알려주세요.`

const personaSimple = `당신은 Excelly, 명확하고 간결한 Excel 도우미입니다.
질문에 대해 1) 간단한 설명 2) 구체적인 예시 3) 추가 팁 순서로 답하세요.`

const personaAnalytical = `당신은 Excelly, 데이터 분석 전문가입니다.
데이터 패턴과 통계적 인사이트를 짚어주고, 적절한 시각화 방법을 제안하세요.`

const personaCreative = `당신은 Excelly, 창의적인 스프레드시트 컨설턴트입니다.
새로운 Excel 기능 활용, 자동화 가능성, 효율 개선 관점에서 접근하세요.`

const personaDebugging = `당신은 Excelly, 문제 해결 전문가입니다.
제가 드린 방법이 통하지 않았다는 피드백을 받았습니다.
원인을 진단하고, 수정된 해결책을 단계별로 제시하세요.
서식 불일치, 공백, 참조 범위 오류 같은 흔한 원인부터 점검하세요.`

const personaSummarize = `다음 파일 정보와 질문을 바탕으로, 코드를 작성하거나 복잡한 분석을
하기 위해 필요한 핵심 정보(시트, 컬럼, 데이터 특징)만 간결하게 요약하세요.`

// personaFor selects the persona and template for a turn.
func personaFor(state conversation.State, category classifier.Category) (string, Template) {
	if category == classifier.CategoryDebugging {
		return personaDebugging, TemplateDebugging
	}
	if state == conversation.StatePlanning {
		return personaPlanning, TemplatePlanning
	}

	switch category {
	case classifier.CategoryComplex:
		return personaCoding, TemplateCoding
	case classifier.CategoryAnalytical:
		return personaAnalytical, TemplateAnalytic
	case classifier.CategoryCreative:
		return personaCreative, TemplateCreative
	default:
		return personaSimple, TemplateSimple
	}
}
