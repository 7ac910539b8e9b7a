// Package casegen asks an LLM to invent an unfavorable rewording of a
// reference clause together with its fair correction. The pair is stored
// next to the clause so reviews have concrete examples to compare against.
package casegen

import (
	"github.com/jackzampolin/lexreview/internal/prompts"
)

// PromptKey identifies the generation prompt.
const PromptKey = "standards.casegen.user"

// UserPromptTmpl is the single user message sent per clause.
const UserPromptTmpl = `입력 문장을 검토하여 '계약 체결자에게 불리하게 작용할 수 있는 위배 문장'을 생성하고, 이를 공정하게 수정한 교정 문장을 제시하는 전문가야.
- 생성된 불공정 문장은 원문 복사나 요약이 아니라, 원문을 읽는 사람이 특정 방식으로 오해하거나 불리하게 해석할 가능성이 있는 문장으로 추정하여 구성할 것
- 실제로 문서에 존재하지 않더라도, 문맥을 곡해하거나 핵심 조건을 생략함으로써 발생할 수 있는 해석상의 불리함을 반영할 것

다음 조건을 반드시 지켜:
- 원문에 명확한 위배 문장이 없어 보여도, 해석 가능성이나 맥락에 근거해 위배 소지가 있는 문장을 추정해서 생성할 것
- 절대 원문 그대로 반환하지 말 것
- 맞춤법, 어휘 표현 개선은 하지 말고, 오직 불공정성/위배 가능성에만 초점 둘 것

예시 출력 형식:
{
  "incorrect_text": "업무를 인계받지 못한 공무원은 아무런 책임이 없다.",
  "corrected_text": "업무를 인계받지 못한 공무원도, 특별한 사유에 해당하지 않는 경우에는 인계 지연에 따른 책임을 부담할 수 있다."
}

원문:
"""{{.Clause}}"""

불공정 판단 기준:
- 특정 당사자의 권리를 과도하게 제한하거나
- 의무를 일방에게만 지우거나
- 해석 여지로 인해 불리하게 적용될 가능성이 있으며
- 효력 발생 조건이 불명확하거나 불공정한 경우

지금 문장을 분석해 위 기준에 따라 불리할 수 있는 위배 문장을 생성하고, 공정하게 수정해서 JSON으로 반환해.`

// RegisterPrompts registers the generation prompt with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         PromptKey,
		Text:        UserPromptTmpl,
		Description: "Generates an unfavorable/corrected example pair for a reference clause",
	})
}

// UserPrompt renders tmpl (or the default when empty) for clause.
func UserPrompt(clause, tmpl string) (string, error) {
	if tmpl == "" {
		tmpl = UserPromptTmpl
	}
	return prompts.Render(PromptKey, tmpl, struct{ Clause string }{Clause: clause})
}
