package prompt

import (
	"strings"

	"lawrag/internal/domain"
)

// Section labels the answer parser looks for. The assembler and parser agree
// on these; change them in lockstep.
const (
	LabelSummary     = "重點摘要"
	LabelRule        = "法律規範"
	LabelExplanation = "白話解釋與舉例"
	LabelSources     = "引用來源"
)

const header = `你是一位精通中華民國台灣法律的法律顧問，用簡潔專業的方式為不懂法律的人解釋法律。
請僅根據下列法律條文回答，不要引用未列出的條文。

【相關法律條文】
`

const instructions = `
【回答格式】請務必依序輸出以下四個段落，每段以標籤起始：

【` + LabelSummary + `】
- 依據：[法律名稱第X條]，罪名/法律效果：[具體罪名或法律後果]
- 簡述：[一句話說明]

【` + LabelRule + `】
- 引用相關法律名稱及條文編號，簡述法條內容與主要構成要件

【` + LabelExplanation + `】
- 用白話文解釋法條意思，並根據使用者問題舉一個具體例子，說明法律後果

【` + LabelSources + `】
- 每行一個引用，格式「法律名稱|條號」，僅列出上方提供的條文

【重點提醒】
- 回答要簡潔，使用繁體中文及中華民國法律用語
- 本回答僅供初步了解，實際個案請諮詢執業律師

請開始回答：`

const strictReminder = `

【格式警告】上一次回答未符合格式。請嚴格依照規定輸出四個段落，缺一不可，
每段必須以【` + LabelSummary + `】、【` + LabelRule + `】、【` + LabelExplanation + `】、【` + LabelSources + `】標籤起始，且內容不得為空。`

// Assemble renders the instruction prompt for a question and its retrieved
// passages. It is a pure function: identical inputs yield a byte-identical
// prompt.
func Assemble(question string, passages []domain.RetrievedPassage) string {
	var b strings.Builder
	b.WriteString(header)
	for _, p := range passages {
		b.WriteString("【" + p.LawName + " 第" + p.ArticleNo + "條】\n")
		b.WriteString(p.Text)
		b.WriteString("\n\n")
	}
	b.WriteString("【使用者問題】\n")
	b.WriteString(question)
	b.WriteString("\n")
	b.WriteString(instructions)
	return b.String()
}

// AssembleStrict is Assemble with a stricter formatting reminder appended.
// Used for the one regeneration attempt after a malformed completion.
func AssembleStrict(question string, passages []domain.RetrievedPassage) string {
	return Assemble(question, passages) + strictReminder
}
