package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"lawrag/internal/domain"
)

var passages = []domain.RetrievedPassage{
	{LawName: "中華民國刑法", ArticleNo: "339", Text: "以詐術使人交付財物……", Score: 0.83},
	{LawName: "中華民國刑法", ArticleNo: "339-4", Text: "犯詐欺罪而有下列情形……", Score: 0.71},
}

func TestAssembleIsPure(t *testing.T) {
	a := Assemble("什麼是詐欺罪？", passages)
	b := Assemble("什麼是詐欺罪？", passages)
	assert.Equal(t, a, b)
}

func TestAssembleContainsTaggedPassagesAndQuestion(t *testing.T) {
	p := Assemble("什麼是詐欺罪？", passages)
	assert.Contains(t, p, "【中華民國刑法 第339條】")
	assert.Contains(t, p, "【中華民國刑法 第339-4條】")
	assert.Contains(t, p, "以詐術使人交付財物")
	assert.Contains(t, p, "什麼是詐欺罪？")
	for _, label := range []string{LabelSummary, LabelRule, LabelExplanation, LabelSources} {
		assert.Contains(t, p, "【"+label+"】")
	}
	// passage order preserved
	assert.Less(t, strings.Index(p, "第339條"), strings.Index(p, "第339-4條"))
}

func TestAssembleStrictAppendsReminder(t *testing.T) {
	base := Assemble("問題", passages)
	strict := AssembleStrict("問題", passages)
	assert.True(t, strings.HasPrefix(strict, base))
	assert.Contains(t, strict, "格式警告")
	assert.Greater(t, len(strict), len(base))
}
