package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lawrag/internal/domain"
)

func writeCorpus(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chlaw.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const sampleCorpus = `{
  "Laws": [
    {
      "LawName": "中華民國刑法",
      "LawLevel": "法律",
      "LawCategory": "刑事",
      "LawURL": "https://law.moj.gov.tw/LawClass/LawAll.aspx?pcode=C0000001",
      "LawModifiedDate": "20230201",
      "LawArticles": [
        {"ArticleType": "C", "ArticleNo": "", "ArticleContent": "第 三十二 章 詐欺背信及重利罪"},
        {"ArticleType": "A", "ArticleNo": "第 339 條", "ArticleContent": "意圖為自己或第三人不法之所有，以詐術使人將本人或第三人之物交付者，處五年以下有期徒刑。"},
        {"ArticleType": "A", "ArticleNo": "第 339-1 條", "ArticleContent": "意圖為自己或第三人不法之所有，以不正方法由收費設備取得他人之物者，處一年以下有期徒刑。"}
      ]
    }
  ]
}`

func TestLoadParsesArticles(t *testing.T) {
	records, err := Load(writeCorpus(t, sampleCorpus))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "中華民國刑法", records[0].LawName)
	assert.Equal(t, "339", records[0].ArticleNo)
	assert.Contains(t, records[0].Text, "詐術")
	assert.Equal(t, "第 三十二 章 詐欺背信及重利罪", records[0].Chapter)
	assert.Equal(t, "刑事", records[0].Category)
	assert.Equal(t, "339-1", records[1].ArticleNo)
}

func TestLoadToleratesBOM(t *testing.T) {
	records, err := Load(writeCorpus(t, "\xef\xbb\xbf"+sampleCorpus))
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestLoadKeepsLastDuplicate(t *testing.T) {
	body := `{"Laws": [{"LawName": "測試法", "LawArticles": [
	  {"ArticleType": "A", "ArticleNo": "1", "ArticleContent": "舊版條文"},
	  {"ArticleType": "A", "ArticleNo": "1", "ArticleContent": "新版條文"}
	]}]}`
	records, err := Load(writeCorpus(t, body))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "新版條文", records[0].Text)
}

func TestLoadRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"invalid json":   `{"Laws": [`,
		"no laws":        `{"Laws": []}`,
		"empty law name": `{"Laws": [{"LawName": " ", "LawArticles": []}]}`,
		"empty article":  `{"Laws": [{"LawName": "測試法", "LawArticles": [{"ArticleType": "A", "ArticleNo": "1", "ArticleContent": ""}]}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeCorpus(t, body))
			var cfe *domain.CorpusFormatError
			require.ErrorAs(t, err, &cfe)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	var cfe *domain.CorpusFormatError
	require.ErrorAs(t, err, &cfe)
}

func TestNormalizeArticleNo(t *testing.T) {
	assert.Equal(t, "339", NormalizeArticleNo("第 339 條"))
	assert.Equal(t, "339-1", NormalizeArticleNo("第 339-1 條"))
	assert.Equal(t, "339-1", NormalizeArticleNo("第339之1條"))
	assert.Equal(t, "10", NormalizeArticleNo("10"))
}

func TestLawCount(t *testing.T) {
	records := []domain.StatuteRecord{
		{LawName: "中華民國刑法", ArticleNo: "339"},
		{LawName: "中華民國刑法", ArticleNo: "340"},
		{LawName: "民法", ArticleNo: "184"},
	}
	assert.Equal(t, 2, LawCount(records))
}
