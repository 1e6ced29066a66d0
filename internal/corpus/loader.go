package corpus

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"

	"lawrag/internal/domain"
)

// Article types in the ChLaw corpus format: "A" is statute text, "C" is a
// chapter or section heading.
const (
	articleTypeArticle = "A"
	articleTypeChapter = "C"
)

type rawArticle struct {
	ArticleType    string `json:"ArticleType"`
	ArticleNo      string `json:"ArticleNo"`
	ArticleContent string `json:"ArticleContent"`
}

type rawLaw struct {
	LawName         string       `json:"LawName"`
	LawLevel        string       `json:"LawLevel"`
	LawCategory     string       `json:"LawCategory"`
	LawURL          string       `json:"LawURL"`
	LawModifiedDate string       `json:"LawModifiedDate"`
	LawArticles     []rawArticle `json:"LawArticles"`
}

type rawCorpus struct {
	Laws []rawLaw `json:"Laws"`
}

// Load parses a ChLaw-format corpus document into statute records, one per
// article. Chapter headings are not records themselves; the most recent
// heading is carried as chapter context on the articles that follow it.
// Duplicate (law, article) pairs keep the last occurrence, so corpus updates
// appended to the document supersede earlier entries.
func Load(path string) ([]domain.StatuteRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.CorpusFormatError{Path: path, Reason: err.Error()}
	}
	// The upstream corpus ships with a UTF-8 BOM.
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var raw rawCorpus
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &domain.CorpusFormatError{Path: path, Reason: "invalid JSON: " + err.Error()}
	}
	if len(raw.Laws) == 0 {
		return nil, &domain.CorpusFormatError{Path: path, Reason: "no laws in document"}
	}

	var records []domain.StatuteRecord
	seen := make(map[string]int)
	for _, law := range raw.Laws {
		name := strings.TrimSpace(law.LawName)
		if name == "" {
			return nil, &domain.CorpusFormatError{Path: path, Reason: "law with empty LawName"}
		}
		chapter := ""
		for _, art := range law.LawArticles {
			content := strings.TrimSpace(art.ArticleContent)
			switch art.ArticleType {
			case articleTypeChapter:
				chapter = content
			case articleTypeArticle:
				if content == "" {
					return nil, &domain.CorpusFormatError{
						Path:      path,
						LawName:   name,
						ArticleNo: strings.TrimSpace(art.ArticleNo),
						Reason:    "article with empty content",
					}
				}
				rec := domain.StatuteRecord{
					LawName:      name,
					ArticleNo:    NormalizeArticleNo(art.ArticleNo),
					Text:         content,
					Chapter:      chapter,
					Category:     law.LawCategory,
					URL:          law.LawURL,
					ModifiedDate: law.LawModifiedDate,
				}
				key := rec.LawName + "#" + rec.ArticleNo
				if i, ok := seen[key]; ok {
					records[i] = rec
				} else {
					seen[key] = len(records)
					records = append(records, rec)
				}
			}
		}
	}
	return records, nil
}

// NormalizeArticleNo strips the 第…條 wrapper so "第 339 條" and "339" refer
// to the same article. Sub-numbered articles like 第339-1條 keep the dash.
func NormalizeArticleNo(no string) string {
	no = strings.TrimSpace(no)
	no = strings.TrimPrefix(no, "第")
	no = strings.TrimSuffix(no, "條")
	no = strings.ReplaceAll(no, " ", "")
	return strings.ReplaceAll(no, "之", "-")
}

// LawCount returns the number of distinct laws among the records.
func LawCount(records []domain.StatuteRecord) int {
	laws := make(map[string]struct{})
	for _, r := range records {
		laws[r.LawName] = struct{}{}
	}
	return len(laws)
}
