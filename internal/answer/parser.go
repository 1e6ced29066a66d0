package answer

import (
	"strings"

	"lawrag/internal/corpus"
	"lawrag/internal/domain"
	"lawrag/internal/prompt"
)

// Result is a validated completion: the three mandatory sections plus the
// reconciled citation list. Dropped holds citations the model invented, i.e.
// statutes that were not among the retrieved passages; the caller decides how
// loudly to report them.
type Result struct {
	Answer  domain.StructuredAnswer
	Sources []domain.Source
	Dropped []domain.Source
}

// Parse locates the three mandatory sections in a raw completion and
// reconciles the cited sources against the passages that were actually in
// the prompt. A missing or empty section yields MalformedAnswerError.
//
// Citation policy: citations outside the retrieved set are dropped, not
// fatal. If the model cited nothing parseable at all, the retrieved set
// itself is returned as the source list, in retrieval order.
func Parse(raw string, retrieved []domain.Source) (*Result, error) {
	sections := splitSections(raw)

	var missing []string
	for _, label := range []string{prompt.LabelSummary, prompt.LabelRule, prompt.LabelExplanation} {
		if strings.TrimSpace(sections[label]) == "" {
			missing = append(missing, label)
		}
	}
	if len(missing) > 0 {
		return nil, &domain.MalformedAnswerError{Missing: missing}
	}

	res := &Result{
		Answer: domain.StructuredAnswer{
			Summary:            strings.TrimSpace(sections[prompt.LabelSummary]),
			RuleStatement:      strings.TrimSpace(sections[prompt.LabelRule]),
			ExplanationExample: strings.TrimSpace(sections[prompt.LabelExplanation]),
		},
	}

	cited := parseSources(sections[prompt.LabelSources])
	allowed := make(map[domain.Source]struct{}, len(retrieved))
	for _, s := range retrieved {
		allowed[s] = struct{}{}
	}
	seen := make(map[domain.Source]struct{})
	for _, s := range cited {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		if _, ok := allowed[s]; ok {
			res.Sources = append(res.Sources, s)
		} else {
			res.Dropped = append(res.Dropped, s)
		}
	}
	if len(res.Sources) == 0 {
		for _, s := range retrieved {
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			res.Sources = append(res.Sources, s)
		}
	}
	return res, nil
}

var sectionLabels = []string{
	prompt.LabelSummary,
	prompt.LabelRule,
	prompt.LabelExplanation,
	prompt.LabelSources,
}

// splitSections cuts the completion at each labeled marker. Models decorate
// labels inconsistently (markdown bold, full-width brackets, trailing
// colons), so matching keys on the bare label and trimming decoration around
// the section body keeps the parser tolerant.
func splitSections(raw string) map[string]string {
	type mark struct {
		label string
		start int // index right after the label text
		pos   int // index of the label itself
	}
	var marks []mark
	for _, label := range sectionLabels {
		if i := strings.Index(raw, label); i >= 0 {
			marks = append(marks, mark{label: label, start: i + len(label), pos: i})
		}
	}
	// order of appearance
	for i := 1; i < len(marks); i++ {
		for j := i; j > 0 && marks[j-1].pos > marks[j].pos; j-- {
			marks[j-1], marks[j] = marks[j], marks[j-1]
		}
	}

	sections := make(map[string]string, len(marks))
	for i, m := range marks {
		end := len(raw)
		if i+1 < len(marks) {
			end = nextLabelStart(raw, marks[i+1].pos)
		}
		body := raw[m.start:end]
		body = strings.TrimLeft(body, "】*： :\t\r\n")
		sections[m.label] = strings.TrimSpace(body)
	}
	return sections
}

// nextLabelStart backs up over the decoration preceding a label (opening
// bracket, bold markers) so it is not glued onto the previous section.
func nextLabelStart(raw string, pos int) int {
	for pos > 0 {
		r, size := lastRune(raw[:pos])
		if r == '【' || r == '*' || r == '#' || r == ' ' || r == '\t' {
			pos -= size
			continue
		}
		break
	}
	return pos
}

func lastRune(s string) (rune, int) {
	r := []rune(s)
	last := r[len(r)-1]
	return last, len(string(last))
}

// parseSources reads "法律名稱|條號" lines from the sources section,
// tolerating list bullets and 第…條 wrappers around the article number.
func parseSources(section string) []domain.Source {
	var sources []domain.Source
	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-•．* \t")
		if line == "" || !strings.Contains(line, "|") {
			continue
		}
		parts := strings.SplitN(line, "|", 2)
		law := strings.TrimSpace(parts[0])
		article := corpus.NormalizeArticleNo(parts[1])
		if law == "" || article == "" {
			continue
		}
		sources = append(sources, domain.Source{LawName: law, ArticleNo: article})
	}
	return sources
}
