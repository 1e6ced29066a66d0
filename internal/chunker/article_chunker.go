package chunker

import (
	"strings"

	"lawrag/internal/domain"
)

// ArticleChunker maps a statute record to indexable chunks. An article whose
// text fits within maxChars becomes a single chunk; longer articles are split
// on sentence boundaries into windows with trailing overlap so that no legal
// clause is truncated mid-sentence.
type ArticleChunker struct {
	maxChars     int
	overlapChars int
}

func New(maxChars, overlapChars int) *ArticleChunker {
	if maxChars <= 0 {
		maxChars = 1000
	}
	if overlapChars < 0 || overlapChars >= maxChars {
		overlapChars = 0
	}
	return &ArticleChunker{maxChars: maxChars, overlapChars: overlapChars}
}

// Chunk implements domain.Chunker. Chunk IDs are derived from the statute
// identity and sub-index, so re-chunking unchanged input yields identical IDs.
func (c *ArticleChunker) Chunk(record domain.StatuteRecord) []domain.Chunk {
	text := articleText(record)
	if len([]rune(text)) <= c.maxChars {
		return []domain.Chunk{c.newChunk(record, 0, text)}
	}

	var chunks []domain.Chunk
	var window []string
	windowLen := 0
	idx := 0
	for _, sent := range splitSentences(text) {
		sentLen := len([]rune(sent))
		if windowLen > 0 && windowLen+sentLen > c.maxChars {
			chunks = append(chunks, c.newChunk(record, idx, strings.Join(window, "")))
			idx++
			window, windowLen = c.carryOverlap(window)
		}
		window = append(window, sent)
		windowLen += sentLen
	}
	if windowLen > 0 {
		chunks = append(chunks, c.newChunk(record, idx, strings.Join(window, "")))
	}
	return chunks
}

func (c *ArticleChunker) newChunk(record domain.StatuteRecord, index int, text string) domain.Chunk {
	return domain.Chunk{
		ID:        domain.ChunkID(record.LawName, record.ArticleNo, index),
		LawName:   record.LawName,
		ArticleNo: record.ArticleNo,
		Index:     index,
		Text:      text,
	}
}

// carryOverlap keeps the trailing sentences of the previous window, up to the
// configured overlap budget, as the start of the next window.
func (c *ArticleChunker) carryOverlap(window []string) ([]string, int) {
	if c.overlapChars == 0 {
		return nil, 0
	}
	kept := 0
	i := len(window)
	for i > 0 {
		sentLen := len([]rune(window[i-1]))
		if kept+sentLen > c.overlapChars {
			break
		}
		kept += sentLen
		i--
	}
	next := append([]string(nil), window[i:]...)
	return next, kept
}

// articleText renders the chunk body the way the corpus presents articles:
// the article number heading followed by the statute text.
func articleText(record domain.StatuteRecord) string {
	if record.ArticleNo == "" {
		return record.Text
	}
	return "第" + record.ArticleNo + "條\n" + record.Text
}

var sentenceEnders = map[rune]struct{}{
	'。': {}, '；': {}, '！': {}, '？': {}, '\n': {},
}

// splitSentences cuts text after each sentence terminator, keeping the
// terminator with its sentence. A sentence longer than any window still comes
// back as one piece; the caller's window logic emits it alone.
func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder
	for _, r := range text {
		b.WriteRune(r)
		if _, ok := sentenceEnders[r]; ok {
			sentences = append(sentences, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		sentences = append(sentences, b.String())
	}
	return sentences
}
