package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lawrag/internal/domain"
)

func record(text string) domain.StatuteRecord {
	return domain.StatuteRecord{LawName: "中華民國刑法", ArticleNo: "339", Text: text}
}

func TestShortArticleSingleChunk(t *testing.T) {
	c := New(1000, 200)
	chunks := c.Chunk(record("意圖為自己或第三人不法之所有，以詐術使人將本人或第三人之物交付者，處五年以下有期徒刑。"))
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.True(t, strings.HasPrefix(chunks[0].Text, "第339條\n"))
	assert.Contains(t, chunks[0].Text, "詐術")
}

func TestLongArticleSplitsOnSentenceBoundaries(t *testing.T) {
	sentence := strings.Repeat("甲", 80) + "。"
	text := strings.Repeat(sentence, 10) // well over maxChars below
	c := New(200, 0)
	chunks := c.Chunk(record(text))
	require.Greater(t, len(chunks), 1)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
		// every split ends on a sentence terminator, never mid-clause
		assert.True(t, strings.HasSuffix(ch.Text, "。"), "chunk %d ends mid-sentence", i)
	}
}

func TestSplitChunksOverlap(t *testing.T) {
	sentence := strings.Repeat("乙", 50) + "。"
	text := strings.Repeat(sentence, 8)
	c := New(200, 60)
	chunks := c.Chunk(record(text))
	require.Greater(t, len(chunks), 1)
	// the tail of each chunk reappears at the head of the next
	for i := 1; i < len(chunks); i++ {
		assert.True(t, strings.HasSuffix(chunks[i-1].Text, sentence))
		assert.Contains(t, chunks[i].Text, sentence)
	}
}

func TestChunkIDsDeterministic(t *testing.T) {
	c := New(1000, 200)
	first := c.Chunk(record("條文內容。"))
	second := c.Chunk(record("條文內容。"))
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
	// distinct articles get distinct IDs
	other := c.Chunk(domain.StatuteRecord{LawName: "中華民國刑法", ArticleNo: "340", Text: "條文內容。"})
	assert.NotEqual(t, first[0].ID, other[0].ID)
}

func TestChunkIDIsUUID(t *testing.T) {
	id := domain.ChunkID("民法", "184", 0)
	assert.Len(t, id, 36)
	assert.Equal(t, id, domain.ChunkID("民法", "184", 0))
}
