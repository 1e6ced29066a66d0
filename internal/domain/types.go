package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// StatuteRecord is a single statute article as loaded from the corpus.
// Records are immutable once loaded; a re-ingestion supersedes them wholesale.
type StatuteRecord struct {
	LawName      string
	ArticleNo    string
	Text         string
	Chapter      string
	Category     string
	URL          string
	ModifiedDate string
}

// Chunk is an indexable unit of text derived from exactly one statute article.
// Index is the sub-chunk position when a long article is split.
type Chunk struct {
	ID        string
	LawName   string
	ArticleNo string
	Index     int
	Text      string
}

// ChunkID derives a stable point identifier from the chunk's statute identity.
// The same (law, article, index) always yields the same UUID, which makes
// index upserts idempotent across re-ingestion runs.
func ChunkID(lawName, articleNo string, index int) string {
	name := lawName + "#" + articleNo + "#" + strconv.Itoa(index)
	return uuid.NewMD5(uuid.NameSpaceOID, []byte(name)).String()
}

// ScoredChunk is an index entry matched to a query vector.
type ScoredChunk struct {
	Chunk Chunk
	Score float32
}

// RetrievedPassage is a statute passage returned by the retriever,
// carrying its similarity score at match time.
type RetrievedPassage struct {
	LawName   string
	ArticleNo string
	Text      string
	Score     float32
}

// Source identifies a cited statute article.
type Source struct {
	LawName   string `json:"law_name"`
	ArticleNo string `json:"article_no"`
}

// StructuredAnswer is the mandatory three-part answer shape: a summary,
// the applicable legal rule, and a plain-language explanation with example.
type StructuredAnswer struct {
	Summary            string `json:"summary"`
	RuleStatement      string `json:"rule_statement"`
	ExplanationExample string `json:"explanation_example"`
}

// QueryResult is the per-query output. Found is false when no passage
// cleared the score threshold; Degraded is true when generation repeatedly
// produced malformed output and only raw sources are returned.
type QueryResult struct {
	Answer        *StructuredAnswer `json:"answer,omitempty"`
	Sources       []Source          `json:"sources"`
	Found         bool              `json:"found"`
	Degraded      bool              `json:"degraded,omitempty"`
	Message       string            `json:"message,omitempty"`
	RawCompletion string            `json:"raw_completion,omitempty"`
}

// IngestionReport summarizes one ingestion run.
type IngestionReport struct {
	Laws          int
	Records       int
	ChunksWritten int
	ChunksFailed  int
	Duration      time.Duration
}
