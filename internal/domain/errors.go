package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDimensionMismatch means the embedder produced vectors of a different
	// dimension than the index was created with. Fatal configuration error.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrIndexUnavailable means the vector index could not be reached.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrGenerationUnavailable means the generative model endpoint could not
	// be reached or returned a server error.
	ErrGenerationUnavailable = errors.New("generation service unavailable")

	// ErrGenerationTimeout means the generative model did not respond within
	// the configured timeout.
	ErrGenerationTimeout = errors.New("generation timed out")
)

// CorpusFormatError reports a corpus document that cannot be parsed or a
// record with missing required fields.
type CorpusFormatError struct {
	Path      string
	LawName   string
	ArticleNo string
	Reason    string
}

func (e *CorpusFormatError) Error() string {
	var b strings.Builder
	b.WriteString("corpus format error")
	if e.Path != "" {
		b.WriteString(" in " + e.Path)
	}
	if e.LawName != "" {
		fmt.Fprintf(&b, " (law %q", e.LawName)
		if e.ArticleNo != "" {
			fmt.Fprintf(&b, " article %q", e.ArticleNo)
		}
		b.WriteString(")")
	}
	b.WriteString(": " + e.Reason)
	return b.String()
}

// MalformedAnswerError reports a completion missing one or more of the
// mandatory answer sections.
type MalformedAnswerError struct {
	Missing []string
}

func (e *MalformedAnswerError) Error() string {
	return "malformed answer: missing sections " + strings.Join(e.Missing, ", ")
}
