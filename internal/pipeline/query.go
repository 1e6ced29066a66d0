package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"lawrag/internal/answer"
	"lawrag/internal/domain"
	"lawrag/internal/prompt"
	"lawrag/internal/retriever"
)

// NoStatuteMessage is returned when no passage clears the score threshold.
const NoStatuteMessage = "找不到相關的法律條文，請換個方式描述您的問題。"

// Querier is the single-flight query pipeline: retrieve, assemble, generate,
// parse. Independent queries may run fully in parallel; the pipeline holds no
// mutable state.
type Querier struct {
	retriever *retriever.Retriever
	generator domain.Generator
	log       *log.Logger
}

func NewQuerier(r *retriever.Retriever, g domain.Generator, logger *log.Logger) *Querier {
	if logger == nil {
		logger = log.Default()
	}
	return &Querier{retriever: r, generator: g, log: logger}
}

// Query answers a legal question with a structured, citation-grounded
// answer. When retrieval finds nothing relevant, the generative model is not
// invoked at all. When the model twice fails to produce the mandatory answer
// structure, a degraded result carrying the retrieved sources is returned
// instead of an error.
func (q *Querier) Query(ctx context.Context, question string) (domain.QueryResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.QueryResult{}, errors.New("empty question")
	}

	passages, err := q.retrieve(ctx, question)
	if err != nil {
		return domain.QueryResult{}, err
	}
	if len(passages) == 0 {
		return domain.QueryResult{
			Sources: []domain.Source{},
			Found:   false,
			Message: NoStatuteMessage,
		}, nil
	}
	retrieved := sourcesOf(passages)

	completion, err := q.generate(ctx, prompt.Assemble(question, passages))
	if err != nil {
		return domain.QueryResult{}, err
	}

	res, perr := answer.Parse(completion, retrieved)
	if perr != nil {
		var malformed *domain.MalformedAnswerError
		if !errors.As(perr, &malformed) {
			return domain.QueryResult{}, perr
		}
		q.log.Warn("malformed completion, regenerating with strict prompt", "missing", malformed.Missing)
		completion, err = q.generate(ctx, prompt.AssembleStrict(question, passages))
		if err != nil {
			return domain.QueryResult{}, err
		}
		res, perr = answer.Parse(completion, retrieved)
		if perr != nil {
			q.log.Error("completion malformed twice, returning degraded result", "err", perr)
			return domain.QueryResult{
				Sources:       retrieved,
				Found:         true,
				Degraded:      true,
				Message:       perr.Error(),
				RawCompletion: completion,
			}, nil
		}
	}

	for _, dropped := range res.Dropped {
		q.log.Warn("dropped citation not among retrieved passages",
			"law", dropped.LawName, "article", dropped.ArticleNo)
	}
	return domain.QueryResult{
		Answer:  &res.Answer,
		Sources: res.Sources,
		Found:   true,
	}, nil
}

// retrieve runs the retriever, retrying once when the index is temporarily
// unreachable.
func (q *Querier) retrieve(ctx context.Context, question string) ([]domain.RetrievedPassage, error) {
	passages, err := q.retriever.Retrieve(ctx, question)
	if err == nil {
		return passages, nil
	}
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		return nil, err
	}
	q.log.Warn("index unavailable, retrying once", "err", err)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(time.Second):
	}
	return q.retriever.Retrieve(ctx, question)
}

// generate invokes the model, retrying once when the failure is transient
// (timeout or unavailable endpoint).
func (q *Querier) generate(ctx context.Context, promptText string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	completion, err := q.generator.Generate(ctx, promptText)
	if err == nil {
		return completion, nil
	}
	if !errors.Is(err, domain.ErrGenerationTimeout) && !errors.Is(err, domain.ErrGenerationUnavailable) {
		return "", err
	}
	q.log.Warn("generation failed, retrying once", "err", err)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(time.Second):
	}
	return q.generator.Generate(ctx, promptText)
}

// sourcesOf lists the distinct articles behind the passages, in retrieval
// order. Several chunks of one long article collapse to a single source.
func sourcesOf(passages []domain.RetrievedPassage) []domain.Source {
	sources := make([]domain.Source, 0, len(passages))
	seen := make(map[domain.Source]struct{}, len(passages))
	for _, p := range passages {
		s := domain.Source{LawName: p.LawName, ArticleNo: p.ArticleNo}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		sources = append(sources, s)
	}
	return sources
}
