package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/pkg/metrics"

	apperrors "github.com/Adithya-Monish-Kumar-K/simple-search-engine/pkg/errors"
)

// Result is one ranked document with the lines its query words occur on.
type Result struct {
	DocID uint64
	Path  string
	Score float64
	Lines []uint64
}

// WriteTo writes the result as "path line line ...\n".
func (r Result) WriteTo(w io.Writer) (int64, error) {
	buf := make([]byte, 0, len(r.Path)+8*len(r.Lines)+1)
	buf = append(buf, r.Path...)
	for _, line := range r.Lines {
		buf = append(buf, ' ')
		buf = strconv.AppendUint(buf, line, 10)
	}
	buf = append(buf, '\n')
	n, err := w.Write(buf)
	return int64(n), err
}

// Engine answers queries against the index files in one directory. It is
// not safe for concurrent use: each request runs in a single session that
// is cleared when the request ends.
type Engine struct {
	dir        string
	maxResults uint64
	logger     *slog.Logger
	metrics    *metrics.Metrics
	sess       *session
}

// New creates an Engine over dir. maxResults of zero leaves k unclamped; a
// nil m records metrics into a private registry.
func New(dir string, maxResults uint64, m *metrics.Metrics) *Engine {
	if m == nil {
		m = metrics.NewUnregistered()
	}
	return &Engine{
		dir:        dir,
		maxResults: maxResults,
		logger:     logger.WithComponent("query-executor"),
		metrics:    m,
		sess:       newSession(),
	}
}

// Stats reads the global statistics of the index.
func (e *Engine) Stats() (segment.Stats, error) {
	return segment.ReadStats(e.dir)
}

// Search parses query and executes it, returning at most k results.
// Grammar violations yield ErrInvalidQuery, a query none of whose words
// occur in the index yields ErrNoMatches.
func (e *Engine) Search(ctx context.Context, query string, k uint64) ([]Result, error) {
	plan, err := parser.Parse(query)
	if err != nil {
		e.metrics.SearchQueriesTotal.WithLabelValues(metrics.ResultInvalid).Inc()
		e.logger.Warn("query rejected", "query", query, "error", err)
		return nil, err
	}
	return e.Execute(ctx, plan, k)
}

func (e *Engine) Execute(ctx context.Context, plan *parser.QueryPlan, k uint64) ([]Result, error) {
	start := time.Now()
	defer e.sess.reset()

	results, err := e.execute(ctx, plan, k)
	e.metrics.SearchLatency.Observe(time.Since(start).Seconds())
	switch {
	case err == nil:
		e.metrics.SearchQueriesTotal.WithLabelValues(metrics.ResultHit).Inc()
		e.metrics.SearchResultsCount.Observe(float64(len(results)))
	case errors.Is(err, apperrors.ErrNoMatches):
		e.metrics.SearchQueriesTotal.WithLabelValues(metrics.ResultNoMatch).Inc()
	case errors.Is(err, apperrors.ErrInvalidQuery):
		e.metrics.SearchQueriesTotal.WithLabelValues(metrics.ResultInvalid).Inc()
	default:
		e.metrics.SearchQueriesTotal.WithLabelValues(metrics.ResultError).Inc()
		e.logger.Error("query failed", "query", plan.RawQuery, "error", err)
	}
	return results, err
}

func (e *Engine) execute(ctx context.Context, plan *parser.QueryPlan, k uint64) ([]Result, error) {
	if err := parser.Validate(plan.Tokens); err != nil {
		return nil, err
	}
	if e.maxResults > 0 && k > e.maxResults {
		k = e.maxResults
	}
	s := e.sess
	if err := s.open(e.dir); err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}
	if err := s.loadTerms(e.dir, plan.Words); err != nil {
		return nil, err
	}
	words := s.matchedWords(plan.Words)
	if len(words) == 0 {
		return nil, apperrors.New(apperrors.ErrNoMatches, apperrors.ExitOK, fmt.Sprintf("%q", plan.RawQuery))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidates := parser.Build(plan.Tokens, s.lookup).Calculate()
	e.metrics.SearchCandidateCount.Observe(float64(candidates.GetCardinality()))
	if candidates.IsEmpty() {
		e.logQuery(plan, words, candidates, 0)
		return []Result{}, nil
	}
	if err := s.loadDocs(candidates); err != nil {
		return nil, err
	}

	params := ranker.NewRankParams(s.stats.DocCount, s.stats.TotalTokens)
	cursors := make([]*merger.Cursor, 0, len(words))
	for _, w := range words {
		cursors = append(cursors, merger.NewCursor(w, s.terms[w].postings, candidates))
	}
	scored, err := merger.Merge(cursors, func(term string, p index.Posting) (float64, error) {
		doc, ok := s.docs[p.DocID]
		if !ok {
			return 0, apperrors.Corruptf("no %s record for document %d", segment.DocFile, p.DocID)
		}
		return ranker.Relevance(p.Frequency, s.terms[term].docFreq(), doc.Length, params), nil
	}, k)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	winners := roaring64.New()
	for _, doc := range scored {
		winners.Add(doc.DocID)
	}
	if err := s.loadLines(words, winners); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(scored))
	for _, doc := range scored {
		record, err := s.docIdx.ReadAt(s.docs[doc.DocID].Offset)
		if err != nil {
			return nil, fmt.Errorf("loading document %d: %w", doc.DocID, err)
		}
		if record.DocID != doc.DocID {
			return nil, apperrors.Corruptf("%s record at offset %d holds document %d, want %d",
				segment.DocFile, s.docs[doc.DocID].Offset, record.DocID, doc.DocID)
		}
		results = append(results, Result{
			DocID: doc.DocID,
			Path:  record.Path,
			Score: doc.Score,
			Lines: s.lines[doc.DocID],
		})
	}
	e.logQuery(plan, words, candidates, len(results))
	return results, nil
}

func (e *Engine) logQuery(plan *parser.QueryPlan, words []string, candidates *roaring64.Bitmap, results int) {
	e.logger.Info("query executed",
		"query", plan.RawQuery,
		"words", words,
		"candidates", candidates.GetCardinality(),
		"results", results,
	)
}
