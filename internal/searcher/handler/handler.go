// Package handler drives the query engine from a line-oriented request
// stream: a request count, then for each request a line holding k and a
// line holding the query.
package handler

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/simple-search-engine/pkg/logger"

	apperrors "github.com/Adithya-Monish-Kumar-K/simple-search-engine/pkg/errors"
)

const (
	msgInvalidRequest = "Invalid request"
	msgNoMatches      = "No matching files"
	msgOverflow       = "Overflow"
	msgInvalidArg     = "Invalid argument"
)

type Searcher interface {
	Search(ctx context.Context, query string, k uint64) ([]executor.Result, error)
}

// Handler answers requests one at a time. Results and "No matching files"
// go to out; diagnostics for rejected requests go to errOut.
type Handler struct {
	searcher Searcher
	out      *bufio.Writer
	errOut   io.Writer
	logger   *slog.Logger
}

func New(s Searcher, out, errOut io.Writer) *Handler {
	return &Handler{
		searcher: s,
		out:      bufio.NewWriter(out),
		errOut:   errOut,
		logger:   logger.WithComponent("request-handler"),
	}
}

// Serve reads the request stream from r and answers every request in order.
// It returns the number of requests answered. An empty stream is not an
// error; a malformed count or k, or a stream that ends early, stops it.
func (h *Handler) Serve(ctx context.Context, r io.Reader) (int, error) {
	br := bufio.NewReader(r)
	line, err := readLine(br)
	if errors.Is(err, io.EOF) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading request count: %w", err)
	}
	count, err := h.parseNumber(line, "request count")
	if err != nil {
		return 0, err
	}

	served := 0
	for ; uint64(served) < count; served++ {
		if err := ctx.Err(); err != nil {
			return served, err
		}
		k, query, err := h.readRequest(br, served, count)
		if err != nil {
			return served, err
		}
		if err := h.answer(ctx, query, k); err != nil {
			return served, err
		}
	}
	h.logger.Info("request stream finished", "requests", served)
	return served, nil
}

func (h *Handler) readRequest(br *bufio.Reader, served int, count uint64) (uint64, string, error) {
	line, err := readLine(br)
	if errors.Is(err, io.EOF) {
		return 0, "", apperrors.Newf(apperrors.ErrInvalidInput, apperrors.ExitUsage,
			"request stream ended after %d of %d requests", served, count)
	}
	if err != nil {
		return 0, "", fmt.Errorf("reading request %d: %w", served+1, err)
	}
	k, err := h.parseNumber(line, "k")
	if err != nil {
		return 0, "", err
	}
	query, err := readLine(br)
	if errors.Is(err, io.EOF) {
		return 0, "", apperrors.Newf(apperrors.ErrInvalidInput, apperrors.ExitUsage,
			"request %d has no query line", served+1)
	}
	if err != nil {
		return 0, "", fmt.Errorf("reading request %d: %w", served+1, err)
	}
	return k, query, nil
}

// answer runs one query. Rejected and unmatched queries are reported and the
// stream continues; any other failure ends it.
func (h *Handler) answer(ctx context.Context, query string, k uint64) error {
	results, err := h.searcher.Search(ctx, query, k)
	switch {
	case errors.Is(err, apperrors.ErrInvalidQuery):
		fmt.Fprintln(h.errOut, msgInvalidRequest)
		return nil
	case errors.Is(err, apperrors.ErrNoMatches):
		fmt.Fprintln(h.out, msgNoMatches)
		return h.out.Flush()
	case err != nil:
		return err
	}
	for _, res := range results {
		if _, err := res.WriteTo(h.out); err != nil {
			return fmt.Errorf("writing results: %w", err)
		}
	}
	return h.out.Flush()
}

func (h *Handler) parseNumber(line, field string) (uint64, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(line), 10, 64)
	if err == nil {
		return n, nil
	}
	if errors.Is(err, strconv.ErrRange) {
		fmt.Fprintln(h.errOut, msgOverflow)
		return 0, apperrors.Newf(apperrors.ErrOverflow, apperrors.ExitUsage, "%s %q does not fit in 64 bits", field, line)
	}
	fmt.Fprintln(h.errOut, msgInvalidArg)
	return 0, apperrors.Newf(apperrors.ErrInvalidInput, apperrors.ExitUsage, "%s %q is not a number", field, line)
}

// readLine returns the next line without its terminator. io.EOF is returned
// only when no bytes remain.
func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r"), nil
}
