package api

import (
	"context"
	"strconv"

	"github.com/kraklabs/devsentry/internal/logging"
)

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, &strconv.NumError{Func: "parsePositiveInt", Num: s, Err: strconv.ErrRange}
	}
	return n, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// detachedContext is used for work that must outlive the HTTP request
// that triggered it (spec.md §6 "triggers async chunk+embed").
func detachedContext() context.Context {
	return context.Background()
}

func (s *Server) logIndexFailure(documentID string, err error) {
	logging.Get(logging.CategoryAPI).Warn("async indexing failed for document %s: %v", documentID, err)
}
