package service

import (
	"context"

	"github.com/Prajwal-k-tech/Battle-CP/internal/model"
)

// Verifier checks players against the competitive-programming judge.
// Implemented by the codeforces client. Callers treat any error as "not
// verified".
type Verifier interface {
	HandleExists(ctx context.Context, handle string) (bool, error)
	HasAcceptedSubmission(ctx context.Context, handle string, contestID int, index string, withinLastN int) (bool, error)
	FetchProblemsByContest(ctx context.Context, contestID int) ([]model.Problem, error)
}

// ResultRecorder receives every match exactly once, when it finishes.
type ResultRecorder interface {
	Record(ctx context.Context, r *model.MatchResult) error
}
