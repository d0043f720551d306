package craft

import (
	"context"
	"fmt"
)

// BatchCall is one named request in a batch.
type BatchCall struct {
	Name string
	Do   func(ctx context.Context) error
}

// RunBatch issues a fixed ordered list of logically-independent requests and
// returns one result slot per call, in order. Batching is an atomicity
// convenience only: a failed call does not stop the later ones and no
// cross-call transactional guarantee exists. A cancelled context fills the
// remaining slots with the context error.
func RunBatch(ctx context.Context, calls ...BatchCall) []error {
	errs := make([]error, len(calls))
	for i, call := range calls {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		errs[i] = call.Do(ctx)
	}
	return errs
}

// FirstBatchError returns the first failed call of a batch, wrapped with its
// name, or nil when every call succeeded. Used at call sites that treat any
// failure as fatal.
func FirstBatchError(calls []BatchCall, errs []error) error {
	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("%s: %w", calls[i].Name, err)
		}
	}
	return nil
}
