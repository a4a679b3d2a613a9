package task

import (
	"errors"
	"fmt"
	"strings"
)

// Error variables for task operations.
var (
	ErrMissingDocument = errors.New("document does not exist")
	ErrItemNotFound    = errors.New("task not found")
	ErrDocumentExists  = errors.New("document already exists")
	ErrTitleRequired   = errors.New("title is required")
	ErrInvalidTitle    = errors.New("title must not contain path separators")
	ErrPartialBatch    = errors.New("batch partially failed")
)

// PartialBatchError reports which writes of a batch failed. Writes not listed
// in Failed were committed and stay committed.
type PartialBatchError struct {
	BatchID   string
	Committed []string
	Failed    map[string]error
}

func (e *PartialBatchError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "batch %s: %d of %d writes failed", e.BatchID, len(e.Failed), len(e.Failed)+len(e.Committed))

	for _, path := range sortedKeys(e.Failed) {
		fmt.Fprintf(&b, "\n  %s: %v", path, e.Failed[path])
	}

	return b.String()
}

// Is makes errors.Is(err, ErrPartialBatch) match.
func (*PartialBatchError) Is(target error) bool {
	return target == ErrPartialBatch
}

// Unwrap exposes the individual write errors.
func (e *PartialBatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, path := range sortedKeys(e.Failed) {
		errs = append(errs, e.Failed[path])
	}

	return errs
}
