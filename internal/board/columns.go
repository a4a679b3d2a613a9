package board

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"taskboard/internal/frontmatter"
	"taskboard/internal/task"
)

// RenameStatus renames a column and rewrites the status of every card in
// it. The label change is saved first; a partially failed cascade leaves the
// cards it missed on the old label, which then show in the first column.
func (e *Engine) RenameStatus(ctx context.Context, oldLabel, newLabel string) (task.Outcome, error) {
	e.txMu.Lock()
	defer e.txMu.Unlock()

	// Cards must carry the label exactly as the set stores it.
	newLabel = strings.TrimSpace(newLabel)

	if oldLabel == newLabel {
		return task.Outcome{}, nil
	}

	// Bucket membership is decided under the old labels.
	bucket, ok := e.Bucket(oldLabel)
	if !ok {
		return task.Outcome{}, fmt.Errorf("%w: %s", ErrUnknownLabel, oldLabel)
	}

	err := e.editStatuses(func(s *StatusSet) error { return s.Rename(oldLabel, newLabel) })
	if err != nil {
		return task.Outcome{}, err
	}

	batch := e.repo.NewBatch()
	for _, it := range bucket.Items {
		batch.Add(it.Path, frontmatter.NewMap().Set(frontmatter.FieldStatus, frontmatter.StringValue(newLabel)))
	}

	e.log.Debug("renaming status",
		zap.String("batch", batch.ID()),
		zap.String("from", oldLabel),
		zap.String("to", newLabel),
		zap.Int("writes", batch.Len()),
	)

	if batch.Len() == 0 {
		return task.Outcome{BatchID: batch.ID()}, nil
	}

	return e.commit(ctx, batch, fmt.Sprintf("Could not rename %q to %q", oldLabel, newLabel))
}

// AddStatus inserts a column at position at; out of range appends.
// Documents are not touched.
func (e *Engine) AddStatus(label string, at int) error {
	return e.editStatuses(func(s *StatusSet) error { return s.Add(label, at) })
}

// RemoveStatus deletes a column. Cards that referenced it keep their status
// and show in the first column until edited.
func (e *Engine) RemoveStatus(label string) error {
	return e.editStatuses(func(s *StatusSet) error { return s.Remove(label) })
}

// MoveStatus moves a column to position to. Documents are not touched.
func (e *Engine) MoveStatus(label string, to int) error {
	return e.editStatuses(func(s *StatusSet) error { return s.Move(label, to) })
}

// editStatuses applies fn to a copy of the label set, persists the result
// and swaps it in. Nothing changes when fn or the save fails.
func (e *Engine) editStatuses(fn func(*StatusSet) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := NewStatusSet(e.statuses.Labels()...)

	err := fn(next)
	if err != nil {
		return err
	}

	if e.settings != nil {
		err = e.settings.SaveStatuses(next.Labels())
		if err != nil {
			return fmt.Errorf("saving statuses: %w", err)
		}
	}

	e.statuses = next

	return nil
}
