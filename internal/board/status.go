package board

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Status set errors.
var (
	ErrEmptyLabel     = errors.New("status label cannot be empty")
	ErrDuplicateLabel = errors.New("status label already exists")
	ErrUnknownLabel   = errors.New("unknown status label")
	ErrLastLabel      = errors.New("cannot remove the last status label")
)

// DefaultStatuses is the label sequence used when none is configured.
var DefaultStatuses = []string{"Todo", "In Progress", "Done"}

// StatusSet is the ordered sequence of board columns. Labels are referenced
// by value; tasks store the label text in their status field.
//
// StatusSet is not safe for concurrent use; [Engine] guards it.
type StatusSet struct {
	labels []string
}

// NewStatusSet returns a set with the given labels. Labels are trimmed;
// empty and duplicate labels are dropped.
func NewStatusSet(labels ...string) *StatusSet {
	s := &StatusSet{}

	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label != "" && !s.Contains(label) {
			s.labels = append(s.labels, label)
		}
	}

	return s
}

// Labels returns a copy of the labels in order.
func (s *StatusSet) Labels() []string {
	return slices.Clone(s.labels)
}

// Len returns the number of labels.
func (s *StatusSet) Len() int {
	return len(s.labels)
}

// Contains reports whether label is in the set.
func (s *StatusSet) Contains(label string) bool {
	return s.Index(label) >= 0
}

// Index returns the position of label, or -1.
func (s *StatusSet) Index(label string) int {
	return slices.Index(s.labels, label)
}

// Resolve returns the column a stored status belongs to: the status itself
// when it is a label, otherwise the first label. Returns "" for an empty
// set.
func (s *StatusSet) Resolve(status string) string {
	if s.Contains(status) {
		return status
	}

	if len(s.labels) == 0 {
		return ""
	}

	return s.labels[0]
}

// Add inserts label at position at. An out-of-range position appends.
func (s *StatusSet) Add(label string, at int) error {
	label = strings.TrimSpace(label)

	if label == "" {
		return ErrEmptyLabel
	}

	if s.Contains(label) {
		return fmt.Errorf("%w: %s", ErrDuplicateLabel, label)
	}

	if at < 0 || at > len(s.labels) {
		at = len(s.labels)
	}

	s.labels = slices.Insert(s.labels, at, label)

	return nil
}

// Remove deletes label. Documents referencing it are left alone; they show
// up in the first column until edited.
func (s *StatusSet) Remove(label string) error {
	idx := s.Index(label)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownLabel, label)
	}

	if len(s.labels) == 1 {
		return ErrLastLabel
	}

	s.labels = slices.Delete(s.labels, idx, idx+1)

	return nil
}

// Move places label at position to, clamped to the valid range.
func (s *StatusSet) Move(label string, to int) error {
	idx := s.Index(label)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownLabel, label)
	}

	s.labels = slices.Delete(s.labels, idx, idx+1)
	to = max(0, min(to, len(s.labels)))
	s.labels = slices.Insert(s.labels, to, label)

	return nil
}

// Rename replaces oldLabel with newLabel in place.
func (s *StatusSet) Rename(oldLabel, newLabel string) error {
	newLabel = strings.TrimSpace(newLabel)

	idx := s.Index(oldLabel)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownLabel, oldLabel)
	}

	if newLabel == "" {
		return ErrEmptyLabel
	}

	if newLabel != oldLabel && s.Contains(newLabel) {
		return fmt.Errorf("%w: %s", ErrDuplicateLabel, newLabel)
	}

	s.labels[idx] = newLabel

	return nil
}
