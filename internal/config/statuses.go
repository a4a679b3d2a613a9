package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"

	"taskboard/pkg/fs"
)

const statusesPointer = "/statuses"

// StatusFileStore persists board column labels into a JSONC config file.
// Only the "statuses" key is rewritten; comments and the other keys are
// kept as they are.
type StatusFileStore struct {
	fsys fs.FS
	path string
}

// NewStatusFileStore returns a store writing to path.
func NewStatusFileStore(fsys fs.FS, path string) *StatusFileStore {
	return &StatusFileStore{fsys: fsys, path: path}
}

// Path returns the file labels are written to.
func (s *StatusFileStore) Path() string { return s.path }

// SaveStatuses writes labels to the store's file, creating it when absent.
func (s *StatusFileStore) SaveStatuses(labels []string) error {
	data, err := s.fsys.ReadFile(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s: %w", ErrFileRead, s.path, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte("{}")
	}

	out, err := patchStatuses(data, labels)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrInvalid, s.path, err)
	}

	if err := s.fsys.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("save statuses: %w", err)
	}

	if err := s.fsys.WriteFileAtomic(s.path, out, 0o644); err != nil {
		return fmt.Errorf("save statuses: %w", err)
	}

	return nil
}

func patchStatuses(data []byte, labels []string) ([]byte, error) {
	value, err := hujson.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid JSONC: %w", err)
	}

	if labels == nil {
		labels = []string{}
	}

	encoded, err := json.Marshal(labels)
	if err != nil {
		return nil, fmt.Errorf("encode statuses: %w", err)
	}

	op := "replace"
	if value.Find(statusesPointer) == nil {
		op = "add"
	}

	patch := fmt.Sprintf(`[{"op":%q,"path":%q,"value":%s}]`, op, statusesPointer, encoded)

	if err := value.Patch([]byte(patch)); err != nil {
		return nil, fmt.Errorf("patch statuses: %w", err)
	}

	out := value.Pack()
	if !bytes.HasSuffix(out, []byte("\n")) {
		out = append(out, '\n')
	}

	return out, nil
}
