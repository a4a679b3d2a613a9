package fs

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
)

func Test_Chaos_WriteFileAtomic_Fails_When_Path_Is_Targeted(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	chaos := NewChaos(NewReal(), 1, ChaosConfig{})

	bad := filepath.Join(dir, "bad.md")
	good := filepath.Join(dir, "good.md")

	chaos.FailWrites(bad)

	err := chaos.WriteFileAtomic(bad, []byte("x"), 0o644)
	if !errors.Is(err, syscall.EIO) {
		t.Fatalf("err=%v, want EIO", err)
	}

	if !IsInjected(err) {
		t.Fatalf("IsInjected(%v)=false, want=true", err)
	}

	if _, statErr := os.Stat(bad); !os.IsNotExist(statErr) {
		t.Fatalf("bad.md should not exist, stat err=%v", statErr)
	}

	if err := chaos.WriteFileAtomic(good, []byte("x"), 0o644); err != nil {
		t.Fatalf("good write: %v", err)
	}

	if got, want := chaos.Stats().WriteFails, int64(1); got != want {
		t.Fatalf("WriteFails=%d, want=%d", got, want)
	}
}

func Test_Chaos_FailWrites_Clears_Targets_When_Called_Without_Paths(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "a.md")
	chaos := NewChaos(NewReal(), 1, ChaosConfig{})

	chaos.FailWrites(path)
	chaos.FailWrites()

	if err := chaos.WriteFileAtomic(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func Test_Chaos_ReadFile_Always_Fails_When_Rate_Is_One(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "a.md")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	chaos := NewChaos(NewReal(), 7, ChaosConfig{ReadFailRate: 1})

	for range 10 {
		_, err := chaos.ReadFile(path)
		if !IsInjected(err) {
			t.Fatalf("err=%v, want injected", err)
		}
	}
}

func Test_IsInjected_Returns_False_When_Error_Is_Real(t *testing.T) {
	t.Parallel()

	_, err := NewReal().ReadFile(filepath.Join(t.TempDir(), "missing.md"))
	if err == nil {
		t.Fatal("expected error")
	}

	if IsInjected(err) {
		t.Fatalf("IsInjected(%v)=true, want=false", err)
	}

	if IsInjected(nil) {
		t.Fatal("IsInjected(nil)=true, want=false")
	}
}
