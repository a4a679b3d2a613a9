package task_test

import (
	"context"
	"errors"
	"testing"

	"taskboard/internal/task"
)

func items(paths ...string) []task.Item {
	out := make([]task.Item, 0, len(paths))
	for _, p := range paths {
		out = append(out, task.Item{Path: p})
	}

	return out
}

func paths(list []task.Item) []string {
	out := make([]string, 0, len(list))
	for _, it := range list {
		out = append(out, it.Path)
	}

	return out
}

func Test_Projection_Reload_Commits_When_No_Mutation_Happens_During_Load(t *testing.T) {
	t.Parallel()

	proj := task.NewProjection(items("old"))

	err := proj.Reload(context.Background(), func(context.Context) ([]task.Item, error) {
		return items("fresh"), nil
	})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	got, version := proj.Snapshot()
	if len(got) != 1 || got[0].Path != "fresh" {
		t.Fatalf("items=%v, want=[fresh]", paths(got))
	}

	if version != 1 {
		t.Fatalf("version=%d, want=1", version)
	}
}

func Test_Projection_Reload_Retries_When_Mutation_Races_The_Load(t *testing.T) {
	t.Parallel()

	proj := task.NewProjection(items("a"))
	calls := 0

	err := proj.Reload(context.Background(), func(context.Context) ([]task.Item, error) {
		calls++
		if calls == 1 {
			// An optimistic update lands while the first load is in flight.
			proj.Mutate(func(list []task.Item) []task.Item { return append(list, task.Item{Path: "optimistic"}) })

			return items("stale"), nil
		}

		return items("a", "optimistic"), nil
	})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	if calls != 2 {
		t.Fatalf("calls=%d, want=2", calls)
	}

	got, _ := proj.Snapshot()
	if len(got) != 2 || got[1].Path != "optimistic" {
		t.Fatalf("items=%v, want=[a optimistic]", paths(got))
	}
}

func Test_Projection_Reload_Commits_Last_Load_When_Mutations_Keep_Racing(t *testing.T) {
	t.Parallel()

	proj := task.NewProjection(nil)
	calls := 0

	err := proj.Reload(context.Background(), func(context.Context) ([]task.Item, error) {
		calls++
		proj.Mutate(func(list []task.Item) []task.Item { return list })

		return items("load"), nil
	})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	if calls != 3 {
		t.Fatalf("calls=%d, want=3", calls)
	}

	if got, _ := proj.Get("load"); got.Path != "load" {
		t.Fatal("expected last load to be committed")
	}
}

func Test_Projection_Reload_Keeps_Items_When_Load_Fails(t *testing.T) {
	t.Parallel()

	proj := task.NewProjection(items("keep"))
	errBoom := errors.New("boom")

	err := proj.Reload(context.Background(), func(context.Context) ([]task.Item, error) {
		return nil, errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("err=%v, want=%v", err, errBoom)
	}

	if _, ok := proj.Get("keep"); !ok {
		t.Fatal("items were replaced after a failed load")
	}

	if got := proj.Version(); got != 0 {
		t.Fatalf("version=%d, want=0", got)
	}
}
