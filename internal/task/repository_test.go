package task_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"taskboard/internal/frontmatter"
	"taskboard/internal/metacache"
	"taskboard/internal/task"
	"taskboard/pkg/fs"
)

var fixedNow = time.Date(2024, time.March, 4, 9, 30, 0, 0, time.UTC)

func newRepo(t *testing.T) (*task.Repository, string) {
	t.Helper()

	dir := t.TempDir()
	repo := task.NewRepository(fs.NewReal(), nil, task.Options{
		Now: func() time.Time { return fixedNow },
	})

	return repo, dir
}

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)

	err := os.WriteFile(path, []byte(content), 0o644)
	require.NoError(t, err)

	return path
}

func readDoc(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	return string(data)
}

func Test_ListItems_Returns_Documents_One_Level_Deep_When_Dir_Has_Mixed_Entries(t *testing.T) {
	t.Parallel()

	repo, dir := newRepo(t)

	writeDoc(t, dir, "B task.md", "---\nstatus: Todo\norder: 1\n---\n# B\n")
	writeDoc(t, dir, "A task.md", "---\nstatus: Done\norder: '0'\ntags: x, y\narchived: true\n---\n")
	writeDoc(t, dir, "notes.txt", "ignored")
	writeDoc(t, dir, ".hidden.md", "---\nstatus: Todo\n---\n")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	writeDoc(t, filepath.Join(dir, "sub"), "Nested.md", "---\nstatus: Todo\n---\n")

	items, err := repo.ListItems(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, items, 2)

	require.Equal(t, "A task", items[0].Name)
	require.Equal(t, "Done", items[0].Status)
	require.True(t, items[0].HasOrder)
	require.Equal(t, 0, items[0].Order)
	require.Equal(t, []string{"x", "y"}, items[0].Tags)
	require.True(t, items[0].Archived)

	require.Equal(t, "B task", items[1].Name)
	require.Equal(t, 1, items[1].Order)
}

func Test_ListItems_Returns_Empty_When_Dir_Does_Not_Exist(t *testing.T) {
	t.Parallel()

	repo, dir := newRepo(t)

	items, err := repo.ListItems(context.Background(), filepath.Join(dir, "missing"))
	require.NoError(t, err)
	require.Empty(t, items)
}

func Test_ListItems_Keeps_Item_With_Warning_When_Block_Is_Unparseable(t *testing.T) {
	t.Parallel()

	repo, dir := newRepo(t)

	writeDoc(t, dir, "Broken.md", "---\nstatus: [unterminated\n---\n- [ ] still parsed\n")

	items, err := repo.ListItems(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, items, 1)

	require.ErrorIs(t, items[0].Warning, metacache.ErrUnparseableMetadata)
	require.Equal(t, 0, items[0].Meta.Len())
	require.Equal(t, []task.Subtask{{Text: "still parsed"}}, items[0].Subtasks)
}

func Test_ParseSubtasks_Matches_Indented_And_Case_Insensitive_Marks(t *testing.T) {
	t.Parallel()

	body := "# Title\n\n## Subtasks\n- [ ] one\n  - [x] two\n\t- [X] three\r\n-[ ] not a task\n- [y] nope\n* [ ] star\n"

	got := task.ParseSubtasks(body)
	want := []task.Subtask{
		{Text: "one"},
		{Text: "two", Completed: true},
		{Text: "three", Completed: true},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("subtasks mismatch (-want +got):\n%s", diff)
	}
}

func Test_AllTags_Returns_Sorted_Union_When_Items_Share_Tags(t *testing.T) {
	t.Parallel()

	repo, dir := newRepo(t)

	writeDoc(t, dir, "One.md", "---\ntags: [ui, backend]\n---\n")
	writeDoc(t, dir, "Two.md", "---\ntags: [backend, api]\n---\n")
	writeDoc(t, dir, "Three.md", "no block\n")

	tags, err := repo.AllTags(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, []string{"api", "backend", "ui"}, tags)
}

func Test_FindByNumber_Prefers_Field_Match_When_Filename_Also_Matches(t *testing.T) {
	t.Parallel()

	repo, dir := newRepo(t)

	writeDoc(t, dir, "CR-5 Filename match.md", "---\nnumber: CR-9\n---\n")
	writeDoc(t, dir, "Zed field match.md", "---\nnumber: cr-5\n---\n")

	it, err := repo.FindByNumber(context.Background(), dir, "number", "CR-5")
	require.NoError(t, err)
	require.Equal(t, "Zed field match", it.Name)
}

func Test_FindByNumber_Falls_Back_To_Filename_Prefix_When_No_Field_Matches(t *testing.T) {
	t.Parallel()

	repo, dir := newRepo(t)

	writeDoc(t, dir, "CR-50 Other.md", "---\nstatus: Todo\n---\n")
	writeDoc(t, dir, "CR-5 Login.md", "---\nstatus: Todo\n---\n")

	it, err := repo.FindByNumber(context.Background(), dir, "", "CR-5")
	require.NoError(t, err)
	require.Equal(t, "CR-5 Login", it.Name)

	_, err = repo.FindByNumber(context.Background(), dir, "", "CR-6")
	require.ErrorIs(t, err, task.ErrItemNotFound)
}

func Test_NextNumber_Returns_Max_Plus_One_When_Numbers_Exist(t *testing.T) {
	t.Parallel()

	repo, dir := newRepo(t)

	writeDoc(t, dir, "A.md", "---\nnumber: CR-3\n---\n")
	writeDoc(t, dir, "CR-7 B.md", "---\nstatus: Todo\n---\n")
	writeDoc(t, dir, "C.md", "---\nnumber: CR-1\n---\n")
	writeDoc(t, dir, "D.md", "---\nnumber: XY-40\n---\n")

	got, err := repo.NextNumber(context.Background(), dir, "number", "CR")
	require.NoError(t, err)
	require.Equal(t, "CR-8", got)
}

func Test_NextNumber_Returns_One_When_No_Numbers_Exist(t *testing.T) {
	t.Parallel()

	repo, dir := newRepo(t)

	writeDoc(t, dir, "A.md", "---\nstatus: Todo\n---\n")

	got, err := repo.NextNumber(context.Background(), dir, "number", "CR")
	require.NoError(t, err)
	require.Equal(t, "CR-1", got)
}

func Test_Create_Stamps_CreatedAt_And_Writes_Block_When_Called(t *testing.T) {
	t.Parallel()

	repo, dir := newRepo(t)

	fields := frontmatter.NewMap().
		Set("status", frontmatter.StringValue("Todo")).
		Set("createdAt", frontmatter.StringValue("1999-01-01T00:00:00Z")).
		Set("tags", frontmatter.ListValue(nil))

	it, err := repo.Create(context.Background(), filepath.Join(dir, "tasks"), "CR-1 Login", fields, "")
	require.NoError(t, err)
	require.Equal(t, "2024-03-04T09:30:00Z", it.CreatedAt)

	want := "---\nstatus: Todo\ntags: []\ncreatedAt: \"2024-03-04T09:30:00Z\"\n---\n\n# CR-1 Login\n"
	require.Equal(t, want, readDoc(t, it.Path))

	_, err = repo.Create(context.Background(), filepath.Join(dir, "tasks"), "CR-1 Login", nil, "")
	require.ErrorIs(t, err, task.ErrDocumentExists)

	_, err = repo.Create(context.Background(), dir, "a/b", nil, "")
	require.ErrorIs(t, err, task.ErrInvalidTitle)

	_, err = repo.Create(context.Background(), dir, "  ", nil, "")
	require.ErrorIs(t, err, task.ErrTitleRequired)
}

func Test_Patch_Rewrites_Block_And_Keeps_Body_When_Document_Exists(t *testing.T) {
	t.Parallel()

	repo, dir := newRepo(t)

	path := writeDoc(t, dir, "Task.md", "---\nstatus: Todo\ncreatedAt: \"2024-01-01T00:00:00Z\"\nendDate: 2024-01-09\n---\n\nBody text\n- [ ] a\n")

	patch := frontmatter.NewMap().
		Set("status", frontmatter.StringValue("Doing")).
		Set("createdAt", frontmatter.StringValue("2030-01-01T00:00:00Z")).
		Set("endDate", frontmatter.NullValue()).
		Set("order", frontmatter.IntValue(2))

	it, err := repo.Patch(context.Background(), path, patch)
	require.NoError(t, err)

	want := "---\nstatus: Doing\ncreatedAt: \"2024-01-01T00:00:00Z\"\norder: 2\n---\n\nBody text\n- [ ] a\n"
	require.Equal(t, want, readDoc(t, path))

	require.Equal(t, "Doing", it.Status)
	require.Equal(t, 2, it.Order)
	require.Equal(t, "", it.EndDate)
	require.Equal(t, []string{"status", "createdAt", "order"}, it.Meta.Keys())

	loaded, err := repo.Load(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, "Doing", loaded.Status, "cache must not serve the pre-patch block")
}

func Test_Patch_Prepends_Block_When_Document_Has_None(t *testing.T) {
	t.Parallel()

	repo, dir := newRepo(t)

	path := writeDoc(t, dir, "Plain.md", "# Plain\n")

	_, err := repo.Patch(context.Background(), path, frontmatter.NewMap().Set("status", frontmatter.StringValue("Todo")))
	require.NoError(t, err)
	require.Equal(t, "---\nstatus: Todo\n---\n\n# Plain\n", readDoc(t, path))
}

func Test_Patch_Returns_ErrMissingDocument_When_Document_Is_Gone(t *testing.T) {
	t.Parallel()

	repo, dir := newRepo(t)

	_, err := repo.Patch(context.Background(), filepath.Join(dir, "Gone.md"), frontmatter.NewMap())
	require.ErrorIs(t, err, task.ErrMissingDocument)

	err = repo.Delete(context.Background(), filepath.Join(dir, "Gone.md"))
	require.ErrorIs(t, err, task.ErrMissingDocument)
}

func Test_Patch_Leaves_Document_Untouched_When_Block_Is_Unparseable(t *testing.T) {
	t.Parallel()

	repo, dir := newRepo(t)

	content := "---\nnested:\n  key: value\n---\nBody\n"
	path := writeDoc(t, dir, "Nested.md", content)

	_, err := repo.Patch(context.Background(), path, frontmatter.NewMap().Set("status", frontmatter.StringValue("x")))
	require.ErrorIs(t, err, metacache.ErrUnparseableMetadata)
	require.Equal(t, content, readDoc(t, path))
}

func Test_Delete_Removes_Document_When_It_Exists(t *testing.T) {
	t.Parallel()

	repo, dir := newRepo(t)

	path := writeDoc(t, dir, "Task.md", "---\nstatus: Todo\n---\n")

	_, err := repo.Load(context.Background(), path)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(context.Background(), path))

	_, err = repo.Load(context.Background(), path)
	require.True(t, errors.Is(err, task.ErrMissingDocument), "err=%v", err)
}
