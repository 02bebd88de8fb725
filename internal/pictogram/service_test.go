package pictogram

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pictoforge/pictoforge/backend-go/internal/document"
	"github.com/pictoforge/pictoforge/backend-go/internal/generate"
	"github.com/pictoforge/pictoforge/backend-go/internal/typeid"
)

const sunMarkup = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100"><circle id="sun" cx="50" cy="50" r="20"/></svg>`

type fakeGenerator struct {
	root *document.Node
	err  error
}

func (f *fakeGenerator) Generate(context.Context, string) (*document.Node, error) {
	return f.root, f.err
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewSQLiteStore(context.Background(), db)
	require.NoError(t, err)
	return store
}

func newTestService(t *testing.T, gen Generator) *Service {
	t.Helper()
	return NewService(newTestStore(t), gen)
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	p, err := svc.Create(ctx, "  Sun ", sunMarkup)
	require.NoError(t, err)
	require.NoError(t, typeid.Validate(p.ID, typeid.PrefixPictogram))
	assert.Equal(t, "Sun", p.Name)
	assert.Equal(t, 1, p.Version)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Markup, got.Markup)
	assert.Equal(t, p.CreatedAt.UnixMilli(), got.CreatedAt.UnixMilli())

	root, err := document.FromMarkup(got.Markup)
	require.NoError(t, err)
	assert.NotNil(t, document.FindByID(root, "sun"))
}

func TestCreateDefaults(t *testing.T) {
	svc := newTestService(t, nil)

	p, err := svc.Create(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, "Untitled", p.Name)
	assert.Contains(t, p.Markup, `viewBox="0 0 100 100"`)
}

func TestCreateRejectsInvalidMarkup(t *testing.T) {
	svc := newTestService(t, nil)

	_, err := svc.Create(context.Background(), "bad", "<svg><g></svg>")
	assert.ErrorIs(t, err, ErrInvalidMarkup)

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGetUnknownID(t *testing.T) {
	svc := newTestService(t, nil)

	_, err := svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(context.Background(), typeid.NewPictogramID())
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, svc.Delete(context.Background(), typeid.NewPictogramID()), ErrNotFound)
}

func TestSaveMarkupBumpsVersion(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)
	p, err := svc.Create(ctx, "Sun", sunMarkup)
	require.NoError(t, err)

	saved, err := svc.SaveMarkup(ctx, p.ID, strings.Replace(sunMarkup, `r="20"`, `r="30"`, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, saved.Version)
	assert.Contains(t, saved.Markup, `r="30"`)

	_, err = svc.SaveMarkup(ctx, p.ID, "not svg")
	assert.ErrorIs(t, err, ErrInvalidMarkup)

	_, err = svc.SaveMarkup(ctx, typeid.NewPictogramID(), sunMarkup)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAndDelete(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)
	a, err := svc.Create(ctx, "A", "")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "B", "")
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, p := range list {
		assert.Empty(t, p.Markup)
	}

	require.NoError(t, svc.Delete(ctx, a.ID))
	list, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "B", list[0].Name)
}

func TestLoadDocumentFallsBack(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := NewService(store, nil)
	p, err := svc.Create(ctx, "Sun", sunMarkup)
	require.NoError(t, err)

	root, err := svc.LoadDocument(ctx, p.ID)
	require.NoError(t, err)
	assert.NotNil(t, document.FindByID(root, "sun"))

	// Bypass the service so the stored copy is corrupt.
	_, err = store.SaveMarkup(ctx, p.ID, "<svg>")
	require.NoError(t, err)
	root, err = svc.LoadDocument(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, root.Children)
	assert.Equal(t, "0 0 100 100", root.Attr("viewBox"))
}

func TestSaveDocument(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)
	p, err := svc.Create(ctx, "Sun", sunMarkup)
	require.NoError(t, err)

	root, err := svc.LoadDocument(ctx, p.ID)
	require.NoError(t, err)
	root, _ = document.UpdateByID(root, "sun", func(n *document.Node) { n.Attrs["fill"] = "gold" })

	saved, err := svc.SaveDocument(ctx, p.ID, root)
	require.NoError(t, err)
	assert.Contains(t, saved.Markup, `fill="gold"`)
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	res, err := svc.Import(ctx, "sun", strings.NewReader(sunMarkup))
	require.NoError(t, err)
	assert.Empty(t, res.Notice)
	assert.Contains(t, res.Markup, `id="sun"`)

	res, err = svc.Import(ctx, "broken", strings.NewReader("<svg><rect></svg>"))
	require.NoError(t, err)
	assert.NotEmpty(t, res.Notice)
	assert.Equal(t, "broken", res.Name)

	root, err := document.FromMarkup(res.Markup)
	require.NoError(t, err)
	assert.Empty(t, root.Children)
}

func TestGenerate(t *testing.T) {
	ctx := context.Background()
	sun, err := document.FromMarkup(sunMarkup)
	require.NoError(t, err)

	res, err := newTestService(t, &fakeGenerator{root: sun}).Generate(ctx, "", "a sun")
	require.NoError(t, err)
	assert.Equal(t, "a sun", res.Name)
	assert.Empty(t, res.Notice)
	assert.Contains(t, res.Markup, `id="sun"`)

	bad := &fakeGenerator{err: &document.ParseError{Msg: "no svg"}}
	res, err = newTestService(t, bad).Generate(ctx, "Sun", "a sun")
	require.NoError(t, err)
	assert.Contains(t, res.Notice, "no svg")
	assert.Equal(t, "Sun", res.Name)
}

func TestGenerateErrors(t *testing.T) {
	ctx := context.Background()

	_, err := newTestService(t, nil).Generate(ctx, "", "a sun")
	assert.ErrorIs(t, err, generate.ErrUnavailable)

	boom := errors.New("boom")
	_, err = newTestService(t, &fakeGenerator{err: boom}).Generate(ctx, "", "a sun")
	assert.ErrorIs(t, err, boom)
}
