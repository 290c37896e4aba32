package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/tada/internal/logging"
	"github.com/Makepad-fr/tada/internal/model"
)

// fakeDocs is an in-memory backend.Documents that records calls.
type fakeDocs struct {
	items  []model.Todo
	nextID int

	queryErr  error
	addErr    error
	setErr    error
	deleteErr error

	sets    []model.Todo
	deletes []string
}

func (f *fakeDocs) Query(ctx context.Context, uid string) ([]model.Todo, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var out []model.Todo
	for _, t := range f.items {
		if t.UID == uid {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeDocs) Add(ctx context.Context, t model.Todo) (string, error) {
	if f.addErr != nil {
		return "", f.addErr
	}
	f.nextID++
	t.ID = fmt.Sprintf("doc-%d", f.nextID)
	t.Key = ""
	f.items = append(f.items, t)
	return t.ID, nil
}

func (f *fakeDocs) Set(ctx context.Context, t model.Todo) error {
	f.sets = append(f.sets, t)
	return f.setErr
}

func (f *fakeDocs) Delete(ctx context.Context, id string) error {
	f.deletes = append(f.deletes, id)
	return f.deleteErr
}

var t0 = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

func seeded() *fakeDocs {
	return &fakeDocs{items: []model.Todo{
		{ID: "a", Body: "one", Status: model.StatusActive, UID: "u1", CreatedAt: t0},
		{ID: "b", Body: "two", Status: model.StatusDone, UID: "u1", CreatedAt: t0.Add(time.Minute)},
		{ID: "c", Body: "three", Status: model.StatusActive, UID: "u1", CreatedAt: t0.Add(2 * time.Minute)},
		{ID: "x", Body: "not mine", Status: model.StatusActive, UID: "u2", CreatedAt: t0},
	}}
}

func loaded(t *testing.T, docs *fakeDocs) *Store {
	t.Helper()
	s := New(docs, logging.Discard(), WithClock(func() time.Time { return t0.Add(time.Hour) }))
	require.NoError(t, s.Sync(context.Background(), s.Load("u1")))
	return s
}

func ids(items []model.Todo) []string {
	out := []string{}
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestLoad(t *testing.T) {
	s := loaded(t, seeded())
	assert.Equal(t, []string{"a", "b", "c"}, ids(s.All()))
	assert.Equal(t, s.All(), s.Displayed())
	assert.False(t, s.Loading())
}

func TestLoad_FailureLeavesSetsEmpty(t *testing.T) {
	docs := seeded()
	docs.queryErr = errors.New("offline")
	s := New(docs, logging.Discard())
	err := s.Sync(context.Background(), s.Load("u1"))
	assert.ErrorIs(t, err, docs.queryErr)
	assert.Empty(t, s.All())
	assert.Empty(t, s.Displayed())
}

func TestLoad_StaleResultIgnored(t *testing.T) {
	docs := seeded()
	s := New(docs, logging.Discard())
	op := s.Load("u1")
	s.Clear()
	require.NoError(t, s.Apply(op(context.Background())))
	assert.Empty(t, s.All())

	op = s.Load("u1")
	op2 := s.Load("u2")
	require.NoError(t, s.Apply(op(context.Background())))
	assert.Empty(t, s.All())
	require.NoError(t, s.Apply(op2(context.Background())))
	assert.Equal(t, []string{"x"}, ids(s.All()))
}

func TestCreate_WhileLoadingSurvivesLoad(t *testing.T) {
	ctx := context.Background()
	docs := seeded()
	s := New(docs, logging.Discard())
	load := s.Load("u1")

	created, add, err := s.Create("four")
	require.NoError(t, err)

	require.NoError(t, s.Apply(load(ctx)))
	assert.Equal(t, []string{"a", "b", "c", ""}, ids(s.All()))
	assert.Equal(t, created.Key, s.All()[3].Key)

	require.NoError(t, s.Apply(add(ctx)))
	assert.Equal(t, []string{"a", "b", "c", "doc-1"}, ids(s.All()))
	assert.Equal(t, ids(s.All()), ids(s.Displayed()))
}

func TestCreate_StoredBeforeLoadNotDuplicated(t *testing.T) {
	ctx := context.Background()
	docs := seeded()
	s := New(docs, logging.Discard())
	load := s.Load("u1")

	_, add, err := s.Create("four")
	require.NoError(t, err)
	r := add(ctx)

	// The fetch runs after the insert and already sees the new document.
	require.NoError(t, s.Apply(load(ctx)))
	require.NoError(t, s.Apply(r))
	assert.Equal(t, []string{"a", "b", "c", "doc-1"}, ids(s.All()))
}

func TestFilter_Properties(t *testing.T) {
	s := loaded(t, seeded())

	s.SetFilter(model.FilterDone)
	assert.Equal(t, []string{"b"}, ids(s.Displayed()))

	s.SetFilter(model.FilterActive)
	for _, it := range s.Displayed() {
		assert.Equal(t, model.StatusActive, it.Status)
	}
	assert.Equal(t, []string{"a", "c"}, ids(s.Displayed()))

	s.SetFilter(model.FilterAll)
	assert.Equal(t, s.All(), s.Displayed())
}

func TestCreate_OptimisticBeforeBackendResponds(t *testing.T) {
	docs := seeded()
	s := loaded(t, docs)

	created, op, err := s.Create("  Buy milk ")
	require.NoError(t, err)
	require.NotNil(t, op)

	// The op has not run: nothing reached the backend yet.
	assert.Len(t, docs.items, 4)

	shown := s.Displayed()
	last := shown[len(shown)-1]
	assert.Equal(t, "Buy milk", last.Body)
	assert.Equal(t, model.StatusActive, last.Status)
	assert.Equal(t, "u1", last.UID)
	assert.Empty(t, last.ID)
	assert.Equal(t, created.Key, last.Key)
	assert.Equal(t, t0.Add(time.Hour), last.CreatedAt)

	require.NoError(t, s.Apply(op(context.Background())))
	all := s.All()
	assert.Equal(t, "doc-1", all[len(all)-1].ID)
	shown = s.Displayed()
	assert.Equal(t, "doc-1", shown[len(shown)-1].ID)
	// Other items untouched.
	assert.Equal(t, []string{"a", "b", "c", "doc-1"}, ids(all))
}

func TestCreate_FailureKeepsLocalItem(t *testing.T) {
	docs := seeded()
	docs.addErr = errors.New("quota")
	s := loaded(t, docs)

	_, op, err := s.Create("Buy milk")
	require.NoError(t, err)
	assert.ErrorIs(t, s.Apply(op(context.Background())), docs.addErr)
	all := s.All()
	require.Len(t, all, 4)
	assert.Equal(t, "Buy milk", all[3].Body)
	assert.False(t, all[3].Synced())

	// Unsynced items cannot be addressed by id.
	_, err = s.ToggleStatus(all[3].ID)
	assert.ErrorIs(t, err, ErrNotSynced)
}

func TestCreate_Validation(t *testing.T) {
	s := New(seeded(), logging.Discard())
	_, _, err := s.Create("x")
	assert.ErrorIs(t, err, ErrSignedOut)

	s = loaded(t, seeded())
	_, _, err = s.Create("   ")
	assert.ErrorIs(t, err, ErrEmptyBody)
}

func TestCreate_ConfirmationAfterSignOutIgnored(t *testing.T) {
	s := loaded(t, seeded())
	_, op, err := s.Create("late")
	require.NoError(t, err)
	s.Clear()
	require.NoError(t, s.Apply(op(context.Background())))
	assert.Empty(t, s.All())
}

func TestToggleTwice(t *testing.T) {
	docs := seeded()
	s := loaded(t, docs)

	for i := 0; i < 2; i++ {
		op, err := s.ToggleStatus("a")
		require.NoError(t, err)
		require.NoError(t, s.Apply(op(context.Background())))
	}
	assert.Equal(t, model.StatusActive, s.All()[0].Status)
	require.Len(t, docs.sets, 2)
	assert.Equal(t, model.StatusDone, docs.sets[0].Status)
	assert.Equal(t, model.StatusActive, docs.sets[1].Status)
	assert.Equal(t, "a", docs.sets[1].ID)
}

func TestToggle_RederivesFilteredSet(t *testing.T) {
	s := loaded(t, seeded())
	s.SetFilter(model.FilterActive)
	_, err := s.ToggleStatus("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, ids(s.Displayed()))
	assert.Equal(t, []string{"a", "b", "c"}, ids(s.All()))
}

func TestEdit_DoesNotAliasPreviousSlices(t *testing.T) {
	docs := seeded()
	s := loaded(t, docs)
	before := s.All()
	shownBefore := s.Displayed()

	op, err := s.Edit("b", "two, edited")
	require.NoError(t, err)
	assert.Equal(t, "two", before[1].Body)
	assert.Equal(t, "two", shownBefore[1].Body)
	assert.Equal(t, "two, edited", s.All()[1].Body)

	require.NoError(t, s.Apply(op(context.Background())))
	require.Len(t, docs.sets, 1)
	assert.Equal(t, model.Todo{ID: "b", Body: "two, edited", Status: model.StatusDone, UID: "u1", CreatedAt: t0.Add(time.Minute)}, docs.sets[0])
}

func TestEdit_WhileFilteredKeepsFullSet(t *testing.T) {
	s := loaded(t, seeded())
	s.SetFilter(model.FilterDone)
	_, err := s.Edit("b", "renamed")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(s.All()))
	assert.Equal(t, []string{"b"}, ids(s.Displayed()))
}

func TestEdit_FailureNoRollback(t *testing.T) {
	docs := seeded()
	docs.setErr = errors.New("denied")
	s := loaded(t, docs)
	op, err := s.Edit("a", "changed")
	require.NoError(t, err)
	assert.ErrorIs(t, s.Apply(op(context.Background())), docs.setErr)
	assert.Equal(t, "changed", s.All()[0].Body)
}

func TestEdit_Errors(t *testing.T) {
	s := loaded(t, seeded())
	_, err := s.Edit("missing", "x")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Edit("a", " ")
	assert.ErrorIs(t, err, ErrEmptyBody)
}

func TestDelete_Pessimistic(t *testing.T) {
	docs := seeded()
	s := loaded(t, docs)

	op, err := s.Delete("b")
	require.NoError(t, err)
	// Not removed until the backend confirms.
	assert.Equal(t, []string{"a", "b", "c"}, ids(s.Displayed()))

	require.NoError(t, s.Apply(op(context.Background())))
	assert.Equal(t, []string{"a", "c"}, ids(s.All()))
	assert.Equal(t, []string{"a", "c"}, ids(s.Displayed()))
	assert.Equal(t, []string{"b"}, docs.deletes)
}

func TestDelete_FailureKeepsItem(t *testing.T) {
	docs := seeded()
	docs.deleteErr = errors.New("offline")
	s := loaded(t, docs)
	before := s.All()

	op, err := s.Delete("b")
	require.NoError(t, err)
	assert.ErrorIs(t, s.Apply(op(context.Background())), docs.deleteErr)
	assert.Equal(t, before, s.All())
	assert.Equal(t, before, s.Displayed())

	_, err = s.Delete("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClear(t *testing.T) {
	s := loaded(t, seeded())
	s.SetFilter(model.FilterDone)
	s.Clear()
	assert.Empty(t, s.All())
	assert.Empty(t, s.Displayed())
	assert.Empty(t, s.UID())
}

func TestCounts(t *testing.T) {
	s := loaded(t, seeded())
	active, done := s.Counts()
	assert.Equal(t, 2, active)
	assert.Equal(t, 1, done)
}
