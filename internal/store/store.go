// Package store keeps the signed-in user's todos in memory and mirrors every
// mutation to the backend.
//
// A Store is not safe for concurrent use. Mutating methods change local
// state immediately and return an Op; the caller runs the Op wherever it
// likes (a tea.Cmd, a goroutine, inline) and hands the Result back to Apply
// on the goroutine that owns the Store.
package store

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/Makepad-fr/tada/internal/backend"
	"github.com/Makepad-fr/tada/internal/filter"
	"github.com/Makepad-fr/tada/internal/model"
)

var (
	ErrNotFound  = errors.New("todo not found")
	ErrNotSynced = errors.New("todo not saved yet")
	ErrEmptyBody = errors.New("todo body is empty")
	ErrSignedOut = errors.New("not signed in")
)

// Kind tells Apply which operation a Result finishes.
type Kind int

const (
	Loaded Kind = iota + 1
	Created
	Updated
	Deleted
)

func (k Kind) String() string {
	switch k {
	case Loaded:
		return "load"
	case Created:
		return "create"
	case Updated:
		return "update"
	case Deleted:
		return "delete"
	}
	return "unknown"
}

// Result is the outcome of an Op.
type Result struct {
	Kind  Kind
	UID   string       // Loaded
	Items []model.Todo // Loaded
	Key   string       // Created
	ID    string
	Err   error
}

// Op performs one backend call. It touches no Store state.
type Op func(ctx context.Context) Result

type Store struct {
	docs   backend.Documents
	log    *log.Logger
	now    func() time.Time
	newKey func() string

	uid     string
	loading bool
	all     []model.Todo
	shown   []model.Todo
	filter  model.Filter
}

type Option func(*Store)

// WithClock overrides time.Now for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(docs backend.Documents, logger *log.Logger, opts ...Option) *Store {
	s := &Store{
		docs:   docs,
		log:    logger,
		now:    time.Now,
		newKey: uuid.NewString,
		all:    []model.Todo{},
		shown:  []model.Todo{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) UID() string          { return s.uid }
func (s *Store) Loading() bool        { return s.loading }
func (s *Store) Filter() model.Filter { return s.filter }

// All returns a copy of the full set in creation order.
func (s *Store) All() []model.Todo { return slices.Clone(s.all) }

// Displayed returns a copy of the filtered set.
func (s *Store) Displayed() []model.Todo { return slices.Clone(s.shown) }

// Counts returns the active and done totals of the full set.
func (s *Store) Counts() (active, done int) { return filter.Count(s.all) }

// SetFilter re-derives the displayed set from the full set.
func (s *Store) SetFilter(f model.Filter) {
	s.filter = f
	s.derive()
}

// Clear forgets the user and empties both sets.
func (s *Store) Clear() {
	s.uid = ""
	s.loading = false
	s.replace([]model.Todo{})
}

// Load switches the store to uid and returns the fetch. Both sets stay
// empty until the Result is applied.
func (s *Store) Load(uid string) Op {
	s.uid = uid
	s.loading = true
	s.replace([]model.Todo{})
	docs := s.docs
	return func(ctx context.Context) Result {
		items, err := docs.Query(ctx, uid)
		return Result{Kind: Loaded, UID: uid, Items: items, Err: err}
	}
}

// Create appends a new active todo to the full set right away and returns
// the insert.
func (s *Store) Create(body string) (model.Todo, Op, error) {
	if s.uid == "" {
		return model.Todo{}, nil, ErrSignedOut
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return model.Todo{}, nil, ErrEmptyBody
	}
	t := model.Todo{
		Body:      body,
		Status:    model.StatusActive,
		UID:       s.uid,
		CreatedAt: s.now().UTC(),
		Key:       s.newKey(),
	}
	next := slices.Clone(s.all)
	s.replace(append(next, t))

	docs := s.docs
	return t, func(ctx context.Context) Result {
		id, err := docs.Add(ctx, t)
		return Result{Kind: Created, Key: t.Key, ID: id, Err: err}
	}, nil
}

// Edit replaces the body of the todo with id and returns the upsert.
func (s *Store) Edit(id, body string) (Op, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyBody
	}
	return s.update(id, func(t *model.Todo) { t.Body = body })
}

// ToggleStatus flips Active and Done on the todo with id and returns the
// upsert.
func (s *Store) ToggleStatus(id string) (Op, error) {
	return s.update(id, func(t *model.Todo) { t.Status = t.Status.Toggle() })
}

// update builds a new full set holding a modified copy of the todo with id.
// Previously returned slices are never written to.
func (s *Store) update(id string, mutate func(*model.Todo)) (Op, error) {
	i, err := s.index(id)
	if err != nil {
		return nil, err
	}
	next := slices.Clone(s.all)
	mutate(&next[i])
	t := next[i]
	s.replace(next)

	docs := s.docs
	return func(ctx context.Context) Result {
		return Result{Kind: Updated, ID: t.ID, Err: docs.Set(ctx, t)}
	}, nil
}

// Delete returns the backend delete. Local state changes only when Apply
// sees a successful Result.
func (s *Store) Delete(id string) (Op, error) {
	if _, err := s.index(id); err != nil {
		return nil, err
	}
	docs := s.docs
	return func(ctx context.Context) Result {
		return Result{Kind: Deleted, ID: id, Err: docs.Delete(ctx, id)}
	}, nil
}

// Apply reconciles a finished Op. Failures are logged and returned; only a
// failed load or delete leaves a visible trace in local state.
func (s *Store) Apply(r Result) error {
	switch r.Kind {
	case Loaded:
		if r.UID != s.uid {
			// Session changed while the fetch was in flight.
			return nil
		}
		s.loading = false
		// Todos created while the fetch was in flight have no id yet and
		// are kept after the loaded ones.
		pending := slices.DeleteFunc(slices.Clone(s.all), func(t model.Todo) bool { return t.ID != "" })
		if r.Err != nil {
			s.log.Error("Error getting documents", "uid", r.UID, "err", r.Err)
			s.replace(pending)
			return r.Err
		}
		items := append(slices.Clone(r.Items), pending...)
		if items == nil {
			items = []model.Todo{}
		}
		s.replace(items)

	case Created:
		if r.Err != nil {
			s.log.Error("Error adding document", "err", r.Err)
			return r.Err
		}
		i := slices.IndexFunc(s.all, func(t model.Todo) bool { return t.Key == r.Key })
		if i < 0 {
			return nil
		}
		next := slices.Clone(s.all)
		if slices.ContainsFunc(next, func(t model.Todo) bool { return t.ID == r.ID }) {
			// A load already returned the stored document.
			next = slices.Delete(next, i, i+1)
		} else {
			next[i].ID = r.ID
		}
		s.replace(next)

	case Updated:
		if r.Err != nil {
			s.log.Error("Error updating document", "id", r.ID, "err", r.Err)
			return r.Err
		}

	case Deleted:
		if r.Err != nil {
			s.log.Error("Error removing document", "id", r.ID, "err", r.Err)
			return r.Err
		}
		next := slices.DeleteFunc(slices.Clone(s.all), func(t model.Todo) bool { return t.ID == r.ID })
		s.replace(next)
	}
	return nil
}

// Sync runs op inline and applies its Result. Used by the CLI, which has no
// event loop to hand the Op to.
func (s *Store) Sync(ctx context.Context, op Op) error {
	return s.Apply(op(ctx))
}

func (s *Store) index(id string) (int, error) {
	if id == "" {
		return -1, ErrNotSynced
	}
	i := slices.IndexFunc(s.all, func(t model.Todo) bool { return t.ID == id })
	if i < 0 {
		return -1, ErrNotFound
	}
	return i, nil
}

func (s *Store) replace(all []model.Todo) {
	s.all = all
	s.derive()
}

func (s *Store) derive() {
	s.shown = filter.Apply(s.all, s.filter)
}
