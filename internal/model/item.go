package model

import (
	"fmt"
	"strings"
	"time"
)

// Status is the completion state of a todo.
type Status string

const (
	StatusActive Status = "Active"
	StatusDone   Status = "Done"
)

// Toggle flips Active and Done.
func (s Status) Toggle() Status {
	if s == StatusDone {
		return StatusActive
	}
	return StatusDone
}

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusDone
}

// Todo is the domain model for a todo entry, mirrored from the "todos"
// collection of the backend.
type Todo struct {
	ID        string    `json:"id,omitempty" yaml:"id,omitempty"`
	Body      string    `json:"body" yaml:"body"`
	Status    Status    `json:"status" yaml:"status"`
	UID       string    `json:"uid" yaml:"uid"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`

	// Key identifies the item locally before the backend assigns an ID.
	Key string `json:"-" yaml:"-"`
}

// Synced reports whether the backend has confirmed the item.
func (t Todo) Synced() bool { return t.ID != "" }

func (t Todo) Done() bool { return t.Status == StatusDone }

// Session is the authenticated user. The zero value means signed out.
type Session struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

func (s Session) SignedIn() bool { return s.UID != "" }

// Filter selects which todos are displayed. FilterAll shows everything.
type Filter string

const (
	FilterAll    Filter = ""
	FilterActive Filter = Filter(StatusActive)
	FilterDone   Filter = Filter(StatusDone)
)

// Filters lists the choices offered by the sorting options, in order.
var Filters = []Filter{FilterAll, FilterActive, FilterDone}

func (f Filter) String() string {
	if f == FilterAll {
		return "All"
	}
	return string(f)
}

// Next cycles All -> Active -> Done -> All.
func (f Filter) Next() Filter {
	for i, x := range Filters {
		if x == f {
			return Filters[(i+1)%len(Filters)]
		}
	}
	return FilterAll
}

// ParseFilter accepts all|active|done in any case. The empty string and
// "none" mean FilterAll.
func ParseFilter(s string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all", "none":
		return FilterAll, nil
	case "active":
		return FilterActive, nil
	case "done":
		return FilterDone, nil
	}
	return FilterAll, fmt.Errorf("unknown filter %q (want all, active or done)", s)
}
