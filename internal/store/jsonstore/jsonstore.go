// Package jsonstore reads and writes todo lists kept in a single JSON file,
// for export and import.
package jsonstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Makepad-fr/tada/internal/model"
)

// FileName is the default file, resolved against the working directory.
const FileName = "todos.json"

// entry accepts both the document shape written by Save and the older
// {"title", "done"} list.
type entry struct {
	Body   string       `json:"body"`
	Status model.Status `json:"status"`

	Title string `json:"title"`
	Done  bool   `json:"done"`
}

func (e entry) todo() (model.Todo, error) {
	t := model.Todo{Body: strings.TrimSpace(e.Body), Status: e.Status}
	if t.Body == "" {
		t.Body = strings.TrimSpace(e.Title)
	}
	if t.Status == "" {
		t.Status = model.StatusActive
		if e.Done {
			t.Status = model.StatusDone
		}
	}
	if t.Body == "" {
		return t, errors.New("empty body")
	}
	if !t.Status.Valid() {
		return t, fmt.Errorf("invalid status %q", t.Status)
	}
	return t, nil
}

// Load reads the todos in path. A missing file is an empty list. Only Body
// and Status are kept; ids and owners belong to the backend.
func Load(path string) ([]model.Todo, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.Todo{}, nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	var entries []entry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	out := make([]model.Todo, 0, len(entries))
	for i, e := range entries {
		t, err := e.todo()
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// document is what Save writes for each todo.
type document struct {
	Body   string       `json:"body"`
	Status model.Status `json:"status"`
}

// Save writes items as a list of {body, status}. Ids, owners and
// timestamps are left out so the file can be imported into any account.
func Save(path string, items []model.Todo) error {
	docs := make([]document, 0, len(items))
	for _, t := range items {
		docs = append(docs, document{Body: t.Body, Status: t.Status})
	}
	b, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}
