package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/tada/internal/backend"
	"github.com/Makepad-fr/tada/internal/session"
	"github.com/Makepad-fr/tada/internal/store"
)

// Results of work done off the update loop.
type (
	storeMsg   store.Result
	sessionMsg session.Result
	authMsg    struct{ user *backend.User }
)

func runStore(ctx context.Context, op store.Op) tea.Cmd {
	if op == nil {
		return nil
	}
	return func() tea.Msg { return storeMsg(op(ctx)) }
}

func runSession(ctx context.Context, op session.Op) tea.Cmd {
	if op == nil {
		return nil
	}
	return func() tea.Msg { return sessionMsg(op(ctx)) }
}

// waitAuth blocks for the next auth-state delivery. The loop re-arms it
// after every authMsg.
func waitAuth(ch <-chan *backend.User) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return nil
		}
		return authMsg{user: u}
	}
}
