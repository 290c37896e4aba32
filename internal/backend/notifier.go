package backend

import "sync"

// Notifier fans auth-state changes out to subscribers. Each subscriber has
// a one-slot buffer holding only the latest state, so a slow reader never
// blocks a publisher and never sees a stale state after a newer one.
type Notifier struct {
	mu      sync.Mutex
	current *User
	subs    map[int]chan *User
	next    int
}

func NewNotifier() *Notifier {
	return &Notifier{subs: map[int]chan *User{}}
}

// Current returns the last published user, nil when signed out.
func (n *Notifier) Current() *User {
	n.mu.Lock()
	defer n.mu.Unlock()
	return clone(n.current)
}

// Publish records u as the current state and notifies subscribers.
func (n *Notifier) Publish(u *User) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = clone(u)
	for _, ch := range n.subs {
		push(ch, clone(u))
	}
}

// Subscribe implements Auth.Subscribe.
func (n *Notifier) Subscribe() (<-chan *User, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.next
	n.next++
	ch := make(chan *User, 1)
	ch <- clone(n.current)
	n.subs[id] = ch

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if c, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// Close ends every subscription.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, ch := range n.subs {
		delete(n.subs, id)
		close(ch)
	}
}

// push replaces any undelivered value with u. Called with n.mu held, so
// there is no concurrent sender.
func push(ch chan *User, u *User) {
	select {
	case <-ch:
	default:
	}
	ch <- u
}

func clone(u *User) *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
