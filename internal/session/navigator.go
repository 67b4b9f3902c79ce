package session

import (
	"context"
	"sync"
)

// Checker resolves the current session
type Checker interface {
	Check(ctx context.Context) Session
}

// Navigator holds the one session snapshot shared by everything rendered for
// the current location. Each navigation re-checks the session; a check that
// finishes after a newer navigation started is dropped.
type Navigator struct {
	checker Checker

	mu      sync.Mutex
	current Session
	route   Route
	gen     uint64
	cancel  context.CancelFunc
}

// NewNavigator creates a Navigator in the unknown state
func NewNavigator(checker Checker) *Navigator {
	return &Navigator{
		checker: checker,
		current: Session{State: StateUnknown, Role: RoleUnknown},
		route:   RouteLanding,
	}
}

// Navigate moves to route and re-resolves the session. It returns the
// snapshot current when the check finished, which is the newer navigation's
// snapshot if this one went stale.
func (n *Navigator) Navigate(ctx context.Context, route Route) Session {
	n.mu.Lock()
	n.gen++
	gen := n.gen
	if n.cancel != nil {
		n.cancel()
	}
	checkCtx, cancel := context.WithCancel(ctx)
	n.cancel = cancel
	n.route = route
	n.current = Session{State: StateChecking, Role: RoleUnknown}
	n.mu.Unlock()

	s := n.checker.Check(checkCtx)

	n.mu.Lock()
	defer n.mu.Unlock()
	cancel()
	if gen != n.gen {
		return n.current
	}
	n.cancel = nil
	n.current = s
	return s
}

// Current returns the latest published snapshot
func (n *Navigator) Current() Session {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Route returns the location of the latest navigation
func (n *Navigator) Route() Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.route
}

// SignOut drops any in-flight check and moves to the landing page as
// anonymous
func (n *Navigator) SignOut() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.gen++
	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
	n.current = Anonymous
	n.route = RouteLanding
}
