package session

import (
	"context"

	"github.com/netconf-light/agent/internal/trace"
)

// applyLock implements the LockTarget/Open(running) guard of spec.md §4.4
// and the Lock symmetry testable property: lock fails iff already locked,
// unlock fails iff not locked, and a successful pair always leaves locked
// false afterwards.
func (s *Session) applyLock(ctx context.Context, acquire bool) (ok bool, deniedMessage string) {
	if acquire {
		if s.locked {
			return false, "lock already taken"
		}
		s.locked = true
		trace.ContextTrace(ctx).LockChanged(s.id, true)
		return true, ""
	}
	if !s.locked {
		return false, "lock not held"
	}
	s.locked = false
	trace.ContextTrace(ctx).LockChanged(s.id, false)
	return true, ""
}
