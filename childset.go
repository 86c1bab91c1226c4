package vtree

import (
	"sync"

	"github.com/google/uuid"
)

// childSet tracks the children of a tree so that tree can notify them on
// reread: every non-root tree holds a weak child-set back from its
// parent. Go has no weak references, so this is a plain map keyed by
// a uuid.UUID identity the child registers with and can later deregister
// with — the nearest idiomatic substitute for "weak": the parent never
// extends a child's lifetime beyond what the child itself already holds
// elsewhere, it just forgets about dead registrations when told to.
type childSet struct {
	mu       sync.Mutex
	children map[uuid.UUID]func()
}

func newChildSet() *childSet {
	return &childSet{children: make(map[uuid.UUID]func())}
}

// register adds a child's reread callback under a fresh identity and
// returns it so the child can later deregister.
func (c *childSet) register(onReread func()) uuid.UUID {
	id := uuid.New()
	c.mu.Lock()
	c.children[id] = onReread
	c.mu.Unlock()
	return id
}

// deregister removes a previously registered child.
func (c *childSet) deregister(id uuid.UUID) {
	c.mu.Lock()
	delete(c.children, id)
	c.mu.Unlock()
}

// notify invokes every registered callback. Cycles are impossible because
// the DAG is strict, so this never recurses back into c.
func (c *childSet) notify() {
	c.mu.Lock()
	callbacks := make([]func(), 0, len(c.children))
	for _, fn := range c.children {
		callbacks = append(callbacks, fn)
	}
	c.mu.Unlock()
	for _, fn := range callbacks {
		fn()
	}
}
