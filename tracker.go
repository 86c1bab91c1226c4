package vtree

// changeNode is one node of the change tracker's doubly-linked list.
type changeNode struct {
	prev, next *changeNode
	op         Op
	path       string
	entry      Entry
}

// collapseRule names what happens when newOp arrives for a path that
// already has a tracked node of op prior. suppress means
// "drop prior; track nothing" — the net effect of the two ops cancels out.
type collapseRule struct {
	result   Op
	suppress bool
}

// collapseTable lists every (prior, new) op pair that collapses. Any pair
// not listed here leaves the prior node in place and appends the new one
// after it, so both reach the patch (e.g. unlink then mkdir when a file is
// replaced by a directory at the same path).
var collapseTable = map[[2]Op]collapseRule{
	{OpUnlink, OpCreate}: {result: OpChange},
	{OpChange, OpChange}: {result: OpChange},
	{OpCreate, OpChange}: {result: OpCreate},
	{OpRmdir, OpMkdir}:   {suppress: true},
	{OpMkdir, OpRmdir}:   {suppress: true},
	{OpChange, OpUnlink}: {result: OpUnlink},
	{OpCreate, OpUnlink}: {suppress: true},
}

// changeTracker accumulates Changes in real time with the collapsing rules
// applied at track time, indexed by path for O(1) lookup of a path's
// current tracked node.
type changeTracker struct {
	head, tail *changeNode
	index      map[string]*changeNode
}

func newChangeTracker() *changeTracker {
	return &changeTracker{index: make(map[string]*changeNode)}
}

func (c *changeTracker) append(op Op, path string, entry Entry) *changeNode {
	n := &changeNode{op: op, path: path, entry: entry}
	if c.tail == nil {
		c.head, c.tail = n, n
	} else {
		n.prev = c.tail
		c.tail.next = n
		c.tail = n
	}
	c.index[path] = n
	return n
}

func (c *changeTracker) unlink(n *changeNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		c.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		c.tail = n.prev
	}
	delete(c.index, n.path)
}

// track records a new operation for path, applying the collapsing rules
// against whatever is currently tracked for that path.
func (c *changeTracker) track(op Op, path string, entry Entry) {
	prior, ok := c.index[path]
	if !ok {
		c.append(op, path, entry)
		return
	}

	rule, matched := collapseTable[[2]Op{prior.op, op}]
	if !matched {
		c.append(op, path, entry)
		return
	}
	c.unlink(prior)
	if rule.suppress {
		return
	}
	c.append(rule.result, path, entry)
}

// reset clears the tracker entirely; WritableTree.Start calls this.
func (c *changeTracker) reset() {
	c.head, c.tail = nil, nil
	c.index = make(map[string]*changeNode)
}

// list walks the linked list in encounter order.
func (c *changeTracker) list() Patch {
	patch := make(Patch, 0, len(c.index))
	for n := c.head; n != nil; n = n.next {
		patch = append(patch, Change{Op: n.op, Path: n.path, Entry: n.entry})
	}
	return patch
}

// snapshot returns the tracker's current contents in canonical order: all
// removals descending, then all additions/updates ascending.
func (c *changeTracker) snapshot() Patch {
	p := c.list()
	p.SortCanonical()
	return p
}
