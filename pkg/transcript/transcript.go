// Package transcript holds the rendered conversation: an ordered list of
// nodes that UIs draw. It replaces the page's message container.
package transcript

import (
	"sync"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message, as produced by the dispatcher.
type Turn struct {
	Role    Role
	Content string
}

type Kind string

const (
	KindTurn   Kind = "turn"
	KindTyping Kind = "typing"
)

// Node is one rendered entry. HTML is safe to embed: user text is escaped
// and assistant markdown is sanitized. Raw keeps the original text for
// terminal rendering and copying.
type Node struct {
	ID        string
	Kind      Kind
	Role      Role
	Raw       string
	HTML      string
	CreatedAt time.Time
}

// Turn returns the node's turn. It is meaningful for KindTurn only.
func (n Node) Turn() Turn {
	return Turn{Role: n.Role, Content: n.Raw}
}

// Container is the concurrency-safe transcript. Sends run on their own
// goroutines, so every method takes the lock.
type Container struct {
	mu       sync.RWMutex
	nodes    []Node
	scrolls  uint64
	onChange func()
}

func NewContainer() *Container {
	return &Container{}
}

// OnChange registers a hook called after every mutation, outside the lock.
func (c *Container) OnChange(f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = f
}

func (c *Container) Append(n Node) {
	c.mu.Lock()
	c.nodes = append(c.nodes, n)
	f := c.onChange
	c.mu.Unlock()
	notify(f)
}

// Remove deletes the node with id and reports whether one was present.
func (c *Container) Remove(id string) bool {
	c.mu.Lock()
	idx := c.indexLocked(id)
	if idx < 0 {
		c.mu.Unlock()
		return false
	}
	c.nodes = append(c.nodes[:idx], c.nodes[idx+1:]...)
	f := c.onChange
	c.mu.Unlock()
	notify(f)
	return true
}

// AppendUnique appends n unless a node with the same id exists. It reports
// whether n was appended.
func (c *Container) AppendUnique(n Node) bool {
	c.mu.Lock()
	if c.indexLocked(n.ID) >= 0 {
		c.mu.Unlock()
		return false
	}
	c.nodes = append(c.nodes, n)
	f := c.onChange
	c.mu.Unlock()
	notify(f)
	return true
}

func (c *Container) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.indexLocked(id) >= 0
}

func (c *Container) Clear() {
	c.mu.Lock()
	c.nodes = nil
	f := c.onChange
	c.mu.Unlock()
	notify(f)
}

// ScrollToEnd records a request to show the newest node. Views compare
// ScrollRequests against the last value they handled.
func (c *Container) ScrollToEnd() {
	c.mu.Lock()
	c.scrolls++
	f := c.onChange
	c.mu.Unlock()
	notify(f)
}

func (c *Container) ScrollRequests() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scrolls
}

// Nodes returns a copy of the current nodes in order.
func (c *Container) Nodes() []Node {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Node, len(c.nodes))
	copy(out, c.nodes)
	return out
}

// Turns returns the turn nodes in order, skipping placeholders.
func (c *Container) Turns() []Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Turn, 0, len(c.nodes))
	for _, n := range c.nodes {
		if n.Kind == KindTurn {
			out = append(out, n.Turn())
		}
	}
	return out
}

// Count returns the number of nodes of kind k.
func (c *Container) Count(k Kind) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, node := range c.nodes {
		if node.Kind == k {
			n++
		}
	}
	return n
}

func (c *Container) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.nodes)
}

func (c *Container) indexLocked(id string) int {
	for i := range c.nodes {
		if c.nodes[i].ID == id {
			return i
		}
	}
	return -1
}

func notify(f func()) {
	if f != nil {
		f()
	}
}
