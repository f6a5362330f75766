package advisory

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Notifier receives advisories. Implementations must not block for long and
// must not panic.
type Notifier interface {
	Notify(a Advisory)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(a Advisory)

// Notify calls f(a).
func (f NotifierFunc) Notify(a Advisory) { f(a) }

// WriterNotifier prints advisories as warnings to an io.Writer.
type WriterNotifier struct {
	w io.Writer
}

// NewWriterNotifier writes to w, or to stderr when w is nil.
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	if w == nil {
		w = os.Stderr
	}
	return &WriterNotifier{w: w}
}

// Notify writes one warning block. Write errors are dropped.
func (n *WriterNotifier) Notify(a Advisory) {
	fmt.Fprintf(n.w, "UpdateWarning: %s\n", a.Message)
}

// Collector stores advisories for later inspection. Safe for concurrent use.
type Collector struct {
	mu        sync.Mutex
	collected []Advisory
}

// Notify records a.
func (c *Collector) Notify(a Advisory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.collected = append(c.collected, a)
}

// Advisories returns a copy of everything collected so far.
func (c *Collector) Advisories() []Advisory {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Advisory, len(c.collected))
	copy(out, c.collected)
	return out
}

// Len returns the number of collected advisories.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.collected)
}
