package replica

import (
	"sync"

	"boardsync/domain"
)

// Handler consumes one change event.
type Handler func(domain.ChangeEvent)

// Registration identifies one registered handler so it can be removed without
// touching sibling handlers for the same event name.
type Registration struct {
	name string
	fn   Handler
}

// Dispatcher routes incoming change events to handlers registered per event
// name (e.g. "task:created"). Views register on mount and must remove exactly
// their own registrations on unmount, otherwise a remount applies events
// twice.
type Dispatcher struct {
	mu       sync.Mutex
	handlers map[string][]*Registration
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string][]*Registration)}
}

// On registers a handler for the given event name and returns its
// registration handle.
func (d *Dispatcher) On(name string, fn Handler) *Registration {
	reg := &Registration{name: name, fn: fn}
	d.mu.Lock()
	d.handlers[name] = append(d.handlers[name], reg)
	d.mu.Unlock()
	return reg
}

// Off removes exactly the given registration. Other handlers for the same
// event name are untouched.
func (d *Dispatcher) Off(reg *Registration) {
	if reg == nil {
		return
	}
	d.mu.Lock()
	regs := d.handlers[reg.name]
	for i, r := range regs {
		if r == reg {
			d.handlers[reg.name] = append(regs[:i], regs[i+1:]...)
			break
		}
	}
	if len(d.handlers[reg.name]) == 0 {
		delete(d.handlers, reg.name)
	}
	d.mu.Unlock()
}

// Dispatch invokes every handler registered for the event's name.
func (d *Dispatcher) Dispatch(ev domain.ChangeEvent) {
	d.mu.Lock()
	regs := make([]*Registration, len(d.handlers[ev.Name()]))
	copy(regs, d.handlers[ev.Name()])
	d.mu.Unlock()
	for _, r := range regs {
		r.fn(ev)
	}
}
