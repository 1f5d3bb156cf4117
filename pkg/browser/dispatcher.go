package browser

// Handler reacts to a single event. Handlers run to completion.
type Handler func(Event)

// Source is what observers subscribe to.
type Source interface {
	On(t Type, h Handler)
	Supports(c Capability) bool
}

// Dispatcher is an in-memory Source. It delivers each event to the handlers
// registered for its type in registration order. It is not safe for
// concurrent use; callers serialize Dispatch the way a page's event loop does.
type Dispatcher struct {
	handlers     map[Type][]Handler
	capabilities map[Capability]bool
}

// NewDispatcher returns a dispatcher exposing the given capabilities.
func NewDispatcher(capabilities ...Capability) *Dispatcher {
	d := &Dispatcher{
		handlers:     make(map[Type][]Handler),
		capabilities: make(map[Capability]bool, len(capabilities)),
	}
	for _, c := range capabilities {
		d.capabilities[c] = true
	}
	return d
}

func (d *Dispatcher) On(t Type, h Handler) {
	d.handlers[t] = append(d.handlers[t], h)
}

func (d *Dispatcher) Supports(c Capability) bool {
	return d.capabilities[c]
}

// Dispatch runs the handlers for ev.Type and returns how many ran.
func (d *Dispatcher) Dispatch(ev Event) int {
	handlers := d.handlers[ev.Type]
	for _, h := range handlers {
		h(ev)
	}
	return len(handlers)
}
