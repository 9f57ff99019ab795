package model

// Closure is the {call, drop, context} record used for stateful,
// memory-leak-free callbacks: the registry that stores a Closure owns its
// context and guarantees Drop runs exactly once, whatever path removes the
// entity (explicit undeclare, or session teardown).
//
// T is the event type delivered to Call: model.Sample for subscriptions,
// *Query for queryables, Reply for pending queries, *Hello for scouting.
type Closure[T any] struct {
	Call    func(T)
	Drop    func()
	dropped bool
}

// Invoke calls the closure's Call function. Panics raised by user code are
// the caller's responsibility to recover (see session/dispatch.go, which
// wraps every callback invocation in a recover()).
func (c *Closure[T]) Invoke(event T) {
	if c.Call != nil {
		c.Call(event)
	}
}

// Release runs Drop exactly once; subsequent calls are no-ops.
func (c *Closure[T]) Release() {
	if c.dropped {
		return
	}
	c.dropped = true
	if c.Drop != nil {
		c.Drop()
	}
}
