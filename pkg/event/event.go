// Package event implements the single-fire, ordered event delivery used by
// the transaction core for POST_COMMIT and TX_FAILED.
package event

import (
	"context"
	"fmt"
)

// Name identifies a lifecycle event.
type Name string

const (
	PostCommit Name = "POST_COMMIT"
	TxFailed   Name = "TX_FAILED"
)

// Handler is a single-fire callback. Handlers must not mutate context
// state — they run after commit has already succeeded or failed.
type Handler func(ctx context.Context, payload any) error

type entry struct {
	name    string
	handler Handler
}

// Emitter holds an ordered list of (name, handler) pairs and fires them
// sequentially. It is private to one Context instance.
type Emitter struct {
	handlers map[Name][]entry
}

// NewEmitter returns an empty emitter.
func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[Name][]entry)}
}

// On registers a handler for event. name is an optional label used only in
// error messages. Returns an error if event is not a recognized name.
func (e *Emitter) On(event Name, fn Handler, name string) error {
	if event != PostCommit && event != TxFailed {
		return fmt.Errorf("firedoc: unknown event %q", event)
	}
	e.handlers[event] = append(e.handlers[event], entry{name: name, handler: fn})
	return nil
}

// Fire awaits every registered handler for event, in registration order.
// The first error stops delivery and is returned, wrapped with the
// offending handler's label.
func (e *Emitter) Fire(ctx context.Context, event Name, payload any) error {
	for _, ent := range e.handlers[event] {
		if err := ent.handler(ctx, payload); err != nil {
			if ent.name != "" {
				return fmt.Errorf("firedoc: event handler %q for %s failed: %w", ent.name, event, err)
			}
			return fmt.Errorf("firedoc: event handler for %s failed: %w", event, err)
		}
	}
	return nil
}

// Reset clears all registered handlers, used between retry attempts.
func (e *Emitter) Reset() {
	e.handlers = make(map[Name][]entry)
}
