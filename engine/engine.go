package engine

import (
	"github.com/tjpa/sgf-engine/calendar"
)

// Engine evaluates the deadline and compliance rules. It holds no mutable
// state of its own and may be shared across goroutines as long as its
// IDGenerator and holiday source are.
type Engine struct {
	calendar *calendar.Calendar
	ids      IDGenerator
	opts     Options
}

// New validates opts and returns an engine. A nil ids falls back to UUIDs.
func New(cal *calendar.Calendar, ids IDGenerator, opts Options) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if cal == nil {
		cal = calendar.New(nil)
	}
	if ids == nil {
		ids = UUIDs{}
	}
	return &Engine{calendar: cal, ids: ids, opts: opts.clone()}, nil
}

func (e *Engine) Calendar() *calendar.Calendar { return e.calendar }

// Options returns a copy of the engine's options.
func (e *Engine) Options() Options { return e.opts.clone() }

// NewID draws an id from the engine's generator, for alerts composed outside
// the engine that must share its id space.
func (e *Engine) NewID() string { return e.ids.NewID() }
