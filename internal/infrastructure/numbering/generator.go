// Package numbering assigns receipt numbers derived from the issuance time.
package numbering

import (
	"fmt"
	"sync"
	"time"
)

// MinuteLayout is the time prefix of every receipt number
const MinuteLayout = "200601021504"

// MaxSequence is the largest four digit suffix
const MaxSequence = 9999

// Clock returns the current time
type Clock func() time.Time

// Option configures a generator
type Option func(*options)

type options struct {
	clock    Clock
	location *time.Location
}

// WithClock overrides the time source
func WithClock(c Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithLocation sets the time zone the minute prefix is computed in
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.location = loc
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{clock: time.Now, location: time.Local}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// MinuteGenerator returns YYYYMMDDHHMM. Two calls in the same minute
// return the same number.
type MinuteGenerator struct {
	opts options
}

// NewMinuteGenerator creates a MinuteGenerator
func NewMinuteGenerator(opts ...Option) *MinuteGenerator {
	return &MinuteGenerator{opts: buildOptions(opts)}
}

// Generate returns the current minute stamp
func (g *MinuteGenerator) Generate() string {
	return g.opts.clock().In(g.opts.location).Format(MinuteLayout)
}

// SequenceGenerator returns YYYYMMDDHHMM followed by a four digit sequence
// that restarts every minute. Numbers are fixed width and strictly
// increasing within the process. If the clock moves backwards the last
// minute is kept and the sequence keeps counting. After 9999 numbers in
// one minute the prefix moves on to the following minute.
type SequenceGenerator struct {
	opts options

	mu     sync.Mutex
	minute time.Time
	seq    int
}

// NewSequenceGenerator creates a SequenceGenerator
func NewSequenceGenerator(opts ...Option) *SequenceGenerator {
	return &SequenceGenerator{opts: buildOptions(opts)}
}

// Generate returns the next receipt number
func (g *SequenceGenerator) Generate() string {
	now := g.opts.clock().Truncate(time.Minute)

	g.mu.Lock()
	defer g.mu.Unlock()

	if now.After(g.minute) {
		g.minute = now
		g.seq = 0
	}
	if g.seq == MaxSequence {
		g.minute = g.minute.Add(time.Minute)
		g.seq = 0
	}
	g.seq++
	return fmt.Sprintf("%s%04d", g.minute.In(g.opts.location).Format(MinuteLayout), g.seq)
}

// Strategy names accepted by New
const (
	StrategySequence = "sequence"
	StrategyMinute   = "minute"
)

// Generator is satisfied by both strategies
type Generator interface {
	Generate() string
}

// New builds the generator for a configured strategy
func New(strategy string, opts ...Option) (Generator, error) {
	switch strategy {
	case StrategySequence, "":
		return NewSequenceGenerator(opts...), nil
	case StrategyMinute:
		return NewMinuteGenerator(opts...), nil
	default:
		return nil, fmt.Errorf("unknown numbering strategy %q", strategy)
	}
}
