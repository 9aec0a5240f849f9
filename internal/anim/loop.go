// Package anim schedules redraws. The loop ticks only while something on
// screen can change and is suspended for the length of an export, which
// drives its own fixed-step clock.
package anim

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultRefreshHz is the interactive redraw rate.
const DefaultRefreshHz = 60

var ErrExportInProgress = errors.New("export already in progress")

// State is where the loop is in its lifecycle.
type State int

const (
	Idle State = iota
	Animating
	Exporting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Animating:
		return "animating"
	case Exporting:
		return "exporting"
	}
	return "unknown"
}

// Conditions are the reasons to keep redrawing.
type Conditions struct {
	// Effects is set when a visible layer has an animated effect.
	Effects bool
	// Drawing is set while a pointer is down.
	Drawing bool
	// Hover is set while the brush outline follows the pointer.
	Hover bool
}

// Active reports whether any condition wants frames.
func (c Conditions) Active() bool {
	return c.Effects || c.Drawing || c.Hover
}

// Config tunes a Loop.
type Config struct {
	// RefreshHz is how often the tick callback runs (default 60).
	RefreshHz int
	Logger    *slog.Logger
}

func (c *Config) defaults() {
	if c.RefreshHz <= 0 {
		c.RefreshHz = DefaultRefreshHz
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Loop is the {Idle, Animating, Exporting} state machine around a ticker.
type Loop struct {
	mu       sync.Mutex
	state    State
	cond     Conditions
	interval time.Duration
	epoch    time.Time
	tick     func(t float64)
	cancel   context.CancelFunc
	done     chan struct{}
	closed   bool
	log      *slog.Logger
}

// New returns an idle loop. tick receives the seconds elapsed since New.
func New(cfg Config, tick func(t float64)) *Loop {
	cfg.defaults()
	return &Loop{
		interval: time.Second / time.Duration(cfg.RefreshHz),
		epoch:    time.Now(),
		tick:     tick,
		log:      cfg.Logger.With("component", "anim"),
	}
}

// State returns the current state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Elapsed is the loop clock in seconds.
func (l *Loop) Elapsed() float64 {
	return time.Since(l.epoch).Seconds()
}

// Update records new conditions and starts or stops ticking to match.
// During an export the conditions are only remembered.
func (l *Loop) Update(c Conditions) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cond = c
	if l.state == Exporting {
		return
	}
	if c.Active() {
		l.startLocked()
	} else {
		l.stopLocked()
	}
}

// Start begins ticking. It is a no-op when already animating or exporting.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == Exporting {
		return
	}
	l.startLocked()
}

// Stop halts ticking. It is a no-op when idle. Stop does not wait for an
// in-flight tick, so it may be called from the tick callback.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == Exporting {
		return
	}
	l.stopLocked()
}

// BeginExport suspends ticking until EndExport. It waits for any in-flight
// tick to return and must not be called from the tick callback.
func (l *Loop) BeginExport() error {
	l.mu.Lock()
	if l.state == Exporting {
		l.mu.Unlock()
		return ErrExportInProgress
	}
	done := l.done
	l.stopLocked()
	l.state = Exporting
	l.mu.Unlock()

	if done != nil {
		<-done
	}
	l.log.Debug("export started")
	return nil
}

// EndExport leaves export mode and resumes ticking if the last conditions
// still want frames.
func (l *Loop) EndExport() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Exporting {
		return
	}
	l.state = Idle
	if l.cond.Active() {
		l.startLocked()
	}
	l.log.Debug("export finished", "state", l.state)
}

// Close stops the loop and waits for the ticker goroutine to exit. A closed
// loop never ticks again, even when an export still in flight ends later.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	done := l.done
	l.stopLocked()
	l.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (l *Loop) startLocked() {
	if l.cancel != nil || l.closed {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	l.cancel, l.done = cancel, done
	l.state = Animating
	go l.run(ctx, done)
	l.log.Debug("loop started")
}

func (l *Loop) stopLocked() {
	if l.cancel == nil {
		return
	}
	l.cancel()
	l.cancel, l.done = nil, nil
	l.state = Idle
	l.log.Debug("loop stopped")
}

func (l *Loop) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			if l.tick != nil {
				l.tick(now.Sub(l.epoch).Seconds())
			}
		}
	}
}
