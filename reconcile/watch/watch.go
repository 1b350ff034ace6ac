// Package watch reports changes made to a ledger file by other programs.
package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hako/durafmt"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// state tells external modifications from our own writes by modification
// time.
type state struct {
	mu      sync.Mutex
	lastMod time.Time
	selfMod time.Time
}

// markSelf records the modification time left by our own write.
func (s *state) markSelf(mod time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selfMod = mod
	if mod.After(s.lastMod) {
		s.lastMod = mod
	}
}

// observe reports whether mod is an external change not seen before.
func (s *state) observe(mod time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mod.Equal(s.selfMod) || !mod.After(s.lastMod) {
		return false
	}
	s.lastMod = mod
	return true
}

// Watcher calls a function when the watched file is modified by another
// program. The parent directory is watched so that files replaced by a
// rename are followed.
type Watcher struct {
	path     string
	onChange func()
	settle   time.Duration
	limiter  *rate.Limiter
	log      zerolog.Logger

	state      state
	lastNotify time.Time

	fsw  *fsnotify.Watcher
	done chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithSettle sets how long events must stop before the file is examined.
func WithSettle(d time.Duration) Option {
	return func(w *Watcher) {
		w.settle = d
	}
}

// WithInterval sets the minimum time between two calls of the change
// function.
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d <= 0 {
			w.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		w.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(w *Watcher) {
		w.log = log
	}
}

// New returns a Watcher for path calling onChange from its own goroutine.
// Watching starts with Start.
func New(path string, onChange func(), opts ...Option) *Watcher {
	w := &Watcher{
		path:     path,
		onChange: onChange,
		settle:   100 * time.Millisecond,
		limiter:  rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It returns once the watch is in place; events are
// handled until ctx is done or Close is called.
func (w *Watcher) Start(ctx context.Context) error {
	if w.fsw != nil {
		return errors.New("watcher already started")
	}
	if resolved, err := filepath.EvalSymlinks(w.path); err == nil {
		w.path = resolved
	}
	w.path = filepath.Clean(w.path)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return err
	}

	w.state.markSelf(w.modTime())
	w.fsw = fsw
	w.done = make(chan struct{})
	go w.loop(ctx)
	return nil
}

// Close stops watching and waits for the event loop to finish.
func (w *Watcher) Close() error {
	if w.fsw == nil {
		return nil
	}
	err := w.fsw.Close()
	<-w.done
	w.fsw = nil
	return err
}

// MarkInternalChange records that the file was just written by us, so the
// resulting events are not reported.
func (w *Watcher) MarkInternalChange() {
	w.state.markSelf(w.modTime())
}

func (w *Watcher) modTime() time.Time {
	fi, err := os.Stat(w.path)
	if err != nil {
		return time.Time{}
	}
	return fi.ModTime()
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	var timer *time.Timer
	var settled <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.settle)
			} else {
				timer.Reset(w.settle)
			}
			settled = timer.C
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Str("file", w.path).Msg("watch error")
		case <-settled:
			settled = nil
			if !w.state.observe(w.modTime()) {
				w.log.Debug().Str("file", w.path).Msg("ignoring own change")
				continue
			}
			if err := w.limiter.Wait(ctx); err != nil {
				return
			}
			if !w.lastNotify.IsZero() {
				w.log.Debug().Str("file", w.path).
					Str("since", durafmt.Parse(time.Since(w.lastNotify)).LimitFirstN(2).String()).
					Msg("file changed externally")
			}
			w.lastNotify = time.Now()
			w.onChange()
		}
	}
}
