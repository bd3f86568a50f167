package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/docpage/internal/doctree"
	"github.com/dgallion1/docpage/internal/markdown"
	"github.com/dgallion1/docpage/internal/scheduler"
	"github.com/dgallion1/docpage/internal/view"
)

// DefaultLoadingTimeout is how long a fetch may run before the loading
// indicator is shown.
const DefaultLoadingTimeout = time.Second

var (
	ErrEmptyPath  = errors.New("document path is required")
	ErrSuperseded = errors.New("request superseded by a newer one")
)

// Loaded is passed to Config.OnLoaded after each successful load.
type Loaded struct {
	FrontMatter doctree.FrontMatter
	Body        string
	Headings    []doctree.Heading
	PageClass   string
}

// Merged flattens the front matter and rendered output into one map.
// Output keys win over front matter keys of the same name.
func (l Loaded) Merged() map[string]any {
	out := make(map[string]any, len(l.FrontMatter)+3)
	for k, v := range l.FrontMatter {
		out[k] = v
	}
	headings := l.Headings
	if headings == nil {
		headings = []doctree.Heading{}
	}
	out["body"] = l.Body
	out["headings"] = headings
	out["pageClass"] = l.PageClass
	return out
}

// Scroller moves the host's viewport to an element id.
type Scroller interface {
	ScrollIntoView(id string)
}

// Config customises a Loader. The zero value is usable.
type Config struct {
	PageClass      string        // Passed through to OnLoaded unchanged
	LoadingTimeout time.Duration // DefaultLoadingTimeout when <= 0
	OnLoaded       func(Loaded)
	OnState        func(State) // Called after every applied transition
	Scheduler      scheduler.Scheduler
	Scroller       Scroller // Scrolling is skipped when nil
	Log            *slog.Logger
}

// Loader owns the state of one document view and drives it through the
// fetch, parse, render and present stages.
type Loader struct {
	id     string
	stages *Stages
	cfg    Config
	log    *slog.Logger

	mu           sync.Mutex
	state        State
	cancel       context.CancelFunc
	loadingTimer scheduler.Timer
	scrollTask   scheduler.Timer
}

func NewLoader(stages *Stages, cfg Config) *Loader {
	if cfg.LoadingTimeout <= 0 {
		cfg.LoadingTimeout = DefaultLoadingTimeout
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = scheduler.Real{}
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	id := uuid.NewString()
	return &Loader{
		id:     id,
		stages: stages,
		cfg:    cfg,
		log:    cfg.Log.With("loader_id", id),
		state:  State{Status: StatusIdle, FrontMatter: doctree.FrontMatter{}},
	}
}

// ID identifies this loader in logs.
func (l *Loader) ID() string {
	return l.id
}

// State returns a copy of the current state.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Load fetches and renders req.Path, superseding any request in flight.
// It returns ErrSuperseded when a newer request replaced this one before it
// finished, and the pipeline error when the document could not be loaded;
// in that case the error message is also the state's body.
func (l *Loader) Load(ctx context.Context, req doctree.Request) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l.mu.Lock()
	l.stopLocked()
	gen := l.state.Generation + 1
	st, _ := l.applyLocked(Requested{Generation: gen, Request: req})
	if strings.TrimSpace(req.Path) == "" {
		st, _ = l.applyLocked(Failed{Generation: gen, Message: ErrEmptyPath.Error()})
		l.mu.Unlock()
		l.notify(st)
		return ErrEmptyPath
	}
	l.cancel = cancel
	l.loadingTimer = l.cfg.Scheduler.AfterFunc(l.cfg.LoadingTimeout, func() {
		l.dispatch(LoadingTimedOut{Generation: gen})
	})
	l.mu.Unlock()
	l.notify(st)

	log := l.log.With("path", req.Path, "generation", gen)
	log.Debug("load started")

	doc, err := l.stages.Run(ctx, req.Path)

	var ev Event = Succeeded{Generation: gen, Document: doc}
	if err != nil {
		ev = Failed{Generation: gen, Message: err.Error()}
	}

	l.mu.Lock()
	st, applied := l.applyLocked(ev)
	if applied {
		l.stopTimerLocked()
		l.cancel = nil
	}
	l.mu.Unlock()

	if !applied {
		log.Debug("discarding stale result")
		return ErrSuperseded
	}
	l.notify(st)

	if err != nil {
		log.Warn("load failed", "error", err)
		return err
	}
	log.Info("document loaded", "title", doc.Title, "headings", len(doc.Headings))
	if l.cfg.OnLoaded != nil {
		l.cfg.OnLoaded(Loaded{
			FrontMatter: doc.FrontMatter,
			Body:        doc.Body,
			Headings:    doc.Headings,
			PageClass:   l.cfg.PageClass,
		})
	}
	return nil
}

// OnPathChange reloads when newPath differs from the current request. The
// new request has no anchor and starts from a fresh state.
func (l *Loader) OnPathChange(ctx context.Context, newPath string) error {
	l.mu.Lock()
	current := l.state.Request.Path
	l.mu.Unlock()
	if newPath == current {
		return nil
	}
	return l.Load(ctx, doctree.Request{Path: newPath})
}

// View presents the current state. When a scroll target is pending it
// schedules a scroll for the next idle tick; the target is cleared once
// that tick runs, whether or not the element exists. Without a Scroller
// the target is handed to the returned view and cleared immediately.
func (l *Loader) View() view.View {
	l.mu.Lock()
	s := l.state
	var cleared State
	consumed := false
	if !s.IsLoading && s.PendingScroll != "" && l.scrollTask == nil {
		if l.cfg.Scroller == nil {
			cleared, consumed = l.applyLocked(Scrolled{Generation: s.Generation})
		} else {
			gen, target, body := s.Generation, s.PendingScroll, s.Body
			l.scrollTask = l.cfg.Scheduler.Defer(func() {
				l.scroll(gen, target, body)
			})
		}
	}
	l.mu.Unlock()
	if consumed {
		l.notify(cleared)
	}
	return view.Present(s.Input())
}

// Close cancels any request in flight and stops scheduled work.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopLocked()
}

func (l *Loader) scroll(gen uint64, target, body string) {
	l.mu.Lock()
	current := gen == l.state.Generation
	l.mu.Unlock()
	if !current {
		return
	}

	if markdown.HasAnchor(body, target) {
		l.cfg.Scroller.ScrollIntoView(strings.TrimPrefix(target, "#"))
	} else {
		l.log.Debug("scroll target unavailable", "target", target)
	}

	l.mu.Lock()
	st, applied := l.applyLocked(Scrolled{Generation: gen})
	if applied {
		l.scrollTask = nil
	}
	l.mu.Unlock()
	if applied {
		l.notify(st)
	}
}

func (l *Loader) dispatch(e Event) {
	l.mu.Lock()
	st, applied := l.applyLocked(e)
	l.mu.Unlock()
	if applied {
		l.notify(st)
	}
}

func (l *Loader) applyLocked(e Event) (State, bool) {
	next, applied := Reduce(l.state, e)
	if applied {
		l.state = next
	}
	return l.state, applied
}

func (l *Loader) notify(s State) {
	if l.cfg.OnState != nil {
		l.cfg.OnState(s)
	}
}

func (l *Loader) stopTimerLocked() {
	if l.loadingTimer != nil {
		l.loadingTimer.Stop()
		l.loadingTimer = nil
	}
}

func (l *Loader) stopLocked() {
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.stopTimerLocked()
	if l.scrollTask != nil {
		l.scrollTask.Stop()
		l.scrollTask = nil
	}
}
