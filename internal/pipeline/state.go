package pipeline

import (
	"github.com/dgallion1/docpage/internal/doctree"
	"github.com/dgallion1/docpage/internal/view"
)

// Status is where a loader is in its request lifecycle.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusLoaded  Status = "loaded"
	StatusErrored Status = "errored"
)

// State is the view model owned by one Loader.
type State struct {
	Generation uint64
	Status     Status
	Request    doctree.Request

	IsLoading     bool // Loading indicator visible
	Title         string
	Body          string // Rendered HTML, or the error message when Errored
	TOCHeadings   []doctree.Heading
	FrontMatter   doctree.FrontMatter
	HideTOC       bool
	PendingScroll string
}

// Input is the presentation-facing part of the state.
func (s State) Input() view.Input {
	return view.Input{
		IsLoading:     s.IsLoading,
		Errored:       s.Status == StatusErrored,
		Title:         s.Title,
		Body:          s.Body,
		TOCHeadings:   s.TOCHeadings,
		FrontMatter:   s.FrontMatter,
		HideTOC:       s.HideTOC,
		PendingScroll: s.PendingScroll,
	}
}

// Event is an input to Reduce. Every event is tagged with the generation
// of the request that produced it.
type Event interface {
	generation() uint64
}

// Requested starts a new request. Its generation must be newer than the
// state's.
type Requested struct {
	Generation uint64
	Request    doctree.Request
}

// LoadingTimedOut fires when a fetch outlives the loading timeout.
type LoadingTimedOut struct {
	Generation uint64
}

// Succeeded carries a parsed and rendered document.
type Succeeded struct {
	Generation uint64
	Document   doctree.Document
}

// Failed carries the message of a pipeline error.
type Failed struct {
	Generation uint64
	Message    string
}

// Scrolled clears the pending scroll target.
type Scrolled struct {
	Generation uint64
}

func (e Requested) generation() uint64       { return e.Generation }
func (e LoadingTimedOut) generation() uint64 { return e.Generation }
func (e Succeeded) generation() uint64       { return e.Generation }
func (e Failed) generation() uint64          { return e.Generation }
func (e Scrolled) generation() uint64        { return e.Generation }

// Reduce applies e to s. It reports false, leaving s unchanged, when the
// event is stale or not valid in the current status.
func Reduce(s State, e Event) (State, bool) {
	if req, ok := e.(Requested); ok {
		if req.Generation <= s.Generation {
			return s, false
		}
		return State{
			Generation:  req.Generation,
			Status:      StatusLoading,
			Request:     req.Request,
			FrontMatter: doctree.FrontMatter{},
		}, true
	}

	if e.generation() != s.Generation {
		return s, false
	}

	switch ev := e.(type) {
	case LoadingTimedOut:
		if s.Status != StatusLoading {
			return s, false
		}
		s.IsLoading = true
		return s, true

	case Succeeded:
		if s.Status != StatusLoading {
			return s, false
		}
		doc := ev.Document
		s.Status = StatusLoaded
		s.IsLoading = false
		s.Title = doc.Title
		s.HideTOC = doc.FrontMatter.HideTOC()
		s.FrontMatter = doc.FrontMatter
		s.TOCHeadings = doc.Headings
		if s.HideTOC {
			s.TOCHeadings = nil
		}
		s.Body = doc.Body
		s.PendingScroll = s.Request.Anchor
		return s, true

	case Failed:
		if s.Status != StatusLoading {
			return s, false
		}
		// FrontMatter and TOCHeadings keep whatever the request started with.
		s.Status = StatusErrored
		s.IsLoading = false
		s.HideTOC = true
		s.Title = ""
		s.Body = ev.Message
		return s, true

	case Scrolled:
		if s.PendingScroll == "" {
			return s, false
		}
		s.PendingScroll = ""
		return s, true
	}
	return s, false
}
