// Package completion delivers the session result to the completion view and
// optional archives.
package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/Papince2059/Hiremind-AIrecruiter/internal/interview"
)

// Route is the completion view path.
const Route = "/completed"

// Handoff is the navigation to the completion view.
type Handoff struct {
	Route      string    `json:"route"`
	State      State     `json:"state"`
	Activation string    `json:"activation,omitempty"`
	At         time.Time `json:"at"`
}

// State is the route state read by the completion view.
type State struct {
	InterviewData interview.ResultRecord `json:"interviewData"`
}

// NewHandoff wraps record for the completion route.
func NewHandoff(record interview.ResultRecord, activation string, at time.Time) Handoff {
	return Handoff{
		Route:      Route,
		State:      State{InterviewData: record},
		Activation: activation,
		At:         at.UTC(),
	}
}

// Navigator consumes one handoff.
type Navigator interface {
	Navigate(context.Context, Handoff) error
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(context.Context, Handoff) error

func (f NavigatorFunc) Navigate(ctx context.Context, h Handoff) error {
	return f(ctx, h)
}

// WriterNavigator prints each handoff as one JSON line.
type WriterNavigator struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterNavigator(w io.Writer) *WriterNavigator {
	return &WriterNavigator{w: w}
}

func (n *WriterNavigator) Navigate(_ context.Context, h Handoff) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := json.NewEncoder(n.w).Encode(h); err != nil {
		return fmt.Errorf("write handoff: %w", err)
	}
	return nil
}

// FileArchive stores each handoff as a JSON file under Dir.
type FileArchive struct {
	Dir string
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func (a FileArchive) Navigate(_ context.Context, h Handoff) error {
	if err := os.MkdirAll(a.Dir, 0o700); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}

	id := unsafeName.ReplaceAllString(h.State.InterviewData.ID, "_")
	if id == "" {
		id = "interview"
	}
	name := fmt.Sprintf("%s-%s.json", id, h.At.UTC().Format("20060102T150405Z"))
	if h.Activation != "" {
		name = fmt.Sprintf("%s-%s.json", id, unsafeName.ReplaceAllString(h.Activation, "_"))
	}

	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("encode handoff: %w", err)
	}
	path := filepath.Join(a.Dir, name)
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Chain delivers to every navigator and joins their errors.
type Chain []Navigator

func (c Chain) Navigate(ctx context.Context, h Handoff) error {
	var errs []error
	for _, n := range c {
		if n == nil {
			continue
		}
		if err := n.Navigate(ctx, h); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
