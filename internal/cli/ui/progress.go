package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
)

// spinnerFrames cycles while a scan or generation pass runs.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates an indeterminate pipeline phase on a terminal.
// It writes nothing after Stop, so callers can print results on the
// same stream once the phase finishes.
type Spinner struct {
	writer   io.Writer
	interval time.Duration
	noColor  bool

	mu      sync.Mutex
	message string
	stop    chan struct{}
	stopped sync.WaitGroup
}

// NewSpinner creates a spinner that writes to w. It does not animate
// until Start is called.
func NewSpinner(w io.Writer, message string, noColor bool) *Spinner {
	return &Spinner{
		writer:   w,
		interval: 100 * time.Millisecond,
		noColor:  noColor,
		message:  message,
	}
}

// Start begins animating. Calling Start on a running spinner is a no-op.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.stopped.Add(1)
	go s.spin(s.stop)
}

// Stop halts the animation and clears the spinner line. Safe to call
// more than once.
func (s *Spinner) Stop() {
	s.mu.Lock()
	stop := s.stop
	s.stop = nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	s.stopped.Wait()
	fmt.Fprint(s.writer, "\r\033[K")
}

// SetMessage replaces the text shown next to the animation.
func (s *Spinner) SetMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// Succeed stops the spinner and prints a green check line.
func (s *Spinner) Succeed(message string) {
	s.Stop()
	c := color.New(color.FgGreen, color.Bold)
	if s.noColor {
		c.DisableColor()
	}
	c.Fprintf(s.writer, "✓ %s\n", message)
}

// Fail stops the spinner and prints a red failure line.
func (s *Spinner) Fail(message string) {
	s.Stop()
	c := color.New(color.FgRed, color.Bold)
	if s.noColor {
		c.DisableColor()
	}
	c.Fprintf(s.writer, "❌ %s\n", message)
}

func (s *Spinner) spin(stop chan struct{}) {
	defer s.stopped.Done()

	cyan := color.New(color.FgCyan)
	if s.noColor {
		cyan.DisableColor()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			msg := s.message
			s.mu.Unlock()
			cyan.Fprintf(s.writer, "\r%s %s", spinnerFrames[frame%len(spinnerFrames)], msg)
		}
	}
}

// WithSpinner animates message while fn runs, then prints the outcome:
// a check line when fn returns nil, a failure line otherwise. The
// returned error is fn's.
func WithSpinner(w io.Writer, message string, noColor bool, fn func() error) error {
	s := NewSpinner(w, message, noColor)
	s.Start()
	defer s.Stop()

	if err := fn(); err != nil {
		s.Fail(fmt.Sprintf("%s failed", message))
		return err
	}
	s.Succeed(message)
	return nil
}
