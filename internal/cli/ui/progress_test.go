package ui

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
)

// syncWriter makes a bytes.Buffer safe for the spinner goroutine to
// share with the test.
type syncWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *syncWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func TestSpinnerStopClearsLine(t *testing.T) {
	var w syncWriter
	s := NewSpinner(&w, "Scanning 3 package(s)", true)

	s.Start()
	s.Stop()

	if !strings.HasSuffix(w.String(), "\r\033[K") {
		t.Errorf("Stop should clear the spinner line, got %q", w.String())
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	var w syncWriter
	s := NewSpinner(&w, "working", true)

	s.Start()
	s.Stop()
	before := w.String()
	s.Stop()

	if w.String() != before {
		t.Error("Second Stop should not write again")
	}
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	var w syncWriter
	s := NewSpinner(&w, "idle", true)

	s.Stop()

	if w.String() != "" {
		t.Errorf("Stop before Start should write nothing, got %q", w.String())
	}
}

func TestSpinnerSucceed(t *testing.T) {
	var w syncWriter
	s := NewSpinner(&w, "generating", true)

	s.Start()
	s.Succeed("Generated 2 file(s)")

	if !strings.Contains(w.String(), "✓ Generated 2 file(s)\n") {
		t.Errorf("Succeed output missing check line, got %q", w.String())
	}
}

func TestSpinnerFail(t *testing.T) {
	var w syncWriter
	s := NewSpinner(&w, "generating", true)

	s.Start()
	s.Fail("generating failed")

	if !strings.Contains(w.String(), "❌ generating failed\n") {
		t.Errorf("Fail output missing failure line, got %q", w.String())
	}
}

func TestWithSpinnerSuccess(t *testing.T) {
	var w syncWriter
	ran := false

	err := WithSpinner(&w, "Scanning 1 package(s)", true, func() error {
		ran = true
		return nil
	})

	if err != nil {
		t.Fatalf("WithSpinner returned %v", err)
	}
	if !ran {
		t.Fatal("Function was not invoked")
	}
	if !strings.Contains(w.String(), "✓ Scanning 1 package(s)") {
		t.Errorf("Success line missing, got %q", w.String())
	}
}

func TestWithSpinnerError(t *testing.T) {
	var w syncWriter
	boom := errors.New("scan failed")

	err := WithSpinner(&w, "Scanning", true, func() error {
		return boom
	})

	if err != boom {
		t.Fatalf("WithSpinner should return the function's error, got %v", err)
	}
	if !strings.Contains(w.String(), "❌ Scanning failed") {
		t.Errorf("Failure line missing, got %q", w.String())
	}
}

func TestSpinnerSetMessage(t *testing.T) {
	var w syncWriter
	s := NewSpinner(&w, "first", true)

	s.Start()
	s.SetMessage("second")
	s.Stop()
}
