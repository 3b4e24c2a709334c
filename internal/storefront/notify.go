package storefront

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Notifier receives the user-visible outcome of each intent.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// LogNotifier reports outcomes as structured log records.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Success(msg string) { n.Logger.Info(msg) }
func (n LogNotifier) Error(msg string)   { n.Logger.Error(msg) }

// WriterNotifier prints outcomes as single lines.
type WriterNotifier struct {
	Out io.Writer
	Err io.Writer
}

func (n WriterNotifier) Success(msg string) { fmt.Fprintln(n.Out, msg) }
func (n WriterNotifier) Error(msg string)   { fmt.Fprintln(n.Err, "Error: "+msg) }

// Recorder keeps every message in arrival order.
type Recorder struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (r *Recorder) Success(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes = append(r.successes, msg)
}

func (r *Recorder) Error(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
}

// Successes returns a copy of the success messages.
func (r *Recorder) Successes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.successes...)
}

// Errors returns a copy of the error messages.
func (r *Recorder) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errors...)
}
