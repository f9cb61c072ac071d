package artifact

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/teemow/queryexport/internal/logging"
)

// ErrWorkspaceClosed is returned by Acquire after Close has been called.
var ErrWorkspaceClosed = errors.New("workspace is closed")

// Workspace is the scratch root that export runs write artifacts into.
type Workspace struct {
	root   string
	retain bool
	logger *slog.Logger

	mu       sync.Mutex
	closed   bool
	inFlight sync.WaitGroup
	active   atomic.Int64
}

// NewWorkspace creates root if needed and returns a Workspace for it.
// When retain is false each run directory is removed on Release; otherwise
// artifacts stay until Close.
func NewWorkspace(root string, retain bool, logger *slog.Logger) (*Workspace, error) {
	if logger == nil {
		logger = slog.Default()
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve scratch dir %q: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create scratch dir %q: %w", abs, err)
	}

	return &Workspace{
		root:   abs,
		retain: retain,
		logger: logging.WithService(logger, "workspace"),
	}, nil
}

// Root returns the absolute scratch root.
func (w *Workspace) Root() string {
	return w.root
}

// InFlight returns the number of runs holding a directory.
func (w *Workspace) InFlight() int {
	return int(w.active.Load())
}

// Closed reports whether Close has been called.
func (w *Workspace) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// CheckWritable creates and removes a scratch file under the root.
func (w *Workspace) CheckWritable() error {
	if w.Closed() {
		return ErrWorkspaceClosed
	}
	f, err := os.CreateTemp(w.root, ".writable-")
	if err != nil {
		return fmt.Errorf("scratch dir %q is not writable: %w", w.root, err)
	}
	name := f.Name()
	closeErr := f.Close()
	if err := os.Remove(name); err != nil {
		return fmt.Errorf("scratch dir %q: %w", w.root, err)
	}
	return closeErr
}

// RunDir is a directory owned by a single export run.
type RunDir struct {
	Path string

	ws   *Workspace
	once sync.Once
}

// Acquire creates a fresh directory for one run. Every successful Acquire
// must be paired with a Release.
func (w *Workspace) Acquire() (*RunDir, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, ErrWorkspaceClosed
	}
	w.inFlight.Add(1)
	w.active.Add(1)
	w.mu.Unlock()

	path, err := os.MkdirTemp(w.root, "run-")
	if err != nil {
		w.active.Add(-1)
		w.inFlight.Done()
		return nil, fmt.Errorf("create run dir: %w", err)
	}

	return &RunDir{Path: path, ws: w}, nil
}

// Release ends the run. A directory holding no artifact is always removed;
// one holding an artifact is kept until Close when the workspace retains
// artifacts. Calling Release more than once is harmless.
func (d *RunDir) Release() {
	d.once.Do(func() {
		defer d.ws.inFlight.Done()
		defer d.ws.active.Add(-1)

		if d.ws.retain {
			entries, err := os.ReadDir(d.Path)
			if err != nil || len(entries) > 0 {
				return
			}
		}
		if err := os.RemoveAll(d.Path); err != nil {
			d.ws.logger.Warn("removing run dir", slog.String("path", d.Path), logging.Err(err))
		}
	})
}

// Close stops new runs, waits for in-flight runs to release their
// directories and removes the scratch root with everything in it.
// A removal failure is logged and returned.
func (w *Workspace) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	w.inFlight.Wait()

	if err := os.RemoveAll(w.root); err != nil {
		w.logger.Error("removing scratch dir", slog.String("path", w.root), logging.Err(err))
		return fmt.Errorf("remove scratch dir %q: %w", w.root, err)
	}

	w.logger.Info("scratch dir removed", slog.String("path", w.root))
	return nil
}
