package cli

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/mckib2/cythonator/internal/logger"
)

// DefaultDebounce is how long a header must stay quiet before it is
// regenerated.
const DefaultDebounce = 300 * time.Millisecond

// Watcher regenerates stubs when their headers change.
type Watcher struct {
	runner   Runner
	cfg      *Config
	watcher  *fsnotify.Watcher
	debounce time.Duration

	// headers maps absolute header paths to the form given on the command line.
	headers map[string]string

	mu      sync.Mutex
	timer   *time.Timer
	pending map[string]struct{}
	fire    chan struct{}
}

// NewWatcher watches the directories holding cfg.Headers. Directories are
// watched instead of files so editors that save by renaming are noticed.
func NewWatcher(r Runner, cfg *Config, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create file watcher")
	}

	w := &Watcher{
		runner:   r,
		cfg:      cfg,
		watcher:  fw,
		debounce: debounce,
		headers:  map[string]string{},
		pending:  map[string]struct{}{},
		fire:     make(chan struct{}, 1),
	}

	dirs := map[string]struct{}{}
	for _, h := range cfg.Headers {
		abs, err := filepath.Abs(h)
		if err != nil {
			fw.Close()
			return nil, errors.Wrapf(err, "resolve header %q", h)
		}
		w.headers[abs] = h
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, errors.Wrapf(err, "watch %s", dir)
		}
	}
	return w, nil
}

// Run processes file events until ctx is cancelled. Regeneration happens on
// this goroutine, one batch at a time; failures are logged and watching
// continues.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stop()
	log := logger.Named("watch")
	log.Infow("watching headers", logger.FieldCount, len(w.headers))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			header, ok := w.headers[filepath.Clean(event.Name)]
			if !ok {
				continue
			}
			log.Debugw("header changed", logger.FieldHeader, header, "op", event.Op.String())
			w.schedule(header)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnw("watcher error", logger.FieldError, err)

		case <-w.fire:
			w.regenerate(log)
		}
	}
}

// schedule restarts the debounce timer. The timer only signals Run, so
// regeneration never overlaps.
func (w *Watcher) schedule(header string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[header] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case w.fire <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) regenerate(log *zap.SugaredLogger) {
	w.mu.Lock()
	headers := make([]string, 0, len(w.pending))
	for h := range w.pending {
		headers = append(headers, h)
	}
	w.pending = map[string]struct{}{}
	w.mu.Unlock()

	if len(headers) == 0 {
		return
	}
	sort.Strings(headers)

	batch := *w.cfg
	batch.Headers = headers
	if err := w.runner.Run(&batch); err != nil {
		log.Errorw("regeneration failed", logger.FieldError, err)
		return
	}
	log.Infow("regenerated", logger.FieldCount, len(headers))
}

func (w *Watcher) stop() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	_ = w.watcher.Close()
}
