package file

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/matzehuels/depotview/pkg/errors"
)

// watchDebounce coalesces the burst of events an editor save produces.
const watchDebounce = 100 * time.Millisecond

// Watch calls fn with the depot ID whenever a layout file is written,
// created, renamed or removed, until ctx ends. A single-file provider
// reports every change with an empty ID, meaning all depots. fn runs on
// its own goroutine.
func (p *Provider) Watch(ctx context.Context, fn func(depot string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "watch %s", p.path)
	}
	defer w.Close()

	// Editors often replace a file by renaming over it, so a single file
	// is watched through its directory.
	dir := p.path
	if !p.dir {
		dir = filepath.Dir(p.path)
	}
	if err := w.Add(dir); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "watch %s", dir)
	}

	pending := make(map[string]*time.Timer)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			depot, ok := p.depotOf(ev)
			if !ok {
				continue
			}
			if t, ok := pending[depot]; ok {
				t.Reset(watchDebounce)
				continue
			}
			pending[depot] = time.AfterFunc(watchDebounce, func() { fn(depot) })
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return errors.Wrap(errors.ErrCodeInternal, err, "watch %s", dir)
		}
	}
}

// depotOf maps a file event to the depot it changes.
func (p *Provider) depotOf(ev fsnotify.Event) (string, bool) {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return "", false
	}
	if !p.dir {
		return "", filepath.Clean(ev.Name) == filepath.Clean(p.path)
	}
	if _, err := FormatOf(ev.Name); err != nil {
		return "", false
	}
	return stem(ev.Name), true
}
