package lora

import (
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"kritactl/internal/debug"
)

// defaultDebounce coalesces rapid successive filesystem events (an editor
// writing then renaming, a download completing in chunks) into one callback.
const defaultDebounce = 500 * time.Millisecond

// Watcher monitors a LoRA directory tree and invokes a callback after
// changes settle. Newly created subdirectories are picked up automatically.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	onChange func()
	done     chan struct{}
}

// WatchDir starts watching dir and all its subdirectories. onChange runs on
// the watcher's goroutine after the debounce window closes. debounce <= 0
// falls back to the default.
func WatchDir(dir string, debounce time.Duration, onChange func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	w := &Watcher{
		fsw:      fsw,
		debounce: debounce,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	if err := w.addTree(dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	go w.loop()
	return w, nil
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	<-w.done
	return err
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}

func (w *Watcher) loop() {
	defer close(w.done)

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op.Has(fsnotify.Create) {
				// Register new subdirectories; errors only mean the entry
				// is a file or already vanished.
				if err := w.addTree(event.Name); err != nil {
					debug.Logf("lora: watch %s: %v", event.Name, err)
				}
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			debug.Logf("lora: watcher error: %v", err)
		case <-fire:
			fire = nil
			w.onChange()
		}
	}
}
