package fastdfs

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/fastdfs-go/fastdfs/pkg/logging"
)

// ConfigWatcher watches a configuration file for edits and delivers
// validated reloads to a callback. A malformed edit (bad JSON or a config
// that fails Validate) is logged and ignored — the previous valid
// configuration is left in place and no callback fires.
type ConfigWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	debounce time.Duration
	log     *logging.Logger

	mu    sync.Mutex
	timer *time.Timer

	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// WatchConfig starts watching path for Write/Create events (editors often
// replace a file via rename, which fsnotify reports as Create on the target
// name) and invokes onChange with each successfully reloaded, validated
// Config. The returned ConfigWatcher must be stopped with Stop.
func WatchConfig(path string, debounce time.Duration, log *logging.Logger, onChange func(*Config)) (*ConfigWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, err
	}
	if log == nil {
		log = logging.New(logging.DefaultConfig())
	}
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}

	cw := &ConfigWatcher{
		watcher:  w,
		path:     path,
		debounce: debounce,
		log:      log.WithComponent("config_watch"),
		stopChan: make(chan struct{}),
	}
	cw.wg.Add(1)
	go cw.loop(onChange)
	return cw, nil
}

func (cw *ConfigWatcher) loop(onChange func(*Config)) {
	defer cw.wg.Done()
	for {
		select {
		case <-cw.stopChan:
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cw.scheduleReload(onChange)
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.log.Warn("config watcher error", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (cw *ConfigWatcher) scheduleReload(onChange func(*Config)) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.timer != nil {
		cw.timer.Stop()
	}
	cw.timer = time.AfterFunc(cw.debounce, func() {
		cfg, err := LoadConfig(cw.path)
		if err != nil {
			cw.log.Warn("ignoring invalid config reload", map[string]interface{}{
				"path":  cw.path,
				"error": err.Error(),
			})
			return
		}
		onChange(cfg)
	})
}

// Stop stops the watcher. Idempotent.
func (cw *ConfigWatcher) Stop() {
	cw.stopOnce.Do(func() {
		close(cw.stopChan)
		cw.watcher.Close()
	})
	cw.wg.Wait()
}
