package loop

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchConfig watches path's containing directory (not the file itself —
// editors and `layerkeyctl`-driven saves often replace a file via
// rename-into-place, which orphans a direct file watch) and calls
// RequestReload whenever an event names path, sharing the same entry
// point a CustomLiveReload action and a control-surface ReloadFile
// request use (spec.md §4.4 item 5 / SPEC_FULL.md §4.4).
//
// fsnotify setup failures are logged and otherwise ignored: live reload
// degrading to polling-only (the control surface's ReloadFile) is
// acceptable, never a reason to abort the loop.
func (l *Loop) WatchConfig(path string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		l.logErr("fsnotify init", err)
		return
	}
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		l.logErr("fsnotify watch", err)
		watcher.Close()
		return
	}

	go func() {
		defer watcher.Close()
		base := filepath.Base(path)
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != base {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					l.RequestReload(path)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.logErr("fsnotify", err)
			case <-l.done:
				return
			}
		}
	}()
}
