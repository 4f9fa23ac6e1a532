// FILE: peerxlat/src/internal/reload/watcher.go
package reload

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"syscall"
	"time"

	"github.com/lixenwraith/log"
)

// fileState is the subset of file metadata compared between polls.
type fileState struct {
	exists  bool
	size    int64
	modTime time.Time
	inode   uint64
}

func statFile(path string) (fileState, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fileState{}, nil
		}
		return fileState{}, err
	}

	st := fileState{exists: true, size: info.Size(), modTime: info.ModTime()}
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		st.inode = stat.Ino
	}
	return st, nil
}

// changeReason names the difference between two polls, or "" for none.
func changeReason(prev, cur fileState) string {
	switch {
	case prev.exists && !cur.exists:
		return "file removed"
	case !prev.exists && cur.exists:
		return "file created"
	case !cur.exists:
		return ""
	case prev.inode != cur.inode:
		return "inode change"
	case prev.size != cur.size:
		return "size change"
	case !prev.modTime.Equal(cur.modTime):
		return "modification time change"
	default:
		return ""
	}
}

// fileWatcher polls a rules file and calls onChange when its metadata moves.
// Editors that replace the file via rename show up as an inode change.
type fileWatcher struct {
	path     string
	interval time.Duration
	logger   *log.Logger
	onChange func()
	last     fileState
}

// newFileWatcher compares later polls against baseline, which must be taken
// before the load it guards so that edits made during that load are seen.
func newFileWatcher(path string, interval time.Duration, baseline fileState, logger *log.Logger, onChange func()) *fileWatcher {
	return &fileWatcher{
		path:     path,
		interval: interval,
		logger:   logger,
		onChange: onChange,
		last:     baseline,
	}
}

func (w *fileWatcher) watch(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

func (w *fileWatcher) poll() {
	cur, err := statFile(w.path)
	if err != nil {
		// Keep watching; permission problems surface on the next load
		w.logger.Warn("msg", "Rules file stat failed",
			"component", "reload_watcher",
			"rules_file", w.path,
			"error", err)
		return
	}

	reason := changeReason(w.last, cur)
	w.last = cur
	if reason == "" {
		return
	}

	w.logger.Debug("msg", "Rules file changed",
		"component", "reload_watcher",
		"rules_file", w.path,
		"change", reason)
	w.onChange()
}
