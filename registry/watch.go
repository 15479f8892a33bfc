package registry

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/x19-huhr/mybatis/mapper"
)

// Watch reloads the registry when mapper documents below the loaded
// directories change. Bursts of events are coalesced by the debounce
// interval. Watch blocks until ctx is done.
func (r *Registry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range r.Dirs() {
		if err := watchTree(watcher, dir); err != nil {
			return err
		}
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watchTree(watcher, event.Name); err != nil {
						r.logger.WithError(err).Warn("failed to watch new directory")
					}

					fire = r.schedule(&timer)

					continue
				}
			}

			if !mapper.IsMapperFile(event.Name) || event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}

			r.logger.WithFields(logrus.Fields{
				"file": event.Name,
				"op":   event.Op.String(),
			}).Debug("mapper changed")

			fire = r.schedule(&timer)

		case <-fire:
			fire = nil

			err := r.Reload()
			if err != nil {
				r.logger.WithError(err).Error("reload failed, keeping previous templates")
			}

			if r.onReload != nil {
				r.onReload(err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			r.logger.WithError(err).Warn("watcher error")
		}
	}
}

func (r *Registry) schedule(timer **time.Timer) <-chan time.Time {
	if *timer == nil {
		*timer = time.NewTimer(r.debounce)
	} else {
		(*timer).Reset(r.debounce)
	}

	return (*timer).C
}

func watchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			return nil
		}

		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}

		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}

		return nil
	})
}
