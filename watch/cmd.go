package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"tgakit/convert"
	"tgakit/parallel"

	"github.com/alecthomas/kong"
	"github.com/fsnotify/fsnotify"
)

type CLICmd struct {
	Scan     string        `help:"Source folder to watch" default:"."`
	Settle   time.Duration `help:"Quiet time after the last write before a file is converted" default:"200ms"`
	SkipInit bool          `help:"Do not convert existing files on start" default:"false"`
	convert.Options
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	scanDir, err := convert.ScanDir(c.Scan)
	if err != nil {
		return err
	}
	c.Scan = scanDir

	if err := c.Options.Prepare(scanDir); err != nil {
		return err
	}

	if sameDir(c.Scan, c.Dest) {
		return fmt.Errorf("destination %q must differ from the watched folder", c.Dest)
	}
	return nil
}

// sameDir reports whether a and b name the same folder, following symlinks
// when both exist.
func sameDir(a, b string) bool {
	if filepath.Clean(a) == filepath.Clean(b) {
		return true
	}

	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

func (c *CLICmd) Run(worker parallel.WorkerFunc, wait parallel.WaitFunc) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if c.SkipInit {
		wait(true)
	} else {
		processed, errors, err := convert.All(c.Scan, &c.Options, worker, wait)
		if err != nil {
			return err
		}
		slog.Info("initial pass", "processed", processed, "errors", errors)
	}

	return c.watch(ctx, nil)
}

// watch converts files as they change until ctx is done. Names of converted
// files are sent to done when it is non-nil.
func (c *CLICmd) watch(ctx context.Context, done chan<- string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("could not create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(c.Scan); err != nil {
		return fmt.Errorf("could not watch %q: %w", c.Scan, err)
	}
	slog.Info("watching", "dir", c.Scan, "dest", c.Dest)

	pending := map[string]time.Time{}
	ticker := time.NewTicker(max(c.Settle/4, 10*time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if relevant(event) && filepath.Dir(event.Name) == c.Scan && convert.Supported(event.Name) {
				pending[event.Name] = time.Now()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("watcher failed", "error", err)
		case now := <-ticker.C:
			for name, last := range pending {
				if now.Sub(last) < c.Settle {
					continue
				}
				delete(pending, name)

				logger := slog.Default().With("file", name)
				if err := c.File(logger, name); err != nil {
					logger.Error("could not convert image", "error", err)
					continue
				}
				logger.Info("converted", "dest", c.Dest)
				if done != nil {
					select {
					case done <- name:
					case <-ctx.Done():
						return nil
					}
				}
			}
		}
	}
}

func relevant(event fsnotify.Event) bool {
	return event.Op&fsnotify.Create == fsnotify.Create ||
		event.Op&fsnotify.Write == fsnotify.Write
}
