package convert

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"tgakit/parallel"

	"github.com/alecthomas/kong"
)

type CLICmd struct {
	Scan string `help:"Source folder to scan" default:"."`
	Options
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	scanDir, err := ScanDir(c.Scan)
	if err != nil {
		return err
	}
	c.Scan = scanDir

	return c.Options.Prepare(scanDir)
}

// ScanDir makes dir absolute and checks that it is a directory.
func ScanDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	var info os.FileInfo
	if err == nil {
		if info, err = os.Stat(abs); err == nil && !info.IsDir() {
			err = fmt.Errorf("not a directory")
		}
	}
	if err != nil {
		return "", fmt.Errorf("invalid scan path %q: %w", dir, err)
	}
	return abs, nil
}

func (c *CLICmd) Run(worker parallel.WorkerFunc, wait parallel.WaitFunc) error {
	processed, errors, err := All(c.Scan, &c.Options, worker, wait)
	if err != nil {
		return err
	}

	slog.Info("stats", "processed", processed, "errors", errors,
		"total", processed+errors)

	if errors > 0 {
		return fmt.Errorf("error processing %d files", errors)
	}
	return nil
}

// All converts every supported picture directly inside scanDir. It returns
// the number of converted and failed files.
func All(scanDir string, o *Options, worker parallel.WorkerFunc, wait parallel.WaitFunc) (uint64, uint64, error) {
	if err := os.MkdirAll(o.Dest, 0o755); err != nil {
		return 0, 0, fmt.Errorf("unable to create destination folder %q: %w", o.Dest, err)
	}

	files, err := os.ReadDir(scanDir)
	if err != nil {
		return 0, 0, fmt.Errorf("unable to read folder %q: %w", scanDir, err)
	}

	var processedCount, errCount atomic.Uint64
	for _, file := range files {
		if file.IsDir() || !Supported(file.Name()) {
			continue
		}

		worker(func(fileName string) func() {
			return func() {
				filePath := filepath.Join(scanDir, fileName)
				logger := slog.Default().With("file", filePath)

				if err := o.File(logger, filePath); err != nil {
					errCount.Add(1)
					logger.Error("could not convert image", "dir", o.Dest, "error", err)
					return
				}
				processedCount.Add(1)
			}
		}(file.Name()))
	}

	wait(true)

	return processedCount.Load(), errCount.Load(), nil
}
