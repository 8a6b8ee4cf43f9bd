package watch

import (
	"bytes"
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tgakit/convert"
	"tgakit/tga"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchConvertsNewFiles(t *testing.T) {
	dir := t.TempDir()
	c := &CLICmd{
		Scan:    dir,
		Settle:  100 * time.Millisecond,
		Options: convert.Options{Dest: "out", Format: "png", Quality: 90, MaxPixels: 1 << 20},
	}
	require.NoError(t, c.Validate(nil))
	require.NoError(t, os.MkdirAll(c.Dest, 0o755))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan string, 1)
	errs := make(chan error, 1)
	go func() { errs <- c.watch(ctx, done) }()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)

	var buf bytes.Buffer
	require.NoError(t, tga.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 3, 3)), nil))
	src := filepath.Join(dir, "new.tga")
	require.NoError(t, os.WriteFile(src, buf.Bytes(), 0o644))

	select {
	case name := <-done:
		assert.Equal(t, src, name)
	case <-time.After(5 * time.Second):
		t.Fatal("file was not converted")
	}
	assert.FileExists(t, filepath.Join(dir, "out", "new.png"))

	// writing the output must not queue the source again
	select {
	case name := <-done:
		t.Fatalf("%s converted a second time", name)
	case <-time.After(500 * time.Millisecond):
	}

	cancel()
	assert.NoError(t, <-errs)
}

func TestRelevant(t *testing.T) {
	assert.True(t, relevant(fsnotify.Event{Name: "a.tga", Op: fsnotify.Create}))
	assert.True(t, relevant(fsnotify.Event{Name: "a.tga", Op: fsnotify.Write}))
	assert.False(t, relevant(fsnotify.Event{Name: "a.tga", Op: fsnotify.Remove}))
	assert.False(t, relevant(fsnotify.Event{Name: "a.tga", Op: fsnotify.Chmod}))
}

func TestValidateRejectsDestInScan(t *testing.T) {
	dir := t.TempDir()

	for _, dest := range []string{".", dir, filepath.Join(dir, "sub", "..")} {
		c := &CLICmd{
			Scan:    dir,
			Options: convert.Options{Dest: dest, Format: "tga", Quality: 90, MaxPixels: 1 << 20},
		}
		assert.ErrorContains(t, c.Validate(nil), "must differ from the watched folder", dest)
	}
}

func TestValidateRejectsSymlinkedDest(t *testing.T) {
	dir := t.TempDir()
	link := filepath.Join(t.TempDir(), "alias")
	if err := os.Symlink(dir, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	c := &CLICmd{
		Scan:    dir,
		Options: convert.Options{Dest: link, Format: "png", Quality: 90, MaxPixels: 1 << 20},
	}
	assert.Error(t, c.Validate(nil))
}
