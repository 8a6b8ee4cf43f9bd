// Package resource serves decoded textures and meshes by name, keeping the
// most recently used ones in memory. A Loader is safe for concurrent use;
// concurrent requests for a name that is not cached share one decode.
package resource

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"
	"sync/atomic"

	"tgakit/mesh"
	"tgakit/tga"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultCacheSize = 64
	DefaultMaxPixels = 1 << 26
)

// ErrTooLarge is returned for textures whose header claims more pixels
// than the loader accepts.
var ErrTooLarge = errors.New("texture too large")

type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

type Loader struct {
	fsys      fs.FS
	logger    *slog.Logger
	maxPixels atomic.Int64
	textures  *lru.Cache[string, *tga.Image]
	meshes    *lru.Cache[string, *mesh.Model]
	group     singleflight.Group

	hits, misses, evictions atomic.Uint64
}

// NewLoader creates a Loader reading from fsys. size bounds each cache
// separately; values below 1 select DefaultCacheSize.
func NewLoader(fsys fs.FS, size int, logger *slog.Logger) (*Loader, error) {
	if size < 1 {
		size = DefaultCacheSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	l := &Loader{fsys: fsys, logger: logger}
	l.maxPixels.Store(DefaultMaxPixels)

	var err error
	l.textures, err = lru.NewWithEvict[string, *tga.Image](size, evicted[*tga.Image](l))
	if err != nil {
		return nil, fmt.Errorf("could not create texture cache: %w", err)
	}
	l.meshes, err = lru.NewWithEvict[string, *mesh.Model](size, evicted[*mesh.Model](l))
	if err != nil {
		return nil, fmt.Errorf("could not create mesh cache: %w", err)
	}

	return l, nil
}

// SetMaxPixels limits width*height of textures. Values below 1 restore
// DefaultMaxPixels.
func (l *Loader) SetMaxPixels(n int) {
	if n < 1 {
		n = DefaultMaxPixels
	}
	l.maxPixels.Store(int64(n))
}

func evicted[V any](l *Loader) func(string, V) {
	return func(name string, _ V) {
		l.evictions.Add(1)
		l.logger.Debug("evicted resource", "name", name)
	}
}

// cached returns the value under name, loading it at most once across
// concurrent callers. Failed loads are not cached.
func cached[V any](l *Loader, cache *lru.Cache[string, V], kind, name string, load func() (V, error)) (V, error) {
	if v, ok := cache.Get(name); ok {
		l.hits.Add(1)
		return v, nil
	}

	res, err, _ := l.group.Do(kind+":"+name, func() (any, error) {
		// a load that finished between the lookup above and Do has
		// already filled the cache
		if v, ok := cache.Peek(name); ok {
			return v, nil
		}
		l.misses.Add(1)

		v, err := load()
		if err != nil {
			return v, err
		}
		cache.Add(name, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Texture returns the decoded TGA image stored under name.
func (l *Loader) Texture(name string) (*tga.Image, error) {
	return cached(l, l.textures, "texture", name, func() (*tga.Image, error) {
		return l.loadTexture(name)
	})
}

func (l *Loader) loadTexture(name string) (*tga.Image, error) {
	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("could not read texture %q: %w", name, err)
	}

	hdr, err := tga.ReadHeader(data)
	if err != nil {
		return nil, fmt.Errorf("could not decode texture %q: %w", name, err)
	}
	if pixels, limit := int64(hdr.Width)*int64(hdr.Height), l.maxPixels.Load(); pixels > limit {
		return nil, fmt.Errorf("%w: %q is %dx%d, limit %d pixels", ErrTooLarge, name, hdr.Width, hdr.Height, limit)
	}

	img, err := tga.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("could not decode texture %q: %w", name, err)
	}

	l.logger.Debug("loaded texture", "name", name, "width", img.Width, "height", img.Height)
	return img, nil
}

// Mesh returns the model stored under name. A material library with the
// same base name is used when present.
func (l *Loader) Mesh(name string) (*mesh.Model, error) {
	return cached(l, l.meshes, "mesh", name, func() (*mesh.Model, error) {
		return l.loadMesh(name)
	})
}

func (l *Loader) loadMesh(name string) (*mesh.Model, error) {
	objFile, err := l.fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("could not open mesh %q: %w", name, err)
	}
	defer func() {
		if closeErr := objFile.Close(); closeErr != nil {
			l.logger.Error("could not close mesh", "name", name, "error", closeErr)
		}
	}()

	mtlName := strings.TrimSuffix(name, path.Ext(name)) + ".mtl"
	var m *mesh.Model
	if mtlFile, mtlErr := l.fsys.Open(mtlName); mtlErr == nil {
		defer func() {
			if closeErr := mtlFile.Close(); closeErr != nil {
				l.logger.Error("could not close material library", "name", mtlName, "error", closeErr)
			}
		}()
		m, err = mesh.Decode(objFile, mtlFile)
	} else {
		m, err = mesh.Decode(objFile, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("could not decode mesh %q: %w", name, err)
	}

	l.logger.Debug("loaded mesh", "name", name, "vertices", m.VertexCount())
	return m, nil
}

// Invalidate drops name from both caches so the next request reloads it.
func (l *Loader) Invalidate(name string) {
	l.textures.Remove(name)
	l.meshes.Remove(name)
}

func (l *Loader) Stats() Stats {
	return Stats{
		Hits:      l.hits.Load(),
		Misses:    l.misses.Load(),
		Evictions: l.evictions.Load(),
	}
}
