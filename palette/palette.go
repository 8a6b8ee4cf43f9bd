// Package palette provides the colour tables used for paletted output.
package palette

import (
	"fmt"
	"image/color"
	stdpalette "image/color/palette"
	"log/slog"
	"os"
)

var builtin = map[string]func() color.Palette{
	"plan9":   func() color.Palette { return stdpalette.Plan9 },
	"websafe": func() color.Palette { return stdpalette.WebSafe },
	"gray16":  func() color.Palette { return grayRamp(16) },
	"bw":      func() color.Palette { return grayRamp(2) },
}

// Names lists the builtin palette names.
func Names() []string {
	return []string{"bw", "gray16", "plan9", "websafe"}
}

// Load returns a builtin palette by name, or reads a RIFF PAL file. All
// palettes in the file are concatenated.
func Load(name string) (color.Palette, error) {
	if f, ok := builtin[name]; ok {
		return f(), nil
	}

	palFile, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("unknown palette %q: %w", name, err)
	}
	defer func() {
		if closeErr := palFile.Close(); closeErr != nil {
			slog.Error("could not close palette file", "name", name, "error", closeErr)
		}
	}()

	pals, err := ReadFrom(palFile)
	if err != nil {
		return nil, fmt.Errorf("could not load palette file %q: %w", name, err)
	}

	var res color.Palette
	for _, pal := range pals {
		res = append(res, pal...)
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("palette file %q has no colors", name)
	}
	return res, nil
}

func grayRamp(n int) color.Palette {
	pal := make(color.Palette, n)
	for i := range n {
		pal[i] = color.Gray{Y: uint8(i * 0xFF / (n - 1))}
	}
	return pal
}
