package main

import (
	"fmt"
	"log/slog"
	"os"

	"tgakit/convert"
	"tgakit/info"
	"tgakit/parallel"
	"tgakit/watch"

	"github.com/alecthomas/kong"
	"github.com/pkg/profile"
)

type cli struct {
	LogLevel   string          `help:"Log level" enum:"debug,info,warn,error" default:"info"`
	LogFormat  string          `help:"Log format" enum:"text,json" default:"text"`
	Workers    int             `help:"Number of parallel workers, 0 for one per CPU" default:"0"`
	CPUProfile string          `help:"Write a CPU profile into this folder" type:"path" name:"cpu-profile"`
	Config     kong.ConfigFlag `help:"Load flag defaults from a JSON file"`

	Info    info.CLICmd    `cmd:"" help:"Describe textures, meshes and pictures in a folder"`
	Convert convert.CLICmd `cmd:"" help:"Convert pictures from and to TGA"`
	Watch   watch.CLICmd   `cmd:"" help:"Convert pictures whenever they change"`
}

func main() {
	var c cli
	kctx := kong.Parse(&c,
		kong.Name("tgakit"),
		kong.Description("Inspect and convert the TGA textures and OBJ meshes of the demo."),
		kong.UsageOnError(),
		kong.Configuration(kong.JSON, "~/.config/tgakit.json"),
	)

	if err := setupLogging(c.LogLevel, c.LogFormat); err != nil {
		kctx.FatalIfErrorf(err)
	}

	kctx.FatalIfErrorf(run(kctx, &c))
}

func run(kctx *kong.Context, c *cli) error {
	if c.CPUProfile != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(c.CPUProfile), profile.NoShutdownHook, profile.Quiet).Stop()
	}

	pool := parallel.Start(c.Workers)
	defer pool.Cancel()

	slog.Debug("running", "command", kctx.Command(), "workers", pool.Workers())
	return kctx.Run(parallel.WorkerFunc(pool.Do), parallel.WaitFunc(pool.Wait))
}

func setupLogging(level, format string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}
