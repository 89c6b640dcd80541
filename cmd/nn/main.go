// Command nn inspects and converts saved network scenes.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ha1tch/netcanvas/internal/config"
	"github.com/ha1tch/netcanvas/internal/ui"
	"github.com/ha1tch/netcanvas/pkg/layers"
	"github.com/ha1tch/netcanvas/pkg/netfile"
)

var version = "0.3.0"

// errProblems makes validate exit non-zero after printing its report.
var errProblems = errors.New("scene has problems")

// app carries what every subcommand shares.
type app struct {
	verbose bool
	log     *slog.Logger
	catalog *layers.Registry
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{catalog: layers.Default()}

	root := &cobra.Command{
		Use:   "nn",
		Short: "nn - neural network scene toolkit",
		Long: ui.Brand.Sprint("nn") + " - work with saved network scenes\n" +
			ui.Subtle.Sprint("Generate PyTorch code, Graphviz DOT and images from .json and .nnc files"),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if a.verbose {
				level = slog.LevelDebug
			}
			a.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			a.cfg = config.Load(config.Path(), a.log)
		},
	}
	root.SetVersionTemplate("nn {{ .Version }}\n")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(
		a.codegenCmd(),
		a.convertCmd(),
		a.dotCmd(),
		a.layoutCmd(),
		a.infoCmd(),
		a.renderCmd(),
		a.validateCmd(),
	)
	return root
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errProblems) {
			ui.Bad.Fprintf(os.Stderr, "nn: %v\n", err)
		}
		os.Exit(1)
	}
}

// load reads a scene and logs what it found.
func (a *app) load(path string) (*netfile.Document, *netfile.Meta, error) {
	d, meta, err := netfile.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", path, err)
	}
	a.log.Debug("scene loaded", "path", path, "layers", len(d.Layers),
		"connections", len(d.Connections), "groups", len(d.Groups))
	return d, meta, nil
}

// output opens path for writing, or returns stdout when path is empty.
func output(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
