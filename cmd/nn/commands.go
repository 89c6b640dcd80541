package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ha1tch/netcanvas/internal/ui"
	"github.com/ha1tch/netcanvas/pkg/codegen"
	"github.com/ha1tch/netcanvas/pkg/layers"
	"github.com/ha1tch/netcanvas/pkg/layout"
	"github.com/ha1tch/netcanvas/pkg/netfile"
	"github.com/ha1tch/netcanvas/pkg/render"
	"github.com/ha1tch/netcanvas/pkg/scene"
)

func (a *app) codegenCmd() *cobra.Command {
	var out, class, instance string
	cmd := &cobra.Command{
		Use:   "codegen <scene>",
		Short: "Generate a PyTorch module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, meta, err := a.load(args[0])
			if err != nil {
				return err
			}
			if class == "" && meta != nil {
				class = meta.Network.Name
			}
			code := codegen.GeneratePyTorch(d, a.catalog, codegen.Options{ClassName: class, Instance: instance})

			w, closeFn, err := output(cmd, out)
			if err != nil {
				return err
			}
			if _, err := io.WriteString(w, code); err != nil {
				closeFn()
				return err
			}
			if err := closeFn(); err != nil {
				return err
			}
			if out != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Written: %s\n", out)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().StringVar(&class, "class", "", "Class name (default from bundle name or GeneratedNet)")
	cmd.Flags().StringVar(&instance, "instance", "", "Also instantiate the module under this name")
	return cmd
}

func (a *app) convertCmd() *cobra.Command {
	var out, name string
	cmd := &cobra.Command{
		Use:   "convert <scene>",
		Short: "Convert between .json and .nnc bundles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			d, meta, err := a.load(input)
			if err != nil {
				return err
			}
			if out == "" {
				ext := filepath.Ext(input)
				base := strings.TrimSuffix(input, ext)
				if strings.EqualFold(ext, netfile.BundleExt) {
					out = base + ".json"
				} else {
					out = base + netfile.BundleExt
				}
			}
			if meta == nil {
				meta = &netfile.Meta{}
			}
			if name != "" {
				meta.Network.Name = name
			}
			if meta.Network.Name == "" {
				meta.Network.Name = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
			}
			meta.Network.Saved = time.Now().UTC().Truncate(time.Second)
			if err := netfile.WriteFile(out, d, meta); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Written: %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (default: swap .json and .nnc)")
	cmd.Flags().StringVar(&name, "name", "", "Network name stored in the bundle")
	return cmd
}

func (a *app) layoutCmd() *cobra.Command {
	var out string
	var opts layout.Options
	cmd := &cobra.Command{
		Use:   "layout <scene>",
		Short: "Arrange layers in columns following the connections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, meta, err := a.load(args[0])
			if err != nil {
				return err
			}
			sc := scene.New(a.catalog, a.log)
			if _, err := netfile.Load(d, sc, a.log); err != nil {
				return fmt.Errorf("load %s: %w", args[0], err)
			}
			n := layout.Arrange(sc, opts)

			if out == "" {
				out = args[0]
			}
			if err := netfile.WriteFile(out, netfile.FromScene(sc), meta); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Arranged %d item(s): %s\n", n, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (default: rewrite the input)")
	cmd.Flags().Float64Var(&opts.ColumnGap, "column-gap", layout.DefaultColumnGap, "Horizontal gap between columns")
	cmd.Flags().Float64Var(&opts.RowGap, "row-gap", layout.DefaultRowGap, "Vertical gap between layers in a column")
	return cmd
}

func (a *app) dotCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:     "dot <scene>",
		Short:   "Generate Graphviz DOT output",
		Example: "  nn dot net.json | dot -Tpng -o net.png",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, meta, err := a.load(args[0])
			if err != nil {
				return err
			}
			title := ""
			if meta != nil {
				title = meta.Network.Name
			}
			w, closeFn, err := output(cmd, out)
			if err != nil {
				return err
			}
			if _, err := io.WriteString(w, netfile.GenerateDOT(d, title)); err != nil {
				closeFn()
				return err
			}
			return closeFn()
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <scene>",
		Short: "Show scene information",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, meta, err := a.load(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			ui.Heading(w, args[0])
			if meta != nil {
				fmt.Fprintf(w, "  Name:        %s\n", meta.Network.Name)
				if meta.Network.Description != "" {
					fmt.Fprintf(w, "  Description: %s\n", meta.Network.Description)
				}
				if !meta.Network.Saved.IsZero() {
					fmt.Fprintf(w, "  Saved:       %s\n", meta.Network.Saved.Format(time.RFC3339))
				}
			}
			fmt.Fprintf(w, "  Layers:      %d\n", len(d.Layers))
			fmt.Fprintf(w, "  Connections: %d\n", len(d.Connections))
			fmt.Fprintf(w, "  Groups:      %d\n\n", len(d.Groups))

			ui.Table(w, []string{"TYPE", "CATEGORY", "COUNT"}, typeRows(d, a.catalog))
			if len(d.Groups) > 0 {
				fmt.Fprintln(w)
				ui.Table(w, []string{"GROUP", "NAME", "MEMBERS", "STATE"}, groupRows(d))
			}
			return nil
		},
	}
}

func typeRows(d *netfile.Document, catalog layers.Catalog) [][]string {
	counts := make(map[string]int)
	for _, l := range d.Layers {
		counts[l.Type]++
	}
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)

	rows := make([][]string, 0, len(types))
	for _, t := range types {
		cat := ui.Warn.Sprint("unknown")
		if def, ok := catalog.Lookup(t); ok {
			cat = string(def.Category)
		}
		rows = append(rows, []string{t, cat, strconv.Itoa(counts[t])})
	}
	return rows
}

func groupRows(d *netfile.Document) [][]string {
	rows := make([][]string, 0, len(d.Groups))
	for _, g := range d.Groups {
		state := "expanded"
		if !g.Expanded {
			state = "collapsed"
		}
		rows = append(rows, []string{string(g.ID), g.Name, strconv.Itoa(len(g.NodeIDs)), state})
	}
	return rows
}

func (a *app) renderCmd() *cobra.Command {
	var out, title string
	var width, height int
	cmd := &cobra.Command{
		Use:   "render <scene> -o <out.png|out.svg>",
		Short: "Render the scene as PNG or SVG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return fmt.Errorf("render: -o is required")
			}
			d, meta, err := a.load(args[0])
			if err != nil {
				return err
			}
			opts := render.Options{
				Width:   a.cfg.Export.Width,
				Height:  a.cfg.Export.Height,
				Padding: a.cfg.Export.Padding,
				Title:   title,
			}
			if cmd.Flags().Changed("width") {
				opts.Width = width
			}
			if cmd.Flags().Changed("height") {
				opts.Height = height
			}
			if opts.Title == "" && meta != nil {
				opts.Title = meta.Network.Name
			}
			if err := writeImage(out, d, a.catalog, opts); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Written: %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output image; the extension picks the format")
	cmd.Flags().StringVar(&title, "title", "", "Title drawn above the scene")
	cmd.Flags().IntVar(&width, "width", 0, "Image width (default from config)")
	cmd.Flags().IntVar(&height, "height", 0, "Image height (default from config)")
	return cmd
}

func writeImage(path string, d *netfile.Document, catalog layers.Catalog, opts render.Options) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".png" && ext != ".svg" {
		return fmt.Errorf("render: unsupported format %q", filepath.Ext(path))
	}
	w, err := os.Create(path)
	if err != nil {
		return err
	}
	if ext == ".svg" {
		var svg string
		if svg, err = render.GenerateSVG(d, catalog, opts); err == nil {
			_, err = io.WriteString(w, svg)
		}
	} else {
		err = render.RenderPNG(d, catalog, w, opts)
	}
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	return err
}

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scene>",
		Short: "Check a scene for unknown types, dangling connections and bad groups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, _, err := a.load(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			problems := netfile.Validate(d, a.catalog)
			if len(problems) == 0 {
				fmt.Fprintf(w, "%s %s: valid scene with %d layers, %d connections, %d groups\n",
					ui.StatusIcon(true), args[0], len(d.Layers), len(d.Connections), len(d.Groups))
				return nil
			}
			for _, p := range problems {
				fmt.Fprintf(w, "%s %s\n", ui.StatusIcon(false), p)
			}
			ui.Bad.Fprintf(w, "%d problem(s)\n", len(problems))
			return errProblems
		},
	}
}
