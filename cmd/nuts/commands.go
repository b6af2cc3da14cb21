package main

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvr-ai/go-nuts/arrays"
	"github.com/nvr-ai/go-nuts/config"
	"github.com/nvr-ai/go-nuts/flow"
	"github.com/nvr-ai/go-nuts/images"
	"github.com/nvr-ai/go-nuts/npy"
	"github.com/nvr-ai/go-nuts/reader"
	"github.com/nvr-ai/go-nuts/viewer"
	"github.com/nvr-ai/go-nuts/viewer/window"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorgonia.org/tensor"
)

func newInfoCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <file>...",
		Short: "Print shape, dtype and value range of images",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			read, err := a.readImage(cmd)
			if err != nil {
				return err
			}
			loaded, err := a.readAll(cmd.Context(), read, samples(args))
			if err != nil {
				return err
			}
			f, err := flow.NewBuilder().
				Then(viewer.NewPrintColType(nil, cmd.OutOrStdout())).
				WithLogger(a.logger).
				Build()
			if err != nil {
				return err
			}
			defer f.LogTimings()
			return f.Consume(cmd.Context(), loaded)
		},
	}
	addReadFlags(cmd)
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ls <dir>",
		Short: "List readable images with format, size and checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := reader.ListImageFiles(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, path := range paths {
				img, err := images.ReadFile(path)
				if err != nil {
					a.logger.Warn("Skipping file", zap.String("path", path), zap.Error(err))
					continue
				}
				fmt.Fprintf(out, "%s\t%s\t%dx%d\t%s\n", path, img.Format, img.Width, img.Height, img.Checksum())
			}
			return nil
		},
	}
}

func newViewCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view <file>...",
		Short: "Display images, several per frame",
		Long: `Display images. Files are grouped into frames of --per-frame images
arranged in the configured layout. The png display writes numbered frame
files, the window display opens an OpenCV window.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			perFrame, _ := cmd.Flags().GetInt("per-frame")
			if perFrame < 1 || len(args)%perFrame != 0 {
				return errors.Errorf("%d files cannot be split into frames of %d", len(args), perFrame)
			}
			read, err := a.readImage(cmd)
			if err != nil {
				return err
			}
			read.Columns = nil

			display, closeDisplay, err := a.display()
			if err != nil {
				return err
			}
			defer closeDisplay()

			cols := make([]int, perFrame)
			for i := range cols {
				cols[i] = i
			}
			view, err := viewer.NewViewImage(cols, a.cfg.View.Layout, display)
			if err != nil {
				return err
			}
			view.Logger = a.logger

			items := make([]interface{}, 0, len(args)/perFrame)
			for i := 0; i < len(args); i += perFrame {
				s := make(flow.Sample, perFrame)
				for j := range s {
					s[j] = args[i+j]
				}
				items = append(items, s)
			}
			// Frames are shown in order.
			f, err := flow.NewBuilder().Then(read).Then(view).WithLogger(a.logger).Build()
			if err != nil {
				return err
			}
			defer f.LogTimings()
			return f.Consume(cmd.Context(), items)
		},
	}
	addReadFlags(cmd)
	cmd.Flags().Int("per-frame", 1, "Images per frame")
	return cmd
}

func newConvertCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <in> <out.npy|out.png>",
		Short: "Convert an image or NPY file to NPY or PNG",
		Long: `Convert an image or NPY file to NPY or PNG. With --size the array is
resized first; sizes are WxH or a name such as 720p.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			read, err := a.readImage(cmd)
			if err != nil {
				return err
			}
			out, err := read.Apply(cmd.Context(), flow.Sample{args[0]})
			if err != nil {
				return err
			}
			arr := out.(flow.Sample)[0].(*tensor.Dense)
			if text, _ := cmd.Flags().GetString("size"); text != "" {
				size, err := images.ParseSize(text)
				if err != nil {
					return err
				}
				if arr, err = images.Resize(arr, size.Width, size.Height, images.LanczosFilter); err != nil {
					return err
				}
			}
			if err := writeArray(args[1], arr); err != nil {
				return err
			}
			a.logger.Info("Converted",
				zap.String("in", args[0]),
				zap.String("out", args[1]),
				zap.String("shape", arrays.ShapeString(arr)))
			return nil
		},
	}
	addReadFlags(cmd)
	cmd.Flags().String("size", "", "Resize to WxH or a named size, e.g. 720p")
	return cmd
}

func newLabelsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "labels <dir>",
		Short: "Read images from label directories",
		Long: `Read images from <dir>/<label>/<file> and print their column types.
With --view every image is displayed with its label.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, _ := cmd.Flags().GetString("files")
			items, err := reader.ReadLabelDirs(args[0], files)
			if err != nil {
				return err
			}
			read, err := a.readImage(cmd)
			if err != nil {
				return err
			}
			loaded, err := a.readAll(cmd.Context(), read, items)
			if err != nil {
				return err
			}

			b := flow.NewBuilder().
				Then(viewer.NewPrintColType(nil, cmd.OutOrStdout())).
				WithLogger(a.logger)
			if show, _ := cmd.Flags().GetBool("view"); show {
				display, closeDisplay, err := a.display()
				if err != nil {
					return err
				}
				defer closeDisplay()
				anno, err := viewer.NewViewImageAnnotation(0, []int{1}, display)
				if err != nil {
					return err
				}
				b.Then(anno)
			}
			f, err := b.Build()
			if err != nil {
				return err
			}
			defer f.LogTimings()
			return f.Consume(cmd.Context(), loaded)
		},
	}
	addReadFlags(cmd)
	cmd.Flags().String("files", "*", "Glob for files within a label directory")
	cmd.Flags().Bool("view", false, "Display every image with its label")
	return cmd
}

// readAll loads items with the configured number of workers. Results keep
// the input order, so the printing and display stages that follow run
// sequentially over them.
func (a *app) readAll(ctx context.Context, read *reader.ReadImage, items []interface{}) ([]interface{}, error) {
	f, err := flow.NewBuilder().
		Then(read).
		WithWorkers(a.cfg.Workers).
		WithLogger(a.logger).
		Build()
	if err != nil {
		return nil, err
	}
	defer f.LogTimings()
	return f.Collect(ctx, items)
}

// display creates the configured Display and a function releasing it.
func (a *app) display() (viewer.Display, func(), error) {
	switch a.cfg.View.Display {
	case config.DisplayWindow:
		pause, err := a.cfg.PauseDuration()
		if err != nil {
			return nil, nil, err
		}
		w := window.New("nuts", pause)
		return w, func() { _ = w.Close() }, nil
	default:
		d := viewer.NewPlotDisplay(a.cfg.View.Dir, a.cfg.View.Prefix)
		d.Logger = a.logger
		return d, func() {
			a.logger.Info("Frames written", zap.String("dir", d.Dir), zap.Int("frames", d.Frames()))
		}, nil
	}
}

func samples(paths []string) []interface{} {
	items := make([]interface{}, len(paths))
	for i, p := range paths {
		items[i] = flow.Sample{p}
	}
	return items
}

// writeArray writes arr as NPY or, for .png paths, as a PNG image.
func writeArray(path string, arr *tensor.Dense) (err error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".npy" && ext != ".png" {
		return errors.Errorf("unsupported output %q (valid: .npy, .png)", ext)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating output")
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if ext == ".npy" {
		return npy.Write(f, arr)
	}
	img, err := arrays.ToImage(arr)
	if err != nil {
		return err
	}
	return errors.Wrap(png.Encode(f, img), "encoding png")
}
