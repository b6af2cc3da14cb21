// Command nuts reads, inspects, converts and views image samples.
package main

import (
	"fmt"
	"os"

	"github.com/nvr-ai/go-nuts/arrays"
	"github.com/nvr-ai/go-nuts/config"
	"github.com/nvr-ai/go-nuts/images"
	"github.com/nvr-ai/go-nuts/logging"
	"github.com/nvr-ai/go-nuts/reader"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app carries state shared by all sub-commands.
type app struct {
	configPath string
	debug      bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "nuts",
		Short: "Read, inspect and view image samples",
		Long: `nuts loads images (GIF, PNG, JPG, BMP, TIF, WebP) and NPY arrays into
arrays of shape (h,w,3), (h,w) or (h,w,4) and runs them through small
pipelines that print, convert or display them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.Flags().Changed("config"))
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "nuts.yaml", "Configuration file")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		newInfoCmd(a),
		newListCmd(a),
		newViewCmd(a),
		newConvertCmd(a),
		newLabelsCmd(a),
	)
	return root
}

// init loads the configuration and builds the logger. Only the default
// config path may be absent; a file named with --config must exist.
func (a *app) init(explicitConfig bool) error {
	if explicitConfig {
		if _, err := os.Stat(a.configPath); err != nil {
			return errors.Wrap(err, "config file")
		}
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	logger, level, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	if a.debug {
		level.SetLevel(zapcore.DebugLevel)
	}
	a.cfg, a.logger = cfg, logger
	a.logger.Debug("Configuration loaded", zap.String("path", a.configPath), zap.Int("workers", cfg.Workers))
	return nil
}

// addReadFlags registers flags that override the read section of the config.
func addReadFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("gray", false, "Convert color images to gray scale")
	cmd.Flags().String("dtype", "", "Convert arrays to dtype, e.g. float32")
	cmd.Flags().String("pattern", "", `Path pattern, "*" is replaced by the argument`)
}

// readImage builds a ReadImage nut for column 0 from config and flags.
func (a *app) readImage(cmd *cobra.Command) (*reader.ReadImage, error) {
	opts := a.cfg.Read
	if cmd.Flags().Changed("gray") {
		opts.Gray, _ = cmd.Flags().GetBool("gray")
	}
	if cmd.Flags().Changed("dtype") {
		opts.Dtype, _ = cmd.Flags().GetString("dtype")
	}
	if cmd.Flags().Changed("pattern") {
		opts.Pattern, _ = cmd.Flags().GetString("pattern")
	}

	var path reader.PathFunc
	if opts.Pattern != "" {
		path = reader.Pattern(opts.Pattern)
	}
	read := reader.NewReadImage([]int{0}, path)
	read.Options = images.LoadOptions{Gray: opts.Gray}
	read.Logger = a.logger
	if opts.Dtype != "" {
		dtype, err := arrays.ParseDtype(opts.Dtype)
		if err != nil {
			return nil, err
		}
		read.Options.Dtype = dtype
	}
	return read, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
