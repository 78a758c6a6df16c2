// Package main is the ecoscan command: it detects waste in images and tells which bin
// it goes in.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nvr-ai/go-detect/config"
	"github.com/nvr-ai/go-detect/disposal"
	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/inference"
	"github.com/nvr-ai/go-detect/models/postprocess"
	"github.com/nvr-ai/go-detect/models/postprocess/dense"
	"github.com/nvr-ai/go-detect/render"
	"github.com/nvr-ai/go-detect/util"
)

const (
	flagConfig     = "config"
	flagEnv        = "env"
	flagDebug      = "debug"
	flagModel      = "model"
	flagLabels     = "labels"
	flagConfidence = "confidence"
	flagIoU        = "iou"
	flagClassAware = "class-aware"
	flagMode       = "mode"
	flagOutputDir  = "output-dir"
	flagWorkers    = "workers"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "ecoscan:", err)
		os.Exit(1)
	}
}

// state is shared by the commands after Before has run.
type state struct {
	cfg    config.Config
	logger *zap.Logger
}

func newApp(out io.Writer) *cli.App {
	st := &state{logger: zap.NewNop()}

	return &cli.App{
		Name:      "ecoscan",
		Usage:     "detect waste in images and find the right bin",
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.StringSliceFlag{
				Name:  flagEnv,
				Value: cli.NewStringSlice(".env"),
				Usage: "load environment variables from `FILE` if it exists",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if err := config.LoadDotEnv(c.StringSlice(flagEnv)...); err != nil {
				return err
			}
			cfg, err := config.Load(c.String(flagConfig))
			if err != nil {
				return err
			}
			if c.Bool(flagDebug) {
				cfg.Log.Level = "debug"
				cfg.Log.Development = true
			}
			logger, err := util.NewLogger(cfg.Log.Level, cfg.Log.Development)
			if err != nil {
				return err
			}
			st.cfg = cfg
			st.logger = logger
			return nil
		},
		After: func(c *cli.Context) error {
			_ = st.logger.Sync()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "detect",
				Usage:     "detect waste in images",
				ArgsUsage: "<image|directory>...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagModel, Aliases: []string{"m"}, Usage: "ONNX model `FILE`"},
					&cli.StringFlag{Name: flagLabels, Usage: "labels `FILE`, one per line"},
					&cli.Float64Flag{Name: flagConfidence, Usage: "confidence threshold in [0,1]"},
					&cli.Float64Flag{Name: flagIoU, Usage: "NMS IoU threshold in [0,1]"},
					&cli.BoolFlag{Name: flagClassAware, Usage: "only suppress overlapping boxes of the same class"},
					&cli.StringFlag{Name: flagMode, Usage: "annotation mode: best or all"},
					&cli.StringFlag{Name: flagOutputDir, Aliases: []string{"o"}, Usage: "write annotated images to `DIR`"},
					&cli.IntFlag{Name: flagWorkers, Aliases: []string{"j"}, Usage: "images processed at once"},
				},
				Action: func(c *cli.Context) error {
					if err := applyFlags(c, &st.cfg); err != nil {
						return err
					}
					return detect(c, st)
				},
			},
			{
				Name:  "labels",
				Usage: "list the labels and the bin of each",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagLabels, Usage: "labels `FILE`, one per line"},
				},
				Action: func(c *cli.Context) error {
					if c.IsSet(flagLabels) {
						st.cfg.Model.LabelsPath = c.String(flagLabels)
					}
					return listLabels(c.App.Writer, st.cfg)
				},
			},
			{
				Name:      "replay",
				Usage:     "run post-processing on raw model outputs saved with numpy.save",
				ArgsUsage: "<output.npy>...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagLabels, Usage: "labels `FILE`, one per line"},
					&cli.Float64Flag{Name: flagConfidence, Usage: "confidence threshold in [0,1]"},
					&cli.Float64Flag{Name: flagIoU, Usage: "NMS IoU threshold in [0,1]"},
					&cli.BoolFlag{Name: flagClassAware, Usage: "only suppress overlapping boxes of the same class"},
				},
				Action: func(c *cli.Context) error {
					if err := applyFlags(c, &st.cfg); err != nil {
						return err
					}
					return replay(c, st)
				},
			},
			cameraCommand(st),
		},
	}
}

func applyFlags(c *cli.Context, cfg *config.Config) error {
	if c.IsSet(flagModel) {
		cfg.Model.Path = c.String(flagModel)
	}
	if c.IsSet(flagLabels) {
		cfg.Model.LabelsPath = c.String(flagLabels)
	}
	if c.IsSet(flagConfidence) {
		cfg.Detection.Confidence = float32(c.Float64(flagConfidence))
	}
	if c.IsSet(flagIoU) {
		cfg.Detection.IoU = float32(c.Float64(flagIoU))
	}
	if c.IsSet(flagClassAware) {
		cfg.Detection.ClassAware = c.Bool(flagClassAware)
	}
	if c.IsSet(flagMode) {
		cfg.Render.Mode = render.Mode(c.String(flagMode))
	}
	if c.IsSet(flagOutputDir) {
		cfg.Render.OutputDir = c.String(flagOutputDir)
	}
	if c.IsSet(flagWorkers) {
		cfg.Workers = c.Int(flagWorkers)
	}
	return cfg.Validate()
}

func detect(c *cli.Context, st *state) error {
	if c.NArg() == 0 {
		return errors.New("no images given")
	}
	cfg := st.cfg

	paths, err := util.ListImageFiles(c.Args().Slice()...)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return errors.New("no images found")
	}

	labels, err := cfg.Labels()
	if err != nil {
		return err
	}
	engine, err := inference.NewEngineBuilder().
		WithModel(cfg.Model).
		WithLabels(labels).
		WithLogger(st.logger).
		Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	detector, err := inference.NewDetector(engine, cfg.Pipeline(labels), st.logger)
	if err != nil {
		return err
	}

	if cfg.Render.OutputDir != "" {
		if err := os.MkdirAll(cfg.Render.OutputDir, 0o755); err != nil {
			return errors.Wrap(err, "failed to create output directory")
		}
	}

	reports := make([]inference.Report, len(paths))
	g, ctx := errgroup.WithContext(c.Context)
	g.SetLimit(cfg.Workers)
	for i, path := range paths {
		g.Go(func() error {
			img, err := images.Load(path)
			if err != nil {
				return err
			}
			report, err := detector.Scan(ctx, img)
			if err != nil {
				return errors.Wrapf(err, "failed to scan %s", path)
			}
			reports[i] = report
			st.logger.Debug("scanned", zap.String("path", path), zap.Int("detections", len(report.Detections)))

			if cfg.Render.OutputDir == "" {
				return nil
			}
			dst := filepath.Join(cfg.Render.OutputDir, outputName(i, path))
			return render.WriteFile(dst, img, report.Detections, cfg.Render.Mode)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, path := range paths {
		fmt.Fprintf(c.App.Writer, "%s: %s\n", path, reports[i])
	}
	return nil
}

// outputName names the annotated copy of the i-th input. Inputs from different
// directories may share a base name.
func outputName(i int, path string) string {
	return fmt.Sprintf("%03d-%s", i, filepath.Base(path))
}

func replay(c *cli.Context, st *state) error {
	if c.NArg() == 0 {
		return errors.New("no output files given")
	}
	labels, err := st.cfg.Labels()
	if err != nil {
		return err
	}
	pipeline := st.cfg.Pipeline(labels)

	for _, path := range c.Args().Slice() {
		out, err := dense.LoadNpy(path)
		if err != nil {
			return err
		}
		if out.Classes != len(labels) {
			st.logger.Warn("label count does not match output classes",
				zap.String("path", path),
				zap.Int("labels", len(labels)),
				zap.Int("classes", out.Classes),
			)
		}

		report := inference.NewReport(postprocess.Detect(out, pipeline))
		fmt.Fprintf(c.App.Writer, "%s: %s\n", path, report)
		for _, d := range report.Detections {
			fmt.Fprintf(c.App.Writer, "  %s\n", d)
		}
	}
	return nil
}

func listLabels(out io.Writer, cfg config.Config) error {
	labels, err := cfg.Labels()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tLABEL\tBIN\tCOLOUR\tSTREAM")
	for i, label := range labels {
		category, _ := disposal.Lookup(label)
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i, label, category.Bin, category.Hex(), category.Description)
	}
	return w.Flush()
}
