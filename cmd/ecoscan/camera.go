package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-detect/inference"
	"github.com/nvr-ai/go-detect/render"
)

const flagDevice = "device"

func cameraCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:  "camera",
		Usage: "scan frames from a video capture device and show the detections",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: flagDevice, Value: 0, Usage: "video capture device `ID`"},
			&cli.StringFlag{Name: flagModel, Aliases: []string{"m"}, Usage: "ONNX model `FILE`"},
			&cli.StringFlag{Name: flagMode, Usage: "annotation mode: best or all"},
		},
		Action: func(c *cli.Context) error {
			if err := applyFlags(c, &st.cfg); err != nil {
				return err
			}
			return camera(c, st, c.Int(flagDevice))
		},
	}
}

func camera(c *cli.Context, st *state, deviceID int) error {
	cfg := st.cfg
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

	webcam, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return errors.Wrapf(err, "failed to open capture device %d", deviceID)
	}
	defer webcam.Close()

	window := gocv.NewWindow("ecoscan")
	defer window.Close()

	frame := gocv.NewMat()
	defer frame.Close()

	last := ""
	for c.Context.Err() == nil {
		if ok := webcam.Read(&frame); !ok {
			return errors.Errorf("cannot read device %d", deviceID)
		}
		if frame.Empty() {
			continue
		}

		img, err := frame.ToImage()
		if err != nil {
			return errors.Wrap(err, "failed to convert frame")
		}
		report, err := detector.Scan(c.Context, img)
		if err != nil {
			return err
		}
		if err := render.Annotate(&frame, report.Detections, cfg.Render.Mode); err != nil {
			return err
		}

		if summary := report.String(); summary != last {
			fmt.Fprintln(c.App.Writer, summary)
			st.logger.Debug("scan changed", zap.Int("detections", len(report.Detections)))
			last = summary
		}

		window.IMShow(frame)
		if window.WaitKey(1) == 27 {
			return nil
		}
	}
	return c.Context.Err()
}
