// Package main runs a timed visual odometry benchmark over a stereo sequence.
package main

import (
	"context"
	"os"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/viamrobotics/keyframe-vo/dataset"
	"github.com/viamrobotics/keyframe-vo/perf"
	"github.com/viamrobotics/keyframe-vo/view"
	"github.com/viamrobotics/keyframe-vo/vo"
	"github.com/viamrobotics/keyframe-vo/vo/fake"
)

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

var (
	defaultPort   = 5555
	pathImageSize = 800

	logger = golog.NewDevelopmentLogger("voperf")
)

// Arguments for the command.
type Arguments struct {
	ConfigFile string            `flag:"0,required,usage=run config file"`
	Output     string            `flag:"output,usage=prefix for result files (omit for a dry run)"`
	NumFrames  int               `flag:"numframes,default=1000,usage=maximum number of frames to process (0 for no limit)"`
	DontShow   bool              `flag:"dontshow,usage=disable the frame viewer"`
	Port       utils.NetPortFlag `flag:"port,usage=frame viewer port"`
	Hist       bool              `flag:"hist,usage=print a timing histogram"`
	PathImage  string            `flag:"pathimg,usage=render the camera path to a PNG"`
	Engine     string            `flag:"engine,default=fake,usage=odometry engine to benchmark"`
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}
	if argsParsed.Port == 0 {
		argsParsed.Port = utils.NetPortFlag(defaultPort)
	}

	cfg, err := perf.LoadRunConfig(argsParsed.ConfigFile)
	if err != nil {
		return err
	}
	return runBenchmark(ctx, argsParsed, cfg, logger)
}

func runBenchmark(ctx context.Context, args Arguments, cfg *perf.RunConfig, logger golog.Logger) (err error) {
	source, err := dataset.NewSource(cfg.Dataset, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, source.Close())
	}()

	engine, err := newEngine(args.Engine, cfg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, engine.Close())
	}()

	opts := perf.Options{
		MaxFrames: args.NumFrames,
		Progress:  os.Stdout,
		Logger:    logger,
	}
	if !args.DontShow {
		server := view.NewServer(int(args.Port), logger)
		if err := server.Start(); err != nil {
			return err
		}
		defer func() {
			err = multierr.Combine(err, server.Stop(context.Background()))
		}()
		opts.Viewer = server

		watcher, watchErr := view.StartKeyWatcher(logger)
		if watchErr != nil {
			logger.Debugw("interactive abort disabled", "error", watchErr)
		} else {
			defer func() {
				err = multierr.Combine(err, watcher.Close())
			}()
			opts.CancelRequested = watcher.AbortRequested
		}
	}

	runner := &perf.Runner{
		Source:    source,
		Engine:    engine,
		Algorithm: cfg.Algorithm,
		Opts:      opts,
	}

	utils.ContextMainReadyFunc(ctx)()

	res, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	summary, err := res.Summarize()
	if err != nil {
		return err
	}
	logger.Infow("run summary",
		"frames", summary.Frames,
		"total_time_s", summary.TotalTime,
		"mean_ms", summary.MeanMS,
		"median_ms", summary.MedianMS,
		"p95_ms", summary.P95MS,
		"max_ms", summary.MaxMS,
		"mean_iterations", summary.MeanIterations,
		"rate_hz", summary.RateHz,
	)
	if args.Hist {
		if err := res.PrintTimingHistogram(os.Stdout, 0); err != nil {
			return err
		}
	}

	perf.WriteResults(args.Output, res, logger)
	if args.PathImage != "" {
		if err := perf.WritePathImage(args.PathImage, res.Trajectory, pathImageSize); err != nil {
			return errors.Wrap(err, "error saving path image")
		}
	}
	return nil
}

func newEngine(name string, cfg *perf.RunConfig) (vo.Engine, error) {
	switch name {
	case "fake":
		return fake.NewEngine(cfg.Calibration, cfg.Algorithm)
	default:
		return nil, errors.Errorf("unknown engine %q", name)
	}
}
