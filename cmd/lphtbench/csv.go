package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/llxisdsh/lphash/internal/report"
)

func csvCommand() *cli.Command {
	return &cli.Command{
		Name:  "csv",
		Usage: "Sweep the resize threshold and write batch timings as CSV",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "capacity", Usage: "Initial table capacity, a power of two."},
			&cli.IntFlag{Name: "kv-size", Usage: "Pairs generated per iteration."},
			&cli.IntFlag{Name: "batches", Usage: "Insert and delete batches per iteration."},
			&cli.IntFlag{Name: "iterations", Usage: "Timed iterations per threshold."},
			&cli.FloatFlag{Name: "min-threshold", Usage: "First threshold of the sweep."},
			&cli.FloatFlag{Name: "max-threshold", Usage: "Sweep stops below this threshold."},
			&cli.FloatFlag{Name: "step", Usage: "Threshold increment."},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "CSV file to write."},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cc := &cfg.CSV
			if cmd.IsSet("capacity") {
				cc.Capacity = int(cmd.Int("capacity"))
			}
			if cmd.IsSet("kv-size") {
				cc.KVSize = int(cmd.Int("kv-size"))
			}
			if cmd.IsSet("batches") {
				cc.Batches = int(cmd.Int("batches"))
			}
			if cmd.IsSet("iterations") {
				cc.Iterations = int(cmd.Int("iterations"))
			}
			if cmd.IsSet("min-threshold") {
				cc.MinThreshold = cmd.Float("min-threshold")
			}
			if cmd.IsSet("max-threshold") {
				cc.MaxThreshold = cmd.Float("max-threshold")
			}
			if cmd.IsSet("step") {
				cc.Step = cmd.Float("step")
			}
			if cmd.IsSet("output") {
				cc.Output = cmd.String("output")
			}

			e, err := setup(cmd, cfg)
			if err != nil {
				return err
			}
			defer e.close()
			return e.sweep()
		},
	}
}

func (e *env) sweep() error {
	cc := e.cfg.CSV
	w, err := report.Create(cc.Output)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "seed %d\n", e.seed)
	rows, err := e.runner.Sweep(cc, e.seed, w)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	e.logger.Info("sweep written", zap.String("output", cc.Output), zap.Int("thresholds", len(rows)))
	fmt.Fprintf(e.out, "%d thresholds written to %s\n", len(rows), cc.Output)
	return nil
}
