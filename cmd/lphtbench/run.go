package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Insert, delete, drain and verify random batches, round after round",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "capacity", Usage: "Initial table capacity, a power of two."},
			&cli.FloatFlag{Name: "threshold", Usage: "Resize threshold; 1 or more disables growth."},
			&cli.IntFlag{Name: "kv-size", Usage: "Pairs generated per round."},
			&cli.IntFlag{Name: "insert-batches", Usage: "Insert batches per round."},
			&cli.IntFlag{Name: "delete-batches", Usage: "Delete batches per round."},
			&cli.IntFlag{Name: "rounds", Usage: "Rounds to run; 0 runs until interrupted."},
			&cli.BoolFlag{Name: "skip-baseline", Usage: "Do not time the Go map baseline."},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			rc := &cfg.Run
			if cmd.IsSet("capacity") {
				rc.Capacity = int(cmd.Int("capacity"))
			}
			if cmd.IsSet("threshold") {
				rc.Threshold = cmd.Float("threshold")
			}
			if cmd.IsSet("kv-size") {
				rc.KVSize = int(cmd.Int("kv-size"))
			}
			if cmd.IsSet("insert-batches") {
				rc.InsertBatches = int(cmd.Int("insert-batches"))
			}
			if cmd.IsSet("delete-batches") {
				rc.DeleteBatches = int(cmd.Int("delete-batches"))
			}
			if cmd.IsSet("rounds") {
				rc.Rounds = int(cmd.Int("rounds"))
			}
			if cmd.IsSet("skip-baseline") {
				rc.SkipBaseline = cmd.Bool("skip-baseline")
			}

			e, err := setup(cmd, cfg)
			if err != nil {
				return err
			}
			defer e.close()
			return e.run(ctx)
		},
	}
}

func (e *env) run(ctx context.Context) error {
	rc := e.cfg.Run
	fmt.Fprintf(e.out, "seed %d\n", e.seed)
	for round := 0; rc.Rounds == 0 || round < rc.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			e.logger.Info("interrupted", zap.Int("rounds", round))
			return nil
		}
		res, err := e.runner.Round(rc, e.seed+uint64(round))
		if err != nil {
			return err
		}

		fmt.Fprintf(e.out, "round %d: %d inserted, %d deleted, %d live\n",
			round, res.Inserted, res.Deleted, res.Live)
		fmt.Fprintf(e.out, "  lphash   %v  %.2f million keys/second\n",
			res.Elapsed, res.KeysPerSecond(rc.Capacity)/1e6)
		if !rc.SkipBaseline {
			fmt.Fprintf(e.out, "  go map   %v  %.2f million keys/second\n",
				res.Baseline, res.BaselineKeysPerSecond(rc.Capacity)/1e6)
		}
		fmt.Fprintf(e.out, "  %s\n", res.Stats.ToString())
		if res.Verified.Stale > 0 {
			e.logger.Warn("deleted keys survived", zap.Int("stale", res.Verified.Stale))
		}
	}
	return nil
}
