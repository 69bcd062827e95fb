package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/crimpworks/hangboard"
	"github.com/crimpworks/hangboard/pkg/nvm"
	"github.com/crimpworks/hangboard/pkg/proto"
	"github.com/crimpworks/hangboard/pkg/transport/loopback"
	"github.com/crimpworks/hangboard/pkg/weight"
)

func newSimulateCommand() *cobra.Command {
	var duration time.Duration
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Stream simulated weight data to an in-process peer",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), duration)
			defer cancel()

			memDev := nvm.NewMemDevice(storeBlockSize, storeBlocks)
			store, err := nvm.NewStore(memDev)
			if err != nil {
				return err
			}
			// Seed a mapping matching the simulated load cell's baseline so
			// the stream shows plausible weights instead of NaN.
			if err := store.Commit(120000, 0.001); err != nil {
				return err
			}

			tr := loopback.New(func(frame []byte) {
				if kg, us, ok := proto.DecodeWeightFrame(frame); ok {
					fmt.Printf("%8.3f kg  t=%dus\n", kg, us)
				}
			})

			dev, err := hangboard.New(hangboard.Options{
				Config:    cfg,
				Source:    weight.NewSimSource(cfg.SamplingHz),
				Store:     store,
				Transport: tr,
				Battery:   func() (uint32, error) { return 3950, nil },
			})
			if err != nil {
				return err
			}
			tr.Bind(dev.HandleFrame)

			go func() {
				// Give the filter window time to warm up, then start the
				// stream the way a real peer would.
				time.Sleep(500 * time.Millisecond)
				tr.Inject([]byte{proto.CmdStartMeasurement})
			}()

			logrus.Info("simulating; Ctrl-C or timeout to stop")
			dev.Run(ctx)
			return nil
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 10*time.Second, "how long to stream")
	return cmd
}
