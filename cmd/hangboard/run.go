package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/crimpworks/hangboard"
	"github.com/crimpworks/hangboard/pkg/nvm"
	"github.com/crimpworks/hangboard/pkg/transport/ble"
	"github.com/crimpworks/hangboard/pkg/transport/serialio"
	"github.com/crimpworks/hangboard/pkg/weight"
)

// Calibration store geometry: two slots, one small block each.
const (
	storeBlockSize = 256
	storeBlocks    = 2
)

func newRunCommand() *cobra.Command {
	var (
		serialPort string
		serialBaud int
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the sensor on a BLE (or serial) transport",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := openStore(cfg.StoragePath)
			if err != nil {
				return err
			}

			// The raw ADC driver is a hardware collaborator; on hosts the
			// simulated load cell stands in for it.
			source := weight.NewSimSource(cfg.SamplingHz)

			// The transport needs its handler before the device exists; a
			// frame arriving in that window is dropped.
			var dev *hangboard.Device
			handler := func(frame []byte) {
				if dev != nil {
					dev.HandleFrame(frame)
				}
			}

			var tr hangboard.Transport
			if serialPort != "" {
				tr, err = serialio.Open(serialPort, serialBaud, handler)
			} else {
				tr, err = ble.Start(cfg.Name, handler)
			}
			if err != nil {
				return err
			}
			defer tr.Close()

			dev, err = hangboard.New(hangboard.Options{
				Config:     cfg,
				Source:     source,
				Store:      store,
				Transport:  tr,
				Battery:    func() (uint32, error) { return 3950, nil },
				OnShutdown: stop,
			})
			if err != nil {
				return err
			}

			logrus.WithField("name", cfg.Name).Info("sensor running")
			dev.Run(ctx)
			return nil
		},
	}
	cmd.Flags().StringVar(&serialPort, "serial", "", "serve over this serial port instead of BLE")
	cmd.Flags().IntVar(&serialBaud, "baud", 115200, "serial baud rate")
	return cmd
}

func openStore(path string) (*nvm.Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dev, err := nvm.OpenFileDevice(path, storeBlockSize, storeBlocks)
	if err != nil {
		return nil, err
	}
	return nvm.NewStore(dev)
}
