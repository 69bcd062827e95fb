package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/crimpworks/hangboard/pkg/config"
)

var (
	flagConfig   string
	flagLogLevel string

	cfg config.Config
)

func main() {
	root := &cobra.Command{
		Use:   "hangboard",
		Short: "Progressor-compatible force sensor firmware",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(flagLogLevel)
			if err != nil {
				return err
			}
			logrus.SetLevel(level)

			cfg, err = config.Load(flagConfig)
			return err
		},
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", defaultConfigPath(), "path to config file")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level (trace..error)")

	root.AddCommand(newRunCommand())
	root.AddCommand(newSimulateCommand())
	root.AddCommand(newVersionCommand())

	if err := root.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "hangboard.toml"
	}
	return dir + "/hangboard/config.toml"
}
