// Package cli holds the root command of energyua.
package cli

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/clambin/energyua-monitor/internal/cmd/monitor"
	"github.com/clambin/energyua-monitor/internal/cmd/parse"
	"github.com/clambin/energyua-monitor/internal/configuration"
	"github.com/clambin/go-common/charmer"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version        = "change-me"
	configFilename string
	RootCmd        = cobra.Command{
		Use:     "energyua",
		Short:   "Monitors the energy-ua outage schedule of a group",
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			charmer.SetJSONLogger(cmd, viper.GetBool("debug"))
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	RootCmd.PersistentFlags().StringVar(&configFilename, "config", "", "Configuration file")
	_ = charmer.SetPersistentFlags(&RootCmd, viper.GetViper(), configuration.Arguments)
	RootCmd.AddCommand(&monitor.Cmd, &parse.Cmd)
}

func initConfig() {
	if configFilename != "" {
		viper.SetConfigFile(configFilename)
	} else {
		viper.AddConfigPath("/etc/energyua/")
		viper.AddConfigPath("$HOME/.energyua")
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
	}

	if err := configuration.SetDefaults(viper.GetViper()); err != nil {
		panic("failed to set viper defaults: " + err.Error())
	}

	// a missing .env file is not an error
	_ = godotenv.Load()
	viper.SetEnvPrefix("ENERGYUA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFilename != "" || !errors.As(err, &notFound) {
			slog.Error("failed to read config file", "err", err)
			os.Exit(1)
		}
	}
}
