package main

import (
	"fmt"

	"github.com/opd-ai/ccoaudio/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

// RootCommand creates the ccod command tree. Settings are loaded once the
// command line is parsed, so flags take precedence over the environment
// and the config file.
func RootCommand() *cobra.Command {
	return newRootCommand(config.New())
}

func newRootCommand(v *viper.Viper) *cobra.Command {
	var settings *config.Settings
	var configFile string

	root := &cobra.Command{
		Use:           "ccod",
		Short:         "Ethernet audio link daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				v.SetConfigFile(configFile)
			}
			s, err := config.Load(v)
			if err != nil {
				return err
			}
			if err := config.ConfigureLogging(s); err != nil {
				return err
			}
			settings = s
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Path to the config file (default: ccod.yaml in ., ~/.config/ccod, /etc/ccod)")
	flags.String("interface", "", "Network interface connected to the peer")
	flags.String("mode", "", "Link mode: raw or simulation")
	flags.String("log-level", "", "Log level: trace, debug, info, warn or error")
	flags.String("log-format", "", "Log format: text or json")
	if err := bindFlags(v, root); err != nil {
		panic(err)
	}

	root.AddCommand(
		runCommand(func() *config.Settings { return settings }),
		interfacesCommand(),
		devicesCommand(),
		versionCommand(),
	)
	return root
}

// bindFlags maps persistent flags to their config keys.
func bindFlags(v *viper.Viper, root *cobra.Command) error {
	for key, flag := range map[string]string{
		"link.interface": "interface",
		"link.mode":      "mode",
		"log.level":      "log-level",
		"log.format":     "log-format",
	} {
		if err := v.BindPFlag(key, root.PersistentFlags().Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}
