package cmd

import (
	"fmt"
	"os"
	"strings"

	run "github.com/artfundry/bounty-server/cmd/bounty/run"
	"github.com/artfundry/bounty-server/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "BOUNTY"

var Cmd = &cobra.Command{
	Use:   "bounty-server",
	Short: "Artfundry bounty server CLI",
	Long:  "The marketplace backend for creative-content bounties: escrowed funding, crowd contributions, and deliverable entries",

	// Runs before this command and any subcommands
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		viper.SetEnvPrefix(envPrefix)
		viper.SetEnvKeyReplacer(strings.NewReplacer(
			`-`, `_`,
			`.`, `_`,
		))
		viper.AutomaticEnv()

		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return err
		}
		if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
			return err
		}

		return config.LoadEnvAndConfigFiles()
	},
}

func Execute() {
	if err := Cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pflags := Cmd.PersistentFlags()

	pflags.String("home", "", "Path to the bounty-server home directory")
	pflags.String("config-file", "", "Path to the config file")
	pflags.String("env-file", "", "Path to the env file")

	viper.BindPFlag("home", pflags.Lookup("home"))
	viper.BindPFlag("config_file", pflags.Lookup("config-file"))
	viper.BindPFlag("env_file", pflags.Lookup("env-file"))

	Cmd.AddCommand(run.Cmd, dbCmd, apiKeyCmd)
	Cmd.CompletionOptions.HiddenDefaultCmd = true
}
