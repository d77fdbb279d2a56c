package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/tansive/pronote/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the pronote configuration file",
	}
	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration for the demonstration portal",
		Long: `Write a configuration file for the public demonstration portal. Credentials are
read from PRONOTE_USERNAME, PRONOTE_PASSWORD and PRONOTE_TOKEN, or from the .env
file next to the configuration.

Examples:
  pronote config init
  pronote config init --config ./pronote.toml --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(configFile); err == nil && !force {
				return fmt.Errorf("config file %s already exists, use --force to overwrite", configFile)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := config.WriteConfig(config.Default(), configFile); err != nil {
				return err
			}
			if jsonOutput {
				printJSON(map[string]string{"config_file": configFile})
				return nil
			}
			okLabel.Print("[OK] ")
			fmt.Printf("configuration written to %s\n", configFile)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration file")
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long:  `Print the configuration after .env and PRONOTE_* overrides, with secrets masked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadConfig(configFile); err != nil {
				return err
			}
			c := *config.Config()
			c.Crypto.Secret = mask(c.Crypto.Secret)
			c.Identity.Password = mask(c.Identity.Password)
			c.Identity.Token = mask(c.Identity.Token)
			c.Store.DSN = mask(c.Store.DSN)
			if jsonOutput {
				printJSON(c)
				return nil
			}
			return toml.NewEncoder(os.Stdout).Encode(c)
		},
	}
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
