package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/tansive/pronote/internal/common/apperrors"
	"github.com/tansive/pronote/internal/common/logtrace"
	"github.com/tansive/pronote/internal/config"
	"github.com/tansive/pronote/internal/pronote/protoerror"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// Global flags
	jsonOutput bool
	configFile string
	logLevel   string
)

var ErrAlreadyHandled = errors.New("already handled")

var okLabel = color.New(color.FgGreen)
var errorLabel = color.New(color.FgRed)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pronote [command] [flags]",
	Short: "Pronote portal client",
	Long: `pronote opens authenticated sessions on a Pronote school portal using the
portal's encrypted function call protocol.

Examples:
  # Write a configuration for the demonstration portal
  pronote config init

  # Authenticate and save the exchanged calls
  pronote connect --transcript session.snappy

  # Decode an order token
  pronote token decode --session-iv 000102030405060708090a0b0c0d0e0f 5c1d...`,
	PersistentPreRunE: preRunHandlePersistents,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "", "", "Path to configuration file to override default")
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "", "", "Log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newConnectCmd())
	rootCmd.AddCommand(newBootstrapCmd())
	rootCmd.AddCommand(newTokenCmd())
	rootCmd.AddCommand(newTranscriptCmd())
	rootCmd.AddCommand(newStoreCmd())
}

// Execute runs the root command and exits with the error's exit code on failure.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	err := rootCmd.Execute()
	if err != nil {
		code := apperrors.ExitCode(err, 1)
		if errors.Is(err, ErrAlreadyHandled) {
			os.Exit(code)
		}
		msg := err.Error()
		var ae apperrors.Error
		if errors.As(err, &ae) {
			msg = ae.ErrorAll()
		}
		if jsonOutput {
			kv := map[string]string{
				"error": msg,
			}
			if kind := protoerror.Kind(err); kind != "" {
				kv["kind"] = kind
			}
			printJSON(kv)
		} else {
			errorLabel.Fprintf(os.Stderr, "Error: %s\n", msg)
		}
		os.Exit(code)
	}
}

// commands that work without a configuration file
var configFree = map[string]bool{
	"version":    true,
	"config":     true,
	"token":      true,
	"transcript": true,
}

// preRunHandlePersistents sets up logging and loads the configuration before command execution
func preRunHandlePersistents(cmd *cobra.Command, args []string) error {
	logtrace.InitLogger(logLevel, true)

	if configFile == "" {
		var err error
		configFile, err = config.DefaultConfigPath()
		if err != nil {
			return err
		}
	}

	for c := cmd; c != nil; c = c.Parent() {
		if configFree[c.Name()] {
			return nil
		}
	}

	if err := config.LoadConfig(configFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config file %s not found; create one with \"pronote config init\"", configFile)
		}
		return err
	}
	if logLevel == "" {
		logtrace.InitLogger(config.Config().LogLevel, true)
	}
	return nil
}

// newVersionCmd creates and returns a new version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of pronote",
		Run: func(cmd *cobra.Command, args []string) {
			configPath, err := config.DefaultConfigPath()
			if err != nil {
				configPath = "unknown"
			}

			if jsonOutput {
				kv := map[string]string{
					"version":       getCLIVersion(),
					"config_format": config.ConfigFormatVersion,
					"config_file":   configPath,
				}
				printJSON(kv)
			} else {
				cmd.Printf("pronote %s\n", getCLIVersion())
				cmd.Printf("Config format: %s\n", config.ConfigFormatVersion)
				cmd.Printf("Config file: %s\n", configPath)
			}
		},
	}
}

// printJSON prints the given value as indented JSON to stdout
func printJSON(data any) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(jsonData))
}

// getCLIVersion returns the current CLI version
func getCLIVersion() string {
	return "v0.1.0"
}
