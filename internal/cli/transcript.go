package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tansive/pronote/internal/pronote/client"
)

var (
	functionLabel = color.New(color.FgHiMagenta, color.Bold)
	orderLabel    = color.New(color.FgCyan)
	warnLabel     = color.New(color.FgYellow)
	faintLabel    = color.New(color.FgHiWhite, color.Faint)
)

func newTranscriptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcript",
		Short: "Inspect saved call transcripts",
	}
	var (
		output string
		bodies bool
	)
	show := &cobra.Command{
		Use:   "show FILE",
		Short: "Decode and print a transcript written by connect --transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("unable to open transcript: %w", err)
			}
			defer f.Close()
			entries, err := client.ReadTranscript(f)
			if err != nil {
				return err
			}
			if jsonOutput || output == outputJSON {
				printJSON(entries)
				return nil
			}
			for _, e := range entries {
				printEntry(e, bodies)
			}
			return nil
		},
	}
	show.Flags().StringVarP(&output, "output", "o", "", "Output format (json for raw entries)")
	show.Flags().BoolVar(&bodies, "bodies", false, "Print response bodies as YAML")
	cmd.AddCommand(show)
	return cmd
}

// printEntry prints one transcript entry on a colored line, followed by its body when asked.
func printEntry(e client.Entry, withBody bool) {
	faintLabel.Printf("%s ", e.At.Local().Format(time.TimeOnly))
	orderLabel.Printf("#%-4d ", e.Order)
	functionLabel.Printf("%s ", e.Function)

	switch {
	case e.Error != "":
		errorLabel.Printf("failed: %s", e.Error)
	case e.ServerError != "":
		warnLabel.Printf("%d server error: %s", e.StatusCode, e.ServerError)
	case e.StatusCode >= 200 && e.StatusCode < 300:
		okLabel.Printf("%d", e.StatusCode)
	default:
		warnLabel.Printf("%d", e.StatusCode)
	}
	fmt.Println()

	if withBody && e.Response != "" {
		fmt.Print(bodyAsYAML(e.Response))
	}
}
