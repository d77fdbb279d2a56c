package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tansive/pronote/internal/common/httpclient"
	"github.com/tansive/pronote/internal/config"
	"github.com/tansive/pronote/internal/pronote/bootstrap"
)

func newBootstrapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Fetch the entry page and print the session id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Config()
			transport, err := httpclient.NewClient(&cfg.Portal)
			if err != nil {
				return err
			}
			id, err := bootstrap.Fetch(cmd.Context(), transport, cfg.Portal.EntryURL)
			if err != nil {
				return err
			}
			if jsonOutput {
				printJSON(map[string]any{"session_id": id, "entry_url": cfg.Portal.EntryURL})
				return nil
			}
			fmt.Println(id)
			return nil
		},
	}
}
