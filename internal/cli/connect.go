package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/tansive/pronote/internal/auth"
	"github.com/tansive/pronote/internal/config"
	"github.com/tansive/pronote/internal/pronote/client"
	"github.com/tansive/pronote/internal/pronote/envelope"
)

type connectOptions struct {
	transcript string
	output     string
	call       string
	args       string
}

// connectResult is what connect prints.
type connectResult struct {
	Driver        string       `json:"driver" yaml:"driver"`
	SessionID     int          `json:"session_id" yaml:"session_id"`
	Attempts      uint         `json:"attempts" yaml:"attempts"`
	State         string       `json:"state" yaml:"state"`
	KeyDerivation string       `json:"key_derivation,omitempty" yaml:"key_derivation,omitempty"`
	LastOrder     int64        `json:"last_order" yaml:"last_order"`
	Calls         []callResult `json:"calls,omitempty" yaml:"calls,omitempty"`
}

type callResult struct {
	Function    string `json:"function" yaml:"function"`
	Order       int64  `json:"order" yaml:"order"`
	StatusCode  int    `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	ServerError string `json:"server_error,omitempty" yaml:"server_error,omitempty"`
	Error       string `json:"error,omitempty" yaml:"error,omitempty"`
}

func newConnectCmd() *cobra.Command {
	opts := &connectOptions{}
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Authenticate against the configured portal",
		Long: `Authenticate with the configured driver and print the resulting session.
With --call, one additional function call is sent on the identified session.

Examples:
  pronote connect
  pronote connect --transcript session.snappy --output json
  pronote connect --call PageInfosPerso --args '{}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConnect(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.transcript, "transcript", "", "Write the exchanged calls to this file")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "yaml", "Output format (json or yaml)")
	cmd.Flags().StringVar(&opts.call, "call", "", "Function to call once identified")
	cmd.Flags().StringVar(&opts.args, "args", "{}", "JSON arguments of --call")
	return cmd
}

func runConnect(ctx context.Context, opts *connectOptions) error {
	format, err := outputFormat(opts.output)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	cfg := config.Config()
	authenticator, err := auth.New(cfg)
	if err != nil {
		return err
	}
	source, err := auth.SourceFromConfig(cfg)
	if err != nil {
		return err
	}
	creds, err := source.Credentials(ctx)
	if err != nil {
		return err
	}

	res, err := authenticator.Authenticate(ctx, creds)
	if err != nil {
		return err
	}

	out := connectResult{
		Driver:    res.Driver,
		SessionID: res.SessionID,
		Attempts:  res.Attempts,
	}
	var body string
	if c := res.Client; c != nil {
		if opts.call != "" {
			resp, err := c.Call(ctx, envelope.RawCall(opts.call, opts.args))
			if err != nil {
				return err
			}
			body = resp.Body
		}
		out.State = c.State().String()
		out.KeyDerivation = c.Session().Deriver()
		out.LastOrder = c.Session().LastOrder()
		for _, e := range c.Transcript() {
			out.Calls = append(out.Calls, callResult{
				Function:    e.Function,
				Order:       e.Order,
				StatusCode:  e.StatusCode,
				ServerError: e.ServerError,
				Error:       e.Error,
			})
		}
		if opts.transcript != "" {
			if err := saveTranscript(opts.transcript, c.Transcript()); err != nil {
				return err
			}
		}
	}

	printValue(format, out)
	if body != "" {
		if format == outputJSON {
			fmt.Println(body)
		} else {
			fmt.Println("---")
			fmt.Print(bodyAsYAML(body))
		}
	}
	return nil
}

func saveTranscript(path string, entries []client.Entry) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("unable to create transcript file: %w", err)
	}
	defer f.Close()
	if err := client.WriteTranscript(f, entries); err != nil {
		return err
	}
	return f.Close()
}
