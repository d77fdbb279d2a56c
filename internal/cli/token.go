package cli

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tansive/pronote/internal/pronote/cryptocodec"
	"github.com/tansive/pronote/internal/pronote/envelope"
)

type tokenOptions struct {
	sessionIV  string
	derivation string
	secret     string
	key        string
	iv         string
}

func newTokenCmd() *cobra.Command {
	opts := &tokenOptions{}
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Compute or invert order tokens",
		Long: `Order tokens are order numbers encrypted with AES-128-CBC and hex encoded.
The key material is either derived from a session IV, as a client would, or given
directly with --iv and an optional --key.

Examples:
  pronote token encode --session-iv 2a2a2a2a2a2a2a2a2a2a2a2a2a2a2a2a 1
  pronote token decode --key 00000000000000000000000000000000 --iv 2a2a2a2a2a2a2a2a2a2a2a2a2a2a2a2a 6b1f...`,
	}
	cmd.PersistentFlags().StringVar(&opts.sessionIV, "session-iv", "", "Session IV in hex, the client's announced Uuid")
	cmd.PersistentFlags().StringVar(&opts.derivation, "derivation", "placeholder", "Key derivation (placeholder or md5)")
	cmd.PersistentFlags().StringVar(&opts.secret, "secret", "", "Secret of the md5 derivation")
	cmd.PersistentFlags().StringVar(&opts.key, "key", "", "Encryption key in hex, zero key when omitted")
	cmd.PersistentFlags().StringVar(&opts.iv, "iv", "", "Encryption IV in hex, bypasses derivation")

	cmd.AddCommand(&cobra.Command{
		Use:   "encode ORDER",
		Short: "Encrypt an order number into a token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || order < 0 {
				return fmt.Errorf("order must be a non-negative integer, got %q", args[0])
			}
			m, err := opts.material()
			if err != nil {
				return err
			}
			ct, err := cryptocodec.EncryptValue(m.Key, m.IV, cryptocodec.Text(args[0]))
			if err != nil {
				return err
			}
			printToken(order, hex.EncodeToString(ct))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "decode TOKEN",
		Short: "Decrypt a token into its order number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := opts.material()
			if err != nil {
				return err
			}
			order, err := envelope.ParseOrderToken(m, args[0])
			if err != nil {
				return err
			}
			printToken(order, args[0])
			return nil
		},
	})
	return cmd
}

func (o *tokenOptions) material() (cryptocodec.KeyMaterial, error) {
	if o.iv != "" {
		iv, err := hex.DecodeString(o.iv)
		if err != nil {
			return cryptocodec.KeyMaterial{}, fmt.Errorf("--iv is not hex: %w", err)
		}
		key := make([]byte, cryptocodec.KeySize)
		if o.key != "" {
			if key, err = hex.DecodeString(o.key); err != nil {
				return cryptocodec.KeyMaterial{}, fmt.Errorf("--key is not hex: %w", err)
			}
		}
		return cryptocodec.KeyMaterial{Key: key, IV: iv}, nil
	}

	sessionIV, err := hex.DecodeString(o.sessionIV)
	if err != nil {
		return cryptocodec.KeyMaterial{}, fmt.Errorf("--session-iv is not hex: %w", err)
	}
	d, err := cryptocodec.DeriverByName(o.derivation, []byte(o.secret))
	if err != nil {
		return cryptocodec.KeyMaterial{}, err
	}
	return d.Derive(sessionIV)
}

func printToken(order int64, token string) {
	if jsonOutput {
		printJSON(map[string]any{"order": order, "token": token})
		return
	}
	fmt.Printf("%d\t%s\n", order, token)
}
