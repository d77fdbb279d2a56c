package auth

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"

	"github.com/tansive/pronote/internal/common/httpclient"
	"github.com/tansive/pronote/internal/config"
	"github.com/tansive/pronote/internal/pronote/client"
	"github.com/tansive/pronote/internal/pronote/cryptocodec"
	"github.com/tansive/pronote/internal/pronote/protoerror"
)

// ProtocolDriver is the name of the built-in protocol authenticator.
const ProtocolDriver = "protocol"

func init() {
	Register(ProtocolDriver, func(cfg *config.ConfigParam) (Authenticator, error) {
		return NewProtocolAuthenticator(cfg)
	})
}

// ProtocolAuthenticator runs the handshake on a fresh client per attempt and
// retries transport and bootstrap failures.
type ProtocolAuthenticator struct {
	transport httpclient.HTTPClientInterface
	options   client.Options
	attempts  uint
	delay     time.Duration
}

// NewProtocolAuthenticator builds the authenticator and its transport from cfg.
func NewProtocolAuthenticator(cfg *config.ConfigParam) (*ProtocolAuthenticator, error) {
	transport, err := httpclient.NewClient(&cfg.Portal)
	if err != nil {
		return nil, ErrAuth.MsgErr("creating transport", err)
	}
	deriver, err := cryptocodec.DeriverByName(cfg.Crypto.KeyDerivation, []byte(cfg.Crypto.Secret))
	if err != nil {
		return nil, ErrAuth.MsgErr("selecting key derivation", err)
	}
	opts := client.Options{
		EntryURL:   cfg.Portal.EntryURL,
		PortalRoot: cfg.Portal.RootURL,
		Deriver:    deriver,
	}
	return newProtocolAuthenticator(transport, opts, cfg.Retry.Attempts, cfg.Retry.GetDelay()), nil
}

func newProtocolAuthenticator(transport httpclient.HTTPClientInterface, opts client.Options, attempts uint, delay time.Duration) *ProtocolAuthenticator {
	return &ProtocolAuthenticator{
		transport: transport,
		options:   opts,
		attempts:  max(attempts, 1),
		delay:     delay,
	}
}

func (a *ProtocolAuthenticator) Name() string { return ProtocolDriver }

// Authenticate connects a new client, restarting from scratch after retryable failures.
// The returned Result holds the identified client.
func (a *ProtocolAuthenticator) Authenticate(ctx context.Context, creds Credentials) (*Result, error) {
	if creds.Username == "" {
		return nil, ErrMissingCredentials.Msg("username is required")
	}
	identity := client.Identity{
		Username:   creds.Username,
		ENT:        creds.ENT,
		DeviceUUID: creds.DeviceUUID,
		TokenLogin: creds.Token != "",
	}

	var (
		connected *client.Client
		attempts  uint
	)
	err := retry.Do(func() error {
		attempts++
		c, err := client.New(a.transport, a.options)
		if err != nil {
			return retry.Unrecoverable(err)
		}
		if err := c.Connect(ctx, identity); err != nil {
			return err
		}
		connected = c
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(a.attempts),
		retry.Delay(a.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(protoerror.Retryable),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().Err(err).Uint("attempt", n+1).Str("kind", protoerror.Kind(err)).Msg("handshake failed, retrying")
		}))
	if err != nil {
		return nil, err
	}

	return &Result{
		Driver:    ProtocolDriver,
		SessionID: connected.Session().ID(),
		Attempts:  attempts,
		Client:    connected,
	}, nil
}
