package auth

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/tansive/pronote/internal/config"
)

// CredentialSource supplies credentials at authentication time.
type CredentialSource interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// StaticSource returns fixed credentials.
type StaticSource Credentials

func (s StaticSource) Credentials(ctx context.Context) (Credentials, error) {
	if s.Username == "" {
		return Credentials{}, ErrMissingCredentials.Msg("static credentials have no username")
	}
	return Credentials(s), nil
}

// EnvSource reads <Prefix>USERNAME, <Prefix>PASSWORD, <Prefix>TOKEN,
// <Prefix>DEVICE_UUID and <Prefix>ENT from the environment.
type EnvSource struct {
	Prefix string
}

func (s EnvSource) Credentials(ctx context.Context) (Credentials, error) {
	c := Credentials{
		Username:   os.Getenv(s.Prefix + "USERNAME"),
		Password:   os.Getenv(s.Prefix + "PASSWORD"),
		Token:      os.Getenv(s.Prefix + "TOKEN"),
		DeviceUUID: os.Getenv(s.Prefix + "DEVICE_UUID"),
	}
	if v := os.Getenv(s.Prefix + "ENT"); v != "" {
		ent, err := strconv.ParseBool(v)
		if err != nil {
			return Credentials{}, ErrMissingCredentials.Msg(fmt.Sprintf("%sENT is not a boolean: %q", s.Prefix, v))
		}
		c.ENT = ent
	}
	if c.Username == "" {
		return Credentials{}, ErrMissingCredentials.Msg(fmt.Sprintf("%sUSERNAME is not set", s.Prefix))
	}
	return c, nil
}

// SourceFromConfig returns the credential source configured in cfg.Identity.
func SourceFromConfig(cfg *config.ConfigParam) (CredentialSource, error) {
	id := cfg.Identity
	switch id.Source {
	case "", "static":
		return StaticSource{
			Username:   id.Username,
			Password:   id.Password,
			Token:      id.Token,
			DeviceUUID: id.DeviceUUID,
			ENT:        id.ENT,
		}, nil
	case "env":
		return EnvSource{Prefix: id.EnvPrefix}, nil
	}
	return nil, ErrAuth.Msg(fmt.Sprintf("unknown credential source %q", id.Source))
}
