// Package auth exposes "become authenticated" as a capability with interchangeable
// drivers. The protocol driver speaks the portal's function call protocol; other
// drivers, such as browser automation, register themselves with Register.
package auth

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tansive/pronote/internal/common/apperrors"
	"github.com/tansive/pronote/internal/config"
	"github.com/tansive/pronote/internal/pronote/client"
)

var (
	// ErrAuth is the root of driver selection and credential errors.
	ErrAuth = apperrors.New("authentication error").SetExitCode(2)
	// ErrUnknownDriver is returned by New for an unregistered driver name.
	ErrUnknownDriver = ErrAuth.New("unknown authentication driver")
	// ErrMissingCredentials is returned when a credential source yields no username.
	ErrMissingCredentials = ErrAuth.New("missing credentials")
)

// Credentials identify the user to authenticate as.
type Credentials struct {
	Username   string
	Password   string
	Token      string
	DeviceUUID string
	ENT        bool
}

// Result describes an authenticated session.
type Result struct {
	Driver    string
	SessionID int
	Attempts  uint
	// Client is the identified protocol client; nil for drivers that do not use the protocol.
	Client *client.Client
}

// Authenticator is one way of becoming authenticated.
type Authenticator interface {
	Name() string
	Authenticate(ctx context.Context, creds Credentials) (*Result, error)
}

// Factory builds an Authenticator from configuration.
type Factory func(cfg *config.ConfigParam) (Authenticator, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a driver available under name. Registering a name twice panics.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic("auth: driver registered twice: " + name)
	}
	registry[name] = f
}

// Drivers lists the registered driver names in order.
func Drivers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New builds the driver named by cfg.Driver.
func New(cfg *config.ConfigParam) (Authenticator, error) {
	registryMu.RLock()
	f, ok := registry[cfg.Driver]
	registryMu.RUnlock()
	if !ok {
		return nil, ErrUnknownDriver.Msg(fmt.Sprintf("no authentication driver named %q (available: %v)", cfg.Driver, Drivers()))
	}
	return f(cfg)
}
