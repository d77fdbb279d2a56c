package cryptocodec

import (
	"crypto/md5"
	"fmt"

	"github.com/tansive/pronote/internal/pronote/protoerror"
)

// KeyMaterial is the key and IV a session encrypts its order numbers with.
type KeyMaterial struct {
	Key []byte
	IV  []byte
}

// KeyDeriver turns the random per-session IV into the material used for encryption.
// The real portal most likely mixes in server parameters or user credentials; until
// that is known, derivation stays behind this interface.
type KeyDeriver interface {
	Name() string
	Derive(sessionIV []byte) (KeyMaterial, error)
}

// PlaceholderDeriver reproduces the observed client: an all-zero key and the
// session IV used unchanged.
type PlaceholderDeriver struct{}

func (PlaceholderDeriver) Name() string { return "placeholder" }

func (PlaceholderDeriver) Derive(sessionIV []byte) (KeyMaterial, error) {
	if len(sessionIV) != BlockSize {
		return KeyMaterial{}, protoerror.ErrEncryption.Msg(fmt.Sprintf("session iv must be %d bytes, got %d", BlockSize, len(sessionIV)))
	}
	return KeyMaterial{
		Key: make([]byte, KeySize),
		IV:  append([]byte(nil), sessionIV...),
	}, nil
}

// MD5Deriver hashes Secret into the key and the session IV into the encryption IV.
// An empty session IV yields the zero IV. With no secret the key is MD5 of the empty input.
type MD5Deriver struct {
	Secret []byte
}

func (MD5Deriver) Name() string { return "md5" }

func (d MD5Deriver) Derive(sessionIV []byte) (KeyMaterial, error) {
	key := md5.Sum(d.Secret)
	iv := make([]byte, BlockSize)
	if len(sessionIV) > 0 {
		sum := md5.Sum(sessionIV)
		iv = sum[:]
	}
	return KeyMaterial{Key: key[:], IV: iv}, nil
}

// DeriverByName returns the deriver registered under name.
func DeriverByName(name string, secret []byte) (KeyDeriver, error) {
	switch name {
	case "", "placeholder":
		return PlaceholderDeriver{}, nil
	case "md5":
		return MD5Deriver{Secret: secret}, nil
	}
	return nil, fmt.Errorf("unknown key derivation %q", name)
}
