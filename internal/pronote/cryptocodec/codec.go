// Package cryptocodec implements the block encryption used to obfuscate request
// order numbers: AES-128 in CBC mode with PKCS#7 padding, plus the key derivation
// step that produces the session key and IV.
package cryptocodec

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/tansive/pronote/internal/pronote/protoerror"
)

const (
	// KeySize is the only accepted key length.
	KeySize = 16
	// BlockSize is the cipher block size and the required IV length.
	BlockSize = aes.BlockSize
)

// EncryptableValue is a payload that can be encrypted. Text and Raw are the two variants.
type EncryptableValue interface {
	Bytes() []byte
}

// Text is a string payload. It is encrypted as its raw bytes.
type Text string

func (t Text) Bytes() []byte { return []byte(t) }

// Raw is a byte payload.
type Raw []byte

func (r Raw) Bytes() []byte { return []byte(r) }

// Encrypt pads data with PKCS#7 and encrypts it with AES-CBC. The output is
// ((len(data)/16)+1)*16 bytes long and depends only on the inputs.
func Encrypt(key, iv, data []byte) ([]byte, error) {
	block, err := newBlock(key, iv)
	if err != nil {
		return nil, err
	}
	padded := pad(data)
	if len(padded)%BlockSize != 0 {
		return nil, protoerror.ErrEncryption.Msg("padding produced a partial block")
	}
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

// EncryptValue encrypts either variant of EncryptableValue.
func EncryptValue(key, iv []byte, v EncryptableValue) ([]byte, error) {
	if v == nil {
		return Encrypt(key, iv, nil)
	}
	return Encrypt(key, iv, v.Bytes())
}

// Decrypt reverses Encrypt.
func Decrypt(key, iv, data []byte) ([]byte, error) {
	block, err := newBlock(key, iv)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || len(data)%BlockSize != 0 {
		return nil, protoerror.ErrEncryption.Msg(fmt.Sprintf("ciphertext length %d is not a positive multiple of %d", len(data), BlockSize))
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)
	return unpad(out)
}

func newBlock(key, iv []byte) (cipher.Block, error) {
	if len(key) != KeySize {
		return nil, protoerror.ErrEncryption.Msg(fmt.Sprintf("key must be %d bytes, got %d", KeySize, len(key)))
	}
	if len(iv) != BlockSize {
		return nil, protoerror.ErrEncryption.Msg(fmt.Sprintf("iv must be %d bytes, got %d", BlockSize, len(iv)))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, protoerror.ErrEncryption.Err(err)
	}
	return block, nil
}

// pad returns a new slice; data is never modified.
func pad(data []byte) []byte {
	n := BlockSize - len(data)%BlockSize
	out := make([]byte, len(data), len(data)+n)
	copy(out, data)
	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > BlockSize || n > len(data) {
		return nil, protoerror.ErrEncryption.Msg("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, protoerror.ErrEncryption.Msg("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
