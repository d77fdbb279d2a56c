// Package session holds the state of one portal login session: the server-assigned
// id, the order counter and the encryption material. A Session never changes after
// construction except for its counter, and is never shared between clients.
package session

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/tansive/pronote/internal/pronote/cryptocodec"
	"github.com/tansive/pronote/internal/pronote/protoerror"
)

// Session is the per-login state. Create it with New.
type Session struct {
	id       int
	clientIV []byte
	key      []byte
	iv       []byte
	deriver  string
	counter  Counter
}

// New builds a session for id. clientIV is the random IV announced to the server;
// deriver turns it into the encryption key and IV.
func New(id int, clientIV []byte, deriver cryptocodec.KeyDeriver) (*Session, error) {
	if len(clientIV) != cryptocodec.BlockSize {
		return nil, protoerror.ErrEncryption.Msg(fmt.Sprintf("client iv must be %d bytes, got %d", cryptocodec.BlockSize, len(clientIV)))
	}
	m, err := deriver.Derive(clientIV)
	if err != nil {
		return nil, err
	}
	if len(m.Key) != cryptocodec.KeySize || len(m.IV) != cryptocodec.BlockSize {
		return nil, protoerror.ErrEncryption.Msg(fmt.Sprintf("%s derivation produced a %d byte key and %d byte iv", deriver.Name(), len(m.Key), len(m.IV)))
	}
	return &Session{
		id:       id,
		clientIV: clone(clientIV),
		key:      clone(m.Key),
		iv:       clone(m.IV),
		deriver:  deriver.Name(),
	}, nil
}

// RandomIV reads a fresh IV from r, or from crypto/rand when r is nil.
func RandomIV(r io.Reader) ([]byte, error) {
	if r == nil {
		r = rand.Reader
	}
	iv := make([]byte, cryptocodec.BlockSize)
	if _, err := io.ReadFull(r, iv); err != nil {
		return nil, protoerror.ErrEncryption.MsgErr("generating session iv", err)
	}
	return iv, nil
}

func (s *Session) ID() int { return s.id }

// ClientIV returns a copy of the IV announced to the server.
func (s *Session) ClientIV() []byte { return clone(s.clientIV) }

// Material returns a copy of the encryption key and IV.
func (s *Session) Material() cryptocodec.KeyMaterial {
	return cryptocodec.KeyMaterial{Key: clone(s.key), IV: clone(s.iv)}
}

// Deriver names the key derivation the session was built with.
func (s *Session) Deriver() string { return s.deriver }

// NextOrder spends the next order number.
func (s *Session) NextOrder() int64 { return s.counter.Next() }

// LastOrder returns the last spent order number.
func (s *Session) LastOrder() int64 { return s.counter.Last() }

// Encrypt encrypts data under the session material.
func (s *Session) Encrypt(v cryptocodec.EncryptableValue) ([]byte, error) {
	return cryptocodec.EncryptValue(s.key, s.iv, v)
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
