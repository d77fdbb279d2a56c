// Package envelope assembles the portal's "function call" requests. Every request
// carries the session id and an order token: the next order number, encrypted under
// the session material and hex encoded.
package envelope

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/sjson"

	"github.com/tansive/pronote/internal/pronote/cryptocodec"
	"github.com/tansive/pronote/internal/pronote/protoerror"
	"github.com/tansive/pronote/internal/pronote/session"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CallPath is the path template of function calls below the portal root.
const CallPath = "/appelfonction/3/%d/%s"

// argumentsPath is where the function's arguments sit inside the body.
const argumentsPath = "donneesSec.donnees"

// FunctionCall is a named remote operation with its arguments as JSON text.
type FunctionCall struct {
	Name      string
	Arguments []byte
}

// NewFunctionCall marshals args into a FunctionCall.
func NewFunctionCall(name string, args any) (FunctionCall, error) {
	data, err := json.Marshal(args)
	if err != nil {
		return FunctionCall{}, fmt.Errorf("marshaling %s arguments: %w", name, err)
	}
	return FunctionCall{Name: name, Arguments: data}, nil
}

// RawCall wraps pre-formatted argument text. The text is sent as is.
func RawCall(name, args string) FunctionCall {
	return FunctionCall{Name: name, Arguments: []byte(args)}
}

// Request is a built function call, ready to post.
type Request struct {
	URL   string
	Body  []byte
	Order int64
	Token string
}

type body struct {
	Session     int      `json:"session"`
	NumeroOrdre string   `json:"numeroOrdre"`
	Nom         string   `json:"nom"`
	DonneesSec  struct{} `json:"donneesSec"`
}

// Build spends the session's next order number and assembles the request for call.
// The order number stays spent even when Build or the later send fails.
func Build(portalRoot string, s *session.Session, call FunctionCall) (*Request, error) {
	order := s.NextOrder()
	ct, err := s.Encrypt(cryptocodec.Text(strconv.FormatInt(order, 10)))
	if err != nil {
		return nil, err
	}
	token := hex.EncodeToString(ct)

	data, err := json.Marshal(body{
		Session:     s.ID(),
		NumeroOrdre: token,
		Nom:         call.Name,
	})
	if err != nil {
		return nil, protoerror.ErrProtocol.MsgErr("marshaling envelope", err)
	}
	args := call.Arguments
	if len(args) == 0 {
		args = []byte("{}")
	}
	data, err = sjson.SetRawBytes(data, argumentsPath, args)
	if err != nil {
		return nil, protoerror.ErrProtocol.MsgErr("embedding arguments", err)
	}

	return &Request{
		URL:   strings.TrimSuffix(portalRoot, "/") + fmt.Sprintf(CallPath, s.ID(), token),
		Body:  data,
		Order: order,
		Token: token,
	}, nil
}

// ParseOrderToken decrypts an order token back into its order number.
func ParseOrderToken(m cryptocodec.KeyMaterial, token string) (int64, error) {
	ct, err := hex.DecodeString(token)
	if err != nil {
		return 0, protoerror.ErrEncryption.MsgErr("order token is not hex", err)
	}
	plain, err := cryptocodec.Decrypt(m.Key, m.IV, ct)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(string(plain), 10, 64)
	if err != nil {
		return 0, protoerror.ErrEncryption.MsgErr("order token does not hold a number", err)
	}
	return n, nil
}
