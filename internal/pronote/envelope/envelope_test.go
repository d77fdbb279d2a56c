package envelope

import (
	"bytes"
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/tansive/pronote/internal/pronote/cryptocodec"
	"github.com/tansive/pronote/internal/pronote/protoerror"
	"github.com/tansive/pronote/internal/pronote/session"
)

func newSession(t *testing.T, id int) *session.Session {
	t.Helper()
	s, err := session.New(id, bytes.Repeat([]byte{5}, 16), cryptocodec.PlaceholderDeriver{})
	require.NoError(t, err)
	return s
}

func TestBuildFonctionParametres(t *testing.T) {
	s := newSession(t, 42)
	call, err := NewFunctionCall("FonctionParametres", map[string]string{
		"Uuid":           "BQUFBQUFBQUFBQUFBQUFBQ==",
		"identifiantNav": "",
	})
	require.NoError(t, err)

	req, err := Build("https://demo.example/pronote/", s, call)
	require.NoError(t, err)

	assert.Equal(t, int64(1), req.Order)
	assert.Regexp(t, regexp.MustCompile(`^https://demo\.example/pronote/appelfonction/3/42/[0-9a-f]{32}$`), req.URL)
	assert.Contains(t, req.URL, "/appelfonction/3/42/"+req.Token)

	require.True(t, gjson.ValidBytes(req.Body))
	b := gjson.ParseBytes(req.Body)
	assert.Equal(t, int64(42), b.Get("session").Int())
	assert.Equal(t, req.Token, b.Get("numeroOrdre").String())
	assert.Equal(t, "FonctionParametres", b.Get("nom").String())
	assert.Equal(t, "BQUFBQUFBQUFBQUFBQUFBQ==", b.Get("donneesSec.donnees.Uuid").String())

	n, err := ParseOrderToken(s.Material(), req.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestBuildFieldOrder(t *testing.T) {
	s := newSession(t, 1234567)
	req, err := Build("http://p", s, RawCall("Identification", `{"identifiant":"demo"}`))
	require.NoError(t, err)
	want := fmt.Sprintf(`{"session":1234567,"numeroOrdre":"%s","nom":"Identification","donneesSec":{"donnees":{"identifiant":"demo"}}}`, req.Token)
	assert.Equal(t, want, string(req.Body))
}

func TestBuildIncrementsOrder(t *testing.T) {
	s := newSession(t, 7)
	var tokens []string
	for want := int64(1); want <= 3; want++ {
		req, err := Build("http://p", s, RawCall("Navigation", ""))
		require.NoError(t, err)
		assert.Equal(t, want, req.Order)
		assert.Equal(t, `{}`, gjson.GetBytes(req.Body, "donneesSec.donnees").Raw)

		n, err := ParseOrderToken(s.Material(), req.Token)
		require.NoError(t, err)
		assert.Equal(t, want, n)
		tokens = append(tokens, req.Token)
	}
	assert.NotEqual(t, tokens[0], tokens[1])
	assert.NotEqual(t, tokens[1], tokens[2])
}

func TestBuildEscapesName(t *testing.T) {
	s := newSession(t, 1)
	req, err := Build("http://p", s, RawCall(`Fonction"<x>`, `{}`))
	require.NoError(t, err)
	assert.True(t, gjson.ValidBytes(req.Body))
	assert.Equal(t, `Fonction"<x>`, gjson.GetBytes(req.Body, "nom").String())
}

func TestBuildDoesNotValidateArguments(t *testing.T) {
	s := newSession(t, 1)
	req, err := Build("http://p", s, RawCall("Identification", `{"broken":`))
	require.NoError(t, err, "malformed arguments are the server's problem")
	assert.Contains(t, string(req.Body), `{"broken":`)
	assert.False(t, gjson.ValidBytes(req.Body))
}

func TestParseOrderTokenErrors(t *testing.T) {
	s := newSession(t, 1)
	_, err := ParseOrderToken(s.Material(), "zz")
	assert.ErrorIs(t, err, protoerror.ErrEncryption)

	ct, err := s.Encrypt(cryptocodec.Text("not-a-number"))
	require.NoError(t, err)
	_, err = ParseOrderToken(s.Material(), fmt.Sprintf("%x", ct))
	assert.ErrorIs(t, err, protoerror.ErrEncryption)
}
