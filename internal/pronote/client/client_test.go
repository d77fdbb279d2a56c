package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/tansive/pronote/internal/common/httpclient"
	"github.com/tansive/pronote/internal/pronote/cryptocodec"
	"github.com/tansive/pronote/internal/pronote/envelope"
	"github.com/tansive/pronote/internal/pronote/protoerror"
)

var fixedIV = bytes.Repeat([]byte{0x2a}, 16)

type observedCall struct {
	function  string
	sessionID string
	urlOrder  int64
	bodyOrder int64
	body      string
}

// mockPortal serves an entry page and the function call endpoint, decrypting every
// order token with the material a placeholder-derived session on fixedIV uses.
type mockPortal struct {
	t          *testing.T
	entryPage  string
	callStatus int
	failOn     string

	mu    sync.Mutex
	calls []observedCall
}

func (p *mockPortal) router() http.Handler {
	material, err := cryptocodec.PlaceholderDeriver{}.Derive(fixedIV)
	require.NoError(p.t, err)

	r := chi.NewRouter()
	r.Get("/pronote/eleve.html", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(p.entryPage))
	})
	r.Post("/pronote/appelfonction/{space}/{session}/{token}", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(p.t, "3", chi.URLParam(r, "space"))
		assert.Equal(p.t, "application/json", r.Header.Get("Content-Type"))

		urlOrder, err := envelope.ParseOrderToken(material, chi.URLParam(r, "token"))
		assert.NoError(p.t, err)
		bodyOrder, err := envelope.ParseOrderToken(material, gjson.GetBytes(body, "numeroOrdre").String())
		assert.NoError(p.t, err)

		name := gjson.GetBytes(body, "nom").String()
		p.mu.Lock()
		p.calls = append(p.calls, observedCall{
			function:  name,
			sessionID: chi.URLParam(r, "session"),
			urlOrder:  urlOrder,
			bodyOrder: bodyOrder,
			body:      string(body),
		})
		p.mu.Unlock()

		if name == p.failOn {
			// drop the connection so the client sees a transport error
			hj, ok := w.(http.Hijacker)
			require.True(p.t, ok)
			conn, _, _ := hj.Hijack()
			conn.Close()
			return
		}
		status := p.callStatus
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"nom":"` + name + `","donneesSec":{"donnees":{}}}`))
	})
	return r
}

func (p *mockPortal) observed() []observedCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]observedCall(nil), p.calls...)
}

type transportConfig struct{}

func (transportConfig) GetUserAgent() string        { return "" }
func (transportConfig) GetProxyURL() string         { return "" }
func (transportConfig) GetTimeout() time.Duration   { return 5 * time.Second }
func (transportConfig) GetInsecureSkipVerify() bool { return false }

func newTestClient(t *testing.T, p *mockPortal) *Client {
	t.Helper()
	srv := httptest.NewServer(p.router())
	t.Cleanup(srv.Close)

	transport, err := httpclient.NewClient(transportConfig{})
	require.NoError(t, err)
	c, err := New(transport, Options{
		EntryURL:   srv.URL + "/pronote/eleve.html",
		PortalRoot: srv.URL + "/pronote",
		Rand:       bytes.NewReader(fixedIV),
	})
	require.NoError(t, err)
	return c
}

const entryPage = `<html><body onload="try { Start ({h:'1234567',a:3,d:false}) } catch (e) {}"></body></html>`

func TestConnectHandshake(t *testing.T) {
	p := &mockPortal{t: t, entryPage: entryPage}
	c := newTestClient(t, p)
	assert.Equal(t, StateUninitialized, c.State())
	assert.Nil(t, c.Session())

	err := c.Connect(context.Background(), Identity{Username: "demonstration"})
	require.NoError(t, err)
	assert.Equal(t, StateIdentified, c.State())
	require.NotNil(t, c.Session())
	assert.Equal(t, 1234567, c.Session().ID())

	calls := p.observed()
	require.Len(t, calls, 2)

	assert.Equal(t, FunctionParameters, calls[0].function)
	assert.Equal(t, int64(1), calls[0].urlOrder)
	assert.Equal(t, int64(1), calls[0].bodyOrder)
	assert.Equal(t, "1234567", calls[0].sessionID)
	assert.Equal(t, int64(1234567), gjson.Get(calls[0].body, "session").Int())
	assert.Equal(t, base64.StdEncoding.EncodeToString(fixedIV), gjson.Get(calls[0].body, "donneesSec.donnees.Uuid").String())
	assert.Equal(t, "", gjson.Get(calls[0].body, "donneesSec.donnees.identifiantNav").String())
	assert.True(t, gjson.Get(calls[0].body, "donneesSec.donnees.identifiantNav").Exists())

	assert.Equal(t, FunctionIdentification, calls[1].function)
	assert.Equal(t, int64(2), calls[1].urlOrder)
	assert.Equal(t, int64(2), calls[1].bodyOrder)
	id := gjson.Get(calls[1].body, "donneesSec.donnees")
	assert.Equal(t, "demonstration", id.Get("identifiant").String())
	assert.Equal(t, int64(3), id.Get("genreEspace").Int())
	assert.False(t, id.Get("pourENT").Bool())
	assert.False(t, id.Get("demandeConnexionAppliMobile").Bool())

	transcript := c.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, http.StatusOK, transcript[1].StatusCode)
	assert.Empty(t, transcript[1].ServerError)
}

func TestConnectIgnoresStatusCode(t *testing.T) {
	p := &mockPortal{t: t, entryPage: entryPage, callStatus: http.StatusInternalServerError}
	c := newTestClient(t, p)
	require.NoError(t, c.Connect(context.Background(), Identity{Username: "demonstration"}))
	assert.Equal(t, StateIdentified, c.State())
	assert.Len(t, p.observed(), 2)
}

func TestConnectMissingMarker(t *testing.T) {
	p := &mockPortal{t: t, entryPage: `<html>Le site est momentanément indisponible</html>`}
	c := newTestClient(t, p)

	err := c.Connect(context.Background(), Identity{Username: "demonstration"})
	require.ErrorIs(t, err, protoerror.ErrMarkerNotFound)
	assert.Equal(t, "BootstrapError::MarkerNotFound", protoerror.Kind(err))
	assert.Equal(t, StateUninitialized, c.State())
	assert.Nil(t, c.Session())
	assert.Empty(t, p.observed(), "no function call may be sent without a session")
}

func TestConnectAbortsOnTransportError(t *testing.T) {
	p := &mockPortal{t: t, entryPage: entryPage, failOn: FunctionIdentification}
	c := newTestClient(t, p)

	err := c.Connect(context.Background(), Identity{Username: "demonstration"})
	require.ErrorIs(t, err, protoerror.ErrTransport)
	assert.Equal(t, StateParametersSent, c.State())

	// the failed call still spent its order number
	assert.Equal(t, int64(2), c.Session().LastOrder())
	transcript := c.Transcript()
	require.Len(t, transcript, 2)
	assert.NotEmpty(t, transcript[1].Error)

	err = c.Connect(context.Background(), Identity{Username: "demonstration"})
	assert.ErrorIs(t, err, protoerror.ErrProtocolState, "a failed client cannot resume")
	assert.Len(t, p.observed(), 2)
}

func TestConnectRequiresUsername(t *testing.T) {
	p := &mockPortal{t: t, entryPage: entryPage}
	c := newTestClient(t, p)
	err := c.Connect(context.Background(), Identity{})
	assert.ErrorIs(t, err, protoerror.ErrProtocol)
	assert.Equal(t, StateUninitialized, c.State())
}

func TestConnectTwice(t *testing.T) {
	p := &mockPortal{t: t, entryPage: entryPage}
	c := newTestClient(t, p)
	require.NoError(t, c.Connect(context.Background(), Identity{Username: "demonstration"}))
	err := c.Connect(context.Background(), Identity{Username: "demonstration"})
	assert.ErrorIs(t, err, protoerror.ErrProtocolState)
}

func TestCallRequiresIdentified(t *testing.T) {
	p := &mockPortal{t: t, entryPage: entryPage}
	c := newTestClient(t, p)

	_, err := c.Call(context.Background(), envelope.RawCall("PageAccueil", `{}`))
	require.ErrorIs(t, err, protoerror.ErrProtocolState)
	assert.Equal(t, "ProtocolStateError", protoerror.Kind(err))
	assert.Empty(t, p.observed())
}

func TestConcurrentCalls(t *testing.T) {
	p := &mockPortal{t: t, entryPage: entryPage}
	c := newTestClient(t, p)
	require.NoError(t, c.Connect(context.Background(), Identity{Username: "demonstration"}))

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := c.Call(context.Background(), envelope.RawCall("PageAccueil", `{}`))
			if err != nil {
				errs <- err
				return
			}
			assert.Equal(t, "PageAccueil", gjson.Get(resp.Body, "nom").String())
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var orders []int64
	for _, call := range p.observed()[2:] {
		assert.Equal(t, call.urlOrder, call.bodyOrder)
		orders = append(orders, call.urlOrder)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i] < orders[j] })
	require.Len(t, orders, n)
	for i, o := range orders {
		assert.Equal(t, int64(i+3), o)
	}
}

func TestNewValidatesOptions(t *testing.T) {
	transport, err := httpclient.NewClient(transportConfig{})
	require.NoError(t, err)

	_, err = New(nil, Options{EntryURL: "a", PortalRoot: "b"})
	assert.Error(t, err)
	_, err = New(transport, Options{EntryURL: "a"})
	assert.Error(t, err)

	c, err := New(transport, Options{EntryURL: "a", PortalRoot: "b"})
	require.NoError(t, err)
	assert.Equal(t, "placeholder", c.opts.Deriver.Name())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Uninitialized", StateUninitialized.String())
	assert.Equal(t, "SessionKnown", StateSessionKnown.String())
	assert.Equal(t, "ParametersSent", StateParametersSent.String())
	assert.Equal(t, "Identified", StateIdentified.String())
	assert.Equal(t, "Unknown", State(42).String())
}
