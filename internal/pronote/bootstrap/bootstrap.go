// Package bootstrap learns a new session id from the portal's entry page.
package bootstrap

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tansive/pronote/internal/common/httpclient"
	"github.com/tansive/pronote/internal/pronote/protoerror"
)

const (
	// SessionMarker precedes the session id in the entry page's inline script.
	SessionMarker = "h:'"
	// SessionIDWidth is the number of digits of a session id.
	SessionIDWidth = 7
)

// Fetch loads entryURL once and extracts the session id. It does not retry.
func Fetch(ctx context.Context, c httpclient.HTTPClientInterface, entryURL string) (int, error) {
	resp, err := c.Get(ctx, entryURL)
	if err != nil {
		return 0, err
	}
	if !resp.OK() {
		log.Warn().Int("status", resp.StatusCode).Msg("entry page returned non-success status")
	}
	id, err := ParseSessionID(string(resp.Body))
	if err != nil {
		return 0, err
	}
	log.Debug().Int("session_id", id).Msg("session id extracted")
	return id, nil
}

// ParseSessionID finds SessionMarker in page and parses the SessionIDWidth
// characters that follow it as an unsigned integer.
func ParseSessionID(page string) (int, error) {
	i := strings.Index(page, SessionMarker)
	if i < 0 {
		return 0, protoerror.ErrMarkerNotFound.Msg(fmt.Sprintf("entry page does not contain %q", SessionMarker))
	}
	rest := page[i+len(SessionMarker):]
	if len(rest) < SessionIDWidth {
		return 0, protoerror.ErrMalformedSessionID.Msg(fmt.Sprintf("only %d characters after session marker", len(rest)))
	}
	raw := rest[:SessionIDWidth]
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, protoerror.ErrMalformedSessionID.MsgErr(fmt.Sprintf("%q is not a session id", raw), err)
	}
	return int(id), nil
}
