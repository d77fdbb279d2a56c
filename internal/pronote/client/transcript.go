package client

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/snappy"
	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/gjson"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Entry records one function call sent by a client.
type Entry struct {
	Function    string    `json:"function"`
	Order       int64     `json:"order"`
	Token       string    `json:"token"`
	StatusCode  int       `json:"status_code,omitempty"`
	Response    string    `json:"response,omitempty"`
	ServerError string    `json:"server_error,omitempty"`
	Error       string    `json:"error,omitempty"`
	At          time.Time `json:"at"`
}

// Transcript is the ordered list of calls a client made. Safe for concurrent use.
type Transcript struct {
	mu      sync.Mutex
	entries []Entry
}

func (t *Transcript) add(e Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, e)
}

// Entries returns a copy of the recorded entries.
func (t *Transcript) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Entry(nil), t.entries...)
}

// serverError extracts the portal's error title from a response body, if any.
func serverError(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	e := gjson.GetBytes(body, "Erreur")
	if !e.Exists() {
		return ""
	}
	if title := e.Get("Titre"); title.Exists() {
		return title.String()
	}
	return e.Raw
}

// WriteTranscript writes entries as JSON lines, compressed with framed Snappy and base64 encoded.
func WriteTranscript(w io.Writer, entries []Entry) error {
	b64 := base64.NewEncoder(base64.StdEncoding, w)
	sw := snappy.NewBufferedWriter(b64)
	for _, e := range entries {
		line, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encoding transcript entry: %w", err)
		}
		if _, err := sw.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("compression failed: %w", err)
		}
	}
	if err := sw.Close(); err != nil {
		return fmt.Errorf("snappy close failed: %w", err)
	}
	if err := b64.Close(); err != nil {
		return fmt.Errorf("base64 close failed: %w", err)
	}
	return nil
}

// ReadTranscript reverses WriteTranscript.
func ReadTranscript(r io.Reader) ([]Entry, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading transcript: %w", err)
	}
	decoded, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace(raw)))
	if err != nil {
		return nil, fmt.Errorf("base64 decode failed: %w", err)
	}

	var entries []Entry
	sc := bufio.NewScanner(snappy.NewReader(bytes.NewReader(decoded)))
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for sc.Scan() {
		line := sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("decoding transcript entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("decompression failed: %w", err)
	}
	return entries, nil
}
