// Package daemon implements the long-lived compile service editors talk
// to, plus the client side that owns the subprocess. Every message on the
// wire is a 4-byte big-endian length prefix followed by a JSON payload.
package daemon

import (
	"encoding/binary"
	"io"

	"gitlab.com/tozd/go/errors"

	"github.com/hyper-lang/hyperc/pkg/generate"
)

// MaxFrameSize bounds a single payload. Anything larger is a protocol
// violation, not a big template.
const MaxFrameSize = 10 * 1024 * 1024

// Request is one compile request.
type Request struct {
	Content string `json:"content"`

	// Injection requests range and injection computation.
	Injection bool `json:"injection,omitempty"`

	// Name overrides the generated function name.
	Name string `json:"name,omitempty"`
}

// Response is a successful compile result.
type Response struct {
	Compiled   string               `json:"compiled"`
	Mappings   []generate.Mapping   `json:"mappings"`
	Ranges     []generate.Range     `json:"ranges,omitempty"`
	Injections []generate.Injection `json:"injections,omitempty"`
}

// ErrorResponse reports a compile failure. Kind and Diagnostic are set
// for source errors; transport problems never produce one of these.
type ErrorResponse struct {
	Error      string `json:"error"`
	Kind       string `json:"kind,omitempty"`
	Diagnostic string `json:"diagnostic,omitempty"`
}

// ReadFrame reads one length-prefixed payload.
func ReadFrame(r io.Reader) ([]byte, error) {
	var head [4]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(head[:])
	if size == 0 || size > MaxFrameSize {
		return nil, errors.Errorf("invalid frame length %d", size)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, errors.Errorf("reading frame payload: %w", err)
	}
	return payload, nil
}

// WriteFrame writes one length-prefixed payload.
func WriteFrame(w io.Writer, payload []byte) error {
	var head [4]byte
	binary.BigEndian.PutUint32(head[:], uint32(len(payload)))
	if _, err := w.Write(head[:]); err != nil {
		return errors.Errorf("writing frame length: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return errors.Errorf("writing frame payload: %w", err)
	}
	return nil
}
