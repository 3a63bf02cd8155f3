package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	tozderrors "gitlab.com/tozd/go/errors"

	"github.com/hyper-lang/hyperc/pkg/compile"
	"github.com/hyper-lang/hyperc/pkg/diagnostic"
	"github.com/hyper-lang/hyperc/pkg/generate"
)

// readyPayload is the handshake frame emitted once before the request
// loop. Callers must see it before sending anything.
var readyPayload = []byte("{\"ready\":true}\n")

// Server runs the request loop over a byte stream, usually the process's
// stdin and stdout. Requests are stateless; one pipeline is reused.
type Server struct {
	in  io.Reader
	out io.Writer
}

func NewServer(in io.Reader, out io.Writer) *Server {
	return &Server{in: in, out: out}
}

// Run serves until the input stream closes or the context is cancelled.
// A closed stream is a normal shutdown, not an error.
func (s *Server) Run(ctx context.Context) error {
	log := zerolog.Ctx(ctx)

	if err := WriteFrame(s.out, readyPayload); err != nil {
		return tozderrors.Errorf("writing ready frame: %w", err)
	}
	log.Info().Msg("daemon ready")

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		payload, err := ReadFrame(s.in)
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Info().Msg("daemon input closed, shutting down")
				return nil
			}
			return tozderrors.Errorf("reading request frame: %w", err)
		}

		response := s.handle(ctx, payload)
		if err := WriteFrame(s.out, response); err != nil {
			return tozderrors.Errorf("writing response frame: %w", err)
		}
	}
}

func (s *Server) handle(ctx context.Context, payload []byte) []byte {
	requestID := uuid.NewString()
	log := zerolog.Ctx(ctx).With().Str("request_id", requestID).Logger()
	start := time.Now()

	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		log.Warn().Err(err).Msg("malformed request")
		return marshalError(ErrorResponse{Error: "invalid request: " + err.Error()})
	}

	result, cerr := compile.Compile(log.WithContext(ctx), req.Content, compile.Options{
		Name:              req.Name,
		IncludeInjections: req.Injection,
	})
	if cerr != nil {
		log.Debug().
			Str("kind", cerr.Kind.String()).
			Dur("elapsed", time.Since(start)).
			Msg("compile error")
		return marshalError(ErrorResponse{
			Error:      cerr.Message,
			Kind:       cerr.Kind.String(),
			Diagnostic: diagnostic.Render(cerr, req.Content, "<request>", false),
		})
	}

	log.Debug().
		Dur("elapsed", time.Since(start)).
		Int("compiled_bytes", len(result.Code)).
		Msg("request served")

	out, err := json.Marshal(Response{
		Compiled:   result.Code,
		Mappings:   mappingsOrEmpty(result.Mappings),
		Ranges:     result.Ranges,
		Injections: result.Injections,
	})
	if err != nil {
		return marshalError(ErrorResponse{Error: "encoding response: " + err.Error()})
	}
	return out
}

func marshalError(resp ErrorResponse) []byte {
	out, err := json.Marshal(resp)
	if err != nil {
		return []byte(`{"error":"internal encoding failure"}`)
	}
	return out
}

// mappingsOrEmpty keeps the mappings field an array on the wire even when
// nothing was mapped.
func mappingsOrEmpty(m []generate.Mapping) []generate.Mapping {
	if m == nil {
		return []generate.Mapping{}
	}
	return m
}
