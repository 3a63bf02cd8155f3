package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
)

// RunOnce compiles with a fresh process instead of the resident daemon:
// one process per call, source written on stdin from its own goroutine,
// all output read before waiting. Used as the fallback when the daemon is
// in StateFailed.
func RunOnce(ctx context.Context, path string, req Request, timeout time.Duration) (*Response, error) {
	log := zerolog.Ctx(ctx)
	start := time.Now()

	args := []string{"generate", "--stdin", "--json"}
	if req.Injection {
		args = append(args, "--injection")
	}
	if req.Name != "" {
		args = append(args, "--name", req.Name)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, path, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Errorf("opening stdin: %w", err)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, errors.Errorf("starting %s: %w", path, err)
	}

	// The pipe buffer is finite; writing from a separate goroutine keeps a
	// large source from deadlocking against unread output.
	writeErr := make(chan error, 1)
	go func() {
		defer stdin.Close()
		_, werr := stdin.Write([]byte(req.Content))
		writeErr <- werr
	}()

	// Output lands in in-process buffers, so waiting cannot deadlock and
	// both streams are complete once Wait returns.
	waitErr := cmd.Wait()
	werr := <-writeErr
	if runCtx.Err() != nil {
		return nil, errors.Errorf("one-shot compile timed out after %s", timeout)
	}
	if waitErr != nil {
		return nil, errors.Errorf("%s failed: %w: %s", path, multierr.Append(waitErr, werr), stderr.String())
	}
	if werr != nil {
		return nil, errors.Errorf("writing source: %w", werr)
	}

	var probe ErrorResponse
	if jerr := json.Unmarshal(stdout.Bytes(), &probe); jerr == nil && probe.Error != "" {
		return nil, &CompileError{
			Message:    probe.Error,
			Kind:       probe.Kind,
			Diagnostic: probe.Diagnostic,
		}
	}
	var resp Response
	if jerr := json.Unmarshal(stdout.Bytes(), &resp); jerr != nil {
		return nil, errors.Errorf("decoding output: %w", jerr)
	}

	log.Debug().Dur("elapsed", time.Since(start)).Msg("one-shot compile")
	return &resp, nil
}
