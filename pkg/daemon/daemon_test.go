package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hyper-lang/hyperc/pkg/daemon"
)

func TestWriteReadFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, daemon.WriteFrame(&buf, []byte(`{"content":"x"}`)))

	payload, err := daemon.ReadFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, `{"content":"x"}`, string(payload))
}

func TestReadFrame_RejectsOversizedLength(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	_, err := daemon.ReadFrame(buf)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid frame length")
}

func TestReadFrame_RejectsZeroLength(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0, 0, 0, 0})
	_, err := daemon.ReadFrame(buf)
	require.Error(t, err)
}

// startServer wires a server to pipes and returns the client-side ends.
// The ready frame is consumed before returning.
func startServer(t *testing.T) (io.WriteCloser, io.Reader, chan error) {
	t.Helper()
	clientOut, serverIn := io.Pipe()
	serverOut, clientIn := io.Pipe()

	srv := daemon.NewServer(clientOut, clientIn)
	done := make(chan error, 1)
	go func() { done <- srv.Run(context.Background()) }()

	ready, err := daemon.ReadFrame(serverOut)
	require.NoError(t, err)
	var hello struct {
		Ready bool `json:"ready"`
	}
	require.NoError(t, json.Unmarshal(ready, &hello))
	require.True(t, hello.Ready)

	return serverIn, serverOut, done
}

func roundTrip(t *testing.T, in io.Writer, out io.Reader, req daemon.Request) []byte {
	t.Helper()
	payload, err := json.Marshal(req)
	require.NoError(t, err)
	require.NoError(t, daemon.WriteFrame(in, payload))

	raw, err := daemon.ReadFrame(out)
	require.NoError(t, err)
	return raw
}

func TestServer_CompilesRequest(t *testing.T) {
	in, out, done := startServer(t)

	raw := roundTrip(t, in, out, daemon.Request{Content: "title: str\n---\n<h1>{title}</h1>"})
	var resp daemon.Response
	require.NoError(t, json.Unmarshal(raw, &resp))
	require.Contains(t, resp.Compiled, "def Render(*, title: str):")
	require.NotNil(t, resp.Mappings)
	require.Empty(t, resp.Ranges)

	require.NoError(t, in.Close())
	require.NoError(t, <-done)
}

func TestServer_InjectionRequested(t *testing.T) {
	in, out, done := startServer(t)

	raw := roundTrip(t, in, out, daemon.Request{Content: "<p>{x}</p>\n", Injection: true})
	var resp daemon.Response
	require.NoError(t, json.Unmarshal(raw, &resp))
	require.NotEmpty(t, resp.Ranges)
	require.NotEmpty(t, resp.Injections)

	require.NoError(t, in.Close())
	require.NoError(t, <-done)
}

func TestServer_NameOverride(t *testing.T) {
	in, out, done := startServer(t)

	raw := roundTrip(t, in, out, daemon.Request{Content: "<p>x</p>\n", Name: "side_bar"})
	var resp daemon.Response
	require.NoError(t, json.Unmarshal(raw, &resp))
	require.Contains(t, resp.Compiled, "def SideBar():")

	require.NoError(t, in.Close())
	require.NoError(t, <-done)
}

func TestServer_SourceErrorResponse(t *testing.T) {
	in, out, done := startServer(t)

	raw := roundTrip(t, in, out, daemon.Request{Content: "<div>\n"})
	var resp daemon.ErrorResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	require.Equal(t, "unclosed-element", resp.Kind)
	require.Contains(t, resp.Diagnostic, "--> <request>:1:1")

	require.NoError(t, in.Close())
	require.NoError(t, <-done)
}

func TestServer_MalformedJSON(t *testing.T) {
	in, out, done := startServer(t)

	require.NoError(t, daemon.WriteFrame(in, []byte("{not json")))
	raw, err := daemon.ReadFrame(out)
	require.NoError(t, err)
	var resp daemon.ErrorResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	require.Contains(t, resp.Error, "invalid request")
	require.Empty(t, resp.Kind)

	require.NoError(t, in.Close())
	require.NoError(t, <-done)
}

func TestServer_StatelessAcrossRequests(t *testing.T) {
	in, out, done := startServer(t)

	first := roundTrip(t, in, out, daemon.Request{Content: "<div>\n"})
	var errResp daemon.ErrorResponse
	require.NoError(t, json.Unmarshal(first, &errResp))
	require.NotEmpty(t, errResp.Error)

	second := roundTrip(t, in, out, daemon.Request{Content: "<p>ok</p>\n"})
	var resp daemon.Response
	require.NoError(t, json.Unmarshal(second, &resp))
	require.Contains(t, resp.Compiled, `yield """<p>ok</p>`)

	require.NoError(t, in.Close())
	require.NoError(t, <-done)
}

// TestDaemonServerProcess is not a test: the client tests re-exec the test
// binary with this name to get a real daemon subprocess.
func TestDaemonServerProcess(t *testing.T) {
	if os.Getenv("HYPERC_DAEMON_SERVER") != "1" {
		t.Skip("spawned by the client tests")
	}
	if err := daemon.NewServer(os.Stdin, os.Stdout).Run(context.Background()); err != nil {
		os.Exit(1)
	}
	os.Exit(0)
}

func TestClient_SourceErrorKeepsDaemonAlive(t *testing.T) {
	t.Setenv("HYPERC_DAEMON_SERVER", "1")
	c := daemon.NewClient(os.Args[0], []string{"-test.run=^TestDaemonServerProcess$"})
	defer c.Close()

	_, err := c.Compile(context.Background(), daemon.Request{Content: "<div>\n"})
	var cerr *daemon.CompileError
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, "unclosed-element", cerr.Kind)

	// A bad template is a response, not a daemon failure; the process
	// must stay up and serve the next request without a restart.
	require.Equal(t, daemon.StateReady, c.State())

	resp, err := c.Compile(context.Background(), daemon.Request{Content: "<p>ok</p>\n"})
	require.NoError(t, err)
	require.Contains(t, resp.Compiled, "def Render():")
}

func TestClient_MissingBinaryFails(t *testing.T) {
	c := daemon.NewClient("/nonexistent/hyperc-daemon", nil,
		daemon.WithStartTimeout(time.Second))
	_, err := c.Compile(context.Background(), daemon.Request{Content: "<p>x</p>\n"})
	require.Error(t, err)
	require.Equal(t, daemon.StateFailed, c.State())
	require.NoError(t, c.Close())
	require.Equal(t, daemon.StateStopped, c.State())
}

func TestRunOnce_MissingBinary(t *testing.T) {
	_, err := daemon.RunOnce(context.Background(), "/nonexistent/hyperc",
		daemon.Request{Content: "<p>x</p>\n"}, time.Second)
	require.Error(t, err)
}

func TestClient_CompileErrorType(t *testing.T) {
	err := &daemon.CompileError{Message: "boom", Kind: "unclosed-element"}
	require.EqualError(t, err, "boom")
}
