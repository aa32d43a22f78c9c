package serve

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveLines runs a server over input and returns its decoded responses.
func serveLines(t *testing.T, input string) []Response {
	t.Helper()
	out := &bytes.Buffer{}

	srv := NewServer(strings.NewReader(input), out)
	require.NoError(t, srv.Run(context.Background()))

	var responses []Response
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		var resp Response
		require.NoError(t, json.Unmarshal([]byte(line), &resp))
		responses = append(responses, resp)
	}
	return responses
}

func TestServer_SendsReadyOnStart(t *testing.T) {
	in := strings.NewReader("")
	out := &bytes.Buffer{}

	srv := NewServer(in, out)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately to exit after ready

	_ = srv.Run(ctx)

	// Parse first line as ready message
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.NotEmpty(t, lines)

	var resp Response
	err := json.Unmarshal([]byte(lines[0]), &resp)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "ready", resp.Type)

	var ready ReadyData
	require.NoError(t, json.Unmarshal(resp.Data, &ready))
	assert.Equal(t, Version, ready.Version)
	assert.Equal(t, []string{"amd64", "x86"}, ready.Arches)
}

func TestServer_Check(t *testing.T) {
	request := `{"type":"check","payload":{"file":"a.bf","source":"+[\n]]"}}` + "\n"

	responses := serveLines(t, request)
	require.Len(t, responses, 2) // ready + check response

	resp := responses[1]
	assert.True(t, resp.Success)
	assert.Equal(t, "check", resp.Type)

	var result CheckResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Equal(t, "a.bf", result.File)
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, "no loop to terminate", result.Diagnostics[0].Message)
	assert.Equal(t, 2, result.Diagnostics[0].Loc.Line)
	assert.Equal(t, 2, result.Diagnostics[0].Loc.Column)
}

func TestServer_CheckClean(t *testing.T) {
	responses := serveLines(t, `{"type":"check","payload":{"source":"+"}}`+"\n")
	require.Len(t, responses, 2)

	assert.Contains(t, string(responses[1].Data), `"diagnostics":[]`)

	var result CheckResult
	require.NoError(t, json.Unmarshal(responses[1].Data, &result))
	assert.Equal(t, DefaultFile, result.File)
	assert.Empty(t, result.Diagnostics)
}

func TestServer_Tree(t *testing.T) {
	responses := serveLines(t, `{"type":"tree","payload":{"source":"--[>]"}}`+"\n")
	require.Len(t, responses, 2)

	var result TreeResult
	require.NoError(t, json.Unmarshal(responses[1].Data, &result))
	assert.Empty(t, result.Diagnostics)
	require.Len(t, result.Tree, 2)
	assert.Equal(t, 2, result.Tree[0].Count)
	assert.Len(t, result.Tree[1].Children, 1)
}

func TestServer_Compile(t *testing.T) {
	request := `{"type":"compile","payload":{"source":"+.","arch":"i386"}}` + "\n"

	responses := serveLines(t, request)
	require.Len(t, responses, 2)
	require.True(t, responses[1].Success)

	var result CompileResult
	require.NoError(t, json.Unmarshal(responses[1].Data, &result))
	assert.Equal(t, "x86", result.Arch)
	assert.Contains(t, result.Assembly, "int $0x80")
	assert.Equal(t, len(result.Assembly), result.Bytes)
}

func TestServer_CompileWithSyntaxErrors(t *testing.T) {
	responses := serveLines(t, `{"type":"compile","payload":{"source":"["}}`+"\n")
	require.Len(t, responses, 2)

	var result CompileResult
	require.NoError(t, json.Unmarshal(responses[1].Data, &result))
	assert.Empty(t, result.Assembly)
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, "bfc.unterminated-loop", result.Diagnostics[0].Rule)
}

func TestServer_CompileUnknownArch(t *testing.T) {
	responses := serveLines(t, `{"type":"compile","payload":{"source":"+","arch":"mips"}}`+"\n")
	require.Len(t, responses, 2)

	assert.False(t, responses[1].Success)
	assert.Equal(t, "compile", responses[1].Type)
	assert.Contains(t, responses[1].Error, "mips")
}

func TestServer_UnknownRequestType(t *testing.T) {
	responses := serveLines(t, `{"type":"optimize","payload":{}}`+"\n")
	require.Len(t, responses, 2)

	assert.False(t, responses[1].Success)
	assert.Equal(t, "unknown", responses[1].Type)
	assert.Contains(t, responses[1].Error, "optimize")
}

func TestServer_InvalidPayload(t *testing.T) {
	responses := serveLines(t, `{"type":"check","payload":"nope"}`+"\n")
	require.Len(t, responses, 2)

	assert.False(t, responses[1].Success)
	assert.Equal(t, "check", responses[1].Type)
}

func TestServer_MalformedJSON(t *testing.T) {
	responses := serveLines(t, "{not json\n")
	require.Len(t, responses, 2)

	assert.False(t, responses[1].Success)
	assert.Equal(t, "decode", responses[1].Type)
}

func TestServer_CloseStopsProcessing(t *testing.T) {
	input := `{"type":"close"}` + "\n" + `{"type":"check","payload":{"source":"+"}}` + "\n"

	responses := serveLines(t, input)
	assert.Len(t, responses, 1) // ready only
}

func TestServer_MultipleRequests(t *testing.T) {
	// Run several times so the last request races the EOF.
	for i := 0; i < 10; i++ {
		input := `{"type":"check","payload":{"source":"+"}}` + "\n" +
			`{"type":"compile","payload":{"source":"-"}}` + "\n"

		responses := serveLines(t, input)
		require.Len(t, responses, 3, "iteration %d", i)
		assert.Equal(t, "check", responses[1].Type, "iteration %d", i)
		assert.Equal(t, "compile", responses[2].Type, "iteration %d", i)
	}
}

func TestServer_GracefulShutdownOnContext(t *testing.T) {
	// Reader that blocks until the test ends
	pr, pw := io.Pipe()
	defer pw.Close()

	srv := NewServer(pr, io.Discard)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error)
	go func() {
		done <- srv.Run(ctx)
	}()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop after cancellation")
	}
}
