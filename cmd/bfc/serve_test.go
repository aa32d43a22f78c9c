package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/praetorian-inc/bfc/pkg/serve"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunServe(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.SetIn(strings.NewReader(`{"type":"check","payload":{"source":"]"}}` + "\n"))

	require.NoError(t, runServe(cmd, nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var resp serve.Response
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "check", resp.Type)
	assert.Contains(t, string(resp.Data), "no loop to terminate")
}
