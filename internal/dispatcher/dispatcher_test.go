package dispatcher

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyp3rd/mssql-tool-server/internal/config"
	"github.com/hyp3rd/mssql-tool-server/internal/mssqlconn"
	"github.com/hyp3rd/mssql-tool-server/internal/perfobs"
	"github.com/hyp3rd/mssql-tool-server/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDeps(t *testing.T) *tools.Deps {
	t.Helper()

	cfg := &config.Config{}
	cfg.MSSQL.Host = "localhost"
	cfg.MSSQL.Port = 1433
	cfg.MSSQL.Database = "test"
	cfg.MSSQL.PoolMax = 1
	cfg.MSSQL.ConnectTimeoutMs = 50
	cfg.MSSQL.MaxRetries = 1
	cfg.MSSQL.RetryDelayMs = 1

	return &tools.Deps{
		Pool:   mssqlconn.New(&cfg.MSSQL, nil),
		Obs:    perfobs.New(perfobs.Config{Enabled: false}),
		Cfg:    cfg,
		Logger: nil,
	}
}

func TestDispatcher_ListTools_ReturnsFullCatalog(t *testing.T) {
	t.Parallel()

	d := New(testDeps(t))

	resp := d.dispatch(context.Background(), Request{JSONRPC: "2.0", Method: "list_tools"})

	require.Nil(t, resp.Error)

	encoded, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), "execute_query")
	assert.Contains(t, string(encoded), "get_optimization_insights")
}

func TestDispatcher_CallTool_UnknownToolReturnsMethodNotFound(t *testing.T) {
	t.Parallel()

	d := New(testDeps(t))

	params, err := json.Marshal(CallToolParams{Name: "does_not_exist"})
	require.NoError(t, err)

	resp := d.dispatch(context.Background(), Request{JSONRPC: "2.0", Method: "call_tool", Params: params})

	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeMethodNotFound, resp.Error.Code)
}

func TestDispatcher_UnknownMethod(t *testing.T) {
	t.Parallel()

	d := New(testDeps(t))

	resp := d.dispatch(context.Background(), Request{JSONRPC: "2.0", Method: "not_a_method"})

	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeMethodNotFound, resp.Error.Code)
}

func TestDispatcher_CallTool_BadArgumentsReturnInvalidRequest(t *testing.T) {
	t.Parallel()

	d := New(testDeps(t))

	params, err := json.Marshal(CallToolParams{
		Name:      "get_table_data",
		Arguments: json.RawMessage(`{"limit": "not-a-number"}`),
	})
	require.NoError(t, err)

	resp := d.dispatch(context.Background(), Request{JSONRPC: "2.0", Method: "call_tool", Params: params})

	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidRequest, resp.Error.Code)
}

func TestDispatcher_Serve_MalformedFrameYieldsInvalidParamsWithoutCrashing(t *testing.T) {
	t.Parallel()

	d := New(testDeps(t))

	stdin := strings.NewReader("not json at all\n")

	var stdout bytes.Buffer

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := d.Serve(ctx, stdin, &stdout)
	require.NoError(t, err)

	var resp Response

	require.NoError(t, json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)
}

// TestDispatcher_Serve_OnlyEmitsNewlineDelimitedJSON guards spec.md §8's "stdout
// carries nothing but protocol frames" invariant: every line on stdout must be
// one complete, independently parseable JSON object.
func TestDispatcher_Serve_OnlyEmitsNewlineDelimitedJSON(t *testing.T) {
	t.Parallel()

	d := New(testDeps(t))

	var requests bytes.Buffer

	for i := 0; i < 5; i++ {
		params, err := json.Marshal(CallToolParams{Name: "does_not_exist"})
		require.NoError(t, err)

		req, err := json.Marshal(Request{JSONRPC: "2.0", Method: "call_tool", Params: params})
		require.NoError(t, err)

		requests.Write(req)
		requests.WriteByte('\n')
	}

	var stdout bytes.Buffer

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := d.Serve(ctx, &requests, &stdout)
	require.NoError(t, err)

	scanner := bufio.NewScanner(&stdout)

	lines := 0

	for scanner.Scan() {
		var resp Response

		require.NoError(t, json.Unmarshal(scanner.Bytes(), &resp))
		lines++
	}

	assert.Equal(t, 5, lines)
}
