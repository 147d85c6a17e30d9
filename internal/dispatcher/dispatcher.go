package dispatcher

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/hyp3rd/mssql-tool-server/internal/apperrors"
	"github.com/hyp3rd/mssql-tool-server/internal/logger"
	"github.com/hyp3rd/mssql-tool-server/internal/mssqlconn"
	"github.com/hyp3rd/mssql-tool-server/internal/tools"
)

// ShutdownGrace bounds how long Serve waits for in-flight requests to finish
// after its context is cancelled (spec.md §4.8).
const ShutdownGrace = 10 * time.Second

// Dispatcher owns the tool catalog and the stdio transport loop (C6,
// spec.md §4.6). Each inbound call_tool becomes an independent goroutine
// (spec.md §9, "task per request"); the stdio writer serializes frame
// emission so concurrent handlers never interleave bytes on stdout.
type Dispatcher struct {
	catalog map[string]ToolDescriptor
	pool    *mssqlconn.Manager
	log     logger.Logger

	writeMu sync.Mutex
}

// New builds a Dispatcher with its tool catalog resolved from deps.
func New(deps *tools.Deps) *Dispatcher {
	return &Dispatcher{
		catalog: BuildCatalog(deps),
		pool:    deps.Pool,
		log:     deps.Logger,
	}
}

// Serve reads newline-delimited JSON-RPC requests from stdin and writes
// responses to stdout until stdin reaches EOF or ctx is cancelled. Under no
// circumstances does it write non-protocol bytes to stdout (spec.md §4.6).
func (d *Dispatcher) Serve(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	scanner := bufio.NewScanner(stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024) //nolint:mnd

	var wg sync.WaitGroup

	lines := make(chan []byte)

	go func() {
		defer close(lines)

		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			if len(line) == 0 {
				continue
			}

			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}()

readLoop:
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				break readLoop
			}

			wg.Add(1)

			go func(line []byte) {
				defer wg.Done()

				d.handleLine(ctx, line, stdout)
			}(line)
		case <-ctx.Done():
			break readLoop
		}
	}

	return d.awaitGraceful(&wg)
}

// awaitGraceful waits for in-flight handlers to finish, up to ShutdownGrace.
func (d *Dispatcher) awaitGraceful(wg *sync.WaitGroup) error {
	done := make(chan struct{})

	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(ShutdownGrace):
		if d.log != nil {
			d.log.Warn("shutdown grace period elapsed with requests still in flight")
		}

		return nil
	}
}

func (d *Dispatcher) handleLine(ctx context.Context, line []byte, stdout io.Writer) {
	var req Request

	if err := json.Unmarshal(line, &req); err != nil {
		d.writeResponse(stdout, Response{
			JSONRPC: "2.0",
			Error:   &RPCError{Code: CodeInvalidParams, Message: "malformed JSON-RPC request"},
		})

		return
	}

	resp := d.dispatch(ctx, req)
	d.writeResponse(stdout, resp)
}

func (d *Dispatcher) dispatch(ctx context.Context, req Request) Response {
	resp := Response{JSONRPC: "2.0", ID: req.ID}

	switch req.Method {
	case "list_tools":
		resp.Result = d.listTools()
	case "call_tool":
		result, err := d.callTool(ctx, req.Params)
		if err != nil {
			resp.Error = toRPCError(err)
		} else {
			resp.Result = result
		}
	default:
		resp.Error = &RPCError{Code: CodeMethodNotFound, Message: "unknown method: " + req.Method}
	}

	return resp
}

func (d *Dispatcher) listTools() any {
	type toolInfo struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}

	infos := make([]toolInfo, 0, len(d.catalog))

	for _, t := range d.catalog {
		infos = append(infos, toolInfo{Name: t.Name, Description: t.Description})
	}

	return struct {
		Tools []toolInfo `json:"tools"`
	}{Tools: infos}
}

func (d *Dispatcher) callTool(ctx context.Context, params json.RawMessage) (ToolEnvelope, error) {
	var call CallToolParams

	if err := json.Unmarshal(params, &call); err != nil {
		return ToolEnvelope{}, apperrors.Wrap(apperrors.ErrValidation, "decoding call_tool params", err)
	}

	descriptor, ok := d.catalog[call.Name]
	if !ok {
		return ToolEnvelope{}, apperrors.New(apperrors.ErrUnknownTool, "unknown tool: "+call.Name)
	}

	if err := d.pool.EnsureConnected(ctx); err != nil && d.log != nil {
		// Lazy connect failure is logged; the tool call itself still proceeds
		// and will surface its own ErrConnection from Borrow (spec.md §4.6 step 2).
		d.log.WithError(err).Warn("lazy pool connect failed before tool dispatch")
	}

	payload, err := descriptor.Handler(ctx, call.Arguments)
	if err != nil {
		return ToolEnvelope{}, err
	}

	envelope, err := newEnvelope(payload)
	if err != nil {
		return ToolEnvelope{}, apperrors.Wrap(apperrors.ErrInternal, "encoding tool response", err)
	}

	return envelope, nil
}

func (d *Dispatcher) writeResponse(stdout io.Writer, resp Response) {
	encoded, err := json.Marshal(resp)
	if err != nil {
		if d.log != nil {
			d.log.WithError(err).Error("failed to encode JSON-RPC response")
		}

		return
	}

	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	_, _ = stdout.Write(encoded)
	_, _ = stdout.Write([]byte("\n"))
}
