package main

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/ragkit/ragkit/mcp"
)

// stdioReadWriteCloser pairs stdin/stdout into the single
// io.ReadWriteCloser jsonrpc2's stream codecs expect.
type stdioReadWriteCloser struct {
	in  io.Reader
	out io.Writer
}

func (s stdioReadWriteCloser) Read(p []byte) (int, error)  { return s.in.Read(p) }
func (s stdioReadWriteCloser) Write(p []byte) (int, error) { return s.out.Write(p) }
func (s stdioReadWriteCloser) Close() error                { return nil }

// newlineObjectCodec speaks one JSON object per line, the wire format
// MCP stdio clients use (as opposed to the Content-Length-framed codec
// LSP-style jsonrpc2 users typically reach for).
type newlineObjectCodec struct{}

func (newlineObjectCodec) WriteObject(stream io.Writer, obj any) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = stream.Write(data)
	return err
}

func (newlineObjectCodec) ReadObject(stream *bufio.Reader, v any) error {
	line, err := stream.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return err
	}
	return json.Unmarshal(line, v)
}

// toolHandler adapts mcp.Server's tool dispatch to the initialize
// handshake and tools/call methods a JSON-RPC MCP client expects.
type toolHandler struct {
	tools *mcp.Server
}

func (h toolHandler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	result, err := h.dispatch(ctx, req)
	if req.Notif {
		return
	}
	if err != nil {
		if replyErr := conn.ReplyWithError(ctx, req.ID, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeInternalError,
			Message: err.Error(),
		}); replyErr != nil {
			slog.Error("replying with error", "error", replyErr)
		}
		return
	}
	if err := conn.Reply(ctx, req.ID, result); err != nil {
		slog.Error("replying", "error", err)
	}
}

func (h toolHandler) dispatch(ctx context.Context, req *jsonrpc2.Request) (any, error) {
	switch req.Method {
	case "initialize":
		return map[string]any{
			"protocolVersion": "2024-11-05",
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      h.tools.Info(),
		}, nil
	case "tools/list":
		return map[string]any{"tools": h.tools.Tools()}, nil
	case "tools/call":
		var params struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if req.Params != nil {
			if err := json.Unmarshal(*req.Params, &params); err != nil {
				return nil, err
			}
		}
		result := h.tools.Call(ctx, params.Name, func(v any) error {
			if len(params.Arguments) == 0 {
				return nil
			}
			return json.Unmarshal(params.Arguments, v)
		})
		return result, nil
	default:
		return nil, nil
	}
}

// serveStdio runs a single JSON-RPC connection over stdin/stdout until
// the peer disconnects.
func serveStdio(ctx context.Context, tools *mcp.Server) error {
	stream := jsonrpc2.NewBufferedStream(stdioReadWriteCloser{in: os.Stdin, out: os.Stdout}, newlineObjectCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, toolHandler{tools: tools})
	slog.Info("stdio server starting")
	<-conn.DisconnectNotify()
	slog.Info("stdio server stopped")
	return nil
}
