package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/pario-ai/glossa/pkg/models"
	"github.com/pario-ai/glossa/pkg/translator"
)

const protocolVersion = "2024-11-05"

// maxLine bounds one JSON-RPC message. Translate calls carry whole documents.
const maxLine = 16 << 20

// Backend is the translation service the tools operate on.
type Backend interface {
	Stats(ctx context.Context) (models.CacheStats, error)
	ClearAll(ctx context.Context) (int64, error)
	ClearExpired(ctx context.Context) (int64, error)
	Flush(ctx context.Context) (int, error)
	TranslateDocument(ctx context.Context, req translator.DocumentRequest) (*translator.DocumentResult, error)
}

// Server answers MCP requests read line by line from a stream.
type Server struct {
	backend Backend
	version string
}

// New creates an MCP Server.
func New(backend Backend, version string) *Server {
	return &Server{backend: backend, version: version}
}

// Run reads JSON-RPC requests from r and writes responses to w. It blocks
// until r is closed or ctx is cancelled.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(w, Response{
				JSONRPC: "2.0",
				Error:   &RPCError{Code: CodeParseError, Message: "parse error"},
			})
			continue
		}

		if resp := s.dispatch(ctx, &req); resp != nil {
			s.writeResponse(w, *resp)
		}
	}
	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, req *Request) *Response {
	switch req.Method {
	case "initialize":
		return result(req, InitializeResult{
			ProtocolVersion: protocolVersion,
			ServerInfo:      ServerInfo{Name: "glossa", Version: s.version},
			Capabilities:    map[string]any{"tools": map[string]any{}},
		})
	case "notifications/initialized":
		return nil
	case "ping":
		return result(req, map[string]any{})
	case "tools/list":
		return result(req, ToolsListResult{Tools: allTools})
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	default:
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &RPCError{Code: CodeMethodNotFound, Message: fmt.Sprintf("unknown method: %s", req.Method)},
		}
	}
}

func (s *Server) handleToolsCall(ctx context.Context, req *Request) *Response {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &RPCError{Code: CodeInvalidParams, Message: "invalid params"},
		}
	}

	handler, ok := toolHandlers[params.Name]
	if !ok {
		return result(req, errorResult(fmt.Sprintf("unknown tool: %s", params.Name)))
	}
	logrus.WithField("tool", params.Name).Debug("[MCP] tool call")
	return result(req, handler(ctx, s, params.Arguments))
}

func result(req *Request, v any) *Response {
	return &Response{JSONRPC: "2.0", ID: req.ID, Result: v}
}

func (s *Server) writeResponse(w io.Writer, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		logrus.WithError(err).Error("[MCP] marshal response")
		return
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		logrus.WithError(err).Error("[MCP] write response")
	}
}
