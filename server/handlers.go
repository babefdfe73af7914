package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/daiduo2/TaShan-SciSpark/envelope"
)

// callRequest is the tool-call body shape: {tool_name, args}.
type callRequest struct {
	ToolName string         `json:"tool_name"`
	Args     map[string]any `json:"args"`
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	envelope.WriteSuccess(w, map[string]any{"status": "ok"})
}

// handleServerInfo returns the static server descriptor.
func (s *Server) handleServerInfo(w http.ResponseWriter, r *http.Request) {
	payload := s.dispatcher.Dispatch(r.Context(), "get_server_info", nil)
	envelope.WriteSuccess(w, payload)
}

// handleListTools returns the registered tool names in registration order.
func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	envelope.WriteSuccess(w, map[string]any{
		"tools": s.dispatcher.Registry().Names(),
	})
}

// handleCallTool dispatches one tool call. Tool-level failures come back
// as {success:false} data with HTTP 200; only malformed requests and
// unknown tools get protocol-level status codes.
func (s *Server) handleCallTool(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeCallRequest(w, r)
	if !ok {
		return
	}

	payload := s.dispatcher.Dispatch(r.Context(), req.ToolName, req.Args)
	envelope.WriteSuccess(w, payload)
}

// handleStreamTool dispatches one tool call and streams the payload as
// event frames terminated by the sentinel. Every failure, protocol or
// tool-level, degrades to the fixed two-frame error stream rather than
// dropping the connection.
func (s *Server) handleStreamTool(w http.ResponseWriter, r *http.Request) {
	var req callRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.ToolName == "" || !s.dispatcher.Registry().Has(req.ToolName) {
		s.logger.Warn("stream request rejected", "tool", req.ToolName)
		_ = envelope.WriteErrorStream(w)
		return
	}

	payload := s.dispatcher.Dispatch(r.Context(), req.ToolName, req.Args)
	if succeeded, ok := payload["success"].(bool); ok && !succeeded {
		_ = envelope.WriteErrorStream(w)
		return
	}

	frame, err := envelope.Frame(payload)
	if err != nil {
		_ = envelope.WriteErrorStream(w)
		return
	}

	frames := make(chan string, 2)
	frames <- frame
	frames <- envelope.DoneFrame
	close(frames)
	_ = envelope.WriteStream(w, frames)
}

// handleTaskStatus is the polling endpoint. A missing task is a normal
// response, not an error status.
func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	t, ok := s.dispatcher.Tasks().Get(id)
	if !ok {
		envelope.WriteSuccess(w, map[string]any{
			"success": false,
			"message": fmt.Sprintf("task not found: %s", id),
			"task":    nil,
		})
		return
	}
	envelope.WriteSuccess(w, map[string]any{
		"success": true,
		"message": "task status retrieved",
		"task":    t.StatusPayload(),
	})
}

// decodeCallRequest parses and validates the call body, writing protocol
// errors itself.
func (s *Server) decodeCallRequest(w http.ResponseWriter, r *http.Request) (callRequest, bool) {
	var req callRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if isMaxBytesError(err) {
			envelope.WriteError(w, http.StatusRequestEntityTooLarge, http.StatusRequestEntityTooLarge, "request body exceeds size limit")
			return callRequest{}, false
		}
		envelope.WriteError(w, http.StatusBadRequest, http.StatusBadRequest, "invalid request body")
		return callRequest{}, false
	}
	if req.ToolName == "" {
		envelope.WriteError(w, http.StatusBadRequest, http.StatusBadRequest, "tool_name is required")
		return callRequest{}, false
	}
	if !s.dispatcher.Registry().Has(req.ToolName) {
		envelope.WriteError(w, http.StatusNotFound, http.StatusNotFound, fmt.Sprintf("unknown tool %q", req.ToolName))
		return callRequest{}, false
	}
	return req, true
}

func isMaxBytesError(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
