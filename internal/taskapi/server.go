// Package taskapi exposes the public task endpoint (spec.md §6): a
// JSON-RPC 2.0 POST handler plus the /.well-known/agent.json and
// /health auxiliary endpoints, wired up the way
// control_plane/main.go wires its ServeMux handlers.
package taskapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/vn6295337/Researcher-Agent/internal/jsonrpc"
	"github.com/vn6295337/Researcher-Agent/internal/model"
	"github.com/vn6295337/Researcher-Agent/internal/task"
)

const serviceVersion = "1.0.0"

// Server bundles the task manager with the HTTP handlers that front it.
type Server struct {
	manager   *task.Manager
	startedAt time.Time
	hub       *MetricsHub
}

// NewServer wraps manager with the JSON-RPC and auxiliary handlers.
func NewServer(manager *task.Manager) *Server {
	s := &Server{manager: manager, startedAt: time.Now()}
	s.hub = NewMetricsHub(manager)
	return s
}

// Hub exposes the websocket hub so main can start its Run loop.
func (s *Server) Hub() *MetricsHub { return s.hub }

// Routes registers every handler on mux, mirroring the flat
// http.Handle/HandleFunc style of control_plane/main.go.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/", s.handleRPC)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/.well-known/agent.json", s.handleAgentCard)
	mux.HandleFunc("/stream/", s.hub.HandleWebSocket)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":          "ok",
		"uptime_seconds":  time.Since(s.startedAt).Seconds(),
		"task_table_size": s.manager.Size(),
	})
}

func (s *Server) handleAgentCard(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":    "financial-research-aggregator",
		"version": serviceVersion,
		"capabilities": map[string]any{
			"partialResults": true,
		},
		"dataSources": model.BasketIDs,
	})
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeRPCError(w, nil, jsonrpc.CodeInvalidRequest, "method not allowed")
		return
	}

	var req jsonrpc.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRPCError(w, nil, jsonrpc.CodeParseError, "parse error")
		return
	}
	if req.JSONRPC != "2.0" {
		writeRPCError(w, req.ID, jsonrpc.CodeInvalidRequest, "invalid request")
		return
	}

	ctx := r.Context()
	switch req.Method {
	case "message/send":
		s.handleMessageSend(ctx, w, req)
	case "tasks/get":
		s.handleTasksGet(ctx, w, req)
	case "tasks/cancel":
		s.handleTasksCancel(ctx, w, req)
	default:
		writeRPCError(w, req.ID, jsonrpc.CodeMethodNotFound, "method not found")
	}
}

func (s *Server) handleMessageSend(ctx context.Context, w http.ResponseWriter, req jsonrpc.Request) {
	var params struct {
		Message struct {
			Parts []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"message"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil || len(params.Message.Parts) == 0 {
		writeRPCError(w, req.ID, jsonrpc.CodeInvalidParams, "invalid params: message.parts required")
		return
	}

	text := params.Message.Parts[0].Text
	t, err := s.manager.Submit(ctx, text)
	if err != nil {
		if errors.Is(err, task.ErrInvalidParams) {
			writeRPCError(w, req.ID, jsonrpc.CodeInvalidParams, err.Error())
			return
		}
		writeRPCError(w, req.ID, jsonrpc.CodeInvalidParams, err.Error())
		return
	}

	writeRPCResult(w, req.ID, map[string]any{"task": map[string]any{"id": t.ID, "status": t.Status}})
}

func (s *Server) handleTasksGet(ctx context.Context, w http.ResponseWriter, req jsonrpc.Request) {
	var params struct {
		TaskID string `json:"taskId"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil || params.TaskID == "" {
		writeRPCError(w, req.ID, jsonrpc.CodeInvalidParams, "invalid params: taskId required")
		return
	}

	t, err := s.manager.Get(ctx, params.TaskID)
	if err != nil {
		writeRPCError(w, req.ID, jsonrpc.CodeTaskNotFound, "task not found")
		return
	}

	writeRPCResult(w, req.ID, map[string]any{"task": taskView(t)})
}

func (s *Server) handleTasksCancel(ctx context.Context, w http.ResponseWriter, req jsonrpc.Request) {
	var params struct {
		TaskID string `json:"taskId"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil || params.TaskID == "" {
		writeRPCError(w, req.ID, jsonrpc.CodeInvalidParams, "invalid params: taskId required")
		return
	}

	t, err := s.manager.Cancel(ctx, params.TaskID)
	if err != nil {
		writeRPCError(w, req.ID, jsonrpc.CodeTaskNotFound, "task not found")
		return
	}

	writeRPCResult(w, req.ID, map[string]any{"task": map[string]any{"id": t.ID, "status": t.Status}})
}

func taskView(t model.Task) map[string]any {
	view := map[string]any{
		"id":        t.ID,
		"status":    t.Status,
		"createdAt": t.CreatedAt,
		"updatedAt": t.UpdatedAt,
	}
	if t.Status == model.StatusWorking || t.Status == model.StatusCompleted {
		view["partial_metrics"] = t.PartialMetrics
	}
	if t.Status == model.StatusCompleted {
		view["artifacts"] = t.Artifacts
	}
	if t.Status == model.StatusFailed {
		view["error"] = t.Error
	}
	return view
}

func writeRPCResult(w http.ResponseWriter, id *int, result any) {
	b, _ := json.Marshal(result)
	resp := jsonrpc.Response{JSONRPC: "2.0", ID: id, Result: b}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func writeRPCError(w http.ResponseWriter, id *int, code int, message string) {
	resp := jsonrpc.Response{JSONRPC: "2.0", ID: id, Error: &jsonrpc.Error{Code: code, Message: message}}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
