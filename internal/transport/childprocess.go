package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/vn6295337/Researcher-Agent/internal/jsonrpc"
)

// ChildProcess speaks the line-delimited JSON-RPC 2.0 handshake from
// spec.md §4.6 over a freshly spawned worker process per tool call, the
// way fluxforge/agent/executor.go shells out to run a command and
// collects its output.
type ChildProcess struct {
	// BinaryPath is the worker executable; it receives "--basket=<name>"
	// so a single binary can serve every basket.
	BinaryPath string
}

// NewChildProcess builds a transport that spawns BinaryPath per call.
func NewChildProcess(binaryPath string) *ChildProcess {
	return &ChildProcess{BinaryPath: binaryPath}
}

func (c *ChildProcess) CallTool(ctx context.Context, basketID, tool string, args map[string]any) (json.RawMessage, error) {
	cmd := exec.CommandContext(ctx, c.BinaryPath, "--basket="+basketID)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("TransportError: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("TransportError: stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("TransportError: start worker: %w", err)
	}

	reader := bufio.NewScanner(stdout)
	reader.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	writeLine := func(v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		_, err = stdin.Write(append(b, '\n'))
		return err
	}

	readResponse := func(wantID int, deadline time.Duration) (*jsonrpc.Response, error) {
		type res struct {
			resp *jsonrpc.Response
			err  error
		}
		done := make(chan res, 1)
		go func() {
			for reader.Scan() {
				var resp jsonrpc.Response
				if err := json.Unmarshal(reader.Bytes(), &resp); err != nil {
					continue
				}
				if resp.ID != nil && *resp.ID == wantID {
					done <- res{resp: &resp}
					return
				}
			}
			done <- res{err: fmt.Errorf("TransportError: worker closed stdout before responding")}
		}()
		select {
		case r := <-done:
			return r.resp, r.err
		case <-time.After(deadline):
			return nil, fmt.Errorf("TransportError: timeout waiting for worker response")
		case <-ctx.Done():
			return nil, fmt.Errorf("TransportError: %w", ctx.Err())
		}
	}

	cleanup := func() {
		stdin.Close()
		done := make(chan struct{})
		go func() { cmd.Wait(); close(done) }()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			cmd.Process.Kill()
		}
	}

	// 1. initialize
	if err := writeLine(jsonrpc.Request{JSONRPC: "2.0", ID: jsonrpc.IntPtr(1), Method: "initialize", Params: json.RawMessage(`{}`)}); err != nil {
		cleanup()
		return nil, fmt.Errorf("TransportError: write initialize: %w", err)
	}
	if _, err := readResponse(1, 20*time.Second); err != nil {
		cleanup()
		return nil, err
	}

	// 2. notifications/initialized (no id, no response expected)
	if err := writeLine(struct {
		JSONRPC string `json:"jsonrpc"`
		Method  string `json:"method"`
	}{"2.0", "notifications/initialized"}); err != nil {
		cleanup()
		return nil, fmt.Errorf("TransportError: write initialized notification: %w", err)
	}

	// 3. tools/call
	params, _ := json.Marshal(jsonrpc.ToolCallParams{Name: tool, Arguments: args})
	if err := writeLine(jsonrpc.Request{JSONRPC: "2.0", ID: jsonrpc.IntPtr(2), Method: "tools/call", Params: params}); err != nil {
		cleanup()
		return nil, fmt.Errorf("TransportError: write tools/call: %w", err)
	}

	resp, err := readResponse(2, 90*time.Second)
	cleanup()
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("TransportError: worker returned error %d: %s", resp.Error.Code, resp.Error.Message)
	}

	var result jsonrpc.ToolCallResult
	if err := json.Unmarshal(resp.Result, &result); err != nil || len(result.Content) == 0 {
		return nil, fmt.Errorf("TransportError: malformed tool result")
	}

	var text string
	for _, part := range result.Content {
		if part.Type == "text" {
			text = part.Text
			break
		}
	}
	if text == "" {
		return nil, fmt.Errorf("TransportError: tool result had no text content")
	}

	// Decode failures fall back to {raw_text: <string>}, per spec.md §4.6.
	var probe json.RawMessage
	if err := json.Unmarshal([]byte(text), &probe); err != nil {
		raw, _ := json.Marshal(map[string]string{"raw_text": text})
		return raw, nil
	}
	return probe, nil
}
