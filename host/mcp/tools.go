package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// registerTools wires up the control-tool surface spec.md §6 anticipates:
// start, tick, run-until-idle, stop, set-state, get-frame. set_state is the
// only tool gated by cfg.WriteEnabled, since it mutates durable state rather
// than merely driving or observing the already-running engine.
func (s *Server) registerTools() error {
	s.server.AddTool(&sdk.Tool{
		Name:        "start",
		Description: "Report the execution this server is attached to (engines attach/resume at construction, so this never creates a new execution).",
		InputSchema: map[string]interface{}{"type": "object", "properties": map[string]interface{}{}},
	}, s.handleStart)

	s.server.AddTool(&sdk.Tool{
		Name:        "tick",
		Description: "Run exactly one Snapshot-Render-Persist-Execute-Commit-Effects pass.",
		InputSchema: map[string]interface{}{"type": "object", "properties": map[string]interface{}{}},
	}, s.handleTick)

	s.server.AddTool(&sdk.Tool{
		Name:        "run_until_idle",
		Description: "Tick repeatedly until the engine reports no more work or the iteration cap is hit.",
		InputSchema: map[string]interface{}{"type": "object", "properties": map[string]interface{}{}},
	}, s.handleRunUntilIdle)

	s.server.AddTool(&sdk.Tool{
		Name:        "stop",
		Description: "Request the engine halt at the next opportunity.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"reason": map[string]interface{}{"type": "string", "description": "Why the execution is being stopped"},
			},
		},
	}, s.handleStop)

	s.server.AddTool(&sdk.Tool{
		Name:        "get_frame",
		Description: "Retrieve one persisted frame by sequence number for the attached execution.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"sequence_number": map[string]interface{}{"type": "integer", "description": "Frame sequence number to retrieve"},
			},
			"required": []string{"sequence_number"},
		},
	}, s.handleGetFrame)

	s.server.AddTool(&sdk.Tool{
		Name:        "set_state",
		Description: "Immediately set a persistent-store key outside a tick (requires write_enabled).",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"key":     map[string]interface{}{"type": "string"},
				"value":   map[string]interface{}{"description": "New value; type is not constrained"},
				"trigger": map[string]interface{}{"type": "string", "description": "Label recorded on the transitions row"},
			},
			"required": []string{"key", "value"},
		},
	}, s.handleSetState)

	return nil
}

func (s *Server) handleStart(_ context.Context, _ *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
	return textResult(fmt.Sprintf("attached to execution %q", s.eng.ExecutionID())), nil
}

func (s *Server) handleTick(ctx context.Context, _ *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
	res, err := s.eng.Tick(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonToolResult(res)
}

func (s *Server) handleRunUntilIdle(ctx context.Context, _ *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
	res, err := s.eng.RunUntilIdle(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonToolResult(res)
}

type stopParams struct {
	Reason string `json:"reason"`
}

func (s *Server) handleStop(_ context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
	var p stopParams
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
			return errorResult(fmt.Errorf("parse stop params: %w", err)), nil
		}
	}
	s.eng.Stop(p.Reason)
	return textResult("stop requested"), nil
}

type getFrameParams struct {
	SequenceNumber int64 `json:"sequence_number"`
}

func (s *Server) handleGetFrame(_ context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
	var p getFrameParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResult(fmt.Errorf("parse get_frame params: %w", err)), nil
	}
	content, err := s.log.Frame(s.eng.ExecutionID(), p.SequenceNumber)
	if err != nil {
		return errorResult(err), nil
	}
	return textResult(content), nil
}

type setStateParams struct {
	Key     string      `json:"key"`
	Value   interface{} `json:"value"`
	Trigger string      `json:"trigger"`
}

func (s *Server) handleSetState(_ context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
	if !s.writeTool() {
		return errorResult(fmt.Errorf("set_state requires mcp.write_enabled")), nil
	}
	var p setStateParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResult(fmt.Errorf("parse set_state params: %w", err)), nil
	}
	trigger := p.Trigger
	if trigger == "" {
		trigger = "mcp.set_state"
	}
	s.store.SetImmediate(p.Key, p.Value, trigger, "mcp")
	return textResult(fmt.Sprintf("set %q", p.Key)), nil
}

func textResult(text string) *sdk.CallToolResult {
	return &sdk.CallToolResult{Content: []sdk.Content{&sdk.TextContent{Text: text}}}
}

func errorResult(err error) *sdk.CallToolResult {
	return &sdk.CallToolResult{Content: []sdk.Content{&sdk.TextContent{Text: err.Error()}}, IsError: true}
}

func jsonToolResult(v interface{}) (*sdk.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResult(err), nil
	}
	return textResult(string(data)), nil
}
