package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tickforge/orchestra/durablelog"
	"github.com/tickforge/orchestra/serialize"
)

// ExecutionsResource is the JSON shape of the tickengine://executions
// resource: every execution row this durable log has recorded.
type ExecutionsResource struct {
	Executions []durablelog.Execution `json:"executions"`
	Timestamp  time.Time              `json:"timestamp"`
}

// FramesResource is the JSON shape of tickengine://frames/{execution_id}:
// every persisted frame for one execution, in sequence order.
type FramesResource struct {
	ExecutionID string                 `json:"execution_id"`
	Frames      []durablelog.FrameRow  `json:"frames"`
	Timestamp   time.Time              `json:"timestamp"`
}

// StateResource is the JSON shape of tickengine://state: the current
// persistent-store snapshot as of the read.
type StateResource struct {
	Values    map[string]interface{} `json:"values"`
	Timestamp time.Time              `json:"timestamp"`
}

// TreeResource is the JSON shape of tickengine://tree: the structured,
// devtools-style projection of the most recently rendered tree (distinct
// from the deterministic text projection persisted into frames — see
// serialize.Snapshot).
type TreeResource struct {
	Root      *serialize.NodeSnapshot `json:"root"`
	Timestamp time.Time               `json:"timestamp"`
}

func (s *Server) registerResources() error {
	s.server.AddResource(
		&sdk.Resource{
			URI:         "tickengine://executions",
			Name:        "executions",
			Description: "Every execution this durable log has recorded",
			MIMEType:    "application/json",
		},
		s.readExecutions,
	)

	s.server.AddResourceTemplate(
		&sdk.ResourceTemplate{
			URITemplate: "tickengine://frames/{execution_id}",
			Name:        "frames",
			Description: "Every persisted frame for one execution, in sequence order",
			MIMEType:    "application/json",
		},
		s.readFrames,
	)

	s.server.AddResource(
		&sdk.Resource{
			URI:         "tickengine://state",
			Name:        "state",
			Description: "Current persistent-store snapshot",
			MIMEType:    "application/json",
		},
		s.readState,
	)

	s.server.AddResource(
		&sdk.Resource{
			URI:         "tickengine://tree",
			Name:        "tree",
			Description: "Structured projection of the most recently rendered tree",
			MIMEType:    "application/json",
		},
		s.readTree,
	)

	return nil
}

func (s *Server) readExecutions(_ context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	executions, err := s.log.Executions()
	if err != nil {
		return nil, fmt.Errorf("read executions: %w", err)
	}
	data, err := json.MarshalIndent(ExecutionsResource{Executions: executions, Timestamp: time.Now().UTC()}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal executions resource: %w", err)
	}
	return jsonResult(req.Params.URI, data), nil
}

func (s *Server) readFrames(_ context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	executionID, err := executionIDFromURI(req.Params.URI)
	if err != nil {
		return nil, err
	}
	frames, err := s.log.Frames(executionID)
	if err != nil {
		return nil, fmt.Errorf("read frames for %q: %w", executionID, err)
	}
	data, err := json.MarshalIndent(FramesResource{ExecutionID: executionID, Frames: frames, Timestamp: time.Now().UTC()}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal frames resource: %w", err)
	}
	return jsonResult(req.Params.URI, data), nil
}

func (s *Server) readState(_ context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	snap := s.store.Snapshot()
	data, err := json.MarshalIndent(StateResource{Values: snap.All(), Timestamp: time.Now().UTC()}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal state resource: %w", err)
	}
	return jsonResult(req.Params.URI, data), nil
}

func (s *Server) readTree(_ context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	var root *serialize.NodeSnapshot
	if t := s.eng.CurrentTree(); t != nil {
		snap := serialize.Snapshot(t)
		root = &snap
	}
	data, err := json.MarshalIndent(TreeResource{Root: root, Timestamp: time.Now().UTC()}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal tree resource: %w", err)
	}
	return jsonResult(req.Params.URI, data), nil
}

// executionIDFromURI extracts the {execution_id} path segment of a
// tickengine://frames/{execution_id} resource template match.
func executionIDFromURI(uri string) (string, error) {
	const prefix = "tickengine://frames/"
	if len(uri) <= len(prefix) || uri[:len(prefix)] != prefix {
		return "", fmt.Errorf("malformed frames resource URI %q", uri)
	}
	return uri[len(prefix):], nil
}

func jsonResult(uri string, data []byte) *sdk.ReadResourceResult {
	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{URI: uri, MIMEType: "application/json", Text: string(data)},
		},
	}
}
