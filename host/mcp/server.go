// Package mcp exposes a running tick engine over the Model Context Protocol:
// read resources (executions, frames, state) and control tools (tick,
// run-until-idle, stop, set-state, get-frame), adapted from the teacher's
// devtools/mcp server/resource/tool scaffolding (pkg/bubbly/devtools/mcp) to
// the tick engine's own data shapes. This package is a host-layer
// collaborator, not part of the core (spec.md §6): the core never imports
// it, and its protocol framing carries no tick-engine semantics of its own.
package mcp

import (
	"context"
	"fmt"
	"sync"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tickforge/orchestra/durablelog"
	"github.com/tickforge/orchestra/engine"
	"github.com/tickforge/orchestra/internal/config"
	"github.com/tickforge/orchestra/state"
)

// Server wraps one engine, its durable log, and its persistent store behind
// an MCP resource/tool surface. One Server corresponds to one execution.
type Server struct {
	mu sync.Mutex

	server *sdk.Server
	cfg    config.MCPConfig

	eng   *engine.Engine
	log   *durablelog.Log
	store *state.PersistentStore
}

// NewServer creates a Server around an already-constructed Engine. The
// engine must be attached (engine.New already ran, so eng.ExecutionID() is
// valid) before resources/tools can report anything useful.
func NewServer(cfg config.MCPConfig, eng *engine.Engine, log *durablelog.Log, store *state.PersistentStore) (*Server, error) {
	if eng == nil {
		return nil, fmt.Errorf("mcp server requires a non-nil engine")
	}
	if log == nil {
		return nil, fmt.Errorf("mcp server requires a non-nil durable log")
	}
	if store == nil {
		return nil, fmt.Errorf("mcp server requires a non-nil persistent store")
	}

	impl := &sdk.Implementation{Name: "tickengine-host", Version: "1.0.0"}
	srv := &Server{
		server: sdk.NewServer(impl, &sdk.ServerOptions{}),
		cfg:    cfg,
		eng:    eng,
		log:    log,
		store:  store,
	}

	if err := srv.registerResources(); err != nil {
		return nil, fmt.Errorf("register resources: %w", err)
	}
	if err := srv.registerTools(); err != nil {
		return nil, fmt.Errorf("register tools: %w", err)
	}

	return srv, nil
}

// Serve blocks on stdio transport until the client disconnects or ctx is
// cancelled, mirroring the teacher's StartStdioServer.
func (s *Server) Serve(ctx context.Context) error {
	session, err := s.server.Connect(ctx, &sdk.StdioTransport{}, nil)
	if err != nil {
		return fmt.Errorf("connect stdio transport: %w", err)
	}
	if err := session.Wait(); err != nil {
		return fmt.Errorf("stdio session ended: %w", err)
	}
	return nil
}

func (s *Server) writeTool() bool {
	return s.cfg.WriteEnabled
}
