package mcp

import (
	"context"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/quentin/dafgen/internal/audio"
)

// Config holds MCP server configuration
type Config struct {
	ServerName    string
	ServerVersion string
	Session       audio.SessionConfig
}

// Server exposes the feedback session over MCP stdio, so an agent or
// external tool can drive delay, gain and the run state.
type Server struct {
	config    Config
	mcpServer *sdk.Server
	session   audio.Session
	log       zerolog.Logger
}

// NewServer creates a new MCP server. The audio session is created up
// front but not started until the start_feedback tool is called.
func NewServer(cfg Config, log zerolog.Logger) (*Server, error) {
	session, err := audio.NewSession(cfg.Session, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s := &Server{
		config:  cfg,
		session: session,
		log:     log,
	}

	s.mcpServer = sdk.NewServer(&sdk.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}, nil)

	s.registerTools()

	return s, nil
}

// Start serves MCP over stdio until the transport closes
func (s *Server) Start() error {
	return s.mcpServer.Run(context.Background(), &sdk.StdioTransport{})
}

// Stop shuts the session down
func (s *Server) Stop() error {
	if s.session != nil {
		return s.session.Close()
	}
	return nil
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "start_feedback",
		Description: "Start the delayed auditory feedback loop (microphone to headphones)",
	}, s.handleStartFeedback)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "stop_feedback",
		Description: "Stop the feedback loop and release the audio devices",
	}, s.handleStopFeedback)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "set_delay",
		Description: "Set the feedback delay in milliseconds",
	}, s.handleSetDelay)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "set_gain",
		Description: "Set the output gain as a linear factor (1.0 = unity)",
	}, s.handleSetGain)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "get_status",
		Description: "Report session state, configured and measured delay, gain and stream counters",
	}, s.handleGetStatus)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "list_devices",
		Description: "List available audio capture and playback devices",
	}, s.handleListDevices)
}
