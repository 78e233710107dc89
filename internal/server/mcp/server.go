package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/emmett/voxstream/internal/dictation"
	"github.com/emmett/voxstream/internal/models"
)

// Session is the part of dictation.Session the tools drive
type Session interface {
	Start() error
	Stop(ctx context.Context) (*dictation.Transcript, error)
	Cancel() error
	Info() dictation.Info
}

type Config struct {
	ServerName    string
	ServerVersion string
}

type Server struct {
	config    Config
	mcpServer *sdk.Server
	session   Session
	store     *models.Store
	logger    zerolog.Logger
}

func NewServer(cfg Config, session Session, store *models.Store, logger zerolog.Logger) *Server {
	s := &Server{
		config:  cfg,
		session: session,
		store:   store,
		logger:  logger.With().Str("component", "mcp").Logger(),
	}

	s.mcpServer = sdk.NewServer(&sdk.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}, nil)

	s.registerTools()
	return s
}

// Run serves over stdin/stdout until ctx is done or the client disconnects
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &sdk.StdioTransport{})
}

// Stop cancels any recording left running by a client
func (s *Server) Stop() error {
	return s.session.Cancel()
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "start_dictation",
		Description: "Start recording from the microphone. Speech is transcribed in the background while recording.",
	}, s.handleStart)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "stop_dictation",
		Description: "Stop recording and return the final transcript",
	}, s.handleStop)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "cancel_dictation",
		Description: "Stop recording and discard everything captured",
	}, s.handleCancel)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "dictation_status",
		Description: "Report whether a recording is in progress",
		Annotations: &sdk.ToolAnnotations{ReadOnlyHint: true},
	}, s.handleStatus)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "list_models",
		Description: "List available and downloaded Vosk models",
		Annotations: &sdk.ToolAnnotations{ReadOnlyHint: true},
	}, s.handleListModels)
}
