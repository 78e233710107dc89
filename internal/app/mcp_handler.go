package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/emmett/voxstream/internal/models"
	"github.com/emmett/voxstream/internal/server/mcp"
)

// MCPHandler runs a dictation service as an MCP server on stdio
type MCPHandler struct {
	service   *Service
	store     *models.Store
	modelName string
	version   string
	gitCommit string
	out       io.Writer
	logger    zerolog.Logger
}

// NewMCPHandler creates a new MCP handler. Human readable output goes to
// out since stdout carries the protocol.
func NewMCPHandler(service *Service, store *models.Store, modelName, version, gitCommit string, out io.Writer, logger zerolog.Logger) *MCPHandler {
	if out == nil {
		out = os.Stderr
	}
	return &MCPHandler{
		service:   service,
		store:     store,
		modelName: modelName,
		version:   version,
		gitCommit: gitCommit,
		out:       out,
		logger:    logger,
	}
}

type mcpServerEntry struct {
	Type    string   `json:"type,omitempty"`
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

type mcpClientConfig struct {
	MCPServers map[string]mcpServerEntry `json:"mcpServers"`
}

// ClientConfig returns the JSON a client needs to launch this server
func (h *MCPHandler) ClientConfig() ([]byte, error) {
	execPath, err := os.Executable()
	if err != nil {
		execPath = "voxstream-mcp"
	}

	args := []string{}
	if h.modelName != "" {
		args = append(args, "--model", h.modelName)
	}

	return json.MarshalIndent(mcpClientConfig{
		MCPServers: map[string]mcpServerEntry{
			"voxstream": {Type: "stdio", Command: execPath, Args: args},
		},
	}, "", "  ")
}

// Run serves MCP requests until ctx is done or the client disconnects
func (h *MCPHandler) Run(ctx context.Context) error {
	fmt.Fprintf(h.out, "Starting MCP server...\n")
	fmt.Fprintf(h.out, "Protocol: Model Context Protocol (stdio transport)\n")
	fmt.Fprintf(h.out, "Version: %s (commit: %s)\n\n", h.version, h.gitCommit)
	fmt.Fprintf(h.out, "Model path: %s\n", h.service.ModelPath)
	fmt.Fprintf(h.out, "Input device: %s\n\n", h.service.Device.Name)

	if configJSON, err := h.ClientConfig(); err == nil {
		fmt.Fprintf(h.out, "MCP Client Configuration:\n%s\n\n", string(configJSON))
	}

	server := mcp.NewServer(mcp.Config{
		ServerName:    "voxstream",
		ServerVersion: h.version,
	}, h.service.Session, h.store, h.logger)

	fmt.Fprintf(h.out, "MCP server ready. Listening on stdin/stdout...\n")

	err := server.Run(ctx)
	if stopErr := server.Stop(); stopErr != nil {
		h.logger.Warn().Err(stopErr).Msg("failed to cancel recording")
	}
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
