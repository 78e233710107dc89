package mcp

import (
	"context"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/emmett/voxstream/internal/dictation"
)

type NoArgs struct{}

type StatusOutput struct {
	Status          string  `json:"status" jsonschema:"idle, recording or stopping"`
	SessionID       string  `json:"session_id,omitempty" jsonschema:"identifier of the active recording"`
	ElapsedSeconds  float64 `json:"elapsed_seconds,omitempty" jsonschema:"time since recording started"`
	Chunks          int     `json:"chunks,omitempty" jsonschema:"chunks sent for transcription so far"`
	Pending         int     `json:"pending,omitempty" jsonschema:"chunks still being transcribed"`
	BufferedSeconds float64 `json:"buffered_seconds,omitempty" jsonschema:"audio captured but not yet sent for transcription"`
}

type TranscriptOutput struct {
	SessionID       string  `json:"session_id"`
	Text            string  `json:"text" jsonschema:"the reconciled transcript"`
	Chunks          int     `json:"chunks" jsonschema:"chunks transcribed while recording"`
	Failed          int     `json:"failed,omitempty" jsonschema:"chunks that could not be transcribed"`
	TimedOut        bool    `json:"timed_out,omitempty" jsonschema:"true if some chunks were still running when the transcript was built"`
	DurationSeconds float64 `json:"duration_seconds" jsonschema:"length of the recording"`
}

type ModelsOutput struct {
	Default    string   `json:"default"`
	Downloaded []string `json:"downloaded"`
	Available  []string `json:"available"`
}

func statusOutput(info dictation.Info) StatusOutput {
	return StatusOutput{
		Status:          info.Status.String(),
		SessionID:       info.SessionID,
		ElapsedSeconds:  info.Elapsed.Seconds(),
		Chunks:          info.Chunks,
		Pending:         info.Pending,
		BufferedSeconds: info.Buffered.Seconds(),
	}
}

func (s *Server) handleStart(ctx context.Context, req *sdk.CallToolRequest, _ NoArgs) (*sdk.CallToolResult, StatusOutput, error) {
	if err := s.session.Start(); err != nil {
		return nil, StatusOutput{}, fmt.Errorf("failed to start dictation: %w", err)
	}
	info := s.session.Info()
	s.logger.Info().Str("session", info.SessionID).Msg("recording started by client")
	return nil, statusOutput(info), nil
}

func (s *Server) handleStop(ctx context.Context, req *sdk.CallToolRequest, _ NoArgs) (*sdk.CallToolResult, TranscriptOutput, error) {
	t, err := s.session.Stop(ctx)
	if err != nil {
		return nil, TranscriptOutput{}, fmt.Errorf("failed to stop dictation: %w", err)
	}
	return nil, TranscriptOutput{
		SessionID:       t.SessionID,
		Text:            t.Text,
		Chunks:          t.Chunks,
		Failed:          t.Failed,
		TimedOut:        t.TimedOut,
		DurationSeconds: t.Duration.Seconds(),
	}, nil
}

func (s *Server) handleCancel(ctx context.Context, req *sdk.CallToolRequest, _ NoArgs) (*sdk.CallToolResult, StatusOutput, error) {
	if err := s.session.Cancel(); err != nil {
		return nil, StatusOutput{}, fmt.Errorf("failed to cancel dictation: %w", err)
	}
	return nil, statusOutput(s.session.Info()), nil
}

func (s *Server) handleStatus(ctx context.Context, req *sdk.CallToolRequest, _ NoArgs) (*sdk.CallToolResult, StatusOutput, error) {
	return nil, statusOutput(s.session.Info()), nil
}

func (s *Server) handleListModels(ctx context.Context, req *sdk.CallToolRequest, _ NoArgs) (*sdk.CallToolResult, ModelsOutput, error) {
	downloaded, err := s.store.Downloaded()
	if err != nil {
		return nil, ModelsOutput{}, fmt.Errorf("failed to list models: %w", err)
	}
	def, err := s.store.DefaultModel()
	if err != nil {
		return nil, ModelsOutput{}, fmt.Errorf("failed to read default model: %w", err)
	}

	out := ModelsOutput{Default: def, Downloaded: downloaded, Available: make([]string, 0, len(s.store.Catalog))}
	for _, m := range s.store.Catalog {
		out.Available = append(out.Available, m.Name)
	}
	return nil, out, nil
}
