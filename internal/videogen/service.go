package videogen

import (
	"context"
	"fmt"
	"strings"

	"ashserver/internal/domain"
	"ashserver/internal/infra"
)

// Ledger is the slice of the conversation store the video pipeline needs.
type Ledger interface {
	AppendTurns(ctx context.Context, chatID, userID string, turns ...domain.Turn) error
	RecordVideoMetadata(ctx context.Context, chatID, userID, prompt, videoPath string) error
}

// ArtifactWriter persists finished renders and returns their public URL path.
type ArtifactWriter interface {
	WriteVideo(ctx context.Context, pipelineLabel, chatID string, data []byte) (string, error)
}

// ServiceOptions configures the video orchestration service.
type ServiceOptions struct {
	Ledger        Ledger
	Artifacts     ArtifactWriter
	Poller        *Poller
	Flight        *Flight
	PublicBaseURL string
	Logger        *infra.Logger
}

// Service runs a render end to end for one conversation turn: poll the
// backend, persist the artifact, record its metadata, then append the model
// turn that embeds it. The artifact is on disk before the turn that links to
// it exists, so readers never follow a dangling reference.
type Service struct {
	ledger        Ledger
	artifacts     ArtifactWriter
	poller        *Poller
	flight        *Flight
	publicBaseURL string
	logger        *infra.Logger
}

// NewService wires the orchestration service.
func NewService(opts ServiceOptions) *Service {
	return &Service{
		ledger:        opts.Ledger,
		artifacts:     opts.Artifacts,
		poller:        opts.Poller,
		flight:        opts.Flight,
		publicBaseURL: strings.TrimRight(opts.PublicBaseURL, "/"),
		logger:        opts.Logger,
	}
}

// Generate renders the story on the given backend for one conversation and
// returns the HTML snippet appended as the model turn. prompt is the user's
// original request and is what metadata records; story is the text the
// renderer consumes. Concurrent calls for the same conversation are rejected
// with domain.ErrConversationBusy.
func (s *Service) Generate(ctx context.Context, backend Backend, chatID, userID, prompt, story string) (string, error) {
	if err := s.flight.Acquire(chatID); err != nil {
		return "", err
	}
	defer s.flight.Release(chatID)

	video, err := s.poller.Run(ctx, backend, story)
	if err != nil {
		return "", err
	}

	urlPath, err := s.artifacts.WriteVideo(ctx, backend.Label(), chatID, video)
	if err != nil {
		return "", fmt.Errorf("videogen: persist artifact: %w", err)
	}
	if err := s.ledger.RecordVideoMetadata(ctx, chatID, userID, prompt, urlPath); err != nil {
		return "", err
	}

	snippet := videoEmbed(s.publicBaseURL + urlPath)
	if err := s.ledger.AppendTurns(ctx, chatID, userID, domain.NewTurn(domain.RoleModel, snippet)); err != nil {
		return "", err
	}
	s.logger.Info().
		Str("pipeline", backend.Label()).
		Str("chat_id", chatID).
		Str("artifact", urlPath).
		Msg("videogen: render recorded")
	return snippet, nil
}

// videoEmbed renders the player markup the web client displays inline.
func videoEmbed(src string) string {
	return "<div style='display:flex; justify-content:center; margin: 20px 0;'>" +
		"<video width='720' height='405' controls style='border-radius:12px;'>" +
		"<source src='" + src + "' type='video/mp4'>" +
		"Your browser does not support the video tag." +
		"</video></div>"
}
