// Package handlers implements the REST chat surface.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"ashserver/internal/domain"
	"ashserver/internal/infra"
	"ashserver/internal/middleware"
	"ashserver/internal/videogen"
)

// ChatLedger is the slice of the conversation store the handlers use.
type ChatLedger interface {
	Create(ctx context.Context, userID, kind, seedText string) (string, error)
	AppendTurns(ctx context.Context, chatID, userID string, turns ...domain.Turn) error
	Get(ctx context.Context, chatID, userID string) (*domain.Chat, error)
	List(ctx context.Context, userID, kind string) ([]domain.ChatSummary, error)
}

// StoryGenerator produces text from a single request. Both the RAG story
// generator and the multi-step story client satisfy it.
type StoryGenerator interface {
	Generate(ctx context.Context, query string) (string, error)
}

// Chatter answers a question in a running conversation.
type Chatter interface {
	Chat(ctx context.Context, question string) (string, error)
}

// VideoRunner renders a story end to end for one conversation.
type VideoRunner interface {
	Generate(ctx context.Context, backend videogen.Backend, chatID, userID, prompt, story string) (string, error)
}

// PDFRenderer turns story text into a document.
type PDFRenderer interface {
	Render(text string) ([]byte, error)
}

// App carries the wired dependencies for all handlers.
type App struct {
	Logger *infra.Logger
	Chats  ChatLedger

	Video         VideoRunner
	StaticBackend videogen.Backend
	FluidBackend  videogen.Backend

	RAGStory   StoryGenerator
	Story      StoryGenerator
	HistoryBot Chatter

	PDF PDFRenderer
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, errorBody{Error: kind, Message: message})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}
