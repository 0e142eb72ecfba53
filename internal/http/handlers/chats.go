package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"ashserver/internal/domain"
)

type chatCreateRequest struct {
	Kind string `json:"type"`
	Text string `json:"text"`
}

type messageRequest struct {
	Question string `json:"question"`
}

type messageResponse struct {
	Answer string `json:"answer"`
}

// ChatsCreate starts a new conversation. Text kinds answer inline; video
// kinds run the render pipeline to completion before responding. The seed
// turn is persisted before any generation starts, so a failed generation
// still leaves a conversation the user can retry in.
func (a *App) ChatsCreate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req chatCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "text is required")
		return
	}
	if !domain.KnownKind(req.Kind) {
		a.error(w, http.StatusBadRequest, "bad_request", "unsupported chat type")
		return
	}

	chatID, err := a.Chats.Create(r.Context(), userID, req.Kind, req.Text)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: create chat")
		a.error(w, http.StatusInternalServerError, "internal", "failed to create chat")
		return
	}

	switch req.Kind {
	case domain.KindVideoStatic:
		// The static pipeline renders a generated story, not the raw prompt.
		story, err := a.RAGStory.Generate(r.Context(), req.Text)
		if err != nil {
			a.generationError(w, chatID, err)
			return
		}
		if _, err := a.Video.Generate(r.Context(), a.StaticBackend, chatID, userID, req.Text, story); err != nil {
			a.generationError(w, chatID, err)
			return
		}
	case domain.KindVideoFluid:
		if _, err := a.Video.Generate(r.Context(), a.FluidBackend, chatID, userID, req.Text, req.Text); err != nil {
			a.generationError(w, chatID, err)
			return
		}
	default:
		answer, err := a.answerFor(r.Context(), req.Kind, req.Text)
		if err != nil {
			a.generationError(w, chatID, err)
			return
		}
		if err := a.Chats.AppendTurns(r.Context(), chatID, userID, domain.NewTurn(domain.RoleModel, answer)); err != nil {
			a.Logger.Error().Err(err).Str("chat_id", chatID).Msg("handlers: append answer")
			a.error(w, http.StatusInternalServerError, "internal", "failed to record answer")
			return
		}
	}

	a.json(w, http.StatusCreated, chatID)
}

// UserChats lists the caller's conversations, optionally filtered by kind.
func (a *App) UserChats(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	chats, err := a.Chats.List(r.Context(), userID, r.URL.Query().Get("type"))
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: list chats")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list chats")
		return
	}
	a.json(w, http.StatusOK, chats)
}

// ChatByID returns one conversation with its full history.
func (a *App) ChatByID(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	chatID, ok := a.chatIDParam(w, r)
	if !ok {
		return
	}
	chat, err := a.Chats.Get(r.Context(), chatID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "chat not found")
			return
		}
		a.Logger.Error().Err(err).Str("chat_id", chatID).Msg("handlers: load chat")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load chat")
		return
	}
	a.json(w, http.StatusOK, chat)
}

// ChatMessage answers a follow-up question in an existing conversation and
// appends both turns to its history.
func (a *App) ChatMessage(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	chatID, ok := a.chatIDParam(w, r)
	if !ok {
		return
	}
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "question is required")
		return
	}

	chat, err := a.Chats.Get(r.Context(), chatID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "chat not found")
			return
		}
		a.Logger.Error().Err(err).Str("chat_id", chatID).Msg("handlers: load chat")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load chat")
		return
	}

	answer, err := a.answerFor(r.Context(), chat.Kind, req.Question)
	if err != nil {
		a.generationError(w, chatID, err)
		return
	}

	turns := []domain.Turn{
		domain.NewTurn(domain.RoleUser, req.Question),
		domain.NewTurn(domain.RoleModel, answer),
	}
	if err := a.Chats.AppendTurns(r.Context(), chatID, userID, turns...); err != nil {
		a.Logger.Error().Err(err).Str("chat_id", chatID).Msg("handlers: append turns")
		a.error(w, http.StatusInternalServerError, "internal", "failed to record turns")
		return
	}
	a.json(w, http.StatusOK, messageResponse{Answer: answer})
}

// answerFor routes a question to the text backend for the chat kind. Video
// kinds have no follow-up model; they echo a placeholder like the original
// client expects.
func (a *App) answerFor(ctx context.Context, kind, question string) (string, error) {
	switch kind {
	case domain.KindHistoryChatBot:
		return a.HistoryBot.Chat(ctx, question)
	case domain.KindRAGStory:
		return a.RAGStory.Generate(ctx, question)
	case domain.KindStory:
		return a.Story.Generate(ctx, question)
	default:
		return "🚧 Model not yet implemented for this type.", nil
	}
}

func (a *App) chatIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	chatID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(chatID); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid chat ID")
		return "", false
	}
	return chatID, true
}

// generationError maps backend failures onto status codes. The seed turn is
// already persisted by this point, so the client keeps the conversation.
func (a *App) generationError(w http.ResponseWriter, chatID string, err error) {
	a.Logger.Error().Err(err).Str("chat_id", chatID).Msg("handlers: generation failed")
	switch {
	case errors.Is(err, domain.ErrConversationBusy):
		a.error(w, http.StatusConflict, "conflict", "a generation is already running for this chat")
	case errors.Is(err, domain.ErrTimedOut):
		a.error(w, http.StatusGatewayTimeout, "timeout", "generation timed out")
	case errors.Is(err, domain.ErrProviderFailure):
		a.error(w, http.StatusBadGateway, "upstream", "generation failed")
	default:
		a.error(w, http.StatusInternalServerError, "internal", "generation failed")
	}
}
