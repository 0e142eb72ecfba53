package handlers

import (
	"errors"
	"net/http"

	"ashserver/internal/domain"
)

// ChatPDF exports the latest model turn of a conversation as a PDF. A
// conversation without any model turn yields 204.
func (a *App) ChatPDF(w http.ResponseWriter, r *http.Request) {
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
		a.Logger.Error().Err(err).Str("chat_id", chatID).Msg("handlers: load chat for pdf")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load chat")
		return
	}

	story := chat.LastModelText()
	if story == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	pdfBytes, err := a.PDF.Render(story)
	if err != nil {
		a.Logger.Error().Err(err).Str("chat_id", chatID).Msg("handlers: render pdf")
		a.error(w, http.StatusInternalServerError, "internal", "failed to render pdf")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename=Story.pdf`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdfBytes)
}
