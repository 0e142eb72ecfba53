package domain

import "time"

// Chat kinds select the generation backend for a conversation. The labels
// are part of the client contract and are matched exactly, case-sensitive.
const (
	KindHistoryChatBot = "History ChatBot"
	KindRAGStory       = "RAG Story Generation"
	KindStory          = "Story Generation"
	KindVideoStatic    = "Video Generation (Static)"
	KindVideoFluid     = "Video Generation (Fluid)"
)

// Turn roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Part is one text fragment of a turn.
type Part struct {
	Text string `json:"text"`
}

// Turn is one immutable entry in a chat history, attributed to the user or
// the model.
type Turn struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// NewTurn builds a single-part turn.
func NewTurn(role, text string) Turn {
	return Turn{Role: role, Parts: []Part{{Text: text}}}
}

// Text concatenates the turn's parts.
func (t Turn) Text() string {
	var out string
	for _, p := range t.Parts {
		out += p.Text
	}
	return out
}

// Chat is a persisted, owned conversation. History is append-only; past
// turns are never rewritten.
type Chat struct {
	ID        string    `json:"_id"`
	UserID    string    `json:"userId"`
	Kind      string    `json:"type"`
	History   []Turn    `json:"history"`
	CreatedAt time.Time `json:"createdAt"`
}

// LastModelText returns the concatenated text of the most recent model turn,
// or an empty string when the model has not answered yet.
func (c *Chat) LastModelText() string {
	for i := len(c.History) - 1; i >= 0; i-- {
		if c.History[i].Role == RoleModel {
			return c.History[i].Text()
		}
	}
	return ""
}

// ChatSummary is the denormalized per-user index entry used for listing.
type ChatSummary struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Kind      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}

// SummaryTitle derives the index title from the seeding message.
func SummaryTitle(seedText string) string {
	runes := []rune(seedText)
	if len(runes) > 40 {
		runes = runes[:40]
	}
	return string(runes)
}

// IsVideoKind reports whether the kind is driven by the asynchronous video
// pipelines rather than a direct text-generation call.
func IsVideoKind(kind string) bool {
	return kind == KindVideoStatic || kind == KindVideoFluid
}

// KnownKind reports whether the kind maps to a configured backend.
func KnownKind(kind string) bool {
	switch kind {
	case KindHistoryChatBot, KindRAGStory, KindStory, KindVideoStatic, KindVideoFluid:
		return true
	}
	return false
}
