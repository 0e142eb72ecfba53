package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"ashserver/internal/domain"
	"ashserver/internal/infra"
	"ashserver/internal/middleware"
	"ashserver/internal/videogen"
)

const testChatID = "f47ac10b-58cc-4372-a567-0e02b2c3d479"

type fakeLedger struct {
	chats    map[string]*domain.Chat
	appended map[string][]domain.Turn
	created  []string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		chats:    make(map[string]*domain.Chat),
		appended: make(map[string][]domain.Turn),
	}
}

func (f *fakeLedger) Create(_ context.Context, userID, kind, seedText string) (string, error) {
	f.created = append(f.created, kind)
	f.chats[testChatID] = &domain.Chat{
		ID:      testChatID,
		UserID:  userID,
		Kind:    kind,
		History: []domain.Turn{domain.NewTurn(domain.RoleUser, seedText)},
	}
	return testChatID, nil
}

func (f *fakeLedger) AppendTurns(_ context.Context, chatID, userID string, turns ...domain.Turn) error {
	chat, ok := f.chats[chatID]
	if !ok || chat.UserID != userID {
		return domain.ErrNotFound
	}
	chat.History = append(chat.History, turns...)
	f.appended[chatID] = append(f.appended[chatID], turns...)
	return nil
}

func (f *fakeLedger) Get(_ context.Context, chatID, userID string) (*domain.Chat, error) {
	chat, ok := f.chats[chatID]
	if !ok || chat.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return chat, nil
}

func (f *fakeLedger) List(_ context.Context, userID, kind string) ([]domain.ChatSummary, error) {
	var out []domain.ChatSummary
	for _, chat := range f.chats {
		if chat.UserID != userID {
			continue
		}
		if kind != "" && chat.Kind != kind {
			continue
		}
		out = append(out, domain.ChatSummary{ID: chat.ID, Kind: chat.Kind})
	}
	if out == nil {
		out = []domain.ChatSummary{}
	}
	return out, nil
}

type stubGenerator struct {
	out string
	err error
	in  []string
}

func (s *stubGenerator) Generate(_ context.Context, query string) (string, error) {
	s.in = append(s.in, query)
	return s.out, s.err
}

type stubChatter struct {
	out string
	err error
}

func (s *stubChatter) Chat(context.Context, string) (string, error) { return s.out, s.err }

type stubVideo struct {
	err     error
	backend videogen.Backend
	prompt  string
	story   string
	ledger  *fakeLedger
}

func (s *stubVideo) Generate(ctx context.Context, backend videogen.Backend, chatID, userID, prompt, story string) (string, error) {
	s.backend, s.prompt, s.story = backend, prompt, story
	if s.err != nil {
		return "", s.err
	}
	snippet := "<video-snippet>"
	if s.ledger != nil {
		if err := s.ledger.AppendTurns(ctx, chatID, userID, domain.NewTurn(domain.RoleModel, snippet)); err != nil {
			return "", err
		}
	}
	return snippet, nil
}

type stubPDF struct {
	out []byte
	err error
}

func (s stubPDF) Render(string) ([]byte, error) { return s.out, s.err }

type fixedBackend struct{ label string }

func (b fixedBackend) Label() string                                  { return b.label }
func (b fixedBackend) PollInterval() time.Duration                    { return 0 }
func (b fixedBackend) Submit(context.Context, string) (string, error) { return "", nil }
func (b fixedBackend) Poll(context.Context, string) (videogen.Outcome, error) {
	return videogen.Pending(), nil
}

func testApp(ledger *fakeLedger) *App {
	logger := infra.Logger(zerolog.New(io.Discard))
	return &App{
		Logger:        &logger,
		Chats:         ledger,
		StaticBackend: fixedBackend{label: domain.KindVideoStatic},
		FluidBackend:  fixedBackend{label: domain.KindVideoFluid},
		RAGStory:      &stubGenerator{out: "rag story"},
		Story:         &stubGenerator{out: "full story"},
		HistoryBot:    &stubChatter{out: "history answer"},
		PDF:           stubPDF{out: []byte("%PDF-1.7 fake")},
	}
}

func testRouter(app *App, userID string) http.Handler {
	r := chi.NewRouter()
	if userID != "" {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(middleware.ContextWithUserID(req.Context(), userID)))
			})
		})
	}
	r.Post("/api/chats", app.ChatsCreate)
	r.Get("/api/userchats", app.UserChats)
	r.Get("/api/chats/{id}", app.ChatByID)
	r.Post("/api/chats/{id}/message", app.ChatMessage)
	r.Get("/api/chats/{id}/pdf", app.ChatPDF)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestChatsCreateTextKind(t *testing.T) {
	ledger := newFakeLedger()
	app := testApp(ledger)
	router := testRouter(app, "user-1")

	rec := doJSON(t, router, http.MethodPost, "/api/chats",
		map[string]string{"type": domain.KindStory, "text": "a lighthouse keeper"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var chatID string
	if err := json.Unmarshal(rec.Body.Bytes(), &chatID); err != nil || chatID != testChatID {
		t.Fatalf("body = %s", rec.Body.String())
	}
	turns := ledger.appended[testChatID]
	if len(turns) != 1 || turns[0].Role != domain.RoleModel || turns[0].Text() != "full story" {
		t.Fatalf("appended turns = %+v", turns)
	}
}

func TestChatsCreateValidation(t *testing.T) {
	app := testApp(newFakeLedger())
	router := testRouter(app, "user-1")

	rec := doJSON(t, router, http.MethodPost, "/api/chats", map[string]string{"type": "Nonsense", "text": "x"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown kind status = %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodPost, "/api/chats", map[string]string{"type": domain.KindStory, "text": "  "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty text status = %d", rec.Code)
	}
	rec = doJSON(t, testRouter(app, ""), http.MethodPost, "/api/chats", map[string]string{"type": domain.KindStory, "text": "x"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d", rec.Code)
	}
}

func TestChatsCreateFluidVideoSendsRawPrompt(t *testing.T) {
	ledger := newFakeLedger()
	app := testApp(ledger)
	video := &stubVideo{ledger: ledger}
	app.Video = video
	router := testRouter(app, "user-1")

	rec := doJSON(t, router, http.MethodPost, "/api/chats",
		map[string]string{"type": domain.KindVideoFluid, "text": "a calm river"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if video.backend.Label() != domain.KindVideoFluid {
		t.Fatalf("backend = %q", video.backend.Label())
	}
	if video.prompt != "a calm river" || video.story != "a calm river" {
		t.Fatalf("prompt/story = %q/%q", video.prompt, video.story)
	}
}

func TestChatsCreateStaticVideoRendersGeneratedStory(t *testing.T) {
	ledger := newFakeLedger()
	app := testApp(ledger)
	rag := &stubGenerator{out: "generated urdu story"}
	app.RAGStory = rag
	video := &stubVideo{ledger: ledger}
	app.Video = video
	router := testRouter(app, "user-1")

	rec := doJSON(t, router, http.MethodPost, "/api/chats",
		map[string]string{"type": domain.KindVideoStatic, "text": "a fox"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(rag.in) != 1 || rag.in[0] != "a fox" {
		t.Fatalf("rag queries = %v", rag.in)
	}
	if video.prompt != "a fox" || video.story != "generated urdu story" {
		t.Fatalf("prompt/story = %q/%q", video.prompt, video.story)
	}
}

func TestChatsCreateVideoErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrConversationBusy, http.StatusConflict},
		{domain.ErrTimedOut, http.StatusGatewayTimeout},
		{domain.ErrProviderFailure, http.StatusBadGateway},
	}
	for _, tc := range cases {
		ledger := newFakeLedger()
		app := testApp(ledger)
		app.Video = &stubVideo{err: tc.err}
		router := testRouter(app, "user-1")

		rec := doJSON(t, router, http.MethodPost, "/api/chats",
			map[string]string{"type": domain.KindVideoFluid, "text": "x"})
		if rec.Code != tc.want {
			t.Fatalf("err %v: status = %d, want %d", tc.err, rec.Code, tc.want)
		}
		// The seed turn survives the failure.
		if ledger.chats[testChatID] == nil || len(ledger.chats[testChatID].History) != 1 {
			t.Fatalf("err %v: seed turn missing", tc.err)
		}
	}
}

func TestUserChatsFiltersByType(t *testing.T) {
	ledger := newFakeLedger()
	app := testApp(ledger)
	router := testRouter(app, "user-1")

	if _, err := ledger.Create(context.Background(), "user-1", domain.KindStory, "seed"); err != nil {
		t.Fatalf("seed chat: %v", err)
	}

	rec := doJSON(t, router, http.MethodGet, "/api/userchats?type=Story+Generation", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got []domain.ChatSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].Kind != domain.KindStory {
		t.Fatalf("summaries = %+v", got)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/userchats?type=History+ChatBot", nil)
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Fatalf("filtered body = %s", body)
	}
}

func TestChatByID(t *testing.T) {
	ledger := newFakeLedger()
	app := testApp(ledger)
	router := testRouter(app, "user-1")

	rec := doJSON(t, router, http.MethodGet, "/api/chats/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid id status = %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodGet, "/api/chats/"+testChatID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing chat status = %d", rec.Code)
	}

	if _, err := ledger.Create(context.Background(), "user-1", domain.KindStory, "seed"); err != nil {
		t.Fatalf("seed chat: %v", err)
	}
	rec = doJSON(t, router, http.MethodGet, "/api/chats/"+testChatID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var chat domain.Chat
	if err := json.Unmarshal(rec.Body.Bytes(), &chat); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if chat.ID != testChatID || len(chat.History) != 1 {
		t.Fatalf("chat = %+v", chat)
	}

	// Another user cannot read it.
	rec = doJSON(t, testRouter(app, "user-2"), http.MethodGet, "/api/chats/"+testChatID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign chat status = %d", rec.Code)
	}
}

func TestChatMessageAppendsBothTurns(t *testing.T) {
	ledger := newFakeLedger()
	app := testApp(ledger)
	app.HistoryBot = &stubChatter{out: "تاریخی جواب"}
	router := testRouter(app, "user-1")

	if _, err := ledger.Create(context.Background(), "user-1", domain.KindHistoryChatBot, "seed"); err != nil {
		t.Fatalf("seed chat: %v", err)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/chats/"+testChatID+"/message",
		map[string]string{"question": "next question"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp messageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Answer != "تاریخی جواب" {
		t.Fatalf("answer = %q", resp.Answer)
	}
	turns := ledger.appended[testChatID]
	if len(turns) != 2 || turns[0].Role != domain.RoleUser || turns[1].Role != domain.RoleModel {
		t.Fatalf("appended = %+v", turns)
	}
}

func TestChatMessageRequiresQuestion(t *testing.T) {
	ledger := newFakeLedger()
	app := testApp(ledger)
	router := testRouter(app, "user-1")
	if _, err := ledger.Create(context.Background(), "user-1", domain.KindStory, "seed"); err != nil {
		t.Fatalf("seed chat: %v", err)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/chats/"+testChatID+"/message", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestChatPDF(t *testing.T) {
	ledger := newFakeLedger()
	app := testApp(ledger)
	router := testRouter(app, "user-1")

	if _, err := ledger.Create(context.Background(), "user-1", domain.KindRAGStory, "seed"); err != nil {
		t.Fatalf("seed chat: %v", err)
	}

	// No model turn yet.
	rec := doJSON(t, router, http.MethodGet, "/api/chats/"+testChatID+"/pdf", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("no content status = %d", rec.Code)
	}

	if err := ledger.AppendTurns(context.Background(), testChatID, "user-1", domain.NewTurn(domain.RoleModel, "story text")); err != nil {
		t.Fatalf("append: %v", err)
	}
	rec = doJSON(t, router, http.MethodGet, "/api/chats/"+testChatID+"/pdf", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type = %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")) {
		t.Fatalf("body = %q", rec.Body.String())
	}
}
