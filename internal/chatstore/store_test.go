package chatstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"ashserver/internal/domain"
	"ashserver/internal/sqlinline"
)

type execCall struct {
	query string
	args  []any
}

type fakeSQL struct {
	execs    []execCall
	execTags map[string]pgconn.CommandTag
	rowFor   func(query string, args ...any) pgx.Row
}

func (f *fakeSQL) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{query: query, args: args})
	if tag, ok := f.execTags[query]; ok {
		return tag, nil
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (f *fakeSQL) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	if f.rowFor == nil {
		return scanFunc(func(...any) error { return pgx.ErrNoRows })
	}
	return f.rowFor(query, args...)
}

func (f *fakeSQL) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, fmt.Errorf("query not supported in fake")
}

type scanFunc func(dest ...any) error

func (s scanFunc) Scan(dest ...any) error { return s(dest...) }

func TestCreateSeedsChatAndIndexesSummary(t *testing.T) {
	created := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	sql := &fakeSQL{
		rowFor: func(query string, args ...any) pgx.Row {
			if query != sqlinline.QInsertChat {
				return scanFunc(func(...any) error { return fmt.Errorf("unexpected query") })
			}
			var seed []domain.Turn
			if err := json.Unmarshal(args[2].([]byte), &seed); err != nil {
				t.Fatalf("seed history not json: %v", err)
			}
			if len(seed) != 1 || seed[0].Role != domain.RoleUser || seed[0].Text() != "a calm river" {
				t.Fatalf("unexpected seed history: %+v", seed)
			}
			return scanFunc(func(dest ...any) error {
				*dest[0].(*string) = "chat-1"
				*dest[1].(*time.Time) = created
				return nil
			})
		},
	}

	store := New(sql)
	id, err := store.Create(context.Background(), "user-1", domain.KindVideoFluid, "a calm river")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id != "chat-1" {
		t.Fatalf("chat id = %q, want chat-1", id)
	}

	if len(sql.execs) != 1 || sql.execs[0].query != sqlinline.QAppendUserChat {
		t.Fatalf("expected one index append, got %+v", sql.execs)
	}
	var summaries []domain.ChatSummary
	if err := json.Unmarshal(sql.execs[0].args[1].([]byte), &summaries); err != nil {
		t.Fatalf("summary not json: %v", err)
	}
	if len(summaries) != 1 || summaries[0].ID != "chat-1" || summaries[0].Kind != domain.KindVideoFluid {
		t.Fatalf("unexpected summary: %+v", summaries)
	}
	if summaries[0].Title != "a calm river" {
		t.Fatalf("title = %q", summaries[0].Title)
	}
}

func TestAppendTurnsNotFoundLeavesStoreUnchanged(t *testing.T) {
	sql := &fakeSQL{execTags: map[string]pgconn.CommandTag{
		sqlinline.QAppendTurns: pgconn.NewCommandTag("UPDATE 0"),
	}}
	store := New(sql)

	err := store.AppendTurns(context.Background(), "chat-9", "intruder", domain.NewTurn(domain.RoleModel, "hi"))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if len(sql.execs) != 1 {
		t.Fatalf("expected exactly the guarded update, got %d calls", len(sql.execs))
	}
}

func TestAppendTurnsPreservesCallOrder(t *testing.T) {
	sql := &fakeSQL{}
	store := New(sql)

	turns := []domain.Turn{
		domain.NewTurn(domain.RoleUser, "question"),
		domain.NewTurn(domain.RoleModel, "answer"),
	}
	if err := store.AppendTurns(context.Background(), "chat-1", "user-1", turns...); err != nil {
		t.Fatalf("append: %v", err)
	}

	var sent []domain.Turn
	if err := json.Unmarshal(sql.execs[0].args[2].([]byte), &sent); err != nil {
		t.Fatalf("turns not json: %v", err)
	}
	if len(sent) != 2 || sent[0].Role != domain.RoleUser || sent[1].Role != domain.RoleModel {
		t.Fatalf("turn order not preserved: %+v", sent)
	}
}

func TestListFiltersByExactKind(t *testing.T) {
	index := []domain.ChatSummary{
		{ID: "a", Kind: domain.KindStory},
		{ID: "b", Kind: domain.KindVideoFluid},
		{ID: "c", Kind: domain.KindStory},
	}
	raw, _ := json.Marshal(index)
	sql := &fakeSQL{
		rowFor: func(query string, args ...any) pgx.Row {
			return scanFunc(func(dest ...any) error {
				*dest[0].(*[]byte) = raw
				return nil
			})
		},
	}
	store := New(sql)

	got, err := store.List(context.Background(), "user-1", domain.KindStory)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("unexpected filtered list: %+v", got)
	}

	all, err := store.List(context.Background(), "user-1", "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(all))
	}
}

func TestListWithoutIndexReturnsEmpty(t *testing.T) {
	sql := &fakeSQL{}
	store := New(sql)

	got, err := store.List(context.Background(), "user-1", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty list, got %+v", got)
	}
}
