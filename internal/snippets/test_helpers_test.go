package snippets

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/snipstash/backend/internal/embedding"
	"gorm.io/gorm"
)

// scriptedEmbedder returns canned vectors keyed by exact input text and
// can be flipped into a failing state mid-test.
type scriptedEmbedder struct {
	vectors map[string]embedding.Vector
	fail    bool
	calls   int
}

func (e *scriptedEmbedder) Embed(_ context.Context, text string) (embedding.Vector, error) {
	e.calls++
	if e.fail {
		return nil, fmt.Errorf("%w: scripted failure", embedding.ErrUnavailable)
	}
	if vector, ok := e.vectors[text]; ok {
		return vector, nil
	}
	return embedding.Vector{1, 0, 0}, nil
}

// staticMemberships answers membership checks from a fixed allow list.
type staticMemberships struct {
	members map[string]bool
}

func membershipKey(userID, teamID int64) string {
	return fmt.Sprintf("%d:%d", userID, teamID)
}

func (m *staticMemberships) IsMember(_ context.Context, userID, teamID int64) (bool, error) {
	return m.members[membershipKey(userID, teamID)], nil
}

type staticIDGenerator struct {
	next int
}

func (g *staticIDGenerator) NewID() (string, error) {
	g.next++
	return fmt.Sprintf("activity-%d", g.next), nil
}

func newTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:snippets-%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&Snippet{}, &ActivityRecord{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return db
}

func newTestService(t *testing.T, embedder EmbeddingGenerator, memberships MembershipChecker) (*Service, *gorm.DB) {
	t.Helper()
	db := newTestDatabase(t)
	if memberships == nil {
		memberships = &staticMemberships{members: map[string]bool{}}
	}
	service, err := NewService(ServiceConfig{
		Database:           db,
		Embedder:           embedder,
		Memberships:        memberships,
		Clock:              func() time.Time { return time.Unix(1760000000, 0).UTC() },
		IDProvider:         &staticIDGenerator{},
		DefaultSearchLimit: 10,
	})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return service, db
}

func mustCreate(t *testing.T, service *Service, userID int64, payload CreatePayload) Snippet {
	t.Helper()
	record, err := service.Create(context.Background(), userID, payload)
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	return record
}

func validCreatePayload() CreatePayload {
	return CreatePayload{
		Title:      "Fib",
		Code:       "def fib(n): ...",
		Language:   "python",
		Tags:       []string{"math"},
		Visibility: VisibilityPrivate,
	}
}

func assertNotFound(t *testing.T, err error) {
	t.Helper()
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
