package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-match-backend/internal/domain"
	"github.com/tbourn/go-match-backend/internal/repo"
)

// ---------- test helpers ----------

func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func f64(v float64) *float64 { return &v }

// seedProfile inserts a minimal active profile with id.
func seedProfile(t *testing.T, db *gorm.DB, id string, mutate ...func(*domain.Profile)) *domain.Profile {
	t.Helper()
	now := time.Now().UTC()
	p := &domain.Profile{
		ID:           id,
		DisplayName:  "User " + id,
		Age:          30,
		LastActiveAt: &now,
	}
	for _, m := range mutate {
		m(p)
	}
	if err := repo.UpsertProfile(context.Background(), db, p); err != nil {
		t.Fatalf("seed profile %s: %v", id, err)
	}
	return p
}

// ---------- fakes ----------

type admins map[string]bool

func (a admins) IsAdmin(id string) bool { return a[id] }

type fakeCounter struct {
	mu     sync.Mutex
	vals   map[string]int64
	incrs  []string
	getErr error
	setErr error
}

func newFakeCounter() *fakeCounter { return &fakeCounter{vals: map[string]int64{}} }

func (f *fakeCounter) GetLikeCount(_ context.Context, id string) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return 0, false, f.getErr
	}
	v, ok := f.vals[id]
	return v, ok, nil
}

func (f *fakeCounter) SetLikeCount(_ context.Context, id string, n int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.vals[id] = n
	return nil
}

func (f *fakeCounter) IncrLikeCount(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.incrs = append(f.incrs, id)
	if v, ok := f.vals[id]; ok {
		f.vals[id] = v + 1
	}
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	matches  []*domain.Match
	messages []*domain.Message
	err      error
}

func (f *fakeNotifier) MatchCreated(_ context.Context, m *domain.Match, _ *domain.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.matches = append(f.matches, m)
	return f.err
}

func (f *fakeNotifier) MessageCreated(_ context.Context, m *domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, m)
	return f.err
}

// repoShim adapts the repo free functions to ConversationRepo.
type repoShim struct{}

func (repoShim) GetConversationWithMatch(ctx context.Context, db *gorm.DB, id string) (*domain.Conversation, error) {
	return repo.GetConversationWithMatch(ctx, db, id)
}

func (repoShim) ListConversationsFor(ctx context.Context, db *gorm.DB, userID string) ([]domain.Conversation, error) {
	return repo.ListConversationsFor(ctx, db, userID)
}

// matchPair likes in both directions and returns the resulting conversation.
func matchPair(t *testing.T, db *gorm.DB, x, y string) *domain.Conversation {
	t.Helper()
	svc := NewMatchService(db, nil)
	ctx := context.Background()
	if _, err := svc.LikeUser(ctx, x, y); err != nil {
		t.Fatalf("like %s->%s: %v", x, y, err)
	}
	res, err := svc.LikeUser(ctx, y, x)
	if err != nil || !res.Matched {
		t.Fatalf("like %s->%s: res=%+v err=%v", y, x, res, err)
	}
	return res.Conversation
}
