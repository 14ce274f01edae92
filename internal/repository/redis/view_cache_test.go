package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arklim/social-platform-liveqa/internal/core/domain"
	"github.com/arklim/social-platform-liveqa/internal/repository"
)

func TestViewCacheRepository_RoundTrip(t *testing.T) {
	client, server := newTestRedis(t)
	cache := NewViewCacheRepository(client, "questions:latest")
	ctx := context.Background()

	items := []domain.Question{
		{ID: "q2", Text: "second", Likes: 3, CreatedAt: 2000},
		{ID: "q1", Text: "first", Likes: 0, CreatedAt: 1000},
	}

	if err := cache.SetLatest(ctx, items, 30*time.Second); err != nil {
		t.Fatalf("SetLatest returned error: %v", err)
	}

	got, err := cache.GetLatest(ctx)
	if err != nil {
		t.Fatalf("GetLatest returned error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "q2" || got[1].Likes != 0 {
		t.Fatalf("unexpected cached view: %+v", got)
	}

	remaining := server.TTL("questions:latest")
	if remaining <= 0 || remaining > 30*time.Second {
		t.Fatalf("expected ttl within (0, 30s], got %v", remaining)
	}
}

func TestViewCacheRepository_MissReturnsNotFound(t *testing.T) {
	client, _ := newTestRedis(t)
	cache := NewViewCacheRepository(client, "questions:latest")

	_, err := cache.GetLatest(context.Background())
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestViewCacheRepository_Invalidate(t *testing.T) {
	client, _ := newTestRedis(t)
	cache := NewViewCacheRepository(client, "questions:latest")
	ctx := context.Background()

	if err := cache.SetLatest(ctx, []domain.Question{{ID: "q1"}}, time.Minute); err != nil {
		t.Fatalf("SetLatest returned error: %v", err)
	}
	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate returned error: %v", err)
	}

	if _, err := cache.GetLatest(ctx); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after invalidation, got %v", err)
	}
}

func TestViewCacheRepository_SetLatestRequiresTTL(t *testing.T) {
	client, _ := newTestRedis(t)
	cache := NewViewCacheRepository(client, "questions:latest")

	if err := cache.SetLatest(context.Background(), nil, 0); err == nil {
		t.Fatalf("expected error for non-positive ttl")
	}
}
