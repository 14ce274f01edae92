package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arklim/social-platform-liveqa/internal/core/domain"
	"github.com/arklim/social-platform-liveqa/internal/repository"
)

func TestSessionRepository_SaveAndGet(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewSessionRepository(client)
	ctx := context.Background()

	session := domain.Session{
		UserID:    "u1",
		Email:     "person@example.com",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}

	if err := repo.Save(ctx, "sid-1", session, time.Hour); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	got, err := repo.Get(ctx, "sid-1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.UserID != session.UserID || got.Email != session.Email {
		t.Fatalf("unexpected session: %+v", got)
	}

	remaining := server.TTL("session:sid-1")
	if remaining <= 0 || remaining > time.Hour {
		t.Fatalf("expected ttl within (0, 1h], got %v", remaining)
	}
}

func TestSessionRepository_GetMiss(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewSessionRepository(client)

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionRepository_Delete(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewSessionRepository(client)
	ctx := context.Background()

	if err := repo.Save(ctx, "sid-1", domain.Session{UserID: "u1"}, time.Hour); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if err := repo.Delete(ctx, "sid-1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := repo.Get(ctx, "sid-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestSessionRepository_SaveValidation(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewSessionRepository(client)
	ctx := context.Background()

	if err := repo.Save(ctx, "", domain.Session{}, time.Hour); err == nil {
		t.Fatalf("expected error for empty sid")
	}
	if err := repo.Save(ctx, "sid", domain.Session{}, 0); err == nil {
		t.Fatalf("expected error for non-positive ttl")
	}
}
