package bootstrap

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/AlibekovAA/margarine/internal/common/config"
	"github.com/AlibekovAA/margarine/internal/common/logger"
	"github.com/AlibekovAA/margarine/internal/notification"
	tokenstore "github.com/AlibekovAA/margarine/internal/verification/store"
)

func TestResources_CloseInReverseOrder(t *testing.T) {
	var order []int
	res := &resources{}
	res.add(func(context.Context) error { order = append(order, 1); return nil })
	res.add(func(context.Context) error { order = append(order, 2); return errors.New("close failed") })
	res.add(func(context.Context) error { order = append(order, 3); return nil })

	err := res.Close(context.Background())
	if err == nil {
		t.Error("expected joined close error")
	}
	if len(order) != 3 || order[0] != 3 || order[2] != 1 {
		t.Errorf("unexpected close order %v", order)
	}
	if err := res.Close(context.Background()); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
}

func TestOpenTokenStore_Memory(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	log := logger.NewWithWriter(io.Discard, "test", "info")

	store, err := openTokenStore(ctx, log, "memory://", &resources{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.(*tokenstore.MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}

	if err := store.Set(ctx, "tok", "alice", time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if username, err := store.Get(ctx, "tok"); err != nil || username != "alice" {
		t.Errorf("unexpected lookup result %q, %v", username, err)
	}
}

func TestOpenStores_UnsupportedScheme(t *testing.T) {
	log := logger.NewWithWriter(io.Discard, "test", "info")

	if _, err := openTokenStore(context.Background(), log, "memcached://localhost", &resources{}); err == nil {
		t.Error("expected error for unsupported token store")
	}
	if _, err := openAccountStore(context.Background(), log, "mysql://localhost/db", &resources{}); err == nil {
		t.Error("expected error for unsupported datastore")
	}
}

func TestNewNotifier_FallsBackToLog(t *testing.T) {
	log := logger.NewWithWriter(io.Discard, "test", "info")
	cfg := config.WorkerConfig{VerificationURL: "http://localhost/verify/{{.Token}}"}

	n, err := newNotifier(cfg, log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := n.(*notification.LogNotifier); !ok {
		t.Errorf("expected log notifier, got %T", n)
	}

	cfg.SMTP = config.SMTPConfig{Host: "smtp.example.com", Port: 587, From: "no-reply@example.com"}
	n, err = newNotifier(cfg, log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := n.(*notification.SMTPNotifier); !ok {
		t.Errorf("expected smtp notifier, got %T", n)
	}
}
