package main

import (
	"context"
	"io"
	"os"
	"testing"
	"time"
)

func TestWatchConfig_ReloadsKeys(t *testing.T) {
	p := writeConfig(t, "api_keys: [old]\n")
	keys := NewKeyRing("old")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 16)
	done := make(chan error, 1)
	go func() {
		done <- watchConfig(ctx, p, envMap(nil), NewLogger(io.Discard), func(cfg *Config) {
			keys.Replace(cfg.APIKeys)
			select {
			case reloaded <- cfg:
			default:
			}
		})
	}()

	// The watcher registers asynchronously, so keep rewriting until an
	// event is seen.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for !keys.Verify("new") {
		select {
		case <-tick.C:
			if err := os.WriteFile(p, []byte("api_keys: [new]\n"), 0o600); err != nil {
				t.Fatalf("rewrite config: %v", err)
			}
		case <-reloaded:
		case err := <-done:
			t.Fatalf("watchConfig returned early: %v", err)
		case <-deadline:
			t.Fatal("config change not picked up")
		}
	}

	if keys.Verify("old") {
		t.Error("old key still accepted after reload")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("watchConfig: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("watchConfig did not stop after cancel")
	}
}

func TestWatchConfig_KeepsKeysOnBadReload(t *testing.T) {
	p := writeConfig(t, "api_keys: [old]\n")
	keys := NewKeyRing("old")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PORT=0 makes every reload fail validation whatever the file holds.
	env := envMap(map[string]string{"PORT": "0"})
	calls := make(chan struct{}, 1)
	go func() {
		_ = watchConfig(ctx, p, env, NewLogger(io.Discard), func(cfg *Config) {
			keys.Replace(cfg.APIKeys)
			select {
			case calls <- struct{}{}:
			default:
			}
		})
	}()

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(p, []byte("api_keys: [new]\n"), 0o600); err != nil {
			t.Fatalf("rewrite config: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
	}

	select {
	case <-calls:
		t.Error("onChange called for an invalid config")
	default:
	}
	if !keys.Verify("old") {
		t.Error("previous key dropped after failed reload")
	}
}

func TestWatchConfig_MissingFile(t *testing.T) {
	err := watchConfig(context.Background(), "/nonexistent/config.yaml", envMap(nil), NewLogger(io.Discard), func(*Config) {})
	if err == nil {
		t.Error("expected error watching a missing file")
	}
}
