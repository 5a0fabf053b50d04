package configwatcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
	"trivia_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	write := func(rule string) {
		body := fmt.Sprintf("storage:\n  local_path: %s\nachievements:\n  perfect_rule: %s\n", filepath.Join(dir, "uploads"), rule)
		require.NoError(t, os.WriteFile(file, []byte(body), 0o644))
	}
	write("any")

	ctx, cancel := context.WithCancel(context.Background())
	reloaded := make(chan *config.Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, file, func(cfg *config.Config) { reloaded <- cfg })
	}()

	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)
	write("ten")

	select {
	case cfg := <-reloaded:
		assert.Equal(t, "ten", cfg.Achievements.PerfectRule)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatchSkipsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("achievements:\n  perfect_rule: any\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reloaded := make(chan *config.Config, 1)
	go Watch(ctx, file, func(cfg *config.Config) { reloaded <- cfg })

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(file, []byte("achievements:\n  perfect_rule: sometimes\n"), 0o644))

	select {
	case <-reloaded:
		t.Fatal("invalid config must not be applied")
	case <-time.After(2 * time.Second):
	}
}
