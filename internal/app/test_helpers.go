package app

import (
	"bytes"
	"context"
	"os"
	"sync"
	"testing"

	"github.com/vk/kindledrop/internal/config"
	"github.com/vk/kindledrop/internal/submission"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// SetupAppTest creates an App backed by cfg for system testing.
func SetupAppTest(t *testing.T, appConfig *Config, cfg *config.Config) (*App, *SafeBuffer) {
	t.Helper()

	logBuffer := &SafeBuffer{}
	appConfig.LogLevel = "debug"
	loader := config.LoaderFunc(func(context.Context) (*config.Config, error) { return cfg, nil })
	testApp, err := NewApp(logBuffer, appConfig, loader, submission.NoSecret{})
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}

	t.Cleanup(func() {
		if os.Getenv("KINDLEDROP_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer
}
