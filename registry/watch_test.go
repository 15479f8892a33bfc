package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
)

func TestRegistryWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.xml")

	writeMapper := func(sql string) {
		t.Helper()

		content := fmt.Sprintf(`<mapper namespace="users"><select id="count">%s</select></mapper>`, sql)
		assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	writeMapper("select 1")

	reloaded := make(chan error, 16)

	r := newRegistry(t, WithDebounce(10*time.Millisecond), WithReloadHook(func(err error) {
		reloaded <- err
	}))
	assert.NoError(t, r.LoadDir(dir))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- r.Watch(ctx)
	}()

	// the watcher starts asynchronously, so keep touching the file until a reload is seen
	deadline := time.After(5 * time.Second)

wait:
	for {
		writeMapper("select 2")

		select {
		case err := <-reloaded:
			// a reload may observe a half written file
			if err == nil {
				break wait
			}
		case <-time.After(100 * time.Millisecond):
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}

	bound, err := r.Render(context.Background(), "users.count", nil)
	assert.NoError(t, err)
	assert.Equal(t, "select 2", bound.SQL)

	cancel()
	assert.NoError(t, <-done)
}
