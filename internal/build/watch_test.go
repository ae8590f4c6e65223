package build

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yacobolo/sitecss/internal/status"
)

func nextStatus(t *testing.T, sub *status.Subscription) status.Status {
	t.Helper()
	select {
	case ev := <-sub.Events():
		return ev.Status.Status
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a status event")
		return ""
	}
}

// waitForStatus drains events until want arrives; a single change can
// trigger more than one build
func waitForStatus(t *testing.T, sub *status.Subscription, want status.Status) {
	t.Helper()
	for {
		if nextStatus(t, sub) == want {
			return
		}
	}
}

func TestWatchRebuildsOnChange(t *testing.T) {
	p := newProject(t)
	broadcaster := status.New(status.WithLateJoinDelay(time.Hour))
	sub := broadcaster.Subscribe()
	defer sub.Cancel()

	opts := p.options()
	opts.Development = true
	opts.Broadcaster = broadcaster
	b, err := New(opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Watch(ctx) }()

	assert.Equal(t, status.Pending, nextStatus(t, sub))
	assert.Equal(t, status.Success, nextStatus(t, sub))

	writeFiles(t, p.pages, map[string]string{
		"index.html": `<html><head><style data-sitecss-classes=""></style></head><body><a class="text-red">x</a></body></html>`,
	})

	waitForStatus(t, sub, status.Success)
	assert.Eventually(t, func() bool {
		content, err := os.ReadFile(filepath.Join(p.out, "index.html"))
		return err == nil && containsAll(string(content), `.a{color:red}`, `<a class="a">x</a>`)
	}, 5*time.Second, 20*time.Millisecond)

	writeFiles(t, p.root, map[string]string{"macros.css": "btn {"})
	waitForStatus(t, sub, status.Failed)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestRelevant(t *testing.T) {
	p := newProject(t)
	b, err := New(p.options())
	require.NoError(t, err)

	tests := []struct {
		path string
		want bool
	}{
		{filepath.Join(p.pages, "index.html"), true},
		{filepath.Join(p.pages, "blog", "post.html"), true},
		{filepath.Join(p.root, "macros.css"), true},
		{filepath.Join(p.root, "utilities.css"), true},
		{filepath.Join(p.root, "README.md"), false},
		{filepath.Join(p.out, "index.html"), false},
	}

	for _, tt := range tests {
		t.Run(filepath.Base(tt.path), func(t *testing.T) {
			assert.Equal(t, tt.want, b.relevant(tt.path))
		})
	}
}

func containsAll(s string, parts ...string) bool {
	for _, part := range parts {
		if !strings.Contains(s, part) {
			return false
		}
	}
	return true
}
