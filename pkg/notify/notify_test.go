package notify_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/locus/pkg/notify"
)

func TestNearbyNotification(t *testing.T) {
	n := notify.NearbyNotification([]string{"Buy milk", "Return library book"})
	assert.Equal(t, notify.KeyNearby, n.Key)
	assert.Equal(t, "You have 2 nearby notes", n.Title)
	assert.Equal(t, "Buy milk, Return library book", n.Body)

	one := notify.NearbyNotification([]string{"Buy milk"})
	assert.Equal(t, "You have 1 nearby note", one.Title)
	assert.Equal(t, "Buy milk", one.Body)
}

func TestStatusNotification(t *testing.T) {
	n := notify.StatusNotification()
	assert.Equal(t, notify.KeyStatus, n.Key)
	assert.Contains(t, n.Body, "monitoring nearby notes")
}

func TestPermission(t *testing.T) {
	var p notify.Permission = notify.Allowed
	assert.True(t, p())
	p = notify.Denied
	assert.False(t, p())
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := notify.LogNotifier{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	require.NoError(t, n.Notify(context.Background(), notify.NearbyNotification([]string{"Buy milk"})))
	assert.Contains(t, buf.String(), "Buy milk")
	assert.Contains(t, buf.String(), "key=nearby")
}

func TestNewCommandNotifier_Empty(t *testing.T) {
	_, err := notify.NewCommandNotifier("   ", nil)
	assert.Error(t, err)
}

func TestCommandNotifier(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	out := filepath.Join(t.TempDir(), "posted.txt")

	c := &notify.CommandNotifier{Argv: []string{
		"sh", "-c", `printf '%s|%s|%s' "$1" "$2" "$3" > "$0"`, out, "{key}", "{title}", "{body}",
	}}
	require.NoError(t, c.Notify(context.Background(), notify.NearbyNotification([]string{"Buy milk", "Call mom"})))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "nearby|You have 2 nearby notes|Buy milk, Call mom", string(data))
}

func TestCommandNotifier_Failure(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	c := &notify.CommandNotifier{Argv: []string{"sh", "-c", "echo boom >&2; exit 3"}}
	err := c.Notify(context.Background(), notify.StatusNotification())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestRecorder(t *testing.T) {
	r := notify.NewRecorder(1)
	ctx := context.Background()
	require.NoError(t, r.Notify(ctx, notify.StatusNotification()))
	require.NoError(t, r.Notify(ctx, notify.NearbyNotification([]string{"dropped"})))

	got := <-r.C()
	assert.Equal(t, notify.KeyStatus, got.Key)
	assert.Empty(t, r.C())
}
