package fs

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/locus/pkg/core"
)

func TestParseNote(t *testing.T) {
	t.Run("Full Frontmatter", func(t *testing.T) {
		data := "---\n" +
			"title: Buy milk\n" +
			"tags: [errands, food]\n" +
			"location:\n" +
			"  name: Corner shop\n" +
			"  latitude: 37.4219983\n" +
			"  longitude: -122.084\n" +
			"created_at: 2026-03-01T10:00:00Z\n" +
			"---\n" +
			"Semi-skimmed.\n"

		n, err := parseNote("errands/milk", []byte(data))
		require.NoError(t, err)
		assert.Equal(t, "errands/milk", n.ID)
		assert.Equal(t, "Buy milk", n.Title)
		assert.Equal(t, []string{"errands", "food"}, n.Tags)
		assert.Equal(t, "Semi-skimmed.\n", n.Content)
		require.NotNil(t, n.Location)
		assert.Equal(t, "Corner shop", n.Location.Name)
		assert.Equal(t, core.Coordinate{Latitude: 37.4219983, Longitude: -122.084}, n.Location.Coordinate())
		assert.True(t, n.CreatedAt.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)))
	})

	t.Run("Plain Markdown", func(t *testing.T) {
		n, err := parseNote("inbox/idea", []byte("# just text\n"))
		require.NoError(t, err)
		assert.Equal(t, "idea", n.Title)
		assert.Equal(t, "# just text\n", n.Content)
		assert.Nil(t, n.Location)
	})

	t.Run("Delimiter Inside Body", func(t *testing.T) {
		n, err := parseNote("x", []byte("---\ntitle: x\n---\nabove\n---\nbelow\n"))
		require.NoError(t, err)
		assert.Equal(t, "above\n---\nbelow\n", n.Content)
	})

	t.Run("CRLF", func(t *testing.T) {
		n, err := parseNote("x", []byte("---\r\ntitle: windows\r\n---\r\nbody"))
		require.NoError(t, err)
		assert.Equal(t, "windows", n.Title)
		assert.Equal(t, "body", n.Content)
	})

	t.Run("Unclosed Frontmatter", func(t *testing.T) {
		_, err := parseNote("x", []byte("---\ntitle: x\nbody"))
		assert.True(t, errors.Is(err, ErrUnclosedFrontmatter))
	})

	t.Run("Half A Coordinate", func(t *testing.T) {
		_, err := parseNote("x", []byte("---\nlocation:\n  latitude: 10\n---\n"))
		assert.ErrorIs(t, err, core.ErrInvalidLocation)
	})

	t.Run("Place Without Coordinates", func(t *testing.T) {
		_, err := parseNote("x", []byte("---\nlocation:\n  name: Home\n---\n"))
		assert.ErrorIs(t, err, core.ErrInvalidLocation)
	})
}

func TestSerializeNote(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	n := core.Note{
		ID:        "errands/milk",
		Title:     "Buy milk",
		Content:   "Semi-skimmed.\n",
		Tags:      []string{"errands"},
		Location:  &core.Location{Name: "Equator", Latitude: 0, Longitude: 0},
		CreatedAt: created,
		UpdatedAt: created.Add(time.Hour),
	}

	data, err := serializeNote(n)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.HasPrefix(text, "---\ntitle: Buy milk\n"))
	assert.Contains(t, text, "latitude: 0\n")
	assert.True(t, strings.HasSuffix(text, "---\nSemi-skimmed.\n"))

	back, err := parseNote(n.ID, data)
	require.NoError(t, err)
	assert.Equal(t, n.Title, back.Title)
	assert.Equal(t, n.Content, back.Content)
	assert.Equal(t, n.Tags, back.Tags)
	assert.Equal(t, *n.Location, *back.Location)
	assert.True(t, n.CreatedAt.Equal(back.CreatedAt))
	assert.True(t, n.UpdatedAt.Equal(back.UpdatedAt))
}
