package main

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/locus/pkg/core"
)

func newAddCommand(t *testing.T, flags map[string]string) *cobra.Command {
	t.Helper()
	addTitle, addContent, addTags = "", "", nil
	addLat, addLon, addPlace, addAddress = 0, 0, "", ""

	cmd := &cobra.Command{Use: "add"}
	cmd.Flags().StringVarP(&addTitle, "title", "t", "", "")
	cmd.Flags().StringVar(&addContent, "content", "", "")
	cmd.Flags().StringSliceVar(&addTags, "tag", nil, "")
	cmd.Flags().Float64Var(&addLat, "lat", 0, "")
	cmd.Flags().Float64Var(&addLon, "lon", 0, "")
	cmd.Flags().StringVar(&addPlace, "place", "", "")
	cmd.Flags().StringVar(&addAddress, "address", "", "")
	for name, value := range flags {
		require.NoError(t, cmd.Flags().Set(name, value))
	}
	return cmd
}

func TestBuildNote(t *testing.T) {
	cmd := newAddCommand(t, map[string]string{
		"title": "Buy stamps",
		"tag":   "errands,post",
		"lat":   "0",
		"lon":   "0",
		"place": "Post office",
	})

	n, err := buildNote(cmd, []string{"errands/stamps"})
	require.NoError(t, err)
	assert.Equal(t, "errands/stamps", n.ID)
	assert.Equal(t, []string{"errands", "post"}, n.Tags)
	require.NotNil(t, n.Location, "an explicit 0,0 is a location")
	assert.Equal(t, "Post office", n.Location.Name)
}

func TestBuildNote_ContentFromStdin(t *testing.T) {
	cmd := newAddCommand(t, map[string]string{"title": "Poem", "content": "-"})
	cmd.SetIn(strings.NewReader("roses are red\n"))

	n, err := buildNote(cmd, nil)
	require.NoError(t, err)
	assert.Empty(t, n.ID)
	assert.Equal(t, "roses are red\n", n.Content)
	assert.Nil(t, n.Location)
}

func TestBuildNote_HalfLocation(t *testing.T) {
	cmd := newAddCommand(t, map[string]string{"title": "x", "lat": "10"})
	_, err := buildNote(cmd, nil)
	assert.ErrorIs(t, err, core.ErrInvalidLocation)
}

func TestFilterNotes(t *testing.T) {
	notes := []core.Note{
		{ID: "a", Tags: []string{"home"}, Location: &core.Location{Latitude: 1, Longitude: 1}},
		{ID: "b", Tags: []string{"home"}},
		{ID: "c", Tags: []string{"work"}, Location: &core.Location{Latitude: 2, Longitude: 2}},
	}

	ids := func(list []core.Note) []string {
		var out []string
		for _, n := range list {
			out = append(out, n.ID)
		}
		return out
	}

	assert.Equal(t, []string{"a", "b", "c"}, ids(filterNotes(notes, "", false)))
	assert.Equal(t, []string{"a", "b"}, ids(filterNotes(notes, "home", false)))
	assert.Equal(t, []string{"a", "c"}, ids(filterNotes(notes, "", true)))
	assert.Equal(t, []string{"a"}, ids(filterNotes(notes, "home", true)))
	assert.NotNil(t, filterNotes(nil, "", false), "JSON output must be [] rather than null")
}

func TestFormatNote(t *testing.T) {
	assert.Equal(t, "inbox/x", formatNote(core.Note{ID: "inbox/x"}))
	assert.Equal(t, "home - Water plants @ Home (1.500000, -2.000000)", formatNote(core.Note{
		ID:       "home",
		Title:    "Water plants",
		Location: &core.Location{Name: "Home", Latitude: 1.5, Longitude: -2},
	}))
}

func TestFormatDistance(t *testing.T) {
	assert.Equal(t, "250 m", formatDistance(250))
	assert.Equal(t, "3.2 km", formatDistance(3218.69))
}
