package core_test

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/locus/pkg/core"
)

// MockRepository implements core.Repository in memory.
// It deliberately does NOT implement core.Watchable to test fallback/errors.
type MockRepository struct {
	notes map[string]core.Note
	next  int
}

func NewMockRepository() *MockRepository {
	return &MockRepository{notes: make(map[string]core.Note)}
}

func (m *MockRepository) Save(ctx context.Context, n core.Note) (core.Note, error) {
	if n.ID == "" {
		m.next++
		n.ID = "generated-" + string(rune('0'+m.next))
	}
	m.notes[n.ID] = n
	return n, nil
}

func (m *MockRepository) Get(ctx context.Context, id string) (core.Note, error) {
	n, ok := m.notes[id]
	if !ok {
		return core.Note{}, core.ErrNoteNotFound
	}
	return n, nil
}

func (m *MockRepository) Notes(ctx context.Context) ([]core.Note, error) {
	var notes []core.Note
	for _, n := range m.notes {
		notes = append(notes, n)
	}
	// Sort for deterministic tests
	sort.Slice(notes, func(i, j int) bool { return notes[i].ID < notes[j].ID })
	return notes, nil
}

func (m *MockRepository) Delete(ctx context.Context, id string) error {
	if _, ok := m.notes[id]; !ok {
		return core.ErrNoteNotFound
	}
	delete(m.notes, id)
	return nil
}

func (m *MockRepository) Initialize(ctx context.Context) error { return nil }

func TestService_CRUD(t *testing.T) {
	repo := NewMockRepository()
	service := core.NewService(repo)
	ctx := context.TODO()

	// 1. Save
	saved, err := service.SaveNote(ctx, core.Note{
		ID:    "groceries",
		Title: "  Groceries ",
		Tags:  []string{"shop", "", "shop", "food"},
		Location: &core.Location{
			Name: "Market", Latitude: 38.72, Longitude: -9.14,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Groceries", saved.Title)
	assert.Equal(t, []string{"shop", "food"}, saved.Tags)

	// 2. Get
	n, err := service.GetNote(ctx, "groceries")
	require.NoError(t, err)
	coord, ok := n.Coordinate()
	require.True(t, ok)
	assert.Equal(t, core.Coordinate{Latitude: 38.72, Longitude: -9.14}, coord)

	// 3. List
	_, err = service.SaveNote(ctx, core.Note{Title: "Untagged"})
	require.NoError(t, err)
	notes, err := service.ListNotes(ctx)
	require.NoError(t, err)
	assert.Len(t, notes, 2)

	// 4. Delete
	require.NoError(t, service.DeleteNote(ctx, "groceries"))
	_, err = service.GetNote(ctx, "groceries")
	assert.ErrorIs(t, err, core.ErrNoteNotFound)
}

func TestService_Validation(t *testing.T) {
	service := core.NewService(NewMockRepository())
	ctx := context.TODO()

	_, err := service.SaveNote(ctx, core.Note{Title: "   "})
	assert.ErrorIs(t, err, core.ErrEmptyTitle)

	_, err = service.SaveNote(ctx, core.Note{
		Title:    "Nowhere",
		Location: &core.Location{Latitude: 123, Longitude: 0},
	})
	assert.ErrorIs(t, err, core.ErrInvalidLocation)

	_, err = service.GetNote(ctx, "")
	assert.Error(t, err)
}

func TestService_Watch_Unsupported(t *testing.T) {
	service := core.NewService(NewMockRepository())

	_, err := service.Watch(context.TODO())
	require.Error(t, err)
	assert.Equal(t, "repository does not support watching", err.Error())
}

func TestNewLocation(t *testing.T) {
	lat, lon := 1.5, 2.5

	loc, err := core.NewLocation("Office", &lat, &lon, "Main St")
	require.NoError(t, err)
	assert.Equal(t, &core.Location{Name: "Office", Latitude: 1.5, Longitude: 2.5, Address: "Main St"}, loc)

	loc, err = core.NewLocation("", nil, nil, "")
	require.NoError(t, err)
	assert.Nil(t, loc)

	_, err = core.NewLocation("Half", &lat, nil, "")
	assert.True(t, errors.Is(err, core.ErrInvalidLocation))

	_, err = core.NewLocation("Named", nil, nil, "")
	assert.ErrorIs(t, err, core.ErrInvalidLocation)
}

func TestActivity(t *testing.T) {
	a, err := core.ParseActivity("IN_VEHICLE")
	require.NoError(t, err)
	assert.Equal(t, core.ActivityInVehicle, a)

	a, err = core.ParseActivity("on-foot")
	require.NoError(t, err)
	assert.Equal(t, core.ActivityOnFoot, a)

	_, err = core.ParseActivity("flying")
	assert.Error(t, err)

	for _, moving := range []core.Activity{core.ActivityWalking, core.ActivityRunning, core.ActivityOnFoot, core.ActivityOnBicycle, core.ActivityInVehicle} {
		assert.True(t, moving.IsMoving(), moving)
	}
	for _, still := range []core.Activity{core.ActivityStill, core.ActivityTilting, core.ActivityUnknown} {
		assert.False(t, still.IsMoving(), still)
	}
}

func TestClassification_Best(t *testing.T) {
	c := core.Classification{Candidates: []core.Candidate{
		{Activity: core.ActivityStill, Confidence: 40},
		{Activity: core.ActivityWalking, Confidence: 70},
		{Activity: core.ActivityRunning, Confidence: 70},
	}}
	best, ok := c.Best()
	require.True(t, ok)
	assert.Equal(t, core.ActivityWalking, best.Activity, "ties keep the first candidate")

	_, ok = core.Classification{}.Best()
	assert.False(t, ok)
}
