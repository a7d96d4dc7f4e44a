package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyloom/internal/entity"
	"storyloom/internal/store"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := New(t.TempDir())
	require.NoError(t, err)
	return c
}

func TestGenerateIDMonotonic(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	first, err := c.GenerateID(ctx, entity.KindCharacter)
	require.NoError(t, err)
	second, err := c.GenerateID(ctx, entity.KindCharacter)
	require.NoError(t, err)

	assert.Equal(t, "char_1", first)
	assert.Equal(t, "char_2", second)

	sceneID, err := c.GenerateID(ctx, entity.KindScene)
	require.NoError(t, err)
	assert.Equal(t, "scene_001", sceneID)
}

func TestGenerateIDSurvivesCounterDeletion(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	for i := 0; i < 3; i++ {
		id, err := c.GenerateID(ctx, entity.KindCharacter)
		require.NoError(t, err)
		require.NoError(t, c.SaveCharacter(ctx, &entity.Character{
			Meta:      entity.Meta{ID: id},
			FirstName: "Test",
		}))
	}

	// A deleted counter document must not cause reuse: allocation
	// reconciles against the documents on disk.
	require.NoError(t, os.Remove(filepath.Join(c.Root(), countersFile)))

	id, err := c.GenerateID(ctx, entity.KindCharacter)
	require.NoError(t, err)
	assert.Equal(t, "char_4", id)
}

func TestGenerateIDSurvivesStaleCounter(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	require.NoError(t, c.SaveCharacter(ctx, &entity.Character{
		Meta:      entity.Meta{ID: "char_9"},
		FirstName: "Manually",
	}))

	id, err := c.GenerateID(ctx, entity.KindCharacter)
	require.NoError(t, err)
	assert.Equal(t, "char_10", id)
}

func TestGetMissingReturnsNil(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	ch, err := c.GetCharacter(ctx, "char_99")
	require.NoError(t, err)
	assert.Nil(t, ch)

	l, err := c.GetOpenLoop(ctx, "loop_99")
	require.NoError(t, err)
	assert.Nil(t, l)
}

func TestMalformedDocumentIsFatal(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	path := filepath.Join(c.Root(), "characters", "char_1.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := c.GetCharacter(ctx, "char_1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed")
}

func TestSaveRefreshesUpdatedAt(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	ch := &entity.Character{Meta: entity.Meta{ID: "char_1"}, FirstName: "Alice"}
	require.NoError(t, c.SaveCharacter(ctx, ch))

	c.now = func() time.Time { return base.Add(time.Hour) }
	require.NoError(t, c.SaveCharacter(ctx, ch))

	got, err := c.GetCharacter(ctx, "char_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, base, got.CreatedAt)
	assert.Equal(t, base.Add(time.Hour), got.UpdatedAt)
}

func TestListScenesSortedByTick(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	for _, tick := range []int{4, 0, 2} {
		id, err := c.GenerateID(ctx, entity.KindScene)
		require.NoError(t, err)
		require.NoError(t, c.SaveScene(ctx, &entity.Scene{
			Meta:  entity.Meta{ID: id},
			Tick:  tick,
			Title: "scene",
		}))
	}

	scenes, err := c.ListScenes(ctx)
	require.NoError(t, err)
	require.Len(t, scenes, 3)
	assert.Equal(t, 0, scenes[0].Tick)
	assert.Equal(t, 2, scenes[1].Tick)
	assert.Equal(t, 4, scenes[2].Tick)
}

func TestRelationshipPairInvariant(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	require.NoError(t, c.SaveRelationship(ctx, &entity.Relationship{
		Meta:       entity.Meta{ID: "rel_1"},
		CharacterA: "char_1",
		CharacterB: "char_2",
		Type:       "allies",
	}))

	// Same pair reversed under a new identifier must be rejected.
	err := c.SaveRelationship(ctx, &entity.Relationship{
		Meta:       entity.Meta{ID: "rel_2"},
		CharacterA: "char_2",
		CharacterB: "char_1",
		Type:       "rivals",
	})
	require.Error(t, err)

	// Updating the existing record under its own identifier is fine.
	require.NoError(t, c.SaveRelationship(ctx, &entity.Relationship{
		Meta:       entity.Meta{ID: "rel_1"},
		CharacterA: "char_1",
		CharacterB: "char_2",
		Type:       "rivals",
	}))

	all, err := c.ListRelationships(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGetRelationshipBetweenSymmetric(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	require.NoError(t, c.SaveRelationship(ctx, &entity.Relationship{
		Meta:       entity.Meta{ID: "rel_1"},
		CharacterA: "char_1",
		CharacterB: "char_2",
	}))

	ab, err := c.GetRelationshipBetween(ctx, "char_1", "char_2")
	require.NoError(t, err)
	ba, err := c.GetRelationshipBetween(ctx, "char_2", "char_1")
	require.NoError(t, err)

	require.NotNil(t, ab)
	require.NotNil(t, ba)
	assert.Equal(t, ab.ID, ba.ID)

	none, err := c.GetRelationshipBetween(ctx, "char_1", "char_3")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestResolveOpenLoopIdempotent(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	require.NoError(t, c.SaveOpenLoop(ctx, &entity.OpenLoop{
		Meta:        entity.Meta{ID: "loop_1"},
		Description: "the missing letter",
		Status:      entity.LoopOpen,
	}))

	require.NoError(t, c.ResolveOpenLoop(ctx, "loop_1", "scene_003", "found in the attic"))

	l, err := c.GetOpenLoop(ctx, "loop_1")
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.Equal(t, entity.LoopResolved, l.Status)
	assert.Equal(t, "scene_003", l.ResolvedBy)

	// Resolving again must not overwrite provenance.
	require.NoError(t, c.ResolveOpenLoop(ctx, "loop_1", "scene_009", "something else"))
	l, err = c.GetOpenLoop(ctx, "loop_1")
	require.NoError(t, err)
	assert.Equal(t, "scene_003", l.ResolvedBy)
	assert.Equal(t, "found in the attic", l.Resolution)

	require.Error(t, c.ResolveOpenLoop(ctx, "loop_42", "scene_001", ""))
}

func TestDeleteLore(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	require.NoError(t, c.SaveLore(ctx, &entity.Lore{
		Meta:    entity.Meta{ID: "lore_1"},
		Type:    entity.LoreRule,
		Content: "iron disrupts the weave",
	}))
	require.NoError(t, c.DeleteLore(ctx, "lore_1"))

	l, err := c.GetLore(ctx, "lore_1")
	require.NoError(t, err)
	assert.Nil(t, l)
}

func TestStateRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	s, err := c.LoadState(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)

	require.NoError(t, c.SaveState(ctx, &store.State{
		CurrentTick:     7,
		ActiveCharacter: "char_1",
	}))
	got, err := c.LoadState(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 7, got.CurrentTick)
	assert.Equal(t, "char_1", got.ActiveCharacter)
}
