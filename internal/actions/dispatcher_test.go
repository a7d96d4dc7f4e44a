package actions

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storyloom/internal/store/fs"
)

func recordingHandler(name string, calls *[]string, fail bool) Handler {
	return Handler{
		Name: name,
		Run: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			*calls = append(*calls, name)
			if fail {
				return nil, fmt.Errorf("simulated failure")
			}
			return map[string]any{"op": name}, nil
		},
	}
}

func TestDispatchStopsAtFirstFailure(t *testing.T) {
	var calls []string
	d := NewDispatcher(zap.NewNop())
	require.NoError(t, d.Register(recordingHandler("alpha", &calls, false)))
	require.NoError(t, d.Register(recordingHandler("beta", &calls, false)))
	require.NoError(t, d.Register(recordingHandler("broken", &calls, true)))
	require.NoError(t, d.Register(recordingHandler("gamma", &calls, false)))

	results, err := d.Dispatch(context.Background(), []Action{
		{Name: "alpha"},
		{Name: "beta"},
		{Name: "broken"},
		{Name: "gamma"},
	})

	require.Error(t, err)
	var derr *DispatchError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, 2, derr.Index)
	assert.Equal(t, "broken", derr.Name)
	assert.Len(t, derr.Partial, 2)

	// The two completed results are returned; gamma was never invoked.
	assert.Len(t, results, 2)
	assert.Equal(t, []string{"alpha", "beta", "broken"}, calls)
}

func TestDispatchMissingRequiredParam(t *testing.T) {
	var calls []string
	d := NewDispatcher(zap.NewNop())
	h := recordingHandler("needs_name", &calls, false)
	h.Required = []string{"name"}
	require.NoError(t, d.Register(h))

	_, err := d.Dispatch(context.Background(), []Action{
		{Name: "needs_name", Args: map[string]any{"name": ""}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name")
	assert.Empty(t, calls, "handler must not run when a required parameter is empty")
}

func TestValidateDoesNotExecute(t *testing.T) {
	var calls []string
	d := NewDispatcher(zap.NewNop())
	require.NoError(t, d.Register(recordingHandler("alpha", &calls, false)))

	require.NoError(t, d.Validate([]Action{{Name: "alpha"}}))
	assert.Empty(t, calls)

	err := d.Validate([]Action{{Name: "alpha"}, {Name: "missing"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	var calls []string
	d := NewDispatcher(zap.NewNop())
	require.NoError(t, d.Register(recordingHandler("alpha", &calls, false)))
	assert.Error(t, d.Register(recordingHandler("alpha", &calls, false)))
}

func newTestBuiltins(t *testing.T) (*Dispatcher, *Builtins, *fs.Client) {
	t.Helper()
	st, err := fs.New(t.TempDir())
	require.NoError(t, err)
	b := NewBuiltins(st, nil, zap.NewNop())
	d := NewDispatcher(zap.NewNop())
	require.NoError(t, b.RegisterAll(d))
	return d, b, st
}

func TestCreateCharacterIsIdempotentOnName(t *testing.T) {
	ctx := context.Background()
	d, _, st := newTestBuiltins(t)

	first, err := d.Dispatch(ctx, []Action{
		{Name: "create_character", Args: map[string]any{"name": "Mara Voss", "role": "smuggler"}},
	})
	require.NoError(t, err)
	id := first[0]["id"].(string)

	// A retried tick replays the same action; no duplicate is created.
	second, err := d.Dispatch(ctx, []Action{
		{Name: "create_character", Args: map[string]any{"name": "Mara Voss"}},
	})
	require.NoError(t, err)
	assert.Equal(t, id, second[0]["id"])
	assert.Equal(t, true, second[0]["existing"])

	all, err := st.ListCharacters(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateRelationshipRequiresCharacters(t *testing.T) {
	ctx := context.Background()
	d, _, _ := newTestBuiltins(t)

	_, err := d.Dispatch(ctx, []Action{
		{Name: "create_relationship", Args: map[string]any{
			"character_a": "char_1", "character_b": "char_2", "type": "rivals",
		}},
	})
	require.Error(t, err)
	var derr *DispatchError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, 0, derr.Index)
}

func TestCreateRelationshipReturnsExistingPair(t *testing.T) {
	ctx := context.Background()
	d, _, _ := newTestBuiltins(t)

	results, err := d.Dispatch(ctx, []Action{
		{Name: "create_character", Args: map[string]any{"name": "Mara Voss"}},
		{Name: "create_character", Args: map[string]any{"name": "Edric Hale"}},
	})
	require.NoError(t, err)
	a := results[0]["id"].(string)
	b := results[1]["id"].(string)

	first, err := d.Dispatch(ctx, []Action{
		{Name: "create_relationship", Args: map[string]any{
			"character_a": a, "character_b": b, "type": "rivals",
		}},
	})
	require.NoError(t, err)

	// Reversed pair order resolves to the same record.
	second, err := d.Dispatch(ctx, []Action{
		{Name: "create_relationship", Args: map[string]any{
			"character_a": b, "character_b": a, "type": "rivals",
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, first[0]["id"], second[0]["id"])
}

func TestUpdateCharacterStateAppendsUnique(t *testing.T) {
	ctx := context.Background()
	d, b, st := newTestBuiltins(t)
	b.SetTick(4)

	results, err := d.Dispatch(ctx, []Action{
		{Name: "create_character", Args: map[string]any{"name": "Mara Voss"}},
	})
	require.NoError(t, err)
	id := results[0]["id"].(string)

	_, err = d.Dispatch(ctx, []Action{
		{Name: "update_character_state", Args: map[string]any{
			"character_id":  id,
			"emotional":     "wary",
			"add_inventory": []any{"brass key", "brass key", "lantern"},
		}},
	})
	require.NoError(t, err)

	ch, err := st.GetCharacter(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "wary", ch.State.Emotional)
	assert.Equal(t, []string{"brass key", "lantern"}, ch.State.Inventory)
}

func TestGenerateNameVariesWithPopulation(t *testing.T) {
	ctx := context.Background()
	d, _, _ := newTestBuiltins(t)

	first, err := d.Dispatch(ctx, []Action{
		{Name: "generate_name", Args: map[string]any{"kind": "character"}},
		{Name: "create_character", Args: map[string]any{"name": "Mara Voss"}},
		{Name: "generate_name", Args: map[string]any{"kind": "character"}},
	})
	require.NoError(t, err)
	assert.NotEqual(t, first[0]["name"], first[2]["name"])

	_, err = d.Dispatch(ctx, []Action{
		{Name: "generate_name", Args: map[string]any{"kind": "weather"}},
	})
	assert.Error(t, err)
}
