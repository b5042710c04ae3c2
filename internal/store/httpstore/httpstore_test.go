package httpstore

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/crucible/internal/schema"
	"github.com/matthewbaird/crucible/internal/server"
	"github.com/matthewbaird/crucible/internal/store"
	"github.com/matthewbaird/crucible/internal/store/sqlitestore"
)

// testClient serves the entity API off a throwaway sqlite store and
// returns a client pointed at it.
func testClient(t *testing.T) *Client {
	t.Helper()
	reg := schema.MustLoad()
	backing, err := sqlitestore.New(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { backing.Close() })

	ts := httptest.NewServer(server.NewRouter(server.Config{Store: backing, Registry: reg}))
	t.Cleanup(ts.Close)

	return New(ts.URL, reg, nil)
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := testClient(t)

	doc, err := c.Create(ctx, "os", map[string]any{"name": "win7", "type": "windows", "arch": "x64"})
	require.NoError(t, err)
	id, _ := doc["id"].(string)
	require.NotEmpty(t, id)

	all, err := c.List(ctx, "os", nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "win7", all[0]["name"])

	filtered, err := c.List(ctx, "os", store.Filter{"type": "linux"})
	require.NoError(t, err)
	assert.Empty(t, filtered)

	doc["arch"] = "x86"
	updated, err := c.Update(ctx, "os", id, doc)
	require.NoError(t, err)
	assert.Equal(t, "x86", updated["arch"])

	found, err := c.Find(ctx, "os", "win7")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, id, found["id"])

	require.NoError(t, c.Delete(ctx, "os", id))
	all, err = c.List(ctx, "os", nil)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestUnknownTypeSurfacesCollaboratorError(t *testing.T) {
	ctx := context.Background()
	c := testClient(t)

	// unknown to the local registry: rejected before any request
	_, err := c.List(ctx, "nope", nil)
	require.Error(t, err)

	// known locally but rejected remotely: CollaboratorError with the
	// server's message intact
	_, err = c.Update(ctx, "task", "missing", map[string]any{"name": "x"})
	var collab *store.CollaboratorError
	require.ErrorAs(t, err, &collab)
	assert.Contains(t, collab.Error(), "missing")
}

func TestTypeRegistryOverHTTP(t *testing.T) {
	ctx := context.Background()
	c := testClient(t)

	_, err := c.Create(ctx, "code", map[string]any{
		"name": "Radamsa", "type": "component", "bases": []any{"Mutator"},
		"params": []any{
			map[string]any{
				"name": "seed",
				"type": map[string]any{"type": "native", "name": "int"},
				"desc": "prng seed",
			},
		},
	})
	require.NoError(t, err)

	reg := store.NewCodeRegistry(c)
	subs, err := reg.SubtypesOf(ctx, "Mutator")
	require.NoError(t, err)
	assert.Equal(t, []string{"Radamsa"}, subs)

	infos, err := reg.DeclaredParameters(ctx, "Radamsa")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "seed", infos[0].Name)
}
