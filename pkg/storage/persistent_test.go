package storage

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/conduit-lang/halstore/pkg/hal"
	"github.com/conduit-lang/halstore/pkg/model"
	"github.com/conduit-lang/halstore/pkg/storage/backend"
	"github.com/conduit-lang/halstore/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rehydrateUser(calls *int) RehydrateFunc {
	return func(_ string, snap Snapshot) (model.Entity, error) {
		*calls++
		res, err := hal.Parse(snap.Body)
		if err != nil {
			return nil, err
		}
		m := model.New(userSchema, nil)
		if err := m.Populate(res, snap.HTTPHeader(), nil); err != nil {
			return nil, err
		}
		return m, nil
	}
}

func newMemoryBackend(t *testing.T) *backend.Memory {
	b := backend.NewMemoryWithConfig(backend.Config{DefaultTTL: -1, Prefix: "test:"})
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestPersistent_MirrorsSaves(t *testing.T) {
	b := newMemoryBackend(t)
	p := NewPersistent(NewConditional(), b, nil)
	u := newUser(t, "http://x/users/1", "john")

	p.Save(u, etagHeader(`"v1"`), "http://x/users/1?expand=car")

	data, err := b.Get(context.Background(), "http://x/users/1")
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, "http://x/users/1", snap.ID)
	assert.Equal(t, "user", snap.Type)
	assert.False(t, snap.Collection)
	assert.Equal(t, `"v1"`, snap.Token)
	assert.JSONEq(t, `{"name":"john","_links":{"self":{"href":"http://x/users/1"}}}`, string(snap.Body))

	exists, err := b.Exists(context.Background(), "http://x/users/1?expand=car")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestPersistent_SkipsLocalModels(t *testing.T) {
	b := newMemoryBackend(t)
	p := NewPersistent(NewPlain(), b, nil)
	local := model.NewWithData(userSchema, nil, map[string]interface{}{"name": "john"})

	p.Save(local, nil)

	_, ok := p.Get(local.UniqueIdentifier())
	assert.True(t, ok, "inner strategy still holds it")
	exists, err := b.Exists(context.Background(), local.UniqueIdentifier())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPersistent_SkipsModelsAheadOfTheirBody(t *testing.T) {
	b := newMemoryBackend(t)
	p := NewPersistent(NewConditional(), b, nil)
	u := newUser(t, "http://x/users/1", "john")
	require.NoError(t, u.Set("name", "jane"))

	p.Save(u, etagHeader(`"v2"`))
	u.MarkSaved()
	p.Save(u, nil)

	exists, err := b.Exists(context.Background(), "http://x/users/1")
	require.NoError(t, err)
	assert.False(t, exists)

	res, err := hal.Parse([]byte(`{"name":"jane","_links":{"self":{"href":"http://x/users/1"}}}`))
	require.NoError(t, err)
	require.NoError(t, u.Populate(res, nil, nil))
	p.Save(u, etagHeader(`"v2"`))

	data, err := b.Get(context.Background(), "http://x/users/1")
	require.NoError(t, err)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, `"v2"`, snap.Token)
	assert.JSONEq(t, `{"name":"jane","_links":{"self":{"href":"http://x/users/1"}}}`, string(snap.Body))
}

func TestPersistent_RehydratesInNewSession(t *testing.T) {
	b := newMemoryBackend(t)
	first := NewPersistent(NewConditional(), b, nil)
	first.Save(newUser(t, "http://x/users/1", "john"), etagHeader(`"v1"`))

	calls := 0
	inner := NewConditional()
	second := NewPersistent(inner, b, rehydrateUser(&calls))

	opts := &transport.RequestOptions{}
	second.EnrichRequestOptions("http://x/users/1", opts)
	assert.Equal(t, `"v1"`, opts.Headers["If-None-Match"])
	assert.Equal(t, 0, calls, "enriching does not rehydrate")

	got, ok := second.Get("http://x/users/1")
	require.True(t, ok)
	assert.Equal(t, "john", got.(*model.Model).GetString("name"))
	assert.Equal(t, 1, calls)
	assert.Equal(t, `"v1"`, inner.Token("http://x/users/1"), "token restored in the inner strategy")

	again, ok := second.Get("http://x/users/1")
	require.True(t, ok)
	assert.Same(t, got, again)
	assert.Equal(t, 1, calls, "second read is served by the inner strategy")
}

func TestPersistent_MissWithoutRehydrate(t *testing.T) {
	b := newMemoryBackend(t)
	NewPersistent(NewPlain(), b, nil).Save(newUser(t, "http://x/users/1", "john"), nil)

	p := NewPersistent(NewPlain(), b, nil)
	_, ok := p.Get("http://x/users/1")
	assert.False(t, ok)
}

func TestPersistent_Remove(t *testing.T) {
	b := newMemoryBackend(t)
	p := NewPersistent(NewPlain(), b, nil)
	u := newUser(t, "http://x/users/1", "john")
	p.Save(u, nil, "http://x/users/1?a=1")

	p.Remove(u)

	_, ok := p.Get("http://x/users/1")
	assert.False(t, ok)
	for _, key := range []string{"http://x/users/1", "http://x/users/1?a=1"} {
		exists, err := b.Exists(context.Background(), key)
		require.NoError(t, err)
		assert.False(t, exists, key)
	}
}

func TestPersistent_SaveAllRespectsExistingSnapshots(t *testing.T) {
	b := newMemoryBackend(t)
	p := NewPersistent(NewPlain(), b, nil)

	p.Save(newUser(t, "http://x/users/1", "john"), etagHeader(`"v1"`))
	p.SaveAll([]model.Entity{newUser(t, "http://x/users/1", "johnny")}, false)

	data, err := b.Get(context.Background(), "http://x/users/1")
	require.NoError(t, err)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, `"v1"`, snap.Token)

	p.SaveAll([]model.Entity{newUser(t, "http://x/users/1", "johnny")}, true)
	data, err = b.Get(context.Background(), "http://x/users/1")
	require.NoError(t, err)
	var overwritten Snapshot
	require.NoError(t, json.Unmarshal(data, &overwritten))
	assert.Empty(t, overwritten.Token)
	assert.Contains(t, string(overwritten.Body), "johnny")
}

func TestPersistent_DocumentSnapshot(t *testing.T) {
	b := newMemoryBackend(t)
	p := NewPersistent(NewPlain(), b, nil)

	res, err := hal.Parse([]byte(`{"_links":{"users":[{"href":"http://x/users/1"}]},"page":{"size":20,"totalElements":1,"totalPages":1,"number":0}}`))
	require.NoError(t, err)
	doc := model.NewDocument("user", "http://x/users?page=0", nil, model.NewPagination(res.Page), res)

	p.Save(doc, nil)

	data, err := b.Get(context.Background(), "http://x/users?page=0")
	require.NoError(t, err)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.True(t, snap.Collection)
	assert.Equal(t, "user", snap.Type)
}
