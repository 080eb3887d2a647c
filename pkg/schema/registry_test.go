package schema

import (
	"strings"
	"testing"

	"github.com/conduit-lang/halstore/pkg/hal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_Declarations(t *testing.T) {
	s, err := New("user").
		Endpoint("/users/").
		Attribute("name").
		Attribute("createdAt", External("created_at"), ExcludeFromPayload()).
		HasOne("car", "car", IncludeInPayload()).
		HasMany("posts", "post").
		Link("avatar").
		HeaderAttribute("etag", External("ETag")).
		Build()
	require.NoError(t, err)

	assert.Equal(t, "user", s.Type())
	assert.Equal(t, "users", s.Endpoint())

	p, ok := s.Property("createdAt")
	require.True(t, ok)
	assert.Equal(t, "created_at", p.ExternalName)
	assert.True(t, p.ExcludeFromPayload)

	byWire, ok := s.PropertyByExternalName("created_at")
	require.True(t, ok)
	assert.Equal(t, "createdAt", byWire.Name)

	names := make([]string, 0)
	for _, rel := range s.Relationships() {
		names = append(names, rel.Name)
	}
	assert.Equal(t, []string{"car", "posts"}, names)

	h, ok := s.Property("etag")
	require.True(t, ok)
	assert.Equal(t, KindHeaderAttribute, h.Kind)
}

func TestBuilder_Errors(t *testing.T) {
	_, err := New("user").Attribute("name").Attribute("name").Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declared twice")

	_, err = New("user").HasOne("car", "").Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must name a model type")

	_, err = New("").Build()
	require.Error(t, err)

	assert.Panics(t, func() { New("").MustBuild() })
}

func TestRegistry_Inheritance(t *testing.T) {
	reg := NewRegistry()
	base := New("resource").
		Endpoint("resources").
		Param("lang", "en").
		Attribute("name").
		Attribute("title", External("heading")).
		MustBuild()
	child := New("article").
		Extends("resource").
		Endpoint("articles").
		Attribute("title", External("headline")).
		Attribute("body").
		MustBuild()

	require.NoError(t, reg.Register(base))
	require.NoError(t, reg.Register(child))

	resolved, err := reg.Get("article")
	require.NoError(t, err)

	assert.Equal(t, "articles", resolved.Endpoint())
	assert.Equal(t, map[string]string{"lang": "en"}, resolved.Params())

	title, ok := resolved.Property("title")
	require.True(t, ok)
	assert.Equal(t, "headline", title.ExternalName)

	_, ok = resolved.PropertyByExternalName("heading")
	assert.False(t, ok, "overridden wire name must not linger")

	_, ok = resolved.Property("name")
	assert.True(t, ok)

	var order []string
	for _, p := range resolved.Properties() {
		order = append(order, p.Name)
	}
	assert.Equal(t, []string{"name", "title", "body"}, order)

	// Parent is untouched
	parent, err := reg.Get("resource")
	require.NoError(t, err)
	_, ok = parent.Property("body")
	assert.False(t, ok)
}

func TestRegistry_Errors(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(New("user").MustBuild()))

	err := reg.Register(New("user").MustBuild())
	assert.Error(t, err)

	err = reg.Register(New("admin").Extends("missing").MustBuild())
	assert.ErrorIs(t, err, ErrModelNotRegistered)

	_, err = reg.Get("ghost")
	require.ErrorIs(t, err, ErrModelNotRegistered)
	assert.True(t, strings.Contains(err.Error(), `"ghost"`))
	assert.Contains(t, err.Error(), "register it")

	assert.Equal(t, []string{"user"}, reg.Types())
}

func TestRegistry_SelectByAttribute(t *testing.T) {
	reg := NewRegistry()
	animal := New("animal").Attribute("kind").MustBuild()
	reg.MustRegister(animal, New("dog").Extends("animal").MustBuild())

	sel := reg.SelectByAttribute("kind", animal)

	res, err := hal.Parse([]byte(`{"kind": "dog"}`))
	require.NoError(t, err)
	s, err := sel(res)
	require.NoError(t, err)
	assert.Equal(t, "dog", s.Type())

	res, err = hal.Parse([]byte(`{"name": "x"}`))
	require.NoError(t, err)
	s, err = sel(res)
	require.NoError(t, err)
	assert.Equal(t, "animal", s.Type())

	res, err = hal.Parse([]byte(`{"kind": "cat"}`))
	require.NoError(t, err)
	_, err = sel(res)
	assert.ErrorIs(t, err, ErrModelNotRegistered)
}

func TestParsePropertyKind(t *testing.T) {
	for _, k := range []PropertyKind{KindAttribute, KindHasOne, KindHasMany, KindLink, KindHeaderAttribute} {
		parsed, err := ParsePropertyKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	_, err := ParsePropertyKind("belongs_to")
	assert.Error(t, err)
}
