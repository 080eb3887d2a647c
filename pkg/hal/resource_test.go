package hal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userDoc = `{
	"name": "john",
	"age": 42,
	"address": {"city": "Zagreb"},
	"_links": {
		"self": {"href": "http://api.test/users/1"},
		"posts": {"href": "http://api.test/users/1/posts{?page}", "templated": true}
	},
	"_embedded": {
		"car": {"brand": "vw", "_links": {"self": {"href": "http://api.test/cars/7"}}}
	}
}`

func TestParse_SingleResource(t *testing.T) {
	res, err := Parse([]byte(userDoc))
	require.NoError(t, err)

	assert.Equal(t, "http://api.test/users/1", res.SelfLink())
	assert.Equal(t, "john", res.Attributes["name"])
	assert.Equal(t, float64(42), res.Attributes["age"])
	assert.Equal(t, map[string]interface{}{"city": "Zagreb"}, res.Attributes["address"])

	posts, ok := res.Link("posts")
	require.True(t, ok)
	assert.True(t, posts.Templated)

	car, ok := res.EmbeddedOne("car")
	require.True(t, ok)
	assert.Equal(t, "http://api.test/cars/7", car.SelfLink())
	assert.Equal(t, "vw", car.Attributes["brand"])

	assert.NotContains(t, res.Attributes, LinksKey)
	assert.NotContains(t, res.Attributes, EmbeddedKey)
	assert.JSONEq(t, userDoc, string(res.Raw()))
}

func TestParse_Collection(t *testing.T) {
	doc := `{
		"_links": {
			"self": {"href": "http://api.test/users?page=0"},
			"users": [{"href": "http://api.test/users/1"}, {"href": "http://api.test/users/2"}]
		},
		"_embedded": {
			"users": [
				{"name": "a", "_links": {"self": {"href": "http://api.test/users/1"}}},
				{"name": "b", "_links": {"self": {"href": "http://api.test/users/2"}}}
			]
		},
		"page": {"size": 2, "totalElements": 10, "totalPages": 5, "number": 0}
	}`

	res, err := Parse([]byte(doc))
	require.NoError(t, err)

	rel, ok := res.ListRelation()
	require.True(t, ok)
	assert.Equal(t, "users", rel)

	items, ok := res.EmbeddedMany(rel)
	require.True(t, ok)
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[1].Attributes["name"])

	require.NotNil(t, res.Page)
	assert.Equal(t, 10, res.Page.TotalElements)
	assert.Equal(t, 5, res.Page.TotalPages)
}

func TestListRelation_FallsBackToEmbedded(t *testing.T) {
	res, err := Parse([]byte(`{"_embedded": {"items": [{"id": 1}]}}`))
	require.NoError(t, err)

	rel, ok := res.ListRelation()
	require.True(t, ok)
	assert.Equal(t, "items", rel)
}

func TestListRelation_None(t *testing.T) {
	res, err := Parse([]byte(`{"_links": {"self": {"href": "/x"}}}`))
	require.NoError(t, err)

	_, ok := res.ListRelation()
	assert.False(t, ok)

	items, ok := res.EmbeddedMany("anything")
	assert.False(t, ok)
	assert.Empty(t, items)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse(nil)
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = Parse([]byte("  "))
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = Parse([]byte(`[1,2]`))
	assert.ErrorIs(t, err, ErrMalformedDocument)

	_, err = Parse([]byte(`{"_links": {"self": 5}}`))
	assert.ErrorIs(t, err, ErrMalformedDocument)
}

func TestParse_NonPaginationPageAttribute(t *testing.T) {
	res, err := Parse([]byte(`{"page": "cover"}`))
	require.NoError(t, err)
	assert.Nil(t, res.Page)
	assert.Equal(t, "cover", res.Attributes["page"])
}

func TestFromValue(t *testing.T) {
	res, err := FromValue(map[string]interface{}{"city": "Split"})
	require.NoError(t, err)
	assert.Equal(t, "Split", res.Attributes["city"])
	assert.Empty(t, res.SelfLink())
}
