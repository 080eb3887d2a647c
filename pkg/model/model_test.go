package model

import (
	"net/http"
	"strings"
	"testing"

	"github.com/conduit-lang/halstore/pkg/hal"
	"github.com/conduit-lang/halstore/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapLookup map[string]Entity

func (l mapLookup) Get(id string) (Entity, bool) {
	e, ok := l[id]
	return e, ok
}

func userSchema() *schema.ModelSchema {
	return schema.New("user").
		Endpoint("users").
		Attribute("name").
		Attribute("email", schema.TransformBeforeSave(func(v interface{}) interface{} {
			s, _ := v.(string)
			return strings.ToLower(s)
		})).
		Attribute("createdAt", schema.External("created_at"), schema.ExcludeFromPayload()).
		Attribute("nickname", schema.Transform(func(v interface{}) interface{} {
			s, _ := v.(string)
			return strings.ToUpper(s)
		})).
		HeaderAttribute("version", schema.External("X-Version")).
		HasOne("car", "car", schema.IncludeInPayload()).
		HasMany("posts", "post").
		MustBuild()
}

func carSchema() *schema.ModelSchema {
	return schema.New("car").Endpoint("cars").Attribute("brand").MustBuild()
}

func parse(t *testing.T, doc string) *hal.Resource {
	t.Helper()
	res, err := hal.Parse([]byte(doc))
	require.NoError(t, err)
	return res
}

func TestModel_UniqueIdentifierLifecycle(t *testing.T) {
	m := New(userSchema(), nil)

	synthetic := m.UniqueIdentifier()
	require.NotEmpty(t, synthetic)
	assert.True(t, strings.HasPrefix(synthetic, SyntheticPrefix))
	assert.Equal(t, synthetic, m.UniqueIdentifier(), "identifier is stable")
	assert.False(t, m.IsPersisted())

	previous, changed := m.AssignSelfLink("http://x/1")
	assert.True(t, changed)
	assert.Equal(t, synthetic, previous)
	assert.Equal(t, "http://x/1", m.UniqueIdentifier())

	previous, changed = m.AssignSelfLink("http://x/2")
	assert.False(t, changed, "identity changes exactly once")
	assert.Equal(t, "http://x/1", previous)
	assert.Equal(t, "http://x/1", m.UniqueIdentifier())
}

func TestModel_AssignEmptySelfLink(t *testing.T) {
	m := New(userSchema(), nil)
	_, changed := m.AssignSelfLink("")
	assert.False(t, changed)
	assert.False(t, m.IsPersisted())
}

func TestModel_Populate(t *testing.T) {
	m := New(userSchema(), nil)
	header := http.Header{}
	header.Set("X-Version", "7")

	err := m.Populate(parse(t, `{
		"name": "john",
		"created_at": "2024-01-01",
		"nickname": "jo",
		"_links": {"self": {"href": "http://api.test/users/1"}}
	}`), header, nil)
	require.NoError(t, err)

	assert.Equal(t, "http://api.test/users/1", m.UniqueIdentifier())
	assert.Equal(t, "john", m.GetString("name"))
	assert.Equal(t, "2024-01-01", m.Get("createdAt"))
	assert.Equal(t, "JO", m.Get("nickname"))
	assert.Equal(t, "7", m.Get("version"))
	assert.False(t, m.Changed("name"))
}

func TestModel_PopulateBoxed(t *testing.T) {
	s := schema.New("user").Attribute("address", schema.Boxed("address")).MustBuild()
	m := New(s, nil)

	var boxedType string
	err := m.Populate(parse(t, `{"address": {"city": "Zagreb"}}`), nil, func(modelType string, v interface{}) (interface{}, error) {
		boxedType = modelType
		return "boxed:" + v.(map[string]interface{})["city"].(string), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "address", boxedType)
	assert.Equal(t, "boxed:Zagreb", m.Get("address"))
}

func TestModel_Set(t *testing.T) {
	m := New(userSchema(), nil)

	require.NoError(t, m.Set("name", "john"))
	assert.Equal(t, "john", m.Get("name"))

	assert.ErrorIs(t, m.Set("missing", 1), ErrUnknownProperty)
	assert.ErrorIs(t, m.Set("car", 1), ErrNotAttribute)
}

func TestModel_InSync(t *testing.T) {
	m := New(userSchema(), nil)
	doc := `{"name": "john", "_links": {"self": {"href": "http://api.test/users/1"}}}`
	require.NoError(t, m.Populate(parse(t, doc), nil, nil))
	assert.True(t, m.InSync())

	require.NoError(t, m.Set("name", "jane"))
	assert.False(t, m.InSync())

	m.MarkSaved()
	assert.False(t, m.InSync(), "saved values are not in the backing resource")

	require.NoError(t, m.Populate(parse(t, doc), nil, nil))
	assert.True(t, m.InSync())
	assert.Equal(t, "john", m.GetString("name"))

	m.MarkSaved()
	assert.True(t, m.InSync(), "saving without changes keeps the model in sync")
}

func TestModel_PartialUpdatePayload(t *testing.T) {
	m := NewWithData(userSchema(), nil, map[string]interface{}{"name": "john"})

	assert.Empty(t, m.ChangedPayload())

	require.NoError(t, m.Set("name", "john updated"))
	assert.Equal(t, map[string]interface{}{"name": "john updated"}, m.ChangedPayload())

	m.MarkSaved()
	assert.Empty(t, m.ChangedPayload())

	require.NoError(t, m.Set("name", "john"))
	assert.Equal(t, map[string]interface{}{"name": "john"}, m.ChangedPayload())
}

func TestModel_ChangedPayloadFieldSubset(t *testing.T) {
	m := NewWithData(userSchema(), nil, map[string]interface{}{"name": "john", "nickname": "jo"})
	require.NoError(t, m.Set("name", "jane"))
	require.NoError(t, m.Set("nickname", "ja"))

	assert.Equal(t, map[string]interface{}{"nickname": "ja"}, m.ChangedPayload("nickname"))
	assert.Empty(t, m.ChangedPayload("email"), "unchanged field in subset yields an empty payload")
}

func TestModel_PayloadExclusionsAndTransforms(t *testing.T) {
	m := NewWithData(userSchema(), nil, map[string]interface{}{
		"name":      "john",
		"email":     "John@Example.COM",
		"createdAt": "2024-01-01",
	})

	payload := m.Payload()
	assert.Equal(t, "john", payload["name"])
	assert.Equal(t, "john@example.com", payload["email"])
	assert.NotContains(t, payload, "created_at")
	assert.NotContains(t, payload, "createdAt")
}

func TestModel_PayloadRelations(t *testing.T) {
	lookup := mapLookup{}
	user := New(userSchema(), lookup)
	car := New(carSchema(), lookup)
	car.AssignSelfLink("http://api.test/cars/7")

	require.NoError(t, user.SetRelationship("car", One(car)))

	payload := user.Payload()
	assert.Equal(t, map[string]interface{}{"href": "http://api.test/cars/7"}, payload["car"])
	assert.NotContains(t, payload, "posts", "relations not flagged for payload are omitted")

	assert.Equal(t, map[string]interface{}{"car": map[string]interface{}{"href": "http://api.test/cars/7"}},
		user.ChangedPayload())

	user.MarkSaved()
	assert.Empty(t, user.ChangedPayload())
}

func TestModel_GetRelationshipThroughLookup(t *testing.T) {
	lookup := mapLookup{}
	user := New(userSchema(), lookup)
	require.NoError(t, user.Populate(parse(t, `{
		"_links": {
			"self": {"href": "http://api.test/users/1"},
			"car": {"href": "http://api.test/cars/7"},
			"posts": {"href": "http://api.test/users/1/posts"}
		}
	}`), nil, nil))

	_, ok := user.GetRelationship("car")
	assert.False(t, ok, "nothing cached yet")

	car := New(carSchema(), lookup)
	car.AssignSelfLink("http://api.test/cars/7")
	lookup[car.UniqueIdentifier()] = car

	rel, ok := user.GetRelationship("car")
	require.True(t, ok)
	assert.Same(t, car, rel.Model())
	assert.False(t, rel.IsMany())

	doc := NewDocument("post", "http://api.test/users/1/posts?page=0", nil, nil, nil)
	lookup[doc.UniqueIdentifier()] = doc

	_, ok = user.GetRelationship("posts")
	assert.False(t, ok, "link href differs from the document key")

	user.RecordRelationKey("posts", doc.UniqueIdentifier())
	rel, ok = user.GetRelationship("posts")
	require.True(t, ok)
	assert.Same(t, doc, rel.Document())

	_, ok = user.GetRelationship("name")
	assert.False(t, ok)
}

func TestModel_SetRelationshipErrors(t *testing.T) {
	user := New(userSchema(), nil)
	car := New(carSchema(), nil)

	assert.ErrorIs(t, user.SetRelationship("missing", One(car)), ErrUnknownProperty)
	assert.ErrorIs(t, user.SetRelationship("name", One(car)), ErrNotRelationship)
	assert.ErrorIs(t, user.SetRelationship("posts", One(car)), ErrRelationshipMismatch)
}

func TestModel_LinkAndEmbedded(t *testing.T) {
	s := schema.New("user").HasOne("vehicle", "car", schema.External("car")).MustBuild()
	m := New(s, nil)
	assert.Empty(t, m.Link("vehicle"))
	assert.False(t, m.HasEmbedded("vehicle"))

	require.NoError(t, m.Populate(parse(t, `{
		"_links": {"car": {"href": "http://api.test/cars/1"}},
		"_embedded": {"car": {"brand": "vw"}}
	}`), nil, nil))

	assert.Equal(t, "http://api.test/cars/1", m.Link("vehicle"))
	assert.True(t, m.HasEmbedded("vehicle"))
	assert.False(t, m.HasEmbedded("unknown"))
}

func TestDocumentAndPagination(t *testing.T) {
	p := NewPagination(&hal.Page{Size: 2, TotalElements: 5, TotalPages: 3, Number: 1})
	require.NotNil(t, p)
	assert.Equal(t, 1, p.CurrentPage())
	assert.Equal(t, 2, p.PageSize())
	assert.Equal(t, 5, p.TotalItems())
	assert.Equal(t, 3, p.TotalPages())
	assert.True(t, p.HasNext())
	assert.Nil(t, NewPagination(nil))

	a := New(carSchema(), nil)
	doc := NewDocument("car", "http://api.test/cars", []*Model{a}, p, nil)
	assert.Equal(t, 1, doc.Len())
	assert.Equal(t, "car", doc.Type())

	models := doc.Models()
	models[0] = nil
	assert.NotNil(t, doc.Models()[0], "Models returns a copy")

	rel := Many(doc)
	assert.True(t, rel.IsMany())
	assert.Equal(t, Entity(doc), rel.Entity())
	assert.True(t, Relationship{}.IsZero())
	assert.Nil(t, Relationship{}.Entity())
}
