package urlbuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoin(t *testing.T) {
	tests := []struct {
		name     string
		segments []string
		want     string
	}{
		{"simple", []string{"http://x", "users"}, "http://x/users"},
		{"extra slashes", []string{"http://x/", "/api/", "/users"}, "http://x/api/users"},
		{"empty segments", []string{"http://x", "", "users", ""}, "http://x/users"},
		{"with id", []string{"http://x/api", "users", "1"}, "http://x/api/users/1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Join(tt.segments...))
		})
	}
}

func TestHostURL(t *testing.T) {
	assert.Equal(t, "http://x/api", HostURL("http://x", "api", "", ""))
	assert.Equal(t, "http://y/api", HostURL("http://x", "api", "http://y", ""))
	assert.Equal(t, "http://x/v2", HostURL("http://x", "api", "", "v2"))
}

func TestResource(t *testing.T) {
	assert.Equal(t, "http://x/api/users", Resource("http://x/api", "users", ""))
	assert.Equal(t, "http://x/api/users/1", Resource("http://x/api", "users", "1"))
	assert.Equal(t, "http://other/users/1", Resource("http://x/api", "users", "http://other/users/1"))
}

func TestExpand(t *testing.T) {
	expanded, remaining, err := Expand("http://x/users{?page,size}", map[string]string{
		"page": "1",
		"sort": "name",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://x/users?page=1", expanded, "unfilled variables vanish")
	assert.Equal(t, map[string]string{"sort": "name"}, remaining)
}

func TestExpand_PathVariable(t *testing.T) {
	expanded, remaining, err := Expand("http://x/users/{id}/posts", map[string]string{"id": "42"})
	require.NoError(t, err)
	assert.Equal(t, "http://x/users/42/posts", expanded)
	assert.Empty(t, remaining)
}

func TestExpand_NoTemplate(t *testing.T) {
	params := map[string]string{"a": "1"}
	expanded, remaining, err := Expand("http://x/users", params)
	require.NoError(t, err)
	assert.Equal(t, "http://x/users", expanded)
	assert.Equal(t, params, remaining)

	remaining["b"] = "2"
	assert.NotContains(t, params, "b", "remaining is a copy")
}

func TestExpand_Invalid(t *testing.T) {
	_, _, err := Expand("http://x/users{?page", nil)
	assert.Error(t, err)
}

func TestMergeParams(t *testing.T) {
	merged := MergeParams(
		map[string]string{"size": "20", "sort": "id"},
		map[string]string{"sort": "name"},
		nil,
		map[string]string{"page": "2"},
	)
	assert.Equal(t, map[string]string{"size": "20", "sort": "name", "page": "2"}, merged)
}

func TestNormalize_OrderIndependent(t *testing.T) {
	a := Normalize("http://x/users", map[string]string{"size": "20", "page": "1"})
	b := Normalize("http://x/users?size=20", map[string]string{"page": "1"})
	c := Normalize("http://x/users?page=1&size=20", nil)

	assert.Equal(t, "http://x/users?page=1&size=20", a)
	assert.Equal(t, a, b)
	assert.Equal(t, a, c)
}

func TestNormalize_DuplicatesCollapse(t *testing.T) {
	assert.Equal(t, "http://x/users?page=2", Normalize("http://x/users?page=1&page=2", nil))
	assert.Equal(t, "http://x/users?page=3", Normalize("http://x/users?page=1", map[string]string{"page": "3"}))
}

func TestNormalize_MalformedEncodingKeepsRaw(t *testing.T) {
	params := ParseQuery("q=%zz&name=j%C3%B6rg")
	assert.Equal(t, "%zz", params["q"])
	assert.Equal(t, "jörg", params["name"])

	assert.NotPanics(t, func() {
		Normalize("http://x/users?q=%zz", nil)
	})
}

func TestNormalize_NoParams(t *testing.T) {
	assert.Equal(t, "http://x/users", Normalize("http://x/users", nil))
	assert.Equal(t, "http://x/users", Normalize("http://x/users?", nil))
}

func TestEncode(t *testing.T) {
	assert.Equal(t, "", Encode(nil))
	assert.Equal(t, "a=1&b=x+y&c=%26", Encode(map[string]string{"c": "&", "a": "1", "b": "x y"}))
}
