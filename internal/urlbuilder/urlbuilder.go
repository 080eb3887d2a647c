// Package urlbuilder builds canonical request URLs: host and endpoint joining, URI
// template expansion and sorted query serialization used as the cache key.
package urlbuilder

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/yosida95/uritemplate/v3"
)

// Join concatenates URL segments with exactly one slash between them, skipping empty ones
func Join(segments ...string) string {
	var parts []string
	for i, s := range segments {
		if s == "" {
			continue
		}
		if len(parts) > 0 {
			s = strings.TrimLeft(s, "/")
		}
		if i < len(segments)-1 {
			s = strings.TrimRight(s, "/")
		}
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

// HostURL merges a base URL and an API endpoint prefix, each replaced by its override
// when the override is set
func HostURL(baseURL, apiEndpoint, baseOverride, endpointOverride string) string {
	if baseOverride != "" {
		baseURL = baseOverride
	}
	if endpointOverride != "" {
		apiEndpoint = endpointOverride
	}
	return Join(baseURL, apiEndpoint)
}

// Resource builds hostURL/endpoint[/id]. An id that is already absolute is returned as is.
func Resource(hostURL, endpoint, id string) string {
	if isAbsolute(id) {
		return id
	}
	return Join(hostURL, endpoint, id)
}

// Expand expands the URI template in rawURL against params. Variables without a value
// are dropped. It returns the expanded URL and the params the template did not consume.
func Expand(rawURL string, params map[string]string) (string, map[string]string, error) {
	remaining := make(map[string]string, len(params))
	for k, v := range params {
		remaining[k] = v
	}
	if !strings.ContainsAny(rawURL, "{}") {
		return rawURL, remaining, nil
	}

	tmpl, err := uritemplate.New(rawURL)
	if err != nil {
		return "", nil, fmt.Errorf("invalid URI template %q: %w", rawURL, err)
	}

	values := uritemplate.Values{}
	for _, name := range tmpl.Varnames() {
		v, ok := params[name]
		if !ok {
			continue
		}
		values.Set(name, uritemplate.String(v))
		delete(remaining, name)
	}

	expanded, err := tmpl.Expand(values)
	if err != nil {
		return "", nil, fmt.Errorf("failed to expand URI template %q: %w", rawURL, err)
	}
	return expanded, remaining, nil
}

// MergeParams layers parameter sets, later tiers winning
func MergeParams(tiers ...map[string]string) map[string]string {
	merged := make(map[string]string)
	for _, tier := range tiers {
		for k, v := range tier {
			merged[k] = v
		}
	}
	return merged
}

// Normalize merges params into the query of rawURL and serializes the query in sorted
// key order, one value per key, later values winning. Query components that fail to
// decode are kept raw.
func Normalize(rawURL string, params map[string]string) string {
	base, query, _ := strings.Cut(rawURL, "?")
	base, fragment, hasFragment := strings.Cut(base, "#")
	if i := strings.Index(query, "#"); i >= 0 {
		query, fragment, hasFragment = query[:i], query[i+1:], true
	}

	merged := ParseQuery(query)
	for k, v := range params {
		merged[k] = v
	}

	result := base
	if encoded := Encode(merged); encoded != "" {
		result += "?" + encoded
	}
	if hasFragment {
		result += "#" + fragment
	}
	return result
}

// ParseQuery decodes a raw query string. The last occurrence of a key wins.
func ParseQuery(query string) map[string]string {
	params := make(map[string]string)
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		params[unescape(key)] = unescape(value)
	}
	return params
}

// Encode serializes params sorted by key
func Encode(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[k]))
	}
	return b.String()
}

func unescape(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

func isAbsolute(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
