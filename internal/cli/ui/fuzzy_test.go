package ui

import (
	"reflect"
	"testing"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"user", "user", 0},
		{"usr", "user", 1},
		{"", "car", 3},
		{"kitten", "sitting", 3},
		{"über", "uber", 1},
	}

	for _, tt := range tests {
		if got := Distance(tt.a, tt.b); got != tt.want {
			t.Errorf("Distance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSuggest(t *testing.T) {
	candidates := []string{"user", "users", "car", "post", "address"}

	tests := []struct {
		name   string
		target string
		want   []string
	}{
		{"typo", "uesr", []string{"user"}},
		{"plural", "posts", []string{"post"}},
		{"case", "CAR", nil},
		{"prefix", "add", []string{"address"}},
		{"nothing close", "warehouse", nil},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Suggest(tt.target, candidates, 2)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Suggest(%q) = %v, want %v", tt.target, got, tt.want)
			}
		})
	}
}

func TestSuggestLimit(t *testing.T) {
	got := Suggest("a", []string{"ab", "ac", "ad", "ae"}, 1)
	if len(got) != MaxSuggestions {
		t.Fatalf("expected %d suggestions, got %v", MaxSuggestions, got)
	}
	if got[0] != "ab" {
		t.Errorf("expected alphabetical tie break, got %v", got)
	}
}
