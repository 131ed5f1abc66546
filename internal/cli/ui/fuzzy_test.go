package ui

import (
	"reflect"
	"testing"
)

var directiveNames = []string{
	"register", "factory", "retry", "cache", "breaker", "timed", "intercept",
}

func TestFindSimilarTypo(t *testing.T) {
	tests := []struct {
		word string
		want []string
	}{
		{"registr", []string{"register"}},
		{"retyr", []string{"retry"}},
		{"cach", []string{"cache"}},
		{"breakr", []string{"breaker"}},
		{"timd", []string{"timed"}},
	}

	for _, tt := range tests {
		got := FindSimilar(tt.word, directiveNames)
		if len(got) == 0 || got[0] != tt.want[0] {
			t.Errorf("FindSimilar(%q) = %v, want %v first", tt.word, got, tt.want)
		}
	}
}

func TestFindSimilarIgnoresCase(t *testing.T) {
	got := FindSimilar("Register", directiveNames)
	if len(got) == 0 || got[0] != "register" {
		t.Errorf("FindSimilar(Register) = %v, want register first", got)
	}
}

func TestFindSimilarNoCloseMatch(t *testing.T) {
	got := FindSimilar("transactional", directiveNames)
	if len(got) != 0 {
		t.Errorf("FindSimilar(transactional) = %v, want none", got)
	}
}

func TestFindSimilarOrdersByDistance(t *testing.T) {
	candidates := []string{"maxDelay", "baseDelay", "maxAttempts"}
	got := FindSimilar("maxDela", candidates)
	if len(got) == 0 || got[0] != "maxDelay" {
		t.Errorf("FindSimilar(maxDela) = %v, want maxDelay first", got)
	}
}

func TestFindSimilarCapsSuggestions(t *testing.T) {
	candidates := []string{"cache", "cache", "cacho", "cach", "catch"}
	got := FindSimilar("cache", candidates)
	if len(got) != 3 {
		t.Errorf("FindSimilar should cap at 3 suggestions, got %v", got)
	}
}

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"retry", "retry", 0},
		{"retry", "", 5},
		{"", "cache", 5},
		{"retry", "retyr", 2},
		{"register", "registr", 1},
		{"breaker", "broker", 2},
		{"timed", "cached", 4},
	}

	for _, tt := range tests {
		if got := editDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("editDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestEditDistanceSymmetry(t *testing.T) {
	pairs := [][2]string{{"retry", "register"}, {"cache", "breaker"}, {"timed", "intercept"}}
	for _, p := range pairs {
		if editDistance(p[0], p[1]) != editDistance(p[1], p[0]) {
			t.Errorf("editDistance(%q, %q) not symmetric", p[0], p[1])
		}
	}
}

func TestFindSimilarReturnsEmptyNotNilSemantics(t *testing.T) {
	got := FindSimilar("register", []string{"register"})
	if !reflect.DeepEqual(got, []string{"register"}) {
		t.Errorf("Exact match should still be suggested, got %v", got)
	}
}
