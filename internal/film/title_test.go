package film_test

import (
	"testing"

	"cinefuse/internal/film"
)

func TestTitlesMatch(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"Heat", "heat", true},
		{"The  Matrix", "the matrix", true},
		{"Léon", "LÉON", true},
		{"Heat", "Heat 2", false},
		{"", "Heat", false},
		{"", "", false},
	}
	for _, tc := range cases {
		if got := film.TitlesMatch(tc.a, tc.b); got != tc.want {
			t.Errorf("TitlesMatch(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestSanitizeSearchTitle(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Heat (1995)", "Heat"},
		{"Solaris (TV) (restored)", "Solaris"},
		{"Good Will Hunting", "Good Will Hunting"},
		{"Amélie: le fabuleux destin!", "Amélie le fabuleux destin"},
		{"Mad Max - Fury Road", "Mad Max Fury Road"},
		{"  (annotation only)  ", ""},
	}
	for _, tc := range cases {
		if got := film.SanitizeSearchTitle(tc.in); got != tc.want {
			t.Errorf("SanitizeSearchTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
