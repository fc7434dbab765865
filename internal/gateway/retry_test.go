package gateway

import (
	"strings"
	"testing"
	"time"
)

func TestRetryWaitScalesWithAttempt(t *testing.T) {
	g := &Gateway{backoff: time.Second}
	cases := []struct {
		name    string
		kind    Kind
		attempt int
		want    time.Duration
	}{
		{"server error first attempt", KindServerError, 1, time.Second},
		{"server error third attempt", KindServerError, 3, 3 * time.Second},
		{"transport second attempt", KindTransport, 2, 2 * time.Second},
		{"parse second attempt", KindParse, 2, 2 * time.Second},
		{"rate limited first attempt", KindRateLimited, 1, 2 * time.Second},
		{"rate limited second attempt", KindRateLimited, 2, 4 * time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := g.retryWait(tc.kind, tc.attempt); got != tc.want {
				t.Fatalf("retryWait(%s, %d) = %v, want %v", tc.kind, tc.attempt, got, tc.want)
			}
		})
	}
}

func TestBodySnippetTruncatesAndTrims(t *testing.T) {
	if got := bodySnippet([]byte("  \n")); got != "empty body" {
		t.Fatalf("expected empty-body placeholder, got %q", got)
	}
	long := strings.Repeat("x", 500)
	if got := bodySnippet([]byte(long)); len(got) != 200 {
		t.Fatalf("expected 200-char snippet, got %d chars", len(got))
	}
	if got := bodySnippet([]byte(`{"ok":true}`)); got != `{"ok":true}` {
		t.Fatalf("short bodies should pass through, got %q", got)
	}
}
