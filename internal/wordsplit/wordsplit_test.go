package wordsplit

import (
	"reflect"
	"testing"
)

func TestJoinThenSplitRoundTrips(t *testing.T) {
	cases := [][]string{
		{"plain"},
		{"with space", "arg"},
		{"quote's", `back\slash`, "dollar$sign"},
		{""},
		{"/usr/bin/env", "python3", "-u"},
	}
	for _, words := range cases {
		joined := Join(words)
		got, err := Split(joined)
		if err != nil {
			t.Fatalf("Split(%q) error: %v", joined, err)
		}
		if !reflect.DeepEqual(got, words) {
			t.Errorf("Join/Split round trip: got %#v, want %#v (joined %q)", got, words, joined)
		}
	}
}

func TestSplitRejectsUnbalancedQuotes(t *testing.T) {
	if _, err := Split(`"unterminated`); err == nil {
		t.Fatal("Split with an unterminated quote returned nil error")
	}
}
