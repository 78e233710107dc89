package dictation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeduplicate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"only delimiters", " , . ; ", ""},
		{"single phrase", "hello world", "hello world."},
		{"adjacent repeat", "hello, hello, world", "hello, world."},
		{"case and spacing", "Hello There. hello   there! World", "Hello There, World."},
		{"repeat after other phrase kept", "a, b, a", "a, b, a."},
		{"empty phrases skipped", "one,, ,two", "one, two."},
		{"mixed delimiters", "stop; stop? go!", "stop, go."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Deduplicate(tt.in))
		})
	}
}

func TestDeduplicateIsIdempotent(t *testing.T) {
	inputs := []string{
		"hello, hello, world",
		"The quick fox. the QUICK fox; jumped",
		"a, b, a, a, b",
		"checking one two checking one two",
		"",
	}

	for _, in := range inputs {
		once := Deduplicate(in)
		assert.Equal(t, once, Deduplicate(once), "input %q", in)
	}
}

func TestPartialResultsRejectsRepeatOfLastAppended(t *testing.T) {
	var results partialResults

	assert.True(t, results.add(PartialResult{Sequence: 0, Text: "checking one two"}))
	assert.False(t, results.add(PartialResult{Sequence: 1, Text: "Checking  one TWO "}))
	assert.True(t, results.add(PartialResult{Sequence: 2, Text: "something else"}))
	assert.True(t, results.add(PartialResult{Sequence: 3, Text: "checking one two"}))

	results.seal()
	assert.False(t, results.add(PartialResult{Sequence: 4, Text: "late"}))
	assert.Equal(t, 3, results.len())
}

func TestPartialResultsSortedBySequence(t *testing.T) {
	var results partialResults
	results.add(PartialResult{Sequence: 2, Text: "c"})
	results.add(PartialResult{Sequence: 0, Text: "a"})
	results.add(PartialResult{Sequence: 1, Text: "b"})

	sorted := results.sorted()
	assert.Equal(t, "a b c", joinResults(sorted))

	results.clear()
	assert.Zero(t, results.len())
}
