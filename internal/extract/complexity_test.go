package extract

import (
	"strings"
	"testing"
)

func TestIsComplexEpisode(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        bool
	}{
		{
			name:        "long description with no signals",
			description: strings.Repeat("a", 900),
			want:        true,
		},
		{
			name:        "short single-book episode",
			description: "Short one-book episode about The Lean Startup by Eric Ries.",
			want:        false,
		},
		{
			name:        "multiple books signal",
			description: "We cover multiple books in this one.",
			want:        true,
		},
		{
			name:        "part N signal",
			description: "The life of John D. Rockefeller, part 2.",
			want:        true,
		},
		{
			name:        "author interview signal",
			description: "An interview with the author about her new novel.",
			want:        true,
		},
		{
			name:        "recommended reading signal",
			description: "Plus our recommended reading for the summer.",
			want:        true,
		},
		{
			name:        "exactly at threshold is not complex",
			description: strings.Repeat("b", 800),
			want:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsComplexEpisode(tt.description, 0); got != tt.want {
				t.Errorf("IsComplexEpisode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsComplexEpisode_CustomThreshold(t *testing.T) {
	desc := strings.Repeat("c", 100)
	if IsComplexEpisode(desc, 200) {
		t.Error("description under custom threshold should not be complex")
	}
	if !IsComplexEpisode(desc, 50) {
		t.Error("description over custom threshold should be complex")
	}
}
