package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeText(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"  Café   São-Paulo!! ": "cafe saopaulo",
		"Straße 12":             "strasse 12",
		"UBER *EATS\tSUSHI":     "uber eats sushi",
		"Ærø":                   "aero",
		"$$$":                   "",
	}
	for in, want := range cases {
		require.Equal(t, want, NormalizeText(in), in)
	}
}

func TestSimilarText(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0.0, SimilarText("", "coffee"))
	require.Equal(t, 0.0, SimilarText("coffee", ""))
	require.Equal(t, 100.0, SimilarText("coffee", "coffee"))
	require.InDelta(t, 88.888, SimilarText("World", "Word"), 0.01)
	require.Equal(t, 0.0, SimilarText("abc", "xyz"))
	require.Equal(t, SimilarText("netflix com", "netflix"), SimilarText("netflix", "netflix com"))
}

func TestLevenshteinSimilarity(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0.0, LevenshteinSimilarity("", "a"))
	require.Equal(t, 100.0, LevenshteinSimilarity("spotify", "spotify"))
	require.InDelta(t, 57.14, LevenshteinSimilarity("kitten", "sitting"), 0.01)
}

func TestSimilarityByName(t *testing.T) {
	t.Parallel()

	require.InDelta(t, 57.14, SimilarityByName(" Levenshtein ")("kitten", "sitting"), 0.01)
	require.InDelta(t, 88.888, SimilarityByName("similar_text")("World", "Word"), 0.01)
	require.InDelta(t, 88.888, SimilarityByName("unknown")("World", "Word"), 0.01)
}
