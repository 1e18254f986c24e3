package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitText_ShortInputSingleChunk(t *testing.T) {
	got := SplitText("Check the oil level.", 1000, 200)
	require.Equal(t, []string{"Check the oil level."}, got)
}

func TestSplitText_RespectsSizeLimit(t *testing.T) {
	text := strings.Repeat("word ", 400)
	got := SplitText(text, 100, 20)
	require.NotEmpty(t, got)
	for _, chunk := range got {
		require.LessOrEqual(t, len([]rune(chunk)), 100)
	}
}

func TestSplitText_CutsAtSentenceBoundary(t *testing.T) {
	text := "First sentence here. Second sentence follows after. Third one closes the paragraph."
	got := SplitText(text, 30, 5)
	require.NotEmpty(t, got)
	// every chunk except possibly the last ends at a period
	for _, chunk := range got[:len(got)-1] {
		require.True(t, strings.HasSuffix(chunk, "."), "chunk %q does not end at a sentence", chunk)
	}
}

func TestSplitText_OverlapRepeatsContent(t *testing.T) {
	text := strings.Repeat("abcdefghij", 30)
	got := SplitText(text, 100, 20)
	require.Greater(t, len(got), 1)
	for i := 1; i < len(got); i++ {
		prevTail := got[i-1][len(got[i-1])-10:]
		require.Contains(t, got[i], prevTail)
	}
}

func TestSplitText_EmptyAndDegenerateInputs(t *testing.T) {
	require.Empty(t, SplitText("", 100, 20))
	require.Empty(t, SplitText("   \n\t  ", 100, 20))
	require.Empty(t, SplitText("text", 0, 0))
}

func TestSplitText_AlwaysTerminates(t *testing.T) {
	// a period early in each window could stall the cursor without the
	// forward-progress guard
	text := "a. " + strings.Repeat("b", 500)
	got := SplitText(text, 50, 40)
	require.NotEmpty(t, got)
}

func TestSplitMarkdown_GroupsBodyUnderHeadings(t *testing.T) {
	source := []byte(`# Maintenance

Change the oil every 5000 km.

## Chain

Clean and lubricate the chain.
Check tension afterwards.
`)
	sections := SplitMarkdown(source)
	require.Len(t, sections, 2)
	require.Equal(t, "Maintenance", sections[0].Heading)
	require.Contains(t, sections[0].Body, "Change the oil")
	require.Equal(t, "Chain", sections[1].Heading)
	require.Contains(t, sections[1].Body, "lubricate the chain")
	require.Contains(t, sections[1].Body, "Check tension")
}

func TestSplitMarkdown_LeadingBodyWithoutHeading(t *testing.T) {
	sections := SplitMarkdown([]byte("Intro paragraph.\n\n# Title\n\nBody."))
	require.Len(t, sections, 2)
	require.Empty(t, sections[0].Heading)
	require.Contains(t, sections[0].Body, "Intro paragraph.")
}

func TestSplitMarkdown_Empty(t *testing.T) {
	require.Empty(t, SplitMarkdown(nil))
}
