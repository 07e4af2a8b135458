package entity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChapterStatusTransitions(t *testing.T) {
	ch := NewChapter("ch-1-0", "Opening Moves", []string{"The setup", "The stakes"})
	assert.Equal(t, ChapterStatusPending, ch.Status)

	ch.MarkWriting()
	assert.Equal(t, ChapterStatusWriting, ch.Status)

	ch.SetContent("The first chapter body.")
	assert.Equal(t, ChapterStatusCompleted, ch.Status)

	// 完成后不再回退
	ch.MarkWriting()
	assert.Equal(t, ChapterStatusCompleted, ch.Status)
}

func TestChapterSetContentWordCount(t *testing.T) {
	ch := NewChapter("ch-1-0", "Opening Moves", nil)

	ch.SetContent("one two   three\nfour")
	assert.Equal(t, 4, ch.WordCount)
	assert.Equal(t, 1, ch.Revision)

	ch.SetContent("")
	assert.Equal(t, 0, ch.WordCount)
	assert.Equal(t, 2, ch.Revision)
}

func TestChapterVisualMarkers(t *testing.T) {
	ch := NewChapter("ch-1-0", "Opening Moves", nil)
	ch.SetContent("Intro.\n\n[VISUAL: A stormy harbor at dawn]\n\nMore text. [VISUAL: A lighthouse] And again [VISUAL: A stormy harbor at dawn].")

	descs := ch.VisualMarkers()
	require.Len(t, descs, 2)
	assert.Equal(t, "A stormy harbor at dawn", descs[0])
	assert.Equal(t, "A lighthouse", descs[1])
}

func TestChapterReplaceVisual(t *testing.T) {
	ch := NewChapter("ch-1-0", "Opening Moves", nil)
	ch.SetContent("Before [VISUAL: A stormy harbor at dawn] middle [VISUAL:A stormy harbor at dawn] after.")
	rev := ch.Revision

	n := ch.ReplaceVisual("A stormy harbor at dawn", "data:image/png;base64,AAAA")
	assert.Equal(t, 2, n)
	assert.NotContains(t, ch.Content, "[VISUAL:")
	assert.Equal(t, 2, strings.Count(ch.Content, "![A stormy harbor at dawn](data:image/png;base64,AAAA)"))
	assert.Equal(t, len(strings.Fields(ch.Content)), ch.WordCount)
	assert.Equal(t, rev+1, ch.Revision)

	// 未命中的描述不改动正文
	n = ch.ReplaceVisual("Nothing here", "data:image/png;base64,BBBB")
	assert.Equal(t, 0, n)
	assert.Equal(t, rev+1, ch.Revision)
}

func TestChapterReplaceVisualEscapesDescription(t *testing.T) {
	ch := NewChapter("ch-1-0", "Opening Moves", nil)
	ch.SetContent("Text [VISUAL: Graph (v1.2) of profits]. End.")

	n := ch.ReplaceVisual("Graph (v1.2) of profits", "data:image/png;base64,CCCC")
	assert.Equal(t, 1, n)
	assert.Contains(t, ch.Content, "![Graph (v1.2) of profits](data:image/png;base64,CCCC)")
}

func TestChapterStripVisualMarkers(t *testing.T) {
	ch := NewChapter("ch-1-0", "Opening Moves", nil)
	ch.SetContent("A [VISUAL: sketch] B")
	assert.Equal(t, "A  B", ch.StripVisualMarkers())
}
