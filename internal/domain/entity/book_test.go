package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBookSeedsHistory(t *testing.T) {
	b := NewBook("Deep Work Remixed", "Anonymous", "Business/Self-Help", 100, nil)

	assert.NotEmpty(t, b.ID)
	require.Len(t, b.History, 1)
	assert.Equal(t, 1, b.History[0].Version)
	assert.Equal(t, "Studio engine synchronized.", b.History[0].Event)
	assert.False(t, b.History[0].Timestamp.IsZero())
}

func TestBookAppendHistoryVersions(t *testing.T) {
	b := NewBook("Deep Work Remixed", "Anonymous", "Business/Self-Help", 100, nil)
	b.AppendHistory("Chapter 1 locked.")
	b.AppendHistory("Chapter 2 locked.")

	require.Len(t, b.History, 3)
	for i, ev := range b.History {
		assert.Equal(t, i+1, ev.Version)
	}
}

func TestBookChapterLookupAndRemove(t *testing.T) {
	chapters := []*Chapter{
		NewChapter("ch-1-0", "One", nil),
		NewChapter("ch-1-1", "Two", nil),
		NewChapter("ch-1-2", "Three", nil),
	}
	b := NewBook("T", "A", "G", 100, chapters)

	assert.Equal(t, "Two", b.Chapter("ch-1-1").Title)
	assert.Nil(t, b.Chapter("missing"))
	assert.Equal(t, 2, b.ChapterIndex("ch-1-2"))

	require.True(t, b.RemoveChapter("ch-1-1"))
	require.Len(t, b.Outline, 2)
	assert.Equal(t, "One", b.Outline[0].Title)
	assert.Equal(t, "Three", b.Outline[1].Title)

	assert.False(t, b.RemoveChapter("ch-1-1"))
}

func TestBookAggregates(t *testing.T) {
	chapters := []*Chapter{
		NewChapter("ch-1-0", "One", nil),
		NewChapter("ch-1-1", "Two", nil),
	}
	b := NewBook("T", "A", "G", 100, chapters)

	assert.Equal(t, 0, b.TotalWords())
	assert.False(t, b.IsFullyDrafted())

	chapters[0].SetContent("alpha beta gamma")
	assert.Equal(t, 3, b.TotalWords())
	assert.Equal(t, 1, b.CompletedChapters())
	assert.False(t, b.IsFullyDrafted())

	chapters[1].SetContent("delta epsilon")
	assert.Equal(t, 5, b.TotalWords())
	assert.True(t, b.IsFullyDrafted())
}

func TestEmptyOutlineNeverFullyDrafted(t *testing.T) {
	b := NewBook("T", "A", "G", 100, nil)
	assert.False(t, b.IsFullyDrafted())
}
