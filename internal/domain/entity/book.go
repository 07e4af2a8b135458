package entity

import (
	"time"

	"github.com/google/uuid"
)

// HistoryEvent 书稿历史事件，版本号严格递增
type HistoryEvent struct {
	Version   int       `json:"version"`
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
}

// Book 书稿项目聚合根
type Book struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Author       string         `json:"author"`
	Genre        string         `json:"genre"`
	TargetLength int            `json:"target_length"`
	Outline      []*Chapter     `json:"outline"`
	Covers       []string       `json:"covers,omitempty"`
	History      []HistoryEvent `json:"history"`
	CreatedAt    time.Time      `json:"created_at"`
}

// NewBook 创建书稿项目并写入第一条历史事件
func NewBook(title, author, genre string, targetLength int, outline []*Chapter) *Book {
	b := &Book{
		ID:           uuid.New().String(),
		Title:        title,
		Author:       author,
		Genre:        genre,
		TargetLength: targetLength,
		Outline:      outline,
		CreatedAt:    time.Now(),
	}
	b.AppendHistory("Studio engine synchronized.")
	return b
}

// AppendHistory 追加历史事件，版本号取当前长度加一
func (b *Book) AppendHistory(event string) {
	b.History = append(b.History, HistoryEvent{
		Version:   len(b.History) + 1,
		Event:     event,
		Timestamp: time.Now(),
	})
}

// Chapter 按 ID 查找章节，未找到返回 nil
func (b *Book) Chapter(id string) *Chapter {
	for _, ch := range b.Outline {
		if ch.ID == id {
			return ch
		}
	}
	return nil
}

// ChapterIndex 返回章节在大纲中的位置，未找到返回 -1
func (b *Book) ChapterIndex(id string) int {
	for i, ch := range b.Outline {
		if ch.ID == id {
			return i
		}
	}
	return -1
}

// RemoveChapter 从大纲中移除章节，保持其余章节顺序
func (b *Book) RemoveChapter(id string) bool {
	idx := b.ChapterIndex(id)
	if idx < 0 {
		return false
	}
	b.Outline = append(b.Outline[:idx], b.Outline[idx+1:]...)
	return true
}

// TotalWords 全书已生成正文的总词数
func (b *Book) TotalWords() int {
	total := 0
	for _, ch := range b.Outline {
		total += ch.WordCount
	}
	return total
}

// CompletedChapters 已完成章节数
func (b *Book) CompletedChapters() int {
	n := 0
	for _, ch := range b.Outline {
		if ch.IsCompleted() {
			n++
		}
	}
	return n
}

// IsFullyDrafted 全部章节是否都已完成
func (b *Book) IsFullyDrafted() bool {
	if len(b.Outline) == 0 {
		return false
	}
	return b.CompletedChapters() == len(b.Outline)
}
