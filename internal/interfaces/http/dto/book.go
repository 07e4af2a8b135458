package dto

import (
	"time"

	"aipen-studio-api/internal/application/studio"
	"aipen-studio-api/internal/domain/entity"
)

// ChapterView 章节视图
type ChapterView struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Subsections   []string `json:"subsections"`
	Status        string   `json:"status"`
	Content       string   `json:"content,omitempty"`
	WordCount     int      `json:"word_count"`
	Revision      int      `json:"revision"`
	VisualMarkers []string `json:"visual_markers,omitempty"`
}

// HistoryEventView 历史事件视图
type HistoryEventView struct {
	Version   int       `json:"version"`
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
}

// BookView 书稿详情视图
type BookView struct {
	ID            string             `json:"id"`
	Title         string             `json:"title"`
	Author        string             `json:"author"`
	Genre         string             `json:"genre"`
	TargetLength  int                `json:"target_length"`
	Outline       []ChapterView      `json:"outline"`
	Covers        []string           `json:"covers,omitempty"`
	History       []HistoryEventView `json:"history"`
	TotalWords    int                `json:"total_words"`
	FullyDrafted  bool               `json:"fully_drafted"`
	CreatedAt     time.Time          `json:"created_at"`
}

// BookSummary 书稿列表条目，不携带正文
type BookSummary struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Author            string    `json:"author"`
	Genre             string    `json:"genre"`
	TargetLength      int       `json:"target_length"`
	ChapterCount      int       `json:"chapter_count"`
	CompletedChapters int       `json:"completed_chapters"`
	TotalWords        int       `json:"total_words"`
	HasCovers         bool      `json:"has_covers"`
	CreatedAt         time.Time `json:"created_at"`
}

// ProgressView 写作进度视图
type ProgressView struct {
	CurrentChapter int    `json:"current_chapter"`
	TotalChapters  int    `json:"total_chapters"`
	Message        string `json:"message"`
}

// StudioView 工作台状态视图
type StudioView struct {
	State         string        `json:"state"`
	ChapterCursor int           `json:"chapter_cursor"`
	Message       string        `json:"message,omitempty"`
	Progress      *ProgressView `json:"progress,omitempty"`
	Book          *BookView     `json:"book,omitempty"`
}

// ToChapterView 转换章节实体
func ToChapterView(ch *entity.Chapter) ChapterView {
	return ChapterView{
		ID:            ch.ID,
		Title:         ch.Title,
		Subsections:   ch.Subsections,
		Status:        string(ch.Status),
		Content:       ch.Content,
		WordCount:     ch.WordCount,
		Revision:      ch.Revision,
		VisualMarkers: ch.VisualMarkers(),
	}
}

// ToBookView 转换书稿实体
func ToBookView(b *entity.Book) *BookView {
	outline := make([]ChapterView, 0, len(b.Outline))
	for _, ch := range b.Outline {
		outline = append(outline, ToChapterView(ch))
	}
	history := make([]HistoryEventView, 0, len(b.History))
	for _, ev := range b.History {
		history = append(history, HistoryEventView{
			Version:   ev.Version,
			Event:     ev.Event,
			Timestamp: ev.Timestamp,
		})
	}
	return &BookView{
		ID:           b.ID,
		Title:        b.Title,
		Author:       b.Author,
		Genre:        b.Genre,
		TargetLength: b.TargetLength,
		Outline:      outline,
		Covers:       b.Covers,
		History:      history,
		TotalWords:   b.TotalWords(),
		FullyDrafted: b.IsFullyDrafted(),
		CreatedAt:    b.CreatedAt,
	}
}

// ToBookSummary 转换书稿列表条目
func ToBookSummary(b *entity.Book) BookSummary {
	return BookSummary{
		ID:                b.ID,
		Title:             b.Title,
		Author:            b.Author,
		Genre:             b.Genre,
		TargetLength:      b.TargetLength,
		ChapterCount:      len(b.Outline),
		CompletedChapters: b.CompletedChapters(),
		TotalWords:        b.TotalWords(),
		HasCovers:         len(b.Covers) > 0,
		CreatedAt:         b.CreatedAt,
	}
}

// ToStudioView 转换工作台快照
func ToStudioView(snap studio.Snapshot, book *entity.Book) StudioView {
	view := StudioView{
		State:         string(snap.State),
		ChapterCursor: snap.ChapterCursor,
		Message:       snap.Message,
	}
	if snap.Progress != nil {
		view.Progress = &ProgressView{
			CurrentChapter: snap.Progress.CurrentChapter,
			TotalChapters:  snap.Progress.TotalChapters,
			Message:        snap.Progress.Message,
		}
	}
	if book != nil {
		view.Book = ToBookView(book)
	}
	return view
}
