package dto

// StartOutlineRequest 创建大纲请求
type StartOutlineRequest struct {
	Title        string `json:"title"`
	Author       string `json:"author"`
	Genre        string `json:"genre"`
	TargetLength int    `json:"target_length"`
}

// RenameChapterRequest 章节重命名请求
type RenameChapterRequest struct {
	Title string `json:"title" binding:"required"`
}

// NavigateRequest 导航请求
type NavigateRequest struct {
	Target string `json:"target" binding:"required"`
}

// ChapterCursorRequest 章节游标请求；索引从 0 开始
type ChapterCursorRequest struct {
	Index *int `json:"index" binding:"required"`
}

// IllustrationRequest 插图生成请求
type IllustrationRequest struct {
	Description string `json:"description" binding:"required"`
}
