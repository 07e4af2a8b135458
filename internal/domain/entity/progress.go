package entity

// GenerationProgress 全书写作流水线的实时进度
// 仅存在于内存，进程重启后丢失；已落库的章节内容不受影响
type GenerationProgress struct {
	CurrentChapter int    `json:"current_chapter"`
	TotalChapters  int    `json:"total_chapters"`
	Message        string `json:"message"`
}
