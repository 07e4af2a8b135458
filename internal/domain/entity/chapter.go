// Package entity 定义领域实体
package entity

import (
	"fmt"
	"regexp"
	"strings"
)

// ChapterStatus 章节状态，只允许单向推进
type ChapterStatus string

const (
	ChapterStatusPending   ChapterStatus = "pending"
	ChapterStatusWriting   ChapterStatus = "writing"
	ChapterStatusCompleted ChapterStatus = "completed"
)

// visualMarkerRe 匹配正文中的 [VISUAL: 描述] 插图占位标记
var visualMarkerRe = regexp.MustCompile(`\[VISUAL:\s*(.*?)\s*\]`)

// Chapter 章节实体
type Chapter struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Subsections []string      `json:"subsections"`
	Status      ChapterStatus `json:"status"`
	Content     string        `json:"content,omitempty"`
	WordCount   int           `json:"word_count"`
	// Revision 在每次正文变更时递增，用于检测并发插图写入的丢失更新
	Revision int `json:"revision"`
}

// NewChapter 创建新章节，初始状态为 pending
func NewChapter(id, title string, subsections []string) *Chapter {
	if subsections == nil {
		subsections = []string{}
	}
	return &Chapter{
		ID:          id,
		Title:       title,
		Subsections: subsections,
		Status:      ChapterStatusPending,
	}
}

// MarkWriting 将章节标记为写作中；状态不回退
func (c *Chapter) MarkWriting() {
	if c.Status == ChapterStatusPending {
		c.Status = ChapterStatusWriting
	}
}

// SetContent 写入生成的正文并完成章节
// WordCount 与 Content 同步重算，保证二者永不脱节
func (c *Chapter) SetContent(content string) {
	c.Content = content
	c.WordCount = len(strings.Fields(content))
	c.Status = ChapterStatusCompleted
	c.Revision++
}

// IsCompleted 检查章节是否已完成
func (c *Chapter) IsCompleted() bool {
	return c.Status == ChapterStatusCompleted
}

// VisualMarkers 提取正文中的插图描述，保持出现顺序并去重
func (c *Chapter) VisualMarkers() []string {
	matches := visualMarkerRe.FindAllStringSubmatch(c.Content, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	descs := make([]string, 0, len(matches))
	for _, m := range matches {
		desc := m[1]
		if _, ok := seen[desc]; ok {
			continue
		}
		seen[desc] = struct{}{}
		descs = append(descs, desc)
	}
	return descs
}

// ReplaceVisual 将指定描述的全部占位标记替换为图片块，返回替换数量
// 标记不支持单独寻址，只按描述字面匹配；每移除一个标记插入一个图片块
func (c *Chapter) ReplaceVisual(desc, imageURI string) int {
	re := regexp.MustCompile(`\[VISUAL:\s*` + regexp.QuoteMeta(desc) + `\s*\]`)
	count := len(re.FindAllString(c.Content, -1))
	if count == 0 {
		return 0
	}

	block := fmt.Sprintf("\n\n![%s](%s)\n\n", desc, imageURI)
	c.Content = re.ReplaceAllLiteralString(c.Content, block)
	c.WordCount = len(strings.Fields(c.Content))
	c.Revision++
	return count
}

// StripVisualMarkers 返回去掉全部占位标记的正文，用于导出
func (c *Chapter) StripVisualMarkers() string {
	return visualMarkerRe.ReplaceAllString(c.Content, "")
}
