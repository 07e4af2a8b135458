// Package generation 封装书稿内容的模型生成能力
package generation

import (
	"context"

	"github.com/cloudwego/eino/components/model"

	"aipen-studio-api/internal/domain/entity"
)

// ChatModelFactory 文本模型工厂端口
type ChatModelFactory interface {
	// Get 获取指定名称的 ChatModel，空名称返回默认客户端
	Get(ctx context.Context, name string) (model.BaseChatModel, error)
}

// ImageModel 图像模型端口，返回 data URI 形式的图片
type ImageModel interface {
	GenerateImage(ctx context.Context, prompt, aspectRatio string) (string, error)
}

// Generator 书稿生成端口，工作流层只依赖该接口
type Generator interface {
	// GenerateOutline 生成章节大纲，章节数由目标页数推算
	GenerateOutline(ctx context.Context, title, genre string, targetLength int) ([]*entity.Chapter, error)
	// GenerateChapterContent 生成单章正文，正文中可含插图占位标记
	GenerateChapterContent(ctx context.Context, bookTitle, genre string, chapter *entity.Chapter, targetLength int) (string, error)
	// GenerateIllustration 为插图描述生成配图
	GenerateIllustration(ctx context.Context, desc, genre string) (string, error)
	// GenerateCovers 按配置的风格列表逐个生成封面，单个失败跳过
	GenerateCovers(ctx context.Context, title, genre string) ([]string, error)
}
