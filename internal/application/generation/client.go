package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"aipen-studio-api/internal/config"
	"aipen-studio-api/internal/domain/entity"
	apperrors "aipen-studio-api/pkg/errors"
	"aipen-studio-api/pkg/logger"
	"aipen-studio-api/pkg/metrics"
	"aipen-studio-api/pkg/tracer"

	generationprompt "aipen-studio-api/internal/application/generation/prompt"
)

// Client 基于文本模型与图像模型实现 Generator
type Client struct {
	factory  ChatModelFactory
	images   ImageModel
	cfg      *config.GenerationConfig
	registry *generationprompt.Registry
}

// NewClient 创建生成客户端
func NewClient(factory ChatModelFactory, images ImageModel, cfg *config.GenerationConfig) *Client {
	return &Client{
		factory:  factory,
		images:   images,
		cfg:      cfg,
		registry: generationprompt.NewRegistry(),
	}
}

// outlineItem 模型返回的大纲条目
type outlineItem struct {
	Title       string   `json:"title"`
	Subsections []string `json:"subsections"`
}

// ChapterCount 按目标页数推算章节数
// clamp(ceil(target_length / pages_per_chapter), min_chapters, max_chapters)
func (c *Client) ChapterCount(targetLength int) int {
	n := int(math.Ceil(float64(targetLength) / float64(c.cfg.PagesPerChapter)))
	if n < c.cfg.MinChapters {
		n = c.cfg.MinChapters
	}
	if n > c.cfg.MaxChapters {
		n = c.cfg.MaxChapters
	}
	return n
}

// GenerateOutline 生成章节大纲
func (c *Client) GenerateOutline(ctx context.Context, title, genre string, targetLength int) ([]*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "generation.outline")
	defer span.End()

	start := time.Now()
	chapterCount := c.ChapterCount(targetLength)

	tpl, err := c.registry.ChatTemplate(generationprompt.PromptOutlineV1)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalError, "load outline prompt")
	}
	msgs, err := tpl.Format(ctx, map[string]any{
		"title":         strings.TrimSpace(title),
		"genre":         strings.TrimSpace(genre),
		"target_length": targetLength,
		"chapter_count": chapterCount,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalError, "format outline prompt")
	}

	chatModel, err := c.factory.Get(ctx, "")
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeLLMProviderError, "resolve chat model")
	}

	outMsg, err := chatModel.Generate(ctx, msgs)
	if err != nil {
		metrics.GenerationTotal.WithLabelValues("outline", "error").Inc()
		return nil, apperrors.Wrap(err, apperrors.CodeGenerationFailed, "generate outline")
	}
	if outMsg == nil || strings.TrimSpace(outMsg.Content) == "" {
		metrics.GenerationTotal.WithLabelValues("outline", "error").Inc()
		return nil, apperrors.New(apperrors.CodeGenerationFailed, "empty outline response")
	}

	var items []outlineItem
	raw := ExtractJSONValue(outMsg.Content)
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		metrics.GenerationTotal.WithLabelValues("outline", "error").Inc()
		return nil, apperrors.Wrap(err, apperrors.CodeGenerationFailed, "parse outline response")
	}
	if len(items) == 0 {
		metrics.GenerationTotal.WithLabelValues("outline", "error").Inc()
		return nil, apperrors.New(apperrors.CodeGenerationFailed, "outline response contains no chapters")
	}

	now := time.Now().UnixMilli()
	chapters := make([]*entity.Chapter, 0, len(items))
	for i, item := range items {
		id := fmt.Sprintf("ch-%d-%d", now, i)
		chapters = append(chapters, entity.NewChapter(id, item.Title, item.Subsections))
	}

	metrics.GenerationTotal.WithLabelValues("outline", "success").Inc()
	metrics.GenerationDuration.WithLabelValues("outline").Observe(time.Since(start).Seconds())
	logger.Info(ctx, "outline generated",
		"title", title,
		"chapters", len(chapters),
		"duration", time.Since(start).String(),
	)
	return chapters, nil
}

// GenerateChapterContent 生成单章正文
func (c *Client) GenerateChapterContent(ctx context.Context, bookTitle, genre string, chapter *entity.Chapter, targetLength int) (string, error) {
	ctx, span := tracer.Start(ctx, "generation.chapter")
	defer span.End()

	start := time.Now()

	// 总页数越大，要求的章节展开越深
	depthInstruction := "Provide a detailed and engaging narrative for this chapter with professional depth."
	if targetLength > c.cfg.DeepDepthThreshold {
		depthInstruction = "Provide exhaustive, deep, and scholarly detail for this chapter. Aim for a multi-thousand word output with nuanced arguments and storytelling."
	}

	structure := make([]string, 0, len(chapter.Subsections))
	for _, s := range chapter.Subsections {
		structure = append(structure, "- "+s)
	}

	tpl, err := c.registry.ChatTemplate(generationprompt.PromptChapterV1)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeInternalError, "load chapter prompt")
	}
	msgs, err := tpl.Format(ctx, map[string]any{
		"book_title":        strings.TrimSpace(bookTitle),
		"genre":             strings.TrimSpace(genre),
		"chapter_title":     strings.TrimSpace(chapter.Title),
		"structure":         strings.Join(structure, "\n"),
		"depth_instruction": depthInstruction,
	})
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeInternalError, "format chapter prompt")
	}

	chatModel, err := c.factory.Get(ctx, "")
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeLLMProviderError, "resolve chat model")
	}

	outMsg, err := chatModel.Generate(ctx, msgs)
	if err != nil {
		metrics.GenerationTotal.WithLabelValues("chapter", "error").Inc()
		return "", apperrors.Wrap(err, apperrors.CodeGenerationFailed, "generate chapter content")
	}
	if outMsg == nil || strings.TrimSpace(outMsg.Content) == "" {
		metrics.GenerationTotal.WithLabelValues("chapter", "error").Inc()
		return "", apperrors.New(apperrors.CodeGenerationFailed, "empty chapter response")
	}

	metrics.GenerationTotal.WithLabelValues("chapter", "success").Inc()
	metrics.GenerationDuration.WithLabelValues("chapter").Observe(time.Since(start).Seconds())
	metrics.ChapterWordCount.Observe(float64(len(strings.Fields(outMsg.Content))))
	logger.Info(ctx, "chapter content generated",
		"chapter_title", chapter.Title,
		"duration", time.Since(start).String(),
	)
	return outMsg.Content, nil
}

// GenerateIllustration 为插图描述生成配图
func (c *Client) GenerateIllustration(ctx context.Context, desc, genre string) (string, error) {
	ctx, span := tracer.Start(ctx, "generation.illustration")
	defer span.End()

	start := time.Now()
	prompt := fmt.Sprintf(
		"A professional, highly aesthetic book illustration for a %s book. Concept: %s. Style: clean, modern, minimal, slightly abstract, professional lighting, 4k. No text.",
		genre, desc,
	)

	uri, err := c.images.GenerateImage(ctx, prompt, c.cfg.IllustrationAspectRatio)
	if err != nil {
		metrics.GenerationTotal.WithLabelValues("illustration", "error").Inc()
		return "", apperrors.Wrap(err, apperrors.CodeImageGenFailed, "generate illustration")
	}

	metrics.GenerationTotal.WithLabelValues("illustration", "success").Inc()
	metrics.GenerationDuration.WithLabelValues("illustration").Observe(time.Since(start).Seconds())
	return uri, nil
}

// GenerateCovers 按配置的风格列表逐个生成封面
// 单个风格失败只记日志并跳过，返回成功的子集（可能为空）
func (c *Client) GenerateCovers(ctx context.Context, title, genre string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "generation.covers")
	defer span.End()

	start := time.Now()
	covers := make([]string, 0, len(c.cfg.CoverStyles))
	for _, style := range c.cfg.CoverStyles {
		prompt := fmt.Sprintf(
			"A professional high-end book cover design for a book titled \"%s\". Genre: %s. Style: %s. Extremely aesthetic, high resolution, professional font layout (though text might be abstract). %s aspect ratio.",
			title, genre, style, c.cfg.CoverAspectRatio,
		)

		uri, err := c.images.GenerateImage(ctx, prompt, c.cfg.CoverAspectRatio)
		if err != nil {
			metrics.GenerationTotal.WithLabelValues("cover", "error").Inc()
			logger.Warn(ctx, "cover generation failed for style",
				"style", style,
				"error", err,
			)
			continue
		}
		covers = append(covers, uri)
		metrics.GenerationTotal.WithLabelValues("cover", "success").Inc()
	}

	metrics.GenerationDuration.WithLabelValues("cover").Observe(time.Since(start).Seconds())
	return covers, nil
}
