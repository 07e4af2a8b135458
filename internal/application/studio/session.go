package studio

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"aipen-studio-api/internal/application/generation"
	"aipen-studio-api/internal/application/library"
	"aipen-studio-api/internal/domain/entity"
	apperrors "aipen-studio-api/pkg/errors"
	"aipen-studio-api/pkg/logger"
	"aipen-studio-api/pkg/metrics"
)

// 创建书稿时的表单默认值
const (
	DefaultAuthor       = "Anonymous"
	DefaultGenre        = "Business/Self-Help"
	DefaultTargetLength = 100
)

// Snapshot 工作台当前状态的只读视图
type Snapshot struct {
	State         State
	BookID        string
	ChapterCursor int
	Progress      *entity.GenerationProgress
	Message       string
}

// Session 工作台会话，驱动 home→outlining→writing→viewer 的生成主线
// 所有可变状态由互斥锁保护；写作流水线在后台 goroutine 中串行推进
// 正文写入与快照落库都在会话锁内完成，序列化不会读到写了一半的章节
type Session struct {
	mu       sync.Mutex
	state    State
	current  *entity.Book
	cursor   int
	progress *entity.GenerationProgress
	writing  bool
	message  string

	gen generation.Generator
	lib *library.Library
	sf  singleflight.Group
}

// NewSession 创建工作台会话
func NewSession(gen generation.Generator, lib *library.Library) *Session {
	return &Session{
		state: StateHome,
		gen:   gen,
		lib:   lib,
	}
}

// Snapshot 返回当前状态视图
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:         s.state,
		ChapterCursor: s.cursor,
		Message:       s.message,
	}
	if s.current != nil {
		snap.BookID = s.current.ID
	}
	if s.progress != nil {
		p := *s.progress
		snap.Progress = &p
	}
	return snap
}

// CurrentBook 返回当前打开的书稿
func (s *Session) CurrentBook() (*entity.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, apperrors.ErrBookNotFound
	}
	return s.current, nil
}

// StartOutline 校验输入并生成大纲，成功后进入 outlining 状态
// 只允许从 home 发起，避免悄悄替换当前打开的书稿
// 标题为空时直接返回校验错误，不发起任何远程调用，项目库不变
func (s *Session) StartOutline(ctx context.Context, title, author, genre string, targetLength int) (*entity.Book, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperrors.New(apperrors.CodeValidationFailed, "title is required")
	}
	if author = strings.TrimSpace(author); author == "" {
		author = DefaultAuthor
	}
	if genre = strings.TrimSpace(genre); genre == "" {
		genre = DefaultGenre
	}
	if targetLength <= 0 {
		targetLength = DefaultTargetLength
	}

	s.mu.Lock()
	if s.writing {
		s.mu.Unlock()
		return nil, apperrors.New(apperrors.CodePipelineBusy, "a writing pipeline is already running")
	}
	if s.state != StateHome {
		s.mu.Unlock()
		return nil, apperrors.New(apperrors.CodeInvalidTransition,
			fmt.Sprintf("a new outline can only be started from %s, not %s", StateHome, s.state))
	}
	s.mu.Unlock()

	outline, err := s.gen.GenerateOutline(ctx, title, genre, targetLength)
	if err != nil {
		return nil, err
	}

	book := entity.NewBook(title, author, genre, targetLength, outline)

	s.mu.Lock()
	s.current = book
	s.cursor = 0
	s.state = StateOutlining
	s.message = ""
	s.lib.Create(ctx, book)
	s.mu.Unlock()

	logger.Info(ctx, "outline created",
		"book_id", book.ID,
		"title", title,
		"chapters", len(outline),
	)
	return book, nil
}

// RenameChapter 大纲编辑：重命名尚未开写的章节
func (s *Session) RenameChapter(ctx context.Context, chapterID, title string) (*entity.Chapter, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperrors.New(apperrors.CodeValidationFailed, "chapter title is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateOutlining {
		return nil, apperrors.New(apperrors.CodeInvalidTransition, "outline can only be edited in outlining state")
	}
	ch := s.current.Chapter(chapterID)
	if ch == nil {
		return nil, apperrors.ErrChapterNotFound
	}
	ch.Title = title
	s.lib.Update(ctx, s.current)
	return ch, nil
}

// RemoveChapter 大纲编辑：移除章节，剩余章节保持原有顺序
func (s *Session) RemoveChapter(ctx context.Context, chapterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateOutlining {
		return apperrors.New(apperrors.CodeInvalidTransition, "outline can only be edited in outlining state")
	}
	if s.current.Chapter(chapterID) == nil {
		return apperrors.ErrChapterNotFound
	}
	// 先校验再动手：大纲不允许被删空
	if len(s.current.Outline) == 1 {
		return apperrors.New(apperrors.CodeValidationFailed, "outline cannot be empty")
	}
	s.current.RemoveChapter(chapterID)
	s.lib.Update(ctx, s.current)
	return nil
}

// ConfirmWriting 确认大纲并启动后台写作流水线
// 同一时刻只允许一条流水线在跑；流水线不支持取消
func (s *Session) ConfirmWriting(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateOutlining {
		return apperrors.New(apperrors.CodeOutlineNotConfirmed, "no outline awaiting confirmation")
	}
	if s.writing {
		return apperrors.New(apperrors.CodePipelineBusy, "a writing pipeline is already running")
	}
	if s.current == nil || len(s.current.Outline) == 0 {
		return apperrors.New(apperrors.CodeValidationFailed, "outline is empty")
	}

	s.writing = true
	s.state = StateWriting
	s.message = ""
	s.progress = &entity.GenerationProgress{
		CurrentChapter: 0,
		TotalChapters:  len(s.current.Outline),
		Message:        "Warming up AiPen drafting engine...",
	}

	book := s.current
	go s.runPipeline(book)
	return nil
}

// runPipeline 串行逐章生成正文，每章完成后立即落库
// 任一章失败即中止：已完成章节保持 completed，失败章节停在 writing，
// 后续章节不再尝试，状态回到 outlining 由用户重新确认
func (s *Session) runPipeline(book *entity.Book) {
	// 流水线生命周期独立于触发它的 HTTP 请求
	ctx := logger.WithContext(context.Background(), logger.BookIDKey, book.ID)

	total := len(book.Outline)
	for i, ch := range book.Outline {
		if ch.IsCompleted() {
			continue
		}

		s.mu.Lock()
		s.progress = &entity.GenerationProgress{
			CurrentChapter: i + 1,
			TotalChapters:  total,
			Message:        fmt.Sprintf("Writing Chapter %d: %s...", i+1, ch.Title),
		}
		ch.MarkWriting()
		s.mu.Unlock()

		content, err := s.gen.GenerateChapterContent(ctx, book.Title, book.Genre, ch, book.TargetLength)
		if err != nil {
			logger.Error(ctx, "chapter generation failed, pipeline aborted", err,
				"chapter_id", ch.ID,
				"chapter_index", i,
			)
			s.mu.Lock()
			s.writing = false
			s.progress = nil
			s.state = StateOutlining
			s.message = fmt.Sprintf("Generation failed at chapter %d: %s", i+1, ch.Title)
			// 失败时也落库，保留已完成章节与中断痕迹
			s.lib.Update(ctx, book)
			s.mu.Unlock()
			return
		}

		s.mu.Lock()
		ch.SetContent(content)
		book.AppendHistory(fmt.Sprintf("Chapter %d locked.", i+1))
		s.lib.Update(ctx, book)
		s.mu.Unlock()
	}

	// 封面失败不阻塞成书：带着已生成的封面（可能为空）进入阅读器
	covers, err := s.gen.GenerateCovers(ctx, book.Title, book.Genre)
	if err != nil {
		logger.Warn(ctx, "cover generation failed, proceeding without covers", "error", err)
		covers = nil
	}

	s.mu.Lock()
	book.Covers = covers
	book.AppendHistory("Full book construction complete.")
	s.writing = false
	s.progress = nil
	s.cursor = 0
	s.state = StateViewer
	s.lib.Update(ctx, book)
	s.mu.Unlock()

	metrics.BooksCompleted.Inc()
	logger.Info(ctx, "book construction complete",
		"chapters", total,
		"covers", len(covers),
		"total_words", book.TotalWords(),
	)
}

// Navigate 用户主动导航，按转移表校验
func (s *Session) Navigate(ctx context.Context, target State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !CanNavigate(s.state, target) {
		return apperrors.New(apperrors.CodeInvalidTransition,
			fmt.Sprintf("cannot navigate from %s to %s", s.state, target))
	}
	if target == StateViewer && s.current == nil {
		return apperrors.New(apperrors.CodeInvalidTransition, "no book is open")
	}
	s.state = target
	s.message = ""
	return nil
}

// OpenBook 从项目库打开书稿进入阅读器，章节游标复位到第一章
func (s *Session) OpenBook(ctx context.Context, bookID string) (*entity.Book, error) {
	book, err := s.lib.Get(bookID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.current = book
	s.cursor = 0
	s.state = StateViewer
	s.message = ""
	s.mu.Unlock()
	return book, nil
}

// DeleteBook 删除书稿；删除的是当前打开的书时清空当前选择
func (s *Session) DeleteBook(ctx context.Context, bookID string) error {
	s.mu.Lock()
	if err := s.lib.Delete(ctx, bookID); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.current != nil && s.current.ID == bookID {
		s.current = nil
		s.cursor = 0
		if s.state == StateViewer || s.state == StateHistory {
			s.state = StateLibrary
		}
	}
	s.mu.Unlock()
	return nil
}

// SetChapterCursor 移动阅读器的活动章节游标
func (s *Session) SetChapterCursor(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return apperrors.ErrBookNotFound
	}
	if index < 0 || index >= len(s.current.Outline) {
		return apperrors.New(apperrors.CodeInvalidParam,
			fmt.Sprintf("chapter index %d out of range [0, %d)", index, len(s.current.Outline)))
	}
	s.cursor = index
	return nil
}

// GenerateIllustration 为章节内指定描述的占位标记生成插图并写回正文
// 同一标记的并发请求通过 singleflight 合并，正文读写与落库都在会话锁内完成
func (s *Session) GenerateIllustration(ctx context.Context, bookID, chapterID, desc string) (*entity.Chapter, error) {
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return nil, apperrors.New(apperrors.CodeValidationFailed, "marker description is required")
	}

	book, err := s.lib.Get(bookID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	chapterIndex := book.ChapterIndex(chapterID)
	if chapterIndex < 0 {
		s.mu.Unlock()
		return nil, apperrors.ErrChapterNotFound
	}
	ch := book.Outline[chapterIndex]
	if !ch.IsCompleted() {
		s.mu.Unlock()
		return nil, apperrors.New(apperrors.CodeChapterNotCompleted, "chapter has no generated content yet")
	}
	if !containsMarker(ch, desc) {
		s.mu.Unlock()
		return nil, apperrors.ErrMarkerNotFound
	}
	s.mu.Unlock()

	key := bookID + "|" + chapterID + "|" + desc
	_, err, _ = s.sf.Do(key, func() (any, error) {
		uri, genErr := s.gen.GenerateIllustration(ctx, desc, book.Genre)
		if genErr != nil {
			return nil, genErr
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		replaced := ch.ReplaceVisual(desc, uri)
		if replaced == 0 {
			// 并发路径已替换过同一标记
			return nil, nil
		}
		book.AppendHistory(fmt.Sprintf("Inserted AI generated illustration into Chapter %d.", chapterIndex+1))
		s.lib.Update(ctx, book)
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func containsMarker(ch *entity.Chapter, desc string) bool {
	for _, d := range ch.VisualMarkers() {
		if d == desc {
			return true
		}
	}
	return false
}

// ExportMarkdown 将书稿装配为单份 Markdown 文稿，未替换的插图占位标记被剔除
func (s *Session) ExportMarkdown(ctx context.Context, bookID string) (string, error) {
	book, err := s.lib.Get(bookID)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\nby %s\n\n", book.Title, book.Author)
	for i, ch := range book.Outline {
		if !ch.IsCompleted() {
			continue
		}
		fmt.Fprintf(&sb, "## Chapter %d: %s\n\n%s\n\n", i+1, ch.Title, ch.StripVisualMarkers())
	}
	return sb.String(), nil
}
