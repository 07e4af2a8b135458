package studio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aipen-studio-api/internal/application/library"
	"aipen-studio-api/internal/domain/entity"
	"aipen-studio-api/internal/domain/repository"
	apperrors "aipen-studio-api/pkg/errors"
)

// fakeGenerator 可编排的生成器替身
type fakeGenerator struct {
	mu sync.Mutex

	outlineTitles []string
	outlineErr    error
	outlineCalls  int

	failChapter  string // 标题命中时返回错误
	chapterBody  string // 为空时使用默认单标记正文
	chapterCalls []string

	covers    []string
	coversErr error

	illustrationURI   string
	illustrationErr   error
	illustrationCalls int
}

func (f *fakeGenerator) GenerateOutline(ctx context.Context, title, genre string, targetLength int) ([]*entity.Chapter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outlineCalls++
	if f.outlineErr != nil {
		return nil, f.outlineErr
	}
	chapters := make([]*entity.Chapter, 0, len(f.outlineTitles))
	for i, t := range f.outlineTitles {
		chapters = append(chapters, entity.NewChapter(fmt.Sprintf("ch-%d", i), t, []string{"Section A", "Section B"}))
	}
	return chapters, nil
}

func (f *fakeGenerator) GenerateChapterContent(ctx context.Context, bookTitle, genre string, chapter *entity.Chapter, targetLength int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chapterCalls = append(f.chapterCalls, chapter.Title)
	if chapter.Title == f.failChapter {
		return "", errors.New("model timed out")
	}
	if f.chapterBody != "" {
		return f.chapterBody, nil
	}
	return "Body of " + chapter.Title + " with a [VISUAL: A concept diagram] marker.", nil
}

func (f *fakeGenerator) GenerateIllustration(ctx context.Context, desc, genre string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.illustrationCalls++
	if f.illustrationErr != nil {
		return "", f.illustrationErr
	}
	return f.illustrationURI, nil
}

func (f *fakeGenerator) GenerateCovers(ctx context.Context, title, genre string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.coversErr != nil {
		return nil, f.coversErr
	}
	return f.covers, nil
}

// memStore 内存快照存储
type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore { return &memStore{data: make(map[string][]byte)} }

func (s *memStore) Load(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.data[key]
	if !ok {
		return nil, repository.ErrSnapshotNotFound
	}
	return payload, nil
}

func (s *memStore) Save(ctx context.Context, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = payload
	return nil
}

func (s *memStore) Close() error { return nil }

func newTestSession(gen *fakeGenerator) (*Session, *library.Library) {
	lib := library.New(newMemStore(), "aipen_projects_v12", "memory")
	return NewSession(gen, lib), lib
}

func waitForState(t *testing.T, s *Session, want State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return s.Snapshot().State == want
	}, 5*time.Second, 10*time.Millisecond, "expected state %s", want)
}

func TestStartOutlineRequiresTitle(t *testing.T) {
	gen := &fakeGenerator{outlineTitles: []string{"One"}}
	s, lib := newTestSession(gen)

	_, err := s.StartOutline(context.Background(), "   ", "", "", 100)
	require.Error(t, err)
	appErr := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.CodeValidationFailed, appErr.Code)

	// 未发起远程调用，项目库不变
	assert.Equal(t, 0, gen.outlineCalls)
	assert.Empty(t, lib.Books())
	assert.Equal(t, StateHome, s.Snapshot().State)
}

func TestStartOutlineCreatesBook(t *testing.T) {
	gen := &fakeGenerator{outlineTitles: []string{"One", "Two", "Three"}}
	s, lib := newTestSession(gen)

	book, err := s.StartOutline(context.Background(), "Echoes", "", "Science Fiction", 100)
	require.NoError(t, err)

	assert.Equal(t, "Echoes", book.Title)
	assert.Equal(t, DefaultAuthor, book.Author)
	assert.Len(t, book.Outline, 3)
	require.Len(t, book.History, 1)
	assert.Equal(t, "Studio engine synchronized.", book.History[0].Event)

	snap := s.Snapshot()
	assert.Equal(t, StateOutlining, snap.State)
	assert.Equal(t, book.ID, snap.BookID)
	require.Len(t, lib.Books(), 1)
}

func TestOutlineEditing(t *testing.T) {
	gen := &fakeGenerator{outlineTitles: []string{"One", "Two", "Three"}}
	s, _ := newTestSession(gen)

	book, err := s.StartOutline(context.Background(), "Echoes", "", "", 100)
	require.NoError(t, err)

	ch, err := s.RenameChapter(context.Background(), book.Outline[0].ID, "One, Sharpened")
	require.NoError(t, err)
	assert.Equal(t, "One, Sharpened", ch.Title)

	require.NoError(t, s.RemoveChapter(context.Background(), book.Outline[1].ID))
	require.Len(t, book.Outline, 2)
	assert.Equal(t, "One, Sharpened", book.Outline[0].Title)
	assert.Equal(t, "Three", book.Outline[1].Title)

	err = s.RemoveChapter(context.Background(), "missing")
	assert.Equal(t, apperrors.ErrChapterNotFound, err)
}

func TestRemoveChapterKeepsOutlineNonEmpty(t *testing.T) {
	gen := &fakeGenerator{outlineTitles: []string{"One"}}
	s, lib := newTestSession(gen)

	book, err := s.StartOutline(context.Background(), "Echoes", "", "", 100)
	require.NoError(t, err)

	// 删除唯一章节被拒绝，内存与快照里的大纲都原样保留
	err = s.RemoveChapter(context.Background(), book.Outline[0].ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidationFailed, apperrors.AsAppError(err).Code)
	require.Len(t, book.Outline, 1)

	stored, err := lib.Get(book.ID)
	require.NoError(t, err)
	require.Len(t, stored.Outline, 1)

	require.NoError(t, s.ConfirmWriting(context.Background()))
	waitForState(t, s, StateViewer)
}

func TestStartOutlineOnlyFromHome(t *testing.T) {
	gen := &fakeGenerator{outlineTitles: []string{"One"}}
	s, lib := newTestSession(gen)

	book, err := s.StartOutline(context.Background(), "Echoes", "", "", 100)
	require.NoError(t, err)
	_, err = s.OpenBook(context.Background(), book.ID)
	require.NoError(t, err)

	// 阅读器里不允许直接开新书，当前书稿保持打开
	_, err = s.StartOutline(context.Background(), "Another", "", "", 100)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidTransition, apperrors.AsAppError(err).Code)
	assert.Equal(t, book.ID, s.Snapshot().BookID)
	assert.Len(t, lib.Books(), 1)

	// 回到 home 后可以重新开书
	require.NoError(t, s.Navigate(context.Background(), StateHome))
	_, err = s.StartOutline(context.Background(), "Another", "", "", 100)
	require.NoError(t, err)
	assert.Len(t, lib.Books(), 2)
}

func TestConfirmWritingRequiresOutline(t *testing.T) {
	gen := &fakeGenerator{}
	s, _ := newTestSession(gen)

	err := s.ConfirmWriting(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeOutlineNotConfirmed, apperrors.AsAppError(err).Code)
}

func TestWritingPipelineCompletes(t *testing.T) {
	gen := &fakeGenerator{
		outlineTitles: []string{"One", "Two", "Three"},
		covers:        []string{"data:image/png;base64,Yw=="},
	}
	s, lib := newTestSession(gen)

	book, err := s.StartOutline(context.Background(), "Echoes", "", "", 100)
	require.NoError(t, err)
	require.NoError(t, s.ConfirmWriting(context.Background()))

	waitForState(t, s, StateViewer)

	for _, ch := range book.Outline {
		assert.True(t, ch.IsCompleted())
		assert.NotEmpty(t, ch.Content)
		assert.Positive(t, ch.WordCount)
	}
	assert.Equal(t, []string{"data:image/png;base64,Yw=="}, book.Covers)

	// 历史：创建 + 每章锁定 + 成书
	require.Len(t, book.History, 5)
	assert.Equal(t, "Chapter 1 locked.", book.History[1].Event)
	assert.Equal(t, "Full book construction complete.", book.History[4].Event)
	for i, ev := range book.History {
		assert.Equal(t, i+1, ev.Version)
	}

	// 流水线结束后快照落库
	stored, err := lib.Get(book.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsFullyDrafted())
}

func TestWritingPipelinePartialFailure(t *testing.T) {
	gen := &fakeGenerator{
		outlineTitles: []string{"One", "Two", "Three", "Four", "Five"},
		failChapter:   "Three",
	}
	s, _ := newTestSession(gen)

	book, err := s.StartOutline(context.Background(), "Echoes", "", "", 100)
	require.NoError(t, err)
	require.NoError(t, s.ConfirmWriting(context.Background()))

	waitForState(t, s, StateOutlining)

	// 1-2 完成，3 停在 writing，4-5 从未尝试
	assert.True(t, book.Outline[0].IsCompleted())
	assert.True(t, book.Outline[1].IsCompleted())
	assert.Equal(t, entity.ChapterStatusWriting, book.Outline[2].Status)
	assert.Equal(t, entity.ChapterStatusPending, book.Outline[3].Status)
	assert.Equal(t, entity.ChapterStatusPending, book.Outline[4].Status)
	assert.Equal(t, []string{"One", "Two", "Three"}, gen.chapterCalls)
	assert.NotEmpty(t, s.Snapshot().Message)
}

func TestWritingPipelineResumeSkipsCompleted(t *testing.T) {
	gen := &fakeGenerator{
		outlineTitles: []string{"One", "Two", "Three"},
		failChapter:   "Two",
	}
	s, _ := newTestSession(gen)

	_, err := s.StartOutline(context.Background(), "Echoes", "", "", 100)
	require.NoError(t, err)
	require.NoError(t, s.ConfirmWriting(context.Background()))
	waitForState(t, s, StateOutlining)

	// 排除故障后重新确认，已完成章节不再重写
	gen.mu.Lock()
	gen.failChapter = ""
	gen.chapterCalls = nil
	gen.mu.Unlock()

	require.NoError(t, s.ConfirmWriting(context.Background()))
	waitForState(t, s, StateViewer)

	gen.mu.Lock()
	defer gen.mu.Unlock()
	assert.Equal(t, []string{"Two", "Three"}, gen.chapterCalls)
}

func TestWritingPipelineCoverFailureIsLenient(t *testing.T) {
	gen := &fakeGenerator{
		outlineTitles: []string{"One"},
		coversErr:     errors.New("image backend down"),
	}
	s, _ := newTestSession(gen)

	book, err := s.StartOutline(context.Background(), "Echoes", "", "", 100)
	require.NoError(t, err)
	require.NoError(t, s.ConfirmWriting(context.Background()))

	// 封面失败仍然成书
	waitForState(t, s, StateViewer)
	assert.Empty(t, book.Covers)
	assert.True(t, book.IsFullyDrafted())
}

func TestNavigateTable(t *testing.T) {
	gen := &fakeGenerator{}
	s, _ := newTestSession(gen)

	require.NoError(t, s.Navigate(context.Background(), StateLibrary))
	assert.Equal(t, StateLibrary, s.Snapshot().State)

	err := s.Navigate(context.Background(), StateDeveloper)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidTransition, apperrors.AsAppError(err).Code)

	require.NoError(t, s.Navigate(context.Background(), StateHome))
	require.NoError(t, s.Navigate(context.Background(), StateAbout))
	require.NoError(t, s.Navigate(context.Background(), StateHome))
}

func TestOpenBookResetsCursor(t *testing.T) {
	gen := &fakeGenerator{outlineTitles: []string{"One", "Two"}}
	s, _ := newTestSession(gen)

	book, err := s.StartOutline(context.Background(), "Echoes", "", "", 100)
	require.NoError(t, err)

	require.NoError(t, s.SetChapterCursor(context.Background(), 1))
	assert.Equal(t, 1, s.Snapshot().ChapterCursor)

	opened, err := s.OpenBook(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Equal(t, book.ID, opened.ID)
	snap := s.Snapshot()
	assert.Equal(t, StateViewer, snap.State)
	assert.Equal(t, 0, snap.ChapterCursor)

	err = s.SetChapterCursor(context.Background(), 5)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidParam, apperrors.AsAppError(err).Code)
}

func TestDeleteBookClearsCurrent(t *testing.T) {
	gen := &fakeGenerator{outlineTitles: []string{"One"}}
	s, lib := newTestSession(gen)

	book, err := s.StartOutline(context.Background(), "Echoes", "", "", 100)
	require.NoError(t, err)
	_, err = s.OpenBook(context.Background(), book.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteBook(context.Background(), book.ID))
	assert.Empty(t, lib.Books())

	snap := s.Snapshot()
	assert.Empty(t, snap.BookID)
	assert.Equal(t, StateLibrary, snap.State)
}

func TestGenerateIllustration(t *testing.T) {
	gen := &fakeGenerator{
		outlineTitles:   []string{"One"},
		illustrationURI: "data:image/png;base64,aW1n",
	}
	s, _ := newTestSession(gen)

	book, err := s.StartOutline(context.Background(), "Echoes", "", "", 100)
	require.NoError(t, err)
	require.NoError(t, s.ConfirmWriting(context.Background()))
	waitForState(t, s, StateViewer)

	ch := book.Outline[0]
	updated, err := s.GenerateIllustration(context.Background(), book.ID, ch.ID, "A concept diagram")
	require.NoError(t, err)
	assert.NotContains(t, updated.Content, "[VISUAL:")
	assert.Contains(t, updated.Content, "![A concept diagram](data:image/png;base64,aW1n)")
	assert.Equal(t, "Inserted AI generated illustration into Chapter 1.", book.History[len(book.History)-1].Event)

	// 标记已被替换，再次请求按标记不存在处理
	_, err = s.GenerateIllustration(context.Background(), book.ID, ch.ID, "A concept diagram")
	assert.Equal(t, apperrors.ErrMarkerNotFound, err)
}

func TestConcurrentIllustrationsStayConsistent(t *testing.T) {
	gen := &fakeGenerator{
		outlineTitles:   []string{"One"},
		chapterBody:     "Intro. [VISUAL: A concept diagram] Middle. [VISUAL: A flow chart] End.",
		illustrationURI: "data:image/png;base64,aW1n",
	}
	s, lib := newTestSession(gen)

	book, err := s.StartOutline(context.Background(), "Echoes", "", "", 100)
	require.NoError(t, err)
	require.NoError(t, s.ConfirmWriting(context.Background()))
	waitForState(t, s, StateViewer)

	// 不同标记的插图请求并发执行，落库与正文写入互不踩踏
	ch := book.Outline[0]
	var wg sync.WaitGroup
	for _, desc := range []string{"A concept diagram", "A flow chart"} {
		wg.Add(1)
		go func(d string) {
			defer wg.Done()
			_, insErr := s.GenerateIllustration(context.Background(), book.ID, ch.ID, d)
			assert.NoError(t, insErr)
		}(desc)
	}
	wg.Wait()

	assert.NotContains(t, ch.Content, "[VISUAL:")
	assert.Contains(t, ch.Content, "![A concept diagram](data:image/png;base64,aW1n)")
	assert.Contains(t, ch.Content, "![A flow chart](data:image/png;base64,aW1n)")
	// SetContent 一次 + 两次替换
	assert.Equal(t, 3, ch.Revision)

	stored, err := lib.Get(book.ID)
	require.NoError(t, err)
	assert.NotContains(t, stored.Outline[0].Content, "[VISUAL:")
}

func TestGenerateIllustrationRequiresCompletedChapter(t *testing.T) {
	gen := &fakeGenerator{outlineTitles: []string{"One"}}
	s, _ := newTestSession(gen)

	book, err := s.StartOutline(context.Background(), "Echoes", "", "", 100)
	require.NoError(t, err)

	_, err = s.GenerateIllustration(context.Background(), book.ID, book.Outline[0].ID, "Anything")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeChapterNotCompleted, apperrors.AsAppError(err).Code)
}

func TestExportMarkdown(t *testing.T) {
	gen := &fakeGenerator{outlineTitles: []string{"One", "Two"}}
	s, _ := newTestSession(gen)

	book, err := s.StartOutline(context.Background(), "Echoes", "Jo Reader", "", 100)
	require.NoError(t, err)
	require.NoError(t, s.ConfirmWriting(context.Background()))
	waitForState(t, s, StateViewer)

	md, err := s.ExportMarkdown(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Contains(t, md, "# Echoes")
	assert.Contains(t, md, "by Jo Reader")
	assert.Contains(t, md, "## Chapter 1: One")
	assert.Contains(t, md, "## Chapter 2: Two")
}

func TestExportMarkdownStripsVisualMarkers(t *testing.T) {
	gen := &fakeGenerator{
		outlineTitles:   []string{"One"},
		illustrationURI: "data:image/png;base64,aW1n",
	}
	s, _ := newTestSession(gen)

	book, err := s.StartOutline(context.Background(), "Echoes", "", "", 100)
	require.NoError(t, err)
	require.NoError(t, s.ConfirmWriting(context.Background()))
	waitForState(t, s, StateViewer)

	// 未替换的占位标记不进入导出文稿
	md, err := s.ExportMarkdown(context.Background(), book.ID)
	require.NoError(t, err)
	assert.NotContains(t, md, "[VISUAL:")
	assert.Contains(t, md, "Body of One")

	// 已插入的图片块原样保留
	_, err = s.GenerateIllustration(context.Background(), book.ID, book.Outline[0].ID, "A concept diagram")
	require.NoError(t, err)
	md, err = s.ExportMarkdown(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Contains(t, md, "![A concept diagram](data:image/png;base64,aW1n)")
	assert.NotContains(t, md, "[VISUAL:")
}
