package handler

import (
	"github.com/gin-gonic/gin"

	"aipen-studio-api/internal/application/studio"
	"aipen-studio-api/internal/interfaces/http/dto"
	apperrors "aipen-studio-api/pkg/errors"
)

// StudioHandler 工作台处理器
type StudioHandler struct {
	session *studio.Session
}

// NewStudioHandler 创建工作台处理器
func NewStudioHandler(session *studio.Session) *StudioHandler {
	return &StudioHandler{session: session}
}

// State 查询工作台状态
// GET /v1/studio
func (h *StudioHandler) State(c *gin.Context) {
	snap := h.session.Snapshot()
	book, _ := h.session.CurrentBook()
	dto.Success(c, dto.ToStudioView(snap, book))
}

// StartOutline 生成大纲
// POST /v1/studio/outline
func (h *StudioHandler) StartOutline(c *gin.Context) {
	var req dto.StartOutlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	book, err := h.session.StartOutline(c.Request.Context(), req.Title, req.Author, req.Genre, req.TargetLength)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Created(c, dto.ToBookView(book))
}

// RenameChapter 大纲编辑：重命名章节
// PUT /v1/studio/outline/chapters/:cid
func (h *StudioHandler) RenameChapter(c *gin.Context) {
	var req dto.RenameChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	ch, err := h.session.RenameChapter(c.Request.Context(), c.Param("cid"), req.Title)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToChapterView(ch))
}

// RemoveChapter 大纲编辑：移除章节
// DELETE /v1/studio/outline/chapters/:cid
func (h *StudioHandler) RemoveChapter(c *gin.Context) {
	if err := h.session.RemoveChapter(c.Request.Context(), c.Param("cid")); err != nil {
		respondError(c, err)
		return
	}
	dto.NoContent(c)
}

// ConfirmWriting 确认大纲并启动写作流水线
// POST /v1/studio/write
func (h *StudioHandler) ConfirmWriting(c *gin.Context) {
	if err := h.session.ConfirmWriting(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	// 流水线在后台推进，进度通过 GET /v1/studio 轮询
	snap := h.session.Snapshot()
	book, _ := h.session.CurrentBook()
	dto.Accepted(c, dto.ToStudioView(snap, book))
}

// Navigate 工作台导航
// POST /v1/studio/navigate
func (h *StudioHandler) Navigate(c *gin.Context) {
	var req dto.NavigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	target, err := studio.ParseState(req.Target)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.session.Navigate(c.Request.Context(), target); err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToStudioView(h.session.Snapshot(), nil))
}

// SetChapterCursor 移动阅读器章节游标
// POST /v1/studio/chapter-cursor
func (h *StudioHandler) SetChapterCursor(c *gin.Context) {
	var req dto.ChapterCursorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.Index == nil {
		respondError(c, apperrors.New(apperrors.CodeInvalidParam, "index is required"))
		return
	}

	if err := h.session.SetChapterCursor(c.Request.Context(), *req.Index); err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToStudioView(h.session.Snapshot(), nil))
}
