package handler

import (
	"github.com/gin-gonic/gin"

	"aipen-studio-api/internal/application/library"
	"aipen-studio-api/internal/application/studio"
	"aipen-studio-api/internal/interfaces/http/dto"
)

// BookHandler 项目库处理器
type BookHandler struct {
	session *studio.Session
	lib     *library.Library
}

// NewBookHandler 创建项目库处理器
func NewBookHandler(session *studio.Session, lib *library.Library) *BookHandler {
	return &BookHandler{
		session: session,
		lib:     lib,
	}
}

// List 列出全部书稿
// GET /v1/books
func (h *BookHandler) List(c *gin.Context) {
	books := h.lib.Books()
	summaries := make([]dto.BookSummary, 0, len(books))
	for _, b := range books {
		summaries = append(summaries, dto.ToBookSummary(b))
	}
	dto.Success(c, summaries)
}

// Get 查询书稿详情
// GET /v1/books/:bid
func (h *BookHandler) Get(c *gin.Context) {
	book, err := h.lib.Get(c.Param("bid"))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToBookView(book))
}

// Delete 删除书稿
// DELETE /v1/books/:bid
func (h *BookHandler) Delete(c *gin.Context) {
	if err := h.session.DeleteBook(c.Request.Context(), c.Param("bid")); err != nil {
		respondError(c, err)
		return
	}
	dto.NoContent(c)
}

// Open 打开书稿进入阅读器
// POST /v1/books/:bid/open
func (h *BookHandler) Open(c *gin.Context) {
	book, err := h.session.OpenBook(c.Request.Context(), c.Param("bid"))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToStudioView(h.session.Snapshot(), book))
}

// GenerateIllustration 为章节占位标记生成插图
// POST /v1/books/:bid/chapters/:cid/illustrations
func (h *BookHandler) GenerateIllustration(c *gin.Context) {
	var req dto.IllustrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	ch, err := h.session.GenerateIllustration(c.Request.Context(), c.Param("bid"), c.Param("cid"), req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToChapterView(ch))
}

// Export 导出书稿为 Markdown
// GET /v1/books/:bid/export
func (h *BookHandler) Export(c *gin.Context) {
	md, err := h.session.ExportMarkdown(c.Request.Context(), c.Param("bid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\"book.md\"")
	c.Data(200, "text/markdown; charset=utf-8", []byte(md))
}
