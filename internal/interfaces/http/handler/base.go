package handler

import (
	"github.com/gin-gonic/gin"

	"aipen-studio-api/internal/interfaces/http/dto"
	apperrors "aipen-studio-api/pkg/errors"
)

// respondError 将应用错误映射为统一错误响应
func respondError(c *gin.Context, err error) {
	appErr := apperrors.AsAppError(err)
	dto.ErrorWithDetail(c, appErr.HTTPStatus, appErr.Message, &dto.ErrorDetail{
		ErrorCode: string(appErr.Code),
		Details:   appErr.Detail,
	})
}
