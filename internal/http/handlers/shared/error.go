package shared

import (
	"errors"

	"github.com/cardstall/internal/http/response"
	"github.com/cardstall/internal/logger"
	"github.com/cardstall/internal/service"

	"github.com/gin-gonic/gin"
)

// 业务错误到 HTTP 状态码的映射表
var errorStatusRules = []struct {
	err    error
	status int
}{
	{service.ErrOrderNotFound, response.CodeNotFound},
	{service.ErrProductNotFound, response.CodeNotFound},
	{service.ErrCardNotFound, response.CodeNotFound},
	{service.ErrOrderExpired, response.CodeGone},
	{service.ErrOrderConflict, response.CodeConflict},
	{service.ErrOrderCancelled, response.CodeConflict},
	{service.ErrOrderRefunded, response.CodeConflict},
	{service.ErrOutOfStock, response.CodeConflict},
	{service.ErrCardConflict, response.CodeConflict},
	{service.ErrCardNotDeletable, response.CodeConflict},
	{service.ErrInventoryAnomaly, response.CodeConflict},
	{service.ErrOrderNotPaid, response.CodeConflict},
	{service.ErrRefundInvalid, response.CodeBadRequest},
	{service.ErrBatchTooLarge, response.CodeBadRequest},
	{service.ErrImportEmpty, response.CodeBadRequest},
	{service.ErrPhoneInvalid, response.CodeBadRequest},
	{service.ErrPaymentMethodInvalid, response.CodeBadRequest},
	{service.ErrDiscountRuleInvalid, response.CodeBadRequest},
	{service.ErrProductNotAvailable, response.CodeBadRequest},
	{service.ErrUserExists, response.CodeConflict},
	{service.ErrPasswordInvalid, response.CodeUnauthorized},
	{service.ErrUnauthorized, response.CodeUnauthorized},
	{service.ErrForbidden, response.CodeForbidden},
}

// RespondError 按映射表回写业务错误，未命中的按内部错误处理
func RespondError(c *gin.Context, err error) {
	for _, rule := range errorStatusRules {
		if errors.Is(err, rule.err) {
			response.Error(c, rule.status, rule.err.Error())
			return
		}
	}
	logger.Errorw("请求处理失败",
		"path", c.FullPath(),
		"method", c.Request.Method,
		"error", err,
	)
	response.Error(c, response.CodeInternalError, "系统繁忙，请稍后重试")
}
