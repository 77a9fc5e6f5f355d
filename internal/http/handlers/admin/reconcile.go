package admin

import (
	"github.com/cardstall/internal/http/handlers/shared"
	"github.com/cardstall/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ReconcileSummary 对账摘要。refresh=1 时现场重算，否则返回最近快照。
func (h *Handler) ReconcileSummary(c *gin.Context) {
	if c.Query("refresh") == "1" {
		snapshot, err := h.reconcile.Refresh(c.Request.Context())
		if err != nil {
			shared.RespondError(c, err)
			return
		}
		response.Success(c, snapshot)
		return
	}
	response.Success(c, h.reconcile.Snapshot(c.Request.Context()))
}

// ReconcileDrift 偏差订单明细列表
func (h *Handler) ReconcileDrift(c *gin.Context) {
	page, pageSize := shared.ParsePagination(c)
	items, total, err := h.reconcile.ListDrift(page, pageSize)
	if err != nil {
		shared.RespondError(c, err)
		return
	}
	response.SuccessPage(c, items, total, page, pageSize)
}
