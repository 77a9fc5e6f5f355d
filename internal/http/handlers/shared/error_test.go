package shared

import (
	"net/http/httptest"
	"testing"

	"github.com/cardstall/internal/http/response"
	"github.com/cardstall/internal/service"

	"github.com/gin-gonic/gin"
)

func respondStatus(t *testing.T, err error) int {
	t.Helper()
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest("POST", "/", nil)
	RespondError(c, err)
	return recorder.Code
}

func TestRespondErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"订单不存在", service.ErrOrderNotFound, response.CodeNotFound},
		{"订单未支付", service.ErrOrderNotPaid, response.CodeConflict},
		{"订单已过期", service.ErrOrderExpired, response.CodeGone},
		{"库存不足", service.ErrOutOfStock, response.CodeConflict},
		{"库存状态异常", service.ErrInventoryAnomaly, response.CodeConflict},
		{"无权访问", service.ErrForbidden, response.CodeForbidden},
		{"参数错误", service.ErrPhoneInvalid, response.CodeBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := respondStatus(t, tc.err); got != tc.want {
				t.Fatalf("状态码映射错误: got %d want %d", got, tc.want)
			}
		})
	}
}
