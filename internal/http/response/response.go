package response

import (
	"github.com/gin-gonic/gin"
)

// ContextKeyRequestID 请求 ID 在 gin 上下文中的键
const ContextKeyRequestID = "request_id"

// Response 统一响应结构
type Response struct {
	Code      int         `json:"code"`                 // 业务状态码
	Msg       string      `json:"msg"`                  // 提示信息
	Data      interface{} `json:"data,omitempty"`       // 业务数据
	RequestID string      `json:"request_id,omitempty"` // 请求追踪 ID
}

// PageData 分页响应数据
type PageData struct {
	Items    interface{} `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

func attachRequestID(c *gin.Context, resp *Response) {
	if id, ok := c.Get(ContextKeyRequestID); ok {
		if s, ok := id.(string); ok {
			resp.RequestID = s
		}
	}
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	resp := Response{Code: CodeSuccess, Msg: "ok", Data: data}
	attachRequestID(c, &resp)
	c.JSON(200, resp)
}

// SuccessPage 分页成功响应
func SuccessPage(c *gin.Context, items interface{}, total int64, page, pageSize int) {
	Success(c, PageData{Items: items, Total: total, Page: page, PageSize: pageSize})
}

// Error 错误响应，HTTP 状态码与业务码同值
func Error(c *gin.Context, status int, msg string) {
	resp := Response{Code: status, Msg: msg}
	attachRequestID(c, &resp)
	c.JSON(status, resp)
}

// AbortError 错误响应并中断后续处理（中间件用）
func AbortError(c *gin.Context, status int, msg string) {
	resp := Response{Code: status, Msg: msg}
	attachRequestID(c, &resp)
	c.AbortWithStatusJSON(status, resp)
}
