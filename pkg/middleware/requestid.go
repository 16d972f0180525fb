package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// headerKeyRequestID はリクエストを横断して相関させるためのHTTPヘッダキー。
const headerKeyRequestID = "X-Request-ID"

// contextKeyRequestID はコンテキストにリクエストIDを格納するためのキー。
const contextKeyRequestID = "request_id"

// RequestID は各リクエストに相関IDを付与するGinミドルウェアを返す。
// 受信リクエストに既にX-Request-IDがあればそれを引き継ぎ、
// なければ新しいUUIDを採番する。IDは応答ヘッダにも設定する。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerKeyRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(contextKeyRequestID, id)
		c.Header(headerKeyRequestID, id)
		c.Next()
	}
}

// GetRequestID はGinコンテキストからリクエストIDを取得する。
// RequestIDミドルウェアが事前に適用されていない場合は空文字列を返す。
func GetRequestID(c *gin.Context) string {
	value, _ := c.Get(contextKeyRequestID)
	if id, ok := value.(string); ok {
		return id
	}
	return ""
}
