package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/edgeauth/pkg/token"
)

// 資格情報の欠如と無効は外部から区別できないよう同一のメッセージで応答する。
const unauthenticatedMessage = "認証が必要です"

// コンテキストキー。
const (
	contextKeyClaims = "claims"
	contextKeyToken  = "token"
)

// RequireToken はトークンを検証するGinミドルウェアを返す。
// 資格情報はsourcesの順（省略時はCookie優先・Bearerヘッダ後続）で抽出する。
// 資格情報がない場合も無効な場合も、理由を明かさず一律に401を返す。
// 検証に成功した場合、コンテキストにクレームと元のトークンを設定する。
func RequireToken(svc *token.Service, sources ...TokenSource) gin.HandlerFunc {
	if len(sources) == 0 {
		sources = DefaultTokenSources()
	}
	return func(c *gin.Context) {
		tokenString, ok := ExtractToken(c, sources...)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": unauthenticatedMessage,
			})
			return
		}

		claims := svc.Validate(tokenString)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": unauthenticatedMessage,
			})
			return
		}

		c.Set(contextKeyClaims, claims)
		c.Set(contextKeyToken, tokenString)
		c.Next()
	}
}

// GetClaims はGinコンテキストから検証済みクレームを取得する。
// RequireTokenミドルウェアが事前に適用されている必要がある。
func GetClaims(c *gin.Context) *token.Claims {
	value, _ := c.Get(contextKeyClaims)
	if claims, ok := value.(*token.Claims); ok {
		return claims
	}
	return nil
}

// GetToken はGinコンテキストから検証済みのトークン文字列を取得する。
// RequireTokenミドルウェアが事前に適用されている必要がある。
func GetToken(c *gin.Context) string {
	value, _ := c.Get(contextKeyToken)
	if tokenString, ok := value.(string); ok {
		return tokenString
	}
	return ""
}
