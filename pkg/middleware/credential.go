package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// SessionCookieName はgatewayがセッショントークンを格納するCookie名。
const SessionCookieName = "access_token"

// TokenSource は受信リクエストから資格情報を探す戦略。
// 見つかった場合はトークンとtrueを返す。
type TokenSource func(c *gin.Context) (string, bool)

// FromCookie は指定された名前のCookieからトークンを探す戦略を返す。
func FromCookie(name string) TokenSource {
	return func(c *gin.Context) (string, bool) {
		value, err := c.Cookie(name)
		if err != nil || value == "" {
			return "", false
		}
		return value, true
	}
}

// FromBearerHeader はAuthorizationヘッダのBearer値からトークンを探す戦略を返す。
func FromBearerHeader() TokenSource {
	return func(c *gin.Context) (string, bool) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			return "", false
		}
		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || tokenString == "" {
			return "", false
		}
		return tokenString, true
	}
}

// DefaultTokenSources は既定の資格情報抽出戦略を順序付きで返す。
// セッションCookieを優先し、なければBearerヘッダを参照する。
// 両方が存在する場合はCookieが勝つ。
func DefaultTokenSources() []TokenSource {
	return []TokenSource{
		FromCookie(SessionCookieName),
		FromBearerHeader(),
	}
}

// ExtractToken は戦略を順に試し、最初に見つかったトークンを返す。
// どの戦略でも見つからない場合はfalseを返す。
func ExtractToken(c *gin.Context, sources ...TokenSource) (string, bool) {
	for _, source := range sources {
		if tokenString, ok := source(c); ok {
			return tokenString, true
		}
	}
	return "", false
}
