package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/edgeauth/pkg/forward"
	"github.com/nao1215/edgeauth/pkg/middleware"
	"github.com/nao1215/edgeauth/pkg/token"
)

// sessionCookieMaxAge はセッションCookieの有効期間（秒）。
// トークンのデフォルト有効期間（60分）に合わせている。
const sessionCookieMaxAge = 3600

// unauthenticatedMessage は資格情報が提示されなかった場合の応答メッセージ。
// 検証失敗時とメッセージを揃え、外部から失敗理由を区別できないようにする。
const unauthenticatedMessage = "認証が必要です"

// Server は公開エッジゲートウェイのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// tokens はトークンの検証を行うサービス。
	tokens *token.Service
	// forwarder は内部サービスへのリクエスト転送クライアント。
	forwarder *forward.Forwarder
	// serviceURLs は内部サービスのURL。
	serviceURLs serviceURLConfig
}

// serviceURLConfig は内部サービスのURL設定。
type serviceURLConfig struct {
	Auth   string
	Crypto string
}

// NewServer は新しいGatewayサーバーを生成する。
func NewServer(port string) (*Server, error) {
	urls := serviceURLConfig{
		Auth:   getEnvOr("AUTH_SERVICE_URL", "http://localhost:8081"),
		Crypto: getEnvOr("CRYPTO_SERVICE_URL", "http://localhost:8082"),
	}

	frontendURL := getEnvOr("FRONTEND_URL", "http://localhost:3000")

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS([]string{frontendURL}))

	s := &Server{
		router:      router,
		port:        port,
		tokens:      token.NewService(token.ConfigFromEnv()),
		forwarder:   forward.New(forward.Config{}),
		serviceURLs: urls,
	}
	s.setupRoutes()

	return s, nil
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	// 認証エンドポイント
	auth := s.router.Group("/auth")
	{
		// ログインのみ資格情報不要
		auth.POST("/login", s.handleLogin())
		auth.GET("/health", s.handlePassthrough(s.serviceURLs.Auth+"/api/auth/health"))

		// ローカル検証を通過したトークンのみ転送する
		verified := auth.Group("")
		verified.Use(middleware.RequireToken(s.tokens))
		{
			verified.POST("/verify", s.handleAuthProxy("/api/auth/verify"))
			verified.POST("/refresh", s.handleRefresh())
		}

		// 期限切れトークンでも上流が応答できるよう、提示の有無だけを確認する
		auth.GET("/userinfo", s.handlePresenceProxy(s.serviceURLs.Auth+"/api/auth/userinfo"))
		auth.POST("/logout", s.handleLogout())
	}

	// 暗号化エンドポイント
	crypto := s.router.Group("/crypto")
	{
		crypto.GET("/health", s.handlePassthrough(s.serviceURLs.Crypto+"/health"))

		verified := crypto.Group("")
		verified.Use(middleware.RequireToken(s.tokens))
		{
			verified.POST("/encrypt", s.handleCryptoProxy("/encrypt"))
			verified.POST("/decrypt", s.handleCryptoProxy("/decrypt"))
		}
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "gateway"})
	})
}

// handleLogin はログインリクエストを認証サービスへ転送するハンドラを返す。
// 上流が200を返した場合、発行されたトークンをHttpOnlyのセッションCookieに
// 格納し、応答ボディにはトークンを含めない。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		result := s.doForward(c, s.serviceURLs.Auth+"/api/auth/login", "")
		if result.StatusCode != http.StatusOK {
			s.relay(c, result)
			return
		}

		var upstream struct {
			Token     string `json:"token"`
			ExpiresAt string `json:"expires_at"`
		}
		if err := json.Unmarshal(result.Body, &upstream); err != nil || upstream.Token == "" {
			c.JSON(http.StatusBadGateway, gin.H{"error": "認証サービスの応答を解釈できませんでした"})
			return
		}

		s.setSessionCookie(c, upstream.Token)
		c.JSON(http.StatusOK, gin.H{
			"message":    "ログインしました",
			"expires_at": upstream.ExpiresAt,
		})
	}
}

// handleRefresh はトークン更新リクエストを認証サービスへ転送するハンドラを返す。
// 上流が200を返した場合、セッションCookieを新しいトークンで置き換えたうえで
// 応答ボディをそのまま中継する。ヘッダでトークンを扱うクライアントは
// ボディから新しいトークンを受け取れる。
func (s *Server) handleRefresh() gin.HandlerFunc {
	return func(c *gin.Context) {
		result := s.doForward(c, s.serviceURLs.Auth+"/api/auth/refresh", middleware.GetToken(c))
		if result.StatusCode == http.StatusOK {
			var upstream struct {
				Token string `json:"token"`
			}
			if err := json.Unmarshal(result.Body, &upstream); err == nil && upstream.Token != "" {
				s.setSessionCookie(c, upstream.Token)
			}
		}
		s.relay(c, result)
	}
}

// handleLogout はログアウトリクエストを認証サービスへ転送するハンドラを返す。
// 資格情報の提示を必須とし、転送結果にかかわらずセッションCookieを破棄する。
func (s *Server) handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := middleware.ExtractToken(c, middleware.DefaultTokenSources()...)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": unauthenticatedMessage})
			return
		}

		result := s.doForward(c, s.serviceURLs.Auth+"/api/auth/logout", tokenString)
		s.clearSessionCookie(c)
		s.relay(c, result)
	}
}

// handleAuthProxy は検証済みトークンを付与して認証サービスへ転送するハンドラを返す。
// middleware.RequireTokenの適用が前提となる。
func (s *Server) handleAuthProxy(path string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.relay(c, s.doForward(c, s.serviceURLs.Auth+path, middleware.GetToken(c)))
	}
}

// handleCryptoProxy は検証済みトークンを付与して暗号化サービスへ転送するハンドラを返す。
func (s *Server) handleCryptoProxy(path string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.relay(c, s.doForward(c, s.serviceURLs.Crypto+path, middleware.GetToken(c)))
	}
}

// handlePresenceProxy は資格情報の提示だけを確認して転送するハンドラを返す。
// トークンの正当性は上流サービスが判断する。
func (s *Server) handlePresenceProxy(destinationURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := middleware.ExtractToken(c, middleware.DefaultTokenSources()...)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": unauthenticatedMessage})
			return
		}
		s.relay(c, s.doForward(c, destinationURL, tokenString))
	}
}

// handlePassthrough は資格情報なしでそのまま転送するハンドラを返す。
func (s *Server) handlePassthrough(destinationURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.relay(c, s.doForward(c, destinationURL, ""))
	}
}

// doForward は受信リクエストを内部サービスへ転送する共通処理。
// クエリ文字列は転送先URLへ引き継ぐ。
func (s *Server) doForward(c *gin.Context, destinationURL, bearerToken string) *forward.Result {
	if c.Request.URL.RawQuery != "" {
		destinationURL += "?" + c.Request.URL.RawQuery
	}
	return s.forwarder.Forward(c.Request.Context(), destinationURL, forward.FromHTTP(c.Request), bearerToken)
}

// relay は転送結果をクライアントへそのまま返す。
func (s *Server) relay(c *gin.Context, result *forward.Result) {
	c.Data(result.StatusCode, result.ContentType(), result.Body)
}

// setSessionCookie は発行されたトークンをHttpOnlyのセッションCookieに格納する。
func (s *Server) setSessionCookie(c *gin.Context, tokenString string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.SessionCookieName, tokenString, sessionCookieMaxAge, "/", "", false, true)
}

// clearSessionCookie はセッションCookieを破棄する。
func (s *Server) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.SessionCookieName, "", -1, "/", "", false, true)
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
