package auth

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	_ "modernc.org/sqlite"

	"github.com/nao1215/edgeauth/pkg/middleware"
	"github.com/nao1215/edgeauth/pkg/token"
)

// デフォルトの管理者資格情報。ユーザーストアを設定しない開発構成で使用する。
const (
	defaultAdminUsername = "admin"
	defaultAdminPassword = "password"
	defaultAdminRole     = "Admin"
)

// Server は認証サービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// tokens はトークンの発行・検証を行うサービス。
	tokens *token.Service
	// verifier はログイン資格情報の検証器。
	verifier CredentialVerifier
	// db はSQLiteデータベース接続。SQLite検証器を使わない場合はnil。
	db *sql.DB
}

// NewServer は新しい認証サーバーを生成する。
// AUTH_DB環境変数が設定されている場合はSQLiteのユーザーストアを初期化し、
// 未設定の場合は固定の資格情報を検証する。
func NewServer(port string) (*Server, error) {
	username := getEnvOr("AUTH_USERNAME", defaultAdminUsername)
	password := getEnvOr("AUTH_PASSWORD", defaultAdminPassword)
	role := getEnvOr("AUTH_ROLE", defaultAdminRole)

	var verifier CredentialVerifier
	var sqlDB *sql.DB
	if dbPath := os.Getenv("AUTH_DB"); dbPath != "" {
		var err error
		sqlDB, err = sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
		if err != nil {
			return nil, fmt.Errorf("データベース接続に失敗: %w", err)
		}
		if err := initSchema(sqlDB); err != nil {
			return nil, err
		}
		if err := seedUser(sqlDB, username, password, role); err != nil {
			return nil, err
		}
		verifier = NewSQLiteVerifier(sqlDB)
	} else {
		verifier = NewStaticVerifier(username, password, role)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())

	s := &Server{
		router:   router,
		port:     port,
		tokens:   token.NewService(token.ConfigFromEnv()),
		verifier: verifier,
		db:       sqlDB,
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
	api := s.router.Group("/api/auth")
	{
		api.POST("/login", s.handleLogin())
		api.POST("/verify", s.handleVerify())
		api.POST("/refresh", s.handleRefresh())
		api.GET("/userinfo", s.handleUserInfo())
		api.POST("/logout", s.handleLogout())
		api.GET("/health", s.handleHealth())
	}
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	// Username はユーザー名。
	Username string `json:"username" binding:"required"`
	// Password はパスワード。
	Password string `json:"password" binding:"required"`
}

// handleLogin は資格情報を検証しトークンを発行するハンドラを返す。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストボディが不正です"})
			return
		}

		identity, ok := s.verifier.Verify(c.Request.Context(), req.Username, req.Password)
		if !ok {
			// ユーザー不在とパスワード不一致を外部から区別させない
			c.JSON(http.StatusUnauthorized, gin.H{"error": "認証に失敗しました"})
			return
		}

		signed, claims, err := s.tokens.Issue(identity.Subject, identity.Role)
		if err != nil {
			log.Printf("トークン発行に失敗: request_id=%s, error=%v", middleware.GetRequestID(c), err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "トークンの発行に失敗しました"})
			return
		}

		log.Printf("ログイン成功: subject=%s, role=%s", identity.Subject, identity.Role)
		c.JSON(http.StatusOK, gin.H{
			"token":      signed,
			"expires_at": claims.ExpiresAt.UTC().Format(time.RFC3339),
		})
	}
}

// handleVerify はトークンを完全検証するハンドラを返す。
// 失敗理由は外部に明かさず一律に401を返す。
func (s *Server) handleVerify() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "認証が必要です"})
			return
		}

		claims := s.tokens.Validate(tokenString)
		if claims == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "認証が必要です"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"valid":      true,
			"subject":    claims.Subject,
			"role":       claims.Role,
			"expires_at": claims.ExpiresAt.UTC().Format(time.RFC3339),
		})
	}
}

// handleRefresh は有効なトークンから新しいトークンを発行するハンドラを返す。
func (s *Server) handleRefresh() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "認証が必要です"})
			return
		}

		refreshed, claims := s.tokens.Refresh(tokenString)
		if refreshed == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "認証が必要です"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token":      refreshed,
			"expires_at": claims.ExpiresAt.UTC().Format(time.RFC3339),
		})
	}
}

// handleUserInfo はトークンのクレームを表示用に返すハンドラを返す。
// 期限切れでも構造的に正しいトークンを許容する（表示専用であり、
// この応答を認可判断に使ってはならない）。
func (s *Server) handleUserInfo() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "認証が必要です"})
			return
		}

		claims := s.tokens.ExtractClaimsUnverified(tokenString)
		if claims == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "認証が必要です"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"subject":    claims.Subject,
			"role":       claims.Role,
			"issued_at":  claims.IssuedAt.UTC().Format(time.RFC3339),
			"expires_at": claims.ExpiresAt.UTC().Format(time.RFC3339),
		})
	}
}

// handleLogout はログアウトを処理するハンドラを返す。
// セッションはステートレスなため取り消す状態はなく、監査ログの出力のみ行う。
// 誰がログアウトしたかの記録には期限切れトークンも許容する。
func (s *Server) handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "認証が必要です"})
			return
		}

		if claims := s.tokens.ExtractClaimsUnverified(tokenString); claims != nil {
			log.Printf("ログアウト: subject=%s, jti=%s", claims.Subject, claims.TokenID)
		}
		c.JSON(http.StatusOK, gin.H{"message": "ログアウトしました"})
	}
}

// handleHealth はヘルスチェックハンドラを返す。認証は不要。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "auth"})
	}
}

// bearerToken は受信リクエストのAuthorizationヘッダからBearerトークンを取り出す。
// 認証サービスへの資格情報はgatewayがBearerヘッダに変換して届ける。
func bearerToken(c *gin.Context) (string, bool) {
	return middleware.ExtractToken(c, middleware.FromBearerHeader())
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
