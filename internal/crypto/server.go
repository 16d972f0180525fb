package crypto

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/edgeauth/pkg/middleware"
	"github.com/nao1215/edgeauth/pkg/token"
)

// Server は暗号化サービスのHTTPサーバー。
// gatewayから転送された認証済みリクエストに対して暗号化・復号を提供する。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// tokens は転送されてきたトークンの検証に使うサービス。
	tokens *token.Service
	// cipher は対称暗号。鍵が未設定の場合はnilとなり、暗号化・復号は503を返す。
	cipher *Cipher
}

// NewServer は新しい暗号化サーバーを生成する。
// CRYPTO_KEY環境変数（base64符号化された32バイト鍵）が未設定の場合でも
// 起動は成功し、暗号化・復号エンドポイントが503を返す状態となる。
func NewServer(port string) (*Server, error) {
	var cipher *Cipher
	if encodedKey := os.Getenv("CRYPTO_KEY"); encodedKey != "" {
		var err error
		cipher, err = NewCipher(encodedKey)
		if err != nil {
			return nil, fmt.Errorf("暗号鍵の読み込みに失敗: %w", err)
		}
	} else {
		log.Print("CRYPTO_KEYが未設定のため暗号化・復号は利用できません")
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())

	s := &Server{
		router: router,
		port:   port,
		tokens: token.NewService(token.ConfigFromEnv()),
		cipher: cipher,
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
	// ヘルスチェック（認証不要）
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "crypto"})
	})

	// 暗号化・復号はgatewayが付与したBearerトークンの検証を必須とする
	guard := middleware.RequireToken(s.tokens, middleware.FromBearerHeader())
	s.router.POST("/encrypt", guard, s.handleEncrypt())
	s.router.POST("/decrypt", guard, s.handleDecrypt())
}

// encryptRequest は暗号化リクエストのボディ。
type encryptRequest struct {
	// Plaintext は暗号化対象の平文。
	Plaintext string `json:"plaintext"`
}

// decryptRequest は復号リクエストのボディ。
type decryptRequest struct {
	// Ciphertext は復号対象のbase64符号化された暗号文。
	Ciphertext string `json:"ciphertext"`
}

// handleEncrypt は平文を暗号化するハンドラを返す。
func (s *Server) handleEncrypt() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cipher == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "暗号化サービスが設定されていません"})
			return
		}

		var req encryptRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Plaintext == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "暗号化対象の平文が必要です"})
			return
		}

		ciphertext, err := s.cipher.Encrypt(req.Plaintext)
		if err != nil {
			log.Printf("暗号化に失敗: request_id=%s, error=%v", middleware.GetRequestID(c), err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "暗号化に失敗しました"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"ciphertext": ciphertext})
	}
}

// handleDecrypt は暗号文を復号するハンドラを返す。
func (s *Server) handleDecrypt() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cipher == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "暗号化サービスが設定されていません"})
			return
		}

		var req decryptRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Ciphertext == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "復号対象の暗号文が必要です"})
			return
		}

		plaintext, err := s.cipher.Decrypt(req.Ciphertext)
		if err != nil {
			// 改ざん・別鍵・形式不正はいずれも入力不正として扱う
			c.JSON(http.StatusBadRequest, gin.H{"error": "復号に失敗しました"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"plaintext": plaintext})
	}
}
