package token

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// 設定が与えられなかった場合のフォールバックデフォルト。
// 発行が設定不足だけで失敗することはない。
const (
	// defaultSecret は開発用のフォールバック署名鍵。本番では必ず上書きすること。
	defaultSecret = "default_very_long_secret_key_for_development_only_change_in_production"
	// defaultIssuer はデフォルトの発行者。
	defaultIssuer = "auth-service"
	// defaultAudience はデフォルトの想定利用者。
	defaultAudience = "api-gateway"
	// defaultExpiryMinutes はデフォルトの有効期間（分）。
	defaultExpiryMinutes = 60
)

// Config はトークンサービスの設定。ゼロ値のフィールドにはデフォルトが適用される。
type Config struct {
	// Secret はHMAC署名用の共有秘密鍵。
	Secret string
	// Issuer は発行するトークンのissクレーム値。
	Issuer string
	// Audience は発行するトークンのaudクレーム値。
	Audience string
	// ExpiryMinutes はトークンの有効期間（分）。
	ExpiryMinutes int
	// Logf は検証失敗等の診断ログ出力先。未設定の場合はlog.Printfを使う。
	Logf func(format string, args ...any)
}

// ConfigFromEnv は環境変数からトークンサービスの設定を読み込む。
// 未設定の値はゼロ値のままとし、NewServiceでデフォルトが適用される。
func ConfigFromEnv() Config {
	expiryMinutes := 0
	if v := os.Getenv("JWT_EXPIRY_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			expiryMinutes = n
		}
	}
	return Config{
		Secret:        os.Getenv("JWT_SECRET"),
		Issuer:        os.Getenv("JWT_ISSUER"),
		Audience:      os.Getenv("JWT_AUDIENCE"),
		ExpiryMinutes: expiryMinutes,
	}
}

// Service はトークンの発行・検証・リフレッシュを行うステートレスなサービス。
// 設定以外の状態を持たないため、複数ゴルーチンから同時に使用できる。
type Service struct {
	// codec はコンパクト形式トークンの署名・検証を行う。
	codec *Codec
	// secret はHMAC署名用の共有秘密鍵。
	secret []byte
	// issuer は発行・検証に使う発行者名。
	issuer string
	// audience は発行・検証に使う想定利用者名。
	audience string
	// expiry はトークンの有効期間。
	expiry time.Duration
	// logf は診断ログの出力先。
	logf func(format string, args ...any)
	// now は現在時刻を返す関数。テストで差し替える。
	now func() time.Time
}

// NewService は新しいトークンサービスを生成する。
// 設定が欠けていてもデフォルトで補うため、生成は常に成功する。
func NewService(cfg Config) *Service {
	if cfg.Secret == "" {
		cfg.Secret = defaultSecret
	}
	if cfg.Issuer == "" {
		cfg.Issuer = defaultIssuer
	}
	if cfg.Audience == "" {
		cfg.Audience = defaultAudience
	}
	if cfg.ExpiryMinutes <= 0 {
		cfg.ExpiryMinutes = defaultExpiryMinutes
	}
	if cfg.Logf == nil {
		cfg.Logf = log.Printf
	}
	return &Service{
		codec:    NewCodec(),
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		expiry:   time.Duration(cfg.ExpiryMinutes) * time.Minute,
		logf:     cfg.Logf,
		now:      time.Now,
	}
}

// Issue は指定されたサブジェクトとロールから署名付きトークンを発行する。
// 発行ごとに一意なjtiを採番するため、同一の入力でも同じトークンは二度と生成されない。
func (s *Service) Issue(subject, role string) (string, *Claims, error) {
	now := s.now()
	claims := &Claims{
		Subject:   subject,
		Role:      role,
		TokenID:   uuid.New().String(),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.expiry),
		Issuer:    s.issuer,
		Audience:  s.audience,
	}

	signed, err := s.codec.Sign(claims, s.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Validate はトークンの署名・有効期限・発行者・想定利用者を検証する。
// いかなる失敗でも理由を区別せずnilを返す。呼び出し側はログ以外で
// 失敗理由を分岐してはならない。
func (s *Service) Validate(tokenString string) *Claims {
	claims, err := s.codec.Verify(tokenString, s.secret, Constraints{
		Issuer:   s.issuer,
		Audience: s.audience,
	})
	if err != nil {
		s.logf("トークン検証に失敗: %v", err)
		return nil
	}
	return claims
}

// Refresh は有効なトークンのクレームから新しいトークンを発行する。
// 入力トークンが無効な場合、またはsub・roleクレームが欠けている場合は
// 空文字列とnilを返す。元のトークンは失効しない。
func (s *Service) Refresh(tokenString string) (string, *Claims) {
	claims := s.Validate(tokenString)
	if claims == nil {
		s.logf("トークンリフレッシュに失敗: 元のトークンが無効")
		return "", nil
	}
	if claims.Subject == "" || claims.Role == "" {
		s.logf("トークンリフレッシュに失敗: 必須クレームが不足")
		return "", nil
	}

	signed, newClaims, err := s.Issue(claims.Subject, claims.Role)
	if err != nil {
		s.logf("トークンリフレッシュに失敗: %v", err)
		return "", nil
	}
	return signed, newClaims
}

// ExtractClaimsUnverified は署名・有効期限を検証せずにクレームを取り出す。
// 期限切れでも構造的に正しいトークンを許容する診断用途（ログアウト時の
// 監査ログ等）に限って使用する。認可判断には決して使用してはならない。
func (s *Service) ExtractClaimsUnverified(tokenString string) *Claims {
	claims, err := s.codec.Decode(tokenString)
	if err != nil {
		s.logf("トークンのクレーム抽出に失敗: %v", err)
		return nil
	}
	return claims
}
