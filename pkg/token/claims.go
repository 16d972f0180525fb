package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims はトークンに埋め込まれるクレームの型付き表現。
// 既知のクレームはフィールドとして持ち、未知のクレームはExtraに退避する。
type Claims struct {
	// Subject は認証されたユーザーの識別子（subクレーム）。
	Subject string
	// Role はユーザーのロール（roleクレーム）。
	Role string
	// TokenID は発行ごとに一意なトークンID（jtiクレーム）。
	TokenID string
	// IssuedAt はトークンの発行時刻（iatクレーム）。
	IssuedAt time.Time
	// NotBefore はトークンが有効になる時刻（nbfクレーム）。未設定の場合はゼロ値。
	NotBefore time.Time
	// ExpiresAt はトークンの有効期限（expクレーム）。
	ExpiresAt time.Time
	// Issuer はトークンの発行者（issクレーム）。
	Issuer string
	// Audience はトークンの想定利用者（audクレーム）。
	Audience string
	// Extra は既知のフィールドに対応しないクレーム。
	Extra map[string]string
}

// payloadClaims はJWTライブラリとの間でクレームを受け渡すための内部表現。
type payloadClaims struct {
	jwt.RegisteredClaims
	// Role はユーザーのロール。
	Role string `json:"role,omitempty"`
}

// toClaims は内部表現を型付きClaimsに変換する。
func (p *payloadClaims) toClaims() *Claims {
	c := &Claims{
		Subject: p.Subject,
		Role:    p.Role,
		TokenID: p.ID,
		Issuer:  p.Issuer,
	}
	if p.IssuedAt != nil {
		c.IssuedAt = p.IssuedAt.Time
	}
	if p.NotBefore != nil {
		c.NotBefore = p.NotBefore.Time
	}
	if p.ExpiresAt != nil {
		c.ExpiresAt = p.ExpiresAt.Time
	}
	if len(p.Audience) > 0 {
		c.Audience = p.Audience[0]
	}
	return c
}
