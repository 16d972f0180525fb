package token

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Constraints は検証時に要求する発行者・想定利用者の制約。
// 空文字列のフィールドは検証しない。
type Constraints struct {
	// Issuer は期待する発行者（issクレーム）。
	Issuer string
	// Audience は期待する想定利用者（audクレーム）。
	Audience string
}

// Codec はコンパクト形式トークンの署名・復号・検証を行う。
// HMAC-SHA256のみをサポートする。
type Codec struct {
	// now は現在時刻を返す関数。テストで差し替えるためフィールドにしている。
	now func() time.Time
}

// NewCodec は新しいCodecを生成する。
func NewCodec() *Codec {
	return &Codec{now: time.Now}
}

// knownClaimKeys はClaimsのフィールドに対応する既知のクレームキー。
var knownClaimKeys = map[string]struct{}{
	"sub": {}, "role": {}, "jti": {}, "iat": {}, "nbf": {}, "exp": {}, "iss": {}, "aud": {},
}

// Sign はクレームをHMAC-SHA256で署名したコンパクト形式トークンを返す。
// ヘッダまたはペイロードのいずれかが変化すると署名は無効になる。
func (c *Codec) Sign(claims *Claims, secret []byte) (string, error) {
	p := &payloadClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			ID:        claims.TokenID,
			Issuer:    claims.Issuer,
			Audience:  jwt.ClaimStrings{claims.Audience},
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
		Role: claims.Role,
	}
	if !claims.NotBefore.IsZero() {
		p.NotBefore = jwt.NewNumericDate(claims.NotBefore)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, p).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("トークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// Decode は署名を検証せずにトークンのクレームを取り出す。
// ドット区切りの3セグメントに分解できない場合、またはヘッダ・ペイロードが
// 構造化データとして復号できない場合はErrMalformedTokenを返す。
// 認可判断には決して使用してはならない。
func (c *Codec) Decode(tokenString string) (*Claims, error) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return nil, ErrMalformedToken
	}
	for _, part := range parts {
		if part == "" {
			return nil, ErrMalformedToken
		}
	}

	p := &payloadClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, p); err != nil {
		return nil, ErrMalformedToken
	}

	claims := p.toClaims()
	claims.Extra = extraClaims(parts[1])
	return claims, nil
}

// Verify は署名を再計算して照合し、時刻・発行者・想定利用者の制約を検証する。
// クロックスキューの許容はゼロであり、有効期限ちょうどの時刻で失格となる。
// 失敗理由はerrors.goのセンチネルエラーで返す。
func (c *Codec) Verify(tokenString string, secret []byte, cons Constraints) (*Claims, error) {
	claims, err := c.Decode(tokenString)
	if err != nil {
		return nil, err
	}

	// 署名検証のみライブラリに委ね、クレーム検証は猶予ゼロで自前で行う
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if _, err := parser.ParseWithClaims(tokenString, &payloadClaims{}, func(_ *jwt.Token) (any, error) {
		return secret, nil
	}); err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, ErrBadSignature
		}
		return nil, ErrMalformedToken
	}

	now := c.now()
	if claims.ExpiresAt.IsZero() || !now.Before(claims.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	if !claims.NotBefore.IsZero() && now.Before(claims.NotBefore) {
		return nil, ErrTokenNotYetValid
	}
	if cons.Issuer != "" && claims.Issuer != cons.Issuer {
		return nil, ErrIssuerMismatch
	}
	if cons.Audience != "" && claims.Audience != cons.Audience {
		return nil, ErrAudienceMismatch
	}
	return claims, nil
}

// extraClaims はペイロードセグメントから既知のフィールドに対応しない
// クレームを取り出す。該当がなければnilを返す。
func extraClaims(payloadSegment string) map[string]string {
	raw, err := base64.RawURLEncoding.DecodeString(payloadSegment)
	if err != nil {
		return nil
	}
	var all map[string]any
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil
	}

	var extra map[string]string
	for key, value := range all {
		if _, ok := knownClaimKeys[key]; ok {
			continue
		}
		if extra == nil {
			extra = make(map[string]string)
		}
		extra[key] = fmt.Sprint(value)
	}
	return extra
}
