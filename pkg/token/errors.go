package token

import "errors"

// トークン検証の失敗理由。Service.Validateはこれらを区別せずnilを返すため、
// 失敗理由はログ出力とテストでのみ参照される。
var (
	// ErrMalformedToken はトークンが3セグメント形式として解釈できないことを示す。
	ErrMalformedToken = errors.New("token: malformed token")
	// ErrBadSignature は署名の再計算結果が一致しないことを示す。
	ErrBadSignature = errors.New("token: bad signature")
	// ErrTokenExpired は現在時刻が有効期限以降であることを示す。
	ErrTokenExpired = errors.New("token: token expired")
	// ErrTokenNotYetValid は現在時刻がnbfより前であることを示す。
	ErrTokenNotYetValid = errors.New("token: token not yet valid")
	// ErrIssuerMismatch は発行者が設定値と一致しないことを示す。
	ErrIssuerMismatch = errors.New("token: issuer mismatch")
	// ErrAudienceMismatch は想定利用者が設定値と一致しないことを示す。
	ErrAudienceMismatch = errors.New("token: audience mismatch")
)
