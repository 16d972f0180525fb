package auth

import (
	"context"
	"database/sql"
	"log"

	"golang.org/x/crypto/bcrypt"
)

// Identity は検証済み資格情報から生成される不変のアイデンティティ。
type Identity struct {
	// Subject は認証されたユーザーの識別子。
	Subject string
	// Role はユーザーのロール。
	Role string
}

// CredentialVerifier はユーザー名とパスワードを検証するコラボレータの契約。
type CredentialVerifier interface {
	// Verify は資格情報を検証し、成功時にアイデンティティとtrueを返す。
	// 失敗理由は区別しない。
	Verify(ctx context.Context, username, password string) (*Identity, bool)
}

// StaticVerifier は固定のユーザー名・パスワードの組を検証する。
// ユーザーストアを持たない構成でのデフォルトの検証器。
type StaticVerifier struct {
	// username は許可するユーザー名。
	username string
	// password は許可するパスワード。
	password string
	// role は認証成功時に与えるロール。
	role string
}

// NewStaticVerifier は固定の資格情報を検証するStaticVerifierを生成する。
func NewStaticVerifier(username, password, role string) *StaticVerifier {
	return &StaticVerifier{
		username: username,
		password: password,
		role:     role,
	}
}

// Verify は資格情報が固定の組と一致するかを検証する。
func (v *StaticVerifier) Verify(_ context.Context, username, password string) (*Identity, bool) {
	if username != v.username || password != v.password {
		return nil, false
	}
	return &Identity{Subject: username, Role: v.role}, true
}

// SQLiteVerifier はSQLiteのユーザーテーブルに対して資格情報を検証する。
// パスワードはbcryptハッシュで保存される。
type SQLiteVerifier struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
}

// NewSQLiteVerifier はSQLiteベースの資格情報検証器を生成する。
// 事前にinitSchemaでスキーマが適用されている必要がある。
func NewSQLiteVerifier(db *sql.DB) *SQLiteVerifier {
	return &SQLiteVerifier{db: db}
}

// Verify はユーザーを検索しパスワードハッシュを照合する。
// ユーザーが存在しない場合とパスワード不一致の場合を区別しない。
func (v *SQLiteVerifier) Verify(ctx context.Context, username, password string) (*Identity, bool) {
	var passwordHash, role string
	err := v.db.QueryRowContext(ctx,
		"SELECT password_hash, role FROM users WHERE username = ?", username,
	).Scan(&passwordHash, &role)
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		log.Printf("ユーザー検索に失敗: %v", err)
		return nil, false
	}

	if bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)) != nil {
		return nil, false
	}
	return &Identity{Subject: username, Role: role}, true
}
