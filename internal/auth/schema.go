package auth

import (
	"database/sql"
	"embed"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/nao1215/edgeauth/pkg/migration"
)

//go:embed migrations/*.up.sql
var migrationFS embed.FS

// initSchema はSQLiteデータベースにユーザーストアのスキーマを適用する。
func initSchema(db *sql.DB) error {
	if err := migration.Run(db, migrationFS, "migrations"); err != nil {
		return fmt.Errorf("スキーマの適用に失敗: %w", err)
	}
	return nil
}

// seedUser は指定されたユーザーが存在しなければ作成する。
// 起動時に管理者ユーザーを用意するために使用する。
func seedUser(db *sql.DB, username, password, role string) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users WHERE username = ?", username).Scan(&count); err != nil {
		return fmt.Errorf("ユーザー検索に失敗: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("パスワードハッシュの生成に失敗: %w", err)
	}
	if _, err := db.Exec(
		"INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)",
		username, string(hash), role,
	); err != nil {
		return fmt.Errorf("ユーザー作成に失敗: %w", err)
	}
	return nil
}
