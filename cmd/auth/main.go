// 認証サービスのエントリポイント。
// 資格情報の検証とJWTの発行・検証・更新を担当する。
// ゲートウェイ経由でのみアクセスされる内部サービス。
package main

import (
	"log"
	"os"

	"github.com/nao1215/edgeauth/internal/auth"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	server, err := auth.NewServer(port)
	if err != nil {
		log.Fatalf("認証サーバーの初期化に失敗: %v", err)
	}

	log.Printf("認証サービスを起動します: :%s", port)
	if err := server.Run(); err != nil {
		log.Fatalf("認証サービスの起動に失敗: %v", err)
	}
}
