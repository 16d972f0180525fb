// 暗号化サービスのエントリポイント。
// 認証済みクライアント向けに対称鍵による暗号化・復号を提供する。
// ゲートウェイ経由でのみアクセスされる内部サービス。
package main

import (
	"log"
	"os"

	"github.com/nao1215/edgeauth/internal/crypto"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8082"
	}

	server, err := crypto.NewServer(port)
	if err != nil {
		log.Fatalf("暗号化サーバーの初期化に失敗: %v", err)
	}

	log.Printf("暗号化サービスを起動します: :%s", port)
	if err := server.Run(); err != nil {
		log.Fatalf("暗号化サービスの起動に失敗: %v", err)
	}
}
