// Package forward は受信リクエストを上流サービスへ転送するクライアントを提供する。
//
// gatewayサービスが内部サービスへリクエストを中継する際に使用する。
// 受信リクエストと同じメソッドで送信リクエストを組み立て、許可リストに
// 含まれるヘッダのみを複製し、指定されたトークンをBearer資格情報として付与する。
// トランスポート層の失敗はゲートウェイ応答（502/504/500）に変換され、
// 生のネットワークエラーが呼び出し側に漏れることはない。
package forward
