// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// トークン検証による認証ガード、受信リクエストからの資格情報抽出
// （セッションCookie優先・Bearerヘッダ後続）、リクエストID付与、
// パニックリカバリ、CORS設定など、全サービスで共通して使用する
// ミドルウェアを含む。
package middleware
