// Package gateway は公開エッジゲートウェイの内部実装を提供する。
//
// 外部からアクセス可能な唯一のサービスであり、セキュリティの境界線として
// 機能する。受信リクエストの資格情報（セッションCookieまたはBearerヘッダ）を
// 検証し、検証済みトークンを付与して認証サービス・暗号化サービスへ転送する。
// ログイン成功時は発行されたトークンをHttpOnlyのCookieに格納し、応答ボディには
// トークンを含めない。
package gateway
