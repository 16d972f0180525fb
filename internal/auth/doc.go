// Package auth は認証サービスの内部実装を提供する。
//
// ログイン時の資格情報検証とトークンの発行・検証・リフレッシュ・
// クレーム参照を担当する。トークンのライフサイクルはpkg/tokenに委譲し、
// 本パッケージはHTTPエンドポイントと資格情報検証器を提供する。
// セッションはステートレスであり、サーバー側にトークンの記録を持たない。
package auth
