// Package token は署名付きセッショントークンのライフサイクルを提供する。
//
// トークンの発行・検証・リフレッシュ・クレーム抽出を担当する。
// トークンはHMAC-SHA256で署名されたコンパクト形式（ヘッダ・ペイロード・署名を
// ドット区切りでbase64url符号化した3セグメント）であり、サーバー側に状態を
// 持たない。有効性は署名と埋め込まれたタイムスタンプのみで決まる。
package token
