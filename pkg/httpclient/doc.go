// Package httpclient は決済プロバイダ（アップストリーム）へのHTTP通信を行うクライアントを提供する。
//
// リレーの各ルートはこのクライアントを通じてアップストリームを1回だけ呼び出す。
// 認証情報はCredentialとして注入され、フロントエンドに露出することはない。
package httpclient
