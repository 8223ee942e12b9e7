// Package relay は決済プロバイダへのリレーサーバーの内部実装を提供する。
//
// ブラウザのフロントエンドから受け取ったリクエストにサーバー側で保持する
// APIキーを付与し、決済プロバイダ（SmartPay）に転送する。プロバイダの
// ステータスコードとJSONボディは加工せずにそのまま返す。
// プロバイダからの非同期コールバック（Webhook）はログに記録し、常に200で応答する。
//
// 永続化、リトライ、冪等性管理、コールバックの署名検証は行わない。
package relay
