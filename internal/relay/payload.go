package relay

import "encoding/json"

// balanceAccountReference は残高照会時にプロバイダへ送る固定の取引参照。
const balanceAccountReference = "BALANCE"

// 各フィールドはjson.RawMessageで保持し、呼び出し元が送った型（数値/文字列）のまま転送する。
// 送られなかったフィールドは転送ボディからも省略する。

// stkPushRequest はSTK Push（支払い要求）のリクエスト。
type stkPushRequest struct {
	// Phone は支払いを承認する利用者の電話番号。
	Phone json.RawMessage `json:"phone,omitempty"`
	// Amount は請求金額。
	Amount json.RawMessage `json:"amount,omitempty"`
	// AccountReference は加盟店側の取引参照。
	AccountReference json.RawMessage `json:"account_reference,omitempty"`
	// Description は取引の説明。
	Description json.RawMessage `json:"description,omitempty"`
}

// balanceRequest は残高照会のリクエスト。
type balanceRequest struct {
	// Phone は照会対象の電話番号。
	Phone json.RawMessage `json:"phone,omitempty"`
}

// upstreamBalanceRequest はプロバイダへ送る残高照会のボディ。
type upstreamBalanceRequest struct {
	// Phone は照会対象の電話番号。
	Phone json.RawMessage `json:"phone,omitempty"`
	// AccountReference は常にbalanceAccountReference。
	AccountReference string `json:"account_reference"`
}

// transactionStatusRequest は取引状態照会のリクエスト。
type transactionStatusRequest struct {
	// CheckoutRequestID はSTK Push時にプロバイダが払い出した取引ID。
	CheckoutRequestID json.RawMessage `json:"CheckoutRequestID,omitempty"`
}

// webhookAck はWebhookへの応答。
type webhookAck struct {
	// Message は受領メッセージ。
	Message string `json:"message"`
}

// healthResponse はヘルスチェックの応答。
type healthResponse struct {
	// Status はサービスの状態。
	Status string `json:"status"`
	// Service はサービス名。
	Service string `json:"service"`
}

// errorResponse は転送失敗時の応答。
type errorResponse struct {
	// Error は利用者向けのエラーメッセージ。
	Error string `json:"error"`
}
