// Package apperr は共通エラー定義を提供する。
package apperr

import "errors"

// パケット受信関連エラー
var (
	// ErrMalformedPacket はワイヤフォーマット違反のエラー
	ErrMalformedPacket = errors.New("malformed packet")
	// ErrUnknownClient は未登録クライアントからの受信エラー
	ErrUnknownClient = errors.New("request from unknown client")
	// ErrBadAuthenticator はAuthenticator/MAC検証失敗エラー
	ErrBadAuthenticator = errors.New("invalid authenticator")
	// ErrUnsupportedCode は未対応パケットコードのエラー
	ErrUnsupportedCode = errors.New("unsupported packet code")
	// ErrDeprecatedCode は廃止済みパケットコードのエラー
	ErrDeprecatedCode = errors.New("deprecated packet code")
	// ErrWrongSocket は不正なソケットへの送信エラー
	ErrWrongSocket = errors.New("packet sent to wrong socket")
	// ErrNoUserName はUser-Name属性欠落のエラー
	ErrNoUserName = errors.New("no User-Name attribute")
)

// リクエストテーブル関連エラー
var (
	// ErrDuplicateRequest は重複リクエストのエラー
	ErrDuplicateRequest = errors.New("duplicate request")
	// ErrTableOverload はリクエストテーブル過負荷のエラー
	ErrTableOverload = errors.New("request table overloaded")
)

// ストア関連エラー
var (
	// ErrValkeyUnavailable はValkey接続不可のエラー
	ErrValkeyUnavailable = errors.New("valkey unavailable")
	// ErrClientNotFound はクライアント未登録のエラー
	ErrClientNotFound = errors.New("client not found")
	// ErrSubscriberNotFound は加入者未登録のエラー
	ErrSubscriberNotFound = errors.New("subscriber not found")
)

// 転送関連エラー
var (
	// ErrForwardCircuitOpen はサーキットブレーカーOpen状態のエラー
	ErrForwardCircuitOpen = errors.New("forward circuit breaker open")
	// ErrForwardFailed は転送失敗のエラー
	ErrForwardFailed = errors.New("forward failed")
)
