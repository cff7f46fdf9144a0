package config

import "time"

// リクエストテーブル制限
const (
	// CleanupDelay は完了後の再送再生保持時間
	CleanupDelay = 5 * time.Second
	// MaxRequestTime はワーカー監視の上限
	MaxRequestTime = 30 * time.Second
	// MaxRequests は同時リクエスト記録数の上限
	MaxRequests = 256
)

// ポート設定
const (
	// DefaultAuthPort は認証ポート（RFC 2865。旧来値は1645）
	DefaultAuthPort = 1812
	// LegacyAuthPort は旧radius/udpポート
	LegacyAuthPort = 1645
	// DefaultDHCPPort はDHCPサーバーポート
	DefaultDHCPPort = 67
	// ProxyPortMin / ProxyPortMax はプロキシポート探索範囲
	ProxyPortMin = 1024
	ProxyPortMax = 64000
)

// Valkey接続設定
const (
	ValkeyConnectTimeout = 3 * time.Second
	ValkeyCommandTimeout = 2 * time.Second
	ValkeyPoolSize       = 10
	ValkeyMaxRetries     = 3
	ValkeyMinRetryDelay  = 100 * time.Millisecond
	ValkeyMaxRetryDelay  = 1 * time.Second
)

// アカウンティング転送のCircuit Breaker設定
const (
	CBName             = "acct-forwarder"
	CBMaxRequests      = 3
	CBInterval         = 10 * time.Second
	CBTimeout          = 30 * time.Second
	CBFailureThreshold = 5
)

// 転送先HTTP設定
const (
	ForwardConnectTimeout = 2 * time.Second
	ForwardRequestTimeout = 5 * time.Second
)

// サーバーシャットダウン設定
const (
	ShutdownTimeout = 5 * time.Second
)

// ソケット受信バッファサイズ（RADIUS上限4096、DHCPは1460）
const (
	RecvBufferSize = 4096
)
