// Package forward はアカウンティングレコードの書き出し先（detailファイル
// とHTTP転送）を提供する。
package forward

import "context"

// Record は1件のアカウンティングレコード。
type Record struct {
	Timestamp    string `json:"timestamp"` // RFC3339
	TraceID      string `json:"trace_id"`
	SrcIP        string `json:"src_ip"`
	StatusType   string `json:"status_type"`
	SessionID    string `json:"session_id"`
	UserName     string `json:"user_name"`
	NASIPAddress string `json:"nas_ip_address,omitempty"`
	NASPort      uint32 `json:"nas_port,omitempty"`
	SessionTime  uint32 `json:"session_time,omitempty"`
	InputOctets  uint32 `json:"input_octets,omitempty"`
	OutputOctets uint32 `json:"output_octets,omitempty"`
}

// Writer はアカウンティングレコードの書き出し先を定義する。
type Writer interface {
	// Write はレコードを1件書き出す。
	Write(ctx context.Context, rec *Record) error
}
