package logging

import "log/slog"

// ログフィールド名の定数
const (
	FieldTraceID   = "trace_id"
	FieldEventID   = "event_id"
	FieldError     = "error"
	FieldSrcIP     = "src_ip"
	FieldClient    = "client"
	FieldCode      = "code"
	FieldPacketID  = "packet_id"
	FieldSock      = "sock"
	FieldUserName  = "user_name"
	FieldLatencyMs = "latency_ms"
	FieldTableSize = "table_size"
	FieldHandle    = "handle"
)

// WithTraceID はトレースIDのslog.Attrを返す。
func WithTraceID(traceID string) slog.Attr {
	return slog.String(FieldTraceID, traceID)
}

// WithEventID はイベントIDのslog.Attrを返す。
func WithEventID(eventID string) slog.Attr {
	return slog.String(FieldEventID, eventID)
}

// WithError はエラーのslog.Attrを返す。
func WithError(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}

// WithSrcIP はソースIPアドレスのslog.Attrを返す。
func WithSrcIP(ip string) slog.Attr {
	return slog.String(FieldSrcIP, ip)
}

// WithClient はRADIUSクライアント表示名のslog.Attrを返す。
func WithClient(name string) slog.Attr {
	return slog.String(FieldClient, name)
}

// WithCode はパケットコードのslog.Attrを返す。
func WithCode(code uint32) slog.Attr {
	return slog.Uint64(FieldCode, uint64(code))
}

// WithPacketID はパケットID（RADIUS ID / DHCP xid）のslog.Attrを返す。
func WithPacketID(id uint32) slog.Attr {
	return slog.Uint64(FieldPacketID, uint64(id))
}

// WithLatency はレイテンシ（ミリ秒）のslog.Attrを返す。
func WithLatency(ms int64) slog.Attr {
	return slog.Int64(FieldLatencyMs, ms)
}
