package handler

import (
	"context"
	"log/slog"
	"time"

	"layeh.com/radius"
	"layeh.com/radius/rfc2865"
	"layeh.com/radius/rfc2866"

	"github.com/oyaguma3/radius-dispatcher-poc/internal/forward"
	radiuspkg "github.com/oyaguma3/radius-dispatcher-poc/internal/radius"
	"github.com/oyaguma3/radius-dispatcher-poc/internal/request"
	"github.com/oyaguma3/radius-dispatcher-poc/internal/server"
	"github.com/oyaguma3/radius-dispatcher-poc/internal/wire"
)

// statusTypeName はAcct-Status-Type値の表示名を返す。
func statusTypeName(t rfc2866.AcctStatusType) string {
	switch t {
	case rfc2866.AcctStatusType_Value_Start:
		return "start"
	case rfc2866.AcctStatusType_Value_Stop:
		return "stop"
	case rfc2866.AcctStatusType_Value_InterimUpdate:
		return "interim-update"
	case rfc2866.AcctStatusType_Value_AccountingOn:
		return "accounting-on"
	case rfc2866.AcctStatusType_Value_AccountingOff:
		return "accounting-off"
	default:
		return "unknown"
	}
}

// NewAccounting はアカウンティングハンドラを生成する。
// レコードを各Writerへ書き出し、書き出し失敗があっても
// Accounting-Responseは返す（RFC 2866の受信確認はレコード受領の確認で
// あり、後段の永続化成否とは独立）。
func NewAccounting(writers []forward.Writer) server.HandlerFunc {
	return func(ctx context.Context, req *request.Request) {
		rp := req.Packet.Radius
		if rp == nil {
			return
		}

		statusType, err := rfc2866.AcctStatusType_Lookup(rp)
		if err != nil {
			slog.Warn("Acct-Status-Type属性なし",
				"event_id", "ACCT_NO_STATUS_TYPE",
				"trace_id", req.TraceID,
			)
			return
		}

		rec := buildRecord(req, statusType)

		for _, w := range writers {
			if err := w.Write(ctx, rec); err != nil {
				slog.Error("アカウンティングレコード書き出し失敗",
					"event_id", "ACCT_WRITE_ERR",
					"trace_id", req.TraceID,
					"error", err,
				)
			}
		}

		resp := radiuspkg.BuildResponse(rp, radius.CodeAccountingResponse)
		req.SetReply(&wire.Packet{
			Code:   wire.Code(resp.Code),
			ID:     req.Packet.ID,
			Radius: resp,
		})
	}
}

// buildRecord はAccounting-Request属性からレコードを組み立てる。
func buildRecord(req *request.Request, statusType rfc2866.AcctStatusType) *forward.Record {
	rp := req.Packet.Radius

	rec := &forward.Record{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		TraceID:    req.TraceID,
		SrcIP:      req.Packet.Src.IP.String(),
		StatusType: statusTypeName(statusType),
	}

	if v, err := rfc2866.AcctSessionID_LookupString(rp); err == nil {
		rec.SessionID = v
	}
	if v, err := rfc2865.UserName_LookupString(rp); err == nil {
		rec.UserName = v
	}
	if v, err := rfc2865.NASIPAddress_Lookup(rp); err == nil {
		rec.NASIPAddress = v.String()
	}
	if v, err := rfc2865.NASPort_Lookup(rp); err == nil {
		rec.NASPort = uint32(v)
	}
	if v, err := rfc2866.AcctSessionTime_Lookup(rp); err == nil {
		rec.SessionTime = uint32(v)
	}
	if v, err := rfc2866.AcctInputOctets_Lookup(rp); err == nil {
		rec.InputOctets = uint32(v)
	}
	if v, err := rfc2866.AcctOutputOctets_Lookup(rp); err == nil {
		rec.OutputOctets = uint32(v)
	}

	return rec
}
