package handler

import (
	"context"
	"errors"
	"net"
	"testing"

	"layeh.com/radius"
	"layeh.com/radius/rfc2865"
	"layeh.com/radius/rfc2866"

	"github.com/oyaguma3/radius-dispatcher-poc/internal/forward"
	"github.com/oyaguma3/radius-dispatcher-poc/internal/request"
	"github.com/oyaguma3/radius-dispatcher-poc/internal/wire"
)

// captureWriter はテスト用のWriter実装。
type captureWriter struct {
	records []*forward.Record
	err     error
}

func (w *captureWriter) Write(_ context.Context, rec *forward.Record) error {
	w.records = append(w.records, rec)
	return w.err
}

func newAcctRequest(t *testing.T, statusType rfc2866.AcctStatusType) *request.Request {
	t.Helper()
	rp := radius.New(radius.CodeAccountingRequest, testSecret)
	_ = rfc2866.AcctStatusType_Set(rp, statusType)
	_ = rfc2866.AcctSessionID_SetString(rp, "sess-42")
	_ = rfc2865.UserName_SetString(rp, "alice")
	_ = rfc2866.AcctInputOctets_Set(rp, 1000)
	_ = rfc2866.AcctOutputOctets_Set(rp, 2000)

	pkt := &wire.Packet{
		Code:   wire.CodeAccountingRequest,
		ID:     uint32(rp.Identifier),
		Src:    &net.UDPAddr{IP: net.ParseIP("10.0.0.1"), Port: 50000},
		Radius: rp,
	}
	return request.New(pkt, testSecret, "trace-acct")
}

func TestAccountingWritesRecordAndResponds(t *testing.T) {
	w := &captureWriter{}
	fn := NewAccounting([]forward.Writer{w})

	req := newAcctRequest(t, rfc2866.AcctStatusType_Value_Start)
	fn(context.Background(), req)

	if len(w.records) != 1 {
		t.Fatalf("records: got %d, want 1", len(w.records))
	}
	rec := w.records[0]
	if rec.StatusType != "start" || rec.SessionID != "sess-42" || rec.UserName != "alice" {
		t.Errorf("record: got %+v", rec)
	}
	if rec.InputOctets != 1000 || rec.OutputOctets != 2000 {
		t.Errorf("octets: got %d/%d", rec.InputOctets, rec.OutputOctets)
	}

	reply := req.Reply()
	if reply == nil || reply.Code != wire.CodeAccountingResponse {
		t.Fatalf("reply: got %+v, want Accounting-Response", reply)
	}
}

func TestAccountingRespondsDespiteWriteError(t *testing.T) {
	w := &captureWriter{err: errors.New("disk full")}
	fn := NewAccounting([]forward.Writer{w})

	req := newAcctRequest(t, rfc2866.AcctStatusType_Value_Stop)
	fn(context.Background(), req)

	// 書き出し失敗でも受信確認は返す
	reply := req.Reply()
	if reply == nil || reply.Code != wire.CodeAccountingResponse {
		t.Fatalf("reply: got %+v, want Accounting-Response", reply)
	}
}

func TestAccountingNoStatusType(t *testing.T) {
	rp := radius.New(radius.CodeAccountingRequest, testSecret)
	pkt := &wire.Packet{
		Code:   wire.CodeAccountingRequest,
		Src:    &net.UDPAddr{IP: net.ParseIP("10.0.0.1"), Port: 50000},
		Radius: rp,
	}
	req := request.New(pkt, testSecret, "trace")

	w := &captureWriter{}
	fn := NewAccounting([]forward.Writer{w})
	fn(context.Background(), req)

	if len(w.records) != 0 {
		t.Error("Acct-Status-Typeなしはレコードを書かないべき")
	}
	if req.Reply() != nil {
		t.Error("Acct-Status-Typeなしは応答しないべき")
	}
}

func TestStatusTypeName(t *testing.T) {
	tests := []struct {
		in   rfc2866.AcctStatusType
		want string
	}{
		{rfc2866.AcctStatusType_Value_Start, "start"},
		{rfc2866.AcctStatusType_Value_Stop, "stop"},
		{rfc2866.AcctStatusType_Value_InterimUpdate, "interim-update"},
		{rfc2866.AcctStatusType(99), "unknown"},
	}
	for _, tt := range tests {
		if got := statusTypeName(tt.in); got != tt.want {
			t.Errorf("statusTypeName(%d): got %q, want %q", tt.in, got, tt.want)
		}
	}
}
