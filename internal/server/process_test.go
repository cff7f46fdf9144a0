package server

import (
	"context"
	"net"
	"testing"

	layehradius "layeh.com/radius"
	"layeh.com/radius/rfc2865"

	"github.com/oyaguma3/radius-dispatcher-poc/internal/client"
	"github.com/oyaguma3/radius-dispatcher-poc/internal/config"
	radiuspkg "github.com/oyaguma3/radius-dispatcher-poc/internal/radius"
	"github.com/oyaguma3/radius-dispatcher-poc/internal/request"
	"github.com/oyaguma3/radius-dispatcher-poc/internal/wire"
)

var testSecret = []byte("testing123")

func testConfig() *config.Config {
	return &config.Config{
		AuthPort:        1812,
		SpawnMode:       false,
		RealmDelimiter:  "@",
		LogMaskPassword: true,
	}
}

func testRegistry() client.Registry {
	return client.NewChainRegistry(nil, nil, string(testSecret), client.NewNameResolver(false))
}

// recordingHandler は呼び出し回数を数え、Accept応答を設定するハンドラ。
type recordingHandler struct {
	calls int
}

func (h *recordingHandler) fn(ctx context.Context, req *request.Request) {
	h.calls++
	if req.Packet.Radius != nil {
		resp := radiuspkg.BuildResponse(req.Packet.Radius, layehradius.CodeAccessAccept)
		req.SetReply(&wire.Packet{
			Code:   wire.Code(resp.Code),
			ID:     req.Packet.ID,
			Radius: resp,
		})
	}
}

// fakeProxy はSendの返り値を固定したProxyHooks実装。
type fakeProxy struct {
	claim    int
	received int
}

func (p *fakeProxy) Send(req *request.Request) int {
	return p.claim
}

func (p *fakeProxy) Receive(req *request.Request) error {
	p.received++
	return nil
}

func newTestServer(h *recordingHandler, proxy ProxyHooks) *Server {
	handlers := Handlers{
		Authenticate: h.fn,
		Accounting:   h.fn,
	}
	return New(testConfig(), testRegistry(), handlers, proxy)
}

// newRADIUSRequest はUser-Name付きのリクエスト記録を組み立てる。
func newRADIUSRequest(t *testing.T, code wire.Code, sock wire.Socket, vector byte) *request.Request {
	t.Helper()
	rp := layehradius.New(layehradius.Code(code), testSecret)
	_ = rfc2865.UserName_SetString(rp, "alice")

	pkt := &wire.Packet{
		Code:   code,
		ID:     7,
		Src:    &net.UDPAddr{IP: net.ParseIP("10.0.0.1"), Port: 50000},
		Sock:   sock,
		Radius: rp,
	}
	pkt.Vector[0] = vector
	return request.New(pkt, testSecret, "trace-test")
}

func TestProcessRequestOnProxySocketRejected(t *testing.T) {
	h := &recordingHandler{}
	s := newTestServer(h, nil)

	req := newRADIUSRequest(t, wire.CodeAccessRequest, wire.SockProxy, 1)
	s.process(req)

	if h.calls != 0 {
		t.Error("プロキシポートへの要求はハンドラに渡さないべき")
	}
	if s.table.Len() != 0 {
		t.Error("テーブルに記録されないべき")
	}
	if s.stats.Dropped.Load() != 1 {
		t.Errorf("Dropped: got %d, want 1", s.stats.Dropped.Load())
	}
}

func TestProcessReplyOnRequestSocketRejected(t *testing.T) {
	h := &recordingHandler{}
	s := newTestServer(h, nil)

	req := newRADIUSRequest(t, wire.CodeAccessAccept, wire.SockAuth, 1)
	s.process(req)

	if h.calls != 0 || s.table.Len() != 0 {
		t.Error("要求ポートへの応答コードは破棄されるべき")
	}
}

func TestProcessReplyOnProxySocketToHook(t *testing.T) {
	h := &recordingHandler{}
	proxy := &fakeProxy{}
	s := newTestServer(h, proxy)

	req := newRADIUSRequest(t, wire.CodeAccessAccept, wire.SockProxy, 1)
	s.process(req)

	if proxy.received != 1 {
		t.Errorf("Receive呼び出し: got %d, want 1", proxy.received)
	}
	if h.calls != 0 {
		t.Error("プロキシ応答はハンドラに渡さないべき")
	}
}

func TestProcessPasswordRequestDeprecated(t *testing.T) {
	h := &recordingHandler{}
	s := newTestServer(h, nil)

	req := newRADIUSRequest(t, wire.CodePasswordRequest, wire.SockAuth, 1)
	s.process(req)

	if h.calls != 0 || s.table.Len() != 0 {
		t.Error("Password-Requestは破棄されるべき")
	}
}

func TestProcessUnknownCodeRejected(t *testing.T) {
	h := &recordingHandler{}
	s := newTestServer(h, nil)

	req := newRADIUSRequest(t, wire.Code(99), wire.SockAuth, 1)
	s.process(req)

	if h.calls != 0 || s.table.Len() != 0 {
		t.Error("未知コードは破棄されるべき")
	}
}

func TestProcessNoUserNameDropped(t *testing.T) {
	h := &recordingHandler{}
	s := newTestServer(h, nil)

	rp := layehradius.New(layehradius.CodeAccessRequest, testSecret)
	pkt := &wire.Packet{
		Code:   wire.CodeAccessRequest,
		ID:     9,
		Src:    &net.UDPAddr{IP: net.ParseIP("10.0.0.1"), Port: 50000},
		Sock:   wire.SockAuth,
		Radius: rp,
	}
	req := request.New(pkt, testSecret, "trace")
	s.process(req)

	if h.calls != 0 || s.table.Len() != 0 {
		t.Error("User-Nameなしは破棄されるべき")
	}
}

func TestProcessInlineExecution(t *testing.T) {
	h := &recordingHandler{}
	s := newTestServer(h, nil)

	req := newRADIUSRequest(t, wire.CodeAccessRequest, wire.SockAuth, 1)
	s.process(req)

	if h.calls != 1 {
		t.Fatalf("ハンドラ呼び出し: got %d, want 1", h.calls)
	}
	if s.table.Len() != 1 {
		t.Errorf("テーブル: got %d, want 1", s.table.Len())
	}
	if !req.Finished() {
		t.Error("インライン実行後はFinishedが立つべき")
	}
	if req.Reply() == nil || req.Reply().Data == nil {
		t.Error("応答がエンコードされるべき")
	}
}

func TestProcessDuplicateReplay(t *testing.T) {
	h := &recordingHandler{}
	s := newTestServer(h, nil)

	first := newRADIUSRequest(t, wire.CodeAccessRequest, wire.SockAuth, 1)
	s.process(first)

	// 同一タプルの再送 → キャッシュ応答の再生、ハンドラは再実行しない
	dup := newRADIUSRequest(t, wire.CodeAccessRequest, wire.SockAuth, 1)
	s.process(dup)

	if h.calls != 1 {
		t.Errorf("ハンドラ呼び出し: got %d, want 1", h.calls)
	}
	if s.stats.Replayed.Load() != 1 {
		t.Errorf("Replayed: got %d, want 1", s.stats.Replayed.Load())
	}
	if s.table.Len() != 1 {
		t.Errorf("テーブル: got %d, want 1", s.table.Len())
	}
}

func TestProcessProxyClaimsRequest(t *testing.T) {
	h := &recordingHandler{}
	proxy := &fakeProxy{claim: 1}
	s := newTestServer(h, proxy)

	req := newRADIUSRequest(t, wire.CodeAccessRequest, wire.SockAuth, 1)
	s.process(req)

	if h.calls != 0 {
		t.Error("プロキシが引き取った要求はハンドラに渡さないべき")
	}
	if s.table.Len() != 0 {
		t.Error("プロキシ引き取り時はテーブルに載らないべき")
	}
}

func TestProcessDHCPWithoutHandler(t *testing.T) {
	h := &recordingHandler{}
	s := newTestServer(h, nil)

	pkt := &wire.Packet{
		Code: wire.CodeDHCPDiscover,
		ID:   0x1234,
		Src:  &net.UDPAddr{IP: net.ParseIP("192.0.2.5"), Port: 68},
		Sock: wire.SockDHCP,
	}
	req := request.New(pkt, nil, "trace")
	s.process(req)

	if s.table.Len() != 0 {
		t.Error("DHCPハンドラ未構成時は破棄されるべき")
	}
}

func TestProcessDHCPWithHandler(t *testing.T) {
	h := &recordingHandler{}
	called := 0
	s := New(testConfig(), testRegistry(), Handlers{
		Authenticate: h.fn,
		Accounting:   h.fn,
		DHCP: func(ctx context.Context, req *request.Request) {
			called++
		},
	}, nil)

	pkt := &wire.Packet{
		Code: wire.CodeDHCPDiscover,
		ID:   0x1234,
		Src:  &net.UDPAddr{IP: net.ParseIP("192.0.2.5"), Port: 68},
		Sock: wire.SockDHCP,
	}
	req := request.New(pkt, nil, "trace")
	s.process(req)

	if called != 1 {
		t.Errorf("DHCPハンドラ呼び出し: got %d, want 1", called)
	}
	if s.table.Len() != 1 {
		t.Errorf("テーブル: got %d, want 1", s.table.Len())
	}
}

func TestProcessStatusServerInline(t *testing.T) {
	h := &recordingHandler{}
	s := newTestServer(h, nil)

	// Message-AuthenticatorなしのStatus-Serverは破棄
	req := newRADIUSRequest(t, wire.CodeStatusServer, wire.SockAuth, 1)
	s.process(req)

	if h.calls != 0 {
		t.Error("Status-Serverはハンドラに渡さないべき")
	}
	if s.table.Len() != 0 {
		t.Error("Status-Serverはテーブルに載らないべき")
	}
	if s.stats.Dropped.Load() != 1 {
		t.Errorf("Dropped: got %d, want 1", s.stats.Dropped.Load())
	}

	// 正しいMessage-Authenticator付きは応答する
	ok := newRADIUSRequest(t, wire.CodeStatusServer, wire.SockAuth, 2)
	radiuspkg.SetMessageAuthenticator(ok.Packet.Radius, testSecret, ok.Packet.Radius.Authenticator)
	s.process(ok)

	if s.stats.Responded.Load() != 1 {
		t.Errorf("Responded: got %d, want 1", s.stats.Responded.Load())
	}
}
