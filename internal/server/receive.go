package server

import (
	"context"
	"log/slog"
	"net"

	"github.com/google/uuid"
	layehradius "layeh.com/radius"

	"github.com/oyaguma3/radius-dispatcher-poc/internal/dhcp"
	radiuspkg "github.com/oyaguma3/radius-dispatcher-poc/internal/radius"
	"github.com/oyaguma3/radius-dispatcher-poc/internal/request"
	"github.com/oyaguma3/radius-dispatcher-poc/internal/wire"
	"github.com/oyaguma3/radius-dispatcher-poc/pkg/model"
)

// receive は受信データグラム1件をデコードし、リクエストとして分類処理
// へ渡す。デコード・検証の失敗はログを残して破棄する（応答しない）。
func (s *Server) receive(dg datagram) {
	s.stats.Received.Add(1)
	traceID := uuid.New().String()

	var req *request.Request
	if dg.sock == wire.SockDHCP {
		req = s.receiveDHCP(dg, traceID)
	} else {
		req = s.receiveRADIUS(dg, traceID)
	}
	if req == nil {
		s.stats.Dropped.Add(1)
		return
	}

	s.process(req)
}

// receiveDHCP はDHCPソケットのデータグラムをデコードする。
func (s *Server) receiveDHCP(dg datagram, traceID string) *request.Request {
	dst := localAddr(dg.conn)
	pkt, err := dhcp.NewPacket(dg.data, dg.src, dst, dg.conn)
	if err != nil {
		slog.Warn("DHCPパケット検証失敗",
			"event_id", "PKT_DECODE_ERR",
			"trace_id", traceID,
			"src_ip", dg.src.IP.String(),
			"error", err,
		)
		return nil
	}
	if err := dhcp.Decode(pkt); err != nil {
		slog.Warn("DHCPパケットデコード失敗",
			"event_id", "PKT_DECODE_ERR",
			"trace_id", traceID,
			"src_ip", dg.src.IP.String(),
			"error", err,
		)
		return nil
	}

	slog.Debug("DHCPパケット受信",
		"trace_id", traceID,
		"src_ip", dg.src.IP.String(),
		"code", pkt.Code.String(),
		"packet_id", pkt.ID,
	)

	// DHCPには共有シークレットの概念がない。テーブル共用のため
	// シークレットは空のまま記録する。
	return request.New(pkt, nil, traceID)
}

// receiveRADIUS はRADIUSソケットのデータグラムをデコードする。
// クライアント未登録・パース失敗・Authenticator検証失敗はnilを返す。
func (s *Server) receiveRADIUS(dg datagram, traceID string) *request.Request {
	srcIP := dg.src.IP

	cl := s.Registry().Find(context.Background(), srcIP)
	if cl == nil {
		slog.Warn("未登録クライアントからの受信",
			"event_id", "PKT_UNKNOWN_CLIENT",
			"trace_id", traceID,
			"src_ip", srcIP.String(),
			"sock", dg.sock.String(),
		)
		return nil
	}

	rp, err := layehradius.Parse(dg.data, []byte(cl.Secret))
	if err != nil {
		slog.Warn("RADIUSパケットデコード失敗",
			"event_id", "PKT_DECODE_ERR",
			"trace_id", traceID,
			"src_ip", srcIP.String(),
			"error", err,
		)
		return nil
	}

	pkt := &wire.Packet{
		Code:   wire.Code(rp.Code),
		ID:     uint32(rp.Identifier),
		Vector: rp.Authenticator,
		Src:    dg.src,
		Dst:    localAddr(dg.conn),
		Sock:   dg.sock,
		Conn:   dg.conn,
		Data:   append([]byte(nil), dg.data...),
		Radius: rp,
	}

	if !s.verifyAuthenticator(pkt, cl, traceID) {
		return nil
	}

	slog.Debug("RADIUSパケット受信",
		"trace_id", traceID,
		"src_ip", srcIP.String(),
		"client", cl.DisplayName(),
		"code", pkt.Code.String(),
		"packet_id", pkt.ID,
		"sock", dg.sock.String(),
	)

	return request.New(pkt, []byte(cl.Secret), traceID)
}

// verifyAuthenticator はコード別のAuthenticator/MAC検証を行う。
func (s *Server) verifyAuthenticator(pkt *wire.Packet, cl *model.RadiusClient, traceID string) bool {
	secret := []byte(cl.Secret)

	switch pkt.Code {
	case wire.CodeAccountingRequest:
		if !radiuspkg.VerifyAccountingAuthenticator(pkt.Radius, secret) {
			s.logBadAuthenticator(pkt, cl, traceID)
			return false
		}
	case wire.CodeAccessRequest, wire.CodeStatusServer:
		// Access-RequestのAuthenticatorは乱数のため、検証対象は
		// Message-Authenticator属性（存在する場合）のみ
		if !radiuspkg.VerifyMessageAuthenticator(pkt.Radius, secret) {
			s.logBadAuthenticator(pkt, cl, traceID)
			return false
		}
	default:
		// 応答コードのResponse Authenticator検証は対応する送信
		// リクエストを知るプロキシフック側で行う
	}
	return true
}

func (s *Server) logBadAuthenticator(pkt *wire.Packet, cl *model.RadiusClient, traceID string) {
	slog.Warn("Authenticator検証失敗",
		"event_id", "PKT_AUTH_ERR",
		"trace_id", traceID,
		"src_ip", pkt.Src.IP.String(),
		"client", cl.DisplayName(),
		"code", pkt.Code.String(),
		"packet_id", pkt.ID,
	)
}

// localAddr はソケットのローカルアドレスをUDPAddrで返す。
func localAddr(conn *net.UDPConn) *net.UDPAddr {
	if conn == nil {
		return nil
	}
	if a, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return a
	}
	return nil
}
