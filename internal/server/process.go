package server

import (
	"context"
	"log/slog"

	layehradius "layeh.com/radius"

	radiuspkg "github.com/oyaguma3/radius-dispatcher-poc/internal/radius"
	"github.com/oyaguma3/radius-dispatcher-poc/internal/request"
	"github.com/oyaguma3/radius-dispatcher-poc/internal/wire"
	"github.com/oyaguma3/radius-dispatcher-poc/pkg/logging"
)

// process はリクエストの分類・受理・委譲を行う。
//
// 分類規則:
//   - 要求コード（Access-Request / Accounting-Request）がプロキシ
//     ソケットに届いた場合は拒否。
//   - 要求コードはUser-Name正規化の上、プロキシ送信フックに先議権を
//     与える。フックが引き取った場合はここで終わる。
//   - 応答コードはプロキシソケット経由のみプロキシ受信フックへ。
//     他ソケットへの応答コードは拒否。
//   - Password-Requestは廃止済みのため拒否。
func (s *Server) process(req *request.Request) {
	pkt := req.Packet

	switch pkt.Code {
	case wire.CodeAccessRequest, wire.CodeAccountingRequest:
		if pkt.Sock == wire.SockProxy {
			s.dropWrongSocket(req, "要求コードがプロキシポートに到達")
			return
		}
		if !s.mangleUserName(req) {
			return
		}
		if s.proxy != nil && s.proxy.Send(req) != 0 {
			// プロキシが引き取った
			return
		}

	case wire.CodeAccessAccept, wire.CodeAccessReject, wire.CodeAccountingResponse:
		if pkt.Sock == wire.SockProxy {
			if s.proxy == nil {
				s.drop(req, "PKT_NO_PROXY", "プロキシ未構成のため応答を破棄")
				return
			}
			if err := s.proxy.Receive(req); err != nil {
				slog.Warn("プロキシ応答処理失敗",
					"event_id", "PROXY_RECV_ERR",
					"trace_id", req.TraceID,
					"error", err,
				)
			}
			return
		}
		s.dropWrongSocket(req, "応答コードが要求ポートに到達")
		return

	case wire.CodeStatusServer:
		// ヘルスチェックはテーブルを経由せずその場で応答する
		s.respondStatusServer(req)
		return

	case wire.CodePasswordRequest:
		s.drop(req, "PKT_DEPRECATED", "廃止済みのパスワード変更要求")
		return
	}

	// ハンドラ選択
	var fn HandlerFunc
	dospawn := false
	cfg := s.Config()

	switch {
	case pkt.Code == wire.CodeAccessRequest:
		fn = s.handlers.Authenticate
		dospawn = cfg.SpawnMode
	case pkt.Code == wire.CodeAccountingRequest:
		fn = s.handlers.Accounting
	case pkt.Code.IsDHCP():
		fn = s.handlers.DHCP
		dospawn = cfg.SpawnMode
		if fn == nil {
			s.drop(req, "PKT_NO_HANDLER", "DHCPハンドラ未構成")
			return
		}
	default:
		s.drop(req, "PKT_UNKNOWN_CODE", "未対応のパケットコード")
		return
	}
	if fn == nil {
		s.drop(req, "PKT_NO_HANDLER", "ハンドラ未構成")
		return
	}

	// 受理判定。重複・過負荷はここで終わる。
	verdict, cached := s.table.Admit(req)
	switch verdict {
	case request.DuplicateReplay:
		slog.Info("重複リクエストへキャッシュ応答を再送",
			"event_id", "REQ_DUP_REPLAY",
			"trace_id", req.TraceID,
			"src_ip", pkt.Src.IP.String(),
			"packet_id", pkt.ID,
		)
		if reply := cached.Reply(); reply != nil {
			if err := reply.Send(); err != nil {
				slog.Warn("再送失敗",
					"event_id", "PKT_SEND_ERR",
					"trace_id", req.TraceID,
					"error", err,
				)
			}
		}
		return
	case request.DuplicateDrop:
		s.drop(req, "REQ_DUP", "応答未生成の重複リクエストを破棄")
		return
	case request.Overload:
		s.drop(req, "REQ_OVERLOAD", "リクエストテーブル過負荷")
		return
	}

	if dospawn {
		s.spawnWorker(fn, req)
		return
	}

	// インライン実行
	ctx, cancel := context.WithTimeout(context.Background(), s.table.MaxRequestTime)
	defer cancel()
	fn(ctx, req)
	s.respond(req)
}

// mangleUserName はUser-Name属性を正規化する。属性がない・空になる
// 場合はリクエストを破棄してfalseを返す。DHCPリクエストは対象外。
func (s *Server) mangleUserName(req *request.Request) bool {
	if req.Packet.Radius == nil {
		return true
	}
	cfg := s.Config()
	opts := radiuspkg.MangleOptions{
		StripRealm:     cfg.StripRealm,
		RealmDelimiter: cfg.RealmDelimiter,
		TrimSpace:      true,
	}
	name, ok := radiuspkg.MangleUserName(req.Packet.Radius, opts)
	if !ok {
		s.drop(req, "PKT_NO_USERNAME", "User-Name属性なし")
		return false
	}
	if cfg.LogStrippedName {
		slog.Info("User-Name正規化",
			"trace_id", req.TraceID,
			"user_name", name,
		)
	}
	return true
}

// respondStatusServer はStatus-Serverへその場で応答する。
func (s *Server) respondStatusServer(req *request.Request) {
	code := layehradius.CodeAccessAccept
	if req.Packet.Sock == wire.SockAcct {
		code = layehradius.CodeAccountingResponse
	}
	resp := radiuspkg.BuildStatusServerResponse(req.Packet.Radius, req.Secret, code)
	if resp == nil {
		s.drop(req, "PKT_AUTH_ERR", "Status-ServerのMessage-Authenticator検証失敗")
		return
	}
	data, err := resp.Encode()
	if err != nil {
		slog.Error("Status-Server応答エンコード失敗",
			"event_id", "PKT_ENCODE_ERR",
			"trace_id", req.TraceID,
			"error", err,
		)
		return
	}
	reply := &wire.Packet{
		Code: wire.Code(resp.Code),
		ID:   req.Packet.ID,
		Dst:  req.Packet.Src,
		Conn: req.Packet.Conn,
		Data: data,
	}
	if err := reply.Send(); err != nil {
		slog.Error("Status-Server応答送信失敗",
			"event_id", "PKT_SEND_ERR",
			"trace_id", req.TraceID,
			"error", err,
		)
		return
	}
	s.stats.Responded.Add(1)
}

// drop はリクエストを破棄し、ログを1行残す。
func (s *Server) drop(req *request.Request, eventID, msg string) {
	s.stats.Dropped.Add(1)
	slog.Warn(msg,
		logging.WithEventID(eventID),
		logging.WithTraceID(req.TraceID),
		logging.WithSrcIP(req.Packet.Src.IP.String()),
		logging.WithCode(uint32(req.Packet.Code)),
		logging.WithPacketID(req.Packet.ID),
		slog.String(logging.FieldSock, req.Packet.Sock.String()),
	)
}

func (s *Server) dropWrongSocket(req *request.Request, msg string) {
	s.drop(req, "PKT_WRONG_SOCK", msg)
}
