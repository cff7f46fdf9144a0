package server

import (
	"context"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/oyaguma3/radius-dispatcher-poc/internal/dhcp"
	"github.com/oyaguma3/radius-dispatcher-poc/internal/request"
)

// spawnWorker はリクエストをワーカータスクへ委譲する。
// ワーカーはハンドラ実行 → 応答送信の後、完了通知をdoneチャネルへ送る。
// ハンドラのパニックはここで回収し、テーブルには波及させない。
func (s *Server) spawnWorker(fn HandlerFunc, req *request.Request) {
	h := request.Handle(s.nextHandle.Add(1))
	req.Handle = h

	ctx, cancel := context.WithTimeout(context.Background(), s.table.MaxRequestTime)
	req.SetCancel(cancel)

	debugMode := s.Config().DebugLevel > 0

	go func() {
		defer func() {
			if p := recover(); p != nil {
				s.stats.Panics.Add(1)
				slog.Error("ワーカーパニック",
					"event_id", "WORKER_PANIC",
					"trace_id", req.TraceID,
					"handle", uint64(h),
					"panic", p,
					"stack", string(debug.Stack()),
				)
				if debugMode {
					// 診断モード: 障害箇所を残したまま即停止する
					os.Exit(1)
				}
			}
			cancel()
			s.done <- h
		}()

		fn(ctx, req)

		// 強制停止済みワーカーの部分出力は採用しない
		if ctx.Err() != nil {
			return
		}
		s.respond(req)
	}()
}

// respond は応答パケットがあれば送信し、リクエストを完了扱いにする。
// RADIUS応答はここでエンコードし、再送再生のためバイト列を保持する。
func (s *Server) respond(req *request.Request) {
	reply := req.Reply()
	if reply == nil {
		req.MarkFinished()
		return
	}

	if reply.Code.IsDHCP() {
		if err := dhcp.Encode(reply, req.Packet); err != nil {
			slog.Error("DHCP応答エンコード失敗",
				"event_id", "PKT_ENCODE_ERR",
				"trace_id", req.TraceID,
				"error", err,
			)
			req.MarkFinished()
			return
		}
	} else if reply.Radius != nil && reply.Data == nil {
		data, err := reply.Radius.Encode()
		if err != nil {
			slog.Error("RADIUS応答エンコード失敗",
				"event_id", "PKT_ENCODE_ERR",
				"trace_id", req.TraceID,
				"error", err,
			)
			req.MarkFinished()
			return
		}
		reply.Data = data
		if reply.Dst == nil {
			reply.Dst = req.Packet.Src
		}
		if reply.Conn == nil {
			reply.Conn = req.Packet.Conn
		}
	}

	if err := reply.Send(); err != nil {
		slog.Error("応答送信失敗",
			"event_id", "PKT_SEND_ERR",
			"trace_id", req.TraceID,
			"error", err,
		)
	} else {
		s.stats.Responded.Add(1)
	}

	req.MarkFinished()
}
