// Package server はUDPディスパッチャ本体を提供する。
//
// ディスパッチャは単一ゴルーチンで動作し、認証・アカウンティング・
// プロキシ（および有効時DHCP）の各ソケットから届いたデータグラムを
// デコード → 分類 → 受理 → 委譲の順に駆動する。リクエストテーブルは
// このゴルーチンに閉じており、ワーカー完了はチャネル経由で反映する。
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/oyaguma3/radius-dispatcher-poc/internal/client"
	"github.com/oyaguma3/radius-dispatcher-poc/internal/config"
	"github.com/oyaguma3/radius-dispatcher-poc/internal/request"
	"github.com/oyaguma3/radius-dispatcher-poc/internal/wire"
)

// HandlerFunc はリクエストを処理し、応答をreq.SetReplyで設定する。
// ハンドラはctxの打ち切りに従わなければならない。
type HandlerFunc func(ctx context.Context, req *request.Request)

// Handlers はコード別のハンドラ群。
type Handlers struct {
	Authenticate HandlerFunc
	Accounting   HandlerFunc
	DHCP         HandlerFunc // nil時はDHCPリクエストを破棄
}

// ProxyHooks はプロキシ送受信のフック。
type ProxyHooks interface {
	// Send はリクエストをプロキシ転送するか判定する。
	// 転送した（リクエストを引き取った）場合は非ゼロを返す。
	Send(req *request.Request) int
	// Receive はプロキシソケットに届いた応答を処理する。
	Receive(req *request.Request) error
}

// datagram は受信ソケットから届く1データグラム。
type datagram struct {
	data []byte
	src  *net.UDPAddr
	sock wire.Socket
	conn *net.UDPConn
}

// registryHolder はatomic.Pointerで差し替えるための箱。
type registryHolder struct {
	r client.Registry
}

// Server はディスパッチャの状態一式を保持する。
type Server struct {
	cfg      atomic.Pointer[config.Config]
	registry atomic.Pointer[registryHolder]

	handlers Handlers
	proxy    ProxyHooks // nil可

	authConn  *net.UDPConn
	acctConn  *net.UDPConn
	proxyConn *net.UDPConn
	dhcpConn  *net.UDPConn
	proxyPort int

	table *request.Table
	stats *request.Stats

	authCh  chan datagram
	acctCh  chan datagram
	proxyCh chan datagram
	dhcpCh  chan datagram
	done    chan request.Handle
	reload  chan struct{}

	nextHandle atomic.Uint64

	// ReloadRegistry は再読込時に新しいレジストリを構築する。
	// エラー時は旧レジストリを使い続ける。
	ReloadRegistry func() (client.Registry, error)
}

// New は新しいServerを生成する。
func New(cfg *config.Config, registry client.Registry, handlers Handlers, proxy ProxyHooks) *Server {
	s := &Server{
		handlers: handlers,
		proxy:    proxy,
		table:    request.NewTable(),
		authCh:   make(chan datagram, 8),
		acctCh:   make(chan datagram, 8),
		proxyCh:  make(chan datagram, 8),
		done:     make(chan request.Handle, config.MaxRequests*2),
		reload:   make(chan struct{}, 1),
	}
	s.table.CleanupDelay = config.CleanupDelay
	s.table.MaxRequestTime = config.MaxRequestTime
	s.table.MaxRequests = config.MaxRequests
	s.stats = s.table.Stats
	s.cfg.Store(cfg)
	s.registry.Store(&registryHolder{r: registry})
	if cfg.DHCPEnabled {
		s.dhcpCh = make(chan datagram, 8)
	}
	return s
}

// Config は現在の設定を返す。
func (s *Server) Config() *config.Config {
	return s.cfg.Load()
}

// Registry は現在のクライアントレジストリを返す。
func (s *Server) Registry() client.Registry {
	return s.registry.Load().r
}

// Stats はディスパッチャ計数を返す。
func (s *Server) Stats() *request.Stats {
	return s.stats
}

// Table はリクエストテーブルを返す（テスト用）。
func (s *Server) Table() *request.Table {
	return s.table
}

// ProxyPort は束縛済みのプロキシポートを返す。
func (s *Server) ProxyPort() int {
	return s.proxyPort
}

// RequestReload は設定再読込を予約する。シグナルハンドラから呼ばれ、
// 実際の再読込はメインループ内（ループ先頭または待機中）でのみ行う。
func (s *Server) RequestReload() {
	select {
	case s.reload <- struct{}{}:
	default:
	}
}

// ListenAndServe はソケットを束縛し、メインループを実行する。
// ctxの打ち切りで戻る。束縛失敗は致命的エラー。
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.bindSockets(); err != nil {
		return err
	}
	defer s.closeSockets()

	go s.reader(s.authConn, wire.SockAuth, s.authCh)
	go s.reader(s.acctConn, wire.SockAcct, s.acctCh)
	go s.reader(s.proxyConn, wire.SockProxy, s.proxyCh)
	if s.dhcpConn != nil {
		go s.reader(s.dhcpConn, wire.SockDHCP, s.dhcpCh)
	}

	// 受信が途絶えても完了済み記録が残り続けないよう定期掃除する
	sweep := time.NewTicker(s.table.CleanupDelay)
	defer sweep.Stop()

	cfg := s.Config()
	slog.Info("リクエスト処理開始",
		"auth_port", cfg.AuthPort,
		"acct_port", cfg.AcctPort(),
		"proxy_port", s.proxyPort,
		"dhcp_enabled", cfg.DHCPEnabled,
		"spawn_mode", cfg.SpawnMode,
	)

	for {
		// 再読込はループ先頭と下の待機中でのみ実施し、受理処理と並走させない
		select {
		case <-s.reload:
			s.doReload()
		default:
		}

		s.drainDone()

		// 固定順（auth → acct → proxy → dhcp）で受信を優先処理
		if s.receiveReady() {
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-s.reload:
			s.doReload()
		case h := <-s.done:
			s.retire(h)
		case <-sweep.C:
			s.table.Sweep()
		case dg := <-s.authCh:
			s.receive(dg)
		case dg := <-s.acctCh:
			s.receive(dg)
		case dg := <-s.proxyCh:
			s.receive(dg)
		case dg := <-s.dhcpCh:
			s.receive(dg)
		}
	}
}

// receiveReady は各ソケットのチャネルを固定順で1つだけ非ブロッキング
// 受信する。処理した場合はtrue。
func (s *Server) receiveReady() bool {
	select {
	case dg := <-s.authCh:
		s.receive(dg)
		return true
	default:
	}
	select {
	case dg := <-s.acctCh:
		s.receive(dg)
		return true
	default:
	}
	select {
	case dg := <-s.proxyCh:
		s.receive(dg)
		return true
	default:
	}
	if s.dhcpCh != nil {
		select {
		case dg := <-s.dhcpCh:
			s.receive(dg)
			return true
		default:
		}
	}
	return false
}

// drainDone はワーカー完了通知を溜まっている分すべて反映する。
func (s *Server) drainDone() {
	for {
		select {
		case h := <-s.done:
			s.retire(h)
		default:
			return
		}
	}
}

// retire は完了通知1件をテーブルへ反映する。
func (s *Server) retire(h request.Handle) {
	if !s.table.Retire(h) {
		// 先にMAX_REQUEST_TIMEで強制退役済みの場合はここに来る
		slog.Debug("完了通知に対応する記録なし", "handle", uint64(h))
	}
}

// doReload は設定（クライアントレジストリ）を再読込する。
// 失敗時はログのみ残し、旧設定で継続する。
func (s *Server) doReload() {
	if s.ReloadRegistry == nil {
		return
	}
	slog.Info("設定再読込", "event_id", "CONFIG_RELOAD")
	reg, err := s.ReloadRegistry()
	if err != nil {
		slog.Error("設定再読込失敗、旧設定で継続",
			"event_id", "CONFIG_RELOAD_ERR",
			"error", err,
		)
		return
	}
	s.registry.Store(&registryHolder{r: reg})
}

// reader はソケット1本を読み続け、データグラムをチャネルへ送る。
// ソケットのクローズで終了する。
func (s *Server) reader(conn *net.UDPConn, sock wire.Socket, ch chan<- datagram) {
	buf := make([]byte, config.RecvBufferSize)
	for {
		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			slog.Warn("ソケット読み取りエラー",
				"event_id", "SOCK_READ_ERR",
				"sock", sock.String(),
				"error", err,
			)
			continue
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		ch <- datagram{data: data, src: src, sock: sock, conn: conn}
	}
}
