// Package request は実行中リクエストの記録とテーブル（重複検出・過負荷
// 制御・掃除）を提供する。
package request

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/oyaguma3/radius-dispatcher-poc/internal/wire"
)

// Handle はワーカータスクの識別子。NoHandleは未割当（＝インライン実行
// 待ち、または完了済み）を表す。
type Handle uint64

// NoHandle はワーカー未割当を表す番兵値。
const NoHandle Handle = 0

// Request は実行中の1リクエストの記録。
// テーブルが所有し、ハンドラは実行中のみ借用する。
// Reply/Finishedはワーカーゴルーチンから書かれるためatomicに保持する。
type Request struct {
	Packet *wire.Packet
	Proxy  *wire.Packet // プロキシ送信したパケット（未使用ならnil）
	Secret []byte       // クライアントレジストリから複写した共有シークレット

	TraceID   string
	Timestamp time.Time
	Handle    Handle

	reply    atomic.Pointer[wire.Packet]
	finished atomic.Bool
	cancel   context.CancelFunc

	next *Request
}

// New は受信パケットから新しいRequestを生成する。
func New(packet *wire.Packet, secret []byte, traceID string) *Request {
	return &Request{
		Packet:  packet,
		Secret:  append([]byte(nil), secret...),
		TraceID: traceID,
	}
}

// Reply は応答パケットを返す（未設定はnil）。
func (r *Request) Reply() *wire.Packet {
	return r.reply.Load()
}

// SetReply は応答パケットを設定する。
func (r *Request) SetReply(p *wire.Packet) {
	r.reply.Store(p)
}

// Finished は応答送信済みかを返す。
func (r *Request) Finished() bool {
	return r.finished.Load()
}

// MarkFinished は応答送信済みにする。
func (r *Request) MarkFinished() {
	r.finished.Store(true)
}

// SetCancel はワーカーの停止関数を登録する。
func (r *Request) SetCancel(cancel context.CancelFunc) {
	r.cancel = cancel
}

// Kill はワーカーを強制停止する（MAX_REQUEST_TIME超過時）。
func (r *Request) Kill() {
	if r.cancel != nil {
		r.cancel()
	}
}
