package request

import "sync/atomic"

// Stats はディスパッチャ・テーブルの計数。管理APIから参照されるため
// すべてatomicで保持する。
type Stats struct {
	Received   atomic.Int64 // 受信データグラム数
	Dropped    atomic.Int64 // デコード・検証失敗等での破棄数
	Admitted   atomic.Int64 // テーブル受理数
	Duplicates atomic.Int64 // 応答なし重複の破棄数
	Replayed   atomic.Int64 // キャッシュ応答の再送数
	Overloads  atomic.Int64 // 過負荷拒否数
	TimedOut   atomic.Int64 // MAX_REQUEST_TIME超過の強制停止数
	Reaped     atomic.Int64 // 掃除済み記録数
	Responded  atomic.Int64 // 応答送信数
	Panics     atomic.Int64 // ワーカーパニック数
}

// NewStats は新しいStatsを生成する。
func NewStats() *Stats {
	return &Stats{}
}

// Snapshot は現在値のコピーを返す。
type Snapshot struct {
	Received   int64 `json:"received"`
	Dropped    int64 `json:"dropped"`
	Admitted   int64 `json:"admitted"`
	Duplicates int64 `json:"duplicates"`
	Replayed   int64 `json:"replayed"`
	Overloads  int64 `json:"overloads"`
	TimedOut   int64 `json:"timed_out"`
	Reaped     int64 `json:"reaped"`
	Responded  int64 `json:"responded"`
	Panics     int64 `json:"panics"`
}

// Snapshot は現在値を読み取る。
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Received:   s.Received.Load(),
		Dropped:    s.Dropped.Load(),
		Admitted:   s.Admitted.Load(),
		Duplicates: s.Duplicates.Load(),
		Replayed:   s.Replayed.Load(),
		Overloads:  s.Overloads.Load(),
		TimedOut:   s.TimedOut.Load(),
		Reaped:     s.Reaped.Load(),
		Responded:  s.Responded.Load(),
		Panics:     s.Panics.Load(),
	}
}
