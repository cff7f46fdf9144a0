package request

import (
	"bytes"
	"log/slog"
	"time"
)

// 既定の制限値。
const (
	// DefaultCleanupDelay は完了後に再送再生のため記録を保持する時間
	DefaultCleanupDelay = 5 * time.Second
	// DefaultMaxRequestTime はワーカー監視の上限
	DefaultMaxRequestTime = 30 * time.Second
	// DefaultMaxRequests は同時リクエスト記録数の上限
	DefaultMaxRequests = 256
)

// Verdict はAdmitの結果。
type Verdict int

const (
	// Accept は新規リクエストとして受理
	Accept Verdict = iota
	// DuplicateReplay は重複（キャッシュ済み応答を再送すべき）
	DuplicateReplay
	// DuplicateDrop は重複（応答未生成のため黙って破棄）
	DuplicateDrop
	// Overload は過負荷のため拒否
	Overload
)

// Table は実行中リクエストの単方向リスト。
// ディスパッチャのゴルーチンに閉じており、ロックは持たない。
// 完了通知はRetire経由でディスパッチャ自身が反映する。
type Table struct {
	first *Request

	CleanupDelay   time.Duration
	MaxRequestTime time.Duration
	MaxRequests    int

	Stats *Stats

	// now はテスト差し替え用
	now func() time.Time
}

// NewTable は既定の制限値でTableを生成する。
func NewTable() *Table {
	return &Table{
		CleanupDelay:   DefaultCleanupDelay,
		MaxRequestTime: DefaultMaxRequestTime,
		MaxRequests:    DefaultMaxRequests,
		Stats:          NewStats(),
		now:            time.Now,
	}
}

// SetClock は現在時刻の取得関数を差し替える（テスト用）。
func (t *Table) SetClock(now func() time.Time) {
	t.now = now
}

// Len は記録数を返す。
func (t *Table) Len() int {
	n := 0
	for r := t.first; r != nil; r = r.next {
		n++
	}
	return n
}

// First はリスト先頭を返す（テスト用）。
func (t *Table) First() *Request {
	return t.first
}

// Admit は新規リクエストの受理判定を行う。リスト走査の過程で、完了済み
// 記録の掃除と、MAX_REQUEST_TIMEを超過したワーカーの強制停止も行う。
//
// 判定:
//   - 同一 (src_ip, id, vector) の記録が生存 → 重複。応答があれば
//     DuplicateReplayでその応答を返し、なければDuplicateDrop。
//   - 同一 (src_ip, id) でvectorが異なる完了済み記録 → タイムスタンプを
//     遡らせて強制退役させ、同位置から判定をやり直す。
//   - 生存数がMaxRequestsを超える → Overload。
func (t *Table) Admit(req *Request) (Verdict, *Request) {
	curtime := t.now()
	count := 0
	// 強制退役による再走査の上限。病的なリストでの空転を防ぐ。
	restarts := 0

	var prev *Request
	cur := t.first
	for cur != nil {
		switch {
		case cur.Handle == NoHandle && !cur.Timestamp.After(curtime.Add(-t.CleanupDelay)):
			// 完了済みかつ保持期間超過: リストから外して破棄
			next := cur.next
			if prev == nil {
				t.first = next
			} else {
				prev.next = next
			}
			t.Stats.Reaped.Add(1)
			cur = next

		case cur.Packet.Src.IP.Equal(req.Packet.Src.IP) && cur.Packet.ID == req.Packet.ID:
			if bytes.Equal(cur.Packet.Vector[:], req.Packet.Vector[:]) {
				// 本物の重複。応答はFinishedが立ってから読む
				// （ワーカーのエンコード完了を可視化するため）。
				if cur.Finished() && cur.Reply() != nil {
					t.Stats.Replayed.Add(1)
					return DuplicateReplay, cur
				}
				t.Stats.Duplicates.Add(1)
				return DuplicateDrop, nil
			}
			// 同一IDの別リクエスト。完了済みなら今すぐ退役させる。
			if cur.Handle == NoHandle && cur.Finished() {
				cur.Timestamp = curtime.Add(-t.CleanupDelay)
				restarts++
				if restarts > t.MaxRequests {
					slog.Error("リクエストテーブル再走査上限超過",
						"event_id", "REQ_SCAN_LIMIT",
					)
					t.Stats.Overloads.Add(1)
					return Overload, nil
				}
				continue
			}
			prev = cur
			cur = cur.next
			count++

		default:
			if cur.Handle != NoHandle && !cur.Timestamp.After(curtime.Add(-t.MaxRequestTime)) {
				// 応答しないワーカーを強制停止。記録は次の掃除で消える。
				slog.Error("応答しないワーカーを強制停止",
					"event_id", "WORKER_KILL",
					"handle", uint64(cur.Handle),
				)
				cur.Kill()
				cur.Handle = NoHandle
				t.Stats.TimedOut.Add(1)
			}
			prev = cur
			cur = cur.next
			count++
		}
	}

	if count > t.MaxRequests {
		t.Stats.Overloads.Add(1)
		return Overload, nil
	}

	// 新規記録として末尾へ追加
	req.next = nil
	req.Handle = NoHandle
	req.Timestamp = curtime

	if prev == nil {
		t.first = req
	} else {
		prev.next = req
	}
	t.Stats.Admitted.Add(1)
	return Accept, nil
}

// Retire はワーカー完了通知を反映する。該当記録のHandleを外し、
// CLEANUP_DELAY経過後に掃除されるようタイムスタンプを更新する。
// 該当記録が見つからない場合（先に強制停止済みなど）はfalseを返す。
func (t *Table) Retire(h Handle) bool {
	if h == NoHandle {
		return false
	}
	for r := t.first; r != nil; r = r.next {
		if r.Handle == h {
			r.Handle = NoHandle
			r.Timestamp = t.now()
			return true
		}
	}
	return false
}

// Sweep は受信が途絶えても保持期間超過の記録が溜まり続けないよう、
// 完了済み記録だけを掃除する。アイドル時にディスパッチャが呼ぶ。
func (t *Table) Sweep() int {
	curtime := t.now()
	removed := 0

	var prev *Request
	cur := t.first
	for cur != nil {
		if cur.Handle == NoHandle && !cur.Timestamp.After(curtime.Add(-t.CleanupDelay)) {
			next := cur.next
			if prev == nil {
				t.first = next
			} else {
				prev.next = next
			}
			t.Stats.Reaped.Add(1)
			removed++
			cur = next
			continue
		}
		prev = cur
		cur = cur.next
	}
	return removed
}
