// Package dhcp はDHCPv4ワイヤコーデックを提供する。
//
// 生のBOOTP/DHCPバイト列と型付きAVPリストの双方向変換、応答の宛先
// 決定、そしてリクエストディスパッチエンジンへのブリッジ（xid→ID、
// chaddr+message-typeからの重複検出ベクタ合成）を行う。
package dhcp

import (
	"net"

	"github.com/oyaguma3/radius-dispatcher-poc/internal/wire"
)

// パケットサイズ境界
const (
	// MinPacketSize より短いフレームは破棄する
	MinPacketSize = 244
	// MaxPacketSize はIPヘッダ等を差し引いた受信上限（1500-40）
	MaxPacketSize = 1500 - 40
	// DefaultPacketSize 未満の応答はゼロ詰めで底上げする
	DefaultPacketSize = 300
	// MinMessageSize はMaximum-Msg-Size/MTUの下限（RFC 2131）
	MinMessageSize = 576
)

// 固定ヘッダオフセット
const (
	offOpcode  = 0
	offHtype   = 1
	offHlen    = 2
	offXid     = 4
	offFlags   = 10
	offCiaddr  = 12
	offYiaddr  = 16
	offGiaddr  = 24
	offChaddr  = 28
	offCookie  = 236
	offOptions = 240
)

// MagicCookie はBOOTPマジッククッキー。
const MagicCookie uint32 = 0x63825363

// オプションタグ
const (
	optPad            = 0
	optMessageType    = 53
	optMaxMessageSize = 57
	optEnd            = 255

	// 1オプションの値長上限（タグ+長さの2バイトを除く）
	maxOptionLength = 252
)

// BOOTPオペコード
const (
	OpcodeBootRequest = 1
	OpcodeBootReply   = 2
)

// HardwareEthernet はhtype=1（イーサネット）。hlenは6固定。
const (
	HardwareEthernet    = 1
	HardwareEthernetLen = 6
)

// MessageTypeName はDHCPメッセージタイプ名を返す。
func MessageTypeName(t uint8) string {
	return (wire.DHCPOffset + wire.Code(t)).String()
}

// SynthesizeVector はディスパッチエンジン共用の16バイト重複検出ベクタを
// 合成する。クライアントハードウェアアドレス（hlenバイト）に
// message-typeを1バイト続け、残りはゼロのまま。意図的なベクタの流用で
// あり、バイト列はこの形を厳密に保つ（コード空間の分離はwire.Code側）。
func SynthesizeVector(chaddr []byte, hlen int, messageType uint8) [16]byte {
	var v [16]byte
	if hlen > len(chaddr) {
		hlen = len(chaddr)
	}
	if hlen > 15 {
		hlen = 15
	}
	copy(v[:hlen], chaddr[:hlen])
	v[hlen] = messageType
	return v
}

// broadcastIP は限定ブロードキャストアドレス。
var broadcastIP = net.IPv4(255, 255, 255, 255)

// ipv4At はbuf[off:off+4]をnet.IPとして読む。
func ipv4At(buf []byte, off int) net.IP {
	return net.IPv4(buf[off], buf[off+1], buf[off+2], buf[off+3])
}

// isZeroIPv4 はbuf[off:off+4]が0.0.0.0かを返す。
func isZeroIPv4(buf []byte, off int) bool {
	return buf[off] == 0 && buf[off+1] == 0 && buf[off+2] == 0 && buf[off+3] == 0
}
