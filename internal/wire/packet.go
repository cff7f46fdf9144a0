// Package wire はRADIUS/DHCP両プロトコルが共有するパケット表現を提供する。
package wire

import (
	"net"

	"github.com/oyaguma3/radius-dispatcher-poc/internal/avp"
	"layeh.com/radius"
)

// Code はプロトコル横断のメッセージ種別を表す。
// DHCPコードはDHCPOffsetを加算してRADIUSコードと空間を分離する。
type Code uint32

// RADIUSコード（RFC 2865/2866/5997）
const (
	CodeAccessRequest      Code = 1
	CodeAccessAccept       Code = 2
	CodeAccessReject       Code = 3
	CodeAccountingRequest  Code = 4
	CodeAccountingResponse Code = 5
	CodePasswordRequest    Code = 7
	CodeAccessChallenge    Code = 11
	CodeStatusServer       Code = 12
)

// DHCPOffset はDHCPメッセージタイプをコード空間へ写像するオフセット。
const DHCPOffset Code = 1024

// DHCPコード（DHCPOffset + message-type）
const (
	CodeDHCPDiscover = DHCPOffset + 1
	CodeDHCPOffer    = DHCPOffset + 2
	CodeDHCPRequest  = DHCPOffset + 3
	CodeDHCPDecline  = DHCPOffset + 4
	CodeDHCPAck      = DHCPOffset + 5
	CodeDHCPNak      = DHCPOffset + 6
	CodeDHCPRelease  = DHCPOffset + 7
	CodeDHCPInform   = DHCPOffset + 8
)

// IsDHCP はDHCPコード空間に属するかを返す。
func (c Code) IsDHCP() bool {
	return c > DHCPOffset
}

// DHCPMessageType はDHCPコードからメッセージタイプ値を取り出す。
func (c Code) DHCPMessageType() uint8 {
	if !c.IsDHCP() {
		return 0
	}
	return uint8(c - DHCPOffset)
}

// String はコード名を返す。
func (c Code) String() string {
	switch c {
	case CodeAccessRequest:
		return "Access-Request"
	case CodeAccessAccept:
		return "Access-Accept"
	case CodeAccessReject:
		return "Access-Reject"
	case CodeAccountingRequest:
		return "Accounting-Request"
	case CodeAccountingResponse:
		return "Accounting-Response"
	case CodePasswordRequest:
		return "Password-Request"
	case CodeAccessChallenge:
		return "Access-Challenge"
	case CodeStatusServer:
		return "Status-Server"
	case CodeDHCPDiscover:
		return "DHCP-Discover"
	case CodeDHCPOffer:
		return "DHCP-Offer"
	case CodeDHCPRequest:
		return "DHCP-Request"
	case CodeDHCPDecline:
		return "DHCP-Decline"
	case CodeDHCPAck:
		return "DHCP-Ack"
	case CodeDHCPNak:
		return "DHCP-NAK"
	case CodeDHCPRelease:
		return "DHCP-Release"
	case CodeDHCPInform:
		return "DHCP-Inform"
	default:
		return "Unknown"
	}
}

// Socket は受信ソケットの種別を表す。
type Socket int

const (
	SockAuth Socket = iota
	SockAcct
	SockProxy
	SockDHCP
)

// String はソケット名を返す。
func (s Socket) String() string {
	switch s {
	case SockAuth:
		return "auth"
	case SockAcct:
		return "acct"
	case SockProxy:
		return "proxy"
	case SockDHCP:
		return "dhcp"
	default:
		return "unknown"
	}
}

// Packet は受信・送信パケットのプロトコル横断表現。
// RADIUSパケットはRadiusフィールドに、DHCPパケットはVPsフィールドに
// 型付き属性リストを持つ。
type Packet struct {
	Code   Code
	ID     uint32   // RADIUSはID（8bit）、DHCPはxid（32bit）
	Vector [16]byte // 重複検出キー。DHCPはchaddr+message-typeから合成

	Src  *net.UDPAddr
	Dst  *net.UDPAddr
	Sock Socket
	Conn *net.UDPConn

	Data []byte // ワイヤ上のバイト列（受信時は原文、送信時はエンコード結果）

	VPs    *avp.Pair      // DHCP属性リスト
	Radius *radius.Packet // RADIUSパケット（layeh.com/radius）
}

// Send はDataをDst宛に送信する。
func (p *Packet) Send() error {
	if p.Conn == nil || p.Dst == nil {
		return nil
	}
	_, err := p.Conn.WriteToUDP(p.Data, p.Dst)
	return err
}
