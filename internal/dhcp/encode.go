package dhcp

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"sort"

	"github.com/oyaguma3/radius-dispatcher-poc/internal/avp"
	"github.com/oyaguma3/radius-dispatcher-poc/internal/dictionary"
	"github.com/oyaguma3/radius-dispatcher-poc/internal/wire"
	"github.com/oyaguma3/radius-dispatcher-poc/pkg/apperr"
)

// Encode はreplyのAVPリストをワイヤ形式へ直列化し、reply.Dataと
// 宛先・送信元アドレスを設定する。originalは応答対象の受信パケット。
// originalは必須で、nilの場合はErrMalformedPacketを返す。
func Encode(reply, original *wire.Packet) error {
	if reply.Data != nil {
		return nil
	}
	if reply.Code == 0 {
		reply.Code = wire.CodeDHCPNak
	}

	buf := make([]byte, 0, MaxPacketSize)

	mms := effectiveMaxMessageSize(original)

	buf = appendHeader(buf, reply, original)
	if original == nil {
		return fmt.Errorf("%w: need original request to send response", apperr.ErrMalformedPacket)
	}

	// Message-Typeはコードから書き出すため、AVP側の食い違いは警告して捨てる
	if vp := avp.Find(reply.VPs, dictionary.AttrMessageType); vp != nil && vp.Uint != uint32(reply.Code.DHCPMessageType()) {
		slog.Warn("Message-Typeとコードの不一致",
			"event_id", "DHCP_MSGTYPE_MISMATCH",
			"code", uint32(reply.Code),
			"message_type", vp.Uint,
		)
	}
	reply.VPs = avp.Delete(reply.VPs, dictionary.AttrMessageType)
	reply.VPs = sortForEncode(reply.VPs)

	buf = append(buf, optMessageType, 1, reply.Code.DHCPMessageType())

	buf = appendOptions(buf, reply.VPs)

	// オプション終端とレガシークライアント向けの底上げ詰め物
	buf = append(buf, optEnd, 0x00)
	if len(buf) < DefaultPacketSize {
		buf = append(buf, make([]byte, DefaultPacketSize-len(buf))...)
	}
	if len(buf) > mms {
		slog.Warn("応答がクライアント申告の最大メッセージサイズを超過",
			"event_id", "DHCP_MMS_EXCEEDED",
			"size", len(buf),
			"mms", mms,
		)
	}

	reply.Data = buf
	route(reply, original)
	return nil
}

// effectiveMaxMessageSize はオリジナル要求のMaximum-Msg-Size（57）から
// 有効なMMSを決める。既定576、上限MaxPacketSize。
func effectiveMaxMessageSize(original *wire.Packet) int {
	mms := MinMessageSize
	if original == nil {
		return mms
	}
	if vp := avp.Find(original.VPs, dictionary.AttrMaxMsgSize); vp != nil && int(vp.Uint) > mms {
		mms = int(vp.Uint)
		if mms > MaxPacketSize {
			mms = MaxPacketSize
		}
	}
	return mms
}

// appendHeader は240バイトの固定ヘッダとマジッククッキーを書く。
func appendHeader(buf []byte, reply, original *wire.Packet) []byte {
	if original == nil {
		buf = append(buf, OpcodeBootRequest)
	} else {
		buf = append(buf, OpcodeBootReply)
	}
	buf = append(buf, HardwareEthernet)
	if original != nil {
		buf = append(buf, original.Data[offHlen])
	} else {
		buf = append(buf, HardwareEthernetLen)
	}
	buf = append(buf, 0) // hops

	// xid
	var xid [4]byte
	if original != nil {
		copy(xid[:], original.Data[offXid:offXid+4])
	} else {
		binary.BigEndian.PutUint32(xid[:], rand.Uint32())
	}
	buf = append(buf, xid[:]...)

	buf = append(buf, 0, 0) // secs

	// flagsとciaddrはオリジナルから複写
	if original != nil {
		buf = append(buf, original.Data[offFlags:offFlags+6]...)
	} else {
		buf = append(buf, make([]byte, 6)...)
	}

	// yiaddr
	var yiaddr [4]byte
	if vp := avp.Find(reply.VPs, dictionary.AttrYourIP); vp != nil {
		copy(yiaddr[:], vp.IP.To4())
	}
	buf = append(buf, yiaddr[:]...)

	buf = append(buf, make([]byte, 4)...) // siaddr
	buf = append(buf, make([]byte, 4)...) // giaddr

	// chaddr（16バイト）
	if original != nil {
		buf = append(buf, original.Data[offChaddr:offChaddr+16]...)
	} else {
		buf = append(buf, make([]byte, 16)...)
	}

	// sname/file: BOOTPレガシー領域はゼロ詰め
	buf = append(buf, make([]byte, 192)...)

	var cookie [4]byte
	binary.BigEndian.PutUint32(cookie[:], MagicCookie)
	buf = append(buf, cookie[:]...)

	return buf
}

// sortForEncode は直列化順を定める全順序でAVPリストを並べ替える。
//  1. Message-Type（53）が先頭
//  2. Relay-Agent-Information（82）が末尾
//  3. その他は属性ID昇順
func sortForEncode(head *avp.Pair) *avp.Pair {
	pairs := avp.Slice(head)
	if len(pairs) < 2 {
		return head
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		a, b := pairs[i], pairs[j]
		aMT := a.Attribute == dictionary.AttrMessageType
		bMT := b.Attribute == dictionary.AttrMessageType
		if aMT != bMT {
			return aMT
		}
		a82 := a.Attribute&0xff == dictionary.OptionRelayAgent
		b82 := b.Attribute&0xff == dictionary.OptionRelayAgent
		if a82 != b82 {
			return b82
		}
		return a.Attribute < b.Attribute
	})
	return avp.Relink(pairs)
}

// appendOptions は並べ替え済みAVPリストをオプション列へ直列化する。
// 同一属性の連続は1オプションに詰め合わせ、長さが255を超える分は
// 分割せずに捨てる（互換性のための仕様）。
func appendOptions(buf []byte, head *avp.Pair) []byte {
	pairs := avp.Slice(head)
	for i := 0; i < len(pairs); {
		vp := pairs[i]

		if !dictionary.IsDHCP(vp.Attribute) {
			i++
			continue
		}
		// ヘッダ属性（256以上）はオプションとして出力しない。
		// Option 82のサブオプション詰め込みのみ例外。
		if dictionary.BaseOption(vp.Attribute) > 255 && !dictionary.IsRelayOption(vp.Attribute) {
			i++
			continue
		}

		// 同一属性の連続をまとめる
		runEnd := i + 1
		for runEnd < len(pairs) && pairs[runEnd].Attribute == vp.Attribute {
			runEnd++
		}
		numEntries := runEnd - i

		// Client-Identifier相当: 単独のethernetはタイプ1バイトを前置
		if vp.Type == avp.TypeEthernet && vp.Length == 6 && numEntries == 1 {
			octets := append([]byte{1}, vp.Ether[:]...)
			vp = avp.New(vp.Attribute, vp.Name, avp.TypeOctets)
			vp.SetOctets(octets)
			pairs[i] = vp
		}

		tagPos := len(buf)
		buf = append(buf, byte(vp.Attribute&0xff), 0)

		relay := dictionary.IsRelayOption(vp.Attribute)
		if relay {
			// 外側Option 82が内側サブオプションを包むTLV。
			// 内側長は書き終えてから埋める。
			buf = append(buf, dictionary.RelaySubOption(vp.Attribute), 0)
			buf[tagPos+1] = 2
		}

		for k := i; k < runEnd; k++ {
			value := pairs[k].EncodeValue()
			if len(value) > 255 || int(buf[tagPos+1])+len(value) > 255 {
				slog.Warn("長すぎるDHCP属性を破棄",
					"event_id", "DHCP_OPT_OVERFLOW",
					"attr", pairs[k].Name,
				)
				break
			}
			buf = append(buf, value...)
			buf[tagPos+1] += byte(len(value))
		}

		if relay {
			// 外側長 = 内側長 + 2 の関係を満たすよう内側長を確定する
			buf[tagPos+3] = buf[tagPos+1] - 2
		}

		i = runEnd
	}
	return buf
}

// route は応答の宛先を決定する（先に一致した規則が優先）。
//  1. オリジナルのgiaddrが非ゼロ → giaddrへ
//  2. NAK → ブロードキャスト
//  3. オリジナルのciaddrが非ゼロ → ciaddrへユニキャスト
//  4. オリジナルのブロードキャストフラグ → ブロードキャスト
//  5. この時点で宛先が0.0.0.0 → ブロードキャスト
//  6. それ以外 → yiaddrへユニキャスト
func route(reply, original *wire.Packet) {
	var dstIP net.IP
	if reply.Dst != nil && reply.Dst.IP != nil {
		dstIP = reply.Dst.IP.To4()
	}

	switch {
	case !isZeroIPv4(original.Data, offGiaddr):
		dstIP = ipv4At(original.Data, offGiaddr)
	case reply.Code == wire.CodeDHCPNak:
		dstIP = broadcastIP
	case !isZeroIPv4(original.Data, offCiaddr):
		dstIP = ipv4At(original.Data, offCiaddr)
	case binary.BigEndian.Uint16(original.Data[offFlags:])&0x8000 != 0:
		dstIP = broadcastIP
	case dstIP == nil || dstIP.Equal(net.IPv4zero):
		dstIP = broadcastIP
	default:
		dstIP = ipv4At(original.Data, offYiaddr)
	}

	reply.Dst = &net.UDPAddr{IP: dstIP, Port: original.Src.Port}

	// 送信元はオリジナル要求の宛先
	var srcIP net.IP
	srcPort := 0
	if original.Dst != nil {
		srcIP = original.Dst.IP
		srcPort = original.Dst.Port
	}
	reply.Src = &net.UDPAddr{IP: srcIP, Port: srcPort}

	reply.Conn = original.Conn
	reply.Sock = original.Sock
}
