package dhcp

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"net"

	"github.com/oyaguma3/radius-dispatcher-poc/internal/avp"
	"github.com/oyaguma3/radius-dispatcher-poc/internal/dictionary"
	"github.com/oyaguma3/radius-dispatcher-poc/internal/wire"
	"github.com/oyaguma3/radius-dispatcher-poc/pkg/apperr"
)

// NewPacket は受信データグラムを検証し、ディスパッチエンジン向けの
// キー（ID・重複検出ベクタ・コード）を合成したPacketを返す。
// 属性リストはまだ空で、Decodeで展開する。
func NewPacket(data []byte, src, dst *net.UDPAddr, conn *net.UDPConn) (*wire.Packet, error) {
	if len(data) < MinPacketSize {
		return nil, fmt.Errorf("%w: packet too small (%d < %d)", apperr.ErrMalformedPacket, len(data), MinPacketSize)
	}
	if len(data) > MaxPacketSize {
		return nil, fmt.Errorf("%w: packet too large (%d > %d)", apperr.ErrMalformedPacket, len(data), MaxPacketSize)
	}
	if data[offOpcode] != OpcodeBootRequest {
		return nil, fmt.Errorf("%w: cannot receive DHCP server messages", apperr.ErrMalformedPacket)
	}
	if data[offHtype] != HardwareEthernet {
		return nil, fmt.Errorf("%w: hardware type %#02x is not ethernet", apperr.ErrMalformedPacket, data[offHtype])
	}
	if data[offHlen] != HardwareEthernetLen {
		return nil, fmt.Errorf("%w: ethernet hardware length %d", apperr.ErrMalformedPacket, data[offHlen])
	}
	if binary.BigEndian.Uint32(data[offCookie:]) != MagicCookie {
		return nil, fmt.Errorf("%w: missing DHCP magic cookie", apperr.ErrMalformedPacket)
	}
	// 最初のオプションはMessage-Type（長さ1、値1..7）でなければならない
	if data[offOptions] != optMessageType ||
		data[offOptions+1] != 1 ||
		data[offOptions+2] == 0 ||
		data[offOptions+2] >= 8 {
		return nil, fmt.Errorf("%w: unknown or badly formatted DHCP packet", apperr.ErrMalformedPacket)
	}

	msgType := data[offOptions+2]
	hlen := int(data[offHlen])

	p := &wire.Packet{
		Code:   wire.DHCPOffset + wire.Code(msgType),
		ID:     binary.BigEndian.Uint32(data[offXid:]),
		Vector: SynthesizeVector(data[offChaddr:offChaddr+16], hlen, msgType),
		Src:    src,
		Dst:    dst,
		Sock:   wire.SockDHCP,
		Conn:   conn,
		Data:   append([]byte(nil), data...),
	}
	return p, nil
}

// Decode は固定ヘッダとオプション列をAVPリストへ展開し、受信後の
// 正規化（ブロードキャストビット補正、MMS/MTU検証）を行う。
func Decode(p *wire.Packet) error {
	data := p.Data
	if len(data) < MinPacketSize {
		return fmt.Errorf("%w: packet too small", apperr.ErrMalformedPacket)
	}
	if data[offHtype] != HardwareEthernet {
		return fmt.Errorf("%w: hardware type %#02x is not ethernet", apperr.ErrMalformedPacket, data[offHtype])
	}

	var list avp.List

	decodeHeader(data, &list)
	decodeOptions(data, &list)

	p.VPs = list.Head()

	fixBroadcastFlag(p)

	return validateMessageSizes(p)
}

// decodeHeader はBOOTP固定ヘッダ14フィールドをワイヤ順に読む。
func decodeHeader(data []byte, list *avp.List) {
	hlen := int(data[offHlen])
	off := 0
	for i := range dictionary.HeaderNames {
		entry := dictionary.HeaderEntry(i)
		vp := avp.New(entry.Attribute, entry.Name, entry.Type)
		field := data[off : off+dictionary.HeaderSizes[i]]

		// chaddrはイーサネットのときethernet型、それ以外はhlenで切ったoctets
		if i == 11 {
			if data[offHtype] == HardwareEthernet && hlen == HardwareEthernetLen {
				vp.Type = avp.TypeEthernet
				field = field[:HardwareEthernetLen]
			} else {
				if hlen > len(field) {
					hlen = len(field)
				}
				field = field[:hlen]
			}
		}

		if err := vp.DecodeValue(field); err != nil {
			off += dictionary.HeaderSizes[i]
			continue
		}
		off += dictionary.HeaderSizes[i]

		// 空文字列のフィールドは属性として出力しない
		if vp.Type == avp.TypeString && vp.Length == 0 {
			continue
		}
		list.Append(vp)
	}
}

// decodeOptions はoffOptions以降のオプション列を読む。
func decodeOptions(data []byte, list *avp.List) {
	p := offOptions
	for p < len(data) {
		tag := data[p]
		if tag == optPad {
			p++
			continue
		}
		if tag == optEnd {
			break
		}
		if p+2 > len(data) {
			break
		}
		alen := int(data[p+1])
		if alen > maxOptionLength {
			slog.Warn("DHCPオプション長超過",
				"event_id", "DHCP_OPT_TOO_LONG",
				"tag", tag,
				"length", alen,
			)
			p += 2 + alen
			continue
		}
		if p+2+alen > len(data) {
			break
		}
		value := data[p+2 : p+2+alen]
		p += 2 + alen

		entry, ok := dictionary.LookupOption(tag)
		if !ok {
			slog.Debug("辞書未登録のDHCPオプション", "tag", tag)
			continue
		}

		decodeOption(entry, tag, value, list)
	}
}

// decodeOption は1オプションの値をAVPへ展開する。
// array属性は固定幅で分割し、割り切れない場合は値全体をoctetsに落とす。
func decodeOption(entry dictionary.Entry, tag uint8, value []byte, list *avp.List) {
	width := entry.Type.FixedWidth()
	numEntries := 1
	alen := len(value)

	raw := false
	if entry.Array && width > 0 {
		if alen%width != 0 {
			raw = true
		} else {
			numEntries = alen / width
			alen = width
		}
	} else if width > 0 && alen != width {
		raw = true
	}

	if raw {
		vp := avp.New(entry.Attribute, entry.Name, avp.TypeOctets)
		vp.SetOctets(value)
		list.Append(vp)
		return
	}

	for i := 0; i < numEntries; i++ {
		vp := avp.New(entry.Attribute, entry.Name, entry.Type)

		// Client-Identifier: タイプ1（イーサネット）の7バイト値は
		// ethernetとして扱う
		if tag == 0x3d && !entry.Array && len(value) == 7 && value[0] == 1 && numEntries == 1 {
			vp.Type = avp.TypeEthernet
			if err := vp.DecodeValue(value[1:7]); err != nil {
				return
			}
			list.Append(vp)
			return
		}

		chunk := value
		if entry.Array {
			chunk = value[i*alen : (i+1)*alen]
		}
		if err := vp.DecodeValue(chunk); err != nil {
			vp.Type = avp.TypeOctets
			vp.SetOctets(chunk)
		}
		list.Append(vp)
	}
}

// fixBroadcastFlag は一部ベンダ（MSFT 98）のための補正を行う。
// giaddrがゼロのDHCP-RequestでVendor-Class-Identifierが"MSFT 98"の
// 場合、フラグAVPと生バッファの両方にブロードキャストビットを立てる。
func fixBroadcastFlag(p *wire.Packet) {
	if !isZeroIPv4(p.Data, offGiaddr) {
		return
	}
	if p.Code != wire.CodeDHCPRequest {
		return
	}
	vci := avp.Find(p.VPs, dictionary.AttrVendorClass)
	if vci == nil || vci.Str != "MSFT 98" {
		return
	}
	if flags := avp.Find(p.VPs, dictionary.AttrFlags); flags != nil {
		flags.Uint |= 0x8000
	}
	p.Data[offFlags] |= 0x80
}

// validateMessageSizes はMaximum-Msg-Size（57）とInterface-MTU（26）を
// 下限576に対して検証する。MTU未満は致命的エラー、MaxMSは黙って底上げ
// し、MaxMSがMTUを超える場合はMTUに切り詰める。
func validateMessageSizes(p *wire.Packet) error {
	maxms := avp.Find(p.VPs, dictionary.AttrMaxMsgSize)
	mtu := avp.Find(p.VPs, dictionary.AttrMTU)

	if mtu != nil && mtu.Uint < MinMessageSize {
		return fmt.Errorf("%w: client MTU %d below minimum %d", apperr.ErrMalformedPacket, mtu.Uint, MinMessageSize)
	}
	if maxms != nil && maxms.Uint < MinMessageSize {
		maxms.Uint = MinMessageSize
	}
	if maxms != nil && mtu != nil && maxms.Uint > mtu.Uint {
		maxms.Uint = mtu.Uint
	}
	return nil
}
