// Package dictionary はDHCP名前空間の属性辞書を提供する。
//
// 属性IDのビットレイアウト:
//
//	bit 16-31: 名前空間（DHCPは1）
//	bit  8-15: Option 82のサブオプションタグ（通常オプションは0）
//	bit  0-7 : オプションタグ（ヘッダ属性は256以降のため bit8 と重なるが、
//	           サブオプション詰めはOption 82にのみ使用するので衝突しない）
package dictionary

import (
	"github.com/oyaguma3/radius-dispatcher-poc/internal/avp"
)

// NamespaceDHCP はDHCP属性の名前空間プレフィックス。
const NamespaceDHCP uint32 = 1 << 16

// Option 82 関連定数
const (
	OptionRelayAgent = 82
)

// DHCPAttr はDHCPオプションタグ（またはヘッダ属性番号）から属性IDを生成する。
func DHCPAttr(tag uint16) uint32 {
	return NamespaceDHCP | uint32(tag)
}

// RelayAttr はOption 82のサブオプションタグから属性IDを生成する。
func RelayAttr(sub uint8) uint32 {
	return NamespaceDHCP | uint32(sub)<<8 | OptionRelayAgent
}

// IsDHCP は属性IDがDHCP名前空間に属するかを返す。
func IsDHCP(attribute uint32) bool {
	return attribute&NamespaceDHCP != 0
}

// BaseOption は属性IDの下位16ビット（オプションタグ／ヘッダ属性番号）を返す。
func BaseOption(attribute uint32) uint16 {
	return uint16(attribute & 0xffff)
}

// IsRelayOption は属性IDがOption 82のサブオプションを表すかを返す。
func IsRelayOption(attribute uint32) bool {
	return attribute&0xff == OptionRelayAgent && attribute&0xff00 != 0
}

// RelaySubOption はOption 82属性IDからサブオプションタグを取り出す。
func RelaySubOption(attribute uint32) uint8 {
	return uint8(attribute >> 8)
}

// Entry は辞書エントリを表す。
type Entry struct {
	Attribute uint32
	Name      string
	Type      avp.Type
	Array     bool // 値を固定幅で分割するオプション
}

// ヘッダ属性は256からフィールド順に採番する。
const headerAttrBase = 256

// HeaderNames はBOOTP固定ヘッダ14フィールドの属性名（ワイヤ順）。
var HeaderNames = []string{
	"DHCP-Opcode",
	"DHCP-Hardware-Type",
	"DHCP-Hardware-Address-Length",
	"DHCP-Hop-Count",
	"DHCP-Transaction-Id",
	"DHCP-Number-of-Seconds",
	"DHCP-Flags",
	"DHCP-Client-IP-Address",
	"DHCP-Your-IP-Address",
	"DHCP-Server-IP-Address",
	"DHCP-Gateway-IP-Address",
	"DHCP-Client-Hardware-Address",
	"DHCP-Server-Host-Name",
	"DHCP-Boot-Filename",
}

// HeaderSizes は固定ヘッダ14フィールドのバイト幅（ワイヤ順）。
var HeaderSizes = []int{
	1, 1, 1, 1,
	4, 2, 2, 4,
	4, 4, 4,
	16,
	64,
	128,
}

// headerTypes は固定ヘッダ14フィールドのAVP型（ワイヤ順）。
// 12番目（Client-Hardware-Address）はhtype/hlenに応じてデコーダ側で
// ethernetへ差し替える。
var headerTypes = []avp.Type{
	avp.TypeByte, avp.TypeByte, avp.TypeByte, avp.TypeByte,
	avp.TypeInteger, avp.TypeShort, avp.TypeShort, avp.TypeIPAddr,
	avp.TypeIPAddr, avp.TypeIPAddr, avp.TypeIPAddr,
	avp.TypeOctets,
	avp.TypeString,
	avp.TypeString,
}

// ヘッダ属性ID（よく参照されるもの）
var (
	AttrOpcode      = DHCPAttr(headerAttrBase + 0)
	AttrXid         = DHCPAttr(headerAttrBase + 4)
	AttrFlags       = DHCPAttr(headerAttrBase + 6)
	AttrClientIP    = DHCPAttr(headerAttrBase + 7)
	AttrYourIP      = DHCPAttr(headerAttrBase + 8)
	AttrGatewayIP   = DHCPAttr(headerAttrBase + 10)
	AttrClientHW    = DHCPAttr(headerAttrBase + 11)
	AttrMessageType = DHCPAttr(53)
	AttrVendorClass = DHCPAttr(60)
	AttrClientID    = DHCPAttr(61)
	AttrMaxMsgSize  = DHCPAttr(57)
	AttrMTU         = DHCPAttr(26)
)

// HeaderEntry はヘッダフィールドindex（0..13）の辞書エントリを返す。
func HeaderEntry(index int) Entry {
	return Entry{
		Attribute: DHCPAttr(uint16(headerAttrBase + index)),
		Name:      HeaderNames[index],
		Type:      headerTypes[index],
	}
}

// options はDHCPオプションタグの辞書。
var options = map[uint16]Entry{
	1:   {Name: "DHCP-Subnet-Mask", Type: avp.TypeIPAddr},
	2:   {Name: "DHCP-Time-Offset", Type: avp.TypeInteger},
	3:   {Name: "DHCP-Router-Address", Type: avp.TypeIPAddr, Array: true},
	4:   {Name: "DHCP-Time-Server", Type: avp.TypeIPAddr, Array: true},
	6:   {Name: "DHCP-Domain-Name-Server", Type: avp.TypeIPAddr, Array: true},
	12:  {Name: "DHCP-Hostname", Type: avp.TypeString},
	15:  {Name: "DHCP-Domain-Name", Type: avp.TypeString},
	26:  {Name: "DHCP-Interface-MTU-Size", Type: avp.TypeShort},
	28:  {Name: "DHCP-Broadcast-Address", Type: avp.TypeIPAddr},
	42:  {Name: "DHCP-NTP-Servers", Type: avp.TypeIPAddr, Array: true},
	43:  {Name: "DHCP-Vendor", Type: avp.TypeOctets},
	44:  {Name: "DHCP-NETBIOS-Name-Servers", Type: avp.TypeIPAddr, Array: true},
	50:  {Name: "DHCP-Requested-IP-Address", Type: avp.TypeIPAddr},
	51:  {Name: "DHCP-IP-Address-Lease-Time", Type: avp.TypeInteger},
	52:  {Name: "DHCP-Overload", Type: avp.TypeByte},
	53:  {Name: "DHCP-Message-Type", Type: avp.TypeByte},
	54:  {Name: "DHCP-DHCP-Server-Identifier", Type: avp.TypeIPAddr},
	55:  {Name: "DHCP-Parameter-Request-List", Type: avp.TypeByte, Array: true},
	56:  {Name: "DHCP-DHCP-Error-Message", Type: avp.TypeString},
	57:  {Name: "DHCP-DHCP-Maximum-Msg-Size", Type: avp.TypeShort},
	58:  {Name: "DHCP-Renewal-Time", Type: avp.TypeInteger},
	59:  {Name: "DHCP-Rebinding-Time", Type: avp.TypeInteger},
	60:  {Name: "DHCP-Vendor-Class-Identifier", Type: avp.TypeString},
	61:  {Name: "DHCP-Client-Identifier", Type: avp.TypeOctets},
	66:  {Name: "DHCP-TFTP-Server-Name", Type: avp.TypeString},
	67:  {Name: "DHCP-Boot-Filename", Type: avp.TypeString},
	90:  {Name: "DHCP-Authentication", Type: avp.TypeOctets},
	91:  {Name: "DHCP-Client-Last-Txn-Time", Type: avp.TypeInteger},
	116: {Name: "DHCP-Auto-Configure", Type: avp.TypeByte},
	118: {Name: "DHCP-Subnet-Selection-Option", Type: avp.TypeIPAddr},
}

// relaySubOptions はOption 82のサブオプション辞書。
var relaySubOptions = map[uint8]Entry{
	1: {Name: "DHCP-Relay-Circuit-Id", Type: avp.TypeOctets},
	2: {Name: "DHCP-Relay-Remote-Id", Type: avp.TypeOctets},
	5: {Name: "DHCP-Relay-Link-Selection", Type: avp.TypeIPAddr},
}

// LookupOption はDHCPオプションタグの辞書エントリを返す。
func LookupOption(tag uint8) (Entry, bool) {
	e, ok := options[uint16(tag)]
	if !ok {
		return Entry{}, false
	}
	e.Attribute = DHCPAttr(uint16(tag))
	return e, true
}

// LookupRelaySubOption はOption 82サブオプションの辞書エントリを返す。
func LookupRelaySubOption(sub uint8) (Entry, bool) {
	e, ok := relaySubOptions[sub]
	if !ok {
		return Entry{}, false
	}
	e.Attribute = RelayAttr(sub)
	return e, true
}

// Lookup は属性IDから辞書エントリを返す。
func Lookup(attribute uint32) (Entry, bool) {
	if !IsDHCP(attribute) {
		return Entry{}, false
	}
	if IsRelayOption(attribute) {
		return LookupRelaySubOption(RelaySubOption(attribute))
	}
	base := BaseOption(attribute)
	if base >= headerAttrBase && base < headerAttrBase+uint16(len(HeaderNames)) {
		return HeaderEntry(int(base - headerAttrBase)), true
	}
	if base <= 255 {
		return LookupOption(uint8(base))
	}
	return Entry{}, false
}
