// Package avp は属性値ペア（AVP）の型付きリストを提供する。
package avp

import (
	"encoding/binary"
	"fmt"
	"net"
	"strings"
)

// Type はAVP値の型を表す。
type Type int

const (
	TypeOctets Type = iota
	TypeByte
	TypeShort
	TypeInteger
	TypeIPAddr
	TypeEthernet
	TypeString
	TypeDate
)

// String はType名を返す。
func (t Type) String() string {
	switch t {
	case TypeByte:
		return "byte"
	case TypeShort:
		return "short"
	case TypeInteger:
		return "integer"
	case TypeIPAddr:
		return "ipaddr"
	case TypeEthernet:
		return "ethernet"
	case TypeString:
		return "string"
	case TypeDate:
		return "date"
	default:
		return "octets"
	}
}

// FixedWidth は固定幅型のバイト数を返す。可変長型は0を返す。
func (t Type) FixedWidth() int {
	switch t {
	case TypeByte:
		return 1
	case TypeShort:
		return 2
	case TypeInteger, TypeIPAddr, TypeDate:
		return 4
	case TypeEthernet:
		return 6
	default:
		return 0
	}
}

// Pair は辞書で識別される1属性を保持する。
// Nextにより単方向リストを構成する。
type Pair struct {
	Attribute uint32 // 名前空間プレフィックス込みの属性ID
	Name      string
	Type      Type
	Length    int // 値のバイト数（stringはNUL終端を含まない）

	// 値。Typeに応じていずれか1つが有効。
	Uint   uint32 // byte / short / integer / date
	IP     net.IP // ipaddr（4バイト）
	Ether  [6]byte
	Str    string
	Octets []byte

	Next *Pair
}

// New は属性ID・名前・型を指定してPairを生成する。
func New(attribute uint32, name string, typ Type) *Pair {
	return &Pair{Attribute: attribute, Name: name, Type: typ}
}

// SetUint は整数系の値を設定する。
func (p *Pair) SetUint(v uint32) *Pair {
	p.Uint = v
	p.Length = p.Type.FixedWidth()
	return p
}

// SetIP はIPv4アドレス値を設定する。
func (p *Pair) SetIP(ip net.IP) *Pair {
	p.IP = ip.To4()
	p.Length = 4
	return p
}

// SetEther はイーサネットアドレス値を設定する。
func (p *Pair) SetEther(hw [6]byte) *Pair {
	p.Ether = hw
	p.Length = 6
	return p
}

// SetString は文字列値を設定する。LengthはNUL終端を含まない。
func (p *Pair) SetString(s string) *Pair {
	p.Str = s
	p.Length = len(s)
	return p
}

// SetOctets はバイト列値を設定する。
func (p *Pair) SetOctets(b []byte) *Pair {
	p.Octets = append([]byte(nil), b...)
	p.Length = len(b)
	return p
}

// DecodeValue はワイヤ上のバイト列から値を読み取る。
// 固定幅型で長さが不足する場合のみエラーを返し、呼び出し側でoctetsへのフォールバックを行う。
func (p *Pair) DecodeValue(b []byte) error {
	switch p.Type {
	case TypeByte:
		if len(b) < 1 {
			return fmt.Errorf("byte value too short: %d", len(b))
		}
		p.SetUint(uint32(b[0]))
	case TypeShort:
		if len(b) < 2 {
			return fmt.Errorf("short value too short: %d", len(b))
		}
		p.SetUint(uint32(binary.BigEndian.Uint16(b)))
	case TypeInteger, TypeDate:
		if len(b) < 4 {
			return fmt.Errorf("integer value too short: %d", len(b))
		}
		p.SetUint(binary.BigEndian.Uint32(b))
		if p.Type == TypeDate {
			p.Length = 4
		}
	case TypeIPAddr:
		if len(b) < 4 {
			return fmt.Errorf("ipaddr value too short: %d", len(b))
		}
		p.SetIP(net.IPv4(b[0], b[1], b[2], b[3]))
	case TypeEthernet:
		if len(b) < 6 {
			return fmt.Errorf("ethernet value too short: %d", len(b))
		}
		var hw [6]byte
		copy(hw[:], b)
		p.SetEther(hw)
	case TypeString:
		// 格納上はNUL終端、Lengthは終端を含まない
		p.SetString(strings.TrimRight(string(b), "\x00"))
	default:
		p.SetOctets(b)
	}
	return nil
}

// EncodeValue は値をワイヤ形式のバイト列に変換する。
func (p *Pair) EncodeValue() []byte {
	switch p.Type {
	case TypeByte:
		return []byte{byte(p.Uint)}
	case TypeShort:
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, uint16(p.Uint))
		return b
	case TypeInteger, TypeDate:
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, p.Uint)
		return b
	case TypeIPAddr:
		ip := p.IP.To4()
		if ip == nil {
			return make([]byte, 4)
		}
		return []byte(ip)
	case TypeEthernet:
		return append([]byte(nil), p.Ether[:]...)
	case TypeString:
		return []byte(p.Str)
	default:
		return append([]byte(nil), p.Octets...)
	}
}

// String はデバッグログ用の表現を返す。
func (p *Pair) String() string {
	var v string
	switch p.Type {
	case TypeByte, TypeShort, TypeInteger, TypeDate:
		v = fmt.Sprintf("%d", p.Uint)
	case TypeIPAddr:
		v = p.IP.String()
	case TypeEthernet:
		v = net.HardwareAddr(p.Ether[:]).String()
	case TypeString:
		v = fmt.Sprintf("%q", p.Str)
	default:
		v = fmt.Sprintf("0x%x", p.Octets)
	}
	name := p.Name
	if name == "" {
		name = fmt.Sprintf("Attr-%d", p.Attribute)
	}
	return name + " = " + v
}

// List はPairの単方向リストのルートを保持する。
type List struct {
	head *Pair
	tail *Pair
}

// Append はリスト末尾にPairを追加する。
func (l *List) Append(p *Pair) {
	if p == nil {
		return
	}
	p.Next = nil
	if l.head == nil {
		l.head = p
		l.tail = p
		return
	}
	l.tail.Next = p
	l.tail = p
}

// Head はリスト先頭を返す。
func (l *List) Head() *Pair {
	return l.head
}

// Find は属性IDが一致する最初のPairを返す。
func Find(head *Pair, attribute uint32) *Pair {
	for p := head; p != nil; p = p.Next {
		if p.Attribute == attribute {
			return p
		}
	}
	return nil
}

// Count はリスト長を返す。
func Count(head *Pair) int {
	n := 0
	for p := head; p != nil; p = p.Next {
		n++
	}
	return n
}

// Delete は属性IDが一致するPairをすべてリストから除去し、新たな先頭を返す。
func Delete(head *Pair, attribute uint32) *Pair {
	for head != nil && head.Attribute == attribute {
		head = head.Next
	}
	for p := head; p != nil && p.Next != nil; {
		if p.Next.Attribute == attribute {
			p.Next = p.Next.Next
		} else {
			p = p.Next
		}
	}
	return head
}

// Slice はリストをスライスに展開する。
func Slice(head *Pair) []*Pair {
	var out []*Pair
	for p := head; p != nil; p = p.Next {
		out = append(out, p)
	}
	return out
}

// Relink はスライスの順序で単方向リストを張り直し、先頭を返す。
func Relink(pairs []*Pair) *Pair {
	if len(pairs) == 0 {
		return nil
	}
	for i := 0; i < len(pairs)-1; i++ {
		pairs[i].Next = pairs[i+1]
	}
	pairs[len(pairs)-1].Next = nil
	return pairs[0]
}
