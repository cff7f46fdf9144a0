package dictionary

import (
	"testing"

	"github.com/oyaguma3/radius-dispatcher-poc/internal/avp"
)

func TestDHCPAttr(t *testing.T) {
	attr := DHCPAttr(53)
	if !IsDHCP(attr) {
		t.Fatal("IsDHCP: got false, want true")
	}
	if BaseOption(attr) != 53 {
		t.Errorf("BaseOption: got %d, want 53", BaseOption(attr))
	}
}

func TestRelayAttrPacking(t *testing.T) {
	attr := RelayAttr(1)
	if !IsRelayOption(attr) {
		t.Fatal("IsRelayOption: got false, want true")
	}
	if RelaySubOption(attr) != 1 {
		t.Errorf("RelaySubOption: got %d, want 1", RelaySubOption(attr))
	}
	if attr&0xff != OptionRelayAgent {
		t.Errorf("base: got %d, want %d", attr&0xff, OptionRelayAgent)
	}

	// サブオプションなしの素のOption 82はrelay扱いしない
	if IsRelayOption(DHCPAttr(82)) {
		t.Error("IsRelayOption(82): got true, want false")
	}
}

func TestLookupOption(t *testing.T) {
	tests := []struct {
		tag       uint8
		wantName  string
		wantType  avp.Type
		wantArray bool
	}{
		{53, "DHCP-Message-Type", avp.TypeByte, false},
		{55, "DHCP-Parameter-Request-List", avp.TypeByte, true},
		{6, "DHCP-Domain-Name-Server", avp.TypeIPAddr, true},
		{57, "DHCP-DHCP-Maximum-Msg-Size", avp.TypeShort, false},
		{60, "DHCP-Vendor-Class-Identifier", avp.TypeString, false},
	}
	for _, tt := range tests {
		e, ok := LookupOption(tt.tag)
		if !ok {
			t.Fatalf("LookupOption(%d): not found", tt.tag)
		}
		if e.Name != tt.wantName || e.Type != tt.wantType || e.Array != tt.wantArray {
			t.Errorf("LookupOption(%d): got %+v", tt.tag, e)
		}
	}

	if _, ok := LookupOption(200); ok {
		t.Error("LookupOption(200): 未登録タグはfalseを返すべき")
	}
}

func TestHeaderEntry(t *testing.T) {
	if len(HeaderNames) != 14 || len(HeaderSizes) != 14 {
		t.Fatalf("ヘッダフィールドは14個: names=%d sizes=%d", len(HeaderNames), len(HeaderSizes))
	}

	total := 0
	for _, s := range HeaderSizes {
		total += s
	}
	if total != 236 {
		t.Errorf("ヘッダ幅合計: got %d, want 236", total)
	}

	e := HeaderEntry(8)
	if e.Name != "DHCP-Your-IP-Address" || e.Type != avp.TypeIPAddr {
		t.Errorf("HeaderEntry(8): got %+v", e)
	}
	if e.Attribute != AttrYourIP {
		t.Errorf("HeaderEntry(8).Attribute: got %d, want %d", e.Attribute, AttrYourIP)
	}
}

func TestLookup(t *testing.T) {
	if e, ok := Lookup(AttrMessageType); !ok || e.Name != "DHCP-Message-Type" {
		t.Errorf("Lookup(AttrMessageType): got %+v ok=%v", e, ok)
	}
	if e, ok := Lookup(AttrFlags); !ok || e.Name != "DHCP-Flags" {
		t.Errorf("Lookup(AttrFlags): got %+v ok=%v", e, ok)
	}
	if e, ok := Lookup(RelayAttr(2)); !ok || e.Name != "DHCP-Relay-Remote-Id" {
		t.Errorf("Lookup(RelayAttr(2)): got %+v ok=%v", e, ok)
	}
	if _, ok := Lookup(42); ok {
		t.Error("Lookup: DHCP名前空間外はfalseを返すべき")
	}
}
