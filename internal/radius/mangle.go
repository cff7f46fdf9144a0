package radius

import (
	"strings"

	"layeh.com/radius"
	"layeh.com/radius/rfc2865"
)

// MangleOptions はUser-Name正規化の設定。
type MangleOptions struct {
	StripRealm     bool   // realm部を除去する
	RealmDelimiter string // realm区切り文字（既定は"@"）
	TrimSpace      bool   // 前後の空白を除去する
}

// DefaultMangleOptions は既定の正規化設定を返す。
func DefaultMangleOptions() MangleOptions {
	return MangleOptions{
		StripRealm:     false,
		RealmDelimiter: "@",
		TrimSpace:      true,
	}
}

// MangleUserName はUser-Name属性を正規化し、正規化後のユーザー名を返す。
// 属性が存在しない、または正規化後に空になる場合はokにfalseを返す。
// 呼び出し側はその場合リクエストを破棄する。
func MangleUserName(packet *radius.Packet, opts MangleOptions) (string, bool) {
	name, err := rfc2865.UserName_LookupString(packet)
	if err != nil {
		return "", false
	}

	mangled := MangleName(name, opts)
	if mangled == "" {
		return "", false
	}

	if mangled != name {
		_ = rfc2865.UserName_SetString(packet, mangled)
	}
	return mangled, true
}

// MangleName は文字列としてのユーザー名を正規化する。
func MangleName(name string, opts MangleOptions) string {
	if opts.TrimSpace {
		name = strings.TrimSpace(name)
	}
	if opts.StripRealm {
		delim := opts.RealmDelimiter
		if delim == "" {
			delim = "@"
		}
		if i := strings.Index(name, delim); i >= 0 {
			name = name[:i]
		}
	}
	return name
}
