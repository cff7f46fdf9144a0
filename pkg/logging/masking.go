// Package logging はログ関連のユーティリティを提供する。
package logging

// MaskPassword はパスワードをマスキングする。
// 長さだけを保持し、内容は一切出力しない。
// enabled=false の場合はマスキングせずにそのまま返す。
func MaskPassword(s string, enabled bool) string {
	if !enabled {
		return s
	}
	return MaskPartial(s, 0, 0, '*')
}

// MaskSecret は共有シークレットをマスキングする。
// 識別のため先頭2文字のみ保持する。
func MaskSecret(secret string, enabled bool) string {
	if !enabled {
		return secret
	}
	if len(secret) <= 2 {
		return MaskPartial(secret, 0, 0, '*')
	}
	return MaskPartial(secret, 2, 0, '*')
}

// MaskPartial は文字列の一部をマスキングする。
// keepPrefix: 先頭から保持する文字数
// keepSuffix: 末尾から保持する文字数
// maskChar: マスキングに使用する文字
func MaskPartial(s string, keepPrefix, keepSuffix int, maskChar rune) string {
	runes := []rune(s)
	length := len(runes)

	if length == 0 {
		return s
	}
	// keepPrefix+keepSuffix==0 は全マスク
	if keepPrefix+keepSuffix == 0 {
		result := make([]rune, length)
		for i := range result {
			result[i] = maskChar
		}
		return string(result)
	}
	if length <= keepPrefix+keepSuffix {
		return s
	}

	result := make([]rune, length)

	for i := 0; i < keepPrefix; i++ {
		result[i] = runes[i]
	}
	for i := keepPrefix; i < length-keepSuffix; i++ {
		result[i] = maskChar
	}
	for i := length - keepSuffix; i < length; i++ {
		result[i] = runes[i]
	}

	return string(result)
}

// Masker はマスキング設定を保持する構造体。
type Masker struct {
	enabled bool
}

// NewMasker は新しいMaskerを生成する。
func NewMasker(enabled bool) *Masker {
	return &Masker{enabled: enabled}
}

// Password はパスワードをマスキングする。
func (m *Masker) Password(s string) string {
	return MaskPassword(s, m.enabled)
}

// Secret は共有シークレットをマスキングする。
func (m *Masker) Secret(s string) string {
	return MaskSecret(s, m.enabled)
}

// IsEnabled はマスキングが有効かどうかを返す。
func (m *Masker) IsEnabled() bool {
	return m.enabled
}
