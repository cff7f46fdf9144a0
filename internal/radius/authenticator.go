// Package radius はlayeh.com/radius上のRADIUS境界処理を提供する。
// Authenticator/Message-Authenticator検証、User-Name正規化、応答生成
// を担当し、パケットレイアウト自体はライブラリに委ねる。
package radius

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/subtle"

	"layeh.com/radius"
	"layeh.com/radius/rfc2869"
)

// VerifyMessageAuthenticator はMessage-Authenticator属性を検証する（RFC 3579）。
// 属性が存在しない場合はtrue（検証対象なし）を返す。
func VerifyMessageAuthenticator(packet *radius.Packet, secret []byte) bool {
	origMA, err := rfc2869.MessageAuthenticator_Lookup(packet)
	if err != nil {
		// 属性なし
		return true
	}
	if len(origMA) != 16 {
		return false
	}

	// 属性値を16バイトゼロに置換した上でHMAC-MD5を計算する
	zeroMA := make([]byte, 16)
	_ = rfc2869.MessageAuthenticator_Set(packet, zeroMA)

	data, err := packet.MarshalBinary()
	if err != nil {
		_ = rfc2869.MessageAuthenticator_Set(packet, origMA)
		return false
	}

	mac := hmac.New(md5.New, secret)
	mac.Write(data)
	expected := mac.Sum(nil)

	// 元の値を復元
	_ = rfc2869.MessageAuthenticator_Set(packet, origMA)

	return hmac.Equal(expected, origMA)
}

// RequireMessageAuthenticator はMessage-Authenticator属性の存在と正当性を
// 検証する。属性がない場合もfalseを返す（Status-Server用）。
func RequireMessageAuthenticator(packet *radius.Packet, secret []byte) bool {
	if _, err := rfc2869.MessageAuthenticator_Lookup(packet); err != nil {
		return false
	}
	return VerifyMessageAuthenticator(packet, secret)
}

// SetMessageAuthenticator は応答パケットにMessage-Authenticator属性を
// 計算して設定する。requestAuthはリクエストのAuthenticator（RFC 3579は
// Response Authenticatorではなくこちらを使う）。
func SetMessageAuthenticator(packet *radius.Packet, secret []byte, requestAuth [16]byte) {
	zeroMA := make([]byte, 16)
	_ = rfc2869.MessageAuthenticator_Set(packet, zeroMA)

	savedAuth := packet.Authenticator
	packet.Authenticator = requestAuth

	data, err := packet.MarshalBinary()
	if err != nil {
		packet.Authenticator = savedAuth
		return
	}

	mac := hmac.New(md5.New, secret)
	mac.Write(data)
	computed := mac.Sum(nil)

	packet.Authenticator = savedAuth
	_ = rfc2869.MessageAuthenticator_Set(packet, computed)
}

// VerifyAccountingAuthenticator はAccounting-RequestのRequest Authenticator
// を検証する（RFC 2866）。
// 検証式: Authenticator = MD5(Code + ID + Length + 16 zero octets + Attributes + Secret)
func VerifyAccountingAuthenticator(packet *radius.Packet, secret []byte) bool {
	data, err := packet.MarshalBinary()
	if err != nil {
		return false
	}
	if len(data) < 20 {
		return false
	}

	var origAuth [16]byte
	copy(origAuth[:], data[4:20])

	copy(data[4:20], make([]byte, 16))

	h := md5.New()
	h.Write(data)
	h.Write(secret)
	expected := h.Sum(nil)

	return subtle.ConstantTimeCompare(origAuth[:], expected) == 1
}

// VerifyResponseAuthenticator はプロキシ応答のResponse Authenticatorを
// 検証する（RFC 2865）。rawは受信バイト列、requestAuthは対応する送信
// リクエストのAuthenticator。
// 検証式: Authenticator = MD5(Code + ID + Length + RequestAuth + Attributes + Secret)
func VerifyResponseAuthenticator(raw []byte, requestAuth [16]byte, secret []byte) bool {
	if len(raw) < 20 {
		return false
	}

	h := md5.New()
	h.Write(raw[0:4])
	h.Write(requestAuth[:])
	h.Write(raw[20:])
	h.Write(secret)
	expected := h.Sum(nil)

	return subtle.ConstantTimeCompare(raw[4:20], expected) == 1
}
