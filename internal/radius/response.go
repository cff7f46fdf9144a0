package radius

import (
	"layeh.com/radius"
	"layeh.com/radius/rfc2865"
)

// ExtractProxyStates はProxy-State属性をすべて抽出する（RFC 2865 5.33）。
func ExtractProxyStates(packet *radius.Packet) [][]byte {
	var states [][]byte
	for _, a := range packet.Attributes {
		if a.Type == rfc2865.ProxyState_Type {
			states = append(states, append([]byte(nil), a.Attribute...))
		}
	}
	return states
}

// ApplyProxyStates は応答パケットへProxy-Stateをエコーバックする。
func ApplyProxyStates(response *radius.Packet, proxyStates [][]byte) {
	for _, ps := range proxyStates {
		response.Add(rfc2865.ProxyState_Type, radius.Attribute(ps))
	}
}

// BuildResponse は要求パケットへの応答を生成し、Proxy-Stateをエコー
// バックする。Response AuthenticatorはEncode()時にライブラリが計算する。
func BuildResponse(request *radius.Packet, code radius.Code) *radius.Packet {
	response := request.Response(code)
	ApplyProxyStates(response, ExtractProxyStates(request))
	return response
}

// BuildStatusServerResponse はStatus-Serverへの応答を生成する（RFC 5997）。
// 認証ポートではAccess-Accept、アカウンティングポートでは
// Accounting-Responseをcodeに指定する。
// Message-Authenticator検証に失敗した場合はnil（無応答・破棄）。
// 応答にはMessage-Authenticatorを必ず付与し、Proxy-Stateをエコーバックする。
func BuildStatusServerResponse(request *radius.Packet, secret []byte, code radius.Code) *radius.Packet {
	if !RequireMessageAuthenticator(request, secret) {
		return nil
	}

	response := request.Response(code)
	ApplyProxyStates(response, ExtractProxyStates(request))
	SetMessageAuthenticator(response, secret, request.Authenticator)
	return response
}
