// Package model は共通データ構造体を提供する。
package model

// AuthPolicy はクライアント単位の認証ポリシーを表す。
type AuthPolicy string

const (
	// PolicyAllow は認証処理を許可する
	PolicyAllow AuthPolicy = "allow"
	// PolicyDeny は常にRejectを返す
	PolicyDeny AuthPolicy = "deny"
)

// RadiusClient はRADIUSクライアント情報を表す。
// Valkeyキー: client:{IP}
type RadiusClient struct {
	IP     string     `json:"ip"`     // クライアントIPアドレス
	Secret string     `json:"secret"` // 共有シークレット
	Name   string     `json:"name"`   // クライアント表示名
	Policy AuthPolicy `json:"policy"` // 認証ポリシー（省略時はallow）
}

// NewRadiusClient は新しいRadiusClientを生成する。
func NewRadiusClient(ip, secret, name string, policy AuthPolicy) *RadiusClient {
	if policy == "" {
		policy = PolicyAllow
	}
	return &RadiusClient{
		IP:     ip,
		Secret: secret,
		Name:   name,
		Policy: policy,
	}
}

// DisplayName はログ出力用の表示名を返す。
// Nameが未設定の場合はIPアドレスを返す。
func (c *RadiusClient) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.IP
}
