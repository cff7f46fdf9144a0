// Package config は環境変数とレガシーCLIフラグからの設定読み込みを
// 提供する。フラグは環境変数より優先する。
package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Config はアプリケーション設定を保持する。
type Config struct {
	// Valkey接続設定（未設定の場合は静的ファイルのみで動作）
	RedisHost string `envconfig:"REDIS_HOST"`
	RedisPort string `envconfig:"REDIS_PORT" default:"6379"`
	RedisPass string `envconfig:"REDIS_PASS"`

	// RADIUS設定
	BindAddr     string `envconfig:"BIND_ADDR"`                // 空は全インターフェース
	AuthPort     int    `envconfig:"AUTH_PORT" default:"1812"` // アカウンティングはAuthPort+1
	RadiusSecret string `envconfig:"RADIUS_SECRET"`            // フォールバックシークレット

	// DHCP設定
	DHCPEnabled bool `envconfig:"DHCP_ENABLED" default:"false"`
	DHCPPort    int  `envconfig:"DHCP_PORT" default:"67"`

	// ディレクトリ設定
	ConfDir string `envconfig:"CONF_DIR" default:"/etc/raddb"`
	AcctDir string `envconfig:"ACCT_DIR" default:"/var/log/radacct"`
	LogDir  string `envconfig:"LOG_DIR" default:"stdout"` // stdout / syslog / ディレクトリ

	// アカウンティング転送先（空は無効）
	AcctForwardURL string `envconfig:"ACCT_FORWARD_URL"`

	// 管理API（空は無効）
	AdminAddr string `envconfig:"ADMIN_ADDR"`

	// User-Name正規化
	StripRealm     bool   `envconfig:"STRIP_REALM" default:"false"`
	RealmDelimiter string `envconfig:"REALM_DELIMITER" default:"@"`

	// 動作モード
	SpawnMode  bool `envconfig:"SPAWN_MODE" default:"true"` // falseでインライン実行
	Foreground bool `envconfig:"FOREGROUND" default:"false"`
	DebugLevel int  `envconfig:"DEBUG_LEVEL" default:"0"`
	DisableDNS bool `envconfig:"DISABLE_DNS" default:"false"`

	// ログ設定
	LogAuth         bool `envconfig:"LOG_AUTH" default:"false"`      // 認証失敗を記録
	LogAuthPass     bool `envconfig:"LOG_AUTH_PASS" default:"false"` // パスワードを記録
	LogAuthDetail   bool `envconfig:"LOG_AUTH_DETAIL" default:"false"`
	LogStrippedName bool `envconfig:"LOG_STRIPPED_NAME" default:"false"`
	LogMaskPassword bool `envconfig:"LOG_MASK_PASSWORD" default:"true"`

	// その他
	CachePasswd bool   `envconfig:"CACHE_PASSWD" default:"false"`
	PIDFile     string `envconfig:"PID_FILE"`
}

// Load は環境変数から設定を読み込む。
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// ValkeyAddr はValkey接続アドレスを "host:port" 形式で返す。
func (c *Config) ValkeyAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// ValkeyEnabled はValkeyを使用する構成かを返す。
func (c *Config) ValkeyEnabled() bool {
	return c.RedisHost != ""
}

// AcctPort はアカウンティングポートを返す。
func (c *Config) AcctPort() int {
	return c.AuthPort + 1
}

// ClientsFile はclients.jsonのパスを返す。
func (c *Config) ClientsFile() string {
	return strings.TrimRight(c.ConfDir, "/") + "/clients.json"
}

// Validate は設定値のバリデーションを行う。
func (c *Config) Validate() error {
	if c.AuthPort <= 0 || c.AuthPort > 65534 {
		return fmt.Errorf("AUTH_PORT out of range: %d", c.AuthPort)
	}
	if c.DHCPEnabled && (c.DHCPPort <= 0 || c.DHCPPort > 65535) {
		return fmt.Errorf("DHCP_PORT out of range: %d", c.DHCPPort)
	}
	if c.AcctForwardURL != "" &&
		!strings.HasPrefix(c.AcctForwardURL, "http://") &&
		!strings.HasPrefix(c.AcctForwardURL, "https://") {
		return fmt.Errorf("ACCT_FORWARD_URL must start with http:// or https://")
	}
	if c.RealmDelimiter == "" {
		c.RealmDelimiter = "@"
	}
	return nil
}
