// Package client はRADIUSクライアントレジストリ（送信元アドレス→共有
// シークレット・表示名の解決）を提供する。
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/oyaguma3/radius-dispatcher-poc/internal/store"
	"github.com/oyaguma3/radius-dispatcher-poc/pkg/model"
)

// Registry は送信元IPからクライアント情報を解決する。
type Registry interface {
	// Find は送信元IPのクライアント情報を返す。未登録はnil。
	Find(ctx context.Context, ip net.IP) *model.RadiusClient
	// Name はログ向けの表示名を返す。登録名、逆引き名（有効時）、アドレス文字列の順に用いる。
	Name(ctx context.Context, ip net.IP) string
}

// ChainRegistry は静的ファイル → Valkey → フォールバックシークレットの
// 優先順でクライアントを解決する。
type ChainRegistry struct {
	static         map[string]*model.RadiusClient
	cs             store.ClientStore // nil可（Valkey未使用構成）
	fallbackSecret string
	resolver       *NameResolver
}

// NewChainRegistry は新しいChainRegistryを生成する。
func NewChainRegistry(static map[string]*model.RadiusClient, cs store.ClientStore, fallbackSecret string, resolver *NameResolver) *ChainRegistry {
	if static == nil {
		static = map[string]*model.RadiusClient{}
	}
	return &ChainRegistry{
		static:         static,
		cs:             cs,
		fallbackSecret: fallbackSecret,
		resolver:       resolver,
	}
}

// Find は送信元IPのクライアント情報を返す。
func (r *ChainRegistry) Find(ctx context.Context, ip net.IP) *model.RadiusClient {
	key := ip.String()

	if cl, ok := r.static[key]; ok {
		return cl
	}

	if r.cs != nil {
		cl, err := r.cs.GetClient(ctx, key)
		if err != nil {
			slog.Warn("Valkeyクライアント検索エラー",
				"event_id", "CLIENT_STORE_ERR",
				"src_ip", key,
				"error", err,
			)
		} else if cl != nil {
			return cl
		}
	}

	if r.fallbackSecret != "" {
		return &model.RadiusClient{IP: key, Secret: r.fallbackSecret, Policy: model.PolicyAllow}
	}

	return nil
}

// Name はログ向けの表示名を返す。
func (r *ChainRegistry) Name(ctx context.Context, ip net.IP) string {
	if cl := r.Find(ctx, ip); cl != nil && cl.Name != "" {
		return cl.Name
	}
	if r.resolver != nil {
		if name := r.resolver.Resolve(ip); name != "" {
			return name
		}
	}
	return ip.String()
}

// clientsFile はclients.jsonのトップレベル構造。
type clientsFile struct {
	Clients []*model.RadiusClient `json:"clients"`
}

// LoadClientsFile は設定ディレクトリのclients.jsonを読み込む。
// ファイルが存在しない場合は空のマップを返す（Valkeyのみの構成）。
func LoadClientsFile(path string) (map[string]*model.RadiusClient, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*model.RadiusClient{}, nil
		}
		return nil, fmt.Errorf("failed to read clients file: %w", err)
	}

	var f clientsFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse clients file: %w", err)
	}

	out := make(map[string]*model.RadiusClient, len(f.Clients))
	for _, cl := range f.Clients {
		if cl.IP == "" || cl.Secret == "" {
			return nil, fmt.Errorf("clients file entry missing ip or secret")
		}
		if cl.Policy == "" {
			cl.Policy = model.PolicyAllow
		}
		out[cl.IP] = cl
	}
	return out, nil
}

// NameResolver は逆引きDNSによる表示名解決を行う。
// 解決結果はプロセス内でキャッシュする。
type NameResolver struct {
	enabled bool

	mu    sync.Mutex
	cache map[string]string
}

// NewNameResolver は新しいNameResolverを生成する。
// enabled=falseの場合、Resolveは常に空文字列を返す（-n相当）。
func NewNameResolver(enabled bool) *NameResolver {
	return &NameResolver{
		enabled: enabled,
		cache:   map[string]string{},
	}
}

// Resolve はIPアドレスの逆引き名を返す。未解決は空文字列。
func (n *NameResolver) Resolve(ip net.IP) string {
	if !n.enabled {
		return ""
	}
	key := ip.String()

	n.mu.Lock()
	name, ok := n.cache[key]
	n.mu.Unlock()
	if ok {
		return name
	}

	names, err := net.LookupAddr(key)
	name = ""
	if err == nil && len(names) > 0 {
		name = names[0]
	}

	n.mu.Lock()
	n.cache[key] = name
	n.mu.Unlock()
	return name
}
