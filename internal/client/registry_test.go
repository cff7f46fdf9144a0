package client

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/oyaguma3/radius-dispatcher-poc/internal/mocks"
	"github.com/oyaguma3/radius-dispatcher-poc/pkg/model"
)

func TestChainRegistryStaticFirst(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// 静的登録があればValkeyは参照しない
	mockCS := mocks.NewMockClientStore(ctrl)

	static := map[string]*model.RadiusClient{
		"10.0.0.1": model.NewRadiusClient("10.0.0.1", "static-secret", "nas-static", ""),
	}
	reg := NewChainRegistry(static, mockCS, "", nil)

	cl := reg.Find(context.Background(), net.ParseIP("10.0.0.1"))
	if cl == nil || cl.Secret != "static-secret" {
		t.Fatalf("client: got %+v", cl)
	}
}

func TestChainRegistryValkeyFallback(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCS := mocks.NewMockClientStore(ctrl)
	mockCS.EXPECT().GetClient(gomock.Any(), "10.0.0.2").
		Return(model.NewRadiusClient("10.0.0.2", "valkey-secret", "nas-vk", ""), nil)

	reg := NewChainRegistry(nil, mockCS, "", nil)

	cl := reg.Find(context.Background(), net.ParseIP("10.0.0.2"))
	if cl == nil || cl.Secret != "valkey-secret" {
		t.Fatalf("client: got %+v", cl)
	}
}

func TestChainRegistryFallbackSecret(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCS := mocks.NewMockClientStore(ctrl)
	mockCS.EXPECT().GetClient(gomock.Any(), "10.0.0.3").Return(nil, nil)

	reg := NewChainRegistry(nil, mockCS, "fallback-secret", nil)

	cl := reg.Find(context.Background(), net.ParseIP("10.0.0.3"))
	if cl == nil || cl.Secret != "fallback-secret" {
		t.Fatalf("client: got %+v", cl)
	}
}

func TestChainRegistryUnknown(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCS := mocks.NewMockClientStore(ctrl)
	mockCS.EXPECT().GetClient(gomock.Any(), "10.0.0.4").Return(nil, nil)

	reg := NewChainRegistry(nil, mockCS, "", nil)

	if cl := reg.Find(context.Background(), net.ParseIP("10.0.0.4")); cl != nil {
		t.Errorf("未登録クライアントはnilを返すべき: got %+v", cl)
	}
}

func TestChainRegistryValkeyError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCS := mocks.NewMockClientStore(ctrl)
	mockCS.EXPECT().GetClient(gomock.Any(), "10.0.0.5").
		Return(nil, errors.New("valkey unavailable"))

	// Valkeyエラー時はフォールバックシークレットへ
	reg := NewChainRegistry(nil, mockCS, "fallback", nil)
	cl := reg.Find(context.Background(), net.ParseIP("10.0.0.5"))
	if cl == nil || cl.Secret != "fallback" {
		t.Fatalf("client: got %+v", cl)
	}
}

func TestChainRegistryName(t *testing.T) {
	static := map[string]*model.RadiusClient{
		"10.0.0.1": model.NewRadiusClient("10.0.0.1", "s", "nas-01", ""),
	}
	reg := NewChainRegistry(static, nil, "", NewNameResolver(false))

	if got := reg.Name(context.Background(), net.ParseIP("10.0.0.1")); got != "nas-01" {
		t.Errorf("Name: got %q, want nas-01", got)
	}
	// 未登録かつ逆引き無効はIPのまま
	if got := reg.Name(context.Background(), net.ParseIP("10.9.9.9")); got != "10.9.9.9" {
		t.Errorf("Name: got %q, want 10.9.9.9", got)
	}
}

func TestLoadClientsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clients.json")

	content := `{
  "clients": [
    {"ip": "10.0.0.1", "secret": "s1", "name": "nas-01"},
    {"ip": "10.0.0.2", "secret": "s2", "name": "nas-02", "policy": "deny"}
  ]
}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	clients, err := LoadClientsFile(path)
	if err != nil {
		t.Fatalf("LoadClientsFile: %v", err)
	}
	if len(clients) != 2 {
		t.Fatalf("clients: got %d, want 2", len(clients))
	}
	if clients["10.0.0.1"].Policy != model.PolicyAllow {
		t.Errorf("policy省略時はallow: got %v", clients["10.0.0.1"].Policy)
	}
	if clients["10.0.0.2"].Policy != model.PolicyDeny {
		t.Errorf("policy: got %v, want deny", clients["10.0.0.2"].Policy)
	}
}

func TestLoadClientsFileMissing(t *testing.T) {
	clients, err := LoadClientsFile(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("存在しないファイルはエラーにしない: %v", err)
	}
	if len(clients) != 0 {
		t.Errorf("clients: got %d, want 0", len(clients))
	}
}

func TestLoadClientsFileInvalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"JSON構文エラー", `{"clients": [`},
		{"secret欠落", `{"clients": [{"ip": "10.0.0.1"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "bad.json")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadClientsFile(path); err == nil {
				t.Error("LoadClientsFile: エラーになるべき")
			}
		})
	}
}
