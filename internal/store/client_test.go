package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/oyaguma3/radius-dispatcher-poc/pkg/model"
)

func newTestValkey(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	return rc
}

func TestClientStoreGetClient(t *testing.T) {
	rc := newTestValkey(t)
	ctx := context.Background()

	rc.HSet(ctx, KeyPrefixClient+"192.168.1.100", map[string]any{
		"secret": "s3cret",
		"name":   "nas-01",
		"policy": "allow",
	})

	cs := NewClientStore(rc)

	cl, err := cs.GetClient(ctx, "192.168.1.100")
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if cl == nil {
		t.Fatal("client: got nil")
	}
	if cl.Secret != "s3cret" || cl.Name != "nas-01" || cl.Policy != model.PolicyAllow {
		t.Errorf("client: got %+v", cl)
	}
}

func TestClientStoreNotFound(t *testing.T) {
	rc := newTestValkey(t)

	cs := NewClientStore(rc)
	cl, err := cs.GetClient(context.Background(), "10.0.0.1")
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if cl != nil {
		t.Errorf("未登録IPはnilを返すべき: got %+v", cl)
	}
}

func TestClientStorePolicyDeny(t *testing.T) {
	rc := newTestValkey(t)
	ctx := context.Background()

	rc.HSet(ctx, KeyPrefixClient+"10.0.0.2", map[string]any{
		"secret": "s",
		"policy": "deny",
	})

	cs := NewClientStore(rc)
	cl, err := cs.GetClient(ctx, "10.0.0.2")
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if cl.Policy != model.PolicyDeny {
		t.Errorf("policy: got %v, want deny", cl.Policy)
	}
}

func TestSubscriberStoreGetSubscriber(t *testing.T) {
	rc := newTestValkey(t)
	ctx := context.Background()

	rc.HSet(ctx, KeyPrefixSubscriber+"alice", map[string]any{
		"password": "wonderland",
		"vlan_id":  "100",
	})

	ss := NewSubscriberStore(rc)

	sub, err := ss.GetSubscriber(ctx, "alice")
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if sub == nil {
		t.Fatal("subscriber: got nil")
	}
	if sub.Password != "wonderland" || sub.VlanID != 100 {
		t.Errorf("subscriber: got %+v", sub)
	}

	// 未登録
	missing, err := ss.GetSubscriber(ctx, "nobody")
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if missing != nil {
		t.Errorf("未登録ユーザーはnilを返すべき: got %+v", missing)
	}
}
