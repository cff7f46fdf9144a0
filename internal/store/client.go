// Package store はValkeyへのデータアクセスを提供する。
package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/oyaguma3/radius-dispatcher-poc/pkg/apperr"
	"github.com/oyaguma3/radius-dispatcher-poc/pkg/model"
)

// clientStore はClientStoreインターフェースのValkey実装。
type clientStore struct {
	rc *redis.Client
}

// NewClientStore は新しいClientStoreを生成する。
func NewClientStore(rc *redis.Client) ClientStore {
	return &clientStore{rc: rc}
}

// GetClient は指定されたIPのクライアント情報を取得する。
func (s *clientStore) GetClient(ctx context.Context, ip string) (*model.RadiusClient, error) {
	key := KeyPrefixClient + ip
	result, err := s.rc.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrValkeyUnavailable, err)
	}

	// キーが存在しない場合、HGetAllは空mapを返す
	if len(result) == 0 {
		return nil, nil
	}

	policy := model.AuthPolicy(result["policy"])
	if policy != model.PolicyDeny {
		policy = model.PolicyAllow
	}

	return &model.RadiusClient{
		IP:     ip,
		Secret: result["secret"],
		Name:   result["name"],
		Policy: policy,
	}, nil
}

// subscriberStore はSubscriberStoreインターフェースのValkey実装。
type subscriberStore struct {
	rc *redis.Client
}

// NewSubscriberStore は新しいSubscriberStoreを生成する。
func NewSubscriberStore(rc *redis.Client) SubscriberStore {
	return &subscriberStore{rc: rc}
}

// GetSubscriber は指定されたユーザー名の加入者情報を取得する。
func (s *subscriberStore) GetSubscriber(ctx context.Context, userName string) (*model.Subscriber, error) {
	key := KeyPrefixSubscriber + userName
	result, err := s.rc.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrValkeyUnavailable, err)
	}

	if len(result) == 0 {
		return nil, nil
	}

	vlanID := 0
	if v, ok := result["vlan_id"]; ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			vlanID = n
		}
	}

	return &model.Subscriber{
		UserName:  userName,
		Password:  result["password"],
		VlanID:    vlanID,
		CreatedAt: result["created_at"],
	}, nil
}
