package store

import (
	"context"

	"github.com/oyaguma3/radius-dispatcher-poc/pkg/model"
)

// ClientStore はRADIUSクライアントデータへのアクセスを定義する。
type ClientStore interface {
	// GetClient は指定されたIPのクライアント情報を取得する。
	// 未登録の場合はnilとnilを返す。
	GetClient(ctx context.Context, ip string) (*model.RadiusClient, error)
}

// SubscriberStore は加入者データへのアクセスを定義する。
type SubscriberStore interface {
	// GetSubscriber は指定されたユーザー名の加入者情報を取得する。
	// 未登録の場合はnilとnilを返す。
	GetSubscriber(ctx context.Context, userName string) (*model.Subscriber, error)
}
