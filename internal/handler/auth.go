// Package handler は認証・アカウンティングの参照実装ハンドラを提供する。
// 本体のディスパッチャからはserver.HandlerFuncとして注入される。
// 認証バックエンドの差し替えはSubscriberStoreの実装で行う。
package handler

import (
	"context"
	"crypto/subtle"
	"log/slog"

	"layeh.com/radius"
	"layeh.com/radius/rfc2865"

	"github.com/oyaguma3/radius-dispatcher-poc/internal/client"
	radiuspkg "github.com/oyaguma3/radius-dispatcher-poc/internal/radius"
	"github.com/oyaguma3/radius-dispatcher-poc/internal/request"
	"github.com/oyaguma3/radius-dispatcher-poc/internal/server"
	"github.com/oyaguma3/radius-dispatcher-poc/internal/store"
	"github.com/oyaguma3/radius-dispatcher-poc/internal/wire"
	"github.com/oyaguma3/radius-dispatcher-poc/pkg/logging"
	"github.com/oyaguma3/radius-dispatcher-poc/pkg/model"
)

// AuthOptions は認証ハンドラの設定。
type AuthOptions struct {
	LogAuth     bool // 認証失敗を記録する
	LogAuthPass bool // パスワードを記録する（マスキング無効時のみ生値）
	Masker      *logging.Masker
}

// NewAuthenticator はPAP認証のハンドラを生成する。
// 加入者が未登録、パスワード不一致、クライアントポリシーがdenyの場合は
// Access-Rejectを返す。ストア障害時は応答しない（クライアントの再送に
// 委ねる）。
func NewAuthenticator(subs store.SubscriberStore, registry client.Registry, opts AuthOptions) server.HandlerFunc {
	return func(ctx context.Context, req *request.Request) {
		rp := req.Packet.Radius
		if rp == nil {
			return
		}

		userName, err := rfc2865.UserName_LookupString(rp)
		if err != nil {
			// 分類段で正規化済みのため通常は到達しない
			return
		}

		// クライアント単位のポリシー確認
		if cl := registry.Find(ctx, req.Packet.Src.IP); cl != nil && cl.Policy == model.PolicyDeny {
			logAuthResult(req, userName, "policy deny", opts)
			setReject(req, "administratively denied")
			return
		}

		sub, err := subs.GetSubscriber(ctx, userName)
		if err != nil {
			slog.Error("加入者ストア参照失敗",
				"event_id", "SUBSCRIBER_STORE_ERR",
				"trace_id", req.TraceID,
				"error", err,
			)
			return
		}
		if sub == nil {
			logAuthResult(req, userName, "unknown user", opts)
			setReject(req, "authentication failed")
			return
		}

		password, err := rfc2865.UserPassword_LookupString(rp)
		if err != nil {
			logAuthResult(req, userName, "no User-Password", opts)
			setReject(req, "authentication failed")
			return
		}

		if subtle.ConstantTimeCompare([]byte(password), []byte(sub.Password)) != 1 {
			if opts.LogAuthPass {
				slog.Info("認証失敗（パスワード不一致）",
					"event_id", "AUTH_FAIL",
					"trace_id", req.TraceID,
					"user_name", userName,
					"password", opts.Masker.Password(password),
				)
			} else {
				logAuthResult(req, userName, "bad password", opts)
			}
			setReject(req, "authentication failed")
			return
		}

		resp := radiuspkg.BuildResponse(rp, radius.CodeAccessAccept)
		radiuspkg.SetMessageAuthenticator(resp, req.Secret, rp.Authenticator)
		req.SetReply(&wire.Packet{
			Code:   wire.Code(resp.Code),
			ID:     req.Packet.ID,
			Radius: resp,
		})

		slog.Info("認証成功",
			"event_id", "AUTH_OK",
			"trace_id", req.TraceID,
			"user_name", userName,
		)
	}
}

// setReject はAccess-Reject応答を設定する。
func setReject(req *request.Request, message string) {
	resp := radiuspkg.BuildResponse(req.Packet.Radius, radius.CodeAccessReject)
	if message != "" {
		_ = rfc2865.ReplyMessage_SetString(resp, message)
	}
	radiuspkg.SetMessageAuthenticator(resp, req.Secret, req.Packet.Radius.Authenticator)
	req.SetReply(&wire.Packet{
		Code:   wire.Code(resp.Code),
		ID:     req.Packet.ID,
		Radius: resp,
	})
}

func logAuthResult(req *request.Request, userName, reason string, opts AuthOptions) {
	if !opts.LogAuth {
		return
	}
	slog.Info("認証失敗",
		"event_id", "AUTH_FAIL",
		"trace_id", req.TraceID,
		"user_name", userName,
		"reason", reason,
	)
}
