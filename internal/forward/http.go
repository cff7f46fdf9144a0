package forward

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/oyaguma3/radius-dispatcher-poc/internal/config"
	"github.com/oyaguma3/radius-dispatcher-poc/pkg/apperr"
)

// HTTPForwarder はアカウンティングレコードをHTTPコレクタへ転送する。
// 転送先障害時はサーキットブレーカーで切り離す。
type HTTPForwarder struct {
	httpClient *resty.Client
	cb         *gobreaker.CircuitBreaker
	baseURL    string
}

// NewHTTPForwarder は新しいHTTPForwarderを生成する。
func NewHTTPForwarder(baseURL string) *HTTPForwarder {
	httpClient := resty.New().
		SetTimeout(config.ForwardRequestTimeout)

	cbSettings := gobreaker.Settings{
		Name:        config.CBName,
		MaxRequests: config.CBMaxRequests,
		Interval:    config.CBInterval,
		Timeout:     config.CBTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(config.CBFailureThreshold)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			switch to {
			case gobreaker.StateOpen:
				slog.Warn("circuit breaker opened",
					"event_id", "CB_OPEN",
					"cb_name", name,
				)
			case gobreaker.StateHalfOpen:
				slog.Info("circuit breaker half-open",
					"event_id", "CB_HALF_OPEN",
					"cb_name", name,
				)
			case gobreaker.StateClosed:
				slog.Info("circuit breaker closed",
					"event_id", "CB_CLOSE",
					"cb_name", name,
				)
			}
		},
	}

	return &HTTPForwarder{
		httpClient: httpClient,
		cb:         gobreaker.NewCircuitBreaker(cbSettings),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Write はレコードをPOST /api/v1/acct へ転送する。
func (f *HTTPForwarder) Write(ctx context.Context, rec *Record) error {
	start := time.Now()

	result, err := f.cb.Execute(func() (any, error) {
		resp, err := f.httpClient.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetHeader("X-Trace-Id", rec.TraceID).
			SetBody(rec).
			Post(f.baseURL + "/api/v1/acct")

		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrForwardFailed, err)
		}

		latencyMs := time.Since(start).Milliseconds()
		statusCode := resp.StatusCode()

		if statusCode >= 500 {
			slog.Error("acct forward error",
				"event_id", "FORWARD_ERR",
				"http_status", statusCode,
				"latency_ms", latencyMs,
			)
			return nil, fmt.Errorf("%w: http status %d", apperr.ErrForwardFailed, statusCode)
		}
		if statusCode >= 300 {
			// 4xxは転送先の恒久エラー。ブレーカーの失敗カウントには
			// 含めず、呼び出し側にだけエラーを返す。
			return fmt.Errorf("%w: http status %d", apperr.ErrForwardFailed, statusCode), nil
		}

		slog.Debug("acct forward success", "latency_ms", latencyMs)
		return nil, nil
	})

	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return apperr.ErrForwardCircuitOpen
		}
		return err
	}
	// ブレーカー対象外のエラー（4xx）
	if resErr, ok := result.(error); ok {
		return resErr
	}
	return nil
}
