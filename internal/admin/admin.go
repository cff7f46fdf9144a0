// Package admin は管理・監視用HTTP APIを提供する。
package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oyaguma3/radius-dispatcher-poc/internal/request"
)

// healthResponse はヘルスチェックレスポンスを表す。
type healthResponse struct {
	Status string `json:"status"`
}

// statsResponse は統計APIのレスポンスを表す。
type statsResponse struct {
	Version string           `json:"version"`
	Stats   request.Snapshot `json:"stats"`
}

// NewRouter は管理APIのルーターを生成する。
func NewRouter(stats *request.Stats, version string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, healthResponse{Status: "ok"})
	})

	r.GET("/api/v1/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, statsResponse{
			Version: version,
			Stats:   stats.Snapshot(),
		})
	})

	return r
}

// Server は管理APIサーバーのラッパー。
type Server struct {
	hs *http.Server
}

// NewServer は新しい管理APIサーバーを生成する。
func NewServer(addr string, router *gin.Engine) *Server {
	return &Server{
		hs: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// ListenAndServe はHTTPサーバーを起動する。
func (s *Server) ListenAndServe() error {
	return s.hs.ListenAndServe()
}

// Shutdown はサーバーをグレースフルに停止する。
func (s *Server) Shutdown(ctx context.Context) error {
	return s.hs.Shutdown(ctx)
}
