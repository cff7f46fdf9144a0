package server

import (
	"fmt"
	"net"
	"os"

	"github.com/oyaguma3/radius-dispatcher-poc/internal/config"
)

// bindSockets は認証・アカウンティング・プロキシ（および有効時DHCP）の
// UDPソケットを束縛する。いずれかの失敗は致命的エラー。
func (s *Server) bindSockets() error {
	cfg := s.Config()

	var bindIP net.IP
	if cfg.BindAddr != "" {
		bindIP = net.ParseIP(cfg.BindAddr)
		if bindIP == nil {
			return fmt.Errorf("invalid bind address: %s", cfg.BindAddr)
		}
	}

	var err error
	s.authConn, err = bindUDP(bindIP, cfg.AuthPort)
	if err != nil {
		return fmt.Errorf("auth bind: %w", err)
	}

	s.acctConn, err = bindUDP(bindIP, cfg.AcctPort())
	if err != nil {
		return fmt.Errorf("acct bind: %w", err)
	}

	s.proxyConn, s.proxyPort, err = bindProxy(bindIP)
	if err != nil {
		return fmt.Errorf("proxy bind: %w", err)
	}

	if cfg.DHCPEnabled {
		s.dhcpConn, err = bindUDP(bindIP, cfg.DHCPPort)
		if err != nil {
			return fmt.Errorf("dhcp bind: %w", err)
		}
	}

	return nil
}

// closeSockets は束縛済みソケットをすべて閉じる。
func (s *Server) closeSockets() {
	for _, conn := range []*net.UDPConn{s.authConn, s.acctConn, s.proxyConn, s.dhcpConn} {
		if conn != nil {
			_ = conn.Close()
		}
	}
}

// bindUDP は指定アドレス・ポートのUDPソケットを束縛する。
func bindUDP(ip net.IP, port int) (*net.UDPConn, error) {
	return net.ListenUDP("udp4", &net.UDPAddr{IP: ip, Port: port})
}

// bindProxy はプロキシポートを探索して束縛する。
// 開始位置は (pid & 0x7fff) + 1024 の疑似乱択で、[1024, 64000) を
// 昇順に試す。
func bindProxy(ip net.IP) (*net.UDPConn, int, error) {
	start := (os.Getpid() & 0x7fff) + config.ProxyPortMin
	for port := start; port < config.ProxyPortMax; port++ {
		conn, err := bindUDP(ip, port)
		if err == nil {
			return conn, port, nil
		}
	}
	return nil, 0, fmt.Errorf("no proxy port available in [%d, %d)", start, config.ProxyPortMax)
}
