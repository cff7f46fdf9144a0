package config

import (
	"flag"
	"fmt"
	"io"
)

// countFlag は繰り返し指定で加算されるフラグ（-x -x / -xx相当は不可、
// Goのflagは結合形式を持たないため -x を複数回指定する）。
type countFlag struct {
	n *int
}

func (c countFlag) String() string {
	if c.n == nil {
		return "0"
	}
	return fmt.Sprintf("%d", *c.n)
}

func (c countFlag) IsBoolFlag() bool { return true }

func (c countFlag) Set(string) error {
	*c.n++
	return nil
}

// ParseFlags はレガシーCLIフラグを解析し、cfgへ上書き適用する。
// 返り値はバージョン表示要求（-v）の有無。
func ParseFlags(cfg *Config, args []string, output io.Writer) (showVersion bool, err error) {
	fs := flag.NewFlagSet("radiusd", flag.ContinueOnError)
	fs.SetOutput(output)

	authDetail := fs.Bool("A", false, "Log auth detail.")
	acctDir := fs.String("a", "", "use accounting directory 'acct_dir'.")
	cachePasswd := fs.Bool("c", false, "Cache /etc/passwd, /etc/shadow, and /etc/group.")
	confDir := fs.String("d", "", "Use database directory 'db_dir'.")
	foreground := fs.Bool("f", false, "Run as a foreground process, not a daemon.")
	bindAddr := fs.String("i", "", "Listen only in the given IP address.")
	logDir := fs.String("l", "", "Log messages to 'log_dir'. Special values: stdout, syslog.")
	noDNS := fs.Bool("n", false, "Do not do DNS host name lookups.")
	authPort := fs.Int("p", 0, "Bind to 'port', and not to radius/udp.")
	single := fs.Bool("s", false, "Do not spawn child tasks to handle requests.")
	stripped := fs.Bool("S", false, "Log stripped names.")
	version := fs.Bool("v", false, "Print server version information.")
	debugAll := fs.Bool("X", false, "Turn on full debugging. (Means: -sfxxyz -l stdout)")
	logAuth := fs.Bool("y", false, "Log authentication failures.")
	logAuthPass := fs.Bool("z", false, "Log authentication passwords.")

	debug := 0
	fs.Var(countFlag{n: &debug}, "x", "Turn on partial debugging. (repeat for more)")

	if err := fs.Parse(args); err != nil {
		return false, err
	}

	if *version {
		return true, nil
	}

	if *authDetail {
		cfg.LogAuthDetail = true
	}
	if *acctDir != "" {
		cfg.AcctDir = *acctDir
	}
	if *cachePasswd {
		cfg.CachePasswd = true
	}
	if *confDir != "" {
		cfg.ConfDir = *confDir
	}
	if *foreground {
		cfg.Foreground = true
	}
	if *bindAddr != "" {
		cfg.BindAddr = *bindAddr
	}
	if *logDir != "" {
		cfg.LogDir = *logDir
	}
	if *noDNS {
		cfg.DisableDNS = true
	}
	if *authPort != 0 {
		cfg.AuthPort = *authPort
	}
	if *single {
		cfg.SpawnMode = false
	}
	if *stripped {
		cfg.LogStrippedName = true
	}
	if debug > 0 {
		cfg.DebugLevel += debug
	}
	if *logAuth {
		cfg.LogAuth = true
	}
	if *logAuthPass {
		cfg.LogAuthPass = true
		cfg.LogMaskPassword = false
	}

	// -X は -sfxxyz -l stdout の省略形
	if *debugAll {
		cfg.SpawnMode = false
		cfg.Foreground = true
		cfg.DebugLevel += 2
		cfg.LogAuth = true
		cfg.LogAuthPass = true
		cfg.LogMaskPassword = false
		cfg.LogDir = "stdout"
	}

	return false, cfg.Validate()
}
