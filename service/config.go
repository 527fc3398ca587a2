package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config bounds one node's runtime surface: which network it follows,
// where it persists state, which address it listens on, and which peers
// it dials at startup. Grounded on the teacher's node.Config /
// node.DefaultConfig (flag-parsed struct + functional defaults), extended
// with a metrics bind address per SPEC_FULL.md's ambient-stack metrics
// section.
type Config struct {
	Network     string
	DataDir     string
	BindAddr    string
	MetricsAddr string
	LogLevel    string
	Peers       []string
	MaxPeers    int

	MempoolMaintenanceInterval time.Duration
}

var allowedLogLevels = map[string]struct{}{
	"debug": {}, "info": {}, "warn": {}, "error": {},
}

// DefaultDataDir mirrors the teacher's DefaultDataDir fallback-to-literal
// behavior when the OS can't report a home directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".tari-basenode"
	}
	return filepath.Join(home, ".tari-basenode")
}

func DefaultConfig() Config {
	return Config{
		Network:                    "devnet",
		DataDir:                    DefaultDataDir(),
		BindAddr:                   "0.0.0.0:18189",
		MetricsAddr:                "127.0.0.1:9100",
		LogLevel:                   "info",
		MaxPeers:                   64,
		MempoolMaintenanceInterval: 30 * time.Second,
	}
}

// ChainDBPath is where the Store opens its bbolt file under cfg.DataDir.
func (c Config) ChainDBPath() string {
	return filepath.Join(c.DataDir, "chain.db")
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Network) == "" {
		return fmt.Errorf("service: network is required")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("service: data_dir is required")
	}
	if _, ok := allowedLogLevels[strings.ToLower(cfg.LogLevel)]; !ok {
		return fmt.Errorf("service: invalid log_level %q", cfg.LogLevel)
	}
	if cfg.MaxPeers < 0 {
		return fmt.Errorf("service: max_peers must be >= 0")
	}
	return nil
}

// NormalizePeers dedupes and trims a set of comma-joined peer-address
// tokens, the way the teacher's node.NormalizePeers does for its -peers/
// -peer flag combination.
func NormalizePeers(raw ...string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, token := range raw {
		for _, p := range strings.Split(token, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}
