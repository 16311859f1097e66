package startup

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/gate-remote/internal/config"
	"github.com/thatsimonsguy/gate-remote/internal/env"
)

// UnitFile renders the systemd unit that runs the gate-remote daemon with
// the given config file.
func UnitFile(cfg *config.Config) (string, error) {
	configFile, err := filepath.Abs(cfg.ConfigFile)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	workdir := filepath.Dir(configFile)

	return fmt.Sprintf(`[Unit]
Description=Gate remote control service
Wants=network-online.target
After=network-online.target

[Service]
Type=simple
WorkingDirectory=%s
Environment=PATH=/usr/local/bin:/usr/bin:/bin
ExecStart=%s -config-file %s -log-level %s
Restart=on-failure
RestartSec=5s

[Install]
WantedBy=multi-user.target
`, workdir, cfg.BinaryPath, configFile, cfg.LogLevel.String()), nil
}

func InstallGateService() error {
	unit, err := UnitFile(env.Cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(env.Cfg.ServicePath), 0755); err != nil {
		return fmt.Errorf("create service directory: %w", err)
	}
	if err := os.WriteFile(env.Cfg.ServicePath, []byte(unit), 0644); err != nil {
		return fmt.Errorf("write service unit: %w", err)
	}

	log.Info().
		Str("path", env.Cfg.ServicePath).
		Str("binary", env.Cfg.BinaryPath).
		Msg("Installed gate-remote systemd unit")
	return nil
}
