package env

import (
	"github.com/thatsimonsguy/gate-remote/internal/config"
)

var (
	Cfg *config.Config
)
