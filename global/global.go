// Package global holds the process-lifetime singletons wired once at
// startup (config, logger, viper, db handle) and read from everywhere
// else.
package global

import (
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sunerpy/indexproxy/config"
)

var (
	GlobalCfg    *config.Config
	GlobalLogger *zap.Logger
	GlobalDB     *gorm.DB
	GlobalDirCfg *config.DirConf
	GlobalViper  *viper.Viper
)

// GetGlobalConfig returns the process-wide config, set once during startup.
func GetGlobalConfig() *config.Config {
	return GlobalCfg
}

// InitLogger sets the process-wide logger. Safe to call with zap.NewNop()
// in tests that don't care about log output.
func InitLogger(lg *zap.Logger) {
	GlobalLogger = lg
}

// GetLogger returns the process-wide logger, falling back to a no-op
// logger if InitLogger was never called (e.g. in unit tests).
func GetLogger() *zap.Logger {
	if GlobalLogger == nil {
		return zap.NewNop()
	}
	return GlobalLogger
}

// GetSlogger returns the sugared form of GetLogger, for call sites that
// prefer printf-style logging.
func GetSlogger() *zap.SugaredLogger {
	return GetLogger().Sugar()
}
