// Package core wires the process-lifetime singletons (viper, logger,
// database): a single InitViper/InitDB pair called once by the serve and
// mirror subcommands before they start serving.
package core

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"github.com/spf13/viper"
	glogger "gorm.io/gorm/logger"
	"gorm.io/gorm"
	"moul.io/zapgorm2"

	"github.com/sunerpy/indexproxy/config"
	"github.com/sunerpy/indexproxy/global"
	"github.com/sunerpy/indexproxy/ledger"
	"github.com/sunerpy/indexproxy/models"
)

const (
	configName = "config"
	dbFile     = "indexproxy.db"
)

// InitViper loads the toml config (from cfgFile, or $HOME/.indexproxy/config.toml)
// into global.GlobalCfg and sets up global.GlobalDirCfg.
func InitViper(cfgFile string) (*config.Config, error) {
	if global.GlobalViper == nil {
		global.GlobalViper = viper.New()
	}
	v := global.GlobalViper
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	global.GlobalDirCfg = &config.DirConf{HomeDir: home, WorkDir: filepath.Join(home, config.WorkDir)}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigType("toml")
		v.AddConfigPath(global.GlobalDirCfg.WorkDir)
		v.SetConfigName(configName)
	}
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg config.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Indexer.ApplyDefaults()
	if err := cfg.Indexer.Validate(); err != nil {
		return nil, fmt.Errorf("indexer config: %w", err)
	}
	if err := cfg.ValidateMirrors(); err != nil {
		return nil, fmt.Errorf("mirror config: %w", err)
	}
	global.GlobalCfg = &cfg
	return global.GlobalCfg, nil
}

// InitLogger builds the zap logger from the loaded config's [zap] section
// and stores it in global.GlobalLogger.
func InitLogger() error {
	zapCfg := config.DefaultZapConfig
	if global.GlobalCfg != nil && global.GlobalCfg.Zap.Level != "" {
		zapCfg = global.GlobalCfg.Zap
	}
	lg, err := zapCfg.InitLogger()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	global.InitLogger(lg)
	return nil
}

// InitDB opens (and auto-migrates) the sqlite database under
// $HOME/.indexproxy, routing gorm's own logging through the zap logger via
// zapgorm2.
func InitDB() (*gorm.DB, error) {
	dbDir := global.GlobalDirCfg.WorkDir
	if err := os.MkdirAll(dbDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}
	gormLg := zapgorm2.Logger{ZapLogger: global.GetLogger(), LogLevel: glogger.Warn, SlowThreshold: 0}
	db, err := gorm.Open(sqlite.Open("file:"+filepath.Join(dbDir, dbFile)), &gorm.Config{Logger: gormLg})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL;").Error; err != nil {
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if err := db.AutoMigrate(&models.ListItem{}, &models.RequestRecord{}); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}
	global.GlobalDB = db
	return db, nil
}

// NewTracker builds a ledger.Tracker bound to the process database.
func NewTracker(db *gorm.DB) *ledger.Tracker {
	return ledger.New(db, global.GetLogger())
}
