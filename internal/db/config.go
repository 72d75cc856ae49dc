package db

import (
	"fmt"
	"strings"

	"emochat-backend/internal/common"
	"emochat-backend/internal/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

type Config struct {
	Driver       string `yaml:"driver"`
	DSN          string `yaml:"dsn"` // sqlite 时为文件路径
	MaxOpenConns int    `yaml:"max_open_conns"`
}

func DefaultConfig() Config {
	return Config{
		Driver:       DriverSQLite,
		DSN:          "db/chat.db",
		MaxOpenConns: 10,
	}
}

// ApplyEnv 环境变量覆盖，兼容旧的 MYSQL_DSN
func (c *Config) ApplyEnv() error {
	var legacy string
	common.EnvString("MYSQL_DSN", &legacy)
	if legacy != "" {
		c.Driver, c.DSN = DriverMySQL, legacy
	}
	common.EnvString("DB_DRIVER", &c.Driver)
	common.EnvString("DB_DSN", &c.DSN)
	return common.EnvInt("DB_MAX_OPEN_CONNS", &c.MaxOpenConns)
}

func (c Config) Validate() error {
	switch strings.ToLower(c.Driver) {
	case DriverSQLite, DriverMySQL, DriverPostgres:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedDriver, c.Driver)
	}
	if strings.TrimSpace(c.DSN) == "" {
		return fmt.Errorf("DB_DSN is empty for driver %s", c.Driver)
	}
	return nil
}

func (c Config) Print(log *logger.Logger) {
	log.Info("database config", "driver", c.Driver, "dsn", maskDSN(c.DSN), "max_open_conns", c.MaxOpenConns)
}

// maskDSN 隐藏 user:password@ 部分
func maskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	if at < 0 {
		return dsn
	}
	prefix := ""
	if i := strings.Index(dsn, "://"); i >= 0 && i < at {
		prefix = dsn[:i+3]
	}
	return prefix + "***" + dsn[at:]
}
