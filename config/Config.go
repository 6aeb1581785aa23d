package config

import (
	"fmt"
	"time"

	"github.com/mohitkumar/flowcanvas/analytics"
)

type StorageType string

const STORAGE_TYPE_REDIS StorageType = "redis"
const STORAGE_TYPE_INMEM StorageType = "memory"
const STORAGE_TYPE_POSTGRES StorageType = "postgres"
const STORAGE_TYPE_SQLITE StorageType = "sqlite"

type Config struct {
	RedisConfig     RedisStorageConfig
	SqlConfig       SqlStorageConfig
	HttpPort        int
	StorageType     StorageType
	Partitions      int
	Lanes           int
	LaneCapacity    int
	SessionTTL      time.Duration
	AuditInterval   time.Duration
	LogLevel        string
	Development     bool
	AnalyticsConfig analytics.DataCollectorConfig
}

type RedisStorageConfig struct {
	Addrs     []string
	Namespace string
	Password  string
	PoolSize  int
}

type SqlStorageConfig struct {
	// Dsn is a postgres connection string, or a file path for sqlite.
	Dsn string
}

func (c Config) Validate() error {
	switch c.StorageType {
	case STORAGE_TYPE_INMEM:
	case STORAGE_TYPE_REDIS:
		if len(c.RedisConfig.Addrs) == 0 {
			return fmt.Errorf("redis storage needs at least one address")
		}
	case STORAGE_TYPE_POSTGRES, STORAGE_TYPE_SQLITE:
		if len(c.SqlConfig.Dsn) == 0 {
			return fmt.Errorf("%s storage needs a dsn", c.StorageType)
		}
	default:
		return fmt.Errorf("unknown storage implementation %q", c.StorageType)
	}
	if c.HttpPort < 0 {
		return fmt.Errorf("invalid http port %d", c.HttpPort)
	}
	return nil
}
