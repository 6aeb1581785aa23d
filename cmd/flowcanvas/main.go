package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mohitkumar/flowcanvas/agent"
	"github.com/mohitkumar/flowcanvas/analytics"
	"github.com/mohitkumar/flowcanvas/config"
	"github.com/mohitkumar/flowcanvas/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type cfg struct {
	config.Config
}
type cli struct {
	cfg cfg
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("config-file", "", "Path to config file.")
	cmd.Flags().Int("http-port", 8080, "http port for rest endpoints")
	cmd.Flags().String("storage-impl", "memory", "implementation of underline storage: memory, redis, postgres or sqlite")
	cmd.Flags().String("redis-addr", "localhost:6379", "comma separated list of redis host:port")
	cmd.Flags().String("redis-password", "", "redis password")
	cmd.Flags().Int("redis-pool-size", 0, "redis connection pool size, 0 for the client default")
	cmd.Flags().String("namespace", "flowcanvas", "namespace used in storage")
	cmd.Flags().String("postgres-dsn", "", "postgres connection string, or sqlite file with storage-impl sqlite")
	cmd.Flags().Int("partitions", 71, "number of partitions of the lane ring")
	cmd.Flags().Int("lanes", 4, "number of lanes executing workflow edits")
	cmd.Flags().Int("lane-capacity", 64, "queued edits per lane")
	cmd.Flags().Duration("session-ttl", 0, "idle time before a workflow session is dropped")
	cmd.Flags().Duration("audit-interval", 0, "integrity audit interval of open sessions, 0 disables it")
	cmd.Flags().String("log-level", "info", "log level")
	cmd.Flags().Bool("development", false, "human readable logs")
	cmd.Flags().String("analytics-file", "", "file receiving node edit events")
	return viper.BindPFlags(cmd.Flags())
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	var err error

	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return err
	}
	if len(configFile) > 0 {
		viper.SetConfigFile(configFile)
		if err = viper.ReadInConfig(); err != nil {
			// it's ok if config file doesn't exist
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return err
			}
		}
	}
	viper.SetEnvPrefix("FLOWCANVAS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	c.cfg.HttpPort = viper.GetInt("http-port")
	c.cfg.StorageType = config.StorageType(viper.GetString("storage-impl"))
	c.cfg.RedisConfig.Addrs = strings.Split(viper.GetString("redis-addr"), ",")
	c.cfg.RedisConfig.Password = viper.GetString("redis-password")
	c.cfg.RedisConfig.PoolSize = viper.GetInt("redis-pool-size")
	c.cfg.RedisConfig.Namespace = viper.GetString("namespace")
	c.cfg.SqlConfig.Dsn = viper.GetString("postgres-dsn")
	c.cfg.Partitions = viper.GetInt("partitions")
	c.cfg.Lanes = viper.GetInt("lanes")
	c.cfg.LaneCapacity = viper.GetInt("lane-capacity")
	c.cfg.SessionTTL = viper.GetDuration("session-ttl")
	c.cfg.AuditInterval = viper.GetDuration("audit-interval")
	c.cfg.LogLevel = viper.GetString("log-level")
	c.cfg.Development = viper.GetBool("development")
	if file := viper.GetString("analytics-file"); len(file) > 0 {
		c.cfg.AnalyticsConfig = analytics.DataCollectorConfig{
			FileName:      file,
			CollectorType: analytics.LOG_FILE_DATA_COLLECTOR,
		}
	}
	return logger.Init(c.cfg.LogLevel, c.cfg.Development)
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	defer logger.Sync()
	agent, err := agent.New(c.cfg.Config)
	if err != nil {
		return err
	}
	if err = agent.Start(); err != nil {
		return err
	}
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
	case <-agent.Done():
	}
	return agent.Shutdown()
}

func main() {
	cli := &cli{}

	cmd := &cobra.Command{
		Use:     "flowcanvas",
		Short:   "workflow canvas editing server",
		PreRunE: cli.setupConfig,
		RunE:    cli.run,
	}

	if err := setupFlags(cmd); err != nil {
		log.Fatal(err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
