package cli

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/Hooksend/internal/store"
)

type storeOptions struct {
	backend           string
	stateFile         string
	redisHost         string
	redisPort         int
	redisPassword     string
	redisDB           int
	redisCluster      bool
	redisClusterNodes []string
	redisPrefix       string
	redisDialTimeout  time.Duration
}

func defaultStoreOptions() storeOptions {
	def := store.DefaultConfig()
	return storeOptions{
		backend:          def.Backend,
		stateFile:        def.Path,
		redisHost:        def.Redis.Host,
		redisPort:        def.Redis.Port,
		redisPrefix:      def.Redis.Prefix,
		redisDialTimeout: def.Redis.DialTimeout,
	}
}

func (o *storeOptions) addFlags(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&o.backend, "store", o.backend, "state backend (memory, file, redis)")
	pf.StringVar(&o.stateFile, "state-file", o.stateFile, "state file for the file backend")
	pf.StringVar(&o.redisHost, "redis-host", o.redisHost, "redis host (or host:port)")
	pf.IntVar(&o.redisPort, "redis-port", o.redisPort, "redis port")
	pf.StringVar(&o.redisPassword, "redis-password", "", "redis password")
	pf.IntVar(&o.redisDB, "redis-db", 0, "redis database index")
	pf.BoolVar(&o.redisCluster, "redis-cluster", false, "enable redis cluster mode")
	pf.StringSliceVar(&o.redisClusterNodes, "redis-cluster-nodes", nil, "redis cluster nodes host:port list")
	pf.StringVar(&o.redisPrefix, "redis-prefix", o.redisPrefix, "key prefix for the redis backend")
	pf.DurationVar(&o.redisDialTimeout, "redis-dial-timeout", o.redisDialTimeout, "redis dial timeout")
}

// apply overrides cfg with every flag set on the command line. Flags left
// unset keep the configured value.
func (o *storeOptions) apply(cmd *cobra.Command, cfg *store.Config) error {
	if flagChanged(cmd, "store") {
		cfg.Backend = o.backend
	}
	if flagChanged(cmd, "state-file") {
		cfg.Path = o.stateFile
	}
	if flagChanged(cmd, "redis-host") {
		cfg.Redis.Host = o.redisHost
	}
	if flagChanged(cmd, "redis-port") {
		cfg.Redis.Port = o.redisPort
	}
	if flagChanged(cmd, "redis-password") {
		cfg.Redis.Password = o.redisPassword
	}
	if flagChanged(cmd, "redis-db") {
		cfg.Redis.DB = o.redisDB
	}
	if flagChanged(cmd, "redis-cluster") {
		cfg.Redis.Cluster = o.redisCluster
	}
	if flagChanged(cmd, "redis-cluster-nodes") {
		cfg.Redis.ClusterNodes = append([]string(nil), o.redisClusterNodes...)
	}
	if flagChanged(cmd, "redis-prefix") {
		cfg.Redis.Prefix = o.redisPrefix
	}
	if flagChanged(cmd, "redis-dial-timeout") {
		cfg.Redis.DialTimeout = o.redisDialTimeout
	}

	if cfg.Backend != store.BackendRedis || cfg.Redis.Cluster {
		return nil
	}
	host, port, err := normalizeRedisHostPort(cfg.Redis.Host, cfg.Redis.Port)
	if err != nil {
		return err
	}
	cfg.Redis.Host = host
	cfg.Redis.Port = port
	return nil
}

func normalizeRedisHostPort(host string, port int) (string, int, error) {
	if strings.Contains(host, ":") {
		h, p, err := net.SplitHostPort(host)
		if err != nil {
			return "", 0, fmt.Errorf("invalid --redis-host value %q: %w", host, err)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return "", 0, fmt.Errorf("invalid redis port in --redis-host %q: %w", host, err)
		}
		host = h
		port = n
	}

	if host == "" {
		return "", 0, fmt.Errorf("redis host cannot be empty")
	}
	if port <= 0 {
		return "", 0, fmt.Errorf("redis port must be positive, got %d", port)
	}

	return host, port, nil
}
