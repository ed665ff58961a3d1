// FlashDB - A Redis-inspired persistent distributed KV store
//
// Configuration is read from command-line flags, environment variables
// prefixed FLASHDB_ (e.g. FLASHDB_ADDR=:7000), and an optional .env /
// .env.local file in the working directory, in that order of precedence,
// following the same cobra+viper+godotenv layering ValentinKolb-dKV's
// `serve` command uses.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/flashdb/flashdb/internal/config"
	"github.com/flashdb/flashdb/internal/engine"
	"github.com/flashdb/flashdb/internal/keyspace"
	"github.com/flashdb/flashdb/internal/logging"
	"github.com/flashdb/flashdb/internal/server"
	"github.com/flashdb/flashdb/internal/version"
	"github.com/flashdb/flashdb/internal/web"
)

var rootCmd = &cobra.Command{
	Use:     "flashdb",
	Short:   "FlashDB server",
	Long:    fmt.Sprintf("FlashDB v%s - a Redis-inspired persistent key-value store.", version.Version),
	PreRunE: bindFlags,
	RunE:    run,
}

func init() {
	cobra.OnInitialize(loadEnv)

	flags := rootCmd.PersistentFlags()
	flags.String("addr", ":6379", "server address")
	flags.String("data-dir", "data", "data directory")
	flags.String("web-addr", ":8080", "web UI & API address")
	flags.Bool("no-web", false, "disable the web UI")
	flags.String("requirepass", "", "password for AUTH")
	flags.String("api-token", "", "bearer token for web API authentication")
	flags.String("loglevel", "info", "log level: debug, info, warn, error")
	flags.Int("maxclients", 10000, "maximum number of clients")
	flags.Duration("timeout", 0, "client idle timeout (0 = no timeout)")
	flags.String("role", "primary", "replication role: primary, replica, active-replica")
	flags.Bool("cluster-enabled", false, "maintain the cluster hash-slot index")
	flags.String("maxmemory-policy", "lru", "eviction recency policy: lru, lfu")
	flags.Int("randomkey-tries", 100, "RANDOMKEY all-volatile retry budget")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print the version and exit",
	Run: func(*cobra.Command, []string) {
		fmt.Printf("FlashDB v%s (built %s)\n", version.Version, version.BuildTime)
	},
}

// loadEnv loads .env/.env.local into the process environment and wires
// viper's FLASHDB_-prefixed environment lookup, mirroring initConfig from
// ValentinKolb-dKV's cmd/serve/root.go.
func loadEnv() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
	viper.SetEnvPrefix("flashdb")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func bindFlags(cmd *cobra.Command, _ []string) error {
	return viper.BindPFlags(cmd.Flags())
}

func loadConfig() *config.Config {
	c := config.DefaultConfig()
	c.Addr = viper.GetString("addr")
	c.DataDir = viper.GetString("data-dir")
	c.WebAddr = viper.GetString("web-addr")
	c.NoWeb = viper.GetBool("no-web")
	c.RequirePass = viper.GetString("requirepass")
	c.APIToken = viper.GetString("api-token")
	c.LogLevel = viper.GetString("loglevel")
	c.MaxClients = viper.GetInt("maxclients")
	c.Timeout = viper.GetDuration("timeout")
	c.Engine.Role = viper.GetString("role")
	c.Engine.ClusterEnabled = viper.GetBool("cluster-enabled")
	c.Engine.EvictionPolicy = viper.GetString("maxmemory-policy")
	c.Engine.RandomKeyTries = viper.GetInt("randomkey-tries")
	return c
}

func run(*cobra.Command, []string) error {
	c := loadConfig()
	level := logging.ParseLevel(c.LogLevel)
	log := logging.New("cli", level)
	keyspace.SetLevel(level)
	engine.SetLevel(level)

	fmt.Println(`
  _____ _           _     ____  ____
 |  ___| | __ _ ___| |__ |  _ \| __ )
 | |_  | |/ _' / __| '_ \| | | |  _ \
 |  _| | | (_| \__ \ | | | |_| | |_) |
 |_|   |_|\__,_|___/_| |_|____/|____/
`)
	log.Info().Str("version", version.Version).Msg("flashdb starting")
	log.Info().Str("data_dir", c.DataDir).Str("role", c.Engine.Role).Msg("configuration loaded")
	if c.RequirePass != "" {
		log.Info().Msg("authentication enabled")
	}

	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	walPath := filepath.Join(c.DataDir, "flashdb.wal")

	e, err := engine.NewWithConfig(walPath, c.KeyspaceConfig())
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	defer e.Close()

	srvCfg := server.Config{
		Password:   c.RequirePass,
		MaxClients: c.MaxClients,
		Timeout:    c.Timeout,
		LogLevel:   c.LogLevel,
	}
	srv := server.NewWithConfig(c.Addr, e, srvCfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	if !c.NoWeb {
		log.Info().Str("addr", c.WebAddr).Msg("web UI available")
		webSrv := web.New(c.WebAddr, e)
		go func() {
			if err := webSrv.Start(ctx); err != nil {
				log.Error().Err(err).Msg("web server error")
			}
		}()
	}

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	log.Info().Msg("flashdb shutdown complete")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
