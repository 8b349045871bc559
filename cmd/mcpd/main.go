// Command mcpd is the agent kernel daemon: start runs the kernel and
// hardware manager until a termination signal arrives, stats prints current
// sampled resource usage, and benchmark samples for a fixed duration and
// prints a WITHIN/EXCEEDED verdict.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aegis-kernel/mcpkernel/infrastructure/logging"
	"github.com/aegis-kernel/mcpkernel/infrastructure/metrics"
	"github.com/aegis-kernel/mcpkernel/internal/alerting"
	"github.com/aegis-kernel/mcpkernel/internal/config"
	"github.com/aegis-kernel/mcpkernel/internal/ethics"
	"github.com/aegis-kernel/mcpkernel/internal/hardware"
	"github.com/aegis-kernel/mcpkernel/internal/kernel"
	"github.com/aegis-kernel/mcpkernel/internal/pluginhost"
	"github.com/aegis-kernel/mcpkernel/internal/storage"
	"github.com/aegis-kernel/mcpkernel/internal/trace"

	"github.com/go-redis/redis/v8"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: mcpd <start|stats|benchmark> [flags]")
		os.Exit(2)
	}

	sub := os.Args[1]
	args := os.Args[2:]

	var err error
	switch sub {
	case "start":
		err = runStart(args)
	case "stats":
		err = runStats(args)
	case "benchmark":
		err = runBenchmark(args)
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", sub)
		os.Exit(2)
	}

	if err != nil {
		log.Printf("mcpd %s: %v", sub, err)
		os.Exit(1)
	}
}

func loadConfig(args []string, fsName string) (config.Config, error) {
	fs := flag.NewFlagSet(fsName, flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML configuration file")
	fs.Parse(args)
	return config.Load(*configPath)
}

func buildKernel(cfg config.Config, log *logging.Logger) (*kernel.Kernel, *hardware.Manager, *alerting.Manager, error) {
	tree := ethics.New()
	host := pluginhost.New(cfg.PluginDirectory, log)

	var signer *trace.Signer
	if cfg.EnableZKProofs {
		s, err := trace.NewSigner()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("generate trace signer: %w", err)
		}
		signer = s
	}
	chain := trace.New(signer)

	var store storage.Store
	switch cfg.StorageBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		store = storage.NewRedisStoreWithLogger(client, "mcpkernel:agent:", log)
	default:
		fileStore, err := storage.NewFileStore(cfg.StorageDirectory)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open file store: %w", err)
		}
		store = fileStore
	}
	storage.Init(store)

	alertManager := alerting.NewManager()
	alertManager.Register(alerting.NewConsoleHandler(log, alerting.Warning))

	limits := hardware.Limits{CPUPercent: cfg.MaxCPUPercent, MemoryMB: float64(cfg.MaxMemoryMB)}
	hwManager := hardware.NewManager(limits, cfg.RefreshIntervalMS, cfg.AlertThreshold, alertManager)

	k := kernel.New(tree, host, chain, store, log)
	return k, hwManager, alertManager, nil
}

func runStart(args []string) error {
	cfg, err := loadConfig(args, "start")
	if err != nil {
		return err
	}

	log := logging.New("mcpkernel", cfg.LogLevel, cfg.LogFormat)
	if cfg.EnableDetailedMetrics {
		metrics.Init("mcpkernel")
	}

	k, hwManager, _, err := buildKernel(cfg, log)
	if err != nil {
		return err
	}

	if err := hwManager.Start(cfg.RefreshIntervalMS); err != nil {
		return fmt.Errorf("start hardware manager: %w", err)
	}

	log.Info(context.Background(), "mcpd started", map[string]interface{}{
		"plugin_directory":  cfg.PluginDirectory,
		"storage_directory": cfg.StorageDirectory,
		"storage_backend":   cfg.StorageBackend,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info(context.Background(), "shutting down", nil)
	hwManager.Stop()
	k.Shutdown()
	return nil
}

func runStats(args []string) error {
	cfg, err := loadConfig(args, "stats")
	if err != nil {
		return err
	}

	log := logging.New("mcpkernel", cfg.LogLevel, cfg.LogFormat)
	_, hwManager, _, err := buildKernel(cfg, log)
	if err != nil {
		return err
	}

	if err := hwManager.Start(cfg.RefreshIntervalMS); err != nil {
		return fmt.Errorf("start hardware manager: %w", err)
	}
	time.Sleep(time.Duration(cfg.RefreshIntervalMS) * time.Millisecond * 2)
	hwManager.Stop()

	stats := hwManager.Stats()
	fmt.Printf("cpu_percent=%.2f memory_mb=%.2f\n", stats.CPUPercent, stats.MemoryMB)
	return nil
}

func runBenchmark(args []string) error {
	fs := flag.NewFlagSet("benchmark", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML configuration file")
	duration := fs.Duration("duration", 10*time.Second, "how long to sample before reporting a verdict")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	log := logging.New("mcpkernel", cfg.LogLevel, cfg.LogFormat)
	_, hwManager, _, err := buildKernel(cfg, log)
	if err != nil {
		return err
	}

	if err := hwManager.Start(cfg.RefreshIntervalMS); err != nil {
		return fmt.Errorf("start hardware manager: %w", err)
	}

	deadline := time.Now().Add(*duration)
	interval := time.Duration(cfg.RefreshIntervalMS) * time.Millisecond
	exceeded := false
	for time.Now().Before(deadline) {
		time.Sleep(interval)
		stats := hwManager.Stats()
		verdict := "WITHIN"
		if stats.CPUPercent > cfg.MaxCPUPercent || stats.MemoryMB > cfg.MaxMemoryMB {
			verdict = "EXCEEDED"
			exceeded = true
		}
		fmt.Printf("cpu_percent=%.2f memory_mb=%.2f verdict=%s\n", stats.CPUPercent, stats.MemoryMB, verdict)
	}
	hwManager.Stop()

	if exceeded {
		fmt.Println("summary=EXCEEDED")
	} else {
		fmt.Println("summary=WITHIN")
	}
	return nil
}
