package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chess10kp/obs-indicator/internal/config"
	"github.com/chess10kp/obs-indicator/internal/core"
)

const pidFile = "/tmp/obs-indicator.pid"

var configPath string

var rootCmd = &cobra.Command{
	Use:           "obs-indicator",
	Short:         "Show OBS recording and streaming state in a screen corner",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runDaemon,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "path to config.toml")
}

// ensureSingleInstance replaces a previous instance that is still running
func ensureSingleInstance() error {
	if data, err := os.ReadFile(pidFile); err == nil {
		if pid, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil && pid != os.Getpid() {
			process, err := os.FindProcess(pid)
			if err == nil {
				if err := process.Signal(syscall.Signal(0)); err == nil {
					process.Signal(syscall.SIGTERM)
				}
			}
		}
	}
	return os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0644)
}

func cleanup() {
	os.Remove(pidFile)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadAndValidateConfig(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		cfg = config.Default()
	}

	if cfg.LogFile != "" {
		logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			log.SetOutput(logFile)
			defer logFile.Close()
		} else {
			log.Printf("Failed to open log file: %v", err)
		}
	}
	if cfg.Debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	if err := ensureSingleInstance(); err != nil {
		return fmt.Errorf("failed to ensure single instance: %w", err)
	}
	defer cleanup()

	app, err := core.NewApp(cfg, configPath)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	return app.Run()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}
