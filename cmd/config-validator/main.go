package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chess10kp/obs-indicator/internal/config"
	"github.com/chess10kp/obs-indicator/internal/indicator"
)

var strict bool

var rootCmd = &cobra.Command{
	Use:           "config-validator [path]",
	Short:         "Check an obs-indicator config file",
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runValidate,
}

func init() {
	rootCmd.Flags().BoolVar(&strict, "strict", false, "treat unrecognised appearance settings as errors")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := config.DefaultConfigPath
	if len(args) > 0 {
		configPath = args[0]
	}

	fmt.Printf("Validating config: %s\n", configPath)

	cfg, err := config.LoadAndValidateConfig(configPath)
	if err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	problems := indicator.Lint(cfg.Appearance)
	for _, p := range problems {
		fmt.Printf("⚠️  %s\n", p)
	}

	if len(problems) > 0 && strict {
		return fmt.Errorf("%d unrecognised appearance setting(s)", len(problems))
	}

	resolved := indicator.Resolve(cfg.Appearance)
	fmt.Printf("Size=%s RecordingColor=%s StreamingColor=%s Duration=%s\n",
		resolved.Size, resolved.RecordColor, resolved.StreamColor, resolved.Duration)

	fmt.Println("✅ Config is valid!")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
}
