package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/chess10kp/obs-indicator/internal/config"
	"github.com/chess10kp/obs-indicator/internal/indicator"
)

const dialTimeout = 2 * time.Second

var socketPath string

var rootCmd = &cobra.Command{
	Use:           "indicator-client",
	Short:         "Send host events and settings to a running obs-indicator",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var eventCmd = &cobra.Command{
	Use:       "event <name>",
	Short:     "Report a host event",
	Long:      "Report a host event. Known events: " + strings.Join(indicator.HostEventNames(), ", "),
	Args:      cobra.ExactArgs(1),
	ValidArgs: indicator.HostEventNames(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return send(cmd, "event "+args[0])
	},
}

var setCmd = &cobra.Command{
	Use:   "set <Key>=<Value>",
	Short: "Change one appearance setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !strings.Contains(args[0], "=") {
			return fmt.Errorf("expected Key=Value, got %q", args[0])
		}
		return send(cmd, "set "+args[0])
	},
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Re-read the daemon's config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return send(cmd, "reload")
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print whether the indicator engine is running",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return send(cmd, "status")
	},
}

func init() {
	defaultSocket := os.Getenv("OBS_INDICATOR_SOCKET")
	if defaultSocket == "" {
		defaultSocket = config.DefaultConfig.SocketPath
	}
	rootCmd.PersistentFlags().StringVarP(&socketPath, "socket", "s", defaultSocket, "daemon socket path")

	rootCmd.AddCommand(eventCmd)
	rootCmd.AddCommand(reloadCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(statusCmd)
}

func send(cmd *cobra.Command, message string) error {
	conn, err := net.DialTimeout("unix", socketPath, dialTimeout)
	if err != nil {
		return fmt.Errorf("failed to connect to indicator socket: %w", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(dialTimeout))

	if _, err := fmt.Fprintln(conn, message); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read reply: %w", err)
	}
	reply = strings.TrimSpace(reply)

	if msg, ok := strings.CutPrefix(reply, "error: "); ok {
		return fmt.Errorf("%s", msg)
	}

	fmt.Fprintln(cmd.OutOrStdout(), reply)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
