package commands

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/parley/internal/cli/output"
	"github.com/marmos91/parley/internal/protocol/chat"
	"github.com/marmos91/parley/pkg/config"
)

var (
	statusOutput  string
	statusPidFile string
	statusPort    int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Long: `Display the current status of the parley chat server.

This command checks the PID file for a live daemon process and probes
the chat port by reading the server greeting.

Examples:
  # Check status (uses default settings)
  parleyd status

  # Check status with custom chat port
  parleyd status --port 9000

  # Output as JSON
  parleyd status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/parley/parleyd.pid)")
	statusCmd.Flags().IntVar(&statusPort, "port", 0, "Chat port to probe (default: configured port)")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// ServerStatus represents the server status information.
type ServerStatus struct {
	Running   bool   `json:"running" yaml:"running"`
	PID       int    `json:"pid,omitempty" yaml:"pid,omitempty"`
	Port      int    `json:"port" yaml:"port"`
	Reachable bool   `json:"reachable" yaml:"reachable"`
	Greeting  string `json:"greeting,omitempty" yaml:"greeting,omitempty"`
	Message   string `json:"message" yaml:"message"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	port := statusPort
	if port == 0 {
		cfg, err := config.MustLoad(GetConfigFile())
		if err != nil {
			return err
		}
		port = cfg.Server.Port
	}

	status := ServerStatus{
		Port:    port,
		Message: "Server is not running",
	}

	pidPath := statusPidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	// Check PID file first
	if pidData, err := os.ReadFile(pidPath); err == nil {
		if pid, err := strconv.Atoi(strings.TrimSpace(string(pidData))); err == nil {
			if process, err := os.FindProcess(pid); err == nil {
				// On Unix FindProcess always succeeds; signal 0 is the
				// actual liveness check.
				if err := process.Signal(syscall.Signal(0)); err == nil {
					status.Running = true
					status.PID = pid
				}
			}
		}
	}

	// Probe the chat port: a healthy server greets every connection.
	if greeting, ok := probeGreeting(port); ok {
		status.Running = true
		status.Reachable = true
		status.Greeting = greeting
		status.Message = "Server is running and accepting connections"
	} else if status.Running {
		status.Message = "Server process exists but the chat port is not responding"
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, status)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, status)
	default:
		printStatusTable(status)
	}

	return nil
}

// probeGreeting connects to the chat port and reads the greeting frame.
func probeGreeting(port int) (string, bool) {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("localhost:%d", port), 2*time.Second)
	if err != nil {
		return "", false
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	m, err := chat.ReadMessage(conn)
	if err != nil || m.Type != chat.Signal(chat.OpRegular) {
		return "", false
	}
	return string(m.Payload), true
}

func printStatusTable(status ServerStatus) {
	fmt.Println()
	fmt.Println("Parley Server Status")
	fmt.Println("====================")
	fmt.Println()

	if status.Running {
		if status.Reachable {
			fmt.Printf("  Status:     \033[32m● Running\033[0m\n")
		} else {
			fmt.Printf("  Status:     \033[33m● Running (unreachable)\033[0m\n")
		}
		if status.PID != 0 {
			fmt.Printf("  PID:        %d\n", status.PID)
		}
		fmt.Printf("  Chat port:  %d\n", status.Port)
		if status.Greeting != "" {
			fmt.Printf("  Greeting:   %s\n", status.Greeting)
		}
	} else {
		fmt.Printf("  Status:     \033[31m○ Stopped\033[0m\n")
	}

	fmt.Println()
	fmt.Printf("  %s\n", status.Message)
	fmt.Println()
}
