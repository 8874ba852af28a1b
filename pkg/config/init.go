package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// sampleConfig is the commented configuration template written by InitConfig.
// Values match GetDefaultConfig so a freshly scaffolded file loads unchanged.
const sampleConfig = `# Parley Configuration File
#
# Configuration precedence (highest to lowest):
#   1. Environment variables (PARLEY_*, e.g. PARLEY_LOGGING_LEVEL=DEBUG)
#   2. This file
#   3. Built-in defaults

logging:
  # Minimum log level: DEBUG, INFO, WARN, ERROR
  level: INFO
  # Output format: text, json
  format: text
  # Where logs go: stdout, stderr, or a file path
  output: stdout

server:
  # Address to bind. Empty binds the wildcard address on IPv4 and IPv6.
  bind_address: ""
  # TCP port the chat server listens on
  port: 8080
  # Maximum concurrent sessions. Connections beyond this are refused.
  max_clients: 256
  # Greeting sent to every new connection
  greeting: "To set a name, do /nick <name>"
  # Per-frame write deadline; a client that cannot absorb a frame
  # within this window is disconnected
  write_timeout: 10s
  # Maximum time to wait for graceful shutdown
  shutdown_timeout: 30s
  metrics:
    # Prometheus metrics endpoint (GET /metrics)
    enabled: false
    port: 9090

telemetry:
  # OpenTelemetry tracing via OTLP gRPC
  enabled: false
  endpoint: localhost:4317
  insecure: true
  sample_rate: 1.0
  profiling:
    # Pyroscope continuous profiling
    enabled: false
    endpoint: "http://localhost:4040"
    profile_types: [cpu]
`

// InitConfig writes a commented sample configuration file to the default
// location ($XDG_CONFIG_HOME/parley/config.yaml).
//
// Returns the path the file was written to. Fails if a config already exists
// unless force is true.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a commented sample configuration file to the given
// path, creating parent directories as needed. Fails if the file already
// exists unless force is true.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
