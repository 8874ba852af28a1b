package telemetry

// Config holds the tracing configuration.
type Config struct {
	// Enabled turns tracing on.
	Enabled bool

	// ServiceName identifies this service in the trace backend.
	ServiceName string

	// ServiceVersion is the build version reported with every span.
	ServiceVersion string

	// Endpoint is the OTLP gRPC endpoint (e.g. "localhost:4317").
	Endpoint string

	// Insecure disables TLS on the exporter connection.
	Insecure bool

	// SampleRate is the fraction of traces to sample, 0.0 to 1.0.
	SampleRate float64
}

// DefaultConfig returns the configuration used when nothing is set:
// tracing off, local collector, sample everything.
func DefaultConfig() Config {
	return Config{
		Enabled:        false,
		ServiceName:    "parley",
		ServiceVersion: "dev",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SampleRate:     1.0,
	}
}
