package utils

import "go.uber.org/zap"

// NewLogger returns a zap logger tagged with the service name. Debug mode uses the
// development config (console, debug level); otherwise JSON at info level.
func NewLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.InitialFields = map[string]any{"service": "minutes"}
	return cfg.Build()
}
