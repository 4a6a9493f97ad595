package logger_test

import (
	"testing"

	"sitegate/logger"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		level       string
		wantErr     bool
	}{
		{name: "Production json logger", environment: "production", level: "info"},
		{name: "Development console logger", environment: "development", level: "debug"},
		{name: "Unknown level fails", environment: "development", level: "chatty", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := logger.New(tt.environment, tt.level)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				defer log.Sync()
				if !log.Core().Enabled(log.Level()) {
					t.Errorf("configured level %v not enabled", log.Level())
				}
			}
		})
	}
}
