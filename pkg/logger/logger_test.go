package logger

import (
	"path/filepath"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "default config",
			config: *DefaultConfig(),
		},
		{
			name:   "debug config",
			config: *DebugConfig(),
		},
		{
			name:   "json to stdout",
			config: Config{Level: InfoLevel, Format: JSONFormat, Output: StdoutOutput},
		},
		{
			name:   "file output with path",
			config: Config{Level: InfoLevel, Format: TextFormat, Output: FileOutput, File: "/tmp/importer.log"},
		},
		{
			name:    "file output without path",
			config:  Config{Level: InfoLevel, Format: TextFormat, Output: FileOutput},
			wantErr: true,
		},
		{
			name:    "invalid level",
			config:  Config{Level: "trace", Format: TextFormat, Output: StderrOutput},
			wantErr: true,
		},
		{
			name:    "invalid format",
			config:  Config{Level: InfoLevel, Format: "xml", Output: StderrOutput},
			wantErr: true,
		},
		{
			name:    "invalid output",
			config:  Config{Level: InfoLevel, Format: TextFormat, Output: "syslog"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	log, err := NewLogger(&Config{Level: DebugLevel, Format: JSONFormat, Output: StderrOutput})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if log == nil {
		t.Fatal("NewLogger() returned nil logger")
	}
}

func TestNewLoggerNilConfigUsesDefaults(t *testing.T) {
	log, err := NewLogger(nil)
	if err != nil {
		t.Fatalf("NewLogger(nil) error = %v", err)
	}
	if log == nil {
		t.Fatal("NewLogger(nil) returned nil logger")
	}
}

func TestNewLoggerInvalidConfig(t *testing.T) {
	if _, err := NewLogger(&Config{Level: "loud", Format: TextFormat, Output: StderrOutput}); err == nil {
		t.Error("NewLogger() with invalid level should fail")
	}
}

func TestNewLoggerFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "importer.log")
	log, err := NewLogger(&Config{Level: InfoLevel, Format: TextFormat, Output: FileOutput, File: path})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	log.Info("file output check")
}

func TestWithComponent(t *testing.T) {
	log, err := NewLogger(DefaultConfig())
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	child := log.WithComponent("report_parser")
	if child == nil {
		t.Fatal("WithComponent() returned nil")
	}
	if child == log {
		t.Error("WithComponent() should return a derived logger")
	}
}

func TestGlobalLogger(t *testing.T) {
	original := GetGlobalLogger()
	defer SetGlobalLogger(original)

	replacement, err := NewLogger(DebugConfig())
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	SetGlobalLogger(replacement)

	if GetGlobalLogger() != replacement {
		t.Error("GetGlobalLogger() did not return the logger set by SetGlobalLogger()")
	}
}
