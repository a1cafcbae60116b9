package source

import (
	"errors"
	"testing"
	"time"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		wantErr   bool
		errorType error
	}{
		{
			name:    "valid config",
			config:  Config{URL: "redis://localhost:6379", Channels: []string{"rc"}},
			wantErr: false,
		},
		{
			name:      "empty URL",
			config:    Config{Channels: []string{"rc"}},
			wantErr:   true,
			errorType: ErrEmptyURL,
		},
		{
			name:      "no channels",
			config:    Config{URL: "redis://localhost:6379"},
			wantErr:   true,
			errorType: ErrNoChannels,
		},
		{
			name:    "empty channel name",
			config:  Config{URL: "redis://localhost:6379", Channels: []string{"rc", ""}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				if tt.errorType != nil && !errors.Is(err, tt.errorType) {
					t.Errorf("Expected error %v, got %v", tt.errorType, err)
				}
				return
			}
			if err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestConfig_SetDefaults(t *testing.T) {
	config := &Config{}
	config.SetDefaults()

	if config.BufferSize != 1024 {
		t.Errorf("Expected BufferSize 1024, got %d", config.BufferSize)
	}
	if config.PingTimeout != 5*time.Second {
		t.Errorf("Expected PingTimeout 5s, got %v", config.PingTimeout)
	}

	config = &Config{BufferSize: 7, PingTimeout: time.Second}
	config.SetDefaults()
	if config.BufferSize != 7 || config.PingTimeout != time.Second {
		t.Errorf("SetDefaults overwrote explicit values: %+v", config)
	}
}

func TestNewRedisSource_InvalidConfig(t *testing.T) {
	if _, err := NewRedisSource(nil); err == nil {
		t.Error("Expected error for nil config")
	}
	if _, err := NewRedisSource(&Config{Channels: []string{"rc"}}); !errors.Is(err, ErrEmptyURL) {
		t.Errorf("Expected ErrEmptyURL, got %v", err)
	}
	if _, err := NewRedisSource(&Config{URL: "not a url", Channels: []string{"rc"}}); err == nil {
		t.Error("Expected error for unparsable URL")
	}
}

func TestRedisSource_Name(t *testing.T) {
	src, err := NewRedisSource(&Config{URL: "redis://localhost:6379", Channels: []string{"rc", "wiki"}})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer src.Close()

	if src.Name() != "redis:rc,wiki" {
		t.Errorf("Expected name redis:rc,wiki, got %s", src.Name())
	}
}
