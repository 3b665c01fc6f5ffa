package mqtt

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nerrad567/gray-logic-relay/internal/infrastructure/config"
)

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:           "127.0.0.1",
			Port:           1883,
			KeepAlive:      30,
			ClientIDPrefix: "relay-test",
		},
	}
}

func TestBuildClientOptions_Plain(t *testing.T) {
	opts, err := buildClientOptions(testConfig(), "pub")
	if err != nil {
		t.Fatalf("buildClientOptions() error = %v", err)
	}

	if len(opts.Servers) != 1 {
		t.Fatalf("Servers = %v, want one broker", opts.Servers)
	}
	if got := opts.Servers[0].String(); got != "tcp://127.0.0.1:1883" {
		t.Errorf("broker URL = %q, want %q", got, "tcp://127.0.0.1:1883")
	}
	if !strings.HasPrefix(opts.ClientID, "relay-test-pub-") {
		t.Errorf("ClientID = %q, want relay-test-pub- prefix", opts.ClientID)
	}
	if opts.AutoReconnect {
		t.Error("AutoReconnect should be disabled for one-shot connections")
	}
	if !opts.CleanSession {
		t.Error("CleanSession should be enabled")
	}
	if opts.KeepAlive != 30 {
		t.Errorf("KeepAlive = %d, want 30", opts.KeepAlive)
	}
	if opts.TLSConfig != nil {
		t.Error("TLSConfig should be nil when TLS is disabled")
	}
}

func TestBuildClientOptions_Auth(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.MQTTAuthConfig{Username: "relay", Password: "secret"}

	opts, err := buildClientOptions(cfg, "sub")
	if err != nil {
		t.Fatalf("buildClientOptions() error = %v", err)
	}
	if opts.Username != "relay" || opts.Password != "secret" {
		t.Errorf("credentials = %q/%q, want relay/secret", opts.Username, opts.Password)
	}
}

func TestBuildClientOptions_DefaultKeepAlive(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.KeepAlive = 0

	opts, err := buildClientOptions(cfg, "pub")
	if err != nil {
		t.Fatalf("buildClientOptions() error = %v", err)
	}
	if opts.KeepAlive != int64(defaultKeepAlive.Seconds()) {
		t.Errorf("KeepAlive = %d, want %v", opts.KeepAlive, defaultKeepAlive)
	}
}

func TestBuildClientOptions_TLSWithoutFiles(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 8883
	cfg.TLS.Enabled = true

	opts, err := buildClientOptions(cfg, "pub")
	if err != nil {
		t.Fatalf("buildClientOptions() error = %v", err)
	}
	if got := opts.Servers[0].String(); got != "ssl://127.0.0.1:8883" {
		t.Errorf("broker URL = %q, want ssl scheme", got)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Errorf("TLSConfig = %+v, want MinVersion TLS 1.2", opts.TLSConfig)
	}
}

func TestBuildTLSConfig_Errors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.pem")
	if err := os.WriteFile(garbage, []byte("not a certificate"), 0600); err != nil {
		t.Fatalf("writing garbage file: %v", err)
	}

	tests := []struct {
		name string
		cfg  config.MQTTTLSConfig
	}{
		{"missing CA file", config.MQTTTLSConfig{Enabled: true, CAFile: filepath.Join(dir, "missing.crt")}},
		{"CA without certificates", config.MQTTTLSConfig{Enabled: true, CAFile: garbage}},
		{"bad client key pair", config.MQTTTLSConfig{Enabled: true, CertFile: garbage, KeyFile: garbage}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildTLSConfig(tt.cfg)
			if !errors.Is(err, ErrTLSConfig) {
				t.Errorf("buildTLSConfig() error = %v, want ErrTLSConfig", err)
			}
		})
	}
}

func TestNewClientID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id := newClientID("", "pub")
		if !strings.HasPrefix(id, "relay-pub-") {
			t.Fatalf("newClientID() = %q, want relay-pub- prefix", id)
		}
		if seen[id] {
			t.Fatalf("newClientID() returned duplicate %q", id)
		}
		seen[id] = true
	}
}
