package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeConfig writes content to a temporary config.yaml and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
socket:
  host: "0.0.0.0"
  port: 5050
  tls:
    enabled: false
mqtt:
  broker:
    host: "broker.local"
    port: 8883
    keep_alive: 30
  tls:
    enabled: true
    ca_file: "/etc/relay/ca.crt"
users:
  path: "/etc/relay/users.json"
database:
  path: "/tmp/relay.db"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Socket.Address() != "0.0.0.0:5050" {
		t.Errorf("Socket.Address() = %q, want %q", cfg.Socket.Address(), "0.0.0.0:5050")
	}
	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.local")
	}
	if got := cfg.MQTT.Broker.GetKeepAlive().Seconds(); got != 30 {
		t.Errorf("GetKeepAlive() = %v, want 30", got)
	}
	if !cfg.MQTT.TLS.Enabled || cfg.MQTT.TLS.CAFile != "/etc/relay/ca.crt" {
		t.Errorf("MQTT.TLS = %+v, want enabled with CA file", cfg.MQTT.TLS)
	}
	if cfg.Users.Path != "/etc/relay/users.json" {
		t.Errorf("Users.Path = %q, want %q", cfg.Users.Path, "/etc/relay/users.json")
	}

	// Values absent from the file keep their defaults.
	if cfg.Socket.MaxRequestSize != 1024 {
		t.Errorf("Socket.MaxRequestSize = %d, want 1024", cfg.Socket.MaxRequestSize)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
socket:
  port: 0
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Fatal("Load() expected validation error for socket.port 0, got nil")
	}
	if !strings.Contains(err.Error(), "socket.port") {
		t.Errorf("Load() error = %v, want mention of socket.port", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(_ *Config) {},
			wantErr: false,
		},
		{
			name:    "socket port too high",
			mutate:  func(c *Config) { c.Socket.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "zero request size",
			mutate:  func(c *Config) { c.Socket.MaxRequestSize = 0 },
			wantErr: true,
		},
		{
			name:    "socket TLS without key",
			mutate:  func(c *Config) { c.Socket.TLS = TLSConfig{Enabled: true, CertFile: "cert.pem"} },
			wantErr: true,
		},
		{
			name:    "missing broker host",
			mutate:  func(c *Config) { c.MQTT.Broker.Host = "" },
			wantErr: true,
		},
		{
			name:    "broker port zero",
			mutate:  func(c *Config) { c.MQTT.Broker.Port = 0 },
			wantErr: true,
		},
		{
			name:    "client cert without key",
			mutate:  func(c *Config) { c.MQTT.TLS.CertFile = "client.crt" },
			wantErr: true,
		},
		{
			name:    "missing users path",
			mutate:  func(c *Config) { c.Users.Path = "" },
			wantErr: true,
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: true,
		},
		{
			name:    "influxdb enabled without url",
			mutate:  func(c *Config) { c.InfluxDB = InfluxDBConfig{Enabled: true, Bucket: "relay"} },
			wantErr: true,
		},
		{
			name:    "api disabled ignores port",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: false,
		},
		{
			name: "api enabled with bad port",
			mutate: func(c *Config) {
				c.API.Enabled = true
				c.API.Port = 0
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	api := APIConfig{
		Timeouts: APITimeoutConfig{
			Read:  30,
			Write: 45,
			Idle:  60,
		},
	}

	if got := api.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}
	if got := api.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}
	if got := api.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}

	socket := SocketConfig{ReadTimeout: 7}
	if got := socket.GetReadTimeout().Seconds(); got != 7 {
		t.Errorf("SocketConfig.GetReadTimeout() = %v, want 7", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("RELAY_SOCKET_HOST", "0.0.0.0")
	t.Setenv("RELAY_MQTT_HOST", "mqtt.example.com")
	t.Setenv("RELAY_MQTT_USERNAME", "testuser")
	t.Setenv("RELAY_MQTT_PASSWORD", "testpass")
	t.Setenv("RELAY_USERS_PATH", "/custom/users.json")
	t.Setenv("RELAY_DATABASE_PATH", "/custom/path.db")
	t.Setenv("RELAY_INFLUXDB_TOKEN", "secret-token")

	applyEnvOverrides(cfg)

	checks := []struct {
		field string
		got   string
		want  string
	}{
		{"Socket.Host", cfg.Socket.Host, "0.0.0.0"},
		{"MQTT.Broker.Host", cfg.MQTT.Broker.Host, "mqtt.example.com"},
		{"MQTT.Auth.Username", cfg.MQTT.Auth.Username, "testuser"},
		{"MQTT.Auth.Password", cfg.MQTT.Auth.Password, "testpass"},
		{"Users.Path", cfg.Users.Path, "/custom/users.json"},
		{"Database.Path", cfg.Database.Path, "/custom/path.db"},
		{"InfluxDB.Token", cfg.InfluxDB.Token, "secret-token"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.field, c.got, c.want)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Socket.Port != 5000 {
		t.Errorf("defaultConfig Socket.Port = %d, want 5000", cfg.Socket.Port)
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.MQTT.Broker.KeepAlive != 60 {
		t.Errorf("defaultConfig MQTT.Broker.KeepAlive = %d, want 60", cfg.MQTT.Broker.KeepAlive)
	}
	if cfg.API.Enabled {
		t.Error("defaultConfig should have the status API disabled")
	}
}
