package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir(), quietLogger())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Store.Path != "sensorData" {
		t.Errorf("store.path = %q, want sensorData", cfg.Store.Path)
	}
	if len(cfg.Zones) != 2 {
		t.Fatalf("got %d zones, want 2", len(cfg.Zones))
	}
	if cfg.Zones[0].ID != "left" || len(cfg.Zones[0].Keys) != 3 || cfg.Zones[0].Keys[2] != "A1_3" {
		t.Errorf("left zone = %+v", cfg.Zones[0])
	}
	if cfg.Zones[1].ID != "right" || cfg.Zones[1].Keys[0] != "A2_1" {
		t.Errorf("right zone = %+v", cfg.Zones[1])
	}
	if cfg.Display.NotificationTTL != 2*time.Second {
		t.Errorf("notification_ttl = %v, want 2s", cfg.Display.NotificationTTL)
	}
	if cfg.MQTT.QoS != 1 {
		t.Errorf("qos = %d, want 1", cfg.MQTT.QoS)
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
mqtt:
  broker: broker.example.org
  port: 8883
  topic_prefix: lot7/
store:
  path: sensorData
zones:
  - id: north
    keys: [N1, N2]
  - id: south
    keys: [S1, S2, S3, S4]
display:
  notification_ttl: 5s
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MQTT_PORT", "1884")
	t.Setenv("DISPLAY_HEADLESS", "true")

	cfg, err := LoadConfig(dir, quietLogger())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.MQTT.Port != 1884 {
		t.Errorf("port = %d, want env override 1884", cfg.MQTT.Port)
	}
	if !cfg.Display.Headless {
		t.Error("headless should be set from environment")
	}
	if cfg.Display.NotificationTTL != 5*time.Second {
		t.Errorf("notification_ttl = %v, want 5s", cfg.Display.NotificationTTL)
	}
	if len(cfg.Zones) != 2 || cfg.Zones[1].ID != "south" || len(cfg.Zones[1].Keys) != 4 {
		t.Errorf("zones = %+v", cfg.Zones)
	}
	if got := cfg.Topic(cfg.Store.Path); got != "lot7/sensorData" {
		t.Errorf("topic = %q, want lot7/sensorData", got)
	}
	if got := cfg.GetMQTTBrokerURL(); got != "tcp://broker.example.org:1884" {
		t.Errorf("broker url = %q", got)
	}
}

func TestLoadConfigRejectsInvalidZones(t *testing.T) {
	dir := t.TempDir()
	yaml := `
zones:
  - id: left
    keys: []
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(dir, quietLogger()); err == nil {
		t.Fatal("expected error for zone without keys")
	}
}

func TestGetMQTTBrokerURL(t *testing.T) {
	tests := []struct {
		broker string
		want   string
	}{
		{"tcp://localhost", "tcp://localhost:1883"},
		{"tcp://localhost:1999", "tcp://localhost:1999"},
		{"ssl://broker", "ssl://broker:1883"},
		{"http://broker", "tcp://broker:1883"},
		{"https://broker:8883", "ssl://broker:8883"},
		{"broker", "tcp://broker:1883"},
	}
	for _, tt := range tests {
		t.Run(tt.broker, func(t *testing.T) {
			cfg := GetDefaultConfig()
			cfg.MQTT.Broker = tt.broker
			if got := cfg.GetMQTTBrokerURL(); got != tt.want {
				t.Errorf("GetMQTTBrokerURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := GetDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	cfg.MQTT.QoS = 3
	cfg.Log.Level = "loud"
	cfg.Store.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation errors")
	}
}
