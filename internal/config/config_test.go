package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const fullYAML = `
database:
  driver: mysql
  host: 10.0.0.5
  port: 3307
  user: crm
  password: secret
  name: leads_prod

generation:
  backend: openai
  endpoint: https://llm.internal/v1
  model: gpt-4o-mini
  api_key: sk-test
  timeout: 15s
  reply_temperature: 0.5

server:
  port: 9090

summary:
  subject: Your summary
  team_name: Acme Realty
  closing_message: Bye for now.

notify:
  slack_webhook_url: https://hooks.slack.com/services/T/B/X
  discord_webhook_id: "123"
  discord_webhook_token: abc

digest:
  cron: "0 9 * * 1-5"
  window: 48h

log:
  level: debug
  development: true
`

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Database.Driver != DriverMySQL {
		t.Errorf("Database.Driver = %q, want %q", cfg.Database.Driver, DriverMySQL)
	}
	if cfg.Database.Host != "10.0.0.5" || cfg.Database.Port != 3307 {
		t.Errorf("Database = %s:%d, want 10.0.0.5:3307", cfg.Database.Host, cfg.Database.Port)
	}
	if cfg.Database.User != "crm" || cfg.Database.Password != "secret" || cfg.Database.Name != "leads_prod" {
		t.Errorf("Database credentials = %+v", cfg.Database)
	}
	if cfg.Generation.Backend != BackendOpenAI {
		t.Errorf("Generation.Backend = %q, want %q", cfg.Generation.Backend, BackendOpenAI)
	}
	if cfg.Generation.Model != "gpt-4o-mini" {
		t.Errorf("Generation.Model = %q, want gpt-4o-mini", cfg.Generation.Model)
	}
	if cfg.Generation.Timeout != 15*time.Second {
		t.Errorf("Generation.Timeout = %v, want 15s", cfg.Generation.Timeout)
	}
	if cfg.Generation.ReplyTemperature != 0.5 {
		t.Errorf("Generation.ReplyTemperature = %v, want 0.5", cfg.Generation.ReplyTemperature)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Summary.TeamName != "Acme Realty" {
		t.Errorf("Summary.TeamName = %q, want Acme Realty", cfg.Summary.TeamName)
	}
	if cfg.Summary.ClosingMessage != "Bye for now." {
		t.Errorf("Summary.ClosingMessage = %q", cfg.Summary.ClosingMessage)
	}
	if cfg.Notify.DiscordWebhookID != "123" || cfg.Notify.DiscordWebhookToken != "abc" {
		t.Errorf("Notify discord = %+v", cfg.Notify)
	}
	if cfg.Digest.Cron != "0 9 * * 1-5" || cfg.Digest.Window != 48*time.Hour {
		t.Errorf("Digest = %+v", cfg.Digest)
	}
	if cfg.Log.Level != "debug" || !cfg.Log.Development {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestParse_EmptyAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Database.Driver != DriverSQLite {
		t.Errorf("Database.Driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Database.Path != "leadyard.db" {
		t.Errorf("Database.Path = %q, want leadyard.db", cfg.Database.Path)
	}
	if cfg.Generation.Backend != BackendOllama {
		t.Errorf("Generation.Backend = %q, want ollama", cfg.Generation.Backend)
	}
	if cfg.Generation.Endpoint != "http://localhost:11434" {
		t.Errorf("Generation.Endpoint = %q", cfg.Generation.Endpoint)
	}
	if cfg.Generation.Model != "llama3:8b" {
		t.Errorf("Generation.Model = %q, want llama3:8b", cfg.Generation.Model)
	}
	if cfg.Generation.Timeout != 60*time.Second {
		t.Errorf("Generation.Timeout = %v, want 60s", cfg.Generation.Timeout)
	}
	if cfg.Generation.ReplyTemperature != 0.3 {
		t.Errorf("Generation.ReplyTemperature = %v, want 0.3", cfg.Generation.ReplyTemperature)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if !strings.Contains(cfg.Summary.Subject, "Property Inquiry Summary") {
		t.Errorf("Summary.Subject = %q", cfg.Summary.Subject)
	}
	if cfg.Digest.Cron != "" || cfg.Digest.Window != 24*time.Hour {
		t.Errorf("Digest = %+v, want disabled with 24h window", cfg.Digest)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

func TestParse_MySQLDefaults(t *testing.T) {
	cfg, err := Parse([]byte("database:\n  driver: mysql\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Host != "127.0.0.1" || cfg.Database.Port != 3306 {
		t.Errorf("Database = %s:%d, want 127.0.0.1:3306", cfg.Database.Host, cfg.Database.Port)
	}
	if cfg.Database.User != "root" || cfg.Database.Name != "leadyard" {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.Database.Path != "" {
		t.Errorf("Database.Path = %q, want empty for mysql", cfg.Database.Path)
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("LEADYARD_TEST_KEY", "sk-from-env")
	cfg, err := Parse([]byte("generation:\n  backend: openai\n  api_key: ${LEADYARD_TEST_KEY}\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Generation.APIKey != "sk-from-env" {
		t.Errorf("Generation.APIKey = %q, want sk-from-env", cfg.Generation.APIKey)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad driver", "database:\n  driver: mongo\n", `database.driver "mongo" is not supported`},
		{"bad backend", "generation:\n  backend: bard\n", `generation.backend "bard" is not supported`},
		{"openai needs key", "generation:\n  backend: openai\n", "generation.api_key is required"},
		{"temperature range", "generation:\n  reply_temperature: 3\n", "reply_temperature must be between 0 and 2"},
		{"port range", "server:\n  port: 70000\n", "server.port 70000 is out of range"},
		{"discord pair", "notify:\n  discord_webhook_id: \"1\"\n", "must be set together"},
		{"log level", "log:\n  level: trace\n", `log.level "trace" is not supported`},
		{"digest cron syntax", "notify:\n  slack_webhook_url: https://x\ndigest:\n  cron: \"every day\"\n", `digest.cron "every day"`},
		{"digest needs channel", "digest:\n  cron: \"0 9 * * *\"\n", "digest.cron requires a notify channel"},
		{"digest window", "digest:\n  window: -1h\n", "digest.window must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.want)
			}
			if !strings.HasPrefix(err.Error(), "config: validation failed:") {
				t.Errorf("error = %q, want config prefix", err.Error())
			}
		})
	}
}

func TestParse_MultipleErrorsJoined(t *testing.T) {
	_, err := Parse([]byte("database:\n  driver: x\ngeneration:\n  backend: y\n"))
	if err == nil {
		t.Fatal("expected error")
	}
	if strings.Count(err.Error(), ";") != 1 {
		t.Errorf("error = %q, want two errors joined by ';'", err.Error())
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("database: [unterminated"))
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.HasPrefix(err.Error(), "config: parse:") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "leadyard.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 8181\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8181 {
		t.Errorf("Server.Port = %d, want 8181", cfg.Server.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "config: read") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.validate(); err != nil {
		t.Fatalf("Default() should validate: %v", err)
	}
}
