package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("ETHKIT_RPC_URL", "")
	t.Setenv("ETHKIT_SANDBOX", "")
	t.Setenv("ETHKIT_TIMEOUT", "")
	t.Setenv("ETHKIT_NO_CACHE", "")
	t.Setenv("ETHKIT_CACHE_PATH", "")
	t.Setenv("ETHKIT_CACHE_LOCK_PATH", "")
}

func TestLoadDefaults(t *testing.T) {
	isolateEnv(t)

	settings, err := Load(GlobalFlags{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.RPCURL == "" {
		t.Fatal("expected a default RPC URL")
	}
	if settings.Sandbox {
		t.Fatal("sandbox should default to off")
	}
	if settings.Timeout != 10*time.Second {
		t.Fatalf("unexpected timeout: %v", settings.Timeout)
	}
	if !settings.CacheEnabled {
		t.Fatal("cache should default to enabled")
	}
}

func TestLoadFileConfig(t *testing.T) {
	isolateEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "rpc_url: http://localhost:8545\nsandbox: true\ntimeout: 3s\ncache:\n  enabled: false\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	settings, err := Load(GlobalFlags{ConfigPath: path})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.RPCURL != "http://localhost:8545" {
		t.Fatalf("unexpected rpc url: %s", settings.RPCURL)
	}
	if !settings.Sandbox {
		t.Fatal("expected sandbox enabled from file")
	}
	if settings.Timeout != 3*time.Second {
		t.Fatalf("unexpected timeout: %v", settings.Timeout)
	}
	if settings.CacheEnabled {
		t.Fatal("expected cache disabled from file")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	isolateEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("rpc_url: http://file:8545\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ETHKIT_RPC_URL", "http://env:8545")

	settings, err := Load(GlobalFlags{ConfigPath: path})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.RPCURL != "http://env:8545" {
		t.Fatalf("unexpected rpc url: %s", settings.RPCURL)
	}
}

func TestFlagsOverrideEnv(t *testing.T) {
	isolateEnv(t)
	t.Setenv("ETHKIT_RPC_URL", "http://env:8545")

	settings, err := Load(GlobalFlags{RPCURL: "http://flag:8545", Sandbox: true, Timeout: "2s", NoCache: true})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.RPCURL != "http://flag:8545" {
		t.Fatalf("unexpected rpc url: %s", settings.RPCURL)
	}
	if !settings.Sandbox || settings.Timeout != 2*time.Second || settings.CacheEnabled {
		t.Fatalf("unexpected settings: %+v", settings)
	}
}

func TestInvalidTimeoutFlag(t *testing.T) {
	isolateEnv(t)

	if _, err := Load(GlobalFlags{Timeout: "soon"}); err == nil {
		t.Fatal("expected invalid timeout error")
	}
}
