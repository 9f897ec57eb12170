package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileSecretResolver(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "auth"), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "auth", "jwt"), []byte("jwt-signing-key\n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	resolver := FileSecretResolver(dir)

	got, err := resolver.ResolveSecret(context.Background(), "secret://auth/jwt")
	if err != nil || got != "jwt-signing-key" {
		t.Fatalf("expected jwt-signing-key, got %q err=%v", got, err)
	}
	for _, ref := range []string{"secret://", "secret://../outside", "secret://auth/missing"} {
		if _, err := resolver.ResolveSecret(context.Background(), ref); err == nil {
			t.Fatalf("expected error for %s", ref)
		}
	}
}

func TestLoadWithFileSecretResolver(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "redis"), []byte("hunter2"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID": "skm-dev",
		"API_REDIS_PASSWORD":      "secret://redis",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(FileSecretResolver(dir)))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Redis.Password != "hunter2" {
		t.Fatalf("expected resolved redis password, got %q", cfg.Redis.Password)
	}

	env["API_REDIS_PASSWORD"] = "secret://absent"
	_, err = Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(FileSecretResolver(dir)))
	var secretErr *SecretError
	if !errors.As(err, &secretErr) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected SecretError wrapping not-exist, got %v", err)
	}
}
