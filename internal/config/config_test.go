package config

import (
	"testing"

	"github.com/spf13/pflag"
)

func newFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	return fs
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	fs := newFlags()
	fs.Set("private-key", "0xabc")
	_, err := Load(fs)
	if err == nil {
		t.Fatal("want error when database_url is missing")
	}
}

func TestLoadRejectsBothPrivateKeyAndMnemonic(t *testing.T) {
	fs := newFlags()
	fs.Set("database-url", "postgres://x")
	fs.Set("private-key", "0xabc")
	fs.Set("mnemonic", "test test test")
	_, err := Load(fs)
	if err == nil {
		t.Fatal("want error when both private_key and mnemonic are set")
	}
}

func TestLoadRejectsNeitherPrivateKeyNorMnemonic(t *testing.T) {
	fs := newFlags()
	fs.Set("database-url", "postgres://x")
	_, err := Load(fs)
	if err == nil {
		t.Fatal("want error when neither private_key nor mnemonic is set")
	}
}

func TestLoadSucceedsWithPrivateKeyOnly(t *testing.T) {
	fs := newFlags()
	fs.Set("database-url", "postgres://x")
	fs.Set("private-key", "0xabc")
	cfg, err := Load(fs)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.IDValidation != IDValidationValidAddress {
		t.Fatalf("want default id_validation=valid-address, got %q", cfg.IDValidation)
	}
	if cfg.RetentionMinutes != 1440 {
		t.Fatalf("want default retention=1440, got %d", cfg.RetentionMinutes)
	}
}

func TestLoadRejectsUnknownIDValidation(t *testing.T) {
	fs := newFlags()
	fs.Set("database-url", "postgres://x")
	fs.Set("private-key", "0xabc")
	fs.Set("id-validation", "bogus")
	_, err := Load(fs)
	if err == nil {
		t.Fatal("want error for unknown id_validation")
	}
}
