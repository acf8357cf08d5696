package schemasync

import (
	"context"
	"testing"

	"github.com/tordrt/schemasync/internal/syncerr"
)

func TestNewRejectsMissingURL(t *testing.T) {
	cfg := DefaultConfig()
	_, err := New(context.Background(), cfg, nil)
	if err == nil {
		t.Fatal("expected an error without a database url")
	}
	if !syncerr.IsKind(err, syncerr.KindConfig) {
		t.Errorf("expected a config error, got %v", err)
	}
}

func TestNewRejectsUnsupportedDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Database.URL = "oracle://localhost/app"
	cfg.Database.Driver = "oracle"
	_, err := New(context.Background(), cfg, nil)
	if err == nil {
		t.Fatal("expected an error for an unsupported driver")
	}
	if !syncerr.IsKind(err, syncerr.KindConfig) {
		t.Errorf("expected a config error, got %v", err)
	}
}
