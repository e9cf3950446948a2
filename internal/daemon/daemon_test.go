package daemon

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"podstudio/internal/logging"
	"podstudio/internal/testsupport"
)

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	engine := testsupport.NewFakeEngine()

	first, err := newDaemon(cfg, st, engine, logging.NewNop())
	if err != nil {
		t.Fatalf("newDaemon: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Stop()

	if !first.Status().Running {
		t.Fatal("daemon should report running")
	}

	second, err := newDaemon(cfg, testsupport.MustOpenStore(t, cfg), engine, logging.NewNop())
	if err != nil {
		t.Fatalf("second newDaemon: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("second instance must be refused while the lock is held")
	}

	first.Stop()
	if first.Status().Running {
		t.Fatal("daemon should report stopped")
	}
}

func TestDaemonWatcherRegistersDroppedAssets(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	d, err := newDaemon(cfg, st, testsupport.NewFakeEngine(), logging.NewNop())
	if err != nil {
		t.Fatalf("newDaemon: %v", err)
	}

	// Present before startup: picked up by the initial scan.
	existing := filepath.Join(cfg.GlobalLibraryDir(), "theme.mp3")
	testsupport.WriteFile(t, existing, 256)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for {
		asset, err := st.FindAssetByPath(ctx, existing)
		if err != nil {
			t.Fatalf("FindAssetByPath: %v", err)
		}
		if asset != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("startup scan never registered the asset")
		}
		time.Sleep(50 * time.Millisecond)
	}
}
