package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"vmx-go/internal/attrstore"
	"vmx-go/internal/backup"
	"vmx-go/internal/catalog"
	"vmx-go/internal/config"
	"vmx-go/internal/export"
	"vmx-go/internal/history"
	"vmx-go/internal/reconcile"
	"vmx-go/internal/vmx"

	"github.com/gofrs/flock"
)

// VMXApp is the application layer between the CLI and the extraction
// engine. It constructs all dependencies from config, owns the run's
// working directory and lock, and manages resource lifecycles on Close.
type VMXApp struct {
	cfg      *config.Config
	runID    string
	selector *backup.Selector
	service  *vmx.Service
	hist     *history.Store
	clock    vmx.Clock
	logger   vmx.Logger
	logFile  *os.File
	lock     *flock.Flock
}

// NewVMXApp creates a fully wired VMXApp from the given config.
// The caller must call Close when done.
func NewVMXApp(cfg *config.Config) (*VMXApp, error) {
	clock := vmx.RealClock{}
	runID := vmx.UUIDGenerator{}.New()

	slogger, logFile, err := newLogger(cfg.LogDir, runID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	hist, err := openHistory(cfg.History)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("opening run history: %w", err)
	}

	selector := backup.NewSelector(cfg.BackupRoot, logger)
	validator := backup.NewValidator(logger, clock)
	archive := catalog.NewArchive(logger)
	reconciler := reconcile.New(time.Duration(cfg.ToleranceSeconds)*time.Second, logger)
	svc := vmx.NewService(selector, validator, archive, attrstore.NewOpener(), reconciler, logger)

	return &VMXApp{
		cfg:      cfg,
		runID:    runID,
		selector: selector,
		service:  svc,
		hist:     hist,
		clock:    clock,
		logger:   logger,
		logFile:  logFile,
	}, nil
}

func openHistory(cfg config.DatabaseConfig) (*history.Store, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite history")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		return history.Open(filepath.Join(cfg.DataDir, "vmx.db"))
	case "", "memory":
		return history.Open(":memory:")
	default:
		return nil, fmt.Errorf("unknown history type: %s", cfg.Type)
	}
}

// ExtractOptions are the CLI-facing knobs for one run.
type ExtractOptions struct {
	Identifier     string
	IncludeDeleted bool
	KeepWork       bool
	SkipExport     bool
}

// Extract runs one extraction pass and exports the result. The working
// directory is per-run and deleted after a successful export unless
// KeepWork is set; on failure it is kept for diagnosis.
func (a *VMXApp) Extract(ctx context.Context, opts ExtractOptions) (*vmx.ExtractResult, error) {
	if err := a.acquireLock(); err != nil {
		return nil, err
	}
	defer a.releaseLock()

	workDir := filepath.Join(a.cfg.WorkDir, a.runID)
	startedAt := a.clock.Now()
	if err := a.hist.RecordStart(a.runID, opts.Identifier, startedAt); err != nil {
		return nil, err
	}

	result, err := a.service.Extract(ctx, vmx.ExtractOptions{
		Identifier:     opts.Identifier,
		WorkDir:        workDir,
		IncludeDeleted: opts.IncludeDeleted,
		Parallelism:    a.cfg.Parallelism,
	})
	if err != nil {
		a.finishRun(opts.Identifier, nil, "error")
		return nil, err
	}

	if !opts.SkipExport {
		if err := a.exportResult(ctx, result); err != nil {
			a.finishRun(result.Backup.Identifier, result, "error")
			a.logger.Error("export failed, keeping work directory", "work_dir", workDir)
			return result, err
		}
	}

	a.finishRun(result.Backup.Identifier, result, "success")

	// SkipExport leaves the payloads in the work dir; deleting it would
	// throw away the run's only output.
	if !opts.KeepWork && !opts.SkipExport {
		if err := os.RemoveAll(workDir); err != nil {
			a.logger.Warn("failed to remove work directory", "work_dir", workDir, "error", err)
		}
	}
	return result, nil
}

func (a *VMXApp) exportResult(ctx context.Context, result *vmx.ExtractResult) error {
	dest, err := export.NewDestinationFromConfig(ctx, a.cfg.Export, a.cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating export destination: %w", err)
	}
	exporter := export.NewExporter(dest, a.logger)
	exported, err := exporter.ExportAll(result)
	if err != nil {
		return err
	}
	a.logger.Info("export complete", "exported", exported)
	return nil
}

func (a *VMXApp) finishRun(identifier string, result *vmx.ExtractResult, status string) {
	extracted, matched, surplus, skipped := 0, 0, 0, 0
	if result != nil {
		extracted = len(result.Payloads)
		surplus = len(result.Surplus)
		skipped = len(result.Skipped)
		for _, p := range result.Payloads {
			if p.Record != nil {
				matched++
			}
		}
	}
	if err := a.hist.Finish(a.runID, a.clock.Now(), identifier, extracted, matched, surplus, skipped, status); err != nil {
		a.logger.Warn("failed to finish run record", "error", err)
	}
}

// acquireLock takes the exclusive run lock beside the work directory.
// Concurrent runs would race on export naming and the history database.
func (a *VMXApp) acquireLock() error {
	if err := os.MkdirAll(a.cfg.WorkDir, 0755); err != nil {
		return fmt.Errorf("creating work directory: %w", err)
	}
	a.lock = flock.New(filepath.Join(a.cfg.WorkDir, "vmx.lock"))
	ok, err := a.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring run lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another vmx run is already in progress")
	}
	return nil
}

func (a *VMXApp) releaseLock() {
	if a.lock != nil {
		if err := a.lock.Unlock(); err != nil {
			a.logger.Warn("failed to release run lock", "error", err)
		}
		a.lock = nil
	}
}

// ListBackups enumerates candidate backups under the configured root,
// newest first.
func (a *VMXApp) ListBackups() ([]*vmx.BackupDescriptor, error) {
	return a.selector.Discover()
}

// History returns the most recent extraction runs.
func (a *VMXApp) History(limit int) ([]*history.Run, error) {
	return a.hist.Recent(limit)
}

// RunID returns this app instance's run identifier.
func (a *VMXApp) RunID() string { return a.runID }

// Close releases all resources.
func (a *VMXApp) Close() error {
	var firstErr error
	if err := a.hist.Close(); err != nil {
		firstErr = err
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
