package vmx

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// attributeDBName is the work-area name the attribute database is
// extracted under.
const attributeDBName = "voicemail.db"

// Service is the extraction engine: it selects and validates a backup,
// locates and extracts voicemail content, decodes attributes, and
// reconciles the two record sets.
type Service struct {
	selector   Selector
	validator  Validator
	archive    Archive
	attrs      AttributeOpener
	reconciler Reconciler
	logger     Logger
}

// NewService creates a Service with the provided dependencies.
func NewService(selector Selector, validator Validator, archive Archive, attrs AttributeOpener, reconciler Reconciler, logger Logger) *Service {
	return &Service{
		selector:   selector,
		validator:  validator,
		archive:    archive,
		attrs:      attrs,
		reconciler: reconciler,
		logger:     logger,
	}
}

// ExtractOptions control one extraction pass.
type ExtractOptions struct {
	// Identifier selects a backup explicitly; empty means "the sole
	// candidate or fail with a disambiguation error".
	Identifier string

	// WorkDir is the run's exclusive working directory. The caller owns
	// its lifetime; the engine only creates it lazily and writes into it.
	WorkDir string

	// IncludeDeleted keeps voicemails the device had moved to trash.
	IncludeDeleted bool

	// Parallelism bounds the extraction worker pool. Values < 1 mean
	// sequential.
	Parallelism int
}

// Extract runs one full pass: select, validate, locate, extract, decode,
// reconcile. Structural failures abort before any extraction work;
// per-payload failures are isolated into result.Skipped.
func (s *Service) Extract(ctx context.Context, opts ExtractOptions) (*ExtractResult, error) {
	desc, err := s.selector.Select(opts.Identifier)
	if err != nil {
		return nil, err
	}
	s.logger.Info("backup selected", "identifier", desc.Identifier, "device", desc.DeviceName)

	if err := s.validator.Validate(desc); err != nil {
		return nil, err
	}

	cat, err := s.archive.OpenCatalog(desc)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer cat.Close()

	attrEntry, err := cat.LocateAttributeDatabase()
	if err != nil {
		return nil, fmt.Errorf("locating attribute database: %w", err)
	}

	audio, err := cat.LocateAudioPayloads()
	if err != nil {
		return nil, fmt.Errorf("locating audio payloads: %w", err)
	}
	if len(audio) == 0 {
		return nil, NewBackupError(ErrNoContent, desc.Root,
			"every catalog pattern came up empty",
			"the backup is usable but holds no voicemails; nothing to extract")
	}
	s.logger.Info("catalog queried", "payloads", len(audio), "attribute_db", attrEntry != nil)

	store := s.archive.NewContentStore(desc, opts.WorkDir)

	records, attributesLoaded, err := s.loadAttributes(store, attrEntry, opts.IncludeDeleted)
	if err != nil {
		return nil, err
	}

	payloads, skipped := s.extractPayloads(ctx, store, audio, opts.Parallelism)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := s.reconciler.Reconcile(payloads, records)
	if len(report.Surplus) > 0 || len(report.Unmatched) > 0 {
		s.logger.Info("reconciliation imbalance",
			"matched", report.Matched,
			"audio_without_metadata", len(report.Unmatched),
			"metadata_without_audio", len(report.Surplus))
	}

	return &ExtractResult{
		Backup:           desc,
		Payloads:         payloads,
		Surplus:          report.Surplus,
		Skipped:          skipped,
		AttributesLoaded: attributesLoaded,
		WorkDir:          opts.WorkDir,
	}, nil
}

// loadAttributes extracts and decodes the attribute database. Absence and
// malformedness both degrade to file-only mode (nil records, false).
func (s *Service) loadAttributes(store ContentStore, entry *CatalogEntry, includeDeleted bool) ([]*AttributeRecord, bool, error) {
	if entry == nil {
		s.logger.Warn("attribute database not in catalog, running file-only")
		return nil, false, nil
	}

	path, err := store.Extract(entry.FileID, attributeDBName)
	if err != nil {
		return nil, false, fmt.Errorf("extracting attribute database: %w", err)
	}
	if path == "" {
		s.logger.Warn("attribute database never materialized on disk, running file-only",
			"hash", entry.FileID)
		return nil, false, nil
	}

	if !s.attrs.IsWellFormed(path) {
		s.logger.Warn("attribute database failed well-formedness probe, running file-only",
			"path", path)
		return nil, false, nil
	}

	st, err := s.attrs.Open(path)
	if err != nil {
		return nil, false, fmt.Errorf("opening attribute database: %w", err)
	}
	defer st.Close()

	records, err := st.ReadAll(includeDeleted)
	if err != nil {
		return nil, false, fmt.Errorf("reading attribute records: %w", err)
	}
	s.logger.Info("attribute records loaded", "count", len(records))
	return records, true, nil
}

// extractPayloads copies every audio entry into the work area across a
// bounded worker pool. Failures are collected per entry and never abort
// sibling extractions. Catalog order is preserved in the result.
func (s *Service) extractPayloads(ctx context.Context, store ContentStore, entries []CatalogEntry, parallelism int) ([]*ExtractedPayload, []SkippedPayload) {
	if parallelism < 1 {
		parallelism = 1
	}

	results := make([]*ExtractedPayload, len(entries))
	var mu sync.Mutex
	var skipped []SkippedPayload

	skip := func(entry CatalogEntry, reason string) {
		mu.Lock()
		skipped = append(skipped, SkippedPayload{Entry: entry, Reason: reason})
		mu.Unlock()
		s.logger.Warn("payload skipped", "path", entry.RelativePath, "reason", reason)
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, entry := range entries {
		i, entry := i, entry // per-iteration copies; go directive predates Go 1.22 loopvar semantics
		g.Go(func() error {
			payload, err := s.extractOne(store, entry)
			if err != nil {
				skip(entry, err.Error())
				return nil
			}
			if payload == nil {
				skip(entry, "content not materialized in backup")
				return nil
			}
			results[i] = payload
			return nil
		})
	}
	g.Wait() // workers never return errors; failures land in skipped

	payloads := make([]*ExtractedPayload, 0, len(entries))
	for _, p := range results {
		if p != nil {
			payloads = append(payloads, p)
		}
	}
	return payloads, skipped
}

// extractOne copies a single catalog entry into the work area and builds
// its payload. A nil payload with a nil error means the source was absent.
func (s *Service) extractOne(store ContentStore, entry CatalogEntry) (*ExtractedPayload, error) {
	dest, err := store.Extract(entry.FileID, workName(entry))
	if err != nil {
		return nil, err
	}
	if dest == "" {
		return nil, nil
	}

	info, err := os.Stat(dest)
	if err != nil {
		return nil, fmt.Errorf("stating extracted payload: %w", err)
	}

	return &ExtractedPayload{
		FileID:       entry.FileID,
		Domain:       entry.Domain,
		RelativePath: entry.RelativePath,
		Path:         dest,
		Format:       strings.TrimPrefix(strings.ToLower(filepath.Ext(dest)), "."),
		Size:         info.Size(),
	}, nil
}

// workName builds the entry's work-area filename. The catalog can list
// entries sharing a base name across subdirectories, so the name carries
// a content-hash fragment to keep extractions collision-free; it goes
// after the stem because reconciliation reads the filename's leading
// timestamp digits.
func workName(entry CatalogEntry) string {
	base := filepath.Base(entry.RelativePath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	tag := entry.FileID
	if len(tag) > 8 {
		tag = tag[:8]
	}
	return stem + "_" + tag + ext
}
