package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"gorm.io/datatypes"

	"pricelist-service/internal/events"
	"pricelist-service/internal/models"
	"pricelist-service/internal/readers"
	"pricelist-service/internal/repository"
)

// Batch processing bounds.
const (
	DefaultBatchSize  = 500
	MaxBatchSize      = 1000
	DefaultMaxRetries = 2
	MaxRetriesCap     = 5
)

// Typed configuration failures. Both block a run before any database
// mutation happens.
var (
	ErrNoSupplierConfig = errors.New("no supplier configuration matches the file")
	ErrConfigInvalid    = errors.New("supplier configuration is invalid")
	ErrValidationFailed = errors.New("file validation failed")
)

// ImportServiceInterface defines the price-list import operations
type ImportServiceInterface interface {
	ProcessFile(ctx context.Context, path string, req *models.ImportRequest) (*models.ProcessingResult, error)
	ProcessReader(ctx context.Context, fileName string, src io.Reader, req *models.ImportRequest) (*models.ProcessingResult, error)
	GetRun(ctx context.Context, id uuid.UUID) (*models.ImportRun, error)
	ListRuns(ctx context.Context, limit, offset int) ([]models.ImportRun, int64, error)
}

// ImportService turns supplier price-list files into persisted offer
// snapshots: read, annotate, normalize, then reconcile and link batch by
// batch under the requested transaction mode.
type ImportService struct {
	store           *repository.Store
	publisher       *events.Publisher
	logger          *logrus.Logger
	batchRate       float64
	defaultCurrency string
}

// NewImportService creates the import orchestrator. batchRate caps committed
// batches per second; zero disables the throttle. defaultCurrency applies
// when neither the request nor the supplier configuration names one.
func NewImportService(store *repository.Store, publisher *events.Publisher, logger *logrus.Logger, batchRate float64, defaultCurrency string) *ImportService {
	return &ImportService{
		store:           store,
		publisher:       publisher,
		logger:          logger,
		batchRate:       batchRate,
		defaultCurrency: defaultCurrency,
	}
}

// pipeline bundles the per-supplier processing components assembled from one
// decoded configuration.
type pipeline struct {
	normalizer *RowNormalizer
	subtitles  *SubtitleProcessor
	headerRows int
	expected   *int
	readerOpts readers.Options
}

// ProcessFile imports a price-list file from disk.
func (s *ImportService) ProcessFile(ctx context.Context, path string, req *models.ImportRequest) (*models.ProcessingResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &readers.ParseError{File: filepath.Base(path), Reason: "cannot open file", Err: err}
	}
	defer f.Close()
	return s.ProcessReader(ctx, filepath.Base(path), f, req)
}

// ProcessReader imports a price list from an open stream. fileName drives
// format detection, supplier auto-detection and the derived offer name.
func (s *ImportService) ProcessReader(ctx context.Context, fileName string, src io.Reader, req *models.ImportRequest) (*models.ProcessingResult, error) {
	start := time.Now()
	if req == nil {
		req = &models.ImportRequest{}
	}

	config, supplier, err := s.resolveSupplier(ctx, fileName, req.SupplierName)
	if err != nil {
		return nil, err
	}

	pipe, err := s.buildPipeline(config)
	if err != nil {
		return nil, err
	}

	reader, err := readers.New(fileName, src, pipe.readerOpts)
	if err != nil {
		return nil, err
	}
	rows, err := reader.ReadRows(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: file contains no rows", ErrValidationFailed)
	}
	if err := validateColumnCount(rows, pipe.expected); err != nil {
		return nil, err
	}

	if pipe.headerRows >= len(rows) {
		rows = nil
	} else {
		rows = rows[pipe.headerRows:]
	}

	result := &models.ProcessingResult{
		SupplierName: supplier.Name,
		TotalRows:    len(rows),
	}

	candidates, err := s.normalize(ctx, pipe, rows, result)
	if err != nil {
		return nil, err
	}

	if req.ValidateOnly {
		result.Success = result.Errors == 0
		result.ElapsedMs = time.Since(start).Milliseconds()
		return result, nil
	}

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}
	maxRetries := req.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if maxRetries > MaxRetriesCap {
		maxRetries = MaxRetriesCap
	}
	currency := config.Currency
	if req.Currency != "" {
		currency = req.Currency
	}
	if currency == "" {
		currency = s.defaultCurrency
	}
	if currency == "" {
		currency = "USD"
	}

	run := &models.ImportRun{
		SupplierID:   &supplier.ID,
		SupplierName: supplier.Name,
		FileName:     fileName,
		Status:       models.ImportStatusProcessing,
		TotalRows:    result.TotalRows,
		StartedAt:    start,
	}
	if err := s.store.Imports.CreateRun(ctx, run); err != nil {
		return nil, err
	}
	result.ImportRunID = run.ID
	s.publisher.PublishImportStarted(run.ID, supplier.Name, fileName)

	offerName := fmt.Sprintf("%s - %s", supplier.Name, fileName)
	result.OfferName = offerName

	var offer *models.SupplierOffer
	var procErr error
	switch {
	case req.UseStaging:
		offer, procErr = s.processStaged(ctx, supplier, offerName, fileName, currency, candidates, batchSize, result)
	case req.PerBatchTransactions:
		offer, procErr = s.processPerBatch(ctx, supplier, offerName, fileName, currency, candidates, batchSize, maxRetries, result)
	default:
		offer, procErr = s.processStrict(ctx, supplier, offerName, fileName, currency, candidates, batchSize, result)
	}
	result.ElapsedMs = time.Since(start).Milliseconds()

	if procErr != nil {
		if !req.PerBatchTransactions {
			// Everything rolled back with the transaction
			resetMutationCounts(result)
		}
		s.finishRun(run, result, models.ImportStatusFailed, procErr)
		s.publisher.PublishImportFailed(run.ID, supplier.Name, fileName, procErr.Error())
		s.logger.WithError(procErr).WithFields(logrus.Fields{
			"import_run_id": run.ID,
			"supplier":      supplier.Name,
			"file":          fileName,
		}).Error("Import failed")
		return nil, procErr
	}

	if offer != nil {
		result.OfferID = &offer.ID
		run.OfferID = &offer.ID
	}
	result.Success = result.Errors == 0
	s.finishRun(run, result, models.ImportStatusCompleted, nil)
	s.publisher.PublishImportCompleted(run.ID, supplier.Name, fileName, offerName,
		result.ProductsCreated, result.ProductsUpdated, result.Errors)

	s.logger.WithFields(logrus.Fields{
		"import_run_id":  run.ID,
		"supplier":       supplier.Name,
		"file":           fileName,
		"offer":          offerName,
		"total_rows":     result.TotalRows,
		"created":        result.ProductsCreated,
		"updated":        result.ProductsUpdated,
		"no_change":      result.ProductsNoChanged,
		"duplicates":     result.DuplicateSkips,
		"without_ean":    result.RowsWithoutEAN,
		"offer_products": result.OfferProductsCreated,
		"errors":         result.Errors,
		"elapsed_ms":     result.ElapsedMs,
	}).Info("Import completed")
	return result, nil
}

// GetRun retrieves one import run audit record.
func (s *ImportService) GetRun(ctx context.Context, id uuid.UUID) (*models.ImportRun, error) {
	return s.store.Imports.GetRun(ctx, id)
}

// ListRuns retrieves import run audit records, newest first.
func (s *ImportService) ListRuns(ctx context.Context, limit, offset int) ([]models.ImportRun, int64, error) {
	return s.store.Imports.ListRuns(ctx, limit, offset)
}

// resolveSupplier picks the supplier and its import configuration, either
// from an explicitly named supplier or by matching the file name against
// each active configuration's patterns.
func (s *ImportService) resolveSupplier(ctx context.Context, fileName, supplierName string) (*models.SupplierConfig, *models.Supplier, error) {
	if supplierName != "" {
		supplier, created, err := s.store.Suppliers.GetOrCreateByName(ctx, supplierName)
		if err != nil {
			return nil, nil, err
		}
		if created {
			s.logger.WithField("supplier", supplier.Name).Info("Created supplier on first import")
		}
		config, err := s.store.Suppliers.GetConfig(ctx, supplier.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, nil, fmt.Errorf("%w: supplier %q has no configuration", ErrNoSupplierConfig, supplier.Name)
			}
			return nil, nil, err
		}
		return config, supplier, nil
	}

	config, supplier, err := s.store.Suppliers.FindConfigByFileName(ctx, fileName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNoSupplierConfig, fileName)
		}
		return nil, nil, err
	}
	return config, supplier, nil
}

// buildPipeline assembles the processing components from a decoded supplier
// configuration. Any decode or compile failure is a configuration error.
func (s *ImportService) buildPipeline(config *models.SupplierConfig) (*pipeline, error) {
	mappings, err := config.DecodeColumnMappings()
	if err != nil {
		return nil, fmt.Errorf("%w: column mappings: %v", ErrConfigInvalid, err)
	}
	if len(mappings) == 0 {
		return nil, fmt.Errorf("%w: no column mappings configured", ErrConfigInvalid)
	}

	classifier := NewPropertyClassifier(config.OfferProperties)
	normalizer, err := NewRowNormalizer(mappings, classifier)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}

	rules, err := config.DecodeSubtitleRules()
	if err != nil {
		return nil, fmt.Errorf("%w: subtitle rules: %v", ErrConfigInvalid, err)
	}
	subtitles, err := NewSubtitleProcessor(config.SubtitleEnabled, rules, s.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}

	opts := readers.Options{
		Windows1251: strings.EqualFold(config.FileEncoding, "windows-1251"),
	}
	if config.CSVDelimiter != "" {
		opts.CSVDelimiter = []rune(config.CSVDelimiter)[0]
	}

	return &pipeline{
		normalizer: normalizer,
		subtitles:  subtitles,
		headerRows: config.HeaderRows,
		expected:   config.ExpectedColumnCount,
		readerOpts: opts,
	}, nil
}

// normalize runs the subtitle pass and lifts data rows into candidates. A
// malformed row is tallied and skipped, never fatal.
func (s *ImportService) normalize(ctx context.Context, pipe *pipeline, rows []readers.Row, result *models.ProcessingResult) ([]*ProductCandidate, error) {
	annotated := pipe.subtitles.Process(rows)
	candidates := make([]*ProductCandidate, 0, len(annotated))

	for i, row := range annotated {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if row.IsSubtitle {
			continue
		}
		candidate, err := pipe.normalizer.MapRow(row)
		if err != nil {
			result.Errors++
			result.RowErrors = append(result.RowErrors, models.ImportRowError{
				Row:     row.Index,
				Code:    "ROW_ERROR",
				Message: err.Error(),
			})
			s.logger.WithError(err).WithField("row", row.Index).Warn("Skipping malformed row")
			continue
		}
		if candidate == nil {
			result.RowsWithoutEAN++
			continue
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

// processStrict runs the whole offer inside one transaction. Any batch
// failure rolls back everything, including the snapshot replace, so a
// partial offer is never visible.
func (s *ImportService) processStrict(ctx context.Context, supplier *models.Supplier, offerName, fileName, currency string, candidates []*ProductCandidate, batchSize int, result *models.ProcessingResult) (*models.SupplierOffer, error) {
	var offer *models.SupplierOffer
	limiter := s.newBatchLimiter()

	err := s.store.WithTransaction(ctx, func(tx *repository.Store) error {
		created, err := s.replaceOffer(ctx, tx, supplier, offerName, fileName, currency)
		if err != nil {
			return err
		}
		offer = created

		reconciler := NewReconciler(tx.Products, s.logger)
		linker := NewLinker(tx.Offers, s.logger)
		processed := make(map[string]struct{})

		batches := sliceBatches(candidates, batchSize)
		result.TotalBatches = len(batches)
		for i, batch := range batches {
			if err := s.waitBatch(ctx, limiter); err != nil {
				return err
			}
			br, err := s.runBatch(ctx, reconciler, linker, offer.ID, batch, i+1, processed)
			if err != nil {
				return fmt.Errorf("batch %d: %w", i+1, err)
			}
			appendBatch(result, br, len(batch))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return offer, nil
}

// processPerBatch commits each batch in its own transaction with retries for
// transient failures. A batch that exhausts its retries tallies all its rows
// as errors and the run moves on to the next batch.
func (s *ImportService) processPerBatch(ctx context.Context, supplier *models.Supplier, offerName, fileName, currency string, candidates []*ProductCandidate, batchSize, maxRetries int, result *models.ProcessingResult) (*models.SupplierOffer, error) {
	var offer *models.SupplierOffer
	err := s.store.WithTransaction(ctx, func(tx *repository.Store) error {
		created, err := s.replaceOffer(ctx, tx, supplier, offerName, fileName, currency)
		offer = created
		return err
	})
	if err != nil {
		return nil, err
	}

	limiter := s.newBatchLimiter()
	processed := make(map[string]struct{})
	batches := sliceBatches(candidates, batchSize)
	result.TotalBatches = len(batches)

	for i, batch := range batches {
		if err := s.waitBatch(ctx, limiter); err != nil {
			return offer, err
		}
		br := s.processBatchWithRetry(ctx, offer.ID, batch, i+1, maxRetries, processed)
		appendBatch(result, br, len(batch))
	}
	return offer, nil
}

// processStaged runs the in-memory variant: stage every batch against a
// catalog loaded once, then flush the lot inside a single transaction.
func (s *ImportService) processStaged(ctx context.Context, supplier *models.Supplier, offerName, fileName, currency string, candidates []*ProductCandidate, batchSize int, result *models.ProcessingResult) (*models.SupplierOffer, error) {
	stager := NewStagingImporter(s.store.Products, s.logger)
	if err := stager.Load(ctx); err != nil {
		return nil, err
	}

	processed := make(map[string]struct{})
	batches := sliceBatches(candidates, batchSize)
	result.TotalBatches = len(batches)
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		br := stager.StageBatch(batch, i+1, processed)
		appendBatch(result, br, len(batch))
	}

	var offer *models.SupplierOffer
	err := s.store.WithTransaction(ctx, func(tx *repository.Store) error {
		created, err := s.replaceOffer(ctx, tx, supplier, offerName, fileName, currency)
		if err != nil {
			return err
		}
		offer = created
		return stager.Flush(ctx, tx, offer.ID, batchSize)
	})
	if err != nil {
		return nil, err
	}
	return offer, nil
}

// processBatchWithRetry runs one batch in its own transaction, retrying
// transient bulk failures with exponential backoff. The duplicate-EAN set is
// cloned per attempt so a retried batch does not see its own failed attempt
// as duplicates.
func (s *ImportService) processBatchWithRetry(ctx context.Context, offerID uuid.UUID, batch []*ProductCandidate, batchNum, maxRetries int, processed map[string]struct{}) models.BatchResult {
	var lastErr error
	retries := 0

	for retry := 0; retry <= maxRetries; retry++ {
		retries = retry
		attemptSet := cloneEANSet(processed)
		var attempt models.BatchResult

		err := s.store.WithTransaction(ctx, func(tx *repository.Store) error {
			reconciler := NewReconciler(tx.Products, s.logger)
			linker := NewLinker(tx.Offers, s.logger)
			inner, err := s.runBatch(ctx, reconciler, linker, offerID, batch, batchNum, attemptSet)
			attempt = inner
			return err
		})
		if err == nil {
			mergeEANSet(processed, attemptSet)
			attempt.RetryCount = retry
			return attempt
		}
		lastErr = err

		s.logger.WithError(err).WithFields(logrus.Fields{
			"batch": batchNum,
			"retry": retry,
		}).Warn("Batch failed")

		if !isTransient(err) {
			break
		}
		if retry < maxRetries {
			time.Sleep(time.Duration(100*(1<<retry)) * time.Millisecond)
		}
	}

	return models.BatchResult{
		BatchNumber: batchNum,
		StartRow:    batch[0].Row,
		EndRow:      batch[len(batch)-1].Row,
		Success:     false,
		RetryCount:  retries,
		Errors: []models.ImportRowError{{
			Row:     batch[0].Row,
			Code:    errorCode(lastErr),
			Message: fmt.Sprintf("batch %d failed: %v", batchNum, lastErr),
		}},
	}
}

// runBatch reconciles one batch of candidates and links the survivors to the
// offer.
func (s *ImportService) runBatch(ctx context.Context, reconciler *Reconciler, linker *Linker, offerID uuid.UUID, batch []*ProductCandidate, batchNum int, processed map[string]struct{}) (models.BatchResult, error) {
	br := models.BatchResult{
		BatchNumber: batchNum,
		StartRow:    batch[0].Row,
		EndRow:      batch[len(batch)-1].Row,
	}

	rec, err := reconciler.Reconcile(ctx, batch, processed)
	if err != nil {
		return br, err
	}
	linked, err := linker.LinkOfferProducts(ctx, offerID, rec.Linkable)
	if err != nil {
		return br, err
	}

	br.Success = true
	br.Created = rec.Created
	br.Updated = rec.Updated
	br.NoChange = rec.NoChange
	br.DuplicateSkips = rec.DuplicateSkips
	br.LinkedProducts = linked
	br.Errors = rec.Errors
	return br, nil
}

// replaceOffer enforces the snapshot policy: a prior offer with the same
// derived name is deleted, cascading its offer products, before the new one
// is created.
func (s *ImportService) replaceOffer(ctx context.Context, store *repository.Store, supplier *models.Supplier, offerName, fileName, currency string) (*models.SupplierOffer, error) {
	prior, err := store.Offers.GetByName(ctx, supplier.ID, offerName)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if prior != nil {
		if err := store.Offers.Delete(ctx, prior.ID); err != nil {
			return nil, err
		}
		s.logger.WithFields(logrus.Fields{
			"offer":    offerName,
			"offer_id": prior.ID,
		}).Info("Replacing existing offer snapshot")
	}

	offer := &models.SupplierOffer{
		ID:         uuid.New(),
		SupplierID: supplier.ID,
		Name:       offerName,
		Currency:   currency,
		SourceFile: fileName,
	}
	if err := store.Offers.Create(ctx, offer); err != nil {
		return nil, err
	}
	return offer, nil
}

// finishRun persists the run's final state. The audit update uses its own
// context so it lands even when the import's context was cancelled.
func (s *ImportService) finishRun(run *models.ImportRun, result *models.ProcessingResult, status models.ImportStatus, procErr error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := time.Now()
	run.Status = status
	run.ProductsCreated = result.ProductsCreated
	run.ProductsUpdated = result.ProductsUpdated
	run.ProductsNoChanged = result.ProductsNoChanged
	run.DuplicateSkips = result.DuplicateSkips
	run.RowsWithoutEAN = result.RowsWithoutEAN
	run.OfferProductsCreated = result.OfferProductsCreated
	run.ErrorCount = result.Errors
	run.CompletedAt = &now
	run.DurationMs = result.ElapsedMs

	messages := make([]string, 0, models.MaxStoredErrorMessages)
	if procErr != nil {
		messages = append(messages, procErr.Error())
	}
	for _, rowErr := range result.RowErrors {
		if len(messages) >= models.MaxStoredErrorMessages {
			break
		}
		messages = append(messages, fmt.Sprintf("row %d: %s", rowErr.Row, rowErr.Message))
	}
	result.ErrorMessages = messages
	if len(messages) > 0 {
		if data, err := json.Marshal(messages); err == nil {
			run.ErrorMessages = datatypes.JSON(data)
		}
	}

	if err := s.store.Imports.UpdateRun(ctx, run); err != nil {
		s.logger.WithError(err).WithField("import_run_id", run.ID).Error("Failed to update import run")
	}
}

func (s *ImportService) newBatchLimiter() *rate.Limiter {
	if s.batchRate <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(s.batchRate), 1)
}

// waitBatch throttles batch starts and doubles as the cancellation point at
// each batch boundary.
func (s *ImportService) waitBatch(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return ctx.Err()
	}
	return limiter.Wait(ctx)
}

func sliceBatches(candidates []*ProductCandidate, batchSize int) [][]*ProductCandidate {
	totalBatches := (len(candidates) + batchSize - 1) / batchSize
	batches := make([][]*ProductCandidate, 0, totalBatches)
	for start := 0; start < len(candidates); start += batchSize {
		end := start + batchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batches = append(batches, candidates[start:end])
	}
	return batches
}

// appendBatch folds one batch outcome into the aggregate. A failed batch
// counts every one of its rows as an error.
func appendBatch(result *models.ProcessingResult, br models.BatchResult, batchLen int) {
	result.BatchResults = append(result.BatchResults, br)
	result.ProductsCreated += br.Created
	result.ProductsUpdated += br.Updated
	result.ProductsNoChanged += br.NoChange
	result.DuplicateSkips += br.DuplicateSkips
	result.OfferProductsCreated += br.LinkedProducts
	if br.Success {
		result.Errors += len(br.Errors)
	} else {
		result.Errors += batchLen
	}
	result.RowErrors = append(result.RowErrors, br.Errors...)
}

func resetMutationCounts(result *models.ProcessingResult) {
	result.ProductsCreated = 0
	result.ProductsUpdated = 0
	result.ProductsNoChanged = 0
	result.DuplicateSkips = 0
	result.OfferProductsCreated = 0
	result.BatchResults = nil
}

func validateColumnCount(rows []readers.Row, expected *int) error {
	if expected == nil {
		return nil
	}
	for _, row := range rows {
		if len(nonBlankCells(row.Cells)) == 0 {
			continue
		}
		if len(row.Cells) != *expected {
			return fmt.Errorf("%w: expected %d columns, file has %d", ErrValidationFailed, *expected, len(row.Cells))
		}
		return nil
	}
	return nil
}

func isTransient(err error) bool {
	var bulkErr *BulkOpError
	if !errors.As(err, &bulkErr) {
		return false
	}
	switch bulkErr.Code {
	case CodeDBError, CodeBulkCreateFailed, CodeBulkUpsertFailed:
		return true
	}
	return false
}

func errorCode(err error) string {
	var bulkErr *BulkOpError
	if errors.As(err, &bulkErr) {
		return bulkErr.Code
	}
	return "BATCH_FAILED"
}

func cloneEANSet(src map[string]struct{}) map[string]struct{} {
	dst := make(map[string]struct{}, len(src))
	for k := range src {
		dst[k] = struct{}{}
	}
	return dst
}

func mergeEANSet(dst, src map[string]struct{}) {
	for k := range src {
		dst[k] = struct{}{}
	}
}
