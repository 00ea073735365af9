package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pricelist-service/internal/models"
	"pricelist-service/internal/repository"
)

// StagingImporter is the in-memory import variant: the whole product catalog
// is loaded once, every batch reconciles against the in-memory state, and
// all changes land in one final flush. No database round trips happen
// between Load and Flush, which trades memory for throughput on large files.
type StagingImporter struct {
	products repository.ProductsRepositoryInterface
	logger   *logrus.Logger

	mu    sync.RWMutex
	byEAN map[string]*models.Product

	toCreate []*models.Product
	toUpdate []*models.Product
	links    []LinkCandidate
}

func NewStagingImporter(products repository.ProductsRepositoryInterface, logger *logrus.Logger) *StagingImporter {
	return &StagingImporter{
		products: products,
		logger:   logger,
		byEAN:    make(map[string]*models.Product),
	}
}

// Load pulls the product catalog into memory, keyed by lowercased EAN.
func (si *StagingImporter) Load(ctx context.Context) error {
	all, err := si.products.ListAll(ctx)
	if err != nil {
		return err
	}

	si.mu.Lock()
	defer si.mu.Unlock()
	si.byEAN = make(map[string]*models.Product, len(all))
	for _, p := range all {
		si.byEAN[strings.ToLower(p.EAN)] = p
	}
	si.logger.WithField("products", len(all)).Debug("Staged product catalog in memory")
	return nil
}

// StageBatch reconciles one batch against the staged state. Newly staged
// products become visible to later batches immediately; nothing touches the
// database.
func (si *StagingImporter) StageBatch(batch []*ProductCandidate, batchNum int, processed map[string]struct{}) models.BatchResult {
	br := models.BatchResult{
		BatchNumber: batchNum,
		StartRow:    batch[0].Row,
		EndRow:      batch[len(batch)-1].Row,
	}

	si.mu.Lock()
	defer si.mu.Unlock()

	linksBefore := len(si.links)
	for _, c := range batch {
		key := strings.ToLower(c.EAN)
		if _, dup := processed[key]; dup {
			br.DuplicateSkips++
			continue
		}
		processed[key] = struct{}{}

		if prior, ok := si.byEAN[key]; ok {
			same, err := productUnchanged(prior, c)
			if err != nil {
				br.Errors = append(br.Errors, models.ImportRowError{
					Row:     c.Row,
					Code:    "ROW_ERROR",
					Message: fmt.Sprintf("comparing product %s: %v", c.EAN, err),
				})
				continue
			}
			if same {
				br.NoChange++
			} else {
				prior.Name = c.Name
				prior.Description = c.Description
				prior.Properties = c.CoreProperties.Clone()
				si.toUpdate = append(si.toUpdate, prior)
				br.Updated++
			}
			si.links = append(si.links, LinkCandidate{
				Row:        c.Row,
				ProductID:  prior.ID,
				Properties: c.OfferProperties,
			})
			continue
		}

		product := &models.Product{
			ID:          uuid.New(),
			EAN:         c.EAN,
			Name:        c.Name,
			Description: c.Description,
			Properties:  c.CoreProperties.Clone(),
		}
		si.byEAN[key] = product
		si.toCreate = append(si.toCreate, product)
		br.Created++
		si.links = append(si.links, LinkCandidate{
			Row:        c.Row,
			ProductID:  product.ID,
			Properties: c.OfferProperties,
		})
	}

	br.Success = true
	br.LinkedProducts = len(si.links) - linksBefore
	return br
}

// Flush writes every staged change inside the caller's transaction, in
// chunkSize slices so no single statement grows unbounded.
func (si *StagingImporter) Flush(ctx context.Context, tx *repository.Store, offerID uuid.UUID, chunkSize int) error {
	si.mu.RLock()
	defer si.mu.RUnlock()

	for start := 0; start < len(si.toCreate); start += chunkSize {
		end := start + chunkSize
		if end > len(si.toCreate) {
			end = len(si.toCreate)
		}
		if err := tx.Products.BulkCreate(ctx, si.toCreate[start:end]); err != nil {
			return &BulkOpError{Code: CodeBulkCreateFailed, Err: err}
		}
	}

	for start := 0; start < len(si.toUpdate); start += chunkSize {
		end := start + chunkSize
		if end > len(si.toUpdate) {
			end = len(si.toUpdate)
		}
		if err := tx.Products.BulkUpdate(ctx, si.toUpdate[start:end]); err != nil {
			return &BulkOpError{Code: CodeBulkUpsertFailed, Err: err}
		}
	}

	linker := NewLinker(tx.Offers, si.logger)
	for start := 0; start < len(si.links); start += chunkSize {
		end := start + chunkSize
		if end > len(si.links) {
			end = len(si.links)
		}
		if _, err := linker.LinkOfferProducts(ctx, offerID, si.links[start:end]); err != nil {
			return err
		}
	}

	si.logger.WithFields(logrus.Fields{
		"created": len(si.toCreate),
		"updated": len(si.toUpdate),
		"links":   len(si.links),
	}).Debug("Flushed staged changes")
	return nil
}
