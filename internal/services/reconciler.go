package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pricelist-service/internal/models"
	"pricelist-service/internal/repository"
)

// Bulk operation error codes. These mark failures worth retrying when the
// import runs with per-batch transactions.
const (
	CodeDBError          = "DB_ERROR"
	CodeBulkCreateFailed = "BULK_CREATE_FAILED"
	CodeBulkUpsertFailed = "BULK_UPSERT_FAILED"
)

// BulkOpError wraps a failed bulk persistence call with the code the
// orchestrator uses to decide whether the batch is retryable.
type BulkOpError struct {
	Code string
	Err  error
}

func (e *BulkOpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *BulkOpError) Unwrap() error {
	return e.Err
}

// LinkCandidate is a reconciled row ready for offer linking: the product's
// persisted ID plus the offer-side properties from the same source row.
type LinkCandidate struct {
	Row        int
	ProductID  uuid.UUID
	Properties *models.PropertyMap
}

// ReconcileResult tallies one batch.
type ReconcileResult struct {
	Created        int
	Updated        int
	NoChange       int
	DuplicateSkips int
	Errors         []models.ImportRowError
	Linkable       []LinkCandidate
}

// Reconciler matches candidate products against the persisted catalog by EAN
// and applies the differences with one bulk insert and one bulk update per
// batch.
type Reconciler struct {
	products repository.ProductsRepositoryInterface
	logger   *logrus.Logger
}

func NewReconciler(products repository.ProductsRepositoryInterface, logger *logrus.Logger) *Reconciler {
	return &Reconciler{products: products, logger: logger}
}

// Reconcile processes one batch of candidates in order. processed holds the
// lowercased EANs already handled earlier in the run; only the first
// occurrence of an EAN is reconciled, later ones count as duplicate skips.
//
// Unchanged products are detected by comparing name, description and the
// canonical form of the property map, and are left untouched so reimporting
// an identical file writes nothing and churns no timestamps.
func (r *Reconciler) Reconcile(ctx context.Context, candidates []*ProductCandidate, processed map[string]struct{}) (*ReconcileResult, error) {
	result := &ReconcileResult{}

	eans := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c.EAN != "" {
			eans = append(eans, c.EAN)
		}
	}

	existing, err := r.products.FindByEANs(ctx, eans)
	if err != nil {
		return nil, &BulkOpError{Code: CodeDBError, Err: err}
	}

	var toCreate []*models.Product
	var toUpdate []*models.Product

	for _, c := range candidates {
		key := strings.ToLower(c.EAN)
		if _, dup := processed[key]; dup {
			result.DuplicateSkips++
			r.logger.WithFields(logrus.Fields{
				"row": c.Row,
				"ean": c.EAN,
			}).Debug("Duplicate EAN, keeping first occurrence")
			continue
		}
		processed[key] = struct{}{}

		if prior, ok := existing[key]; ok {
			same, cmpErr := productUnchanged(prior, c)
			if cmpErr != nil {
				result.Errors = append(result.Errors, models.ImportRowError{
					Row:     c.Row,
					Code:    "ROW_ERROR",
					Message: fmt.Sprintf("comparing product %s: %v", c.EAN, cmpErr),
				})
				continue
			}
			if same {
				result.NoChange++
			} else {
				prior.Name = c.Name
				prior.Description = c.Description
				prior.Properties = c.CoreProperties.Clone()
				toUpdate = append(toUpdate, prior)
				result.Updated++
			}
			result.Linkable = append(result.Linkable, LinkCandidate{
				Row:        c.Row,
				ProductID:  prior.ID,
				Properties: c.OfferProperties,
			})
			continue
		}

		// IDs are assigned here so the linker can reference new products
		// before the insert round-trips.
		product := &models.Product{
			ID:          uuid.New(),
			EAN:         c.EAN,
			Name:        c.Name,
			Description: c.Description,
			Properties:  c.CoreProperties.Clone(),
		}
		toCreate = append(toCreate, product)
		result.Created++
		result.Linkable = append(result.Linkable, LinkCandidate{
			Row:        c.Row,
			ProductID:  product.ID,
			Properties: c.OfferProperties,
		})
	}

	if len(toCreate) > 0 {
		if err := r.products.BulkCreate(ctx, toCreate); err != nil {
			return nil, &BulkOpError{Code: CodeBulkCreateFailed, Err: err}
		}
	}
	if len(toUpdate) > 0 {
		if err := r.products.BulkUpdate(ctx, toUpdate); err != nil {
			return nil, &BulkOpError{Code: CodeBulkUpsertFailed, Err: err}
		}
	}

	return result, nil
}

func productUnchanged(existing *models.Product, c *ProductCandidate) (bool, error) {
	if existing.Name != c.Name {
		return false, nil
	}
	if !equalOptionalString(existing.Description, c.Description) {
		return false, nil
	}
	a, err := existing.Properties.Canonical()
	if err != nil {
		return false, err
	}
	b, err := c.CoreProperties.Canonical()
	if err != nil {
		return false, err
	}
	return string(a) == string(b), nil
}

func equalOptionalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
