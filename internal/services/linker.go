package services

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pricelist-service/internal/models"
	"pricelist-service/internal/repository"
)

// Linker creates the OfferProduct rows binding reconciled products to the
// offer being imported. Offers are snapshots replaced wholesale on
// reprocessing, so this path only ever creates.
type Linker struct {
	offers repository.OffersRepositoryInterface
	logger *logrus.Logger
}

func NewLinker(offers repository.OffersRepositoryInterface, logger *logrus.Logger) *Linker {
	return &Linker{offers: offers, logger: logger}
}

// LinkOfferProducts inserts one OfferProduct per candidate in a single bulk
// call and returns the number created. Price, quantity and discount are
// lifted out of the offer property bag into dedicated columns; the bag
// itself is stored alongside them untouched.
func (l *Linker) LinkOfferProducts(ctx context.Context, offerID uuid.UUID, candidates []LinkCandidate) (int, error) {
	if len(candidates) == 0 {
		return 0, nil
	}

	rows := make([]*models.OfferProduct, 0, len(candidates))
	for _, c := range candidates {
		op := &models.OfferProduct{
			ID:        uuid.New(),
			OfferID:   offerID,
			ProductID: c.ProductID,
		}
		if c.Properties != nil {
			op.Price = numericProperty(c.Properties, "price")
			op.Quantity = intProperty(c.Properties, "quantity", "qty", "capacity")
			op.Discount = numericProperty(c.Properties, "discount")
			op.Properties = c.Properties.Clone()
		}
		rows = append(rows, op)
	}

	if err := l.offers.BulkCreateOfferProducts(ctx, rows); err != nil {
		return 0, &BulkOpError{Code: CodeBulkCreateFailed, Err: err}
	}
	return len(rows), nil
}

// numericProperty looks up a property by any of the given lowercase names and
// parses its value as a number. Comma decimal separators are accepted since
// many supplier files use them.
func numericProperty(m *models.PropertyMap, names ...string) *float64 {
	for _, key := range m.Keys() {
		lower := strings.ToLower(strings.TrimSpace(key))
		for _, want := range names {
			if lower != want {
				continue
			}
			v, _ := m.Get(key)
			switch t := v.(type) {
			case float64:
				f := t
				return &f
			case string:
				cleaned := strings.ReplaceAll(strings.TrimSpace(t), ",", ".")
				if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
					return &f
				}
			}
		}
	}
	return nil
}

func intProperty(m *models.PropertyMap, names ...string) *int {
	if f := numericProperty(m, names...); f != nil {
		n := int(*f)
		return &n
	}
	return nil
}
