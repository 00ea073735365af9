package services

import (
	"fmt"
	"sort"
	"strings"

	"pricelist-service/internal/models"
)

// Well-known mapping keys routed to identity fields instead of the
// property bags. Matched case-insensitively.
const (
	FieldEAN         = "ean"
	FieldName        = "name"
	FieldDescription = "description"
)

// ProductCandidate is one data row lifted into domain shape, before any
// database reconciliation.
type ProductCandidate struct {
	Row             int
	EAN             string
	Name            string
	Description     *string
	CoreProperties  *models.PropertyMap
	OfferProperties *models.PropertyMap
}

type columnBinding struct {
	index int
	key   string
}

// RowNormalizer turns raw cell rows into ProductCandidates using the
// supplier's column mappings. Cells outside a mapping are ignored.
type RowNormalizer struct {
	bindings   []columnBinding
	classifier *PropertyClassifier
}

// NewRowNormalizer resolves the configured column letters into cell indices.
// Duplicate letters and unparsable letters are configuration errors.
func NewRowNormalizer(mappings map[string]string, classifier *PropertyClassifier) (*RowNormalizer, error) {
	seen := make(map[int]string, len(mappings))
	bindings := make([]columnBinding, 0, len(mappings))
	for letter, key := range mappings {
		idx, err := ColumnLetterToIndex(letter)
		if err != nil {
			return nil, err
		}
		if prior, dup := seen[idx]; dup {
			return nil, fmt.Errorf("column %q mapped twice (%q and %q)", strings.ToUpper(letter), prior, key)
		}
		seen[idx] = key
		bindings = append(bindings, columnBinding{index: idx, key: key})
	}
	sort.Slice(bindings, func(i, j int) bool { return bindings[i].index < bindings[j].index })
	return &RowNormalizer{bindings: bindings, classifier: classifier}, nil
}

// MapRow normalizes one annotated row. Rows whose EAN cell is blank or
// missing return (nil, nil): the caller counts them but does not treat them
// as errors.
func (n *RowNormalizer) MapRow(row AnnotatedRow) (*ProductCandidate, error) {
	candidate := &ProductCandidate{
		Row:             row.Index,
		CoreProperties:  models.NewPropertyMap(),
		OfferProperties: models.NewPropertyMap(),
	}

	for _, b := range n.bindings {
		if b.index >= len(row.Cells) {
			continue
		}
		value := strings.TrimSpace(row.Cells[b.index])
		if value == "" {
			continue
		}

		switch strings.ToLower(b.key) {
		case FieldEAN:
			candidate.EAN = value
		case FieldName:
			candidate.Name = value
		case FieldDescription:
			desc := value
			candidate.Description = &desc
		default:
			if n.classifier.Classify(b.key) == PropertyKindOffer {
				candidate.OfferProperties.Set(b.key, value)
			} else {
				candidate.CoreProperties.Set(b.key, value)
			}
		}
	}

	if candidate.EAN == "" {
		return nil, nil
	}

	// Subtitle context fills gaps only; cell values always win.
	for key, value := range row.Subtitle {
		switch strings.ToLower(key) {
		case FieldEAN, FieldName, FieldDescription:
			continue
		}
		if n.classifier.Classify(key) == PropertyKindOffer {
			if _, ok := candidate.OfferProperties.Get(key); !ok {
				candidate.OfferProperties.Set(key, value)
			}
		} else {
			if _, ok := candidate.CoreProperties.Get(key); !ok {
				candidate.CoreProperties.Set(key, value)
			}
		}
	}

	return candidate, nil
}

// ColumnLetterToIndex converts a spreadsheet column letter to a zero-based
// cell index: A is 0, Z is 25, AA is 26, AZ is 51, BA is 52.
func ColumnLetterToIndex(letter string) (int, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(letter))
	if trimmed == "" {
		return 0, fmt.Errorf("empty column letter")
	}
	idx := 0
	for _, ch := range trimmed {
		if ch < 'A' || ch > 'Z' {
			return 0, fmt.Errorf("invalid column letter %q", letter)
		}
		idx = idx*26 + int(ch-'A') + 1
	}
	return idx - 1, nil
}
