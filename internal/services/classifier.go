package services

import (
	"strings"
)

// PropertyKind classifies where a column value is persisted.
type PropertyKind int

const (
	// PropertyKindCore marks product-identity values stored on Product.
	PropertyKindCore PropertyKind = iota
	// PropertyKindOffer marks commercial-term values stored on OfferProduct.
	PropertyKindOffer
)

// PropertyClassifier decides whether a named column belongs to the core
// product identity or to the offer's commercial terms. The supplier declares
// its offer properties; anything undeclared is core. Classification is
// deterministic, case-insensitive and never fails.
type PropertyClassifier struct {
	offerProps map[string]struct{}
}

// NewPropertyClassifier builds a classifier from the supplier's declared
// offer property names.
func NewPropertyClassifier(offerProperties []string) *PropertyClassifier {
	set := make(map[string]struct{}, len(offerProperties))
	for _, name := range offerProperties {
		set[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}
	return &PropertyClassifier{offerProps: set}
}

// Classify returns the kind for a property name.
func (c *PropertyClassifier) Classify(propertyName string) PropertyKind {
	if _, ok := c.offerProps[strings.ToLower(strings.TrimSpace(propertyName))]; ok {
		return PropertyKindOffer
	}
	return PropertyKindCore
}

func (k PropertyKind) String() string {
	if k == PropertyKindOffer {
		return "offer"
	}
	return "core"
}
