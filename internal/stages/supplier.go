package stages

import (
	"context"
	"fmt"
	"strings"

	"texforge/internal/asset"
	"texforge/internal/logging"
)

// Supplier resolves the effective supplier of the asset's source. An unknown
// or missing supplier is recorded on the context rather than returned; the
// skip stage decides what happens to the asset.
type Supplier struct {
	base
}

// NewSupplier constructs the supplier determination stage.
func NewSupplier() *Supplier { return &Supplier{} }

// Name returns the stage name.
func (s *Supplier) Name() string { return NameSupplier }

// Execute records EffectiveSupplier and, when it cannot be resolved, SupplierError.
func (s *Supplier) Execute(_ context.Context, ac *asset.Context) error {
	identifier := strings.TrimSpace(ac.Source.SupplierOverride)
	origin := "override"
	if identifier == "" {
		identifier = strings.TrimSpace(ac.Source.SupplierIdentifier)
		origin = "identifier"
	}
	ac.EffectiveSupplier = identifier

	switch {
	case identifier == "":
		ac.SupplierError = "source declares neither a supplier override nor a supplier identifier"
	case !ac.Config.IsKnownSupplier(identifier):
		ac.SupplierError = fmt.Sprintf("supplier %q is not in the known-suppliers table", identifier)
	}

	if ac.SupplierError != "" {
		logging.WarnWithContext(
			s.log(),
			"supplier unresolved",
			"supplier_unresolved",
			logging.String("supplier", identifier),
			logging.String("reason", ac.SupplierError),
			logging.String(logging.FieldErrorHint, "add the supplier to [suppliers] or set supplier_override"),
			logging.String(logging.FieldImpact, "asset will fail"),
		)
		return nil
	}
	s.log().Debug(
		"supplier resolved",
		logging.Args(append(logging.DecisionAttrs("supplier", identifier, origin),
			logging.String(logging.FieldEventType, "supplier_resolved"))...)...,
	)
	return nil
}
