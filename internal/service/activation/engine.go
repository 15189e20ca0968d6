package activation

import (
	"context"
	"strings"

	"storeadmin/internal/model"
	"storeadmin/pkg/utils"
)

// DecisionKind classifies what activation delivery needs for an order.
type DecisionKind int8

const (
	// DecisionBlocked at least one item has no bound template
	DecisionBlocked DecisionKind = iota + 1
	// DecisionAutoReady every template generates its own key
	DecisionAutoReady
	// DecisionManualRequired at least one template needs an operator key
	DecisionManualRequired
)

// String readable kind name
func (k DecisionKind) String() string {
	switch k {
	case DecisionBlocked:
		return "blocked"
	case DecisionAutoReady:
		return "auto_ready"
	case DecisionManualRequired:
		return "manual_required"
	default:
		return "unknown"
	}
}

// ManualItem one order item whose template requires an operator key.
type ManualItem struct {
	ItemID      uint64 `json:"item_id"`
	ProductID   uint64 `json:"product_id"`
	ProductName string `json:"product_name"`
	TemplateID  uint64 `json:"template_id"`
}

// Decision is the engine verdict for one order.
type Decision struct {
	Kind DecisionKind `json:"kind"`
	// MissingTemplates product names without a bound template (Blocked only)
	MissingTemplates []string `json:"missing_templates,omitempty"`
	// ManualItems items needing an operator key (ManualRequired only)
	ManualItems []ManualItem `json:"manual_items,omitempty"`
}

// Engine decides how activation is delivered for an order.
type Engine interface {
	// Decide classifies an order. Orders with zero items never reach
	// this engine; if one does, ErrEmptyOrder is returned rather than
	// panicking.
	Decide(ctx context.Context, order *model.Order) (*Decision, error)

	// ValidateKeys checks the operator-supplied keys against a
	// ManualRequired decision. Every listed item needs a non-blank key.
	ValidateKeys(decision *Decision, keys map[uint64]string) error
}

// engine decision engine implementation
type engine struct {
	registry TemplateRegistry
}

// NewEngine creates a decision engine
func NewEngine(registry TemplateRegistry) Engine {
	return &engine{registry: registry}
}

// Decide classifies an order
func (e *engine) Decide(ctx context.Context, order *model.Order) (*Decision, error) {
	if len(order.Items) == 0 {
		return nil, utils.ErrEmptyOrder
	}

	var missing []string
	var manual []ManualItem

	// items sharing a template are evaluated independently; quantity is
	// irrelevant to the decision
	for _, item := range order.Items {
		if item.TemplateID == nil {
			missing = append(missing, item.ProductName)
			continue
		}

		template, err := e.registry.Resolve(ctx, *item.TemplateID)
		if err != nil {
			if utils.HasCode(err, utils.CodeNotFound) {
				missing = append(missing, item.ProductName)
				continue
			}
			return nil, err
		}

		if !template.AutoKey {
			manual = append(manual, ManualItem{
				ItemID:      item.ID,
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
				TemplateID:  template.ID,
			})
		}
	}

	if len(missing) > 0 {
		return &Decision{Kind: DecisionBlocked, MissingTemplates: missing}, nil
	}
	if len(manual) > 0 {
		return &Decision{Kind: DecisionManualRequired, ManualItems: manual}, nil
	}
	return &Decision{Kind: DecisionAutoReady}, nil
}

// ValidateKeys checks operator keys against a ManualRequired decision
func (e *engine) ValidateKeys(decision *Decision, keys map[uint64]string) error {
	if decision.Kind != DecisionManualRequired {
		return nil
	}
	for _, item := range decision.ManualItems {
		key, ok := keys[item.ItemID]
		if !ok || strings.TrimSpace(key) == "" {
			return utils.NewMissingActivationKey(item.ProductName)
		}
	}
	return nil
}
