package client

import (
	"context"

	"storeadmin/internal/model"
	"storeadmin/internal/repository"
	"storeadmin/internal/upstream"
	"storeadmin/pkg/log"
	"storeadmin/pkg/snowflake"
	"storeadmin/pkg/utils"
)

// orderStore is the slice of the order repository the linker touches.
type orderStore interface {
	GetByOrderNo(ctx context.Context, orderNo string) (*model.Order, error)
	MarkHasClient(ctx context.Context, id uint64) error
}

// marketplaceClients mirrors created clients back to the marketplace
// directory.
type marketplaceClients interface {
	CreateClientFromOrder(ctx context.Context, externalID string, email string, name *string) (*upstream.ClientRecord, error)
}

// LinkOutcome classifies what happened to an order-client link attempt.
type LinkOutcome int8

const (
	// OutcomeLinked the order was attached to an existing client
	OutcomeLinked LinkOutcome = iota + 1
	// OutcomeCreated a new client was created and the order attached
	OutcomeCreated
	// OutcomeNeedsEmail no buyer identity resolved; operator must supply one
	OutcomeNeedsEmail
)

// String readable outcome name
func (o LinkOutcome) String() string {
	switch o {
	case OutcomeLinked:
		return "linked"
	case OutcomeCreated:
		return "created"
	case OutcomeNeedsEmail:
		return "needs_email"
	default:
		return "unknown"
	}
}

// LinkResult is the linker verdict for one order.
type LinkResult struct {
	Outcome LinkOutcome   `json:"outcome"`
	Client  *model.Client `json:"client,omitempty"`
}

// LinkerService attaches orders to client records. Matching is by the
// buyer email embedded in the order; orders without one go through the
// interactive path where the operator supplies the email.
type LinkerService interface {
	// Link attempts the automatic match for an order
	Link(ctx context.Context, orderNo string) (*LinkResult, error)

	// CreateFromOrder is the interactive path: the operator supplies the
	// email (and optionally a name) the automatic match could not resolve.
	CreateFromOrder(ctx context.Context, orderNo, email string, name *string) (*LinkResult, error)

	// GetClient loads one client with purchases and orders
	GetClient(ctx context.Context, id uint64) (*model.Client, error)

	// ListClients pages through known clients
	ListClients(ctx context.Context, page, pageSize int) ([]*model.Client, int64, error)
}

// linkerService client linker implementation
type linkerService struct {
	clientRepo  repository.ClientRepository
	orderRepo   orderStore
	marketplace marketplaceClients
	idGenerator *snowflake.IDGenerator
}

// NewLinkerService creates a client linker
func NewLinkerService(
	clientRepo repository.ClientRepository,
	orderRepo orderStore,
	marketplace marketplaceClients,
	idGenerator *snowflake.IDGenerator,
) LinkerService {
	return &linkerService{
		clientRepo:  clientRepo,
		orderRepo:   orderRepo,
		marketplace: marketplace,
		idGenerator: idGenerator,
	}
}

// GetClient loads one client
func (s *linkerService) GetClient(ctx context.Context, id uint64) (*model.Client, error) {
	return s.clientRepo.GetByID(ctx, id)
}

// ListClients pages through known clients
func (s *linkerService) ListClients(ctx context.Context, page, pageSize int) ([]*model.Client, int64, error) {
	return s.clientRepo.List(ctx, page, pageSize)
}

// Link attempts the automatic match for an order
func (s *linkerService) Link(ctx context.Context, orderNo string) (*LinkResult, error) {
	order, err := s.orderRepo.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}

	// already attributed: duplicate-safe no-op
	if clientID, linked, err := s.clientRepo.HasOrder(ctx, order.ExternalID); err != nil {
		return nil, err
	} else if linked {
		existing, err := s.clientRepo.GetByID(ctx, clientID)
		if err != nil {
			return nil, err
		}
		return &LinkResult{Outcome: OutcomeLinked, Client: existing}, nil
	}

	if order.BuyerEmail == nil || utils.IsBlank(*order.BuyerEmail) {
		return &LinkResult{Outcome: OutcomeNeedsEmail}, nil
	}

	existing, err := s.clientRepo.GetByEmail(ctx, utils.NormalizeEmail(*order.BuyerEmail))
	if err != nil {
		if utils.HasCode(err, utils.CodeClientNotFound) {
			return &LinkResult{Outcome: OutcomeNeedsEmail}, nil
		}
		return nil, err
	}

	if err := s.attach(ctx, existing, order); err != nil {
		return nil, err
	}
	return &LinkResult{Outcome: OutcomeLinked, Client: existing}, nil
}

// CreateFromOrder is the interactive path with an operator-supplied email
func (s *linkerService) CreateFromOrder(ctx context.Context, orderNo, email string, name *string) (*LinkResult, error) {
	order, err := s.orderRepo.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}

	if utils.IsBlank(email) {
		return nil, utils.NewMissingRequiredField("email")
	}
	normalized := utils.NormalizeEmail(email)
	if !utils.IsValidEmail(normalized) {
		return nil, utils.NewError(utils.CodeInvalidParam, "invalid email address")
	}

	// duplicate-safe: retrying the same order is a Linked no-op
	if clientID, linked, err := s.clientRepo.HasOrder(ctx, order.ExternalID); err != nil {
		return nil, err
	} else if linked {
		existing, err := s.clientRepo.GetByID(ctx, clientID)
		if err != nil {
			return nil, err
		}
		return &LinkResult{Outcome: OutcomeLinked, Client: existing}, nil
	}

	existing, err := s.clientRepo.GetByEmail(ctx, normalized)
	if err == nil {
		if err := s.attach(ctx, existing, order); err != nil {
			return nil, err
		}
		return &LinkResult{Outcome: OutcomeLinked, Client: existing}, nil
	}
	if !utils.HasCode(err, utils.CodeClientNotFound) {
		return nil, err
	}

	created := &model.Client{
		ID:    uint64(s.idGenerator.NextID()),
		Email: normalized,
		Name:  name,
	}
	if err := s.clientRepo.Create(ctx, created); err != nil {
		return nil, err
	}

	log.WithFields(map[string]interface{}{
		"client_id": created.ID,
		"order_no":  order.OrderNo,
	}).Info("Client created from order")

	// best effort: the local record is the source of truth, the
	// marketplace directory catches up on the next attempt
	if _, err := s.marketplace.CreateClientFromOrder(ctx, order.ExternalID, normalized, name); err != nil {
		log.WithError(err).WithFields(map[string]interface{}{
			"order_no": order.OrderNo,
		}).Warn("Failed to mirror client to the marketplace")
	}

	if err := s.attach(ctx, created, order); err != nil {
		return nil, err
	}
	return &LinkResult{Outcome: OutcomeCreated, Client: created}, nil
}

// attach records the order and its quantities on the client and flips the
// order's has_client flag (monotonic, flips once).
func (s *linkerService) attach(ctx context.Context, client *model.Client, order *model.Order) error {
	purchases := make(map[uint64]int, len(order.Items))
	for _, item := range order.Items {
		purchases[item.ProductID] += item.Quantity
	}

	if err := s.clientRepo.AttachOrder(ctx, client.ID, order.ExternalID, purchases); err != nil {
		return err
	}
	return s.orderRepo.MarkHasClient(ctx, order.ID)
}
