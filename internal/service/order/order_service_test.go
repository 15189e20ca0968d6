package order

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"storeadmin/internal/model"
	"storeadmin/internal/service/activation"
	"storeadmin/internal/service/client"
	"storeadmin/internal/upstream"
	"storeadmin/pkg/utils"
)

// fakeOrderRepo in-memory order store keyed by order number.
type fakeOrderRepo struct {
	orders map[string]*model.Order
}

func newFakeOrderRepo(orders ...*model.Order) *fakeOrderRepo {
	repo := &fakeOrderRepo{orders: make(map[string]*model.Order)}
	for _, o := range orders {
		repo.orders[o.OrderNo] = o
	}
	return repo
}

func (f *fakeOrderRepo) Create(ctx context.Context, order *model.Order) error {
	f.orders[order.OrderNo] = order
	return nil
}

func (f *fakeOrderRepo) GetByID(ctx context.Context, id uint64) (*model.Order, error) {
	for _, o := range f.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, utils.ErrOrderNotFound
}

func (f *fakeOrderRepo) GetByExternalID(ctx context.Context, externalID string) (*model.Order, error) {
	for _, o := range f.orders {
		if o.ExternalID == externalID {
			return o, nil
		}
	}
	return nil, utils.ErrOrderNotFound
}

func (f *fakeOrderRepo) GetByOrderNo(ctx context.Context, orderNo string) (*model.Order, error) {
	if o, ok := f.orders[orderNo]; ok {
		return o, nil
	}
	return nil, utils.ErrOrderNotFound
}

func (f *fakeOrderRepo) ExistsByExternalID(ctx context.Context, externalID string) (bool, error) {
	_, err := f.GetByExternalID(ctx, externalID)
	return err == nil, nil
}

func (f *fakeOrderRepo) ListExternalIDs(ctx context.Context) ([]string, error) {
	var ids []string
	for _, o := range f.orders {
		ids = append(ids, o.ExternalID)
	}
	return ids, nil
}

func (f *fakeOrderRepo) UpdateStatus(ctx context.Context, id uint64, from, to int8) (bool, error) {
	o, err := f.GetByID(ctx, id)
	if err != nil || o.Status != from {
		return false, err
	}
	o.Status = to
	return true, nil
}

func (f *fakeOrderRepo) MarkCompleted(ctx context.Context, id uint64, at time.Time) (bool, error) {
	o, err := f.GetByID(ctx, id)
	if err != nil || o.Status != model.OrderStatusProcessing {
		return false, err
	}
	o.Status = model.OrderStatusCompleted
	o.CompletedAt = &at
	return true, nil
}

func (f *fakeOrderRepo) MarkFinished(ctx context.Context, id uint64, at time.Time) (bool, error) {
	o, err := f.GetByID(ctx, id)
	if err != nil || o.Status != model.OrderStatusCompleted {
		return false, err
	}
	o.Status = model.OrderStatusFinished
	o.FinishedAt = &at
	return true, nil
}

func (f *fakeOrderRepo) MarkCancelled(ctx context.Context, id uint64, from int8, reason string) (bool, error) {
	o, err := f.GetByID(ctx, id)
	if err != nil || o.Status != from {
		return false, err
	}
	o.Status = model.OrderStatusCancelled
	o.CancelReason = &reason
	return true, nil
}

func (f *fakeOrderRepo) MarkItemsSent(ctx context.Context, orderID uint64, keys map[uint64]string, at time.Time) error {
	o, err := f.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	for i := range o.Items {
		if key, ok := keys[o.Items[i].ID]; ok {
			k := key
			o.Items[i].ActivationSent = true
			o.Items[i].ActivationKey = &k
			o.Items[i].SentAt = &at
		}
	}
	o.ActivationSent = o.AllItemsSent()
	return nil
}

func (f *fakeOrderRepo) MarkHasClient(ctx context.Context, id uint64) error {
	o, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	o.HasClient = true
	return nil
}

func (f *fakeOrderRepo) List(ctx context.Context, status int8, page, pageSize int) ([]*model.Order, int64, error) {
	var out []*model.Order
	for _, o := range f.orders {
		if status == 0 || o.Status == status {
			out = append(out, o)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeOrderRepo) ListByStatus(ctx context.Context, status int8, limit int) ([]*model.Order, error) {
	out, _, err := f.List(ctx, status, 1, limit)
	return out, err
}

// fakeNotificationRepo records created notifications.
type fakeNotificationRepo struct {
	byReason map[string]*model.Notification
	created  int
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{byReason: make(map[string]*model.Notification)}
}

func (f *fakeNotificationRepo) GetByID(ctx context.Context, id uint64) (*model.Notification, error) {
	return nil, utils.ErrNotFound
}

func (f *fakeNotificationRepo) GetByReason(ctx context.Context, reason string) (*model.Notification, error) {
	if n, ok := f.byReason[reason]; ok {
		return n, nil
	}
	return nil, utils.ErrNotFound
}

func (f *fakeNotificationRepo) ListConfiguration(ctx context.Context) ([]*model.Notification, error) {
	return nil, nil
}

func (f *fakeNotificationRepo) List(ctx context.Context) ([]*model.Notification, error) {
	return nil, nil
}

func (f *fakeNotificationRepo) CountUnread(ctx context.Context) (int64, error) { return 0, nil }

func (f *fakeNotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	f.created++
	if n.Reason != nil {
		f.byReason[*n.Reason] = n
	}
	return nil
}

func (f *fakeNotificationRepo) MarkRead(ctx context.Context, id uint64) error { return nil }
func (f *fakeNotificationRepo) Delete(ctx context.Context, id uint64) error   { return nil }
func (f *fakeNotificationRepo) DeleteByReason(ctx context.Context, reason string) error {
	return nil
}

// fakeMarketplace records transitions and optionally rejects them.
type fakeMarketplace struct {
	calls []string
	err   error
}

func (f *fakeMarketplace) TransitionOrder(ctx context.Context, externalID, action string, payload *upstream.TransitionPayload) (*upstream.Order, error) {
	f.calls = append(f.calls, action)
	if f.err != nil {
		return nil, f.err
	}
	return &upstream.Order{ID: externalID}, nil
}

// fakeTemplateRegistry serves templates from a map.
type fakeTemplateRegistry struct {
	templates map[uint64]*model.ActivationTemplate
}

func (f *fakeTemplateRegistry) Resolve(ctx context.Context, id uint64) (*model.ActivationTemplate, error) {
	if t, ok := f.templates[id]; ok {
		return t, nil
	}
	return nil, utils.ErrNotFound
}

func (f *fakeTemplateRegistry) List(ctx context.Context) ([]*model.ActivationTemplate, error) {
	return nil, nil
}

func (f *fakeTemplateRegistry) Refresh(ctx context.Context) error { return nil }

func ptr[T any](v T) *T { return &v }

// fakeLinker records link attempts and serves a canned result.
type fakeLinker struct {
	linked []string
	result *client.LinkResult
}

func (f *fakeLinker) Link(ctx context.Context, orderNo string) (*client.LinkResult, error) {
	f.linked = append(f.linked, orderNo)
	if f.result != nil {
		return f.result, nil
	}
	return &client.LinkResult{Outcome: client.OutcomeNeedsEmail}, nil
}

func newTestService(templates map[uint64]*model.ActivationTemplate, orders ...*model.Order) (OrderService, *fakeOrderRepo, *fakeNotificationRepo, *fakeMarketplace) {
	orderRepo := newFakeOrderRepo(orders...)
	notificationRepo := newFakeNotificationRepo()
	marketplace := &fakeMarketplace{}
	engine := activation.NewEngine(&fakeTemplateRegistry{templates: templates})
	service := NewOrderService(orderRepo, notificationRepo, engine, marketplace, &fakeLinker{})
	return service, orderRepo, notificationRepo, marketplace
}

func autoOrder() *model.Order {
	return &model.Order{
		ID:         1,
		ExternalID: "mkt-1",
		OrderNo:    "SA-1",
		Status:     model.OrderStatusProcessing,
		Items: []model.OrderItem{
			{ID: 100, OrderID: 1, ProductID: 7, ProductName: "Widget", TemplateID: ptr(uint64(1))},
			{ID: 101, OrderID: 1, ProductID: 8, ProductName: "Gadget", TemplateID: ptr(uint64(1))},
		},
	}
}

func autoTemplates() map[uint64]*model.ActivationTemplate {
	return map[uint64]*model.ActivationTemplate{
		1: {ID: 1, Name: "Instant", AutoKey: true},
		2: {ID: 2, Name: "Manual", AutoKey: false},
	}
}

func TestOrderService_AutoActivationThenComplete(t *testing.T) {
	service, repo, _, marketplace := newTestService(autoTemplates(), autoOrder())
	ctx := context.Background()

	order, err := service.SendActivation(ctx, "SA-1", nil)
	assert.NoError(t, err)
	assert.True(t, order.ActivationSent)
	for _, item := range order.Items {
		assert.True(t, item.ActivationSent)
		assert.NotNil(t, item.ActivationKey)
	}

	order, err = service.Complete(ctx, "SA-1")
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusCompleted, order.Status)
	assert.NotNil(t, order.CompletedAt)

	assert.Equal(t, []string{upstream.ActionSendActivation, upstream.ActionComplete}, marketplace.calls)
	assert.Equal(t, model.OrderStatusCompleted, repo.orders["SA-1"].Status)
}

func TestOrderService_CompleteIsIdempotent(t *testing.T) {
	service, _, _, marketplace := newTestService(autoTemplates(), autoOrder())
	ctx := context.Background()

	_, err := service.SendActivation(ctx, "SA-1", nil)
	assert.NoError(t, err)

	first, err := service.Complete(ctx, "SA-1")
	assert.NoError(t, err)

	second, err := service.Complete(ctx, "SA-1")
	assert.NoError(t, err)
	assert.Equal(t, first.Status, second.Status)

	// the duplicate complete never reached the marketplace
	assert.Equal(t, []string{upstream.ActionSendActivation, upstream.ActionComplete}, marketplace.calls)
}

func TestOrderService_CompleteRequiresActivation(t *testing.T) {
	service, _, _, _ := newTestService(autoTemplates(), autoOrder())

	_, err := service.Complete(context.Background(), "SA-1")
	assert.True(t, utils.HasCode(err, utils.CodeIllegalTransition), "got %v", err)
}

func TestOrderService_ManualKeyRequired(t *testing.T) {
	order := &model.Order{
		ID:         2,
		ExternalID: "mkt-2",
		OrderNo:    "SA-2",
		Status:     model.OrderStatusProcessing,
		Items: []model.OrderItem{
			{ID: 200, OrderID: 2, ProductID: 9, ProductName: "Keyed", TemplateID: ptr(uint64(2))},
		},
	}
	service, _, _, _ := newTestService(autoTemplates(), order)
	ctx := context.Background()

	_, err := service.SendActivation(ctx, "SA-2", nil)
	assert.True(t, utils.HasCode(err, utils.CodeMissingActivationKey), "got %v", err)

	updated, err := service.SendActivation(ctx, "SA-2", map[uint64]string{200: "KEY-123"})
	assert.NoError(t, err)
	assert.True(t, updated.ActivationSent)
	assert.Equal(t, "KEY-123", *updated.Items[0].ActivationKey)
}

func TestOrderService_BlockedOrderCannotSend(t *testing.T) {
	order := autoOrder()
	order.Items[0].TemplateID = nil
	service, _, _, marketplace := newTestService(autoTemplates(), order)

	_, err := service.SendActivation(context.Background(), "SA-1", nil)
	assert.True(t, utils.HasCode(err, utils.CodeMissingTemplate), "got %v", err)
	assert.Empty(t, marketplace.calls)
}

func TestOrderService_FulfillLifecycle(t *testing.T) {
	order := autoOrder()
	order.Status = model.OrderStatusPending
	service, _, _, marketplace := newTestService(autoTemplates(), order)
	ctx := context.Background()

	updated, err := service.Fulfill(ctx, "SA-1")
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusProcessing, updated.Status)

	// duplicate fulfill is a no-op, not an error
	again, err := service.Fulfill(ctx, "SA-1")
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusProcessing, again.Status)
	assert.Equal(t, []string{upstream.ActionFulfill}, marketplace.calls)
}

func TestOrderService_StaleTransitionDropped(t *testing.T) {
	order := autoOrder()
	order.Status = model.OrderStatusFinished
	service, _, _, marketplace := newTestService(autoTemplates(), order)

	// a stale fulfill confirmation after finish returns the current state
	current, err := service.Fulfill(context.Background(), "SA-1")
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusFinished, current.Status)
	assert.Empty(t, marketplace.calls)
}

func TestOrderService_FinishRunsClientLink(t *testing.T) {
	order := autoOrder()
	order.Status = model.OrderStatusCompleted
	orderRepo := newFakeOrderRepo(order)
	linker := &fakeLinker{result: &client.LinkResult{Outcome: client.OutcomeNeedsEmail}}
	engine := activation.NewEngine(&fakeTemplateRegistry{templates: autoTemplates()})
	service := NewOrderService(orderRepo, newFakeNotificationRepo(), engine, &fakeMarketplace{}, linker)
	ctx := context.Background()

	finished, link, err := service.Finish(ctx, "SA-1")
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusFinished, finished.Status)
	assert.NotNil(t, link)
	assert.Equal(t, client.OutcomeNeedsEmail, link.Outcome)
	assert.Equal(t, []string{"SA-1"}, linker.linked)

	// the duplicate finish is a no-op and does not re-run the match
	again, link, err := service.Finish(ctx, "SA-1")
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusFinished, again.Status)
	assert.Nil(t, link)
	assert.Equal(t, []string{"SA-1"}, linker.linked)
}

func TestOrderService_CancelGuards(t *testing.T) {
	tests := []struct {
		name    string
		status  int8
		wantErr bool
	}{
		{"pending cancellable", model.OrderStatusPending, false},
		{"processing cancellable", model.OrderStatusProcessing, false},
		{"completed not cancellable", model.OrderStatusCompleted, true},
		{"finished not cancellable", model.OrderStatusFinished, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := autoOrder()
			order.Status = tt.status
			service, _, _, _ := newTestService(autoTemplates(), order)

			_, err := service.Cancel(context.Background(), "SA-1", "buyer request")
			if tt.wantErr {
				assert.True(t, utils.HasCode(err, utils.CodeIllegalTransition), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOrderService_ConfigurationRequiredRaisesNotification(t *testing.T) {
	order := autoOrder()
	order.Status = model.OrderStatusPending
	service, _, notifications, marketplace := newTestService(autoTemplates(), order)
	marketplace.err = utils.ErrConfigurationRequired
	ctx := context.Background()

	_, err := service.Fulfill(ctx, "SA-1")
	assert.True(t, utils.HasCode(err, utils.CodeConfigurationRequired), "got %v", err)
	assert.Equal(t, 1, notifications.created)

	// a second rejection reuses the existing notification
	_, err = service.Fulfill(ctx, "SA-1")
	assert.Error(t, err)
	assert.Equal(t, 1, notifications.created)
}
