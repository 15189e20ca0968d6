package settings

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"storeadmin/internal/model"
	"storeadmin/internal/repository"
	"storeadmin/internal/upstream"
	"storeadmin/pkg/queue"
	"storeadmin/pkg/utils"
)

// fakeSettingsSource serves one settings payload or an error.
type fakeSettingsSource struct {
	settings *upstream.Settings
	err      error
}

func (f *fakeSettingsSource) FetchSettings(ctx context.Context) (*upstream.Settings, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.settings, nil
}

// fakeSettingsRepo single in-memory settings row.
type fakeSettingsRepo struct {
	row *model.Settings
}

func (f *fakeSettingsRepo) Get(ctx context.Context) (*model.Settings, error) {
	if f.row == nil {
		return nil, repository.ErrSettingsMissing
	}
	return f.row, nil
}

func (f *fakeSettingsRepo) Save(ctx context.Context, settings *model.Settings) error {
	f.row = settings
	return nil
}

// fakeNotificationStore in-memory notification set.
type fakeNotificationStore struct {
	nextID uint64
	rows   map[uint64]*model.Notification
}

func newFakeNotificationStore() *fakeNotificationStore {
	return &fakeNotificationStore{rows: make(map[uint64]*model.Notification)}
}

func (f *fakeNotificationStore) GetByID(ctx context.Context, id uint64) (*model.Notification, error) {
	if n, ok := f.rows[id]; ok {
		return n, nil
	}
	return nil, utils.ErrNotFound
}

func (f *fakeNotificationStore) GetByReason(ctx context.Context, reason string) (*model.Notification, error) {
	for _, n := range f.rows {
		if n.Reason != nil && *n.Reason == reason {
			return n, nil
		}
	}
	return nil, utils.ErrNotFound
}

func (f *fakeNotificationStore) ListConfiguration(ctx context.Context) ([]*model.Notification, error) {
	var out []*model.Notification
	for _, n := range f.rows {
		if n.IsConfiguration() {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNotificationStore) List(ctx context.Context) ([]*model.Notification, error) {
	var out []*model.Notification
	for _, n := range f.rows {
		out = append(out, n)
	}
	return out, nil
}

func (f *fakeNotificationStore) CountUnread(ctx context.Context) (int64, error) {
	var count int64
	for _, n := range f.rows {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationStore) Create(ctx context.Context, n *model.Notification) error {
	f.nextID++
	n.ID = f.nextID
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	f.rows[n.ID] = n
	return nil
}

func (f *fakeNotificationStore) MarkRead(ctx context.Context, id uint64) error {
	n, ok := f.rows[id]
	if !ok {
		return utils.ErrNotFound
	}
	n.Read = true
	return nil
}

func (f *fakeNotificationStore) Delete(ctx context.Context, id uint64) error {
	delete(f.rows, id)
	return nil
}

func (f *fakeNotificationStore) DeleteByReason(ctx context.Context, reason string) error {
	for id, n := range f.rows {
		if n.Reason != nil && *n.Reason == reason {
			delete(f.rows, id)
		}
	}
	return nil
}

func completeSettings() *upstream.Settings {
	return &upstream.Settings{
		APIToken:     "B.token",
		BusinessID:   "biz-1",
		MailHost:     "smtp.example.com",
		MailPort:     587,
		MailUsername: "mailer",
		MailPassword: "secret",
		MailSender:   "shop@example.com",
	}
}

func newTestMonitor(t *testing.T, source *fakeSettingsSource, onAuthExpired AuthExpiredHandler) (MonitorService, *fakeNotificationStore, *fakeSettingsRepo) {
	t.Helper()
	server := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })

	q := queue.NewMemoryQueue(nil)
	t.Cleanup(func() { q.Close() })

	notifications := newFakeNotificationStore()
	settingsRepo := &fakeSettingsRepo{}
	monitor := NewMonitorService(source, settingsRepo, notifications, client, q, time.Minute, onAuthExpired)
	return monitor, notifications, settingsRepo
}

func TestMonitor_HealthySettingsYieldNoNotifications(t *testing.T) {
	monitor, notifications, settingsRepo := newTestMonitor(t, &fakeSettingsSource{settings: completeSettings()}, nil)

	assert.NoError(t, monitor.Reconcile(context.Background()))
	assert.Empty(t, notifications.rows)
	assert.Equal(t, "B.token", settingsRepo.row.APIToken)
}

func TestMonitor_MissingMailTransport(t *testing.T) {
	settings := completeSettings()
	settings.MailHost = ""
	monitor, notifications, _ := newTestMonitor(t, &fakeSettingsSource{settings: settings}, nil)
	ctx := context.Background()

	assert.NoError(t, monitor.Reconcile(ctx))

	n, err := notifications.GetByReason(ctx, model.ReasonMissingMailTransport)
	assert.NoError(t, err)
	assert.False(t, n.Read)
	assert.Len(t, notifications.rows, 1)
}

func TestMonitor_MergePreservesReadAndCreatedAt(t *testing.T) {
	settings := completeSettings()
	settings.MailHost = ""
	monitor, notifications, _ := newTestMonitor(t, &fakeSettingsSource{settings: settings}, nil)
	ctx := context.Background()

	assert.NoError(t, monitor.Reconcile(ctx))
	n, _ := notifications.GetByReason(ctx, model.ReasonMissingMailTransport)
	createdAt := n.CreatedAt

	// operator reads it; the next cycle re-detects the same condition
	assert.NoError(t, monitor.MarkRead(ctx, n.ID))
	assert.NoError(t, monitor.Reconcile(ctx))

	after, err := notifications.GetByReason(ctx, model.ReasonMissingMailTransport)
	assert.NoError(t, err)
	assert.Equal(t, n.ID, after.ID)
	assert.True(t, after.Read)
	assert.Equal(t, createdAt, after.CreatedAt)
	assert.Len(t, notifications.rows, 1)
}

func TestMonitor_HealedPredicateRemovesNotification(t *testing.T) {
	settings := completeSettings()
	settings.MailHost = ""
	source := &fakeSettingsSource{settings: settings}
	monitor, notifications, _ := newTestMonitor(t, source, nil)
	ctx := context.Background()

	assert.NoError(t, monitor.Reconcile(ctx))
	assert.Len(t, notifications.rows, 1)

	source.settings = completeSettings()
	assert.NoError(t, monitor.Reconcile(ctx))
	assert.Empty(t, notifications.rows)
}

func TestMonitor_CampaignPredicateFollowsTokenShape(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		campaign string
		business string
		missing  bool
	}{
		{"legacy token with campaign", "legacy-token", "c-1", "", false},
		{"legacy token without campaign", "legacy-token", "", "biz-1", true},
		{"business token with business id", "B.token", "", "biz-1", false},
		{"business token without business id", "B.token", "c-1", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := completeSettings()
			settings.APIToken = tt.token
			settings.CampaignID = tt.campaign
			settings.BusinessID = tt.business
			monitor, notifications, _ := newTestMonitor(t, &fakeSettingsSource{settings: settings}, nil)

			assert.NoError(t, monitor.Reconcile(context.Background()))

			_, err := notifications.GetByReason(context.Background(), model.ReasonMissingCampaignID)
			if tt.missing {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, utils.ErrNotFound)
			}
		})
	}
}

func TestMonitor_TransientFetchFailureKeepsState(t *testing.T) {
	settings := completeSettings()
	settings.MailHost = ""
	source := &fakeSettingsSource{settings: settings}
	monitor, notifications, _ := newTestMonitor(t, source, nil)
	ctx := context.Background()

	assert.NoError(t, monitor.Reconcile(ctx))
	assert.Len(t, notifications.rows, 1)

	source.err = utils.ErrUpstreamUnavailable
	assert.Error(t, monitor.Reconcile(ctx))
	// previous notification state survives the failed fetch
	assert.Len(t, notifications.rows, 1)
}

func TestMonitor_AuthExpiredHaltsAndSignals(t *testing.T) {
	halted := make(chan struct{})
	source := &fakeSettingsSource{err: utils.ErrAuthExpired}
	monitor, notifications, _ := newTestMonitor(t, source, func() { close(halted) })

	err := monitor.Reconcile(context.Background())
	assert.True(t, utils.HasCode(err, utils.CodeAuthExpired), "got %v", err)
	assert.Empty(t, notifications.rows)

	select {
	case <-halted:
	case <-time.After(time.Second):
		t.Fatal("Expected the auth-expired handler to fire")
	}
}

func TestMonitor_WorkflowNotificationsPassThrough(t *testing.T) {
	monitor, notifications, _ := newTestMonitor(t, &fakeSettingsSource{settings: completeSettings()}, nil)
	ctx := context.Background()

	reason := model.ReasonUpstreamConfigurationRequired
	workflow := &model.Notification{
		Kind:   model.NotificationKindWorkflow,
		Reason: &reason,
		Title:  "Marketplace configuration required",
	}
	assert.NoError(t, notifications.Create(ctx, workflow))

	assert.NoError(t, monitor.Reconcile(ctx))

	// a reconcile with all predicates passing leaves foreign kinds alone
	kept, err := notifications.GetByReason(ctx, reason)
	assert.NoError(t, err)
	assert.Equal(t, workflow.ID, kept.ID)
}
