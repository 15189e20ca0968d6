package settings

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"storeadmin/internal/model"
	"storeadmin/internal/monitor"
	"storeadmin/internal/repository"
	"storeadmin/internal/upstream"
	"storeadmin/pkg/lock"
	"storeadmin/pkg/log"
	"storeadmin/pkg/poller"
	"storeadmin/pkg/queue"
	"storeadmin/pkg/utils"
)

// predicate checks one configuration requirement against the settings.
type predicate struct {
	reason  string // stable id, notification identity across cycles
	title   string
	message string
	passes  func(s *model.Settings) bool
}

// predicates the fixed reconcile list. Order is presentation order.
var predicates = []predicate{
	{
		reason:  model.ReasonMissingUpstreamCredentials,
		title:   "Marketplace credentials missing",
		message: "No API token is configured; orders cannot be synced.",
		passes: func(s *model.Settings) bool {
			return s.APIToken != ""
		},
	},
	{
		reason:  model.ReasonMissingCampaignID,
		title:   "Campaign not configured",
		message: "The token shape requires a campaign or business id.",
		passes: func(s *model.Settings) bool {
			if s.APIToken == "" {
				// no token: the credentials predicate already covers it
				return true
			}
			if s.TokenIsBusinessShape() {
				return s.BusinessID != ""
			}
			return s.CampaignID != ""
		},
	},
	{
		reason:  model.ReasonMissingMailTransport,
		title:   "Mail transport incomplete",
		message: "Host, port, username, password and sender are all required to deliver activation mails.",
		passes: func(s *model.Settings) bool {
			return s.MailHost != "" && s.MailPort != 0 &&
				s.MailUsername != "" && s.MailPassword != "" && s.MailSender != ""
		},
	},
}

// settingsSource is the upstream surface the monitor needs.
type settingsSource interface {
	FetchSettings(ctx context.Context) (*upstream.Settings, error)
}

// MonitorService reconciles configuration notifications against the
// current settings on a fixed interval. Reconciling merges by reason id:
// existing notifications keep their read flag and creation time, healed
// predicates remove theirs, and operator actions (mark read, dismiss)
// are serialized with the reconcile under a redis lock so a poll that
// started earlier cannot clobber them.
type MonitorService interface {
	// Start begins the reconcile loop
	Start(ctx context.Context)

	// Stop halts the reconcile loop
	Stop()

	// Reconcile runs one cycle immediately
	Reconcile(ctx context.Context) error

	// List returns all notifications, newest first
	List(ctx context.Context) ([]*model.Notification, error)

	// MarkRead flags a notification read
	MarkRead(ctx context.Context, id uint64) error

	// Dismiss removes a notification
	Dismiss(ctx context.Context, id uint64) error

	// Settings returns the mirrored settings row
	Settings(ctx context.Context) (*model.Settings, error)

	// AutoActivationEnabled reports the mirrored global toggle
	AutoActivationEnabled(ctx context.Context) bool
}

// AuthExpiredHandler is called when the marketplace rejects the session.
type AuthExpiredHandler func()

// monitorService configuration monitor implementation
type monitorService struct {
	source           settingsSource
	settingsRepo     repository.SettingsRepository
	notificationRepo repository.NotificationRepository
	redis            *goredis.Client
	queue            queue.Queue
	onAuthExpired    AuthExpiredHandler

	poller *poller.Poller
}

// reconcileLockKey serializes reconcile cycles and operator actions.
const reconcileLockKey = "lock:notifications:reconcile"

// NewMonitorService creates a configuration monitor
func NewMonitorService(
	source settingsSource,
	settingsRepo repository.SettingsRepository,
	notificationRepo repository.NotificationRepository,
	redisClient *goredis.Client,
	q queue.Queue,
	interval time.Duration,
	onAuthExpired AuthExpiredHandler,
) MonitorService {
	s := &monitorService{
		source:           source,
		settingsRepo:     settingsRepo,
		notificationRepo: notificationRepo,
		redis:            redisClient,
		queue:            q,
		onAuthExpired:    onAuthExpired,
	}
	s.poller = poller.New("settings:reconcile", interval, s.Reconcile, func(err error) {
		log.WithError(err).Warn("Configuration reconcile cycle failed")
	})
	return s
}

// Start begins the reconcile loop
func (s *monitorService) Start(ctx context.Context) {
	s.poller.Start(ctx)
}

// Stop halts the reconcile loop
func (s *monitorService) Stop() {
	s.poller.Stop()
}

// Settings returns the mirrored settings row
func (s *monitorService) Settings(ctx context.Context) (*model.Settings, error) {
	return s.settingsRepo.Get(ctx)
}

// AutoActivationEnabled reports the mirrored global toggle
func (s *monitorService) AutoActivationEnabled(ctx context.Context) bool {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return false
	}
	return settings.AutoActivation
}

// Reconcile runs one cycle: fetch settings, mirror them, merge the
// notification set. A failed fetch keeps the previous notifications
// (fail safe); expired auth halts the loop instead.
func (s *monitorService) Reconcile(ctx context.Context) error {
	start := time.Now()
	err := s.reconcile(ctx)
	monitor.Metrics().RecordReconcile(time.Since(start), err)
	return err
}

func (s *monitorService) reconcile(ctx context.Context) error {
	fetched, err := s.source.FetchSettings(ctx)
	if err != nil {
		if utils.HasCode(err, utils.CodeAuthExpired) {
			log.Warn("Marketplace session expired, halting configuration monitor")
			// Stop waits for the in-flight cycle, so it cannot be called
			// from inside one
			go s.Stop()
			if s.onAuthExpired != nil {
				s.onAuthExpired()
			}
			return err
		}
		// transient: keep the last known notification state untouched
		return err
	}

	settings, err := s.mirror(ctx, fetched)
	if err != nil {
		return err
	}

	return s.withLock(ctx, func() error {
		if err := s.merge(ctx, settings); err != nil {
			return err
		}
		return s.publishSnapshot(ctx)
	})
}

// MarkRead flags a notification read
func (s *monitorService) MarkRead(ctx context.Context, id uint64) error {
	return s.withLock(ctx, func() error {
		if err := s.notificationRepo.MarkRead(ctx, id); err != nil {
			return err
		}
		return s.publishSnapshot(ctx)
	})
}

// Dismiss removes a notification
func (s *monitorService) Dismiss(ctx context.Context, id uint64) error {
	return s.withLock(ctx, func() error {
		if err := s.notificationRepo.Delete(ctx, id); err != nil {
			return err
		}
		return s.publishSnapshot(ctx)
	})
}

// List returns all notifications, newest first
func (s *monitorService) List(ctx context.Context) ([]*model.Notification, error) {
	return s.notificationRepo.List(ctx)
}

// mirror writes the fetched settings into the local row, preserving the
// row identity so the admin screens keep editing the same record.
func (s *monitorService) mirror(ctx context.Context, fetched *upstream.Settings) (*model.Settings, error) {
	row, err := s.settingsRepo.Get(ctx)
	if err != nil {
		if err != repository.ErrSettingsMissing {
			return nil, err
		}
		row = &model.Settings{ID: 1}
	}

	row.APIToken = fetched.APIToken
	row.CampaignID = fetched.CampaignID
	row.BusinessID = fetched.BusinessID
	row.MailHost = fetched.MailHost
	row.MailPort = fetched.MailPort
	row.MailUsername = fetched.MailUsername
	row.MailPassword = fetched.MailPassword
	row.MailSender = fetched.MailSender
	row.AutoActivation = fetched.AutoActivation

	if err := s.settingsRepo.Save(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// merge applies the predicate results onto the stored notification set.
// Existing rows keep read and createdAt; healed predicates delete theirs;
// non-configuration notifications are never touched.
func (s *monitorService) merge(ctx context.Context, settings *model.Settings) error {
	for _, p := range predicates {
		existing, err := s.notificationRepo.GetByReason(ctx, p.reason)
		notFound := utils.HasCode(err, utils.CodeNotFound)
		if err != nil && !notFound {
			return err
		}

		if p.passes(settings) {
			if !notFound {
				if err := s.notificationRepo.DeleteByReason(ctx, p.reason); err != nil {
					return err
				}
			}
			continue
		}

		if existing != nil {
			// re-detected: identity, read flag and createdAt stay as they are
			continue
		}

		reason := p.reason
		notification := &model.Notification{
			Kind:    model.NotificationKindConfiguration,
			Reason:  &reason,
			Title:   p.title,
			Message: p.message,
		}
		if err := s.notificationRepo.Create(ctx, notification); err != nil {
			return err
		}
	}
	return nil
}

// withLock serializes a mutation of the notification set
func (s *monitorService) withLock(ctx context.Context, fn func() error) error {
	l := lock.NewRedisLock(s.redis, reconcileLockKey, utils.GenerateRandomString(16), 10*time.Second)
	if err := l.TryLock(ctx, 20, 50*time.Millisecond); err != nil {
		return err
	}
	defer func() {
		if err := l.Unlock(context.Background()); err != nil {
			log.WithError(err).Warn("Failed to release reconcile lock")
		}
	}()
	return fn()
}

// publishSnapshot fans the current notification set out to SPA subscribers
func (s *monitorService) publishSnapshot(ctx context.Context) error {
	notifications, err := s.notificationRepo.List(ctx)
	if err != nil {
		return err
	}
	unread, err := s.notificationRepo.CountUnread(ctx)
	if err != nil {
		return err
	}

	flat := make([]model.Notification, 0, len(notifications))
	for _, n := range notifications {
		flat = append(flat, *n)
	}
	event := model.NotificationEvent{
		Unread:        unread,
		Notifications: flat,
		Timestamp:     time.Now().Unix(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.queue.Publish(ctx, queue.TopicNotifications, payload)
}
