package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"storeadmin/internal/model"
	"storeadmin/pkg/utils"
)

func setupNotificationMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open gorm DB: %v", err)
	}

	return gormDB, mock
}

func TestNotificationRepository_GetByReason(t *testing.T) {
	db, mock := setupNotificationMockDB(t)
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()

	repo := NewNotificationRepository(db)
	ctx := context.Background()

	reason := model.ReasonMissingCampaignID
	rows := sqlmock.NewRows([]string{"id", "kind", "reason", "title", "read"}).
		AddRow(1, model.NotificationKindConfiguration, reason, "Campaign not configured", false)

	mock.ExpectQuery("SELECT \\* FROM `notifications` WHERE reason = \\? ORDER BY `notifications`.`id` LIMIT \\?").
		WithArgs(reason, 1).
		WillReturnRows(rows)

	notification, err := repo.GetByReason(ctx, reason)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if notification == nil || notification.Reason == nil || *notification.Reason != reason {
		t.Errorf("Expected notification for reason %s, got %+v", reason, notification)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestNotificationRepository_GetByReason_NotFound(t *testing.T) {
	db, mock := setupNotificationMockDB(t)
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()

	repo := NewNotificationRepository(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT \\* FROM `notifications`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByReason(ctx, model.ReasonMissingMailTransport)
	if !errors.Is(err, utils.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestNotificationRepository_MarkRead(t *testing.T) {
	db, mock := setupNotificationMockDB(t)
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()

	repo := NewNotificationRepository(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `notifications` SET `read`=\\? WHERE id = \\?").
		WithArgs(true, uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.MarkRead(ctx, 5); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestNotificationRepository_MarkRead_NotFound(t *testing.T) {
	db, mock := setupNotificationMockDB(t)
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()

	repo := NewNotificationRepository(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `notifications`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.MarkRead(ctx, 404)
	if !errors.Is(err, utils.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestNotificationRepository_CountUnread(t *testing.T) {
	db, mock := setupNotificationMockDB(t)
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()

	repo := NewNotificationRepository(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `notifications`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountUnread(ctx)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 unread, got %d", count)
	}
}
