package usecase

import (
	"context"
	"testing"
	"time"

	"newsroom-backend/internal/notification/domain"
	"newsroom-backend/internal/notification/repository"
	rdomain "newsroom-backend/internal/recipient/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestFanoutPersistsThroughStore(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.Notification{}))

	store := repository.NewNotificationRepository(db, time.Hour, zap.NewNop())
	resolver := &fakeResolver{targets: []rdomain.Target{
		user("42", []string{"w1"}, nil),
		user("43", nil, []string{"m1"}),
		user("user-7", nil, nil),
	}}
	fanout := NewFanout(NewComposer("en"), resolver, &fakeGateway{}, &fakeCleaner{}, store, zap.NewNop())

	rep := fanout.Run(context.Background(), breaking)
	fanout.Wait()

	require.NoError(t, rep.Err)
	assert.Equal(t, StateDone, rep.State)
	assert.Equal(t, 3, rep.Recipients)
	assert.Equal(t, 3, rep.Persisted)

	for _, rid := range []string{"42", "43", "user-7"} {
		page, err := store.List(context.Background(), rid, domain.Filter{}, 1, 20)
		require.NoError(t, err)
		require.Len(t, page.Items, 1, rid)
		assert.Equal(t, domain.TypeBreakingNews, page.Items[0].Type)
		assert.False(t, page.Items[0].IsRead)
	}
}
