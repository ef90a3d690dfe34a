package postgres

import (
	"context"
	"time"

	domainerrors "authgate/internal/domain/errors"
	"authgate/internal/domain/repository"
	"authgate/internal/infra/persistence/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type sessionRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSessionRepository returns a SessionRepository backed by the 'sessions' table.
func NewSessionRepository(db *gorm.DB) repository.SessionRepository {
	return &sessionRepository{
		db:  db,
		now: time.Now,
	}
}

func (repo *sessionRepository) Find(ctx context.Context, token string) ([]byte, bool, error) {
	var sessionM model.SessionModel
	err := repo.db.WithContext(ctx).
		Where("token = ? AND expiry > ?", token, repo.now().UTC()).
		First(&sessionM).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}

		return nil, false, domainerrors.NewDatabaseExecuteError(err, "failed to find session")
	}

	return sessionM.Data, true, nil
}

func (repo *sessionRepository) Commit(ctx context.Context, token string, data []byte, expiry time.Time) error {
	sessionM := &model.SessionModel{
		Token:  token,
		Data:   data,
		Expiry: expiry.UTC(),
	}

	err := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "expiry"}),
		}).
		Create(sessionM).Error
	if err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to commit session")
	}

	return nil
}

func (repo *sessionRepository) Delete(ctx context.Context, token string) error {
	if err := repo.db.WithContext(ctx).Where("token = ?", token).Delete(&model.SessionModel{}).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to delete session")
	}

	return nil
}

func (repo *sessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result := repo.db.WithContext(ctx).Where("expiry <= ?", repo.now().UTC()).Delete(&model.SessionModel{})
	if result.Error != nil {
		return 0, domainerrors.NewDatabaseExecuteError(result.Error, "failed to delete expired sessions")
	}

	return result.RowsAffected, nil
}
