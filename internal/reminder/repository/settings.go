package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/netbill/internal/reminder/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type settingsRepo struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) domain.SettingsRepository {
	return &settingsRepo{db: db}
}

func (r *settingsRepo) Get(ctx context.Context) (domain.Settings, bool, error) {
	var s domain.Settings
	err := r.db.WithContext(ctx).Where("id = ?", domain.SettingsID).Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Settings{}, false, nil
	}
	if err != nil {
		return domain.Settings{}, false, err
	}
	return s, true, nil
}

func (r *settingsRepo) Save(ctx context.Context, s domain.Settings) error {
	s.ID = domain.SettingsID
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"enabled", "hour", "offsets", "template", "updated_at"}),
		}).
		Create(&s).Error
}
