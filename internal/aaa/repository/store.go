package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/smallbiznis/netbill/internal/aaa/domain"
	"gorm.io/gorm"
)

type store struct {
	db  *gorm.DB
	loc *time.Location
}

// NewStore builds the gorm-backed RADIUS store. aaaLoc is the zone the
// RADIUS server uses for radacct timestamps.
func NewStore(db *gorm.DB, aaaLoc *time.Location) domain.Store {
	if aaaLoc == nil {
		aaaLoc = time.UTC
	}
	return &store{db: db, loc: aaaLoc}
}

func (s *store) WithTrx(tx *gorm.DB) domain.Store {
	return &store{db: tx, loc: s.loc}
}

func (s *store) EarliestSessionStart(ctx context.Context, username string) (time.Time, bool, error) {
	if strings.TrimSpace(username) == "" {
		return time.Time{}, false, domain.ErrEmptyUsername
	}

	var row domain.RadAcct
	err := s.db.WithContext(ctx).
		Where("username = ? AND acctstarttime IS NOT NULL", username).
		Order("acctstarttime ASC").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return s.toUTC(*row.AcctStartTime), true, nil
}

func (s *store) OpenSessions(ctx context.Context, username string) ([]domain.Session, error) {
	if strings.TrimSpace(username) == "" {
		return nil, domain.ErrEmptyUsername
	}

	var rows []domain.RadAcct
	if err := s.db.WithContext(ctx).
		Where("username = ? AND acctstoptime IS NULL", username).
		Order("acctstarttime ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	sessions := make([]domain.Session, 0, len(rows))
	for _, row := range rows {
		session := domain.Session{
			Username:   row.Username,
			SessionID:  row.AcctSessionID,
			NASAddress: row.NASIPAddress,
			FramedIP:   row.FramedIPAddress,
		}
		if row.AcctStartTime != nil {
			session.StartedAt = s.toUTC(*row.AcctStartTime)
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func (s *store) PurgeCredentials(ctx context.Context, username string) (int64, error) {
	if strings.TrimSpace(username) == "" {
		return 0, domain.ErrEmptyUsername
	}

	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&domain.RadCheck{}, &domain.RadReply{}, &domain.RadUserGroup{}} {
			res := tx.Where("username = ?", username).Delete(model)
			if res.Error != nil {
				return res.Error
			}
			removed += res.RowsAffected
		}
		return nil
	})
	return removed, err
}

func (s *store) Isolate(ctx context.Context, req domain.IsolateRequest) error {
	if strings.TrimSpace(req.Username) == "" {
		return domain.ErrEmptyUsername
	}
	if strings.TrimSpace(req.Group) == "" {
		return domain.ErrInvalidGroup
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.Password != "" {
			if err := upsertPassword(tx, req.Username, req.Password); err != nil {
				return err
			}
		}
		if err := replaceGroup(tx, req.Username, req.Group, req.Priority); err != nil {
			return err
		}
		return tx.Where("username = ? AND attribute = ?", req.Username, domain.AttrFramedIPAddress).
			Delete(&domain.RadReply{}).Error
	})
}

func upsertPassword(tx *gorm.DB, username, password string) error {
	var check domain.RadCheck
	err := tx.Where("username = ? AND attribute = ?", username, domain.AttrCleartextPassword).Take(&check).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tx.Create(&domain.RadCheck{
			Username:  username,
			Attribute: domain.AttrCleartextPassword,
			Op:        ":=",
			Value:     password,
		}).Error
	}
	if err != nil {
		return err
	}
	if check.Value == password && check.Op == ":=" {
		return nil
	}
	return tx.Model(&domain.RadCheck{}).
		Where("id = ?", check.ID).
		Updates(map[string]any{"op": ":=", "value": password}).Error
}

func replaceGroup(tx *gorm.DB, username, group string, priority int) error {
	if err := tx.Where("username = ? AND groupname <> ?", username, group).
		Delete(&domain.RadUserGroup{}).Error; err != nil {
		return err
	}

	res := tx.Model(&domain.RadUserGroup{}).
		Where("username = ? AND groupname = ?", username, group).
		Update("priority", priority)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var existing int64
	if err := tx.Model(&domain.RadUserGroup{}).
		Where("username = ? AND groupname = ?", username, group).
		Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}
	return tx.Create(&domain.RadUserGroup{
		Username:  username,
		GroupName: group,
		Priority:  priority,
	}).Error
}

func (s *store) NASSecret(ctx context.Context, nasAddress string) (string, bool, error) {
	var nas domain.NAS
	err := s.db.WithContext(ctx).Where("nasname = ?", nasAddress).Take(&nas).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return nas.Secret, nas.Secret != "", nil
}

// toUTC reads the wall clock of t in the RADIUS server zone.
func (s *store) toUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), s.loc).UTC()
}
