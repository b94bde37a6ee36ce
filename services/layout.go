package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/models"
	"gorm.io/gorm"
)

// LayoutService persists the display order of spaces and tables. A reorder is
// one batch: it either lands completely or leaves the old order in place.
type LayoutService struct {
	db       *gorm.DB
	notifier Notifier
	log      *logrus.Logger
}

func NewLayoutService(db *gorm.DB, notifier Notifier, log *logrus.Logger) *LayoutService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LayoutService{db: db, notifier: notifierOrNop(notifier), log: log}
}

// ListTables returns tables grouped by space order, then table order.
func (l *LayoutService) ListTables(ctx context.Context) ([]models.Table, error) {
	var tables []models.Table
	err := l.db.WithContext(ctx).
		Joins("LEFT JOIN spaces ON spaces.id = tables.space_id").
		Order("spaces.sort_order, tables.sort_order, tables.id").
		Preload("Space").
		Preload("TableType").
		Find(&tables).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return tables, nil
}

func (l *LayoutService) ListSpaces(ctx context.Context) ([]models.Space, error) {
	var spaces []models.Space
	if err := l.db.WithContext(ctx).Order("sort_order, id").Find(&spaces).Error; err != nil {
		return nil, fmt.Errorf("failed to list spaces: %w", err)
	}
	return spaces, nil
}

// ReorderTables gives ids[i] sort order i.
func (l *LayoutService) ReorderTables(ctx context.Context, ids []uint) error {
	if err := l.reorder(ctx, &models.Table{}, "table", ids); err != nil {
		return err
	}
	l.notifier.Notify(kds.Message{Event: kds.EventLayoutUpdate, Data: map[string]interface{}{"tables": ids}})
	return nil
}

// ReorderSpaces gives ids[i] sort order i.
func (l *LayoutService) ReorderSpaces(ctx context.Context, ids []uint) error {
	if err := l.reorder(ctx, &models.Space{}, "space", ids); err != nil {
		return err
	}
	l.notifier.Notify(kds.Message{Event: kds.EventLayoutUpdate, Data: map[string]interface{}{"spaces": ids}})
	return nil
}

func (l *LayoutService) reorder(ctx context.Context, model interface{}, what string, ids []uint) error {
	if len(ids) == 0 {
		return invalidInput("ids", "at least one %s id is required", what)
	}
	seen := make(map[uint]struct{}, len(ids))
	for i, id := range ids {
		if _, dup := seen[id]; dup {
			return invalidInput(fmt.Sprintf("ids[%d]", i), "%s %d is listed twice", what, id)
		}
		seen[id] = struct{}{}
	}

	tx := l.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	var found []uint
	if err := tx.Model(model).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to load %ss: %w", what, err)
	}
	if len(found) != len(ids) {
		tx.Rollback()
		existing := make(map[uint]struct{}, len(found))
		for _, id := range found {
			existing[id] = struct{}{}
		}
		for _, id := range ids {
			if _, ok := existing[id]; !ok {
				return notFound(what, id)
			}
		}
	}

	for pos, id := range ids {
		if err := tx.Model(model).Where("id = ?", id).Update("sort_order", pos).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to move %s %d: %w", what, id, err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	l.log.WithFields(logrus.Fields{"kind": what, "count": len(ids)}).Info("layout reordered")
	return nil
}
