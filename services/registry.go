package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-pos/models"
	"gorm.io/gorm"
)

// TableRegistry is the single source of truth for table occupancy. Opening a
// session is serialized per table in-process, and the unique open_table_id index
// rejects a second open session from any other process.
type TableRegistry struct {
	db      *gorm.DB
	locks   *keyedMutex
	metrics *Metrics
	log     *logrus.Logger
}

func NewTableRegistry(db *gorm.DB, metrics *Metrics, log *logrus.Logger) *TableRegistry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &TableRegistry{
		db:      db,
		locks:   newKeyedMutex(),
		metrics: metrics,
		log:     log,
	}
}

// LockTable holds the table's lock until the returned func is called. Callers
// that open or close sessions inside their own transaction take it first.
func (r *TableRegistry) LockTable(tableID uint) func() {
	return r.locks.Lock(tableID)
}

// OpenSession marks the table as occupied by orderID.
func (r *TableRegistry) OpenSession(ctx context.Context, tableID, orderID uint) (*models.TableSession, error) {
	unlock := r.LockTable(tableID)
	defer unlock()

	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	session, err := r.OpenSessionTx(tx, tableID, orderID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	r.SessionOpened()
	return session, nil
}

// OpenSessionTx opens the session inside tx. The caller must hold LockTable and
// call SessionOpened once tx commits.
func (r *TableRegistry) OpenSessionTx(tx *gorm.DB, tableID, orderID uint) (*models.TableSession, error) {
	var table models.Table
	if err := tx.First(&table, tableID).Error; err != nil {
		return nil, lookupErr("table", tableID, err)
	}

	current, err := r.openSessionFor(tx, tableID)
	if err != nil {
		return nil, err
	}
	if current != nil {
		return nil, tableOccupied(current)
	}

	openID := tableID
	session := models.TableSession{
		TableID:     tableID,
		OrderID:     orderID,
		OpenTableID: &openID,
		StartedAt:   time.Now(),
	}
	if err := tx.Create(&session).Error; err != nil {
		// Another process won the race; the unique index is what stopped us.
		if current, lookup := r.openSessionFor(tx, tableID); lookup == nil && current != nil {
			return nil, tableOccupied(current)
		}
		return nil, fmt.Errorf("failed to open session on table %d: %w", tableID, err)
	}

	r.log.WithFields(logrus.Fields{"table_id": tableID, "order_id": orderID}).Info("table session opened")
	return &session, nil
}

// CloseSession frees the table. Closing a table that is already free is a no-op.
// A session whose order is still live is refused with TableAlreadyOccupied and the
// session and order attached; that order has to be cancelled or checked out, which
// closes the session itself.
func (r *TableRegistry) CloseSession(ctx context.Context, tableID uint) error {
	unlock := r.LockTable(tableID)
	defer unlock()

	db := r.db.WithContext(ctx)
	var table models.Table
	if err := db.First(&table, tableID).Error; err != nil {
		return lookupErr("table", tableID, err)
	}

	current, err := r.openSessionFor(db, tableID)
	if err != nil || current == nil {
		return err
	}

	var order models.Order
	err = db.Select("id", "status", "table_id").First(&order, current.OrderID).Error
	switch {
	case err == nil && !order.Status.Terminal():
		return &Error{
			Kind:    KindConflict,
			Code:    CodeTableAlreadyOccupied,
			Message: fmt.Sprintf("table %d is held by live order %d", tableID, order.ID),
			Current: LiveSession{Session: current, Order: &order},
		}
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("failed to look up order %d: %w", current.OrderID, err)
	}

	closed, err := r.CloseSessionTx(db, tableID, &current.OrderID)
	if err != nil {
		return err
	}
	if closed {
		r.SessionClosed()
	}
	return nil
}

// LiveSession is the state attached when a release is refused.
type LiveSession struct {
	Session *models.TableSession `json:"session"`
	Order   *models.Order        `json:"order"`
}

// CloseSessionTx ends the open session on tableID inside tx, restricted to
// orderID when it is given. It reports whether a session was actually closed; the
// caller must hold LockTable and call SessionClosed after commit when it was.
func (r *TableRegistry) CloseSessionTx(tx *gorm.DB, tableID uint, orderID *uint) (bool, error) {
	q := tx.Model(&models.TableSession{}).Where("table_id = ? AND ended_at IS NULL", tableID)
	if orderID != nil {
		q = q.Where("order_id = ?", *orderID)
	}

	now := time.Now()
	res := q.Updates(map[string]interface{}{
		"ended_at":      now,
		"open_table_id": gorm.Expr("NULL"),
	})
	if res.Error != nil {
		return false, fmt.Errorf("failed to close session on table %d: %w", tableID, res.Error)
	}

	if res.RowsAffected > 0 {
		r.log.WithField("table_id", tableID).Info("table session closed")
	}
	return res.RowsAffected > 0, nil
}

// SessionOpened and SessionClosed keep the occupancy gauge in step with commits
// made through the Tx variants.
func (r *TableRegistry) SessionOpened() { r.metrics.tableOpened() }
func (r *TableRegistry) SessionClosed() { r.metrics.tableClosed() }

// ListOccupied returns every open session with its table, in table display order.
// It also resyncs the occupancy gauge.
func (r *TableRegistry) ListOccupied(ctx context.Context) ([]models.TableSession, error) {
	var sessions []models.TableSession
	err := r.db.WithContext(ctx).
		Joins("JOIN tables ON tables.id = table_sessions.table_id").
		Where("table_sessions.ended_at IS NULL").
		Order("tables.sort_order, tables.id").
		Preload("Table").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list occupied tables: %w", err)
	}
	r.metrics.SetOccupiedTables(len(sessions))
	return sessions, nil
}

// ActiveSession returns the open session on tableID, or nil when the table is free.
func (r *TableRegistry) ActiveSession(ctx context.Context, tableID uint) (*models.TableSession, error) {
	db := r.db.WithContext(ctx)
	var table models.Table
	if err := db.First(&table, tableID).Error; err != nil {
		return nil, lookupErr("table", tableID, err)
	}
	return r.openSessionFor(db, tableID)
}

func (r *TableRegistry) openSessionFor(db *gorm.DB, tableID uint) (*models.TableSession, error) {
	var session models.TableSession
	err := db.Where("table_id = ? AND ended_at IS NULL", tableID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up session on table %d: %w", tableID, err)
	}
	return &session, nil
}
