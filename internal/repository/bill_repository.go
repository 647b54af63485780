package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"obligation-tracker/internal/model"
)

// BillRepository handles CRUD for recurring bills.
type BillRepository struct {
	db *gorm.DB
}

func NewBillRepository(db *gorm.DB) *BillRepository {
	return &BillRepository{db: db}
}

func (r *BillRepository) Create(ctx context.Context, bill *model.RecurringBill) error {
	if err := r.db.WithContext(ctx).Create(bill).Error; err != nil {
		return fmt.Errorf("create bill: %w", err)
	}
	return nil
}

func (r *BillRepository) ListByUser(ctx context.Context, userID uint) ([]model.RecurringBill, error) {
	var bills []model.RecurringBill
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("next_due_date ASC, id ASC").
		Find(&bills).Error; err != nil {
		return nil, err
	}
	return bills, nil
}

func (r *BillRepository) FindByID(ctx context.Context, userID, billID uint) (*model.RecurringBill, error) {
	var bill model.RecurringBill
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, billID).First(&bill).Error; err != nil {
		return nil, err
	}
	return &bill, nil
}

// MarkReminded stores the occurrence a reminder was sent for.
func (r *BillRepository) MarkReminded(ctx context.Context, bill *model.RecurringBill, due time.Time) error {
	if err := r.db.WithContext(ctx).Model(bill).Update("reminder_sent_for", due).Error; err != nil {
		return fmt.Errorf("mark bill reminded: %w", err)
	}
	bill.ReminderSentFor = &due
	return nil
}

// RecordOccurrence writes the expense generated from a bill occurrence and the advanced bill
// in one transaction. An expense whose idempotency key already exists is skipped; the
// returned flag reports whether a new expense row was written.
func (r *BillRepository) RecordOccurrence(ctx context.Context, expense *model.Expense, bill *model.RecurringBill) (bool, error) {
	var inserted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expense.Date = expense.Date.UTC()
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(expense)
		if res.Error != nil {
			return fmt.Errorf("create bill expense: %w", res.Error)
		}
		inserted = res.RowsAffected > 0

		if err := tx.Save(bill).Error; err != nil {
			return fmt.Errorf("advance bill: %w", err)
		}
		return nil
	})
	return inserted, err
}

// Delete removes a bill for the given user. Expenses it produced are kept.
func (r *BillRepository) Delete(ctx context.Context, userID, billID uint) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, billID).Delete(&model.RecurringBill{})
	if res.Error != nil {
		return fmt.Errorf("delete bill: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
