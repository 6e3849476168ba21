package core

import "time"

// RawRecord is a transaction as it sits in the backing store: loosely typed
// and not guaranteed to follow the schema. Keys follow the stored shape
// (amount, date, categoryId, categoryName, categoryIcon, transactionType,
// note, createdAt, updatedAt, userId).
type RawRecord map[string]any

// Record field names.
const (
	FieldAmount          = "amount"
	FieldDate            = "date"
	FieldCategoryID      = "categoryId"
	FieldCategoryLegacy  = "category"
	FieldCategoryName    = "categoryName"
	FieldCategoryIcon    = "categoryIcon"
	FieldTransactionType = "transactionType"
	FieldNote            = "note"
	FieldCreatedAt       = "createdAt"
	FieldUpdatedAt       = "updatedAt"
	FieldUserID          = "userId"
)

// Record converts a validated transaction to its stored shape. Dates are
// written as RFC 3339 with the original offset preserved.
func (t Transaction) Record() RawRecord {
	r := RawRecord{
		FieldAmount:          t.Amount.String(),
		FieldDate:            t.Date.Format(time.RFC3339Nano),
		FieldCategoryID:      t.CategoryID,
		FieldCategoryName:    t.CategoryName,
		FieldCategoryIcon:    t.CategoryIcon,
		FieldTransactionType: string(t.Type),
		FieldUserID:          t.UserID,
	}
	if t.Note != "" {
		r[FieldNote] = t.Note
	}
	if !t.CreatedAt.IsZero() {
		r[FieldCreatedAt] = t.CreatedAt.UnixMilli()
	}
	if !t.UpdatedAt.IsZero() {
		r[FieldUpdatedAt] = t.UpdatedAt.UnixMilli()
	}
	return r
}
