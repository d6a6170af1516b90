package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/anjia-dev/anjia-billing/internal/reconcile/domain"
)

type TransactionRepo struct {
	db *gorm.DB
}

func NewTransactionRepo(db *gorm.DB) *TransactionRepo {
	return &TransactionRepo{db: db}
}

func (r *TransactionRepo) FindByID(ctx context.Context, id uint) (*domain.BankTransaction, error) {
	var t domain.BankTransaction
	if err := r.db.WithContext(ctx).First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepo) ExistsByExternalID(ctx context.Context, externalID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.BankTransaction{}).
		Where("external_id = ?", externalID).Count(&count).Error
	return count > 0, err
}

func (r *TransactionRepo) ListByStatus(ctx context.Context, status domain.TxStatus) ([]*domain.BankTransaction, error) {
	q := r.db.WithContext(ctx)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var list []*domain.BankTransaction
	err := q.Order("occurred_at").Find(&list).Error
	return list, err
}

func (r *TransactionRepo) Create(ctx context.Context, tx *gorm.DB, t *domain.BankTransaction) error {
	return tx.WithContext(ctx).Create(t).Error
}

func (r *TransactionRepo) Save(ctx context.Context, tx *gorm.DB, t *domain.BankTransaction) error {
	return tx.WithContext(ctx).Save(t).Error
}

// ---------------------------------------------------------

type AliasRepo struct {
	db *gorm.DB
}

func NewAliasRepo(db *gorm.DB) *AliasRepo {
	return &AliasRepo{db: db}
}

func (r *AliasRepo) FindByName(ctx context.Context, name string) (*domain.PayerAlias, error) {
	var a domain.PayerAlias
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// CreateIfAbsent 靠唯一键 DoNothing 保证已有绑定不被覆盖
func (r *AliasRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, alias *domain.PayerAlias) (bool, error) {
	result := tx.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(alias)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ---------------------------------------------------------

type AuditRepo struct {
	db *gorm.DB
}

func NewAuditRepo(db *gorm.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) ListByTransaction(ctx context.Context, txID uint) ([]*domain.AuditEntry, error) {
	var list []*domain.AuditEntry
	err := r.db.WithContext(ctx).Where("transaction_id = ?", txID).Order("id").Find(&list).Error
	return list, err
}

func (r *AuditRepo) Create(ctx context.Context, tx *gorm.DB, e *domain.AuditEntry) error {
	return tx.WithContext(ctx).Create(e).Error
}

func (r *AuditRepo) DeleteByPayment(ctx context.Context, tx *gorm.DB, paymentID uint) (int64, error) {
	result := tx.WithContext(ctx).Where("payment_id = ?", paymentID).Delete(&domain.AuditEntry{})
	return result.RowsAffected, result.Error
}

func (r *AuditRepo) DeleteByPayout(ctx context.Context, tx *gorm.DB, payoutID uint) (int64, error) {
	result := tx.WithContext(ctx).Where("payout_id = ?", payoutID).Delete(&domain.AuditEntry{})
	return result.RowsAffected, result.Error
}
