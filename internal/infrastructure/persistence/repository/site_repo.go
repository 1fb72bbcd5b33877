package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/expense-batchpay/internal/application/port"
	"github.com/garyjia/expense-batchpay/internal/domain/entity"
	"go.uber.org/zap"
)

// SiteRepository implements port.SiteRepository
type SiteRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSiteRepository creates a new site repository
func NewSiteRepository(db *sql.DB, logger *zap.Logger) port.SiteRepository {
	return &SiteRepository{
		db:     db,
		logger: logger,
	}
}

// UpdateStatistics adds amount to the site's totals. A payment moves the
// paid total and count; anything else moves the submitted total.
func (r *SiteRepository) UpdateStatistics(ctx context.Context, siteID int64, amount float64, isPayment bool) error {
	query := `
		UPDATE sites
		SET total_expenses = total_expenses + ?, updated_at = ?
		WHERE id = ?
	`
	if isPayment {
		query = `
			UPDATE sites
			SET total_paid = total_paid + ?, payment_count = payment_count + 1, updated_at = ?
			WHERE id = ?
		`
	}

	result, err := executorFor(ctx, r.db).ExecContext(ctx, query, amount, utc(time.Now()), siteID)
	if err != nil {
		r.logger.Error("Failed to update site statistics",
			zap.Int64("site_id", siteID),
			zap.Bool("is_payment", isPayment),
			zap.Error(err))
		return fmt.Errorf("failed to update site statistics: %w", err)
	}

	return expectOneRow(result, "site", siteID)
}

// GetByID retrieves a site by ID; nil when absent
func (r *SiteRepository) GetByID(ctx context.Context, id int64) (*entity.Site, error) {
	query := `
		SELECT id, name, code, total_expenses, total_paid, payment_count, updated_at
		FROM sites
		WHERE id = ?
	`

	var site entity.Site
	err := executorFor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&site.ID,
		&site.Name,
		&site.Code,
		&site.TotalExpenses,
		&site.TotalPaid,
		&site.PaymentCount,
		&site.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get site", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get site: %w", err)
	}

	return &site, nil
}

// Verify interface compliance
var _ port.SiteRepository = (*SiteRepository)(nil)
