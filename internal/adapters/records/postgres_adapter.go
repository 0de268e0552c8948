package records

import (
	"context"
	"time"

	"github.com/activmedica/backend/internal/domain/entities"
	"github.com/activmedica/backend/internal/domain/providers"
	"github.com/activmedica/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/activmedica/backend/pkg/errors"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
)

// PostgresAdapter implements the RecordStore provider on PostgreSQL.
type PostgresAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewPostgresAdapter creates a new PostgreSQL record store adapter.
func NewPostgresAdapter(client *postgres.Client) providers.RecordStore {
	return &PostgresAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Append inserts a report record. Records are never updated or deleted.
func (a *PostgresAdapter) Append(ctx context.Context, record *entities.ReportRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	row := goqu.Record{
		"id":         record.ID,
		"user_id":    record.UserID,
		"name":       record.Name,
		"pdf_url":    record.PDFURL,
		"created_at": record.CreatedAt,
	}

	query, args, err := a.db.Insert("report_records").Rows(row).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build record insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewRecordWriteError("failed to append report record", err)
	}

	return nil
}

// ListByUser returns the user's report records in insertion order.
func (a *PostgresAdapter) ListByUser(ctx context.Context, userID string) ([]*entities.ReportRecord, error) {
	query, args, err := a.db.From("report_records").
		Select("id", "user_id", "name", "pdf_url", "created_at").
		Where(goqu.Ex{"user_id": userID}).
		Order(goqu.I("created_at").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build record list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list report records", err)
	}
	defer rows.Close()

	var results []*entities.ReportRecord
	for rows.Next() {
		record := &entities.ReportRecord{}
		if err := rows.Scan(&record.ID, &record.UserID, &record.Name, &record.PDFURL, &record.CreatedAt); err != nil {
			return nil, apperrors.NewInternalError("failed to scan report record", err)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate report records", err)
	}

	return results, nil
}
