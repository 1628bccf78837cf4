package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/invoice-flow/internal/model"
)

// SaveResult records the outcome for a document, replacing any earlier row
// for the same content.
func (s *SQLiteStorage) SaveResult(ctx context.Context, entry *model.LedgerEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEntry(entry); err != nil {
		return err
	}

	processedAt := entry.ProcessedAt
	if processedAt.IsZero() {
		processedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO processed_documents (
			content_hash, filename, provider, invoice_date,
			amount_source, amount_converted, status, error, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_hash) DO UPDATE SET
			filename = excluded.filename,
			provider = excluded.provider,
			invoice_date = excluded.invoice_date,
			amount_source = excluded.amount_source,
			amount_converted = excluded.amount_converted,
			status = excluded.status,
			error = excluded.error,
			processed_at = excluded.processed_at`,
		entry.ContentHash,
		entry.Filename,
		nullString(entry.Provider),
		nullString(entry.InvoiceDate),
		nullString(entry.AmountSource),
		nullString(entry.AmountConverted),
		string(entry.Status),
		nullString(entry.Error),
		processedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save ledger entry: %w", err)
	}
	return nil
}

// GetResult returns the ledger row for contentHash or ErrNotFound.
func (s *SQLiteStorage) GetResult(ctx context.Context, contentHash string) (*model.LedgerEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, selectEntry+` WHERE content_hash = ?`, contentHash)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, contentHash)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}
	return entry, nil
}

// IsProcessed reports whether contentHash was processed successfully before.
func (s *SQLiteStorage) IsProcessed(ctx context.Context, contentHash string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM processed_documents WHERE content_hash = ? AND status = ?`,
		contentHash, string(model.StatusSuccess),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query ledger: %w", err)
	}
	return count > 0, nil
}

// ListResults returns the most recent rows, newest first. A non-positive
// limit returns every row.
func (s *SQLiteStorage) ListResults(ctx context.Context, limit int) ([]model.LedgerEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := selectEntry + ` ORDER BY processed_at DESC, filename`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

const selectEntry = `SELECT content_hash, filename, provider, invoice_date,
	amount_source, amount_converted, status, error, processed_at
	FROM processed_documents`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*model.LedgerEntry, error) {
	var (
		entry                                 model.LedgerEntry
		provider, date, amount, converted, ex sql.NullString
		status                                string
	)

	if err := row.Scan(
		&entry.ContentHash,
		&entry.Filename,
		&provider,
		&date,
		&amount,
		&converted,
		&status,
		&ex,
		&entry.ProcessedAt,
	); err != nil {
		return nil, err
	}

	entry.Provider = provider.String
	entry.InvoiceDate = date.String
	entry.AmountSource = amount.String
	entry.AmountConverted = converted.String
	entry.Status = model.ResultStatus(status)
	entry.Error = ex.String

	return &entry, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
