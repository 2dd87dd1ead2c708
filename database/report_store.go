package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pothole-ingest-pipeline/models"

	"github.com/go-sql-driver/mysql"
)

const mysqlErrDuplicateEntry = 1062

const reportColumns = `fingerprint, tracking_id, latitude, longitude,
	damage_type, severity, urgency, explanation, gps, unparsed, raw_assessment,
	storage_ref, owner_id, owner_email, status, created_at`

// InsertReport persists a report keyed by its fingerprint. The fingerprint is
// the primary key, so if two submissions race on identical content exactly one
// insert succeeds; the loser gets ErrAlreadyExists and must fall back to
// LookupReport.
func (d *Database) InsertReport(ctx context.Context, r *models.Report) error {
	query := `
	INSERT INTO reports (` + reportColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := d.db.ExecContext(ctx, query,
		r.Fingerprint,
		r.TrackingID,
		r.Latitude,
		r.Longitude,
		r.Assessment.DamageType,
		r.Assessment.Severity,
		r.Assessment.Urgency,
		r.Assessment.Explanation,
		r.Assessment.GPS,
		r.Assessment.Unparsed,
		r.Assessment.Raw,
		r.StorageRef,
		r.OwnerID,
		r.OwnerEmail,
		r.Status,
		r.CreatedAt,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert report %s: %w", r.Fingerprint, err)
	}

	return nil
}

// LookupReport returns the report for a fingerprint, or ErrNotFound.
func (d *Database) LookupReport(ctx context.Context, fingerprint string) (*models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE fingerprint = ?`
	return d.scanReport(d.db.QueryRowContext(ctx, query, fingerprint))
}

// LookupByTrackingID returns the report carrying a tracking id, or ErrNotFound.
func (d *Database) LookupByTrackingID(ctx context.Context, trackingID string) (*models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE tracking_id = ?`
	return d.scanReport(d.db.QueryRowContext(ctx, query, trackingID))
}

// ListReportsByOwner returns all reports submitted by the given user, newest
// first.
func (d *Database) ListReportsByOwner(ctx context.Context, ownerID string) ([]*models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE owner_id = ? ORDER BY created_at DESC`

	rows, err := d.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports for owner %s: %w", ownerID, err)
	}
	defer rows.Close()

	var reports []*models.Report
	for rows.Next() {
		r, err := scanReportRow(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports for owner %s: %w", ownerID, err)
	}

	return reports, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (d *Database) scanReport(row *sql.Row) (*models.Report, error) {
	r, err := scanReportRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r, nil
}

func scanReportRow(row rowScanner) (*models.Report, error) {
	var r models.Report
	var explanation, raw sql.NullString

	err := row.Scan(
		&r.Fingerprint,
		&r.TrackingID,
		&r.Latitude,
		&r.Longitude,
		&r.Assessment.DamageType,
		&r.Assessment.Severity,
		&r.Assessment.Urgency,
		&explanation,
		&r.Assessment.GPS,
		&r.Assessment.Unparsed,
		&raw,
		&r.StorageRef,
		&r.OwnerID,
		&r.OwnerEmail,
		&r.Status,
		&r.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan report: %w", err)
	}

	r.Assessment.Explanation = explanation.String
	r.Assessment.Raw = raw.String
	return &r, nil
}
