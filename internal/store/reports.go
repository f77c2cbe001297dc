package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"lookout/internal/models"
)

const reportColumns = `id, device_id, status, time, size, size_bytes, duration,
	job_name, error_message, file_count, source_path, destination_path,
	compression_ratio, changed_files, deleted_files, added_files,
	modified_files, examining_files, was_verified, verification_result,
	verification_errors, last_verification, metadata`

// BackupReports lists reports matching the given filters, most recent
// event time first. Equal times are broken by id descending so the
// order is stable and agrees with LatestReportPerDevice.
func (s *SQLiteStore) BackupReports(f ReportFilters) ([]models.BackupReport, error) {
	query := "SELECT r." + reportColumns + " FROM backup_reports r WHERE 1=1"
	args := []any{}

	if f.Status != "" {
		query += " AND r.status = ?"
		args = append(args, f.Status)
	}

	if f.DateRange != "" {
		if cutoff, ok := RangeCutoff(f.DateRange, s.now()); ok {
			query += " AND r.time >= ?"
			args = append(args, formatTime(cutoff))
		}
	}

	if f.DeviceType != "" {
		query += " AND r.device_id IN (SELECT id FROM devices WHERE device_type = ?)"
		args = append(args, f.DeviceType)
	}

	query += " ORDER BY r.time DESC, r.id DESC"

	rows, err := s.q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list backup reports: %w", err)
	}
	defer rows.Close()
	return collectReports(rows)
}

// BackupReportsByDevice lists all reports for one device, most recent first.
func (s *SQLiteStore) BackupReportsByDevice(deviceID int64) ([]models.BackupReport, error) {
	rows, err := s.q.Query(
		"SELECT "+reportColumns+" FROM backup_reports WHERE device_id = ? ORDER BY time DESC, id DESC",
		deviceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list device reports: %w", err)
	}
	defer rows.Close()
	return collectReports(rows)
}

// LatestReportPerDevice returns, for every device with at least one
// report, the report with the maximum event time. Ties on time go to
// the higher id (the later insert), the same rule BackupReports uses.
func (s *SQLiteStore) LatestReportPerDevice() ([]models.BackupReport, error) {
	rows, err := s.q.Query(`
		SELECT ` + reportColumns + ` FROM backup_reports r
		WHERE r.id = (
			SELECT r2.id FROM backup_reports r2
			WHERE r2.device_id = r.device_id
			ORDER BY r2.time DESC, r2.id DESC
			LIMIT 1
		)
		ORDER BY r.time DESC, r.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("latest report per device: %w", err)
	}
	defer rows.Close()
	return collectReports(rows)
}

// CreateBackupReport inserts a report and returns it with its id.
// The report's device must already exist.
func (s *SQLiteStore) CreateBackupReport(r *models.BackupReport) (*models.BackupReport, error) {
	metadata := r.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("encode report metadata: %w", err)
	}

	var lastVerification any
	if r.LastVerification != nil {
		lastVerification = formatTime(*r.LastVerification)
	}

	res, err := s.q.Exec(`
		INSERT INTO backup_reports (
			device_id, status, time, size, size_bytes, duration,
			job_name, error_message, file_count, source_path,
			destination_path, compression_ratio, changed_files,
			deleted_files, added_files, modified_files, examining_files,
			was_verified, verification_result, verification_errors,
			last_verification, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.DeviceID, r.Status, formatTime(r.Time), r.Size, r.SizeBytes, r.Duration,
		r.JobName, r.ErrorMessage, r.FileCount, r.SourcePath,
		r.DestinationPath, r.CompressionRatio, r.ChangedFiles,
		r.DeletedFiles, r.AddedFiles, r.ModifiedFiles, r.ExaminingFiles,
		boolInt(r.WasVerified), r.VerificationResult, r.VerificationErrors,
		lastVerification, string(metaJSON),
	)
	if err != nil {
		return nil, fmt.Errorf("insert backup report: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.backupReport(id)
}

func (s *SQLiteStore) backupReport(id int64) (*models.BackupReport, error) {
	row := s.q.QueryRow("SELECT "+reportColumns+" FROM backup_reports WHERE id = ?", id)
	r, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// DashboardStats counts all devices plus the per-status breakdown of
// the latest-report-per-device set. Devices without reports contribute
// to TotalDevices only, so the three counters need not sum to it.
func (s *SQLiteStore) DashboardStats() (*models.DashboardStats, error) {
	stats := &models.DashboardStats{}

	if err := s.q.QueryRow("SELECT COUNT(*) FROM devices").Scan(&stats.TotalDevices); err != nil {
		return nil, fmt.Errorf("count devices: %w", err)
	}

	latest, err := s.LatestReportPerDevice()
	if err != nil {
		return nil, err
	}

	for _, r := range latest {
		switch r.Status {
		case models.StatusSuccess:
			stats.HealthyBackups++
		case models.StatusWarning:
			stats.WarningBackups++
		case models.StatusFailed:
			stats.FailedBackups++
		}
	}
	return stats, nil
}

func collectReports(rows *sql.Rows) ([]models.BackupReport, error) {
	var out []models.BackupReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func scanReport(row rowScanner) (*models.BackupReport, error) {
	var r models.BackupReport
	var reportTime, metaJSON string
	var wasVerified int
	var lastVerification sql.NullString

	err := row.Scan(
		&r.ID, &r.DeviceID, &r.Status, &reportTime, &r.Size, &r.SizeBytes,
		&r.Duration, &r.JobName, &r.ErrorMessage, &r.FileCount,
		&r.SourcePath, &r.DestinationPath, &r.CompressionRatio,
		&r.ChangedFiles, &r.DeletedFiles, &r.AddedFiles, &r.ModifiedFiles,
		&r.ExaminingFiles, &wasVerified, &r.VerificationResult,
		&r.VerificationErrors, &lastVerification, &metaJSON,
	)
	if err != nil {
		return nil, err
	}

	r.Time = parseTime(reportTime)
	r.WasVerified = wasVerified == 1
	r.LastVerification = parseNullTime(lastVerification)
	r.Metadata = map[string]any{}
	json.Unmarshal([]byte(metaJSON), &r.Metadata)
	return &r, nil
}
