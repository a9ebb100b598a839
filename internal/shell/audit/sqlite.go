package audit

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/artpar/rollout/internal/core/phase"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// Records
// =============================================================================

// DeploymentAudit is the stored lifecycle record of one rollout attempt.
type DeploymentAudit struct {
	DeploymentID string         `json:"deployment_id"`
	Kind         string         `json:"kind"`
	Meta         map[string]any `json:"meta,omitempty"`
	Outcome      string         `json:"outcome"`
	OutcomeMeta  map[string]any `json:"outcome_meta,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   *time.Time     `json:"finished_at,omitempty"`
}

// PhaseLog is one stored phase boundary event.
type PhaseLog struct {
	ID           int64          `json:"id"`
	DeploymentID string         `json:"deployment_id"`
	Phase        string         `json:"phase"`
	Status       string         `json:"status"`
	Details      map[string]any `json:"details,omitempty"`
	LoggedAt     time.Time      `json:"logged_at"`
}

// ErrorLog is one stored classified error event.
type ErrorLog struct {
	ID           int64          `json:"id"`
	DeploymentID string         `json:"deployment_id"`
	Message      string         `json:"message"`
	Context      map[string]any `json:"context,omitempty"`
	LoggedAt     time.Time      `json:"logged_at"`
}

// =============================================================================
// SQLiteAuditor
// =============================================================================

// SQLiteAuditor persists the orchestrator audit trail in SQLite. It
// implements the orchestrator's Auditor contract and a query API for the
// HTTP surface.
type SQLiteAuditor struct {
	db *sqlx.DB
}

// NewSQLiteAuditor opens the audit database and runs migrations.
func NewSQLiteAuditor(dsn string) (*SQLiteAuditor, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, newStoreError("NewSQLiteAuditor", "", "failed to open database", ErrConnectionFailed)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, newStoreError("NewSQLiteAuditor", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, newStoreError("NewSQLiteAuditor", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteAuditor{db: db}, nil
}

// runMigrations applies embedded SQL migrations.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (a *SQLiteAuditor) Close() error {
	return a.db.Close()
}

// =============================================================================
// Auditor Contract
// =============================================================================

// StartDeploymentAudit opens the lifecycle record for a rollout attempt.
func (a *SQLiteAuditor) StartDeploymentAudit(ctx context.Context, deploymentID, kind string, meta map[string]any) error {
	metaJSON, err := encodeJSON(meta)
	if err != nil {
		return newStoreError("StartDeploymentAudit", deploymentID, err.Error(), ErrInvalidData)
	}

	_, err = a.db.NamedExecContext(ctx, `
		INSERT INTO deployment_audits (deployment_id, kind, meta, outcome, started_at)
		VALUES (:deployment_id, :kind, :meta, 'running', :started_at)
		ON CONFLICT(deployment_id) DO NOTHING`,
		map[string]any{
			"deployment_id": deploymentID,
			"kind":          kind,
			"meta":          metaJSON,
			"started_at":    time.Now().UTC().Format(time.RFC3339),
		})
	if err != nil {
		return newStoreError("StartDeploymentAudit", deploymentID, err.Error(), err)
	}
	return nil
}

// LogPhase records one phase boundary event.
func (a *SQLiteAuditor) LogPhase(ctx context.Context, deploymentID string, p phase.Phase, status string, details map[string]any) error {
	detailsJSON, err := encodeJSON(details)
	if err != nil {
		return newStoreError("LogPhase", deploymentID, err.Error(), ErrInvalidData)
	}

	_, err = a.db.NamedExecContext(ctx, `
		INSERT INTO phase_logs (deployment_id, phase, status, details, logged_at)
		VALUES (:deployment_id, :phase, :status, :details, :logged_at)`,
		map[string]any{
			"deployment_id": deploymentID,
			"phase":         string(p),
			"status":        status,
			"details":       detailsJSON,
			"logged_at":     time.Now().UTC().Format(time.RFC3339),
		})
	if err != nil {
		return newStoreError("LogPhase", deploymentID, err.Error(), err)
	}
	return nil
}

// LogError records one classified error event.
func (a *SQLiteAuditor) LogError(ctx context.Context, deploymentID string, cause error, errCtx map[string]any) error {
	ctxJSON, err := encodeJSON(errCtx)
	if err != nil {
		return newStoreError("LogError", deploymentID, err.Error(), ErrInvalidData)
	}

	_, err = a.db.NamedExecContext(ctx, `
		INSERT INTO error_logs (deployment_id, message, context, logged_at)
		VALUES (:deployment_id, :message, :context, :logged_at)`,
		map[string]any{
			"deployment_id": deploymentID,
			"message":       cause.Error(),
			"context":       ctxJSON,
			"logged_at":     time.Now().UTC().Format(time.RFC3339),
		})
	if err != nil {
		return newStoreError("LogError", deploymentID, err.Error(), err)
	}
	return nil
}

// EndDeploymentAudit closes the lifecycle record with its outcome.
func (a *SQLiteAuditor) EndDeploymentAudit(ctx context.Context, deploymentID, outcome string, meta map[string]any) error {
	metaJSON, err := encodeJSON(meta)
	if err != nil {
		return newStoreError("EndDeploymentAudit", deploymentID, err.Error(), ErrInvalidData)
	}

	_, err = a.db.NamedExecContext(ctx, `
		UPDATE deployment_audits
		SET outcome = :outcome, outcome_meta = :outcome_meta, finished_at = :finished_at
		WHERE deployment_id = :deployment_id`,
		map[string]any{
			"deployment_id": deploymentID,
			"outcome":       outcome,
			"outcome_meta":  metaJSON,
			"finished_at":   time.Now().UTC().Format(time.RFC3339),
		})
	if err != nil {
		return newStoreError("EndDeploymentAudit", deploymentID, err.Error(), err)
	}
	return nil
}

// =============================================================================
// Query API
// =============================================================================

type auditRow struct {
	DeploymentID string  `db:"deployment_id"`
	Kind         string  `db:"kind"`
	Meta         *string `db:"meta"`
	Outcome      string  `db:"outcome"`
	OutcomeMeta  *string `db:"outcome_meta"`
	StartedAt    string  `db:"started_at"`
	FinishedAt   *string `db:"finished_at"`
}

type phaseLogRow struct {
	ID           int64   `db:"id"`
	DeploymentID string  `db:"deployment_id"`
	Phase        string  `db:"phase"`
	Status       string  `db:"status"`
	Details      *string `db:"details"`
	LoggedAt     string  `db:"logged_at"`
}

type errorLogRow struct {
	ID           int64   `db:"id"`
	DeploymentID string  `db:"deployment_id"`
	Message      string  `db:"message"`
	Context      *string `db:"context"`
	LoggedAt     string  `db:"logged_at"`
}

// GetDeploymentAudit returns the lifecycle record for one rollout attempt.
func (a *SQLiteAuditor) GetDeploymentAudit(ctx context.Context, deploymentID string) (*DeploymentAudit, error) {
	var row auditRow
	err := a.db.GetContext(ctx, &row,
		`SELECT * FROM deployment_audits WHERE deployment_id = ?`, deploymentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, newStoreError("GetDeploymentAudit", deploymentID, "not found", ErrNotFound)
	}
	if err != nil {
		return nil, newStoreError("GetDeploymentAudit", deploymentID, err.Error(), err)
	}
	return rowToAudit(row)
}

// ListRecentAudits returns the most recently started audits, newest first.
func (a *SQLiteAuditor) ListRecentAudits(ctx context.Context, limit int) ([]DeploymentAudit, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []auditRow
	err := a.db.SelectContext(ctx, &rows,
		`SELECT * FROM deployment_audits ORDER BY started_at DESC, deployment_id LIMIT ?`, limit)
	if err != nil {
		return nil, newStoreError("ListRecentAudits", "", err.Error(), err)
	}

	out := make([]DeploymentAudit, 0, len(rows))
	for _, row := range rows {
		audit, err := rowToAudit(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *audit)
	}
	return out, nil
}

// ListPhaseLogs returns the phase events of one rollout in logged order.
func (a *SQLiteAuditor) ListPhaseLogs(ctx context.Context, deploymentID string) ([]PhaseLog, error) {
	var rows []phaseLogRow
	err := a.db.SelectContext(ctx, &rows,
		`SELECT * FROM phase_logs WHERE deployment_id = ? ORDER BY id`, deploymentID)
	if err != nil {
		return nil, newStoreError("ListPhaseLogs", deploymentID, err.Error(), err)
	}

	out := make([]PhaseLog, 0, len(rows))
	for _, row := range rows {
		details, err := decodeJSON(row.Details)
		if err != nil {
			return nil, newStoreError("ListPhaseLogs", deploymentID, err.Error(), ErrInvalidData)
		}
		loggedAt, _ := time.Parse(time.RFC3339, row.LoggedAt)
		out = append(out, PhaseLog{
			ID:           row.ID,
			DeploymentID: row.DeploymentID,
			Phase:        row.Phase,
			Status:       row.Status,
			Details:      details,
			LoggedAt:     loggedAt,
		})
	}
	return out, nil
}

// ListErrorLogs returns the error events of one rollout in logged order.
func (a *SQLiteAuditor) ListErrorLogs(ctx context.Context, deploymentID string) ([]ErrorLog, error) {
	var rows []errorLogRow
	err := a.db.SelectContext(ctx, &rows,
		`SELECT * FROM error_logs WHERE deployment_id = ? ORDER BY id`, deploymentID)
	if err != nil {
		return nil, newStoreError("ListErrorLogs", deploymentID, err.Error(), err)
	}

	out := make([]ErrorLog, 0, len(rows))
	for _, row := range rows {
		errCtx, err := decodeJSON(row.Context)
		if err != nil {
			return nil, newStoreError("ListErrorLogs", deploymentID, err.Error(), ErrInvalidData)
		}
		loggedAt, _ := time.Parse(time.RFC3339, row.LoggedAt)
		out = append(out, ErrorLog{
			ID:           row.ID,
			DeploymentID: row.DeploymentID,
			Message:      row.Message,
			Context:      errCtx,
			LoggedAt:     loggedAt,
		})
	}
	return out, nil
}

// =============================================================================
// Row Conversion
// =============================================================================

func rowToAudit(row auditRow) (*DeploymentAudit, error) {
	meta, err := decodeJSON(row.Meta)
	if err != nil {
		return nil, newStoreError("rowToAudit", row.DeploymentID, err.Error(), ErrInvalidData)
	}
	outcomeMeta, err := decodeJSON(row.OutcomeMeta)
	if err != nil {
		return nil, newStoreError("rowToAudit", row.DeploymentID, err.Error(), ErrInvalidData)
	}

	startedAt, _ := time.Parse(time.RFC3339, row.StartedAt)
	audit := &DeploymentAudit{
		DeploymentID: row.DeploymentID,
		Kind:         row.Kind,
		Meta:         meta,
		Outcome:      row.Outcome,
		OutcomeMeta:  outcomeMeta,
		StartedAt:    startedAt,
	}
	if row.FinishedAt != nil {
		finishedAt, _ := time.Parse(time.RFC3339, *row.FinishedAt)
		audit.FinishedAt = &finishedAt
	}
	return audit, nil
}

func encodeJSON(m map[string]any) (*string, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

func decodeJSON(s *string) (map[string]any, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(*s), &m); err != nil {
		return nil, err
	}
	return m, nil
}
