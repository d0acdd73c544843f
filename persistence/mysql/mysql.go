// Package mysql is a MySQL/MariaDB Persistence Port backend: pooled
// database/sql connections over go-sql-driver/mysql, JSON columns, and
// auto-migration on first use. Intended for production deployments that
// already run MySQL rather than Postgres.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/flowforge/flowforge/persistence"
	"github.com/flowforge/flowforge/workflow"
)

// Store is a MySQL-backed implementation of persistence.Port.
type Store struct {
	db *sql.DB
}

// Open connects to dsn (see go-sql-driver/mysql's DSN format,
// "user:pass@tcp(host:3306)/dbname?parseTime=true"), configures pooling,
// and migrates its schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: open: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql: ping: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Port returns the three repositories s implements.
func (s *Store) Port() persistence.Port {
	return persistence.Port{
		Definitions: &definitionRepo{db: s.db},
		Instances:   &instanceRepo{db: s.db},
		Executions:  &executionRepo{db: s.db},
	}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) createSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS workflow_definitions (
			name VARCHAR(255) NOT NULL,
			version INT NOT NULL,
			start_activity_id VARCHAR(255) NOT NULL,
			activities JSON NOT NULL,
			transitions JSON NOT NULL,
			input_schema JSON,
			output_schema JSON,
			trigger SMALLINT NOT NULL DEFAULT 0,
			cron_expression VARCHAR(255),
			default_retry JSON,
			default_timeout_ms BIGINT,
			tags JSON,
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP(6) NOT NULL,
			PRIMARY KEY (name, version),
			INDEX idx_definitions_name_active (name, is_active)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
		`CREATE TABLE IF NOT EXISTS workflow_instances (
			id VARCHAR(64) PRIMARY KEY,
			workflow_name VARCHAR(255) NOT NULL,
			workflow_version INT NOT NULL,
			status SMALLINT NOT NULL,
			input JSON,
			output JSON,
			state JSON,
			current_activity_id VARCHAR(255),
			error JSON,
			retry_count INT NOT NULL DEFAULT 0,
			parent_instance_id VARCHAR(64),
			correlation_id VARCHAR(255),
			worker_id VARCHAR(255),
			tags JSON,
			metadata JSON,
			created_at TIMESTAMP(6) NOT NULL,
			started_at TIMESTAMP(6) NULL,
			completed_at TIMESTAMP(6) NULL,
			updated_at TIMESTAMP(6) NOT NULL,
			INDEX idx_instances_status (status),
			INDEX idx_instances_correlation (correlation_id),
			INDEX idx_instances_workflow_name (workflow_name)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
		`CREATE TABLE IF NOT EXISTS activity_executions (
			id VARCHAR(64) PRIMARY KEY,
			workflow_instance_id VARCHAR(64) NOT NULL,
			activity_id VARCHAR(255) NOT NULL,
			activity_type VARCHAR(255) NOT NULL,
			status SMALLINT NOT NULL,
			input JSON,
			output JSON,
			error JSON,
			attempt INT NOT NULL,
			started_at TIMESTAMP(6) NOT NULL,
			completed_at TIMESTAMP(6) NULL,
			duration_ms BIGINT NOT NULL DEFAULT 0,
			INDEX idx_executions_instance (workflow_instance_id, started_at),
			INDEX idx_executions_instance_activity (workflow_instance_id, activity_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("mysql: create schema: %w", err)
		}
	}
	return nil
}

func marshal(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	return string(b), err
}

func unmarshal[T any](raw string, out *T) error {
	if raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), out)
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func millisOrNil(d time.Duration) any {
	if d == 0 {
		return nil
	}
	return d.Milliseconds()
}

// --- Definitions -----------------------------------------------------

type definitionRepo struct{ db *sql.DB }

const definitionColumns = `name, version, start_activity_id, activities, transitions, input_schema, output_schema, trigger, cron_expression, default_retry, default_timeout_ms, tags, is_active, created_at`

func scanDefinition(scan func(dest ...any) error) (*workflow.WorkflowDefinition, error) {
	var (
		d                                                       workflow.WorkflowDefinition
		activities, transitions                                 string
		inputSchema, outputSchema, cronExpr, defaultRetry, tags sql.NullString
		trigger                                                 int
		timeoutMS                                               sql.NullInt64
		isActive                                                bool
	)
	if err := scan(&d.Name, &d.Version, &d.StartActivityID, &activities, &transitions,
		&inputSchema, &outputSchema, &trigger, &cronExpr, &defaultRetry, &timeoutMS, &tags, &isActive, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.Trigger = workflow.TriggerType(trigger)
	d.IsActive = isActive
	if cronExpr.Valid {
		d.CronExpression = cronExpr.String
	}
	if timeoutMS.Valid {
		d.DefaultTimeout = time.Duration(timeoutMS.Int64) * time.Millisecond
	}
	if err := unmarshal(activities, &d.Activities); err != nil {
		return nil, err
	}
	if err := unmarshal(transitions, &d.Transitions); err != nil {
		return nil, err
	}
	if inputSchema.Valid {
		var sc workflow.Schema
		if err := unmarshal(inputSchema.String, &sc); err != nil {
			return nil, err
		}
		d.InputSchema = &sc
	}
	if outputSchema.Valid {
		var sc workflow.Schema
		if err := unmarshal(outputSchema.String, &sc); err != nil {
			return nil, err
		}
		d.OutputSchema = &sc
	}
	if defaultRetry.Valid {
		var rp workflow.RetryPolicy
		if err := unmarshal(defaultRetry.String, &rp); err != nil {
			return nil, err
		}
		d.DefaultRetry = &rp
	}
	if tags.Valid {
		if err := unmarshal(tags.String, &d.Tags); err != nil {
			return nil, err
		}
	}
	return &d, nil
}

func scanDefinitions(rows *sql.Rows) ([]*workflow.WorkflowDefinition, error) {
	var out []*workflow.WorkflowDefinition
	for rows.Next() {
		d, err := scanDefinition(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *definitionRepo) Get(ctx context.Context, name string, version *int) (*workflow.WorkflowDefinition, error) {
	var row *sql.Row
	if version == nil {
		row = r.db.QueryRowContext(ctx, `SELECT `+definitionColumns+` FROM workflow_definitions WHERE name=? AND is_active=TRUE ORDER BY version DESC LIMIT 1`, name)
	} else {
		row = r.db.QueryRowContext(ctx, `SELECT `+definitionColumns+` FROM workflow_definitions WHERE name=? AND version=?`, name, *version)
	}
	d, err := scanDefinition(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrNotFound
	}
	return d, err
}

func (r *definitionRepo) GetAllVersions(ctx context.Context, name string) ([]*workflow.WorkflowDefinition, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+definitionColumns+` FROM workflow_definitions WHERE name=? ORDER BY version ASC`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDefinitions(rows)
}

func (r *definitionRepo) List(ctx context.Context, includeInactive bool) ([]*workflow.WorkflowDefinition, error) {
	query := `SELECT ` + definitionColumns + ` FROM workflow_definitions`
	if !includeInactive {
		query += ` WHERE is_active=TRUE`
	}
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDefinitions(rows)
}

func (r *definitionRepo) Save(ctx context.Context, def *workflow.WorkflowDefinition) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var maxVersion sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(version) FROM workflow_definitions WHERE name=?`, def.Name).Scan(&maxVersion); err != nil {
		return err
	}
	def.Version = int(maxVersion.Int64) + 1
	if def.CreatedAt.IsZero() {
		def.CreatedAt = time.Now().UTC()
	}
	def.IsActive = true

	activities, err := marshal(def.Activities)
	if err != nil {
		return err
	}
	transitions, err := marshal(def.Transitions)
	if err != nil {
		return err
	}
	inputSchema, err := marshal(def.InputSchema)
	if err != nil {
		return err
	}
	outputSchema, err := marshal(def.OutputSchema)
	if err != nil {
		return err
	}
	defaultRetry, err := marshal(def.DefaultRetry)
	if err != nil {
		return err
	}
	tags, err := marshal(def.Tags)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE workflow_definitions SET is_active=FALSE WHERE name=?`, def.Name); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO workflow_definitions (`+definitionColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		def.Name, def.Version, def.StartActivityID, activities, transitions, nullIfEmpty(inputSchema), nullIfEmpty(outputSchema),
		int(def.Trigger), nullIfEmpty(def.CronExpression), nullIfEmpty(defaultRetry), millisOrNil(def.DefaultTimeout), nullIfEmpty(tags), true, def.CreatedAt)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (r *definitionRepo) SetActive(ctx context.Context, name string, version int, active bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE workflow_definitions SET is_active=? WHERE name=? AND version=?`, active, name, version)
	return err
}

func (r *definitionRepo) Delete(ctx context.Context, name string, version int) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM workflow_definitions WHERE name=? AND version=?`, name, version)
	return err
}

func (r *definitionRepo) Exists(ctx context.Context, name string) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM workflow_definitions WHERE name=?`, name).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// --- Instances -----------------------------------------------------

type instanceRepo struct{ db *sql.DB }

const instanceColumns = `id, workflow_name, workflow_version, status, input, output, state, current_activity_id, error, retry_count, parent_instance_id, correlation_id, worker_id, tags, metadata, created_at, started_at, completed_at, updated_at`

func scanInstance(scan func(dest ...any) error) (*workflow.WorkflowInstance, error) {
	var (
		inst                                                        workflow.WorkflowInstance
		status                                                      int
		input, output, state, tagsJSON, metadataJSON                string
		currentActivity, errJSON, parentID, correlationID, workerID sql.NullString
		startedAt, completedAt                                      sql.NullTime
	)
	if err := scan(&inst.ID, &inst.WorkflowName, &inst.WorkflowVersion, &status, &input, &output, &state,
		&currentActivity, &errJSON, &inst.RetryCount, &parentID, &correlationID, &workerID, &tagsJSON, &metadataJSON,
		&inst.CreatedAt, &startedAt, &completedAt, &inst.UpdatedAt); err != nil {
		return nil, err
	}
	inst.Status = workflow.InstanceStatus(status)
	if currentActivity.Valid {
		inst.CurrentActivityID = currentActivity.String
	}
	if parentID.Valid {
		inst.ParentInstanceID = parentID.String
	}
	if correlationID.Valid {
		inst.CorrelationID = correlationID.String
	}
	if workerID.Valid {
		inst.WorkerID = workerID.String
	}
	if startedAt.Valid {
		t := startedAt.Time
		inst.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		inst.CompletedAt = &t
	}
	if err := unmarshal(input, &inst.Input); err != nil {
		return nil, err
	}
	if err := unmarshal(output, &inst.Output); err != nil {
		return nil, err
	}
	if err := unmarshal(state, &inst.State); err != nil {
		return nil, err
	}
	if err := unmarshal(tagsJSON, &inst.Tags); err != nil {
		return nil, err
	}
	if err := unmarshal(metadataJSON, &inst.Metadata); err != nil {
		return nil, err
	}
	if errJSON.Valid && errJSON.String != "" {
		var ie workflow.InstanceError
		if err := unmarshal(errJSON.String, &ie); err != nil {
			return nil, err
		}
		inst.Error = &ie
	}
	return &inst, nil
}

func scanInstances(rows *sql.Rows) ([]*workflow.WorkflowInstance, error) {
	var out []*workflow.WorkflowInstance
	for rows.Next() {
		inst, err := scanInstance(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

func (r *instanceRepo) Get(ctx context.Context, id string) (*workflow.WorkflowInstance, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+instanceColumns+` FROM workflow_instances WHERE id=?`, id)
	inst, err := scanInstance(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrNotFound
	}
	return inst, err
}

func (r *instanceRepo) GetByCorrelation(ctx context.Context, correlationID string) (*workflow.WorkflowInstance, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+instanceColumns+` FROM workflow_instances WHERE correlation_id=? ORDER BY created_at DESC LIMIT 1`, correlationID)
	inst, err := scanInstance(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrNotFound
	}
	return inst, err
}

func (r *instanceRepo) Query(ctx context.Context, filter persistence.InstanceFilter, sortBy persistence.Sort, page persistence.Page) ([]*workflow.WorkflowInstance, error) {
	query := `SELECT ` + instanceColumns + ` FROM workflow_instances WHERE 1=1`
	var args []any

	if filter.WorkflowName != "" {
		query += ` AND workflow_name=?`
		args = append(args, filter.WorkflowName)
	}
	if filter.Status != nil {
		query += ` AND status=?`
		args = append(args, int(*filter.Status))
	}
	if filter.CorrelationID != "" {
		query += ` AND correlation_id=?`
		args = append(args, filter.CorrelationID)
	}
	if filter.Tag != "" {
		query += ` AND JSON_CONTAINS(tags, JSON_QUOTE(?))`
		args = append(args, filter.Tag)
	}

	field := sortField(sortBy.Field)
	dir := "ASC"
	if sortBy.Descending {
		dir = "DESC"
	}
	query += ` ORDER BY ` + field + ` ` + dir

	if page.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, page.Limit)
		if page.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, page.Offset)
		}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInstances(rows)
}

func sortField(field string) string {
	switch field {
	case "created_at", "updated_at", "status", "workflow_name":
		return field
	default:
		return "created_at"
	}
}

func (r *instanceRepo) GetByStatus(ctx context.Context, status workflow.InstanceStatus, limit int) ([]*workflow.WorkflowInstance, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+instanceColumns+` FROM workflow_instances WHERE status=? ORDER BY created_at ASC LIMIT ?`, int(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInstances(rows)
}

func (r *instanceRepo) Create(ctx context.Context, inst *workflow.WorkflowInstance) error {
	return r.upsert(ctx, inst, true)
}

func (r *instanceRepo) Update(ctx context.Context, inst *workflow.WorkflowInstance) error {
	return r.upsert(ctx, inst, false)
}

func (r *instanceRepo) upsert(ctx context.Context, inst *workflow.WorkflowInstance, insert bool) error {
	input, err := marshal(inst.Input)
	if err != nil {
		return err
	}
	output, err := marshal(inst.Output)
	if err != nil {
		return err
	}
	state, err := marshal(inst.State)
	if err != nil {
		return err
	}
	tags, err := marshal(inst.Tags)
	if err != nil {
		return err
	}
	metadata, err := marshal(inst.Metadata)
	if err != nil {
		return err
	}
	var errJSON string
	if inst.Error != nil {
		errJSON, err = marshal(inst.Error)
		if err != nil {
			return err
		}
	}

	if insert {
		_, err = r.db.ExecContext(ctx, `INSERT INTO workflow_instances (`+instanceColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			inst.ID, inst.WorkflowName, inst.WorkflowVersion, int(inst.Status), nullIfEmpty(input), nullIfEmpty(output), nullIfEmpty(state),
			nullIfEmpty(inst.CurrentActivityID), nullIfEmpty(errJSON), inst.RetryCount, nullIfEmpty(inst.ParentInstanceID),
			nullIfEmpty(inst.CorrelationID), nullIfEmpty(inst.WorkerID), nullIfEmpty(tags), nullIfEmpty(metadata),
			inst.CreatedAt, inst.StartedAt, inst.CompletedAt, inst.UpdatedAt)
		return err
	}

	_, err = r.db.ExecContext(ctx, `UPDATE workflow_instances SET
			status=?, input=?, output=?, state=?, current_activity_id=?, error=?,
			retry_count=?, worker_id=?, tags=?, metadata=?, started_at=?, completed_at=?, updated_at=?
		WHERE id=?`,
		int(inst.Status), nullIfEmpty(input), nullIfEmpty(output), nullIfEmpty(state), nullIfEmpty(inst.CurrentActivityID), nullIfEmpty(errJSON),
		inst.RetryCount, nullIfEmpty(inst.WorkerID), nullIfEmpty(tags), nullIfEmpty(metadata),
		inst.StartedAt, inst.CompletedAt, inst.UpdatedAt, inst.ID)
	return err
}

func (r *instanceRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM workflow_instances WHERE id=?`, id)
	return err
}

func (r *instanceRepo) GetTimedOut(ctx context.Context, olderThan time.Duration) ([]*workflow.WorkflowInstance, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	rows, err := r.db.QueryContext(ctx, `SELECT `+instanceColumns+` FROM workflow_instances WHERE status=? AND updated_at < ?`, int(workflow.Running), cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInstances(rows)
}

func (r *instanceRepo) Stats(ctx context.Context) (persistence.InstanceStats, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM workflow_instances GROUP BY status`)
	if err != nil {
		return persistence.InstanceStats{}, err
	}
	defer rows.Close()

	stats := persistence.InstanceStats{TotalByStatus: make(map[workflow.InstanceStatus]int64)}
	for rows.Next() {
		var status int
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return persistence.InstanceStats{}, err
		}
		stats.TotalByStatus[workflow.InstanceStatus(status)] = count
	}
	return stats, rows.Err()
}

// --- Executions -----------------------------------------------------

type executionRepo struct{ db *sql.DB }

const executionColumns = `id, workflow_instance_id, activity_id, activity_type, status, input, output, error, attempt, started_at, completed_at, duration_ms`

func scanExecution(scan func(dest ...any) error) (*workflow.ActivityExecution, error) {
	var (
		exec           workflow.ActivityExecution
		status         int
		input, output  string
		errJSON        sql.NullString
		completedAt    sql.NullTime
	)
	if err := scan(&exec.ID, &exec.WorkflowInstance, &exec.ActivityID, &exec.ActivityType, &status,
		&input, &output, &errJSON, &exec.Attempt, &exec.StartedAt, &completedAt, &exec.DurationMS); err != nil {
		return nil, err
	}
	exec.Status = workflow.ActivityStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		exec.CompletedAt = &t
	}
	if err := unmarshal(input, &exec.Input); err != nil {
		return nil, err
	}
	if err := unmarshal(output, &exec.Output); err != nil {
		return nil, err
	}
	if errJSON.Valid && errJSON.String != "" {
		var ie workflow.InstanceError
		if err := unmarshal(errJSON.String, &ie); err != nil {
			return nil, err
		}
		exec.Error = &ie
	}
	return &exec, nil
}

func (r *executionRepo) GetByInstance(ctx context.Context, instanceID string) ([]*workflow.ActivityExecution, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+executionColumns+` FROM activity_executions WHERE workflow_instance_id=? ORDER BY started_at ASC`, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*workflow.ActivityExecution
	for rows.Next() {
		exec, err := scanExecution(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, exec)
	}
	return out, rows.Err()
}

func (r *executionRepo) Get(ctx context.Context, id string) (*workflow.ActivityExecution, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+executionColumns+` FROM activity_executions WHERE id=?`, id)
	exec, err := scanExecution(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrNotFound
	}
	return exec, err
}

func (r *executionRepo) Create(ctx context.Context, exec *workflow.ActivityExecution) error {
	input, err := marshal(exec.Input)
	if err != nil {
		return err
	}
	output, err := marshal(exec.Output)
	if err != nil {
		return err
	}
	var errJSON string
	if exec.Error != nil {
		errJSON, err = marshal(exec.Error)
		if err != nil {
			return err
		}
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO activity_executions (`+executionColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		exec.ID, exec.WorkflowInstance, exec.ActivityID, exec.ActivityType, int(exec.Status),
		nullIfEmpty(input), nullIfEmpty(output), nullIfEmpty(errJSON), exec.Attempt, exec.StartedAt, exec.CompletedAt, exec.DurationMS)
	return err
}

func (r *executionRepo) Update(ctx context.Context, exec *workflow.ActivityExecution) error {
	output, err := marshal(exec.Output)
	if err != nil {
		return err
	}
	var errJSON string
	if exec.Error != nil {
		errJSON, err = marshal(exec.Error)
		if err != nil {
			return err
		}
	}
	_, err = r.db.ExecContext(ctx, `UPDATE activity_executions SET status=?, output=?, error=?, completed_at=?, duration_ms=? WHERE id=?`,
		int(exec.Status), nullIfEmpty(output), nullIfEmpty(errJSON), exec.CompletedAt, exec.DurationMS, exec.ID)
	return err
}

func (r *executionRepo) GetLatest(ctx context.Context, instanceID, activityID string) (*workflow.ActivityExecution, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+executionColumns+` FROM activity_executions WHERE workflow_instance_id=? AND activity_id=? ORDER BY attempt DESC LIMIT 1`, instanceID, activityID)
	exec, err := scanExecution(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrNotFound
	}
	return exec, err
}
