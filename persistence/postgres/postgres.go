// Package postgres is the primary Persistence Port backend,
// built on sqlx.DB and lib/pq, with jsonb columns for every structured
// field and status/type columns stored as smallint ordinals. Schema
// migration runs automatically on first connect, the same auto-migrate-
// on-open pattern the sqlite and mysql backends use.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/flowforge/flowforge/persistence"
	"github.com/flowforge/flowforge/workflow"
)

// Store is a Postgres-backed implementation of persistence.Port.
type Store struct {
	db *sqlx.DB
}

// Open connects to connString and creates the schema if absent.
func Open(ctx context.Context, connString string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	s := &Store{db: db}
	if err := s.createSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Port returns the three repositories s implements, bundled for engine
// wiring.
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
			name TEXT NOT NULL,
			version INTEGER NOT NULL,
			start_activity_id TEXT NOT NULL,
			activities JSONB NOT NULL,
			transitions JSONB NOT NULL,
			input_schema JSONB,
			output_schema JSONB,
			trigger SMALLINT NOT NULL DEFAULT 0,
			cron_expression TEXT,
			default_retry JSONB,
			default_timeout_ms BIGINT,
			tags JSONB,
			is_active BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (name, version)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_definitions_name_active ON workflow_definitions(name, is_active)`,
		`CREATE TABLE IF NOT EXISTS workflow_instances (
			id TEXT PRIMARY KEY,
			workflow_name TEXT NOT NULL,
			workflow_version INTEGER NOT NULL,
			status SMALLINT NOT NULL,
			input JSONB,
			output JSONB,
			state JSONB,
			current_activity_id TEXT,
			error JSONB,
			retry_count INTEGER NOT NULL DEFAULT 0,
			parent_instance_id TEXT,
			correlation_id TEXT,
			worker_id TEXT,
			tags JSONB,
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL,
			started_at TIMESTAMPTZ,
			completed_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_instances_status ON workflow_instances(status)`,
		`CREATE INDEX IF NOT EXISTS idx_instances_correlation ON workflow_instances(correlation_id)`,
		`CREATE INDEX IF NOT EXISTS idx_instances_workflow_name ON workflow_instances(workflow_name)`,
		`CREATE TABLE IF NOT EXISTS activity_executions (
			id TEXT PRIMARY KEY,
			workflow_instance_id TEXT NOT NULL,
			activity_id TEXT NOT NULL,
			activity_type TEXT NOT NULL,
			status SMALLINT NOT NULL,
			input JSONB,
			output JSONB,
			error JSONB,
			attempt INTEGER NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ,
			duration_ms BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_executions_instance ON activity_executions(workflow_instance_id, started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_executions_instance_activity ON activity_executions(workflow_instance_id, activity_id, attempt)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: create schema: %w", err)
		}
	}
	return nil
}

func marshal(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func unmarshal[T any](raw []byte, out *T) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// --- Definitions -----------------------------------------------------

type definitionRepo struct{ db *sqlx.DB }

type definitionRow struct {
	Name              string         `db:"name"`
	Version           int            `db:"version"`
	StartActivityID   string         `db:"start_activity_id"`
	Activities        []byte         `db:"activities"`
	Transitions       []byte         `db:"transitions"`
	InputSchema       sql.NullString `db:"input_schema"`
	OutputSchema      sql.NullString `db:"output_schema"`
	Trigger           int            `db:"trigger"`
	CronExpression    sql.NullString `db:"cron_expression"`
	DefaultRetry      sql.NullString `db:"default_retry"`
	DefaultTimeoutMS  sql.NullInt64  `db:"default_timeout_ms"`
	Tags              []byte         `db:"tags"`
	IsActive          bool           `db:"is_active"`
	CreatedAt         time.Time      `db:"created_at"`
}

func (r definitionRow) toDomain() (*workflow.WorkflowDefinition, error) {
	d := &workflow.WorkflowDefinition{
		Name:            r.Name,
		Version:         r.Version,
		StartActivityID: r.StartActivityID,
		Trigger:         workflow.TriggerType(r.Trigger),
		IsActive:        r.IsActive,
		CreatedAt:       r.CreatedAt,
	}
	if r.CronExpression.Valid {
		d.CronExpression = r.CronExpression.String
	}
	if r.DefaultTimeoutMS.Valid {
		d.DefaultTimeout = time.Duration(r.DefaultTimeoutMS.Int64) * time.Millisecond
	}
	if err := unmarshal(r.Activities, &d.Activities); err != nil {
		return nil, err
	}
	if err := unmarshal(r.Transitions, &d.Transitions); err != nil {
		return nil, err
	}
	if r.InputSchema.Valid {
		var sc workflow.Schema
		if err := json.Unmarshal([]byte(r.InputSchema.String), &sc); err != nil {
			return nil, err
		}
		d.InputSchema = &sc
	}
	if r.OutputSchema.Valid {
		var sc workflow.Schema
		if err := json.Unmarshal([]byte(r.OutputSchema.String), &sc); err != nil {
			return nil, err
		}
		d.OutputSchema = &sc
	}
	if r.DefaultRetry.Valid {
		var rp workflow.RetryPolicy
		if err := json.Unmarshal([]byte(r.DefaultRetry.String), &rp); err != nil {
			return nil, err
		}
		d.DefaultRetry = &rp
	}
	if err := unmarshal(r.Tags, &d.Tags); err != nil {
		return nil, err
	}
	return d, nil
}

func (r *definitionRepo) Get(ctx context.Context, name string, version *int) (*workflow.WorkflowDefinition, error) {
	var row definitionRow
	var err error
	if version == nil {
		err = r.db.GetContext(ctx, &row, `SELECT * FROM workflow_definitions WHERE name=$1 AND is_active=true ORDER BY version DESC LIMIT 1`, name)
	} else {
		err = r.db.GetContext(ctx, &row, `SELECT * FROM workflow_definitions WHERE name=$1 AND version=$2`, name, *version)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain()
}

func (r *definitionRepo) GetAllVersions(ctx context.Context, name string) ([]*workflow.WorkflowDefinition, error) {
	var rows []definitionRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT * FROM workflow_definitions WHERE name=$1 ORDER BY version ASC`, name); err != nil {
		return nil, err
	}
	return toDomainSlice(rows)
}

func (r *definitionRepo) List(ctx context.Context, includeInactive bool) ([]*workflow.WorkflowDefinition, error) {
	query := `SELECT * FROM workflow_definitions`
	if !includeInactive {
		query += ` WHERE is_active=true`
	}
	var rows []definitionRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	return toDomainSlice(rows)
}

func toDomainSlice(rows []definitionRow) ([]*workflow.WorkflowDefinition, error) {
	out := make([]*workflow.WorkflowDefinition, 0, len(rows))
	for _, row := range rows {
		d, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Save auto-increments version under name and deactivates prior versions
// atomically within one transaction.
func (r *definitionRepo) Save(ctx context.Context, def *workflow.WorkflowDefinition) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var maxVersion sql.NullInt64
	if err := tx.GetContext(ctx, &maxVersion, `SELECT MAX(version) FROM workflow_definitions WHERE name=$1`, def.Name); err != nil {
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

	if _, err := tx.ExecContext(ctx, `UPDATE workflow_definitions SET is_active=false WHERE name=$1`, def.Name); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workflow_definitions
			(name, version, start_activity_id, activities, transitions, input_schema, output_schema,
			 trigger, cron_expression, default_retry, default_timeout_ms, tags, is_active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		def.Name, def.Version, def.StartActivityID, activities, transitions, inputSchema, outputSchema,
		int(def.Trigger), nullString(def.CronExpression), defaultRetry, millisOrNil(def.DefaultTimeout), tags, def.IsActive, def.CreatedAt,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (r *definitionRepo) SetActive(ctx context.Context, name string, version int, active bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE workflow_definitions SET is_active=$1 WHERE name=$2 AND version=$3`, active, name, version)
	return err
}

func (r *definitionRepo) Delete(ctx context.Context, name string, version int) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM workflow_definitions WHERE name=$1 AND version=$2`, name, version)
	return err
}

func (r *definitionRepo) Exists(ctx context.Context, name string) (bool, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM workflow_definitions WHERE name=$1`, name); err != nil {
		return false, err
	}
	return n > 0, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func millisOrNil(d time.Duration) sql.NullInt64 {
	if d == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: d.Milliseconds(), Valid: true}
}

// --- Instances ---------------------------------------------------------

type instanceRepo struct{ db *sqlx.DB }

type instanceRow struct {
	ID                string         `db:"id"`
	WorkflowName      string         `db:"workflow_name"`
	WorkflowVersion   int            `db:"workflow_version"`
	Status            int            `db:"status"`
	Input             []byte         `db:"input"`
	Output            []byte         `db:"output"`
	State             []byte         `db:"state"`
	CurrentActivityID sql.NullString `db:"current_activity_id"`
	Error             []byte         `db:"error"`
	RetryCount        int            `db:"retry_count"`
	ParentInstanceID  sql.NullString `db:"parent_instance_id"`
	CorrelationID     sql.NullString `db:"correlation_id"`
	WorkerID          sql.NullString `db:"worker_id"`
	Tags              []byte         `db:"tags"`
	Metadata          []byte         `db:"metadata"`
	CreatedAt         time.Time      `db:"created_at"`
	StartedAt         sql.NullTime   `db:"started_at"`
	CompletedAt       sql.NullTime   `db:"completed_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

func (r instanceRow) toDomain() (*workflow.WorkflowInstance, error) {
	inst := &workflow.WorkflowInstance{
		ID:              r.ID,
		WorkflowName:    r.WorkflowName,
		WorkflowVersion: r.WorkflowVersion,
		Status:          workflow.InstanceStatus(r.Status),
		RetryCount:      r.RetryCount,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.CurrentActivityID.Valid {
		inst.CurrentActivityID = r.CurrentActivityID.String
	}
	if r.ParentInstanceID.Valid {
		inst.ParentInstanceID = r.ParentInstanceID.String
	}
	if r.CorrelationID.Valid {
		inst.CorrelationID = r.CorrelationID.String
	}
	if r.WorkerID.Valid {
		inst.WorkerID = r.WorkerID.String
	}
	if r.StartedAt.Valid {
		t := r.StartedAt.Time
		inst.StartedAt = &t
	}
	if r.CompletedAt.Valid {
		t := r.CompletedAt.Time
		inst.CompletedAt = &t
	}
	if err := unmarshal(r.Input, &inst.Input); err != nil {
		return nil, err
	}
	if err := unmarshal(r.Output, &inst.Output); err != nil {
		return nil, err
	}
	if err := unmarshal(r.State, &inst.State); err != nil {
		return nil, err
	}
	if err := unmarshal(r.Tags, &inst.Tags); err != nil {
		return nil, err
	}
	if err := unmarshal(r.Metadata, &inst.Metadata); err != nil {
		return nil, err
	}
	if len(r.Error) > 0 {
		var ie workflow.InstanceError
		if err := json.Unmarshal(r.Error, &ie); err != nil {
			return nil, err
		}
		inst.Error = &ie
	}
	return inst, nil
}

func (r *instanceRepo) Get(ctx context.Context, id string) (*workflow.WorkflowInstance, error) {
	var row instanceRow
	if err := r.db.GetContext(ctx, &row, `SELECT * FROM workflow_instances WHERE id=$1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrNotFound
		}
		return nil, err
	}
	return row.toDomain()
}

func (r *instanceRepo) GetByCorrelation(ctx context.Context, correlationID string) (*workflow.WorkflowInstance, error) {
	var row instanceRow
	if err := r.db.GetContext(ctx, &row, `SELECT * FROM workflow_instances WHERE correlation_id=$1 ORDER BY created_at DESC LIMIT 1`, correlationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrNotFound
		}
		return nil, err
	}
	return row.toDomain()
}

func (r *instanceRepo) Query(ctx context.Context, filter persistence.InstanceFilter, sortBy persistence.Sort, page persistence.Page) ([]*workflow.WorkflowInstance, error) {
	query := `SELECT * FROM workflow_instances WHERE 1=1`
	var args []any
	n := 1

	if filter.WorkflowName != "" {
		query += fmt.Sprintf(" AND workflow_name=$%d", n)
		args = append(args, filter.WorkflowName)
		n++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status=$%d", n)
		args = append(args, int(*filter.Status))
		n++
	}
	if filter.CorrelationID != "" {
		query += fmt.Sprintf(" AND correlation_id=$%d", n)
		args = append(args, filter.CorrelationID)
		n++
	}
	if filter.Tag != "" {
		query += fmt.Sprintf(" AND tags @> $%d", n)
		tagJSON, _ := json.Marshal([]string{filter.Tag})
		args = append(args, string(tagJSON))
		n++
	}

	field := sortField(sortBy.Field)
	dir := "ASC"
	if sortBy.Descending {
		dir = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", field, dir)

	if page.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", n)
		args = append(args, page.Limit)
		n++
	}
	if page.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, page.Offset)
	}

	var rows []instanceRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]*workflow.WorkflowInstance, 0, len(rows))
	for _, row := range rows {
		inst, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
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
	var rows []instanceRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT * FROM workflow_instances WHERE status=$1 ORDER BY created_at ASC LIMIT $2`, int(status), limit); err != nil {
		return nil, err
	}
	out := make([]*workflow.WorkflowInstance, 0, len(rows))
	for _, row := range rows {
		inst, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
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
	var errJSON []byte
	if inst.Error != nil {
		errJSON, err = marshal(inst.Error)
		if err != nil {
			return err
		}
	}

	if insert {
		_, err = r.db.ExecContext(ctx, `
			INSERT INTO workflow_instances
				(id, workflow_name, workflow_version, status, input, output, state, current_activity_id,
				 error, retry_count, parent_instance_id, correlation_id, worker_id, tags, metadata,
				 created_at, started_at, completed_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
			inst.ID, inst.WorkflowName, inst.WorkflowVersion, int(inst.Status), input, output, state,
			nullString(inst.CurrentActivityID), errJSON, inst.RetryCount, nullString(inst.ParentInstanceID),
			nullString(inst.CorrelationID), nullString(inst.WorkerID), tags, metadata,
			inst.CreatedAt, inst.StartedAt, inst.CompletedAt, inst.UpdatedAt,
		)
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE workflow_instances SET
			status=$2, input=$3, output=$4, state=$5, current_activity_id=$6, error=$7,
			retry_count=$8, worker_id=$9, tags=$10, metadata=$11, started_at=$12, completed_at=$13, updated_at=$14
		WHERE id=$1`,
		inst.ID, int(inst.Status), input, output, state, nullString(inst.CurrentActivityID), errJSON,
		inst.RetryCount, nullString(inst.WorkerID), tags, metadata, inst.StartedAt, inst.CompletedAt, inst.UpdatedAt,
	)
	return err
}

func (r *instanceRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM workflow_instances WHERE id=$1`, id)
	return err
}

func (r *instanceRepo) GetTimedOut(ctx context.Context, olderThan time.Duration) ([]*workflow.WorkflowInstance, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	var rows []instanceRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT * FROM workflow_instances WHERE status=$1 AND updated_at < $2`, int(workflow.Running), cutoff); err != nil {
		return nil, err
	}
	out := make([]*workflow.WorkflowInstance, 0, len(rows))
	for _, row := range rows {
		inst, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
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

// --- Executions ----------------------------------------------------------

type executionRepo struct{ db *sqlx.DB }

type executionRow struct {
	ID               string       `db:"id"`
	WorkflowInstance string       `db:"workflow_instance_id"`
	ActivityID       string       `db:"activity_id"`
	ActivityType     string       `db:"activity_type"`
	Status           int          `db:"status"`
	Input            []byte       `db:"input"`
	Output           []byte       `db:"output"`
	Error            []byte       `db:"error"`
	Attempt          int          `db:"attempt"`
	StartedAt        time.Time    `db:"started_at"`
	CompletedAt      sql.NullTime `db:"completed_at"`
	DurationMS       int64        `db:"duration_ms"`
}

func (r executionRow) toDomain() (*workflow.ActivityExecution, error) {
	exec := &workflow.ActivityExecution{
		ID:               r.ID,
		WorkflowInstance: r.WorkflowInstance,
		ActivityID:       r.ActivityID,
		ActivityType:     r.ActivityType,
		Status:           workflow.ActivityStatus(r.Status),
		Attempt:          r.Attempt,
		StartedAt:        r.StartedAt,
		DurationMS:       r.DurationMS,
	}
	if r.CompletedAt.Valid {
		t := r.CompletedAt.Time
		exec.CompletedAt = &t
	}
	if err := unmarshal(r.Input, &exec.Input); err != nil {
		return nil, err
	}
	if err := unmarshal(r.Output, &exec.Output); err != nil {
		return nil, err
	}
	if len(r.Error) > 0 {
		var ie workflow.InstanceError
		if err := json.Unmarshal(r.Error, &ie); err != nil {
			return nil, err
		}
		exec.Error = &ie
	}
	return exec, nil
}

func (r *executionRepo) GetByInstance(ctx context.Context, instanceID string) ([]*workflow.ActivityExecution, error) {
	var rows []executionRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT * FROM activity_executions WHERE workflow_instance_id=$1 ORDER BY started_at ASC`, instanceID); err != nil {
		return nil, err
	}
	out := make([]*workflow.ActivityExecution, 0, len(rows))
	for _, row := range rows {
		exec, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, exec)
	}
	return out, nil
}

func (r *executionRepo) Get(ctx context.Context, id string) (*workflow.ActivityExecution, error) {
	var row executionRow
	if err := r.db.GetContext(ctx, &row, `SELECT * FROM activity_executions WHERE id=$1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrNotFound
		}
		return nil, err
	}
	return row.toDomain()
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
	var errJSON []byte
	if exec.Error != nil {
		errJSON, err = marshal(exec.Error)
		if err != nil {
			return err
		}
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO activity_executions
			(id, workflow_instance_id, activity_id, activity_type, status, input, output, error, attempt, started_at, completed_at, duration_ms)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		exec.ID, exec.WorkflowInstance, exec.ActivityID, exec.ActivityType, int(exec.Status), input, output, errJSON,
		exec.Attempt, exec.StartedAt, exec.CompletedAt, exec.DurationMS,
	)
	return err
}

func (r *executionRepo) Update(ctx context.Context, exec *workflow.ActivityExecution) error {
	output, err := marshal(exec.Output)
	if err != nil {
		return err
	}
	var errJSON []byte
	if exec.Error != nil {
		errJSON, err = marshal(exec.Error)
		if err != nil {
			return err
		}
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE activity_executions SET status=$2, output=$3, error=$4, completed_at=$5, duration_ms=$6
		WHERE id=$1`,
		exec.ID, int(exec.Status), output, errJSON, exec.CompletedAt, exec.DurationMS,
	)
	return err
}

func (r *executionRepo) GetLatest(ctx context.Context, instanceID, activityID string) (*workflow.ActivityExecution, error) {
	var row executionRow
	err := r.db.GetContext(ctx, &row, `
		SELECT * FROM activity_executions
		WHERE workflow_instance_id=$1 AND activity_id=$2
		ORDER BY attempt DESC LIMIT 1`, instanceID, activityID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain()
}
