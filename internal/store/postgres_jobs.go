package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/domain-lead-pipeline/internal/model"
)

// maxJobErrorLen keeps failure messages bounded in the ledger.
const maxJobErrorLen = 4000

func (s *PostgresStore) StartJob(ctx context.Context, jobName, scope string) (*model.JobRun, error) {
	run := &model.JobRun{
		ID:      uuid.New(),
		JobName: jobName,
		Scope:   model.NormalizeScope(scope),
		Status:  model.JobRunning,
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO job_runs (id, job_name, scope, status)
		VALUES ($1, $2, $3, $4)
		RETURNING started_at`,
		run.ID, run.JobName, run.Scope, string(run.Status)).Scan(&run.StartedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: start job %s", jobName)
	}
	return run, nil
}

func (s *PostgresStore) CompleteJob(ctx context.Context, run *model.JobRun, processed int, details map[string]any) error {
	detailsData, err := marshalJSON(details)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx, `
		UPDATE job_runs
		SET status = $2, finished_at = $3, processed_count = $4, details = $5
		WHERE id = $1`,
		run.ID, string(model.JobSuccess), now, processed, detailsData)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete job %s", run.JobName)
	}
	run.Status = model.JobSuccess
	run.FinishedAt = &now
	run.ProcessedCount = processed
	run.Details = details
	return nil
}

func (s *PostgresStore) FailJob(ctx context.Context, run *model.JobRun, jobErr string, details map[string]any) error {
	if len(jobErr) > maxJobErrorLen {
		jobErr = jobErr[:maxJobErrorLen]
	}
	detailsData, err := marshalJSON(details)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx, `
		UPDATE job_runs
		SET status = $2, finished_at = $3, error = $4, details = $5
		WHERE id = $1`,
		run.ID, string(model.JobFailed), now, jobErr, detailsData)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail job %s", run.JobName)
	}
	run.Status = model.JobFailed
	run.FinishedAt = &now
	run.Error = jobErr
	run.Details = details
	return nil
}

// SetCheckpoint upserts the durable cursor for (job_name, scope, key).
func (s *PostgresStore) SetCheckpoint(ctx context.Context, jobName, scope, key, value string, details map[string]any, jobRunID *uuid.UUID) error {
	detailsData, err := marshalJSON(details)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO job_checkpoints (id, job_run_id, job_name, scope, checkpoint_key, checkpoint_value, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT ON CONSTRAINT job_checkpoints_unique_scope_key_uidx
		DO UPDATE SET
			checkpoint_value = EXCLUDED.checkpoint_value,
			details = EXCLUDED.details,
			job_run_id = EXCLUDED.job_run_id,
			updated_at = now()`,
		uuid.New(), jobRunID, jobName, model.NormalizeScope(scope), key, value, detailsData)
	return eris.Wrapf(err, "postgres: set checkpoint %s/%s", jobName, key)
}

// GetCheckpoint returns the stored cursor value, or "" when none exists.
func (s *PostgresStore) GetCheckpoint(ctx context.Context, jobName, scope, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, `
		SELECT checkpoint_value
		FROM job_checkpoints
		WHERE job_name = $1 AND scope = $2 AND checkpoint_key = $3
		ORDER BY updated_at DESC, id DESC
		LIMIT 1`,
		jobName, model.NormalizeScope(scope), key).Scan(&value)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", eris.Wrapf(err, "postgres: get checkpoint %s/%s", jobName, key)
	}
	return value, nil
}

func (s *PostgresStore) ListJobRuns(ctx context.Context, f JobFilter) ([]model.JobRun, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, job_name, scope, status, started_at, finished_at, processed_count, details, COALESCE(error, '')
		FROM job_runs`
	args := []any{}
	if f.JobName != "" {
		query += ` WHERE job_name = $1`
		args = append(args, f.JobName)
	}
	query += fmt.Sprintf(` ORDER BY started_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list job runs")
	}
	defer rows.Close()

	var out []model.JobRun
	for rows.Next() {
		var (
			run         model.JobRun
			detailsData []byte
		)
		err := rows.Scan(&run.ID, &run.JobName, &run.Scope, &run.Status, &run.StartedAt,
			&run.FinishedAt, &run.ProcessedCount, &detailsData, &run.Error)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan job run")
		}
		if run.Details, err = unmarshalJSON(detailsData); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, eris.Wrap(rows.Err(), "postgres: job run rows")
}
