package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/sirupsen/logrus"

	"github.com/nekogravitycat/resort-booking-backend/internal/db"
)

// SystemActor attributes transitions made without a caller, such as the hold sweep.
const SystemActor = "system"

// Entry is one state-transition record.
type Entry struct {
	Actor    string
	Action   string
	Entity   string
	EntityID string
	Details  map[string]any
}

// Recorder persists audit entries. Callers treat it as best effort.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// LogRecorder writes entries as structured log lines.
type LogRecorder struct {
	log logrus.FieldLogger
}

func NewLogRecorder(log logrus.FieldLogger) *LogRecorder {
	return &LogRecorder{log: log}
}

func (r *LogRecorder) Record(_ context.Context, e Entry) error {
	r.log.WithFields(logrus.Fields{
		"actor":     e.Actor,
		"action":    e.Action,
		"entity":    e.Entity,
		"entity_id": e.EntityID,
		"details":   e.Details,
	}).Info("audit")
	return nil
}

type pgxRecorder struct {
	q db.DBTX
}

// NewPgxRecorder stores entries in public.audit_logs.
func NewPgxRecorder(q db.DBTX) Recorder {
	return &pgxRecorder{q: q}
}

func (r *pgxRecorder) Record(ctx context.Context, e Entry) error {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("marshal audit details failed: %w", err)
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.audit_logs").
		Columns("actor", "action", "entity", "entity_id", "details").
		Values(e.Actor, e.Action, e.Entity, e.EntityID, details).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert audit query failed: %w", err)
	}
	if _, err := r.q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert audit log failed: %w", err)
	}
	return nil
}

// Safe logs and swallows recorder failures so they never reach the caller.
func Safe(ctx context.Context, r Recorder, log logrus.FieldLogger, e Entry) {
	if r == nil {
		return
	}
	if err := r.Record(ctx, e); err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"action":    e.Action,
			"entity_id": e.EntityID,
		}).Warn("audit record failed")
	}
}
