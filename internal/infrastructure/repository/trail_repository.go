package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qmscore/quality-compliance-backend/internal/domain/auditing"
)

// TrailRepository appends change-trail entries. Action verbs outside the
// known set normalize to UPDATE before hitting storage.
type TrailRepository struct {
	db *pgxpool.Pool
}

func NewTrailRepository(db *pgxpool.Pool) *TrailRepository {
	return &TrailRepository{db: db}
}

func (r *TrailRepository) Record(ctx context.Context, table string, recordID uuid.UUID, action string, actorID *uuid.UUID, changes map[string]interface{}) error {
	entry := auditing.NewTrailEntry(table, recordID, action, actorID, changes)

	var changesJSON []byte
	if entry.Changes != nil {
		var err error
		changesJSON, err = json.Marshal(entry.Changes)
		if err != nil {
			return translateError(err, "trail entry")
		}
	}

	query := `
		INSERT INTO registro_cambios (
			id, tabla, registro_id, accion, actor_id, cambios, creado_en
		) VALUES ($1,$2,$3,$4,$5,$6,$7)`

	_, err := querier(ctx, r.db).Exec(ctx, query,
		entry.ID, entry.Table, entry.RecordID, entry.Action, entry.ActorID,
		changesJSON, entry.At,
	)
	return translateError(err, "trail entry")
}
