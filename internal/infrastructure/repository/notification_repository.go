package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NotificationRepository stores in-app notifications. Gap detection emits
// one warning-typed notification per detecting call.
type NotificationRepository struct {
	db      *pgxpool.Pool
	enabled bool
}

func NewNotificationRepository(db *pgxpool.Pool, enabled bool) *NotificationRepository {
	return &NotificationRepository{db: db, enabled: enabled}
}

func (r *NotificationRepository) Notify(ctx context.Context, personID uuid.UUID, title, message, referenceType string, referenceID uuid.UUID) error {
	if !r.enabled {
		return nil
	}

	query := `
		INSERT INTO notificaciones (
			id, usuario_id, titulo, mensaje, tipo, tipo_referencia,
			referencia_id, leida, creado_en
		) VALUES ($1,$2,$3,$4,$5,$6,$7,FALSE,$8)`

	_, err := querier(ctx, r.db).Exec(ctx, query,
		uuid.New(), personID, title, message, "warning", referenceType,
		referenceID, time.Now().UTC(),
	)
	return translateError(err, "notification")
}
