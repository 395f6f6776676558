package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/uhcare-api/internal/model"
	"github.com/jwalitptl/uhcare-api/internal/repository"
)

type activityRepository struct {
	BaseRepository
}

func NewActivityRepository(db *sqlx.DB) repository.ActivityRepository {
	return &activityRepository{NewBaseRepository(db)}
}

func (r *activityRepository) Create(ctx context.Context, a *model.Activity) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO order_activities (
			id, entity_kind, entity_id, actor_id, activity_type, title, message, metadata, created_at
		) VALUES (
			:id, :entity_kind, :entity_id, :actor_id, :activity_type, :title, :message, :metadata, :created_at
		)`
	if _, err := sqlx.NamedExecContext(ctx, r.ext(ctx), query, a); err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}
	return nil
}

func (r *activityRepository) ListByEntity(ctx context.Context, ref model.Ref) ([]*model.Activity, error) {
	query := `
		SELECT id, entity_kind, entity_id, actor_id, activity_type, title, message, metadata, created_at
		FROM order_activities
		WHERE entity_kind = $1 AND entity_id = $2
		ORDER BY created_at ASC`

	var activities []*model.Activity
	if err := sqlx.SelectContext(ctx, r.ext(ctx), &activities, query, ref.Kind, ref.ID); err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return activities, nil
}
