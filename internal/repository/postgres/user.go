package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/uhcare-api/internal/model"
	"github.com/jwalitptl/uhcare-api/internal/repository"
)

type userDirectory struct {
	BaseRepository
}

func NewUserDirectory(db *sqlx.DB) repository.UserDirectory {
	return &userDirectory{NewBaseRepository(db)}
}

func (r *userDirectory) Contact(ctx context.Context, userID uuid.UUID) (*model.Contact, error) {
	var c model.Contact
	query := `
		SELECT id, email, COALESCE(phone, '') AS phone,
			COALESCE(first_name, '') AS first_name, COALESCE(last_name, '') AS last_name
		FROM users
		WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.ext(ctx), &c, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get user contact: %w", notFound(err))
	}
	return &c, nil
}
