package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dimitrije/linkshelf-api/internal/database"
	"github.com/dimitrije/linkshelf-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrUserNotFound = errors.New("user not found")

type UserService struct {
	db *database.DB
}

func NewUserService(db *database.DB) *UserService {
	return &UserService{db: db}
}

// FindOrCreate returns the user registered under email, creating it with
// name when none exists.
func (s *UserService) FindOrCreate(ctx context.Context, email, name string) (*models.User, error) {
	user, err := s.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	var created models.User
	err = s.db.Pool.QueryRow(ctx, `
		INSERT INTO users (email, name)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id, email, name, created_at, updated_at
	`, email, name).Scan(
		&created.ID, &created.Email, &created.Name, &created.CreatedAt, &created.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &created, nil
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.getOne(ctx, `
		SELECT id, email, name, created_at, updated_at
		FROM users WHERE id = $1
	`, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getOne(ctx, `
		SELECT id, email, name, created_at, updated_at
		FROM users WHERE email = $1
	`, email)
}

func (s *UserService) getOne(ctx context.Context, sql string, arg any) (*models.User, error) {
	var user models.User
	err := s.db.Pool.QueryRow(ctx, sql, arg).Scan(
		&user.ID, &user.Email, &user.Name, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
