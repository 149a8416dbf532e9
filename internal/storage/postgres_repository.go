package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"clipstream/internal/models"
)

// PostgresConfig describes how the repository initialises its Postgres
// connection pool.
type PostgresConfig struct {
	DSN             string
	MaxConnections  int32
	MinConnections  int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration
	ApplicationName string
	// OperationTimeout bounds each repository call. The Repository interface
	// is context-free, so the timeout is applied internally.
	OperationTimeout time.Duration
}

const defaultPostgresOperationTimeout = 5 * time.Second

type postgresRepository struct {
	pool      *pgxpool.Pool
	opTimeout time.Duration
}

var _ Repository = (*postgresRepository)(nil)

// NewPostgresRepository opens a Postgres-backed repository and bootstraps the
// schema.
func NewPostgresRepository(cfg PostgresConfig) (Repository, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections > 0 {
		poolCfg.MinConns = cfg.MinConnections
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
	if cfg.ApplicationName != "" {
		if poolCfg.ConnConfig.RuntimeParams == nil {
			poolCfg.ConnConfig.RuntimeParams = make(map[string]string)
		}
		poolCfg.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	opTimeout := cfg.OperationTimeout
	if opTimeout <= 0 {
		opTimeout = defaultPostgresOperationTimeout
	}
	repo := &postgresRepository{pool: pool, opTimeout: opTimeout}
	if err := repo.migrate(); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

func (r *postgresRepository) Close() {
	if r != nil && r.pool != nil {
		r.pool.Close()
	}
}

func (r *postgresRepository) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.opTimeout)
}

func (r *postgresRepository) Ping() error {
	ctx, cancel := r.opContext()
	defer cancel()
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Users

func (r *postgresRepository) CreateUser(params CreateUserParams) (models.User, error) {
	username := normalizeUsername(params.Username)
	if username == "" {
		return models.User{}, errors.New("username is required")
	}
	email := normalizeEmail(params.Email)
	if email == "" {
		return models.User{}, errors.New("email is required")
	}
	fullName := strings.TrimSpace(params.FullName)
	if fullName == "" {
		fullName = username
	}
	if params.Password == "" {
		return models.User{}, errors.New("password is required")
	}
	passwordHash, err := hashPassword(params.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	id, err := generateID()
	if err != nil {
		return models.User{}, err
	}

	ctx, cancel := r.opContext()
	defer cancel()

	now := time.Now().UTC()
	user := models.User{
		ID:            id,
		Username:      username,
		FullName:      fullName,
		Email:         email,
		AvatarURL:     strings.TrimSpace(params.AvatarURL),
		CoverImageURL: strings.TrimSpace(params.CoverImageURL),
		PasswordHash:  passwordHash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO users (id, username, full_name, email, avatar_url, cover_image_url, password_hash, refresh_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, '', $8, $8)`,
		user.ID, user.Username, user.FullName, user.Email, user.AvatarURL, user.CoverImageURL, user.PasswordHash, now)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, fmt.Errorf("username or email: %w", ErrConflict)
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

const userColumns = "id, username, full_name, email, avatar_url, cover_image_url, password_hash, refresh_token, created_at, updated_at"

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.FullName, &user.Email, &user.AvatarURL,
		&user.CoverImageURL, &user.PasswordHash, &user.RefreshToken, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

func (r *postgresRepository) userBy(where string, arg interface{}) (models.User, bool) {
	ctx, cancel := r.opContext()
	defer cancel()
	user, err := scanUser(r.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE "+where, arg))
	if err != nil {
		return models.User{}, false
	}
	return user, true
}

func (r *postgresRepository) GetUser(id string) (models.User, bool) {
	return r.userBy("id = $1", id)
}

func (r *postgresRepository) FindUserByEmail(email string) (models.User, bool) {
	return r.userBy("email = $1", normalizeEmail(email))
}

func (r *postgresRepository) FindUserByUsername(username string) (models.User, bool) {
	return r.userBy("username = $1", normalizeUsername(username))
}

func (r *postgresRepository) UpdateUser(id string, update UserUpdate) (models.User, error) {
	user, ok := r.GetUser(id)
	if !ok {
		return models.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}

	if update.Username != nil {
		username := normalizeUsername(*update.Username)
		if username == "" {
			return models.User{}, errors.New("username cannot be empty")
		}
		user.Username = username
	}
	if update.FullName != nil {
		fullName := strings.TrimSpace(*update.FullName)
		if fullName == "" {
			return models.User{}, errors.New("fullName cannot be empty")
		}
		user.FullName = fullName
	}
	if update.Email != nil {
		email := normalizeEmail(*update.Email)
		if email == "" {
			return models.User{}, errors.New("email cannot be empty")
		}
		user.Email = email
	}
	if update.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*update.AvatarURL)
	}
	if update.CoverImageURL != nil {
		user.CoverImageURL = strings.TrimSpace(*update.CoverImageURL)
	}
	user.UpdatedAt = time.Now().UTC()

	ctx, cancel := r.opContext()
	defer cancel()
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET username = $2, full_name = $3, email = $4, avatar_url = $5, cover_image_url = $6, updated_at = $7
		WHERE id = $1`,
		user.ID, user.Username, user.FullName, user.Email, user.AvatarURL, user.CoverImageURL, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, fmt.Errorf("username or email: %w", ErrConflict)
		}
		return models.User{}, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// Credentials and sessions

func (r *postgresRepository) AuthenticateUser(identifier, password string) (models.User, error) {
	user, ok := r.FindUserByEmail(identifier)
	if !ok {
		user, ok = r.FindUserByUsername(identifier)
	}
	if !ok {
		return models.User{}, ErrInvalidCredentials
	}
	if err := verifyPassword(user.PasswordHash, password); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *postgresRepository) SetUserPassword(userID, currentPassword, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return errors.New("new password is required")
	}
	user, ok := r.GetUser(userID)
	if !ok {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if err := verifyPassword(user.PasswordHash, currentPassword); err != nil {
		return err
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	ctx, cancel := r.opContext()
	defer cancel()
	_, err = r.pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		userID, hash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (r *postgresRepository) SetRefreshToken(userID, token string) error {
	ctx, cancel := r.opContext()
	defer cancel()
	tag, err := r.pool.Exec(ctx, `UPDATE users SET refresh_token = $2, updated_at = $3 WHERE id = $1`,
		userID, token, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return nil
}

func (r *postgresRepository) ClearRefreshToken(userID string) error {
	return r.SetRefreshToken(userID, "")
}
