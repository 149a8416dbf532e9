package storage

import (
	"context"
	"fmt"
)

// schemaStatements are applied in order at startup. Every statement is
// idempotent so restarts against an existing database are safe.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		avatar_url TEXT NOT NULL DEFAULT '',
		cover_image_url TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		refresh_token TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS videos (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		video_url TEXT NOT NULL,
		video_key TEXT NOT NULL DEFAULT '',
		thumbnail_url TEXT NOT NULL,
		thumbnail_key TEXT NOT NULL DEFAULT '',
		duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
		views BIGINT NOT NULL DEFAULT 0,
		published BOOLEAN NOT NULL DEFAULT FALSE,
		tags TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_videos_owner ON videos(owner_id)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id TEXT PRIMARY KEY,
		video_id TEXT NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
		owner_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_video ON comments(video_id)`,
	`CREATE TABLE IF NOT EXISTS likes (
		id TEXT PRIMARY KEY,
		target TEXT NOT NULL,
		target_id TEXT NOT NULL,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (target, target_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_likes_target ON likes(target, target_id)`,
	`CREATE TABLE IF NOT EXISTS playlists (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		video_ids TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS subscriptions (
		id TEXT PRIMARY KEY,
		channel_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		subscriber_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (channel_id, subscriber_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_subscriptions_subscriber ON subscriptions(subscriber_id)`,
	`CREATE TABLE IF NOT EXISTS watch_history (
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		video_id TEXT NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
		watched_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (user_id, video_id)
	)`,
}

func (r *postgresRepository) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*r.opTimeout)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range schemaStatements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}
