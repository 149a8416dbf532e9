package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"clipstream/internal/models"
)

const videoColumns = "id, owner_id, title, description, video_url, video_key, thumbnail_url, thumbnail_key, duration_seconds, views, published, tags, created_at, updated_at"

// qualifyColumns prefixes each column with a table name so joined queries do
// not hit ambiguous column references.
func qualifyColumns(table, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, part := range parts {
		parts[i] = table + "." + part
	}
	return strings.Join(parts, ", ")
}

func scanVideo(row pgx.Row) (models.Video, error) {
	var video models.Video
	err := row.Scan(&video.ID, &video.OwnerID, &video.Title, &video.Description,
		&video.VideoURL, &video.VideoKey, &video.ThumbnailURL, &video.ThumbnailKey,
		&video.DurationSeconds, &video.Views, &video.Published, &video.Tags,
		&video.CreatedAt, &video.UpdatedAt)
	return video, err
}

func collectVideos(rows pgx.Rows) ([]models.Video, error) {
	defer rows.Close()
	videos := make([]models.Video, 0)
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read videos: %w", err)
	}
	return videos, nil
}

// Videos

func (r *postgresRepository) CreateVideo(params CreateVideoParams) (models.Video, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return models.Video{}, errors.New("title is required")
	}
	if strings.TrimSpace(params.VideoURL) == "" {
		return models.Video{}, errors.New("video file is required")
	}
	if strings.TrimSpace(params.ThumbnailURL) == "" {
		return models.Video{}, errors.New("thumbnail is required")
	}
	if _, ok := r.GetUser(params.OwnerID); !ok {
		return models.Video{}, fmt.Errorf("user %s: %w", params.OwnerID, ErrNotFound)
	}

	id, err := generateID()
	if err != nil {
		return models.Video{}, err
	}

	now := time.Now().UTC()
	video := models.Video{
		ID:              id,
		OwnerID:         params.OwnerID,
		Title:           title,
		Description:     strings.TrimSpace(params.Description),
		VideoURL:        strings.TrimSpace(params.VideoURL),
		VideoKey:        strings.TrimSpace(params.VideoKey),
		ThumbnailURL:    strings.TrimSpace(params.ThumbnailURL),
		ThumbnailKey:    strings.TrimSpace(params.ThumbnailKey),
		DurationSeconds: params.DurationSeconds,
		Published:       params.Published,
		Tags:            normalizeTags(params.Tags),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	ctx, cancel := r.opContext()
	defer cancel()
	_, err = r.pool.Exec(ctx, `
		INSERT INTO videos (id, owner_id, title, description, video_url, video_key, thumbnail_url, thumbnail_key, duration_seconds, views, published, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10, $11, $12, $12)`,
		video.ID, video.OwnerID, video.Title, video.Description, video.VideoURL, video.VideoKey,
		video.ThumbnailURL, video.ThumbnailKey, video.DurationSeconds, video.Published,
		tagsOrEmpty(video.Tags), now)
	if err != nil {
		return models.Video{}, fmt.Errorf("insert video: %w", err)
	}
	return video, nil
}

// tagsOrEmpty keeps the NOT NULL array column happy when no tags are set.
func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func (r *postgresRepository) GetVideo(id string) (models.Video, bool) {
	ctx, cancel := r.opContext()
	defer cancel()
	video, err := scanVideo(r.pool.QueryRow(ctx, "SELECT "+videoColumns+" FROM videos WHERE id = $1", id))
	if err != nil {
		return models.Video{}, false
	}
	return video, true
}

func videoOrderClause(sortBy string, ascending bool) (string, error) {
	var column string
	switch sortBy {
	case "", "createdAt":
		column = "created_at"
	case "views":
		column = "views"
	case "duration":
		column = "duration_seconds"
	case "title":
		column = "lower(title)"
	default:
		return "", fmt.Errorf("unsupported sort field %q", sortBy)
	}
	direction := "DESC"
	if ascending {
		direction = "ASC"
	}
	return fmt.Sprintf("ORDER BY %s %s, id %s", column, direction, direction), nil
}

func escapeLikePattern(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

func (r *postgresRepository) ListVideos(query VideoQuery) ([]models.Video, int, error) {
	orderClause, err := videoOrderClause(query.SortBy, query.SortAscending)
	if err != nil {
		return nil, 0, err
	}

	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)
	if query.OwnerID != "" {
		args = append(args, query.OwnerID)
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", len(args)))
	}
	if !query.IncludeUnpublished {
		conditions = append(conditions, "published")
	}
	if needle := strings.TrimSpace(query.Search); needle != "" {
		args = append(args, "%"+escapeLikePattern(needle)+"%")
		conditions = append(conditions, fmt.Sprintf("(title || ' ' || description) ILIKE $%d", len(args)))
	}
	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	ctx, cancel := r.opContext()
	defer cancel()

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM videos "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count videos: %w", err)
	}

	page, pageSize := normalizePage(query.Page, query.PageSize)
	args = append(args, pageSize, (page-1)*pageSize)
	sql := fmt.Sprintf("SELECT %s FROM videos %s %s LIMIT $%d OFFSET $%d",
		videoColumns, whereClause, orderClause, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list videos: %w", err)
	}
	videos, err := collectVideos(rows)
	if err != nil {
		return nil, 0, err
	}
	return videos, total, nil
}

func (r *postgresRepository) UpdateVideo(id string, update VideoUpdate) (models.Video, error) {
	video, ok := r.GetVideo(id)
	if !ok {
		return models.Video{}, fmt.Errorf("video %s: %w", id, ErrNotFound)
	}

	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return models.Video{}, errors.New("title cannot be empty")
		}
		video.Title = title
	}
	if update.Description != nil {
		video.Description = strings.TrimSpace(*update.Description)
	}
	if update.ThumbnailURL != nil {
		url := strings.TrimSpace(*update.ThumbnailURL)
		if url == "" {
			return models.Video{}, errors.New("thumbnail cannot be empty")
		}
		video.ThumbnailURL = url
	}
	if update.ThumbnailKey != nil {
		video.ThumbnailKey = strings.TrimSpace(*update.ThumbnailKey)
	}
	if update.Tags != nil {
		video.Tags = normalizeTags(*update.Tags)
	}
	video.UpdatedAt = time.Now().UTC()

	ctx, cancel := r.opContext()
	defer cancel()
	_, err := r.pool.Exec(ctx, `
		UPDATE videos SET title = $2, description = $3, thumbnail_url = $4, thumbnail_key = $5, tags = $6, updated_at = $7
		WHERE id = $1`,
		video.ID, video.Title, video.Description, video.ThumbnailURL, video.ThumbnailKey,
		tagsOrEmpty(video.Tags), video.UpdatedAt)
	if err != nil {
		return models.Video{}, fmt.Errorf("update video: %w", err)
	}
	return video, nil
}

func (r *postgresRepository) DeleteVideo(id string) (models.Video, error) {
	ctx, cancel := r.opContext()
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback(ctx)

	video, err := scanVideo(tx.QueryRow(ctx, "SELECT "+videoColumns+" FROM videos WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, fmt.Errorf("video %s: %w", id, ErrNotFound)
		}
		return models.Video{}, fmt.Errorf("load video: %w", err)
	}

	// Likes reference targets without foreign keys, and playlists embed video
	// ids in an array, so both are cleaned up here. Comments and watch
	// history cascade through their foreign keys.
	if _, err := tx.Exec(ctx, `
		DELETE FROM likes WHERE (target = $1 AND target_id = $2)
		OR (target = $3 AND target_id IN (SELECT id FROM comments WHERE video_id = $2))`,
		models.LikeTargetVideo, id, models.LikeTargetComment); err != nil {
		return models.Video{}, fmt.Errorf("delete video likes: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE playlists SET video_ids = array_remove(video_ids, $1), updated_at = $2
		WHERE $1 = ANY(video_ids)`, id, time.Now().UTC()); err != nil {
		return models.Video{}, fmt.Errorf("prune playlists: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id); err != nil {
		return models.Video{}, fmt.Errorf("delete video: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return models.Video{}, fmt.Errorf("commit delete: %w", err)
	}
	return video, nil
}

func (r *postgresRepository) TogglePublish(id string) (models.Video, error) {
	ctx, cancel := r.opContext()
	defer cancel()
	video, err := scanVideo(r.pool.QueryRow(ctx, `
		UPDATE videos SET published = NOT published, updated_at = $2
		WHERE id = $1
		RETURNING `+videoColumns, id, time.Now().UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, fmt.Errorf("video %s: %w", id, ErrNotFound)
		}
		return models.Video{}, fmt.Errorf("toggle publish: %w", err)
	}
	return video, nil
}

func (r *postgresRepository) RecordView(videoID, viewerID string) (models.Video, error) {
	ctx, cancel := r.opContext()
	defer cancel()

	video, err := scanVideo(r.pool.QueryRow(ctx, `
		UPDATE videos SET views = views + 1 WHERE id = $1 RETURNING `+videoColumns, videoID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
		}
		return models.Video{}, fmt.Errorf("record view: %w", err)
	}

	if viewerID != "" {
		_, err = r.pool.Exec(ctx, `
			INSERT INTO watch_history (user_id, video_id, watched_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, video_id) DO UPDATE SET watched_at = EXCLUDED.watched_at`,
			viewerID, videoID, time.Now().UTC())
		if err != nil {
			return models.Video{}, fmt.Errorf("record watch history: %w", err)
		}
	}
	return video, nil
}

// Comments

const commentColumns = "id, video_id, owner_id, content, created_at, updated_at"

func scanComment(row pgx.Row) (models.Comment, error) {
	var comment models.Comment
	err := row.Scan(&comment.ID, &comment.VideoID, &comment.OwnerID, &comment.Content,
		&comment.CreatedAt, &comment.UpdatedAt)
	return comment, err
}

func (r *postgresRepository) CreateComment(videoID, ownerID, content string) (models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Comment{}, errors.New("content is required")
	}
	if _, ok := r.GetVideo(videoID); !ok {
		return models.Comment{}, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	}
	if _, ok := r.GetUser(ownerID); !ok {
		return models.Comment{}, fmt.Errorf("user %s: %w", ownerID, ErrNotFound)
	}

	id, err := generateID()
	if err != nil {
		return models.Comment{}, err
	}
	now := time.Now().UTC()
	comment := models.Comment{
		ID:        id,
		VideoID:   videoID,
		OwnerID:   ownerID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	ctx, cancel := r.opContext()
	defer cancel()
	_, err = r.pool.Exec(ctx, `
		INSERT INTO comments (id, video_id, owner_id, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)`,
		comment.ID, comment.VideoID, comment.OwnerID, comment.Content, now)
	if err != nil {
		return models.Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	return comment, nil
}

func (r *postgresRepository) GetComment(id string) (models.Comment, bool) {
	ctx, cancel := r.opContext()
	defer cancel()
	comment, err := scanComment(r.pool.QueryRow(ctx, "SELECT "+commentColumns+" FROM comments WHERE id = $1", id))
	if err != nil {
		return models.Comment{}, false
	}
	return comment, true
}

func (r *postgresRepository) ListComments(videoID string, page, pageSize int) ([]models.Comment, int, error) {
	if _, ok := r.GetVideo(videoID); !ok {
		return nil, 0, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	}

	ctx, cancel := r.opContext()
	defer cancel()

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM comments WHERE video_id = $1`, videoID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count comments: %w", err)
	}

	page, pageSize = normalizePage(page, pageSize)
	rows, err := r.pool.Query(ctx, `
		SELECT `+commentColumns+` FROM comments WHERE video_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		videoID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	comments := make([]models.Comment, 0)
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("read comments: %w", err)
	}
	return comments, total, nil
}

func (r *postgresRepository) UpdateComment(id, content string) (models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Comment{}, errors.New("content is required")
	}

	ctx, cancel := r.opContext()
	defer cancel()
	comment, err := scanComment(r.pool.QueryRow(ctx, `
		UPDATE comments SET content = $2, updated_at = $3 WHERE id = $1
		RETURNING `+commentColumns, id, content, time.Now().UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Comment{}, fmt.Errorf("comment %s: %w", id, ErrNotFound)
		}
		return models.Comment{}, fmt.Errorf("update comment: %w", err)
	}
	return comment, nil
}

func (r *postgresRepository) DeleteComment(id string) error {
	ctx, cancel := r.opContext()
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM likes WHERE target = $1 AND target_id = $2`,
		models.LikeTargetComment, id); err != nil {
		return fmt.Errorf("delete comment likes: %w", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("comment %s: %w", id, ErrNotFound)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

// Likes

func (r *postgresRepository) ToggleLike(target models.LikeTarget, targetID, userID string) (bool, error) {
	switch target {
	case models.LikeTargetVideo:
		if _, ok := r.GetVideo(targetID); !ok {
			return false, fmt.Errorf("video %s: %w", targetID, ErrNotFound)
		}
	case models.LikeTargetComment:
		if _, ok := r.GetComment(targetID); !ok {
			return false, fmt.Errorf("comment %s: %w", targetID, ErrNotFound)
		}
	default:
		return false, fmt.Errorf("unsupported like target %q", target)
	}

	ctx, cancel := r.opContext()
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
		DELETE FROM likes WHERE target = $1 AND target_id = $2 AND user_id = $3`,
		target, targetID, userID)
	if err != nil {
		return false, fmt.Errorf("remove like: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	id, err := generateID()
	if err != nil {
		return false, err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO likes (id, target, target_id, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (target, target_id, user_id) DO NOTHING`,
		id, target, targetID, userID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("insert like: %w", err)
	}
	return true, nil
}

func (r *postgresRepository) CountLikes(target models.LikeTarget, targetID string) int {
	ctx, cancel := r.opContext()
	defer cancel()
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM likes WHERE target = $1 AND target_id = $2`,
		target, targetID).Scan(&count); err != nil {
		return 0
	}
	return count
}

func (r *postgresRepository) ListLikedVideos(userID string) ([]models.Video, error) {
	ctx, cancel := r.opContext()
	defer cancel()
	rows, err := r.pool.Query(ctx, `
		SELECT `+qualifyColumns("videos", videoColumns)+` FROM videos
		JOIN likes ON likes.target_id = videos.id AND likes.target = $1
		WHERE likes.user_id = $2 AND videos.published
		ORDER BY likes.created_at DESC`,
		models.LikeTargetVideo, userID)
	if err != nil {
		return nil, fmt.Errorf("list liked videos: %w", err)
	}
	return collectVideos(rows)
}

// Playlists

const playlistColumns = "id, owner_id, name, description, video_ids, created_at, updated_at"

func scanPlaylist(row pgx.Row) (models.Playlist, error) {
	var playlist models.Playlist
	err := row.Scan(&playlist.ID, &playlist.OwnerID, &playlist.Name, &playlist.Description,
		&playlist.VideoIDs, &playlist.CreatedAt, &playlist.UpdatedAt)
	if playlist.VideoIDs == nil {
		playlist.VideoIDs = []string{}
	}
	return playlist, err
}

func (r *postgresRepository) CreatePlaylist(ownerID, name, description string) (models.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Playlist{}, errors.New("name is required")
	}
	if _, ok := r.GetUser(ownerID); !ok {
		return models.Playlist{}, fmt.Errorf("user %s: %w", ownerID, ErrNotFound)
	}

	id, err := generateID()
	if err != nil {
		return models.Playlist{}, err
	}
	now := time.Now().UTC()
	playlist := models.Playlist{
		ID:          id,
		OwnerID:     ownerID,
		Name:        name,
		Description: strings.TrimSpace(description),
		VideoIDs:    []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	ctx, cancel := r.opContext()
	defer cancel()
	_, err = r.pool.Exec(ctx, `
		INSERT INTO playlists (id, owner_id, name, description, video_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, '{}', $5, $5)`,
		playlist.ID, playlist.OwnerID, playlist.Name, playlist.Description, now)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("insert playlist: %w", err)
	}
	return playlist, nil
}

func (r *postgresRepository) GetPlaylist(id string) (models.Playlist, bool) {
	ctx, cancel := r.opContext()
	defer cancel()
	playlist, err := scanPlaylist(r.pool.QueryRow(ctx, "SELECT "+playlistColumns+" FROM playlists WHERE id = $1", id))
	if err != nil {
		return models.Playlist{}, false
	}
	return playlist, true
}

func (r *postgresRepository) ListPlaylists(ownerID string) ([]models.Playlist, error) {
	if _, ok := r.GetUser(ownerID); !ok {
		return nil, fmt.Errorf("user %s: %w", ownerID, ErrNotFound)
	}

	ctx, cancel := r.opContext()
	defer cancel()
	rows, err := r.pool.Query(ctx, `
		SELECT `+playlistColumns+` FROM playlists WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	defer rows.Close()

	playlists := make([]models.Playlist, 0)
	for rows.Next() {
		playlist, err := scanPlaylist(rows)
		if err != nil {
			return nil, fmt.Errorf("scan playlist: %w", err)
		}
		playlists = append(playlists, playlist)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read playlists: %w", err)
	}
	return playlists, nil
}

func (r *postgresRepository) UpdatePlaylist(id string, update PlaylistUpdate) (models.Playlist, error) {
	playlist, ok := r.GetPlaylist(id)
	if !ok {
		return models.Playlist{}, fmt.Errorf("playlist %s: %w", id, ErrNotFound)
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return models.Playlist{}, errors.New("name cannot be empty")
		}
		playlist.Name = name
	}
	if update.Description != nil {
		playlist.Description = strings.TrimSpace(*update.Description)
	}
	playlist.UpdatedAt = time.Now().UTC()

	ctx, cancel := r.opContext()
	defer cancel()
	_, err := r.pool.Exec(ctx, `
		UPDATE playlists SET name = $2, description = $3, updated_at = $4 WHERE id = $1`,
		playlist.ID, playlist.Name, playlist.Description, playlist.UpdatedAt)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("update playlist: %w", err)
	}
	return playlist, nil
}

func (r *postgresRepository) DeletePlaylist(id string) error {
	ctx, cancel := r.opContext()
	defer cancel()
	tag, err := r.pool.Exec(ctx, `DELETE FROM playlists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("playlist %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *postgresRepository) AddVideoToPlaylist(playlistID, videoID string) (models.Playlist, error) {
	playlist, ok := r.GetPlaylist(playlistID)
	if !ok {
		return models.Playlist{}, fmt.Errorf("playlist %s: %w", playlistID, ErrNotFound)
	}
	if _, ok := r.GetVideo(videoID); !ok {
		return models.Playlist{}, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	}
	for _, existing := range playlist.VideoIDs {
		if existing == videoID {
			return models.Playlist{}, fmt.Errorf("video %s in playlist: %w", videoID, ErrConflict)
		}
	}

	ctx, cancel := r.opContext()
	defer cancel()
	playlist, err := scanPlaylist(r.pool.QueryRow(ctx, `
		UPDATE playlists SET video_ids = array_append(video_ids, $2), updated_at = $3
		WHERE id = $1 AND NOT ($2 = ANY(video_ids))
		RETURNING `+playlistColumns, playlistID, videoID, time.Now().UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Playlist{}, fmt.Errorf("video %s in playlist: %w", videoID, ErrConflict)
		}
		return models.Playlist{}, fmt.Errorf("add video to playlist: %w", err)
	}
	return playlist, nil
}

func (r *postgresRepository) RemoveVideoFromPlaylist(playlistID, videoID string) (models.Playlist, error) {
	playlist, ok := r.GetPlaylist(playlistID)
	if !ok {
		return models.Playlist{}, fmt.Errorf("playlist %s: %w", playlistID, ErrNotFound)
	}
	found := false
	for _, existing := range playlist.VideoIDs {
		if existing == videoID {
			found = true
			break
		}
	}
	if !found {
		return models.Playlist{}, fmt.Errorf("video %s in playlist: %w", videoID, ErrNotFound)
	}

	ctx, cancel := r.opContext()
	defer cancel()
	playlist, err := scanPlaylist(r.pool.QueryRow(ctx, `
		UPDATE playlists SET video_ids = array_remove(video_ids, $2), updated_at = $3
		WHERE id = $1
		RETURNING `+playlistColumns, playlistID, videoID, time.Now().UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Playlist{}, fmt.Errorf("playlist %s: %w", playlistID, ErrNotFound)
		}
		return models.Playlist{}, fmt.Errorf("remove video from playlist: %w", err)
	}
	return playlist, nil
}

// Subscriptions

func (r *postgresRepository) ToggleSubscription(channelID, subscriberID string) (bool, error) {
	if channelID == subscriberID {
		return false, errors.New("cannot subscribe to your own channel")
	}
	if _, ok := r.GetUser(channelID); !ok {
		return false, fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}

	ctx, cancel := r.opContext()
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
		DELETE FROM subscriptions WHERE channel_id = $1 AND subscriber_id = $2`,
		channelID, subscriberID)
	if err != nil {
		return false, fmt.Errorf("remove subscription: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	id, err := generateID()
	if err != nil {
		return false, err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO subscriptions (id, channel_id, subscriber_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (channel_id, subscriber_id) DO NOTHING`,
		id, channelID, subscriberID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("insert subscription: %w", err)
	}
	return true, nil
}

func (r *postgresRepository) listSubscriptionUsers(sql, id string) ([]models.User, error) {
	ctx, cancel := r.opContext()
	defer cancel()
	rows, err := r.pool.Query(ctx, sql, id)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read subscriptions: %w", err)
	}
	return users, nil
}

func (r *postgresRepository) ListChannelSubscribers(channelID string) ([]models.User, error) {
	if _, ok := r.GetUser(channelID); !ok {
		return nil, fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}
	return r.listSubscriptionUsers(`
		SELECT `+qualifyColumns("users", userColumns)+` FROM users
		JOIN subscriptions ON subscriptions.subscriber_id = users.id
		WHERE subscriptions.channel_id = $1
		ORDER BY subscriptions.created_at DESC`, channelID)
}

func (r *postgresRepository) ListSubscribedChannels(subscriberID string) ([]models.User, error) {
	if _, ok := r.GetUser(subscriberID); !ok {
		return nil, fmt.Errorf("user %s: %w", subscriberID, ErrNotFound)
	}
	return r.listSubscriptionUsers(`
		SELECT `+qualifyColumns("users", userColumns)+` FROM users
		JOIN subscriptions ON subscriptions.channel_id = users.id
		WHERE subscriptions.subscriber_id = $1
		ORDER BY subscriptions.created_at DESC`, subscriberID)
}

func (r *postgresRepository) CountSubscribers(channelID string) int {
	ctx, cancel := r.opContext()
	defer cancel()
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM subscriptions WHERE channel_id = $1`,
		channelID).Scan(&count); err != nil {
		return 0
	}
	return count
}

func (r *postgresRepository) IsSubscribed(channelID, subscriberID string) bool {
	ctx, cancel := r.opContext()
	defer cancel()
	var exists bool
	if err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM subscriptions WHERE channel_id = $1 AND subscriber_id = $2)`,
		channelID, subscriberID).Scan(&exists); err != nil {
		return false
	}
	return exists
}

// Dashboard

func (r *postgresRepository) ChannelStats(channelID string) (models.ChannelStats, error) {
	if _, ok := r.GetUser(channelID); !ok {
		return models.ChannelStats{}, fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}

	ctx, cancel := r.opContext()
	defer cancel()

	var stats models.ChannelStats
	err := r.pool.QueryRow(ctx, `
		SELECT count(*), COALESCE(sum(views), 0) FROM videos WHERE owner_id = $1`,
		channelID).Scan(&stats.TotalVideos, &stats.TotalViews)
	if err != nil {
		return models.ChannelStats{}, fmt.Errorf("aggregate videos: %w", err)
	}
	err = r.pool.QueryRow(ctx, `SELECT count(*) FROM subscriptions WHERE channel_id = $1`,
		channelID).Scan(&stats.TotalSubscribers)
	if err != nil {
		return models.ChannelStats{}, fmt.Errorf("count subscribers: %w", err)
	}
	err = r.pool.QueryRow(ctx, `
		SELECT count(*) FROM likes
		JOIN videos ON videos.id = likes.target_id
		WHERE likes.target = $1 AND videos.owner_id = $2`,
		models.LikeTargetVideo, channelID).Scan(&stats.TotalLikes)
	if err != nil {
		return models.ChannelStats{}, fmt.Errorf("count likes: %w", err)
	}
	return stats, nil
}

func (r *postgresRepository) WatchHistory(userID string) ([]models.Video, error) {
	if _, ok := r.GetUser(userID); !ok {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	ctx, cancel := r.opContext()
	defer cancel()
	rows, err := r.pool.Query(ctx, `
		SELECT `+qualifyColumns("videos", videoColumns)+` FROM videos
		JOIN watch_history ON watch_history.video_id = videos.id
		WHERE watch_history.user_id = $1
		ORDER BY watch_history.watched_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list watch history: %w", err)
	}
	return collectVideos(rows)
}
