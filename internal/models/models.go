package models

import "time"

// User is a registered account. Every user doubles as a channel that other
// users can subscribe to. PasswordHash and RefreshToken are persistence-only
// fields; API responses are built from sanitized views and never expose them.
type User struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	FullName      string    `json:"fullName"`
	Email         string    `json:"email"`
	AvatarURL     string    `json:"avatarUrl,omitempty"`
	CoverImageURL string    `json:"coverImageUrl,omitempty"`
	PasswordHash  string    `json:"passwordHash,omitempty"`
	RefreshToken  string    `json:"refreshToken,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Video is an uploaded recording hosted in the external media store. The
// *Key fields identify the stored objects so they can be removed when the
// video is deleted.
type Video struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"ownerId"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	VideoURL        string    `json:"videoUrl"`
	VideoKey        string    `json:"videoKey,omitempty"`
	ThumbnailURL    string    `json:"thumbnailUrl"`
	ThumbnailKey    string    `json:"thumbnailKey,omitempty"`
	DurationSeconds float64   `json:"durationSeconds"`
	Views           int64     `json:"views"`
	Published       bool      `json:"published"`
	Tags            []string  `json:"tags,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Comment is attached to a single video.
type Comment struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"videoId"`
	OwnerID   string    `json:"ownerId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LikeTarget discriminates what a like points at.
type LikeTarget string

const (
	LikeTargetVideo   LikeTarget = "video"
	LikeTargetComment LikeTarget = "comment"
)

// Like records that a user liked a video or a comment. At most one like per
// (user, target) pair exists; toggling removes it.
type Like struct {
	ID        string     `json:"id"`
	Target    LikeTarget `json:"target"`
	TargetID  string     `json:"targetId"`
	UserID    string     `json:"userId"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Playlist is an ordered collection of video references owned by a user.
type Playlist struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	VideoIDs    []string  `json:"videoIds"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Subscription links a subscriber to a channel (another user).
type Subscription struct {
	ID           string    `json:"id"`
	ChannelID    string    `json:"channelId"`
	SubscriberID string    `json:"subscriberId"`
	CreatedAt    time.Time `json:"createdAt"`
}

// WatchEntry records a single watch-history event for a user.
type WatchEntry struct {
	VideoID   string    `json:"videoId"`
	WatchedAt time.Time `json:"watchedAt"`
}

// ChannelStats aggregates dashboard counters for a channel owner.
type ChannelStats struct {
	TotalVideos      int   `json:"totalVideos"`
	TotalViews       int64 `json:"totalViews"`
	TotalSubscribers int   `json:"totalSubscribers"`
	TotalLikes       int   `json:"totalLikes"`
}
