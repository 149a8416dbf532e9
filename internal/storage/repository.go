package storage

import "clipstream/internal/models"

// Repository is the persistence contract the HTTP layer depends on. Both the
// JSON-file Storage and the Postgres repository satisfy it.
type Repository interface {
	// Users
	CreateUser(params CreateUserParams) (models.User, error)
	GetUser(id string) (models.User, bool)
	FindUserByEmail(email string) (models.User, bool)
	FindUserByUsername(username string) (models.User, bool)
	UpdateUser(id string, update UserUpdate) (models.User, error)

	// Credentials and sessions
	AuthenticateUser(identifier, password string) (models.User, error)
	SetUserPassword(userID, currentPassword, newPassword string) error
	SetRefreshToken(userID, token string) error
	ClearRefreshToken(userID string) error

	// Videos
	CreateVideo(params CreateVideoParams) (models.Video, error)
	GetVideo(id string) (models.Video, bool)
	ListVideos(query VideoQuery) ([]models.Video, int, error)
	UpdateVideo(id string, update VideoUpdate) (models.Video, error)
	DeleteVideo(id string) (models.Video, error)
	TogglePublish(id string) (models.Video, error)
	RecordView(videoID, viewerID string) (models.Video, error)

	// Comments
	CreateComment(videoID, ownerID, content string) (models.Comment, error)
	GetComment(id string) (models.Comment, bool)
	ListComments(videoID string, page, pageSize int) ([]models.Comment, int, error)
	UpdateComment(id, content string) (models.Comment, error)
	DeleteComment(id string) error

	// Likes
	ToggleLike(target models.LikeTarget, targetID, userID string) (bool, error)
	CountLikes(target models.LikeTarget, targetID string) int
	ListLikedVideos(userID string) ([]models.Video, error)

	// Playlists
	CreatePlaylist(ownerID, name, description string) (models.Playlist, error)
	GetPlaylist(id string) (models.Playlist, bool)
	ListPlaylists(ownerID string) ([]models.Playlist, error)
	UpdatePlaylist(id string, update PlaylistUpdate) (models.Playlist, error)
	DeletePlaylist(id string) error
	AddVideoToPlaylist(playlistID, videoID string) (models.Playlist, error)
	RemoveVideoFromPlaylist(playlistID, videoID string) (models.Playlist, error)

	// Subscriptions
	ToggleSubscription(channelID, subscriberID string) (bool, error)
	ListChannelSubscribers(channelID string) ([]models.User, error)
	ListSubscribedChannels(subscriberID string) ([]models.User, error)
	CountSubscribers(channelID string) int
	IsSubscribed(channelID, subscriberID string) bool

	// Dashboard
	ChannelStats(channelID string) (models.ChannelStats, error)
	WatchHistory(userID string) ([]models.Video, error)

	// Ping reports whether the backing store is reachable.
	Ping() error
}

var _ Repository = (*Storage)(nil)

// Ping always succeeds for the in-process JSON store.
func (s *Storage) Ping() error {
	return nil
}
