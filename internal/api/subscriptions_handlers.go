package api

import (
	"fmt"
	"net/http"
	"strings"
)

// ChannelSubscription dispatches /api/subscriptions/{channelId} and its
// subroutes: POST toggles the caller's subscription, GET /subscribers lists a
// channel's subscribers.
func (h *Handler) ChannelSubscription(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/subscriptions/"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("channel not found"))
		return
	}
	channelID := parts[0]

	if len(parts) == 2 && parts[1] == "subscribers" {
		h.listSubscribers(w, r, channelID)
		return
	}
	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown subscription route"))
		return
	}

	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	subscribed, err := h.Store.ToggleSubscription(channelID, user.ID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"subscribed":      subscribed,
		"subscriberCount": h.Store.CountSubscribers(channelID),
	})
}

func (h *Handler) listSubscribers(w http.ResponseWriter, r *http.Request, channelID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	subscribers, err := h.Store.ListChannelSubscribers(channelID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	profiles := make([]userProfile, 0, len(subscribers))
	for _, subscriber := range subscribers {
		profiles = append(profiles, newUserProfile(subscriber))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"subscribers": profiles})
}

// Subscriptions lists the channels the authenticated user follows:
// GET /api/subscriptions.
func (h *Handler) Subscriptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	channels, err := h.Store.ListSubscribedChannels(user.ID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	profiles := make([]userProfile, 0, len(channels))
	for _, channel := range channels {
		profiles = append(profiles, newUserProfile(channel))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"channels": profiles})
}
