package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestChannelSubscriptionToggle(t *testing.T) {
	handler, store := newTestHandler(t)
	alice := createAccount(t, store, "alice")
	bob := createAccount(t, store, "bob")

	rec := httptest.NewRecorder()
	handler.ChannelSubscription(rec, asUser(httptest.NewRequest(http.MethodPost, "/api/subscriptions/"+alice.ID, nil), bob))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var response struct {
		Subscribed      bool `json:"subscribed"`
		SubscriberCount int  `json:"subscriberCount"`
	}
	decodeResponse(t, rec, &response)
	if !response.Subscribed || response.SubscriberCount != 1 {
		t.Fatalf("expected subscribed with count 1, got %+v", response)
	}

	rec = httptest.NewRecorder()
	handler.ChannelSubscription(rec, asUser(httptest.NewRequest(http.MethodPost, "/api/subscriptions/"+alice.ID, nil), bob))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	decodeResponse(t, rec, &response)
	if response.Subscribed || response.SubscriberCount != 0 {
		t.Fatalf("expected unsubscribed with count 0, got %+v", response)
	}
}

func TestChannelSubscriptionRejectsSelfAndMissing(t *testing.T) {
	handler, store := newTestHandler(t)
	alice := createAccount(t, store, "alice")

	rec := httptest.NewRecorder()
	handler.ChannelSubscription(rec, asUser(httptest.NewRequest(http.MethodPost, "/api/subscriptions/"+alice.ID, nil), alice))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for self-subscribe, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ChannelSubscription(rec, asUser(httptest.NewRequest(http.MethodPost, "/api/subscriptions/missing", nil), alice))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing channel, got %d", rec.Code)
	}
}

func TestSubscriberAndChannelListings(t *testing.T) {
	handler, store := newTestHandler(t)
	alice := createAccount(t, store, "alice")
	bob := createAccount(t, store, "bob")
	if _, err := store.ToggleSubscription(alice.ID, bob.ID); err != nil {
		t.Fatalf("ToggleSubscription: %v", err)
	}

	rec := httptest.NewRecorder()
	handler.ChannelSubscription(rec, httptest.NewRequest(http.MethodGet, "/api/subscriptions/"+alice.ID+"/subscribers", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var subscribers struct {
		Subscribers []userProfile `json:"subscribers"`
	}
	decodeResponse(t, rec, &subscribers)
	if len(subscribers.Subscribers) != 1 || subscribers.Subscribers[0].ID != bob.ID {
		t.Fatalf("expected subscriber %s, got %+v", bob.ID, subscribers.Subscribers)
	}

	rec = httptest.NewRecorder()
	handler.Subscriptions(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/subscriptions", nil), bob))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var channels struct {
		Channels []userProfile `json:"channels"`
	}
	decodeResponse(t, rec, &channels)
	if len(channels.Channels) != 1 || channels.Channels[0].ID != alice.ID {
		t.Fatalf("expected channel %s, got %+v", alice.ID, channels.Channels)
	}

	rec = httptest.NewRecorder()
	handler.Subscriptions(rec, httptest.NewRequest(http.MethodGet, "/api/subscriptions", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without user, got %d", rec.Code)
	}
}
