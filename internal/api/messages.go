package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"lynqio/client/internal/cache"
)

// Message is one message in a channel. Pending is true while the message is a
// provisional optimistic entry that the server has not confirmed.
type Message struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	SentAt    time.Time `json:"sent_at"`
	Pending   bool      `json:"-"`
}

// Channel is a conversation thread with a prospect.
type Channel struct {
	ID           string    `json:"id"`
	OrgID        string    `json:"org_id"`
	ProspectID   string    `json:"prospect_id"`
	ProspectName string    `json:"prospect_name"`
	LastActivity time.Time `json:"last_activity"`
}

// MessageService reads and mutates channel messages through the cache.
// Messages are cached per channel: the channel id is the page component of
// the cache key.
type MessageService struct {
	client  *Client
	store   *cache.Store
	mutator *cache.Mutator
}

// NewMessageService returns a MessageService.
func NewMessageService(client *Client, store *cache.Store, mutator *cache.Mutator) *MessageService {
	return &MessageService{client: client, store: store, mutator: mutator}
}

// List returns the messages of a channel in backend order, reading through
// the cache.
func (s *MessageService) List(ctx context.Context, orgID, channelID string) ([]Message, error) {
	key := cache.Key{OrgID: orgID, Resource: cache.ResourceMessages, Page: channelID}
	v, err := s.store.Fetch(ctx, key, func(ctx context.Context) (interface{}, error) {
		return s.fetch(ctx, channelID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]Message), nil
}

// ListFresh bypasses the cache, fetches the authoritative message list, and
// stores it. The chat poller uses this on every tick.
func (s *MessageService) ListFresh(ctx context.Context, orgID, channelID string) ([]Message, error) {
	msgs, err := s.fetch(ctx, channelID)
	if err != nil {
		return nil, err
	}
	s.store.Set(cache.Key{OrgID: orgID, Resource: cache.ResourceMessages, Page: channelID}, msgs)
	return msgs, nil
}

func (s *MessageService) fetch(ctx context.Context, channelID string) ([]Message, error) {
	var out struct {
		Messages []Message `json:"messages"`
	}
	path := "/v1/channels/" + url.PathEscape(channelID) + "/messages"
	if err := s.client.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// Send appends a message optimistically: a pending message with a temporary
// id shows up in the cached channel before the round-trip; failure removes it
// and restores the previous state.
func (s *MessageService) Send(ctx context.Context, orgID, channelID, body string) error {
	provisional := Message{
		ID:        cache.TempID(),
		ChannelID: channelID,
		Body:      body,
		SentAt:    time.Now().UTC(),
		Pending:   true,
	}
	return s.mutator.Run(ctx, cache.Mutation{
		Prefix: cache.Prefix{OrgID: orgID, Resource: cache.ResourceMessages},
		Apply: func(k cache.Key, cached interface{}) (interface{}, bool) {
			if k.Page != channelID {
				return nil, false
			}
			msgs, ok := cached.([]Message)
			if !ok {
				return nil, false
			}
			updated := make([]Message, 0, len(msgs)+1)
			updated = append(updated, msgs...)
			updated = append(updated, provisional)
			return updated, true
		},
		Call: func(ctx context.Context) error {
			path := "/v1/channels/" + url.PathEscape(channelID) + "/messages"
			return s.client.do(ctx, http.MethodPost, path, nil, map[string]string{"body": body}, nil)
		},
		FailureMessage: "Message could not be sent.",
	})
}

// ChannelService lists channels.
type ChannelService struct {
	client *Client
	store  *cache.Store
}

// NewChannelService returns a ChannelService.
func NewChannelService(client *Client, store *cache.Store) *ChannelService {
	return &ChannelService{client: client, store: store}
}

// List returns the org's channels, reading through the cache.
func (s *ChannelService) List(ctx context.Context, orgID string) ([]Channel, error) {
	key := cache.Key{OrgID: orgID, Resource: cache.ResourceChannels}
	v, err := s.store.Fetch(ctx, key, func(ctx context.Context) (interface{}, error) {
		var out struct {
			Channels []Channel `json:"channels"`
		}
		if err := s.client.do(ctx, http.MethodGet, "/v1/channels", nil, nil, &out); err != nil {
			return nil, err
		}
		return out.Channels, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Channel), nil
}
