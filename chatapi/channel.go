// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package chatapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/canopy-chat/canopy/lib/ref"
)

// Session is an authenticated connection to the chat server on behalf
// of one user. It is cheap and safe to share across goroutines — all
// state lives in the underlying Client.
type Session struct {
	client *Client
	userID ref.UserID
	token  string
}

// UserID returns the user this session authenticates as.
func (s *Session) UserID() ref.UserID { return s.userID }

// Channel returns a handle for operations on one channel. The handle
// performs no I/O until an operation is called.
func (s *Session) Channel(channelID ref.ChannelID) *Channel {
	return &Channel{session: s, channelID: channelID}
}

// Channel is a per-channel operation handle bound to a Session.
type Channel struct {
	session   *Session
	channelID ref.ChannelID
}

// ID returns the channel this handle addresses.
func (c *Channel) ID() ref.ChannelID { return c.channelID }

// WatchOptions controls the initial state returned by Watch.
type WatchOptions struct {
	// MessageLimit caps the number of recent messages in the returned
	// state. Zero means the server default.
	MessageLimit int
}

// Watch registers the session user as a watcher of the channel and
// returns the channel's current state: the latest message page,
// rosters, read markers, and the event token for Events polling.
func (c *Channel) Watch(ctx context.Context, options WatchOptions) (*ChannelState, error) {
	path := "/v1/channels/" + url.PathEscape(c.channelID.String()) + "/watch"

	request := map[string]any{}
	if options.MessageLimit > 0 {
		request["message_limit"] = options.MessageLimit
	}

	body, err := c.session.client.doRequest(ctx, http.MethodPost, path, c.session.token, request)
	if err != nil {
		return nil, fmt.Errorf("chatapi: watch %q failed: %w", c.channelID, err)
	}

	var state ChannelState
	if err := json.Unmarshal(body, &state); err != nil {
		return nil, fmt.Errorf("chatapi: failed to parse watch response: %w", err)
	}
	return &state, nil
}

// StopWatching removes the session user from the channel's watcher
// set. Membership is unaffected.
func (c *Channel) StopWatching(ctx context.Context) error {
	path := "/v1/channels/" + url.PathEscape(c.channelID.String()) + "/watch"
	if _, err := c.session.client.doRequest(ctx, http.MethodDelete, path, c.session.token, nil); err != nil {
		return fmt.Errorf("chatapi: stop watching %q failed: %w", c.channelID, err)
	}
	return nil
}

// Messages fetches a page of channel messages ordered oldest first.
// With a zero options.Before the page ends at the latest message;
// otherwise it ends just before the given message. A returned page
// shorter than options.Limit means history is exhausted.
func (c *Channel) Messages(ctx context.Context, options PageOptions) ([]Message, error) {
	path := "/v1/channels/" + url.PathEscape(c.channelID.String()) + "/messages"

	query := url.Values{}
	if !options.Before.IsZero() {
		query.Set("before", options.Before.String())
	}
	if options.Limit > 0 {
		query.Set("limit", strconv.Itoa(options.Limit))
	}

	body, err := c.session.client.doRequest(ctx, http.MethodGet, path, c.session.token, nil, query)
	if err != nil {
		return nil, fmt.Errorf("chatapi: messages for %q failed: %w", c.channelID, err)
	}

	var response messagesResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("chatapi: failed to parse messages response: %w", err)
	}
	return response.Messages, nil
}

// SendMessage posts a new message and returns the server's record of
// it, including the assigned ID and timestamps. A draft with a
// ParentID becomes a thread reply.
func (c *Channel) SendMessage(ctx context.Context, draft Draft) (Message, error) {
	path := "/v1/channels/" + url.PathEscape(c.channelID.String()) + "/messages"

	body, err := c.session.client.doRequest(ctx, http.MethodPost, path, c.session.token, draft)
	if err != nil {
		return Message{}, fmt.Errorf("chatapi: send to %q failed: %w", c.channelID, err)
	}

	var response messageResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return Message{}, fmt.Errorf("chatapi: failed to parse send response: %w", err)
	}
	return response.Message, nil
}

// UpdateMessage replaces the content of an existing message and
// returns the updated record. Only the message author may edit.
func (c *Channel) UpdateMessage(ctx context.Context, messageID ref.MessageID, draft Draft) (Message, error) {
	path := "/v1/channels/" + url.PathEscape(c.channelID.String()) +
		"/messages/" + url.PathEscape(messageID.String())

	body, err := c.session.client.doRequest(ctx, http.MethodPut, path, c.session.token, draft)
	if err != nil {
		return Message{}, fmt.Errorf("chatapi: update %q in %q failed: %w", messageID, c.channelID, err)
	}

	var response messageResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return Message{}, fmt.Errorf("chatapi: failed to parse update response: %w", err)
	}
	return response.Message, nil
}

// DeleteMessage removes a message. Deletion is permanent — there is no
// tombstone to restore from on the client side.
func (c *Channel) DeleteMessage(ctx context.Context, messageID ref.MessageID) error {
	path := "/v1/channels/" + url.PathEscape(c.channelID.String()) +
		"/messages/" + url.PathEscape(messageID.String())
	if _, err := c.session.client.doRequest(ctx, http.MethodDelete, path, c.session.token, nil); err != nil {
		return fmt.Errorf("chatapi: delete %q in %q failed: %w", messageID, c.channelID, err)
	}
	return nil
}

// MarkRead advances the session user's read marker to the given
// message, or to the latest message if messageID is zero.
func (c *Channel) MarkRead(ctx context.Context, messageID ref.MessageID) error {
	path := "/v1/channels/" + url.PathEscape(c.channelID.String()) + "/read"

	request := map[string]any{}
	if !messageID.IsZero() {
		request["message_id"] = messageID.String()
	}

	if _, err := c.session.client.doRequest(ctx, http.MethodPost, path, c.session.token, request); err != nil {
		return fmt.Errorf("chatapi: mark read in %q failed: %w", c.channelID, err)
	}
	return nil
}

// Replies fetches a page of replies to a thread parent, ordered oldest
// first, with the same pagination contract as Messages.
func (c *Channel) Replies(ctx context.Context, parentID ref.MessageID, options PageOptions) ([]Message, error) {
	path := "/v1/channels/" + url.PathEscape(c.channelID.String()) +
		"/messages/" + url.PathEscape(parentID.String()) + "/replies"

	query := url.Values{}
	if !options.Before.IsZero() {
		query.Set("before", options.Before.String())
	}
	if options.Limit > 0 {
		query.Set("limit", strconv.Itoa(options.Limit))
	}

	body, err := c.session.client.doRequest(ctx, http.MethodGet, path, c.session.token, nil, query)
	if err != nil {
		return nil, fmt.Errorf("chatapi: replies for %q in %q failed: %w", parentID, c.channelID, err)
	}

	var response messagesResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("chatapi: failed to parse replies response: %w", err)
	}
	return response.Messages, nil
}

// SendReaction adds a reaction of the given type to a message and
// returns the updated message, whose ReactionCounts reflect the
// addition. Reacting twice with the same type is a server-side no-op.
func (c *Channel) SendReaction(ctx context.Context, messageID ref.MessageID, reactionType string) (Message, error) {
	path := "/v1/channels/" + url.PathEscape(c.channelID.String()) +
		"/messages/" + url.PathEscape(messageID.String()) + "/reactions"

	request := map[string]any{"type": reactionType}
	body, err := c.session.client.doRequest(ctx, http.MethodPost, path, c.session.token, request)
	if err != nil {
		return Message{}, fmt.Errorf("chatapi: react to %q in %q failed: %w", messageID, c.channelID, err)
	}

	var response messageResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return Message{}, fmt.Errorf("chatapi: failed to parse reaction response: %w", err)
	}
	return response.Message, nil
}

// DeleteReaction removes the session user's reaction of the given type
// from a message and returns the updated message.
func (c *Channel) DeleteReaction(ctx context.Context, messageID ref.MessageID, reactionType string) (Message, error) {
	path := "/v1/channels/" + url.PathEscape(c.channelID.String()) +
		"/messages/" + url.PathEscape(messageID.String()) +
		"/reactions/" + url.PathEscape(reactionType)

	body, err := c.session.client.doRequest(ctx, http.MethodDelete, path, c.session.token, nil)
	if err != nil {
		return Message{}, fmt.Errorf("chatapi: remove reaction from %q in %q failed: %w", messageID, c.channelID, err)
	}

	var response messageResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return Message{}, fmt.Errorf("chatapi: failed to parse reaction response: %w", err)
	}
	return response.Message, nil
}

// EventsOptions controls one poll of the event feed.
type EventsOptions struct {
	// Since is the cursor from a previous poll's next token, or the
	// EventToken of a Watch state for the first poll.
	Since string
	// Timeout is how long the server should hold the request waiting
	// for events before returning an empty batch. Zero means return
	// immediately.
	Timeout time.Duration
}

// Events performs one poll of the channel's event feed. It returns the
// decoded events and the cursor for the next poll. Most callers should
// use EventStream instead, which loops Events with retry and recovery
// handling.
func (c *Channel) Events(ctx context.Context, options EventsOptions) ([]Event, string, error) {
	path := "/v1/channels/" + url.PathEscape(c.channelID.String()) + "/events"

	query := url.Values{}
	if options.Since != "" {
		query.Set("since", options.Since)
	}
	if options.Timeout > 0 {
		query.Set("timeout", strconv.Itoa(int(options.Timeout.Milliseconds())))
	}

	body, err := c.session.client.doRequest(ctx, http.MethodGet, path, c.session.token, nil, query)
	if err != nil {
		return nil, "", fmt.Errorf("chatapi: events for %q failed: %w", c.channelID, err)
	}

	var response eventsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, "", fmt.Errorf("chatapi: failed to parse events response: %w", err)
	}

	events := make([]Event, 0, len(response.Events))
	for _, envelope := range response.Events {
		events = append(events, decodeEvent(envelope))
	}
	return events, response.Next, nil
}
