// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package channelview

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/canopy-chat/canopy/chatapi"
	"github.com/canopy-chat/canopy/lib/clock"
	"github.com/canopy-chat/canopy/lib/ref"
)

// loopMsg is a typed message for the run loop. Action methods and the
// event pump post these; the loop processes them one at a time, so no
// two mutations race.
type loopMsg interface{ loopMsg() }

type watchResultMsg struct {
	state *chatapi.ChannelState
	err   error
}

type refreshResultMsg struct {
	state *chatapi.ChannelState
	err   error
}

type eventMsg struct {
	event chatapi.Event
}

type feedFailedMsg struct {
	err error
}

type sendMsg struct {
	localID ref.MessageID
	draft   chatapi.Draft
}

type sendResultMsg struct {
	localID ref.MessageID
	message chatapi.Message
	err     error
}

type retryMsg struct {
	id ref.MessageID
}

type editMsg struct {
	message chatapi.Message
}

type editResultMsg struct {
	id      ref.MessageID
	message chatapi.Message
	err     error
}

type applyMsg struct {
	message chatapi.Message
}

type removeMsg struct {
	id ref.MessageID
}

type openThreadMsg struct {
	id ref.MessageID
}

type closeThreadMsg struct{}

type loadMoreMsg struct {
	limit int
}

type pageResultMsg struct {
	page  []chatapi.Message
	limit int
	err   error
}

type loadMoreThreadMsg struct {
	limit int
}

type threadPageResultMsg struct {
	epoch uint64
	page  []chatapi.Message
	limit int
	err   error
}

type setVisibleMsg struct {
	visible bool
}

type dismissMsg struct {
	id uint64
}

type notificationExpiredMsg struct {
	id uint64
}

func (watchResultMsg) loopMsg()         {}
func (refreshResultMsg) loopMsg()       {}
func (eventMsg) loopMsg()               {}
func (feedFailedMsg) loopMsg()          {}
func (sendMsg) loopMsg()                {}
func (sendResultMsg) loopMsg()          {}
func (retryMsg) loopMsg()               {}
func (editMsg) loopMsg()                {}
func (editResultMsg) loopMsg()          {}
func (applyMsg) loopMsg()               {}
func (removeMsg) loopMsg()              {}
func (openThreadMsg) loopMsg()          {}
func (closeThreadMsg) loopMsg()         {}
func (loadMoreMsg) loopMsg()            {}
func (pageResultMsg) loopMsg()          {}
func (loadMoreThreadMsg) loopMsg()      {}
func (threadPageResultMsg) loopMsg()    {}
func (setVisibleMsg) loopMsg()          {}
func (dismissMsg) loopMsg()             {}
func (notificationExpiredMsg) loopMsg() {}

// pageCursor tracks backward pagination for one collection.
type pageCursor struct {
	hasMore     bool
	loadingMore bool
	oldest      ref.MessageID
}

// threadState is the open thread: its parent, reply collection, and
// independent pagination cursor. At most one thread is open at a time.
type threadState struct {
	parent  chatapi.Message
	replies []chatapi.Message
	cursor  pageCursor
}

// viewState is the mutable state owned by the run goroutine. Nothing
// outside the loop touches it.
type viewState struct {
	messages      []chatapi.Message
	pinned        []chatapi.Message
	members       []chatapi.Member
	watchers      []chatapi.Watcher
	watcherCount  int
	mutes         []chatapi.Mute
	reads         []chatapi.ReadMarker
	unread        int
	cursor        pageCursor
	thread        *threadState
	notifications []Notification
	err           error
	loading       bool
	visible       bool
	watching      bool
}

// View is the view-model of one channel. Create with New, drive with
// the action methods, read with Snapshot, and wake on changes via
// Updates.
type View struct {
	backend        Backend
	channelID      ref.ChannelID
	user           ref.UserID
	pageSize       int
	threadPageSize int
	ttl            time.Duration
	clk            clock.Clock
	logger         *slog.Logger

	sendFunc         func(ctx context.Context, draft chatapi.Draft) (chatapi.Message, error)
	updateFunc       func(ctx context.Context, messageID ref.MessageID, draft chatapi.Draft) (chatapi.Message, error)
	markReadFunc     func(ctx context.Context, messageID ref.MessageID) error
	streamFunc       func(eventToken string) EventSource
	mentionHoverFunc func(users []chatapi.User)
	mentionClickFunc func(users []chatapi.User)

	loop    chan loopMsg
	done    chan struct{}
	runCtx  context.Context
	cancel  context.CancelFunc
	started atomic.Bool
	stopped atomic.Bool
	watched atomic.Bool

	snapshot atomic.Pointer[Snapshot]
	updates  chan struct{}

	sendNonce       atomic.Uint64
	notificationSeq uint64
	threadEpoch     uint64

	state viewState
}

// New creates a View for the given backend. Options.User is required.
// The view performs no I/O until Start.
func New(backend Backend, options Options) (*View, error) {
	if backend == nil {
		return nil, fmt.Errorf("channelview: backend is required")
	}
	if options.User.IsZero() {
		return nil, fmt.Errorf("channelview: Options.User is required")
	}

	channelID := options.Channel
	streamFunc := options.Stream
	if channel, ok := backend.(*chatapi.Channel); ok {
		if channelID.IsZero() {
			channelID = channel.ID()
		}
		if streamFunc == nil {
			streamFunc = func(eventToken string) EventSource {
				return chatapi.StreamEvents(channel, eventToken)
			}
		}
	}
	if channelID.IsZero() {
		return nil, fmt.Errorf("channelview: Options.Channel is required for non-chatapi backends")
	}

	pageSize := options.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	threadPageSize := options.ThreadPageSize
	if threadPageSize <= 0 {
		threadPageSize = DefaultThreadPageSize
	}
	ttl := options.NotificationTTL
	if ttl <= 0 {
		ttl = DefaultNotificationTTL
	}
	clk := options.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sendFunc := options.SendFunc
	if sendFunc == nil {
		sendFunc = backend.SendMessage
	}
	updateFunc := options.UpdateFunc
	if updateFunc == nil {
		updateFunc = backend.UpdateMessage
	}
	markReadFunc := options.MarkReadFunc
	if markReadFunc == nil {
		markReadFunc = backend.MarkRead
	}

	view := &View{
		backend:          backend,
		channelID:        channelID,
		user:             options.User,
		pageSize:         pageSize,
		threadPageSize:   threadPageSize,
		ttl:              ttl,
		clk:              clk,
		logger:           logger.With("channel_id", channelID),
		sendFunc:         sendFunc,
		updateFunc:       updateFunc,
		markReadFunc:     markReadFunc,
		streamFunc:       streamFunc,
		mentionHoverFunc: options.MentionHoverFunc,
		mentionClickFunc: options.MentionClickFunc,
		loop:             make(chan loopMsg, 64),
		done:             make(chan struct{}),
		updates:          make(chan struct{}, 1),
		state:            viewState{loading: true, visible: true},
	}
	view.runCtx, view.cancel = context.WithCancel(context.Background())
	view.snapshot.Store(view.buildSnapshot())
	return view, nil
}

// Start begins the view's lifecycle: the run loop starts, the channel
// is watched, the initial mark-read decision is made, and the event
// pump begins once the watch state arrives. Start does not block on
// the network — a failed initial load surfaces as the snapshot's Err.
func (v *View) Start(ctx context.Context) error {
	if !v.started.CompareAndSwap(false, true) {
		return fmt.Errorf("channelview: Start called twice")
	}
	// The run context outlives ctx only in the sense that it is
	// created at New; cancellation of either stops the view.
	go func() {
		select {
		case <-ctx.Done():
			v.cancel()
		case <-v.runCtx.Done():
		}
	}()

	go v.run()
	go func() {
		state, err := v.backend.Watch(v.runCtx, chatapi.WatchOptions{MessageLimit: v.pageSize})
		if err == nil {
			v.watched.Store(true)
		}
		v.post(watchResultMsg{state: state, err: err})
	}()
	return nil
}

// Stop shuts the view down: pending async results are discarded, the
// event pump exits, and the final snapshot remains readable. Stop
// blocks until the run loop has exited. The server-side watch is
// released with a short grace period.
func (v *View) Stop() {
	if !v.started.Load() || !v.stopped.CompareAndSwap(false, true) {
		return
	}
	v.cancel()
	<-v.done

	// Nothing to release when the initial watch never succeeded.
	if !v.watched.Load() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := v.backend.StopWatching(ctx); err != nil {
		v.logger.Warn("failed to release channel watch", "error", err)
	}
}

// Snapshot returns the latest published state. It never blocks and
// never returns nil.
func (v *View) Snapshot() *Snapshot {
	return v.snapshot.Load()
}

// User returns the local user the view acts as.
func (v *View) User() ref.UserID {
	return v.user
}

// Updates returns a coalescing notification channel: it receives after
// one or more snapshot publications and is closed when the view stops.
// Consumers that miss intermediate signals still observe the latest
// state via Snapshot.
func (v *View) Updates() <-chan struct{} {
	return v.updates
}

// SendMessage appends an optimistic local echo of the draft to the
// timeline tail with StatusSending and starts the backend send.
// It returns the '~'-prefixed placeholder ID; once the server
// confirms, the message keeps its position under the server ID.
func (v *View) SendMessage(draft chatapi.Draft) ref.MessageID {
	localID := localEchoID(v.channelID, v.user, draft.Text, v.sendNonce.Add(1))
	v.post(sendMsg{localID: localID, draft: draft})
	return localID
}

// RetrySendMessage re-attempts a failed send, reusing the message's
// content. No-op unless the message exists with StatusFailed.
func (v *View) RetrySendMessage(id ref.MessageID) {
	v.post(retryMsg{id: id})
}

// UpdateMessage commits an edit: the backend update runs with the
// given message's content, and the collection entry is replaced on
// success. On failure the prior content is retained, the message is
// marked StatusError, and an error notification is raised.
func (v *View) UpdateMessage(message chatapi.Message) {
	v.post(editMsg{message: message})
}

// ApplyMessage replaces a message's record wherever its ID appears,
// with no backend call. No-op when the ID is unknown. Callers that
// confirm a message through their own network path use this to inject
// the result; everything else should go through UpdateMessage.
func (v *View) ApplyMessage(message chatapi.Message) {
	v.post(applyMsg{message: message})
}

// RemoveMessage deletes a message optimistically: it leaves the
// collection immediately and the backend delete is fire-and-forget. A
// backend failure does not restore the message.
func (v *View) RemoveMessage(id ref.MessageID) {
	v.post(removeMsg{id: id})
}

// OpenThread opens the thread anchored at the given message,
// discarding any previously open thread, and starts the initial reply
// fetch. No-op when the parent is not in the timeline.
func (v *View) OpenThread(id ref.MessageID) {
	v.post(openThreadMsg{id: id})
}

// CloseThread clears the open thread. Late replies from in-flight
// thread fetches are dropped.
func (v *View) CloseThread() {
	v.post(closeThreadMsg{})
}

// LoadMore fetches the next older page of the main timeline. No-op
// while a page fetch is in flight or when history is exhausted.
// A non-positive limit uses the view's page size.
func (v *View) LoadMore(limit int) {
	v.post(loadMoreMsg{limit: limit})
}

// LoadMoreThread fetches the next older page of the open thread's
// replies, with the same in-flight and exhaustion guards as LoadMore.
func (v *View) LoadMoreThread(limit int) {
	v.post(loadMoreThreadMsg{limit: limit})
}

// SetVisible tells the view whether its rendering surface is visible.
// A hidden-to-visible transition while watching marks the channel
// read.
func (v *View) SetVisible(visible bool) {
	v.post(setVisibleMsg{visible: visible})
}

// DismissNotification removes a notification before its TTL expires.
func (v *View) DismissNotification(id uint64) {
	v.post(dismissMsg{id: id})
}

// MentionsHover reports that a presentation surface is highlighting
// the given mentioned users. It invokes the configured
// MentionHoverFunc on the caller's goroutine; view state is untouched.
func (v *View) MentionsHover(users []chatapi.User) {
	if v.mentionHoverFunc != nil {
		v.mentionHoverFunc(users)
	}
}

// MentionsClick reports that a presentation surface activated the
// given mentioned users. It invokes the configured MentionClickFunc
// on the caller's goroutine; view state is untouched.
func (v *View) MentionsClick(users []chatapi.User) {
	if v.mentionClickFunc != nil {
		v.mentionClickFunc(users)
	}
}

// post delivers a message to the run loop, dropping it once the view
// is stopping. Dropping is what makes late async results harmless
// after Stop.
func (v *View) post(msg loopMsg) {
	select {
	case v.loop <- msg:
	case <-v.runCtx.Done():
	}
}

func (v *View) run() {
	defer close(v.done)
	defer close(v.updates)
	for {
		select {
		case <-v.runCtx.Done():
			return
		case msg := <-v.loop:
			v.handle(msg)
			v.publish()
		}
	}
}

func (v *View) handle(msg loopMsg) {
	switch msg := msg.(type) {
	case watchResultMsg:
		v.handleWatchResult(msg)
	case refreshResultMsg:
		v.handleRefreshResult(msg)
	case eventMsg:
		v.applyEvent(msg.event)
	case feedFailedMsg:
		v.state.watching = false
		v.logger.Warn("event feed lost", "error", msg.err)
		v.notify(NotificationError, "live updates lost; restart the view to reconnect")
	case sendMsg:
		v.handleSend(msg)
	case sendResultMsg:
		v.handleSendResult(msg)
	case retryMsg:
		v.handleRetry(msg)
	case editMsg:
		v.handleEdit(msg)
	case editResultMsg:
		v.handleEditResult(msg)
	case applyMsg:
		v.replaceEverywhere(msg.message)
	case removeMsg:
		v.handleRemove(msg)
	case openThreadMsg:
		v.handleOpenThread(msg)
	case closeThreadMsg:
		v.threadEpoch++
		v.state.thread = nil
	case loadMoreMsg:
		v.handleLoadMore(msg)
	case pageResultMsg:
		v.handlePageResult(msg)
	case loadMoreThreadMsg:
		v.handleLoadMoreThread(msg)
	case threadPageResultMsg:
		v.handleThreadPageResult(msg)
	case setVisibleMsg:
		wasVisible := v.state.visible
		v.state.visible = msg.visible
		if !wasVisible && msg.visible && v.state.watching {
			v.markRead(ref.MessageID{})
		}
	case dismissMsg:
		v.removeNotification(msg.id)
	case notificationExpiredMsg:
		v.removeNotification(msg.id)
	}
}

func (v *View) handleWatchResult(msg watchResultMsg) {
	v.state.loading = false
	if msg.err != nil {
		// Terminal: the initial load failed and the view does not
		// retry on its own.
		v.state.err = msg.err
		v.logger.Error("channel load failed", "error", msg.err)
		return
	}

	state := msg.state
	v.state.messages = state.Messages
	v.state.pinned = state.PinnedMessages
	v.state.members = state.Members
	v.state.watchers = state.Watchers
	v.state.watcherCount = state.WatcherCount
	v.state.mutes = state.Mutes
	v.state.reads = state.Reads
	v.state.unread = v.unreadFor(state.Reads)
	v.state.watching = true
	v.state.cursor = pageCursor{hasMore: len(state.Messages) == v.pageSize}
	if len(state.Messages) > 0 {
		v.state.cursor.oldest = state.Messages[0].ID
	}

	if v.state.unread > 0 {
		v.markRead(ref.MessageID{})
	}

	if v.streamFunc != nil {
		go v.pump(v.streamFunc(state.EventToken))
	}
}

func (v *View) handleRefreshResult(msg refreshResultMsg) {
	if msg.err != nil {
		v.logger.Warn("refresh after reconnect failed", "error", msg.err)
		v.notify(NotificationError, "failed to refresh channel after reconnect")
		return
	}

	// Wholesale reconcile: rosters and read state are replaced, the
	// latest message page merges into the timeline by ID. Pagination
	// cursors keep their positions — older history is still older.
	state := msg.state
	v.state.pinned = state.PinnedMessages
	v.state.members = state.Members
	v.state.watchers = state.Watchers
	v.state.watcherCount = state.WatcherCount
	v.state.mutes = state.Mutes
	v.state.reads = state.Reads
	v.state.unread = v.unreadFor(state.Reads)
	for _, message := range state.Messages {
		v.state.messages = upsert(v.state.messages, message)
	}
	if v.state.cursor.oldest.IsZero() && len(v.state.messages) > 0 {
		v.state.cursor.oldest = v.state.messages[0].ID
	}
}

func (v *View) handleSend(msg sendMsg) {
	echo := chatapi.Message{
		ID:            msg.localID,
		ChannelID:     v.channelID,
		User:          chatapi.User{ID: v.user},
		Text:          msg.draft.Text,
		Attachments:   msg.draft.Attachments,
		ParentID:      msg.draft.ParentID,
		ShowInChannel: msg.draft.ShowInChannel,
		Status:        chatapi.StatusSending,
		CreatedAt:     v.clk.Now(),
	}

	// A thread reply appears in the thread's reply collection; it
	// joins the main timeline only when flagged to show there.
	if msg.draft.ParentID.IsZero() || msg.draft.ShowInChannel {
		v.state.messages = append(v.state.messages, echo)
	}
	if thread := v.state.thread; thread != nil && thread.parent.ID == msg.draft.ParentID {
		thread.replies = append(thread.replies, echo)
	}

	v.startSend(msg.localID, msg.draft)
}

func (v *View) startSend(localID ref.MessageID, draft chatapi.Draft) {
	go func() {
		message, err := v.sendFunc(v.runCtx, draft)
		v.post(sendResultMsg{localID: localID, message: message, err: err})
	}()
}

func (v *View) handleSendResult(msg sendResultMsg) {
	if msg.err != nil {
		v.setStatus(msg.localID, chatapi.StatusFailed)
		v.logger.Warn("send failed", "local_id", msg.localID, "error", msg.err)
		v.notify(NotificationError, "failed to send message")
		return
	}

	// Replace the echo in place so the message keeps its position
	// while its identity changes to the server-assigned ID. When the
	// confirming message.new event beat the send response, the server
	// ID is already in the collection; the echo is then dropped so no
	// two entries share an ID.
	if indexByID(v.state.messages, msg.message.ID) >= 0 {
		v.state.messages = removeByID(v.state.messages, msg.localID)
	} else if i := indexByID(v.state.messages, msg.localID); i >= 0 {
		replaceAt(v.state.messages, i, msg.message)
	}
	if thread := v.state.thread; thread != nil {
		if indexByID(thread.replies, msg.message.ID) >= 0 {
			thread.replies = removeByID(thread.replies, msg.localID)
		} else if i := indexByID(thread.replies, msg.localID); i >= 0 {
			replaceAt(thread.replies, i, msg.message)
		}
	}
}

func (v *View) handleRetry(msg retryMsg) {
	i := indexByID(v.state.messages, msg.id)
	var message *chatapi.Message
	if i >= 0 {
		message = &v.state.messages[i]
	} else if thread := v.state.thread; thread != nil {
		if j := indexByID(thread.replies, msg.id); j >= 0 {
			message = &thread.replies[j]
		}
	}
	if message == nil || message.Status != chatapi.StatusFailed {
		return
	}

	v.setStatus(msg.id, chatapi.StatusSending)
	draft := chatapi.Draft{
		Text:          message.Text,
		Attachments:   message.Attachments,
		ParentID:      message.ParentID,
		ShowInChannel: message.ShowInChannel,
	}
	v.startSend(msg.id, draft)
}

func (v *View) handleEdit(msg editMsg) {
	draft := chatapi.Draft{
		Text:          msg.message.Text,
		Attachments:   msg.message.Attachments,
		ParentID:      msg.message.ParentID,
		ShowInChannel: msg.message.ShowInChannel,
	}
	go func() {
		updated, err := v.updateFunc(v.runCtx, msg.message.ID, draft)
		v.post(editResultMsg{id: msg.message.ID, message: updated, err: err})
	}()
}

func (v *View) handleEditResult(msg editResultMsg) {
	if msg.err != nil {
		// Prior content stands; the message carries an error status
		// so the UI can flag it.
		v.setStatus(msg.id, chatapi.StatusError)
		v.logger.Warn("edit failed", "message_id", msg.id, "error", msg.err)
		v.notify(NotificationError, "failed to update message")
		return
	}
	v.replaceEverywhere(msg.message)
}

func (v *View) handleRemove(msg removeMsg) {
	v.state.messages = removeByID(v.state.messages, msg.id)
	v.state.pinned = removeByID(v.state.pinned, msg.id)
	if thread := v.state.thread; thread != nil {
		thread.replies = removeByID(thread.replies, msg.id)
		if thread.parent.ID == msg.id {
			v.threadEpoch++
			v.state.thread = nil
		}
	}

	// Fire-and-forget: a failed delete does not restore the message.
	go func() {
		if err := v.backend.DeleteMessage(v.runCtx, msg.id); err != nil {
			v.logger.Warn("delete failed; optimistic removal stands",
				"message_id", msg.id, "error", err)
		}
	}()
}

func (v *View) handleOpenThread(msg openThreadMsg) {
	i := indexByID(v.state.messages, msg.id)
	if i < 0 {
		v.logger.Warn("open thread for unknown message", "message_id", msg.id)
		return
	}

	v.threadEpoch++
	v.state.thread = &threadState{
		parent: v.state.messages[i],
		cursor: pageCursor{hasMore: true, loadingMore: true},
	}
	v.startThreadFetch(msg.id, ref.MessageID{}, v.threadPageSize)
}

func (v *View) startThreadFetch(parentID, before ref.MessageID, limit int) {
	epoch := v.threadEpoch
	go func() {
		page, err := v.backend.Replies(v.runCtx, parentID, chatapi.PageOptions{
			Before: before,
			Limit:  limit,
		})
		v.post(threadPageResultMsg{epoch: epoch, page: page, limit: limit, err: err})
	}()
}

func (v *View) handleLoadMore(msg loadMoreMsg) {
	cursor := &v.state.cursor
	if cursor.loadingMore || !cursor.hasMore {
		return
	}
	limit := msg.limit
	if limit <= 0 {
		limit = v.pageSize
	}
	cursor.loadingMore = true
	before := cursor.oldest
	go func() {
		page, err := v.backend.Messages(v.runCtx, chatapi.PageOptions{Before: before, Limit: limit})
		v.post(pageResultMsg{page: page, limit: limit, err: err})
	}()
}

func (v *View) handlePageResult(msg pageResultMsg) {
	cursor := &v.state.cursor
	cursor.loadingMore = false
	if msg.err != nil {
		// hasMore keeps its prior value; the user can try again.
		v.logger.Warn("pagination failed", "error", msg.err)
		v.notify(NotificationError, "failed to load older messages")
		return
	}
	v.state.messages = prependPage(v.state.messages, msg.page)
	cursor.hasMore = len(msg.page) == msg.limit
	if len(v.state.messages) > 0 {
		cursor.oldest = v.state.messages[0].ID
	}
}

func (v *View) handleLoadMoreThread(msg loadMoreThreadMsg) {
	thread := v.state.thread
	if thread == nil || thread.cursor.loadingMore || !thread.cursor.hasMore {
		return
	}
	limit := msg.limit
	if limit <= 0 {
		limit = v.threadPageSize
	}
	thread.cursor.loadingMore = true
	v.startThreadFetch(thread.parent.ID, thread.cursor.oldest, limit)
}

func (v *View) handleThreadPageResult(msg threadPageResultMsg) {
	// Stale-response rejection: a fetch issued for a thread that has
	// since been closed or replaced must not repopulate state.
	if msg.epoch != v.threadEpoch || v.state.thread == nil {
		return
	}
	thread := v.state.thread
	thread.cursor.loadingMore = false
	if msg.err != nil {
		v.logger.Warn("thread pagination failed",
			"parent_id", thread.parent.ID, "error", msg.err)
		v.notify(NotificationError, "failed to load thread replies")
		return
	}
	thread.replies = prependPage(thread.replies, msg.page)
	thread.cursor.hasMore = len(msg.page) == msg.limit
	if len(thread.replies) > 0 {
		thread.cursor.oldest = thread.replies[0].ID
	}
}

// setStatus updates the status of a message wherever it appears.
func (v *View) setStatus(id ref.MessageID, status chatapi.MessageStatus) {
	if i := indexByID(v.state.messages, id); i >= 0 {
		v.state.messages[i].Status = status
	}
	if thread := v.state.thread; thread != nil {
		if i := indexByID(thread.replies, id); i >= 0 {
			thread.replies[i].Status = status
		}
		if thread.parent.ID == id {
			thread.parent.Status = status
		}
	}
}

// replaceEverywhere applies a full message record to every collection
// where its ID is present: the main timeline, the pinned list, the
// open thread's replies, and the open thread's parent.
func (v *View) replaceEverywhere(message chatapi.Message) {
	if i := indexByID(v.state.messages, message.ID); i >= 0 {
		v.state.messages[i] = message
	}
	if i := indexByID(v.state.pinned, message.ID); i >= 0 {
		v.state.pinned[i] = message
	}
	if thread := v.state.thread; thread != nil {
		if i := indexByID(thread.replies, message.ID); i >= 0 {
			thread.replies[i] = message
		}
		if thread.parent.ID == message.ID {
			thread.parent = message
		}
	}
}

// markRead issues a fire-and-forget mark-read call. A zero messageID
// marks the latest message read. Failures are logged, never surfaced.
func (v *View) markRead(messageID ref.MessageID) {
	go func() {
		if err := v.markReadFunc(v.runCtx, messageID); err != nil && v.runCtx.Err() == nil {
			v.logger.Warn("mark read failed", "error", err)
		}
	}()
}

// unreadFor returns the local user's unread count from a read marker
// set, zero when the user has no marker.
func (v *View) unreadFor(reads []chatapi.ReadMarker) int {
	for _, marker := range reads {
		if marker.UserID == v.user {
			return marker.UnreadCount
		}
	}
	return 0
}

// notify raises a notification with the view's TTL.
func (v *View) notify(kind NotificationKind, text string) {
	v.notificationSeq++
	id := v.notificationSeq
	v.state.notifications = append(v.state.notifications, Notification{
		ID:   id,
		Text: text,
		Kind: kind,
	})
	v.clk.AfterFunc(v.ttl, func() {
		v.post(notificationExpiredMsg{id: id})
	})
}

func (v *View) removeNotification(id uint64) {
	for i, notification := range v.state.notifications {
		if notification.ID == id {
			v.state.notifications = append(v.state.notifications[:i], v.state.notifications[i+1:]...)
			return
		}
	}
}

// pump forwards events from the source to the run loop until the
// stream ends or the view stops.
func (v *View) pump(source EventSource) {
	for {
		event, err := source.Next(v.runCtx)
		if err != nil {
			if v.runCtx.Err() != nil {
				return
			}
			v.post(feedFailedMsg{err: err})
			return
		}
		v.post(eventMsg{event: event})
	}
}

// publish stores a fresh immutable snapshot and pokes the coalescing
// updates channel.
func (v *View) publish() {
	v.snapshot.Store(v.buildSnapshot())
	select {
	case v.updates <- struct{}{}:
	default:
	}
}

func (v *View) buildSnapshot() *Snapshot {
	state := &v.state
	snapshot := &Snapshot{
		ChannelID:      v.channelID,
		Messages:       slices.Clone(state.messages),
		PinnedMessages: slices.Clone(state.pinned),
		HasMore:        state.cursor.hasMore,
		LoadingMore:    state.cursor.loadingMore,
		Members:        slices.Clone(state.members),
		Watchers:       slices.Clone(state.watchers),
		WatcherCount:   state.watcherCount,
		Mutes:          slices.Clone(state.mutes),
		Reads:          slices.Clone(state.reads),
		UnreadCount:    state.unread,
		Notifications:  slices.Clone(state.notifications),
		Err:            state.err,
		Loading:        state.loading,
	}
	if thread := state.thread; thread != nil {
		parent := thread.parent
		snapshot.Thread = &parent
		snapshot.ThreadMessages = slices.Clone(thread.replies)
		snapshot.ThreadHasMore = thread.cursor.hasMore
		snapshot.ThreadLoadingMore = thread.cursor.loadingMore
	}
	return snapshot
}
