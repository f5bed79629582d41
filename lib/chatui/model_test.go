// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/canopy-chat/canopy/chatapi"
	"github.com/canopy-chat/canopy/channelview"
	"github.com/canopy-chat/canopy/lib/ref"
)

// stubBackend is a minimal channelview.Backend for UI tests. Sends and
// edits confirm immediately with server-assigned identity.
type stubBackend struct {
	state  *chatapi.ChannelState
	nextID int
}

func (b *stubBackend) Watch(ctx context.Context, options chatapi.WatchOptions) (*chatapi.ChannelState, error) {
	return b.state, nil
}

func (b *stubBackend) StopWatching(ctx context.Context) error { return nil }

func (b *stubBackend) Messages(ctx context.Context, options chatapi.PageOptions) ([]chatapi.Message, error) {
	return nil, nil
}

func (b *stubBackend) SendMessage(ctx context.Context, draft chatapi.Draft) (chatapi.Message, error) {
	b.nextID++
	return chatapi.Message{
		ID:        ref.MustParseMessageID(fmt.Sprintf("srv%d", b.nextID)),
		User:      chatapi.User{ID: localUser, Name: localUser.Localpart()},
		Text:      draft.Text,
		ParentID:  draft.ParentID,
		Status:    chatapi.StatusReceived,
		CreatedAt: renderTime,
	}, nil
}

func (b *stubBackend) UpdateMessage(ctx context.Context, messageID ref.MessageID, draft chatapi.Draft) (chatapi.Message, error) {
	return chatapi.Message{
		ID:        messageID,
		User:      chatapi.User{ID: localUser, Name: localUser.Localpart()},
		Text:      draft.Text,
		Status:    chatapi.StatusReceived,
		CreatedAt: renderTime,
		UpdatedAt: renderTime.Add(time.Minute),
	}, nil
}

func (b *stubBackend) DeleteMessage(ctx context.Context, messageID ref.MessageID) error {
	return nil
}

func (b *stubBackend) MarkRead(ctx context.Context, messageID ref.MessageID) error { return nil }

func (b *stubBackend) Replies(ctx context.Context, parentID ref.MessageID, options chatapi.PageOptions) ([]chatapi.Message, error) {
	return nil, nil
}

// startTestModel starts a view over the given channel state and
// returns a ready model sized to a fixed terminal.
func startTestModel(t *testing.T, messages ...chatapi.Message) (Model, *channelview.View) {
	t.Helper()

	backend := &stubBackend{state: &chatapi.ChannelState{
		ChannelID: ref.MustParseChannelID("#general"),
		Messages:  messages,
		Members: []chatapi.Member{
			{User: chatapi.User{ID: localUser, Name: "Alice Anderson"}},
			{User: chatapi.User{ID: otherUser, Name: "Bob Bridges"}},
		},
	}}
	view, err := channelview.New(backend, channelview.Options{
		User:    localUser,
		Channel: ref.MustParseChannelID("#general"),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := view.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(view.Stop)

	waitForView(t, view, func(s *channelview.Snapshot) bool { return !s.Loading })

	model := NewModel(view)
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	model = updated.(Model)
	model.snapshot = view.Snapshot()
	return model, view
}

// waitForView blocks until the view publishes a snapshot satisfying
// the condition.
func waitForView(t *testing.T, view *channelview.View, condition func(*channelview.Snapshot) bool) *channelview.Snapshot {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		if snapshot := view.Snapshot(); condition(snapshot) {
			return snapshot
		}
		select {
		case _, ok := <-view.Updates():
			if !ok {
				t.Fatal("view stopped before condition held")
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot condition")
		}
	}
}

func keyPress(key string) tea.KeyMsg {
	switch key {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
}

func TestNewModelStartsInCompose(t *testing.T) {
	model, _ := startTestModel(t)
	if model.focusRegion != FocusCompose {
		t.Error("expected composer focus initially")
	}
	if cmd := model.Init(); cmd == nil {
		t.Error("Init must return the snapshot listener command")
	}
}

func TestViewRendersChannelHeader(t *testing.T) {
	model, _ := startTestModel(t, timelineMessage("m1", otherUser, "hello there"))
	output := model.View()
	if !strings.Contains(output, "#general") {
		t.Error("missing channel ID in header")
	}
	if !strings.Contains(output, "hello there") {
		t.Error("missing message body in timeline")
	}
	if !strings.Contains(output, "2 members") {
		t.Error("missing member count in header")
	}
}

func TestTabTogglesFocus(t *testing.T) {
	model, _ := startTestModel(t, timelineMessage("m1", otherUser, "x"))

	updated, _ := model.Update(keyPress("tab"))
	model = updated.(Model)
	if model.focusRegion != FocusList {
		t.Fatal("expected tab to move focus to the list")
	}
	// Entering the list selects the latest message.
	if model.selectedID != ref.MustParseMessageID("m1") {
		t.Errorf("expected latest message selected, got %s", model.selectedID)
	}

	updated, _ = model.Update(keyPress("tab"))
	model = updated.(Model)
	if model.focusRegion != FocusCompose {
		t.Error("expected tab to return focus to the composer")
	}
}

func TestQuitFromList(t *testing.T) {
	model, _ := startTestModel(t)
	model.focusRegion = FocusList

	_, cmd := model.Update(keyPress("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestSendMessageFromComposer(t *testing.T) {
	model, view := startTestModel(t)
	model.composer.SetValue("ship it")

	updated, _ := model.Update(keyPress("enter"))
	model = updated.(Model)

	if model.composer.Value() != "" {
		t.Error("composer must reset after send")
	}
	snapshot := waitForView(t, view, func(s *channelview.Snapshot) bool {
		return len(s.Messages) == 1 && s.Messages[0].Status == chatapi.StatusReceived
	})
	if snapshot.Messages[0].Text != "ship it" {
		t.Errorf("unexpected sent text %q", snapshot.Messages[0].Text)
	}
}

func TestSendEmptyComposerIsNoop(t *testing.T) {
	model, view := startTestModel(t)
	model.composer.SetValue("   ")

	updated, _ := model.Update(keyPress("enter"))
	model = updated.(Model)

	time.Sleep(50 * time.Millisecond)
	if count := len(view.Snapshot().Messages); count != 0 {
		t.Errorf("expected no message sent, got %d", count)
	}
}

func TestThreadReplyTargetsOpenThread(t *testing.T) {
	model, view := startTestModel(t, timelineMessage("m1", otherUser, "root"))

	view.OpenThread(ref.MustParseMessageID("m1"))
	waitForView(t, view, func(s *channelview.Snapshot) bool { return s.Thread != nil })
	model.snapshot = view.Snapshot()

	model.composer.SetValue("in thread")
	updated, _ := model.Update(keyPress("enter"))
	_ = updated

	waitForView(t, view, func(s *channelview.Snapshot) bool {
		for _, reply := range s.ThreadMessages {
			if reply.Text == "in thread" && reply.ParentID == ref.MustParseMessageID("m1") {
				return true
			}
		}
		return false
	})
}

func TestEditFlow(t *testing.T) {
	own := timelineMessage("m1", localUser, "teh fix")
	model, view := startTestModel(t, own)

	model.focusRegion = FocusList
	model.selectedID = own.ID

	updated, _ := model.Update(keyPress("e"))
	model = updated.(Model)

	if model.editingID != own.ID {
		t.Fatal("expected edit mode on own message")
	}
	if model.composer.Value() != "teh fix" {
		t.Errorf("composer must hold original text, got %q", model.composer.Value())
	}
	if model.focusRegion != FocusCompose {
		t.Error("edit must focus the composer")
	}

	model.composer.SetValue("the fix")
	updated, _ = model.Update(keyPress("enter"))
	model = updated.(Model)

	if !model.editingID.IsZero() {
		t.Error("edit mode must clear after submit")
	}
	waitForView(t, view, func(s *channelview.Snapshot) bool {
		message, ok := s.Message(own.ID)
		return ok && message.Text == "the fix"
	})
}

func TestEditRejectedForOtherAuthors(t *testing.T) {
	other := timelineMessage("m1", otherUser, "not yours")
	model, _ := startTestModel(t, other)

	model.focusRegion = FocusList
	model.selectedID = other.ID

	updated, _ := model.Update(keyPress("e"))
	model = updated.(Model)
	if !model.editingID.IsZero() {
		t.Error("must not edit another user's message")
	}
}

func TestEscCancelsEdit(t *testing.T) {
	own := timelineMessage("m1", localUser, "draft")
	model, _ := startTestModel(t, own)
	model.editingID = own.ID
	model.composer.SetValue("draft")

	updated, _ := model.Update(keyPress("esc"))
	model = updated.(Model)

	if !model.editingID.IsZero() {
		t.Error("esc must cancel edit mode")
	}
	if model.composer.Value() != "" {
		t.Error("esc must clear the composer")
	}
}

func TestMentionDropdownLifecycle(t *testing.T) {
	model, _ := startTestModel(t)

	model.composer.SetValue("ping @bo")
	model.refreshMentionState()
	if !model.mentionOpen {
		t.Fatal("expected dropdown for trailing @-token")
	}
	if model.mentionCandidates[0].Handle() != "bob" {
		t.Errorf("expected bob first, got %q", model.mentionCandidates[0].Handle())
	}

	// Tab accepts the highlighted candidate.
	updated, _ := model.Update(keyPress("tab"))
	model = updated.(Model)
	if model.mentionOpen {
		t.Error("dropdown must close on accept")
	}
	if model.composer.Value() != "ping @bob " {
		t.Errorf("expected completed mention, got %q", model.composer.Value())
	}
}

func TestMentionDropdownEscCloses(t *testing.T) {
	model, _ := startTestModel(t)
	model.composer.SetValue("@a")
	model.refreshMentionState()
	if !model.mentionOpen {
		t.Fatal("expected open dropdown")
	}

	updated, _ := model.Update(keyPress("esc"))
	model = updated.(Model)
	if model.mentionOpen {
		t.Error("esc must close the dropdown")
	}
}

func TestMentionDropdownIgnoresUnknown(t *testing.T) {
	model, _ := startTestModel(t)
	model.composer.SetValue("@zzz")
	model.refreshMentionState()
	if model.mentionOpen {
		t.Error("no candidates means no dropdown")
	}
}

func TestRetryOnlyForFailedMessages(t *testing.T) {
	received := timelineMessage("m1", localUser, "fine")
	model, view := startTestModel(t, received)
	model.focusRegion = FocusList
	model.selectedID = received.ID

	model.Update(keyPress("r"))
	time.Sleep(50 * time.Millisecond)
	if message, _ := view.Snapshot().Message(received.ID); message.Status != chatapi.StatusReceived {
		t.Error("retry on a received message must be a no-op")
	}
}

func TestDeleteOwnMessage(t *testing.T) {
	own := timelineMessage("m1", localUser, "oops")
	model, view := startTestModel(t, own)
	model.focusRegion = FocusList
	model.selectedID = own.ID

	model.Update(keyPress("d"))
	waitForView(t, view, func(s *channelview.Snapshot) bool {
		_, ok := s.Message(own.ID)
		return !ok
	})
}

func TestSnapshotMsgRearmsListener(t *testing.T) {
	model, view := startTestModel(t)
	updated, cmd := model.Update(snapshotMsg{snapshot: view.Snapshot()})
	if cmd == nil {
		t.Error("snapshot delivery must re-arm the listener")
	}
	if updated.(Model).snapshot != view.Snapshot() {
		t.Error("snapshot not stored")
	}
}

func TestClipLines(t *testing.T) {
	lines := []timelineLine{
		{text: "a"}, {text: "b"}, {text: "c"}, {text: "d"}, {text: "e"},
	}

	bottom := clipLines(lines, 3, 0)
	if strings.Join(bottom, "") != "cde" {
		t.Errorf("offset 0 must pin to the bottom, got %v", bottom)
	}

	scrolled := clipLines(lines, 3, 1)
	if strings.Join(scrolled, "") != "bcd" {
		t.Errorf("offset 1 must shift up one line, got %v", scrolled)
	}

	clamped := clipLines(lines, 3, 10)
	if strings.Join(clamped, "") != "abc" {
		t.Errorf("excess offset must clamp to the top, got %v", clamped)
	}

	short := clipLines(lines[:2], 3, 0)
	if strings.Join(short, "") != "ab" {
		t.Errorf("short content must render fully, got %v", short)
	}
}

func TestMoveSelectionClamps(t *testing.T) {
	model, _ := startTestModel(t,
		timelineMessage("m1", otherUser, "one"),
		timelineMessage("m2", otherUser, "two"),
	)
	model.focusRegion = FocusList
	model.selectLatest()

	model.moveSelection(-1)
	if model.selectedID != ref.MustParseMessageID("m1") {
		t.Errorf("expected m1 selected, got %s", model.selectedID)
	}
	model.moveSelection(-1)
	if model.selectedID != ref.MustParseMessageID("m1") {
		t.Error("selection must clamp at the oldest message")
	}
	model.moveSelection(1)
	model.moveSelection(1)
	if model.selectedID != ref.MustParseMessageID("m2") {
		t.Error("selection must clamp at the newest message")
	}
}

func TestInsertMentionFromSelectedMessage(t *testing.T) {
	model, _ := startTestModel(t,
		timelineMessage("m1", otherUser, "hey @alice, take a look"))

	updated, _ := model.Update(keyPress("tab")) // list focus, selects m1
	model = updated.(Model)
	updated, _ = model.Update(keyPress("m"))
	model = updated.(Model)

	if got := model.composer.Value(); got != "@alice " {
		t.Errorf("composer = %q, want %q", got, "@alice ")
	}
	if model.focusRegion != FocusCompose {
		t.Error("insert-mention should move focus to the composer")
	}
}

func TestInsertMentionFallsBackToAuthor(t *testing.T) {
	model, _ := startTestModel(t,
		timelineMessage("m1", otherUser, "no mentions here"))

	updated, _ := model.Update(keyPress("tab"))
	model = updated.(Model)
	updated, _ = model.Update(keyPress("m"))
	model = updated.(Model)

	if got := model.composer.Value(); got != "@bob " {
		t.Errorf("composer = %q, want %q", got, "@bob ")
	}
}

func TestSelectionShowsMentionedUsersInStatusBar(t *testing.T) {
	model, _ := startTestModel(t,
		timelineMessage("m1", otherUser, "cc @alice"))

	updated, _ := model.Update(keyPress("tab"))
	model = updated.(Model)

	bar := model.renderStatusBar()
	if !strings.Contains(bar, "Alice Anderson (@alice)") {
		t.Errorf("status bar %q should name the mentioned member", bar)
	}
}

func TestMentionClickHook(t *testing.T) {
	// The click hook fires with the resolved users when a mention is
	// inserted. The hook is configured on the view, so build one
	// directly rather than through startTestModel.
	var clicked []chatapi.User
	backend := &stubBackend{state: &chatapi.ChannelState{
		ChannelID: ref.MustParseChannelID("#general"),
		Messages:  []chatapi.Message{timelineMessage("m1", otherUser, "ping @alice")},
		Members: []chatapi.Member{
			{User: chatapi.User{ID: localUser, Name: "Alice Anderson"}},
			{User: chatapi.User{ID: otherUser, Name: "Bob Bridges"}},
		},
	}}
	view, err := channelview.New(backend, channelview.Options{
		User:             localUser,
		Channel:          ref.MustParseChannelID("#general"),
		MentionClickFunc: func(users []chatapi.User) { clicked = users },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := view.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(view.Stop)
	waitForView(t, view, func(s *channelview.Snapshot) bool { return !s.Loading })

	model := NewModel(view)
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	model = updated.(Model)
	model.snapshot = view.Snapshot()

	updated, _ = model.Update(keyPress("tab"))
	model = updated.(Model)
	updated, _ = model.Update(keyPress("m"))
	_ = updated

	if len(clicked) != 1 || clicked[0].ID != localUser {
		t.Errorf("click hook got %+v, want @alice", clicked)
	}
}
