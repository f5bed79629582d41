// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/canopy-chat/canopy/chatapi"
	"github.com/canopy-chat/canopy/channelview"
	"github.com/canopy-chat/canopy/lib/ref"
)

var (
	localUser  = ref.MustParseUserID("@alice")
	otherUser  = ref.MustParseUserID("@bob")
	renderTime = time.Date(2026, 6, 1, 14, 3, 0, 0, time.UTC)
)

func timelineMessage(id string, author ref.UserID, text string) chatapi.Message {
	return chatapi.Message{
		ID:        ref.MustParseMessageID(id),
		User:      chatapi.User{ID: author, Name: author.Localpart()},
		Text:      text,
		Status:    chatapi.StatusReceived,
		CreatedAt: renderTime,
	}
}

func testRenderer(width int) *timelineRenderer {
	return newTimelineRenderer(DefaultTheme, width, localUser, ref.MessageID{}, nil)
}

// visible joins rendered lines and strips ANSI styling.
func visible(lines []timelineLine) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, ansi.Strip(line.text))
	}
	return strings.Join(parts, "\n")
}

func TestRenderMessageHeader(t *testing.T) {
	lines := testRenderer(80).renderMessage(timelineMessage("m1", otherUser, "hello"))
	if len(lines) < 2 {
		t.Fatalf("expected header and body lines, got %d", len(lines))
	}
	if !lines[0].header {
		t.Error("first line must be the header")
	}
	header := ansi.Strip(lines[0].text)
	if !strings.Contains(header, "14:03") {
		t.Errorf("header missing timestamp, got %q", header)
	}
	if !strings.Contains(header, "bob") {
		t.Errorf("header missing author, got %q", header)
	}
	if !strings.Contains(visible(lines), "hello") {
		t.Error("body text missing")
	}
	for _, line := range lines {
		if line.messageID != ref.MustParseMessageID("m1") {
			t.Errorf("line not tagged with message ID: %+v", line)
		}
	}
}

func TestRenderMessageStatusMarkers(t *testing.T) {
	tests := []struct {
		status chatapi.MessageStatus
		marker string
	}{
		{chatapi.StatusSending, "(sending)"},
		{chatapi.StatusFailed, "(failed, r to retry)"},
		{chatapi.StatusError, "(edit rejected)"},
	}
	for _, test := range tests {
		message := timelineMessage("m1", localUser, "x")
		message.Status = test.status
		lines := testRenderer(80).renderMessage(message)
		if !strings.Contains(ansi.Strip(lines[0].text), test.marker) {
			t.Errorf("status %s: expected marker %q in %q",
				test.status, test.marker, ansi.Strip(lines[0].text))
		}
	}
}

func TestRenderMessageEditedMarker(t *testing.T) {
	message := timelineMessage("m1", otherUser, "fixed")
	message.UpdatedAt = renderTime.Add(time.Minute)
	lines := testRenderer(80).renderMessage(message)
	if !strings.Contains(ansi.Strip(lines[0].text), "(edited)") {
		t.Errorf("expected edited marker, got %q", ansi.Strip(lines[0].text))
	}
}

func TestRenderMessageReactions(t *testing.T) {
	message := timelineMessage("m1", otherUser, "x")
	message.ReactionCounts = map[string]int{"wave": 1, "eyes": 2, "gone": 0}
	lines := testRenderer(80).renderMessage(message)

	content := visible(lines)
	// Types render sorted; zero counts are skipped.
	if !strings.Contains(content, ":eyes: 2  :wave: 1") {
		t.Errorf("expected sorted reaction line, got:\n%s", content)
	}
	if strings.Contains(content, "gone") {
		t.Errorf("zero-count reaction must be skipped, got:\n%s", content)
	}
}

func TestRenderMessageReplyCount(t *testing.T) {
	message := timelineMessage("m1", otherUser, "root")
	message.ReplyCount = 3
	content := visible(testRenderer(80).renderMessage(message))
	if !strings.Contains(content, "3 replies") {
		t.Errorf("expected reply count line, got:\n%s", content)
	}

	single := timelineMessage("m2", otherUser, "root")
	single.ReplyCount = 1
	content = visible(testRenderer(80).renderMessage(single))
	if !strings.Contains(content, "1 reply") {
		t.Errorf("expected singular reply line, got:\n%s", content)
	}
}

func TestRenderMessageSelected(t *testing.T) {
	renderer := newTimelineRenderer(
		DefaultTheme, 80, localUser, ref.MustParseMessageID("m1"), nil)
	selected := renderer.renderMessage(timelineMessage("m1", otherUser, "x"))
	if !strings.Contains(ansi.Strip(selected[0].text), "▌") {
		t.Error("expected selection marker on selected message header")
	}
	unselected := renderer.renderMessage(timelineMessage("m2", otherUser, "x"))
	if strings.Contains(ansi.Strip(unselected[0].text), "▌") {
		t.Error("unexpected selection marker on other message")
	}
}

func TestRenderTimelineUnreadDivider(t *testing.T) {
	snapshot := &channelview.Snapshot{
		Messages: []chatapi.Message{
			timelineMessage("m1", otherUser, "read"),
			timelineMessage("m2", otherUser, "unread"),
		},
		UnreadCount: 1,
	}
	content := visible(testRenderer(80).renderTimeline(snapshot))

	dividerAt := strings.Index(content, " new ")
	unreadAt := strings.Index(content, "unread")
	readAt := strings.Index(content, "read")
	if dividerAt < 0 {
		t.Fatalf("missing unread divider, got:\n%s", content)
	}
	if !(readAt < dividerAt && dividerAt < unreadAt) {
		t.Errorf("divider must sit between read and unread messages, got:\n%s", content)
	}
}

func TestRenderTimelineOlderMarker(t *testing.T) {
	snapshot := &channelview.Snapshot{
		Messages: []chatapi.Message{timelineMessage("m1", otherUser, "x")},
		HasMore:  true,
	}
	content := visible(testRenderer(80).renderTimeline(snapshot))
	if !strings.Contains(content, "older messages available") {
		t.Errorf("expected older-messages marker, got:\n%s", content)
	}

	snapshot.LoadingMore = true
	content = visible(testRenderer(80).renderTimeline(snapshot))
	if !strings.Contains(content, "loading older messages") {
		t.Errorf("expected loading marker, got:\n%s", content)
	}
}

func TestRenderThreadPane(t *testing.T) {
	parent := timelineMessage("m1", otherUser, "root question")
	reply := timelineMessage("r1", localUser, "an answer")
	reply.ParentID = parent.ID

	snapshot := &channelview.Snapshot{
		Thread:         &parent,
		ThreadMessages: []chatapi.Message{reply},
	}
	content := visible(testRenderer(60).renderThreadPane(snapshot))

	if !strings.Contains(content, "Thread") {
		t.Error("missing thread pane title")
	}
	if !strings.Contains(content, "root question") {
		t.Error("missing parent message")
	}
	if !strings.Contains(content, "an answer") {
		t.Error("missing reply")
	}
}

func TestRenderThreadPaneClosed(t *testing.T) {
	if lines := testRenderer(60).renderThreadPane(&channelview.Snapshot{}); lines != nil {
		t.Errorf("expected no thread lines when no thread is open, got %d", len(lines))
	}
}
