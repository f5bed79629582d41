// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/canopy-chat/canopy/chatapi"
	"github.com/canopy-chat/canopy/channelview"
	"github.com/canopy-chat/canopy/lib/ref"
)

// bodyIndent is the left margin for message bodies under the
// author/time header line.
const bodyIndent = "  "

// timelineRenderer turns snapshot messages into styled terminal
// lines. It carries the per-render context (width, selection, the
// mention set derived from the roster) so individual message renders
// stay cheap.
type timelineRenderer struct {
	theme     Theme
	width     int
	localUser ref.UserID
	selected  ref.MessageID
	mentions  map[string]bool

	lipRenderer *lipgloss.Renderer
}

func newTimelineRenderer(theme Theme, width int, localUser ref.UserID, selected ref.MessageID, members []chatapi.Member) *timelineRenderer {
	lipRenderer := lipgloss.NewRenderer(os.Stderr, termenv.WithProfile(termenv.ANSI256))
	lipRenderer.SetColorProfile(termenv.ANSI256)

	mentions := make(map[string]bool, len(members))
	for _, member := range members {
		mentions[strings.ToLower(member.User.ID.Localpart())] = true
	}

	return &timelineRenderer{
		theme:       theme,
		width:       width,
		localUser:   localUser,
		selected:    selected,
		mentions:    mentions,
		lipRenderer: lipRenderer,
	}
}

// timelineLine pairs a rendered line with the message it belongs to,
// so cursor movement and scrolling can map between line space and
// message space. Divider and blank lines carry a zero MessageID.
type timelineLine struct {
	text      string
	messageID ref.MessageID
	header    bool // True for the author/time line of a message.
}

// renderTimeline renders the main channel timeline: an optional
// older-messages marker, the unread divider, and each message block.
func (renderer *timelineRenderer) renderTimeline(snapshot *channelview.Snapshot) []timelineLine {
	var lines []timelineLine

	if snapshot.LoadingMore {
		faint := renderer.lipRenderer.NewStyle().Foreground(renderer.theme.FaintText)
		lines = append(lines, timelineLine{text: faint.Render("loading older messages...")})
	} else if snapshot.HasMore {
		faint := renderer.lipRenderer.NewStyle().Foreground(renderer.theme.HelpText)
		lines = append(lines, timelineLine{text: faint.Render("older messages available")})
	}

	dividerIndex := -1
	if snapshot.UnreadCount > 0 && snapshot.UnreadCount <= len(snapshot.Messages) {
		dividerIndex = len(snapshot.Messages) - snapshot.UnreadCount
	}

	for index, message := range snapshot.Messages {
		if index == dividerIndex {
			lines = append(lines, timelineLine{text: renderer.unreadDivider()})
		}
		lines = append(lines, renderer.renderMessage(message)...)
		if index < len(snapshot.Messages)-1 {
			lines = append(lines, timelineLine{})
		}
	}
	return lines
}

// renderThreadPane renders the open thread: the parent message, a
// rule, and the reply list.
func (renderer *timelineRenderer) renderThreadPane(snapshot *channelview.Snapshot) []timelineLine {
	if snapshot.Thread == nil {
		return nil
	}
	var lines []timelineLine

	header := renderer.lipRenderer.NewStyle().
		Foreground(renderer.theme.ThreadHeader).
		Bold(true)
	lines = append(lines, timelineLine{text: header.Render("Thread")})
	lines = append(lines, timelineLine{})

	lines = append(lines, renderer.renderMessage(*snapshot.Thread)...)

	rule := renderer.lipRenderer.NewStyle().Foreground(renderer.theme.ThreadBorder)
	width := renderer.width
	if width > 40 {
		width = 40
	}
	lines = append(lines, timelineLine{text: rule.Render(strings.Repeat("─", width))})

	if snapshot.ThreadLoadingMore {
		faint := renderer.lipRenderer.NewStyle().Foreground(renderer.theme.FaintText)
		lines = append(lines, timelineLine{text: faint.Render("loading replies...")})
	} else if snapshot.ThreadHasMore {
		faint := renderer.lipRenderer.NewStyle().Foreground(renderer.theme.HelpText)
		lines = append(lines, timelineLine{text: faint.Render("earlier replies available")})
	}

	for index, reply := range snapshot.ThreadMessages {
		lines = append(lines, renderer.renderMessage(reply)...)
		if index < len(snapshot.ThreadMessages)-1 {
			lines = append(lines, timelineLine{})
		}
	}
	return lines
}

// renderMessage renders one message block: header line, body lines,
// and optional reaction and reply-count lines.
func (renderer *timelineRenderer) renderMessage(message chatapi.Message) []timelineLine {
	var lines []timelineLine

	lines = append(lines, timelineLine{
		text:      renderer.headerLine(message),
		messageID: message.ID,
		header:    true,
	})

	bodyWidth := renderer.width - len(bodyIndent)
	body := renderMessageBody(message.Text, renderer.theme, bodyWidth, renderer.mentions)
	for _, line := range strings.Split(body, "\n") {
		lines = append(lines, timelineLine{
			text:      bodyIndent + line,
			messageID: message.ID,
		})
	}

	for _, attachment := range message.Attachments {
		lines = append(lines, timelineLine{
			text:      bodyIndent + renderer.attachmentLine(attachment),
			messageID: message.ID,
		})
	}

	if reactions := renderer.reactionLine(message.ReactionCounts); reactions != "" {
		lines = append(lines, timelineLine{
			text:      bodyIndent + reactions,
			messageID: message.ID,
		})
	}

	if message.ReplyCount > 0 && message.ParentID.IsZero() {
		faint := renderer.lipRenderer.NewStyle().Foreground(renderer.theme.HelpText)
		noun := "replies"
		if message.ReplyCount == 1 {
			noun = "reply"
		}
		lines = append(lines, timelineLine{
			text:      bodyIndent + faint.Render(fmt.Sprintf("↳ %d %s", message.ReplyCount, noun)),
			messageID: message.ID,
		})
	}

	return lines
}

// headerLine renders "15:04 Author Name" with the author's stable
// color, plus status, edited, and pinned markers.
func (renderer *timelineRenderer) headerLine(message chatapi.Message) string {
	timeStyle := renderer.lipRenderer.NewStyle().Foreground(renderer.theme.FaintText)
	authorStyle := renderer.lipRenderer.NewStyle().
		Foreground(renderer.theme.AuthorColor(message.User.ID, renderer.localUser)).
		Bold(true)

	name := message.User.Name
	if name == "" {
		name = message.User.ID.String()
	}

	var parts []string
	parts = append(parts, timeStyle.Render(message.CreatedAt.Format("15:04")))
	parts = append(parts, authorStyle.Render(name))

	if marker := renderer.statusMarker(message.Status); marker != "" {
		parts = append(parts, marker)
	}
	if !message.UpdatedAt.IsZero() && message.UpdatedAt.After(message.CreatedAt) &&
		message.Status == chatapi.StatusReceived {
		parts = append(parts, timeStyle.Render("(edited)"))
	}
	if message.Pinned {
		parts = append(parts, timeStyle.Render("📌"))
	}

	line := strings.Join(parts, " ")
	if !renderer.selected.IsZero() && message.ID == renderer.selected {
		selected := renderer.lipRenderer.NewStyle().
			Background(renderer.theme.SelectedBackground).
			Foreground(renderer.theme.SelectedForeground)
		line = selected.Render("▌") + " " + line
	}
	return line
}

func (renderer *timelineRenderer) statusMarker(status chatapi.MessageStatus) string {
	switch status {
	case chatapi.StatusSending:
		return renderer.lipRenderer.NewStyle().
			Foreground(renderer.theme.StatusSending).Render("(sending)")
	case chatapi.StatusFailed:
		return renderer.lipRenderer.NewStyle().
			Foreground(renderer.theme.StatusFailed).Render("(failed, r to retry)")
	case chatapi.StatusError:
		return renderer.lipRenderer.NewStyle().
			Foreground(renderer.theme.StatusError).Render("(edit rejected)")
	default:
		return ""
	}
}

func (renderer *timelineRenderer) attachmentLine(attachment chatapi.Attachment) string {
	faint := renderer.lipRenderer.NewStyle().Foreground(renderer.theme.FaintText)
	label := attachment.Title
	if label == "" {
		label = attachment.URL
	}
	if label == "" {
		label = attachment.Type
	}
	return faint.Render(fmt.Sprintf("[%s] %s", attachment.Type, label))
}

// reactionLine renders reaction counts in a stable type order, e.g.
// ":+1: 3  :eyes: 1". Zero counts are skipped.
func (renderer *timelineRenderer) reactionLine(counts map[string]int) string {
	if len(counts) == 0 {
		return ""
	}
	types := make([]string, 0, len(counts))
	for reactionType, count := range counts {
		if count > 0 {
			types = append(types, reactionType)
		}
	}
	if len(types) == 0 {
		return ""
	}
	sort.Strings(types)

	style := renderer.lipRenderer.NewStyle().Foreground(renderer.theme.ReactionForeground)
	parts := make([]string, 0, len(types))
	for _, reactionType := range types {
		parts = append(parts, fmt.Sprintf(":%s: %d", reactionType, counts[reactionType]))
	}
	return style.Render(strings.Join(parts, "  "))
}

func (renderer *timelineRenderer) unreadDivider() string {
	style := renderer.lipRenderer.NewStyle().Foreground(renderer.theme.UnreadAccent)
	label := " new "
	side := (renderer.width - len(label)) / 2
	if side < 2 {
		side = 2
	}
	bar := strings.Repeat("─", side)
	return style.Render(bar + label + bar)
}
