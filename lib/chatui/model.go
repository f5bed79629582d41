// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/canopy-chat/canopy/chatapi"
	"github.com/canopy-chat/canopy/channelview"
	"github.com/canopy-chat/canopy/lib/ref"
)

// FocusRegion identifies which pane has keyboard focus.
type FocusRegion int

const (
	// FocusCompose means keystrokes go to the composer textarea.
	FocusCompose FocusRegion = iota
	// FocusList means navigation keys move the timeline selection.
	FocusList
)

// composerHeight is the fixed height of the composer textarea.
const composerHeight = 3

// threadPaneRatio is the fraction of the width given to the thread
// pane when a thread is open.
const threadPaneRatio = 0.40

// snapshotMsg wraps a view-model snapshot for delivery through the
// bubbletea message loop.
type snapshotMsg struct {
	snapshot *channelview.Snapshot
}

// Model is the top-level bubbletea model for a single channel. It
// projects channelview snapshots onto the terminal and translates
// input into view actions. All chat state lives in the view; the
// model only holds presentation state (focus, selection, scroll).
type Model struct {
	view  *channelview.View
	theme Theme
	keys  KeyMap

	// Terminal dimensions (set by WindowSizeMsg).
	width  int
	height int
	ready  bool

	snapshot *channelview.Snapshot

	focusRegion FocusRegion
	composer    textarea.Model

	// Timeline selection and scroll. selectedID tracks the selected
	// message by ID so selection survives snapshot churn;
	// scrollOffset counts lines hidden below the viewport (0 means
	// pinned to the latest message).
	selectedID   ref.MessageID
	scrollOffset int

	// Editing state: non-zero while the composer holds an existing
	// message's text for editing rather than a new draft.
	editingID ref.MessageID

	// Mention autocomplete dropdown.
	mentionOpen       bool
	mentionStart      int
	mentionCandidates []MentionCandidate
	mentionCursor     int

	// Users mentioned in the selected message, surfaced in the status
	// bar while the list has focus.
	hoveredMentions []chatapi.User
}

// NewModel creates a Model over a started channel view. The composer
// has focus initially; enter sends, alt+enter inserts a newline.
func NewModel(view *channelview.View) Model {
	composer := textarea.New()
	composer.Placeholder = "Message..."
	composer.ShowLineNumbers = false
	composer.CharLimit = 0
	composer.SetHeight(composerHeight)
	composer.KeyMap.InsertNewline.SetKeys("alt+enter")
	composer.Focus()

	return Model{
		view:        view,
		theme:       DefaultTheme,
		keys:        DefaultKeyMap,
		snapshot:    view.Snapshot(),
		focusRegion: FocusCompose,
		composer:    composer,
	}
}

// SetTheme replaces the color scheme. Call after NewModel and before
// running the bubbletea program.
func (model *Model) SetTheme(theme Theme) {
	model.theme = theme
}

// SetKeyMap replaces the key bindings. Call after NewModel and before
// running the bubbletea program.
func (model *Model) SetKeyMap(keys KeyMap) {
	model.keys = keys
}

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	return tea.Batch(listenForSnapshot(model.view), textarea.Blink)
}

// listenForSnapshot returns a tea.Cmd that blocks until the view
// publishes a new snapshot, then delivers it as a snapshotMsg. A nil
// result means the view has stopped.
func listenForSnapshot(view *channelview.View) tea.Cmd {
	return func() tea.Msg {
		_, ok := <-view.Updates()
		if !ok {
			return nil
		}
		return snapshotMsg{snapshot: view.Snapshot()}
	}
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.ready = true
		model.composer.SetWidth(message.Width - 2)

	case tea.FocusMsg:
		model.view.SetVisible(true)

	case tea.BlurMsg:
		model.view.SetVisible(false)

	case snapshotMsg:
		// Scroll position carries over; clipLines clamps it against
		// the new line count at render time.
		model.snapshot = message.snapshot
		return model, listenForSnapshot(model.view)

	case tea.KeyMsg:
		return model.handleKey(message)
	}

	return model, nil
}

func (model Model) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	if model.mentionOpen {
		return model.handleMentionKeys(message)
	}
	if model.focusRegion == FocusCompose {
		return model.handleComposerKeys(message)
	}
	return model.handleListKeys(message)
}

// --- Composer ---

func (model Model) handleComposerKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Send):
		model.submitComposer()
		return model, nil

	case key.Matches(message, model.keys.FocusToggle):
		model.focusRegion = FocusList
		model.composer.Blur()
		if model.selectedID.IsZero() {
			model.selectLatest()
		}
		return model, nil

	case key.Matches(message, model.keys.CloseThread):
		// Esc in the composer backs out of edit mode first, then
		// closes the thread.
		if !model.editingID.IsZero() {
			model.editingID = ref.MessageID{}
			model.composer.Reset()
		} else if model.snapshot.Thread != nil {
			model.view.CloseThread()
		}
		return model, nil
	}

	var cmd tea.Cmd
	model.composer, cmd = model.composer.Update(message)
	model.refreshMentionState()
	return model, cmd
}

// submitComposer sends the composer content as a new message, a
// thread reply, or an edit, depending on the current mode.
func (model *Model) submitComposer() {
	text := strings.TrimSpace(model.composer.Value())
	if text == "" {
		return
	}

	if !model.editingID.IsZero() {
		if original, ok := model.snapshot.Message(model.editingID); ok {
			edited := original
			edited.Text = text
			model.view.UpdateMessage(edited)
		}
		model.editingID = ref.MessageID{}
		model.composer.Reset()
		return
	}

	draft := chatapi.Draft{Text: text}
	if model.snapshot.Thread != nil {
		draft.ParentID = model.snapshot.Thread.ID
	}
	model.view.SendMessage(draft)
	model.composer.Reset()
	model.scrollOffset = 0
}

// refreshMentionState opens, updates, or closes the mention dropdown
// based on the composer's current trailing token.
func (model *Model) refreshMentionState() {
	query, start, ok := mentionQuery(model.composer.Value())
	if !ok {
		model.mentionOpen = false
		model.mentionCandidates = nil
		return
	}
	candidates := matchMembers(model.snapshot.Members, query)
	if len(candidates) == 0 {
		model.mentionOpen = false
		model.mentionCandidates = nil
		return
	}
	model.mentionOpen = true
	model.mentionStart = start
	model.mentionCandidates = candidates
	if model.mentionCursor >= len(candidates) {
		model.mentionCursor = 0
	}
}

func (model Model) handleMentionKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Up):
		if model.mentionCursor > 0 {
			model.mentionCursor--
		}
		return model, nil

	case key.Matches(message, model.keys.Down):
		if model.mentionCursor < len(model.mentionCandidates)-1 {
			model.mentionCursor++
		}
		return model, nil

	case key.Matches(message, model.keys.FocusToggle), key.Matches(message, model.keys.Send):
		// Tab or enter accepts the highlighted candidate.
		candidate := model.mentionCandidates[model.mentionCursor]
		completed := completeMention(model.composer.Value(), model.mentionStart, candidate.Handle())
		// SetValue leaves the cursor at the end of the inserted text.
		model.composer.SetValue(completed)
		model.mentionOpen = false
		model.mentionCandidates = nil
		model.mentionCursor = 0
		return model, nil

	case key.Matches(message, model.keys.CloseThread):
		model.mentionOpen = false
		model.mentionCandidates = nil
		model.mentionCursor = 0
		return model, nil
	}

	var cmd tea.Cmd
	model.composer, cmd = model.composer.Update(message)
	model.refreshMentionState()
	return model, cmd
}

// --- Timeline ---

func (model Model) handleListKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		return model, tea.Quit

	case key.Matches(message, model.keys.FocusToggle):
		model.focusRegion = FocusCompose
		return model, model.composer.Focus()

	case key.Matches(message, model.keys.Up):
		model.moveSelection(-1)

	case key.Matches(message, model.keys.Down):
		model.moveSelection(1)

	case key.Matches(message, model.keys.PageUp):
		model.scrollOffset += model.viewportHeight() / 2

	case key.Matches(message, model.keys.PageDown):
		model.scrollOffset -= model.viewportHeight() / 2
		if model.scrollOffset < 0 {
			model.scrollOffset = 0
		}

	case key.Matches(message, model.keys.Home):
		if len(model.snapshot.Messages) > 0 {
			model.selectedID = model.snapshot.Messages[0].ID
			model.reportMentionHover()
		}
		if model.snapshot.HasMore && !model.snapshot.LoadingMore {
			model.view.LoadMore(0)
		}

	case key.Matches(message, model.keys.End):
		model.selectLatest()
		model.scrollOffset = 0

	case key.Matches(message, model.keys.LoadMore):
		if model.snapshot.HasMore && !model.snapshot.LoadingMore {
			model.view.LoadMore(0)
		}

	case key.Matches(message, model.keys.OpenThread):
		if !model.selectedID.IsZero() {
			model.view.OpenThread(model.threadRootFor(model.selectedID))
		}

	case key.Matches(message, model.keys.CloseThread):
		if model.snapshot.Thread != nil {
			model.view.CloseThread()
		}

	case key.Matches(message, model.keys.Edit):
		model.beginEdit()
		if model.focusRegion == FocusCompose {
			return model, model.composer.Focus()
		}

	case key.Matches(message, model.keys.Delete):
		if selected, ok := model.snapshot.Message(model.selectedID); ok &&
			selected.User.ID == model.view.User() {
			model.view.RemoveMessage(selected.ID)
		}

	case key.Matches(message, model.keys.Retry):
		if selected, ok := model.snapshot.Message(model.selectedID); ok &&
			selected.Status == chatapi.StatusFailed {
			model.view.RetrySendMessage(selected.ID)
		}

	case key.Matches(message, model.keys.InsertMention):
		return model.insertMention()

	case key.Matches(message, model.keys.DismissNotification):
		if len(model.snapshot.Notifications) > 0 {
			model.view.DismissNotification(model.snapshot.Notifications[0].ID)
		}
	}

	return model, nil
}

// insertMention inserts @-mentions for the users referenced by the
// selected message into the composer, falling back to the author when
// the message mentions nobody, and moves focus to the composer.
func (model Model) insertMention() (tea.Model, tea.Cmd) {
	selected, ok := model.snapshot.Message(model.selectedID)
	if !ok {
		return model, nil
	}
	users := mentionedUsers(selected, model.snapshot.Members)
	if len(users) == 0 {
		users = []chatapi.User{selected.User}
	}
	model.view.MentionsClick(users)

	text := model.composer.Value()
	if text != "" && !strings.HasSuffix(text, " ") {
		text += " "
	}
	for _, user := range users {
		text += "@" + user.ID.Localpart() + " "
	}
	model.composer.SetValue(text)
	model.focusRegion = FocusCompose
	return model, model.composer.Focus()
}

// reportMentionHover recomputes the mentioned users of the selected
// message and notifies the view's hover hook when there are any.
func (model *Model) reportMentionHover() {
	selected, ok := model.snapshot.Message(model.selectedID)
	if !ok {
		model.hoveredMentions = nil
		return
	}
	model.hoveredMentions = mentionedUsers(selected, model.snapshot.Members)
	if len(model.hoveredMentions) > 0 {
		model.view.MentionsHover(model.hoveredMentions)
	}
}

// beginEdit loads the selected message into the composer when the
// local user authored it.
func (model *Model) beginEdit() {
	selected, ok := model.snapshot.Message(model.selectedID)
	if !ok || selected.User.ID != model.view.User() {
		return
	}
	model.editingID = selected.ID
	model.composer.SetValue(selected.Text)
	model.focusRegion = FocusCompose
}

// threadRootFor resolves the thread to open for a selected message:
// replies shown in-channel open their parent's thread.
func (model Model) threadRootFor(id ref.MessageID) ref.MessageID {
	if message, ok := model.snapshot.Message(id); ok && !message.ParentID.IsZero() {
		return message.ParentID
	}
	return id
}

func (model *Model) selectLatest() {
	if len(model.snapshot.Messages) > 0 {
		model.selectedID = model.snapshot.Messages[len(model.snapshot.Messages)-1].ID
	}
	model.reportMentionHover()
}

// moveSelection moves the timeline selection by delta messages,
// clamped to the ends. An unset selection starts from the latest
// message.
func (model *Model) moveSelection(delta int) {
	messages := model.snapshot.Messages
	if len(messages) == 0 {
		return
	}
	index := len(messages) - 1
	for position, message := range messages {
		if message.ID == model.selectedID {
			index = position
			break
		}
	}
	index += delta
	if index < 0 {
		index = 0
	}
	if index >= len(messages) {
		index = len(messages) - 1
	}
	model.selectedID = messages[index].ID
	if index == len(messages)-1 {
		model.scrollOffset = 0
	}
	model.reportMentionHover()
}

// viewportHeight is the line count available to the timeline after
// the header, status bar, and composer.
func (model Model) viewportHeight() int {
	height := model.height - 1 - 1 - composerHeight - 1
	if height < 3 {
		height = 3
	}
	return height
}

// --- Rendering ---

// View implements tea.Model.
func (model Model) View() string {
	if !model.ready {
		return "loading..."
	}
	if model.snapshot.Err != nil {
		errStyle := lipgloss.NewStyle().Foreground(model.theme.NotificationError)
		return errStyle.Render(fmt.Sprintf("channel unavailable: %v", model.snapshot.Err))
	}
	if model.snapshot.Loading {
		return "connecting..."
	}

	var sections []string
	sections = append(sections, model.renderHeader())
	sections = append(sections, model.renderBody())
	sections = append(sections, model.renderStatusBar())
	if model.mentionOpen {
		sections = append(sections, model.renderMentionDropdown())
	}
	sections = append(sections, model.composer.View())

	return strings.Join(sections, "\n")
}

func (model Model) renderHeader() string {
	headerStyle := lipgloss.NewStyle().
		Foreground(model.theme.HeaderForeground).
		Bold(true)
	faint := lipgloss.NewStyle().Foreground(model.theme.FaintText)

	header := headerStyle.Render(model.snapshot.ChannelID.String())
	details := fmt.Sprintf("  %d members, %d watching",
		len(model.snapshot.Members), model.snapshot.WatcherCount)
	if model.snapshot.UnreadCount > 0 {
		unread := lipgloss.NewStyle().Foreground(model.theme.UnreadAccent)
		details += unread.Render(fmt.Sprintf(", %d unread", model.snapshot.UnreadCount))
	}
	return header + faint.Render(details)
}

// renderBody renders the timeline viewport, joined side by side with
// the thread pane when a thread is open.
func (model Model) renderBody() string {
	height := model.viewportHeight()

	timelineWidth := model.width
	threadWidth := 0
	if model.snapshot.Thread != nil {
		threadWidth = int(float64(model.width) * threadPaneRatio)
		timelineWidth = model.width - threadWidth - 1
	}

	renderer := newTimelineRenderer(
		model.theme, timelineWidth, model.view.User(), model.selectedID,
		model.snapshot.Members)
	timeline := clipLines(renderer.renderTimeline(model.snapshot), height, model.scrollOffset)
	timelinePane := lipgloss.NewStyle().
		Width(timelineWidth).
		Height(height).
		Render(strings.Join(timeline, "\n"))

	if model.snapshot.Thread == nil {
		return timelinePane
	}

	threadRenderer := newTimelineRenderer(
		model.theme, threadWidth-2, model.view.User(), ref.MessageID{},
		model.snapshot.Members)
	thread := clipLines(threadRenderer.renderThreadPane(model.snapshot), height, 0)
	threadPane := lipgloss.NewStyle().
		Width(threadWidth).
		Height(height).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(model.theme.ThreadBorder).
		PaddingLeft(1).
		Render(strings.Join(thread, "\n"))

	return lipgloss.JoinHorizontal(lipgloss.Top, timelinePane, threadPane)
}

// clipLines returns the window of height lines ending offset lines
// above the bottom. offset is clamped so the window stays in range.
func clipLines(lines []timelineLine, height, offset int) []string {
	maxOffset := len(lines) - height
	if maxOffset < 0 {
		maxOffset = 0
	}
	if offset > maxOffset {
		offset = maxOffset
	}
	end := len(lines) - offset
	start := end - height
	if start < 0 {
		start = 0
	}

	clipped := make([]string, 0, end-start)
	for _, line := range lines[start:end] {
		clipped = append(clipped, line.text)
	}
	return clipped
}

// renderStatusBar shows the newest notification, or context-sensitive
// key help when there is none.
func (model Model) renderStatusBar() string {
	if len(model.snapshot.Notifications) > 0 {
		notification := model.snapshot.Notifications[len(model.snapshot.Notifications)-1]
		color := model.theme.NotificationInfo
		if notification.Kind == channelview.NotificationError {
			color = model.theme.NotificationError
		}
		style := lipgloss.NewStyle().Foreground(color)
		return style.Render(notification.Text)
	}

	help := lipgloss.NewStyle().Foreground(model.theme.HelpText)
	if !model.editingID.IsZero() {
		return help.Render("editing: enter to save, esc to cancel")
	}
	if model.focusRegion == FocusCompose {
		return help.Render("enter send · alt+enter newline · tab timeline")
	}
	if len(model.hoveredMentions) > 0 {
		var parts []string
		for _, user := range model.hoveredMentions {
			if user.Name != "" {
				parts = append(parts, fmt.Sprintf("%s (@%s)", user.Name, user.ID.Localpart()))
			} else {
				parts = append(parts, "@"+user.ID.Localpart())
			}
		}
		return help.Render("mentions: " + strings.Join(parts, ", "))
	}
	return help.Render("j/k move · t thread · e edit · d delete · r retry · m mention · tab compose · q quit")
}

// renderMentionDropdown renders the autocomplete candidates above the
// composer, highest score first, with fuzzy-match highlighting.
func (model Model) renderMentionDropdown() string {
	base := lipgloss.NewStyle().
		Background(model.theme.DropdownBackground).
		Foreground(model.theme.NormalText)
	selected := base.Background(model.theme.DropdownSelected).Bold(true)
	matched := lipgloss.NewStyle().
		Background(model.theme.MatchBackground).
		Foreground(model.theme.NormalText)

	var rows []string
	for index, candidate := range model.mentionCandidates {
		style := base
		if index == model.mentionCursor {
			style = selected
		}
		name := highlightPositions(candidate.DisplayName(), candidate.Positions, style, matched)
		row := style.Render("@"+candidate.Handle()+" ") + name
		rows = append(rows, row)
	}
	return strings.Join(rows, "\n")
}

// highlightPositions renders text with the runes at the given indices
// in the match style and everything else in the base style.
func highlightPositions(text string, positions []int, base, match lipgloss.Style) string {
	if len(positions) == 0 {
		return base.Render(text)
	}
	positionSet := make(map[int]bool, len(positions))
	for _, position := range positions {
		positionSet[position] = true
	}

	var out strings.Builder
	for index, r := range []rune(text) {
		if positionSet[index] {
			out.WriteString(match.Render(string(r)))
		} else {
			out.WriteString(base.Render(string(r)))
		}
	}
	return out.String()
}
