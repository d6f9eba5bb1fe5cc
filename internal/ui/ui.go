package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/pagewalk/internal/models"
	"github.com/desertthunder/pagewalk/internal/pagination"
	"github.com/desertthunder/pagewalk/internal/shared"
	"github.com/desertthunder/pagewalk/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	StreamingView ViewState = iota
	DoneView
)

// Streamer runs a chunk stream; [tasks.Engine] satisfies it.
type Streamer interface {
	StreamChunks(ctx context.Context, fetcher pagination.PageFetcher, sink chan<- models.Chunk, progress chan<- tasks.ProgressUpdate) error
}

// Model represents the TUI application state.
type Model struct {
	ctx         context.Context
	cancel      context.CancelFunc
	view        ViewState
	streamer    Streamer
	fetcher     pagination.PageFetcher
	title       string
	chunks      chan models.Chunk
	progress    chan tasks.ProgressUpdate
	done        chan error
	chunkCount  int
	status      string
	stopped     bool
	showDetails bool
	width       int
	height      int
	list        list.Model
	spinner     spinner.Model
	err         error
	help        help.Model
	keys        keyMap
}

// NewModel creates a stream viewer for fetcher. The stream starts on [Model.Init] and stops when ctx is done
// or the user quits.
func NewModel(ctx context.Context, streamer Streamer, fetcher pagination.PageFetcher, title string) *Model {
	ctx, cancel := context.WithCancel(ctx)

	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = NewStyle("#FF5500")

	return &Model{
		ctx:      ctx,
		cancel:   cancel,
		view:     StreamingView,
		streamer: streamer,
		fetcher:  fetcher,
		title:    title,
		chunks:   make(chan models.Chunk),
		progress: make(chan tasks.ProgressUpdate, 16),
		done:     make(chan error, 1),
		list:     l,
		spinner:  s,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init starts the stream and the spinner.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startStream())
}

// Err returns the stream error, or nil when the stream completed or was stopped by the user.
func (m *Model) Err() error {
	return m.err
}

// State returns the current view.
func (m *Model) State() ViewState {
	return m.view
}

// Items returns every item received so far, in stream order.
func (m *Model) Items() []models.Item {
	entries := m.list.Items()
	items := make([]models.Item, 0, len(entries))
	for _, e := range entries {
		if entry, ok := e.(itemEntry); ok {
			items = append(items, entry.item)
		}
	}
	return items
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case spinner.TickMsg:
		if m.view != StreamingView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleStream(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) handleStream(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgChunkReceived:
		chunk := msg.data.(models.Chunk)
		if chunk.Completed {
			return m, m.waitForStream()
		}
		m.chunkCount++
		return m, tea.Batch(m.appendChunk(chunk), m.waitForStream())

	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		if update.Phase == tasks.WalkEnded {
			m.status = update.Message
		}
		return m, m.waitForStream()

	case MsgStreamEnded:
		err, _ := msg.data.(error)
		m.view = DoneView
		if err != nil && !(m.stopped && errors.Is(err, context.Canceled)) {
			m.err = err
		}
		m.cancel()
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		m.cancel()
		return m, tea.Quit
	case key.Matches(msg, m.keys.stop):
		if m.view == StreamingView && !m.stopped {
			m.stopped = true
			m.cancel()
		}
		return m, nil
	case key.Matches(msg, m.keys.details):
		m.showDetails = !m.showDetails
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) appendChunk(chunk models.Chunk) tea.Cmd {
	entries := m.list.Items()
	for _, item := range chunk.Items {
		entries = append(entries, itemEntry{item: item, chunk: chunk.Index})
	}
	return m.list.SetItems(entries)
}

func (m *Model) startStream() tea.Cmd {
	go func() {
		m.done <- m.streamer.StreamChunks(m.ctx, m.fetcher, m.chunks, m.progress)
	}()
	return m.waitForStream()
}

func (m *Model) waitForStream() tea.Cmd {
	chunks, progress, done := m.chunks, m.progress, m.done
	return func() tea.Msg {
		select {
		case chunk := <-chunks:
			return chunkReceivedMsg(chunk)
		case update := <-progress:
			return progressUpdateMsg(update)
		case err := <-done:
			return streamEndedMsg(err)
		}
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var header string
	switch m.view {
	case StreamingView:
		header = m.renderStreaming()
	case DoneView:
		header = m.renderDone()
	}

	body := m.list.View()
	if m.showDetails {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, m.renderDetails())
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", header, body, m.help.View(m.keys))
}

func (m *Model) renderStreaming() string {
	label := "Streaming"
	if m.stopped {
		label = "Stopping"
	}
	return fmt.Sprintf("%s %s %s (%d chunks, %d items)",
		m.spinner.View(), label, m.title, m.chunkCount, len(m.list.Items()))
}

func (m *Model) renderDone() string {
	var header string
	switch {
	case m.err != nil:
		header = styles.err.Render(fmt.Sprintf("Stream failed: %v", m.err))
	case m.stopped:
		header = styles.warn.Render(fmt.Sprintf("Stream stopped after %d chunks (%d items)", m.chunkCount, len(m.list.Items())))
	default:
		header = styles.ok.Render(fmt.Sprintf("✓ Stream complete: %d chunks, %d items", m.chunkCount, len(m.list.Items())))
	}
	if m.status != "" {
		header += "\n" + styles.help.Render(m.status)
	}
	return header
}

func (m *Model) renderDetails() string {
	entry, ok := m.list.SelectedItem().(itemEntry)
	if !ok {
		return ""
	}
	item := entry.item

	var b strings.Builder
	b.WriteString(styles.title.Render(item.Title))
	fmt.Fprintf(&b, "\nID: %s", item.ID)
	if item.Artist != "" {
		fmt.Fprintf(&b, "\nArtist: %s", item.Artist)
	}
	if item.DurationMS > 0 {
		fmt.Fprintf(&b, "\nDuration: %s", shared.FormatDuration(item.DurationMS))
	}
	if item.Genre != "" {
		fmt.Fprintf(&b, "\nGenre: %s", item.Genre)
	}
	fmt.Fprintf(&b, "\nAccess: %s\nPolicy: %s", valueOr(item.Access, "-"), valueOr(item.Policy, "-"))
	if item.PermalinkURL != "" {
		fmt.Fprintf(&b, "\n%s", styles.help.Render(item.PermalinkURL))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#FF5500")).
		Padding(0, 1).
		MarginLeft(2).
		Render(b.String())
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// Run shows the stream viewer until the user quits and returns the stream error, if any.
func Run(ctx context.Context, streamer Streamer, fetcher pagination.PageFetcher, title string, opts ...tea.ProgramOption) ([]models.Item, error) {
	model := NewModel(ctx, streamer, fetcher, title)
	if _, err := tea.NewProgram(model, opts...).Run(); err != nil {
		return nil, fmt.Errorf("error running TUI: %w", err)
	}
	return model.Items(), model.Err()
}
