// Package tui is the interactive quote viewer behind `quotectl tui`.
package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jsamuelsen/quotebook/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotebook/internal/cli"
)

const (
	allCategories   = "all"
	requestTimeout  = 15 * time.Second
	defaultPollTick = 2 * time.Second
)

// API is the part of the quotebook client the viewer uses.
type API interface {
	Next(ctx context.Context) (dto.QuoteResponse, error)
	Categories(ctx context.Context) (dto.CategoriesResponse, error)
	SetFilter(ctx context.Context, category string) (string, error)
	Sync(ctx context.Context) (dto.SyncResultResponse, error)
	SyncStatus(ctx context.Context) (dto.SyncStatusResponse, error)
	Notifications(ctx context.Context) ([]dto.NotificationResponse, error)
}

var _ API = (*cli.Client)(nil)

type (
	quoteMsg struct {
		quote dto.QuoteResponse
		err   error
	}
	categoriesMsg struct {
		view dto.CategoriesResponse
		err  error
	}
	filterMsg struct {
		category string
		err      error
	}
	syncMsg struct {
		result dto.SyncResultResponse
		err    error
	}
	statusMsg struct {
		status        dto.SyncStatusResponse
		notifications []dto.NotificationResponse
		err           error
	}
	tickMsg time.Time
)

// Options configures the viewer.
type Options struct {
	Context context.Context
	API     API

	// PollTick is how often sync status and notifications are refreshed.
	PollTick time.Duration
}

// Model is the viewer state.
type Model struct {
	ctx      context.Context
	api      API
	pollTick time.Duration

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	quote         *dto.QuoteResponse
	categories    []string
	selected      string
	syncText      string
	notifications []dto.NotificationResponse
	err           error
	pending       int
	width         int
}

// New creates the viewer.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = defaultPollTick
	}

	return Model{
		ctx:      ctx,
		api:      opts.API,
		pollTick: pollTick,
		keys:     defaultKeyMap(),
		help:     help.New(),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		selected: allCategories,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchCategories(), m.fetchNext(), m.fetchStatus(), m.tick())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		return m, tea.Batch(m.fetchStatus(), m.tick())

	case quoteMsg:
		m.done()
		if msg.err != nil {
			m.quote = nil
			if !cli.IsNotFound(msg.err) {
				m.err = msg.err
			}
			return m, m.fetchStatus()
		}
		m.err = nil
		m.quote = &msg.quote
		return m, nil

	case categoriesMsg:
		m.done()
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.categories = msg.view.Categories
		m.selected = msg.view.Selected
		return m, nil

	case filterMsg:
		m.done()
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.selected = msg.category
		return m, m.fetchNext()

	case syncMsg:
		m.done()
		if msg.err == nil {
			m.syncText = msg.result.Status
		}
		return m, tea.Batch(m.fetchStatus(), m.fetchCategories())

	case statusMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.syncText = msg.status.Text
		m.notifications = msg.notifications
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Next):
		return m, m.fetchNext()

	case key.Matches(msg, m.keys.Sync):
		return m, m.runSync()

	case key.Matches(msg, m.keys.Category):
		return m, m.setFilter(nextCategory(m.categories, m.selected))

	case key.Matches(msg, m.keys.Refresh):
		return m, tea.Batch(m.fetchCategories(), m.fetchStatus())
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("quotebook"))
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  category: %s", m.selected)))
	if m.pending > 0 {
		b.WriteString("  " + m.spinner.View())
	}
	b.WriteString("\n\n")

	if m.quote != nil {
		body := fmt.Sprintf("%q\n\n%s", m.quote.Text, categoryStyle.Render("Category: "+m.quote.Category))
		b.WriteString(quoteStyle.Render(body))
	} else {
		b.WriteString(quoteStyle.Render(mutedStyle.Render("No quotes found in this category.")))
	}
	b.WriteString("\n\n")

	if m.syncText != "" {
		b.WriteString(mutedStyle.Render(m.syncText))
		b.WriteString("\n")
	}

	for _, n := range m.notifications {
		b.WriteString(notificationStyle(n.Color).Render(n.Message))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return lipgloss.NewStyle().Margin(1, 2).Render(b.String())
}

// nextCategory returns the option after current, wrapping to "all".
func nextCategory(categories []string, current string) string {
	options := append([]string{allCategories}, categories...)

	i := slices.Index(options, current)

	return options[(i+1)%len(options)]
}

func (m *Model) start() {
	m.pending++
}

func (m *Model) done() {
	if m.pending > 0 {
		m.pending--
	}
}

func (m *Model) call() (context.Context, context.CancelFunc) {
	m.start()
	return context.WithTimeout(m.ctx, requestTimeout)
}

func (m *Model) fetchNext() tea.Cmd {
	ctx, cancel := m.call()
	api := m.api

	return func() tea.Msg {
		defer cancel()
		q, err := api.Next(ctx)
		return quoteMsg{quote: q, err: err}
	}
}

func (m *Model) fetchCategories() tea.Cmd {
	ctx, cancel := m.call()
	api := m.api

	return func() tea.Msg {
		defer cancel()
		v, err := api.Categories(ctx)
		return categoriesMsg{view: v, err: err}
	}
}

func (m *Model) setFilter(category string) tea.Cmd {
	ctx, cancel := m.call()
	api := m.api

	return func() tea.Msg {
		defer cancel()
		got, err := api.SetFilter(ctx, category)
		return filterMsg{category: got, err: err}
	}
}

func (m *Model) runSync() tea.Cmd {
	ctx, cancel := m.call()
	api := m.api

	return func() tea.Msg {
		defer cancel()
		r, err := api.Sync(ctx)
		return syncMsg{result: r, err: err}
	}
}

// fetchStatus polls in the background and does not drive the spinner.
func (m Model) fetchStatus() tea.Cmd {
	api := m.api
	parent := m.ctx

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, requestTimeout)
		defer cancel()

		status, err := api.SyncStatus(ctx)
		if err != nil {
			return statusMsg{err: err}
		}

		notes, err := api.Notifications(ctx)

		return statusMsg{status: status, notifications: notes, err: err}
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.pollTick, func(t time.Time) tea.Msg { return tickMsg(t) })
}
