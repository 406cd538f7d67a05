package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/acegen/internal/models"
	"github.com/desertthunder/acegen/internal/services"
	"github.com/desertthunder/acegen/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ChannelListView ViewState = iota
	DetailView
)

// Source loads the channel listing shown by the browser. The production
// implementation is the channels repository.
type Source interface {
	Listing(ctx context.Context, dest shared.Destination) ([]models.Channel, error)
}

// StreamProber answers whether a single stream link serves content.
// Implemented by [services.Checker].
type StreamProber interface {
	IsAvailable(ctx context.Context, link string, timeout time.Duration, analyzeMpegTS bool) error
}

// Model represents the TUI application state.
type Model struct {
	ctx         context.Context
	view        ViewState
	source      Source
	engine      services.Engine
	prober      StreamProber
	dest        shared.Destination
	width       int
	height      int
	channelList list.Model
	channels    []models.Channel
	selected    *models.Channel
	loaded      bool
	probing     bool
	probed      bool
	probeErr    error
	err         error
	help        help.Model
	keys        keyMap
}

// NewModel creates a new TUI model with the provided dependencies. A nil
// prober disables the stream probe action.
func NewModel(ctx context.Context, source Source, engine services.Engine, prober StreamProber, dest shared.Destination) *Model {
	channelList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	channelList.Title = fmt.Sprintf("Channels for %s", dest.Name)

	return &Model{
		ctx:         ctx,
		view:        ChannelListView,
		source:      source,
		engine:      engine,
		prober:      prober,
		dest:        dest,
		channelList: channelList,
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

// Init starts the first channel fetch.
func (m *Model) Init() tea.Cmd {
	return m.fetchChannels()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.channelList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ChannelListView:
			return m.handleChannelListKeys(msg)
		case DetailView:
			return m.handleDetailKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateList(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case ChannelListView:
		return m.renderChannelList()
	case DetailView:
		return m.renderDetail()
	default:
		return ""
	}
}

func (m *Model) handleChannelListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The filter input owns the keyboard while active.
	if m.channelList.FilterState() == list.Filtering {
		return m.updateList(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		m.loaded = false
		return m, m.fetchChannels()
	case "enter":
		selected := m.channelList.SelectedItem()
		if selected != nil {
			if item, ok := selected.(channelItem); ok {
				ch := item.channel
				m.selected = &ch
				m.probing = false
				m.probed = false
				m.probeErr = nil
				m.view = DetailView
			}
		}
		return m, nil
	}

	return m.updateList(msg)
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = ChannelListView
		m.selected = nil
		return m, nil
	case "p":
		if m.selected != nil && m.prober != nil && !m.probing {
			m.probing = true
			m.probed = false
			m.probeErr = nil
			return m, m.probeSelected()
		}
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgChannelsFetched:
		data := msg.data.(channelsFetchedData)
		if data.err != nil {
			m.err = data.err
			return m, tea.Quit
		}
		m.channels = data.channels
		m.loaded = true
		items := make([]list.Item, len(data.channels))
		for i, ch := range data.channels {
			items[i] = channelItem{channel: ch}
		}
		m.channelList.SetItems(items)
		return m, nil

	case MsgProbeDone:
		data := msg.data.(probeDoneData)
		if m.selected == nil || m.selected.Infohash != data.infohash {
			return m, nil
		}
		m.probing = false
		m.probed = true
		m.probeErr = data.err
		return m, nil
	}

	return m, nil
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.view == ChannelListView {
		m.channelList, cmd = m.channelList.Update(msg)
	}
	return m, cmd
}

func (m *Model) fetchChannels() tea.Cmd {
	return func() tea.Msg {
		channels, err := m.source.Listing(m.ctx, m.dest)
		return channelsFetchedMsg(channels, err)
	}
}

func (m *Model) probeSelected() tea.Cmd {
	infohash := m.selected.Infohash
	link := m.engine.StreamURL(infohash)
	timeout := time.Duration(m.dest.Rules.CheckTimeoutSeconds) * time.Second
	analyze := m.dest.Rules.MpegTSProbe

	return func() tea.Msg {
		return probeDoneMsg(infohash, m.prober.IsAvailable(m.ctx, link, timeout, analyze))
	}
}

func (m *Model) renderChannelList() string {
	if !m.loaded {
		return styles.help.Render("loading channels...")
	}

	helpKeys := []key.Binding{m.keys.enter, m.keys.refresh, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.channelList.View(), helpView)
}

func (m *Model) renderDetail() string {
	if m.selected == nil {
		return ""
	}

	ch := *m.selected
	title := styles.title.Render(ch.Name)
	info := fmt.Sprintf(
		"Category: %s\nCountry: %s\nLanguage: %s\nStatus: %d\nAvailability: %.2f\nInfohash: %s\nStream: %s",
		orDash(ch.Category), orDash(ch.Country), orDash(ch.Language),
		ch.Status, ch.Availability, ch.Infohash, m.engine.StreamURL(ch.Infohash),
	)

	var probe string
	switch {
	case m.probing:
		probe = "\n\n" + styles.warn.Render("probing stream...")
	case m.probed && m.probeErr != nil:
		probe = "\n\n" + styles.err.Render(fmt.Sprintf("dead: %v", m.probeErr))
	case m.probed:
		probe = "\n\n" + styles.ok.Render("alive")
	}

	helpKeys := []key.Binding{m.keys.probe, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, probe, helpView)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
