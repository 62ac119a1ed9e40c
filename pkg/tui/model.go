// Package tui is the interactive findings browser.
package tui

import (
	"context"
	"sort"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine/analyzers"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/graph"
)

type ViewState int

const (
	ViewStateList ViewState = iota
	ViewStateDetail
	ViewStateTopology
	ViewStateHelp
)

// SortMode orders the findings list.
type SortMode int

const (
	SortSeverity SortMode = iota
	SortAnalyzer
	SortAsset
)

func (s SortMode) String() string {
	switch s {
	case SortAnalyzer:
		return "analyzer"
	case SortAsset:
		return "asset"
	}
	return "severity"
}

// FindingsMsg replaces the browsed findings, e.g. after a watch reload.
type FindingsMsg struct {
	RunID           string
	SnapshotVersion uint64
	Graph           *graph.Snapshot
	Findings        []analyzers.Finding
}

type keyMap struct {
	Up, Down, Enter, Back, Sort, Filter, Topology, Help, Quit key.Binding
}

var keys = keyMap{
	Up:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
	Down:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
	Enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
	Back:     key.NewBinding(key.WithKeys("esc", "b"), key.WithHelp("esc", "back")),
	Sort:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
	Filter:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter severity")),
	Topology: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "zones")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) all() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Enter, k.Back, k.Sort, k.Filter, k.Topology, k.Help, k.Quit}
}

type Model struct {
	spinner spinner.Model

	state    ViewState
	waiting  bool
	quitting bool
	width    int
	height   int
	title    string

	runID   string
	version uint64
	graph   *graph.Snapshot

	all           []analyzers.Finding
	visible       []analyzers.Finding
	topologyLines []TopologyLine

	SortMode    SortMode
	MinSeverity analyzers.Severity

	cursor         int
	topologyCursor int
}

// NewModel starts an empty browser that shows a spinner until the first
// FindingsMsg arrives.
func NewModel(title string) Model {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = special
	return Model{
		spinner: s,
		waiting: true,
		title:   title,
		state:   ViewStateList,
		height:  24,
		width:   100,
	}
}

// Load replaces the findings, keeping sort, filter and view state.
func (m Model) Load(msg FindingsMsg) Model {
	m.waiting = false
	m.runID = msg.RunID
	m.version = msg.SnapshotVersion
	m.graph = msg.Graph
	m.all = append([]analyzers.Finding(nil), msg.Findings...)
	m.topologyLines = buildTopology(m.graph)
	m.refresh()
	return m
}

// Selected returns the finding under the cursor.
func (m Model) Selected() (analyzers.Finding, bool) {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return analyzers.Finding{}, false
	}
	return m.visible[m.cursor], true
}

// Visible is the filtered, sorted list being shown.
func (m Model) Visible() []analyzers.Finding { return m.visible }

func (m Model) State() ViewState { return m.state }

func (m *Model) refresh() {
	m.visible = make([]analyzers.Finding, 0, len(m.all))
	for _, f := range m.all {
		if f.Severity >= m.MinSeverity {
			m.visible = append(m.visible, f)
		}
	}
	switch m.SortMode {
	case SortSeverity:
		analyzers.SortFindings(m.visible)
	case SortAnalyzer:
		sort.SliceStable(m.visible, func(i, j int) bool {
			a, b := m.visible[i], m.visible[j]
			if ai, bi := analyzers.Index(a.Analyzer), analyzers.Index(b.Analyzer); ai != bi {
				return ai < bi
			}
			return a.Severity > b.Severity
		})
	case SortAsset:
		sort.SliceStable(m.visible, func(i, j int) bool {
			a, b := m.visible[i], m.visible[j]
			if a.AssetID != b.AssetID {
				return a.AssetID < b.AssetID
			}
			return a.Severity > b.Severity
		})
	}
	if m.cursor >= len(m.visible) {
		m.cursor = len(m.visible) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case FindingsMsg:
		return m.Load(msg), nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, keys.Help):
		if m.state == ViewStateHelp {
			m.state = ViewStateList
		} else {
			m.state = ViewStateHelp
		}

	case key.Matches(msg, keys.Back):
		m.state = ViewStateList

	case key.Matches(msg, keys.Topology):
		if m.state == ViewStateTopology {
			m.state = ViewStateList
		} else {
			m.state = ViewStateTopology
		}

	case key.Matches(msg, keys.Up):
		if m.state == ViewStateTopology {
			if m.topologyCursor > 0 {
				m.topologyCursor--
			}
		} else if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, keys.Down):
		if m.state == ViewStateTopology {
			if m.topologyCursor < len(m.topologyLines)-1 {
				m.topologyCursor++
			}
		} else if m.cursor < len(m.visible)-1 {
			m.cursor++
		}

	case key.Matches(msg, keys.Enter):
		switch m.state {
		case ViewStateList:
			if len(m.visible) > 0 {
				m.state = ViewStateDetail
			}
		case ViewStateDetail:
			m.state = ViewStateList
		}

	case key.Matches(msg, keys.Sort):
		m.SortMode = (m.SortMode + 1) % 3
		m.refresh()

	case key.Matches(msg, keys.Filter):
		if m.MinSeverity == analyzers.SeverityCritical {
			m.MinSeverity = analyzers.SeverityLow
		} else {
			m.MinSeverity++
		}
		m.cursor = 0
		m.refresh()
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var body string
	switch m.state {
	case ViewStateDetail:
		body = m.viewDetails()
	case ViewStateTopology:
		body = m.viewTopology()
	case ViewStateHelp:
		body = m.viewHelp()
	default:
		body = m.viewList()
	}
	return m.viewHUD() + "\n" + body + "\n" + m.viewFooter()
}

// Run starts the browser. Each value received on updates replaces the
// findings; updates may be nil for a one-shot view.
func Run(ctx context.Context, m Model, updates <-chan FindingsMsg) error {
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	if updates != nil {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-updates:
					if !ok {
						return
					}
					p.Send(msg)
				}
			}
		}()
	}
	_, err := p.Run()
	return err
}
