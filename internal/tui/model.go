// Package tui renders the fraud-monitoring dashboard: KPI cards, the live
// transaction table, and the stream connection state. It only reads from the
// reconciled feed; all mutation stays in the feed and stream packages.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/andreiluca/fraudwatch/internal/classify"
	"github.com/andreiluca/fraudwatch/internal/common"
	"github.com/andreiluca/fraudwatch/internal/feed"
	"github.com/andreiluca/fraudwatch/internal/model"
	"github.com/andreiluca/fraudwatch/internal/normalize"
	"github.com/andreiluca/fraudwatch/internal/service"
	"github.com/andreiluca/fraudwatch/internal/stream"
)

// refreshInterval drives feed polling; KPI recomputation happens before every
// render, never concurrently with it.
const refreshInterval = 500 * time.Millisecond

// Config wires the dashboard to the reconciliation core.
type Config struct {
	Source     service.BatchSource
	Feed       *feed.Feed
	Classifier *classify.Classifier
	Stream     *stream.Client
	BatchLimit int
}

type (
	batchLoadedMsg struct{ count int }
	batchErrMsg    struct{ err error }
	refreshMsg     time.Time
)

// Model is the bubbletea model for the dashboard.
type Model struct {
	cfg     Config
	err     error
	txns    []model.Transaction
	kpis    feed.KpiSnapshot
	spinner spinner.Model
	table   table.Model
	width   int
	height  int
	loading bool
}

// NewModel creates the dashboard model.
func NewModel(cfg Config) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	tbl := table.New(
		table.WithColumns(tableColumns(80)),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	return Model{
		cfg:     cfg,
		spinner: sp,
		table:   tbl,
		loading: true,
	}
}

// Init kicks off the initial batch fetch and the refresh loop.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.loadBatch(),
		refreshTick(),
	)
}

// loadBatch fetches and normalizes the historical batch, retrying transient
// transport failures before surfacing an error banner.
func (m Model) loadBatch() tea.Cmd {
	cfg := m.cfg
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		var payloads []normalize.RawPayload
		err := common.WithRetry(ctx, func() error {
			var fetchErr error
			payloads, fetchErr = cfg.Source.GetTransactions(ctx, cfg.BatchLimit)
			return fetchErr
		}, common.RetryOptions{MaxAttempts: 3, InitialDelay: time.Second})
		if err != nil {
			return batchErrMsg{err: common.NewUserError("Failed to fetch transactions", err)}
		}

		records := make([]model.Transaction, len(payloads))
		for i, p := range payloads {
			records[i] = normalize.Transaction(p)
		}
		count, err := cfg.Feed.LoadInitialBatch(records)
		if err != nil {
			return batchErrMsg{err: err}
		}
		return batchLoadedMsg{count: count}
	}
}

func refreshTick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetColumns(tableColumns(m.width))
		if msg.Height > 14 {
			m.table.SetHeight(msg.Height - 14)
		}

	case batchLoadedMsg:
		m.loading = false
		m.refresh()
		return m, nil

	case batchErrMsg:
		m.loading = false
		m.err = msg.err
		return m, nil

	case refreshMsg:
		m.refresh()
		return m, refreshTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// refresh re-reads the feed and recomputes KPIs. Status is derived here, on
// demand, so the table and the cards can never disagree.
func (m *Model) refresh() {
	m.txns = m.cfg.Feed.Snapshot()
	m.kpis = feed.ComputeKpis(m.txns, m.cfg.Classifier, time.Now())
	m.table.SetRows(buildRows(m.txns, m.cfg.Classifier))
}

// Run starts the dashboard and blocks until the user quits or the context is
// canceled.
func Run(ctx context.Context, cfg Config) error {
	p := tea.NewProgram(NewModel(cfg), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
