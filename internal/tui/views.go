package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/andreiluca/fraudwatch/internal/classify"
	"github.com/andreiluca/fraudwatch/internal/feed"
	"github.com/andreiluca/fraudwatch/internal/model"
	"github.com/andreiluca/fraudwatch/internal/stream"
)

// View renders the dashboard.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("fraudwatch — real-time transaction monitoring"))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n\n")
	}

	if m.loading {
		b.WriteString(m.spinner.View())
		b.WriteString(" Loading transactions...\n")
		return b.String()
	}

	b.WriteString(renderKpiCards(m.kpis))
	b.WriteString("\n\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")
	b.WriteString(m.statusBar())
	return b.String()
}

func (m Model) statusBar() string {
	state := m.cfg.Stream.State()
	var conn string
	switch state {
	case stream.StateConnected:
		conn = legitimateStyle.Render("● " + state.String())
	case stream.StateConnecting:
		conn = alertStyle.Render("● " + state.String())
	default:
		conn = fraudStyle.Render("● " + state.String())
	}
	return statusBarStyle.Render(fmt.Sprintf("%s · %d retained · q to quit", conn, len(m.txns)))
}

// renderKpiCards lays the metric cards out in one row, mirroring the KPI
// overview grid of the web dashboard this replaces.
func renderKpiCards(k feed.KpiSnapshot) string {
	cards := []string{
		kpiCard("Transactions", fmt.Sprintf("%d", k.TotalCount), legitimateStyle),
		kpiCard("Fraud", fmt.Sprintf("%d", k.FraudCount), fraudStyle),
		kpiCard("Alerts", fmt.Sprintf("%d", k.AlertCount), alertStyle),
		kpiCard("Fraud rate", fmt.Sprintf("%.2f%%", k.FraudRate), fraudStyle),
		kpiCard("Fraud value", formatAmount(k.FraudValue), fraudStyle),
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func kpiCard(title, value string, valueStyle lipgloss.Style) string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		cardTitleStyle.Render(title),
		cardValueStyle.Inherit(valueStyle).Render(value),
	)
	return cardStyle.Render(content)
}

func tableColumns(width int) []table.Column {
	merchantWidth := width - 62
	if merchantWidth < 16 {
		merchantWidth = 16
	}
	return []table.Column{
		{Title: "Time", Width: 16},
		{Title: "Amount", Width: 10},
		{Title: "Merchant", Width: merchantWidth},
		{Title: "Category", Width: 14},
		{Title: "Location", Width: 16},
		{Title: "Status", Width: 10},
	}
}

// buildRows renders the feed newest-first; the reconciler only guarantees
// arrival order, direction is presentation.
func buildRows(txns []model.Transaction, classifier *classify.Classifier) []table.Row {
	rows := make([]table.Row, 0, len(txns))
	for i := len(txns) - 1; i >= 0; i-- {
		tx := txns[i]
		rows = append(rows, table.Row{
			tx.Timestamp.Format("01-02 15:04:05"),
			formatAmount(tx.Amount),
			tx.Merchant,
			tx.Category,
			tx.Location.Place(),
			string(classifier.Classify(tx)),
		})
	}
	return rows
}

func formatAmount(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}
