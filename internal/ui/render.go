package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rovshanmuradov/burn-portal/internal/burn"
	"github.com/rovshanmuradov/burn-portal/internal/logger"
	"github.com/rovshanmuradov/burn-portal/internal/portal"
	"github.com/rovshanmuradov/burn-portal/internal/ui/style"
)

const (
	irreversibleWarning = "This action is irreversible. Burned tokens are permanently removed from circulation."
	largeBurnAdvisory   = "Large burn: double-check the amount before confirming."

	labelWidth = 22
)

func (m *Model) View() string {
	v := m.session.View()

	m.header.Symbol = v.Symbol
	m.header.Address = v.Address
	m.header.Connected = v.Connected
	m.header.Price = v.Price
	m.header.PriceSet = v.PriceSet

	var body string
	if v.Burn.DialogOpen {
		body = m.renderDialog(v)
	} else {
		body = style.AdaptiveJoinHorizontal(m.width, m.renderBurnPanel(v), m.renderDashboard(v))
	}

	sections := []string{m.header.View(), body}
	if m.toasts.Len() > 0 {
		sections = append(sections, m.toasts.View())
	}
	if m.logs.IsVisible() {
		sections = append(sections, m.logs.View())
	}
	sections = append(sections, style.HelpStyle.Render(m.help.View(m.keys)))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderBurnPanel(v portal.View) string {
	var b strings.Builder

	b.WriteString(style.SubHeaderStyle.Render("Burn " + v.Symbol))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s %s  %s\n",
		style.LabelStyle.Render("Balance:"),
		style.LiveValueStyle.Render(v.Balance),
		v.Symbol,
		style.FiatStyle.Render("≈ "+v.BalanceFiat))

	fmt.Fprintf(&b, "\n%s\n", style.LabelStyle.Render("Amount"))
	fmt.Fprintf(&b, "%s  %s\n", m.input.View(), style.FiatStyle.Render("≈ "+v.AmountFiat))
	if m.inputErr != "" {
		b.WriteString(style.ErrorStyle.Render(m.inputErr) + "\n")
	}
	if v.LargeBurn {
		b.WriteString(style.WarningStyle.Render("⚠ "+largeBurnAdvisory) + "\n")
	}

	b.WriteString("\n")
	for i, p := range m.session.Presets() {
		label := fmt.Sprintf("%d·%s", i+1, p.Label)
		if m.focus == focusPresets && i == m.preset {
			b.WriteString(style.PresetActiveStyle.Render(label))
		} else {
			b.WriteString(style.PresetStyle.Render(label))
		}
	}
	b.WriteString(style.PresetStyle.Render("m·MAX"))
	b.WriteString("\n\n")

	button := style.ButtonStyle.Render("🔥 BURN")
	if !v.Connected || v.Burn.IsPending() || m.session.Amount().IsZero() {
		button = style.ButtonDisabledStyle.Render("BURN")
	}
	b.WriteString(button)

	panel := style.ActivePanelStyle
	if m.focus == focusPresets {
		panel = style.PanelStyle
	}
	return panel.Render(b.String())
}

func (m *Model) renderDashboard(v portal.View) string {
	var b strings.Builder

	b.WriteString(style.SubHeaderStyle.Render("Burn Dashboard"))
	b.WriteString("\n")
	writeCounter(&b, "Burned through portal", v.TotalBurned, v.Symbol)
	writeCounter(&b, "Burned last 24h", v.Burned24h, v.Symbol)
	writeCounter(&b, "Lifetime burned", v.Lifetime, v.Symbol)

	b.WriteString("\n")
	b.WriteString(style.SubHeaderStyle.Render("Market"))
	b.WriteString("\n")
	writeRow(&b, "Price", v.Price)
	writeRow(&b, "Market cap", v.MarketCap)
	writeRow(&b, "Remaining supply", v.Remaining)

	return style.PanelStyle.Render(b.String())
}

func writeCounter(b *strings.Builder, label string, c portal.Counter, symbol string) {
	fmt.Fprintf(b, "%s %s %s  %s\n",
		style.LabelStyle.Width(labelWidth).Render(label),
		style.LiveValueStyle.Render(c.Compact),
		symbol,
		style.FiatStyle.Render(c.Fiat))
}

func writeRow(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "%s %s\n", style.LabelStyle.Width(labelWidth).Render(label), style.ValueStyle.Render(value))
}

func (m *Model) renderDialog(v portal.View) string {
	snap := v.Burn
	var b strings.Builder

	b.WriteString(style.TitleStyle.Render("Confirm Burn"))
	b.WriteString("\n\n")
	b.WriteString(style.WarningStyle.Render(irreversibleWarning))
	b.WriteString("\n\n")

	if req := snap.Request; req != nil {
		writeRow(&b, "Amount", v.RequestAmount+" "+v.Symbol)
		writeRow(&b, "Value", v.RequestFiat)
		writeRow(&b, "Destination", logger.ShortenAddress(req.Destination))
		if req.Large {
			b.WriteString(style.WarningStyle.Render("⚠ "+largeBurnAdvisory) + "\n")
		}
	}

	b.WriteString("\n")
	for _, step := range v.Steps {
		b.WriteString(m.renderStep(step))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.approval != nil:
		fmt.Fprintf(&b, "%s\n%s",
			style.WarningStyle.Render("Wallet signature requested"),
			style.ValueStyle.Render("Approve transfer to "+logger.ShortenAddress(m.approval.Request.To)+"? [y/n]"))
	case snap.State == burn.AwaitingConfirmation:
		b.WriteString(style.MutedStyle.Render("enter confirm • esc cancel"))
	case snap.State == burn.Submitted:
		b.WriteString(style.InfoStyle.Render("Submitted " + logger.ShortenAddress(snap.Signature)))
	case snap.State == burn.Settled:
		b.WriteString(style.SuccessStyle.Render("Settled"))
	case snap.State == burn.Failed:
		b.WriteString(style.ErrorStyle.Render(burn.MsgBurnFailed))
	}

	dialog := style.DialogStyle.Render(b.String())
	if m.width > 0 {
		return lipgloss.PlaceHorizontal(m.width, lipgloss.Center, dialog)
	}
	return dialog
}

func (m *Model) renderStep(step burn.Step) string {
	switch step.Status {
	case burn.StepCompleted:
		return style.SuccessStyle.Render("✓ " + step.Label)
	case burn.StepActive:
		return m.spinner.View() + " " + style.ValueStyle.Render(step.Label)
	default:
		return style.MutedStyle.Render("○ " + step.Label)
	}
}
