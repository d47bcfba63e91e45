package component

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/rovshanmuradov/burn-portal/internal/logger"
	"github.com/rovshanmuradov/burn-portal/internal/ui/style"
)

// Header shows the product title, the connected account and the price.
type Header struct {
	Symbol    string
	Address   string
	Connected bool
	Price     string
	PriceSet  bool

	width int
	style headerStyle
}

type headerStyle struct {
	container lipgloss.Style
	title     lipgloss.Style
	wallet    lipgloss.Style
	good      lipgloss.Style
	bad       lipgloss.Style
}

func NewHeader() *Header {
	palette := style.DefaultPalette()
	return &Header{
		style: headerStyle{
			container: lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(palette.Primary).
				Padding(0, 2),
			title:  lipgloss.NewStyle().Foreground(palette.Primary).Bold(true),
			wallet: lipgloss.NewStyle().Foreground(palette.TextSecondary),
			good:   lipgloss.NewStyle().Foreground(palette.Success).Bold(true),
			bad:    lipgloss.NewStyle().Foreground(palette.Error).Bold(true),
		},
	}
}

// SetWidth sets the component width for responsive layout
func (h *Header) SetWidth(width int) {
	h.width = width
}

func (h *Header) View() string {
	title := h.style.title.Render(fmt.Sprintf("🔥 %s Burn Portal", h.Symbol))

	wallet := h.style.bad.Render("● Not connected")
	if h.Connected {
		wallet = h.style.good.Render("●") + " " + h.style.wallet.Render(logger.ShortenAddress(h.Address))
	}

	price := style.MutedStyle.Render("price: loading")
	if h.PriceSet {
		price = style.LiveValueStyle.Render(h.Price)
	}

	content := lipgloss.JoinHorizontal(lipgloss.Left, title, "  |  ", wallet, "  |  ", price)
	container := h.style.container
	if h.width > 4 {
		container = container.Width(h.width - 2)
	}
	return container.Render(content)
}
