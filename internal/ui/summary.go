package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/SatoKentaNayoro/test-psbt/internal/trade"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("6"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("7")).
			Width(18)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("2"))

	noteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("3"))
)

// RenderReceipt formats a completed trade for the terminal: the resulting
// txid plus the satoshi breakdown that went into the purchase transaction.
func RenderReceipt(receipt *trade.Receipt) string {
	var b strings.Builder

	if receipt.DryRun {
		b.WriteString(headerStyle.Render("Trade assembled (dry run)"))
	} else {
		b.WriteString(headerStyle.Render("Trade settled"))
	}
	b.WriteString("\n")

	rows := []struct {
		label string
		value string
	}{
		{"Price", fmt.Sprintf("%d sat", receipt.Policy.Price)},
		{"Marketplace fee", fmt.Sprintf("%d sat", receipt.Policy.MarketplaceFee)},
		{"Dummy allowance", fmt.Sprintf("%d sat", receipt.Policy.DummyAllowance)},
		{"Transfer overhead", fmt.Sprintf("%d sat", receipt.Policy.TransferOverhead)},
		{"Payment inputs", fmt.Sprintf("%d sat", receipt.PaymentTotal)},
		{"Change", fmt.Sprintf("%d sat", receipt.Change)},
	}
	if receipt.TradeTxID != "" {
		rows = append(rows, struct {
			label string
			value string
		}{"Trade txid", receipt.TradeTxID})
	}

	for _, row := range rows {
		b.WriteString(labelStyle.Render(row.label))
		b.WriteString(valueStyle.Render(row.value))
		b.WriteString("\n")
	}

	if receipt.SeparatorTxID != "" {
		b.WriteString(noteStyle.Render(fmt.Sprintf("Separator output created in %s", receipt.SeparatorTxID)))
		b.WriteString("\n")
	}
	if receipt.DryRun && receipt.RawHex != "" {
		b.WriteString(noteStyle.Render("Finalized transaction hex:"))
		b.WriteString("\n")
		b.WriteString(receipt.RawHex)
		b.WriteString("\n")
	}

	return b.String()
}
