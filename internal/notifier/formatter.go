package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"StockPulse/internal/calculator"
	"StockPulse/internal/format"
	"StockPulse/internal/model"
)

func trendMark(change float64) string {
	switch {
	case change > 0:
		return "🟢"
	case change < 0:
		return "🔴"
	default:
		return "⚪"
	}
}

func syntheticTag(snap *model.Snapshot) string {
	if snap.IsSynthetic {
		return " <i>[synthetic]</i>"
	}
	if snap.Provenance.EstimatedHistory {
		return " <i>[estimated history]</i>"
	}
	return ""
}

// FormatSnapshot formats a single symbol's quote and indicators for /quote.
func FormatSnapshot(snap *model.Snapshot) string {
	var b strings.Builder
	ta := snap.TechnicalAnalysis

	b.WriteString(fmt.Sprintf("%s <b>%s</b> %s%s\n\n", trendMark(snap.PriceChange),
		html.EscapeString(snap.Symbol), html.EscapeString(snap.DisplayName), syntheticTag(snap)))
	b.WriteString(fmt.Sprintf("Price: %.2f (%+.2f, %s)\n", snap.CurrentPrice, snap.PriceChange, format.Percent(snap.PriceChangePct)))
	b.WriteString(fmt.Sprintf("Prev close: %.2f\n", snap.PreviousClose))

	pos, err := calculator.Calculate52WeekPosition(snap.CurrentPrice, snap.High52w, snap.Low52w)
	if err == nil {
		b.WriteString(fmt.Sprintf("52w: %.2f - %.2f (at %.0f%%)\n", snap.Low52w, snap.High52w, pos*100))
	}
	b.WriteString(fmt.Sprintf("Volume: %s (avg %s)\n", format.Volume(snap.Volume), format.Volume(snap.AvgVolume)))
	b.WriteString(fmt.Sprintf("P/E: %s | Mkt cap: %s\n\n", snap.PERatio, snap.MarketCap))

	b.WriteString("📈 <b>Technicals</b>\n")
	b.WriteString(fmt.Sprintf("  SMA20 %.2f | SMA50 %.2f | SMA200 %.2f\n", ta.SMA20, ta.SMA50, ta.SMA200))
	b.WriteString(fmt.Sprintf("  RSI %.2f | MACD %.2f\n", ta.RSI, ta.MACD))
	b.WriteString(fmt.Sprintf("  Bollinger %.2f / %.2f\n", ta.BollingerLower, ta.BollingerUpper))
	for _, s := range ta.Signals {
		b.WriteString("  • " + html.EscapeString(s) + "\n")
	}

	if src := snap.Provenance.Source; src != "" {
		b.WriteString(fmt.Sprintf("\nSource: %s", src))
	}
	return b.String()
}

// FormatDigest formats the scheduled watchlist refresh as one line per symbol.
func FormatDigest(snaps []*model.Snapshot, at time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>StockPulse watchlist</b> | %s\n\n", at.Format("2006-01-02 15:04")))

	synthetic := 0
	for _, s := range snaps {
		if s == nil {
			continue
		}
		if s.IsSynthetic {
			synthetic++
		}
		b.WriteString(fmt.Sprintf("%s <b>%s</b> %.2f %s RSI %.0f", trendMark(s.PriceChange),
			html.EscapeString(s.Symbol), s.CurrentPrice, format.Percent(s.PriceChangePct),
			s.TechnicalAnalysis.RSI))
		if sig := s.TechnicalAnalysis.Signals; len(sig) > 0 {
			b.WriteString(" | " + html.EscapeString(sig[0]))
		}
		b.WriteString(syntheticTag(s) + "\n")
	}
	if synthetic > 0 {
		b.WriteString(fmt.Sprintf("\n⚠️ %d of %d quotes are synthetic placeholders", synthetic, len(snaps)))
	}
	return b.String()
}

// FormatHelp lists the supported commands.
func FormatHelp() string {
	return "<b>StockPulse commands</b>\n" +
		"/quote SYMBOL - latest quote and technicals\n" +
		"/watchlist - refresh the watchlist now\n" +
		"/help - this message"
}
