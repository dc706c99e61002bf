// Package alert formats outbound notification messages. Messages use
// Telegram HTML markup; other channels strip it.
package alert

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/tradewire/ictbot/internal/domain"
)

const timeLayout = "02-01-2006 15:04:05"

// Signal renders the entry alert for an inbound signal.
func Signal(sig domain.Signal, now time.Time) (title, body string) {
	action := sig.TransactionType()

	var header, footer string
	if action == domain.TransactionBuy {
		header = "🚨 NEW BUY SIGNAL 🚨"
		footer = "✅ <b>EXECUTING BUY ORDER...</b>"
	} else {
		header = "⚠️ NEW SELL SIGNAL ⚠️"
		footer = "❌ <b>EXECUTING SELL ORDER...</b>"
	}

	price := sig.Price.Float()
	sl := sig.StopLoss.Float()
	tp := sig.TakeProfit.Float()
	risk := math.Abs(price - sl)
	reward := math.Abs(tp - price)

	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>%s</b>\n", sig.CleanSymbol())
	fmt.Fprintf(&b, "💰 <b>Entry:</b> ₹%.2f\n", price)
	fmt.Fprintf(&b, "🔻 <b>Stop Loss:</b> ₹%.2f (-%.2f)\n", sl, risk)
	if sig.PartialTP.Float() > 0 {
		fmt.Fprintf(&b, "🎯 <b>Partial TP (50%%):</b> ₹%.2f\n", sig.PartialTP.Float())
	}
	fmt.Fprintf(&b, "🔺 <b>Full TP:</b> ₹%.2f (+%.2f)\n\n", tp, reward)

	fmt.Fprintf(&b, "💼 <b>Position Details:</b>\n")
	fmt.Fprintf(&b, "• Quantity: %d\n", sig.Quantity())
	fmt.Fprintf(&b, "• Risk Amount: ₹%.2f\n", sig.Risk.Float())
	fmt.Fprintf(&b, "• Risk-Reward: 1:%.2f\n\n", sig.RiskReward.Float())

	fmt.Fprintf(&b, "🎯 <b>Analysis:</b>\n")
	fmt.Fprintf(&b, "• Market Regime: %s\n", orNA(sig.Regime))
	fmt.Fprintf(&b, "• Confluence Score: %.0f/15\n", sig.Confluence.Float())
	fmt.Fprintf(&b, "• Kill Zone: %s\n\n", orNA(sig.Killzone))

	fmt.Fprintf(&b, "⏰ %s\n\n%s", now.Format(timeLayout), footer)

	return header, b.String()
}

// PositionOpened renders the post-entry summary listing which bracket legs
// made it onto the book.
func PositionOpened(pos domain.Position, now time.Time) (title, body string) {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Symbol: %s\n", pos.Symbol)
	fmt.Fprintf(&b, "🎯 Action: %s\n", pos.Action)
	fmt.Fprintf(&b, "📈 Filled Qty: %d/%d\n", pos.FilledQty, pos.RequestedQty)
	fmt.Fprintf(&b, "🔻 SL Order: %s\n", placed(pos.StopLoss, "❌ Failed"))
	fmt.Fprintf(&b, "🔺 TP Order: %s\n", placed(pos.TakeProfit, "⚠️ Not Placed"))
	fmt.Fprintf(&b, "🎯 Partial TP: %s\n\n", placed(pos.PartialTP, "⚠️ Not Placed"))
	fmt.Fprintf(&b, "⏰ %s", now.Format(timeLayout))

	return "✅ POSITION OPENED", b.String()
}

// PartialTaken renders the partial-profit alert after the stop has been
// adjusted to the remaining quantity.
func PartialTaken(symbol string, exited, remaining int, now time.Time) (title, body string) {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Symbol: %s\n", symbol)
	fmt.Fprintf(&b, "💰 Qty Exited: %d\n", exited)
	fmt.Fprintf(&b, "📈 Remaining: %d\n", remaining)
	fmt.Fprintf(&b, "🔄 SL Adjusted: %d\n\n", remaining)
	fmt.Fprintf(&b, "⏰ %s", now.Format(timeLayout))

	return "✅ PARTIAL PROFIT TAKEN", b.String()
}

// TargetHit renders the full take-profit closure alert.
func TargetHit(symbol string, now time.Time) (title, body string) {
	body = fmt.Sprintf("📊 Symbol: %s\n✅ Position fully closed\n💰 Target achieved!\n\n⏰ %s",
		symbol, now.Format(timeLayout))
	return "🎯 TAKE PROFIT HIT", body
}

// StopHit renders the stop-loss closure alert.
func StopHit(symbol string, now time.Time) (title, body string) {
	body = fmt.Sprintf("📊 Symbol: %s\n❌ Position closed at loss\n🔒 Risk protected\n\n⏰ %s",
		symbol, now.Format(timeLayout))
	return "🛑 STOP LOSS HIT", body
}

// EmergencyExit renders the critical unwind alert.
func EmergencyExit(symbol string, quantity int, reason string) (title, body string) {
	body = fmt.Sprintf("Symbol: %s\nQuantity: %d\nReason: %s", symbol, quantity, reason)
	return "🚨 EMERGENCY EXIT EXECUTED", body
}

// Rejected renders a validation-rejection alert.
func Rejected(action, symbol, reason string) (title, body string) {
	body = fmt.Sprintf("Signal: %s %s\nReason: %s", action, symbol, reason)
	return "⚠️ Order Rejected", body
}

// EntryFailed renders an entry-leg failure alert.
func EntryFailed(symbol string, action domain.TransactionType, detail string) (title, body string) {
	body = fmt.Sprintf("Symbol: %s\nAction: %s\n%s", symbol, action, detail)
	return "❌ ENTRY FAILED", body
}

func placed(b *domain.BracketOrder, absent string) string {
	if b != nil && b.OrderID != "" {
		return "✅ Placed"
	}
	return absent
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
