// Package notify delivers arbitrage alerts to Telegram.
package notify

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/betsnipe/betsnipe/internal/events"
	"github.com/betsnipe/betsnipe/internal/pkg/catalog"
	"github.com/betsnipe/betsnipe/internal/pkg/models"
)

// Min interval between any two Telegram messages to the same chat to avoid
// 429 Too Many Requests (~30/min limit).
const sendInterval = 2 * time.Second

const queueSize = 100

var sportEmojis = map[catalog.SportID]string{
	catalog.Football:    "⚽",
	catalog.Basketball:  "\U0001f3c0",
	catalog.Tennis:      "\U0001f3be",
	catalog.Hockey:      "\U0001f3d2",
	catalog.TableTennis: "\U0001f3d3",
}

// TelegramNotifier sends arbitrage alerts to one chat through a background
// queue, spacing sends so Telegram's rate limit is never hit. Alerts arrive
// from the bus on the engine's cycle goroutine; Notify only enqueues.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64

	queue    chan models.Arbitrage
	done     chan struct{}
	wg       sync.WaitGroup
	lastSend time.Time
}

// NewTelegramNotifier builds the notifier and verifies the token against the
// Bot API before starting the send worker.
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	me, err := bot.GetMe()
	if err != nil {
		return nil, fmt.Errorf("failed to verify telegram bot: %w", err)
	}

	n := &TelegramNotifier{
		bot:    bot,
		chatID: chatID,
		queue:  make(chan models.Arbitrage, queueSize),
		done:   make(chan struct{}),
	}
	n.wg.Add(1)
	go n.sender()

	slog.Info("telegram notifier initialized", "bot", me.UserName, "chat_id", chatID)
	return n, nil
}

// SubscribeTo wires the notifier to the arbitrage stream of the bus.
// Returns the unsubscribe func.
func (n *TelegramNotifier) SubscribeTo(bus *events.Bus) func() {
	return bus.Subscribe(string(events.TypeArbitrage), func(event events.Event) {
		arb, ok := event.Data.(models.Arbitrage)
		if !ok {
			return
		}
		n.Notify(arb)
	})
}

// Notify enqueues one alert. When the queue is full the alert is dropped
// with a log line: a stale arbitrage alert is worthless.
func (n *TelegramNotifier) Notify(arb models.Arbitrage) {
	select {
	case n.queue <- arb:
	default:
		slog.Warn("telegram queue full, dropping alert",
			"match", arb.Team1+" - "+arb.Team2,
			"profit_pct", arb.ProfitPercent)
	}
}

// QueueLen returns the number of queued alerts, for cycle logging.
func (n *TelegramNotifier) QueueLen() int {
	return len(n.queue)
}

// Close stops the worker after draining queued alerts.
func (n *TelegramNotifier) Close() {
	close(n.done)
	n.wg.Wait()
}

func (n *TelegramNotifier) sender() {
	defer n.wg.Done()
	for {
		select {
		case <-n.done:
			for {
				select {
				case arb := <-n.queue:
					n.send(arb)
				default:
					return
				}
			}
		case arb := <-n.queue:
			n.send(arb)
		}
	}
}

func (n *TelegramNotifier) send(arb models.Arbitrage) {
	if wait := sendInterval - time.Since(n.lastSend); wait > 0 {
		select {
		case <-n.done:
		case <-time.After(wait):
		}
	}
	n.lastSend = time.Now()

	msg := tgbotapi.NewMessage(n.chatID, FormatArbitrage(arb))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.bot.Send(msg); err != nil {
		slog.Error("telegram send failed",
			"error", err,
			"match", arb.Team1+" - "+arb.Team2,
			"queue_length", len(n.queue))
		return
	}
	slog.Info("telegram alert sent",
		"match", arb.Team1+" - "+arb.Team2,
		"profit_pct", arb.ProfitPercent,
		"queue_length", len(n.queue))
}

// FormatArbitrage renders one opportunity as a Markdown alert.
func FormatArbitrage(arb models.Arbitrage) string {
	emoji, ok := sportEmojis[arb.Sport]
	if !ok {
		emoji = "\U0001f3af"
	}
	arbType := fmt.Sprintf("%d-way", len(arb.BestOdds))

	var b strings.Builder
	fmt.Fprintf(&b, "\U0001f3af *ARBITRAGE ALERT* (%s)\n\n", arbType)
	fmt.Fprintf(&b, "%s *%s*\n", emoji, catalog.SportName(arb.Sport))
	fmt.Fprintf(&b, "\U0001f3df️ *%s* vs *%s*\n", arb.Team1, arb.Team2)
	fmt.Fprintf(&b, "⏰ %s\n\n", arb.StartTime.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "\U0001f4ca *Bet Type:* %s\n", catalog.BetTypeName(arb.BetType))
	if arb.Margin > 0 {
		fmt.Fprintf(&b, "\U0001f4cf *Margin:* %g\n", arb.Margin)
	}
	fmt.Fprintf(&b, "\U0001f4b0 *Profit:* %.2f%%\n\n", arb.ProfitPercent)

	b.WriteString("*Best Odds:*\n")
	legEmojis := []string{"1️⃣", "2️⃣", "3️⃣"}
	for i, leg := range arb.BestOdds {
		fmt.Fprintf(&b, "%s %s: *%.2f* @ %s\n",
			legEmojis[i%len(legEmojis)], outcomeLabel(leg.Outcome), leg.Odd, leg.BookmakerName)
	}

	b.WriteString("\n*Optimal Stakes (100 units):*\n")
	for i, leg := range arb.BestOdds {
		if i >= len(arb.Stakes) {
			break
		}
		fmt.Fprintf(&b, "   %s: %.2f units\n", outcomeLabel(leg.Outcome), arb.Stakes[i])
	}
	return b.String()
}

func outcomeLabel(outcome string) string {
	switch outcome {
	case "1":
		return "1 (Home)"
	case "2":
		return "2 (Away)"
	case "X":
		return "X (Draw)"
	}
	return outcome
}
