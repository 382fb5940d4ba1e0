// handlers/bot.go
package handlers

import (
	"context"
	"log"
	"strconv"
	"strings"

	"isopod-exchange/gateway"
	"isopod-exchange/middleware"
	"isopod-exchange/services"
	"isopod-exchange/utils"

	"github.com/gofiber/fiber/v2"
)

// Bot turns gateway updates into game commands.
type Bot struct {
	Game              *services.GameService
	Renderer          *utils.Renderer // nil disables images
	BroadcastPassword string

	commands map[string]commandFunc
	quiet    map[string]bool // commands that skip the expired-effect notice
}

// Command is one parsed chat command.
type Command struct {
	Name   string
	Args   []string
	Rest   string // raw text after the command word
	Update gateway.Update
	Out    gateway.Sender
}

type commandFunc func(ctx context.Context, cmd *Command) error

func NewBot(game *services.GameService, renderer *utils.Renderer, broadcastPassword string) *Bot {
	b := &Bot{Game: game, Renderer: renderer, BroadcastPassword: broadcastPassword}
	b.commands = map[string]commandFunc{
		"start":         b.start,
		"help":          b.help,
		"roll":          b.roll,
		"r":             b.roll,
		"instantroll":   b.instantRoll,
		"instaroll":     b.instantRoll,
		"charges":       b.charges,
		"inventory":     b.inventory,
		"items":         b.items,
		"item":          b.items,
		"shop":          b.shop,
		"buy":           b.buy,
		"use":           b.use,
		"sell":          b.sell,
		"s":             b.sell,
		"sellall":       b.sellAll,
		"sall":          b.sellAll,
		"lock":          b.lock,
		"unlock":        b.lock,
		"breed":         b.breed,
		"rainbowfusion": b.rainbowFusion,
		"market":        b.market,
		"auction":       b.auction,
		"fishing":       b.fishing,
		"top":           b.top,
		"legendary":     b.legendary,
		"battle":        b.battle,
		"accept":        b.accept,
		"decline":       b.decline,
		"race":          b.race,
		"raceaccept":    b.raceAccept,
		"racedecline":   b.raceDecline,
		"broadcast":     b.broadcast,
	}
	b.quiet = map[string]bool{"start": true, "help": true, "top": true, "legendary": true, "broadcast": true}
	return b
}

// HandleUpdate is POST /updates. The body is decoded by UpdateContextMiddleware.
func (b *Bot) HandleUpdate(c *fiber.Ctx) error {
	u, ok := middleware.UpdateFrom(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing update"})
	}
	out := gateway.NewOutbox(u.ChatID)
	b.Dispatch(c.UserContext(), u, out)
	return c.JSON(fiber.Map{"messages": out.Messages()})
}

// ParseCommand splits "/name@bot arg1 arg2" into its parts. Text that is not
// a command returns ok=false.
func ParseCommand(text string) (name string, args []string, rest string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", nil, "", false
	}
	head, rest, _ := strings.Cut(text, " ")
	head, _, _ = strings.Cut(strings.TrimPrefix(head, "/"), "@")
	if head == "" {
		return "", nil, "", false
	}
	rest = strings.TrimSpace(rest)
	return strings.ToLower(head), strings.Fields(rest), rest, true
}

// Dispatch runs one update against the command table, writing replies to out.
// Game errors become short replies; anything else is logged.
func (b *Bot) Dispatch(ctx context.Context, u gateway.Update, out gateway.Sender) {
	name, args, rest, ok := ParseCommand(u.Text)
	if !ok {
		return
	}
	fn, known := b.commands[name]
	if !known {
		return
	}
	cmd := &Command{Name: name, Args: args, Rest: rest, Update: u, Out: out}

	if _, err := b.Game.EnsureUser(ctx, u.SenderID, u.SenderName); err != nil {
		b.fail(cmd, err)
		return
	}
	if !b.quiet[name] {
		b.notifyExpired(ctx, cmd)
	}
	if err := fn(ctx, cmd); err != nil {
		b.fail(cmd, err)
	}
}

func (b *Bot) fail(cmd *Command, err error) {
	if ge, ok := services.AsGameError(err); ok {
		cmd.Out.Reply(ge.Msg)
		return
	}
	log.Printf("❌ [BOT] /%s from %d failed: %v", cmd.Name, cmd.Update.SenderID, err)
	cmd.Out.Reply("⚠️ Something went wrong, try again.")
}

func (b *Bot) notifyExpired(ctx context.Context, cmd *Command) {
	expired, err := b.Game.ExpiredEffects(ctx, cmd.Update.SenderID)
	if err != nil {
		log.Printf("[BOT] expired-effect check for %d failed: %v", cmd.Update.SenderID, err)
		return
	}
	if len(expired) == 0 {
		return
	}
	labels := make([]string, len(expired))
	for i, k := range expired {
		labels[i] = services.EffectLabel(k)
	}
	cmd.Out.SendSilent(cmd.Update.ChatID, "⏱️ Expired: "+strings.Join(labels, ", "))
}

// usage replies with the argument shape of the current command.
func usage(cmd *Command, shape string) error {
	cmd.Out.Reply("Usage: /" + cmd.Name + " " + shape)
	return nil
}

func parseID(s string) (uint, bool) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}

func parseAmount(s string) (int64, bool) {
	v, err := strconv.ParseInt(s, 10, 64)
	return v, err == nil
}

func mention(name string) string {
	return strings.TrimPrefix(name, "@")
}

func senderName(u gateway.Update) string {
	if u.SenderName == "" {
		return "unknown"
	}
	return u.SenderName
}
