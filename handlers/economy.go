// handlers/economy.go
package handlers

import (
	"context"
	"fmt"
	"strings"

	"isopod-exchange/models"
	"isopod-exchange/services"
)

func (b *Bot) start(ctx context.Context, cmd *Command) error {
	cmd.Out.Reply(fmt.Sprintf("🦠 Roll-y Poly Isopod Bot, %s!\n\nUse /help to see all commands.", senderName(cmd.Update)))
	return nil
}

func (b *Bot) help(ctx context.Context, cmd *Command) error {
	cmd.Out.Reply(helpText)
	return nil
}

func (b *Bot) roll(ctx context.Context, cmd *Command) error {
	all := len(cmd.Args) > 0 && strings.EqualFold(cmd.Args[0], "all")
	res, err := b.Game.Roll(ctx, cmd.Update.SenderID, cmd.Update.SenderName, all)
	if err != nil {
		return err
	}
	b.reportRoll(ctx, cmd, res)
	return nil
}

func (b *Bot) instantRoll(ctx context.Context, cmd *Command) error {
	res, err := b.Game.InstantRoll(ctx, cmd.Update.SenderID, cmd.Update.SenderName)
	if err != nil {
		return err
	}
	b.reportRoll(ctx, cmd, res)
	return nil
}

func (b *Bot) reportRoll(ctx context.Context, cmd *Command, res *services.RollResult) {
	if res.MarketRegenerated {
		cmd.Out.SendSilent(cmd.Update.ChatID, "📈 Market refreshed")
	}
	for _, o := range res.Outcomes {
		if o.Jackpot {
			b.sendImage(ctx, cmd, "🌈 RAINBOW PILLBUG! Legendary status!", b.Renderer.RainbowImage)
			continue
		}
		if o.Entry != nil {
			b.sendCreature(ctx, cmd, o.Entry)
		}
		if o.Healed {
			cmd.Out.Reply("💚 Healing pill bug! +1 charge")
		}
		if o.Nerfed {
			cmd.Out.Reply(fmt.Sprintf("😵 Bit you! Next charge delayed by %d minutes!", int(b.Game.Rules.NerfPenalty.Minutes())))
		}
		if o.Drop != nil {
			cmd.Out.Reply(fmt.Sprintf("🎁 %s!", o.Drop.Name))
		}
	}
	cmd.Out.Reply(res.Status)
}

func (b *Bot) charges(ctx context.Context, cmd *Command) error {
	status, err := b.Game.ChargeStatus(ctx, cmd.Update.SenderID, cmd.Update.SenderName)
	if err != nil {
		return err
	}
	cmd.Out.Reply(status)
	return nil
}

func (b *Bot) inventory(ctx context.Context, cmd *Command) error {
	view, err := b.Game.Inventory(ctx, cmd.Update.SenderID)
	if err != nil {
		return err
	}
	if len(view.Recent) == 0 {
		cmd.Out.Reply("📦 Empty inventory")
		return nil
	}
	lines := []string{"📦 Recent (/sell <ID>):"}
	for _, e := range view.Recent {
		lines = append(lines, fmt.Sprintf("%d: %s (%s) Lv%d 💰%d | ❤️ %d ⚔️ %d%s",
			e.ID, e.Name, e.Tier, e.Level, e.Price, e.HP, e.Attack, lockMark(e.Locked)))
	}
	lines = append(lines, fmt.Sprintf("Recent total: %d | Full inv: %d iso$", view.RecentTotal, view.FullTotal))
	cmd.Out.Reply(strings.Join(lines, "\n"))
	return nil
}

func (b *Bot) sell(ctx context.Context, cmd *Command) error {
	if len(cmd.Args) < 1 {
		return usage(cmd, "<ID>")
	}
	if strings.EqualFold(cmd.Args[0], "all") {
		return b.sellAllTier(ctx, cmd, cmd.Args[1:])
	}
	id, ok := parseID(cmd.Args[0])
	if !ok {
		cmd.Out.Reply("Invalid ID")
		return nil
	}
	price, err := b.Game.SellEntry(ctx, cmd.Update.SenderID, cmd.Update.SenderName, id)
	if err != nil {
		return err
	}
	cmd.Out.Reply(fmt.Sprintf("✅ Sold %d iso$!", price))
	return nil
}

func (b *Bot) sellAll(ctx context.Context, cmd *Command) error {
	return b.sellAllTier(ctx, cmd, cmd.Args)
}

func (b *Bot) sellAllTier(ctx context.Context, cmd *Command, args []string) error {
	var tier *models.Tier
	if len(args) > 0 {
		t, ok := models.ParseTier(args[0])
		if !ok {
			cmd.Out.Reply("Invalid rarity. Use common/rare/epic/legendary")
			return nil
		}
		tier = &t
	}
	n, total, err := b.Game.SellAll(ctx, cmd.Update.SenderID, cmd.Update.SenderName, tier)
	if err != nil {
		return err
	}
	cmd.Out.Reply(fmt.Sprintf("✅ Sold %d isopods for %d iso$", n, total))
	return nil
}

func (b *Bot) lock(ctx context.Context, cmd *Command) error {
	if len(cmd.Args) < 1 {
		return usage(cmd, "<ID>")
	}
	id, ok := parseID(cmd.Args[0])
	if !ok {
		cmd.Out.Reply("Invalid ID")
		return nil
	}
	locked := cmd.Name == "lock"
	if err := b.Game.SetLocked(ctx, cmd.Update.SenderID, id, locked); err != nil {
		return err
	}
	if locked {
		cmd.Out.Reply(fmt.Sprintf("🔒 Locked isopod %d", id))
	} else {
		cmd.Out.Reply(fmt.Sprintf("🔓 Unlocked isopod %d", id))
	}
	return nil
}

func (b *Bot) market(ctx context.Context, cmd *Command) error {
	view, err := b.Game.Market(ctx)
	if err != nil {
		return err
	}
	if view.Regenerated {
		cmd.Out.SendSilent(cmd.Update.ChatID, "📈 Market refreshed")
	}
	line := func(rows []models.CatalogEntry) string {
		out := make([]string, len(rows))
		for i, r := range rows {
			out[i] = fmt.Sprintf("%s %d$", r.FullName, r.Price)
		}
		return strings.Join(out, "\n")
	}
	text := "📈 High:\n" + line(view.High) + "\n\n📉 Low:\n" + line(view.Low)
	text += "\n\nNext refresh in " + countdown(view.NextRefresh)
	cmd.Out.Reply(text)
	return nil
}

func (b *Bot) top(ctx context.Context, cmd *Command) error {
	users, err := b.Game.TopUsers(ctx, 10)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		cmd.Out.Reply("None")
		return nil
	}
	lines := []string{"💰 Richest:"}
	for i, u := range users {
		lines = append(lines, fmt.Sprintf("%d. %s: %d$", i+1, u.Username, u.Money))
	}
	cmd.Out.Reply(strings.Join(lines, "\n"))
	return nil
}

func (b *Bot) legendary(ctx context.Context, cmd *Command) error {
	users, err := b.Game.LegendaryUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		cmd.Out.Reply("None")
		return nil
	}
	lines := []string{"🏆 Legendaries:"}
	for _, u := range users {
		lines = append(lines, "• "+u.Username)
	}
	cmd.Out.Reply(strings.Join(lines, "\n"))
	return nil
}

func (b *Bot) broadcast(ctx context.Context, cmd *Command) error {
	password, message, _ := strings.Cut(cmd.Rest, " ")
	message = strings.TrimSpace(message)
	if password == "" || message == "" {
		return usage(cmd, "<password> <message>")
	}
	if b.BroadcastPassword == "" {
		cmd.Out.Reply("Broadcast is disabled")
		return nil
	}
	if password != b.BroadcastPassword {
		cmd.Out.Reply("Wrong password")
		return nil
	}
	ids, err := b.Game.AllUserIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		cmd.Out.Send(id, "📣 Broadcast: "+message)
	}
	cmd.Out.Reply(fmt.Sprintf("Broadcast sent to %d users", len(ids)))
	return nil
}
