// handlers/items.go
package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"isopod-exchange/services"
)

func (b *Bot) items(ctx context.Context, cmd *Command) error {
	if len(cmd.Args) > 0 {
		switch action := strings.ToLower(cmd.Args[0]); action {
		case "sell", "delete":
			return b.dropItem(ctx, cmd, action)
		case "buy":
			return b.buyToken(ctx, cmd, cmd.Args[1:])
		case "use":
			return b.useArgs(ctx, cmd, cmd.Args[1:])
		}
	}

	owned, err := b.Game.ListItems(ctx, cmd.Update.SenderID)
	if err != nil {
		return err
	}
	if len(owned) == 0 {
		cmd.Out.Reply("🧰 No items")
		return nil
	}
	short, err := b.Game.ShortIDs(ctx)
	if err != nil {
		return err
	}
	lines := []string{"🧰 Items:"}
	for _, o := range owned {
		prefix := ""
		if id := short.Short(o.Item.ItemID); id != "" {
			prefix = "[" + id + "] "
		}
		line := fmt.Sprintf("%s%s x%d - %s", prefix, o.Item.ItemID, o.Qty, o.Item.Name)
		if o.Item.Description != "" {
			line += " | " + o.Item.Description
		}
		lines = append(lines, line)
	}
	lines = append(lines, "Use: /use <item_id> [@user]")
	cmd.Out.Reply(strings.Join(lines, "\n"))
	return nil
}

func (b *Bot) dropItem(ctx context.Context, cmd *Command, action string) error {
	if len(cmd.Args) < 2 {
		return usage(cmd, action+" <item_id> [qty]")
	}
	qty := 1
	if len(cmd.Args) >= 3 {
		n, err := strconv.Atoi(cmd.Args[2])
		if err != nil {
			cmd.Out.Reply("Invalid qty")
			return nil
		}
		qty = n
	}
	uid := cmd.Update.SenderID
	if action == "delete" {
		id, err := b.Game.DeleteItem(ctx, uid, cmd.Args[1], qty)
		if err != nil {
			return err
		}
		cmd.Out.Reply(fmt.Sprintf("🗑️ Deleted %dx %s", qty, id))
		return nil
	}
	id, total, err := b.Game.SellItem(ctx, uid, cmd.Args[1], qty)
	if err != nil {
		return err
	}
	cmd.Out.Reply(fmt.Sprintf("✅ Sold %dx %s for %d iso$", qty, id, total))
	return nil
}

func (b *Bot) shop(ctx context.Context, cmd *Command) error {
	view, err := b.Game.Shop(ctx)
	if err != nil {
		return err
	}
	if view.Refreshed {
		cmd.Out.SendSilent(cmd.Update.ChatID, "🛒 Shop refreshed")
	}
	if len(view.Slots) == 0 {
		cmd.Out.Reply("Shop is empty")
		return nil
	}
	short, err := b.Game.ShortIDs(ctx)
	if err != nil {
		return err
	}
	lines := []string{"🛒 Shop (rotates hourly):", "Next refresh in " + countdown(view.NextRefresh)}
	for _, slot := range view.Slots {
		prefix := ""
		if id := short.Short(slot.ShopItemID); id != "" {
			prefix = "[" + id + "] "
		}
		lines = append(lines, fmt.Sprintf("%s%s - %s 💰%d | %s",
			prefix, slot.ShopItemID, slot.Item.Name, slot.Item.Price, slot.Item.Description))
	}
	cmd.Out.Reply(strings.Join(lines, "\n"))
	return nil
}

func (b *Bot) buy(ctx context.Context, cmd *Command) error {
	return b.buyToken(ctx, cmd, cmd.Args)
}

func (b *Bot) buyToken(ctx context.Context, cmd *Command, args []string) error {
	if len(args) < 1 {
		return usage(cmd, "<item_id>")
	}
	res, err := b.Game.BuyItem(ctx, cmd.Update.SenderID, cmd.Update.SenderName, args[0])
	if err != nil {
		return err
	}
	if res.ShopRefreshed {
		cmd.Out.SendSilent(cmd.Update.ChatID, "🛒 Shop refreshed")
	}
	text := fmt.Sprintf("✅ Bought %s for %d iso$", res.Item.Name, res.Paid)
	if res.Discounted {
		text += fmt.Sprintf(" (discount, %d uses left)", res.DiscountUsesLeft)
	}
	cmd.Out.Reply(text)
	return nil
}

func (b *Bot) use(ctx context.Context, cmd *Command) error {
	return b.useArgs(ctx, cmd, cmd.Args)
}

// useArgs handles "<item> [@user|isopod_id]".
func (b *Bot) useArgs(ctx context.Context, cmd *Command, args []string) error {
	if len(args) < 1 {
		return usage(cmd, "<item_id> [@user]")
	}
	req := services.UseRequest{
		UserID:   cmd.Update.SenderID,
		Username: cmd.Update.SenderName,
		Token:    args[0],
	}
	if len(args) > 1 {
		if id, ok := parseID(args[1]); ok {
			req.CreatureID = id
		} else {
			req.TargetUsername = mention(args[1])
		}
	}
	res, err := b.Game.UseItem(ctx, req)
	if err != nil {
		return err
	}
	if res.MarketRefreshed {
		cmd.Out.SendSilent(cmd.Update.ChatID, "📈 Market refreshed")
	}
	cmd.Out.Reply(res.Text)
	return nil
}
