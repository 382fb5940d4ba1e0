// handlers/auction.go
package handlers

import (
	"context"
	"fmt"
	"strings"
)

func (b *Bot) auction(ctx context.Context, cmd *Command) error {
	if len(cmd.Args) < 1 {
		cmd.Out.Reply("Use: /auction list | /auction sell <isopod_id> <price> | /auction buy <auction_id> | /auction cancel <id|all>")
		return nil
	}
	uid := cmd.Update.SenderID

	switch strings.ToLower(cmd.Args[0]) {
	case "list":
		rows, err := b.Game.ActiveAuctions(ctx)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			cmd.Out.Reply("No active auctions")
			return nil
		}
		lines := []string{"🏷️ Auctions:"}
		for _, a := range rows {
			seller := a.SellerName
			if seller == "" {
				seller = "unknown"
			}
			lines = append(lines, fmt.Sprintf("%d: %s (%s) 💰%d | @%s", a.ID, a.Name, a.Tier, a.Price, seller))
		}
		cmd.Out.Reply(strings.Join(lines, "\n"))

	case "sell":
		if len(cmd.Args) < 3 {
			return usage(cmd, "sell <isopod_id> <price>")
		}
		id, ok := parseID(cmd.Args[1])
		price, okPrice := parseAmount(cmd.Args[2])
		if !ok || !okPrice {
			cmd.Out.Reply("Invalid ID or price")
			return nil
		}
		a, err := b.Game.ListAuction(ctx, uid, cmd.Update.SenderName, id, price)
		if err != nil {
			return err
		}
		cmd.Out.Reply(fmt.Sprintf("✅ Auction listed (#%d)", a.ID))

	case "buy":
		if len(cmd.Args) < 2 {
			return usage(cmd, "buy <auction_id>")
		}
		id, ok := parseID(cmd.Args[1])
		if !ok {
			cmd.Out.Reply("Invalid auction ID")
			return nil
		}
		e, err := b.Game.BuyAuction(ctx, uid, cmd.Update.SenderName, id)
		if err != nil {
			return err
		}
		cmd.Out.Reply(fmt.Sprintf("✅ Auction purchased: %d: %s", e.ID, e.Name))

	case "cancel":
		if len(cmd.Args) < 2 {
			return usage(cmd, "cancel <id|all>")
		}
		if strings.EqualFold(cmd.Args[1], "all") {
			if _, err := b.Game.CancelAllAuctions(ctx, uid); err != nil {
				return err
			}
			cmd.Out.Reply("✅ Cancelled all your auctions")
			return nil
		}
		id, ok := parseID(cmd.Args[1])
		if !ok {
			cmd.Out.Reply("Invalid auction ID")
			return nil
		}
		if err := b.Game.CancelAuction(ctx, uid, id); err != nil {
			return err
		}
		cmd.Out.Reply("✅ Auction cancelled")

	default:
		cmd.Out.Reply("Unknown auction command")
	}
	return nil
}
