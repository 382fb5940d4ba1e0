// handlers/fishing.go
package handlers

import (
	"context"
	"fmt"
	"strings"

	"isopod-exchange/utils"
)

func (b *Bot) fishing(ctx context.Context, cmd *Command) error {
	if len(cmd.Args) < 1 {
		cmd.Out.Reply("Use: /fishing shop | /fishing buy <rod_id> | /fishing start <rod_id> <isopod_id> | /fishing inventory")
		return nil
	}
	uid := cmd.Update.SenderID

	switch strings.ToLower(cmd.Args[0]) {
	case "shop":
		rods, err := b.Game.Rods(ctx)
		if err != nil {
			return err
		}
		lines := []string{"🎣 Fishing Shop:"}
		for _, r := range rods {
			lines = append(lines, fmt.Sprintf("%s - %s 💰%d | Tier %d | Bite %d%% | Save bait %d%% | Max catch %d",
				r.RodID, r.Name, r.Price, r.Tier, percent(r.BiteChance), percent(r.SaveBaitChance), r.MultiCatchMax))
		}
		cmd.Out.Reply(strings.Join(lines, "\n"))

	case "buy":
		if len(cmd.Args) < 2 {
			return usage(cmd, "buy <rod_id>")
		}
		rod, err := b.Game.BuyRod(ctx, uid, cmd.Update.SenderName, cmd.Args[1])
		if err != nil {
			return err
		}
		cmd.Out.Reply(fmt.Sprintf("✅ Bought %s for %d iso$", rod.Name, rod.Price))

	case "inventory":
		fish, err := b.Game.FishInventory(ctx, uid)
		if err != nil {
			return err
		}
		if len(fish) == 0 {
			cmd.Out.Reply("🐟 No fish")
			return nil
		}
		lines := []string{"🐟 Your Fish:"}
		for _, f := range fish {
			name := f.Fish.Name
			if name == "" {
				name = fmt.Sprintf("Fish %d", f.FishID)
			}
			lines = append(lines, fmt.Sprintf("%d x%d - %s (%s) 💰%d", f.FishID, f.Qty, name, f.Fish.Tier, f.Fish.Price))
		}
		cmd.Out.Reply(strings.Join(lines, "\n"))

	case "start":
		if len(cmd.Args) < 3 {
			return usage(cmd, "start <rod_id> <isopod_id>")
		}
		baitID, ok := parseID(cmd.Args[2])
		if !ok {
			cmd.Out.Reply("Invalid isopod ID")
			return nil
		}
		cmd.Out.Reply("🎣 Casting...")
		res, err := b.Game.Fish(ctx, uid, cmd.Args[1], baitID)
		if err != nil {
			return err
		}
		if !res.Bite {
			if res.BaitSaved {
				cmd.Out.Reply("No bites. Bait saved.")
			} else {
				cmd.Out.Reply("No bites. Bait consumed.")
			}
			return nil
		}
		caption := fmt.Sprintf("🐟 Caught %dx %s (%s) 💰%d each.", res.Count, res.Fish.Name, res.Fish.Tier, res.Fish.Price)
		if res.Bonus != nil {
			caption += " + Bonus item: " + res.Bonus.Name
		}
		color := res.Fish.Color
		b.sendImage(ctx, cmd, caption, func(ctx context.Context) (*utils.RenderedImage, error) {
			return b.Renderer.RenderFish(ctx, color)
		})

	default:
		cmd.Out.Reply("Unknown fishing command")
	}
	return nil
}
