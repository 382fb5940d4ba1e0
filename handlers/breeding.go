// handlers/breeding.go
package handlers

import (
	"context"
	"fmt"
	"strings"
)

func (b *Bot) breed(ctx context.Context, cmd *Command) error {
	if len(cmd.Args) < 2 {
		return usage(cmd, "<id1> <id2>")
	}
	first, ok1 := parseID(cmd.Args[0])
	second, ok2 := parseID(cmd.Args[1])
	if !ok1 || !ok2 {
		cmd.Out.Reply("Invalid IDs")
		return nil
	}
	child, err := b.Game.Breed(ctx, cmd.Update.SenderID, first, second)
	if err != nil {
		return err
	}
	cmd.Out.Reply(fmt.Sprintf("🧬 Bred %s (%s)", child.Name, child.Tier))
	return nil
}

func (b *Bot) rainbowFusion(ctx context.Context, cmd *Command) error {
	if len(cmd.Args) < 1 {
		return usage(cmd, "<id1> <id2> ...")
	}
	ids := make([]uint, 0, len(cmd.Args))
	for _, a := range cmd.Args {
		id, ok := parseID(strings.Trim(a, ","))
		if !ok {
			cmd.Out.Reply("Invalid IDs")
			return nil
		}
		ids = append(ids, id)
	}
	child, err := b.Game.RainbowFuse(ctx, cmd.Update.SenderID, ids)
	if err != nil {
		return err
	}
	cmd.Out.Reply("🌈 Rainbow fusion complete!")
	b.sendCreature(ctx, cmd, child)
	return nil
}
