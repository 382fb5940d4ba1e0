// handlers/format.go
package handlers

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"isopod-exchange/models"
	"isopod-exchange/utils"
)

const helpText = `📜 Commands

/roll | /r - Roll using 1 charge
/roll all - Roll all charges
/charges - View charge status
/instantroll | /instaroll - Instant roll (costs iso$)
/inventory - List isopods (IDs for sell)
/items | /item - List items and effects
/item delete <item_id> [qty]
/item sell <item_id> [qty]
/buy, /use, /item delete/sell accept short item IDs from /items
/shop - Shop rotation
/buy <item_id> - Buy shop item
/use <item_id> [@user|isopod_id] - Use item
/sell <ID> | /sell all [rarity]
/sellall | /sall - Shortcut for /sell all
/lock <ID> | /unlock <ID>
/breed <id1> <id2>
/rainbowfusion <ids...>
/fishing shop | /fishing buy <rod_id> | /fishing start <rod_id> <isopod_id> | /fishing inventory
/auction list | /auction sell <isopod_id> <price> | /auction buy <auction_id> | /auction cancel <id|all>
/market - Top high/low
/top - Richest
/legendary - Legendaries
/battle @user <isopod_id>
/accept <isopod_id> | /decline
/race @user <isopod_id> <bet>
/raceaccept <isopod_id> | /racedecline
/broadcast <password> <message>`

// countdown renders "Xm YYs", rounding partial seconds up.
func countdown(d time.Duration) string {
	secs := int64((d + time.Second - 1) / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%dm %02ds", secs/60, secs%60)
}

func lockMark(locked bool) string {
	if locked {
		return " 🔒"
	}
	return ""
}

// entryLine is the short creature line used in challenge offers.
func entryLine(e models.InventoryEntry) string {
	return fmt.Sprintf("%d: %s (%s) Lv%d ❤️ %d ⚔️ %d%s",
		e.ID, e.Name, e.Tier, e.Level, e.HP, e.Attack, lockMark(e.Locked))
}

func inventoryList(entries []models.InventoryEntry) string {
	if len(entries) == 0 {
		return "(empty)"
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = entryLine(e)
	}
	return strings.Join(lines, "\n")
}

func creatureCaption(e *models.InventoryEntry) string {
	return fmt.Sprintf("%s\n💰 %d iso$\n❤️ %d | ⚔️ %d", e.Name, e.Price, e.HP, e.Attack)
}

func percent(f float64) int {
	return int(f*100 + 0.5)
}

// sendImage sends a rendered photo with caption, or just the caption when
// rendering is disabled or fails.
func (b *Bot) sendImage(ctx context.Context, cmd *Command, caption string, render func(context.Context) (*utils.RenderedImage, error)) {
	if b.Renderer == nil {
		cmd.Out.Reply(caption)
		return
	}
	img, err := render(ctx)
	if err != nil {
		log.Printf("[RENDER] falling back to text: %v", err)
		cmd.Out.Reply(caption)
		return
	}
	cmd.Out.SendPhoto(cmd.Update.ChatID, img.Path, img.URL, caption)
}

func (b *Bot) sendCreature(ctx context.Context, cmd *Command, e *models.InventoryEntry) {
	caption := creatureCaption(e)
	b.sendImage(ctx, cmd, caption, func(ctx context.Context) (*utils.RenderedImage, error) {
		if e.IsRainbow() {
			return b.Renderer.RainbowImage(ctx)
		}
		return b.Renderer.RenderCreature(ctx, e.Color)
	})
}
