// handlers/contests.go
package handlers

import (
	"context"
	"fmt"

	"isopod-exchange/services"
)

func (b *Bot) battle(ctx context.Context, cmd *Command) error {
	if !cmd.Update.Group() {
		cmd.Out.Reply("Battles only work in group chats")
		return nil
	}
	if len(cmd.Args) < 2 {
		return usage(cmd, "@user <isopod_id>")
	}
	entryID, ok := parseID(cmd.Args[1])
	if !ok {
		cmd.Out.Reply("Invalid isopod ID")
		return nil
	}
	ch, err := b.Game.ChallengeBattle(ctx, b.challengeRequest(cmd, entryID, 0))
	if err != nil {
		return err
	}
	cmd.Out.Reply("⚔️ Challenge sent to @" + ch.Target.Username)
	cmd.Out.Send(cmd.Update.ChatID, fmt.Sprintf(
		"⚔️ @%s, you were challenged by @%s\nYour inventory:\n%s\nUse /accept <isopod_id> or /decline",
		ch.Target.Username, senderName(cmd.Update), inventoryList(ch.TargetInventory)))
	return nil
}

func (b *Bot) race(ctx context.Context, cmd *Command) error {
	if !cmd.Update.Group() {
		cmd.Out.Reply("Races only work in group chats")
		return nil
	}
	if len(cmd.Args) < 3 {
		return usage(cmd, "@user <isopod_id> <bet>")
	}
	entryID, ok := parseID(cmd.Args[1])
	bet, okBet := parseAmount(cmd.Args[2])
	if !ok || !okBet {
		cmd.Out.Reply("Invalid isopod ID or bet")
		return nil
	}
	ch, err := b.Game.ChallengeRace(ctx, b.challengeRequest(cmd, entryID, bet))
	if err != nil {
		return err
	}
	cmd.Out.Reply("🏁 Race challenge sent to @" + ch.Target.Username)
	cmd.Out.Send(cmd.Update.ChatID, fmt.Sprintf(
		"🏁 @%s, you were challenged by @%s for %d iso$\nYour inventory:\n%s\nUse /raceaccept <isopod_id> or /racedecline",
		ch.Target.Username, senderName(cmd.Update), ch.Bet, inventoryList(ch.TargetInventory)))
	return nil
}

func (b *Bot) challengeRequest(cmd *Command, entryID uint, bet int64) services.ChallengeRequest {
	return services.ChallengeRequest{
		ChallengerID:   cmd.Update.SenderID,
		ChallengerName: cmd.Update.SenderName,
		TargetUsername: mention(cmd.Args[0]),
		EntryID:        entryID,
		Bet:            bet,
		ChatID:         cmd.Update.ChatID,
		GroupChat:      cmd.Update.Group(),
	}
}

func (b *Bot) acceptRequest(cmd *Command) (services.AcceptRequest, bool) {
	req := services.AcceptRequest{
		TargetID:   cmd.Update.SenderID,
		TargetName: cmd.Update.SenderName,
		ChatID:     cmd.Update.ChatID,
		GroupChat:  cmd.Update.Group(),
	}
	if len(cmd.Args) < 1 {
		usage(cmd, "<isopod_id>")
		return req, false
	}
	id, ok := parseID(cmd.Args[0])
	if !ok {
		cmd.Out.Reply("Invalid isopod ID")
		return req, false
	}
	req.EntryID = id
	return req, true
}

func (b *Bot) accept(ctx context.Context, cmd *Command) error {
	if !cmd.Update.Group() {
		cmd.Out.Reply("Accept battles in the original group chat")
		return nil
	}
	req, ok := b.acceptRequest(cmd)
	if !ok {
		return nil
	}
	rep, err := b.Game.AcceptBattle(ctx, req)
	if err != nil {
		return err
	}
	for _, rd := range rep.Outcome.Rounds {
		cmd.Out.Send(rep.ChatID, rd.Transcript(rep.Challenger, rep.Target))
	}
	lost := "Your isopod was lost in battle."
	if rep.SafetyNetUsed {
		lost = "Safety Net saved your isopod!"
	}
	cmd.Out.Send(rep.ChatID, fmt.Sprintf("🏁 Winner: @%s! +%d iso$\nLoser: @%s. %s", rep.Winner, rep.Reward, rep.Loser, lost))
	return nil
}

func (b *Bot) decline(ctx context.Context, cmd *Command) error {
	if err := b.Game.DeclineBattle(ctx, cmd.Update.SenderID, cmd.Update.ChatID, cmd.Update.Group()); err != nil {
		return err
	}
	cmd.Out.Reply("Declined")
	cmd.Out.Send(cmd.Update.ChatID, fmt.Sprintf("@%s declined the battle", senderName(cmd.Update)))
	return nil
}

func (b *Bot) raceAccept(ctx context.Context, cmd *Command) error {
	if !cmd.Update.Group() {
		cmd.Out.Reply("Accept races in the original group chat")
		return nil
	}
	req, ok := b.acceptRequest(cmd)
	if !ok {
		return nil
	}
	rep, err := b.Game.AcceptRace(ctx, req)
	if err != nil {
		return err
	}
	cmd.Out.Send(rep.ChatID, fmt.Sprintf("🏁 Race result: @%s wins %d iso$!\nSpeeds: @%s %.2f | @%s %.2f\nLoser: @%s",
		rep.Winner, rep.Bet, rep.Challenger, rep.Outcome.SpeedA, rep.Target, rep.Outcome.SpeedB, rep.Loser))
	return nil
}

func (b *Bot) raceDecline(ctx context.Context, cmd *Command) error {
	if err := b.Game.DeclineRace(ctx, cmd.Update.SenderID, cmd.Update.ChatID, cmd.Update.Group()); err != nil {
		return err
	}
	cmd.Out.Reply("Declined")
	cmd.Out.Send(cmd.Update.ChatID, fmt.Sprintf("@%s declined the race", senderName(cmd.Update)))
	return nil
}
