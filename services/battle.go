package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"isopod-exchange/models"

	"gorm.io/gorm"
)

// Fighter is one side of a battle. Defense is the fraction by which damage
// taken is reduced.
type Fighter struct {
	Owner   string
	Name    string
	HP      int
	Attack  int
	Moves   []models.Move
	Defense float64
}

func fighterFrom(owner string, e *models.InventoryEntry, defense float64) Fighter {
	return Fighter{Owner: owner, Name: e.Name, HP: e.HP, Attack: e.Attack, Moves: e.Moves, Defense: defense}
}

func (f Fighter) moveset() []models.Move {
	if len(f.Moves) == 0 {
		return []models.Move{{Name: "Tackle", Power: f.Attack}}
	}
	return f.Moves
}

// Round is one simultaneous exchange. HP values are after the round, floored at 0.
type Round struct {
	N            int
	MoveA, MoveB string
	DmgA, DmgB   int
	HPA, HPB     int
}

type BattleOutcome struct {
	Rounds         []Round
	ChallengerWins bool
	HPA, HPB       int
}

func dealt(r Rand, m models.Move, defense float64) int {
	dmg := max(1, m.Power+randInt(r, -2, 2))
	if defense > 0 {
		dmg = max(1, int(float64(dmg)*(1-defense)))
	}
	return dmg
}

// SimulateBattle plays up to maxRounds of mutual damage. Both sides down in
// the same round, or equal HP at the round cap, is settled by a coin flip.
func SimulateBattle(r Rand, a, b Fighter, maxRounds int) BattleOutcome {
	movesA, movesB := a.moveset(), b.moveset()
	hpA, hpB := a.HP, b.HP
	var out BattleOutcome

	for n := 1; hpA > 0 && hpB > 0 && n <= maxRounds; n++ {
		mA := movesA[r.IntN(len(movesA))]
		mB := movesB[r.IntN(len(movesB))]
		dA := dealt(r, mA, b.Defense)
		dB := dealt(r, mB, a.Defense)
		hpB -= dA
		hpA -= dB
		out.Rounds = append(out.Rounds, Round{
			N: n, MoveA: mA.Name, MoveB: mB.Name,
			DmgA: dA, DmgB: dB,
			HPA: max(hpA, 0), HPB: max(hpB, 0),
		})
	}

	switch {
	case hpA <= 0 && hpB <= 0, hpA == hpB:
		out.ChallengerWins = chance(r, 0.5)
	case hpB <= 0:
		out.ChallengerWins = true
	case hpA <= 0:
		out.ChallengerWins = false
	default:
		out.ChallengerWins = hpA > hpB
	}
	out.HPA, out.HPB = max(hpA, 0), max(hpB, 0)
	return out
}

// Transcript renders one round for the chat.
func (rd Round) Transcript(a, b Fighter) string {
	return fmt.Sprintf("Round %d: @%s's %s used %s for %d dmg (HP %d)\n@%s's %s used %s for %d dmg (HP %d)",
		rd.N, a.Owner, a.Name, rd.MoveA, rd.DmgA, rd.HPA,
		b.Owner, b.Name, rd.MoveB, rd.DmgB, rd.HPB)
}

// BattleReport is everything the chat needs to announce a finished battle.
type BattleReport struct {
	ChatID        int64
	Challenger    Fighter
	Target        Fighter
	Outcome       BattleOutcome
	Winner        string
	Loser         string
	Reward        int64
	SafetyNetUsed bool
}

func (s *GameService) ChallengeBattle(ctx context.Context, req ChallengeRequest) (*Challenge, error) {
	if !req.GroupChat {
		return nil, validationf("Battles only work in group chats")
	}
	out := &Challenge{}
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		challenger, target, err := s.openChallenge(tx, req, "battle")
		if err != nil {
			return err
		}
		pb := models.PendingBattle{
			ChallengerID:    challenger.ID,
			TargetID:        target.ID,
			ChallengerInvID: req.EntryID,
			ChatID:          req.ChatID,
			Status:          models.ContestPending,
			CreatedAt:       s.Now(),
		}
		if err := tx.Create(&pb).Error; err != nil {
			return err
		}
		out.ID, out.Challenger, out.Target = pb.ID, *challenger, *target
		out.TargetInventory, err = recentInventory(tx, target.ID, challengeListLimit)
		return err
	}, req.ChallengerID)
	if err != nil {
		return nil, err
	}
	log.Printf("[BATTLE] %d challenged %d (offer %d)", out.Challenger.ID, out.Target.ID, out.ID)
	return out, nil
}

func latestPendingBattle(db *gorm.DB, targetID int64) (*models.PendingBattle, error) {
	var pb models.PendingBattle
	err := db.Where("target_id = ? AND status = ?", targetID, models.ContestPending).
		Order("created_at DESC").Order("id DESC").First(&pb).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("No pending battle")
	}
	return &pb, err
}

// AcceptBattle resolves the target's latest pending battle. A creature that
// is gone or locked fails the battle; only the offer's status changes.
func (s *GameService) AcceptBattle(ctx context.Context, req AcceptRequest) (*BattleReport, error) {
	if !req.GroupChat {
		return nil, validationf("Accept battles in the original group chat")
	}
	db := s.DB.WithContext(ctx)
	offer, err := latestPendingBattle(db, req.TargetID)
	if err != nil {
		return nil, err
	}

	var (
		report  *BattleReport
		failure error
	)
	err = s.inTx(ctx, func(tx *gorm.DB) error {
		pb := models.PendingBattle{}
		if err := tx.Where("id = ? AND status = ?", offer.ID, models.ContestPending).First(&pb).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundf("No pending battle")
			}
			return err
		}
		if pb.ChatID != 0 && pb.ChatID != req.ChatID {
			return validationf("Accept the battle in the original chat")
		}
		if _, err := s.ensureUser(tx, req.TargetID, req.TargetName); err != nil {
			return err
		}
		entryID := req.EntryID
		if err := tx.Model(&pb).Updates(map[string]any{"target_inv_id": entryID, "status": models.ContestAccepted}).Error; err != nil {
			return err
		}

		a, reasonA, err := contestEntry(tx, pb.ChallengerID, pb.ChallengerInvID)
		if err != nil {
			return err
		}
		b, reasonB, err := contestEntry(tx, pb.TargetID, entryID)
		if err != nil {
			return err
		}
		if reason := firstNonEmpty(reasonA, reasonB); reason != "" {
			failure = notFoundf("%s", reason)
			return tx.Model(&pb).Update("status", models.ContestFailed).Error
		}

		report, err = s.runBattle(tx, &pb, a, b)
		if err != nil {
			return err
		}
		return tx.Model(&pb).Update("status", models.ContestCompleted).Error
	}, offer.ChallengerID, req.TargetID)
	if err != nil {
		return nil, err
	}
	if failure != nil {
		return nil, failure
	}
	return report, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func (s *GameService) runBattle(tx *gorm.DB, pb *models.PendingBattle, a, b *models.InventoryEntry) (*BattleReport, error) {
	now := s.Now()
	defA, err := s.Effect.TakeBoost(tx, pb.ChallengerID, models.KindBattleDefenseBoost, now)
	if err != nil {
		return nil, err
	}
	defB, err := s.Effect.TakeBoost(tx, pb.TargetID, models.KindBattleDefenseBoost, now)
	if err != nil {
		return nil, err
	}

	fa := fighterFrom(s.userName(tx, pb.ChallengerID, "challenger"), a, defA)
	fb := fighterFrom(s.userName(tx, pb.TargetID, "target"), b, defB)
	outcome := SimulateBattle(s.Rand, fa, fb, s.Rules.BattleMaxRounds)

	winnerID, loserID, loserEntry := pb.ChallengerID, pb.TargetID, b
	winner, loser := fa.Owner, fb.Owner
	if !outcome.ChallengerWins {
		winnerID, loserID, loserEntry = pb.TargetID, pb.ChallengerID, a
		winner, loser = fb.Owner, fa.Owner
	}

	reward := int64(randInt(s.Rand, 50, 120)) + (a.Price+b.Price)/15
	if err := s.addMoney(tx, winnerID, reward); err != nil {
		return nil, err
	}

	_, saved, err := s.Effect.Take(tx, loserID, models.KindSafetyNet, now)
	if err != nil {
		return nil, err
	}
	if !saved {
		if err := tx.Delete(&models.InventoryEntry{}, loserEntry.ID).Error; err != nil {
			return nil, err
		}
	}
	log.Printf("[BATTLE] offer %d: %d beat %d in %d rounds, reward %d, safety net %v",
		pb.ID, winnerID, loserID, len(outcome.Rounds), reward, saved)

	return &BattleReport{
		ChatID:        pb.ChatID,
		Challenger:    fa,
		Target:        fb,
		Outcome:       outcome,
		Winner:        winner,
		Loser:         loser,
		Reward:        reward,
		SafetyNetUsed: saved,
	}, nil
}

// DeclineBattle declines the target's latest pending battle in its own chat.
func (s *GameService) DeclineBattle(ctx context.Context, userID, chatID int64, group bool) error {
	if !group {
		return validationf("Decline battles in the original group chat")
	}
	return s.inTx(ctx, func(tx *gorm.DB) error {
		pb, err := latestPendingBattle(tx, userID)
		if err != nil {
			return err
		}
		if pb.ChatID != 0 && pb.ChatID != chatID {
			return validationf("Decline the battle in the original chat")
		}
		return tx.Model(pb).Update("status", models.ContestDeclined).Error
	}, userID)
}
