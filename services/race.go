package services

import (
	"context"
	"errors"
	"log"

	"isopod-exchange/models"

	"gorm.io/gorm"
)

type RaceOutcome struct {
	SpeedA, SpeedB float64
	ChallengerWins bool
}

// ResolveRace draws both speeds as uniform(1, 10) scaled by (1 + boost).
// An exact tie is a coin flip.
func ResolveRace(r Rand, boostA, boostB float64) RaceOutcome {
	out := RaceOutcome{
		SpeedA: uniform(r, 1, 10) * (1 + boostA),
		SpeedB: uniform(r, 1, 10) * (1 + boostB),
	}
	if out.SpeedA == out.SpeedB {
		out.ChallengerWins = chance(r, 0.5)
	} else {
		out.ChallengerWins = out.SpeedA > out.SpeedB
	}
	return out
}

type RaceReport struct {
	ChatID     int64
	Challenger string
	Target     string
	Outcome    RaceOutcome
	Winner     string
	Loser      string
	Bet        int64
}

func (s *GameService) ChallengeRace(ctx context.Context, req ChallengeRequest) (*Challenge, error) {
	if !req.GroupChat {
		return nil, validationf("Races only work in group chats")
	}
	if req.Bet <= 0 {
		return nil, validationf("Bet must be positive")
	}
	out := &Challenge{Bet: req.Bet}
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		challenger, target, err := s.openChallenge(tx, req, "race")
		if err != nil {
			return err
		}
		if challenger.Money < req.Bet {
			return validationf("💸 Need %d iso$ to race", req.Bet)
		}
		pr := models.PendingRace{
			ChallengerID:    challenger.ID,
			TargetID:        target.ID,
			ChallengerInvID: req.EntryID,
			Bet:             req.Bet,
			ChatID:          req.ChatID,
			Status:          models.ContestPending,
			CreatedAt:       s.Now(),
		}
		if err := tx.Create(&pr).Error; err != nil {
			return err
		}
		out.ID, out.Challenger, out.Target = pr.ID, *challenger, *target
		out.TargetInventory, err = recentInventory(tx, target.ID, challengeListLimit)
		return err
	}, req.ChallengerID)
	if err != nil {
		return nil, err
	}
	log.Printf("[RACE] %d challenged %d for %d (offer %d)", out.Challenger.ID, out.Target.ID, out.Bet, out.ID)
	return out, nil
}

func latestPendingRace(db *gorm.DB, targetID int64) (*models.PendingRace, error) {
	var pr models.PendingRace
	err := db.Where("target_id = ? AND status = ?", targetID, models.ContestPending).
		Order("created_at DESC").Order("id DESC").First(&pr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("No pending race")
	}
	return &pr, err
}

// AcceptRace resolves the target's latest pending race. The target must
// cover the bet at acceptance or the race fails.
func (s *GameService) AcceptRace(ctx context.Context, req AcceptRequest) (*RaceReport, error) {
	if !req.GroupChat {
		return nil, validationf("Accept races in the original group chat")
	}
	offer, err := latestPendingRace(s.DB.WithContext(ctx), req.TargetID)
	if err != nil {
		return nil, err
	}

	var (
		report  *RaceReport
		failure error
	)
	err = s.inTx(ctx, func(tx *gorm.DB) error {
		pr := models.PendingRace{}
		if err := tx.Where("id = ? AND status = ?", offer.ID, models.ContestPending).First(&pr).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundf("No pending race")
			}
			return err
		}
		if pr.ChatID != 0 && pr.ChatID != req.ChatID {
			return validationf("Accept the race in the original chat")
		}
		target, err := s.ensureUser(tx, req.TargetID, req.TargetName)
		if err != nil {
			return err
		}
		fail := func(e error) error {
			failure = e
			return tx.Model(&pr).Update("status", models.ContestFailed).Error
		}

		if target.Money < pr.Bet {
			return fail(validationf("💸 Need %d iso$ to accept", pr.Bet))
		}
		if !s.Rules.AllowNegativeBalance {
			challenger, err := loadUser(tx, pr.ChallengerID)
			if err != nil {
				return err
			}
			if challenger.Money < pr.Bet {
				return fail(validationf("💸 @%s can no longer cover the bet", challenger.Username))
			}
		}
		if err := tx.Model(&pr).Updates(map[string]any{"target_inv_id": req.EntryID, "status": models.ContestAccepted}).Error; err != nil {
			return err
		}

		_, reasonA, err := contestEntry(tx, pr.ChallengerID, pr.ChallengerInvID)
		if err != nil {
			return err
		}
		_, reasonB, err := contestEntry(tx, pr.TargetID, req.EntryID)
		if err != nil {
			return err
		}
		if reason := firstNonEmpty(reasonA, reasonB); reason != "" {
			return fail(notFoundf("%s", reason))
		}

		report, err = s.runRace(tx, &pr)
		if err != nil {
			return err
		}
		return tx.Model(&pr).Update("status", models.ContestCompleted).Error
	}, offer.ChallengerID, req.TargetID)
	if err != nil {
		return nil, err
	}
	if failure != nil {
		return nil, failure
	}
	return report, nil
}

func (s *GameService) runRace(tx *gorm.DB, pr *models.PendingRace) (*RaceReport, error) {
	now := s.Now()
	boostA, err := s.Effect.TakeBoost(tx, pr.ChallengerID, models.KindRaceSpeedBoost, now)
	if err != nil {
		return nil, err
	}
	boostB, err := s.Effect.TakeBoost(tx, pr.TargetID, models.KindRaceSpeedBoost, now)
	if err != nil {
		return nil, err
	}

	outcome := ResolveRace(s.Rand, boostA, boostB)
	winnerID, loserID := pr.ChallengerID, pr.TargetID
	if !outcome.ChallengerWins {
		winnerID, loserID = loserID, winnerID
	}
	if err := s.addMoney(tx, winnerID, pr.Bet); err != nil {
		return nil, err
	}
	if err := s.addMoney(tx, loserID, -pr.Bet); err != nil {
		return nil, err
	}

	report := &RaceReport{
		ChatID:     pr.ChatID,
		Challenger: s.userName(tx, pr.ChallengerID, "challenger"),
		Target:     s.userName(tx, pr.TargetID, "target"),
		Outcome:    outcome,
		Bet:        pr.Bet,
	}
	report.Winner, report.Loser = report.Challenger, report.Target
	if !outcome.ChallengerWins {
		report.Winner, report.Loser = report.Target, report.Challenger
	}
	log.Printf("[RACE] offer %d: %d beat %d (%.2f vs %.2f), bet %d", pr.ID, winnerID, loserID, outcome.SpeedA, outcome.SpeedB, pr.Bet)
	return report, nil
}

func (s *GameService) DeclineRace(ctx context.Context, userID, chatID int64, group bool) error {
	if !group {
		return validationf("Decline races in the original group chat")
	}
	return s.inTx(ctx, func(tx *gorm.DB) error {
		pr, err := latestPendingRace(tx, userID)
		if err != nil {
			return err
		}
		if pr.ChatID != 0 && pr.ChatID != chatID {
			return validationf("Decline the race in the original chat")
		}
		return tx.Model(pr).Update("status", models.ContestDeclined).Error
	}, userID)
}
