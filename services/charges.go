package services

import (
	"context"
	"fmt"
	"time"

	"isopod-exchange/models"

	"gorm.io/gorm"
)

// SyncCharges applies regeneration to a charge balance. Charges are clamped to
// [0, OverchargeMax]; whole cooldown periods elapsed since anchor each add one
// charge up to MaxCharges and advance the anchor. A future anchor freezes
// regeneration, and an overcharged balance is left untouched.
func SyncCharges(charges int, anchor, now time.Time, r Rules) (int, time.Time) {
	charges = min(max(charges, 0), r.OverchargeMax)
	if anchor.IsZero() {
		anchor = now
	}
	if anchor.After(now) || r.ChargeCooldown <= 0 {
		return charges, anchor
	}

	periods := int(now.Sub(anchor) / r.ChargeCooldown)
	if periods <= 0 {
		return charges, anchor
	}
	if charges < r.MaxCharges {
		charges = min(r.MaxCharges, charges+periods)
	}
	anchor = anchor.Add(time.Duration(periods) * r.ChargeCooldown)
	return charges, anchor
}

// ChargeStatusText renders the player-facing charge line.
func ChargeStatusText(charges int, anchor, now time.Time, r Rules) string {
	switch {
	case charges > r.MaxCharges:
		return fmt.Sprintf("Charges: %d/%d (overcharged)", charges, r.MaxCharges)
	case charges == r.MaxCharges:
		return fmt.Sprintf("Charges: %d/%d (full)", charges, r.MaxCharges)
	}
	next := r.ChargeCooldown
	if anchor.After(now) {
		next = anchor.Sub(now) + r.ChargeCooldown
	} else if elapsed := now.Sub(anchor); elapsed < r.ChargeCooldown {
		next = r.ChargeCooldown - elapsed
	}
	return fmt.Sprintf("Charges: %d/%d | Next in %s", charges, r.MaxCharges, formatCountdown(next))
}

// formatCountdown renders a duration as "Xm YYs", rounding partial seconds up.
func formatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%dm %02ds", secs/60, secs%60)
}

// syncUserCharges brings the user's stored balance up to date and persists it.
func (s *GameService) syncUserCharges(tx *gorm.DB, user *models.User, now time.Time) error {
	charges, anchor := SyncCharges(user.Charges, user.ChargeAnchor, now, s.Rules)
	if charges == user.Charges && anchor.Equal(user.ChargeAnchor) {
		return nil
	}
	return s.storeCharges(tx, user, charges, anchor)
}

// storeCharges persists a new balance (clamped) and anchor.
func (s *GameService) storeCharges(tx *gorm.DB, user *models.User, charges int, anchor time.Time) error {
	user.Charges = min(max(charges, 0), s.Rules.OverchargeMax)
	user.ChargeAnchor = anchor
	return tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]any{
		"charges":       user.Charges,
		"charge_anchor": user.ChargeAnchor,
	}).Error
}

// ChargeStatus syncs and reports the caller's charges.
func (s *GameService) ChargeStatus(ctx context.Context, userID int64, username string) (string, error) {
	now := s.Now()
	var text string
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		user, err := s.ensureUser(tx, userID, username)
		if err != nil {
			return err
		}
		if err := s.syncUserCharges(tx, user, now); err != nil {
			return err
		}
		text = ChargeStatusText(user.Charges, user.ChargeAnchor, now, s.Rules)
		return nil
	}, userID)
	return text, err
}
