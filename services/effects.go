package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"reflect"
	"time"

	"isopod-exchange/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EffectValue is the typed payload of a user effect. Each EffectKind has
// exactly one payload type.
type EffectValue interface {
	effectValue()
}

// Marker is a presence-only effect (guarantees, safety net).
type Marker struct{}

// Multiplier scales a probability (item drop boost).
type Multiplier struct {
	Factor float64 `json:"factor"`
}

// Boost is a fraction in [0, 1) applied to battle damage taken or race speed.
type Boost struct {
	Fraction float64 `json:"fraction"`
}

// Discount is a shop price cut with a remaining use count.
type Discount struct {
	Percent int `json:"percent"`
	Uses    int `json:"uses"`
}

func (Marker) effectValue()     {}
func (Multiplier) effectValue() {}
func (Boost) effectValue()      {}
func (Discount) effectValue()   {}

func payloadFor(kind models.EffectKind) (EffectValue, error) {
	switch kind {
	case models.KindGuaranteeRare, models.KindGuaranteeLegendary, models.KindSafetyNet:
		return Marker{}, nil
	case models.KindItemDropBoost:
		return Multiplier{}, nil
	case models.KindBattleDefenseBoost, models.KindRaceSpeedBoost:
		return Boost{}, nil
	case models.KindShopDiscount:
		return Discount{}, nil
	}
	return nil, fmt.Errorf("unknown effect kind %q", kind)
}

var errBadPayload = errors.New("unreadable effect payload")

func encodeEffect(kind models.EffectKind, v EffectValue) (datatypes.JSON, error) {
	want, err := payloadFor(kind)
	if err != nil {
		return nil, err
	}
	if reflect.TypeOf(want) != reflect.TypeOf(v) {
		return nil, fmt.Errorf("effect %s cannot hold %T", kind, v)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func decodeEffect(kind models.EffectKind, raw datatypes.JSON) (EffectValue, error) {
	switch kind {
	case models.KindGuaranteeRare, models.KindGuaranteeLegendary, models.KindSafetyNet:
		return Marker{}, nil
	case models.KindItemDropBoost:
		var m Multiplier
		err := json.Unmarshal(raw, &m)
		return m, err
	case models.KindBattleDefenseBoost, models.KindRaceSpeedBoost:
		var b Boost
		err := json.Unmarshal(raw, &b)
		return b, err
	case models.KindShopDiscount:
		var d Discount
		err := json.Unmarshal(raw, &d)
		return d, err
	}
	return nil, fmt.Errorf("unknown effect kind %q", kind)
}

// EffectLedger reads and writes per-user effects inside the caller's
// transaction. Expired rows are removed on read.
type EffectLedger struct {
	DefaultBoost float64
}

// Get returns the live effect of kind, deleting it first if it has expired.
// An effect is still live at the exact instant it expires.
func (l EffectLedger) Get(tx *gorm.DB, userID int64, kind models.EffectKind, now time.Time) (EffectValue, bool, error) {
	var row models.UserEffect
	err := tx.Where("user_id = ? AND kind = ?", userID, kind).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if row.ExpiresAt != nil && now.After(*row.ExpiresAt) {
		if err := l.Consume(tx, userID, kind); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	v, err := decodeEffect(kind, row.Value)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s for user %d: %v", errBadPayload, kind, userID, err)
	}
	return v, true, nil
}

// Set upserts an effect. A zero ttl means it lasts until consumed.
func (l EffectLedger) Set(tx *gorm.DB, userID int64, kind models.EffectKind, v EffectValue, ttl time.Duration, now time.Time) error {
	raw, err := encodeEffect(kind, v)
	if err != nil {
		return err
	}
	row := models.UserEffect{UserID: userID, Kind: kind, Value: raw}
	if ttl > 0 {
		exp := now.Add(ttl)
		row.ExpiresAt = &exp
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "kind"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at"}),
	}).Create(&row).Error
}

func (l EffectLedger) Consume(tx *gorm.DB, userID int64, kind models.EffectKind) error {
	return tx.Where("user_id = ? AND kind = ?", userID, kind).Delete(&models.UserEffect{}).Error
}

// Take returns the live effect and consumes it.
func (l EffectLedger) Take(tx *gorm.DB, userID int64, kind models.EffectKind, now time.Time) (EffectValue, bool, error) {
	v, ok, err := l.Get(tx, userID, kind, now)
	if err != nil || !ok {
		return v, ok, err
	}
	return v, true, l.Consume(tx, userID, kind)
}

// TakeBoost consumes a boost effect and returns its fraction, or 0 when absent.
// An unreadable payload counts as the default boost.
func (l EffectLedger) TakeBoost(tx *gorm.DB, userID int64, kind models.EffectKind, now time.Time) (float64, error) {
	v, ok, err := l.Take(tx, userID, kind, now)
	if errors.Is(err, errBadPayload) {
		log.Printf("[EFFECTS] %v, using default boost", err)
		return l.DefaultBoost, l.Consume(tx, userID, kind)
	}
	if err != nil || !ok {
		return 0, err
	}
	b, _ := v.(Boost)
	return min(max(b.Fraction, 0), 0.95), nil
}

// PurgeExpired deletes the user's expired effects and returns their kinds.
func (l EffectLedger) PurgeExpired(tx *gorm.DB, userID int64, now time.Time) ([]models.EffectKind, error) {
	var rows []models.UserEffect
	if err := tx.Where("user_id = ? AND expires_at IS NOT NULL AND expires_at <= ?", userID, now).
		Order("kind").Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	kinds := make([]models.EffectKind, 0, len(rows))
	for _, r := range rows {
		kinds = append(kinds, r.Kind)
	}
	err := tx.Where("user_id = ? AND kind IN ?", userID, kinds).Delete(&models.UserEffect{}).Error
	return kinds, err
}

// PurgeAllExpired sweeps every user's expired effects.
func (l EffectLedger) PurgeAllExpired(tx *gorm.DB, now time.Time) (int64, error) {
	res := tx.Where("expires_at IS NOT NULL AND expires_at <= ?", now).Delete(&models.UserEffect{})
	return res.RowsAffected, res.Error
}

// ExpiredEffects purges the caller's expired effects so the handler can send
// a silent notice.
func (s *GameService) ExpiredEffects(ctx context.Context, userID int64) ([]models.EffectKind, error) {
	now := s.Now()
	var kinds []models.EffectKind
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		var err error
		kinds, err = s.Effect.PurgeExpired(tx, userID, now)
		return err
	}, userID)
	return kinds, err
}

// EffectLabel is the display name of an effect kind.
func EffectLabel(kind models.EffectKind) string {
	switch kind {
	case models.KindGuaranteeRare:
		return "Lucky Token"
	case models.KindGuaranteeLegendary:
		return "Golden Ticket"
	case models.KindItemDropBoost:
		return "Iso Magnet"
	case models.KindShopDiscount:
		return "Sale Voucher"
	case models.KindSafetyNet:
		return "Safety Net"
	case models.KindBattleDefenseBoost:
		return "Spy Drone"
	case models.KindRaceSpeedBoost:
		return "Race Fuel"
	}
	return string(kind)
}
