package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"isopod-exchange/models"
	"isopod-exchange/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TierProfile holds the per-tier generation ranges for creatures.
type TierProfile struct {
	Weight       float64
	PriceMin     int
	PriceMax     int
	HPMin, HPMax int
	AtkMin       int
	AtkMax       int
	MoveCount    int
}

var DefaultCreatureTiers = map[models.Tier]TierProfile{
	models.TierCommon:    {Weight: 92, PriceMin: 5, PriceMax: 30, HPMin: 20, HPMax: 35, AtkMin: 5, AtkMax: 10, MoveCount: 2},
	models.TierRare:      {Weight: 6, PriceMin: 40, PriceMax: 90, HPMin: 30, HPMax: 50, AtkMin: 8, AtkMax: 14, MoveCount: 3},
	models.TierEpic:      {Weight: 1.5, PriceMin: 120, PriceMax: 240, HPMin: 45, HPMax: 70, AtkMin: 12, AtkMax: 20, MoveCount: 3},
	models.TierLegendary: {Weight: 0.5, PriceMin: 300, PriceMax: 700, HPMin: 70, HPMax: 100, AtkMin: 18, AtkMax: 28, MoveCount: 4},
}

// MovePool is the fixed set of move names creatures draw from.
var MovePool = []string{
	"Shell Bash", "Dust Kick", "Claw Snap", "Roll Tackle",
	"Antenna Jab", "Mud Splash", "Spore Puff", "Stink Spray",
}

const (
	marketViewLimit = 10
	catalogBatch    = 100
)

// LoadWordList reads one descriptor word per line. Blank lines, comments and
// duplicates are skipped.
func LoadWordList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	seen := map[string]bool{}
	var words []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		w := utils.NormalizeWord(line)
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		words = append(words, w)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("word list %s is empty", path)
	}
	return words, nil
}

// marketStale is the staleness check shared by every read path.
func marketStale(last *time.Time, now time.Time, refresh time.Duration) bool {
	return last == nil || now.Sub(*last) > refresh
}

func lastMarketRegen(tx *gorm.DB) (*time.Time, error) {
	return globalTime(tx, models.GlobalKeyLastMarketRegen)
}

func globalTime(tx *gorm.DB, key string) (*time.Time, error) {
	var st models.GlobalState
	err := tx.First(&st, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st.Value, nil
}

func putGlobalTime(tx *gorm.DB, key string, at time.Time) error {
	st := models.GlobalState{Key: key, Value: at}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&st).Error
}

// claimAnnouncement reports whether the refresh at `at` has not been announced
// yet, and marks it announced. Times compare at millisecond precision so a
// database round trip does not re-announce.
func claimAnnouncement(tx *gorm.DB, key string, at time.Time) (bool, error) {
	last, err := globalTime(tx, key)
	if err != nil {
		return false, err
	}
	if last != nil && !at.Truncate(time.Millisecond).After(last.Truncate(time.Millisecond)) {
		return false, nil
	}
	return true, putGlobalTime(tx, key, at)
}

func (s *GameService) marketNeedsRegen(tx *gorm.DB, now time.Time) (bool, error) {
	last, err := lastMarketRegen(tx)
	if err != nil {
		return false, err
	}
	return marketStale(last, now, s.Rules.MarketRefresh), nil
}

// generateCreature draws one catalog row and its stats.
func generateCreature(r Rand, color, word string) models.CatalogEntry {
	weights := make([]float64, len(models.Tiers))
	for i, t := range models.Tiers {
		weights[i] = DefaultCreatureTiers[t].Weight
	}
	tier := models.Tiers[weightedIndex(r, weights)]
	p := DefaultCreatureTiers[tier]

	hp := randInt(r, p.HPMin, p.HPMax)
	atk := randInt(r, p.AtkMin, p.AtkMax)
	moves := make(models.Moveset, 0, p.MoveCount)
	for _, i := range sampleIndexes(r, len(MovePool), p.MoveCount) {
		moves = append(moves, models.Move{
			Name:  MovePool[i],
			Power: max(1, atk+randInt(r, -2, 4)),
		})
	}

	return models.CatalogEntry{
		Color:    color,
		Word:     word,
		FullName: utils.CreatureName(string(tier), color, word, "isopod"),
		Tier:     tier,
		Price:    int64(randInt(r, p.PriceMin, p.PriceMax)),
		Stats:    &models.CreatureStats{HP: hp, Attack: atk, Moves: moves},
	}
}

// generateMarketplace replaces the whole catalog, one row per color × word.
// Callers hold marketMu.
func (s *GameService) generateMarketplace(tx *gorm.DB, now time.Time) (int, error) {
	all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
	if err := all.Delete(&models.CreatureStats{}).Error; err != nil {
		return 0, fmt.Errorf("clear stats: %w", err)
	}
	if err := all.Delete(&models.CatalogEntry{}).Error; err != nil {
		return 0, fmt.Errorf("clear catalog: %w", err)
	}

	entries := make([]models.CatalogEntry, 0, len(s.Colors)*len(s.Words))
	for _, color := range s.Colors {
		for _, word := range s.Words {
			entries = append(entries, generateCreature(s.Rand, color, word))
		}
	}
	if len(entries) > 0 {
		if err := tx.CreateInBatches(&entries, catalogBatch).Error; err != nil {
			return 0, fmt.Errorf("insert catalog: %w", err)
		}
	}

	if err := putGlobalTime(tx, models.GlobalKeyLastMarketRegen, now); err != nil {
		return 0, err
	}
	log.Printf("[MARKET] regenerated %d catalog entries", len(entries))
	return len(entries), nil
}

// sabotageMarket regenerates then cuts every price by 20%, never below 1.
func (s *GameService) sabotageMarket(tx *gorm.DB, now time.Time) error {
	if _, err := s.generateMarketplace(tx, now); err != nil {
		return err
	}
	return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).
		Model(&models.CatalogEntry{}).
		Update("price", gorm.Expr("CASE WHEN price * 4 / 5 < 1 THEN 1 ELSE price * 4 / 5 END")).Error
}

// EnsureMarketFresh regenerates the catalog when stale. It reports true once
// per regeneration, including one done earlier by the scheduler, so the caller
// can announce it. Concurrent callers serialize on marketMu.
func (s *GameService) EnsureMarketFresh(ctx context.Context) (bool, error) {
	return s.refreshMarket(ctx, true)
}

// prewarmMarket regenerates a stale catalog without claiming the announcement.
func (s *GameService) prewarmMarket(ctx context.Context) (bool, error) {
	return s.refreshMarket(ctx, false)
}

func (s *GameService) refreshMarket(ctx context.Context, announce bool) (bool, error) {
	s.marketMu.Lock()
	defer s.marketMu.Unlock()

	now := s.Now()
	result := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stale, err := s.marketNeedsRegen(tx, now)
		if err != nil {
			return err
		}
		if stale {
			if _, err := s.generateMarketplace(tx, now); err != nil {
				return err
			}
		}
		if !announce {
			result = stale
			return nil
		}
		last, err := lastMarketRegen(tx)
		if err != nil || last == nil {
			return err
		}
		result, err = claimAnnouncement(tx, models.GlobalKeyMarketAnnounced, *last)
		return err
	})
	return result, err
}

// MarketView is the priced catalog summary shown by the market command.
type MarketView struct {
	High        []models.CatalogEntry
	Low         []models.CatalogEntry
	NextRefresh time.Duration
	Regenerated bool
}

func (s *GameService) Market(ctx context.Context) (*MarketView, error) {
	regenerated, err := s.EnsureMarketFresh(ctx)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	view := &MarketView{Regenerated: regenerated}
	db := s.DB.WithContext(ctx)
	if err := db.Order("price DESC").Order("id").Limit(marketViewLimit).Find(&view.High).Error; err != nil {
		return nil, err
	}
	if err := db.Order("price ASC").Order("id").Limit(marketViewLimit).Find(&view.Low).Error; err != nil {
		return nil, err
	}
	last, err := lastMarketRegen(db)
	if err != nil {
		return nil, err
	}
	if last != nil {
		view.NextRefresh = max(0, last.Add(s.Rules.MarketRefresh).Sub(now))
	}
	return view, nil
}
