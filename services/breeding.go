package services

import (
	"context"
	"fmt"
	"log"
	"slices"
	"strings"

	"isopod-exchange/models"

	"gorm.io/gorm"
)

const (
	maxMoves          = 4
	RainbowFusionName = "Legendary Rainbow Isopod"
)

// Breeding bonuses on top of the input averages.
var (
	breedBonus   = statBonus{HP: 5, Attack: 2}
	rainbowBonus = statBonus{Price: 500, HP: 20, Attack: 5}
)

type statBonus struct {
	Price  int64
	HP     int
	Attack int
}

// mergeMoves unions movesets keeping the first move of each name, falling
// back to Tackle and sampling down to maxMoves.
func mergeMoves(r Rand, attack int, sets ...models.Moveset) models.Moveset {
	seen := map[string]bool{}
	var unique models.Moveset
	for _, set := range sets {
		for _, m := range set {
			if m.Name == "" || seen[m.Name] {
				continue
			}
			seen[m.Name] = true
			unique = append(unique, m)
		}
	}
	if len(unique) == 0 {
		return models.Moveset{{Name: "Tackle", Power: attack}}
	}
	if len(unique) <= maxMoves {
		return unique
	}
	picked := make(models.Moveset, 0, maxMoves)
	for _, i := range sampleIndexes(r, len(unique), maxMoves) {
		picked = append(picked, unique[i])
	}
	return picked
}

// combine averages price, hp and attack across parents and adds the bonus.
func combine(r Rand, parents []models.InventoryEntry, bonus statBonus) (price int64, hp, attack int, moves models.Moveset) {
	sets := make([]models.Moveset, 0, len(parents))
	for _, p := range parents {
		price += p.Price
		hp += p.HP
		attack += p.Attack
		sets = append(sets, p.Moves)
	}
	n := len(parents)
	price = price/int64(n) + bonus.Price
	hp = hp/n + bonus.HP
	attack = attack/n + bonus.Attack
	return price, hp, attack, mergeMoves(r, attack, sets...)
}

// BreedPair builds the offspring of two same-tier, non-legendary parents.
func BreedPair(r Rand, a, b models.InventoryEntry) (models.InventoryEntry, error) {
	if a.Tier != b.Tier {
		return models.InventoryEntry{}, validationf("Breeding requires two of the same tier (common/rare/epic)")
	}
	next, ok := a.Tier.Next()
	if !ok {
		return models.InventoryEntry{}, validationf("Breeding requires two of the same tier (common/rare/epic)")
	}
	price, hp, atk, moves := combine(r, []models.InventoryEntry{a, b}, breedBonus)
	color := a.Color
	if color == "" {
		color = b.Color
	}
	return models.InventoryEntry{
		Name:   fmt.Sprintf("Fusion %s + %s", a.Name, b.Name),
		Tier:   next,
		Price:  price,
		Color:  color,
		HP:     hp,
		Attack: atk,
		Moves:  moves,
		Level:  1,
	}, nil
}

// FuseRainbow builds the rainbow creature from one legendary of each color.
func FuseRainbow(r Rand, parents []models.InventoryEntry, colors []string) (models.InventoryEntry, error) {
	if len(parents) != len(colors) {
		return models.InventoryEntry{}, validationf("Need %d legendary isopods (one of each color)", len(colors))
	}
	have := map[string]bool{}
	for _, p := range parents {
		if p.Tier != models.TierLegendary {
			return models.InventoryEntry{}, validationf("All entries must be legendary")
		}
		have[strings.ToLower(p.Color)] = true
	}
	for _, c := range colors {
		if !have[strings.ToLower(c)] {
			return models.InventoryEntry{}, validationf("Need one of each legendary color")
		}
	}
	if len(have) != len(colors) {
		return models.InventoryEntry{}, validationf("Need one of each legendary color")
	}
	price, hp, atk, moves := combine(r, parents, rainbowBonus)
	return models.InventoryEntry{
		Name:   RainbowFusionName,
		Tier:   models.TierLegendary,
		Price:  price,
		Color:  models.ColorRainbow,
		HP:     hp,
		Attack: atk,
		Moves:  moves,
		Level:  1,
	}, nil
}

// loadParents fetches the requested creatures in request order. Missing and
// locked entries are rejected.
func loadParents(tx *gorm.DB, userID int64, ids []uint, lockedMsg string) ([]models.InventoryEntry, error) {
	var rows []models.InventoryEntry
	if err := tx.Where("user_id = ? AND id IN ?", userID, ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) != len(ids) {
		return nil, notFoundf("Isopod not found")
	}
	byID := make(map[uint]models.InventoryEntry, len(rows))
	for _, r := range rows {
		if r.Locked {
			return nil, lockedf("%s", lockedMsg)
		}
		byID[r.ID] = r
	}
	out := make([]models.InventoryEntry, 0, len(ids))
	for _, id := range ids {
		out = append(out, byID[id])
	}
	return out, nil
}

// spendBreedingKit consumes one fusion pod and one breeding food.
func spendBreedingKit(tx *gorm.DB, userID int64) error {
	for _, item := range []string{ItemFusionPod, ItemBreedingFood} {
		ok, err := consumeUserItem(tx, userID, item, 1)
		if err != nil {
			return err
		}
		if !ok {
			return validationf("Need Fusion Pod + Breeding Food")
		}
	}
	return nil
}

// replaceParents deletes the inputs and stores the product.
func (s *GameService) replaceParents(tx *gorm.DB, userID int64, ids []uint, child *models.InventoryEntry) error {
	if err := tx.Where("user_id = ? AND id IN ?", userID, ids).Delete(&models.InventoryEntry{}).Error; err != nil {
		return err
	}
	child.UserID = userID
	child.AcquiredAt = s.Now()
	return tx.Create(child).Error
}

// Breed fuses two same-tier creatures into one of the next tier.
func (s *GameService) Breed(ctx context.Context, userID int64, first, second uint) (*models.InventoryEntry, error) {
	if first == second {
		return nil, validationf("Choose two different isopods")
	}
	var child models.InventoryEntry
	ids := []uint{first, second}
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		if err := requireBreedingKit(tx, userID); err != nil {
			return err
		}
		parents, err := loadParents(tx, userID, ids, "Unlock isopods before breeding")
		if err != nil {
			return err
		}
		if child, err = BreedPair(s.Rand, parents[0], parents[1]); err != nil {
			return err
		}
		if err := spendBreedingKit(tx, userID); err != nil {
			return err
		}
		return s.replaceParents(tx, userID, ids, &child)
	}, userID)
	if err != nil {
		return nil, err
	}
	log.Printf("[BREED] user %d bred %d + %d into %q (%s)", userID, first, second, child.Name, child.Tier)
	return &child, nil
}

// RainbowFuse consumes one legendary of every color for the rainbow creature.
func (s *GameService) RainbowFuse(ctx context.Context, userID int64, ids []uint) (*models.InventoryEntry, error) {
	if len(ids) != len(s.Colors) {
		return nil, validationf("Need %d legendary isopods (one of each color)", len(s.Colors))
	}
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	if len(slices.Compact(sorted)) != len(ids) {
		return nil, validationf("Choose %d different isopods", len(s.Colors))
	}

	var child models.InventoryEntry
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		if err := requireBreedingKit(tx, userID); err != nil {
			return err
		}
		parents, err := loadParents(tx, userID, ids, "Unlock isopods before fusing")
		if err != nil {
			return err
		}
		if child, err = FuseRainbow(s.Rand, parents, s.Colors); err != nil {
			return err
		}
		if err := spendBreedingKit(tx, userID); err != nil {
			return err
		}
		return s.replaceParents(tx, userID, ids, &child)
	}, userID)
	if err != nil {
		return nil, err
	}
	log.Printf("[BREED] 🌈 user %d completed a rainbow fusion", userID)
	return &child, nil
}

func requireBreedingKit(tx *gorm.DB, userID int64) error {
	for _, item := range []string{ItemFusionPod, ItemBreedingFood} {
		qty, err := userItemQty(tx, userID, item)
		if err != nil {
			return err
		}
		if qty < 1 {
			return validationf("Need Fusion Pod + Breeding Food")
		}
	}
	return nil
}
