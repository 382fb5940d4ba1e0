// services/users.go
package services

import (
	"context"
	"errors"
	"fmt"

	"isopod-exchange/models"
	"isopod-exchange/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ensureUser loads a user, creating the row on first interaction. A changed
// username is written back so @mention lookups stay current.
func (s *GameService) ensureUser(tx *gorm.DB, id int64, username string) (*models.User, error) {
	fresh := models.User{
		ID:           id,
		Username:     username,
		UsernameKey:  utils.UsernameKey(username),
		Charges:      1,
		ChargeAnchor: s.Now(),
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&fresh).Error; err != nil {
		return nil, fmt.Errorf("create user %d: %w", id, err)
	}

	var user models.User
	if err := tx.First(&user, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("load user %d: %w", id, err)
	}
	if username != "" && user.Username != username {
		user.Username = username
		user.UsernameKey = utils.UsernameKey(username)
		if err := tx.Model(&user).Updates(map[string]any{
			"username":     user.Username,
			"username_key": user.UsernameKey,
		}).Error; err != nil {
			return nil, fmt.Errorf("rename user %d: %w", id, err)
		}
	}
	return &user, nil
}

// EnsureUser is the standalone form used by the start command.
func (s *GameService) EnsureUser(ctx context.Context, id int64, username string) (*models.User, error) {
	var user *models.User
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		var err error
		user, err = s.ensureUser(tx, id, username)
		return err
	}, id)
	return user, err
}

func loadUser(tx *gorm.DB, id int64) (*models.User, error) {
	var user models.User
	if err := tx.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundf("User not found")
		}
		return nil, err
	}
	return &user, nil
}

// FindUserByUsername resolves an @mention. The leading @ is optional.
func (s *GameService) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return findUserByUsername(s.DB.WithContext(ctx), username)
}

func findUserByUsername(tx *gorm.DB, username string) (*models.User, error) {
	key := utils.UsernameKey(username)
	if key == "" {
		return nil, notFoundf("Target not found")
	}
	var user models.User
	err := tx.Where("username_key = ?", key).Order("id").First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("Target not found")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// addMoney applies an unguarded balance delta. When negative balances are
// disallowed a debit is floored at zero.
func (s *GameService) addMoney(tx *gorm.DB, userID int64, delta int64) error {
	if delta < 0 && !s.Rules.AllowNegativeBalance {
		user, err := loadUser(tx, userID)
		if err != nil {
			return err
		}
		if user.Money+delta < 0 {
			delta = -max(user.Money, 0)
		}
	}
	if delta == 0 {
		return nil
	}
	return tx.Model(&models.User{}).Where("id = ?", userID).
		Update("money", gorm.Expr("money + ?", delta)).Error
}

// spend debits amount only if the balance covers it.
func (s *GameService) spend(tx *gorm.DB, userID int64, amount int64) error {
	user, err := loadUser(tx, userID)
	if err != nil {
		return err
	}
	if user.Money < amount {
		return validationf("💸 Need %d iso$", amount)
	}
	return tx.Model(&models.User{}).Where("id = ?", userID).
		Update("money", gorm.Expr("money - ?", amount)).Error
}

// TopUsers returns the richest players.
func (s *GameService) TopUsers(ctx context.Context, limit int) ([]models.User, error) {
	var users []models.User
	err := s.DB.WithContext(ctx).Order("money DESC").Order("id").Limit(limit).Find(&users).Error
	return users, err
}

// LegendaryUsers returns everyone holding legendary status.
func (s *GameService) LegendaryUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.DB.WithContext(ctx).Where("legendary = ?", true).Order("id").Find(&users).Error
	return users, err
}

// AllUserIDs lists every known user, for broadcasts.
func (s *GameService) AllUserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.DB.WithContext(ctx).Model(&models.User{}).Order("id").Pluck("id", &ids).Error
	return ids, err
}
