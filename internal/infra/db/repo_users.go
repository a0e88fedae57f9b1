package db

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/Venkey2238/blockchain-evidence/internal/domain/evidence"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Lookup returns the directory entry for a wallet. Wallets are stored
// lower-cased; the lookup normalizes the argument the same way.
func (r *UserRepository) Lookup(ctx context.Context, wallet string) (evidence.Account, error) {
	if r.db == nil {
		return evidence.Account{}, errDBUnavailable
	}
	var model UserModel
	err := r.db.WithContext(ctx).First(&model, "wallet = ?", strings.ToLower(wallet)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return evidence.Account{}, evidence.ErrNotFound
	}
	if err != nil {
		return evidence.Account{}, err
	}
	return evidence.Account{
		Wallet: model.Wallet,
		Role:   evidence.Role(model.Role),
		Active: model.IsActive,
	}, nil
}
