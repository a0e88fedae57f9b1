package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Store struct {
	DB *gorm.DB
}

func NewStore(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("POSTGRES_DSN is required")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{DB: gdb}, nil
}

func (s *Store) Evidence() *EvidenceRepository {
	return NewEvidenceRepository(s.DB)
}

func (s *Store) Users() *UserRepository {
	return NewUserRepository(s.DB)
}

func (s *Store) ActivityLog() *ActivityLogRepository {
	return NewActivityLogRepository(s.DB)
}
