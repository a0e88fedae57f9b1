package db

import "time"

type EvidenceModel struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	CaseID      string `gorm:"index;not null"`
	Name        string `gorm:"not null"`
	Type        string `gorm:"not null"`
	Description string
	Location    string

	ContentHash string `gorm:"index;not null"`
	MimeType    string `gorm:"not null"`
	SizeBytes   int64  `gorm:"not null"`
	SubmittedBy string `gorm:"index;not null"`

	BlobRef string

	LedgerTxID        string `gorm:"index"`
	LedgerBlockNumber int64
	LedgerCost        string

	Status    string    `gorm:"index;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (EvidenceModel) TableName() string {
	return "evidence"
}

type UserModel struct {
	Wallet   string `gorm:"primaryKey"`
	Role     string `gorm:"not null"`
	IsActive bool   `gorm:"not null"`
}

func (UserModel) TableName() string {
	return "users"
}

type ActivityLogModel struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	Actor       string    `gorm:"index;not null"`
	Action      string    `gorm:"index;not null"`
	DetailsJSON []byte    `gorm:"type:jsonb"`
	Timestamp   time.Time `gorm:"index;not null"`
}

func (ActivityLogModel) TableName() string {
	return "activity_logs"
}
