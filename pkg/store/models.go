package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Name         string `gorm:"not null"`
	Location     string `gorm:"not null"`
	Avatar       string
}

// Price is kept as text so the submitted digits survive a round trip.
type ListingModel struct {
	ID             int64          `gorm:"primaryKey;autoIncrement"`
	Title          string         `gorm:"not null"`
	Description    string         `gorm:"type:text;not null"`
	Price          string         `gorm:"type:varchar(32);not null"`
	Category       string         `gorm:"not null;index"`
	Location       string         `gorm:"not null"`
	OwnerID        int64          `gorm:"not null;index"`
	Images         datatypes.JSON `gorm:"type:jsonb"`
	Negotiable     bool           `gorm:"not null;default:false"`
	Status         string         `gorm:"not null;index"`
	Views          int64          `gorm:"not null;default:0"`
	FavoritesCount int64          `gorm:"not null;default:0"`
	CreatedAt      time.Time      `gorm:"not null;index"`
}

type ConversationModel struct {
	ID            int64     `gorm:"primaryKey;autoIncrement"`
	ListingID     int64     `gorm:"not null;uniqueIndex:idx_conversation_triple"`
	BuyerID       int64     `gorm:"not null;uniqueIndex:idx_conversation_triple;index"`
	SellerID      int64     `gorm:"not null;uniqueIndex:idx_conversation_triple;index"`
	LastMessageAt time.Time `gorm:"not null;index"`
}

type MessageModel struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	ConversationID int64     `gorm:"not null;index"`
	SenderID       int64     `gorm:"not null"`
	Content        string    `gorm:"type:text;not null"`
	CreatedAt      time.Time `gorm:"not null;index"`
}

type FavoriteModel struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	UserID    int64 `gorm:"not null;uniqueIndex:idx_favorite_pair"`
	ListingID int64 `gorm:"not null;uniqueIndex:idx_favorite_pair;index"`
}

// UnreadCountModel holds pending message counts; a missing row means zero.
type UnreadCountModel struct {
	ConversationID int64 `gorm:"primaryKey;autoIncrement:false"`
	UserID         int64 `gorm:"primaryKey;autoIncrement:false"`
	Pending        int64 `gorm:"not null;default:0"`
}
