package domain

import "time"

type ListingStatus string

const (
	StatusActive ListingStatus = "active"
	StatusSold   ListingStatus = "sold"
	StatusPaused ListingStatus = "paused"
)

// Valid reports whether s is one of the known listing statuses.
func (s ListingStatus) Valid() bool {
	switch s {
	case StatusActive, StatusSold, StatusPaused:
		return true
	default:
		return false
	}
}

// CategoryAll is the search sentinel that disables category filtering.
const CategoryAll = "all"

type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Name         string `json:"name"`
	Location     string `json:"location"`
	Avatar       string `json:"avatar,omitempty"`
}

// NewUser is the input for user creation. PasswordHash is stored as given.
type NewUser struct {
	Username     string
	PasswordHash string
	Name         string
	Location     string
	Avatar       string
}

type Listing struct {
	ID             int64         `json:"id"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Price          Price         `json:"price"`
	Category       string        `json:"category"`
	Location       string        `json:"location"`
	OwnerID        int64         `json:"userId"`
	Images         []string      `json:"images"`
	Negotiable     bool          `json:"negotiable"`
	Status         ListingStatus `json:"status"`
	Views          int64         `json:"views"`
	FavoritesCount int64         `json:"favorites"`
	CreatedAt      time.Time     `json:"createdAt"`
}

// NewListing holds the caller-supplied fields of a listing.
type NewListing struct {
	Title       string
	Description string
	Price       Price
	Category    string
	Location    string
	OwnerID     int64
	Images      []string
	Negotiable  bool
}

// ListingPatch is a partial update; nil fields are left untouched.
type ListingPatch struct {
	Title       *string
	Description *string
	Price       *Price
	Category    *string
	Location    *string
	Images      *[]string
	Negotiable  *bool
	Status      *ListingStatus
}

// Apply merges the non-nil fields of p into l.
func (p ListingPatch) Apply(l *Listing) {
	if p.Title != nil {
		l.Title = *p.Title
	}
	if p.Description != nil {
		l.Description = *p.Description
	}
	if p.Price != nil {
		l.Price = *p.Price
	}
	if p.Category != nil {
		l.Category = *p.Category
	}
	if p.Location != nil {
		l.Location = *p.Location
	}
	if p.Images != nil {
		l.Images = append([]string{}, (*p.Images)...)
	}
	if p.Negotiable != nil {
		l.Negotiable = *p.Negotiable
	}
	if p.Status != nil {
		l.Status = *p.Status
	}
}

type Conversation struct {
	ID            int64     `json:"id"`
	ListingID     int64     `json:"listingId"`
	BuyerID       int64     `json:"buyerId"`
	SellerID      int64     `json:"sellerId"`
	LastMessageAt time.Time `json:"lastMessageAt"`
}

// Participant reports whether userID is the buyer or the seller.
func (c Conversation) Participant(userID int64) bool {
	return userID == c.BuyerID || userID == c.SellerID
}

// Counterpart returns the participant that is not userID.
func (c Conversation) Counterpart(userID int64) int64 {
	if userID == c.BuyerID {
		return c.SellerID
	}
	return c.BuyerID
}

// ConversationSummary is a conversation joined with the data a user's inbox needs.
type ConversationSummary struct {
	Conversation
	Listing     Listing  `json:"listing"`
	OtherUser   User     `json:"otherUser"`
	LastMessage *Message `json:"lastMessage,omitempty"`
	UnreadCount int64    `json:"unreadCount"`
}

type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversationId"`
	SenderID       int64     `json:"senderId"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Favorite struct {
	ID        int64 `json:"id"`
	UserID    int64 `json:"userId"`
	ListingID int64 `json:"listingId"`
}

// FavoriteListing is a favorite joined with its listing.
type FavoriteListing struct {
	Favorite
	Listing Listing `json:"listing"`
}
