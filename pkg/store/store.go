package store

import (
	"errors"

	"tablica/pkg/domain"
)

// ErrClosed is returned by every operation of a store after Close.
var ErrClosed = errors.New("store closed")

// Store defines persistence operations for users, listings, conversations,
// messages and favorites. Lookups report absence with a false flag; mutations
// that reference a missing record return domain.ErrNotFound.
type Store interface {
	// users
	CreateUser(domain.NewUser) (domain.User, error)
	GetUser(id int64) (domain.User, bool, error)
	GetUserByUsername(username string) (domain.User, bool, error)
	SetUserAvatar(id int64, avatar string) (domain.User, bool, error)
	UserCount() (int, error)

	// listings
	ListActiveListings() ([]domain.Listing, error)
	GetListing(id int64) (domain.Listing, bool, error)
	ListListingsByOwner(ownerID int64) ([]domain.Listing, error)
	CreateListing(domain.NewListing) (domain.Listing, error)
	UpdateListing(id int64, patch domain.ListingPatch) (domain.Listing, bool, error)
	DeleteListing(id int64) (bool, error)
	SearchListings(query, category string) ([]domain.Listing, error)
	IncrementViews(id int64) error

	// conversations
	GetConversation(id int64) (domain.Conversation, bool, error)
	CreateConversation(listingID, buyerID, sellerID int64) (domain.Conversation, error)
	SendMessage(conversationID, senderID int64, content string) (domain.Message, error)
	ListMessages(conversationID int64) ([]domain.Message, error)
	ListUserConversations(userID int64) ([]domain.ConversationSummary, error)
	MarkRead(conversationID, userID int64) error
	UnreadCount(conversationID, userID int64) (int64, error)

	// favorites
	AddFavorite(userID, listingID int64) (domain.Favorite, error)
	RemoveFavorite(userID, listingID int64) (bool, error)
	IsFavorite(userID, listingID int64) (bool, error)
	ListFavorites(userID int64) ([]domain.FavoriteListing, error)

	Close() error
}
