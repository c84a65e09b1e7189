package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"tablica/pkg/auth"
	"tablica/pkg/domain"
	"tablica/pkg/store"
)

// Config holds runtime configuration for the core application.
type Config struct {
	Store      store.Store
	DemoUserID int64
}

// App validates requests and orchestrates store operations for the HTTP layer.
type App struct {
	store      store.Store
	validate   *validator.Validate
	demoUserID int64
}

// New constructs the application over an already opened store.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("store required")
	}
	demo := cfg.DemoUserID
	if demo <= 0 {
		demo = 1
	}
	return &App{
		store:      cfg.Store,
		validate:   newValidator(),
		demoUserID: demo,
	}, nil
}

// ListListings returns active listings; when search or category is given the
// result is filtered by them.
func (a *App) ListListings(search, category string) ([]domain.Listing, error) {
	search = strings.TrimSpace(search)
	category = strings.TrimSpace(category)
	if search == "" && category == "" {
		return a.store.ListActiveListings()
	}
	return a.store.SearchListings(search, category)
}

// ViewListing counts a detail view and returns the listing after the increment.
func (a *App) ViewListing(id int64) (domain.Listing, error) {
	if _, ok, err := a.store.GetListing(id); err != nil {
		return domain.Listing{}, err
	} else if !ok {
		return domain.Listing{}, ErrListingNotFound
	}
	if err := a.store.IncrementViews(id); err != nil {
		return domain.Listing{}, err
	}
	listing, ok, err := a.store.GetListing(id)
	if err != nil {
		return domain.Listing{}, err
	}
	if !ok {
		return domain.Listing{}, ErrListingNotFound
	}
	return listing, nil
}

// CreateListing stores a new active listing.
func (a *App) CreateListing(req CreateListingRequest) (domain.Listing, error) {
	if err := a.validateRequest(req); err != nil {
		return domain.Listing{}, err
	}
	return a.store.CreateListing(domain.NewListing{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Price:       domain.Price(strings.TrimSpace(string(req.Price))),
		Category:    strings.TrimSpace(req.Category),
		Location:    strings.TrimSpace(req.Location),
		OwnerID:     req.UserID,
		Images:      req.Images,
		Negotiable:  req.Negotiable,
	})
}

// UpdateListing applies a partial update.
func (a *App) UpdateListing(id int64, req UpdateListingRequest) (domain.Listing, error) {
	if err := a.validateRequest(req); err != nil {
		return domain.Listing{}, err
	}
	listing, ok, err := a.store.UpdateListing(id, req.patch())
	if err != nil {
		return domain.Listing{}, err
	}
	if !ok {
		return domain.Listing{}, ErrListingNotFound
	}
	return listing, nil
}

// DeleteListing removes a listing and everything hanging off it.
func (a *App) DeleteListing(id int64) error {
	deleted, err := a.store.DeleteListing(id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrListingNotFound
	}
	return nil
}

// ListUserListings returns all listings of a user regardless of status.
func (a *App) ListUserListings(userID int64) ([]domain.Listing, error) {
	return a.store.ListListingsByOwner(userID)
}

// GetUser returns a user by ID.
func (a *App) GetUser(id int64) (domain.User, error) {
	u, ok, err := a.store.GetUser(id)
	if err != nil {
		return domain.User{}, err
	}
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return u, nil
}

// CurrentUser returns the hardcoded demo user.
func (a *App) CurrentUser() (domain.User, error) {
	return a.GetUser(a.demoUserID)
}

// CreateUser hashes the password and registers the user.
func (a *App) CreateUser(req CreateUserRequest) (domain.User, error) {
	if err := a.validateRequest(req); err != nil {
		return domain.User{}, err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return domain.User{}, domain.NewValidationError("password", err.Error())
	}
	return a.store.CreateUser(domain.NewUser{
		Username:     req.Username,
		PasswordHash: hash,
		Name:         req.Name,
		Location:     req.Location,
		Avatar:       req.Avatar,
	})
}

// SetAvatar replaces a user's avatar URL.
func (a *App) SetAvatar(userID int64, req SetAvatarRequest) (domain.User, error) {
	if err := a.validateRequest(req); err != nil {
		return domain.User{}, err
	}
	u, ok, err := a.store.SetUserAvatar(userID, req.Avatar)
	if err != nil {
		return domain.User{}, err
	}
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return u, nil
}

// ListUserConversations returns the user's inbox, most recently active first.
func (a *App) ListUserConversations(userID int64) ([]domain.ConversationSummary, error) {
	return a.store.ListUserConversations(userID)
}

// ListMessages returns the messages of an existing conversation, oldest first.
func (a *App) ListMessages(conversationID int64) ([]domain.Message, error) {
	if _, ok, err := a.store.GetConversation(conversationID); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrConversationNotFound
	}
	return a.store.ListMessages(conversationID)
}

// StartConversation returns the conversation between buyer and seller about
// a listing, creating it on first contact.
func (a *App) StartConversation(req CreateConversationRequest) (domain.Conversation, error) {
	if err := a.validateRequest(req); err != nil {
		return domain.Conversation{}, err
	}
	if _, ok, err := a.store.GetListing(req.ListingID); err != nil {
		return domain.Conversation{}, err
	} else if !ok {
		return domain.Conversation{}, ErrListingNotFound
	}
	return a.store.CreateConversation(req.ListingID, req.BuyerID, req.SellerID)
}

// SendMessage posts a message to a conversation.
func (a *App) SendMessage(req SendMessageRequest) (domain.Message, error) {
	if err := a.validateRequest(req); err != nil {
		return domain.Message{}, err
	}
	msg, err := a.store.SendMessage(req.ConversationID, req.SenderID, req.Content)
	if err != nil {
		return domain.Message{}, asNotFound(err, ErrConversationNotFound)
	}
	return msg, nil
}

// MarkRead clears the user's unread counter for a conversation they take part in.
func (a *App) MarkRead(conversationID int64, req MarkReadRequest) error {
	if err := a.validateRequest(req); err != nil {
		return err
	}
	conv, ok, err := a.store.GetConversation(conversationID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConversationNotFound
	}
	if !conv.Participant(req.UserID) {
		return domain.NewValidationError("userId", "is not a participant of the conversation")
	}
	return a.store.MarkRead(conversationID, req.UserID)
}

// AddFavorite marks a listing as a user's favorite; repeating it is harmless.
func (a *App) AddFavorite(userID, listingID int64) (domain.Favorite, error) {
	if err := checkIDs(userID, listingID); err != nil {
		return domain.Favorite{}, err
	}
	fav, err := a.store.AddFavorite(userID, listingID)
	if err != nil {
		return domain.Favorite{}, asNotFound(err, ErrListingNotFound)
	}
	return fav, nil
}

// RemoveFavorite unmarks a favorite.
func (a *App) RemoveFavorite(userID, listingID int64) error {
	removed, err := a.store.RemoveFavorite(userID, listingID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrFavoriteNotFound
	}
	return nil
}

// IsFavorite reports whether the user favorited the listing.
func (a *App) IsFavorite(userID, listingID int64) (bool, error) {
	return a.store.IsFavorite(userID, listingID)
}

// ListFavorites returns a user's favorites joined with their listings.
func (a *App) ListFavorites(userID int64) ([]domain.FavoriteListing, error) {
	return a.store.ListFavorites(userID)
}

func checkIDs(userID, listingID int64) error {
	var fields []domain.FieldError
	if userID <= 0 {
		fields = append(fields, domain.FieldError{Field: "userId", Message: fmt.Sprintf("must be positive, got %d", userID)})
	}
	if listingID <= 0 {
		fields = append(fields, domain.FieldError{Field: "listingId", Message: fmt.Sprintf("must be positive, got %d", listingID)})
	}
	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}
