package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
	"tablica/pkg/domain"
)

const migrateLockID int64 = 51847223

type GormStoreOptions struct {
	Now func() time.Time
}

type GormStoreOption func(*GormStoreOptions)

// WithGormClock overrides the time source used for createdAt/lastMessageAt.
func WithGormClock(now func() time.Time) GormStoreOption {
	return func(opts *GormStoreOptions) {
		opts.Now = now
	}
}

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db     *gorm.DB
	closed atomic.Bool

	clockMu sync.Mutex
	clock   ticker
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string, options ...GormStoreOption) (*GormStore, error) {
	opts := GormStoreOptions{Now: time.Now}
	for _, option := range options {
		if option != nil {
			option(&opts)
		}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&UserModel{}, &ListingModel{}, &ConversationModel{}, &MessageModel{}, &FavoriteModel{}, &UnreadCountModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db, clock: ticker{now: opts.Now}}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// Close releases the connection pool. Further calls fail with ErrClosed.
func (s *GormStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) conn() (*gorm.DB, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	return s.db, nil
}

func (s *GormStore) now() time.Time {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	return s.clock.tick()
}

// CreateUser registers a user with a unique username.
func (s *GormStore) CreateUser(in domain.NewUser) (domain.User, error) {
	if err := checkNewUser(in); err != nil {
		return domain.User{}, err
	}
	db, err := s.conn()
	if err != nil {
		return domain.User{}, err
	}
	model := UserModel{
		Username:     strings.TrimSpace(in.Username),
		PasswordHash: in.PasswordHash,
		Name:         strings.TrimSpace(in.Name),
		Location:     strings.TrimSpace(in.Location),
		Avatar:       strings.TrimSpace(in.Avatar),
	}
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoNothing: true,
	}).Create(&model)
	if res.Error != nil {
		return domain.User{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.User{}, domain.NewValidationError("username", "is already taken")
	}
	return userFromModel(model), nil
}

// GetUser returns a user by ID.
func (s *GormStore) GetUser(id int64) (domain.User, bool, error) {
	return s.findUser("id = ?", id)
}

// GetUserByUsername looks up a user by username.
func (s *GormStore) GetUserByUsername(username string) (domain.User, bool, error) {
	return s.findUser("username = ?", strings.TrimSpace(username))
}

func (s *GormStore) findUser(query string, arg any) (domain.User, bool, error) {
	db, err := s.conn()
	if err != nil {
		return domain.User{}, false, err
	}
	var model UserModel
	if err := db.Where(query, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// SetUserAvatar replaces the avatar URL.
func (s *GormStore) SetUserAvatar(id int64, avatar string) (domain.User, bool, error) {
	db, err := s.conn()
	if err != nil {
		return domain.User{}, false, err
	}
	res := db.Model(&UserModel{}).Where("id = ?", id).Update("avatar", strings.TrimSpace(avatar))
	if res.Error != nil {
		return domain.User{}, false, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.User{}, false, nil
	}
	return s.GetUser(id)
}

// UserCount returns number of users.
func (s *GormStore) UserCount() (int, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	var count int64
	if err := db.Model(&UserModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// ListActiveListings returns active listings, newest first.
func (s *GormStore) ListActiveListings() ([]domain.Listing, error) {
	return s.listListings("status = ?", string(domain.StatusActive))
}

// ListListingsByOwner returns every listing of an owner, newest first.
func (s *GormStore) ListListingsByOwner(ownerID int64) ([]domain.Listing, error) {
	return s.listListings("owner_id = ?", ownerID)
}

// SearchListings matches active listings by title/description substring and category.
func (s *GormStore) SearchListings(query, category string) ([]domain.Listing, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	tx := db.Where("status = ?", string(domain.StatusActive))
	if category != "" && category != domain.CategoryAll {
		tx = tx.Where("LOWER(category) = LOWER(?)", category)
	}
	if query != "" {
		pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
		tx = tx.Where("(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)", pattern, pattern)
	}
	return findListings(tx)
}

func (s *GormStore) listListings(query string, arg any) ([]domain.Listing, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	return findListings(db.Where(query, arg))
}

func findListings(tx *gorm.DB) ([]domain.Listing, error) {
	var models []ListingModel
	if err := tx.Order("created_at DESC").Order("id DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Listing, 0, len(models))
	for _, m := range models {
		res = append(res, listingFromModel(m))
	}
	return res, nil
}

// GetListing retrieves a listing by ID regardless of status.
func (s *GormStore) GetListing(id int64) (domain.Listing, bool, error) {
	db, err := s.conn()
	if err != nil {
		return domain.Listing{}, false, err
	}
	var model ListingModel
	if err := db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Listing{}, false, nil
		}
		return domain.Listing{}, false, err
	}
	return listingFromModel(model), true, nil
}

// CreateListing stores a new active listing with zeroed counters.
func (s *GormStore) CreateListing(in domain.NewListing) (domain.Listing, error) {
	if err := checkNewListing(in); err != nil {
		return domain.Listing{}, err
	}
	db, err := s.conn()
	if err != nil {
		return domain.Listing{}, err
	}
	model := listingToModel(domain.Listing{
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		Category:    in.Category,
		Location:    in.Location,
		OwnerID:     in.OwnerID,
		Images:      in.Images,
		Negotiable:  in.Negotiable,
		Status:      domain.StatusActive,
		CreatedAt:   s.now(),
	})
	if err := db.Create(&model).Error; err != nil {
		return domain.Listing{}, err
	}
	return listingFromModel(model), nil
}

// UpdateListing merges patch into an existing listing.
func (s *GormStore) UpdateListing(id int64, patch domain.ListingPatch) (domain.Listing, bool, error) {
	if err := checkListingPatch(patch); err != nil {
		return domain.Listing{}, false, err
	}
	db, err := s.conn()
	if err != nil {
		return domain.Listing{}, false, err
	}
	var updated domain.Listing
	found := true
	err = db.Transaction(func(tx *gorm.DB) error {
		var model ListingModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&model, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				found = false
				return nil
			}
			return err
		}
		updated = listingFromModel(model)
		patch.Apply(&updated)
		next := listingToModel(updated)
		return tx.Model(&ListingModel{}).Where("id = ?", id).Updates(map[string]any{
			"title":       next.Title,
			"description": next.Description,
			"price":       next.Price,
			"category":    next.Category,
			"location":    next.Location,
			"images":      next.Images,
			"negotiable":  next.Negotiable,
			"status":      next.Status,
		}).Error
	})
	if err != nil {
		return domain.Listing{}, false, err
	}
	return updated, found, nil
}

// DeleteListing removes a listing together with its conversations, their
// messages and unread entries, and every favorite pointing at it.
func (s *GormStore) DeleteListing(id int64) (bool, error) {
	db, err := s.conn()
	if err != nil {
		return false, err
	}
	deleted := false
	err = db.Transaction(func(tx *gorm.DB) error {
		conversations := tx.Model(&ConversationModel{}).Select("id").Where("listing_id = ?", id)
		if err := tx.Delete(&UnreadCountModel{}, "conversation_id IN (?)", conversations).Error; err != nil {
			return err
		}
		if err := tx.Delete(&MessageModel{}, "conversation_id IN (?)", conversations).Error; err != nil {
			return err
		}
		if err := tx.Delete(&ConversationModel{}, "listing_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&FavoriteModel{}, "listing_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&ListingModel{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// IncrementViews bumps the view counter; unknown ids are ignored.
func (s *GormStore) IncrementViews(id int64) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	return db.Model(&ListingModel{}).Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1)).Error
}

// GetConversation returns one conversation by ID.
func (s *GormStore) GetConversation(id int64) (domain.Conversation, bool, error) {
	db, err := s.conn()
	if err != nil {
		return domain.Conversation{}, false, err
	}
	var model ConversationModel
	if err := db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Conversation{}, false, nil
		}
		return domain.Conversation{}, false, err
	}
	return conversationFromModel(model), true, nil
}

// CreateConversation returns the existing conversation for the
// (listing, buyer, seller) triple or creates one.
func (s *GormStore) CreateConversation(listingID, buyerID, sellerID int64) (domain.Conversation, error) {
	if err := checkConversation(listingID, buyerID, sellerID); err != nil {
		return domain.Conversation{}, err
	}
	db, err := s.conn()
	if err != nil {
		return domain.Conversation{}, err
	}
	model := ConversationModel{
		ListingID:     listingID,
		BuyerID:       buyerID,
		SellerID:      sellerID,
		LastMessageAt: s.now(),
	}
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "listing_id"}, {Name: "buyer_id"}, {Name: "seller_id"}},
		DoNothing: true,
	}).Create(&model)
	if res.Error != nil {
		return domain.Conversation{}, res.Error
	}
	if res.RowsAffected > 0 {
		return conversationFromModel(model), nil
	}
	var existing ConversationModel
	if err := db.Where("listing_id = ? AND buyer_id = ? AND seller_id = ?", listingID, buyerID, sellerID).
		First(&existing).Error; err != nil {
		return domain.Conversation{}, err
	}
	return conversationFromModel(existing), nil
}

// SendMessage appends a message, advances lastMessageAt and bumps the
// recipient's unread count in one transaction.
func (s *GormStore) SendMessage(conversationID, senderID int64, content string) (domain.Message, error) {
	db, err := s.conn()
	if err != nil {
		return domain.Message{}, err
	}
	var msg domain.Message
	err = db.Transaction(func(tx *gorm.DB) error {
		var conv ConversationModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&conv, "id = ?", conversationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("conversation %d: %w", conversationID, domain.ErrNotFound)
			}
			return err
		}
		c := conversationFromModel(conv)
		if err := checkMessage(c, senderID, content); err != nil {
			return err
		}
		model := MessageModel{
			ConversationID: conversationID,
			SenderID:       senderID,
			Content:        content,
			CreatedAt:      s.now(),
		}
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		if err := tx.Model(&ConversationModel{}).Where("id = ?", conversationID).
			Update("last_message_at", model.CreatedAt).Error; err != nil {
			return err
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "conversation_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"pending": gorm.Expr("unread_count_models.pending + 1"),
			}),
		}).Create(&UnreadCountModel{
			ConversationID: conversationID,
			UserID:         c.Counterpart(senderID),
			Pending:        1,
		}).Error; err != nil {
			return err
		}
		msg = messageFromModel(model)
		return nil
	})
	if err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

// ListMessages returns a conversation's messages, oldest first.
func (s *GormStore) ListMessages(conversationID int64) ([]domain.Message, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	var models []MessageModel
	if err := db.Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	msgs := make([]domain.Message, 0, len(models))
	for _, model := range models {
		msgs = append(msgs, messageFromModel(model))
	}
	return msgs, nil
}

// ListUserConversations returns the user's conversations joined with listing,
// counterpart, last message and unread count, most recently active first.
func (s *GormStore) ListUserConversations(userID int64) ([]domain.ConversationSummary, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	var convs []ConversationModel
	if err := db.Where("buyer_id = ? OR seller_id = ?", userID, userID).
		Order("last_message_at DESC").
		Order("id ASC").
		Find(&convs).Error; err != nil {
		return nil, err
	}
	res := make([]domain.ConversationSummary, 0, len(convs))
	if len(convs) == 0 {
		return res, nil
	}

	convIDs := make([]int64, 0, len(convs))
	listingIDs := make([]int64, 0, len(convs))
	userIDs := make([]int64, 0, len(convs))
	for _, m := range convs {
		c := conversationFromModel(m)
		convIDs = append(convIDs, c.ID)
		listingIDs = append(listingIDs, c.ListingID)
		userIDs = append(userIDs, c.Counterpart(userID))
	}

	var listings []ListingModel
	if err := db.Where("id IN ?", listingIDs).Find(&listings).Error; err != nil {
		return nil, err
	}
	listingByID := make(map[int64]domain.Listing, len(listings))
	for _, m := range listings {
		listingByID[m.ID] = listingFromModel(m)
	}

	var users []UserModel
	if err := db.Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, err
	}
	userByID := make(map[int64]domain.User, len(users))
	for _, m := range users {
		userByID[m.ID] = userFromModel(m)
	}

	var unread []UnreadCountModel
	if err := db.Where("conversation_id IN ? AND user_id = ?", convIDs, userID).Find(&unread).Error; err != nil {
		return nil, err
	}
	unreadByConv := make(map[int64]int64, len(unread))
	for _, m := range unread {
		unreadByConv[m.ConversationID] = m.Pending
	}

	var last []MessageModel
	if err := db.Raw(`
		SELECT DISTINCT ON (conversation_id) *
		FROM message_models
		WHERE conversation_id IN ?
		ORDER BY conversation_id, created_at DESC, id DESC
	`, convIDs).Scan(&last).Error; err != nil {
		return nil, err
	}
	lastByConv := make(map[int64]domain.Message, len(last))
	for _, m := range last {
		lastByConv[m.ConversationID] = messageFromModel(m)
	}

	for _, m := range convs {
		c := conversationFromModel(m)
		listing, ok := listingByID[c.ListingID]
		if !ok {
			continue
		}
		other, ok := userByID[c.Counterpart(userID)]
		if !ok {
			continue
		}
		summary := domain.ConversationSummary{
			Conversation: c,
			Listing:      listing,
			OtherUser:    other,
			UnreadCount:  unreadByConv[c.ID],
		}
		if msg, ok := lastByConv[c.ID]; ok {
			summary.LastMessage = &msg
		}
		res = append(res, summary)
	}
	return res, nil
}

// MarkRead resets the unread count of a user in a conversation.
func (s *GormStore) MarkRead(conversationID, userID int64) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	return db.Delete(&UnreadCountModel{}, "conversation_id = ? AND user_id = ?", conversationID, userID).Error
}

// UnreadCount reports the pending message count of a user in a conversation.
func (s *GormStore) UnreadCount(conversationID, userID int64) (int64, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	var model UnreadCountModel
	if err := db.First(&model, "conversation_id = ? AND user_id = ?", conversationID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return model.Pending, nil
}

// AddFavorite is idempotent: an existing favorite is returned unchanged and
// the listing counter only moves on a real insert.
func (s *GormStore) AddFavorite(userID, listingID int64) (domain.Favorite, error) {
	db, err := s.conn()
	if err != nil {
		return domain.Favorite{}, err
	}
	var fav domain.Favorite
	err = db.Transaction(func(tx *gorm.DB) error {
		var listing ListingModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&listing, "id = ?", listingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("listing %d: %w", listingID, domain.ErrNotFound)
			}
			return err
		}
		model := FavoriteModel{UserID: userID, ListingID: listingID}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "listing_id"}},
			DoNothing: true,
		}).Create(&model)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := tx.Where("user_id = ? AND listing_id = ?", userID, listingID).First(&model).Error; err != nil {
				return err
			}
			fav = favoriteFromModel(model)
			return nil
		}
		if err := tx.Model(&ListingModel{}).Where("id = ?", listingID).
			UpdateColumn("favorites_count", gorm.Expr("favorites_count + ?", 1)).Error; err != nil {
			return err
		}
		fav = favoriteFromModel(model)
		return nil
	})
	if err != nil {
		return domain.Favorite{}, err
	}
	return fav, nil
}

// RemoveFavorite deletes the favorite and decrements the counter, never below zero.
func (s *GormStore) RemoveFavorite(userID, listingID int64) (bool, error) {
	db, err := s.conn()
	if err != nil {
		return false, err
	}
	removed := false
	err = db.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&FavoriteModel{}, "user_id = ? AND listing_id = ?", userID, listingID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		removed = true
		return tx.Model(&ListingModel{}).Where("id = ?", listingID).
			UpdateColumn("favorites_count", gorm.Expr("GREATEST(favorites_count - 1, 0)")).Error
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// IsFavorite checks existence without side effects.
func (s *GormStore) IsFavorite(userID, listingID int64) (bool, error) {
	db, err := s.conn()
	if err != nil {
		return false, err
	}
	var count int64
	if err := db.Model(&FavoriteModel{}).
		Where("user_id = ? AND listing_id = ?", userID, listingID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListFavorites returns a user's favorites joined with their listings.
func (s *GormStore) ListFavorites(userID int64) ([]domain.FavoriteListing, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	var favs []FavoriteModel
	if err := db.Where("user_id = ?", userID).Order("id ASC").Find(&favs).Error; err != nil {
		return nil, err
	}
	res := make([]domain.FavoriteListing, 0, len(favs))
	if len(favs) == 0 {
		return res, nil
	}
	ids := make([]int64, 0, len(favs))
	for _, f := range favs {
		ids = append(ids, f.ListingID)
	}
	var listings []ListingModel
	if err := db.Where("id IN ?", ids).Find(&listings).Error; err != nil {
		return nil, err
	}
	byID := make(map[int64]domain.Listing, len(listings))
	for _, m := range listings {
		byID[m.ID] = listingFromModel(m)
	}
	for _, f := range favs {
		l, ok := byID[f.ListingID]
		if !ok {
			continue
		}
		res = append(res, domain.FavoriteListing{Favorite: favoriteFromModel(f), Listing: l})
	}
	return res, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		Name:         m.Name,
		Location:     m.Location,
		Avatar:       m.Avatar,
	}
}

func listingToModel(l domain.Listing) ListingModel {
	images := l.Images
	if images == nil {
		images = []string{}
	}
	raw, _ := json.Marshal(images)
	return ListingModel{
		ID:             l.ID,
		Title:          l.Title,
		Description:    l.Description,
		Price:          string(l.Price),
		Category:       l.Category,
		Location:       l.Location,
		OwnerID:        l.OwnerID,
		Images:         datatypes.JSON(raw),
		Negotiable:     l.Negotiable,
		Status:         string(l.Status),
		Views:          l.Views,
		FavoritesCount: l.FavoritesCount,
		CreatedAt:      l.CreatedAt,
	}
}

func listingFromModel(m ListingModel) domain.Listing {
	images := []string{}
	if len(m.Images) > 0 {
		_ = json.Unmarshal(m.Images, &images)
	}
	if images == nil {
		images = []string{}
	}
	return domain.Listing{
		ID:             m.ID,
		Title:          m.Title,
		Description:    m.Description,
		Price:          domain.Price(m.Price),
		Category:       m.Category,
		Location:       m.Location,
		OwnerID:        m.OwnerID,
		Images:         images,
		Negotiable:     m.Negotiable,
		Status:         domain.ListingStatus(m.Status),
		Views:          m.Views,
		FavoritesCount: m.FavoritesCount,
		CreatedAt:      m.CreatedAt.UTC(),
	}
}

func conversationFromModel(m ConversationModel) domain.Conversation {
	return domain.Conversation{
		ID:            m.ID,
		ListingID:     m.ListingID,
		BuyerID:       m.BuyerID,
		SellerID:      m.SellerID,
		LastMessageAt: m.LastMessageAt.UTC(),
	}
}

func messageFromModel(m MessageModel) domain.Message {
	return domain.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt.UTC(),
	}
}

func favoriteFromModel(m FavoriteModel) domain.Favorite {
	return domain.Favorite{ID: m.ID, UserID: m.UserID, ListingID: m.ListingID}
}
