package store

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"tablica/pkg/domain"
)

type conversationKey struct {
	listingID, buyerID, sellerID int64
}

type pairKey struct {
	a, b int64
}

// MemoryStore keeps all marketplace state in-process. A single lock guards
// every table so composite operations commit as one unit.
type MemoryStore struct {
	mu     sync.RWMutex
	closed bool
	clock  ticker

	users     map[int64]domain.User
	usernames map[string]int64 // username -> user ID

	listings     map[int64]domain.Listing
	listingOrder []int64

	conversations     map[int64]domain.Conversation
	conversationOrder []int64
	conversationIndex map[conversationKey]int64

	messages map[int64]domain.Message
	threads  map[int64][]int64 // conversation ID -> message IDs, oldest first

	favorites     map[int64]domain.Favorite
	favoriteIndex map[pairKey]int64 // (user, listing) -> favorite ID
	userFavorites map[int64][]int64 // user ID -> favorite IDs in insertion order
	unread        map[pairKey]int64 // (conversation, user) -> pending count

	userSeq, listingSeq, conversationSeq, messageSeq, favoriteSeq sequence
}

// MemoryOption customizes a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the time source used for createdAt/lastMessageAt.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) {
		if now != nil {
			m.clock.now = now
		}
	}
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore(options ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		clock:             ticker{now: time.Now},
		users:             make(map[int64]domain.User),
		usernames:         make(map[string]int64),
		listings:          make(map[int64]domain.Listing),
		conversations:     make(map[int64]domain.Conversation),
		conversationIndex: make(map[conversationKey]int64),
		messages:          make(map[int64]domain.Message),
		threads:           make(map[int64][]int64),
		favorites:         make(map[int64]domain.Favorite),
		favoriteIndex:     make(map[pairKey]int64),
		userFavorites:     make(map[int64][]int64),
		unread:            make(map[pairKey]int64),
	}
	for _, opt := range options {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Close drops all state. Further calls fail with ErrClosed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.users, m.usernames = nil, nil
	m.listings, m.listingOrder = nil, nil
	m.conversations, m.conversationOrder, m.conversationIndex = nil, nil, nil
	m.messages, m.threads = nil, nil
	m.favorites, m.favoriteIndex, m.userFavorites = nil, nil, nil
	m.unread = nil
	return nil
}

// CreateUser registers a user with a unique username.
func (m *MemoryStore) CreateUser(in domain.NewUser) (domain.User, error) {
	if err := checkNewUser(in); err != nil {
		return domain.User{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.User{}, ErrClosed
	}
	username := strings.TrimSpace(in.Username)
	if _, taken := m.usernames[username]; taken {
		return domain.User{}, domain.NewValidationError("username", "is already taken")
	}
	u := domain.User{
		ID:           m.userSeq.next(),
		Username:     username,
		PasswordHash: in.PasswordHash,
		Name:         strings.TrimSpace(in.Name),
		Location:     strings.TrimSpace(in.Location),
		Avatar:       strings.TrimSpace(in.Avatar),
	}
	m.users[u.ID] = u
	m.usernames[u.Username] = u.ID
	return u, nil
}

// GetUser returns a user by ID.
func (m *MemoryStore) GetUser(id int64) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return domain.User{}, false, ErrClosed
	}
	u, ok := m.users[id]
	return u, ok, nil
}

// GetUserByUsername looks up a user by username.
func (m *MemoryStore) GetUserByUsername(username string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return domain.User{}, false, ErrClosed
	}
	id, ok := m.usernames[strings.TrimSpace(username)]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := m.users[id]
	return u, ok, nil
}

// SetUserAvatar replaces the avatar URL; it is the only mutable user field.
func (m *MemoryStore) SetUserAvatar(id int64, avatar string) (domain.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.User{}, false, ErrClosed
	}
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, false, nil
	}
	u.Avatar = strings.TrimSpace(avatar)
	m.users[id] = u
	return u, true, nil
}

// UserCount returns number of users.
func (m *MemoryStore) UserCount() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, ErrClosed
	}
	return len(m.users), nil
}

// ListActiveListings returns active listings, newest first.
func (m *MemoryStore) ListActiveListings() ([]domain.Listing, error) {
	return m.filterListings(func(l domain.Listing) bool { return l.Status == domain.StatusActive })
}

// ListListingsByOwner returns every listing of an owner regardless of status, newest first.
func (m *MemoryStore) ListListingsByOwner(ownerID int64) ([]domain.Listing, error) {
	return m.filterListings(func(l domain.Listing) bool { return l.OwnerID == ownerID })
}

// SearchListings matches active listings by title/description substring and category.
func (m *MemoryStore) SearchListings(query, category string) ([]domain.Listing, error) {
	return m.filterListings(func(l domain.Listing) bool { return matchesSearch(l, query, category) })
}

func (m *MemoryStore) filterListings(keep func(domain.Listing) bool) ([]domain.Listing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	res := make([]domain.Listing, 0, len(m.listingOrder))
	for _, id := range m.listingOrder {
		if l, ok := m.listings[id]; ok && keep(l) {
			res = append(res, cloneListing(l))
		}
	}
	sortNewestFirst(res)
	return res, nil
}

// GetListing retrieves a listing by ID regardless of status.
func (m *MemoryStore) GetListing(id int64) (domain.Listing, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return domain.Listing{}, false, ErrClosed
	}
	l, ok := m.listings[id]
	if !ok {
		return domain.Listing{}, false, nil
	}
	return cloneListing(l), true, nil
}

// CreateListing stores a new active listing with zeroed counters.
func (m *MemoryStore) CreateListing(in domain.NewListing) (domain.Listing, error) {
	if err := checkNewListing(in); err != nil {
		return domain.Listing{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.Listing{}, ErrClosed
	}
	l := domain.Listing{
		ID:          m.listingSeq.next(),
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		Category:    in.Category,
		Location:    in.Location,
		OwnerID:     in.OwnerID,
		Images:      append([]string{}, in.Images...),
		Negotiable:  in.Negotiable,
		Status:      domain.StatusActive,
		CreatedAt:   m.clock.tick(),
	}
	m.listings[l.ID] = l
	m.listingOrder = append(m.listingOrder, l.ID)
	return cloneListing(l), nil
}

// UpdateListing merges patch into an existing listing.
func (m *MemoryStore) UpdateListing(id int64, patch domain.ListingPatch) (domain.Listing, bool, error) {
	if err := checkListingPatch(patch); err != nil {
		return domain.Listing{}, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.Listing{}, false, ErrClosed
	}
	l, ok := m.listings[id]
	if !ok {
		return domain.Listing{}, false, nil
	}
	patch.Apply(&l)
	m.listings[id] = l
	return cloneListing(l), true, nil
}

// DeleteListing removes a listing together with its conversations, their
// messages and unread entries, and every favorite pointing at it.
func (m *MemoryStore) DeleteListing(id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false, ErrClosed
	}
	if _, ok := m.listings[id]; !ok {
		return false, nil
	}
	delete(m.listings, id)
	m.listingOrder = slices.DeleteFunc(m.listingOrder, func(item int64) bool { return item == id })

	m.conversationOrder = slices.DeleteFunc(m.conversationOrder, func(cid int64) bool {
		c, ok := m.conversations[cid]
		if !ok || c.ListingID != id {
			return false
		}
		for _, mid := range m.threads[cid] {
			delete(m.messages, mid)
		}
		delete(m.threads, cid)
		delete(m.unread, pairKey{cid, c.BuyerID})
		delete(m.unread, pairKey{cid, c.SellerID})
		delete(m.conversationIndex, conversationKey{c.ListingID, c.BuyerID, c.SellerID})
		delete(m.conversations, cid)
		return true
	})

	for fid, f := range m.favorites {
		if f.ListingID != id {
			continue
		}
		delete(m.favorites, fid)
		delete(m.favoriteIndex, pairKey{f.UserID, f.ListingID})
		m.userFavorites[f.UserID] = slices.DeleteFunc(m.userFavorites[f.UserID], func(item int64) bool { return item == fid })
	}
	return true, nil
}

// IncrementViews bumps the view counter; unknown ids are ignored.
func (m *MemoryStore) IncrementViews(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	l, ok := m.listings[id]
	if !ok {
		return nil
	}
	l.Views++
	m.listings[id] = l
	return nil
}

// GetConversation returns one conversation by ID.
func (m *MemoryStore) GetConversation(id int64) (domain.Conversation, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return domain.Conversation{}, false, ErrClosed
	}
	c, ok := m.conversations[id]
	return c, ok, nil
}

// CreateConversation returns the existing conversation for the
// (listing, buyer, seller) triple or creates one.
func (m *MemoryStore) CreateConversation(listingID, buyerID, sellerID int64) (domain.Conversation, error) {
	if err := checkConversation(listingID, buyerID, sellerID); err != nil {
		return domain.Conversation{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.Conversation{}, ErrClosed
	}
	key := conversationKey{listingID, buyerID, sellerID}
	if id, ok := m.conversationIndex[key]; ok {
		return m.conversations[id], nil
	}
	c := domain.Conversation{
		ID:            m.conversationSeq.next(),
		ListingID:     listingID,
		BuyerID:       buyerID,
		SellerID:      sellerID,
		LastMessageAt: m.clock.tick(),
	}
	m.conversations[c.ID] = c
	m.conversationOrder = append(m.conversationOrder, c.ID)
	m.conversationIndex[key] = c.ID
	return c, nil
}

// SendMessage appends a message, advances lastMessageAt and bumps the
// recipient's unread count.
func (m *MemoryStore) SendMessage(conversationID, senderID int64, content string) (domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.Message{}, ErrClosed
	}
	c, ok := m.conversations[conversationID]
	if !ok {
		return domain.Message{}, fmt.Errorf("conversation %d: %w", conversationID, domain.ErrNotFound)
	}
	if err := checkMessage(c, senderID, content); err != nil {
		return domain.Message{}, err
	}
	msg := domain.Message{
		ID:             m.messageSeq.next(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      m.clock.tick(),
	}
	m.messages[msg.ID] = msg
	m.threads[conversationID] = append(m.threads[conversationID], msg.ID)
	c.LastMessageAt = msg.CreatedAt
	m.conversations[conversationID] = c
	m.unread[pairKey{conversationID, c.Counterpart(senderID)}]++
	return msg, nil
}

// ListMessages returns a conversation's messages, oldest first.
func (m *MemoryStore) ListMessages(conversationID int64) ([]domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	ids := m.threads[conversationID]
	res := make([]domain.Message, 0, len(ids))
	for _, id := range ids {
		if msg, ok := m.messages[id]; ok {
			res = append(res, msg)
		}
	}
	return res, nil
}

// ListUserConversations returns the user's conversations joined with listing,
// counterpart, last message and unread count, most recently active first.
// Conversations whose listing or counterpart cannot be resolved are skipped.
func (m *MemoryStore) ListUserConversations(userID int64) ([]domain.ConversationSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	res := make([]domain.ConversationSummary, 0)
	for _, cid := range m.conversationOrder {
		c, ok := m.conversations[cid]
		if !ok || !c.Participant(userID) {
			continue
		}
		listing, ok := m.listings[c.ListingID]
		if !ok {
			continue
		}
		other, ok := m.users[c.Counterpart(userID)]
		if !ok {
			continue
		}
		summary := domain.ConversationSummary{
			Conversation: c,
			Listing:      cloneListing(listing),
			OtherUser:    other,
			UnreadCount:  m.unread[pairKey{cid, userID}],
		}
		if thread := m.threads[cid]; len(thread) > 0 {
			last := m.messages[thread[len(thread)-1]]
			summary.LastMessage = &last
		}
		res = append(res, summary)
	}
	slices.SortStableFunc(res, func(a, b domain.ConversationSummary) int {
		return b.LastMessageAt.Compare(a.LastMessageAt)
	})
	return res, nil
}

// MarkRead resets the unread count of a user in a conversation.
func (m *MemoryStore) MarkRead(conversationID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.unread, pairKey{conversationID, userID})
	return nil
}

// UnreadCount reports the pending message count of a user in a conversation.
func (m *MemoryStore) UnreadCount(conversationID, userID int64) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, ErrClosed
	}
	return m.unread[pairKey{conversationID, userID}], nil
}

// AddFavorite is idempotent: an existing favorite is returned unchanged and
// the listing counter only moves on a real insert.
func (m *MemoryStore) AddFavorite(userID, listingID int64) (domain.Favorite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.Favorite{}, ErrClosed
	}
	key := pairKey{userID, listingID}
	if id, ok := m.favoriteIndex[key]; ok {
		return m.favorites[id], nil
	}
	l, ok := m.listings[listingID]
	if !ok {
		return domain.Favorite{}, fmt.Errorf("listing %d: %w", listingID, domain.ErrNotFound)
	}
	f := domain.Favorite{ID: m.favoriteSeq.next(), UserID: userID, ListingID: listingID}
	m.favorites[f.ID] = f
	m.favoriteIndex[key] = f.ID
	m.userFavorites[userID] = append(m.userFavorites[userID], f.ID)
	l.FavoritesCount++
	m.listings[listingID] = l
	return f, nil
}

// RemoveFavorite deletes the favorite and decrements the counter, never below zero.
func (m *MemoryStore) RemoveFavorite(userID, listingID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false, ErrClosed
	}
	key := pairKey{userID, listingID}
	id, ok := m.favoriteIndex[key]
	if !ok {
		return false, nil
	}
	delete(m.favorites, id)
	delete(m.favoriteIndex, key)
	m.userFavorites[userID] = slices.DeleteFunc(m.userFavorites[userID], func(item int64) bool { return item == id })
	if l, ok := m.listings[listingID]; ok {
		l.FavoritesCount = max(l.FavoritesCount-1, 0)
		m.listings[listingID] = l
	}
	return true, nil
}

// IsFavorite checks existence without side effects.
func (m *MemoryStore) IsFavorite(userID, listingID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false, ErrClosed
	}
	_, ok := m.favoriteIndex[pairKey{userID, listingID}]
	return ok, nil
}

// ListFavorites returns a user's favorites joined with their listings.
func (m *MemoryStore) ListFavorites(userID int64) ([]domain.FavoriteListing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	ids := m.userFavorites[userID]
	res := make([]domain.FavoriteListing, 0, len(ids))
	for _, id := range ids {
		f, ok := m.favorites[id]
		if !ok {
			continue
		}
		l, ok := m.listings[f.ListingID]
		if !ok {
			continue
		}
		res = append(res, domain.FavoriteListing{Favorite: f, Listing: cloneListing(l)})
	}
	return res, nil
}

func cloneListing(l domain.Listing) domain.Listing {
	l.Images = append([]string{}, l.Images...)
	return l
}

func sortNewestFirst(items []domain.Listing) {
	slices.SortStableFunc(items, func(a, b domain.Listing) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}
