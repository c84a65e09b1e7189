package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tablica/internal/app"
	"tablica/internal/ratelimit"
	"tablica/pkg/domain"
	"tablica/pkg/store"
)

type harness struct {
	t       *testing.T
	handler http.Handler
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	st := store.NewMemoryStore()
	t.Cleanup(func() { _ = st.Close() })
	_, err := app.SeedDemoData(st)
	require.NoError(t, err)
	a, err := app.New(app.Config{Store: st, DemoUserID: 1})
	require.NoError(t, err)
	cfg.App = a
	srv, err := New(cfg)
	require.NoError(t, err)
	return &harness{t: t, handler: srv.Router()}
}

func (h *harness) do(method, path string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	h := newHarness(t, Config{})
	rec := h.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestListListings(t *testing.T) {
	h := newHarness(t, Config{})

	rec := h.do(http.MethodGet, "/api/listings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[[]domain.Listing](t, rec)
	require.Len(t, all, 4)
	assert.Equal(t, "Samochód elektroniczny", all[0].Title)

	rec = h.do(http.MethodGet, "/api/listings?category=elektronika", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Listing](t, rec), 1)

	rec = h.do(http.MethodGet, "/api/listings?search=buty", nil)
	got := decode[[]domain.Listing](t, rec)
	require.Len(t, got, 1)
	assert.Equal(t, "Buty", got[0].Title)
}

func TestListingLifecycle(t *testing.T) {
	h := newHarness(t, Config{})

	rec := h.do(http.MethodPost, "/api/listings", map[string]any{
		"title":       "Rower",
		"description": "Rower górski",
		"price":       "1200.10",
		"category":    "sport",
		"location":    "Kraków",
		"userId":      1,
		"images":      []string{"https://example.com/rower.jpg"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"price":"1200.10"`)
	created := decode[domain.Listing](t, rec)
	assert.Equal(t, domain.StatusActive, created.Status)

	path := "/api/listings/" + itoa(created.ID)
	rec = h.do(http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode[domain.Listing](t, rec).Views)

	rec = h.do(http.MethodPatch, path, map[string]any{"status": "sold", "price": 999})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[domain.Listing](t, rec)
	assert.Equal(t, domain.StatusSold, updated.Status)
	assert.Equal(t, domain.Price("999"), updated.Price)

	rec = h.do(http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodGet, path, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "LISTING_NOT_FOUND", decode[errorResponse](t, rec).Code)

	rec = h.do(http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateListingValidation(t *testing.T) {
	h := newHarness(t, Config{})
	rec := h.do(http.MethodPost, "/api/listings", map[string]any{"title": "x", "price": "abc"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[errorResponse](t, rec)
	assert.Equal(t, "VALIDATION_FAILED", resp.Code)
	assert.NotEmpty(t, resp.RequestID)
	fields := map[string]bool{}
	for _, f := range resp.Fields {
		fields[f.Field] = true
	}
	assert.True(t, fields["description"])
	assert.True(t, fields["userId"])

	rec = h.do(http.MethodPost, "/api/listings", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodGet, "/api/listings/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUsers(t *testing.T) {
	h := newHarness(t, Config{})

	rec := h.do(http.MethodGet, "/api/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
	me := decode[domain.User](t, rec)
	assert.Equal(t, "Filip Dudzik", me.Name)

	rec = h.do(http.MethodPost, "/api/users", map[string]any{
		"username": "kupiec", "password": "pw", "name": "Kupiec", "location": "Łódź",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	buyer := decode[domain.User](t, rec)

	rec = h.do(http.MethodPatch, "/api/users/"+itoa(buyer.ID)+"/avatar", map[string]any{"avatar": "https://example.com/a.png"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://example.com/a.png", decode[domain.User](t, rec).Avatar)

	rec = h.do(http.MethodGet, "/api/users/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "USER_NOT_FOUND", decode[errorResponse](t, rec).Code)

	rec = h.do(http.MethodGet, "/api/users/1/listings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Listing](t, rec), 4)
}

func TestConversationsAndMessages(t *testing.T) {
	h := newHarness(t, Config{})
	rec := h.do(http.MethodPost, "/api/users", map[string]any{
		"username": "kupiec", "password": "pw", "name": "Kupiec", "location": "Łódź",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	buyer := decode[domain.User](t, rec)

	body := map[string]any{"listingId": 1, "buyerId": buyer.ID, "sellerId": 1}
	rec = h.do(http.MethodPost, "/api/conversations", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	conv := decode[domain.Conversation](t, rec)

	rec = h.do(http.MethodPost, "/api/conversations", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, conv.ID, decode[domain.Conversation](t, rec).ID)

	rec = h.do(http.MethodPost, "/api/messages", map[string]any{
		"conversationId": conv.ID, "senderId": buyer.ID, "content": "Czy aktualne?",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(http.MethodPost, "/api/messages", map[string]any{
		"conversationId": 999, "senderId": buyer.ID, "content": "x",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "CONVERSATION_NOT_FOUND", decode[errorResponse](t, rec).Code)

	rec = h.do(http.MethodGet, "/api/users/1/conversations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	inbox := decode[[]domain.ConversationSummary](t, rec)
	require.Len(t, inbox, 1)
	assert.EqualValues(t, 1, inbox[0].UnreadCount)
	assert.Equal(t, buyer.ID, inbox[0].OtherUser.ID)
	require.NotNil(t, inbox[0].LastMessage)
	assert.Equal(t, "Czy aktualne?", inbox[0].LastMessage.Content)

	rec = h.do(http.MethodPost, "/api/conversations/"+itoa(conv.ID)+"/read", map[string]any{"userId": 1})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = h.do(http.MethodGet, "/api/users/1/conversations", nil)
	assert.EqualValues(t, 0, decode[[]domain.ConversationSummary](t, rec)[0].UnreadCount)

	rec = h.do(http.MethodGet, "/api/conversations/"+itoa(conv.ID)+"/messages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Message](t, rec), 1)
}

func TestFavorites(t *testing.T) {
	h := newHarness(t, Config{})

	rec := h.do(http.MethodPost, "/api/users/1/favorites/2", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = h.do(http.MethodPost, "/api/users/1/favorites/2", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = h.do(http.MethodGet, "/api/listings/2", nil)
	assert.EqualValues(t, 1, decode[domain.Listing](t, rec).FavoritesCount)

	rec = h.do(http.MethodGet, "/api/users/1/favorites/2/check", nil)
	assert.Equal(t, map[string]bool{"isFavorite": true}, decode[map[string]bool](t, rec))

	rec = h.do(http.MethodGet, "/api/users/1/favorites", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	favs := decode[[]domain.FavoriteListing](t, rec)
	require.Len(t, favs, 1)
	assert.Equal(t, "Buty", favs[0].Listing.Title)

	rec = h.do(http.MethodPost, "/api/users/1/favorites/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodDelete, "/api/users/1/favorites/2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = h.do(http.MethodDelete, "/api/users/1/favorites/2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "FAVORITE_NOT_FOUND", decode[errorResponse](t, rec).Code)
}

func TestMethodNotAllowedAndUnknownRoute(t *testing.T) {
	h := newHarness(t, Config{})
	rec := h.do(http.MethodPut, "/api/listings/1", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "SYSTEM_METHOD_NOT_ALLOWED", decode[errorResponse](t, rec).Code)

	rec = h.do(http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMessageRateLimit(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	limiter, err := ratelimit.NewFixedWindowLimiter(client, "test:messages", 1, time.Minute)
	require.NoError(t, err)

	h := newHarness(t, Config{MessageLimiter: limiter})
	body := map[string]any{"conversationId": 1, "senderId": 1, "content": "x"}

	rec := h.do(http.MethodPost, "/api/messages", body)
	assert.NotEqual(t, http.StatusTooManyRequests, rec.Code)

	rec = h.do(http.MethodPost, "/api/messages", body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "SYSTEM_RATE_LIMITED", decode[errorResponse](t, rec).Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec = h.do(http.MethodGet, "/api/listings", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitFailsClosed(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	limiter, err := ratelimit.NewFixedWindowLimiter(client, "test:listings", 5, time.Minute)
	require.NoError(t, err)
	srv.Close()

	h := newHarness(t, Config{ListingLimiter: limiter})
	rec := h.do(http.MethodPost, "/api/listings", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
