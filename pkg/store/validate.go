package store

import (
	"strings"

	"tablica/pkg/domain"
)

// Both backends run these checks before touching state so that a rejected
// call never leaves a partial write behind.

func checkNewUser(u domain.NewUser) error {
	var fields []domain.FieldError
	if strings.TrimSpace(u.Username) == "" {
		fields = append(fields, domain.FieldError{Field: "username", Message: "is required"})
	}
	if u.PasswordHash == "" {
		fields = append(fields, domain.FieldError{Field: "password", Message: "is required"})
	}
	if strings.TrimSpace(u.Name) == "" {
		fields = append(fields, domain.FieldError{Field: "name", Message: "is required"})
	}
	if strings.TrimSpace(u.Location) == "" {
		fields = append(fields, domain.FieldError{Field: "location", Message: "is required"})
	}
	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

func checkNewListing(in domain.NewListing) error {
	var fields []domain.FieldError
	required := []struct{ name, value string }{
		{"title", in.Title},
		{"description", in.Description},
		{"category", in.Category},
		{"location", in.Location},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			fields = append(fields, domain.FieldError{Field: r.name, Message: "is required"})
		}
	}
	if err := in.Price.Validate(); err != nil {
		fields = append(fields, domain.FieldError{Field: "price", Message: err.Error()})
	}
	if in.OwnerID <= 0 {
		fields = append(fields, domain.FieldError{Field: "userId", Message: "is required"})
	}
	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

func checkListingPatch(p domain.ListingPatch) error {
	var fields []domain.FieldError
	optional := []struct {
		name  string
		value *string
	}{
		{"title", p.Title},
		{"description", p.Description},
		{"category", p.Category},
		{"location", p.Location},
	}
	for _, o := range optional {
		if o.value != nil && strings.TrimSpace(*o.value) == "" {
			fields = append(fields, domain.FieldError{Field: o.name, Message: "must not be empty"})
		}
	}
	if p.Price != nil {
		if err := p.Price.Validate(); err != nil {
			fields = append(fields, domain.FieldError{Field: "price", Message: err.Error()})
		}
	}
	if p.Status != nil && !p.Status.Valid() {
		fields = append(fields, domain.FieldError{Field: "status", Message: "must be one of active, sold, paused"})
	}
	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

func checkConversation(listingID, buyerID, sellerID int64) error {
	var fields []domain.FieldError
	if listingID <= 0 {
		fields = append(fields, domain.FieldError{Field: "listingId", Message: "is required"})
	}
	if buyerID <= 0 {
		fields = append(fields, domain.FieldError{Field: "buyerId", Message: "is required"})
	}
	if sellerID <= 0 {
		fields = append(fields, domain.FieldError{Field: "sellerId", Message: "is required"})
	}
	if buyerID > 0 && buyerID == sellerID {
		fields = append(fields, domain.FieldError{Field: "sellerId", Message: "must differ from buyerId"})
	}
	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

func checkMessage(conv domain.Conversation, senderID int64, content string) error {
	if strings.TrimSpace(content) == "" {
		return domain.NewValidationError("content", "is required")
	}
	if !conv.Participant(senderID) {
		return domain.NewValidationError("senderId", "is not a participant of the conversation")
	}
	return nil
}

func matchesSearch(l domain.Listing, query, category string) bool {
	if l.Status != domain.StatusActive {
		return false
	}
	if category != "" && category != domain.CategoryAll && !strings.EqualFold(l.Category, category) {
		return false
	}
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(l.Title), q) || strings.Contains(strings.ToLower(l.Description), q)
}
