package app

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"tablica/pkg/domain"
)

// CreateUserRequest is the body of POST /api/users.
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
	Name     string `json:"name" validate:"required,max=128"`
	Location string `json:"location" validate:"required,max=128"`
	Avatar   string `json:"avatar" validate:"omitempty,url"`
}

// SetAvatarRequest is the body of PATCH /api/users/{userId}/avatar.
type SetAvatarRequest struct {
	Avatar string `json:"avatar" validate:"required,url"`
}

// CreateListingRequest is the body of POST /api/listings.
type CreateListingRequest struct {
	Title       string       `json:"title" validate:"required,max=200"`
	Description string       `json:"description" validate:"required,max=5000"`
	Price       domain.Price `json:"price" validate:"required"`
	Category    string       `json:"category" validate:"required,max=64"`
	Location    string       `json:"location" validate:"required,max=128"`
	UserID      int64        `json:"userId" validate:"required,gt=0"`
	Images      []string     `json:"images" validate:"max=20,dive,required,url"`
	Negotiable  bool         `json:"negotiable"`
}

// UpdateListingRequest is the body of PATCH /api/listings/{id}; absent fields are untouched.
type UpdateListingRequest struct {
	Title       *string               `json:"title" validate:"omitempty,max=200"`
	Description *string               `json:"description" validate:"omitempty,max=5000"`
	Price       *domain.Price         `json:"price"`
	Category    *string               `json:"category" validate:"omitempty,max=64"`
	Location    *string               `json:"location" validate:"omitempty,max=128"`
	Images      *[]string             `json:"images" validate:"omitempty,max=20,dive,required,url"`
	Negotiable  *bool                 `json:"negotiable"`
	Status      *domain.ListingStatus `json:"status" validate:"omitempty,oneof=active sold paused"`
}

func (r UpdateListingRequest) patch() domain.ListingPatch {
	return domain.ListingPatch{
		Title:       r.Title,
		Description: r.Description,
		Price:       r.Price,
		Category:    r.Category,
		Location:    r.Location,
		Images:      r.Images,
		Negotiable:  r.Negotiable,
		Status:      r.Status,
	}
}

// CreateConversationRequest is the body of POST /api/conversations.
type CreateConversationRequest struct {
	ListingID int64 `json:"listingId" validate:"required,gt=0"`
	BuyerID   int64 `json:"buyerId" validate:"required,gt=0"`
	SellerID  int64 `json:"sellerId" validate:"required,gt=0,nefield=BuyerID"`
}

// SendMessageRequest is the body of POST /api/messages.
type SendMessageRequest struct {
	ConversationID int64  `json:"conversationId" validate:"required,gt=0"`
	SenderID       int64  `json:"senderId" validate:"required,gt=0"`
	Content        string `json:"content" validate:"required,max=4000"`
}

// MarkReadRequest is the body of POST /api/conversations/{id}/read.
type MarkReadRequest struct {
	UserID int64 `json:"userId" validate:"required,gt=0"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateRequest runs struct tags and converts failures into a domain.ValidationError.
func (a *App) validateRequest(req any) error {
	err := a.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]domain.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, domain.FieldError{Field: fieldPath(fe), Message: fieldMessage(fe)})
	}
	return &domain.ValidationError{Fields: fields}
}

// fieldPath drops the struct name prefix: "CreateListingRequest.images[0]" -> "images[0]".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must have at most %s items", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "nefield":
		return "must differ from buyerId"
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}
