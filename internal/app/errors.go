package app

import (
	"errors"
	"fmt"

	"tablica/pkg/domain"
)

// Not-found errors per resource. All of them match domain.ErrNotFound.
var (
	ErrListingNotFound      = fmt.Errorf("listing %w", domain.ErrNotFound)
	ErrConversationNotFound = fmt.Errorf("conversation %w", domain.ErrNotFound)
	ErrUserNotFound         = fmt.Errorf("user %w", domain.ErrNotFound)
	ErrFavoriteNotFound     = fmt.Errorf("favorite %w", domain.ErrNotFound)
)

// asNotFound replaces a store-level not-found error with the resource sentinel.
func asNotFound(err error, sentinel error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return sentinel
	}
	return err
}
