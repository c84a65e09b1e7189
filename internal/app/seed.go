package app

import (
	"fmt"
	"log/slog"

	"tablica/pkg/auth"
	"tablica/pkg/domain"
	"tablica/pkg/store"
)

const (
	demoUsername = "Filipdudzik"
	demoPassword = "1234"
	demoLocation = "Kraków"
)

var demoListings = []domain.NewListing{
	{
		Title:       "AUTO",
		Description: "AUTOAUTOAUTOAUTOAUTO",
		Price:       "299",
		Category:    "akcesoria",
		Negotiable:  true,
		Images:      []string{"https://images.unsplash.com/photo-1503376780353-7e6692767b70?w=600&auto=format&fit=crop"},
	},
	{
		Title:       "Buty",
		Description: "Nowe buty 123123123123.",
		Price:       "999",
		Category:    "obuwie",
		Negotiable:  false,
		Images:      []string{"https://images.unsplash.com/photo-1595950653106-6c9ebd614d3a?w=600&auto=format&fit=crop"},
	},
	{
		Title:       "ŁADOWARKA TURBO",
		Description: "Ładowarka do laptopa",
		Price:       "1",
		Category:    "akcesoria",
		Negotiable:  true,
		Images:      []string{"https://images.unsplash.com/photo-1583863788434-e58a36330cf0?w=600&auto=format&fit=crop"},
	},
	{
		Title:       "Samochód elektroniczny",
		Description: "Tesla samochoód elektroniczny",
		Price:       "1200",
		Category:    "elektronika",
		Negotiable:  true,
		Images:      []string{"https://images.unsplash.com/photo-1585011664466-b7bbe92f34ef?w=600&auto=format&fit=crop"},
	},
}

// SeedDemoData creates the demo user and its listings when the store has no
// users yet. It reports whether anything was written.
func SeedDemoData(s store.Store) (bool, error) {
	count, err := s.UserCount()
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return false, nil
	}
	hash, err := auth.HashPassword(demoPassword)
	if err != nil {
		return false, fmt.Errorf("hash demo password: %w", err)
	}
	user, err := s.CreateUser(domain.NewUser{
		Username:     demoUsername,
		PasswordHash: hash,
		Name:         "Filip Dudzik",
		Location:     demoLocation,
	})
	if err != nil {
		return false, fmt.Errorf("create demo user: %w", err)
	}
	for _, l := range demoListings {
		l.OwnerID = user.ID
		l.Location = demoLocation
		if _, err := s.CreateListing(l); err != nil {
			return false, fmt.Errorf("create demo listing %q: %w", l.Title, err)
		}
	}
	slog.Info("demo data seeded", "user_id", user.ID, "listings", len(demoListings))
	return true, nil
}
