package marketplace

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/oggyb/rotrade-sync/internal/model"
)

// SeedOptions sizes the demo dataset.
type SeedOptions struct {
	Users           int
	ListingsPerUser int
	Password        string
}

var demoGames = []string{
	"https://www.roblox.com/games/920587237/Adopt-Me",
	"https://www.roblox.com/games/2753915549/Blox-Fruits",
	"https://www.roblox.com/games/4924922222/Brookhaven-RP",
	"",
}

var demoItems = []string{"Shadow Dragon", "Frost Fury", "Golden Sword", "Neon Unicorn", "Leopard Fruit", "VIP Pass"}

// SeedDemoData resets the store and populates it with demo data.
//
// Behavior:
//  1. Clears every key in the store namespace.
//  2. Creates the support account and opts.Users demo users (user1..userN),
//     all with opts.Password.
//  3. Creates listings, a few conversations and reviews between them.
//
// Everything goes through the service, so the data obeys the same rules as
// user-created data.
func SeedDemoData(ctx context.Context, s *Service, opts SeedOptions) error {
	if opts.Users <= 1 {
		opts.Users = 5
	}
	if opts.ListingsPerUser <= 0 {
		opts.ListingsPerUser = 2
	}
	if opts.Password == "" {
		opts.Password = "password"
	}
	r := rand.New(rand.NewSource(s.appCtx.Now().UnixNano()))

	// --- Fresh start ---
	if err := s.appCtx.Store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear store: %w", err)
	}
	s.appCtx.Logger.Info("cleared existing data")

	// --- Users ---
	if _, err := s.Register(ctx, model.Credentials{Username: s.SupportUsername(), Password: opts.Password}); err != nil {
		return fmt.Errorf("failed to create support account: %w", err)
	}
	users := make([]*model.User, 0, opts.Users)
	for i := 1; i <= opts.Users; i++ {
		u, err := s.Register(ctx, model.Credentials{Username: fmt.Sprintf("user%d", i), Password: opts.Password})
		if err != nil {
			return fmt.Errorf("failed to create user%d: %w", i, err)
		}
		users = append(users, u)
	}

	// --- Listings ---
	for _, u := range users {
		for j := 0; j < opts.ListingsPerUser; j++ {
			item := demoItems[r.Intn(len(demoItems))]
			_, err := s.CreateListing(ctx, model.ListingInput{
				UserID:      u.ID,
				Title:       item,
				Description: fmt.Sprintf("%s from %s, trade only", item, u.Username),
				GameURL:     demoGames[r.Intn(len(demoGames))],
			})
			if err != nil {
				return fmt.Errorf("failed to create listing: %w", err)
			}
		}
	}

	// --- Conversations and reviews between neighbours ---
	for i := 0; i+1 < len(users); i++ {
		a, b := users[i], users[i+1]
		if _, err := s.SendMessage(ctx, model.MessageInput{FromUserID: a.ID, ToUserID: b.ID, Content: "Hi! Is your listing still available?"}); err != nil {
			return fmt.Errorf("failed to send message: %w", err)
		}
		if _, err := s.SendMessage(ctx, model.MessageInput{FromUserID: b.ID, ToUserID: a.ID, Content: "Yes, what do you offer?"}); err != nil {
			return fmt.Errorf("failed to send message: %w", err)
		}
		if _, err := s.CreateReview(ctx, model.ReviewInput{FromUserID: a.ID, ToUserID: b.ID, Rating: 3 + r.Intn(3), Comment: "Smooth trade"}); err != nil {
			return fmt.Errorf("failed to create review: %w", err)
		}
	}

	s.appCtx.Logger.Info("seeded demo data", "users", len(users)+1, "listings", len(users)*opts.ListingsPerUser)
	return nil
}
