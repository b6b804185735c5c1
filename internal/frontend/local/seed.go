// internal/frontend/local/seed.go
package local

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"librent/internal/circulation"
	"librent/internal/membership"
)

// The seeded administrator signs in with admin / admin.
const (
	seedAdminEmail    = "admin"
	seedAdminPassword = "admin"
	seedAdminPoints   = 9999
)

var seedBooks = []bookRecord{
	{Title: "Software Engineering", Author: "Ian Sommerville", Category: "Technology"},
	{Title: "Clean Code", Author: "Robert C. Martin", Category: "Technology"},
	{Title: "The Pragmatic Programmer", Author: "Andrew Hunt", Category: "Technology"},
	{Title: "Sapiens", Author: "Yuval Noah Harari", Category: "History"},
	{Title: "1984", Author: "George Orwell", Category: "Fiction"},
	{Title: "Animal Farm", Author: "George Orwell", Category: "Fiction"},
	{Title: "The Hobbit", Author: "J.R.R. Tolkien", Category: "Fantasy"},
	{Title: "Artificial Intelligence", Author: "Stuart Russell", Category: "Technology"},
}

func (s *Store) seed(d *snapshot) error {
	now := s.now().UTC()

	d.Tiers = []circulation.Tier{
		{ID: 1, Name: "Basic", DurationDays: 15},
		{ID: 2, Name: "Advanced", DurationDays: 30},
		{ID: 3, Name: "Expert", DurationDays: 60},
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seedAdminPassword), s.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	admin := account{
		ID:           d.nextID("users"),
		Name:         "Administrator",
		Email:        seedAdminEmail,
		PasswordHash: string(hash),
		Role:         membership.RoleAdmin,
		Active:       true,
		CreatedAt:    now,
	}
	d.Users = append(d.Users, admin)
	credit(d, admin.ID, seedAdminPoints, "initial balance", now)

	for _, b := range seedBooks {
		b.ID = d.nextID("books")
		d.Books = append(d.Books, b)
	}

	d.Posts = append(d.Posts, postRecord{
		ID:        d.nextID("posts"),
		UserID:    admin.ID,
		Content:   "Welcome to the community! Share what you are reading.",
		Active:    true,
		CreatedAt: now,
	})
	return nil
}
