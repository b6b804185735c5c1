// internal/catalog/service.go
package catalog

import "context"

// Service defines the interface for the catalog and its ratings.
type Service interface {
	ListBooks(ctx context.Context) ([]Book, error)
	GetBook(ctx context.Context, id int64) (*Book, error)
	SearchBooks(ctx context.Context, query string) ([]Book, error)
	AddBook(ctx context.Context, in NewBook) (*Book, error)
	BookRatings(ctx context.Context, bookID int64) ([]Rating, error)
	Rate(ctx context.Context, in RateInput) (*RateResult, error)
}
