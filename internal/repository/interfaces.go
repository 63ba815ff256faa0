package repository

import (
	"context"

	"github.com/iconidentify/vidgrab/internal/domain"
)

// DeliveryRepository hands finished downloads from the request that
// produced them to the request that serves the bytes.
type DeliveryRepository interface {
	// Put stores a result and returns the token that retrieves it.
	Put(ctx context.Context, result *domain.DownloadResult) (string, error)

	// Take returns the result for token and forgets it. A second Take for
	// the same token returns domain.ErrDeliveryNotFound.
	Take(ctx context.Context, token string) (*domain.DownloadResult, error)

	// Stats returns what is currently waiting to be collected.
	Stats(ctx context.Context) (*DeliveryStats, error)

	// Sweep drops expired results and reports how many it dropped.
	Sweep(ctx context.Context) (int, error)
}

// DeliveryStats holds delivery store statistics.
type DeliveryStats struct {
	Pending int   `json:"pending"`
	Bytes   int64 `json:"bytes"`
}
