package ports

import (
	"context"

	"github.com/k-shtanenko/weather-app/weather-poller/internal/domain/entities"
)

type Fetcher interface {
	Fetch(ctx context.Context, city string) (*entities.Reading, error)
}
