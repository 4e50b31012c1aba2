package ports

import (
	"context"

	"github.com/k-shtanenko/weather-app/weather-poller/internal/domain/entities"
)

// ReadingWriter persists readings. Implementations only ever append.
type ReadingWriter interface {
	Append(ctx context.Context, reading *entities.Reading) error
}

type ReadingSource interface {
	ReadAll(ctx context.Context) ([]*entities.Reading, error)
}
