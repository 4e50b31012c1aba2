package ports

import (
	"context"
	"io"

	"github.com/k-shtanenko/weather-app/weather-poller/internal/domain/entities"
)

type ReportExporter interface {
	Export(ctx context.Context, readings []*entities.Reading, w io.Writer) error
}
