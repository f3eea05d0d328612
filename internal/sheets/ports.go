package sheets

import (
	"context"

	"cashflow/internal/core"
	"cashflow/internal/projection"
)

// ProjectionExporter publishes a projection snapshot to an external sheet.
type ProjectionExporter interface {
	ExportProjection(ctx context.Context, today core.Date, results []projection.Result) error
}
