package providers

import (
	"context"

	"github.com/pharmiliar/cost-engine/internal/domain/entities"
)

// QueryAnalyzer is the boundary to the external analysis collaborator.
// Implementations may fail or time out; callers must degrade to a
// deterministic fallback rather than propagate the failure.
type QueryAnalyzer interface {
	Analyze(ctx context.Context, query string) (*entities.QueryAnalysis, error)
}
