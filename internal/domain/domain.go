// Package domain re-exports the persisted model types so callers outside the
// data layer need only one import.
package domain

import (
	"github.com/yungbote/materialgen-backend/internal/domain/generation"
	"github.com/yungbote/materialgen-backend/internal/domain/jobs"
)

type Generation = generation.Generation
type GenerationJob = jobs.GenerationJob

// Models lists every table-backed type, in migration order.
func Models() []any {
	return []any{
		&Generation{},
		&GenerationJob{},
	}
}
