package plan

import (
	"testing"
	"time"

	"github.com/artpar/stackd/internal/core/compose"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// VerifyStartOrder Tests
// =============================================================================

func notesServices() []compose.Service {
	return []compose.Service{
		{Name: "db"},
		{Name: "redis"},
		{Name: "app", DependsOn: deps("db")},
		{Name: "celery_worker", DependsOn: deps("app", "redis")},
	}
}

func TestVerifyStartOrder_Consistent(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	startedAt := map[string]time.Time{
		"db":            base,
		"redis":         base.Add(50 * time.Millisecond),
		"app":           base.Add(2 * time.Second),
		"celery_worker": base.Add(4 * time.Second),
	}

	errs := VerifyStartOrder(notesServices(), startedAt)

	assert.Empty(t, errs)
}

func TestVerifyStartOrder_DependencyStartedAfterDependent(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	startedAt := map[string]time.Time{
		"db":            base.Add(3 * time.Second), // after app
		"redis":         base,
		"app":           base.Add(1 * time.Second),
		"celery_worker": base.Add(5 * time.Second),
	}

	errs := VerifyStartOrder(notesServices(), startedAt)

	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrStartOrderViolated)
	assert.Contains(t, errs[0].Error(), `"app"`)
	assert.Contains(t, errs[0].Error(), `"db"`)
}

func TestVerifyStartOrder_EqualTimestampsAllowed(t *testing.T) {
	// "Started before" is not strict: simultaneous container starts
	// (timestamp granularity) do not violate the guarantee.
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	startedAt := map[string]time.Time{
		"db":            base,
		"redis":         base,
		"app":           base,
		"celery_worker": base,
	}

	errs := VerifyStartOrder(notesServices(), startedAt)

	assert.Empty(t, errs)
}

func TestVerifyStartOrder_MissingTimestamp(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	startedAt := map[string]time.Time{
		"db":    base,
		"redis": base,
		"app":   base.Add(time.Second),
		// celery_worker missing
	}

	errs := VerifyStartOrder(notesServices(), startedAt)

	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrStartTimeMissing)
	assert.Contains(t, errs[0].Error(), "celery_worker")
}

func TestVerifyStartOrder_MissingDependencyTimestampSkipsEdge(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	startedAt := map[string]time.Time{
		"redis":         base,
		"app":           base.Add(time.Second),
		"celery_worker": base.Add(2 * time.Second),
		// db missing: reported once, the app→db edge is not judged
	}

	errs := VerifyStartOrder(notesServices(), startedAt)

	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrStartTimeMissing)
}

func TestVerifyStartOrder_MultipleViolations(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	startedAt := map[string]time.Time{
		"db":            base.Add(10 * time.Second),
		"redis":         base.Add(10 * time.Second),
		"app":           base,
		"celery_worker": base.Add(time.Second),
	}

	errs := VerifyStartOrder(notesServices(), startedAt)

	// app→db, worker→app is fine (1s after 0s), worker→redis violated
	violations := 0
	for _, err := range errs {
		if assert.ErrorIs(t, err, ErrStartOrderViolated) {
			violations++
		}
	}
	assert.Equal(t, 2, violations)
}

func TestVerifyStartOrder_ErrorsSortedByService(t *testing.T) {
	services := []compose.Service{
		{Name: "zeta"},
		{Name: "alpha"},
	}

	errs := VerifyStartOrder(services, map[string]time.Time{})

	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), "alpha")
	assert.Contains(t, errs[1].Error(), "zeta")
}

func TestVerifyStartOrder_NoServices(t *testing.T) {
	errs := VerifyStartOrder(nil, map[string]time.Time{})
	assert.Empty(t, errs)
}
