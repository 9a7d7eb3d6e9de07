package plan

import (
	"testing"

	"github.com/artpar/stackd/internal/core/compose"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// deps builds a started-condition dependency list from service names.
func deps(names ...string) []compose.Dependency {
	out := make([]compose.Dependency, 0, len(names))
	for _, name := range names {
		out = append(out, compose.Dependency{Service: name, Condition: compose.ConditionStarted})
	}
	return out
}

// =============================================================================
// Waves Tests
// =============================================================================

func TestWaves_Empty(t *testing.T) {
	assert.Nil(t, Waves([]compose.Service{}))
}

func TestWaves_SingleService(t *testing.T) {
	waves := Waves([]compose.Service{{Name: "db"}})

	require.Len(t, waves, 1)
	require.Len(t, waves[0], 1)
	assert.Equal(t, "db", waves[0][0].Name)
}

func TestWaves_NotesStackShape(t *testing.T) {
	// db and redis have no dependencies, app needs db, worker needs app+redis
	services := []compose.Service{
		{Name: "app", DependsOn: deps("db")},
		{Name: "celery_worker", DependsOn: deps("app", "redis")},
		{Name: "db"},
		{Name: "redis"},
	}

	waves := Waves(services)

	require.Len(t, waves, 3)
	require.Len(t, waves[0], 2)
	assert.Equal(t, "db", waves[0][0].Name)
	assert.Equal(t, "redis", waves[0][1].Name)
	require.Len(t, waves[1], 1)
	assert.Equal(t, "app", waves[1][0].Name)
	require.Len(t, waves[2], 1)
	assert.Equal(t, "celery_worker", waves[2][0].Name)
}

func TestWaves_SortedWithinWave(t *testing.T) {
	services := []compose.Service{
		{Name: "redis"},
		{Name: "db"},
		{Name: "prometheus"},
	}

	waves := Waves(services)

	require.Len(t, waves, 1)
	assert.Equal(t, "db", waves[0][0].Name)
	assert.Equal(t, "prometheus", waves[0][1].Name)
	assert.Equal(t, "redis", waves[0][2].Name)
}

func TestWaves_SelfDependencyIgnored(t *testing.T) {
	services := []compose.Service{
		{Name: "app", DependsOn: deps("app")},
	}

	waves := Waves(services)

	require.Len(t, waves, 1)
	assert.Equal(t, "app", waves[0][0].Name)
}

func TestWaves_CycleFallbackWave(t *testing.T) {
	services := []compose.Service{
		{Name: "a", DependsOn: deps("b")},
		{Name: "b", DependsOn: deps("a")},
		{Name: "c"},
	}

	waves := Waves(services)

	require.Len(t, waves, 2)
	assert.Equal(t, "c", waves[0][0].Name)
	require.Len(t, waves[1], 2)
	assert.Equal(t, "a", waves[1][0].Name)
	assert.Equal(t, "b", waves[1][1].Name)
}

// =============================================================================
// TopologicalSort Tests
// =============================================================================

func TestTopologicalSort_Empty(t *testing.T) {
	services := []compose.Service{}
	result := TopologicalSort(services)
	assert.Empty(t, result)
}

func TestTopologicalSort_SingleService(t *testing.T) {
	services := []compose.Service{
		{Name: "app"},
	}
	result := TopologicalSort(services)
	assert.Len(t, result, 1)
	assert.Equal(t, "app", result[0].Name)
}

func TestTopologicalSort_NoDependencies(t *testing.T) {
	services := []compose.Service{
		{Name: "app"},
		{Name: "db"},
		{Name: "redis"},
	}
	result := TopologicalSort(services)
	assert.Len(t, result, 3)

	names := make(map[string]bool)
	for _, s := range result {
		names[s.Name] = true
	}
	assert.True(t, names["app"])
	assert.True(t, names["db"])
	assert.True(t, names["redis"])
}

func TestTopologicalSort_LinearDependencies(t *testing.T) {
	// worker depends on app, app depends on db
	services := []compose.Service{
		{Name: "worker", DependsOn: deps("app")},
		{Name: "app", DependsOn: deps("db")},
		{Name: "db"},
	}
	result := TopologicalSort(services)

	dbIdx, appIdx, workerIdx := -1, -1, -1
	for i, s := range result {
		switch s.Name {
		case "db":
			dbIdx = i
		case "app":
			appIdx = i
		case "worker":
			workerIdx = i
		}
	}
	assert.Less(t, dbIdx, appIdx, "db should come before app")
	assert.Less(t, appIdx, workerIdx, "app should come before worker")
}

func TestTopologicalSort_DiamondDependencies(t *testing.T) {
	// worker depends on app and cache, both depend on db
	//      worker
	//      /    \
	//    app   cache
	//      \    /
	//       db
	services := []compose.Service{
		{Name: "worker", DependsOn: deps("app", "cache")},
		{Name: "app", DependsOn: deps("db")},
		{Name: "cache", DependsOn: deps("db")},
		{Name: "db"},
	}
	result := TopologicalSort(services)

	indices := make(map[string]int)
	for i, s := range result {
		indices[s.Name] = i
	}

	assert.Equal(t, 0, indices["db"], "db should be first")
	assert.Equal(t, 3, indices["worker"], "worker should be last")
	assert.Less(t, indices["db"], indices["app"])
	assert.Less(t, indices["db"], indices["cache"])
	assert.Less(t, indices["app"], indices["worker"])
	assert.Less(t, indices["cache"], indices["worker"])
}

func TestTopologicalSort_MultipleRoots(t *testing.T) {
	// Two independent chains: app→db and worker→redis
	services := []compose.Service{
		{Name: "app", DependsOn: deps("db")},
		{Name: "db"},
		{Name: "worker", DependsOn: deps("redis")},
		{Name: "redis"},
	}
	result := TopologicalSort(services)

	indices := make(map[string]int)
	for i, s := range result {
		indices[s.Name] = i
	}

	assert.Less(t, indices["db"], indices["app"])
	assert.Less(t, indices["redis"], indices["worker"])
}

func TestTopologicalSort_CycleFallback(t *testing.T) {
	// Note: cycles should be caught by the compose parser.
	// This tests the fallback behavior.
	services := []compose.Service{
		{Name: "a", DependsOn: deps("b")},
		{Name: "b", DependsOn: deps("a")},
	}
	result := TopologicalSort(services)
	assert.Len(t, result, 2)

	names := make(map[string]bool)
	for _, s := range result {
		names[s.Name] = true
	}
	assert.True(t, names["a"])
	assert.True(t, names["b"])
}

func TestTopologicalSort_DeepChain(t *testing.T) {
	// a → b → c → d → e
	services := []compose.Service{
		{Name: "a", DependsOn: deps("b")},
		{Name: "b", DependsOn: deps("c")},
		{Name: "c", DependsOn: deps("d")},
		{Name: "d", DependsOn: deps("e")},
		{Name: "e"},
	}
	result := TopologicalSort(services)

	expected := []string{"e", "d", "c", "b", "a"}
	for i, name := range expected {
		assert.Equal(t, name, result[i].Name)
	}
}

func TestTopologicalSort_PreservesServiceData(t *testing.T) {
	services := []compose.Service{
		{
			Name:        "app",
			Image:       "notesapp:latest",
			DependsOn:   deps("db"),
			Environment: map[string]string{"PORT": "8000"},
		},
		{
			Name:  "db",
			Image: "postgres:15",
		},
	}
	result := TopologicalSort(services)

	var appService compose.Service
	for _, s := range result {
		if s.Name == "app" {
			appService = s
			break
		}
	}

	assert.Equal(t, "notesapp:latest", appService.Image)
	assert.Equal(t, []string{"db"}, appService.DependencyNames())
	assert.Equal(t, "8000", appService.Environment["PORT"])
}

func TestTopologicalSort_MissingDependency(t *testing.T) {
	// app depends on "db" but db is not in the list. Unresolved references
	// are a validation concern; ordering just skips the edge.
	services := []compose.Service{
		{Name: "app", DependsOn: deps("db")},
	}
	result := TopologicalSort(services)

	assert.Len(t, result, 1)
	assert.Equal(t, "app", result[0].Name)
}

func TestTopologicalSort_ConditionDoesNotAffectOrder(t *testing.T) {
	// Healthy and started conditions produce identical ordering; the
	// condition describes what a wait would watch, not when starts happen.
	services := []compose.Service{
		{Name: "app", DependsOn: []compose.Dependency{{Service: "db", Condition: compose.ConditionHealthy}}},
		{Name: "db"},
	}
	result := TopologicalSort(services)

	require.Len(t, result, 2)
	assert.Equal(t, "db", result[0].Name)
	assert.Equal(t, "app", result[1].Name)
}
