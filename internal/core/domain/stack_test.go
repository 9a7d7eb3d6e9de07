package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Stack Creation Tests
// =============================================================================

func TestNewStack_ValidInput(t *testing.T) {
	variant := createValidVariant()
	variables := map[string]string{"POSTGRES_PASSWORD": "secret"}

	stack, err := NewStack(variant, "", variables)
	require.NoError(t, err)

	assert.NotEmpty(t, stack.ID)
	assert.Contains(t, stack.Name, "notes-worker-")
	assert.Equal(t, variant.Name, stack.Variant)
	assert.Equal(t, variant.ComposeYAML, stack.ComposeYAML)
	assert.Equal(t, StatusPending, stack.Status)
	assert.Equal(t, HealthStatusUnknown, stack.Health)
	assert.Equal(t, "secret", stack.Variables["POSTGRES_PASSWORD"])
	assert.NotZero(t, stack.CreatedAt)
}

func TestNewStack_ExplicitName(t *testing.T) {
	variant := createValidVariant()
	variables := map[string]string{"POSTGRES_PASSWORD": "secret"}

	stack, err := NewStack(variant, "team-notes", variables)
	require.NoError(t, err)

	assert.Equal(t, "team-notes", stack.Name)
}

func TestNewStack_MissingRequiredVariable(t *testing.T) {
	variant := createValidVariant()
	variables := map[string]string{} // Missing POSTGRES_PASSWORD

	_, err := NewStack(variant, "", variables)
	assert.ErrorIs(t, err, ErrMissingVariable)
}

// =============================================================================
// Name Generation Tests
// =============================================================================

func TestGenerateStackName(t *testing.T) {
	name := GenerateStackName("notes-worker")

	assert.Contains(t, name, "notes-worker-")
	assert.Len(t, name, len("notes-worker-")+6) // 6 char suffix
}

func TestGenerateStackName_SlugifiesVariantName(t *testing.T) {
	name := GenerateStackName("Notes Worker")

	assert.Contains(t, name, "notes-worker-")
}

func TestGenerateStackName_UniqueSuffix(t *testing.T) {
	name1 := GenerateStackName("test")
	name2 := GenerateStackName("test")

	assert.NotEqual(t, name1, name2)
}

// =============================================================================
// Status Transition Tests
// =============================================================================

func TestStack_Transition_PendingToStarting(t *testing.T) {
	stack := createPendingStack()

	err := stack.Transition(StatusStarting)
	assert.NoError(t, err)
	assert.Equal(t, StatusStarting, stack.Status)
}

func TestStack_Transition_StartingToRunning(t *testing.T) {
	stack := createPendingStack()
	stack.Status = StatusStarting

	err := stack.Transition(StatusRunning)
	assert.NoError(t, err)
	assert.Equal(t, StatusRunning, stack.Status)
	assert.NotZero(t, stack.StartedAt)
}

func TestStack_Transition_RunningToStopping(t *testing.T) {
	stack := createPendingStack()
	stack.Status = StatusRunning

	err := stack.Transition(StatusStopping)
	assert.NoError(t, err)
	assert.Equal(t, StatusStopping, stack.Status)
}

func TestStack_Transition_StoppingToStopped(t *testing.T) {
	stack := createPendingStack()
	stack.Status = StatusStopping

	err := stack.Transition(StatusStopped)
	assert.NoError(t, err)
	assert.Equal(t, StatusStopped, stack.Status)
	assert.NotZero(t, stack.StoppedAt)
}

func TestStack_Transition_StoppedToStarting(t *testing.T) {
	stack := createPendingStack()
	stack.Status = StatusStopped

	err := stack.Transition(StatusStarting)
	assert.NoError(t, err)
	assert.Equal(t, StatusStarting, stack.Status)
}

func TestStack_Transition_ToFailed(t *testing.T) {
	statuses := []StackStatus{StatusStarting, StatusRunning, StatusStopping, StatusRemoving}
	for _, status := range statuses {
		t.Run(string(status), func(t *testing.T) {
			stack := createPendingStack()
			stack.Status = status

			err := stack.TransitionToFailed("something went wrong")
			assert.NoError(t, err)
			assert.Equal(t, StatusFailed, stack.Status)
			assert.Equal(t, "something went wrong", stack.ErrorMessage)
		})
	}
}

func TestStack_TransitionToFailed_FromPending_Invalid(t *testing.T) {
	stack := createPendingStack()

	err := stack.TransitionToFailed("boom")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatusPending, stack.Status)
}

func TestStack_Transition_FailedToStarting(t *testing.T) {
	stack := createPendingStack()
	stack.Status = StatusFailed
	stack.ErrorMessage = "previous error"

	err := stack.Transition(StatusStarting)
	assert.NoError(t, err)
	assert.Equal(t, StatusStarting, stack.Status)
	assert.Empty(t, stack.ErrorMessage) // Error cleared on retry
}

// =============================================================================
// Invalid Transition Tests
// =============================================================================

func TestStack_Transition_PendingToRunning_Invalid(t *testing.T) {
	stack := createPendingStack()

	err := stack.Transition(StatusRunning)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatusPending, stack.Status) // Unchanged
}

func TestStack_Transition_RunningToStarting_Invalid(t *testing.T) {
	stack := createPendingStack()
	stack.Status = StatusRunning

	err := stack.Transition(StatusStarting)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestStack_Transition_RemovedToAnything_Invalid(t *testing.T) {
	stack := createPendingStack()
	stack.Status = StatusRemoved

	err := stack.Transition(StatusStarting)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

// =============================================================================
// ValidateTransition Tests
// =============================================================================

func TestValidateTransition_AllValid(t *testing.T) {
	validTransitions := []struct {
		from StackStatus
		to   StackStatus
	}{
		{StatusPending, StatusStarting},
		{StatusPending, StatusRemoving},
		{StatusStarting, StatusRunning},
		{StatusStarting, StatusFailed},
		{StatusRunning, StatusStopping},
		{StatusRunning, StatusStopped},
		{StatusRunning, StatusFailed},
		{StatusStopping, StatusStopped},
		{StatusStopped, StatusStarting},
		{StatusStopped, StatusRemoving},
		{StatusRemoving, StatusRemoved},
		{StatusFailed, StatusStarting},
		{StatusFailed, StatusRemoving},
	}

	for _, tc := range validTransitions {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			err := ValidateTransition(tc.from, tc.to)
			assert.NoError(t, err)
		})
	}
}

func TestValidateTransition_AllInvalid(t *testing.T) {
	invalidTransitions := []struct {
		from StackStatus
		to   StackStatus
	}{
		{StatusPending, StatusRunning},
		{StatusPending, StatusStopped},
		{StatusRunning, StatusPending},
		{StatusRunning, StatusStarting},
		{StatusStopped, StatusRunning},
		{StatusRemoved, StatusRunning},
		{StatusRemoved, StatusStarting},
	}

	for _, tc := range invalidTransitions {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			err := ValidateTransition(tc.from, tc.to)
			assert.ErrorIs(t, err, ErrInvalidTransition)
		})
	}
}

// =============================================================================
// Derived Status Tests
// =============================================================================

func TestDeriveStatus_AllRunning(t *testing.T) {
	services := []ServiceInfo{
		{Service: "db", State: "running"},
		{Service: "app", State: "running"},
	}

	status, changed := DeriveStatus(StatusRunning, services)
	assert.Equal(t, StatusRunning, status)
	assert.False(t, changed)
}

func TestDeriveStatus_AllExitedCleanly(t *testing.T) {
	services := []ServiceInfo{
		{Service: "db", State: "exited", ExitCode: 0},
		{Service: "app", State: "exited", ExitCode: 0},
	}

	status, changed := DeriveStatus(StatusRunning, services)
	assert.Equal(t, StatusStopped, status)
	assert.True(t, changed)
}

func TestDeriveStatus_OneExitedNonzero(t *testing.T) {
	services := []ServiceInfo{
		{Service: "db", State: "exited", ExitCode: 0},
		{Service: "app", State: "exited", ExitCode: 1},
	}

	status, changed := DeriveStatus(StatusRunning, services)
	assert.Equal(t, StatusFailed, status)
	assert.True(t, changed)
}

func TestDeriveStatus_RestartingKeepsRunning(t *testing.T) {
	services := []ServiceInfo{
		{Service: "db", State: "running"},
		{Service: "app", State: "restarting"},
	}

	status, changed := DeriveStatus(StatusRunning, services)
	assert.Equal(t, StatusRunning, status)
	assert.False(t, changed)
}

func TestDeriveStatus_DeadContainer(t *testing.T) {
	services := []ServiceInfo{
		{Service: "db", State: "dead"},
		{Service: "app", State: "exited", ExitCode: 0},
	}

	status, changed := DeriveStatus(StatusRunning, services)
	assert.Equal(t, StatusFailed, status)
	assert.True(t, changed)
}

func TestDeriveStatus_StoppedStackUnchanged(t *testing.T) {
	services := []ServiceInfo{
		{Service: "db", State: "exited", ExitCode: 1},
	}

	status, changed := DeriveStatus(StatusStopped, services)
	assert.Equal(t, StatusStopped, status)
	assert.False(t, changed)
}

func TestDeriveStatus_NoObservations(t *testing.T) {
	status, changed := DeriveStatus(StatusRunning, nil)
	assert.Equal(t, StatusRunning, status)
	assert.False(t, changed)
}

// =============================================================================
// Variable Validation Tests
// =============================================================================

func TestValidateStackVariables_AllRequired(t *testing.T) {
	variant := createValidVariant()
	variables := map[string]string{
		"POSTGRES_PASSWORD": "secret",
	}

	errs := ValidateStackVariables(variant.Variables, variables)
	assert.Empty(t, errs)
}

func TestValidateStackVariables_MissingRequired(t *testing.T) {
	variant := createValidVariant()
	variables := map[string]string{} // Missing POSTGRES_PASSWORD

	errs := ValidateStackVariables(variant.Variables, variables)
	assert.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrMissingVariable)
}

func TestValidateStackVariables_RequiredWithDefault(t *testing.T) {
	vars := []Variable{
		{Name: "LOG_LEVEL", Label: "Log Level", Type: VarTypeString, Required: true, Default: "info"},
	}

	errs := ValidateStackVariables(vars, map[string]string{})
	assert.Empty(t, errs)
}

func TestValidateStackVariables_OptionalMissing(t *testing.T) {
	variant := createValidVariant()
	variant.Variables = append(variant.Variables, Variable{
		Name:     "OPTIONAL_VAR",
		Label:    "Optional",
		Type:     VarTypeString,
		Required: false,
	})
	variables := map[string]string{
		"POSTGRES_PASSWORD": "secret",
		// OPTIONAL_VAR not provided - should be fine
	}

	errs := ValidateStackVariables(variant.Variables, variables)
	assert.Empty(t, errs)
}

func TestResolveVariables_DefaultsApplied(t *testing.T) {
	vars := []Variable{
		{Name: "LOG_LEVEL", Type: VarTypeString, Default: "info"},
		{Name: "POSTGRES_PASSWORD", Type: VarTypePassword, Required: true},
	}

	resolved := ResolveVariables(vars, map[string]string{"POSTGRES_PASSWORD": "secret"})
	assert.Equal(t, "info", resolved["LOG_LEVEL"])
	assert.Equal(t, "secret", resolved["POSTGRES_PASSWORD"])
}

func TestResolveVariables_ProvidedWins(t *testing.T) {
	vars := []Variable{
		{Name: "LOG_LEVEL", Type: VarTypeString, Default: "info"},
	}

	resolved := ResolveVariables(vars, map[string]string{"LOG_LEVEL": "debug"})
	assert.Equal(t, "debug", resolved["LOG_LEVEL"])
}

// =============================================================================
// Test Helpers
// =============================================================================

func createValidVariant() Variant {
	return Variant{
		ReferenceID: "var_abc12345",
		Name:        "notes-worker",
		Slug:        "notes-worker",
		Version:     "1.0.0",
		ComposeYAML: "services:\n  db:\n    image: postgres:15\n",
		Variables: []Variable{
			{Name: "POSTGRES_PASSWORD", Label: "Database Password", Type: VarTypePassword, Required: true},
		},
	}
}

func createPendingStack() *Stack {
	return &Stack{
		ID:        "stack-123",
		Name:      "notes-worker-abc123",
		Variant:   "notes-worker",
		Status:    StatusPending,
		Variables: map[string]string{"POSTGRES_PASSWORD": "secret"},
	}
}
