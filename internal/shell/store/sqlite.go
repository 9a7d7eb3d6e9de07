package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/artpar/stackd/internal/core/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Timestamps are stored as RFC3339Nano strings. Container start times carry
// sub-second precision and rounding them away would make equal-looking
// timestamps out of distinct start instants.
const timeFormat = time.RFC3339Nano

// =============================================================================
// Executor Interface - Shared by DB and Transaction
// =============================================================================

// executor abstracts database operations that can be performed on both
// a database connection and a transaction.
type executor interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	// The monitor worker and the API write through the same file, so wait
	// on locks instead of failing with SQLITE_BUSY.
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to open database", ErrConnectionFailed)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to ping database", ErrConnectionFailed)
	}

	// Run migrations
	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// Variant Operations
// =============================================================================

// variantRow represents a variant row in the database.
type variantRow struct {
	ID          int     `db:"id"`
	ReferenceID string  `db:"reference_id"`
	Name        string  `db:"name"`
	Slug        string  `db:"slug"`
	Description string  `db:"description"`
	Version     string  `db:"version"`
	ComposeYAML string  `db:"compose_yaml"`
	Variables   *string `db:"variables"`
	ConfigFiles *string `db:"config_files"`
	CreatedAt   string  `db:"created_at"`
	UpdatedAt   string  `db:"updated_at"`
}

func (s *SQLiteStore) UpsertVariant(ctx context.Context, variant *domain.Variant) error {
	return upsertVariant(ctx, s.db, variant)
}

func (s *SQLiteStore) GetVariant(ctx context.Context, slug string) (*domain.Variant, error) {
	return getVariant(ctx, s.db, slug)
}

func (s *SQLiteStore) ListVariants(ctx context.Context, opts ListOptions) ([]domain.Variant, error) {
	return listVariants(ctx, s.db, opts)
}

// =============================================================================
// Stack Operations
// =============================================================================

// stackRow represents a stack row in the database.
type stackRow struct {
	ID           string  `db:"id"`
	Name         string  `db:"name"`
	Variant      string  `db:"variant"`
	ComposeYAML  string  `db:"compose_yaml"`
	Variables    *string `db:"variables"`
	Status       string  `db:"status"`
	Health       string  `db:"health"`
	Services     *string `db:"services"`
	ErrorMessage string  `db:"error_message"`
	CreatedAt    string  `db:"created_at"`
	UpdatedAt    string  `db:"updated_at"`
	StartedAt    *string `db:"started_at"`
	StoppedAt    *string `db:"stopped_at"`
}

func (s *SQLiteStore) CreateStack(ctx context.Context, stack *domain.Stack) error {
	return createStack(ctx, s.db, stack)
}

func (s *SQLiteStore) GetStack(ctx context.Context, id string) (*domain.Stack, error) {
	return getStack(ctx, s.db, id)
}

func (s *SQLiteStore) GetStackByName(ctx context.Context, name string) (*domain.Stack, error) {
	return getStackByName(ctx, s.db, name)
}

func (s *SQLiteStore) UpdateStack(ctx context.Context, stack *domain.Stack) error {
	return updateStack(ctx, s.db, stack)
}

func (s *SQLiteStore) DeleteStack(ctx context.Context, id string) error {
	return deleteStack(ctx, s.db, id)
}

func (s *SQLiteStore) ListStacks(ctx context.Context, opts ListOptions) ([]domain.Stack, error) {
	return listStacks(ctx, s.db, opts)
}

func (s *SQLiteStore) ListStacksByStatus(ctx context.Context, statuses ...domain.StackStatus) ([]domain.Stack, error) {
	return listStacksByStatus(ctx, s.db, statuses)
}

func (s *SQLiteStore) CountStacksByStatus(ctx context.Context) (map[domain.StackStatus]int, error) {
	return countStacksByStatus(ctx, s.db)
}

// =============================================================================
// Event Operations
// =============================================================================

// eventRow represents a container event row in the database.
type eventRow struct {
	ID          int64  `db:"id"`
	ReferenceID string `db:"reference_id"`
	StackID     string `db:"stack_id"`
	Type        string `db:"type"`
	Container   string `db:"container"`
	Message     string `db:"message"`
	Timestamp   string `db:"timestamp"`
	CreatedAt   string `db:"created_at"`
}

func (s *SQLiteStore) CreateEvent(ctx context.Context, event *domain.ContainerEvent) error {
	return createEvent(ctx, s.db, event)
}

func (s *SQLiteStore) ListEvents(ctx context.Context, stackID string, limit int, eventType *string) ([]domain.ContainerEvent, error) {
	return listEvents(ctx, s.db, stackID, limit, eventType)
}

// =============================================================================
// Transaction Support
// =============================================================================

func (s *SQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return NewStoreError("WithTx", "", "", "failed to begin transaction", ErrTxFailed)
	}

	txS := &txSQLiteStore{tx: tx}

	if err := fn(txS); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return NewStoreError("WithTx", "", "", fmt.Sprintf("rollback failed after error: %v", err), ErrTxFailed)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return NewStoreError("WithTx", "", "", "failed to commit transaction", ErrTxFailed)
	}

	return nil
}

// =============================================================================
// Transaction Store
// =============================================================================

// txSQLiteStore implements Store within a transaction.
type txSQLiteStore struct {
	tx *sqlx.Tx
}

func (s *txSQLiteStore) UpsertVariant(ctx context.Context, variant *domain.Variant) error {
	return upsertVariant(ctx, s.tx, variant)
}

func (s *txSQLiteStore) GetVariant(ctx context.Context, slug string) (*domain.Variant, error) {
	return getVariant(ctx, s.tx, slug)
}

func (s *txSQLiteStore) ListVariants(ctx context.Context, opts ListOptions) ([]domain.Variant, error) {
	return listVariants(ctx, s.tx, opts)
}

func (s *txSQLiteStore) CreateStack(ctx context.Context, stack *domain.Stack) error {
	return createStack(ctx, s.tx, stack)
}

func (s *txSQLiteStore) GetStack(ctx context.Context, id string) (*domain.Stack, error) {
	return getStack(ctx, s.tx, id)
}

func (s *txSQLiteStore) GetStackByName(ctx context.Context, name string) (*domain.Stack, error) {
	return getStackByName(ctx, s.tx, name)
}

func (s *txSQLiteStore) UpdateStack(ctx context.Context, stack *domain.Stack) error {
	return updateStack(ctx, s.tx, stack)
}

func (s *txSQLiteStore) DeleteStack(ctx context.Context, id string) error {
	return deleteStack(ctx, s.tx, id)
}

func (s *txSQLiteStore) ListStacks(ctx context.Context, opts ListOptions) ([]domain.Stack, error) {
	return listStacks(ctx, s.tx, opts)
}

func (s *txSQLiteStore) ListStacksByStatus(ctx context.Context, statuses ...domain.StackStatus) ([]domain.Stack, error) {
	return listStacksByStatus(ctx, s.tx, statuses)
}

func (s *txSQLiteStore) CountStacksByStatus(ctx context.Context) (map[domain.StackStatus]int, error) {
	return countStacksByStatus(ctx, s.tx)
}

func (s *txSQLiteStore) CreateEvent(ctx context.Context, event *domain.ContainerEvent) error {
	return createEvent(ctx, s.tx, event)
}

func (s *txSQLiteStore) ListEvents(ctx context.Context, stackID string, limit int, eventType *string) ([]domain.ContainerEvent, error) {
	return listEvents(ctx, s.tx, stackID, limit, eventType)
}

func (s *txSQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	// Already in a transaction, just run the function
	return fn(s)
}

func (s *txSQLiteStore) Close() error {
	// No-op for tx store
	return nil
}

// =============================================================================
// Shared Implementation Functions
// =============================================================================

func upsertVariant(ctx context.Context, exec executor, variant *domain.Variant) error {
	variablesJSON, err := json.Marshal(variant.Variables)
	if err != nil {
		return NewStoreError("UpsertVariant", "variant", variant.Slug, "failed to serialize variables", ErrInvalidData)
	}
	configFilesJSON, err := json.Marshal(variant.ConfigFiles)
	if err != nil {
		return NewStoreError("UpsertVariant", "variant", variant.Slug, "failed to serialize config files", ErrInvalidData)
	}

	now := time.Now().UTC()

	var existing variantRow
	err = exec.GetContext(ctx, &existing, `SELECT * FROM variants WHERE slug = ?`, variant.Slug)
	switch {
	case err == nil:
		// Refresh content in place, keeping the identity assigned on first
		// registration.
		variant.ID = existing.ID
		variant.ReferenceID = existing.ReferenceID
		if createdAt, perr := time.Parse(timeFormat, existing.CreatedAt); perr == nil {
			variant.CreatedAt = createdAt
		}
		variant.UpdatedAt = now

		query := `
			UPDATE variants SET
				name = :name,
				description = :description,
				version = :version,
				compose_yaml = :compose_yaml,
				variables = :variables,
				config_files = :config_files,
				updated_at = :updated_at
			WHERE slug = :slug`

		row := map[string]any{
			"slug":         variant.Slug,
			"name":         variant.Name,
			"description":  variant.Description,
			"version":      variant.Version,
			"compose_yaml": variant.ComposeYAML,
			"variables":    string(variablesJSON),
			"config_files": string(configFilesJSON),
			"updated_at":   variant.UpdatedAt.Format(timeFormat),
		}

		if _, err := exec.NamedExecContext(ctx, query, row); err != nil {
			return NewStoreError("UpsertVariant", "variant", variant.Slug, err.Error(), err)
		}
		return nil

	case errors.Is(err, sql.ErrNoRows):
		if variant.ReferenceID == "" {
			variant.ReferenceID = "var_" + uuid.New().String()[:8]
		}
		if variant.CreatedAt.IsZero() {
			variant.CreatedAt = now
		}
		variant.UpdatedAt = now

		query := `
			INSERT INTO variants (
				reference_id, name, slug, description, version, compose_yaml,
				variables, config_files, created_at, updated_at
			) VALUES (
				:reference_id, :name, :slug, :description, :version, :compose_yaml,
				:variables, :config_files, :created_at, :updated_at
			)`

		row := map[string]any{
			"reference_id": variant.ReferenceID,
			"name":         variant.Name,
			"slug":         variant.Slug,
			"description":  variant.Description,
			"version":      variant.Version,
			"compose_yaml": variant.ComposeYAML,
			"variables":    string(variablesJSON),
			"config_files": string(configFilesJSON),
			"created_at":   variant.CreatedAt.Format(timeFormat),
			"updated_at":   variant.UpdatedAt.Format(timeFormat),
		}

		result, err := exec.NamedExecContext(ctx, query, row)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed: variants.slug") {
				return NewStoreError("UpsertVariant", "variant", variant.Slug, "variant with this slug already exists", ErrDuplicateSlug)
			}
			if strings.Contains(err.Error(), "UNIQUE constraint failed: variants.reference_id") {
				return NewStoreError("UpsertVariant", "variant", variant.Slug, "variant with this reference ID already exists", ErrDuplicateID)
			}
			return NewStoreError("UpsertVariant", "variant", variant.Slug, err.Error(), err)
		}

		if id, err := result.LastInsertId(); err == nil {
			variant.ID = int(id)
		}
		return nil

	default:
		return NewStoreError("UpsertVariant", "variant", variant.Slug, err.Error(), err)
	}
}

func getVariant(ctx context.Context, exec executor, slug string) (*domain.Variant, error) {
	query := `SELECT * FROM variants WHERE slug = ?`

	var row variantRow
	err := exec.GetContext(ctx, &row, query, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetVariant", "variant", slug, "variant not found", ErrNotFound)
		}
		return nil, NewStoreError("GetVariant", "variant", slug, err.Error(), err)
	}

	return rowToVariant(&row)
}

func listVariants(ctx context.Context, exec executor, opts ListOptions) ([]domain.Variant, error) {
	opts = opts.Normalize()
	query := `SELECT * FROM variants ORDER BY name ASC LIMIT ? OFFSET ?`

	var rows []variantRow
	err := exec.SelectContext(ctx, &rows, query, opts.Limit, opts.Offset)
	if err != nil {
		return nil, NewStoreError("ListVariants", "variant", "", err.Error(), err)
	}

	variants := make([]domain.Variant, 0, len(rows))
	for _, row := range rows {
		variant, err := rowToVariant(&row)
		if err != nil {
			return nil, err
		}
		variants = append(variants, *variant)
	}

	return variants, nil
}

func createStack(ctx context.Context, exec executor, stack *domain.Stack) error {
	variablesJSON, err := json.Marshal(stack.Variables)
	if err != nil {
		return NewStoreError("CreateStack", "stack", stack.ID, "failed to serialize variables", ErrInvalidData)
	}
	servicesJSON, err := json.Marshal(stack.Services)
	if err != nil {
		return NewStoreError("CreateStack", "stack", stack.ID, "failed to serialize services", ErrInvalidData)
	}

	var startedAt, stoppedAt *string
	if stack.StartedAt != nil {
		s := stack.StartedAt.Format(timeFormat)
		startedAt = &s
	}
	if stack.StoppedAt != nil {
		s := stack.StoppedAt.Format(timeFormat)
		stoppedAt = &s
	}

	query := `
		INSERT INTO stacks (
			id, name, variant, compose_yaml, variables, status, health,
			services, error_message, created_at, updated_at, started_at, stopped_at
		) VALUES (
			:id, :name, :variant, :compose_yaml, :variables, :status, :health,
			:services, :error_message, :created_at, :updated_at, :started_at, :stopped_at
		)`

	row := map[string]any{
		"id":            stack.ID,
		"name":          stack.Name,
		"variant":       stack.Variant,
		"compose_yaml":  stack.ComposeYAML,
		"variables":     string(variablesJSON),
		"status":        string(stack.Status),
		"health":        string(stack.Health),
		"services":      string(servicesJSON),
		"error_message": stack.ErrorMessage,
		"created_at":    stack.CreatedAt.Format(timeFormat),
		"updated_at":    stack.UpdatedAt.Format(timeFormat),
		"started_at":    startedAt,
		"stopped_at":    stoppedAt,
	}

	_, err = exec.NamedExecContext(ctx, query, row)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: stacks.id") {
			return NewStoreError("CreateStack", "stack", stack.ID, "stack with this ID already exists", ErrDuplicateID)
		}
		if strings.Contains(err.Error(), "UNIQUE constraint failed: stacks.name") {
			return NewStoreError("CreateStack", "stack", stack.ID, "stack with this name already exists", ErrDuplicateName)
		}
		return NewStoreError("CreateStack", "stack", stack.ID, err.Error(), err)
	}

	return nil
}

func getStack(ctx context.Context, exec executor, id string) (*domain.Stack, error) {
	query := `SELECT * FROM stacks WHERE id = ?`

	var row stackRow
	err := exec.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetStack", "stack", id, "stack not found", ErrNotFound)
		}
		return nil, NewStoreError("GetStack", "stack", id, err.Error(), err)
	}

	return rowToStack(&row)
}

func getStackByName(ctx context.Context, exec executor, name string) (*domain.Stack, error) {
	query := `SELECT * FROM stacks WHERE name = ?`

	var row stackRow
	err := exec.GetContext(ctx, &row, query, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetStackByName", "stack", name, "stack not found", ErrNotFound)
		}
		return nil, NewStoreError("GetStackByName", "stack", name, err.Error(), err)
	}

	return rowToStack(&row)
}

func updateStack(ctx context.Context, exec executor, stack *domain.Stack) error {
	variablesJSON, err := json.Marshal(stack.Variables)
	if err != nil {
		return NewStoreError("UpdateStack", "stack", stack.ID, "failed to serialize variables", ErrInvalidData)
	}
	servicesJSON, err := json.Marshal(stack.Services)
	if err != nil {
		return NewStoreError("UpdateStack", "stack", stack.ID, "failed to serialize services", ErrInvalidData)
	}

	var startedAt, stoppedAt *string
	if stack.StartedAt != nil {
		s := stack.StartedAt.Format(timeFormat)
		startedAt = &s
	}
	if stack.StoppedAt != nil {
		s := stack.StoppedAt.Format(timeFormat)
		stoppedAt = &s
	}

	query := `
		UPDATE stacks SET
			name = :name,
			variant = :variant,
			compose_yaml = :compose_yaml,
			variables = :variables,
			status = :status,
			health = :health,
			services = :services,
			error_message = :error_message,
			updated_at = :updated_at,
			started_at = :started_at,
			stopped_at = :stopped_at
		WHERE id = :id`

	row := map[string]any{
		"id":            stack.ID,
		"name":          stack.Name,
		"variant":       stack.Variant,
		"compose_yaml":  stack.ComposeYAML,
		"variables":     string(variablesJSON),
		"status":        string(stack.Status),
		"health":        string(stack.Health),
		"services":      string(servicesJSON),
		"error_message": stack.ErrorMessage,
		"updated_at":    stack.UpdatedAt.Format(timeFormat),
		"started_at":    startedAt,
		"stopped_at":    stoppedAt,
	}

	result, err := exec.NamedExecContext(ctx, query, row)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: stacks.name") {
			return NewStoreError("UpdateStack", "stack", stack.ID, "stack with this name already exists", ErrDuplicateName)
		}
		return NewStoreError("UpdateStack", "stack", stack.ID, err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return NewStoreError("UpdateStack", "stack", stack.ID, "stack not found", ErrNotFound)
	}

	return nil
}

func deleteStack(ctx context.Context, exec executor, id string) error {
	query := `DELETE FROM stacks WHERE id = ?`

	result, err := exec.ExecContext(ctx, query, id)
	if err != nil {
		return NewStoreError("DeleteStack", "stack", id, err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return NewStoreError("DeleteStack", "stack", id, "stack not found", ErrNotFound)
	}

	return nil
}

func listStacks(ctx context.Context, exec executor, opts ListOptions) ([]domain.Stack, error) {
	opts = opts.Normalize()
	query := `SELECT * FROM stacks ORDER BY created_at DESC LIMIT ? OFFSET ?`

	var rows []stackRow
	err := exec.SelectContext(ctx, &rows, query, opts.Limit, opts.Offset)
	if err != nil {
		return nil, NewStoreError("ListStacks", "stack", "", err.Error(), err)
	}

	stacks := make([]domain.Stack, 0, len(rows))
	for _, row := range rows {
		stack, err := rowToStack(&row)
		if err != nil {
			return nil, err
		}
		stacks = append(stacks, *stack)
	}

	return stacks, nil
}

func listStacksByStatus(ctx context.Context, exec executor, statuses []domain.StackStatus) ([]domain.Stack, error) {
	if len(statuses) == 0 {
		return []domain.Stack{}, nil
	}

	query, args, err := sqlx.In(`SELECT * FROM stacks WHERE status IN (?) ORDER BY created_at DESC`, statuses)
	if err != nil {
		return nil, NewStoreError("ListStacksByStatus", "stack", "", err.Error(), err)
	}

	var rows []stackRow
	if err := exec.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, NewStoreError("ListStacksByStatus", "stack", "", err.Error(), err)
	}

	stacks := make([]domain.Stack, 0, len(rows))
	for _, row := range rows {
		stack, err := rowToStack(&row)
		if err != nil {
			return nil, err
		}
		stacks = append(stacks, *stack)
	}

	return stacks, nil
}

func countStacksByStatus(ctx context.Context, exec executor) (map[domain.StackStatus]int, error) {
	query := `SELECT status, COUNT(*) AS n FROM stacks GROUP BY status`

	var rows []struct {
		Status string `db:"status"`
		N      int    `db:"n"`
	}
	if err := exec.SelectContext(ctx, &rows, query); err != nil {
		return nil, NewStoreError("CountStacksByStatus", "stack", "", err.Error(), err)
	}

	counts := make(map[domain.StackStatus]int, len(rows))
	for _, row := range rows {
		counts[domain.StackStatus(row.Status)] = row.N
	}

	return counts, nil
}

func createEvent(ctx context.Context, exec executor, event *domain.ContainerEvent) error {
	if event.ReferenceID == "" {
		event.ReferenceID = "evt_" + uuid.New().String()[:8]
	}
	now := time.Now().UTC()
	if event.Timestamp.IsZero() {
		event.Timestamp = now
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}

	query := `
		INSERT INTO events (
			reference_id, stack_id, type, container, message, timestamp, created_at
		) VALUES (
			:reference_id, :stack_id, :type, :container, :message, :timestamp, :created_at
		)`

	row := map[string]any{
		"reference_id": event.ReferenceID,
		"stack_id":     event.StackID,
		"type":         string(event.Type),
		"container":    event.Container,
		"message":      event.Message,
		"timestamp":    event.Timestamp.Format(timeFormat),
		"created_at":   event.CreatedAt.Format(timeFormat),
	}

	result, err := exec.NamedExecContext(ctx, query, row)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return NewStoreError("CreateEvent", "event", event.ReferenceID, "stack not found", ErrForeignKey)
		}
		return NewStoreError("CreateEvent", "event", event.ReferenceID, err.Error(), err)
	}

	if id, err := result.LastInsertId(); err == nil {
		event.ID = id
	}

	return nil
}

func listEvents(ctx context.Context, exec executor, stackID string, limit int, eventType *string) ([]domain.ContainerEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	// Most recent first. The id column, not the timestamp, is the ordering
	// key so that events written within the same instant keep their
	// insertion order.
	query := `SELECT * FROM events WHERE stack_id = ? ORDER BY id DESC LIMIT ?`
	args := []any{stackID, limit}
	if eventType != nil {
		query = `SELECT * FROM events WHERE stack_id = ? AND type = ? ORDER BY id DESC LIMIT ?`
		args = []any{stackID, *eventType, limit}
	}

	var rows []eventRow
	if err := exec.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, NewStoreError("ListEvents", "event", stackID, err.Error(), err)
	}

	events := make([]domain.ContainerEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, rowToEvent(&row))
	}

	return events, nil
}

// =============================================================================
// Row Conversion Functions
// =============================================================================

// rowToVariant converts a database row to a domain.Variant.
func rowToVariant(row *variantRow) (*domain.Variant, error) {
	createdAt, _ := time.Parse(timeFormat, row.CreatedAt)
	updatedAt, _ := time.Parse(timeFormat, row.UpdatedAt)

	var variables []domain.Variable
	if row.Variables != nil && *row.Variables != "" && *row.Variables != "null" {
		if err := json.Unmarshal([]byte(*row.Variables), &variables); err != nil {
			return nil, NewStoreError("rowToVariant", "variant", row.Slug, "failed to parse variables", ErrInvalidData)
		}
	}

	var configFiles []domain.ConfigFile
	if row.ConfigFiles != nil && *row.ConfigFiles != "" && *row.ConfigFiles != "null" {
		if err := json.Unmarshal([]byte(*row.ConfigFiles), &configFiles); err != nil {
			return nil, NewStoreError("rowToVariant", "variant", row.Slug, "failed to parse config files", ErrInvalidData)
		}
	}

	return &domain.Variant{
		ID:          row.ID,
		ReferenceID: row.ReferenceID,
		Name:        row.Name,
		Slug:        row.Slug,
		Description: row.Description,
		Version:     row.Version,
		ComposeYAML: row.ComposeYAML,
		Variables:   variables,
		ConfigFiles: configFiles,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

// rowToStack converts a database row to a domain.Stack.
func rowToStack(row *stackRow) (*domain.Stack, error) {
	createdAt, _ := time.Parse(timeFormat, row.CreatedAt)
	updatedAt, _ := time.Parse(timeFormat, row.UpdatedAt)

	var startedAt, stoppedAt *time.Time
	if row.StartedAt != nil && *row.StartedAt != "" {
		t, _ := time.Parse(timeFormat, *row.StartedAt)
		startedAt = &t
	}
	if row.StoppedAt != nil && *row.StoppedAt != "" {
		t, _ := time.Parse(timeFormat, *row.StoppedAt)
		stoppedAt = &t
	}

	var variables map[string]string
	if row.Variables != nil && *row.Variables != "" && *row.Variables != "null" {
		if err := json.Unmarshal([]byte(*row.Variables), &variables); err != nil {
			return nil, NewStoreError("rowToStack", "stack", row.ID, "failed to parse variables", ErrInvalidData)
		}
	}

	var services []domain.ServiceInfo
	if row.Services != nil && *row.Services != "" && *row.Services != "null" {
		if err := json.Unmarshal([]byte(*row.Services), &services); err != nil {
			return nil, NewStoreError("rowToStack", "stack", row.ID, "failed to parse services", ErrInvalidData)
		}
	}

	return &domain.Stack{
		ID:           row.ID,
		Name:         row.Name,
		Variant:      row.Variant,
		ComposeYAML:  row.ComposeYAML,
		Variables:    variables,
		Status:       domain.StackStatus(row.Status),
		Health:       domain.HealthStatus(row.Health),
		Services:     services,
		ErrorMessage: row.ErrorMessage,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
		StartedAt:    startedAt,
		StoppedAt:    stoppedAt,
	}, nil
}

// rowToEvent converts a database row to a domain.ContainerEvent.
func rowToEvent(row *eventRow) domain.ContainerEvent {
	timestamp, _ := time.Parse(timeFormat, row.Timestamp)
	createdAt, _ := time.Parse(timeFormat, row.CreatedAt)

	return domain.ContainerEvent{
		ID:          row.ID,
		ReferenceID: row.ReferenceID,
		StackID:     row.StackID,
		Type:        domain.ContainerEventType(row.Type),
		Container:   row.Container,
		Message:     row.Message,
		Timestamp:   timestamp,
		CreatedAt:   createdAt,
	}
}
