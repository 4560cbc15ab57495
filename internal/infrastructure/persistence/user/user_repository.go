// Package user provides the concrete SQL-based implementation of the
// user account repository.
package user

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sugarswap/sugarswap-go/internal/domain/entities/catalog"
	"github.com/sugarswap/sugarswap-go/internal/domain/entities/progress"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/observability/logging"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/persistence/database"
)

// Record is one stored user account with its persisted state documents
type Record struct {
	Username     string
	PasswordHash string
	State        *progress.GamificationState
	Products     *catalog.Cache
	CreatedAt    time.Time
	Changed      *time.Time
}

// SQLUserRepository is the SQL-based implementation of the user repository.
type SQLUserRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLUserRepository creates a new instance of the repository.
func NewSQLUserRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLUserRepository {
	return &SQLUserRepository{
		db:     db,
		logger: logger,
	}
}

// FindByUsername retrieves a user account. Returns nil without error when
// the account does not exist.
func (r *SQLUserRepository) FindByUsername(username string) (*Record, error) {
	const query = `
		SELECT username, password_hash, gamification_state, product_cache, created_at, changed
		FROM users
		WHERE username = ?`

	start := time.Now()
	r.logger.Database().Debug("Loading user", "username", logging.SanitizeUsername(username))

	row := r.db.QueryRow(query, username)
	record, err := r.scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			r.logger.Database().Debug("User not found", "username", logging.SanitizeUsername(username))
			return nil, nil
		}
		r.logger.Database().Error("Failed to load user", "error", err.Error(), "username", logging.SanitizeUsername(username))
		return nil, err
	}

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start), "user_load")
	return record, nil
}

// Create inserts a new user account
func (r *SQLUserRepository) Create(record *Record) error {
	const query = `
		INSERT INTO users (username, password_hash, gamification_state, product_cache, created_at)
		VALUES (?, ?, ?, ?, ?)`

	stateJSON, productsJSON, err := marshalDocuments(record.State, record.Products)
	if err != nil {
		return err
	}

	start := time.Now()
	_, err = r.db.Exec(query, record.Username, record.PasswordHash, stateJSON, productsJSON, time.Now().UTC())
	if err != nil {
		r.logger.Database().Error("Failed to create user", "error", err.Error(), "username", logging.SanitizeUsername(record.Username))
		return fmt.Errorf("failed to create user: %w", err)
	}

	r.logger.Database().Info("User created", "username", logging.SanitizeUsername(record.Username), "duration", time.Since(start))
	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start), "user_create")
	return nil
}

// SaveState persists the gamification state and product cache for a user
func (r *SQLUserRepository) SaveState(username string, state *progress.GamificationState, products *catalog.Cache) error {
	const query = `
		UPDATE users
		SET gamification_state = ?, product_cache = ?, changed = ?
		WHERE username = ?`

	stateJSON, productsJSON, err := marshalDocuments(state, products)
	if err != nil {
		return err
	}

	start := time.Now()
	result, err := r.db.Exec(query, stateJSON, productsJSON, time.Now().UTC(), username)
	if err != nil {
		r.logger.Database().Error("Failed to save user state", "error", err.Error(), "username", logging.SanitizeUsername(username))
		return fmt.Errorf("failed to save user state: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("user %s does not exist", username)
	}

	r.logger.Database().Debug("User state saved", "username", logging.SanitizeUsername(username), "duration", time.Since(start))
	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start), "user_save")
	return nil
}

// Exists reports whether a username is already taken
func (r *SQLUserRepository) Exists(username string) (bool, error) {
	const query = `SELECT 1 FROM users WHERE username = ?`

	var one int
	err := r.db.QueryRow(query, username).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// scanUser scans a user row and unmarshals its JSON documents
func (r *SQLUserRepository) scanUser(row *sql.Row) (*Record, error) {
	var record Record
	var stateJSON, productsJSON string
	var changed sql.NullTime

	err := row.Scan(&record.Username, &record.PasswordHash, &stateJSON, &productsJSON, &record.CreatedAt, &changed)
	if err != nil {
		return nil, err
	}
	if changed.Valid {
		record.Changed = &changed.Time
	}

	record.State = progress.NewGamificationState()
	if err := json.Unmarshal([]byte(stateJSON), record.State); err != nil {
		return nil, fmt.Errorf("corrupt gamification state for %s: %w", record.Username, err)
	}
	record.State.Normalize()

	record.Products = catalog.NewCache()
	if err := json.Unmarshal([]byte(productsJSON), record.Products); err != nil {
		return nil, fmt.Errorf("corrupt product cache for %s: %w", record.Username, err)
	}

	return &record, nil
}

func marshalDocuments(state *progress.GamificationState, products *catalog.Cache) (string, string, error) {
	if state == nil {
		state = progress.NewGamificationState()
	}
	if products == nil {
		products = catalog.NewCache()
	}

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal gamification state: %w", err)
	}
	productsJSON, err := json.Marshal(products)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal product cache: %w", err)
	}
	return string(stateJSON), string(productsJSON), nil
}
