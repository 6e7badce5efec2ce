package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oarkflow/squealx"
	"github.com/oarkflow/xid/wuid"

	"github.com/oarkflow/streamguard/pkg/errs"
	"github.com/oarkflow/streamguard/pkg/models"
)

// DatabaseType represents the type of database
type DatabaseType string

const (
	MySQL      DatabaseType = "mysql"
	PostgreSQL DatabaseType = "postgres"
	SQLite     DatabaseType = "sqlite"
)

var ErrNotFound = errs.ErrNotFound

// DatabaseStorage persists users, reset tokens and security events.
type DatabaseStorage struct {
	db     *squealx.DB
	dbType DatabaseType
}

// NewDatabaseStorage creates the schema for the connection's dialect if it
// does not exist yet.
func NewDatabaseStorage(db *squealx.DB) (*DatabaseStorage, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	storage := &DatabaseStorage{
		db:     db,
		dbType: DetectDatabaseType(db.DriverName(), ""),
	}

	if err := storage.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create database schema: %w", err)
	}

	return storage, nil
}

func (d *DatabaseStorage) Type() DatabaseType {
	return d.dbType
}

func (d *DatabaseStorage) createTables() error {
	var queries []string

	switch d.dbType {
	case MySQL:
		queries = d.getMySQLSchema()
	case PostgreSQL:
		queries = d.getPostgreSQLSchema()
	case SQLite:
		queries = d.getSQLiteSchema()
	default:
		return fmt.Errorf("unsupported database type: %s", d.dbType)
	}

	for _, query := range queries {
		if _, err := d.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	return nil
}

// --- Users ---

// CreateUser inserts a user and returns it with its assigned id. The
// password must already be hashed.
func (d *DatabaseStorage) CreateUser(user models.User) (models.User, error) {
	if user.UserID == 0 {
		user.UserID = wuid.New().Int64()
	}
	user.Email = normalizeEmail(user.Email)
	query := `INSERT INTO users (user_id, email, username, password) VALUES (:user_id, :email, :username, :password)`
	params := map[string]any{
		"user_id":  user.UserID,
		"email":    user.Email,
		"username": user.Username,
		"password": user.Password,
	}
	if _, err := d.db.NamedExec(query, params); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (d *DatabaseStorage) UserExists(email string) (bool, error) {
	query := `SELECT COUNT(*) FROM users WHERE email = :email`
	params := map[string]any{
		"email": normalizeEmail(email),
	}
	var count int64
	if err := d.db.NamedGet(&count, query, params); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (d *DatabaseStorage) GetUserByEmail(email string) (models.User, error) {
	query := `SELECT user_id, email, username, password FROM users WHERE email = :email`
	params := map[string]any{
		"email": normalizeEmail(email),
	}
	var user models.User
	if err := d.db.NamedGet(&user, query, params); err != nil {
		return models.User{}, notFound(err)
	}
	return user, nil
}

func (d *DatabaseStorage) UpdatePassword(userID int64, passwordHash string) error {
	query := `UPDATE users SET password = :password, updated_at = CURRENT_TIMESTAMP WHERE user_id = :user_id`
	params := map[string]any{
		"password": passwordHash,
		"user_id":  userID,
	}
	result, err := d.db.NamedExec(query, params)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Password reset tokens ---

func (d *DatabaseStorage) SaveResetToken(token models.ResetToken) error {
	query := `INSERT INTO password_resets (token_hash, email, created_at) VALUES (:token_hash, :email, :created_at)`
	params := map[string]any{
		"token_hash": token.TokenHash,
		"email":      normalizeEmail(token.Email),
		"created_at": token.CreatedAt,
	}
	_, err := d.db.NamedExec(query, params)
	return err
}

func (d *DatabaseStorage) GetResetToken(tokenHash, email string) (models.ResetToken, error) {
	query := `SELECT token_hash, email, created_at FROM password_resets WHERE token_hash = :token_hash AND email = :email`
	params := map[string]any{
		"token_hash": tokenHash,
		"email":      normalizeEmail(email),
	}
	var token models.ResetToken
	if err := d.db.NamedGet(&token, query, params); err != nil {
		return models.ResetToken{}, notFound(err)
	}
	return token, nil
}

func (d *DatabaseStorage) DeleteResetTokens(email string) error {
	query := `DELETE FROM password_resets WHERE email = :email`
	params := map[string]any{
		"email": normalizeEmail(email),
	}
	_, err := d.db.NamedExec(query, params)
	return err
}

// DeleteExpiredResetTokens removes tokens created before the cutoff.
func (d *DatabaseStorage) DeleteExpiredResetTokens(before time.Time) (int64, error) {
	query := `DELETE FROM password_resets WHERE created_at < :before`
	params := map[string]any{
		"before": before.Unix(),
	}
	result, err := d.db.NamedExec(query, params)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// --- Security events ---

func (d *DatabaseStorage) SaveSecurityEvent(event models.SecurityEvent) error {
	if event.ID == "" {
		event.ID = wuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	query := `INSERT INTO security_events (id, category, signature, raw_value, attribute, created_at)
		VALUES (:id, :category, :signature, :raw_value, :attribute, :created_at)`
	params := map[string]any{
		"id":         event.ID,
		"category":   event.Category,
		"signature":  event.Signature,
		"raw_value":  event.RawValue,
		"attribute":  event.Attribute,
		"created_at": event.Timestamp.Unix(),
	}
	_, err := d.db.NamedExec(query, params)
	return err
}

// CountSecurityEvents counts recorded events of one category, or of all
// categories when category is empty.
func (d *DatabaseStorage) CountSecurityEvents(category string) (int64, error) {
	query := `SELECT COUNT(*) FROM security_events`
	params := map[string]any{}
	if category != "" {
		query += ` WHERE category = :category`
		params["category"] = category
	}
	var count int64
	if err := d.db.NamedGet(&count, query, params); err != nil {
		return 0, err
	}
	return count, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// DetectDatabaseType maps a driver name or DSN to a schema dialect.
func DetectDatabaseType(driverName string, dataSource string) DatabaseType {
	driverName = strings.ToLower(driverName)
	dataSource = strings.ToLower(dataSource)

	switch {
	case strings.Contains(driverName, "mysql") || strings.Contains(dataSource, "mysql"):
		return MySQL
	case strings.Contains(driverName, "postgres") || strings.Contains(driverName, "pgx") ||
		strings.Contains(dataSource, "postgres") || strings.Contains(dataSource, "postgresql"):
		return PostgreSQL
	case strings.Contains(driverName, "sqlite") || strings.Contains(dataSource, ".db") ||
		strings.Contains(dataSource, "sqlite"):
		return SQLite
	default:
		return SQLite
	}
}
