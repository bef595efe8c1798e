package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/charlesng35/queryhub/internal/models"
)

// ConnectionStore is the persistence collaborator for user-managed connections.
type ConnectionStore interface {
	// FindAll returns every row restricted to columns.
	FindAll(ctx context.Context, columns []string) ([]models.Connection, error)
	// FindOne returns nil, nil when id does not exist.
	FindOne(ctx context.Context, id string) (*models.Connection, error)
	// Destroy deletes by id and reports the number of rows removed.
	Destroy(ctx context.Context, id string) (int64, error)
	Create(ctx context.Context, row *models.Connection) error
	// Update overwrites the mutable columns of id and reports the rows touched.
	Update(ctx context.Context, id string, row *models.Connection) (int64, error)
}

// errDuplicateConnection is returned by stores when a create collides with an existing id.
var errDuplicateConnection = errors.New("connection already exists")

type gormConnectionStore struct {
	db *gorm.DB
}

// NewGormConnectionStore returns a ConnectionStore backed by gorm.
func NewGormConnectionStore(db *gorm.DB) (ConnectionStore, error) {
	if db == nil {
		return nil, errors.New("connection store: db is required")
	}
	return &gormConnectionStore{db: db}, nil
}

func (s *gormConnectionStore) FindAll(ctx context.Context, columns []string) ([]models.Connection, error) {
	query := s.db.WithContext(ensureContext(ctx)).Model(&models.Connection{})
	if len(columns) > 0 {
		query = query.Select(columns)
	}

	var rows []models.Connection
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *gormConnectionStore) FindOne(ctx context.Context, id string) (*models.Connection, error) {
	var row models.Connection
	err := s.db.WithContext(ensureContext(ctx)).Take(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *gormConnectionStore) Destroy(ctx context.Context, id string) (int64, error) {
	result := s.db.WithContext(ensureContext(ctx)).Where("id = ?", id).Delete(&models.Connection{})
	return result.RowsAffected, result.Error
}

func (s *gormConnectionStore) Create(ctx context.Context, row *models.Connection) error {
	if row == nil {
		return errors.New("connection store: row is required")
	}
	err := s.db.WithContext(ensureContext(ctx)).Create(row).Error
	if isUniqueConstraintError(err) {
		return fmt.Errorf("%w: %v", errDuplicateConnection, err)
	}
	return err
}

func (s *gormConnectionStore) Update(ctx context.Context, id string, row *models.Connection) (int64, error) {
	if row == nil {
		return 0, errors.New("connection store: row is required")
	}
	result := s.db.WithContext(ensureContext(ctx)).
		Model(&models.Connection{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"name":                                row.Name,
			"description":                         row.Description,
			"driver":                              row.Driver,
			"multi_statement_transaction_enabled": row.MultiStatementTransactionEnabled,
			"idle_timeout_seconds":                row.IdleTimeoutSeconds,
			"data":                                row.Data,
			"updated_at":                          time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique constraint") || strings.Contains(lower, "duplicate")
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
