// Package storage is the persistence adapter. It owns every durable table and
// exposes typed reads and writes over gorm.
package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"matchgogo/backend/internal/models"

	"github.com/lib/pq"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrUnsupportedDSN   = errors.New("unsupported database url")
	ErrSelfInteraction  = errors.New("cannot interact with yourself")
	ErrInvalidPageRange = errors.New("invalid page range")
)

// LikeResult describes the outcome of a Like call.
type LikeResult struct {
	// Created is false when the edge already existed.
	Created bool
	// Mutual is true when the reverse edge exists.
	Mutual bool
}

// ReportPolicy parameterizes FileReport.
type ReportPolicy struct {
	Cooldown     time.Duration
	BanThreshold int64
}

// ReportResult describes the outcome of a FileReport call.
type ReportResult struct {
	// Stored is false when the reporter hit the cooldown.
	Stored bool
	// Before and After are the totals against the reported user around the insert.
	Before int64
	After  int64
	// Banned is true when this report issued the ban.
	Banned bool
}

type Storage interface {
	Ping(ctx context.Context) error

	GetUser(ctx context.Context, chatID int64) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []int64) ([]models.User, error)
	SaveUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error
	TouchLastActive(ctx context.Context, chatID int64, at time.Time) error

	GetSession(ctx context.Context, chatID int64) (*models.SessionState, error)
	SaveSession(ctx context.Context, state *models.SessionState) error
	DeleteSession(ctx context.Context, chatID int64) error

	CandidateBase(ctx context.Context, viewer *models.User, offset, limit int) ([]models.User, error)

	Like(ctx context.Context, likerID, likedID int64, note string) (LikeResult, error)
	MarkSeen(ctx context.Context, viewerID, profileID int64, liked bool) error
	InboundLikes(ctx context.Context, chatID int64, limit int) ([]models.Like, error)

	FileReport(ctx context.Context, report *models.Report, policy ReportPolicy) (ReportResult, error)
	CountReportsAgainst(ctx context.Context, chatID int64) (int64, error)
	ListReports(ctx context.Context, since time.Time, limit int) ([]models.Report, error)
	IsBanned(ctx context.Context, chatID int64) (bool, error)
	BannedAmong(ctx context.Context, ids []int64) (map[int64]bool, error)
	Ban(ctx context.Context, chatID int64, reason string) (bool, error)
	Unban(ctx context.Context, chatID int64) error
	ListBanned(ctx context.Context) ([]models.BannedUser, error)

	ListGroups(ctx context.Context) ([]models.Group, error)
	CreateGroup(ctx context.Context, group *models.Group) error
	DeleteGroup(ctx context.Context, id string) error

	SaveQueueEntry(ctx context.Context, entry *models.RandomChatQueueEntry) error
	DeleteQueueEntry(ctx context.Context, chatID int64) error
	LoadQueueEntries(ctx context.Context) ([]models.RandomChatQueueEntry, error)
}

type Service struct {
	DB *gorm.DB
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// Open connects to the database named by dsn. The scheme selects the dialect:
// postgres:// and postgresql:// go through lib/pq, mysql:// and sqlite:// use
// their gorm drivers, and a bare key=value string is treated as postgres.
func Open(dsn string, gcfg *gorm.Config) (*gorm.DB, error) {
	if gcfg == nil {
		gcfg = &gorm.Config{}
	}
	switch {
	case strings.HasPrefix(dsn, "mysql://"):
		return gorm.Open(mysql.Open(strings.TrimPrefix(dsn, "mysql://")), gcfg)
	case strings.HasPrefix(dsn, "sqlite://"):
		return gorm.Open(sqlite.Open(strings.TrimPrefix(dsn, "sqlite://")), gcfg)
	case strings.HasPrefix(dsn, "file:"):
		return gorm.Open(sqlite.Open(dsn), gcfg)
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"), strings.Contains(dsn, "host="):
		sqlDB, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gcfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDSN, redact(dsn))
	}
}

// IsTransient reports whether err is worth one retry: dropped connections,
// postgres connection exceptions and timeouts.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == "08" || pqErr.Code == "57P01" || pqErr.Code == "40001"
	}
	return false
}

func (s *Service) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// lockUsers takes row locks on the given users in a stable order so that
// concurrent likes/reports touching the same pair serialize. SQLite has no
// row locks; its single writer already serializes transactions.
func lockUsers(tx *gorm.DB, ids ...int64) error {
	switch tx.Dialector.Name() {
	case "postgres", "mysql":
	default:
		return nil
	}
	var locked []models.User
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("chat_id").
		Where("chat_id IN ?", ids).
		Order("chat_id").
		Find(&locked).Error
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func redact(dsn string) string {
	if i := strings.Index(dsn, "@"); i > 0 {
		return "***" + dsn[i:]
	}
	return dsn
}
