package releases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"app-host/core/database"
	"app-host/core/descriptor"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound is returned when no release has been recorded.
var ErrNotFound = errors.New("no releases recorded")

// DefaultLimit caps List when no limit is given.
const DefaultLimit = 20

// Store persists releases with GORM.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore creates a release store on db.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Migrate creates the releases table and verifies its columns.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&Release{}); err != nil {
		return fmt.Errorf("migrate releases: %w", err)
	}

	missing, err := database.MissingColumns(s.db, Release{}.TableName(), expectedColumns)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("releases table is missing columns %v", missing)
	}
	return nil
}

// Record stores d as the active release unless the latest release has the same digest.
// It reports whether a new row was written.
func (s *Store) Record(ctx context.Context, d *descriptor.Descriptor, raw []byte, source string) (*Release, bool, error) {
	digest := descriptor.Digest(raw)

	latest, err := s.Latest(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	if latest != nil && latest.Digest == digest {
		return latest, false, nil
	}

	rel := &Release{
		ID:         uuid.NewString(),
		Digest:     digest,
		Runtime:    d.Runtime,
		Entrypoint: d.Entrypoint,
		Handlers:   len(d.Handlers),
		Source:     source,
		Status:     StatusActive,
		CreatedAt:  s.now().UTC(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Release{}).
			Where("status = ?", StatusActive).
			Update("status", StatusSuperseded).Error; err != nil {
			return err
		}
		return tx.Create(rel).Error
	})
	if err != nil {
		return nil, false, fmt.Errorf("record release: %w", err)
	}
	return rel, true, nil
}

// Latest returns the most recent release.
func (s *Store) Latest(ctx context.Context) (*Release, error) {
	var rel Release
	err := s.db.WithContext(ctx).Order("created_at desc").First(&rel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest release: %w", err)
	}
	return &rel, nil
}

// List returns up to limit releases, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Release, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	var out []Release
	if err := s.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list releases: %w", err)
	}
	return out, nil
}
