// Package backup writes and restores gzip JSON archives of the database.
package backup

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tbaldin/ferro/internal/ferr"
	"github.com/tbaldin/ferro/internal/models"
	"gorm.io/gorm"
)

// fileExt is the archive file extension.
const fileExt = ".json.gz"

// Archive is the on-disk backup document.
type Archive struct {
	ID        string                   `json:"id"`
	CreatedAt time.Time                `json:"created_at"`
	Users     []models.User            `json:"users"`
	Exercises []models.Exercise        `json:"exercises"`
	Sessions  []models.WorkoutSession  `json:"sessions"`
	Entries   []models.WorkoutExercise `json:"entries"`
	Aerobics  []models.AerobicExercise `json:"aerobics"`
}

// Info describes a backup file on disk.
type Info struct {
	ID        string
	Path      string
	CreatedAt time.Time
	SizeBytes int64
	Sessions  int
}

// Service creates, lists, verifies, and restores backups.
type Service struct {
	db  *gorm.DB
	dir string
}

// ServiceOpts holds parameters for creating a backup Service.
type ServiceOpts struct {
	DB  *gorm.DB
	Dir string // backup directory, created on demand
}

// NewService creates a Service.
func NewService(opts ServiceOpts) (*Service, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("backup: db is required")
	}
	if opts.Dir == "" {
		return nil, fmt.Errorf("backup: dir is required")
	}
	return &Service{db: opts.DB, dir: opts.Dir}, nil
}

// Create snapshots every table into a new gzip JSON archive and returns its
// path.
func (s *Service) Create() (*Info, error) {
	archive := Archive{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.db.Find(&archive.Users).Error; err != nil {
		return nil, ferr.Database("backup: load users", err)
	}
	if err := s.db.Find(&archive.Exercises).Error; err != nil {
		return nil, ferr.Database("backup: load exercises", err)
	}
	if err := s.db.Find(&archive.Sessions).Error; err != nil {
		return nil, ferr.Database("backup: load sessions", err)
	}
	if err := s.db.Find(&archive.Entries).Error; err != nil {
		return nil, ferr.Database("backup: load entries", err)
	}
	if err := s.db.Find(&archive.Aerobics).Error; err != nil {
		return nil, ferr.Database("backup: load aerobics", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("backup: create dir: %w", err)
	}

	name := fmt.Sprintf("ferro_%s_%s%s",
		archive.CreatedAt.Format("20060102T150405Z"), archive.ID[:8], fileExt)
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("backup: create %s: %w", path, err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	enc := json.NewEncoder(gz)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&archive); err != nil {
		gz.Close()
		return nil, fmt.Errorf("backup: encode: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("backup: close gzip: %w", err)
	}
	if err := f.Sync(); err != nil {
		return nil, fmt.Errorf("backup: sync: %w", err)
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("backup: stat: %w", err)
	}

	return &Info{
		ID:        archive.ID,
		Path:      path,
		CreatedAt: archive.CreatedAt,
		SizeBytes: stat.Size(),
		Sessions:  len(archive.Sessions),
	}, nil
}

// List returns the backups in the directory, newest first. A missing
// directory yields an empty list.
func (s *Service) List() ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("backup: read dir: %w", err)
	}

	var infos []Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		archive, err := readArchive(path)
		if err != nil {
			// Unreadable files still show up in the listing.
			infos = append(infos, Info{Path: path})
			continue
		}
		stat, _ := entry.Info()
		info := Info{
			ID:        archive.ID,
			Path:      path,
			CreatedAt: archive.CreatedAt,
			Sessions:  len(archive.Sessions),
		}
		if stat != nil {
			info.SizeBytes = stat.Size()
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.After(infos[j].CreatedAt)
	})
	return infos, nil
}

// Verify reads an archive, restores it into an in-memory database, and
// checks that the row counts survive a round trip.
func (s *Service) Verify(path string, open func() (*gorm.DB, error)) error {
	archive, err := readArchive(path)
	if err != nil {
		return err
	}

	mem, err := open()
	if err != nil {
		return fmt.Errorf("backup: open scratch db: %w", err)
	}

	if err := restoreInto(mem, archive); err != nil {
		return err
	}

	var sessions int64
	if err := mem.Model(&models.WorkoutSession{}).Count(&sessions).Error; err != nil {
		return ferr.Database("backup: count sessions", err)
	}
	if int(sessions) != len(archive.Sessions) {
		return fmt.Errorf("backup: verify %s: restored %d sessions, archive has %d",
			path, sessions, len(archive.Sessions))
	}
	return nil
}

// Restore loads an archive into the live database, replacing all rows.
func (s *Service) Restore(path string) error {
	archive, err := readArchive(path)
	if err != nil {
		return err
	}
	return restoreInto(s.db, archive)
}

// restoreInto replaces the database contents with the archive's rows in a
// single transaction. Children are wiped before parents, and inserted after.
func restoreInto(db *gorm.DB, archive *Archive) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		wipe := []interface{}{
			&models.AerobicExercise{}, &models.WorkoutExercise{},
			&models.WorkoutSession{}, &models.Exercise{}, &models.User{},
		}
		for _, model := range wipe {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}

		if len(archive.Users) > 0 {
			if err := tx.Create(&archive.Users).Error; err != nil {
				return err
			}
		}
		if len(archive.Exercises) > 0 {
			if err := tx.Create(&archive.Exercises).Error; err != nil {
				return err
			}
		}
		if len(archive.Sessions) > 0 {
			if err := tx.Omit("Exercises", "Aerobics").Create(&archive.Sessions).Error; err != nil {
				return err
			}
		}
		if len(archive.Entries) > 0 {
			if err := tx.Omit("Exercise").Create(&archive.Entries).Error; err != nil {
				return err
			}
		}
		if len(archive.Aerobics) > 0 {
			if err := tx.Omit("Exercise").Create(&archive.Aerobics).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return ferr.Database("backup: restore", err)
	}
	return nil
}

// readArchive opens and decodes a gzip JSON archive.
func readArchive(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("backup: open %s: %w", path, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("backup: gunzip %s: %w", path, err)
	}
	defer gz.Close()

	var archive Archive
	if err := json.NewDecoder(gz).Decode(&archive); err != nil {
		return nil, fmt.Errorf("backup: decode %s: %w", path, err)
	}
	return &archive, nil
}
