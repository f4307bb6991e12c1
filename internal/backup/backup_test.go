package backup

import (
	"os"
	"testing"
	"time"

	"github.com/tbaldin/ferro/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openBackupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := openMemory()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	return db
}

func openMemory() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.Exercise{},
		&models.WorkoutSession{},
		&models.WorkoutExercise{},
		&models.AerobicExercise{},
	)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func seedBackupData(t *testing.T, db *gorm.DB) {
	t.Helper()

	user := models.User{UserID: "u1", Username: "athlete", IsActive: true}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	ex := models.Exercise{Name: "supino reto", Type: models.TypeResistance, MuscleGroup: "peitoral"}
	if err := db.Create(&ex).Error; err != nil {
		t.Fatalf("seed exercise: %v", err)
	}

	start := time.Date(2024, 6, 10, 14, 0, 0, 0, time.UTC)
	sess := models.WorkoutSession{
		UserID:     "u1",
		Date:       time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		StartTime:  start,
		Status:     models.StatusFinished,
		LastUpdate: start,
		Exercises: []models.WorkoutExercise{
			{
				ExerciseID:     ex.ID,
				OrderInWorkout: 1,
				Sets:           3,
				Reps:           models.IntsJSON([]int{10, 8, 8}),
				WeightsKg:      models.FloatsJSON([]float64{60, 70, 70}),
			},
		},
	}
	if err := db.Create(&sess).Error; err != nil {
		t.Fatalf("seed session: %v", err)
	}
}

func newTestService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	svc, err := NewService(ServiceOpts{DB: db, Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestNewService_Validation(t *testing.T) {
	db := openBackupTestDB(t)
	if _, err := NewService(ServiceOpts{Dir: "/tmp"}); err == nil {
		t.Error("expected error for nil db")
	}
	if _, err := NewService(ServiceOpts{DB: db}); err == nil {
		t.Error("expected error for empty dir")
	}
}

func TestCreateAndList(t *testing.T) {
	db := openBackupTestDB(t)
	seedBackupData(t, db)
	svc := newTestService(t, db)

	info, err := svc.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if info.Sessions != 1 {
		t.Errorf("Sessions = %d, want 1", info.Sessions)
	}
	if info.SizeBytes == 0 {
		t.Error("SizeBytes = 0, want non-empty file")
	}
	if _, err := os.Stat(info.Path); err != nil {
		t.Errorf("stat archive: %v", err)
	}

	infos, err := svc.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("len(List()) = %d, want 1", len(infos))
	}
	if infos[0].ID != info.ID {
		t.Errorf("ID = %q, want %q", infos[0].ID, info.ID)
	}
}

func TestList_MissingDir(t *testing.T) {
	db := openBackupTestDB(t)
	svc, err := NewService(ServiceOpts{DB: db, Dir: "/nonexistent/backups"})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	infos, err := svc.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("len(List()) = %d, want 0", len(infos))
	}
}

func TestList_NewestFirst(t *testing.T) {
	db := openBackupTestDB(t)
	svc := newTestService(t, db)

	first, err := svc.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	second, err := svc.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	infos, err := svc.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("len(List()) = %d, want 2", len(infos))
	}
	if infos[0].ID != second.ID || infos[1].ID != first.ID {
		t.Errorf("order = [%s %s], want newest first", infos[0].ID, infos[1].ID)
	}
}

func TestRestore_RoundTrip(t *testing.T) {
	db := openBackupTestDB(t)
	seedBackupData(t, db)
	svc := newTestService(t, db)

	info, err := svc.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Mutate the live data, then restore the snapshot over it.
	if err := db.Create(&models.User{UserID: "u2", IsActive: true}).Error; err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if err := svc.Restore(info.Path); err != nil {
		t.Fatalf("restore: %v", err)
	}

	var users int64
	if err := db.Model(&models.User{}).Count(&users).Error; err != nil {
		t.Fatalf("count users: %v", err)
	}
	if users != 1 {
		t.Errorf("users = %d, want 1 after restore", users)
	}

	var entry models.WorkoutExercise
	if err := db.Preload("Exercise").First(&entry).Error; err != nil {
		t.Fatalf("load entry: %v", err)
	}
	if entry.Exercise.Name != "supino reto" {
		t.Errorf("Exercise.Name = %q, want %q", entry.Exercise.Name, "supino reto")
	}
	if got := entry.RepsValues(); len(got) != 3 || got[0] != 10 {
		t.Errorf("RepsValues = %v, want [10 8 8]", got)
	}
}

func TestVerify(t *testing.T) {
	db := openBackupTestDB(t)
	seedBackupData(t, db)
	svc := newTestService(t, db)

	info, err := svc.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Verify(info.Path, openMemory); err != nil {
		t.Errorf("verify: %v", err)
	}

	if err := svc.Verify("/nonexistent.json.gz", openMemory); err == nil {
		t.Error("expected error for missing archive")
	}
}

func TestReadArchive_Corrupt(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/bad.json.gz"
	if err := os.WriteFile(path, []byte("not gzip"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := readArchive(path); err == nil {
		t.Error("expected error for corrupt archive")
	}
}
