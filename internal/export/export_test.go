package export

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/tbaldin/ferro/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openExportTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Exercise{},
		&models.WorkoutSession{},
		&models.WorkoutExercise{},
		&models.AerobicExercise{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func seedExportData(t *testing.T, db *gorm.DB) {
	t.Helper()

	supino := models.Exercise{Name: "supino reto", Type: models.TypeResistance, MuscleGroup: "peitoral"}
	corrida := models.Exercise{Name: "corrida", Type: models.TypeAerobic, MuscleGroup: "cardiorespiratorio"}
	if err := db.Create(&supino).Error; err != nil {
		t.Fatalf("seed exercise: %v", err)
	}
	if err := db.Create(&corrida).Error; err != nil {
		t.Fatalf("seed exercise: %v", err)
	}

	start := time.Date(2024, 6, 10, 14, 0, 0, 0, time.UTC)
	duration := 75
	weight := 82.5
	dist := 3.5
	sess := models.WorkoutSession{
		UserID:          "u1",
		Date:            time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		StartTime:       start,
		Status:          models.StatusFinished,
		DurationMinutes: &duration,
		BodyWeightKg:    &weight,
		AudioCount:      2,
		LastUpdate:      start,
		Exercises: []models.WorkoutExercise{
			{
				ExerciseID:     supino.ID,
				OrderInWorkout: 1,
				Sets:           3,
				Reps:           models.IntsJSON([]int{10, 8, 8}),
				WeightsKg:      models.FloatsJSON([]float64{60, 70, 70}),
			},
		},
		Aerobics: []models.AerobicExercise{
			{
				ExerciseID:      corrida.ID,
				DurationMinutes: 20,
				DistanceKm:      &dist,
				IntensityLevel:  "moderate",
			},
		},
	}
	if err := db.Create(&sess).Error; err != nil {
		t.Fatalf("seed session: %v", err)
	}
}

func TestNewService_NilDB(t *testing.T) {
	if _, err := NewService(nil); err == nil {
		t.Error("expected error for nil db")
	}
}

func TestCSV(t *testing.T) {
	db := openExportTestDB(t)
	seedExportData(t, db)
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	data, err := svc.CSV("u1")
	if err != nil {
		t.Fatalf("csv: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 { // header + one resistance + one aerobic
		t.Fatalf("rows = %d, want 3", len(records))
	}
	if records[0][0] != "date" || records[0][2] != "exercise" {
		t.Errorf("header = %v", records[0])
	}

	res := records[1]
	if res[2] != "supino reto" {
		t.Errorf("exercise = %q, want %q", res[2], "supino reto")
	}
	if res[6] != "10|8|8" {
		t.Errorf("reps = %q, want %q", res[6], "10|8|8")
	}
	if res[7] != "60|70|70" {
		t.Errorf("weights = %q, want %q", res[7], "60|70|70")
	}

	aer := records[2]
	if aer[2] != "corrida" || aer[8] != "20" || aer[9] != "3.5" {
		t.Errorf("aerobic row = %v", aer)
	}
}

func TestCSV_NoSessions(t *testing.T) {
	db := openExportTestDB(t)
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	data, err := svc.CSV("nobody")
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("rows = %d, want header only", len(records))
	}
}

func TestJSON(t *testing.T) {
	db := openExportTestDB(t)
	seedExportData(t, db)
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	data, err := svc.JSON("u1")
	if err != nil {
		t.Fatalf("json: %v", err)
	}

	var sessions []jsonSession
	if err := json.Unmarshal(data, &sessions); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(sessions))
	}

	s := sessions[0]
	if s.Date != "2024-06-10" {
		t.Errorf("Date = %q, want %q", s.Date, "2024-06-10")
	}
	if s.Status != models.StatusFinished {
		t.Errorf("Status = %q, want %q", s.Status, models.StatusFinished)
	}
	if s.BodyWeightKg == nil || *s.BodyWeightKg != 82.5 {
		t.Errorf("BodyWeightKg = %v, want 82.5", s.BodyWeightKg)
	}
	if len(s.Exercises) != 1 || len(s.Aerobics) != 1 {
		t.Fatalf("got %d exercises, %d aerobics; want 1 each", len(s.Exercises), len(s.Aerobics))
	}
	if s.Exercises[0].Name != "supino reto" || s.Exercises[0].Order != 1 {
		t.Errorf("exercise = %+v", s.Exercises[0])
	}
	if s.Aerobics[0].DistanceKm == nil || *s.Aerobics[0].DistanceKm != 3.5 {
		t.Errorf("aerobic = %+v", s.Aerobics[0])
	}
}

func TestFilename(t *testing.T) {
	got := Filename("u1", "csv")
	if !strings.HasPrefix(got, "workouts_u1_") || !strings.HasSuffix(got, ".csv") {
		t.Errorf("Filename = %q", got)
	}
}
