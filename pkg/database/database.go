package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/medassist/medassist/internal/config"
	"github.com/medassist/medassist/internal/domain"
	"github.com/medassist/medassist/internal/domain/consultation"
	"github.com/medassist/medassist/internal/domain/patient"
	"github.com/medassist/medassist/internal/domain/prescription"
	"github.com/medassist/medassist/internal/domain/report"
	"github.com/medassist/medassist/internal/domain/task"
)

func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		PrepareStmt:                              true,
		DisableForeignKeyConstraintWhenMigrating: false,
		DisableAutomaticPing:                     false,
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: false,
	}), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")
	start := time.Now()

	schemas := []string{"clinical", "auth", "audit"} // logical namespace
	for _, schema := range schemas {
		if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)).Error; err != nil {
			return fmt.Errorf("creating schema %s: %w", schema, err)
		}
	}

	models := []any{
		&domain.User{},
		&domain.AuditLog{},
		&patient.Patient{},
		&report.Report{},
		&consultation.Consultation{},
		&task.Task{},
		&prescription.Suggestion{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}

	log.Info("migrations completed", zap.Duration("duration", time.Since(start)))
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []struct {
		name  string
		query string
	}{
		// Patient-name lookup on reports is the hottest chat path
		{
			name:  "idx_reports_patient_name_trgm",
			query: `CREATE INDEX IF NOT EXISTS idx_reports_patient_name_trgm ON clinical.medical_reports USING gin (patient_name gin_trgm_ops) WHERE deleted_at IS NULL`,
		},
		{
			name:  "idx_reports_file_hash",
			query: `CREATE INDEX IF NOT EXISTS idx_reports_file_hash ON clinical.medical_reports (file_hash) WHERE deleted_at IS NULL`,
		},
		{
			name:  "idx_patients_name_trgm",
			query: `CREATE INDEX IF NOT EXISTS idx_patients_name_trgm ON clinical.patients USING gin ((first_name || ' ' || last_name) gin_trgm_ops) WHERE deleted_at IS NULL`,
		},
		{
			name:  "idx_consultations_doctor_schedule",
			query: `CREATE INDEX IF NOT EXISTS idx_consultations_doctor_schedule ON clinical.consultations (doctor_id, scheduled_at, duration_mins) WHERE deleted_at IS NULL AND status NOT IN ('cancelled', 'no_show')`,
		},
		{
			name:  "idx_tasks_status_due",
			query: `CREATE INDEX IF NOT EXISTS idx_tasks_status_due ON clinical.tasks (status, due_at) WHERE deleted_at IS NULL`,
		},
	}

	for _, idx := range indexes {
		_ = db.Exec("CREATE EXTENSION IF NOT EXISTS pg_trgm").Error

		if err := db.Exec(idx.query).Error; err != nil {
			_ = err
		}
	}

	return nil
}
