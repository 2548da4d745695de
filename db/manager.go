package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"petii/config"
	"petii/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
	"gorm.io/plugin/dbresolver"
)

var ORM *gorm.DB

func dsnFromConfig(dbConf config.DBConfig) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		dbConf.Host, dbConf.Port, dbConf.User, dbConf.Password, dbConf.DBName,
	)
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
			NoLowerCase:   false,
		},
		// Unique violations surface as gorm.ErrDuplicatedKey on every dialect.
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}
}

func ConnectDB() (err error) {
	if ORM != nil {
		slog.Info("ORM is already initialized")
		return nil
	}

	var conf = config.AppConfig
	if conf == nil {
		return fmt.Errorf("AppConfig is not loaded")
	}

	if conf.Database.Driver == "sqlite" {
		return ConnectSQLite(conf.Database.Path)
	}

	if conf.Database.Master.Host == "" {
		return fmt.Errorf("master database configuration is missing")
	}

	// Initialize the ORM with the master database
	masterDSN := dsnFromConfig(conf.Database.Master)
	// Init replicas
	replicaDSNs := make([]gorm.Dialector, 0, len(conf.Database.Replicas))
	for _, r := range conf.Database.Replicas {
		replicaDSNs = append(replicaDSNs, postgres.Open(dsnFromConfig(r)))
	}

	db, err := gorm.Open(postgres.Open(masterDSN), gormConfig())
	if err != nil {
		return err
	}

	if len(replicaDSNs) > 0 {
		err = db.Use(dbresolver.Register(dbresolver.Config{
			Replicas: replicaDSNs,
			Policy:   dbresolver.RandomPolicy{},
		}))
		if err != nil {
			return
		}
	}

	if err = Migrate(db); err != nil {
		return err
	}

	ORM = db
	return nil
}

// ConnectSQLite opens a sqlite database at path (":memory:" for tests) and migrates it.
func ConnectSQLite(path string) error {
	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	// sqlite has a single writer; an in-memory database lives on one connection.
	sqlDB.SetMaxOpenConns(1)

	if err = Migrate(db); err != nil {
		return err
	}
	ORM = db
	return nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{}, &models.Pet{}, &models.Follow{},
		&models.Post{}, &models.PostHashtag{}, &models.Comment{}, &models.Like{},
		&models.Message{},
	)
}

// Close releases the connection pool.
func Close() error {
	if ORM == nil {
		return nil
	}
	sqlDB, err := ORM.DB()
	if err != nil {
		return err
	}
	ORM = nil
	return sqlDB.Close()
}

// IsDuplicateKey reports whether err is a unique-constraint violation.
func IsDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// GetReadOnlyDB возвращает подключение для чтения (слейвы)
func GetReadOnlyDB(ctx context.Context) *gorm.DB {
	return ORM.WithContext(ctx).Clauses(dbresolver.Read)
}

// GetWriteDB возвращает подключение для записи (мастер)
func GetWriteDB(ctx context.Context) *gorm.DB {
	return ORM.WithContext(ctx).Clauses(dbresolver.Write)
}
