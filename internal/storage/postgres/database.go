package postgres

import (
	"fmt"
	"log"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"

	"github.com/dsavelev/reviewpress/internal/config"
	"github.com/dsavelev/reviewpress/models"
)

var DB *gorm.DB

// GetDB returns the package-level DB handle (for testing).
func GetDB() *gorm.DB {
	return DB
}

// InitDB connects to PostgreSQL using the DB_* environment variables and
// sets the package-level DB handle.
func InitDB() error {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		config.GetEnv("DB_HOST"),
		config.GetEnv("DB_USER"),
		config.GetEnv("DB_PASSWORD"),
		config.GetEnv("DB_NAME"),
		config.GetEnvDefault("DB_PORT", "5432"),
		config.GetEnvDefault("DB_SSLMODE", "disable"),
	)

	db, err := gorm.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to the database: %v", err)
	}

	DB = db
	log.Println("Successfully connected to the database.")
	return nil
}

// ResetSchema drops and recreates the public schema, destroying every row of
// every table. It only runs when the DB_RESET environment flag is set and is
// never the default; Migrate must be called afterwards.
func ResetSchema() error {
	err := DB.Exec(
		"DROP SCHEMA public CASCADE;" +
			"CREATE SCHEMA public;" +
			"GRANT ALL ON SCHEMA public TO postgres;" +
			"GRANT ALL ON SCHEMA public TO public;").Error
	if err != nil {
		return fmt.Errorf("failed to reset schema: %w", err)
	}

	log.Println("DANGER: public schema dropped and recreated, all data is gone.")
	return nil
}

// Migrate creates the three tables if absent and wires up the foreign keys.
func Migrate() error {
	err := DB.AutoMigrate(&models.Author{}, &models.Article{}, &models.Review{}).Error
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// AddForeignKey is postgres-only in gorm v1; sqlite test databases skip
	// this step and migrate with AutoMigrate alone.
	if err := DB.Model(&models.Article{}).AddForeignKey("author_id", "authors(id)", "RESTRICT", "RESTRICT").Error; err != nil {
		return fmt.Errorf("failed to add articles.author_id foreign key: %w", err)
	}
	if err := DB.Model(&models.Review{}).AddForeignKey("author_id", "authors(id)", "RESTRICT", "RESTRICT").Error; err != nil {
		return fmt.Errorf("failed to add reviews.author_id foreign key: %w", err)
	}
	if err := DB.Model(&models.Review{}).AddForeignKey("article_id", "articles(id)", "RESTRICT", "RESTRICT").Error; err != nil {
		return fmt.Errorf("failed to add reviews.article_id foreign key: %w", err)
	}

	return nil
}

// CloseDB closes the database connection.
func CloseDB() error {
	if DB == nil {
		return nil
	}

	err := DB.Close()
	if err != nil {
		return fmt.Errorf("failed to close the database connection: %v", err)
	}

	log.Println("Database connection closed.")
	return nil
}

// InitDBWithConnection is for testing (allows injecting a DB connection).
func InitDBWithConnection(db *gorm.DB) {
	DB = db
}
