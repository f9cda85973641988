package services

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
)

var DB *sql.DB

var postgresURI string

func initEnv() {
	dbName := os.Getenv("POSTGRES_DB")
	if dbName == "" {
		dbName = "fanhub"
	}

	postgresUser := os.Getenv("POSTGRES_USER")
	if postgresUser == "" {
		postgresUser = "fanhub"
	}

	postgresPassword := os.Getenv("POSTGRES_PASSWORD")
	if postgresPassword == "" {
		postgresPassword = "fanhub"
	}

	postgresHost := os.Getenv("POSTGRES_HOST")
	if postgresHost == "" {
		postgresHost = "localhost"
	}

	postgresPort := os.Getenv("POSTGRES_PORT")
	if postgresPort == "" {
		postgresPort = "5432"
	}

	postgresURI = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		postgresHost, postgresPort, postgresUser, postgresPassword, dbName)
}

func InitPostgres() {
	initEnv()

	var err error
	DB, err = sql.Open("postgres", postgresURI)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database connection: %v", err))
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(5)
	DB.SetConnMaxLifetime(5 * time.Minute)

	if err := DB.Ping(); err != nil {
		panic(fmt.Sprintf("Failed to ping database: %v", err))
	}

	fmt.Println("PostgreSQL connected!")
}

// RunMigrations runs all SQL migration files in order
func RunMigrations() error {
	migrations := []string{
		"DB/migrations/001_create_users_table.sql",
		"DB/migrations/002_create_posts_table.sql",
		"DB/migrations/003_add_posts_indexes.sql",
	}

	for _, migrationFile := range migrations {
		migrationSQL, err := os.ReadFile(migrationFile)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %v", migrationFile, err)
		}

		_, err = DB.Exec(string(migrationSQL))
		if err != nil {
			return fmt.Errorf("failed to execute migration %s: %v", migrationFile, err)
		}
		fmt.Printf("Migration %s executed successfully\n", migrationFile)
	}

	return nil
}
