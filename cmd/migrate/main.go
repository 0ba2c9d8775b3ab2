package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/lib/pq"

	"stock-radar/internal/infrastructure/config"
)

// 已套用的檔名記在 schema_migrations，重跑只會補上新的檔案。
const migrationTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    filename   TEXT PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	migrationsPath := flag.String("dir", "db/migrations", "path to migrations directory")
	flag.Parse()

	cfg, err := config.LoadFromFile(*cfgPath)
	if err != nil {
		log.Fatalf("讀取組態失敗: %v", err)
	}
	if cfg.DB.DSN == "" {
		log.Fatal("config.db.dsn 未設定，無法執行 migration")
	}

	files, err := collectMigrations(*migrationsPath)
	if err != nil {
		log.Fatalf("%v", err)
	}

	db, err := sql.Open("postgres", cfg.DB.DSN)
	if err != nil {
		log.Fatalf("連線資料庫失敗: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("資料庫無法連線: %v", err)
	}

	if _, err := db.Exec(migrationTable); err != nil {
		log.Fatalf("建立 schema_migrations 失敗: %v", err)
	}

	applied := 0
	for _, f := range files {
		name := filepath.Base(f)
		var exists bool
		if err := db.QueryRow(`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE filename = $1);`, name).Scan(&exists); err != nil {
			log.Fatalf("查詢 migration 狀態失敗: %v", err)
		}
		if exists {
			log.Printf("略過已套用的 migration: %s", name)
			continue
		}

		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			log.Fatalf("讀取檔案 %s 失敗: %v", name, err)
		}
		log.Printf("執行 migration: %s", name)
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			log.Fatalf("執行 %s 失敗: %v", name, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_migrations (filename) VALUES ($1);`, name); err != nil {
			log.Fatalf("記錄 %s 失敗: %v", name, err)
		}
		applied++
	}

	fmt.Printf("Migration 完成，本次套用 %d 個檔案\n", applied)
}

func collectMigrations(dir string) ([]string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("解析 migrations 路徑失敗: %w", err)
	}
	if _, err := os.Stat(absDir); err != nil {
		return nil, fmt.Errorf("migrations 目錄不存在: %w", err)
	}

	files, err := filepath.Glob(filepath.Join(absDir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("讀取 migrations 失敗: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("找不到任何 .sql migration 檔案")
	}
	sort.Strings(files)
	return files, nil
}
