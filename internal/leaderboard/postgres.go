package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type scoreRow struct {
	Seq        int64     `gorm:"primaryKey;autoIncrement:false"`
	PlayerName string    `gorm:"not null;index"`
	Score      int       `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (scoreRow) TableName() string { return "leaderboard_scores" }

type PostgresBackend struct {
	db *gorm.DB
}

// NewPostgresBackend connects through pgx's database/sql adapter and hands
// the pool to gorm.
func NewPostgresBackend(ctx context.Context, dsn string) (*PostgresBackend, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	sqlDB := stdlib.OpenDB(*cfg)
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	if err := db.WithContext(ctx).AutoMigrate(&scoreRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate scores: %w", err)
	}
	return &PostgresBackend{db: db}, nil
}

func (p *PostgresBackend) Load(ctx context.Context) ([]Entry, error) {
	var rows []scoreRow
	if err := p.db.WithContext(ctx).Order("seq asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load scores: %w", err)
	}
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, Entry{Seq: r.Seq, PlayerName: r.PlayerName, Score: r.Score, CreatedAt: r.CreatedAt})
	}
	return out, nil
}

func (p *PostgresBackend) Append(ctx context.Context, e Entry) error {
	row := scoreRow{Seq: e.Seq, PlayerName: e.PlayerName, Score: e.Score, CreatedAt: e.CreatedAt}
	if err := p.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert score: %w", err)
	}
	return nil
}

func (p *PostgresBackend) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
