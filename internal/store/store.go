// Package store archives finished games. Live play never reads from it.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/DoyleJ11/sketch-party-backend/pkg/types"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Repository interface {
	Save(ctx context.Context, result types.GameResult) error
	Recent(ctx context.Context, code string, limit int) ([]types.GameResult, error)
}

// NopRepository is used when no database is configured.
type NopRepository struct{}

func (NopRepository) Save(context.Context, types.GameResult) error { return nil }

func (NopRepository) Recent(context.Context, string, int) ([]types.GameResult, error) {
	return []types.GameResult{}, nil
}

type gameRow struct {
	ID          uint   `gorm:"primaryKey"`
	Code        string `gorm:"size:16;index"`
	TotalRounds int
	FinishedAt  time.Time  `gorm:"index"`
	Scores      []scoreRow `gorm:"foreignKey:GameID;constraint:OnDelete:CASCADE"`
}

func (gameRow) TableName() string { return "game_results" }

type scoreRow struct {
	ID       uint `gorm:"primaryKey"`
	GameID   uint `gorm:"index"`
	Place    int
	Username string `gorm:"size:64"`
	Score    int
}

func (scoreRow) TableName() string { return "game_scores" }

type GormStore struct {
	db *gorm.DB
}

// Open connects to postgres and migrates the archive tables.
func Open(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&gameRow{}, &scoreRow{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Save(ctx context.Context, result types.GameResult) error {
	row := gameRow{
		Code:        result.Code,
		TotalRounds: result.TotalRounds,
		FinishedAt:  time.UnixMilli(result.FinishedAt).UTC(),
	}
	for i, sc := range result.Leaderboard {
		row.Scores = append(row.Scores, scoreRow{Place: i + 1, Username: sc.Username, Score: sc.Score})
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("save result for %s: %w", result.Code, err)
	}
	return nil
}

// Recent returns the latest finished games for code, newest first.
func (s *GormStore) Recent(ctx context.Context, code string, limit int) ([]types.GameResult, error) {
	var rows []gameRow
	err := s.db.WithContext(ctx).
		Preload("Scores", func(db *gorm.DB) *gorm.DB { return db.Order("place") }).
		Where("code = ?", code).
		Order("finished_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("recent results for %s: %w", code, err)
	}

	out := make([]types.GameResult, 0, len(rows))
	for _, r := range rows {
		res := types.GameResult{
			Code:        r.Code,
			TotalRounds: r.TotalRounds,
			FinishedAt:  r.FinishedAt.UnixMilli(),
			Leaderboard: make([]types.Score, 0, len(r.Scores)),
		}
		for _, sc := range r.Scores {
			res.Leaderboard = append(res.Leaderboard, types.Score{Username: sc.Username, Score: sc.Score})
		}
		out = append(out, res)
	}
	return out, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
