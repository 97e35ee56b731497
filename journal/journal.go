// Package journal records finished runs in MySQL.
package journal

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"holecenter/video"
	"holecenter/video/source"
)

// Run is one row per processed run.
type Run struct {
	ID        uint   `gorm:"primaryKey"`
	RunID     string `gorm:"uniqueIndex;size:36"`
	Mode      string `gorm:"size:32"`
	Source    string `gorm:"size:1024"`
	StartedAt time.Time
	EndedAt   *time.Time

	// Duration of the source file in seconds, when it could be determined.
	SourceDurationSec *int

	Frames            int
	FramesWithCircles int
	EndReason         string `gorm:"size:32"`

	LastOffsetX *int
	LastOffsetY *int
}

// Open connects to MySQL and migrates the journal schema.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.AutoMigrate(&Run{}); err != nil {
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}
	return db, nil
}

// Journal is a video.RunListener that persists runs.
type Journal struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Journal {
	return &Journal{db: db}
}

// NewRun converts a run summary into a journal row.
func NewRun(s *video.RunSummary) *Run {
	r := &Run{
		RunID:             s.RunID,
		Mode:              string(s.Selection.Mode),
		Source:            s.Source,
		StartedAt:         s.StartedAt,
		Frames:            s.Frames,
		FramesWithCircles: s.FramesWithCircles,
		EndReason:         string(s.Reason),
	}
	if !s.EndedAt.IsZero() {
		t := s.EndedAt
		r.EndedAt = &t
	}
	if s.Selection.Mode == source.ModeFile {
		if sec, err := source.FileDuration(s.Selection.Path); err == nil {
			r.SourceDurationSec = &sec
		}
	}
	if s.Last != nil && len(s.Last.Offsets) > 0 {
		x, y := s.Last.Offsets[0].DX, s.Last.Offsets[0].DY
		r.LastOffsetX = &x
		r.LastOffsetY = &y
	}
	return r
}

func (j *Journal) RunStarted(s *video.RunSummary) {
	if err := j.db.Create(NewRun(s)).Error; err != nil {
		log.Errorf("Failed to journal start of run %v: %v", s.RunID, err)
	}
}

func (j *Journal) RunEnded(s *video.RunSummary) {
	r := NewRun(s)
	err := j.db.Model(&Run{}).Where("run_id = ?", s.RunID).Updates(map[string]interface{}{
		"ended_at":            r.EndedAt,
		"source_duration_sec": r.SourceDurationSec,
		"frames":              r.Frames,
		"frames_with_circles": r.FramesWithCircles,
		"end_reason":          r.EndReason,
		"last_offset_x":       r.LastOffsetX,
		"last_offset_y":       r.LastOffsetY,
	}).Error
	if err != nil {
		log.Errorf("Failed to journal end of run %v: %v", s.RunID, err)
	}
}

// Recent returns up to limit runs, newest first.
func (j *Journal) Recent(limit int) ([]*Run, error) {
	var runs []*Run
	if err := j.db.Order("started_at desc").Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
