package services

import (
	"context"
	"time"

	"edu-learning-platform/internal/logger"

	"github.com/go-co-op/gocron"
)

// MaintenanceService runs periodic background jobs in the worker process.
// Its main job is sweeping chunk generations orphaned by failed or
// interrupted re-ingestions.
type MaintenanceService struct {
	chunks    ChunkStore
	scheduler *gocron.Scheduler
	interval  time.Duration
}

func NewMaintenanceService(chunks ChunkStore, interval time.Duration) *MaintenanceService {
	return &MaintenanceService{
		chunks:    chunks,
		scheduler: gocron.NewScheduler(time.UTC),
		interval:  interval,
	}
}

// Start schedules the generation sweep and returns immediately.
func (m *MaintenanceService) Start() error {
	_, err := m.scheduler.Every(m.interval).Do(m.sweepGenerations)
	if err != nil {
		return err
	}
	m.scheduler.StartAsync()
	logger.Info("Maintenance scheduler started", "sweep_interval", m.interval.String())
	return nil
}

func (m *MaintenanceService) Stop() {
	m.scheduler.Stop()
}

func (m *MaintenanceService) sweepGenerations() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	removed, err := m.chunks.SweepStaleGenerations(ctx)
	if err != nil {
		logger.Error("Generation sweep failed", "error", err)
		return
	}
	if removed > 0 {
		logger.Info("Generation sweep reclaimed chunks", "removed", removed)
	}
}
