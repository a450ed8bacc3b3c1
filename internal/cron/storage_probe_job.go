package cron

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/catalog-admin/internal/media"
	"github.com/angelmondragon/catalog-admin/pkg/logger"
)

type probeRefresher interface {
	Refresh(ctx context.Context) (media.ProbeResult, error)
}

// NewStorageProbeJob refreshes the cached storage readiness result.
func NewStorageProbeJob(logg *logger.Logger, cache probeRefresher) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cache == nil {
		return nil, fmt.Errorf("probe cache required")
	}
	return &storageProbeJob{logg: logg, cache: cache}, nil
}

type storageProbeJob struct {
	logg  *logger.Logger
	cache probeRefresher
}

func (j *storageProbeJob) Name() string { return "storage-probe" }

func (j *storageProbeJob) Run(ctx context.Context) error {
	result, err := j.cache.Refresh(ctx)
	if err != nil {
		return err
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"bucket":    result.Bucket,
		"available": result.Available,
	})
	if !result.Available {
		return errors.New(result.Message)
	}
	j.logg.Info(logCtx, "storage probe refreshed")
	return nil
}
