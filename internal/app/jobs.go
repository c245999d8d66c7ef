package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, _ := time.LoadLocation(a.appConfig.System.Location)
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	spec := a.appConfig.Sync.Interval
	if spec == "" {
		spec = "@every 5m"
	}
	_, err := a.sched.AddFunc(spec, func() {
		go a.SchedFullSyncTask()
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	a.sched.Start()
}

// SchedFullSyncTask runs a pull-then-push cycle against the remote store.
func (a *Application) SchedFullSyncTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := a.engine.FullSync(ctx); err != nil {
		zap.L().Warn("scheduled full sync failed", zap.Error(err))
	}
}
