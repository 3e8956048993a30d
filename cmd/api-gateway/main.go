package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-timetable-api/api/swagger"
	"github.com/noah-isme/sma-timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/cache"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/requestid"
)

// @title SMA Timetable API
// @version 1.0.0
// @description Timetable scheduling service: generates conflict-free school schedules from approved teaching plans.
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, timetable caching disabled", zap.Error(err))
		redisClient = nil
	}

	metricsSvc := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Timetable.CacheTTL, logr, redisClient != nil)

	teacherRepo := repository.NewTeacherRepository(db)
	classRepo := repository.NewClassRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	planRepo := repository.NewTeachingPlanRepository(db)
	rulesRepo := repository.NewSchedulingRulesRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)

	timetableSvc := service.NewTimetableService(scheduleRepo, classRepo, teacherRepo, cacheSvc, nil, logr)
	rulesSvc := service.NewRulesService(rulesRepo, logr)

	var schedulingSvc *service.SchedulingService
	queue := jobs.NewQueue("scheduling", func(ctx context.Context, job jobs.Job) error {
		return schedulingSvc.HandleRunJob(ctx, job)
	}, jobs.QueueConfig{
		Workers: cfg.Scheduler.Workers,
		Logger:  logr,
	})
	schedulingSvc = service.NewSchedulingService(
		teacherRepo, classRepo, courseRepo, roomRepo, planRepo, rulesRepo,
		scheduleRepo, db, queue, timetableSvc, metricsSvc, nil, logr,
		service.SchedulingServiceConfig{
			RunTTL:                  cfg.Scheduler.RunTTL,
			MaxIterations:           cfg.Scheduler.MaxIterations,
			TimeLimit:               cfg.Scheduler.TimeLimit,
			EnableLocalOptimization: cfg.Scheduler.EnableLocalOptimization,
		},
	)

	schedulingHandler := handler.NewSchedulingHandler(schedulingSvc)
	timetableHandler := handler.NewTimetableHandler(timetableSvc)
	rulesHandler := handler.NewRulesHandler(rulesSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(cfg.JWT.Secret))

	staff := internalmiddleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)

	scheduling := api.Group("/scheduling")
	{
		scheduling.POST("/runs", staff, schedulingHandler.Execute)
		scheduling.GET("/runs/:id", staff, schedulingHandler.GetRun)
		scheduling.POST("/runs/:id/cancel", staff, schedulingHandler.CancelRun)
		scheduling.GET("/rules", staff, rulesHandler.List)
		scheduling.GET("/rules/:id", staff, rulesHandler.Get)
	}

	timetables := api.Group("/timetables")
	{
		timetables.GET("/classes/:id", timetableHandler.ClassTimetable)
		timetables.GET("/classes/:id/export", timetableHandler.ExportClassTimetable)
		timetables.GET("/teachers/:id", timetableHandler.TeacherTimetable)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue.Start(ctx)
	defer queue.Stop()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
}
