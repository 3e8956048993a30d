package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/engine"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
)

type schedulerTeacherReader interface {
	ListActive(ctx context.Context) ([]models.Teacher, error)
}

type schedulerClassReader interface {
	ListActive(ctx context.Context) ([]models.Class, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.Class, error)
}

type schedulerCourseReader interface {
	ListActive(ctx context.Context) ([]models.Course, error)
}

type schedulerRoomReader interface {
	ListActive(ctx context.Context) ([]models.Room, error)
}

type schedulerPlanReader interface {
	ListApprovedAssignments(ctx context.Context, academicYear string, semester int, classIDs []string) ([]models.CourseAssignment, error)
}

type schedulerRulesReader interface {
	FindByID(ctx context.Context, id string) (*models.SchedulingRules, error)
	FindDefault(ctx context.Context) (*models.SchedulingRules, error)
}

type scheduleStore interface {
	BulkCreateTx(ctx context.Context, exec sqlx.ExtContext, schedules []models.Schedule) error
	DeactivateTx(ctx context.Context, exec sqlx.ExtContext, academicYear string, semester int, classIDs []string) error
	ListActive(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type runQueue interface {
	Enqueue(job jobs.Job) error
}

type timetableInvalidator interface {
	InvalidateTerm(ctx context.Context, academicYear string, semester int)
}

// SchedulingServiceConfig governs run execution.
type SchedulingServiceConfig struct {
	RunTTL                  time.Duration
	MaxIterations           int
	TimeLimit               time.Duration
	EnableLocalOptimization bool
	// Synchronous executes runs inline instead of through the queue.
	Synchronous bool
}

// SchedulingService orchestrates scheduling runs: it resolves the rule set,
// loads the term's teaching plans and resources, hands everything to the
// engine on a background worker and persists the materialized schedule.
type SchedulingService struct {
	teachers  schedulerTeacherReader
	classes   schedulerClassReader
	courses   schedulerCourseReader
	rooms     schedulerRoomReader
	plans     schedulerPlanReader
	rules     schedulerRulesReader
	schedules scheduleStore
	tx        txProvider
	queue     runQueue
	cache     timetableInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       SchedulingServiceConfig
	runs      *runStore
}

// NewSchedulingService wires scheduler dependencies. Queue, cache and metrics
// may be nil; a nil queue forces synchronous execution.
func NewSchedulingService(
	teachers schedulerTeacherReader,
	classes schedulerClassReader,
	courses schedulerCourseReader,
	rooms schedulerRoomReader,
	plans schedulerPlanReader,
	rules schedulerRulesReader,
	schedules scheduleStore,
	tx txProvider,
	queue runQueue,
	cache timetableInvalidator,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg SchedulingServiceConfig,
) *SchedulingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RunTTL <= 0 {
		cfg.RunTTL = 2 * time.Hour
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 200
	}
	if cfg.TimeLimit <= 0 {
		cfg.TimeLimit = 2 * time.Minute
	}
	if queue == nil {
		cfg.Synchronous = true
	}
	return &SchedulingService{
		teachers:  teachers,
		classes:   classes,
		courses:   courses,
		rooms:     rooms,
		plans:     plans,
		rules:     rules,
		schedules: schedules,
		tx:        tx,
		queue:     queue,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		runs:      newRunStore(cfg.RunTTL),
	}
}

// Execute validates the request, resolves rules and classes eagerly so the
// caller gets configuration errors synchronously, then submits the run.
func (s *SchedulingService) Execute(ctx context.Context, req dto.ExecuteSchedulingRequest) (*dto.SchedulingRunResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scheduling request")
	}

	rules, rulesID, err := s.resolveRules(ctx, req.RulesID)
	if err != nil {
		return nil, err
	}
	if err := rules.Validate(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidRules.Code, appErrors.ErrInvalidRules.Status, err.Error())
	}

	// An empty class list means every active class.
	classIDs := append([]string(nil), req.ClassIDs...)
	if len(classIDs) == 0 {
		all, err := s.classes.ListActive(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
		}
		if len(all) == 0 {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active classes to schedule")
		}
		for _, c := range all {
			classIDs = append(classIDs, c.ID)
		}
	} else {
		classes, err := s.classes.ListByIDs(ctx, classIDs)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
		}
		if len(classes) != len(classIDs) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "one or more classes not found")
		}
	}

	algCfg := engine.AlgorithmConfig{
		MaxIterations:           s.cfg.MaxIterations,
		TimeLimit:               s.cfg.TimeLimit,
		EnableLocalOptimization: s.cfg.EnableLocalOptimization,
	}
	if opt := req.Algorithm; opt != nil {
		if opt.MaxIterations > 0 {
			algCfg.MaxIterations = opt.MaxIterations
		}
		if opt.TimeLimitSeconds > 0 {
			algCfg.TimeLimit = time.Duration(opt.TimeLimitSeconds) * time.Second
		}
		algCfg.EnableLocalOptimization = opt.EnableLocalOptimization
	}

	// The run outlives the HTTP request; its context is cancelled only by
	// CancelRun or worker shutdown.
	runCtx, cancel := context.WithCancel(context.Background())
	run := &schedulingRun{
		ID:           uuid.NewString(),
		Status:       RunStatusPending,
		AcademicYear: req.AcademicYear,
		Semester:     req.Semester,
		ClassIDs:     classIDs,
		RulesID:      rulesID,
		Preserve:     req.PreserveExisting,
		Rules:        rules,
		Config:       algCfg,
		StartedAt:    time.Now().UTC(),
		cancel:       cancel,
		ctx:          runCtx,
	}
	s.runs.Save(run)

	if s.cfg.Synchronous {
		s.executeRun(run.ID)
	} else if err := s.queue.Enqueue(jobs.Job{ID: run.ID, Type: "scheduling_run"}); err != nil {
		cancel()
		s.runs.Delete(run.ID)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue scheduling run")
	}

	resp := s.GetRunResponse(run.ID)
	if resp == nil {
		return nil, appErrors.ErrInternal
	}
	return resp, nil
}

// GetRun returns the lifecycle view of a run.
func (s *SchedulingService) GetRun(ctx context.Context, id string) (*dto.SchedulingRunResponse, error) {
	resp := s.GetRunResponse(id)
	if resp == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "scheduling run not found")
	}
	return resp, nil
}

// CancelRun aborts a pending or running run. Terminal runs cannot be
// cancelled.
func (s *SchedulingService) CancelRun(ctx context.Context, id string) (*dto.SchedulingRunResponse, error) {
	run, ok := s.runs.Get(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "scheduling run not found")
	}
	if run.terminal() {
		return nil, appErrors.ErrRunNotCancellable
	}
	run.cancel()
	s.logger.Info("scheduling run cancellation requested", zap.String("runId", id))
	return s.GetRunResponse(id), nil
}

// HandleRunJob is the queue handler: it looks the run up by job id and
// executes it. Unknown ids are dropped, they belong to expired runs.
func (s *SchedulingService) HandleRunJob(ctx context.Context, job jobs.Job) error {
	run, ok := s.runs.Get(job.ID)
	if !ok {
		s.logger.Warn("scheduling job references unknown run", zap.String("runId", job.ID))
		return nil
	}
	// Worker shutdown aborts in-flight runs.
	stop := context.AfterFunc(ctx, run.cancel)
	defer stop()
	s.executeRun(job.ID)
	return nil
}

func (s *SchedulingService) executeRun(id string) {
	run, ok := s.runs.Get(id)
	if !ok {
		return
	}
	ctx := run.ctx
	started := time.Now().UTC()
	s.runs.Update(id, func(r *schedulingRun) {
		r.Status = RunStatusRunning
	})
	s.logger.Info("scheduling run started",
		zap.String("runId", id),
		zap.String("academicYear", run.AcademicYear),
		zap.Int("semester", run.Semester),
		zap.Int("classes", len(run.ClassIDs)))

	fail := func(err error) {
		now := time.Now().UTC()
		s.runs.Update(id, func(r *schedulingRun) {
			r.Status = RunStatusFailed
			r.Err = err.Error()
			r.FinishedAt = &now
		})
		s.metrics.ObserveSchedulingRun(string(RunStatusFailed), time.Since(started), 0)
		s.logger.Error("scheduling run failed", zap.String("runId", id), zap.Error(err))
	}

	snapshot, err := s.buildSnapshot(ctx, run.ClassIDs)
	if err != nil {
		fail(err)
		return
	}
	var preserved []engine.PreservedAssignment
	if run.Preserve {
		preserved, err = s.buildPreserved(ctx, run.AcademicYear, run.Semester, run.ClassIDs)
		if err != nil {
			fail(err)
			return
		}
	}
	demands, err := s.buildDemands(ctx, run.AcademicYear, run.Semester, run.ClassIDs, preserved)
	if err != nil {
		fail(err)
		return
	}

	progress := make(chan engine.Progress, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range progress {
			update := p
			s.runs.Update(id, func(r *schedulingRun) {
				r.Progress = &update
			})
		}
	}()

	result, err := engine.Run(ctx, engine.Request{
		Demands:   demands,
		Preserved: preserved,
		Rules:     run.Rules,
		Snapshot:  snapshot,
		Config:    run.Config,
		Progress:  progress,
		Logger:    s.logger.Named("engine"),
	})
	close(progress)
	<-done
	if err != nil {
		fail(err)
		return
	}

	if result.Status == engine.StatusCompleted {
		if err := s.persist(ctx, run, result); err != nil {
			fail(err)
			return
		}
		if s.cache != nil {
			s.cache.InvalidateTerm(context.Background(), run.AcademicYear, run.Semester)
		}
	}

	status := RunStatusCompleted
	if result.Status == engine.StatusAborted {
		status = RunStatusAborted
	}
	now := time.Now().UTC()
	s.runs.Update(id, func(r *schedulingRun) {
		r.Status = status
		r.Result = result
		r.FinishedAt = &now
	})
	s.metrics.ObserveSchedulingRun(string(status), time.Since(started), result.Statistics.UnassignedVariables)
	s.logger.Info("scheduling run finished",
		zap.String("runId", id),
		zap.String("status", string(status)),
		zap.Int("assigned", result.Statistics.AssignedVariables),
		zap.Int("unassigned", result.Statistics.UnassignedVariables),
		zap.Int("score", result.Statistics.TotalScore))
}

// persist replaces the active schedule of the run's classes with the
// materialized entries in one transaction. Preserved entries are re-inserted
// so active coverage stays consistent.
func (s *SchedulingService) persist(ctx context.Context, run schedulingRun, result *engine.Result) error {
	// Persistence must finish even when the run was cancelled mid-commit.
	ctx = context.WithoutCancel(ctx)
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schedule transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := s.schedules.DeactivateTx(ctx, tx, run.AcademicYear, run.Semester, run.ClassIDs); err != nil {
		return fmt.Errorf("deactivate previous schedule: %w", err)
	}

	records := make([]models.Schedule, 0, len(result.Entries))
	for _, entry := range result.Entries {
		var roomID *string
		if entry.RoomID != "" {
			id := entry.RoomID
			roomID = &id
		}
		records = append(records, models.Schedule{
			AcademicYear: run.AcademicYear,
			Semester:     run.Semester,
			ClassID:      entry.ClassID,
			CourseID:     entry.CourseID,
			TeacherID:    entry.TeacherID,
			RoomID:       roomID,
			DayOfWeek:    entry.DayOfWeek,
			Period:       entry.Period,
			WeekType:     string(entry.WeekType),
			StartWeek:    entry.StartWeek,
			EndWeek:      entry.EndWeek,
			Status:       models.ScheduleStatusActive,
		})
	}
	if err := s.schedules.BulkCreateTx(ctx, tx, records); err != nil {
		return fmt.Errorf("insert schedule records: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schedule transaction: %w", err)
	}
	return nil
}

func (s *SchedulingService) resolveRules(ctx context.Context, rulesID string) (engine.Rules, string, error) {
	var (
		record *models.SchedulingRules
		err    error
	)
	if rulesID != "" {
		record, err = s.rules.FindByID(ctx, rulesID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return engine.Rules{}, "", appErrors.Clone(appErrors.ErrNotFound, "scheduling rules not found")
			}
			return engine.Rules{}, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scheduling rules")
		}
	} else {
		record, err = s.rules.FindDefault(ctx)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return engine.Rules{}, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load default scheduling rules")
		}
	}
	if record == nil {
		return engine.DefaultRules(), "", nil
	}
	rules, err := parseRules(record.Payload)
	if err != nil {
		return engine.Rules{}, "", appErrors.Wrap(err, appErrors.ErrInvalidRules.Code, appErrors.ErrInvalidRules.Status, "malformed scheduling rules payload")
	}
	return rules, record.ID, nil
}

// parseRules overlays a stored JSONB payload on the default rule set, so
// partial payloads only override what they mention.
func parseRules(payload types.JSONText) (engine.Rules, error) {
	rules := engine.DefaultRules()
	if len(payload) == 0 {
		return rules, nil
	}
	if err := json.Unmarshal(payload, &rules); err != nil {
		return engine.Rules{}, err
	}
	return rules, nil
}

func (s *SchedulingService) buildSnapshot(ctx context.Context, classIDs []string) (*engine.Snapshot, error) {
	teachers, err := s.teachers.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("load teachers: %w", err)
	}
	classes, err := s.classes.ListByIDs(ctx, classIDs)
	if err != nil {
		return nil, fmt.Errorf("load classes: %w", err)
	}
	courses, err := s.courses.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("load courses: %w", err)
	}
	rooms, err := s.rooms.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}

	teacherInfos := make([]engine.TeacherInfo, 0, len(teachers))
	for _, t := range teachers {
		unavailable, err := slotsFromJSON(t.Unavailable)
		if err != nil {
			return nil, fmt.Errorf("teacher %s unavailable slots: %w", t.ID, err)
		}
		preferred, err := slotsFromJSON(t.Preferred)
		if err != nil {
			return nil, fmt.Errorf("teacher %s preferred slots: %w", t.ID, err)
		}
		teacherInfos = append(teacherInfos, engine.TeacherInfo{
			ID:             t.ID,
			Name:           t.FullName,
			MaxWeeklyHours: t.MaxWeeklyHours,
			Unavailable:    unavailable,
			Preferred:      preferred,
		})
	}

	classInfos := make([]engine.ClassInfo, 0, len(classes))
	for _, c := range classes {
		classInfos = append(classInfos, engine.ClassInfo{
			ID:           c.ID,
			Name:         c.Name,
			Grade:        c.Grade,
			StudentCount: c.StudentCount,
		})
	}

	courseInfos := make([]engine.CourseInfo, 0, len(courses))
	for _, c := range courses {
		var roomTypes []string
		if len(c.RoomTypes) > 0 {
			if err := json.Unmarshal(c.RoomTypes, &roomTypes); err != nil {
				return nil, fmt.Errorf("course %s room types: %w", c.ID, err)
			}
		}
		courseInfos = append(courseInfos, engine.CourseInfo{
			ID:                   c.ID,
			Name:                 c.Name,
			Subject:              c.Subject,
			RoomTypes:            roomTypes,
			AvoidFirstLastPeriod: c.AvoidFirstLastPeriod,
		})
	}

	roomInfos := make([]engine.RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		unavailable, err := slotsFromJSON(r.Unavailable)
		if err != nil {
			return nil, fmt.Errorf("room %s unavailable slots: %w", r.ID, err)
		}
		roomInfos = append(roomInfos, engine.RoomInfo{
			ID:          r.ID,
			Name:        r.Name,
			Type:        r.Type,
			Capacity:    r.Capacity,
			Unavailable: unavailable,
		})
	}

	return engine.NewSnapshot(teacherInfos, classInfos, courseInfos, roomInfos), nil
}

func (s *SchedulingService) buildDemands(ctx context.Context, academicYear string, semester int, classIDs []string, preserved []engine.PreservedAssignment) ([]engine.CourseDemand, error) {
	assignments, err := s.plans.ListApprovedAssignments(ctx, academicYear, semester, classIDs)
	if err != nil {
		return nil, fmt.Errorf("load teaching plans: %w", err)
	}
	if len(assignments) == 0 {
		return nil, fmt.Errorf("no approved teaching plans for %s semester %d", academicYear, semester)
	}

	// Preserved hours already satisfy part of the plan, so they reduce the
	// demand instead of doubling it on a re-run.
	kept := make(map[string]int, len(preserved))
	for _, p := range preserved {
		kept[p.ClassID+"\x00"+p.CourseID+"\x00"+p.TeacherID]++
	}

	demands := make([]engine.CourseDemand, 0, len(assignments))
	for _, a := range assignments {
		preferred, err := slotsFromJSON(a.PreferredSlots)
		if err != nil {
			return nil, fmt.Errorf("assignment %s preferred slots: %w", a.ID, err)
		}
		avoid, err := slotsFromJSON(a.AvoidSlots)
		if err != nil {
			return nil, fmt.Errorf("assignment %s avoid slots: %w", a.ID, err)
		}
		var fixedSlot *engine.TimeSlot
		if a.FixedDayOfWeek != nil && a.FixedPeriod != nil {
			fixedSlot = &engine.TimeSlot{Day: *a.FixedDayOfWeek, Period: *a.FixedPeriod}
		}
		var fixedRoomID string
		if a.FixedRoomID != nil {
			fixedRoomID = *a.FixedRoomID
		}
		hours := a.WeeklyHours - kept[a.ClassID+"\x00"+a.CourseID+"\x00"+a.TeacherID]
		if hours <= 0 {
			continue
		}
		demands = append(demands, engine.CourseDemand{
			ClassID:            a.ClassID,
			CourseID:           a.CourseID,
			TeacherID:          a.TeacherID,
			WeeklyHours:        hours,
			RequiresContinuous: a.RequiresContinuous,
			ContinuousHours:    a.ContinuousHours,
			PreferredSlots:     preferred,
			AvoidSlots:         avoid,
			FixedSlot:          fixedSlot,
			FixedRoomID:        fixedRoomID,
			WeekType:           engine.WeekType(a.WeekType),
			StartWeek:          a.StartWeek,
			EndWeek:            a.EndWeek,
		})
	}
	return demands, nil
}

func (s *SchedulingService) buildPreserved(ctx context.Context, academicYear string, semester int, classIDs []string) ([]engine.PreservedAssignment, error) {
	active, err := s.schedules.ListActive(ctx, models.ScheduleFilter{
		AcademicYear: academicYear,
		Semester:     semester,
		ClassIDs:     classIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("load active schedule: %w", err)
	}
	preserved := make([]engine.PreservedAssignment, 0, len(active))
	for _, rec := range active {
		var roomID string
		if rec.RoomID != nil {
			roomID = *rec.RoomID
		}
		preserved = append(preserved, engine.PreservedAssignment{
			ClassID:   rec.ClassID,
			CourseID:  rec.CourseID,
			TeacherID: rec.TeacherID,
			RoomID:    roomID,
			Slot:      engine.TimeSlot{Day: rec.DayOfWeek, Period: rec.Period},
			WeekType:  engine.WeekType(rec.WeekType),
			StartWeek: rec.StartWeek,
			EndWeek:   rec.EndWeek,
		})
	}
	return preserved, nil
}

// GetRunResponse builds the external view of a run; nil when the run is
// unknown or expired.
func (s *SchedulingService) GetRunResponse(id string) *dto.SchedulingRunResponse {
	run, ok := s.runs.Get(id)
	if !ok {
		return nil
	}
	resp := &dto.SchedulingRunResponse{
		RunID:        run.ID,
		Status:       string(run.Status),
		AcademicYear: run.AcademicYear,
		Semester:     run.Semester,
		ClassIDs:     run.ClassIDs,
		Progress:     run.Progress,
		Error:        run.Err,
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
	}
	if run.Result != nil {
		resp.Result = &dto.SchedulingResultResponse{
			Status:      string(run.Result.Status),
			Statistics:  run.Result.Statistics,
			Conflicts:   run.Result.Conflicts,
			Suggestions: run.Result.Suggestions,
			Unassigned:  run.Result.Unassigned,
			Diagnostics: run.Result.Diagnostics,
			EntryCount:  len(run.Result.Entries),
		}
	}
	return resp
}

func slotsFromJSON(payload types.JSONText) ([]engine.TimeSlot, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	var slots []engine.TimeSlot
	if err := json.Unmarshal(payload, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}
