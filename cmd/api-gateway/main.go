package main

import (
	"context"
	"fmt"
	"log"
	"net/http/pprof"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/sma-adp-api/api/swagger"
	"github.com/noah-isme/sma-adp-api/internal/grid"
	internalhandler "github.com/noah-isme/sma-adp-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-adp-api/internal/middleware"
	"github.com/noah-isme/sma-adp-api/internal/models"
	"github.com/noah-isme/sma-adp-api/internal/prep"
	"github.com/noah-isme/sma-adp-api/internal/repository"
	"github.com/noah-isme/sma-adp-api/internal/service"
	"github.com/noah-isme/sma-adp-api/internal/solver"
	"github.com/noah-isme/sma-adp-api/internal/store"
	"github.com/noah-isme/sma-adp-api/pkg/config"
	"github.com/noah-isme/sma-adp-api/pkg/database"
	"github.com/noah-isme/sma-adp-api/pkg/jobs"
	"github.com/noah-isme/sma-adp-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-adp-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-adp-api/pkg/middleware/requestid"
)

// @title Timetable Solver API
// @version 0.1.0
// @description CP-SAT backed academic timetable generation service.
// @BasePath /
// @schemes http

// subjectExistenceChecker grounds store.SubjectChecker on the repositories
// that already own each audience/resource table, so the Constraint Store
// never admits a record referencing a teacher, room, group or course slot
// that doesn't exist.
type subjectExistenceChecker struct {
	teachers *repository.TeacherRepository
	rooms    *repository.RoomRepository
	groups   *repository.GroupRepository
	courses  *repository.CourseRepository
}

func (c *subjectExistenceChecker) TeacherExists(ctx context.Context, id string) (bool, error) {
	return c.teachers.Exists(ctx, id)
}

func (c *subjectExistenceChecker) RoomExists(ctx context.Context, id string) (bool, error) {
	return c.rooms.Exists(ctx, id)
}

func (c *subjectExistenceChecker) GroupExists(ctx context.Context, id string) (bool, error) {
	return c.groups.Exists(ctx, id)
}

func (c *subjectExistenceChecker) CourseSlotExists(ctx context.Context, id string) (bool, error) {
	return c.courses.Exists(ctx, id)
}

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
		logr.Sugar().Fatalw("failed to initialise database", "error", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsSvc := service.NewMetricsService()
	metricsHandler := internalhandler.NewMetricsHandler(metricsSvc)

	userRepo := repository.NewUserRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	promotionRepo := repository.NewPromotionRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	subGroupRepo := repository.NewSubGroupRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	eligibilityRepo := repository.NewCourseEligibilityRepository(db)
	termRepo := repository.NewTermRepository(db)
	configurationRepo := repository.NewConfigurationRepository(db)
	weekScheduleRepo := repository.NewWeekScheduleRepository(db)
	weekScheduleSlotRepo := repository.NewWeekScheduleSlotRepository(db)
	publishedSlotRepo := repository.NewPublishedSlotRepository(db)

	checker := &subjectExistenceChecker{teachers: teacherRepo, rooms: roomRepo, groups: groupRepo, courses: courseRepo}
	constraintStore, err := store.New(ctx, db, checker)
	if err != nil {
		logr.Sugar().Fatalw("failed to initialise constraint store", "error", err)
	}

	builder := prep.NewBuilder(
		courseRepo,
		roomRepo,
		teacherRepo,
		promotionRepo,
		groupRepo,
		subGroupRepo,
		eligibilityRepo,
		constraintStore,
		grid.DefaultConfig(),
	)

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "timetable-solver",
		Audience:           []string{"timetable-solver-clients"},
	})
	userSvc := service.NewUserService(userRepo, nil, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, nil, logr)
	assignmentSvc := service.NewTeacherAssignmentService(teacherRepo, courseRepo, eligibilityRepo, nil, logr)
	promotionSvc := service.NewPromotionService(promotionRepo, nil, logr)
	groupSvc := service.NewGroupService(groupRepo, promotionRepo, nil, logr)
	subGroupSvc := service.NewSubGroupService(subGroupRepo, groupRepo, nil, logr)
	roomSvc := service.NewRoomService(roomRepo, nil, logr)
	courseSvc := service.NewCourseService(courseRepo, nil, logr)
	termSvc := service.NewTermService(termRepo, nil, logr)
	constraintSvc := service.NewConstraintService(constraintStore, logr)

	var configurationHandler *internalhandler.ConfigurationHandler
	if cfg.Configuration.Enabled {
		defaults := map[string]string{}
		if cfg.Configuration.ActiveTermID != "" {
			defaults["active_term_id"] = cfg.Configuration.ActiveTermID
		}
		configurationSvc := service.NewConfigurationService(
			configurationRepo,
			termRepo,
			userRepo,
			nil,
			logr,
			service.ConfigurationServiceConfig{Defaults: defaults},
		)
		configurationHandler = internalhandler.NewConfigurationHandler(configurationSvc)
	}

	activeTermID := cfg.Configuration.ActiveTermID

	schedulerDefaults := solver.Options{
		TimeBudgetSeconds: cfg.Scheduler.TimeBudgetSeconds,
		Workers:           cfg.Scheduler.Workers,
		Weights: solver.Weights{
			Forbidden: cfg.Scheduler.WeightForbiddenStart,
			Consec:    cfg.Scheduler.WeightOverConsecutive,
			Capacity:  cfg.Scheduler.WeightCapacityOverflow,
			Late:      cfg.Scheduler.WeightLateFinish,
		},
		MaxConsecutiveBlocks: cfg.Scheduler.MaxConsecutiveBlocks,
		LateStartThreshold:   cfg.Scheduler.LateStartThreshold,
	}

	timetableSvc := service.NewTimetableService(
		constraintStore,
		builder,
		weekScheduleRepo,
		weekScheduleSlotRepo,
		publishedSlotRepo,
		schedulerDefaults,
		activeTermID,
		nil,
		logr,
	)

	var timetableHandler *internalhandler.TimetableHandler
	if cfg.Scheduler.Enabled {
		workers := cfg.Scheduler.Workers
		if workers <= 0 {
			workers = 1
		}
		queueCfg := jobs.QueueConfig{
			Workers:    workers,
			BufferSize: workers * 4,
			MaxRetries: 1,
			RetryDelay: 5 * time.Second,
			Logger:     logr,
		}
		solveQueue := jobs.NewQueue("timetable", timetableSvc.HandleGenerateJob, queueCfg)
		timetableSvc.SetQueue(solveQueue)
		solveQueue.Start(ctx)
		defer solveQueue.Stop()

		timetableHandler = internalhandler.NewTimetableHandler(timetableSvc)
	}

	authHandler := internalhandler.NewAuthHandler(authSvc)
	userHandler := internalhandler.NewUserHandler(userSvc)
	teacherHandler := internalhandler.NewTeacherHandler(teacherSvc, assignmentSvc)
	promotionHandler := internalhandler.NewPromotionHandler(promotionSvc)
	groupHandler := internalhandler.NewGroupHandler(groupSvc)
	subGroupHandler := internalhandler.NewSubGroupHandler(subGroupSvc)
	roomHandler := internalhandler.NewRoomHandler(roomSvc)
	courseHandler := internalhandler.NewCourseHandler(courseSvc)
	termHandler := internalhandler.NewTermHandler(termSvc)
	constraintHandler := internalhandler.NewConstraintHandler(constraintSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
		registerPprof(r)
	}

	api := r.Group(cfg.APIPrefix)

	authRoutes := api.Group("/auth")
	authRoutes.POST("/login", authHandler.Login)
	authRoutes.POST("/refresh", authHandler.Refresh)
	authRoutes.POST("/forgot-password", authHandler.ForgotPassword)
	authRoutes.POST("/reset-password", authHandler.ResetPassword)
	protectedAuth := authRoutes.Group("")
	protectedAuth.Use(internalmiddleware.JWT(authSvc))
	protectedAuth.GET("/me", authHandler.Me)
	protectedAuth.POST("/logout", authHandler.Logout)
	protectedAuth.POST("/change-password", authHandler.ChangePassword)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(authSvc))

	admin := func() gin.HandlerFunc {
		return internalmiddleware.RBAC(string(models.RoleAdmin), string(models.RoleSuperAdmin))
	}
	anyStaff := func() gin.HandlerFunc {
		return internalmiddleware.RBAC(string(models.RoleTeacher), string(models.RoleAdmin), string(models.RoleSuperAdmin))
	}

	usersGroup := secured.Group("/users")
	usersGroup.Use(admin())
	usersGroup.GET("", userHandler.List)
	usersGroup.POST("", userHandler.Create)
	usersGroup.GET("/:id", userHandler.Get)
	usersGroup.PUT("/:id", userHandler.Update)
	usersGroup.DELETE("/:id", internalmiddleware.RBAC(string(models.RoleSuperAdmin)), userHandler.Delete)

	teachersGroup := secured.Group("/teachers")
	teachersGroup.GET("", anyStaff(), teacherHandler.List)
	teachersGroup.POST("", admin(), teacherHandler.Create)
	teachersGroup.GET("/:id", internalmiddleware.RBAC("SELF", string(models.RoleAdmin), string(models.RoleSuperAdmin)), teacherHandler.Get)
	teachersGroup.PUT("/:id", admin(), teacherHandler.Update)
	teachersGroup.DELETE("/:id", internalmiddleware.RBAC(string(models.RoleSuperAdmin)), teacherHandler.Delete)
	teachersGroup.GET("/:id/eligibilities", anyStaff(), teacherHandler.ListEligibleCourses)
	teachersGroup.POST("/:id/eligibilities", admin(), teacherHandler.CreateEligibility)
	teachersGroup.DELETE("/:id/eligibilities/:eid", admin(), teacherHandler.DeleteEligibility)

	promotionsGroup := secured.Group("/promotions")
	promotionsGroup.GET("", anyStaff(), promotionHandler.List)
	promotionsGroup.POST("", admin(), promotionHandler.Create)
	promotionsGroup.GET("/:id", anyStaff(), promotionHandler.Get)
	promotionsGroup.PUT("/:id", admin(), promotionHandler.Update)
	promotionsGroup.DELETE("/:id", admin(), promotionHandler.Delete)

	groupsGroup := secured.Group("/groups")
	groupsGroup.GET("", anyStaff(), groupHandler.List)
	groupsGroup.POST("", admin(), groupHandler.Create)
	groupsGroup.GET("/:id", anyStaff(), groupHandler.Get)
	groupsGroup.PUT("/:id", admin(), groupHandler.Update)
	groupsGroup.DELETE("/:id", admin(), groupHandler.Delete)

	subGroupsGroup := secured.Group("/sub-groups")
	subGroupsGroup.GET("", anyStaff(), subGroupHandler.List)
	subGroupsGroup.POST("", admin(), subGroupHandler.Create)
	subGroupsGroup.GET("/:id", anyStaff(), subGroupHandler.Get)
	subGroupsGroup.PUT("/:id", admin(), subGroupHandler.Update)
	subGroupsGroup.DELETE("/:id", admin(), subGroupHandler.Delete)

	roomsGroup := secured.Group("/rooms")
	roomsGroup.GET("", anyStaff(), roomHandler.List)
	roomsGroup.POST("", admin(), roomHandler.Create)
	roomsGroup.GET("/:id", anyStaff(), roomHandler.Get)
	roomsGroup.PUT("/:id", admin(), roomHandler.Update)
	roomsGroup.DELETE("/:id", admin(), roomHandler.Delete)

	coursesGroup := secured.Group("/courses")
	coursesGroup.GET("", anyStaff(), courseHandler.List)
	coursesGroup.POST("", admin(), courseHandler.Create)
	coursesGroup.GET("/:id", anyStaff(), courseHandler.Get)
	coursesGroup.PUT("/:id", admin(), courseHandler.Update)
	coursesGroup.DELETE("/:id", admin(), courseHandler.Delete)

	termsGroup := secured.Group("/terms")
	termsGroup.GET("", anyStaff(), termHandler.List)
	termsGroup.POST("", admin(), termHandler.Create)
	termsGroup.GET("/active", anyStaff(), termHandler.GetActive)
	termsGroup.PUT("/:id", admin(), termHandler.Update)
	termsGroup.PUT("/:id/activate", admin(), termHandler.SetActive)
	termsGroup.DELETE("/:id", internalmiddleware.RBAC(string(models.RoleSuperAdmin)), termHandler.Delete)

	constraintsGroup := secured.Group("/constraints")
	constraintsGroup.Use(admin())
	constraintsGroup.GET("", constraintHandler.List)
	constraintsGroup.POST("", constraintHandler.Create)
	constraintsGroup.POST("/bulk", constraintHandler.BulkCreate)
	constraintsGroup.POST("/check", constraintHandler.Check)
	constraintsGroup.GET("/summary", constraintHandler.Summary)
	constraintsGroup.PATCH("/:id", constraintHandler.Update)
	constraintsGroup.PATCH("/:id/priority", constraintHandler.UpdatePriority)
	constraintsGroup.DELETE("/:id", constraintHandler.Delete)

	if configurationHandler != nil {
		configGroup := secured.Group("/configuration")
		configGroup.Use(admin())
		configGroup.GET("", configurationHandler.List)
		configGroup.GET("/:key", configurationHandler.Get)
		configGroup.PUT("/:key", configurationHandler.Update)
		configGroup.PUT("/bulk", configurationHandler.BulkUpdate)
	}

	if timetableHandler != nil {
		timetableGroup := secured.Group("/timetable")
		timetableGroup.POST("/generate", admin(), timetableHandler.Generate)
		timetableGroup.POST("/generate/async", admin(), timetableHandler.GenerateAsync)
		timetableGroup.GET("/jobs/:id", admin(), timetableHandler.JobStatus)
		timetableGroup.GET("/schedules", anyStaff(), timetableHandler.List)
		timetableGroup.GET("/schedules/:id/slots", anyStaff(), timetableHandler.Slots)
		timetableGroup.POST("/schedules/:id/publish", admin(), timetableHandler.Publish)
		timetableGroup.DELETE("/schedules/:id", internalmiddleware.RBAC(string(models.RoleSuperAdmin)), timetableHandler.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func registerPprof(r *gin.Engine) {
	group := r.Group("/debug/pprof")
	group.GET("/", gin.WrapF(pprof.Index))
	group.GET("/cmdline", gin.WrapF(pprof.Cmdline))
	group.GET("/profile", gin.WrapF(pprof.Profile))
	group.POST("/symbol", gin.WrapF(pprof.Symbol))
	group.GET("/symbol", gin.WrapF(pprof.Symbol))
	group.GET("/trace", gin.WrapF(pprof.Trace))
	group.GET("/allocs", gin.WrapH(pprof.Handler("allocs")))
	group.GET("/block", gin.WrapH(pprof.Handler("block")))
	group.GET("/goroutine", gin.WrapH(pprof.Handler("goroutine")))
	group.GET("/heap", gin.WrapH(pprof.Handler("heap")))
	group.GET("/mutex", gin.WrapH(pprof.Handler("mutex")))
	group.GET("/threadcreate", gin.WrapH(pprof.Handler("threadcreate")))
}
