package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"zju-course-assistant/internal/auther"
	"zju-course-assistant/internal/cached"
	"zju-course-assistant/internal/courses"
	"zju-course-assistant/internal/session"
	"zju-course-assistant/internal/teachers"
)

type App struct {
	e         *gin.Engine
	sup       *session.Supervisor
	fetcher   *courses.Fetcher
	harvester *teachers.Harvester

	selected   *cached.Entity[[]*courses.Section]
	graduation *cached.Entity[[]courses.GraduationCourse]
}

func NewApp(sup *session.Supervisor, fetcher *courses.Fetcher, harvester *teachers.Harvester) *App {
	app := &App{
		e:         gin.Default(),
		sup:       sup,
		fetcher:   fetcher,
		harvester: harvester,
		selected: cached.New(nil, func(ctx context.Context) ([]*courses.Section, error) {
			return fetcher.FetchSelectedSections(ctx)
		}),
		graduation: cached.New(nil, func(ctx context.Context) ([]courses.GraduationCourse, error) {
			return fetcher.FetchGraduationCourses(ctx)
		}),
	}

	app.setupRoutes()

	return app
}

func (app *App) Run(ctx context.Context, addr string) {
	srv := &http.Server{
		Addr:    addr,
		Handler: app.e,
	}

	// 启动 HTTP 服务
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic("server start failed: " + err.Error())
		}
	}()

	// 后台扫教师库
	go app.harvester.Run(ctx)

	// 等待退出信号（从 main 传入的 context）
	<-ctx.Done()

	// 优雅关闭 HTTP 服务
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		panic("server shutdown failed: " + err.Error())
	}
}

func (app *App) setupRoutes() {
	app.e.POST("/login", app.Login)
	app.e.POST("/logout", app.Logout)
	app.e.GET("/session", app.SessionStatus)

	app.e.GET("/courses", app.AvailableCourses)
	app.e.GET("/sections", app.Sections)
	app.e.GET("/selected", app.Selected)
	app.e.GET("/graduation", app.Graduation)
	app.e.GET("/conflict", app.ConflictCheck)

	app.e.GET("/teachers", app.Teachers)
	app.e.GET("/timetable.ics", app.Timetable)
}

// httpError 把内部错误翻成稳定的对外文案，上层据此决定是重输密码还是稍后再试。
func httpError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auther.ErrNotLoggedIn):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, auther.ErrIncorrectCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, auther.ErrAccountLocked):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

type LoginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (app *App) Login(c *gin.Context) {
	var req LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if err := app.sup.Login(c, req.Username, req.Password); err != nil {
		httpError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Login successful"})
}

func (app *App) Logout(c *gin.Context) {
	if err := app.sup.Logout(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

func (app *App) SessionStatus(c *gin.Context) {
	if !app.sup.IsLoggedIn() {
		c.JSON(http.StatusOK, gin.H{"state": app.sup.State().String()})
		return
	}

	err := app.sup.EnsureValid(c)
	resp := gin.H{"state": app.sup.State().String()}
	if sess, serr := app.sup.Session(); serr == nil {
		resp["profile"] = sess.Profile
	}
	if err != nil {
		resp["error"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (app *App) AvailableCourses(c *gin.Context) {
	category, ok := courses.ParseCategory(c.Query("category"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown category"})
		return
	}
	start, err1 := strconv.Atoi(c.DefaultQuery("start", "1"))
	end, err2 := strconv.Atoi(c.DefaultQuery("end", "1"))
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page range"})
		return
	}

	list, err := app.fetcher.FetchAvailableCourses(c, category, start, end)
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (app *App) Sections(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing course code"})
		return
	}

	course := &courses.Course{ID: c.Query("id"), Code: code, Name: c.Query("name")}
	if err := app.fetcher.FetchSectionsForCourse(c, course); err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, course.Sections)
}

func (app *App) Selected(c *gin.Context) {
	c.JSON(http.StatusOK, app.selected.Peek(context.Background()))
}

func (app *App) Graduation(c *gin.Context) {
	c.JSON(http.StatusOK, app.graduation.Peek(context.Background()))
}

// ConflictCheck 在已选课表里查两个教学班是否撞车。
func (app *App) ConflictCheck(c *gin.Context) {
	codeA, codeB := c.Query("a"), c.Query("b")
	if codeA == "" || codeB == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing section codes"})
		return
	}

	var secA, secB *courses.Section
	for _, s := range app.selected.Peek(context.Background()) {
		if s.ID == codeA {
			secA = s
		}
		if s.ID == codeB {
			secB = s
		}
	}
	if secA == nil || secB == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Section not in selected set"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"conflict": courses.Conflict(secA, secB)})
}

func (app *App) Teachers(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing teacher name"})
		return
	}
	list := app.harvester.GetInstructors(c, name, c.Query("course"), c.Query("college"))
	c.JSON(http.StatusOK, list)
}

func (app *App) Timetable(c *gin.Context) {
	sections := app.selected.Peek(context.Background())
	c.Header("Content-Type", "text/calendar; charset=utf-8")
	c.String(http.StatusOK, BuildTimetable(sections))
}
