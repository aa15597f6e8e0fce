// Package httpapi is the HTTP transport: routing, request schemas, binding and error rendering.
// Handlers decode input, call one service method and write its result.
package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"virtualboard/internal/account"
	"virtualboard/internal/auth"
	"virtualboard/internal/classroom"
	"virtualboard/internal/httpmiddleware"
	"virtualboard/internal/lecture"
	"virtualboard/internal/metrics"
	"virtualboard/internal/recording"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// Options configure the router.
type Options struct {
	SigningKey  string
	Issuer      string
	TokenTTL    time.Duration
	CORSOrigins []string
	// UploadDir is served under UploadPath when set (local blob backend).
	UploadDir  string
	UploadPath string
	// MaxMultipartMemory bounds the part of a multipart body held in memory.
	MaxMultipartMemory int64
}

// Deps are the services behind the routes.
type Deps struct {
	Accounts   *account.Service
	Classrooms *classroom.Service
	Lectures   *lecture.Service
	Recordings *recording.Service
	Limiter    httpmiddleware.Limiter
	Health     map[string]HealthCheck
	Log        zerolog.Logger
}

// Server holds the handlers.
type Server struct {
	deps Deps
	opts Options
}

// NewRouter builds the gin engine with every route and middleware installed.
func NewRouter(deps Deps, opts Options) *gin.Engine {
	translator()
	s := &Server{deps: deps, opts: opts}

	r := gin.New()
	if opts.MaxMultipartMemory > 0 {
		r.MaxMultipartMemory = opts.MaxMultipartMemory
	}
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(deps.Log, "/healthz", "/metrics"))
	r.Use(metrics.Instrument())
	r.Use(cors.New(corsConfig(opts.CORSOrigins)))
	r.Use(httpmiddleware.SecurityHeaders())
	if deps.Limiter != nil {
		r.Use(httpmiddleware.RateLimit(deps.Limiter, deps.Log))
	}
	r.Use(ErrorHandler(deps.Log))

	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "Virtual Board API is running") })
	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if opts.UploadDir != "" && opts.UploadPath != "" {
		r.Static(opts.UploadPath, opts.UploadDir)
	}

	authed := auth.Required(opts.SigningKey, opts.Issuer)
	teacherOnly := auth.RequireRole(account.RoleTeacher)
	studentOnly := auth.RequireRole(account.RoleStudent)

	student := r.Group("/student")
	student.POST("/add", s.addStudent)
	student.GET("/getall", s.listStudents)
	student.POST("/authenticate", s.authenticate(account.RoleStudent))
	student.GET("/authorise", authed, studentOnly, s.authorise)

	teacher := r.Group("/teacher")
	teacher.POST("/add", s.addTeacher)
	teacher.GET("/getall", s.listTeachers)
	teacher.POST("/authenticate", s.authenticate(account.RoleTeacher))
	teacher.GET("/authorise", authed, teacherOnly, s.authorise)
	teacher.GET("/:id", s.getTeacher)
	teacher.PUT("/:id", authed, teacherOnly, s.updateTeacher)
	teacher.POST("/avatar/:id", authed, teacherOnly, s.uploadAvatar)

	room := r.Group("/classroom")
	room.POST("/add", authed, s.addClassroom)
	room.POST("/addstudents", authed, s.addStudents)
	room.DELETE("/delete/:id", authed, s.deleteClassroom)
	room.GET("/getall", s.listClassrooms)
	room.GET("/getbyteacher", authed, s.classroomsByTeacher)
	room.GET("/getbystudent", authed, s.classroomsByStudent)
	room.GET("/getbyid/:id", authed, s.getClassroom)
	room.GET("/roster/:id", authed, s.exportRoster)
	room.POST("/roster/:id", authed, s.importRoster)
	room.POST("/announcement/:classId", authed, s.postAnnouncement)
	room.GET("/announcement/:classId", authed, s.listAnnouncements)
	room.PUT("/announcement/:classId/:announcementId", authed, s.updateAnnouncement)
	room.DELETE("/announcement/:classId/:announcementId", authed, s.deleteAnnouncement)

	lectures := r.Group("/lectures")
	lectures.POST("/add", authed, s.addLecture)
	lectures.DELETE("/delete/:id", authed, s.deleteLecture)
	lectures.GET("/getall", s.listLectures)
	lectures.GET("/getbyclassroom/:classroomId", s.lecturesByClassroom)
	lectures.GET("/getbyid/:id", s.getLecture)
	lectures.POST("/material/:lectureId", authed, s.addMaterial)
	lectures.GET("/material/:lectureId", s.listMaterial)
	lectures.DELETE("/material/:lectureId/:materialIndex", authed, s.deleteMaterial)
	lectures.PUT("/canvas/:id", authed, s.setCanvas)

	recordings := r.Group("/recordings")
	recordings.POST("/add", authed, s.addRecording)
	recordings.POST("/upload", authed, s.uploadRecording)
	recordings.DELETE("/delete/:id", authed, s.deleteRecording)
	recordings.GET("/getall", s.listRecordings)
	recordings.GET("/getbylecture/:lectureId", s.recordingsByLecture)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", auth.HeaderName}
	cfg.ExposeHeaders = []string{"Content-Disposition", "X-Request-ID"}
	cfg.AllowCredentials = true
	cfg.MaxAge = 24 * time.Hour
	for _, o := range origins {
		if o == "*" {
			cfg.AllowCredentials = false
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	if len(origins) == 0 {
		cfg.AllowOrigins = []string{"http://localhost:3000"}
	}
	return cfg
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range s.deps.Health {
		healthy := check(ctx) == nil
		body[name] = healthy
		if !healthy {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

// identity returns the caller set by auth.Required. Routes without it see the zero identity.
func identity(c *gin.Context) account.Identity {
	id, _ := auth.IdentityFrom(c)
	return id
}

func param(c *gin.Context, name string) string {
	return strings.TrimSpace(c.Param(name))
}
