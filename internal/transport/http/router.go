package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/taskvault/taskvault/internal/handlers"
	"github.com/taskvault/taskvault/internal/middleware/auth"
	"github.com/taskvault/taskvault/internal/models"
	"github.com/taskvault/taskvault/internal/repository"
	"github.com/taskvault/taskvault/internal/token"
)

type Deps struct {
	UoW    *repository.UnitOfWork
	Signer *token.Signer

	Accounts  *handlers.AccountHandler
	Tasks     *handlers.TaskHandler
	Solutions *handlers.SolutionHandler
	Files     *handlers.FileHandler

	Subjects  *handlers.ReferenceHandler[models.Subject]
	Years     *handlers.ReferenceHandler[models.AcademicYear]
	TaskTypes *handlers.ReferenceHandler[models.TaskType]
	Authors   *handlers.ReferenceHandler[models.Author]
	Tags      *handlers.ReferenceHandler[models.Tag]
	Roles     *handlers.ReferenceHandler[models.Role]
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	accounts := v1.Group("/accounts")
	accounts.POST("/register", d.Accounts.Register)
	accounts.POST("/authenticate", d.Accounts.Authenticate)
	accounts.POST("/refresh-token", d.Accounts.RefreshToken)
	accounts.POST("/forgot-password", d.Accounts.ForgotPassword)
	accounts.POST("/reset-password", d.Accounts.ResetPassword)
	accounts.POST("/verify-email", d.Accounts.VerifyEmail)

	authed := auth.RequireAuth(d.Signer)
	admin := auth.RequireAdmin(d.UoW)

	accounts.POST("/revoke-token", d.Accounts.RevokeToken, authed)
	accounts.GET("", d.Accounts.List, authed, admin)
	accounts.GET("/:id", d.Accounts.Get, authed, admin)
	accounts.DELETE("/:id", d.Accounts.Delete, authed, admin)

	reference := func(path string, h interface {
		List(echo.Context) error
		Get(echo.Context) error
		Create(echo.Context) error
		Update(echo.Context) error
		Delete(echo.Context) error
	}) {
		g := v1.Group(path)
		g.GET("", h.List)
		g.GET("/:id", h.Get)
		g.POST("", h.Create, authed, admin)
		g.PATCH("/:id", h.Update, authed, admin)
		g.DELETE("/:id", h.Delete, authed, admin)
	}

	reference("/subjects", d.Subjects)
	reference("/academic-years", d.Years)
	reference("/task-types", d.TaskTypes)
	reference("/authors", d.Authors)
	reference("/tags", d.Tags)
	reference("/roles", d.Roles)

	tasks := v1.Group("/tasks")
	tasks.GET("", d.Tasks.List)
	tasks.GET("/filter", d.Tasks.Filter)
	tasks.GET("/:id", d.Tasks.Get)
	tasks.POST("", d.Tasks.Create, authed)
	tasks.PATCH("/:id", d.Tasks.Update, authed)
	tasks.DELETE("/:id", d.Tasks.Delete, authed, admin)

	v1.GET("/search", d.Tasks.Search)

	solutions := v1.Group("/solutions")
	solutions.GET("", d.Solutions.List)
	solutions.GET("/:id", d.Solutions.Get)
	solutions.POST("", d.Solutions.Create, authed)
	solutions.PATCH("/:id", d.Solutions.Update, authed)
	solutions.DELETE("/:id", d.Solutions.Delete, authed, admin)

	files := v1.Group("/files")
	files.GET("", d.Files.List)
	files.GET("/:id", d.Files.Get)
	files.GET("/:id/download", d.Files.Download)
	files.POST("", d.Files.Upload, authed)
	files.DELETE("/:id", d.Files.Delete, authed, admin)
}
