package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"boardsync/domain"
)

const requestBodyMaxSize = 1 << 20

// BoardService is the mutation and query surface exposed over HTTP.
type BoardService interface {
	CreateProject(ctx context.Context, sub domain.Identity, in domain.CreateProject) (domain.Project, error)
	UpdateProject(ctx context.Context, sub domain.Identity, id string, in domain.UpdateProject) (domain.Project, error)
	DeleteProject(ctx context.Context, sub domain.Identity, id string) (string, error)
	ListProjects(ctx context.Context, sub domain.Identity) ([]domain.Project, error)
	ProjectMembers(ctx context.Context, sub domain.Identity, projectID string) ([]domain.UserSummary, error)
	CreateTask(ctx context.Context, sub domain.Identity, in domain.CreateTask) (domain.Task, error)
	UpdateTask(ctx context.Context, sub domain.Identity, id string, in domain.UpdateTask) (domain.Task, error)
	DeleteTask(ctx context.Context, sub domain.Identity, id string) (string, error)
	ListTasks(ctx context.Context, sub domain.Identity, projectID string) ([]domain.Task, error)
	OrgUsers(ctx context.Context, sub domain.Identity) ([]domain.UserSummary, error)
	Organizations(ctx context.Context) ([]domain.Organization, error)
}

// Resolver maps a raw bearer token to a verified identity.
type Resolver interface {
	Resolve(ctx context.Context, token string) (domain.Identity, error)
}

// Deduper tracks idempotency keys of already accepted mutations.
type Deduper interface {
	Add(ctx context.Context, subjectID, key string) (bool, error)
	Remove(ctx context.Context, subjectID, key string) error
}

// Config carries everything Register needs to wire routes.
type Config struct {
	Service  BoardService
	Resolver Resolver
	Deduper  Deduper
	Events   EventSource
	Logger   *log.Logger

	// MutationTimeout bounds each write request. Zero disables the bound.
	MutationTimeout time.Duration
}

// Register wires all routes on the provided Echo instance.
func Register(e *echo.Echo, cfg Config) {
	e.GET("/healthz", healthz())

	e.GET("/api/projects", listProjects(cfg))
	e.POST("/api/projects", createProject(cfg))
	e.PUT("/api/projects/:id", updateProject(cfg))
	e.DELETE("/api/projects/:id", deleteProject(cfg))
	e.GET("/api/projects/:id/members", projectMembers(cfg))

	e.GET("/api/tasks/project/:projectId", listTasks(cfg))
	e.POST("/api/tasks", createTask(cfg))
	e.PUT("/api/tasks/:id", updateTask(cfg))
	e.DELETE("/api/tasks/:id", deleteTask(cfg))

	e.GET("/api/auth/org-users", orgUsers(cfg))
	e.GET("/api/auth/organizations", organizations(cfg))

	e.GET("/api/events", streamEvents(cfg))
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

// resolveIdentity authenticates the request from its Authorization header.
func resolveIdentity(c echo.Context, cfg Config) (domain.Identity, error) {
	token, err := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	return cfg.Resolver.Resolve(c.Request().Context(), token)
}

// mutationContext bounds a write request so a stalled backend turns into a
// timeout response instead of an open socket.
func mutationContext(c echo.Context, cfg Config) (context.Context, context.CancelFunc) {
	ctx := c.Request().Context()
	if cfg.MutationTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, cfg.MutationTimeout)
}

func decodeBody(c echo.Context, dst any) error {
	lr := io.LimitReader(c.Request().Body, requestBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &domain.InvalidInputError{Fields: []string{"body"}}
	}
	return nil
}

// checkIdempotency rejects a replayed Idempotency-Key with 409. It returns
// the accepted key so the handler can release it if the commit fails.
func checkIdempotency(c echo.Context, cfg Config, sub domain.Identity) (key string, dup bool, err error) {
	if cfg.Deduper == nil {
		return "", false, nil
	}
	key = c.Request().Header.Get("Idempotency-Key")
	if key == "" {
		return "", false, nil
	}
	fresh, err := cfg.Deduper.Add(c.Request().Context(), sub.SubjectID, key)
	if err != nil {
		return "", false, err
	}
	return key, !fresh, nil
}

func releaseIdempotency(cfg Config, sub domain.Identity, key string) {
	if cfg.Deduper == nil || key == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cfg.Deduper.Remove(ctx, sub.SubjectID, key); err != nil && cfg.Logger != nil {
		cfg.Logger.Warnf("release idempotency key: %v", err)
	}
}

type deletedResponse struct {
	ID string `json:"id"`
}

func listProjects(cfg Config) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newListRequestMetrics(ctx, cfg.Logger)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		sub, authErr := resolveIdentity(c, cfg)
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			return writeError(c, authErr)
		}
		fetchStart := time.Now()
		projects, fetchErr := cfg.Service.ListProjects(ctx, sub)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			return writeError(c, fetchErr)
		}
		if projects == nil {
			projects = []domain.Project{}
		}
		metrics.SetProjectsReturned(len(projects))
		return c.JSON(http.StatusOK, projects)
	}
}

func createProject(cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		sub, err := resolveIdentity(c, cfg)
		if err != nil {
			return writeError(c, err)
		}
		var in domain.CreateProject
		if err := decodeBody(c, &in); err != nil {
			return writeError(c, err)
		}
		key, dup, err := checkIdempotency(c, cfg, sub)
		if err != nil {
			return writeError(c, err)
		}
		if dup {
			return c.JSON(http.StatusConflict, errorResponse{Error: "duplicate request"})
		}
		ctx, cancel := mutationContext(c, cfg)
		defer cancel()
		p, err := cfg.Service.CreateProject(ctx, sub, in)
		if err != nil {
			releaseIdempotency(cfg, sub, key)
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, p)
	}
}

func updateProject(cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		sub, err := resolveIdentity(c, cfg)
		if err != nil {
			return writeError(c, err)
		}
		var in domain.UpdateProject
		if err := decodeBody(c, &in); err != nil {
			return writeError(c, err)
		}
		key, dup, err := checkIdempotency(c, cfg, sub)
		if err != nil {
			return writeError(c, err)
		}
		if dup {
			return c.JSON(http.StatusConflict, errorResponse{Error: "duplicate request"})
		}
		ctx, cancel := mutationContext(c, cfg)
		defer cancel()
		p, err := cfg.Service.UpdateProject(ctx, sub, c.Param("id"), in)
		if err != nil {
			releaseIdempotency(cfg, sub, key)
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, p)
	}
}

func deleteProject(cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		sub, err := resolveIdentity(c, cfg)
		if err != nil {
			return writeError(c, err)
		}
		key, dup, err := checkIdempotency(c, cfg, sub)
		if err != nil {
			return writeError(c, err)
		}
		if dup {
			return c.JSON(http.StatusConflict, errorResponse{Error: "duplicate request"})
		}
		ctx, cancel := mutationContext(c, cfg)
		defer cancel()
		id, err := cfg.Service.DeleteProject(ctx, sub, c.Param("id"))
		if err != nil {
			releaseIdempotency(cfg, sub, key)
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, deletedResponse{ID: id})
	}
}

func projectMembers(cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		sub, err := resolveIdentity(c, cfg)
		if err != nil {
			return writeError(c, err)
		}
		members, err := cfg.Service.ProjectMembers(c.Request().Context(), sub, c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		if members == nil {
			members = []domain.UserSummary{}
		}
		return c.JSON(http.StatusOK, members)
	}
}

func listTasks(cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		sub, err := resolveIdentity(c, cfg)
		if err != nil {
			return writeError(c, err)
		}
		tasks, err := cfg.Service.ListTasks(c.Request().Context(), sub, c.Param("projectId"))
		if err != nil {
			return writeError(c, err)
		}
		if tasks == nil {
			tasks = []domain.Task{}
		}
		return c.JSON(http.StatusOK, tasks)
	}
}

func createTask(cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		sub, err := resolveIdentity(c, cfg)
		if err != nil {
			return writeError(c, err)
		}
		var in domain.CreateTask
		if err := decodeBody(c, &in); err != nil {
			return writeError(c, err)
		}
		key, dup, err := checkIdempotency(c, cfg, sub)
		if err != nil {
			return writeError(c, err)
		}
		if dup {
			return c.JSON(http.StatusConflict, errorResponse{Error: "duplicate request"})
		}
		ctx, cancel := mutationContext(c, cfg)
		defer cancel()
		t, err := cfg.Service.CreateTask(ctx, sub, in)
		if err != nil {
			releaseIdempotency(cfg, sub, key)
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, t)
	}
}

func updateTask(cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		sub, err := resolveIdentity(c, cfg)
		if err != nil {
			return writeError(c, err)
		}
		var in domain.UpdateTask
		if err := decodeBody(c, &in); err != nil {
			return writeError(c, err)
		}
		key, dup, err := checkIdempotency(c, cfg, sub)
		if err != nil {
			return writeError(c, err)
		}
		if dup {
			return c.JSON(http.StatusConflict, errorResponse{Error: "duplicate request"})
		}
		ctx, cancel := mutationContext(c, cfg)
		defer cancel()
		t, err := cfg.Service.UpdateTask(ctx, sub, c.Param("id"), in)
		if err != nil {
			releaseIdempotency(cfg, sub, key)
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, t)
	}
}

func deleteTask(cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		sub, err := resolveIdentity(c, cfg)
		if err != nil {
			return writeError(c, err)
		}
		key, dup, err := checkIdempotency(c, cfg, sub)
		if err != nil {
			return writeError(c, err)
		}
		if dup {
			return c.JSON(http.StatusConflict, errorResponse{Error: "duplicate request"})
		}
		ctx, cancel := mutationContext(c, cfg)
		defer cancel()
		id, err := cfg.Service.DeleteTask(ctx, sub, c.Param("id"))
		if err != nil {
			releaseIdempotency(cfg, sub, key)
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, deletedResponse{ID: id})
	}
}

func orgUsers(cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		sub, err := resolveIdentity(c, cfg)
		if err != nil {
			return writeError(c, err)
		}
		users, err := cfg.Service.OrgUsers(c.Request().Context(), sub)
		if err != nil {
			return writeError(c, err)
		}
		if users == nil {
			users = []domain.UserSummary{}
		}
		return c.JSON(http.StatusOK, users)
	}
}

func organizations(cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		orgs, err := cfg.Service.Organizations(c.Request().Context())
		if err != nil {
			return writeError(c, err)
		}
		if orgs == nil {
			orgs = []domain.Organization{}
		}
		return c.JSON(http.StatusOK, orgs)
	}
}
