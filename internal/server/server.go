package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ganttline/internal/app"
	"ganttline/internal/domain"
	"ganttline/internal/engine"
	"ganttline/internal/event"
	"ganttline/internal/interact"
	"ganttline/internal/repo"
	"ganttline/internal/seed"
	"ganttline/internal/timeindex"
	"ganttline/internal/window"
)

// Config for the HTTP API handler.
type Config struct {
	Session  *app.Session
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"dependency_rejected"`
	Message string         `json:"message" example:"dependency rejected a -> b: target-before-source"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"reason\":\"target-before-source\"}"`
}

// apiError models the error envelope every failure is returned in.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the chart API.
func New(cfg Config) (http.Handler, error) {
	if cfg.Session == nil {
		return nil, errors.New("server: session is required")
	}
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Ganttline API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	s := cfg.Session
	registerDocs(router, basePath)
	registerHealth(group)
	registerChart(group, s)
	registerWorkflows(group, s)
	registerTasks(group, s)
	registerDependencies(group, s)
	registerPointer(group, s)
	registerSchedule(group, s)
	registerEvents(group, s)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if reason, ok := engine.ReasonOf(err); ok {
		return newAPIError(http.StatusConflict, "dependency_rejected", err.Error(), map[string]any{"reason": string(reason)})
	}
	msg := err.Error()
	switch {
	case errors.Is(err, engine.ErrNotFound), errors.Is(err, repo.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", msg, nil)
	case errors.Is(err, engine.ErrDuplicateIdentifier):
		return newAPIError(http.StatusConflict, "conflict", msg, nil)
	case errors.Is(err, interact.ErrMenuClosed):
		return newAPIError(http.StatusConflict, "menu_closed", msg, nil)
	case errors.Is(err, engine.ErrInvalidDirection),
		errors.Is(err, engine.ErrInvalidSide),
		errors.Is(err, engine.ErrInvalidGranularity),
		errors.Is(err, engine.ErrUnknownWorkflow),
		errors.Is(err, engine.ErrForeignDependency),
		errors.Is(err, engine.ErrInvalidEdge),
		errors.Is(err, seed.ErrBadDate):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	case strings.Contains(strings.ToLower(msg), "required"), strings.Contains(strings.ToLower(msg), "invalid"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Patch,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{Description: "Error"}
		}
	}
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	security := []map[string][]string{{"bearerAuth": {}}}
	oas.Security = security
	healthPath := path.Join(basePath, "health")
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Patch,
		} {
			if op == nil {
				continue
			}
			if route == healthPath {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <title>Ganttline API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => { SwaggerUIBundle({ url: '%s', dom_id: '#swagger-ui' }); };
    </script>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

type chartOutput struct {
	Body ChartResponse `json:"body"`
}

func chartResponse(s *app.Session) *chartOutput {
	st := s.Engine.State()
	timeline, details, w, h := s.Chart.Viewport()
	workflows := st.SortedWorkflows()
	if workflows == nil {
		workflows = []domain.Workflow{}
	}
	return &chartOutput{Body: ChartResponse{
		SessionID:           s.ID,
		Granularity:         string(st.Granularity),
		Now:                 st.Now,
		ReferenceDate:       st.ReferenceDate,
		EarliestStartDate:   st.EarliestStartDate,
		LatestFinishDate:    st.LatestFinishDate,
		CurrentVisibleIndex: st.CurrentVisibleIndex,
		Window:              s.Chart.Window(),
		Timeline:            OffsetResponse(timeline),
		Details:             OffsetResponse(details),
		ViewportWidth:       w,
		ViewportHeight:      h,
		Workflows:           workflows,
		TaskCount:           len(st.Tasks),
	}}
}

type frameOutput struct {
	Body FrameResponse `json:"body"`
}

func registerChart(api huma.API, s *app.Session) {
	huma.Register(api, huma.Operation{
		OperationID: "get-chart",
		Method:      http.MethodGet,
		Path:        "/chart",
		Summary:     "Chart summary and viewport",
	}, func(ctx context.Context, _ *struct{}) (*chartOutput, error) {
		return chartResponse(s), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-frame",
		Method:      http.MethodGet,
		Path:        "/chart/frame",
		Summary:     "Visible rows, bar geometry and routed dependencies",
	}, func(ctx context.Context, _ *struct{}) (*frameOutput, error) {
		return &frameOutput{Body: frameResponse(s.Chart.Frame(), s.Chart.Machine.View())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-viewport",
		Method:      http.MethodPut,
		Path:        "/chart/viewport",
		Summary:     "Scroll and resize the viewport",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body ViewportRequest `json:"body"`
	}) (*chartOutput, error) {
		b := input.Body
		if b.Width != nil || b.Height != nil {
			_, _, w, h := s.Chart.Viewport()
			if b.Width != nil {
				w = *b.Width
			}
			if b.Height != nil {
				h = *b.Height
			}
			s.Bus.Publish(event.ResizeEvent{Width: w, Height: h})
		}
		surface := b.Surface
		if surface == "" {
			surface = string(window.Timeline)
		}
		s.Bus.Publish(event.ScrollEvent{Surface: surface, Left: b.Left, Top: b.Top})
		return chartResponse(s), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-granularity",
		Method:      http.MethodPut,
		Path:        "/chart/granularity",
		Summary:     "Change the zoom level",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body GranularityRequest `json:"body"`
	}) (*chartOutput, error) {
		g, err := timeindex.Parse(input.Body.Granularity)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
		}
		if err := s.Chart.SetGranularity(g); err != nil {
			return nil, handleError(err)
		}
		return chartResponse(s), nil
	})
}

func registerWorkflows(api huma.API, s *app.Session) {
	huma.Register(api, huma.Operation{
		OperationID: "list-workflows",
		Method:      http.MethodGet,
		Path:        "/workflows",
		Summary:     "List workflows in display order",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Workflow `json:"body"`
	}, error) {
		items := s.Engine.State().SortedWorkflows()
		if items == nil {
			items = []domain.Workflow{}
		}
		return &struct {
			Body []domain.Workflow `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-workflow",
		Method:        http.MethodPost,
		Path:          "/workflows",
		Summary:       "Create a workflow",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body CreateWorkflowRequest `json:"body"`
	}) (*struct {
		Body domain.Workflow `json:"body"`
	}, error) {
		opts := engine.WorkflowCreateOptions{Name: input.Body.Name}
		if input.Body.ID != nil {
			opts.ID = *input.Body.ID
		}
		w, err := s.Engine.AddWorkflow(opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Workflow `json:"body"`
		}{Body: w}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-workflow",
		Method:      http.MethodPatch,
		Path:        "/workflows/{workflow_id}",
		Summary:     "Rename or reorder a workflow",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		WorkflowID string                `path:"workflow_id"`
		Body       UpdateWorkflowRequest `json:"body"`
	}) (*struct {
		Body domain.Workflow `json:"body"`
	}, error) {
		w, err := s.Engine.UpdateWorkflow(input.WorkflowID, engine.WorkflowPatch{Name: input.Body.Name, RowIndex: input.Body.RowIndex})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Workflow `json:"body"`
		}{Body: w}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/workflows/{workflow_id}/tasks",
		Summary:       "Append a task to a workflow",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		WorkflowID string            `path:"workflow_id"`
		Body       CreateTaskRequest `json:"body"`
	}) (*taskOutput, error) {
		opts := engine.TaskCreateOptions{WorkflowID: input.WorkflowID, Title: input.Body.Title, Team: input.Body.Team}
		if input.Body.ID != nil {
			opts.ID = *input.Body.ID
		}
		t, err := s.Engine.AddTask(opts)
		if errors.Is(err, engine.ErrUnknownWorkflow) {
			return nil, newAPIError(http.StatusNotFound, "not_found", err.Error(), map[string]any{"workflow_id": input.WorkflowID})
		}
		if err != nil {
			return nil, handleError(err)
		}
		return &taskOutput{Body: t}, nil
	})
}

type taskOutput struct {
	Body domain.Task `json:"body"`
}

func registerTasks(api huma.API, s *app.Session) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks with their derived dates",
	}, func(ctx context.Context, input *struct {
		WorkflowID string `query:"workflow_id"`
		Invalid    bool   `query:"invalid" doc:"Only tasks that fail validation"`
	}) (*struct {
		Body []domain.Task `json:"body"`
	}, error) {
		st := s.Engine.State()
		items := []domain.Task{}
		for _, w := range st.SortedWorkflows() {
			if input.WorkflowID != "" && w.ID != input.WorkflowID {
				continue
			}
			for _, t := range st.WorkflowTasks(w.ID) {
				if input.Invalid && t.IsValid {
					continue
				}
				items = append(items, t)
			}
		}
		return &struct {
			Body []domain.Task `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{task_id}",
		Summary:     "Get a task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
	}) (*taskOutput, error) {
		t, ok := s.Engine.State().Task(input.TaskID)
		if !ok {
			return nil, newAPIError(http.StatusNotFound, "not_found", "task "+input.TaskID+" not found", nil)
		}
		return &taskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{task_id}",
		Summary:     "Update task fields and re-run propagation",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string            `path:"task_id"`
		Body   UpdateTaskRequest `json:"body"`
	}) (*taskOutput, error) {
		t, err := s.Engine.UpdateTask(input.TaskID, input.Body.patch())
		if err != nil {
			return nil, handleError(err)
		}
		return &taskOutput{Body: t}, nil
	})
}

type dependencyOutput struct {
	Body domain.Dependency `json:"body"`
}

func registerDependencies(api huma.API, s *app.Session) {
	huma.Register(api, huma.Operation{
		OperationID:   "add-dependency",
		Method:        http.MethodPost,
		Path:          "/dependencies",
		Summary:       "Add a dependency edge",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body AddDependencyRequest `json:"body"`
	}) (*dependencyOutput, error) {
		d, err := s.Engine.AddDependency(input.Body.dependency())
		if err != nil {
			return nil, handleError(err)
		}
		return &dependencyOutput{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "change-dependency-direction",
		Method:      http.MethodPatch,
		Path:        "/dependencies/{from_id}/{to_id}",
		Summary:     "Change how an edge is drawn",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		FromID string                 `path:"from_id"`
		ToID   string                 `path:"to_id"`
		Body   ChangeDirectionRequest `json:"body"`
	}) (*dependencyOutput, error) {
		d, err := s.Engine.ChangeDependencyDirection(input.FromID, input.ToID, domain.Direction(input.Body.Direction))
		if err != nil {
			return nil, handleError(err)
		}
		return &dependencyOutput{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "remove-dependency",
		Method:        http.MethodDelete,
		Path:          "/dependencies/{from_id}/{to_id}",
		Summary:       "Remove a dependency edge",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		FromID string `path:"from_id"`
		ToID   string `path:"to_id"`
	}) (*struct{}, error) {
		if err := s.Engine.RemoveDependency(input.FromID, input.ToID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

var pointerTypes = map[string]string{
	"down":          event.PointerDown,
	"move":          event.PointerMove,
	"up":            event.PointerUp,
	"leave":         event.PointerLeave,
	"hover":         event.PointerHover,
	"click":         event.PointerClick,
	"outside_click": event.OutsideClick,
}

type viewOutput struct {
	Body interact.View `json:"body"`
}

func registerPointer(api huma.API, s *app.Session) {
	huma.Register(api, huma.Operation{
		OperationID: "pointer",
		Method:      http.MethodPost,
		Path:        "/pointer",
		Summary:     "Feed one pointer event to the interaction machine",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body PointerRequest `json:"body"`
	}) (*viewOutput, error) {
		typ, ok := pointerTypes[input.Body.Type]
		if !ok {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid pointer type", map[string]any{"type": input.Body.Type})
		}
		s.Bus.Publish(event.PointerEvent{Type: typ, X: input.Body.X, Y: input.Body.Y})
		return &viewOutput{Body: s.Chart.Machine.View()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "edge-menu",
		Method:      http.MethodPost,
		Path:        "/chart/menu",
		Summary:     "Apply an edge menu action",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body MenuRequest `json:"body"`
	}) (*viewOutput, error) {
		m := s.Chart.Machine
		if input.Body.Action == "close" {
			m.CloseMenu()
			return &viewOutput{Body: m.View()}, nil
		}
		if err := m.ApplyMenu(interact.MenuAction(input.Body.Action)); err != nil {
			return nil, handleError(err)
		}
		return &viewOutput{Body: m.View()}, nil
	})
}

func registerSchedule(api huma.API, s *app.Session) {
	huma.Register(api, huma.Operation{
		OperationID: "export-schedule",
		Method:      http.MethodGet,
		Path:        "/schedule",
		Summary:     "Export the schedule in bootstrap form",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body seed.File `json:"body"`
	}, error) {
		st := s.Engine.State()
		return &struct {
			Body seed.File `json:"body"`
		}{Body: seed.FromState(st.Workflows, st.Tasks)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "load-schedule",
		Method:      http.MethodPut,
		Path:        "/schedule",
		Summary:     "Replace the schedule with bootstrap records",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body seed.File `json:"body"`
	}) (*chartOutput, error) {
		loc, err := s.Config.Location()
		if err != nil {
			return nil, handleError(err)
		}
		sched, err := input.Body.Schedule(loc)
		if err != nil {
			return nil, handleError(err)
		}
		if err := s.Engine.Load(sched.Workflows, sched.Tasks); err != nil {
			return nil, handleError(err)
		}
		return chartResponse(s), nil
	})
}

func registerEvents(api huma.API, s *app.Session) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Read the session journal",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind" enum:"task,workflow,dependency,chart"`
		EntityID   string `query:"entity_id"`
		Limit      int    `query:"limit" default:"50"`
		Cursor     string `query:"cursor" doc:"Return events after this id"`
	}) (*struct {
		Body paginatedEvents `json:"body"`
	}, error) {
		limit := normalizeLimit(input.Limit)
		var after int64
		if input.Cursor != "" {
			parsed, err := strconv.ParseInt(input.Cursor, 10, 64)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
			}
			after = parsed
		}
		items, err := s.Repo.ListEvents(ctx, repo.EventFilter{
			Type:       input.Type,
			EntityKind: input.EntityKind,
			EntityID:   input.EntityID,
			AfterID:    after,
			Limit:      limit + 1,
		})
		if err != nil {
			return nil, handleError(err)
		}
		resp := paginatedEvents{Items: []EventResponse{}}
		if len(items) > limit {
			items = items[:limit]
			resp.NextCursor = strconv.FormatInt(items[limit-1].ID, 10)
		}
		for _, evt := range items {
			resp.Items = append(resp.Items, eventResponse(evt))
		}
		return &struct {
			Body paginatedEvents `json:"body"`
		}{Body: resp}, nil
	})
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 500 {
		return 500
	}
	return limit
}
