package server

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"growthdesk/internal/domain"
	"growthdesk/internal/engine"
	"growthdesk/internal/engine/access"
	"growthdesk/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"invalid_transition"`
	Message string         `json:"message" example:"cannot submit strategy in status approved"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

type requestKey struct{}
type bodyBytesKey struct{}

// apiError models the required error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the GrowthDesk API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the requested envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			ctx := context.WithValue(r.Context(), requestKey{}, r)
			ctx = context.WithValue(ctx, bodyBytesKey{}, bodyBytes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Engine.Repo))
	hcfg := huma.DefaultConfig("GrowthDesk API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerCompanies(group, cfg.Engine)
	registerUsers(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerStrategies(group, cfg.Engine)
	registerDeliverables(group, cfg.Engine)
	registerCollaboration(group, cfg.Engine)
	registerNotifications(group, cfg.Engine)
	registerActivities(group, cfg.Engine)
	registerAPIKeys(group, cfg.Engine)
	registerMe(group, cfg.Engine)
	registerDevAuth(group, cfg.Auth)
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
	var de access.DeniedError
	if errors.As(err, &de) {
		return newAPIError(http.StatusForbidden, "access_denied", err.Error(), nil)
	}
	var te engine.InvalidTransitionError
	if errors.As(err, &te) {
		return newAPIError(http.StatusConflict, "invalid_transition", err.Error(), map[string]any{
			"entity": te.Entity,
			"from":   te.From,
			"action": te.Action,
		})
	}
	var ve engine.ValidationError
	if errors.As(err, &ve) {
		return newAPIError(http.StatusBadRequest, "validation_error", err.Error(), map[string]any{"field": ve.Field})
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "validation_error"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "invalid_transition"
	case http.StatusForbidden:
		return "access_denied"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func bodyBytes(ctx context.Context) []byte {
	if b, ok := ctx.Value(bodyBytesKey{}).([]byte); ok {
		return b
	}
	return nil
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
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
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
	oas.Components.SecuritySchemes["apiKeyAuth"] = &huma.SecurityScheme{
		Type: "apiKey",
		In:   "header",
		Name: "X-Api-Key",
	}
	security := []map[string][]string{
		{"bearerAuth": {}},
		{"apiKeyAuth": {}},
	}
	oas.Security = security
	open := map[string]bool{
		path.Join(basePath, "health"):         true,
		path.Join(basePath, "auth/dev/login"): true,
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if open[route] {
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
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>GrowthDesk API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt; or X-Api-Key.
    </p>
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

func registerCompanies(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-company",
		Method:        http.MethodPost,
		Path:          "/companies",
		Summary:       "Create company",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body CreateCompanyRequest `json:"body"`
	}) (*struct {
		Body domain.Company `json:"body"`
	}, error) {
		callerID, authErr := callerIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if input.Body.Name == "" {
			return nil, newAPIError(http.StatusBadRequest, "validation_error", "name is required", nil)
		}
		if _, err := e.Access.Resolve(ctx, callerID); err != nil {
			return nil, handleError(err)
		}
		c := domain.Company{
			ID:        deref(input.Body.ID),
			Name:      input.Body.Name,
			Website:   deref(input.Body.Website),
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		}
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if err := e.Repo.InsertCompany(ctx, c); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Company `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-companies",
		Method:      http.MethodGet,
		Path:        "/companies",
		Summary:     "List companies",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Company `json:"body"`
	}, error) {
		items, err := e.Repo.ListCompanies(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Company `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-company",
		Method:      http.MethodGet,
		Path:        "/companies/{company_id}",
		Summary:     "Get company",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CompanyID string `path:"company_id"`
	}) (*struct {
		Body domain.Company `json:"body"`
	}, error) {
		c, err := e.Repo.GetCompany(ctx, input.CompanyID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Company `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "company-pending",
		Method:      http.MethodGet,
		Path:        "/companies/{company_id}/pending",
		Summary:     "Strategies and deliverables awaiting the company's review",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CompanyID string `path:"company_id"`
	}) (*struct {
		Body engine.PendingReview `json:"body"`
	}, error) {
		callerID, authErr := callerIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		pending, err := e.ListPendingForCompany(ctx, input.CompanyID, callerID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.PendingReview `json:"body"`
		}{Body: pending}, nil
	})
}

func registerUsers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-user",
		Method:        http.MethodPost,
		Path:          "/users",
		Summary:       "Create user",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateUserRequest `json:"body"`
	}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		if input.Body.Email == "" {
			return nil, newAPIError(http.StatusBadRequest, "validation_error", "email is required", nil)
		}
		if input.Body.Role == domain.RoleClient && input.Body.CompanyID == nil {
			return nil, newAPIError(http.StatusBadRequest, "validation_error", "client users require company_id", nil)
		}
		u := domain.User{
			ID:        deref(input.Body.ID),
			Email:     input.Body.Email,
			Name:      input.Body.Name,
			Role:      input.Body.Role,
			CompanyID: input.Body.CompanyID,
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		}
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		if err := e.Repo.InsertUser(ctx, u); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "List users",
	}, func(ctx context.Context, input *struct {
		Role      string `query:"role"`
		CompanyID string `query:"company_id"`
	}) (*struct {
		Body []domain.User `json:"body"`
	}, error) {
		items, err := e.Repo.ListUsers(ctx, repo.UserFilters{Role: input.Role, CompanyID: input.CompanyID})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.User `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-user",
		Method:      http.MethodGet,
		Path:        "/users/{user_id}",
		Summary:     "Get user",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		UserID string `path:"user_id"`
	}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		u, err := e.Repo.GetUser(ctx, input.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: u}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-event",
		Method:        http.MethodPost,
		Path:          "/events",
		Summary:       "Create event",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateEventRequest `json:"body"`
	}) (*struct {
		Body domain.Event `json:"body"`
	}, error) {
		if input.Body.Name == "" {
			return nil, newAPIError(http.StatusBadRequest, "validation_error", "name is required", nil)
		}
		ev := domain.Event{
			ID:          deref(input.Body.ID),
			Name:        input.Body.Name,
			Description: deref(input.Body.Description),
			StartsAt:    deref(input.Body.StartsAt),
			EndsAt:      deref(input.Body.EndsAt),
			CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		}
		if ev.ID == "" {
			ev.ID = uuid.NewString()
		}
		if err := e.Repo.InsertEvent(ctx, ev); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Event `json:"body"`
		}{Body: ev}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List events",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Event `json:"body"`
	}, error) {
		items, err := e.Repo.ListEvents(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Event `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-event",
		Method:      http.MethodGet,
		Path:        "/events/{event_id}",
		Summary:     "Get event",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		EventID string `path:"event_id"`
	}) (*struct {
		Body domain.Event `json:"body"`
	}, error) {
		ev, err := e.Repo.GetEvent(ctx, input.EventID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Event `json:"body"`
		}{Body: ev}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "link-company",
		Method:        http.MethodPost,
		Path:          "/events/{event_id}/companies",
		Summary:       "Attach a client company to an event",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		EventID string             `path:"event_id"`
		Body    LinkCompanyRequest `json:"body"`
	}) (*struct {
		Body domain.EventCompany `json:"body"`
	}, error) {
		if input.Body.CompanyID == "" {
			return nil, newAPIError(http.StatusBadRequest, "validation_error", "company_id is required", nil)
		}
		if _, err := e.Repo.GetEvent(ctx, input.EventID); err != nil {
			return nil, handleError(err)
		}
		if _, err := e.Repo.GetCompany(ctx, input.Body.CompanyID); err != nil {
			return nil, handleError(err)
		}
		ec := domain.EventCompany{
			ID:        uuid.NewString(),
			EventID:   input.EventID,
			CompanyID: input.Body.CompanyID,
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		}
		if err := e.Repo.InsertEventCompany(ctx, ec); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.EventCompany `json:"body"`
		}{Body: ec}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-event-companies",
		Method:      http.MethodGet,
		Path:        "/events/{event_id}/companies",
		Summary:     "List companies attached to an event",
	}, func(ctx context.Context, input *struct {
		EventID string `path:"event_id"`
	}) (*struct {
		Body []domain.EventCompany `json:"body"`
	}, error) {
		items, err := e.Repo.ListEventCompanies(ctx, input.EventID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.EventCompany `json:"body"`
		}{Body: items}, nil
	})
}

func registerStrategies(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-strategy",
		Method:        http.MethodPost,
		Path:          "/strategies",
		Summary:       "Create strategy",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body CreateStrategyRequest `json:"body"`
	}) (*struct {
		Body domain.Strategy `json:"body"`
	}, error) {
		callerID, authErr := callerIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.CreateStrategy(ctx, engine.StrategyCreateOptions{
			ID:             deref(input.Body.ID),
			EventCompanyID: input.Body.EventCompanyID,
			Title:          input.Body.Title,
			Description:    deref(input.Body.Description),
			ContentJSON:    deref(input.Body.ContentJSON),
			ActorID:        callerID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Strategy `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-strategies",
		Method:      http.MethodGet,
		Path:        "/strategies",
		Summary:     "List strategies",
	}, func(ctx context.Context, input *struct {
		EventCompanyID string `query:"event_company_id"`
	}) (*struct {
		Body []domain.Strategy `json:"body"`
	}, error) {
		items, err := e.Repo.ListStrategies(ctx, input.EventCompanyID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Strategy `json:"body"`
		}{Body: items}, nil
	})

	type strategyDetail struct {
		domain.Strategy
		Items []domain.StrategyItem `json:"items"`
	}
	huma.Register(api, huma.Operation{
		OperationID: "get-strategy",
		Method:      http.MethodGet,
		Path:        "/strategies/{strategy_id}",
		Summary:     "Get strategy with items",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		StrategyID string `path:"strategy_id"`
	}) (*struct {
		Body strategyDetail `json:"body"`
	}, error) {
		s, err := e.Repo.GetStrategy(ctx, input.StrategyID)
		if err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListStrategyItems(ctx, s.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body strategyDetail `json:"body"`
		}{Body: strategyDetail{Strategy: s, Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-strategy",
		Method:      http.MethodPatch,
		Path:        "/strategies/{strategy_id}",
		Summary:     "Edit strategy content",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		StrategyID string                `path:"strategy_id"`
		Body       UpdateStrategyRequest `json:"body"`
	}) (*struct {
		Body domain.Strategy `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "validation_error", "body required", nil)
		}
		callerID, authErr := callerIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.EditStrategy(ctx, engine.StrategyUpdateOptions{
			ID:          input.StrategyID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			ContentJSON: input.Body.ContentJSON,
			ActorID:     callerID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Strategy `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "submit-strategy",
		Method:      http.MethodPost,
		Path:        "/strategies/{strategy_id}/submit",
		Summary:     "Submit strategy for client review",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		StrategyID string `path:"strategy_id"`
	}) (*struct {
		Body domain.Strategy `json:"body"`
	}, error) {
		callerID, authErr := callerIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.SubmitStrategy(ctx, input.StrategyID, callerID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Strategy `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "resubmit-strategy",
		Method:      http.MethodPost,
		Path:        "/strategies/{strategy_id}/resubmit",
		Summary:     "Resubmit strategy after changes were requested",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		StrategyID string `path:"strategy_id"`
	}) (*struct {
		Body domain.Strategy `json:"body"`
	}, error) {
		callerID, authErr := callerIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.ResubmitStrategy(ctx, input.StrategyID, callerID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Strategy `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "strategy-progress",
		Method:      http.MethodGet,
		Path:        "/strategies/{strategy_id}/progress",
		Summary:     "Item review progress",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		StrategyID string `path:"strategy_id"`
	}) (*struct {
		Body engine.RollupProgress `json:"body"`
	}, error) {
		p, err := e.StrategyProgress(ctx, input.StrategyID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.RollupProgress `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-strategy-item",
		Method:        http.MethodPost,
		Path:          "/strategies/{strategy_id}/items",
		Summary:       "Add item to strategy",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		StrategyID string                    `path:"strategy_id"`
		Body       CreateStrategyItemRequest `json:"body"`
	}) (*struct {
		Body domain.StrategyItem `json:"body"`
	}, error) {
		callerID, authErr := callerIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		it, err := e.AddStrategyItem(ctx, engine.ItemCreateOptions{
			ID:          deref(input.Body.ID),
			StrategyID:  input.StrategyID,
			Title:       input.Body.Title,
			Description: deref(input.Body.Description),
			ContentJSON: deref(input.Body.ContentJSON),
			SortOrder:   derefInt(input.Body.SortOrder),
			ActorID:     callerID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.StrategyItem `json:"body"`
		}{Body: it}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-strategy-item",
		Method:      http.MethodPatch,
		Path:        "/items/{item_id}",
		Summary:     "Edit item content",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ItemID string                    `path:"item_id"`
		Body   UpdateStrategyItemRequest `json:"body"`
	}) (*struct {
		Body domain.StrategyItem `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "validation_error", "body required", nil)
		}
		callerID, authErr := callerIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		it, err := e.EditStrategyItem(ctx, engine.ItemUpdateOptions{
			ID:          input.ItemID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			ContentJSON: input.Body.ContentJSON,
			ActorID:     callerID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.StrategyItem `json:"body"`
		}{Body: it}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "review-strategy-item",
		Method:      http.MethodPost,
		Path:        "/items/{item_id}/status",
		Summary:     "Record a review decision on an item",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ItemID string              `path:"item_id"`
		Body   ItemDecisionRequest `json:"body"`
	}) (*struct {
		Body engine.ItemDecision `json:"body"`
	}, error) {
		callerID, authErr := callerIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		decision, err := e.UpdateItemStatus(ctx, input.ItemID, input.Body.Status, callerID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.ItemDecision `json:"body"`
		}{Body: decision}, nil
	})
}

func registerDeliverables(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-deliverable",
		Method:        http.MethodPost,
		Path:          "/deliverables",
		Summary:       "Create deliverable",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body CreateDeliverableRequest `json:"body"`
	}) (*struct {
		Body domain.Deliverable `json:"body"`
	}, error) {
		callerID, authErr := callerIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.CreateDeliverable(ctx, engine.DeliverableCreateOptions{
			ID:             deref(input.Body.ID),
			EventCompanyID: input.Body.EventCompanyID,
			Title:          input.Body.Title,
			Description:    deref(input.Body.Description),
			Type:           input.Body.Type,
			ContentJSON:    deref(input.Body.ContentJSON),
			FileRef:        deref(input.Body.FileRef),
			ActorID:        callerID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Deliverable `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-deliverables",
		Method:      http.MethodGet,
		Path:        "/deliverables",
		Summary:     "List deliverables",
	}, func(ctx context.Context, input *struct {
		EventCompanyID string `query:"event_company_id"`
		Status         string `query:"status"`
		Type           string `query:"type"`
	}) (*struct {
		Body []domain.Deliverable `json:"body"`
	}, error) {
		items, err := e.Repo.ListDeliverables(ctx, repo.DeliverableFilters{
			EventCompanyID: input.EventCompanyID,
			Status:         input.Status,
			Type:           input.Type,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Deliverable `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-deliverable",
		Method:      http.MethodGet,
		Path:        "/deliverables/{deliverable_id}",
		Summary:     "Get deliverable",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DeliverableID string `path:"deliverable_id"`
	}) (*struct {
		Body domain.Deliverable `json:"body"`
	}, error) {
		d, err := e.Repo.GetDeliverable(ctx, input.DeliverableID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Deliverable `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-deliverable",
		Method:      http.MethodPatch,
		Path:        "/deliverables/{deliverable_id}",
		Summary:     "Edit deliverable content",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DeliverableID string                   `path:"deliverable_id"`
		Body          UpdateDeliverableRequest `json:"body"`
	}) (*struct {
		Body domain.Deliverable `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "validation_error", "body required", nil)
		}
		callerID, authErr := callerIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.EditDeliverable(ctx, engine.DeliverableUpdateOptions{
			ID:          input.DeliverableID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Type:        input.Body.Type,
			ContentJSON: input.Body.ContentJSON,
			FileRef:     input.Body.FileRef,
			ActorID:     callerID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Deliverable `json:"body"`
		}{Body: d}, nil
	})

	type deliverableAction func(ctx context.Context, deliverableID, callerID string) (domain.Deliverable, error)
	register := func(opID, pathSuffix, summary string, action deliverableAction) {
		huma.Register(api, huma.Operation{
			OperationID: opID,
			Method:      http.MethodPost,
			Path:        "/deliverables/{deliverable_id}/" + pathSuffix,
			Summary:     summary,
			Errors:      []int{http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
		}, func(ctx context.Context, input *struct {
			DeliverableID string `path:"deliverable_id"`
		}) (*struct {
			Body domain.Deliverable `json:"body"`
		}, error) {
			callerID, authErr := callerIDFromContext(ctx)
			if authErr != nil {
				return nil, authErr
			}
			d, err := action(ctx, input.DeliverableID, callerID)
			if err != nil {
				return nil, handleError(err)
			}
			return &struct {
				Body domain.Deliverable `json:"body"`
			}{Body: d}, nil
		})
	}
	register("submit-deliverable", "submit", "Submit deliverable for client review", e.SubmitDeliverable)
	register("approve-deliverable", "approve", "Approve deliverable", e.ApproveDeliverable)
	register("request-deliverable-changes", "request-changes", "Request changes on deliverable", e.RequestDeliverableChanges)
	register("resubmit-deliverable", "resubmit", "Resubmit deliverable after changes", e.ResubmitDeliverable)
	register("deliver-deliverable", "deliver", "Mark deliverable delivered", e.MarkDelivered)
}

func registerCollaboration(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-comment",
		Method:        http.MethodPost,
		Path:          "/comments",
		Summary:       "Comment on a strategy or deliverable",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body CreateCommentRequest `json:"body"`
	}) (*struct {
		Body domain.Comment `json:"body"`
	}, error) {
		callerID, authErr := callerIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.AddComment(ctx, engine.CommentCreateOptions{
			ID:            deref(input.Body.ID),
			StrategyID:    deref(input.Body.StrategyID),
			DeliverableID: deref(input.Body.DeliverableID),
			Body:          input.Body.Body,
			AuthorID:      callerID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Comment `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-comments",
		Method:      http.MethodGet,
		Path:        "/comments",
		Summary:     "List comments for a strategy or deliverable",
	}, func(ctx context.Context, input *struct {
		StrategyID    string `query:"strategy_id"`
		DeliverableID string `query:"deliverable_id"`
	}) (*struct {
		Body []domain.Comment `json:"body"`
	}, error) {
		items, err := e.Repo.ListComments(ctx, input.StrategyID, input.DeliverableID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Comment `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-question",
		Method:        http.MethodPost,
		Path:          "/questions",
		Summary:       "Ask a question",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body CreateQuestionRequest `json:"body"`
	}) (*struct {
		Body domain.Question `json:"body"`
	}, error) {
		callerID, authErr := callerIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		q, err := e.AddQuestion(ctx, engine.QuestionCreateOptions{
			ID:             deref(input.Body.ID),
			EventCompanyID: input.Body.EventCompanyID,
			Body:           input.Body.Body,
			AuthorID:       callerID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Question `json:"body"`
		}{Body: q}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-questions",
		Method:      http.MethodGet,
		Path:        "/questions",
		Summary:     "List questions",
	}, func(ctx context.Context, input *struct {
		EventCompanyID string `query:"event_company_id"`
	}) (*struct {
		Body []domain.Question `json:"body"`
	}, error) {
		items, err := e.Repo.ListQuestions(ctx, input.EventCompanyID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Question `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "answer-question",
		Method:      http.MethodPost,
		Path:        "/questions/{question_id}/answer",
		Summary:     "Answer a question",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		QuestionID string                `path:"question_id"`
		Body       AnswerQuestionRequest `json:"body"`
	}) (*struct {
		Body domain.Question `json:"body"`
	}, error) {
		callerID, authErr := callerIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		q, err := e.AnswerQuestion(ctx, input.QuestionID, input.Body.Answer, callerID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Question `json:"body"`
		}{Body: q}, nil
	})
}

func registerNotifications(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-notifications",
		Method:      http.MethodGet,
		Path:        "/notifications",
		Summary:     "List the caller's notifications",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		UnreadOnly bool `query:"unread_only"`
		Limit      int  `query:"limit"`
	}) (*struct {
		Body []domain.Notification `json:"body"`
	}, error) {
		callerID, authErr := callerIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListNotifications(ctx, repo.NotificationFilters{
			UserID:     callerID,
			UnreadOnly: input.UnreadOnly,
			Limit:      input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Notification `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "unread-count",
		Method:      http.MethodGet,
		Path:        "/notifications/unread-count",
		Summary:     "Count the caller's unread notifications",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]int `json:"body"`
	}, error) {
		callerID, authErr := callerIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		n, err := e.Repo.CountUnreadNotifications(ctx, callerID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]int `json:"body"`
		}{Body: map[string]int{"unread": n}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "read-notification",
		Method:      http.MethodPost,
		Path:        "/notifications/{notification_id}/read",
		Summary:     "Mark a notification read",
		Errors:      []int{http.StatusNotFound, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		NotificationID int64 `path:"notification_id"`
	}) (*struct{}, error) {
		callerID, authErr := callerIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.Repo.MarkNotificationRead(ctx, input.NotificationID, callerID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerActivities(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-activities",
		Method:      http.MethodGet,
		Path:        "/activities",
		Summary:     "List activity feed",
	}, func(ctx context.Context, input *struct {
		Type          string `query:"type"`
		StrategyID    string `query:"strategy_id"`
		DeliverableID string `query:"deliverable_id"`
		Limit         int    `query:"limit"`
	}) (*struct {
		Body []domain.Activity `json:"body"`
	}, error) {
		items, err := e.Repo.ListActivities(ctx, repo.ActivityFilters{
			Type:          input.Type,
			StrategyID:    input.StrategyID,
			DeliverableID: input.DeliverableID,
			Limit:         input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Activity `json:"body"`
		}{Body: items}, nil
	})
}

type createAPIKeyResponse struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

func registerAPIKeys(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-api-key",
		Method:        http.MethodPost,
		Path:          "/api-keys",
		Summary:       "Generate an API key for the caller",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body struct {
			Name string `json:"name,omitempty"`
		} `json:"body"`
	}) (*struct {
		Body createAPIKeyResponse `json:"body"`
	}, error) {
		callerID, authErr := callerIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		raw := make([]byte, 32)
		if _, err := rand.Read(raw); err != nil {
			return nil, handleError(err)
		}
		secret := "gdk_" + hex.EncodeToString(raw)
		key := domain.APIKey{
			ID:        uuid.NewString(),
			UserID:    callerID,
			Name:      input.Body.Name,
			KeyHash:   repo.HashAPIKey(secret),
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		}
		if err := e.Repo.InsertAPIKey(ctx, key); err != nil {
			return nil, handleError(err)
		}
		// The secret is only returned once.
		return &struct {
			Body createAPIKeyResponse `json:"body"`
		}{Body: createAPIKeyResponse{ID: key.ID, Key: secret}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-api-keys",
		Method:      http.MethodGet,
		Path:        "/api-keys",
		Summary:     "List the caller's API keys",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.APIKey `json:"body"`
	}, error) {
		callerID, authErr := callerIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListAPIKeys(ctx, callerID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.APIKey `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-api-key",
		Method:      http.MethodDelete,
		Path:        "/api-keys/{key_id}",
		Summary:     "Delete an API key",
		Errors:      []int{http.StatusNotFound, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		KeyID string `path:"key_id"`
	}) (*struct{}, error) {
		if _, authErr := callerIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		if err := e.Repo.DeleteAPIKey(ctx, input.KeyID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

type whoAmIResponse struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Source string `json:"source"`
}

func registerMe(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current principal",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body whoAmIResponse `json:"body"`
	}, error) {
		principal, ok := principalFromContext(ctx)
		if !ok || principal.UserID == "" {
			return nil, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		}
		role := principal.Role
		if role == "" {
			if p, err := e.Access.Resolve(ctx, principal.UserID); err == nil {
				role = p.Role
			}
		}
		return &struct {
			Body whoAmIResponse `json:"body"`
		}{Body: whoAmIResponse{
			UserID: principal.UserID,
			Role:   role,
			Source: principal.Source,
		}}, nil
	})
}

type devLoginRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role,omitempty"`
}

type devLoginResponse struct {
	Token string `json:"token"`
}

func registerDevAuth(api huma.API, authCfg AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID: "dev-login",
		Method:      http.MethodPost,
		Path:        "/auth/dev/login",
		Summary:     "DEV ONLY: mint a JWT for local testing",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body devLoginRequest `json:"body"`
	}) (*struct {
		Body devLoginResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "validation_error", "body required", nil)
		}
		userID := strings.TrimSpace(input.Body.UserID)
		if userID == "" {
			return nil, newAPIError(http.StatusBadRequest, "validation_error", "user_id is required", nil)
		}
		token, err := signDevToken(authCfg.JWTSecret, userID, input.Body.Role)
		if err != nil {
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", err.Error(), nil)
		}
		return &struct {
			Body devLoginResponse `json:"body"`
		}{Body: devLoginResponse{Token: token}}, nil
	})
}

func signDevToken(secret, userID, role string) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("jwt secret not configured")
	}
	now := time.Now()
	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
		},
		Role: role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
