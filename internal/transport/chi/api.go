package chi

import (
	"fmt"
	"net/http"
	"time"

	gochi "github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// HeaderUserID carries the caller identity established by the upstream gateway.
const HeaderUserID = "X-User-ID"

// UserParams holds the caller identity of a user-scoped operation.
type UserParams struct {
	UserID string
}

// OutcomeSummaryParams are the query parameters of GET /analytics/outcomes.
type OutcomeSummaryParams struct {
	From       time.Time
	To         time.Time
	Kind       *[]string
	RecordedBy *string
}

// UsageParams are the query parameters of GET /usage.
type UsageParams struct {
	Period *string
}

// ServerInterface lists every HTTP operation.
type ServerInterface interface {
	// (POST /api/v1/discover)
	Discover(w http.ResponseWriter, r *http.Request, params UserParams)
	// (POST /api/v1/cache/invalidate)
	InvalidateCache(w http.ResponseWriter, r *http.Request)
	// (POST /api/v1/introductions)
	CreateIntroduction(w http.ResponseWriter, r *http.Request, params UserParams)
	// (GET /api/v1/introductions/{id})
	GetIntroduction(w http.ResponseWriter, r *http.Request, id string, params UserParams)
	// (POST /api/v1/introductions/{id}/outcome)
	RecordOutcome(w http.ResponseWriter, r *http.Request, id string, params UserParams)
	// (PATCH /api/v1/introductions/{id}/outcome)
	UpdateOutcome(w http.ResponseWriter, r *http.Request, id string, params UserParams)
	// (GET /api/v1/introductions/{id}/outcome)
	GetOutcome(w http.ResponseWriter, r *http.Request, id string, params UserParams)
	// (DELETE /api/v1/users/{id}/outcomes)
	EraseOutcomes(w http.ResponseWriter, r *http.Request, id string, params UserParams)
	// (POST /api/v1/posts)
	PublishPost(w http.ResponseWriter, r *http.Request, params UserParams)
	// (GET /api/v1/posts/{id})
	GetPost(w http.ResponseWriter, r *http.Request, id string)
	// (PUT /api/v1/profiles/me)
	UpsertProfile(w http.ResponseWriter, r *http.Request, params UserParams)
	// (GET /api/v1/profiles/{id})
	GetProfile(w http.ResponseWriter, r *http.Request, id string)
	// (GET /api/v1/analytics/outcomes)
	OutcomeSummary(w http.ResponseWriter, r *http.Request, params OutcomeSummaryParams)
	// (GET /api/v1/usage)
	GetUsage(w http.ResponseWriter, r *http.Request, params UsageParams)
	// (GET /health)
	HealthCheck(w http.ResponseWriter, r *http.Request)
	// (GET /metrics)
	Metrics(w http.ResponseWriter, r *http.Request)
}

// InvalidParamFormatError reports a parameter that failed to bind.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

// RequiredHeaderError reports a missing required header.
type RequiredHeaderError struct {
	ParamName string
}

func (e *RequiredHeaderError) Error() string {
	return fmt.Sprintf("Header parameter %s is required, but not found", e.ParamName)
}

// RequiredParamError reports a missing required query parameter.
type RequiredParamError struct {
	ParamName string
}

func (e *RequiredParamError) Error() string {
	return fmt.Sprintf("Query argument %s is required, but not found", e.ParamName)
}

// ServerInterfaceWrapper binds parameters and dispatches to the ServerInterface.
type ServerInterfaceWrapper struct {
	Handler          ServerInterface
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

func (siw *ServerInterfaceWrapper) bindUser(r *http.Request) (UserParams, error) {
	var params UserParams
	values, ok := r.Header[http.CanonicalHeaderKey(HeaderUserID)]
	if !ok || len(values) == 0 || values[0] == "" {
		return params, &RequiredHeaderError{ParamName: HeaderUserID}
	}
	if len(values) > 1 {
		return params, &InvalidParamFormatError{ParamName: HeaderUserID, Err: fmt.Errorf("expected one value, got %d", len(values))}
	}
	err := runtime.BindStyledParameterWithOptions("simple", HeaderUserID, values[0], &params.UserID,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationHeader, Explode: false, Required: true})
	if err != nil {
		return params, &InvalidParamFormatError{ParamName: HeaderUserID, Err: err}
	}
	return params, nil
}

func (siw *ServerInterfaceWrapper) bindID(r *http.Request) (string, error) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", gochi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return "", &InvalidParamFormatError{ParamName: "id", Err: err}
	}
	return id, nil
}

// withUser wraps operations that only need the caller identity.
func (siw *ServerInterfaceWrapper) withUser(op func(http.ResponseWriter, *http.Request, UserParams)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := siw.bindUser(r)
		if err != nil {
			siw.ErrorHandlerFunc(w, r, err)
			return
		}
		op(w, r, params)
	}
}

// withIDAndUser wraps operations on /{id} that need the caller identity.
func (siw *ServerInterfaceWrapper) withIDAndUser(
	op func(http.ResponseWriter, *http.Request, string, UserParams),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := siw.bindID(r)
		if err != nil {
			siw.ErrorHandlerFunc(w, r, err)
			return
		}
		params, err := siw.bindUser(r)
		if err != nil {
			siw.ErrorHandlerFunc(w, r, err)
			return
		}
		op(w, r, id, params)
	}
}

// withID wraps public operations on /{id}.
func (siw *ServerInterfaceWrapper) withID(op func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := siw.bindID(r)
		if err != nil {
			siw.ErrorHandlerFunc(w, r, err)
			return
		}
		op(w, r, id)
	}
}

// OutcomeSummary binds the analytics query parameters.
func (siw *ServerInterfaceWrapper) OutcomeSummary(w http.ResponseWriter, r *http.Request) {
	var params OutcomeSummaryParams
	q := r.URL.Query()

	for _, p := range []struct {
		name string
		dest *time.Time
	}{{"from", &params.From}, {"to", &params.To}} {
		if !q.Has(p.name) {
			siw.ErrorHandlerFunc(w, r, &RequiredParamError{ParamName: p.name})
			return
		}
		if err := runtime.BindQueryParameter("form", true, true, p.name, q, p.dest); err != nil {
			siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: p.name, Err: err})
			return
		}
	}
	if err := runtime.BindQueryParameter("form", true, false, "kind", q, &params.Kind); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "kind", Err: err})
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "recorded_by", q, &params.RecordedBy); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "recorded_by", Err: err})
		return
	}

	siw.Handler.OutcomeSummary(w, r, params)
}

// GetUsage binds the usage query parameters.
func (siw *ServerInterfaceWrapper) GetUsage(w http.ResponseWriter, r *http.Request) {
	var params UsageParams
	if err := runtime.BindQueryParameter("form", true, false, "period", r.URL.Query(), &params.Period); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "period", Err: err})
		return
	}
	siw.Handler.GetUsage(w, r, params)
}

// ChiServerOptions configures HandlerWithOptions.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       gochi.Router
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerWithOptions mounts every operation of si on a chi router.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = gochi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	siw := &ServerInterfaceWrapper{Handler: si, ErrorHandlerFunc: options.ErrorHandlerFunc}
	base := options.BaseURL

	r.Group(func(r gochi.Router) {
		r.Post(base+"/api/v1/discover", siw.withUser(si.Discover))
		r.Post(base+"/api/v1/cache/invalidate", si.InvalidateCache)
		r.Post(base+"/api/v1/introductions", siw.withUser(si.CreateIntroduction))
		r.Get(base+"/api/v1/introductions/{id}", siw.withIDAndUser(si.GetIntroduction))
		r.Post(base+"/api/v1/introductions/{id}/outcome", siw.withIDAndUser(si.RecordOutcome))
		r.Patch(base+"/api/v1/introductions/{id}/outcome", siw.withIDAndUser(si.UpdateOutcome))
		r.Get(base+"/api/v1/introductions/{id}/outcome", siw.withIDAndUser(si.GetOutcome))
		r.Delete(base+"/api/v1/users/{id}/outcomes", siw.withIDAndUser(si.EraseOutcomes))
		r.Post(base+"/api/v1/posts", siw.withUser(si.PublishPost))
		r.Get(base+"/api/v1/posts/{id}", siw.withID(si.GetPost))
		r.Put(base+"/api/v1/profiles/me", siw.withUser(si.UpsertProfile))
		r.Get(base+"/api/v1/profiles/{id}", siw.withID(si.GetProfile))
		r.Get(base+"/api/v1/analytics/outcomes", siw.OutcomeSummary)
		r.Get(base+"/api/v1/usage", siw.GetUsage)
		r.Get(base+"/health", si.HealthCheck)
		r.Get(base+"/metrics", si.Metrics)
	})
	return r
}
