package middleware

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/site-access/internal"
	"github.com/frahmantamala/site-access/pkg/logger"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers/legacy"
)

// OpenAPIValidator rejects requests that do not match the API document
// before they reach a handler. Routes the document does not describe pass
// through untouched.
func OpenAPIValidator(doc *openapi3.T, base *slog.Logger) (func(http.Handler) http.Handler, error) {
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, err
	}

	options := &openapi3filter.Options{
		MultiError:         false,
		AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, pathParams, err := router.FindRoute(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
				Options:    options,
			}
			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				logger.FromOr(r.Context(), base).Warn("request failed schema validation",
					"method", r.Method,
					"path", maskPath(r.URL.Path),
					"error", err)

				status, body := internal.NewValidationError(validationMessage(err), internal.ErrCodeValidationFailed).ToHTTPResponse()
				writeJSON(w, status, body)
				return
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}

// validationMessage keeps the reason but drops echoed request values, which
// may contain credentials.
func validationMessage(err error) string {
	switch e := err.(type) {
	case *openapi3filter.RequestError:
		if e.Parameter != nil {
			return "invalid parameter " + e.Parameter.Name
		}
		if e.RequestBody != nil {
			if schemaErr, ok := e.Err.(*openapi3.SchemaError); ok {
				return "invalid request body: " + schemaErr.Reason
			}
			return "invalid request body"
		}
		return e.Reason
	}
	return "request does not match API schema"
}
