package httpx

import (
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/nielpattin/quizzy-sub001/internal/openapi"
)

const scalarPage = `<!doctype html>
<html>
  <head>
    <title>Quizzy API Reference</title>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
  </head>
  <body>
    <script id="api-reference" data-url="/doc"></script>
    <script src="https://cdn.jsdelivr.net/npm/@scalar/api-reference"></script>
  </body>
</html>
`

var pageQuery = []openapi.Param{
	{Name: "limit", Type: "integer", Description: "Page size, default 20, max 100"},
	{Name: "offset", Type: "integer", Description: "Rows to skip"},
}

func (r *Router) openAPI() (*openapi3.T, error) {
	ops := []openapi.Operation{
		{Method: http.MethodGet, Path: "/", Summary: "API name and version", Tag: "meta", Response: map[string]string{}},
		{Method: http.MethodGet, Path: "/healthz", Summary: "Database health", Tag: "meta"},
	}
	for _, rt := range r.routes {
		ops = append(ops, openapi.Operation{
			Method:    rt.method,
			Path:      "/api" + rt.pattern,
			Summary:   rt.summary,
			Tag:       rt.tag,
			Secured:   true,
			Query:     rt.query,
			Request:   rt.request,
			Response:  rt.response,
			Enveloped: true,
		})
	}
	return openapi.Build(openapi3.Info{
		Title:       "Quizzy API",
		Version:     r.opts.Version,
		Description: "Quizzes, live sessions, contests and the admin dashboard.",
	}, nil, ops)
}

func (r *Router) handleDoc(w http.ResponseWriter, _ *http.Request) {
	if len(r.doc) == 0 {
		writeFail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(r.doc)
}

func (r *Router) handleScalar(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(scalarPage))
}
