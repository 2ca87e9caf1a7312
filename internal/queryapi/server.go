package queryapi

import (
	"encoding/json"
	"net/http"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/graphindexer/gossip-listener/internal/logging"
)

// Config controls where the HTTP surface binds (spec.md §6).
type Config struct {
	Host string
	Port int
}

// NewServer parses the schema against resolver and returns an http.Handler
// mounting /health, /metrics-adjacent /api/v1/graphql (POST query, GET
// GraphiQL console), per spec.md §4.5.
func NewServer(resolver *Resolver) (http.Handler, error) {
	schema, err := graphql.ParseSchema(schemaString, resolver)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Default().Handler)

	r.Get("/health", healthHandler)

	gqlHandler := &relay.Handler{Schema: schema}
	r.Post("/api/v1/graphql", gqlHandler.ServeHTTP)
	r.Get("/api/v1/graphql", graphiQLHandler)

	logging.Module("queryapi").Info("graphql schema mounted", "path", "/api/v1/graphql")
	return r, nil
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"healthy": true})
}

const graphiQLPage = `<!DOCTYPE html>
<html>
<head>
  <title>listener-radio console</title>
  <style>body{height:100%;margin:0;}#graphiql{height:100vh;}</style>
  <script src="https://unpkg.com/react@18/umd/react.production.min.js"></script>
  <script src="https://unpkg.com/react-dom@18/umd/react-dom.production.min.js"></script>
  <link rel="stylesheet" href="https://unpkg.com/graphiql/graphiql.min.css" />
</head>
<body>
  <div id="graphiql">Loading...</div>
  <script src="https://unpkg.com/graphiql/graphiql.min.js"></script>
  <script>
    ReactDOM.render(
      React.createElement(GraphiQL, {
        fetcher: GraphiQL.createFetcher({ url: '/api/v1/graphql' }),
      }),
      document.getElementById('graphiql'),
    );
  </script>
</body>
</html>`

func graphiQLHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(graphiQLPage))
}
