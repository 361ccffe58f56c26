package realtime

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/typester/riverql/internal/gql"
)

type graphqlRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// Handler returns an http.Handler with all routes configured.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /graphql", s.handleGraphQLGet)
	mux.HandleFunc("POST /graphql", s.handleGraphQLPost)
	mux.HandleFunc("GET /graphiql", handleGraphiQL)
	mux.HandleFunc("GET /schema", handleSchema)
	mux.HandleFunc("GET /healthz", handleHealth)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleGraphQLGet upgrades websocket requests and executes ?query= otherwise.
func (s *Server) handleGraphQLGet(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		s.handleWebSocket(w, r)
		return
	}

	q := r.URL.Query()
	req := graphqlRequest{Query: q.Get("query"), OperationName: q.Get("operationName")}
	if vars := q.Get("variables"); vars != "" {
		if err := json.Unmarshal([]byte(vars), &req.Variables); err != nil {
			writeError(w, http.StatusBadRequest, "invalid variables")
			return
		}
	}
	s.execute(w, r, req)
}

func (s *Server) handleGraphQLPost(w http.ResponseWriter, r *http.Request) {
	var req graphqlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.execute(w, r, req)
}

func (s *Server) execute(w http.ResponseWriter, r *http.Request, req graphqlRequest) {
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	resp := s.schema.Exec(r.Context(), req.Query, req.OperationName, req.Variables)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Debug("write graphql response", "err", err)
	}
}

func handleSchema(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(gql.SDL))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}

func handleGraphiQL(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(graphiqlPage))
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

const graphiqlPage = `<!doctype html>
<html>
<head>
  <meta charset="utf-8">
  <title>riverql</title>
  <link rel="stylesheet" href="https://unpkg.com/graphiql@3/graphiql.min.css">
</head>
<body style="margin:0">
  <div id="graphiql" style="height:100vh"></div>
  <script crossorigin src="https://unpkg.com/react@18/umd/react.production.min.js"></script>
  <script crossorigin src="https://unpkg.com/react-dom@18/umd/react-dom.production.min.js"></script>
  <script crossorigin src="https://unpkg.com/graphql-ws@5/umd/graphql-ws.min.js"></script>
  <script crossorigin src="https://unpkg.com/graphiql@3/graphiql.min.js"></script>
  <script>
    const base = location.host + "/graphql";
    const fetcher = GraphiQL.createFetcher({
      url: location.protocol + "//" + base,
      subscriptionUrl: (location.protocol === "https:" ? "wss://" : "ws://") + base,
      wsClient: graphqlWs.createClient({ url: (location.protocol === "https:" ? "wss://" : "ws://") + base }),
    });
    ReactDOM.createRoot(document.getElementById("graphiql")).render(React.createElement(GraphiQL, { fetcher }));
  </script>
</body>
</html>
`
