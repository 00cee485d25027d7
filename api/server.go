package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rotisserie/eris"
	log "github.com/sirupsen/logrus"

	"riskradar/model"
	"riskradar/risk"
)

const (
	statusMessage       = "RiskRadar Backend Running 🚀"
	errModelUnavailable = "Model not loaded properly on server"
	errLocationRequired = "City and area are required"

	wsReadTimeout = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins
	},
}

/*
Server represents the API server
*/
type Server struct {
	service        *risk.Service
	allowedOrigins []string
	httpServer     *http.Server
}

/*
NewServer creates a new API server
*/
func NewServer(service *risk.Service, allowedOrigins []string) *Server {
	return &Server{
		service:        service,
		allowedOrigins: allowedOrigins,
	}
}

/*
Routes builds the HTTP handler with all endpoints and middleware
*/
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", s.HandleHome)
	r.Post("/predict", s.HandlePredict)
	r.Get("/ws", s.handleWebSocket)
	return r
}

/*
Start starts the HTTP server and blocks until it stops
*/
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

/*
Shutdown gracefully stops a started server
*/
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

/*
HandleHome reports whether the model artifacts were loaded
*/
func (s *Server) HandleHome(w http.ResponseWriter, _ *http.Request) {
	status := s.service.Status()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:         statusMessage,
		ModelLoaded:    status.ModelLoaded,
		ScalerLoaded:   status.ScalerLoaded,
		FeaturesLoaded: status.FeaturesLoaded,
	})
}

type healthResponse struct {
	Status         string `json:"status"`
	ModelLoaded    bool   `json:"model_loaded"`
	ScalerLoaded   bool   `json:"scaler_loaded"`
	FeaturesLoaded bool   `json:"features_loaded"`
}

/*
HandlePredict runs a prediction for a JSON request body
*/
func (s *Server) HandlePredict(w http.ResponseWriter, r *http.Request) {
	if !s.service.Ready() {
		writeError(w, http.StatusInternalServerError, errModelUnavailable)
		return
	}

	// an empty body counts as {} and fails the location check below
	var fields map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil && !errors.Is(err, io.EOF) {
		err = eris.Wrap(err, "decode request body")
		log.WithField("request_id", middleware.GetReqID(r.Context())).Warn("Prediction failed: ", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	result, code, err := s.predict(r.Context(), fields)
	if err != nil {
		log.WithFields(log.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"status":     code,
		}).Warn("Prediction failed: ", err)
		writeError(w, code, errorMessage(code, err))
		return
	}

	writeJSON(w, http.StatusOK, result)
}

/*
predict parses the raw fields and runs the pipeline, returning the HTTP status for failures
*/
func (s *Server) predict(ctx context.Context, fields map[string]json.RawMessage) (risk.Result, int, error) {
	req, err := model.ParseRequest(fields)
	if errors.Is(err, model.ErrMissingLocation) {
		return risk.Result{}, http.StatusBadRequest, err
	}
	if err != nil {
		return risk.Result{}, http.StatusInternalServerError, err
	}

	result, err := s.service.Assess(ctx, req)
	if err != nil {
		return risk.Result{}, http.StatusInternalServerError, err
	}
	return result, http.StatusOK, nil
}

/*
handleWebSocket serves predictions over a WebSocket connection
*/
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client
		return
	}
	defer conn.Close()

	logger := log.WithField("session", uuid.NewString())
	logger.Debug("WebSocket session opened")

	// Set read deadline
	conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	// Handle WebSocket messages
	for {
		messageType, p, err := conn.ReadMessage()
		if err != nil {
			logger.Debug("WebSocket session closed: ", err)
			return
		}

		// Process message
		var request map[string]json.RawMessage
		if err := json.Unmarshal(p, &request); err != nil {
			writeMessage(conn, messageType, errorBody("Invalid JSON"))
			continue
		}

		var kind string
		_ = json.Unmarshal(request["type"], &kind)

		// Handle different message types
		switch kind {
		case "predict":
			s.handlePredictMessage(r.Context(), conn, messageType, request)
		default:
			writeMessage(conn, messageType, errorBody("Unknown message type"))
		}
	}
}

/*
Helper methods for WebSocket handlers
*/
func (s *Server) handlePredictMessage(ctx context.Context, conn *websocket.Conn, messageType int, request map[string]json.RawMessage) {
	if !s.service.Ready() {
		writeMessage(conn, messageType, errorBody(errModelUnavailable))
		return
	}

	result, code, err := s.predict(ctx, request)
	if err != nil {
		writeMessage(conn, messageType, errorBody(errorMessage(code, err)))
		return
	}
	writeMessage(conn, messageType, result)
}

func writeMessage(conn *websocket.Conn, messageType int, v any) {
	response, err := json.Marshal(v)
	if err != nil {
		log.Error("Failed to encode WebSocket response: ", err)
		return
	}
	if err := conn.WriteMessage(messageType, response); err != nil {
		log.Debug("Failed to write WebSocket response: ", err)
	}
}

/*
Helper methods for HTTP handlers
*/
func errorMessage(code int, err error) string {
	if code == http.StatusBadRequest {
		return errLocationRequired
	}
	return err.Error()
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody(msg))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to encode response: ", err)
	}
}
