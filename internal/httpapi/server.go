package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agentcore/internal/faults"
	"agentcore/internal/manager"
	"agentcore/internal/source"
	"agentcore/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
// *manager.Manager satisfies it.
type Service interface {
	ExecuteModel(ctx context.Context, modelID string, input manager.Input, preferLocal bool) manager.Result
	LoadModelWith(ctx context.Context, modelID string, ref source.Reference, opts manager.LoadOptions) manager.Result
	ClearModel(id string) error
	LoadedModel(id string) (types.LocalModelInfo, bool)
	LoadedModels() []types.LocalModelInfo
	ImportedModels(ctx context.Context) ([]types.LocalModelInfo, error)
	AvailableArtifacts() ([]types.ArtifactInfo, error)
	DeleteArtifact(name string) error
	StoreCredential(key, value string) error
	HasCredential() bool
	Status() types.StatusResponse
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(corsOptions()))
	}
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	h := &handlers{svc: svc}
	r.Post("/execute", h.execute)
	r.Post("/models/load", h.loadModel)
	r.Delete("/models/{id}", h.clearModel)
	r.Get("/models", h.listModels)
	r.Get("/artifacts", h.listArtifacts)
	r.Delete("/artifacts/{name}", h.deleteArtifact)
	r.Put("/credentials", h.putCredential)
	r.Get("/credentials/status", h.credentialStatus)

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("no model loaded and no remote credential"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

func corsOptions() cors.Options {
	o := cors.Options{
		AllowedOrigins: corsAllowedOrigins,
		AllowedMethods: corsAllowedMethods,
		AllowedHeaders: corsAllowedHeaders,
		MaxAge:         300,
	}
	if len(o.AllowedMethods) == 0 {
		o.AllowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	}
	if len(o.AllowedHeaders) == 0 {
		o.AllowedHeaders = []string{"Content-Type", "X-Log-Level", "X-Request-Id"}
	}
	return o
}

type handlers struct {
	svc Service
}

// decodeJSON enforces the JSON content type and body limit.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// execute godoc
// @Summary      Execute a model
// @Description  Routes the input to the local engine or the remote endpoint. Failures keep a readable text.
// @Tags         execute
// @Accept       json
// @Produce      json
// @Param        request  body      types.ExecuteRequest  true  "Execution request"
// @Success      200      {object}  types.ExecuteResponse
// @Failure      400      {object}  types.ErrorResponse
// @Failure      401      {object}  types.ExecuteResponse
// @Failure      429      {object}  types.ExecuteResponse
// @Router       /execute [post]
func (h *handlers) execute(w http.ResponseWriter, r *http.Request) {
	var req types.ExecuteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Model) == "" {
		writeJSONError(w, http.StatusBadRequest, "model is required")
		return
	}
	var input manager.Input
	switch {
	case len(req.Data) > 0:
		input = manager.BinaryInput{Data: req.Data}
	case req.Text != "":
		input = manager.TextInput{Text: req.Text}
	default:
		writeJSONError(w, http.StatusBadRequest, "text or data is required")
		return
	}
	preferLocal := true
	if req.PreferLocal != nil {
		preferLocal = *req.PreferLocal
	}

	lvl := requestLogLevel(r)
	start := time.Now()
	logStart(r, lvl, "execute", req.Model)
	// Join server base context with request context so shutdown cancels work too.
	ctx, cancel := handlerContext(r.Context())
	defer cancel()
	res := h.svc.ExecuteModel(ctx, req.Model, input, preferLocal)
	if res.Err != nil && r.Context().Err() != nil {
		// Client went away.
		return
	}

	resp := types.ExecuteResponse{
		Text:        res.Message(),
		Route:       res.Output.Route,
		Model:       req.Model,
		ExecutionID: res.Output.ExecutionID,
		Cost:        res.Output.Cost,
	}
	status := http.StatusOK
	if res.Err != nil {
		resp.Error = string(faults.KindOf(res.Err))
		status = statusFor(res.Err)
		if status == http.StatusTooManyRequests {
			IncrementBackpressure("pool")
		}
	}
	writeJSON(w, status, resp)
	logEnd(r, lvl, "execute", status, start, res.Err)
}

// loadModel godoc
// @Summary      Load a model
// @Description  Resolves the reference, loads it into the engine and registers the model id.
// @Tags         models
// @Accept       json
// @Produce      json
// @Param        request  body      types.LoadRequest  true  "Load request"
// @Success      200      {object}  types.LoadResponse
// @Failure      400      {object}  types.ErrorResponse
// @Failure      404      {object}  types.ErrorResponse
// @Failure      502      {object}  types.ErrorResponse
// @Router       /models/load [post]
func (h *handlers) loadModel(w http.ResponseWriter, r *http.Request) {
	var req types.LoadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Model) == "" {
		writeJSONError(w, http.StatusBadRequest, "model is required")
		return
	}
	ref, err := source.FromSpec(req.Reference)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	lvl := requestLogLevel(r)
	start := time.Now()
	logStart(r, lvl, "load", req.Model)
	ctx, cancel := handlerContext(r.Context())
	defer cancel()
	res := h.svc.LoadModelWith(ctx, req.Model, ref, manager.LoadOptions{
		Version:             req.Version,
		InputTypes:          req.InputTypes,
		OutputTypes:         req.OutputTypes,
		RequiredMemoryBytes: req.RequiredMemoryBytes,
		Import:              req.Import,
	})
	if res.Err != nil {
		if r.Context().Err() != nil {
			return
		}
		status := writeFault(w, res.Err, res.Message())
		logEnd(r, lvl, "load", status, start, res.Err)
		return
	}
	info, _ := h.svc.LoadedModel(req.Model)
	writeJSON(w, http.StatusOK, types.LoadResponse{Model: info, Message: res.Message()})
	logEnd(r, lvl, "load", http.StatusOK, start, nil)
}

// clearModel godoc
// @Summary      Clear a loaded model
// @Tags         models
// @Param        id   path  string  true  "Model id"
// @Success      204
// @Failure      404  {object}  types.ErrorResponse
// @Router       /models/{id} [delete]
func (h *handlers) clearModel(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearModel(chi.URLParam(r, "id")); err != nil {
		writeFault(w, err, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listModels godoc
// @Summary      List models
// @Description  Returns the loaded set and the imported catalog.
// @Tags         models
// @Produce      json
// @Success      200  {object}  types.ModelsResponse
// @Router       /models [get]
func (h *handlers) listModels(w http.ResponseWriter, r *http.Request) {
	imported, err := h.svc.ImportedModels(r.Context())
	if err != nil {
		writeFault(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, types.ModelsResponse{Models: h.svc.LoadedModels(), Imported: imported})
}

// listArtifacts godoc
// @Summary      List stored artifacts
// @Tags         artifacts
// @Produce      json
// @Success      200  {object}  types.ArtifactsResponse
// @Router       /artifacts [get]
func (h *handlers) listArtifacts(w http.ResponseWriter, r *http.Request) {
	arts, err := h.svc.AvailableArtifacts()
	if err != nil {
		writeFault(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, types.ArtifactsResponse{Artifacts: arts})
}

// deleteArtifact godoc
// @Summary      Delete a stored artifact
// @Tags         artifacts
// @Param        name  path  string  true  "Artifact name"
// @Success      204
// @Failure      404  {object}  types.ErrorResponse
// @Router       /artifacts/{name} [delete]
func (h *handlers) deleteArtifact(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteArtifact(chi.URLParam(r, "name")); err != nil {
		writeFault(w, err, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// putCredential godoc
// @Summary      Store a credential
// @Tags         credentials
// @Accept       json
// @Param        request  body  types.CredentialRequest  true  "Credential"
// @Success      204
// @Failure      400  {object}  types.ErrorResponse
// @Router       /credentials [put]
func (h *handlers) putCredential(w http.ResponseWriter, r *http.Request) {
	var req types.CredentialRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Value) == "" {
		writeJSONError(w, http.StatusBadRequest, "value is required")
		return
	}
	if err := h.svc.StoreCredential(req.Key, req.Value); err != nil {
		writeFault(w, err, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// credentialStatus godoc
// @Summary      Remote credential status
// @Tags         credentials
// @Produce      json
// @Success      200  {object}  types.CredentialStatus
// @Router       /credentials/status [get]
func (h *handlers) credentialStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.CredentialStatus{Configured: h.svc.HasCredential()})
}
