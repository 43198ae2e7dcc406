package types

// ExecuteRequest is the payload of POST /execute. Exactly one of Text and Data
// should be set; Data is base64 in JSON.
type ExecuteRequest struct {
	// Logical model identifier.
	// example: phi-mini
	Model string `json:"model" example:"phi-mini"`
	// Text input, routed to the chat path.
	// example: play something relaxing
	Text string `json:"text,omitempty" example:"play something relaxing"`
	// Binary input (e.g. an image), routed to the local engine.
	Data []byte `json:"data,omitempty" swaggertype:"string" format:"base64"`
	// Prefer the local engine when the model is loaded. Defaults to true.
	// example: true
	PreferLocal *bool `json:"prefer_local,omitempty" example:"true"`
}

// ExecuteResponse is returned by POST /execute. Failures still carry a
// human-readable Text so clients can always render a string.
type ExecuteResponse struct {
	// Generated text, or the failure message.
	// example: play music: lofi beats
	Text string `json:"text" example:"play music: lofi beats"`
	// Route taken: local or remote.
	// example: remote
	Route string `json:"route" example:"remote"`
	// Model the request targeted.
	// example: phi-mini
	Model string `json:"model" example:"phi-mini"`
	// Execution id, also carried by the response_ready event.
	ExecutionID string `json:"execution_id,omitempty"`
	// Failure kind when the execution failed.
	// example: missing_credential
	Error string `json:"error,omitempty" example:"missing_credential"`
	// Estimated cost of the route in currency units.
	// example: 0.001
	Cost float64 `json:"cost" example:"0.001"`
}

// LoadRequest is the payload of POST /models/load.
type LoadRequest struct {
	// Model id to register the loaded model under.
	// example: phi-mini
	Model string `json:"model" example:"phi-mini"`
	// Where to resolve the artifact from.
	Reference ModelReference `json:"reference"`
	// Optional metadata recorded on the loaded model.
	Version     string     `json:"version,omitempty"`
	InputTypes  []Modality `json:"input_types,omitempty"`
	OutputTypes []Modality `json:"output_types,omitempty"`
	// Memory requirement override in bytes; defaults to the artifact size.
	RequiredMemoryBytes int64 `json:"required_memory_bytes,omitempty"`
	// Also record the model in the persistent catalog.
	Import bool `json:"import,omitempty"`
}

// LoadResponse is returned by POST /models/load.
type LoadResponse struct {
	Model   LocalModelInfo `json:"model"`
	Message string         `json:"message"`
}

// ModelsResponse wraps the loaded set returned by GET /models.
type ModelsResponse struct {
	// Models currently registered as loaded.
	Models []LocalModelInfo `json:"models"`
	// Models recorded in the catalog of imported models.
	Imported []LocalModelInfo `json:"imported,omitempty"`
}

// ArtifactInfo is one entry of the local artifact store.
type ArtifactInfo struct {
	// example: org_model_weights.onnx
	Name string `json:"name" example:"org_model_weights.onnx"`
	// example: 52428800
	SizeBytes int64 `json:"size_bytes" example:"52428800"`
}

// ArtifactsResponse is returned by GET /artifacts.
type ArtifactsResponse struct {
	Artifacts []ArtifactInfo `json:"artifacts"`
}

// CredentialRequest is the payload of PUT /credentials.
type CredentialRequest struct {
	// Credential key; defaults to openrouter_api_key.
	// example: openrouter_api_key
	Key string `json:"key,omitempty" example:"openrouter_api_key"`
	// Secret value.
	Value string `json:"value"`
}

// CredentialStatus is returned by GET /credentials/status.
type CredentialStatus struct {
	// Whether the remote credential is configured.
	// example: true
	Configured bool `json:"configured" example:"true"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
	// Failure kind when the error came from the model core.
	// example: artifact_not_found
	Kind string `json:"kind,omitempty" example:"artifact_not_found"`
}

// EngineStatus summarizes the resident engine for /status.
type EngineStatus struct {
	// unloaded or loaded.
	// example: loaded
	State string `json:"state" example:"loaded"`
	// Backend building engines (onnx or llama).
	// example: onnx
	Backend string `json:"backend" example:"onnx"`
	// Reference of the resident artifact.
	Reference *ModelReference `json:"reference,omitempty"`
	// Model id the resident engine serves.
	// example: phi-mini
	ModelID string `json:"model_id,omitempty" example:"phi-mini"`
	// Load time in unix seconds.
	LoadedAt int64 `json:"loaded_at_unix,omitempty"`
	InputSize  int `json:"input_size,omitempty"`
	OutputSize int `json:"output_size,omitempty"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Engine EngineStatus `json:"engine"`
	// Number of models in the loaded set.
	// example: 2
	LoadedModels int `json:"loaded_models" example:"2"`
	// Whether a remote credential is configured.
	// example: true
	RemoteAvailable bool `json:"remote_available" example:"true"`
	// Memory budget for local models in bytes (0 = unlimited).
	MemoryBudgetBytes int64 `json:"memory_budget_bytes"`
	// I/O and CPU work currently admitted.
	IOInflight  int `json:"io_inflight"`
	CPUInflight int `json:"cpu_inflight"`
	// Last error observed by the manager (if any).
	LastError string `json:"last_error,omitempty"`
	// Counters since start.
	ExecutionsTotal uint64 `json:"executions_total"`
	LoadsTotal      uint64 `json:"loads_total"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	ServerTimeUnix int64 `json:"server_time_unix"`
}
