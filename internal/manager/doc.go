// Package manager is the model core facade: it resolves artifacts, keeps the
// single resident engine, routes requests and normalizes every outcome into a
// Result. It is structured into small files by concern:
//
//   - manager.go: core Manager type, loaded set, simple getters.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: Input variants, Output and Result.
//   - admission.go: bounded I/O and CPU pools with max-wait admission.
//   - load.go: LoadModel and the reload of registered models on demand.
//   - execute.go: ExecuteModel, local and remote dispatch, optional fallback.
//   - models.go: loaded set queries and ClearModel.
//   - artifacts.go: store listing, deletion, pulls and catalog imports.
//   - credentials.go: credential storage for the remote route.
//   - events.go: event publishing (load_*, clear, response_ready).
//   - status_report.go: Status/Ready reporting helpers.
//
// External packages should use public methods only (NewWithConfig,
// ExecuteModel, LoadModel, Status, ...). Internal fields are subject to change.
package manager
