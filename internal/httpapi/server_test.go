package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"agentcore/internal/faults"
	"agentcore/internal/manager"
	"agentcore/internal/secret"
	"agentcore/internal/source"
	"agentcore/pkg/types"
)

type execCall struct {
	model       string
	input       manager.Input
	preferLocal bool
}

type mockService struct {
	mu sync.Mutex

	execRes  manager.Result
	execs    []execCall
	loadRes  manager.Result
	loadRef  source.Reference
	loadOpts manager.LoadOptions
	loaded   []types.LocalModelInfo
	imported []types.LocalModelInfo
	arts     []types.ArtifactInfo
	errOut   error
	credKey  string
	credVal  string
	hasCred  bool
	status   types.StatusResponse
	ready    bool
	cleared  []string
	deleted  []string
}

func (m *mockService) ExecuteModel(ctx context.Context, modelID string, input manager.Input, preferLocal bool) manager.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.execs = append(m.execs, execCall{modelID, input, preferLocal})
	return m.execRes
}

func (m *mockService) LoadModelWith(ctx context.Context, modelID string, ref source.Reference, opts manager.LoadOptions) manager.Result {
	m.loadRef, m.loadOpts = ref, opts
	if m.loadRes.Err == nil {
		m.loaded = append(m.loaded, types.LocalModelInfo{ModelID: modelID, Version: opts.Version})
	}
	return m.loadRes
}

func (m *mockService) ClearModel(id string) error {
	if m.errOut != nil {
		return m.errOut
	}
	m.cleared = append(m.cleared, id)
	return nil
}

func (m *mockService) LoadedModel(id string) (types.LocalModelInfo, bool) {
	for _, info := range m.loaded {
		if info.ModelID == id {
			return info, true
		}
	}
	return types.LocalModelInfo{}, false
}

func (m *mockService) LoadedModels() []types.LocalModelInfo {
	return append([]types.LocalModelInfo(nil), m.loaded...)
}

func (m *mockService) ImportedModels(ctx context.Context) ([]types.LocalModelInfo, error) {
	return m.imported, nil
}

func (m *mockService) AvailableArtifacts() ([]types.ArtifactInfo, error) { return m.arts, m.errOut }

func (m *mockService) DeleteArtifact(name string) error {
	if m.errOut != nil {
		return m.errOut
	}
	m.deleted = append(m.deleted, name)
	return nil
}

func (m *mockService) StoreCredential(key, value string) error {
	if m.errOut != nil {
		return m.errOut
	}
	m.credKey, m.credVal = key, value
	m.hasCred = true
	return nil
}

func (m *mockService) HasCredential() bool          { return m.hasCred }
func (m *mockService) Status() types.StatusResponse { return m.status }
func (m *mockService) Ready() bool                  { return m.ready }

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestExecuteText(t *testing.T) {
	svc := &mockService{execRes: manager.Result{Output: manager.Output{Text: "hello", Route: "remote", ExecutionID: "e1", Cost: 0.001}}}
	rr := doJSON(t, NewMux(svc), http.MethodPost, "/execute", `{"model":"m1","text":"hi"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rr.Code, rr.Body.String())
	}
	resp := decodeBody[types.ExecuteResponse](t, rr)
	if resp.Text != "hello" || resp.Route != "remote" || resp.Model != "m1" || resp.ExecutionID != "e1" || resp.Error != "" {
		t.Fatalf("resp %+v", resp)
	}
	if len(svc.execs) != 1 || !svc.execs[0].preferLocal {
		t.Fatalf("prefer_local should default to true: %+v", svc.execs)
	}
	if in, ok := svc.execs[0].input.(manager.TextInput); !ok || in.Text != "hi" {
		t.Fatalf("input %#v", svc.execs[0].input)
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing nosniff header")
	}
}

func TestExecuteBinaryAndPreferLocal(t *testing.T) {
	svc := &mockService{}
	body := `{"model":"img","data":"AQI=","prefer_local":false}`
	rr := doJSON(t, NewMux(svc), http.MethodPost, "/execute", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	in, ok := svc.execs[0].input.(manager.BinaryInput)
	if !ok || !bytes.Equal(in.Data, []byte{1, 2}) {
		t.Fatalf("input %#v", svc.execs[0].input)
	}
	if svc.execs[0].preferLocal {
		t.Fatalf("prefer_local=false ignored")
	}
}

func TestExecuteFailuresKeepText(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{faults.ErrMissingCredential, http.StatusUnauthorized},
		{faults.UnsupportedInputType("video"), http.StatusUnsupportedMediaType},
		{faults.TooBusy("cpu pool"), http.StatusTooManyRequests},
		{faults.HTTPFailure(500), http.StatusBadGateway},
		{faults.ArtifactNotFound("x"), http.StatusNotFound},
	}
	for _, c := range cases {
		svc := &mockService{execRes: manager.Result{Output: manager.Output{Route: "remote"}, Err: c.err}}
		rr := doJSON(t, NewMux(svc), http.MethodPost, "/execute", `{"model":"m1","text":"hi"}`)
		if rr.Code != c.status {
			t.Fatalf("%v: status %d want %d", c.err, rr.Code, c.status)
		}
		resp := decodeBody[types.ExecuteResponse](t, rr)
		if resp.Text == "" || resp.Error != string(faults.KindOf(c.err)) {
			t.Fatalf("%v: resp %+v", c.err, resp)
		}
	}
}

func TestExecuteBadRequests(t *testing.T) {
	h := NewMux(&mockService{})
	for _, c := range []struct {
		body   string
		ct     string
		status int
	}{
		{`{"model":"m1","text":"x"}`, "text/plain", http.StatusUnsupportedMediaType},
		{`{bad`, "application/json", http.StatusBadRequest},
		{`{"text":"x"}`, "application/json", http.StatusBadRequest},
		{`{"model":"m1"}`, "application/json", http.StatusBadRequest},
	} {
		req := httptest.NewRequest(http.MethodPost, "/execute", strings.NewReader(c.body))
		req.Header.Set("Content-Type", c.ct)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != c.status {
			t.Fatalf("body %s: status %d want %d", c.body, rr.Code, c.status)
		}
		if e := decodeBody[types.ErrorResponse](t, rr); e.Code != c.status || e.Error == "" {
			t.Fatalf("error payload %+v", e)
		}
	}
}

func TestExecuteBodyTooLarge(t *testing.T) {
	old := maxBodyBytes
	SetMaxBodyBytes(32)
	defer func() { maxBodyBytes = old }()
	rr := doJSON(t, NewMux(&mockService{}), http.MethodPost, "/execute", `{"model":"m1","text":"`+strings.Repeat("a", 64)+`"}`)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status %d", rr.Code)
	}
}

func TestLoadModel(t *testing.T) {
	svc := &mockService{}
	body := `{"model":"phi","reference":{"kind":"remote","repository":"org/phi","filename":"w.onnx"},"version":"2","import":true}`
	rr := doJSON(t, NewMux(svc), http.MethodPost, "/models/load", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rr.Code, rr.Body.String())
	}
	if svc.loadRef != (source.Remote{RepositoryID: "org/phi", Filename: "w.onnx"}) {
		t.Fatalf("ref %v", svc.loadRef)
	}
	if !svc.loadOpts.Import || svc.loadOpts.Version != "2" {
		t.Fatalf("opts %+v", svc.loadOpts)
	}
	resp := decodeBody[types.LoadResponse](t, rr)
	if resp.Model.ModelID != "phi" || resp.Model.Version != "2" {
		t.Fatalf("resp %+v", resp)
	}
}

func TestLoadModelErrors(t *testing.T) {
	rr := doJSON(t, NewMux(&mockService{}), http.MethodPost, "/models/load", `{"model":"phi","reference":{"kind":"remote","repository":"org/phi"}}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid reference: status %d", rr.Code)
	}

	svc := &mockService{loadRes: manager.Result{Err: faults.DownloadFailed(500, nil)}}
	rr = doJSON(t, NewMux(svc), http.MethodPost, "/models/load", `{"model":"phi","reference":{"kind":"local","path":"phi.onnx"}}`)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("download failure: status %d", rr.Code)
	}
	if e := decodeBody[types.ErrorResponse](t, rr); e.Kind != string(faults.KindDownloadFailed) {
		t.Fatalf("error payload %+v", e)
	}
}

func TestClearAndListModels(t *testing.T) {
	svc := &mockService{
		loaded:   []types.LocalModelInfo{{ModelID: "a"}},
		imported: []types.LocalModelInfo{{ModelID: "b"}},
	}
	h := NewMux(svc)
	rr := doJSON(t, h, http.MethodGet, "/models", "")
	resp := decodeBody[types.ModelsResponse](t, rr)
	if len(resp.Models) != 1 || resp.Models[0].ModelID != "a" || len(resp.Imported) != 1 {
		t.Fatalf("models %+v", resp)
	}

	rr = doJSON(t, h, http.MethodDelete, "/models/a", "")
	if rr.Code != http.StatusNoContent || len(svc.cleared) != 1 || svc.cleared[0] != "a" {
		t.Fatalf("clear: status %d cleared %v", rr.Code, svc.cleared)
	}

	svc.errOut = faults.Newf(faults.KindArtifactNotFound, "clear", "model %q is not loaded", "zz")
	rr = doJSON(t, h, http.MethodDelete, "/models/zz", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("clear missing: status %d", rr.Code)
	}
}

func TestArtifacts(t *testing.T) {
	svc := &mockService{arts: []types.ArtifactInfo{{Name: "w.onnx", SizeBytes: 7}}}
	h := NewMux(svc)
	resp := decodeBody[types.ArtifactsResponse](t, doJSON(t, h, http.MethodGet, "/artifacts", ""))
	if len(resp.Artifacts) != 1 || resp.Artifacts[0].SizeBytes != 7 {
		t.Fatalf("artifacts %+v", resp)
	}
	if rr := doJSON(t, h, http.MethodDelete, "/artifacts/w.onnx", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status %d", rr.Code)
	}
	svc.errOut = faults.ArtifactNotFound("nope")
	if rr := doJSON(t, h, http.MethodDelete, "/artifacts/nope", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("delete missing status %d", rr.Code)
	}
}

func TestCredentials(t *testing.T) {
	svc := &mockService{}
	h := NewMux(svc)
	st := decodeBody[types.CredentialStatus](t, doJSON(t, h, http.MethodGet, "/credentials/status", ""))
	if st.Configured {
		t.Fatalf("configured before put")
	}
	if rr := doJSON(t, h, http.MethodPut, "/credentials", `{"value":"  "}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("blank value status %d", rr.Code)
	}
	if rr := doJSON(t, h, http.MethodPut, "/credentials", `{"value":"sk-1"}`); rr.Code != http.StatusNoContent {
		t.Fatalf("put status %d", rr.Code)
	}
	if svc.credKey != "" || svc.credVal != "sk-1" {
		t.Fatalf("stored %q=%q", svc.credKey, svc.credVal)
	}
	st = decodeBody[types.CredentialStatus](t, doJSON(t, h, http.MethodGet, "/credentials/status", ""))
	if !st.Configured {
		t.Fatalf("not configured after put")
	}
}

func TestStatusHealthReady(t *testing.T) {
	svc := &mockService{status: types.StatusResponse{LoadedModels: 2, MemoryBudgetBytes: 10}}
	h := NewMux(svc)
	st := decodeBody[types.StatusResponse](t, doJSON(t, h, http.MethodGet, "/status", ""))
	if st.LoadedModels != 2 || st.MemoryBudgetBytes != 10 {
		t.Fatalf("status %+v", st)
	}
	if rr := doJSON(t, h, http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK {
		t.Fatalf("healthz %d", rr.Code)
	}
	if rr := doJSON(t, h, http.MethodGet, "/readyz", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz not ready %d", rr.Code)
	}
	svc.ready = true
	if rr := doJSON(t, h, http.MethodGet, "/readyz", ""); rr.Code != http.StatusOK || rr.Body.String() != "ready" {
		t.Fatalf("readyz ready %d %q", rr.Code, rr.Body.String())
	}
}

func TestCORSOptIn(t *testing.T) {
	defer SetCORSOptions(false, nil, nil, nil)

	preflight := func(h http.Handler) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/execute", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	if rr := preflight(NewMux(&mockService{})); rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("CORS header set while disabled")
	}
	SetCORSOptions(true, []string{"http://localhost:3000"}, nil, nil)
	if rr := preflight(NewMux(&mockService{})); rr.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Fatalf("missing CORS header: %v", rr.Header())
	}
}

func TestStatusForMapping(t *testing.T) {
	cases := map[error]int{
		faults.ErrMissingCredential:                     http.StatusUnauthorized,
		faults.DependencyUnavailable("no catalog"):      http.StatusServiceUnavailable,
		faults.MalformedResponse(nil):                   http.StatusBadGateway,
		faults.EngineLoadFailure(nil):                   http.StatusInternalServerError,
		faults.IOFailure("save", nil):                   http.StatusInternalServerError,
		faults.New(faults.KindInternal, "execute", nil): http.StatusInternalServerError,
		faults.UnsupportedInputType("video"):            http.StatusUnsupportedMediaType,
		faults.TooBusy("io pool"):                       http.StatusTooManyRequests,
		faults.DownloadFailed(404, nil):                 http.StatusBadGateway,
		faults.ArtifactNotFound("weights.onnx"):         http.StatusNotFound,
		secret.ErrEmptyValue:                            http.StatusBadRequest,
	}
	for err, want := range cases {
		if got := statusFor(err); got != want {
			t.Fatalf("%v: got %d want %d", err, got, want)
		}
	}
}
