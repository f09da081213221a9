package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sfecr/compliagent/internal/analyst"
	"github.com/sfecr/compliagent/internal/ingest"
)

type stubExtractor struct {
	entities []analyst.ExtractedEntity
	err      error
	block    chan struct{} // if set, Extract waits until closed
	mu       sync.Mutex
	calls    int
	lastIn   *ingest.Payload
}

func (s *stubExtractor) ExtractEntities(ctx context.Context, payload *ingest.Payload) ([]analyst.ExtractedEntity, error) {
	s.mu.Lock()
	s.calls++
	s.lastIn = payload
	s.mu.Unlock()
	if s.block != nil {
		<-s.block
	}
	return s.entities, s.err
}

type stubDiagnoser struct {
	diagnosis *analyst.Diagnosis
	err       error
	lastInput string
	lastRules []analyst.Rule
}

func (s *stubDiagnoser) Diagnose(ctx context.Context, input string, entities []analyst.ExtractedEntity, rules []analyst.Rule) (*analyst.Diagnosis, error) {
	s.lastInput = input
	s.lastRules = rules
	return s.diagnosis, s.err
}

type stubRules struct{ rules []analyst.Rule }

func (s *stubRules) List() []analyst.Rule { return s.rules }

func testEntities() []analyst.ExtractedEntity {
	return []analyst.ExtractedEntity{
		{Type: analyst.EntityOrg, Value: "华东子公司", Context: "甲方", Confidence: 0.92},
	}
}

func testDiagnosis() *analyst.Diagnosis {
	return &analyst.Diagnosis{Score: 70, Summary: "总体可控", Results: []analyst.DiagnosisResult{}}
}

func newTestManager() *Manager {
	return NewManager(time.Minute, zap.NewNop())
}

func TestHappyPathInvariants(t *testing.T) {
	sess := newTestManager().Create()
	ctx := context.Background()

	st := sess.Snapshot()
	if st.Stage != StageSubmit || st.Diagnosis != nil || len(st.Entities) != 0 {
		t.Fatalf("fresh session state: %+v", st)
	}

	if err := sess.SubmitText("投资协议全文"); err != nil {
		t.Fatalf("SubmitText: %v", err)
	}

	if err := sess.Extract(ctx, &stubExtractor{entities: testEntities()}); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	st = sess.Snapshot()
	if st.Stage != StageVerify {
		t.Fatalf("stage after extract = %v", st.Stage)
	}
	if len(st.Entities) != 1 || st.Diagnosis != nil {
		t.Fatalf("entities/diagnosis invariant violated: %+v", st)
	}

	diag := &stubDiagnoser{diagnosis: testDiagnosis()}
	if err := sess.Confirm(ctx, diag, nil); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	st = sess.Snapshot()
	if st.Stage != StageReport || st.Diagnosis == nil {
		t.Fatalf("stage/diagnosis after confirm: %+v", st)
	}
	if diag.lastInput != "投资协议全文" {
		t.Errorf("diagnoser input = %q", diag.lastInput)
	}
}

func TestExtractFailureReturnsToSubmit(t *testing.T) {
	sess := newTestManager().Create()

	if err := sess.SubmitText("文本"); err != nil {
		t.Fatalf("SubmitText: %v", err)
	}
	err := sess.Extract(context.Background(), &stubExtractor{err: analyst.ErrExtractionFailed})
	if err != nil {
		t.Fatalf("Extract must absorb collaborator failure, got %v", err)
	}

	st := sess.Snapshot()
	if st.Stage != StageSubmit {
		t.Errorf("stage = %v, want Submit", st.Stage)
	}
	if len(st.Entities) != 0 {
		t.Error("partial entities must be discarded")
	}
	if st.Err == nil || st.Err.Type != "ai" {
		t.Errorf("expected ai error record, got %+v", st.Err)
	}
	// Input survives until the error is dismissed.
	if st.ManualText != "文本" {
		t.Error("input must survive until dismissal")
	}

	sess.DismissError()
	st = sess.Snapshot()
	if st.Err != nil || st.ManualText != "" || st.FileName != "" {
		t.Errorf("dismiss must clear error and transient input: %+v", st)
	}
}

func TestExtractRequiresInput(t *testing.T) {
	sess := newTestManager().Create()
	err := sess.Extract(context.Background(), &stubExtractor{})
	if !errors.Is(err, ErrNoInput) {
		t.Errorf("expected ErrNoInput, got %v", err)
	}
}

func TestDiagnosisFailureKeepsEntities(t *testing.T) {
	sess := newTestManager().Create()
	ctx := context.Background()
	sess.SubmitText("x")
	sess.Extract(ctx, &stubExtractor{entities: testEntities()})

	if err := sess.Confirm(ctx, &stubDiagnoser{err: analyst.ErrDiagnosisFailed}, nil); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	st := sess.Snapshot()
	if st.Stage != StageVerify {
		t.Errorf("stage = %v, want Verify", st.Stage)
	}
	if len(st.Entities) != 1 {
		t.Error("confirmed entities must survive a diagnosis failure")
	}
	if st.Err == nil || st.Err.Type != "timeout" {
		t.Errorf("expected timeout error record, got %+v", st.Err)
	}

	// Retry succeeds without re-extracting.
	if err := sess.Confirm(ctx, &stubDiagnoser{diagnosis: testDiagnosis()}, nil); err != nil {
		t.Fatalf("retry Confirm: %v", err)
	}
	if sess.Snapshot().Stage != StageReport {
		t.Error("retry must reach the report stage")
	}
}

func TestDiscardIsIdempotent(t *testing.T) {
	sess := newTestManager().Create()
	ctx := context.Background()
	sess.SubmitText("x")
	sess.Extract(ctx, &stubExtractor{entities: testEntities()})
	sess.Confirm(ctx, &stubDiagnoser{diagnosis: testDiagnosis()}, nil)

	for i := 0; i < 2; i++ {
		if err := sess.Discard(); err != nil {
			t.Fatalf("Discard[%d]: %v", i, err)
		}
		st := sess.Snapshot()
		if st.Stage != StageSubmit || len(st.Entities) != 0 || st.Diagnosis != nil || st.FileName != "" {
			t.Fatalf("discard[%d] left state: %+v", i, st)
		}
	}
}

func TestBusySessionRejectsSecondRequest(t *testing.T) {
	sess := newTestManager().Create()
	sess.SubmitText("x")

	gate := make(chan struct{})
	slow := &stubExtractor{entities: testEntities(), block: gate}

	done := make(chan error, 1)
	go func() { done <- sess.Extract(context.Background(), slow) }()

	// Wait for the in-flight call to take the busy flag.
	deadline := time.After(2 * time.Second)
	for !sess.Snapshot().Busy {
		select {
		case <-deadline:
			t.Fatal("extraction never became busy")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := sess.Extract(context.Background(), slow); !errors.Is(err, ErrBusy) {
		t.Errorf("second extract: want ErrBusy, got %v", err)
	}
	if err := sess.Discard(); !errors.Is(err, ErrBusy) {
		t.Errorf("discard while busy: want ErrBusy, got %v", err)
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("first extract: %v", err)
	}
	if slow.calls != 1 {
		t.Errorf("extractor called %d times", slow.calls)
	}
}

func TestEventsReachSubscribers(t *testing.T) {
	sess := newTestManager().Create()
	ch := sess.Subscribe()
	defer sess.Unsubscribe(ch)

	sess.SubmitText("x")
	sess.Extract(context.Background(), &stubExtractor{entities: testEntities()})

	var stages []Stage
	timeout := time.After(time.Second)
	for len(stages) < 2 {
		select {
		case ev := <-ch:
			if ev.Type == "stage" {
				stages = append(stages, ev.Stage)
			}
		case <-timeout:
			t.Fatalf("timed out, stages so far: %v", stages)
		}
	}
	if stages[0] != StageExtract || stages[1] != StageVerify {
		t.Errorf("stage events = %v", stages)
	}
}

func newTestRouter(deps Deps) chi.Router {
	r := chi.NewRouter()
	RegisterRoutes(r, deps)
	return r
}

func TestRoutesFullFlow(t *testing.T) {
	deps := Deps{
		Manager:   newTestManager(),
		Extractor: &stubExtractor{entities: testEntities()},
		Diagnoser: &stubDiagnoser{diagnosis: testDiagnosis()},
		Rules:     &stubRules{},
		Logger:    zap.NewNop(),
	}
	router := newTestRouter(deps)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/workflow", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status %d", rec.Code)
	}
	var st State
	json.NewDecoder(rec.Body).Decode(&st)
	id := st.SessionID
	if id == "" {
		t.Fatal("missing session id")
	}

	post := func(path, body, contentType string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/workflow/"+id+path, strings.NewReader(body))
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	if rec := post("/submit", `{"text":"合同全文"}`, "application/json"); rec.Code != http.StatusOK {
		t.Fatalf("submit status %d: %s", rec.Code, rec.Body.String())
	}
	if rec := post("/extract", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("extract status %d: %s", rec.Code, rec.Body.String())
	}
	if rec := post("/confirm", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("confirm status %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/workflow/"+id, nil))
	json.NewDecoder(rec.Body).Decode(&st)
	if st.Stage != StageReport || st.Diagnosis == nil {
		t.Errorf("final state: %+v", st)
	}

	// Confirm again from the terminal stage is a conflict.
	if rec := post("/confirm", "", ""); rec.Code != http.StatusConflict {
		t.Errorf("confirm from report stage: status %d", rec.Code)
	}
}

func TestRoutesRejectsUnknownSession(t *testing.T) {
	deps := Deps{Manager: newTestManager(), Extractor: &stubExtractor{}, Diagnoser: &stubDiagnoser{}, Rules: &stubRules{}}
	router := newTestRouter(deps)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/workflow/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status %d", rec.Code)
	}
}

func TestRoutesSubmitIngestFailureBecomesErrorRecord(t *testing.T) {
	deps := Deps{Manager: newTestManager(), Extractor: &stubExtractor{}, Diagnoser: &stubDiagnoser{}, Rules: &stubRules{}, Logger: zap.NewNop()}
	router := newTestRouter(deps)

	sess := deps.Manager.Create()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "malware.exe")
	fw.Write([]byte("MZ"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/workflow/"+sess.Snapshot().SessionID+"/submit", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("submit status %d", rec.Code)
	}
	st := sess.Snapshot()
	if st.Err == nil || st.Err.Type != "format" {
		t.Errorf("expected format error record, got %+v", st.Err)
	}
	if st.FileName != "malware.exe" {
		t.Errorf("attempted file name must be recorded, got %q", st.FileName)
	}
	if st.Stage != StageSubmit {
		t.Errorf("stage = %v", st.Stage)
	}
}
