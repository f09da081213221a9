package workflow

import (
	"context"
	"time"

	"github.com/sfecr/compliagent/internal/analyst"
	"github.com/sfecr/compliagent/internal/ingest"
)

// Extractor is the entity-extraction side of the AI collaborator.
type Extractor interface {
	ExtractEntities(ctx context.Context, payload *ingest.Payload) ([]analyst.ExtractedEntity, error)
}

// Diagnoser is the diagnosis side of the AI collaborator.
type Diagnoser interface {
	Diagnose(ctx context.Context, userInput string, entities []analyst.ExtractedEntity, rules []analyst.Rule) (*analyst.Diagnosis, error)
}

// SubmitPayload stores a successfully ingested document. Only valid at
// the Submit stage; replaces any previous input of this attempt.
func (s *Session) SubmitPayload(p *ingest.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Busy {
		return ErrBusy
	}
	if s.state.Stage != StageSubmit {
		return ErrInvalidTransition
	}
	s.state.payload = p
	s.state.FileName = p.FileName
	s.state.Err = nil
	return nil
}

// SubmitText stores manually typed text as the input.
func (s *Session) SubmitText(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Busy {
		return ErrBusy
	}
	if s.state.Stage != StageSubmit {
		return ErrInvalidTransition
	}
	s.state.ManualText = text
	s.state.Err = nil
	return nil
}

// RecordIngestFailure converts a typed ingestion error into the session's
// user-facing error record, keeping only the attempted file name.
func (s *Session) RecordIngestFailure(fileName string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.FileName = fileName
	s.state.payload = nil
	s.state.Err = userErrFor(err)
	s.emitLocked(Event{Type: "error", Message: s.state.Err.Title})
}

// extractionPhases are the cosmetic console lines streamed while the
// extraction request is outstanding. Timed placeholders, not telemetry.
var extractionPhases = []string{
	"启动 AI 深度经营事实解析引擎...",
	"建立全量合规模型链接...",
	"正在研读文档物理结构与元数据信息...",
	"执行智能版面还原与 OCR 字符二次增强...",
	"识别关键控制实体 (ORG) 与关联方信息...",
	"正在锁定财务红线 (MONEY) 与合规指标 (METRIC)...",
	"深度提取法律约束条款 (CLAUSE) 语义...",
}

// Extract advances Submit → Extract and runs the extraction call. On
// success the session lands in Verify with the entities; on failure it
// returns to Submit discarding partial state.
func (s *Session) Extract(ctx context.Context, extractor Extractor) error {
	s.mu.Lock()
	if s.state.Busy {
		s.mu.Unlock()
		return ErrBusy
	}
	if s.state.Stage != StageSubmit {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	if !s.state.HasInput() {
		s.mu.Unlock()
		return ErrNoInput
	}

	s.state.Busy = true
	s.state.Stage = StageExtract
	s.state.Err = nil
	payload := s.state.payload
	if payload == nil {
		payload = &ingest.Payload{FileName: "手动输入", Text: s.state.ManualText}
	}
	s.emitLocked(Event{Type: "stage", Stage: StageExtract})
	s.mu.Unlock()

	done := make(chan struct{})
	go s.streamPhases(done)

	entities, err := extractor.ExtractEntities(ctx, payload)
	close(done)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Busy = false

	if err != nil {
		// Back to Submit, discarding partial state of this attempt.
		s.state.Stage = StageSubmit
		s.state.Entities = []analyst.ExtractedEntity{}
		s.state.Err = userErrFor(err)
		s.emitLocked(Event{Type: "error", Message: s.state.Err.Title})
		s.emitLocked(Event{Type: "stage", Stage: StageSubmit})
		return nil
	}

	s.state.Entities = entities
	s.state.Stage = StageVerify
	s.emitLocked(Event{Type: "log", Message: "成功识别核心合规事实证据。"})
	s.emitLocked(Event{Type: "stage", Stage: StageVerify})
	return nil
}

func (s *Session) streamPhases(done <-chan struct{}) {
	for _, phase := range extractionPhases {
		select {
		case <-done:
			return
		case <-time.After(800 * time.Millisecond):
			s.emit(Event{Type: "log", Message: phase})
		}
	}
}

// Confirm runs the diagnosis over the confirmed entities. On success the
// session reaches the Report stage; on failure it stays in Verify with
// the entities intact so the user can retry without re-extracting.
func (s *Session) Confirm(ctx context.Context, diagnoser Diagnoser, rules []analyst.Rule) error {
	s.mu.Lock()
	if s.state.Busy {
		s.mu.Unlock()
		return ErrBusy
	}
	if s.state.Stage != StageVerify {
		s.mu.Unlock()
		return ErrInvalidTransition
	}

	s.state.Busy = true
	s.state.Err = nil
	input := s.state.ManualText
	if input == "" {
		input = "基于合规文件: " + s.state.FileName
	}
	entities := append([]analyst.ExtractedEntity(nil), s.state.Entities...)
	s.emitLocked(Event{Type: "log", Message: "正在对标规则库执行合规诊断..."})
	s.mu.Unlock()

	diagnosis, err := diagnoser.Diagnose(ctx, input, entities, rules)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Busy = false

	if err != nil {
		s.state.Err = userErrFor(err)
		s.emitLocked(Event{Type: "error", Message: s.state.Err.Title})
		return nil
	}

	s.state.Diagnosis = diagnosis
	s.state.Stage = StageReport
	s.emitLocked(Event{Type: "stage", Stage: StageReport})
	return nil
}

// Discard clears all derived state and returns to Submit. Valid from any
// stage and idempotent.
func (s *Session) Discard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Busy {
		return ErrBusy
	}
	s.resetLocked(false)
	s.emitLocked(Event{Type: "stage", Stage: StageSubmit})
	return nil
}

// Reset performs a full restart, clearing the error record too.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Busy {
		return ErrBusy
	}
	s.resetLocked(true)
	s.emitLocked(Event{Type: "stage", Stage: StageSubmit})
	return nil
}

func (s *Session) resetLocked(clearError bool) {
	s.state.Stage = StageSubmit
	s.state.Entities = []analyst.ExtractedEntity{}
	s.state.Diagnosis = nil
	s.state.FileName = ""
	s.state.ManualText = ""
	s.state.payload = nil
	if clearError {
		s.state.Err = nil
	}
}

// DismissError clears the error record along with the transient input of
// the failed attempt, forcing a clean re-submission.
func (s *Session) DismissError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Err = nil
	s.state.payload = nil
	s.state.FileName = ""
	s.state.ManualText = ""
}
