// Package workflow implements the four-stage intake-and-diagnosis state
// machine: a reviewer submits a document or typed text, the collaborator
// extracts entities, the reviewer confirms them, and a diagnosis report
// is produced. Sessions are in-memory and expire with their TTL.
package workflow

import (
	"errors"

	"github.com/sfecr/compliagent/internal/analyst"
	"github.com/sfecr/compliagent/internal/ingest"
)

// Stage is one of the four sequential workflow phases.
type Stage int

const (
	StageSubmit  Stage = 1
	StageExtract Stage = 2
	StageVerify  Stage = 3
	StageReport  Stage = 4
)

func (s Stage) String() string {
	switch s {
	case StageSubmit:
		return "submit"
	case StageExtract:
		return "extract"
	case StageVerify:
		return "verify"
	case StageReport:
		return "report"
	default:
		return "unknown"
	}
}

// UserError is the user-facing error record surfaced by the workflow.
type UserError struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Transition violations. These map to 409/400 at the HTTP boundary and
// deliberately do not become UserError records: they signal a client
// driving the machine wrong, not a failed analysis.
var (
	ErrBusy              = errors.New("a request is already in flight")
	ErrInvalidTransition = errors.New("operation not allowed in the current stage")
	ErrNoInput           = errors.New("a document or typed text is required")
)

// State is the complete per-session workflow state.
type State struct {
	SessionID  string                    `json:"session_id"`
	Stage      Stage                     `json:"stage"`
	StageName  string                    `json:"stage_name"`
	FileName   string                    `json:"file_name,omitempty"`
	ManualText string                    `json:"manual_text,omitempty"`
	Entities   []analyst.ExtractedEntity `json:"entities"`
	Diagnosis  *analyst.Diagnosis        `json:"diagnosis,omitempty"`
	Err        *UserError                `json:"error,omitempty"`
	Busy       bool                      `json:"busy"`

	// payload holds the ingested document between submit and extract.
	// Not serialized: the base64 body has no business in state snapshots.
	payload *ingest.Payload
}

// HasInput reports whether the session carries something to analyze.
func (s *State) HasInput() bool {
	return s.payload != nil || s.ManualText != ""
}

// userErrFor maps a typed ingestion or analyst error onto the record the
// client renders. Unknown errors get a generic parse-failure record.
func userErrFor(err error) *UserError {
	switch {
	case errors.Is(err, ingest.ErrUnsupportedFormat):
		return &UserError{
			Title:   "格式不受支持",
			Message: "系统当前无法解析该格式。请使用 PDF, Word 或 Excel。",
			Type:    "format",
		}
	case errors.Is(err, ingest.ErrFileTooLarge):
		return &UserError{
			Title:   "文件超限",
			Message: "文档不得超过 25MB。",
			Type:    "size",
		}
	case errors.Is(err, ingest.ErrEmptyFile):
		return &UserError{
			Title:   "空文件",
			Message: "上传的文件没有任何内容，请检查后重新报送。",
			Type:    "error",
		}
	case errors.Is(err, ingest.ErrEmptyExtractedText):
		return &UserError{
			Title:   "未提取到文本",
			Message: "文档中没有可分析的文字内容，请确认文件不是空白或纯图片。",
			Type:    "error",
		}
	case errors.Is(err, analyst.ErrExtractionFailed):
		return &UserError{
			Title:   "AI 语义解析异常",
			Message: "大模型无法在有效时间内提取该文档的结构化事实，可能是内容过于杂乱或超出文本限制。",
			Type:    "ai",
		}
	case errors.Is(err, analyst.ErrDiagnosisFailed):
		return &UserError{
			Title:   "诊断引擎超时",
			Message: "合规规则匹配逻辑极其复杂，系统响应异常，请尝试缩减文档范围。",
			Type:    "timeout",
		}
	default:
		return &UserError{
			Title:   "解析失败",
			Message: "文件可能已加密、损坏或格式不规范。如果是 Excel/Word，请确保没有设置打开密码。",
			Type:    "error",
		}
	}
}
