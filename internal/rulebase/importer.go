package rulebase

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"

	"github.com/sfecr/compliagent/internal/analyst"
)

// importPrefixBytes bounds how much of an uploaded regulation file is
// fed to the interpreter.
const importPrefixBytes = 15000

// pendingTTL is how long a duplicate-confirmation offer stays valid.
const pendingTTL = 10 * time.Minute

// ImportStatus describes the outcome of an import attempt.
type ImportStatus string

const (
	StatusImported         ImportStatus = "imported"
	StatusConfirmDuplicate ImportStatus = "confirm_duplicate"
)

// ImportResult is returned from an import attempt. Token is set only
// when a duplicate needs confirmation.
type ImportResult struct {
	Status ImportStatus  `json:"status"`
	Rule   *analyst.Rule `json:"rule"`
	Token  string        `json:"token,omitempty"`
}

// Interpreter structures raw regulation text into a rule entry.
type Interpreter interface {
	InterpretRule(ctx context.Context, text string) (*analyst.Rule, error)
}

// Importer runs the interpret-and-store flow, holding duplicate imports
// until the caller confirms or cancels the overwrite.
type Importer struct {
	store       *Store
	interpreter Interpreter
	index       *SemanticIndex // may be nil
	pending     *cache.Cache
}

// NewImporter creates an importer. index may be nil when semantic search
// is disabled.
func NewImporter(store *Store, interpreter Interpreter, index *SemanticIndex) *Importer {
	return &Importer{
		store:       store,
		interpreter: interpreter,
		index:       index,
		pending:     cache.New(pendingTTL, pendingTTL),
	}
}

// Import reads the upload prefix, interprets it into a structured rule
// and stores it. A collision on id or title parks the rule and returns a
// confirmation token instead.
func (im *Importer) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	prefix, err := io.ReadAll(io.LimitReader(r, importPrefixBytes))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}

	text := string(prefix)
	if strings.TrimSpace(text) == "" {
		text = "文件内容读取失败，请检查文件格式。"
	}

	rule, err := im.interpreter.InterpretRule(ctx, text)
	if err != nil {
		return nil, err
	}

	if im.store.HasDuplicate(*rule) {
		token := uuid.New().String()
		im.pending.Set(token, *rule, pendingTTL)
		return &ImportResult{Status: StatusConfirmDuplicate, Rule: rule, Token: token}, nil
	}

	im.store.Prepend(*rule)
	im.reindex(ctx, *rule)
	return &ImportResult{Status: StatusImported, Rule: rule}, nil
}

// ConfirmOverwrite replaces the colliding rules with the parked one.
func (im *Importer) ConfirmOverwrite(ctx context.Context, token string) (*analyst.Rule, error) {
	v, ok := im.pending.Get(token)
	if !ok {
		return nil, fmt.Errorf("no pending import for token")
	}
	im.pending.Delete(token)

	rule := v.(analyst.Rule)
	im.store.Overwrite(rule)
	im.reindex(ctx, rule)
	return &rule, nil
}

// Cancel discards a parked import. Unknown tokens are a no-op so that
// cancel stays idempotent.
func (im *Importer) Cancel(token string) {
	im.pending.Delete(token)
}

func (im *Importer) reindex(ctx context.Context, rule analyst.Rule) {
	if im.index == nil {
		return
	}
	// Indexing failure must not fail the import itself.
	_ = im.index.IndexRules(ctx, []analyst.Rule{rule})
}
