// Package report persists validation, execution, and optimization results
// as JSON documents. Writes are atomic so a crashed run never leaves a
// half-written report behind.
package report

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/seiforesti/govflow/internal/core"
	"github.com/seiforesti/govflow/internal/engine"
)

// Kind identifies the report payload type.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindExecution    Kind = "execution"
	KindOptimization Kind = "optimization"
)

// Envelope wraps a report payload with integrity metadata.
type Envelope struct {
	Version     int             `json:"version"`
	Kind        Kind            `json:"kind"`
	WorkflowID  core.WorkflowID `json:"workflow_id"`
	Checksum    string          `json:"checksum"`
	GeneratedAt time.Time       `json:"generated_at"`
	Payload     json.RawMessage `json:"payload"`
}

const envelopeVersion = 1

// Writer persists reports under a base directory.
type Writer struct {
	dir string
}

// NewWriter creates a writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// WriteValidation persists a validation report and returns the file path.
func (w *Writer) WriteValidation(id core.WorkflowID, rep *core.ValidationReport) (string, error) {
	return w.write(KindValidation, id, rep)
}

// WriteExecution persists an execution record and returns the file path.
func (w *Writer) WriteExecution(exec *core.WorkflowExecution) (string, error) {
	return w.write(KindExecution, exec.WorkflowID, exec)
}

// WriteOptimization persists an optimization result and returns the file path.
func (w *Writer) WriteOptimization(res *engine.OptimizationResult) (string, error) {
	return w.write(KindOptimization, res.WorkflowID, res)
}

func (w *Writer) write(kind Kind, id core.WorkflowID, payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding %s report: %w", kind, err)
	}

	sum, err := payloadChecksum(raw)
	if err != nil {
		return "", fmt.Errorf("hashing %s report: %w", kind, err)
	}
	env := Envelope{
		Version:     envelopeVersion,
		Kind:        kind,
		WorkflowID:  id,
		Checksum:    sum,
		GeneratedAt: time.Now().UTC(),
		Payload:     raw,
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding report envelope: %w", err)
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}

	name := fmt.Sprintf("%s-%s-%s.json", id, kind, env.GeneratedAt.Format("20060102T150405Z"))
	path := filepath.Join(w.dir, name)
	if err := atomicWriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s report: %w", kind, err)
	}
	return path, nil
}

// Read loads and verifies a report envelope from disk.
func Read(path string) (*Envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding report envelope: %w", err)
	}
	got, err := payloadChecksum(env.Payload)
	if err != nil {
		return nil, fmt.Errorf("hashing report payload: %w", err)
	}
	if got != env.Checksum {
		return nil, fmt.Errorf("report checksum mismatch: have %s, want %s", got, env.Checksum)
	}
	return &env, nil
}

// payloadChecksum hashes the compact form of a JSON payload. Marshaling the
// envelope re-indents the embedded raw message, so the stored bytes are not
// canonical; compacting before hashing keeps write and read in agreement
// regardless of formatting.
func payloadChecksum(raw json.RawMessage) (string, error) {
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return "", err
	}
	sum := sha256.Sum256(compact.Bytes())
	return hex.EncodeToString(sum[:]), nil
}
