package durablelog

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status values for the executions table.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusAborted   = "aborted"
)

// Execution mirrors one row of the executions table.
type Execution struct {
	ID          string
	Name        string
	Source      string
	Status      string
	StartedAt   time.Time
	CompletedAt sql.NullTime
	Reason      sql.NullString
}

// Log is the durable-log half of the durable store: it records executions,
// frames, and the agent/tool-call/report audit trail; the tasks table has no
// methods here. It shares its
// *sql.DB connection with state.PersistentStore (§5).
type Log struct {
	db *sql.DB
}

// New wraps an already-migrated *sql.DB (typically from Open).
func New(db *sql.DB) *Log {
	return &Log{db: db}
}

// Attach implements resume (§4.9): if a `running` execution exists for
// source, it is returned so the caller can re-read its persistent state and
// continue ticking from a fresh render. Otherwise a new execution row is
// created and returned.
func (l *Log) Attach(name, source string) (*Execution, error) {
	row := l.db.QueryRow(
		`SELECT id, name, source, status, started_at, completed_at, reason
		 FROM executions WHERE source = ? AND status = ? ORDER BY started_at DESC LIMIT 1`,
		source, StatusRunning,
	)
	var e Execution
	err := row.Scan(&e.ID, &e.Name, &e.Source, &e.Status, &e.StartedAt, &e.CompletedAt, &e.Reason)
	if err == nil {
		return &e, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("query running execution for source %q: %w", source, err)
	}

	e = Execution{
		ID:        uuid.NewString(),
		Name:      name,
		Source:    source,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if _, err := l.db.Exec(
		`INSERT INTO executions(id, name, source, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.Name, e.Source, e.Status, e.StartedAt,
	); err != nil {
		return nil, fmt.Errorf("insert execution %q: %w", e.ID, err)
	}
	return &e, nil
}

// Finish marks an execution terminal with the given status and reason, and
// records completion time.
func (l *Log) Finish(executionID, status, reason string) error {
	_, err := l.db.Exec(
		`UPDATE executions SET status = ?, completed_at = ?, reason = ? WHERE id = ?`,
		status, time.Now().UTC(), reason, executionID,
	)
	if err != nil {
		return fmt.Errorf("finish execution %q: %w", executionID, err)
	}
	return nil
}

// NextSequenceNumber returns the next dense, strictly increasing frame
// sequence number for executionID (§3 "Frame").
func (l *Log) NextSequenceNumber(executionID string) (int64, error) {
	row := l.db.QueryRow(
		`SELECT COALESCE(MAX(sequence_number), 0) FROM render_frames WHERE execution_id = ?`,
		executionID,
	)
	var max int64
	if err := row.Scan(&max); err != nil {
		return 0, fmt.Errorf("read max sequence number for %q: %w", executionID, err)
	}
	return max + 1, nil
}

// AppendFrame persists one serialized tree as the next frame of executionID.
func (l *Log) AppendFrame(executionID string, sequenceNumber int64, content string) error {
	_, err := l.db.Exec(
		`INSERT INTO render_frames(execution_id, sequence_number, content, timestamp) VALUES (?, ?, ?, ?)`,
		executionID, sequenceNumber, content, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("append frame %d for execution %q: %w", sequenceNumber, executionID, err)
	}
	return nil
}

// Agent status values.
const (
	AgentPending   = "pending"
	AgentRunning   = "running"
	AgentCompleted = "completed"
	AgentFailed    = "failed"
)

// RecordAgentDispatch inserts a pending->running agent row at dispatch time
// and returns its id.
func (l *Log) RecordAgentDispatch(executionID, nodePath, model, prompt string) (string, error) {
	id := uuid.NewString()
	_, err := l.db.Exec(
		`INSERT INTO agents(id, execution_id, node_path, model, status, prompt) VALUES (?, ?, ?, ?, ?, ?)`,
		id, executionID, nodePath, model, AgentRunning, prompt,
	)
	if err != nil {
		return "", fmt.Errorf("record agent dispatch for %q: %w", nodePath, err)
	}
	return id, nil
}

// RecordAgentResult transitions an agent row to a terminal status.
func (l *Log) RecordAgentResult(agentID, status, output, structuredOutput, errText string) error {
	_, err := l.db.Exec(
		`UPDATE agents SET status = ?, output = ?, structured_output = ?, error = ? WHERE id = ?`,
		status, output, structuredOutput, errText, agentID,
	)
	if err != nil {
		return fmt.Errorf("record agent result for %q: %w", agentID, err)
	}
	return nil
}

// RecordToolCall appends a tool-call audit row for an agent.
func (l *Log) RecordToolCall(agentID, toolName, input, output string) error {
	_, err := l.db.Exec(
		`INSERT INTO tool_calls(id, agent_id, tool_name, input, output, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), agentID, toolName, input, output, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record tool call %q for agent %q: %w", toolName, agentID, err)
	}
	return nil
}

// RecordReport appends a report row produced by an agent or the execution.
func (l *Log) RecordReport(executionID, agentID, reportType, title, content, severity, data string) error {
	_, err := l.db.Exec(
		`INSERT INTO reports(id, execution_id, agent_id, type, title, content, severity, data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), executionID, agentID, reportType, title, content, severity, data, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record report %q for execution %q: %w", reportType, executionID, err)
	}
	return nil
}

// Frame retrieves one persisted frame for an execution.
func (l *Log) Frame(executionID string, sequenceNumber int64) (string, error) {
	row := l.db.QueryRow(
		`SELECT content FROM render_frames WHERE execution_id = ? AND sequence_number = ?`,
		executionID, sequenceNumber,
	)
	var content string
	if err := row.Scan(&content); err != nil {
		return "", fmt.Errorf("read frame %d of execution %q: %w", sequenceNumber, executionID, err)
	}
	return content, nil
}

// Executions lists every execution row, most recently started first. Used
// by the host's read-only executions resource (§6); the core never calls
// this itself.
func (l *Log) Executions() ([]Execution, error) {
	rows, err := l.db.Query(
		`SELECT id, name, source, status, started_at, completed_at, reason
		 FROM executions ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var out []Execution
	for rows.Next() {
		var e Execution
		if err := rows.Scan(&e.ID, &e.Name, &e.Source, &e.Status, &e.StartedAt, &e.CompletedAt, &e.Reason); err != nil {
			return nil, fmt.Errorf("scan execution row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// FrameRow is one row of the render_frames table as returned by Frames.
type FrameRow struct {
	SequenceNumber int64
	Content        string
	Timestamp      time.Time
}

// Frames lists every persisted frame for executionID in sequence order.
func (l *Log) Frames(executionID string) ([]FrameRow, error) {
	rows, err := l.db.Query(
		`SELECT sequence_number, content, timestamp FROM render_frames
		 WHERE execution_id = ? ORDER BY sequence_number ASC`,
		executionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list frames for execution %q: %w", executionID, err)
	}
	defer rows.Close()

	var out []FrameRow
	for rows.Next() {
		var f FrameRow
		if err := rows.Scan(&f.SequenceNumber, &f.Content, &f.Timestamp); err != nil {
			return nil, fmt.Errorf("scan frame row: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
