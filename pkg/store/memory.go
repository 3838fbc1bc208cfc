package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tarsy-labs/agentcore/pkg/engineerr"
)

// MemoryEntry is one row of an agent's conversational memory log.
type MemoryEntry struct {
	ID        int64
	AgentName string
	CreatedAt time.Time
	Content   string
}

// AddMemory appends a row to agent_memory. Visible to subsequent reads
// across goroutines as soon as the insert commits.
func (s *Store) AddMemory(ctx context.Context, agentName, content string) error {
	if len(agentName) > 255 {
		return engineerr.New(engineerr.CategoryInvalidInput, "agent name exceeds 255 characters")
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO agent_memory (agent_name, content) VALUES ($1, $2)`,
		agentName, content)
	if err != nil {
		return engineerr.Wrap(engineerr.CategoryInternal, err, "appending agent memory").WithContext(agentName)
	}
	return nil
}

// LoadMemory returns up to limit entries for agentName, oldest first.
func (s *Store) LoadMemory(ctx context.Context, agentName string, limit int) ([]MemoryEntry, error) {
	if limit < 0 {
		return nil, engineerr.New(engineerr.CategoryInvalidInput, "limit must be >= 0")
	}
	if limit == 0 {
		return []MemoryEntry{}, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, agent_name, created_at, content
		 FROM agent_memory
		 WHERE agent_name = $1
		 ORDER BY id ASC
		 LIMIT $2`,
		agentName, limit)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.CategoryInternal, err, "loading agent memory").WithContext(agentName)
	}
	defer rows.Close()

	entries, err := scanMemoryEntries(rows)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.CategoryInternal, err, "scanning agent memory").WithContext(agentName)
	}
	return entries, nil
}

// LoadMemoryBulk returns, for every requested agent name, the same entries
// LoadMemory would — in a single round trip via a ROW_NUMBER() window
// partitioned by agent_name. Every requested name is present in the result
// map, with an empty slice if the agent has no memory.
func (s *Store) LoadMemoryBulk(ctx context.Context, agentNames []string, limit int) (map[string][]MemoryEntry, error) {
	result := make(map[string][]MemoryEntry, len(agentNames))
	for _, name := range agentNames {
		if name == "" {
			return nil, engineerr.New(engineerr.CategoryInvalidInput, "agent name must not be blank")
		}
		result[name] = []MemoryEntry{}
	}
	if len(agentNames) == 0 || limit <= 0 {
		return result, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, agent_name, created_at, content FROM (
			SELECT id, agent_name, created_at, content,
			       ROW_NUMBER() OVER (PARTITION BY agent_name ORDER BY id ASC) AS rn
			FROM agent_memory
			WHERE agent_name = ANY($1)
		 ) ranked
		 WHERE rn <= $2
		 ORDER BY agent_name, id ASC`,
		agentNames, limit)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.CategoryInternal, err, "bulk-loading agent memory")
	}
	defer rows.Close()

	entries, err := scanMemoryEntries(rows)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.CategoryInternal, err, "scanning bulk agent memory")
	}
	for _, e := range entries {
		result[e.AgentName] = append(result[e.AgentName], e)
	}
	return result, nil
}

func scanMemoryEntries(rows pgx.Rows) ([]MemoryEntry, error) {
	var entries []MemoryEntry
	for rows.Next() {
		var e MemoryEntry
		if err := rows.Scan(&e.ID, &e.AgentName, &e.CreatedAt, &e.Content); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []MemoryEntry{}
	}
	return entries, nil
}
