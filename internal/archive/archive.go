// Package archive indexes the log entries of finished runs for full-text
// search across runs.
package archive

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/google/uuid"
	"github.com/vinayprograms/agentkit/logging"

	"github.com/vinayprograms/pursuit/internal/controller"
	"github.com/vinayprograms/pursuit/internal/driver"
)

// DefaultLimit caps search results when no limit is given.
const DefaultLimit = 10

// docNamespace scopes document IDs so re-indexing a run replaces its entries.
var docNamespace = uuid.MustParse("5b0c3f4e-8d7a-4c1e-9f26-3a4b5c6d7e8f")

// Entry is one archived log entry.
type Entry struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Goal      string    `json:"goal"`
	Status    string    `json:"status"`
	Type      string    `json:"type"`
	Iteration int       `json:"iteration"`
	SubgoalID string    `json:"subgoal_id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Hit is a search result.
type Hit struct {
	Entry
	Score float64
}

// SearchOpts narrows a search.
type SearchOpts struct {
	RunID string
	Type  string
	Limit int
}

// Archive is a bleve index of log entries.
type Archive struct {
	mu    sync.RWMutex
	index bleve.Index
}

// Open opens the index at path, creating it if needed.
func Open(path string) (*Archive, error) {
	var index bleve.Index
	var err error

	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		index, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create archive index: %w", err)
		}
	} else {
		index, err = bleve.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open archive index: %w", err)
		}
	}
	return &Archive{index: index}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	entryMapping := bleve.NewDocumentMapping()

	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name

	keyword := bleve.NewKeywordFieldMapping()

	entryMapping.AddFieldMappingsAt("content", text)
	entryMapping.AddFieldMappingsAt("goal", text)
	entryMapping.AddFieldMappingsAt("run_id", keyword)
	entryMapping.AddFieldMappingsAt("status", keyword)
	entryMapping.AddFieldMappingsAt("type", keyword)
	entryMapping.AddFieldMappingsAt("subgoal_id", keyword)
	entryMapping.AddFieldMappingsAt("iteration", bleve.NewNumericFieldMapping())
	entryMapping.AddFieldMappingsAt("timestamp", bleve.NewDateTimeFieldMapping())

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = entryMapping
	indexMapping.DefaultAnalyzer = standard.Name
	return indexMapping
}

// IndexRun stores every log entry of st. Indexing the same run again
// overwrites its entries instead of duplicating them.
func (a *Archive) IndexRun(st controller.State) (int, error) {
	if st.RunID == "" {
		return 0, fmt.Errorf("cannot archive a run without an id")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	batch := a.index.NewBatch()
	for _, l := range st.Logs {
		id := uuid.NewSHA1(docNamespace, []byte(st.RunID+"/"+l.ID)).String()
		entry := Entry{
			ID:        id,
			RunID:     st.RunID,
			Goal:      st.NormalizedGoal,
			Status:    string(st.Status),
			Type:      string(l.Type),
			Iteration: l.Iteration,
			SubgoalID: l.SubgoalID,
			Content:   l.Content,
			Timestamp: l.Timestamp,
		}
		if err := batch.Index(id, entry); err != nil {
			return 0, fmt.Errorf("failed to index entry: %w", err)
		}
	}
	if err := a.index.Batch(batch); err != nil {
		return 0, fmt.Errorf("failed to index run: %w", err)
	}
	return len(st.Logs), nil
}

// Search finds entries matching text. An empty text matches every entry
// that passes the filters.
func (a *Archive) Search(text string, opts SearchOpts) ([]Hit, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	var clauses []query.Query
	if text != "" {
		content := bleve.NewMatchQuery(text)
		content.SetField("content")
		goal := bleve.NewMatchQuery(text)
		goal.SetField("goal")
		goal.SetBoost(0.5)
		clauses = append(clauses, bleve.NewDisjunctionQuery(content, goal))
	}
	if opts.RunID != "" {
		q := bleve.NewTermQuery(opts.RunID)
		q.SetField("run_id")
		clauses = append(clauses, q)
	}
	if opts.Type != "" {
		q := bleve.NewTermQuery(opts.Type)
		q.SetField("type")
		clauses = append(clauses, q)
	}

	var q query.Query = bleve.NewMatchAllQuery()
	if len(clauses) > 0 {
		q = bleve.NewConjunctionQuery(clauses...)
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Fields = []string{"*"}
	if text == "" {
		req.SortBy([]string{"run_id", "iteration", "timestamp"})
	}

	res, err := a.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, Hit{Entry: entryFromFields(h.ID, h.Fields), Score: h.Score})
	}
	return hits, nil
}

func entryFromFields(id string, fields map[string]interface{}) Entry {
	e := Entry{ID: id}
	e.RunID, _ = fields["run_id"].(string)
	e.Goal, _ = fields["goal"].(string)
	e.Status, _ = fields["status"].(string)
	e.Type, _ = fields["type"].(string)
	e.SubgoalID, _ = fields["subgoal_id"].(string)
	e.Content, _ = fields["content"].(string)
	if n, ok := fields["iteration"].(float64); ok {
		e.Iteration = int(n)
	}
	if ts, ok := fields["timestamp"].(string); ok {
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
	}
	return e
}

// Count returns the number of archived entries.
func (a *Archive) Count() (uint64, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.index.DocCount()
}

// Close closes the index.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.index.Close()
}

// Indexer archives a run when it finishes. It is a driver.Observer.
type Indexer struct {
	archive *Archive
	logger  *logging.Logger
}

// NewIndexer creates an indexer writing to a.
func NewIndexer(a *Archive) *Indexer {
	return &Indexer{archive: a, logger: logging.New().WithComponent("archive")}
}

// Observe implements driver.Observer.
func (i *Indexer) Observe(_ context.Context, prev, next controller.State) error {
	if !driver.Finished(prev, next) {
		return nil
	}
	n, err := i.archive.IndexRun(next)
	if err != nil {
		return err
	}
	i.logger.Info("run archived", map[string]interface{}{
		"run_id":  next.RunID,
		"status":  string(next.Status),
		"entries": n,
	})
	return nil
}
