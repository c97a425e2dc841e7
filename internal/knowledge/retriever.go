// Package knowledge retrieves candidate attack techniques for a phase.
//
// Techniques live in an embedded chromem-go collection and are queried per
// phase. An empty or unavailable store degrades to a fixed per-phase
// fallback table, so the pipeline always gets candidates.
package knowledge

import (
	"context"
	"fmt"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/scenariod/internal/scenario"
)

// Config holds configuration for the technique store.
type Config struct {
	// Path is the directory for persistent storage. Empty keeps the
	// store in memory.
	Path string `koanf:"path"`

	// Collection is the collection name.
	// Default: "scenariod_techniques"
	Collection string `koanf:"collection"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Collection == "" {
		c.Collection = "scenariod_techniques"
	}
}

// Retriever serves ordered technique descriptors per phase.
type Retriever struct {
	collection *chromem.Collection
	logger     *zap.Logger
}

// NewRetriever opens (or creates) the technique collection. A nil embed
// function falls back to the deterministic local embedder, which keeps the
// store usable without network access.
func NewRetriever(cfg Config, embed chromem.EmbeddingFunc, logger *zap.Logger) (*Retriever, error) {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	if embed == nil {
		embed = localEmbedding
	}

	var (
		db  *chromem.DB
		err error
	)
	if cfg.Path != "" {
		db, err = chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, fmt.Errorf("opening technique store: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("opening technique collection: %w", err)
	}
	return &Retriever{collection: collection, logger: logger}, nil
}

// Seed loads catalog entries into the collection. Seeding the built-in
// catalog is idempotent: entries are keyed by technique id.
func (r *Retriever) Seed(ctx context.Context, entries []CatalogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	docs := make([]chromem.Document, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, chromem.Document{
			ID:      e.Technique.ID,
			Content: e.Technique.Name + ": " + e.Technique.Description,
			Metadata: map[string]string{
				"phase": string(e.Phase),
				"name":  e.Technique.Name,
			},
		})
	}
	if err := r.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("seeding technique catalog: %w", err)
	}
	return nil
}

// TechniquesForPhase returns up to k candidate techniques for the phase,
// most relevant first. Store errors and empty results fall back to the
// static table — retrieval never fails the pipeline.
func (r *Retriever) TechniquesForPhase(ctx context.Context, p scenario.Phase, k int) []scenario.Technique {
	if k <= 0 {
		k = 3
	}
	if n := r.collection.Count(); n < k {
		k = n
	}
	if k == 0 {
		return FallbackTechniques(p)
	}

	results, err := r.collection.Query(ctx,
		fmt.Sprintf("attack technique used during the %s phase of an incident", p),
		k, map[string]string{"phase": string(p)}, nil)
	if err != nil || len(results) == 0 {
		if err != nil {
			r.logger.Warn("technique query failed, using fallback table",
				zap.String("phase", string(p)), zap.Error(err))
		}
		return FallbackTechniques(p)
	}

	out := make([]scenario.Technique, 0, len(results))
	for _, res := range results {
		out = append(out, scenario.Technique{
			ID:          res.ID,
			Name:        res.Metadata["name"],
			Description: res.Content,
		})
	}
	return out
}
