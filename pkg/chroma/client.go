package chroma

import (
	"context"
	"fmt"
	"os"
	"strings"

	"sustainly-backend/pkg/config"
	"sustainly-backend/pkg/logger"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings/gemini"
)

const collectionName = "products"

// ProductDocument is the text and metadata indexed for one scored product.
type ProductDocument struct {
	ScoreID    string // product_scores row id, used as the document id
	ProductID  string
	Title      string
	Brand      string
	Categories []string
	Score      int
}

type ChromaClient struct {
	client     chroma.Client
	collection chroma.Collection
	log        *logger.Logger
}

func NewChromaClient(cfg *config.Config, log *logger.Logger) (*ChromaClient, error) {
	if cfg.ChromaAPIKey == "" {
		return nil, fmt.Errorf("CHROMA_API_KEY is required")
	}

	// The embedding function reads the Gemini key from the environment
	if cfg.GeminiApiKey != "" {
		os.Setenv("GEMINI_API_KEY", cfg.GeminiApiKey)
	}

	embedFunc, err := gemini.NewGeminiEmbeddingFunction(
		gemini.WithEnvAPIKey(),
		gemini.WithDefaultModel("text-embedding-004"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini embedding function: %w", err)
	}

	var client chroma.Client
	switch {
	case cfg.ChromaDatabase != "" && cfg.ChromaTenant != "":
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
			chroma.WithDatabaseAndTenant(cfg.ChromaDatabase, cfg.ChromaTenant),
		)
	case cfg.ChromaTenant != "":
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
			chroma.WithTenant(cfg.ChromaTenant),
		)
	default:
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Chroma client: %w", err)
	}

	collection, err := client.GetOrCreateCollection(
		context.Background(),
		collectionName,
		chroma.WithEmbeddingFunctionCreate(embedFunc),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	log.Info("Initialized Chroma client", "collection", collectionName)

	return &ChromaClient{
		client:     client,
		collection: collection,
		log:        log.With("component", "ChromaClient"),
	}, nil
}

// DocumentText is the text embedded for a product.
func DocumentText(doc ProductDocument) string {
	parts := []string{doc.Title}
	if doc.Brand != "" {
		parts = append(parts, "Brand: "+doc.Brand)
	}
	if len(doc.Categories) > 0 {
		parts = append(parts, "Category: "+strings.Join(doc.Categories, " > "))
	}
	return strings.Join(parts, "\n")
}

// IndexProduct upserts the product so re-scoring the same URL replaces its
// document instead of duplicating it.
func (c *ChromaClient) IndexProduct(ctx context.Context, doc ProductDocument) error {
	metadata, err := chroma.NewDocumentMetadataFromMap(map[string]interface{}{
		"product_id": doc.ProductID,
		"title":      doc.Title,
		"brand":      doc.Brand,
		"score":      doc.Score,
	})
	if err != nil {
		return fmt.Errorf("failed to create metadata: %w", err)
	}

	err = c.collection.Upsert(
		ctx,
		chroma.WithIDs(chroma.DocumentID(doc.ScoreID)),
		chroma.WithMetadatas(metadata),
		chroma.WithTexts(DocumentText(doc)),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert product embedding: %w", err)
	}
	return nil
}

// SimilarProducts returns the ids of the documents nearest to query.
func (c *ChromaClient) SimilarProducts(ctx context.Context, query string, limit int) ([]string, error) {
	results, err := c.collection.Query(
		ctx,
		chroma.WithQueryTexts(query),
		chroma.WithNResults(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}
	if results == nil || results.CountGroups() == 0 {
		return []string{}, nil
	}

	idGroups := results.GetIDGroups()
	if len(idGroups) == 0 {
		return []string{}, nil
	}
	ids := make([]string, 0, len(idGroups[0]))
	for _, id := range idGroups[0] {
		ids = append(ids, string(id))
	}
	c.log.Debug("Similar products", "query_len", len(query), "results", len(ids))
	return ids, nil
}

// DeleteProducts removes documents, used when stored scores are purged.
func (c *ChromaClient) DeleteProducts(ctx context.Context, scoreIDs []string) error {
	if len(scoreIDs) == 0 {
		return nil
	}
	ids := make([]chroma.DocumentID, 0, len(scoreIDs))
	for _, id := range scoreIDs {
		ids = append(ids, chroma.DocumentID(id))
	}
	if err := c.collection.Delete(ctx, chroma.WithIDsDelete(ids...)); err != nil {
		return fmt.Errorf("failed to delete product embeddings: %w", err)
	}
	return nil
}
