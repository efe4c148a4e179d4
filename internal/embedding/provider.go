package embedding

import (
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/chadd28/hackrice-15-sub000/internal/metrics"
	"github.com/chadd28/hackrice-15-sub000/pkg/circuitbreaker"
	"github.com/chadd28/hackrice-15-sub000/pkg/errs"
	"github.com/chadd28/hackrice-15-sub000/pkg/logger"
	"github.com/chadd28/hackrice-15-sub000/pkg/retry"
	"github.com/chadd28/hackrice-15-sub000/pkg/utils"
)

// Purpose tags what an embedding is used for. Reference answers are embedded
// as documents, candidate answers as queries.
type Purpose string

const (
	PurposeDocument Purpose = "document"
	PurposeQuery    Purpose = "query"
)

// remote is the seam between the provider and the wire. Tests substitute a
// fake; production uses openaiRemote.
type remote interface {
	createEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

type openaiRemote struct {
	client    *openai.Client
	model     string
	dimension int
}

func (r *openaiRemote) createEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(r.model),
	}
	if r.dimension > 0 {
		req.Dimensions = r.dimension
	}

	resp, err := r.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, 0, len(resp.Data))
	for _, data := range resp.Data {
		vector := make([]float32, len(data.Embedding))
		copy(vector, data.Embedding)
		vectors = append(vectors, vector)
	}

	return vectors, nil
}

type Config struct {
	APIKey       string
	Model        string
	Dimension    int
	Timeout      time.Duration
	BatchTimeout time.Duration
	MaxBatchSize int
	Retry        retry.Config
}

type Provider struct {
	remote       remote
	model        string
	dimension    int
	timeout      time.Duration
	batchTimeout time.Duration
	maxBatchSize int
	cb           *circuitbreaker.Breaker
	retryConfig  retry.Config
}

func NewProvider(cfg Config) *Provider {
	r := &openaiRemote{
		client:    openai.NewClient(cfg.APIKey),
		model:     cfg.Model,
		dimension: cfg.Dimension,
	}
	return newProvider(r, cfg)
}

func newProvider(r remote, cfg Config) *Provider {
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 30 * time.Second
	}
	if cfg.MaxBatchSize == 0 {
		cfg.MaxBatchSize = 100
	}

	retryConfig := cfg.Retry
	if retryConfig.MaxAttempts == 0 {
		retryConfig = retry.DefaultConfig()
		retryConfig.Logger = logger.GetLogger()
	}
	retryConfig.RetryIf = isRetryableError

	cb := circuitbreaker.New("embeddings", circuitbreaker.Config{
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	logger.Info("Embedding provider initialized",
		zap.String("model", cfg.Model),
		zap.Int("dimension", cfg.Dimension),
	)

	return &Provider{
		remote:       r,
		model:        cfg.Model,
		dimension:    cfg.Dimension,
		timeout:      cfg.Timeout,
		batchTimeout: cfg.BatchTimeout,
		maxBatchSize: cfg.MaxBatchSize,
		cb:           cb,
		retryConfig:  retryConfig,
	}
}

// Model returns the model tag. Vectors from different tags are never
// comparable, so the cache keys its validity off this value.
func (p *Provider) Model() string {
	return p.model
}

func (p *Provider) GenerateEmbedding(ctx context.Context, text string, purpose Purpose) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errs.Validationf("cannot embed empty text")
	}

	normalized := utils.NormalizeText(text)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var vector []float32

	err := p.cb.Execute(ctx, func() error {
		result, retryErr := retry.DoWithResult(ctx, p.retryConfig, func() ([]float32, error) {
			vectors, err := p.remote.createEmbeddings(ctx, []string{normalized})
			if err != nil {
				return nil, err
			}
			if len(vectors) == 0 || len(vectors[0]) == 0 {
				return nil, errs.Providerf("provider returned no embedding")
			}
			return vectors[0], nil
		})
		if retryErr != nil {
			return retryErr
		}
		vector = result
		return nil
	})

	if err != nil {
		metrics.EmbeddingRequests.WithLabelValues(string(purpose), "error").Inc()
		logger.Error("Embedding generation failed",
			zap.String("purpose", string(purpose)),
			zap.Error(err),
		)
		return nil, classify(err)
	}

	metrics.EmbeddingRequests.WithLabelValues(string(purpose), "ok").Inc()
	logger.Debug("Embedding generated",
		zap.String("purpose", string(purpose)),
		zap.Int("dimension", len(vector)),
	)

	return vector, nil
}

// GenerateBatchEmbeddings embeds every non-blank text. Output order matches
// the order of the non-blank inputs.
func (p *Provider) GenerateBatchEmbeddings(ctx context.Context, texts []string, purpose Purpose) ([][]float32, error) {
	filtered := make([]string, 0, len(texts))
	for _, text := range texts {
		if normalized := utils.NormalizeText(text); normalized != "" {
			filtered = append(filtered, normalized)
		}
	}
	if len(filtered) == 0 {
		return nil, errs.Validationf("no non-empty texts to embed")
	}

	ctx, cancel := context.WithTimeout(ctx, p.batchTimeout)
	defer cancel()

	vectors := make([][]float32, 0, len(filtered))

	for start := 0; start < len(filtered); start += p.maxBatchSize {
		end := start + p.maxBatchSize
		if end > len(filtered) {
			end = len(filtered)
		}
		batch := filtered[start:end]

		err := p.cb.Execute(ctx, func() error {
			return retry.Do(ctx, p.retryConfig, func() error {
				batchVectors, err := p.remote.createEmbeddings(ctx, batch)
				if err != nil {
					return err
				}
				if len(batchVectors) != len(batch) {
					return errs.Providerf("embedding count mismatch: got %d, expected %d",
						len(batchVectors), len(batch))
				}
				for _, v := range batchVectors {
					if len(v) == 0 {
						return errs.Providerf("provider returned an empty embedding")
					}
				}
				vectors = append(vectors, batchVectors...)
				return nil
			})
		})
		if err != nil {
			metrics.EmbeddingRequests.WithLabelValues(string(purpose), "error").Inc()
			return nil, classify(err)
		}
		metrics.EmbeddingRequests.WithLabelValues(string(purpose), "ok").Inc()
	}

	logger.Debug("Batch embeddings generated",
		zap.String("purpose", string(purpose)),
		zap.Int("count", len(vectors)),
	)

	return vectors, nil
}

// classify tags transport failures as provider errors while passing
// validation errors and context cancellation through untouched.
func classify(err error) error {
	if errors.Is(err, errs.ErrValidation) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errs.WrapProvider(err)
}

// Markers of failures that retrying cannot fix: bad credentials, exhausted
// quota, malformed input.
var nonRetryableMarkers = []string{
	"api key",
	"unauthorized",
	"authentication",
	"invalid request",
	"invalid input",
	"quota",
	"billing",
}

func isRetryableError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429:
			// Rate limits are transient, exhausted quota is not.
			return !strings.Contains(strings.ToLower(apiErr.Message), "quota")
		case apiErr.HTTPStatusCode >= 500:
			return true
		case apiErr.HTTPStatusCode >= 400:
			return false
		}
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range nonRetryableMarkers {
		if strings.Contains(msg, marker) {
			return false
		}
	}

	return true
}
