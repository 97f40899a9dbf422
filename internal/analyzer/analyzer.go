package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"mediaflow/internal/logging"
)

// Classification is the verdict assigned to a media file.
type Classification string

const (
	ClassificationSafe    Classification = "safe"
	ClassificationFlagged Classification = "flagged"
	ClassificationPending Classification = "pending"
)

// Result is the outcome of one analysis.
type Result struct {
	Classification Classification `json:"classification"`
	// Confidence is a percentage in [0,100].
	Confidence int            `json:"confidence"`
	Flags      []string       `json:"flags"`
	AnalyzedAt time.Time      `json:"analyzedAt"`
	Details    map[string]any `json:"details,omitempty"`
}

// Analyzer classifies a file. Implementations never fail; problems surface as a
// pending Result carrying details.
type Analyzer interface {
	Analyze(ctx context.Context, path string) Result
}

// Model is a classifier that may fail.
type Model interface {
	Name() string
	Classify(ctx context.Context, path string) (Result, error)
}

// Pending builds the result recorded when classification could not run.
func Pending(cause error) Result {
	details := map[string]any{}
	if cause != nil {
		details["error"] = cause.Error()
	}
	return Result{
		Classification: ClassificationPending,
		Flags:          []string{},
		AnalyzedAt:     time.Now().UTC(),
		Details:        details,
	}
}

// Normalize clamps confidence, dedupes and sorts flags, and fills AnalyzedAt.
func (r Result) Normalize() Result {
	switch r.Classification {
	case ClassificationSafe, ClassificationFlagged, ClassificationPending:
	default:
		r.Classification = ClassificationPending
	}
	r.Confidence = max(0, min(100, r.Confidence))
	flags := make([]string, 0, len(r.Flags))
	for _, flag := range r.Flags {
		if flag = strings.ToLower(strings.TrimSpace(flag)); flag != "" {
			flags = append(flags, flag)
		}
	}
	slices.Sort(flags)
	r.Flags = slices.Compact(flags)
	if r.AnalyzedAt.IsZero() {
		r.AnalyzedAt = time.Now().UTC()
	}
	return r
}

type modelAnalyzer struct {
	model  Model
	logger *slog.Logger
}

// FromModel adapts a fallible Model into an Analyzer.
func FromModel(model Model, logger *slog.Logger) Analyzer {
	return &modelAnalyzer{model: model, logger: logging.NewComponentLogger(logger, "analyzer")}
}

func (a *modelAnalyzer) Analyze(ctx context.Context, path string) (result Result) {
	logger := logging.WithContext(ctx, a.logger)
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("model %s panicked: %v", a.model.Name(), r)
			logging.Fallback(logger, "content analysis panicked", "analysis_fallback",
				"inspect the classifier; item recorded as pending", logging.Error(err))
			result = Pending(err)
		}
	}()

	res, err := a.model.Classify(ctx, path)
	if err != nil {
		logging.Fallback(logger, "content analysis failed", "analysis_fallback",
			"item recorded as pending; reprocess after fixing the classifier",
			logging.String("model", a.model.Name()), logging.Error(err))
		return Pending(err)
	}
	res = res.Normalize()
	if res.Details == nil {
		res.Details = map[string]any{}
	}
	res.Details["model"] = a.model.Name()
	return res
}
