// Package knowledge provides knowledge graph lifecycle configuration options.
package knowledge

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/advisor-x/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains knowledge graph lifecycle configuration.
type Options struct {
	// ReviewEvidenceCount 进入 needs_review 所需的独立证据来源数。
	ReviewEvidenceCount int `json:"review-evidence-count" mapstructure:"review-evidence-count"`

	// ConfirmEvidenceCount 无冲突自动确认所需的独立证据来源数。
	ConfirmEvidenceCount int `json:"confirm-evidence-count" mapstructure:"confirm-evidence-count"`

	// ConfirmConfidence 自动确认所需的最低综合置信度。
	ConfirmConfidence float64 `json:"confirm-confidence" mapstructure:"confirm-confidence"`

	// WeightDocument 文档来源的置信度权重。
	WeightDocument float64 `json:"weight-document" mapstructure:"weight-document"`

	// WeightManual 人工录入来源的置信度权重。
	WeightManual float64 `json:"weight-manual" mapstructure:"weight-manual"`

	// WeightChat 对话推断来源的置信度权重。
	WeightChat float64 `json:"weight-chat" mapstructure:"weight-chat"`

	// WorkerPoolSize 提案批处理协程池大小。
	WorkerPoolSize int `json:"worker-pool-size" mapstructure:"worker-pool-size"`

	// MaxBatchSize 单个提案批次允许的最大提案数。
	MaxBatchSize int `json:"max-batch-size" mapstructure:"max-batch-size"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		ReviewEvidenceCount:  2,
		ConfirmEvidenceCount: 3,
		ConfirmConfidence:    0.8,
		WeightDocument:       1.0,
		WeightManual:         0.9,
		WeightChat:           0.6,
		WorkerPoolSize:       8,
		MaxBatchSize:         100,
	}
}

// ProvenanceWeight returns the confidence weight for a provenance kind.
func (o *Options) ProvenanceWeight(kind string) float64 {
	switch kind {
	case "document":
		return o.WeightDocument
	case "manual":
		return o.WeightManual
	case "chat":
		return o.WeightChat
	default:
		return o.WeightChat
	}
}

// AddFlags implements options.IOptions.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.IntVar(&o.ReviewEvidenceCount, options.FlagName("review-evidence-count", prefixes...), o.ReviewEvidenceCount, "Distinct evidence sources before an entity enters needs_review.")
	fs.IntVar(&o.ConfirmEvidenceCount, options.FlagName("confirm-evidence-count", prefixes...), o.ConfirmEvidenceCount, "Distinct evidence sources before an unconflicted entity auto-confirms.")
	fs.Float64Var(&o.ConfirmConfidence, options.FlagName("confirm-confidence", prefixes...), o.ConfirmConfidence, "Minimum blended confidence required to auto-confirm.")
	fs.Float64Var(&o.WeightDocument, options.FlagName("weight-document", prefixes...), o.WeightDocument, "Confidence weight of document provenance.")
	fs.Float64Var(&o.WeightManual, options.FlagName("weight-manual", prefixes...), o.WeightManual, "Confidence weight of manual provenance.")
	fs.Float64Var(&o.WeightChat, options.FlagName("weight-chat", prefixes...), o.WeightChat, "Confidence weight of chat provenance.")
	fs.IntVar(&o.WorkerPoolSize, options.FlagName("worker-pool-size", prefixes...), o.WorkerPoolSize, "Goroutine pool size for proposal batch processing.")
	fs.IntVar(&o.MaxBatchSize, options.FlagName("max-batch-size", prefixes...), o.MaxBatchSize, "Maximum proposals accepted in a single batch.")
}

// Validate implements options.IOptions.
func (o *Options) Validate() []error {
	var errs []error
	if o.ReviewEvidenceCount < 2 {
		errs = append(errs, fmt.Errorf("review-evidence-count must be at least 2"))
	}
	if o.ConfirmEvidenceCount < o.ReviewEvidenceCount {
		errs = append(errs, fmt.Errorf("confirm-evidence-count must be at least review-evidence-count"))
	}
	if o.ConfirmConfidence < 0 || o.ConfirmConfidence > 1 {
		errs = append(errs, fmt.Errorf("confirm-confidence must be within [0, 1]"))
	}
	for name, w := range map[string]float64{
		"weight-document": o.WeightDocument,
		"weight-manual":   o.WeightManual,
		"weight-chat":     o.WeightChat,
	} {
		if w <= 0 || w > 1 {
			errs = append(errs, fmt.Errorf("%s must be within (0, 1]", name))
		}
	}
	if o.WorkerPoolSize <= 0 {
		errs = append(errs, fmt.Errorf("worker-pool-size must be positive"))
	}
	if o.MaxBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("max-batch-size must be positive"))
	}
	return errs
}
