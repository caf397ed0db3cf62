package env

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the sagenv file does not say otherwise.
// Thresholds follow the CI sequence: models are registered and approved at
// 0.8 accuracy, but promotion to production requires 0.85 on live traffic.
const (
	DefaultInstanceType    = "ml.m5.xlarge"
	DefaultRegisterGate    = 0.8
	DefaultApprovalGate    = 0.8
	DefaultPromotionGate   = 0.85
	DefaultCaptureSampling = 100
)

// SageEnv is per-project configuration, loaded from a "sagenv" file found
// near the working directory. Every field is optional; accessors fall back
// to the defaults above.
type SageEnv struct {
	ProcessingInstanceType string `yaml:"processingInstanceType,omitempty"`
	TrainingInstanceType   string `yaml:"trainingInstanceType,omitempty"`
	InferenceInstanceType  string `yaml:"inferenceInstanceType,omitempty"`

	// accuracy a model must reach to be registered by the pipeline
	RegisterGate *float64 `yaml:"registerGate,omitempty"`

	// accuracy a registered model must reach to be auto-approved
	ApprovalGate *float64 `yaml:"approvalGate,omitempty"`

	// accuracy live smoke tests must reach before production promotion
	PromotionGate *float64 `yaml:"promotionGate,omitempty"`

	// percentage of endpoint traffic captured for monitoring
	CaptureSampling *int32 `yaml:"captureSampling,omitempty"`

	// training hyperparameters overriding the built-in XGBoost set
	Hyperparameters map[string]string `yaml:"hyperparameters,omitempty"`
}

func New() *SageEnv {
	return new(SageEnv)
}

func (se *SageEnv) ProcessingInstance() string {
	if se.ProcessingInstanceType == "" {
		return DefaultInstanceType
	}
	return se.ProcessingInstanceType
}

func (se *SageEnv) TrainingInstance() string {
	if se.TrainingInstanceType == "" {
		return DefaultInstanceType
	}
	return se.TrainingInstanceType
}

func (se *SageEnv) InferenceInstance() string {
	if se.InferenceInstanceType == "" {
		return DefaultInstanceType
	}
	return se.InferenceInstanceType
}

func (se *SageEnv) RegisterThreshold() float64 {
	if se.RegisterGate == nil {
		return DefaultRegisterGate
	}
	return *se.RegisterGate
}

func (se *SageEnv) ApprovalThreshold() float64 {
	if se.ApprovalGate == nil {
		return DefaultApprovalGate
	}
	return *se.ApprovalGate
}

func (se *SageEnv) PromotionThreshold() float64 {
	if se.PromotionGate == nil {
		return DefaultPromotionGate
	}
	return *se.PromotionGate
}

func (se *SageEnv) CaptureSamplingPercent() int32 {
	if se.CaptureSampling == nil {
		return DefaultCaptureSampling
	}
	return *se.CaptureSampling
}

// LoadSageEnv reads a sagenv file. A missing file is not an error: commands
// run with defaults when the project has no sagenv.
func LoadSageEnv(filepath string) (*SageEnv, error) {
	env := SageEnv{}

	content, err := os.ReadFile(filepath)
	if err != nil {
		return &env, nil
	}

	err = yaml.Unmarshal(content, &env)
	if err != nil {
		return nil, err
	}

	return &env, nil
}
