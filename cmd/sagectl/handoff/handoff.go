// Package handoff reads and writes the artifact files that chain the
// commands of a CI/CD sequence together: single-line ARN files and JSON
// reports. The files are the CLI's only local state.
package handoff

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Results is the outcome of a pipeline execution, written by
// `pipeline results` and consumed by `model approve`.
type Results struct {
	Status       string       `json:"status"`
	ExecutionArn string       `json:"execution_arn"`
	Steps        []StepResult `json:"steps"`

	// ARN of the model package registered by this execution, when the
	// accuracy condition let the register step run.
	ModelPackageArn string `json:"model_package_arn,omitempty"`

	// accuracy from the evaluation report. Absent when the report could
	// not be retrieved.
	Accuracy *float64 `json:"accuracy,omitempty"`
}

type StepResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`

	ModelPackageArn  string `json:"model_package_arn,omitempty"`
	ProcessingJobArn string `json:"processing_job_arn,omitempty"`
	TrainingJobArn   string `json:"training_job_arn,omitempty"`
	FailureReason    string `json:"failure_reason,omitempty"`
}

// TestReport is the outcome of an endpoint smoke test, written by
// `endpoint smoke` and consumed by `endpoint verify`.
type TestReport struct {
	Success    bool `json:"success"`
	TotalTests int  `json:"total_tests"`
	Passed     int  `json:"passed"`
	Failed     int  `json:"failed"`

	Latencies   []float64    `json:"latencies"`
	Predictions []CaseResult `json:"predictions"`

	AvgLatencyMs float64 `json:"avg_latency_ms"`
	P50LatencyMs float64 `json:"p50_latency_ms"`
	P95LatencyMs float64 `json:"p95_latency_ms"`
	P99LatencyMs float64 `json:"p99_latency_ms"`

	// fraction of passed cases over all cases
	Accuracy float64 `json:"accuracy"`
}

type CaseResult struct {
	Input      string  `json:"input"`
	Prediction string  `json:"prediction"`
	Expected   *string `json:"expected"`
	LatencyMs  float64 `json:"latency_ms"`
	Error      string  `json:"error,omitempty"`
}

// TestData is the smoke-test input file.
type TestData struct {
	Samples []Sample `json:"samples"`
}

type Sample struct {
	Input string `json:"input"`

	// expected prediction. When nil, any successful response passes.
	Expected *string `json:"expected"`
}

// EvaluationReport is the report the pipeline's evaluation step leaves
// on S3. Only read here, never produced: computing it is the platform
// job's business.
type EvaluationReport struct {
	ClassificationMetrics map[string]Metric `json:"classification_metrics"`
}

type Metric struct {
	Value             float64 `json:"value"`
	StandardDeviation float64 `json:"standard_deviation"`
}

// Accuracy returns the accuracy metric, if the report carries one.
func (r EvaluationReport) Accuracy() (float64, bool) {
	m, ok := r.ClassificationMetrics["accuracy"]
	return m.Value, ok
}

// SaveText writes a single-line artifact (an ARN, an endpoint name).
func SaveText(path, value string) error {
	return os.WriteFile(path, []byte(value), 0644)
}

// LoadText reads a single-line artifact, trimming surrounding space.
func LoadText(path string) (string, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	value := strings.TrimSpace(string(buf))
	if value == "" {
		return "", fmt.Errorf("artifact %s is empty", path)
	}
	return value, nil
}

// SaveJSON writes an indented JSON artifact.
func SaveJSON(path string, value any) error {
	buf, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0644)
}

func LoadResults(path string) (Results, error) {
	var results Results
	err := loadJSON(path, &results)
	return results, err
}

func LoadTestReport(path string) (TestReport, error) {
	var report TestReport
	err := loadJSON(path, &report)
	return report, err
}

func LoadTestData(path string) (TestData, error) {
	var data TestData
	if err := loadJSON(path, &data); err != nil {
		return TestData{}, err
	}
	if len(data.Samples) == 0 {
		return TestData{}, fmt.Errorf("test data %s has no samples", path)
	}
	return data, nil
}

func loadJSON(path string, into any) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(buf, into); err != nil {
		return fmt.Errorf("%w: broken artifact at %s", err, path)
	}
	return nil
}
