// Package pipelines assembles SageMaker Pipeline definition documents.
//
// The definition is the JSON document accepted by CreatePipeline /
// UpdatePipeline (schema version 2020-12-01). Step arguments mirror the
// request shapes of the jobs each step launches; values produced by earlier
// steps or by pipeline parameters are expressed as property references
// ({"Get": ...}) resolved by the service at execution time.
package pipelines

import (
	"encoding/json"
	"fmt"
)

const SchemaVersion = "2020-12-01"

// Step and parameter names are part of the contract with downstream
// commands: `pipeline results` looks registered models up by step name.
const (
	StepPreprocess = "PreprocessData"
	StepTrain      = "TrainModel"
	StepEvaluate   = "EvaluateModel"
	StepCondition  = "CheckAccuracy"
	StepRegister   = "RegisterModel"

	ParamProcessingInstanceType = "ProcessingInstanceType"
	ParamTrainingInstanceType   = "TrainingInstanceType"
	ParamModelApprovalStatus    = "ModelApprovalStatus"
	ParamInputData              = "InputData"

	EvaluationReportFile = "evaluation.json"
	evaluationReportName = "EvaluationReport"

	// accuracy metric path inside the evaluation report
	accuracyPath = "classification_metrics.accuracy.value"
)

type Definition struct {
	Version    string      `json:"Version"`
	Metadata   Metadata    `json:"Metadata"`
	Parameters []Parameter `json:"Parameters"`
	Steps      []Step      `json:"Steps"`
}

type Metadata struct{}

type Parameter struct {
	Name         string `json:"Name"`
	Type         string `json:"Type"`
	DefaultValue any    `json:"DefaultValue,omitempty"`
}

type Step struct {
	Name          string         `json:"Name"`
	Type          string         `json:"Type"`
	Arguments     map[string]any `json:"Arguments"`
	PropertyFiles []PropertyFile `json:"PropertyFiles,omitempty"`
}

type PropertyFile struct {
	PropertyFileName string `json:"PropertyFileName"`
	OutputName       string `json:"OutputName"`
	FilePath         string `json:"FilePath"`
}

// Config holds everything the document needs that is not fixed by the
// pipeline shape itself.
type Config struct {
	ProjectName string
	Region      string
	RoleArn     string
	Bucket      string

	// accuracy a model must reach to be registered
	AccuracyThreshold float64

	// container images for the processing and training steps
	ProcessingImage string
	TrainingImage   string

	// defaults of the instance-type parameters
	ProcessingInstanceType string
	TrainingInstanceType   string

	Hyperparameters map[string]string
}

func (c Config) PipelineName() string {
	return c.ProjectName + "-pipeline"
}

func (c Config) ModelPackageGroup() string {
	return c.ProjectName + "-model-group"
}

func (c Config) s3(suffix string) string {
	return fmt.Sprintf("s3://%s/%s/%s", c.Bucket, c.ProjectName, suffix)
}

// DefaultProcessingImage is the scikit-learn processing container
// for the given region.
func DefaultProcessingImage(region string) string {
	return fmt.Sprintf("683313688378.dkr.ecr.%s.amazonaws.com/sagemaker-scikit-learn:1.2-1-cpu-py3", region)
}

// DefaultTrainingImage is the XGBoost training container for the given region.
func DefaultTrainingImage(region string) string {
	return fmt.Sprintf("683313688378.dkr.ecr.%s.amazonaws.com/sagemaker-xgboost:1.5-1", region)
}

func DefaultHyperparameters() map[string]string {
	return map[string]string{
		"objective":        "binary:logistic",
		"num_round":        "100",
		"max_depth":        "5",
		"eta":              "0.2",
		"subsample":        "0.8",
		"colsample_bytree": "0.8",
	}
}

// paramRef refers to a pipeline parameter.
func paramRef(name string) map[string]any {
	return map[string]any{"Get": "Parameters." + name}
}

// stepRef refers to a property of an already-executed step.
func stepRef(path string) map[string]any {
	return map[string]any{"Get": "Steps." + path}
}

// outputRef refers to the S3 location of a named processing output.
func outputRef(step, output string) map[string]any {
	return stepRef(fmt.Sprintf("%s.ProcessingOutputConfig.Outputs['%s'].S3Output.S3Uri", step, output))
}

// jsonGet reads a value out of a property file at execution time.
func jsonGet(step, propertyFile, path string) map[string]any {
	return map[string]any{
		"Std:JsonGet": map[string]any{
			"PropertyFile": stepRef(step + ".PropertyFiles." + propertyFile),
			"Path":         path,
		},
	}
}

// join concatenates values with a separator at execution time.
func join(on string, values ...any) map[string]any {
	return map[string]any{
		"Std:Join": map[string]any{"On": on, "Values": values},
	}
}

// Build assembles the four-step document:
// preprocess -> train -> evaluate -> (condition) register.
func Build(c Config) Definition {
	hyperparameters := c.Hyperparameters
	if hyperparameters == nil {
		hyperparameters = DefaultHyperparameters()
	}

	return Definition{
		Version:  SchemaVersion,
		Metadata: Metadata{},
		Parameters: []Parameter{
			{Name: ParamProcessingInstanceType, Type: "String", DefaultValue: c.ProcessingInstanceType},
			{Name: ParamTrainingInstanceType, Type: "String", DefaultValue: c.TrainingInstanceType},
			{Name: ParamModelApprovalStatus, Type: "String", DefaultValue: "PendingManualApproval"},
			{Name: ParamInputData, Type: "String", DefaultValue: c.s3("input/data.csv")},
		},
		Steps: []Step{
			c.preprocessStep(),
			c.trainStep(hyperparameters),
			c.evaluateStep(),
			c.conditionStep(),
		},
	}
}

// Marshal serializes the document for CreatePipeline / UpdatePipeline.
func (d Definition) Marshal() (string, error) {
	buf, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

func (c Config) preprocessStep() Step {
	return Step{
		Name: StepPreprocess,
		Type: "Processing",
		Arguments: map[string]any{
			"ProcessingResources": map[string]any{
				"ClusterConfig": map[string]any{
					"InstanceType":   paramRef(ParamProcessingInstanceType),
					"InstanceCount":  1,
					"VolumeSizeInGB": 30,
				},
			},
			"AppSpecification": map[string]any{
				"ImageUri":            c.ProcessingImage,
				"ContainerEntrypoint": []any{"python3", "/opt/ml/processing/input/code/preprocess.py"},
			},
			"RoleArn": c.RoleArn,
			"ProcessingInputs": []any{
				map[string]any{
					"InputName": "input",
					"S3Input": map[string]any{
						"S3Uri":       paramRef(ParamInputData),
						"LocalPath":   "/opt/ml/processing/input",
						"S3DataType":  "S3Prefix",
						"S3InputMode": "File",
					},
				},
				codeInput(c.s3("code/preprocess.py")),
			},
			"ProcessingOutputConfig": map[string]any{
				"Outputs": []any{
					processingOutput("train", "/opt/ml/processing/train", c.s3("train")),
					processingOutput("validation", "/opt/ml/processing/validation", c.s3("validation")),
					processingOutput("test", "/opt/ml/processing/test", c.s3("test")),
				},
			},
		},
	}
}

func (c Config) trainStep(hyperparameters map[string]string) Step {
	return Step{
		Name: StepTrain,
		Type: "Training",
		Arguments: map[string]any{
			"AlgorithmSpecification": map[string]any{
				"TrainingImage":     c.TrainingImage,
				"TrainingInputMode": "File",
			},
			"OutputDataConfig": map[string]any{
				"S3OutputPath": c.s3("models"),
			},
			"ResourceConfig": map[string]any{
				"InstanceType":   paramRef(ParamTrainingInstanceType),
				"InstanceCount":  1,
				"VolumeSizeInGB": 30,
			},
			"RoleArn": c.RoleArn,
			"StoppingCondition": map[string]any{
				"MaxRuntimeInSeconds": 86400,
			},
			"HyperParameters": hyperparameters,
			"InputDataConfig": []any{
				trainingChannel("train", outputRef(StepPreprocess, "train")),
				trainingChannel("validation", outputRef(StepPreprocess, "validation")),
			},
		},
	}
}

func (c Config) evaluateStep() Step {
	return Step{
		Name: StepEvaluate,
		Type: "Processing",
		Arguments: map[string]any{
			"ProcessingResources": map[string]any{
				"ClusterConfig": map[string]any{
					"InstanceType":   paramRef(ParamProcessingInstanceType),
					"InstanceCount":  1,
					"VolumeSizeInGB": 30,
				},
			},
			"AppSpecification": map[string]any{
				"ImageUri":            c.ProcessingImage,
				"ContainerEntrypoint": []any{"python3", "/opt/ml/processing/input/code/evaluate.py"},
			},
			"RoleArn": c.RoleArn,
			"ProcessingInputs": []any{
				map[string]any{
					"InputName": "model",
					"S3Input": map[string]any{
						"S3Uri":       stepRef(StepTrain + ".ModelArtifacts.S3ModelArtifacts"),
						"LocalPath":   "/opt/ml/processing/model",
						"S3DataType":  "S3Prefix",
						"S3InputMode": "File",
					},
				},
				map[string]any{
					"InputName": "test",
					"S3Input": map[string]any{
						"S3Uri":       outputRef(StepPreprocess, "test"),
						"LocalPath":   "/opt/ml/processing/test",
						"S3DataType":  "S3Prefix",
						"S3InputMode": "File",
					},
				},
				codeInput(c.s3("code/evaluate.py")),
			},
			"ProcessingOutputConfig": map[string]any{
				"Outputs": []any{
					processingOutput("evaluation", "/opt/ml/processing/evaluation", c.s3("evaluation")),
				},
			},
		},
		PropertyFiles: []PropertyFile{
			{
				PropertyFileName: evaluationReportName,
				OutputName:       "evaluation",
				FilePath:         EvaluationReportFile,
			},
		},
	}
}

func (c Config) conditionStep() Step {
	return Step{
		Name: StepCondition,
		Type: "Condition",
		Arguments: map[string]any{
			"Conditions": []any{
				map[string]any{
					"Type":       "GreaterThanOrEqualTo",
					"LeftValue":  jsonGet(StepEvaluate, evaluationReportName, accuracyPath),
					"RightValue": c.AccuracyThreshold,
				},
			},
			"IfSteps":   []any{c.registerStep()},
			"ElseSteps": []any{},
		},
	}
}

func (c Config) registerStep() Step {
	return Step{
		Name: StepRegister,
		Type: "RegisterModel",
		Arguments: map[string]any{
			"ModelPackageGroupName": c.ModelPackageGroup(),
			"ModelApprovalStatus":   paramRef(ParamModelApprovalStatus),
			"InferenceSpecification": map[string]any{
				"Containers": []any{
					map[string]any{
						"Image":        c.TrainingImage,
						"ModelDataUrl": stepRef(StepTrain + ".ModelArtifacts.S3ModelArtifacts"),
					},
				},
				"SupportedContentTypes":                   []any{"text/csv"},
				"SupportedResponseMIMETypes":              []any{"text/csv"},
				"SupportedRealtimeInferenceInstanceTypes": []any{"ml.t2.medium", "ml.m5.xlarge"},
				"SupportedTransformInstanceTypes":         []any{"ml.m5.xlarge"},
			},
			"ModelMetrics": map[string]any{
				"ModelQuality": map[string]any{
					"Statistics": map[string]any{
						"ContentType": "application/json",
						"S3Uri": join("/",
							outputRef(StepEvaluate, "evaluation"),
							EvaluationReportFile,
						),
					},
				},
			},
		},
	}
}

func codeInput(s3uri string) map[string]any {
	return map[string]any{
		"InputName": "code",
		"S3Input": map[string]any{
			"S3Uri":       s3uri,
			"LocalPath":   "/opt/ml/processing/input/code",
			"S3DataType":  "S3Prefix",
			"S3InputMode": "File",
		},
	}
}

func processingOutput(name, localPath, s3uri string) map[string]any {
	return map[string]any{
		"OutputName": name,
		"S3Output": map[string]any{
			"S3Uri":        s3uri,
			"LocalPath":    localPath,
			"S3UploadMode": "EndOfJob",
		},
	}
}

func trainingChannel(name string, s3uri any) map[string]any {
	return map[string]any{
		"ChannelName": name,
		"ContentType": "text/csv",
		"DataSource": map[string]any{
			"S3DataSource": map[string]any{
				"S3DataType": "S3Prefix",
				"S3Uri":      s3uri,
			},
		},
	}
}
