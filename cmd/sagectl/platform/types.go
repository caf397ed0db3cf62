package platform

import (
	"errors"
	"fmt"
)

// DefaultBucket is the conventional artifact bucket for an account and
// region, matching the platform session default.
func DefaultBucket(region, account string) string {
	return fmt.Sprintf("sagemaker-%s-%s", region, account)
}

// ErrNotFound is returned when the platform does not know the named
// resource (pipeline, endpoint, schedule, model package).
var ErrNotFound = errors.New("not found on the platform")

// ExecutionStatus is a pipeline execution status as reported by the
// platform. The platform owns this state machine; the CLI only branches
// on the terminal values.
type ExecutionStatus string

const (
	ExecutionExecuting ExecutionStatus = "Executing"
	ExecutionStopping  ExecutionStatus = "Stopping"
	ExecutionStopped   ExecutionStatus = "Stopped"
	ExecutionFailed    ExecutionStatus = "Failed"
	ExecutionSucceeded ExecutionStatus = "Succeeded"
)

func (s ExecutionStatus) Terminal() bool {
	switch s {
	case ExecutionSucceeded, ExecutionFailed, ExecutionStopped:
		return true
	}
	return false
}

// Execution is a point-in-time view of a pipeline execution.
type Execution struct {
	Arn           string
	Status        ExecutionStatus
	FailureReason string
}

type StepStatus string

const (
	StepStarting  StepStatus = "Starting"
	StepExecuting StepStatus = "Executing"
	StepStopping  StepStatus = "Stopping"
	StepStopped   StepStatus = "Stopped"
	StepFailed    StepStatus = "Failed"
	StepSucceeded StepStatus = "Succeeded"
)

// StepSummary is one step of a pipeline execution, with the job metadata
// the results command mines for hand-off values.
type StepSummary struct {
	Name          string
	Status        StepStatus
	FailureReason string

	// ARN of the model package registered by a RegisterModel step
	ModelPackageArn string

	ProcessingJobArn string
	TrainingJobArn   string
}

type ApprovalStatus string

const (
	ApprovalApproved ApprovalStatus = "Approved"
	ApprovalRejected ApprovalStatus = "Rejected"
	ApprovalPending  ApprovalStatus = "PendingManualApproval"
)

// ModelPackage is a registry entry.
type ModelPackage struct {
	Arn            string
	ApprovalStatus ApprovalStatus

	// S3 location of the model-quality statistics report, when the
	// package was registered with metrics.
	MetricsS3Uri string
}

// EndpointStatus as reported by the platform.
type EndpointStatus string

const (
	EndpointOutOfService   EndpointStatus = "OutOfService"
	EndpointCreating       EndpointStatus = "Creating"
	EndpointUpdating       EndpointStatus = "Updating"
	EndpointSystemUpdating EndpointStatus = "SystemUpdating"
	EndpointRollingBack    EndpointStatus = "RollingBack"
	EndpointInService      EndpointStatus = "InService"
	EndpointDeleting       EndpointStatus = "Deleting"
	EndpointFailed         EndpointStatus = "Failed"
)

type Endpoint struct {
	Name          string
	Status        EndpointStatus
	ConfigName    string
	FailureReason string
}

// EndpointConfig describes the single-variant endpoint configuration the
// deploy command creates. Data capture is always on; the platform's
// monitoring jobs read the captured traffic.
type EndpointConfig struct {
	Name          string
	VariantName   string
	ModelName     string
	InstanceType  string
	InstanceCount int32

	CaptureS3Uri    string
	CaptureSampling int32
}

// AutoscalingPolicy is a target-tracking policy on endpoint invocations
// per instance. The platform runs the scaling; the CLI only registers
// the target and the policy.
type AutoscalingPolicy struct {
	EndpointName string
	VariantName  string

	MinCapacity int32
	MaxCapacity int32

	TargetInvocationsPerInstance float64
	ScaleInCooldown              int32
	ScaleOutCooldown             int32
}

// MonitoringSchedule describes a recurring model-monitoring job.
type MonitoringSchedule struct {
	Name               string
	EndpointName       string
	ScheduleExpression string
	OutputS3Uri        string
	ImageUri           string
	RoleArn            string

	InstanceType   string
	InstanceCount  int32
	VolumeSizeInGB int32

	Environment map[string]string
}
