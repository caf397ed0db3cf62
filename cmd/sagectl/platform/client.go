package platform

import (
	"context"
	"io"
)

// Client is the CLI's view of the managed ML platform.
//
// Every method is a thin wrapper over one (or two, for upserts) remote
// calls. All state lives on the platform; methods return snapshots.
type Client interface {
	// Account returns the AWS account id of the caller.
	Account(ctx context.Context) (string, error)

	// UpsertPipeline creates the pipeline, or updates it when a pipeline
	// with the same name already exists.
	//
	// Returns the pipeline ARN.
	UpsertPipeline(ctx context.Context, name, roleArn, definition string) (string, error)

	// StartExecution starts an execution of the named pipeline.
	//
	// Returns the execution ARN.
	StartExecution(ctx context.Context, pipelineName, displayName string) (string, error)

	// GetExecution returns the current status of a pipeline execution.
	GetExecution(ctx context.Context, executionArn string) (Execution, error)

	// GetExecutionSteps lists the steps of a pipeline execution with
	// their job metadata.
	GetExecutionSteps(ctx context.Context, executionArn string) ([]StepSummary, error)

	// GetModelPackage returns a registry entry.
	GetModelPackage(ctx context.Context, arn string) (ModelPackage, error)

	// LatestModelPackage returns the ARN of the newest model package in
	// the group with the given approval status.
	//
	// Returns ErrNotFound when the group has no such package.
	LatestModelPackage(ctx context.Context, group string, status ApprovalStatus) (string, error)

	// SetModelApproval transitions a model package's approval status.
	SetModelApproval(ctx context.Context, arn string, status ApprovalStatus, description string) error

	// CreateModel creates a deployable model from a registered package.
	CreateModel(ctx context.Context, name, modelPackageArn, roleArn string) error

	// CreateEndpointConfig creates an endpoint configuration.
	CreateEndpointConfig(ctx context.Context, cfg EndpointConfig) error

	// GetEndpoint returns the current state of an endpoint.
	//
	// Returns ErrNotFound when no endpoint has that name.
	GetEndpoint(ctx context.Context, name string) (Endpoint, error)

	CreateEndpoint(ctx context.Context, name, configName string) error

	UpdateEndpoint(ctx context.Context, name, configName string) error

	// EnableAutoscaling registers the endpoint variant as a scalable
	// target and attaches a target-tracking policy to it.
	EnableAutoscaling(ctx context.Context, policy AutoscalingPolicy) error

	// MonitoringScheduleExists reports whether a schedule with the name
	// is already registered.
	MonitoringScheduleExists(ctx context.Context, name string) (bool, error)

	CreateMonitoringSchedule(ctx context.Context, schedule MonitoringSchedule) error

	// Invoke sends one payload to a live endpoint and returns the raw
	// response body.
	Invoke(ctx context.Context, endpointName, contentType string, payload []byte) ([]byte, error)

	// FetchObject streams the object at an s3:// uri to handler.
	// If handler returns an error, it is returned as is.
	FetchObject(ctx context.Context, s3uri string, handler func(io.Reader) error) error
}
