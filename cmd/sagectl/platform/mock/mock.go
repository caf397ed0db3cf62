package mock

import (
	"context"
	"io"
	"testing"

	"github.com/mlopshq/sagectl/cmd/sagectl/platform"
)

type UpsertPipelineArgs struct {
	Name       string
	RoleArn    string
	Definition string
}

type StartExecutionArgs struct {
	PipelineName string
	DisplayName  string
}

type LatestModelPackageArgs struct {
	Group  string
	Status platform.ApprovalStatus
}

type SetModelApprovalArgs struct {
	Arn         string
	Status      platform.ApprovalStatus
	Description string
}

type CreateModelArgs struct {
	Name            string
	ModelPackageArn string
	RoleArn         string
}

type EndpointArgs struct {
	Name       string
	ConfigName string
}

type InvokeArgs struct {
	EndpointName string
	ContentType  string
	Payload      []byte
}

func New(t *testing.T) *mockClient {
	return &mockClient{t: t}
}

type mockClient struct {
	t    *testing.T
	Impl struct {
		Account                  func(ctx context.Context) (string, error)
		UpsertPipeline           func(ctx context.Context, name, roleArn, definition string) (string, error)
		StartExecution           func(ctx context.Context, pipelineName, displayName string) (string, error)
		GetExecution             func(ctx context.Context, executionArn string) (platform.Execution, error)
		GetExecutionSteps        func(ctx context.Context, executionArn string) ([]platform.StepSummary, error)
		GetModelPackage          func(ctx context.Context, arn string) (platform.ModelPackage, error)
		LatestModelPackage       func(ctx context.Context, group string, status platform.ApprovalStatus) (string, error)
		SetModelApproval         func(ctx context.Context, arn string, status platform.ApprovalStatus, description string) error
		CreateModel              func(ctx context.Context, name, modelPackageArn, roleArn string) error
		CreateEndpointConfig     func(ctx context.Context, cfg platform.EndpointConfig) error
		GetEndpoint              func(ctx context.Context, name string) (platform.Endpoint, error)
		CreateEndpoint           func(ctx context.Context, name, configName string) error
		UpdateEndpoint           func(ctx context.Context, name, configName string) error
		EnableAutoscaling        func(ctx context.Context, policy platform.AutoscalingPolicy) error
		MonitoringScheduleExists func(ctx context.Context, name string) (bool, error)
		CreateMonitoringSchedule func(ctx context.Context, schedule platform.MonitoringSchedule) error
		Invoke                   func(ctx context.Context, endpointName, contentType string, payload []byte) ([]byte, error)
		FetchObject              func(ctx context.Context, s3uri string, handler func(io.Reader) error) error
	}
	Calls struct {
		Account                  int
		UpsertPipeline           []UpsertPipelineArgs
		StartExecution           []StartExecutionArgs
		GetExecution             []string
		GetExecutionSteps        []string
		GetModelPackage          []string
		LatestModelPackage       []LatestModelPackageArgs
		SetModelApproval         []SetModelApprovalArgs
		CreateModel              []CreateModelArgs
		CreateEndpointConfig     []platform.EndpointConfig
		GetEndpoint              []string
		CreateEndpoint           []EndpointArgs
		UpdateEndpoint           []EndpointArgs
		EnableAutoscaling        []platform.AutoscalingPolicy
		MonitoringScheduleExists []string
		CreateMonitoringSchedule []platform.MonitoringSchedule
		Invoke                   []InvokeArgs
		FetchObject              []string
	}
}

var _ platform.Client = &mockClient{}

func (m *mockClient) Account(ctx context.Context) (string, error) {
	m.t.Helper()

	m.Calls.Account += 1
	if m.Impl.Account == nil {
		m.t.Fatal("Account is not ready to be called")
	}
	return m.Impl.Account(ctx)
}

func (m *mockClient) UpsertPipeline(ctx context.Context, name, roleArn, definition string) (string, error) {
	m.t.Helper()

	m.Calls.UpsertPipeline = append(m.Calls.UpsertPipeline, UpsertPipelineArgs{
		Name: name, RoleArn: roleArn, Definition: definition,
	})
	if m.Impl.UpsertPipeline == nil {
		m.t.Fatal("UpsertPipeline is not ready to be called")
	}
	return m.Impl.UpsertPipeline(ctx, name, roleArn, definition)
}

func (m *mockClient) StartExecution(ctx context.Context, pipelineName, displayName string) (string, error) {
	m.t.Helper()

	m.Calls.StartExecution = append(m.Calls.StartExecution, StartExecutionArgs{
		PipelineName: pipelineName, DisplayName: displayName,
	})
	if m.Impl.StartExecution == nil {
		m.t.Fatal("StartExecution is not ready to be called")
	}
	return m.Impl.StartExecution(ctx, pipelineName, displayName)
}

func (m *mockClient) GetExecution(ctx context.Context, executionArn string) (platform.Execution, error) {
	m.t.Helper()

	m.Calls.GetExecution = append(m.Calls.GetExecution, executionArn)
	if m.Impl.GetExecution == nil {
		m.t.Fatal("GetExecution is not ready to be called")
	}
	return m.Impl.GetExecution(ctx, executionArn)
}

func (m *mockClient) GetExecutionSteps(ctx context.Context, executionArn string) ([]platform.StepSummary, error) {
	m.t.Helper()

	m.Calls.GetExecutionSteps = append(m.Calls.GetExecutionSteps, executionArn)
	if m.Impl.GetExecutionSteps == nil {
		m.t.Fatal("GetExecutionSteps is not ready to be called")
	}
	return m.Impl.GetExecutionSteps(ctx, executionArn)
}

func (m *mockClient) GetModelPackage(ctx context.Context, arn string) (platform.ModelPackage, error) {
	m.t.Helper()

	m.Calls.GetModelPackage = append(m.Calls.GetModelPackage, arn)
	if m.Impl.GetModelPackage == nil {
		m.t.Fatal("GetModelPackage is not ready to be called")
	}
	return m.Impl.GetModelPackage(ctx, arn)
}

func (m *mockClient) LatestModelPackage(ctx context.Context, group string, status platform.ApprovalStatus) (string, error) {
	m.t.Helper()

	m.Calls.LatestModelPackage = append(m.Calls.LatestModelPackage, LatestModelPackageArgs{
		Group: group, Status: status,
	})
	if m.Impl.LatestModelPackage == nil {
		m.t.Fatal("LatestModelPackage is not ready to be called")
	}
	return m.Impl.LatestModelPackage(ctx, group, status)
}

func (m *mockClient) SetModelApproval(ctx context.Context, arn string, status platform.ApprovalStatus, description string) error {
	m.t.Helper()

	m.Calls.SetModelApproval = append(m.Calls.SetModelApproval, SetModelApprovalArgs{
		Arn: arn, Status: status, Description: description,
	})
	if m.Impl.SetModelApproval == nil {
		m.t.Fatal("SetModelApproval is not ready to be called")
	}
	return m.Impl.SetModelApproval(ctx, arn, status, description)
}

func (m *mockClient) CreateModel(ctx context.Context, name, modelPackageArn, roleArn string) error {
	m.t.Helper()

	m.Calls.CreateModel = append(m.Calls.CreateModel, CreateModelArgs{
		Name: name, ModelPackageArn: modelPackageArn, RoleArn: roleArn,
	})
	if m.Impl.CreateModel == nil {
		m.t.Fatal("CreateModel is not ready to be called")
	}
	return m.Impl.CreateModel(ctx, name, modelPackageArn, roleArn)
}

func (m *mockClient) CreateEndpointConfig(ctx context.Context, cfg platform.EndpointConfig) error {
	m.t.Helper()

	m.Calls.CreateEndpointConfig = append(m.Calls.CreateEndpointConfig, cfg)
	if m.Impl.CreateEndpointConfig == nil {
		m.t.Fatal("CreateEndpointConfig is not ready to be called")
	}
	return m.Impl.CreateEndpointConfig(ctx, cfg)
}

func (m *mockClient) GetEndpoint(ctx context.Context, name string) (platform.Endpoint, error) {
	m.t.Helper()

	m.Calls.GetEndpoint = append(m.Calls.GetEndpoint, name)
	if m.Impl.GetEndpoint == nil {
		m.t.Fatal("GetEndpoint is not ready to be called")
	}
	return m.Impl.GetEndpoint(ctx, name)
}

func (m *mockClient) CreateEndpoint(ctx context.Context, name, configName string) error {
	m.t.Helper()

	m.Calls.CreateEndpoint = append(m.Calls.CreateEndpoint, EndpointArgs{
		Name: name, ConfigName: configName,
	})
	if m.Impl.CreateEndpoint == nil {
		m.t.Fatal("CreateEndpoint is not ready to be called")
	}
	return m.Impl.CreateEndpoint(ctx, name, configName)
}

func (m *mockClient) UpdateEndpoint(ctx context.Context, name, configName string) error {
	m.t.Helper()

	m.Calls.UpdateEndpoint = append(m.Calls.UpdateEndpoint, EndpointArgs{
		Name: name, ConfigName: configName,
	})
	if m.Impl.UpdateEndpoint == nil {
		m.t.Fatal("UpdateEndpoint is not ready to be called")
	}
	return m.Impl.UpdateEndpoint(ctx, name, configName)
}

func (m *mockClient) EnableAutoscaling(ctx context.Context, policy platform.AutoscalingPolicy) error {
	m.t.Helper()

	m.Calls.EnableAutoscaling = append(m.Calls.EnableAutoscaling, policy)
	if m.Impl.EnableAutoscaling == nil {
		m.t.Fatal("EnableAutoscaling is not ready to be called")
	}
	return m.Impl.EnableAutoscaling(ctx, policy)
}

func (m *mockClient) MonitoringScheduleExists(ctx context.Context, name string) (bool, error) {
	m.t.Helper()

	m.Calls.MonitoringScheduleExists = append(m.Calls.MonitoringScheduleExists, name)
	if m.Impl.MonitoringScheduleExists == nil {
		m.t.Fatal("MonitoringScheduleExists is not ready to be called")
	}
	return m.Impl.MonitoringScheduleExists(ctx, name)
}

func (m *mockClient) CreateMonitoringSchedule(ctx context.Context, schedule platform.MonitoringSchedule) error {
	m.t.Helper()

	m.Calls.CreateMonitoringSchedule = append(m.Calls.CreateMonitoringSchedule, schedule)
	if m.Impl.CreateMonitoringSchedule == nil {
		m.t.Fatal("CreateMonitoringSchedule is not ready to be called")
	}
	return m.Impl.CreateMonitoringSchedule(ctx, schedule)
}

func (m *mockClient) Invoke(ctx context.Context, endpointName, contentType string, payload []byte) ([]byte, error) {
	m.t.Helper()

	m.Calls.Invoke = append(m.Calls.Invoke, InvokeArgs{
		EndpointName: endpointName, ContentType: contentType, Payload: payload,
	})
	if m.Impl.Invoke == nil {
		m.t.Fatal("Invoke is not ready to be called")
	}
	return m.Impl.Invoke(ctx, endpointName, contentType, payload)
}

func (m *mockClient) FetchObject(ctx context.Context, s3uri string, handler func(io.Reader) error) error {
	m.t.Helper()

	m.Calls.FetchObject = append(m.Calls.FetchObject, s3uri)
	if m.Impl.FetchObject == nil {
		m.t.Fatal("FetchObject is not ready to be called")
	}
	return m.Impl.FetchObject(ctx, s3uri, handler)
}
