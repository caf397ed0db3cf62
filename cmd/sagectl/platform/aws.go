package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/applicationautoscaling"
	astypes "github.com/aws/aws-sdk-go-v2/service/applicationautoscaling/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	smtypes "github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/aws/aws-sdk-go-v2/service/sagemakerruntime"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"

	"github.com/mlopshq/sagectl/cmd/sagectl/config/profiles"
)

// Narrow views of the AWS service clients, one per concern, so tests can
// substitute plain funcs for the real clients.

type sageMakerAPI interface {
	CreatePipeline(context.Context, *sagemaker.CreatePipelineInput, ...func(*sagemaker.Options)) (*sagemaker.CreatePipelineOutput, error)
	UpdatePipeline(context.Context, *sagemaker.UpdatePipelineInput, ...func(*sagemaker.Options)) (*sagemaker.UpdatePipelineOutput, error)
	DescribePipeline(context.Context, *sagemaker.DescribePipelineInput, ...func(*sagemaker.Options)) (*sagemaker.DescribePipelineOutput, error)
	StartPipelineExecution(context.Context, *sagemaker.StartPipelineExecutionInput, ...func(*sagemaker.Options)) (*sagemaker.StartPipelineExecutionOutput, error)
	DescribePipelineExecution(context.Context, *sagemaker.DescribePipelineExecutionInput, ...func(*sagemaker.Options)) (*sagemaker.DescribePipelineExecutionOutput, error)
	ListPipelineExecutionSteps(context.Context, *sagemaker.ListPipelineExecutionStepsInput, ...func(*sagemaker.Options)) (*sagemaker.ListPipelineExecutionStepsOutput, error)
	DescribeModelPackage(context.Context, *sagemaker.DescribeModelPackageInput, ...func(*sagemaker.Options)) (*sagemaker.DescribeModelPackageOutput, error)
	ListModelPackages(context.Context, *sagemaker.ListModelPackagesInput, ...func(*sagemaker.Options)) (*sagemaker.ListModelPackagesOutput, error)
	UpdateModelPackage(context.Context, *sagemaker.UpdateModelPackageInput, ...func(*sagemaker.Options)) (*sagemaker.UpdateModelPackageOutput, error)
	CreateModel(context.Context, *sagemaker.CreateModelInput, ...func(*sagemaker.Options)) (*sagemaker.CreateModelOutput, error)
	CreateEndpointConfig(context.Context, *sagemaker.CreateEndpointConfigInput, ...func(*sagemaker.Options)) (*sagemaker.CreateEndpointConfigOutput, error)
	CreateEndpoint(context.Context, *sagemaker.CreateEndpointInput, ...func(*sagemaker.Options)) (*sagemaker.CreateEndpointOutput, error)
	UpdateEndpoint(context.Context, *sagemaker.UpdateEndpointInput, ...func(*sagemaker.Options)) (*sagemaker.UpdateEndpointOutput, error)
	DescribeEndpoint(context.Context, *sagemaker.DescribeEndpointInput, ...func(*sagemaker.Options)) (*sagemaker.DescribeEndpointOutput, error)
	CreateMonitoringSchedule(context.Context, *sagemaker.CreateMonitoringScheduleInput, ...func(*sagemaker.Options)) (*sagemaker.CreateMonitoringScheduleOutput, error)
	DescribeMonitoringSchedule(context.Context, *sagemaker.DescribeMonitoringScheduleInput, ...func(*sagemaker.Options)) (*sagemaker.DescribeMonitoringScheduleOutput, error)
}

type runtimeAPI interface {
	InvokeEndpoint(context.Context, *sagemakerruntime.InvokeEndpointInput, ...func(*sagemakerruntime.Options)) (*sagemakerruntime.InvokeEndpointOutput, error)
}

type autoscalingAPI interface {
	RegisterScalableTarget(context.Context, *applicationautoscaling.RegisterScalableTargetInput, ...func(*applicationautoscaling.Options)) (*applicationautoscaling.RegisterScalableTargetOutput, error)
	PutScalingPolicy(context.Context, *applicationautoscaling.PutScalingPolicyInput, ...func(*applicationautoscaling.Options)) (*applicationautoscaling.PutScalingPolicyOutput, error)
}

type objectStoreAPI interface {
	GetObject(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type identityAPI interface {
	GetCallerIdentity(context.Context, *sts.GetCallerIdentityInput, ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

type client struct {
	sm      sageMakerAPI
	runtime runtimeAPI
	scaling autoscalingAPI
	objects objectStoreAPI
	caller  identityAPI

	// caller account id, resolved once
	account string
}

var _ Client = &client{}

// NewClient builds a Client for the platform deployment the profile
// points at. Credentials come from the usual AWS sources.
func NewClient(ctx context.Context, prof *profiles.Profile) (Client, error) {
	if err := prof.Verify(); err != nil {
		return nil, err
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(prof.Region))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load AWS configuration", err)
	}

	return &client{
		sm:      sagemaker.NewFromConfig(cfg),
		runtime: sagemakerruntime.NewFromConfig(cfg),
		scaling: applicationautoscaling.NewFromConfig(cfg),
		objects: s3.NewFromConfig(cfg),
		caller:  sts.NewFromConfig(cfg),
	}, nil
}

// isNotFound tells a "no such resource" failure apart from other API
// errors. SageMaker reports missing endpoints as ValidationException,
// not as ResourceNotFound.
func isNotFound(err error) bool {
	var nf *smtypes.ResourceNotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) &&
		apiErr.ErrorCode() == "ValidationException" &&
		strings.Contains(apiErr.ErrorMessage(), "Could not find") {
		return true
	}
	return false
}

func (c *client) Account(ctx context.Context) (string, error) {
	if c.account != "" {
		return c.account, nil
	}
	out, err := c.caller.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", err
	}
	c.account = aws.ToString(out.Account)
	return c.account, nil
}

func (c *client) UpsertPipeline(ctx context.Context, name, roleArn, definition string) (string, error) {
	_, err := c.sm.DescribePipeline(ctx, &sagemaker.DescribePipelineInput{
		PipelineName: aws.String(name),
	})
	if err != nil {
		if !isNotFound(err) {
			return "", err
		}
		created, err := c.sm.CreatePipeline(ctx, &sagemaker.CreatePipelineInput{
			PipelineName:       aws.String(name),
			PipelineDefinition: aws.String(definition),
			RoleArn:            aws.String(roleArn),
		})
		if err != nil {
			return "", err
		}
		return aws.ToString(created.PipelineArn), nil
	}

	updated, err := c.sm.UpdatePipeline(ctx, &sagemaker.UpdatePipelineInput{
		PipelineName:       aws.String(name),
		PipelineDefinition: aws.String(definition),
		RoleArn:            aws.String(roleArn),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(updated.PipelineArn), nil
}

func (c *client) StartExecution(ctx context.Context, pipelineName, displayName string) (string, error) {
	out, err := c.sm.StartPipelineExecution(ctx, &sagemaker.StartPipelineExecutionInput{
		PipelineName:                 aws.String(pipelineName),
		PipelineExecutionDisplayName: aws.String(displayName),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.PipelineExecutionArn), nil
}

func (c *client) GetExecution(ctx context.Context, executionArn string) (Execution, error) {
	out, err := c.sm.DescribePipelineExecution(ctx, &sagemaker.DescribePipelineExecutionInput{
		PipelineExecutionArn: aws.String(executionArn),
	})
	if err != nil {
		return Execution{}, err
	}
	return Execution{
		Arn:           executionArn,
		Status:        ExecutionStatus(out.PipelineExecutionStatus),
		FailureReason: aws.ToString(out.FailureReason),
	}, nil
}

func (c *client) GetExecutionSteps(ctx context.Context, executionArn string) ([]StepSummary, error) {
	out, err := c.sm.ListPipelineExecutionSteps(ctx, &sagemaker.ListPipelineExecutionStepsInput{
		PipelineExecutionArn: aws.String(executionArn),
		SortOrder:            smtypes.SortOrderAscending,
	})
	if err != nil {
		return nil, err
	}

	steps := make([]StepSummary, 0, len(out.PipelineExecutionSteps))
	for _, s := range out.PipelineExecutionSteps {
		summary := StepSummary{
			Name:          aws.ToString(s.StepName),
			Status:        StepStatus(s.StepStatus),
			FailureReason: aws.ToString(s.FailureReason),
		}
		if meta := s.Metadata; meta != nil {
			if meta.RegisterModel != nil {
				summary.ModelPackageArn = aws.ToString(meta.RegisterModel.Arn)
			}
			if meta.ProcessingJob != nil {
				summary.ProcessingJobArn = aws.ToString(meta.ProcessingJob.Arn)
			}
			if meta.TrainingJob != nil {
				summary.TrainingJobArn = aws.ToString(meta.TrainingJob.Arn)
			}
		}
		steps = append(steps, summary)
	}
	return steps, nil
}

func (c *client) GetModelPackage(ctx context.Context, arn string) (ModelPackage, error) {
	out, err := c.sm.DescribeModelPackage(ctx, &sagemaker.DescribeModelPackageInput{
		ModelPackageName: aws.String(arn),
	})
	if err != nil {
		return ModelPackage{}, err
	}

	pkg := ModelPackage{
		Arn:            aws.ToString(out.ModelPackageArn),
		ApprovalStatus: ApprovalStatus(out.ModelApprovalStatus),
	}
	if m := out.ModelMetrics; m != nil && m.ModelQuality != nil && m.ModelQuality.Statistics != nil {
		pkg.MetricsS3Uri = aws.ToString(m.ModelQuality.Statistics.S3Uri)
	}
	return pkg, nil
}

func (c *client) LatestModelPackage(ctx context.Context, group string, status ApprovalStatus) (string, error) {
	out, err := c.sm.ListModelPackages(ctx, &sagemaker.ListModelPackagesInput{
		ModelPackageGroupName: aws.String(group),
		ModelApprovalStatus:   smtypes.ModelApprovalStatus(status),
		SortBy:                smtypes.ModelPackageSortByCreationTime,
		SortOrder:             smtypes.SortOrderDescending,
		MaxResults:            aws.Int32(1),
	})
	if err != nil {
		return "", err
	}
	if len(out.ModelPackageSummaryList) == 0 {
		return "", fmt.Errorf("%w: no %s models in %s", ErrNotFound, status, group)
	}
	return aws.ToString(out.ModelPackageSummaryList[0].ModelPackageArn), nil
}

func (c *client) SetModelApproval(ctx context.Context, arn string, status ApprovalStatus, description string) error {
	_, err := c.sm.UpdateModelPackage(ctx, &sagemaker.UpdateModelPackageInput{
		ModelPackageArn:     aws.String(arn),
		ModelApprovalStatus: smtypes.ModelApprovalStatus(status),
		ApprovalDescription: aws.String(description),
	})
	return err
}

func (c *client) CreateModel(ctx context.Context, name, modelPackageArn, roleArn string) error {
	_, err := c.sm.CreateModel(ctx, &sagemaker.CreateModelInput{
		ModelName: aws.String(name),
		Containers: []smtypes.ContainerDefinition{
			{ModelPackageName: aws.String(modelPackageArn)},
		},
		ExecutionRoleArn: aws.String(roleArn),
	})
	return err
}

func (c *client) CreateEndpointConfig(ctx context.Context, cfg EndpointConfig) error {
	_, err := c.sm.CreateEndpointConfig(ctx, &sagemaker.CreateEndpointConfigInput{
		EndpointConfigName: aws.String(cfg.Name),
		ProductionVariants: []smtypes.ProductionVariant{
			{
				VariantName:          aws.String(cfg.VariantName),
				ModelName:            aws.String(cfg.ModelName),
				InstanceType:         smtypes.ProductionVariantInstanceType(cfg.InstanceType),
				InitialInstanceCount: aws.Int32(cfg.InstanceCount),
				InitialVariantWeight: aws.Float32(1.0),
			},
		},
		DataCaptureConfig: &smtypes.DataCaptureConfig{
			EnableCapture:             aws.Bool(true),
			InitialSamplingPercentage: aws.Int32(cfg.CaptureSampling),
			DestinationS3Uri:          aws.String(cfg.CaptureS3Uri),
			CaptureOptions: []smtypes.CaptureOption{
				{CaptureMode: smtypes.CaptureModeInput},
				{CaptureMode: smtypes.CaptureModeOutput},
			},
		},
	})
	return err
}

func (c *client) GetEndpoint(ctx context.Context, name string) (Endpoint, error) {
	out, err := c.sm.DescribeEndpoint(ctx, &sagemaker.DescribeEndpointInput{
		EndpointName: aws.String(name),
	})
	if err != nil {
		if isNotFound(err) {
			return Endpoint{}, fmt.Errorf("%w: endpoint %s", ErrNotFound, name)
		}
		return Endpoint{}, err
	}
	return Endpoint{
		Name:          aws.ToString(out.EndpointName),
		Status:        EndpointStatus(out.EndpointStatus),
		ConfigName:    aws.ToString(out.EndpointConfigName),
		FailureReason: aws.ToString(out.FailureReason),
	}, nil
}

func (c *client) CreateEndpoint(ctx context.Context, name, configName string) error {
	_, err := c.sm.CreateEndpoint(ctx, &sagemaker.CreateEndpointInput{
		EndpointName:       aws.String(name),
		EndpointConfigName: aws.String(configName),
	})
	return err
}

func (c *client) UpdateEndpoint(ctx context.Context, name, configName string) error {
	_, err := c.sm.UpdateEndpoint(ctx, &sagemaker.UpdateEndpointInput{
		EndpointName:       aws.String(name),
		EndpointConfigName: aws.String(configName),
	})
	return err
}

func (c *client) EnableAutoscaling(ctx context.Context, policy AutoscalingPolicy) error {
	resourceId := fmt.Sprintf("endpoint/%s/variant/%s", policy.EndpointName, policy.VariantName)

	_, err := c.scaling.RegisterScalableTarget(ctx, &applicationautoscaling.RegisterScalableTargetInput{
		ServiceNamespace:  astypes.ServiceNamespaceSagemaker,
		ResourceId:        aws.String(resourceId),
		ScalableDimension: astypes.ScalableDimensionSageMakerVariantDesiredInstanceCount,
		MinCapacity:       aws.Int32(policy.MinCapacity),
		MaxCapacity:       aws.Int32(policy.MaxCapacity),
	})
	if err != nil {
		return err
	}

	_, err = c.scaling.PutScalingPolicy(ctx, &applicationautoscaling.PutScalingPolicyInput{
		PolicyName:        aws.String(policy.EndpointName + "-scaling-policy"),
		ServiceNamespace:  astypes.ServiceNamespaceSagemaker,
		ResourceId:        aws.String(resourceId),
		ScalableDimension: astypes.ScalableDimensionSageMakerVariantDesiredInstanceCount,
		PolicyType:        astypes.PolicyTypeTargetTrackingScaling,
		TargetTrackingScalingPolicyConfiguration: &astypes.TargetTrackingScalingPolicyConfiguration{
			TargetValue: aws.Float64(policy.TargetInvocationsPerInstance),
			PredefinedMetricSpecification: &astypes.PredefinedMetricSpecification{
				PredefinedMetricType: astypes.MetricTypeSageMakerVariantInvocationsPerInstance,
			},
			ScaleInCooldown:  aws.Int32(policy.ScaleInCooldown),
			ScaleOutCooldown: aws.Int32(policy.ScaleOutCooldown),
		},
	})
	return err
}

func (c *client) MonitoringScheduleExists(ctx context.Context, name string) (bool, error) {
	_, err := c.sm.DescribeMonitoringSchedule(ctx, &sagemaker.DescribeMonitoringScheduleInput{
		MonitoringScheduleName: aws.String(name),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *client) CreateMonitoringSchedule(ctx context.Context, schedule MonitoringSchedule) error {
	_, err := c.sm.CreateMonitoringSchedule(ctx, &sagemaker.CreateMonitoringScheduleInput{
		MonitoringScheduleName: aws.String(schedule.Name),
		MonitoringScheduleConfig: &smtypes.MonitoringScheduleConfig{
			ScheduleConfig: &smtypes.ScheduleConfig{
				ScheduleExpression: aws.String(schedule.ScheduleExpression),
			},
			MonitoringJobDefinition: &smtypes.MonitoringJobDefinition{
				MonitoringInputs: []smtypes.MonitoringInput{
					{
						EndpointInput: &smtypes.EndpointInput{
							EndpointName: aws.String(schedule.EndpointName),
							LocalPath:    aws.String("/opt/ml/processing/input/endpoint"),
						},
					},
				},
				MonitoringOutputConfig: &smtypes.MonitoringOutputConfig{
					MonitoringOutputs: []smtypes.MonitoringOutput{
						{
							S3Output: &smtypes.MonitoringS3Output{
								S3Uri:     aws.String(schedule.OutputS3Uri),
								LocalPath: aws.String("/opt/ml/processing/output"),
							},
						},
					},
				},
				MonitoringResources: &smtypes.MonitoringResources{
					ClusterConfig: &smtypes.MonitoringClusterConfig{
						InstanceCount:  aws.Int32(schedule.InstanceCount),
						InstanceType:   smtypes.ProcessingInstanceType(schedule.InstanceType),
						VolumeSizeInGB: aws.Int32(schedule.VolumeSizeInGB),
					},
				},
				MonitoringAppSpecification: &smtypes.MonitoringAppSpecification{
					ImageUri: aws.String(schedule.ImageUri),
				},
				RoleArn:     aws.String(schedule.RoleArn),
				Environment: schedule.Environment,
			},
		},
	})
	return err
}

func (c *client) Invoke(ctx context.Context, endpointName, contentType string, payload []byte) ([]byte, error) {
	out, err := c.runtime.InvokeEndpoint(ctx, &sagemakerruntime.InvokeEndpointInput{
		EndpointName: aws.String(endpointName),
		ContentType:  aws.String(contentType),
		Body:         payload,
	})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

func (c *client) FetchObject(ctx context.Context, s3uri string, handler func(io.Reader) error) error {
	bucket, key, err := ParseS3URI(s3uri)
	if err != nil {
		return err
	}

	out, err := c.objects.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return err
	}
	defer out.Body.Close()

	return handler(out.Body)
}
