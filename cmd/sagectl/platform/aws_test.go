package platform

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	smtypes "github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/aws/smithy-go"
)

// fakes override only the calls a test exercises; anything else panics
// through the nil embedded interface.

type fakeSageMaker struct {
	sageMakerAPI

	describePipeline func(context.Context, *sagemaker.DescribePipelineInput, ...func(*sagemaker.Options)) (*sagemaker.DescribePipelineOutput, error)
	createPipeline   func(context.Context, *sagemaker.CreatePipelineInput, ...func(*sagemaker.Options)) (*sagemaker.CreatePipelineOutput, error)
	updatePipeline   func(context.Context, *sagemaker.UpdatePipelineInput, ...func(*sagemaker.Options)) (*sagemaker.UpdatePipelineOutput, error)
	describeEndpoint func(context.Context, *sagemaker.DescribeEndpointInput, ...func(*sagemaker.Options)) (*sagemaker.DescribeEndpointOutput, error)
}

func (f *fakeSageMaker) DescribePipeline(ctx context.Context, in *sagemaker.DescribePipelineInput, opts ...func(*sagemaker.Options)) (*sagemaker.DescribePipelineOutput, error) {
	return f.describePipeline(ctx, in, opts...)
}

func (f *fakeSageMaker) CreatePipeline(ctx context.Context, in *sagemaker.CreatePipelineInput, opts ...func(*sagemaker.Options)) (*sagemaker.CreatePipelineOutput, error) {
	return f.createPipeline(ctx, in, opts...)
}

func (f *fakeSageMaker) UpdatePipeline(ctx context.Context, in *sagemaker.UpdatePipelineInput, opts ...func(*sagemaker.Options)) (*sagemaker.UpdatePipelineOutput, error) {
	return f.updatePipeline(ctx, in, opts...)
}

func (f *fakeSageMaker) DescribeEndpoint(ctx context.Context, in *sagemaker.DescribeEndpointInput, opts ...func(*sagemaker.Options)) (*sagemaker.DescribeEndpointOutput, error) {
	return f.describeEndpoint(ctx, in, opts...)
}

type fakeObjectStore func(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error)

func (f fakeObjectStore) GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return f(ctx, in, opts...)
}

type validationError struct{ message string }

func (e *validationError) Error() string       { return e.message }
func (e *validationError) ErrorCode() string   { return "ValidationException" }
func (e *validationError) ErrorMessage() string { return e.message }
func (e *validationError) ErrorFault() smithy.ErrorFault {
	return smithy.FaultClient
}

var _ smithy.APIError = &validationError{}

func TestUpsertPipeline_CreatesWhenMissing(t *testing.T) {
	created := false
	testee := &client{sm: &fakeSageMaker{
		describePipeline: func(_ context.Context, in *sagemaker.DescribePipelineInput, _ ...func(*sagemaker.Options)) (*sagemaker.DescribePipelineOutput, error) {
			return nil, &smtypes.ResourceNotFound{}
		},
		createPipeline: func(_ context.Context, in *sagemaker.CreatePipelineInput, _ ...func(*sagemaker.Options)) (*sagemaker.CreatePipelineOutput, error) {
			created = true
			if aws.ToString(in.PipelineName) != "churn-pipeline" {
				t.Errorf("unexpected pipeline name: %s", aws.ToString(in.PipelineName))
			}
			if aws.ToString(in.PipelineDefinition) != `{"Version":"2020-12-01"}` {
				t.Errorf("unexpected definition: %s", aws.ToString(in.PipelineDefinition))
			}
			return &sagemaker.CreatePipelineOutput{
				PipelineArn: aws.String("arn:aws:sagemaker:us-west-2:123456789012:pipeline/churn-pipeline"),
			}, nil
		},
	}}

	arn, err := testee.UpsertPipeline(
		context.Background(),
		"churn-pipeline",
		"arn:aws:iam::123456789012:role/r",
		`{"Version":"2020-12-01"}`,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Error("CreatePipeline was not called")
	}
	if arn != "arn:aws:sagemaker:us-west-2:123456789012:pipeline/churn-pipeline" {
		t.Errorf("unexpected arn: %s", arn)
	}
}

func TestUpsertPipeline_UpdatesWhenPresent(t *testing.T) {
	updated := false
	testee := &client{sm: &fakeSageMaker{
		describePipeline: func(_ context.Context, _ *sagemaker.DescribePipelineInput, _ ...func(*sagemaker.Options)) (*sagemaker.DescribePipelineOutput, error) {
			return &sagemaker.DescribePipelineOutput{}, nil
		},
		updatePipeline: func(_ context.Context, in *sagemaker.UpdatePipelineInput, _ ...func(*sagemaker.Options)) (*sagemaker.UpdatePipelineOutput, error) {
			updated = true
			return &sagemaker.UpdatePipelineOutput{
				PipelineArn: aws.String("arn:aws:sagemaker:us-west-2:123456789012:pipeline/churn-pipeline"),
			}, nil
		},
	}}

	if _, err := testee.UpsertPipeline(
		context.Background(), "churn-pipeline", "arn:aws:iam::123456789012:role/r", "{}",
	); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated {
		t.Error("UpdatePipeline was not called")
	}
}

func TestUpsertPipeline_PropagatesDescribeError(t *testing.T) {
	boom := errors.New("fake error")
	testee := &client{sm: &fakeSageMaker{
		describePipeline: func(_ context.Context, _ *sagemaker.DescribePipelineInput, _ ...func(*sagemaker.Options)) (*sagemaker.DescribePipelineOutput, error) {
			return nil, boom
		},
	}}

	if _, err := testee.UpsertPipeline(
		context.Background(), "p", "arn:aws:iam::123456789012:role/r", "{}",
	); !errors.Is(err, boom) {
		t.Errorf("expected %v, got %v", boom, err)
	}
}

func TestGetEndpoint_MapsMissingEndpointToErrNotFound(t *testing.T) {
	testee := &client{sm: &fakeSageMaker{
		describeEndpoint: func(_ context.Context, _ *sagemaker.DescribeEndpointInput, _ ...func(*sagemaker.Options)) (*sagemaker.DescribeEndpointOutput, error) {
			return nil, &validationError{message: `Could not find endpoint "arn:aws:sagemaker:us-west-2:123456789012:endpoint/fraud"`}
		},
	}}

	_, err := testee.GetEndpoint(context.Background(), "fraud")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetEndpoint_ReturnsSnapshot(t *testing.T) {
	testee := &client{sm: &fakeSageMaker{
		describeEndpoint: func(_ context.Context, in *sagemaker.DescribeEndpointInput, _ ...func(*sagemaker.Options)) (*sagemaker.DescribeEndpointOutput, error) {
			if aws.ToString(in.EndpointName) != "fraud" {
				t.Errorf("unexpected endpoint name: %s", aws.ToString(in.EndpointName))
			}
			return &sagemaker.DescribeEndpointOutput{
				EndpointName:       aws.String("fraud"),
				EndpointStatus:     smtypes.EndpointStatusInService,
				EndpointConfigName: aws.String("fraud-config-1"),
			}, nil
		},
	}}

	ep, err := testee.GetEndpoint(context.Background(), "fraud")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ep.Status != EndpointInService {
		t.Errorf("unexpected status: %s", ep.Status)
	}
	if ep.ConfigName != "fraud-config-1" {
		t.Errorf("unexpected config name: %s", ep.ConfigName)
	}
}

func TestFetchObject_StreamsBody(t *testing.T) {
	testee := &client{objects: fakeObjectStore(
		func(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
			if aws.ToString(in.Bucket) != "my-bucket" || aws.ToString(in.Key) != "churn/evaluation/evaluation.json" {
				t.Errorf(
					"unexpected object: s3://%s/%s",
					aws.ToString(in.Bucket), aws.ToString(in.Key),
				)
			}
			return &s3.GetObjectOutput{
				Body: io.NopCloser(strings.NewReader(`{"ok":true}`)),
			}, nil
		},
	)}

	var got string
	err := testee.FetchObject(
		context.Background(),
		"s3://my-bucket/churn/evaluation/evaluation.json",
		func(r io.Reader) error {
			buf, err := io.ReadAll(r)
			got = string(buf)
			return err
		},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"ok":true}` {
		t.Errorf("unexpected body: %s", got)
	}
}

func TestFetchObject_RejectsBrokenURI(t *testing.T) {
	testee := &client{}
	err := testee.FetchObject(
		context.Background(), "http://not-s3", func(io.Reader) error { return nil },
	)
	if err == nil {
		t.Error("expected an error for non-s3 uri")
	}
}
