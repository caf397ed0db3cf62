package apply_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mlopshq/sagectl/cmd/sagectl/config/profiles"
	"github.com/mlopshq/sagectl/cmd/sagectl/env"
	"github.com/mlopshq/sagectl/cmd/sagectl/handoff"
	"github.com/mlopshq/sagectl/cmd/sagectl/platform"
	"github.com/mlopshq/sagectl/cmd/sagectl/platform/mock"
	"github.com/mlopshq/sagectl/cmd/sagectl/subcommands/internal/commandline"
	"github.com/mlopshq/sagectl/cmd/sagectl/subcommands/logger"
	"github.com/mlopshq/sagectl/cmd/sagectl/subcommands/monitor/apply"
	"github.com/youta-t/flarc"
)

func profile() profiles.Profile {
	return profiles.Profile{
		Region:  "us-west-2",
		RoleArn: "arn:aws:iam::123456789012:role/exec",
		Bucket:  "my-bucket",
	}
}

const endpointName = "churn-staging"

func TestMonitorApply(t *testing.T) {
	t.Run("it registers an hourly schedule", func(t *testing.T) {
		client := mock.New(t)
		client.Impl.MonitoringScheduleExists = func(_ context.Context, name string) (bool, error) {
			return false, nil
		}
		client.Impl.CreateMonitoringSchedule = func(_ context.Context, schedule platform.MonitoringSchedule) error {
			return nil
		}

		testee := apply.Task()
		err := testee(
			context.Background(), logger.Null(), profile(), env.SageEnv{}, client,
			commandline.MockCommandline[apply.Flags]{
				Stdout_: new(strings.Builder),
				Stderr_: new(strings.Builder),
				Flags_: apply.Flags{
					Endpoint:     endpointName,
					Schedule:     apply.DefaultSchedule,
					InstanceType: "ml.m5.xlarge",
				},
			},
			[]any{},
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(client.Calls.CreateMonitoringSchedule) != 1 {
			t.Fatalf("CreateMonitoringSchedule should be called once, got %d", len(client.Calls.CreateMonitoringSchedule))
		}
		schedule := client.Calls.CreateMonitoringSchedule[0]
		if schedule.Name != "churn-staging-monitor" {
			t.Errorf("unexpected schedule name: %s", schedule.Name)
		}
		if schedule.EndpointName != endpointName {
			t.Errorf("unexpected endpoint: %s", schedule.EndpointName)
		}
		if schedule.ScheduleExpression != "cron(0 * * * ? *)" {
			t.Errorf("unexpected expression: %s", schedule.ScheduleExpression)
		}
		if schedule.OutputS3Uri != "s3://my-bucket/churn-staging/monitoring" {
			t.Errorf("unexpected output uri: %s", schedule.OutputS3Uri)
		}
		if !strings.Contains(schedule.ImageUri, "us-west-2") {
			t.Errorf("analyzer image is not regional: %s", schedule.ImageUri)
		}
		if schedule.RoleArn != profile().RoleArn {
			t.Errorf("unexpected role: %s", schedule.RoleArn)
		}
		if schedule.InstanceCount != 1 || schedule.VolumeSizeInGB != 20 {
			t.Errorf("unexpected job sizing: x%d %dGB", schedule.InstanceCount, schedule.VolumeSizeInGB)
		}

		wantEnv := map[string]string{
			"dataset_format":             `{"sagemakerCaptureJson": {"captureIndexNames": ["endpointInput", "endpointOutput"]}}`,
			"dataset_source":             "/opt/ml/processing/input/endpoint",
			"output_path":                "/opt/ml/processing/output",
			"publish_cloudwatch_metrics": "Enabled",
		}
		if len(schedule.Environment) != len(wantEnv) {
			t.Errorf("unexpected analyzer environment: %+v", schedule.Environment)
		}
		for key, want := range wantEnv {
			if got := schedule.Environment[key]; got != want {
				t.Errorf("analyzer environment %s: got %q, want %q", key, got, want)
			}
		}
	})

	t.Run("an existing schedule is left as is", func(t *testing.T) {
		client := mock.New(t)
		client.Impl.MonitoringScheduleExists = func(_ context.Context, name string) (bool, error) {
			return true, nil
		}

		testee := apply.Task()
		err := testee(
			context.Background(), logger.Null(), profile(), env.SageEnv{}, client,
			commandline.MockCommandline[apply.Flags]{
				Stdout_: new(strings.Builder),
				Stderr_: new(strings.Builder),
				Flags_: apply.Flags{
					Endpoint: endpointName,
					Schedule: apply.DefaultSchedule,
				},
			},
			[]any{},
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(client.Calls.CreateMonitoringSchedule) != 0 {
			t.Errorf("CreateMonitoringSchedule should not be called, got %d", len(client.Calls.CreateMonitoringSchedule))
		}
	})

	t.Run("it reads the endpoint name from --name-file", func(t *testing.T) {
		nameFile := filepath.Join(t.TempDir(), "endpoint_name.txt")
		if err := handoff.SaveText(nameFile, endpointName); err != nil {
			t.Fatal(err)
		}

		client := mock.New(t)
		client.Impl.MonitoringScheduleExists = func(_ context.Context, name string) (bool, error) {
			if name != "churn-staging-monitor" {
				t.Errorf("unexpected schedule name: %s", name)
			}
			return true, nil
		}

		testee := apply.Task()
		err := testee(
			context.Background(), logger.Null(), profile(), env.SageEnv{}, client,
			commandline.MockCommandline[apply.Flags]{
				Stdout_: new(strings.Builder),
				Stderr_: new(strings.Builder),
				Flags_: apply.Flags{
					NameFile: nameFile,
					Schedule: apply.DefaultSchedule,
				},
			},
			[]any{},
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("a missing endpoint name is a usage error", func(t *testing.T) {
		testee := apply.Task()
		err := testee(
			context.Background(), logger.Null(), profile(), env.SageEnv{}, mock.New(t),
			commandline.MockCommandline[apply.Flags]{
				Stdout_: new(strings.Builder),
				Stderr_: new(strings.Builder),
				Flags_: apply.Flags{
					NameFile: filepath.Join(t.TempDir(), "no-such"),
				},
			},
			[]any{},
		)
		if !errors.Is(err, flarc.ErrUsage) {
			t.Errorf("expected ErrUsage, got %v", err)
		}
	})

	t.Run("it propagates client errors", func(t *testing.T) {
		boom := errors.New("fake error")
		client := mock.New(t)
		client.Impl.MonitoringScheduleExists = func(_ context.Context, _ string) (bool, error) {
			return false, boom
		}

		testee := apply.Task()
		err := testee(
			context.Background(), logger.Null(), profile(), env.SageEnv{}, client,
			commandline.MockCommandline[apply.Flags]{
				Stdout_: new(strings.Builder),
				Stderr_: new(strings.Builder),
				Flags_: apply.Flags{
					Endpoint: endpointName,
					Schedule: apply.DefaultSchedule,
				},
			},
			[]any{},
		)
		if !errors.Is(err, boom) {
			t.Errorf("expected %v, got %v", boom, err)
		}
	})
}
