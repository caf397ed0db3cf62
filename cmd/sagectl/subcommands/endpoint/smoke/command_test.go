package smoke_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mlopshq/sagectl/cmd/sagectl/config/profiles"
	"github.com/mlopshq/sagectl/cmd/sagectl/env"
	"github.com/mlopshq/sagectl/cmd/sagectl/handoff"
	"github.com/mlopshq/sagectl/cmd/sagectl/platform/mock"
	"github.com/mlopshq/sagectl/cmd/sagectl/subcommands/endpoint/smoke"
	"github.com/mlopshq/sagectl/cmd/sagectl/subcommands/internal/commandline"
	"github.com/mlopshq/sagectl/cmd/sagectl/subcommands/logger"
	"github.com/mlopshq/sagectl/pkg/utils/try"
)

func profile() profiles.Profile {
	return profiles.Profile{
		Region:  "us-west-2",
		RoleArn: "arn:aws:iam::123456789012:role/exec",
	}
}

const endpointName = "churn-staging"

func expected(v string) *string { return &v }

func dataFile(t *testing.T, data handoff.TestData) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test_data.json")
	if err := handoff.SaveJSON(path, data); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSmoke(t *testing.T) {
	t.Run("it passes when every prediction matches", func(t *testing.T) {
		client := mock.New(t)
		answers := map[string]string{
			"1.0,2.0,3.0": "0.93",
			"4.0,5.0,6.0": "0.12",
		}
		client.Impl.Invoke = func(_ context.Context, name, contentType string, payload []byte) ([]byte, error) {
			if name != endpointName {
				t.Errorf("unexpected endpoint: %s", name)
			}
			if contentType != "text/csv" {
				t.Errorf("unexpected content type: %s", contentType)
			}
			return []byte(answers[string(payload)] + "\n"), nil
		}

		output := filepath.Join(t.TempDir(), "test_results.json")
		testee := smoke.Task()
		err := testee(
			context.Background(), logger.Null(), profile(), env.SageEnv{}, client,
			commandline.MockCommandline[smoke.Flags]{
				Stdout_: new(strings.Builder),
				Stderr_: new(strings.Builder),
				Flags_: smoke.Flags{
					Endpoint: endpointName,
					Data: dataFile(t, handoff.TestData{Samples: []handoff.Sample{
						{Input: "1.0,2.0,3.0", Expected: expected("1")},
						{Input: "4.0,5.0,6.0", Expected: expected("0")},
						{Input: "7.0,8.0,9.0"},
					}}),
					Output: output,
				},
			},
			[]any{},
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(client.Calls.Invoke) != 3 {
			t.Errorf("Invoke should be called 3 times, got %d", len(client.Calls.Invoke))
		}

		report := try.To(handoff.LoadTestReport(output)).OrFatal(t)
		if !report.Success {
			t.Error("report should be successful")
		}
		if report.TotalTests != 3 || report.Passed != 3 || report.Failed != 0 {
			t.Errorf("unexpected counters: %d/%d/%d", report.TotalTests, report.Passed, report.Failed)
		}
		if report.Accuracy != 1.0 {
			t.Errorf("unexpected accuracy: %f", report.Accuracy)
		}
		if len(report.Latencies) != 3 {
			t.Errorf("expected 3 latencies, got %d", len(report.Latencies))
		}
		if report.P95LatencyMs < report.P50LatencyMs {
			t.Errorf("p95 %.3f below p50 %.3f", report.P95LatencyMs, report.P50LatencyMs)
		}
	})

	t.Run("a mismatched prediction fails the run but keeps the report", func(t *testing.T) {
		client := mock.New(t)
		client.Impl.Invoke = func(_ context.Context, _, _ string, _ []byte) ([]byte, error) {
			return []byte("0.93"), nil
		}

		output := filepath.Join(t.TempDir(), "test_results.json")
		testee := smoke.Task()
		err := testee(
			context.Background(), logger.Null(), profile(), env.SageEnv{}, client,
			commandline.MockCommandline[smoke.Flags]{
				Stdout_: new(strings.Builder),
				Stderr_: new(strings.Builder),
				Flags_: smoke.Flags{
					Endpoint: endpointName,
					Data: dataFile(t, handoff.TestData{Samples: []handoff.Sample{
						{Input: "1.0,2.0,3.0", Expected: expected("1")},
						{Input: "4.0,5.0,6.0", Expected: expected("0")},
					}}),
					Output: output,
				},
			},
			[]any{},
		)
		if err == nil {
			t.Fatal("expected an error")
		}

		report := try.To(handoff.LoadTestReport(output)).OrFatal(t)
		if report.Success {
			t.Error("report should not be successful")
		}
		if report.Passed != 1 || report.Failed != 1 {
			t.Errorf("unexpected counters: %d passed, %d failed", report.Passed, report.Failed)
		}
		if report.Accuracy != 0.5 {
			t.Errorf("unexpected accuracy: %f", report.Accuracy)
		}
	})

	t.Run("invocation errors count as failures", func(t *testing.T) {
		client := mock.New(t)
		client.Impl.Invoke = func(_ context.Context, _, _ string, _ []byte) ([]byte, error) {
			return nil, errors.New("fake invocation error")
		}

		output := filepath.Join(t.TempDir(), "test_results.json")
		testee := smoke.Task()
		err := testee(
			context.Background(), logger.Null(), profile(), env.SageEnv{}, client,
			commandline.MockCommandline[smoke.Flags]{
				Stdout_: new(strings.Builder),
				Stderr_: new(strings.Builder),
				Flags_: smoke.Flags{
					Endpoint: endpointName,
					Data: dataFile(t, handoff.TestData{Samples: []handoff.Sample{
						{Input: "1.0,2.0,3.0"},
					}}),
					Output: output,
				},
			},
			[]any{},
		)
		if err == nil {
			t.Fatal("expected an error")
		}

		report := try.To(handoff.LoadTestReport(output)).OrFatal(t)
		if report.Failed != 1 {
			t.Errorf("unexpected failure count: %d", report.Failed)
		}
		if len(report.Predictions) != 1 || report.Predictions[0].Error == "" {
			t.Errorf("the failed case should record its error: %+v", report.Predictions)
		}
	})

	t.Run("it reads the endpoint name from --name-file", func(t *testing.T) {
		nameFile := filepath.Join(t.TempDir(), "endpoint_name.txt")
		if err := handoff.SaveText(nameFile, endpointName); err != nil {
			t.Fatal(err)
		}

		client := mock.New(t)
		client.Impl.Invoke = func(_ context.Context, name, _ string, _ []byte) ([]byte, error) {
			if name != endpointName {
				t.Errorf("unexpected endpoint: %s", name)
			}
			return []byte("0.9"), nil
		}

		testee := smoke.Task()
		err := testee(
			context.Background(), logger.Null(), profile(), env.SageEnv{}, client,
			commandline.MockCommandline[smoke.Flags]{
				Stdout_: new(strings.Builder),
				Stderr_: new(strings.Builder),
				Flags_: smoke.Flags{
					NameFile: nameFile,
					Data: dataFile(t, handoff.TestData{Samples: []handoff.Sample{
						{Input: "1.0,2.0,3.0"},
					}}),
					Output: filepath.Join(t.TempDir(), "test_results.json"),
				},
			},
			[]any{},
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}
