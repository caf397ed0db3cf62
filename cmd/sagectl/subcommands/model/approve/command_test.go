package approve_test

import (
	"context"
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
	"github.com/mlopshq/sagectl/cmd/sagectl/subcommands/model/approve"
)

func profile() profiles.Profile {
	return profiles.Profile{
		Region:  "us-west-2",
		RoleArn: "arn:aws:iam::123456789012:role/exec",
	}
}

const modelPackageArn = "arn:aws:sagemaker:us-west-2:123456789012:model-package/churn-model-group/3"

func resultsFile(t *testing.T, results handoff.Results) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "results.json")
	if err := handoff.SaveJSON(path, results); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestApprove(t *testing.T) {

	theory := func(
		results handoff.Results, minAccuracy float64, wantApproved bool,
	) func(*testing.T) {
		return func(t *testing.T) {
			client := mock.New(t)
			if wantApproved {
				client.Impl.SetModelApproval = func(
					_ context.Context, arn string, status platform.ApprovalStatus, description string,
				) error {
					return nil
				}
			}

			testee := approve.Task()
			err := testee(
				context.Background(), logger.Null(), profile(), env.SageEnv{}, client,
				commandline.MockCommandline[approve.Flags]{
					Stdout_: new(strings.Builder),
					Stderr_: new(strings.Builder),
					Flags_: approve.Flags{
						Results:     resultsFile(t, results),
						MinAccuracy: minAccuracy,
					},
				},
				[]any{},
			)

			if wantApproved {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if len(client.Calls.SetModelApproval) != 1 {
					t.Fatalf("SetModelApproval should be called once, got %d", len(client.Calls.SetModelApproval))
				}
				call := client.Calls.SetModelApproval[0]
				if call.Arn != modelPackageArn {
					t.Errorf("unexpected ARN: %s", call.Arn)
				}
				if call.Status != platform.ApprovalApproved {
					t.Errorf("unexpected status: %s", call.Status)
				}
			} else {
				if err == nil {
					t.Error("expected an error")
				}
				if len(client.Calls.SetModelApproval) != 0 {
					t.Errorf("SetModelApproval should not be called, got %d", len(client.Calls.SetModelApproval))
				}
			}
		}
	}

	accuracy := func(v float64) *float64 { return &v }

	t.Run("accuracy above the default threshold approves", theory(
		handoff.Results{
			Status:          "Succeeded",
			ModelPackageArn: modelPackageArn,
			Accuracy:        accuracy(0.92),
		},
		0, true,
	))

	t.Run("accuracy below --min-accuracy refuses", theory(
		handoff.Results{
			Status:          "Succeeded",
			ModelPackageArn: modelPackageArn,
			Accuracy:        accuracy(0.92),
		},
		0.95, false,
	))

	t.Run("accuracy below the default threshold refuses", theory(
		handoff.Results{
			Status:          "Succeeded",
			ModelPackageArn: modelPackageArn,
			Accuracy:        accuracy(0.75),
		},
		0, false,
	))

	t.Run("results without a model package refuse", theory(
		handoff.Results{Status: "Succeeded", Accuracy: accuracy(0.92)},
		0, false,
	))

	t.Run("results without accuracy refuse", theory(
		handoff.Results{Status: "Succeeded", ModelPackageArn: modelPackageArn},
		0, false,
	))

	t.Run("the sagenv approval gate is honored", func(t *testing.T) {
		client := mock.New(t)

		gate := 0.95
		testee := approve.Task()
		err := testee(
			context.Background(), logger.Null(), profile(),
			env.SageEnv{ApprovalGate: &gate}, client,
			commandline.MockCommandline[approve.Flags]{
				Stdout_: new(strings.Builder),
				Stderr_: new(strings.Builder),
				Flags_: approve.Flags{
					Results: resultsFile(t, handoff.Results{
						Status:          "Succeeded",
						ModelPackageArn: modelPackageArn,
						Accuracy:        func(v float64) *float64 { return &v }(0.92),
					}),
				},
			},
			[]any{},
		)
		if err == nil {
			t.Error("expected an error: 0.92 is below the sagenv gate 0.95")
		}
	})
}
