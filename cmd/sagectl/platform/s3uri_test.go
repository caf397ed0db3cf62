package platform_test

import (
	"testing"

	"github.com/mlopshq/sagectl/cmd/sagectl/platform"
)

func TestParseS3URI(t *testing.T) {
	for name, testcase := range map[string]struct {
		uri     string
		bucket  string
		key     string
		wantErr bool
	}{
		"plain object": {
			uri: "s3://my-bucket/path/to/evaluation.json",
			bucket: "my-bucket", key: "path/to/evaluation.json",
		},
		"single segment key": {
			uri: "s3://b/k", bucket: "b", key: "k",
		},
		"missing scheme":   {uri: "https://example.com/x", wantErr: true},
		"missing key":      {uri: "s3://bucket-only", wantErr: true},
		"empty bucket":     {uri: "s3:///key", wantErr: true},
		"empty string":     {uri: "", wantErr: true},
		"trailing slash only": {uri: "s3://bucket/", wantErr: true},
	} {
		t.Run(name, func(t *testing.T) {
			bucket, key, err := platform.ParseS3URI(testcase.uri)
			if testcase.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", testcase.uri)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if bucket != testcase.bucket || key != testcase.key {
				t.Errorf(
					"expected (%s, %s), got (%s, %s)",
					testcase.bucket, testcase.key, bucket, key,
				)
			}
		})
	}
}
