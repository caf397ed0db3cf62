package platform

import (
	"fmt"
	"strings"
)

// ParseS3URI splits "s3://bucket/key..." into bucket and key.
func ParseS3URI(uri string) (bucket string, key string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 uri: %s", uri)
	}

	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 uri misses bucket or key: %s", uri)
	}
	return bucket, key, nil
}
