package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/minio/minio-go/v7"
)

func TestIsNoSuchKey(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"minio code", minio.ErrorResponse{Code: "NoSuchKey"}, true},
		{"wrapped code", fmt.Errorf("remove: %w", minio.ErrorResponse{Code: "NotFound"}), true},
		{"gateway text", errors.New("The specified key does not exist."), true},
		{"bucket missing", minio.ErrorResponse{Code: "NoSuchBucket"}, false},
		{"other", errors.New("connection refused"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsNoSuchKey(tc.err); got != tc.want {
				t.Fatalf("IsNoSuchKey(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestIsNoSuchBucket(t *testing.T) {
	if !IsNoSuchBucket(minio.ErrorResponse{Code: "NoSuchBucket"}) {
		t.Fatalf("expected NoSuchBucket code to match")
	}
	if IsNoSuchBucket(minio.ErrorResponse{Code: "NoSuchKey"}) {
		t.Fatalf("NoSuchKey must not be treated as a missing bucket")
	}
}

func TestParseBucketLookup(t *testing.T) {
	for _, raw := range []string{"", "auto", "DNS", " path "} {
		if _, err := parseBucketLookup(raw); err != nil {
			t.Fatalf("parseBucketLookup(%q): %v", raw, err)
		}
	}
	if _, err := parseBucketLookup("virtual"); err == nil {
		t.Fatalf("expected error for unknown lookup type")
	}
}
