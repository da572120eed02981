package versions

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVersionInfoWithValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name              string
		version           string
		commit            string
		buildDate         string
		expectedVersion   string
		expectedCommit    string
		expectedBuildDate string
	}{
		{
			name:              "release values pass through",
			version:           "1.2.3",
			commit:            "abc1234",
			buildDate:         "2025-03-01T12:00:00Z",
			expectedVersion:   "1.2.3",
			expectedCommit:    "abc1234",
			expectedBuildDate: "2025-03-01 12:00:00 UTC",
		},
		{
			name:              "dev version derives from commit",
			version:           "dev",
			commit:            "abcdef123456",
			buildDate:         "2025-03-01T12:00:00Z",
			expectedVersion:   "build-abcdef12",
			expectedCommit:    "abcdef123456",
			expectedBuildDate: "2025-03-01 12:00:00 UTC",
		},
		{
			name:              "unparsable build date passes through",
			version:           "1.0.0",
			commit:            "abc1234",
			buildDate:         "yesterday",
			expectedVersion:   "1.0.0",
			expectedCommit:    "abc1234",
			expectedBuildDate: "yesterday",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			info := getVersionInfoWithValues(tt.version, tt.commit, tt.buildDate)

			assert.Equal(t, tt.expectedVersion, info.Version)
			assert.Equal(t, tt.expectedCommit, info.Commit)
			assert.Equal(t, tt.expectedBuildDate, info.BuildDate)
		})
	}
}

func TestGetVersionInfoRuntimeFields(t *testing.T) {
	t.Parallel()

	info := GetVersionInfo()

	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH), info.Platform)
}
