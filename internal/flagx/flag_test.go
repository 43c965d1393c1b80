package flagx

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "separate value",
			args:    []string{"-b", "root@lms.test", "-a", "localhost:1"},
			allowed: []string{"-b"},
			want:    []string{"-b", "root@lms.test"},
		},
		{
			name:    "equals form",
			args:    []string{"--config=lms.json", "-a", "x"},
			allowed: []string{"config"},
			want:    []string{"--config=lms.json"},
		},
		{
			name:    "allowed written without dash",
			args:    []string{"-r", "30", "-l", "debug"},
			allowed: []string{"r", "l"},
			want:    []string{"-r", "30", "-l", "debug"},
		},
		{
			name:    "unknown flags and positionals dropped",
			args:    []string{"-x", "1", "stray", "--y=2"},
			allowed: []string{"-c"},
			want:    []string{},
		},
		{
			name:    "dash token is not a value",
			args:    []string{"-c", "-d", "db"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
		{
			name:    "trailing flag kept",
			args:    []string{"-c"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
		{
			name:    "repeated flag keeps order",
			args:    []string{"-c", "one.json", "-c", "two.json"},
			allowed: []string{"-c"},
			want:    []string{"-c", "one.json", "-c", "two.json"},
		},
		{
			name:    "empty",
			args:    nil,
			allowed: []string{"-c"},
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterArgs(tt.args, tt.allowed)
			assert.Empty(t, cmp.Diff(tt.want, got))
		})
	}
}

func TestConfigPath(t *testing.T) {
	assert.Equal(t, "/etc/lms.json", ConfigPath([]string{"-c", "/etc/lms.json"}))
	assert.Equal(t, "lms.json", ConfigPath([]string{"-a", "x:1", "-config=lms.json"}))
	assert.Equal(t, "b.json", ConfigPath([]string{"-c", "a.json", "-config", "b.json"}))
	assert.Empty(t, ConfigPath([]string{"-x", "1"}))
}
