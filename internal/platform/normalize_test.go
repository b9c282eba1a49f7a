package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeArch(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"amd64", "amd64", false},
		{"x86_64", "amd64", false},
		{"AARCH64", "arm64", false},
		{"arm64", "arm64", false},
		{"i686", "386", false},
		{"armv7l", "arm", false},
		{"ppc64le", "ppc64le", false},
		{"riscv64", "riscv64", false},
		{" s390x ", "s390x", false},
		{"mips", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := normalizeArch(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMapFamily(t *testing.T) {
	assert.Equal(t, FamilyDebian, mapFamily("Ubuntu"))
	assert.Equal(t, FamilyAlpine, mapFamily("alpine"))
	assert.Equal(t, FamilyRHEL, mapFamily(" rocky "))
	assert.Equal(t, FamilyUnknown, mapFamily("plan9"))
}
