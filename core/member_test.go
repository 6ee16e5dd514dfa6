package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSecureInfo(t *testing.T) {
	info, err := ParseSecureInfo("Nguyen Van A|1999-04-12|12 Hang Bai, Hanoi|0912345678|1250")
	require.NoError(t, err)

	assert.Equal(t, "Nguyen Van A", info.FullName)
	assert.Equal(t, "1999-04-12", info.DOB)
	assert.Equal(t, "12 Hang Bai, Hanoi", info.Address)
	assert.Equal(t, "0912345678", info.Phone)
	assert.Equal(t, int64(1250), info.Points)
}

func TestParseSecureInfoPointsPadded(t *testing.T) {
	info, err := ParseSecureInfo("A|2000-01-01|B|C| 42 ")
	require.NoError(t, err)
	assert.Equal(t, int64(42), info.Points)
}

func TestParseSecureInfoMalformed(t *testing.T) {
	_, err := ParseSecureInfo("only|four|fields|here")
	assert.Error(t, err)

	_, err = ParseSecureInfo("a|b|c|d|not-a-number")
	assert.Error(t, err)
}
