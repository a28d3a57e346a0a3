//go:build !gosseract

package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGosseractDisabledWithoutBuildTag(t *testing.T) {
	_, err := NewProvider(ProviderConfig{Name: "gosseract"})
	assert.ErrorIs(t, err, ErrGosseractNotEnabled)
}
