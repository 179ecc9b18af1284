package categorize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectLanguage(t *testing.T) {
	e := newTestEngine()

	tests := []struct {
		name       string
		transcript string
		want       string
	}{
		{"japanese with kana", "田中さんの体温は36度8分です", "ja"},
		{"chinese han only", "病人体温三十六度八", "zh"},
		{"korean hangul", "환자 체온은 36.8도입니다", "ko"},
		{"english", "temperature is 36.8 degrees", "en"},
		{"digits only falls back to english", "120 80", "en"},
		{"empty falls back to english", "", "en"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.DetectLanguage(tt.transcript))
		})
	}
}
