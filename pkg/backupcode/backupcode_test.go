package backupcode_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/twofactor/pkg/backupcode"
)

func TestGenerate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		count   int
		wantErr bool
	}{
		{"default count", backupcode.DefaultCount, false},
		{"single code", 1, false},
		{"large batch", 500, false},
		{"zero", 0, true},
		{"negative", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			codes, err := backupcode.Generate(tt.count)
			if tt.wantErr {
				assert.ErrorIs(t, err, backupcode.ErrInvalidCount)
				assert.Nil(t, codes)
				return
			}

			require.NoError(t, err)
			assert.Len(t, codes, tt.count)

			seen := make(map[string]bool)
			for _, code := range codes {
				assert.Regexp(t, `^[0-9A-F]{4}-[0-9A-F]{4}$`, code)
				assert.False(t, seen[code], "duplicate code %s", code)
				seen[code] = true
			}
		})
	}
}

func TestConsume_SingleUse(t *testing.T) {
	t.Parallel()

	codes, err := backupcode.Generate(backupcode.DefaultCount)
	require.NoError(t, err)
	target := codes[3]

	matched, remaining := backupcode.Consume(codes, target)
	assert.True(t, matched)
	assert.Len(t, remaining, len(codes)-1)
	assert.NotContains(t, remaining, target)

	matched, again := backupcode.Consume(remaining, target)
	assert.False(t, matched)
	assert.Equal(t, remaining, again)
}

func TestConsume_InputUntouched(t *testing.T) {
	t.Parallel()

	codes := []string{"AAAA-1111", "BBBB-2222", "CCCC-3333"}
	original := append([]string(nil), codes...)

	matched, remaining := backupcode.Consume(codes, "BBBB-2222")
	assert.True(t, matched)
	assert.Equal(t, []string{"AAAA-1111", "CCCC-3333"}, remaining)
	assert.Equal(t, original, codes)
}

func TestConsume_Normalization(t *testing.T) {
	t.Parallel()

	codes := []string{"ABCD-1234", "EF56-7890"}

	tests := []struct {
		name      string
		submitted string
		want      bool
	}{
		{"exact", "ABCD-1234", true},
		{"lower case", "abcd-1234", true},
		{"no dash", "abcd1234", true},
		{"spaces", " abcd 1234 ", true},
		{"full width", "ＡＢＣＤ－１２３４", true},
		{"wrong", "ABCD-1235", false},
		{"prefix only", "ABCD", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			matched, remaining := backupcode.Consume(codes, tt.submitted)
			assert.Equal(t, tt.want, matched)
			if tt.want {
				assert.Equal(t, []string{"EF56-7890"}, remaining)
			} else {
				assert.Equal(t, codes, remaining)
			}
		})
	}
}

func TestConsume_EmptyList(t *testing.T) {
	t.Parallel()

	matched, remaining := backupcode.Consume(nil, "ABCD-1234")
	assert.False(t, matched)
	assert.Empty(t, remaining)
}

func TestGenerate_IndependentBatches(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes, err := backupcode.Generate(backupcode.DefaultCount)
			assert.NoError(t, err)
			mu.Lock()
			defer mu.Unlock()
			for _, c := range codes {
				seen[c] = true
			}
		}()
	}
	wg.Wait()

	// 80 codes from a 32-bit space; a collision here would point at shared state.
	assert.Len(t, seen, 80)
}
