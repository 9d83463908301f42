package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginator_Resolve(t *testing.T) {
	p := NewPaginator(10)

	tests := []struct {
		name       string
		raw        string
		total      int64
		wantNumber int
		wantOffset int
	}{
		{"missing page", "", 35, 1, 0},
		{"non numeric", "abc", 35, 1, 0},
		{"first page", "1", 35, 1, 0},
		{"middle page", "2", 35, 2, 10},
		{"last page", "4", 35, 4, 30},
		{"beyond last clamps", "9", 35, 4, 30},
		{"zero clamps to last", "0", 35, 4, 30},
		{"negative clamps to last", "-3", 35, 4, 30},
		{"empty set", "5", 0, 1, 0},
		{"exact multiple", "3", 30, 3, 20},
		{"padded number", " 2 ", 35, 2, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			number, offset := p.Resolve(tt.raw, tt.total)
			assert.Equal(t, tt.wantNumber, number)
			assert.Equal(t, tt.wantOffset, offset)
		})
	}
}

func TestPaginator_DefaultSize(t *testing.T) {
	assert.Equal(t, DefaultPageSize, NewPaginator(0).PageSize)
	assert.Equal(t, 1, NewPaginator(5).TotalPages(0))
	assert.Equal(t, 3, NewPaginator(5).TotalPages(11))
}

func TestPage_Navigation(t *testing.T) {
	p := &Page{Number: 2, TotalPages: 3}
	assert.True(t, p.HasPrevious())
	assert.True(t, p.HasNext())
	assert.True(t, p.HasOtherPages())
	assert.Equal(t, 1, p.PreviousNumber())
	assert.Equal(t, 3, p.NextNumber())
	assert.Equal(t, []int{1, 2, 3}, p.Numbers())

	single := &Page{Number: 1, TotalPages: 1}
	assert.False(t, single.HasPrevious())
	assert.False(t, single.HasNext())
	assert.False(t, single.HasOtherPages())
}
