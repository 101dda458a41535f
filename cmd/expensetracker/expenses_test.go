package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginate(t *testing.T) {
	tests := []struct {
		name                 string
		total, page, perPage int
		want                 page
	}{
		{"first page", 20, 0, 8, page{Page: 0, Pages: 3, Start: 0, End: 8}},
		{"last partial page", 20, 2, 8, page{Page: 2, Pages: 3, Start: 16, End: 20}},
		{"past the end clamps", 20, 9, 8, page{Page: 2, Pages: 3, Start: 16, End: 20}},
		{"negative clamps", 20, -1, 8, page{Page: 0, Pages: 3, Start: 0, End: 8}},
		{"empty list", 0, 0, 8, page{Page: 0, Pages: 1, Start: 0, End: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, paginate(tt.total, tt.page, tt.perPage))
		})
	}
}

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	assert.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "0", "-3", "abc"} {
		_, err := parseID(bad)
		assert.Error(t, err, bad)
	}
}
