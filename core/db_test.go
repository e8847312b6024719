package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanOrdering(t *testing.T) {
	allowed := map[string]string{"name": "name", "createdAt": "created_at"}

	tests := []struct {
		name     string
		ordering []DBOrdering
		want     []DBOrdering
	}{
		{name: "none", ordering: nil, want: []DBOrdering{}},
		{
			name:     "renamed",
			ordering: []DBOrdering{{Field: "createdAt"}, {Field: " name ", Ascending: true}},
			want:     []DBOrdering{{Field: "created_at"}, {Field: "name", Ascending: true}},
		},
		{
			name:     "unknown dropped",
			ordering: []DBOrdering{{Field: "password"}, {Field: "name; DROP TABLE subjects"}, {Field: "name"}},
			want:     []DBOrdering{{Field: "name"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanOrdering(tt.ordering, allowed))
		})
	}
}

func TestDBOrdering_String(t *testing.T) {
	assert.Equal(t, "name ASC", DBOrdering{Field: "name", Ascending: true}.String())
	assert.Equal(t, "created_at DESC", DBOrdering{Field: "created_at"}.String())
}
