package tasks

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePage(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantIDs   []ID
		wantTotal int
		wantLimit int
		wantErr   bool
	}{
		{
			name:      "envelope",
			body:      `{"tasks":[{"id":"a","title":"A"},{"id":"b","title":"B"}],"total":7,"limit":2,"offset":0}`,
			wantIDs:   []ID{"a", "b"},
			wantTotal: 7,
			wantLimit: 2,
		},
		{
			name:      "envelope without total",
			body:      `{"tasks":[{"id":"a","title":"A"}]}`,
			wantIDs:   []ID{"a"},
			wantTotal: 1,
		},
		{
			name:      "bare array",
			body:      `[{"id":"a","title":"A"},{"id":"b","title":"B"}]`,
			wantIDs:   []ID{"a", "b"},
			wantTotal: 2,
		},
		{name: "empty envelope", body: `{"tasks":[]}`, wantIDs: []ID{}, wantTotal: 0},
		{name: "empty array", body: ` [] `, wantIDs: []ID{}, wantTotal: 0},
		{name: "object without tasks", body: `{"items":[]}`, wantErr: true},
		{name: "null tasks", body: `{"tasks":null}`, wantErr: true},
		{name: "scalar", body: `"nope"`, wantErr: true},
		{name: "empty body", body: ``, wantErr: true},
		{name: "malformed", body: `[{"id":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := decodePage([]byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			ids := make([]ID, 0, len(page.Tasks))
			for _, task := range page.Tasks {
				ids = append(ids, task.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, tt.wantTotal, page.Total)
			assert.Equal(t, tt.wantLimit, page.Limit)
		})
	}
}

func TestDecodePageUnexpectedBody(t *testing.T) {
	_, err := decodePage([]byte(`{"data":[]}`))
	assert.ErrorIs(t, err, ErrUnexpectedListBody)
}

func TestIDUnmarshal(t *testing.T) {
	var task Task
	require.NoError(t, json.Unmarshal([]byte(`{"id":42,"user_id":"u-1","title":"x"}`), &task))
	assert.Equal(t, ID("42"), task.ID)
	assert.Equal(t, ID("u-1"), task.UserID)

	require.NoError(t, json.Unmarshal([]byte(`{"id":null}`), &task))
	assert.Empty(t, task.ID)

	assert.Error(t, json.Unmarshal([]byte(`{"id":true}`), &task))
}

func TestListURL(t *testing.T) {
	done, limit, offset := false, 10, 0

	assert.Equal(t, BasePath, listURL(ListParams{}))
	assert.Equal(t, BasePath+"?completed=false", listURL(ListParams{Completed: &done}))
	assert.Equal(t, BasePath+"?completed=false&limit=10&offset=0",
		listURL(ListParams{Completed: &done, Limit: &limit, Offset: &offset}))
	assert.Equal(t, BasePath+"?offset=0", listURL(ListParams{Offset: &offset}))
}
