package inertiaclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeProps(t *testing.T) {
	t.Parallel()

	type user struct {
		Name string `json:"name"`
	}

	type props struct {
		Users    []user `inertia:"users"`
		Page     int    `inertia:"page,always"`
		Title    string `inertia:""`
		Skipped  string `inertia:"-"`
		Untagged string
		Missing  string `inertia:"missing"`
	}

	page := newTestPage(t, "Users/Index", "/users",
		`{"users":[{"name":"ann"}],"page":2,"Title":"Users","-":"x","Untagged":"u"}`)

	got := props{Missing: "kept"} //nolint:exhaustruct
	require.NoError(t, DecodeProps(page, &got))

	assert.Equal(t, props{ //nolint:exhaustruct
		Users:   []user{{Name: "ann"}},
		Page:    2,
		Title:   "Users",
		Missing: "kept",
	}, got)

	t.Run("invalid destination", func(t *testing.T) {
		t.Parallel()

		require.Error(t, DecodeProps(page, props{})) //nolint:exhaustruct

		var n int
		require.Error(t, DecodeProps(page, &n))

		var nilProps *props
		require.Error(t, DecodeProps(page, nilProps))
	})

	t.Run("type mismatch", func(t *testing.T) {
		t.Parallel()

		var dst struct {
			Page string `inertia:"page"`
		}

		require.Error(t, DecodeProps(page, &dst))
	})
}

func TestDecodePage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "page", body: `{"component":"Home","props":{"a":1},"url":"/","version":"1"}`},
		{name: "page without props", body: `{"component":"Home","url":"/"}`},
		{name: "null", body: `null`, wantErr: true},
		{name: "empty object", body: `{}`, wantErr: true},
		{name: "html", body: `<html></html>`, wantErr: true},
		{name: "props not an object", body: `{"component":"Home","props":[1]}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			page, err := decodePage([]byte(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "Home", page.Component)
			assert.NotNil(t, page.Props)
		})
	}
}
