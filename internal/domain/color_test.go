package domain_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/abdulaziz-backend/pixelpainter/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColor_Formats(t *testing.T) {
	cases := map[string]domain.Color{
		"#ff8000":        {0xff, 0x80, 0x00},
		"#FF8000":        {0xff, 0x80, 0x00},
		"ff8000":         {0xff, 0x80, 0x00},
		"#fff":           {0xff, 0xff, 0xff},
		"rgb(1, 2, 3)":   {1, 2, 3},
		" rgb(255,0,9) ": {255, 0, 9},
	}
	for in, want := range cases {
		got, err := domain.ParseColor(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParseColor_Invalid(t *testing.T) {
	for _, in := range []string{"", "#12", "#12345", "#gggggg", "rgb(1,2)", "rgb(1,2,300)", "blue"} {
		_, err := domain.ParseColor(in)
		require.Error(t, err, in)
		assert.True(t, errors.Is(err, domain.ErrInvalidColor), in)
	}
}

func TestColor_HexRoundTrip(t *testing.T) {
	c := domain.Color{R: 0x12, G: 0xab, B: 0x07}
	assert.Equal(t, "#12ab07", c.Hex())

	parsed, err := domain.ParseColor(c.Hex())
	require.NoError(t, err)
	assert.Equal(t, c, parsed)
}

func TestColor_JSON(t *testing.T) {
	var payload struct {
		Color domain.Color `json:"color"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"color":"#336699"}`), &payload))
	assert.Equal(t, domain.Color{0x33, 0x66, 0x99}, payload.Color)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"color":"#336699"}`, string(out))
}

func TestColor_RGBAIsOpaque(t *testing.T) {
	_, _, _, a := domain.GridlineColor.RGBA()
	assert.Equal(t, uint32(0xffff), a)
}
