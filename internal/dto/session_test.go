package dto_test

import (
	"encoding/json"
	"testing"

	"github.com/abdulaziz-backend/pixelpainter/internal/domain"
	"github.com/abdulaziz-backend/pixelpainter/internal/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDimension_Unmarshal(t *testing.T) {
	cases := []struct {
		in   string
		want dto.Dimension
	}{
		{`{"width": 16}`, 16},
		{`{"width": "24"}`, 24},
		{`{"width": "12px"}`, 12},
		{`{"width": "abc"}`, 1},
		{`{"width": ""}`, 1},
		{`{"width": 0}`, 1},
		{`{"width": -3}`, 1},
		{`{"width": 7.8}`, 7},
		{`{"width": null}`, 0},
		{`{}`, 0},
	}
	for _, tc := range cases {
		var req dto.ResizeRequest
		require.NoError(t, json.Unmarshal([]byte(tc.in), &req), tc.in)
		assert.Equal(t, tc.want, req.Width, tc.in)
	}
}

func TestFrameForChange(t *testing.T) {
	e := domain.NewEditor(2, 2, 10)
	e.SetColor(domain.Color{R: 0xff})

	change, ok := e.PaintCell(1, 0)
	require.True(t, ok)
	frame, ok := dto.FrameForChange(change, e.State()).(dto.CellFrame)
	require.True(t, ok)
	assert.Equal(t, "cell", frame.Type)
	assert.Equal(t, "#ff0000", frame.Color)
	assert.Equal(t, 1, frame.Col)

	grid, ok := dto.FrameForChange(e.FillAll(), e.State()).(dto.GridFrame)
	require.True(t, ok)
	assert.Equal(t, [][]string{{"#ff0000", "#ff0000"}, {"#ff0000", "#ff0000"}}, grid.Grid)
	assert.Equal(t, e.CellSize(), grid.CellSize)

	change, _ = e.SetCellSize(30)
	display, ok := dto.FrameForChange(change, e.State()).(dto.DisplayFrame)
	require.True(t, ok)
	assert.Equal(t, 30, display.CellSize)

	tool, ok := dto.FrameForChange(e.ToggleErase(), e.State()).(dto.ToolFrame)
	require.True(t, ok)
	assert.True(t, tool.Erasing)
}

func TestNewState(t *testing.T) {
	e := domain.NewEditor(3, 1, 12)
	s := dto.NewState(e.State())

	assert.Equal(t, "state", s.Type)
	assert.Equal(t, 3, s.Width)
	assert.Equal(t, 12, s.CellSize)
	assert.Equal(t, "#ffffff", s.Color)
	assert.Equal(t, [][]string{{"#000000", "#000000", "#000000"}}, s.Grid)
}
