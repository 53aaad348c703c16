package firmware

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestPositionAddSub(t *testing.T) {
	a := Position{X: 1, Y: 2, Z: 3, A: 4, Units: UnitsMM}
	b := Position{X: 0.5, Y: 0.5, Z: 0.5, A: 0.5, Units: UnitsMM}
	sum := a.Add(b)
	require.Equal(t, Position{X: 1.5, Y: 2.5, Z: 3.5, A: 4.5, Units: UnitsMM}, sum)
	require.Equal(t, a, sum.Sub(b))
}

func TestParsePositionField(t *testing.T) {
	message := "<Idle|MPos:1.000,2.000,3.000|FS:0,0>"

	position, err := ParsePositionField(message, PositionFieldMachine, UnitsMM, DefaultAxisOrder)
	require.NoError(t, err)
	require.NotNil(t, position)
	require.Equal(t, 1.0, position.X)
	require.Equal(t, 2.0, position.Y)
	require.Equal(t, 3.0, position.Z)

	position, err = ParsePositionField(message, PositionFieldWork, UnitsMM, DefaultAxisOrder)
	require.NoError(t, err)
	require.Nil(t, position)

	_, err = ParsePositionField("<Idle|MPos:1.000,x,3.000>", PositionFieldMachine, UnitsMM, DefaultAxisOrder)
	require.Error(t, err)
}

func TestPositionFromValuesAxisOrder(t *testing.T) {
	t.Run("dual Y order maps 4th value via order letter", func(t *testing.T) {
		// Mega-5X dual-Y: order XYZYA, so the 4th value is the second Y motor
		// and the 5th is A.
		position, err := positionFromValues(
			[]string{"1.0", "2.0", "3.0", "2.5", "7.0"}, UnitsMM, "XYZYA")
		require.NoError(t, err)
		require.Equal(t, 1.0, position.X)
		require.Equal(t, 2.5, position.Y)
		require.Equal(t, 3.0, position.Z)
		require.Equal(t, 7.0, position.A)
	})

	t.Run("under-reporting skips silently", func(t *testing.T) {
		position, err := positionFromValues(
			[]string{"1.0", "2.0", "3.0", "4.0", "5.0", "6.0", "7.0"}, UnitsMM, "XYZA")
		require.NoError(t, err)
		require.Equal(t, 4.0, position.A)
		require.Equal(t, 0.0, position.B)
		require.Equal(t, 0.0, position.C)
	})

	t.Run("fewer than 3 values errors", func(t *testing.T) {
		_, err := positionFromValues([]string{"1.0", "2.0"}, UnitsMM, DefaultAxisOrder)
		require.Error(t, err)
	})
}

func TestPositionFromValuesNeverIndexesPastOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		orderLen := rapid.IntRange(3, 6).Draw(t, "orderLen")
		var sb strings.Builder
		for i := 0; i < orderLen; i++ {
			sb.WriteByte("XYZABC"[rapid.IntRange(0, 5).Draw(t, fmt.Sprintf("letter%d", i))])
		}
		axisOrder := sb.String()

		valueCount := rapid.IntRange(3, 9).Draw(t, "valueCount")
		values := make([]string, valueCount)
		for i := range values {
			values[i] = fmt.Sprintf("%.3f", rapid.Float64Range(-1000, 1000).Draw(t, fmt.Sprintf("value%d", i)))
		}

		position, err := positionFromValues(values, UnitsMM, axisOrder)
		require.NoError(t, err)
		require.NotNil(t, position)
	})
}

func TestPositionString(t *testing.T) {
	position := Position{X: 1.5, Units: UnitsMM}
	require.Contains(t, position.String(), "X:1.5")
	require.Contains(t, position.String(), "(mm)")
}
