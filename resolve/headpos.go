package resolve

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/neuropipe-io/maxprep/iox"
	"github.com/neuropipe-io/maxprep/types"
)

// headPosColumns is the fixed column count of a head-position file:
// t, q1, q2, q3, x, y, z, gof, err, v.
const headPosColumns = 10

// HeadPosition is one head-position sample used for movement compensation.
type HeadPosition struct {
	// Time is the sample time in seconds.
	Time float64
	// Rotation is the quaternion rotation part (q1, q2, q3).
	Rotation [3]float64
	// Position is the head origin in device coordinates (meters).
	Position [3]float64
	// GOF is the goodness of fit of the position estimate.
	GOF float64
	// Err is the estimation error (meters).
	Err float64
	// Velocity is the head movement velocity (m/s).
	Velocity float64
}

// ParseHeadPositions reads a head-position time-series file.
// Lines are whitespace-separated numeric columns; blank lines and lines
// starting with '#' are skipped. Any malformed line is a ValidationError —
// a resolved head-position file that cannot be parsed must abort the run
// rather than silently degrade to "no movement compensation".
func ParseHeadPositions(path string) ([]HeadPosition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &types.ValidationError{Field: "headshape", Reason: "cannot open head-position file", Err: err}
	}
	defer iox.DiscardClose(f)

	var samples []HeadPosition
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != headPosColumns {
			return nil, types.NewValidationError("headshape",
				fmt.Sprintf("line %d: expected %d columns, got %d", lineNo, headPosColumns, len(fields)))
		}

		values := make([]float64, headPosColumns)
		for i, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, types.NewValidationError("headshape",
					fmt.Sprintf("line %d: column %d is not a number: %q", lineNo, i+1, field))
			}
			values[i] = v
		}

		samples = append(samples, HeadPosition{
			Time:     values[0],
			Rotation: [3]float64{values[1], values[2], values[3]},
			Position: [3]float64{values[4], values[5], values[6]},
			GOF:      values[7],
			Err:      values[8],
			Velocity: values[9],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, &types.ValidationError{Field: "headshape", Reason: "cannot read head-position file", Err: err}
	}

	if len(samples) == 0 {
		return nil, types.NewValidationError("headshape", "head-position file contains no samples")
	}
	return samples, nil
}
