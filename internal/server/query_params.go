package server

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/timesheet/internal/timecalc"
)

// flexInt decodes a JSON number or numeric string. Browsers post form
// values as strings, so blank and null read as 0. Anything else must be a
// whole number within maxFlexInt or decoding fails with ErrInvalidBreak.
type flexInt int

const maxFlexInt = 1 << 20

func (f *flexInt) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}
	if raw == "" || raw == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v != math.Trunc(v) || math.Abs(v) > maxFlexInt {
		return fmt.Errorf("%w: %s", timecalc.ErrInvalidBreak, string(data))
	}
	*f = flexInt(v)
	return nil
}

func (f flexInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(f))
}

// parseOptionalWeekStart reads a YYYY-MM-DD week key. Empty means the
// current week and is returned as the zero time.
func parseOptionalWeekStart(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, nil
	}
	return timecalc.ParseWeekKey(trimmed)
}

func parseOptionalSnowflakeID(value string) (snowflake.ID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}
	parsed, err := snowflake.ParseString(trimmed)
	if err != nil || parsed <= 0 {
		return 0, newValidationError("templateId", "invalid_template_id", "invalid template id")
	}
	return parsed, nil
}
