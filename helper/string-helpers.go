package helper

import (
	"strconv"
	"strings"
	"time"

	om "github.com/cevaris/ordered_map"
	"github.com/relloyd/obspipe/constants"
	"github.com/relloyd/obspipe/logger"
)

// OrderedMapValuesToStringSlice builds a list of values found in ordered map 'om' supplied as input.
// Output - this function modifies the supplied list 'l' and 'idx' by reference.
func OrderedMapValuesToStringSlice(log logger.Logger, om *om.OrderedMap, l *[]string, idx *int) {
	iter := om.IterFunc()
	if iter == nil {
		log.Panic("Failed to get iterFunc in OrderedMapValuesToStringSlice()")
	}
	for kv, ok := iter(); ok; kv, ok = iter() {
		(*l)[*idx] = kv.Value.(string)
		*idx++
	}
}

// Int64sToCsv joins the ids by "," without spaces, e.g. 101,102,103.
func Int64sToCsv(ids []int64) string {
	b := strings.Builder{}
	for idx, id := range ids {
		if idx > 0 {
			b.WriteString(",")
		}
		b.WriteString(strconv.FormatInt(id, 10))
	}
	return b.String()
}

// GetTrueFalseStringAsBool trims spaces from s and checks if it case-insensitively equals "true".
func GetTrueFalseStringAsBool(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}

func SplitRight(s string, c string) (string, string) {
	i := strings.LastIndex(s, c)
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i+len(c):]
}

// FileNameTimestamp returns t in a format safe for object keys and file names.
func FileNameTimestamp(t time.Time) string {
	return t.UTC().Format(constants.TimeFormatYearSeconds)
}
