package pipeline

import (
	"fmt"
	"time"

	"github.com/relloyd/obspipe/api"
	"github.com/relloyd/obspipe/logger"
	"github.com/relloyd/obspipe/stream"
)

// FilterActiveSites returns the site_id of every summary record with has_active_license set, in summary order.
// Records that do not carry a usable site_id or has_active_license are logged and skipped.
func FilterActiveSites(log logger.Logger, records []stream.Record) []int64 {
	retval := make([]int64, 0, len(records))
	for idx, r := range records {
		s, err := api.SiteFromRecord(r)
		if err != nil {
			log.Warn("skipping summary row ", idx, ": ", err)
			continue
		}
		if s.HasActiveLicense {
			retval = append(retval, s.SiteID)
		}
	}
	return retval
}

// PartitionSites splits ids into consecutive batches of size, the last of which may be shorter.
func PartitionSites(ids []int64, size int) ([][]int64, error) {
	if size <= 0 {
		return nil, fmt.Errorf("batch size must be greater than zero, got %v", size)
	}
	retval := make([][]int64, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		retval = append(retval, ids[start:end:end])
	}
	return retval, nil
}

// DateWindow is the period details are requested for. One window is shared by every batch of a run.
type DateWindow struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// NewDateWindow returns the window ending at now and starting lookbackDays before it.
func NewDateWindow(now time.Time, lookbackDays int) DateWindow {
	return DateWindow{From: now.AddDate(0, 0, -lookbackDays), To: now}
}

func (w DateWindow) String() string {
	return fmt.Sprintf("%v to %v", api.FormatDate(w.From), api.FormatDate(w.To))
}
