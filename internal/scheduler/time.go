package scheduler

import "time"

func unixNanoToTime(nanos int64) time.Time {
	return time.Unix(0, nanos).UTC()
}
