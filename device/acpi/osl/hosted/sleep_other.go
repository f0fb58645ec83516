//go:build !linux

package hosted

import "time"

func nanosleep(d time.Duration) { time.Sleep(d) }
