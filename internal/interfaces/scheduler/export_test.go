package scheduler

import "time"

// SetNow fija el reloj usado por RunDayJobs.
func (s *Scheduler) SetNow(now func() time.Time) { s.now = now }
