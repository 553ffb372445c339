package main

import (
	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
)

// DefaultSchedule runs the crawl every Sunday at 02:00.
const DefaultSchedule = "0 2 * * 0"

// newScheduler returns a stopped cron that calls fn on spec, a standard
// five-field expression (a CRON_TZ= prefix selects the time zone).
func newScheduler(spec string, fn func()) (*cron.Cron, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	if _, err := c.AddFunc(spec, fn); err != nil {
		return nil, eris.Wrapf(err, "schedule: parse %q", spec)
	}
	return c, nil
}
