// Package schedule runs a function on a cron expression.
package schedule

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Start launches a goroutine that runs fn on a standard 5-field cron
// expression (minute hour day-of-month month day-of-week), evaluated in
// loc. Examples: "0 6 * * *" (daily 6am), "0 6 * * 1-5" (weekdays 6am).
// Returns an error for an unparseable expression; an empty expression
// is an error too, callers decide whether scheduling is optional.
func Start(expr string, loc *time.Location, fn func()) error {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return fmt.Errorf("empty cron expression")
	}
	if loc == nil {
		loc = time.Local
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(expr)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	log.Printf("analysis scheduled cron=%q tz=%s", expr, loc)
	go func() {
		for {
			now := time.Now().In(loc)
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Printf("next analysis at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

			time.Sleep(wait)
			fn()
		}
	}()
	return nil
}
