package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("America/New_York")
	if err != nil {
		panic(err)
	}
}

// Gradescope renders due dates in the school's local timezone without an
// explicit offset, so year-inference and day math have to happen in one
// pinned location regardless of where the process runs.
func Now() time.Time {
	return time.Now().In(Location)
}
