package listing

import "time"

// LinkStatus classifies the outcome of checking one listing URL.
type LinkStatus string

const (
	LinkOK       LinkStatus = "ok"       // 2xx
	LinkRedirect LinkStatus = "redirect" // 3xx
	LinkBroken   LinkStatus = "broken"   // 4xx/5xx
	LinkTimeout  LinkStatus = "timeout"  // request deadline exceeded
	LinkError    LinkStatus = "error"    // transport failure
)

// LinkResult is the outcome for one URL.
type LinkResult struct {
	ListingID  string     `json:"listingId"`
	URL        string     `json:"url"`
	Status     LinkStatus `json:"status"`
	HTTPStatus int        `json:"httpStatus,omitempty"`
	CheckedAt  time.Time  `json:"checkedAt"`
}

// Bad reports whether the result needs admin attention.
func (r LinkResult) Bad() bool {
	return r.Status == LinkBroken || r.Status == LinkTimeout || r.Status == LinkError
}

// LinkRun is one complete pass over the index's URLs.
type LinkRun struct {
	ID         string       `json:"id"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt"`
	Checked    int          `json:"checked"`
	Broken     int          `json:"broken"`
	Results    []LinkResult `json:"results"`
}
