package dispatch

import "fmt"

// SendResult is the outcome of one delivery attempt.
type SendResult struct {
	Recipient string
	MessageID string
	Err       error
}

// OK reports whether the message was accepted by the provider.
func (r SendResult) OK() bool {
	return r.Err == nil
}

// ListResult is the outcome of sending one list.
type ListResult struct {
	Name string
	// Recipients is the size of the list, including recipients that were
	// never attempted because the list failed before sending.
	Recipients int
	Results    []SendResult
	// Err is set when the list could not be sent at all.
	Err error
}

// Sent counts successful deliveries.
func (r ListResult) Sent() int {
	n := 0
	for _, res := range r.Results {
		if res.OK() {
			n++
		}
	}
	return n
}

// Total is the number of recipients on the list.
func (r ListResult) Total() int {
	return r.Recipients
}

// Summary returns "sent/total".
func (r ListResult) Summary() string {
	return fmt.Sprintf("%d/%d", r.Sent(), r.Total())
}

// Report aggregates a run across lists.
type Report struct {
	Lists []ListResult
	// Missing holds requested list names that are not configured.
	Missing []string
}

// Sent counts successful deliveries across all processed lists.
func (r Report) Sent() int {
	n := 0
	for _, l := range r.Lists {
		n += l.Sent()
	}
	return n
}

// Total counts recipients across all processed lists.
func (r Report) Total() int {
	n := 0
	for _, l := range r.Lists {
		n += l.Total()
	}
	return n
}

// Processed is the number of lists that were attempted.
func (r Report) Processed() int {
	return len(r.Lists)
}

// Summary returns the closing line of a run.
func (r Report) Summary() string {
	return fmt.Sprintf("Total: %d/%d emails sent across %d list(s)", r.Sent(), r.Total(), r.Processed())
}
