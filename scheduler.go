package globe

// DefaultMaximumRequestsPerHost is the per-host in-flight cap. Requests
// beyond it are deferred, not queued: an issued fetch cannot be canceled, so
// holding back is the only point where ordering can still change.
const DefaultMaximumRequestsPerHost = 6

// RequestScheduler tracks in-flight fetches per destination host and admits
// new ones only under the per-host cap. One scheduler is shared by all the
// layers of a render context so the cap holds across layers hitting the same
// server.
//
// TryAcquire and Release are called only from the frame goroutine (Release
// happens while draining completions), so the scheduler is unlocked.
type RequestScheduler struct {
	maximumPerHost int
	inflight       map[string]int
}

// NewRequestScheduler creates a scheduler admitting maximumPerHost in-flight
// requests per host, or DefaultMaximumRequestsPerHost when maximumPerHost is
// zero or negative.
func NewRequestScheduler(maximumPerHost int) *RequestScheduler {
	if maximumPerHost <= 0 {
		maximumPerHost = DefaultMaximumRequestsPerHost
	}
	return &RequestScheduler{
		maximumPerHost: maximumPerHost,
		inflight:       make(map[string]int),
	}
}

// TryAcquire admits one request for host, reporting false when the host is
// at its cap. An admitted request must be balanced by Release.
func (s *RequestScheduler) TryAcquire(host string) bool {
	if s.inflight[host] >= s.maximumPerHost {
		return false
	}
	s.inflight[host]++
	return true
}

// Release returns one in-flight slot for host.
func (s *RequestScheduler) Release(host string) {
	n := s.inflight[host]
	if n <= 1 {
		delete(s.inflight, host)
		return
	}
	s.inflight[host] = n - 1
}

// InFlight returns the number of admitted, uncompleted requests for host.
func (s *RequestScheduler) InFlight(host string) int {
	return s.inflight[host]
}
