package domain

// ValidationRoute names the external system a payment must be validated against.
// It is derived per request and never stored.
type ValidationRoute int

const (
	RouteNone ValidationRoute = iota
	RouteCNOUA
	RouteSIPUA
	RouteSIMDA
)

func (r ValidationRoute) String() string {
	switch r {
	case RouteCNOUA:
		return "CNOUA"
	case RouteSIPUA:
		return "SIPUA"
	case RouteSIMDA:
		return "SIMDA"
	default:
		return "NONE"
	}
}

// Routes lists the routes backed by an external client.
func Routes() []ValidationRoute {
	return []ValidationRoute{RouteCNOUA, RouteSIPUA, RouteSIMDA}
}
