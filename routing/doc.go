// Package routing queries a rail routing service and classifies the routed
// distance by infrastructure.
//
// The default Router is the Signal instance of OSRM at signal.eu.org, which
// routes over OpenStreetMap railway data. Each routing step carries the
// intersection classes the router exposes for the ways it follows; those
// classes decide whether the step runs on high-speed line, conventional line
// or unknown infrastructure.
//
// Basic usage:
//
//	router := routing.NewSignalClient(routing.DefaultBaseURL, "railtrips/1.0", time.Minute)
//	segments, err := router.Route(ctx, from, to)
//	if err != nil {
//	    // *trips.ExternalServiceError
//	}
//	breakdown := routing.Breakdown(segments)
package routing
