// Package testutil provides test components for exercising HTTP clients.
//
// MockServer is a scripted HTTP endpoint built on gin and served through
// net/http/httptest. Each route holds a queue of replies; the last reply
// repeats once the queue is drained. Every request is recorded.
//
//	func TestFetch(t *testing.T) {
//	    srv := testutil.NewMockServer("api")
//	    srv.On(http.MethodGet, "/users", testutil.Reply{Status: 500}, testutil.JSONReply(200, users))
//	    testutil.T(t).Setup(srv)
//	    // ... call srv.URL() + "/users"
//	}
//
// TestComponent adds Reset, Snapshot and Restore to component.Component so
// test fixtures share the production lifecycle.
package testutil
