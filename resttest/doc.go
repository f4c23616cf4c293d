// Package resttest provides a recording gin stub server for end-to-end
// tests of declared services.
//
//	func TestGetUser(t *testing.T) {
//	    srv := resttest.Start(t)
//	    srv.JSON(http.MethodGet, "/users/:id", http.StatusOK, gin.H{"name": "gopher"})
//	    client := resttest.NewClient(t, srv, rest.WithConverterFactories(jsonconv.New()))
//	    ...
//	    req, _ := srv.Last()
//	}
//
// Server implements component.Component, so it can also be registered with a
// component.Registry next to a rest.Component.
package resttest
