// Package bind declares services from struct types whose func fields carry
// routing tags, then fills those fields with implementations backed by a
// rest.Client.
//
//	type UserAPI struct {
//		bind.Class `headers:"X-Tenant: {tenant}"`
//
//		Get    func(id int) (rest.TypedCall[User], error)       `rest:"GET users/{id}" params:"path=id"`
//		Search func(q string, tags []string) rest.TypedCall[[]User] `rest:"GET users" params:"query=q,query=tag"`
//		Create func(u User) (*rest.Future[User], error)         `rest:"POST users" params:"body" headers:"Accept: application/json"`
//	}
//
//	var api UserAPI
//	if _, err := bind.Bind(client, &api); err != nil { ... }
//	user, err := api.Get(42)
//
// Funcs returning a single value panic when the call cannot be created.
package bind
