// Package rest turns declarative service descriptions into HTTP calls.
//
// A service is declared with package decl: each method names a verb, a
// relative path and an ordered list of parameter bindings. The Client
// compiles a method into a MethodTemplate the first time it is used (or on
// Create with eager validation), caches it, and assembles one transport
// request per Call from the template and the call's arguments.
//
//	svc := decl.NewService("GitHub").Add(
//		decl.Returning[rest.TypedCall[[]Repo]](
//			decl.Get("ListRepos", "users/{user}/repos").
//				With(decl.Path[string]("user"), decl.Query[string]("sort")),
//		),
//	)
//	client, _ := rest.New("https://api.github.com/",
//		rest.WithConverterFactories(jsonconv.New()))
//	gh, _ := client.Create(svc)
//	call, _ := rest.Invoke[rest.TypedCall[[]Repo]](gh, "ListRepos", "octocat", "updated")
//	repos, err := call.Body(ctx)
//
// Services may also carry class-level header, query and base URL templates
// whose {placeholders} are resolved per request through a ParamProvider.
// A placeholder may be composite, e.g. "{a=<x>;b=<y>}", in which case each
// inner value is resolved and percent-encoded separately.
//
// Bodies are produced and consumed by the converter chain in package
// convert. The return shape of a method is chosen by a CallAdapterFactory;
// TypedCall[T] and *Future[T] are built in.
package rest
