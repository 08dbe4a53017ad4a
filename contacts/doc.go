// Package contacts is a client for a JSON contacts API and the mutation
// definitions built on it.
//
// The API is a REST collection:
//
//	GET    /contacts                      list (search with q, _page, _limit)
//	GET    /contacts/{id}                 read one
//	POST   /contacts                      create
//	PATCH  /contacts/{id}                 partial update
//	DELETE /contacts/{id}                 delete
//
// Search reports the total number of matches through the X-Total-Count header.
//
// [DeleteDefinition] and [FavoriteDefinition] adapt the client to
// mutation.Definition so that each contact can be tracked as its own
// invocation, keyed by [InvocationKey].
package contacts
