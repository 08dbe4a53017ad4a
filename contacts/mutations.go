package contacts

import (
	"context"
	"strconv"

	"github.com/jonwraymond/mutcache/mutation"
)

// Deleter deletes contacts by id.
type Deleter interface {
	Delete(ctx context.Context, id int) error
}

// Updater reads and patches contacts.
type Updater interface {
	Get(ctx context.Context, id int) (Contact, error)
	Update(ctx context.Context, p Patch) (Contact, error)
}

// FavoriteVars selects a contact and the favorite flag to set on it.
type FavoriteVars struct {
	ID       int  `json:"id"`
	Favorite bool `json:"favorite"`
}

// Deleted is the result of a delete mutation.
type Deleted struct {
	ID int `json:"id"`
}

// DeleteDefinition returns a mutation that deletes one contact per call.
func DeleteDefinition(api Deleter, guard mutation.Executor) *mutation.Definition[Deleted, int, mutation.NoContext] {
	return &mutation.Definition[Deleted, int, mutation.NoContext]{
		Name:  "deleteContact",
		Guard: guard,
		Fn: func(ctx context.Context, id int, _ mutation.NoContext) (Deleted, error) {
			if err := api.Delete(ctx, id); err != nil {
				return Deleted{}, err
			}
			return Deleted{ID: id}, nil
		},
	}
}

// FavoriteDefinition returns a mutation that sets the favorite flag of a
// contact. The contact is read first and passed to onChange together with the
// updated one; a failed read fails the mutation without patching.
func FavoriteDefinition(api Updater, guard mutation.Executor, onChange func(before, after Contact)) *mutation.Definition[Contact, FavoriteVars, Contact] {
	def := &mutation.Definition[Contact, FavoriteVars, Contact]{
		Name:  "setFavorite",
		Guard: guard,
		BuildContext: func(ctx context.Context, vars FavoriteVars) (Contact, error) {
			return api.Get(ctx, vars.ID)
		},
		Fn: func(ctx context.Context, vars FavoriteVars, _ Contact) (Contact, error) {
			return api.Update(ctx, Patch{ID: vars.ID, IsFavorite: &vars.Favorite})
		},
	}
	if onChange != nil {
		def.OnSuccess = func(_ context.Context, after Contact, _ FavoriteVars, before Contact) error {
			onChange(before, after)
			return nil
		}
	}
	return def
}

// InvocationKey is the cache key used for per-contact mutations.
func InvocationKey(id int) string {
	return "contact-" + strconv.Itoa(id)
}
