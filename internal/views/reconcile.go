package views

import "github.com/postify/postify-client/internal/api"

// applyFavorite returns a fresh copy of the collection with the entry
// matching the updated post's id patched to the server's favorited flag
// and count. Ordering is preserved; nothing is shared by reference with
// the input.
func applyFavorite(posts []api.Post, updated api.Post) []api.Post {
	out := make([]api.Post, len(posts))
	for i, p := range posts {
		if p.ID == updated.ID {
			p.Favorited = updated.Favorited
			p.FavouritesCount = updated.FavouritesCount
		}
		out[i] = p
	}
	return out
}

// containsID reports membership of id in the viewer's favourite-id set.
func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
