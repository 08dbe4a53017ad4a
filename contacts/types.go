package contacts

// Info holds the editable fields of a contact.
type Info struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Bio        string `json:"bio"`
	PhotoURL   string `json:"photoURL"`
	IsFavorite bool   `json:"isFavorite"`
}

// Contact is a stored contact.
type Contact struct {
	ID int `json:"id"`
	Info
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// FullName joins the first and last name.
func (c Contact) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	default:
		return c.FirstName + " " + c.LastName
	}
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	ID         int     `json:"id"`
	FirstName  *string `json:"firstName,omitempty"`
	LastName   *string `json:"lastName,omitempty"`
	Bio        *string `json:"bio,omitempty"`
	PhotoURL   *string `json:"photoURL,omitempty"`
	IsFavorite *bool   `json:"isFavorite,omitempty"`
}

// SearchOptions narrows a search.
type SearchOptions struct {
	// Page is 1-based. Zero leaves paging to the server.
	Page int
	// PerPage is the page size. Zero uses the server default.
	PerPage int
	// Filter holds exact-match field filters, for example {"isFavorite": "true"}.
	Filter map[string]string
}

// SearchResult is one page of matches.
type SearchResult struct {
	Total   int
	Results []Contact
}
