package domain

// SearchResults is the /search response.
type SearchResults struct {
	Users    []User    `json:"users"`
	Messages []Message `json:"messages"`
}

// Empty reports whether nothing matched.
func (r SearchResults) Empty() bool {
	return len(r.Users) == 0 && len(r.Messages) == 0
}
