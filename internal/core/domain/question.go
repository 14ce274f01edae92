package domain

// Question is the authoritative record stored under question:<id>.
// CreatedAt is milliseconds since the Unix epoch and doubles as the
// sort key in the time-ordered index.
type Question struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Likes     int64  `json:"likes"`
	CreatedAt int64  `json:"createdAt"`
}

// PlaceholderQuestion stands in for an index entry whose record is gone,
// typically after a partially applied delete. The next delete of the id
// removes the dangling index entry.
func PlaceholderQuestion(id string) Question {
	return Question{ID: id, Text: "Untitled", Likes: 0, CreatedAt: 0}
}
