// Package extract pulls article records out of a live browser session.
package extract

// Sentinels substituted when a field cannot be extracted.
const (
	NoTitle   = "No title found"
	NoContent = "No content found"
)

// Field is an extracted value, or a sentinel with the reason it was used.
type Field struct {
	Value    string
	Fallback bool
	Reason   string
}

// Found wraps a successfully extracted value.
func Found(value string) Field {
	return Field{Value: value}
}

// Missing returns a sentinel field with the reason extraction failed.
func Missing(sentinel, reason string) Field {
	return Field{Value: sentinel, Fallback: true, Reason: reason}
}

func (f Field) String() string {
	return f.Value
}

// Record is one article, in listing order. Index is 1-based.
type Record struct {
	Index   int
	URL     string
	Title   Field
	Content Field
	// ImagePath is the stored cover image, empty when none was saved.
	ImagePath string
}

// Result is the ordered set of records extracted in one session.
type Result []Record

// Titles returns the record titles in order.
func (r Result) Titles() []string {
	titles := make([]string, 0, len(r))
	for _, rec := range r {
		titles = append(titles, rec.Title.Value)
	}
	return titles
}
