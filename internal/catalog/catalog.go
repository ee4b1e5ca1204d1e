package catalog

// PageSize is the number of results requested per search page.
const PageSize = 12

// URLs holds the size variants the provider serves for a photo.
type URLs struct {
	Thumb   string `json:"thumb"`
	Small   string `json:"small"`
	Regular string `json:"regular"`
}

type Author struct {
	Name     string `json:"name"`
	Username string `json:"username"`
}

// Image is a photo record as received from the provider. Treat as immutable.
type Image struct {
	ID          string  `json:"id"`
	URLs        URLs    `json:"urls"`
	Description *string `json:"alt_description"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Color       *string `json:"color"`
	User        Author  `json:"user"`
}

// AltText returns the description or a generic fallback.
func (i *Image) AltText() string {
	if i == nil || i.Description == nil || *i.Description == "" {
		return "Unsplash image"
	}
	return *i.Description
}

// Page is one page of search results in provider relevance order.
type Page struct {
	Results    []Image `json:"results"`
	Total      int     `json:"total"`
	TotalPages int     `json:"total_pages"`
}

type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// EmptyPagination is the pagination of a cleared search.
func EmptyPagination() Pagination {
	return Pagination{Page: 1, PerPage: PageSize}
}
