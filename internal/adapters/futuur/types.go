package futuur

// Raw Futuur API DTOs. Conversion to domain types lives in mapping.go.

// marketResponse is GET markets/{id}/ and each item of GET markets/.
type marketResponse struct {
	ID       int64             `json:"id"`
	Title    string            `json:"title"`
	Slug     string            `json:"slug"`
	Status   string            `json:"status"`
	Outcomes []outcomeResponse `json:"outcomes"`
}

type outcomeResponse struct {
	ID    int64              `json:"id"`
	Title string             `json:"title"`
	Price map[string]float64 `json:"price"`
}

// marketsPage is the paginated GET markets/ envelope.
type marketsPage struct {
	Pagination pagination       `json:"pagination"`
	Results    []marketResponse `json:"results"`
}

type pagination struct {
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	PageSize int     `json:"page_size"`
	Total    int     `json:"total"`
}
