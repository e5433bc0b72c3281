package response_models

type ProductCategory string

const (
	CategorySerum  ProductCategory = "serum"
	CategoryCream  ProductCategory = "cream"
	CategoryMask   ProductCategory = "mask"
	CategoryTool   ProductCategory = "tool"
	CategoryBundle ProductCategory = "bundle"
)

// Product prices are in cents.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       int64           `json:"price"`
	Currency    string          `json:"currency"`
	Image       string          `json:"image"`
	Category    ProductCategory `json:"category"`
	InStock     bool            `json:"inStock"`
	Featured    bool            `json:"featured,omitempty"`
}

type CartLine struct {
	Product   Product `json:"product"`
	Quantity  int     `json:"quantity"`
	LineTotal int64   `json:"lineTotal"`
}

type CartView struct {
	Items                 []CartLine `json:"items"`
	ItemCount             int        `json:"itemCount"`
	Subtotal              int64      `json:"subtotal"`
	Shipping              int64      `json:"shipping"`
	Total                 int64      `json:"total"`
	FreeShippingRemaining int64      `json:"freeShippingRemaining"`
	FormattedTotal        string     `json:"formattedTotal"`
}
