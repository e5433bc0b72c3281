package services

import (
	"strconv"
	"strings"

	"inos/internal/models/response_models"
	"inos/internal/models/state_models"
	"inos/pkg/utils"
)

const (
	ShippingFee           int64 = 490
	FreeShippingThreshold int64 = 5000
	Currency                    = "EUR"
)

var catalog = []response_models.Product{
	{
		ID:          "serum-vitamin-c",
		Name:        "Sérum Vitamine C Éclat",
		Description: "Illumine le regard et réduit les cernes pigmentaires. Formule concentrée à 15% de vitamine C stabilisée.",
		Price:       4900,
		Image:       "https://images.unsplash.com/photo-1620916566398-39f1143ab7be?w=400",
		Category:    response_models.CategorySerum,
		Featured:    true,
	},
	{
		ID:          "eye-cream-caffeine",
		Name:        "Contour des Yeux Caféine",
		Description: "Décongestionne et réduit les cernes vasculaires. Action immédiate avec caféine et vitamine K.",
		Price:       3900,
		Image:       "https://images.unsplash.com/photo-1571781926291-c477ebfd024b?w=400",
		Category:    response_models.CategoryCream,
		Featured:    true,
	},
	{
		ID:          "eye-patches-gold",
		Name:        "Patchs Regard Or & Collagène",
		Description: "Masque hydratant intense pour le contour des yeux. Boîte de 30 paires.",
		Price:       2900,
		Image:       "https://images.unsplash.com/photo-1596755389378-c31d21fd1273?w=400",
		Category:    response_models.CategoryMask,
	},
	{
		ID:          "roller-jade",
		Name:        "Rouleau de Jade Froid",
		Description: "Massage lymphatique pour décongestionner le regard. Pierre de jade authentique.",
		Price:       2400,
		Image:       "https://images.unsplash.com/photo-1590439471364-192aa70c0b53?w=400",
		Category:    response_models.CategoryTool,
	},
	{
		ID:          "serum-retinol",
		Name:        "Sérum Rétinol Nuit",
		Description: "Stimule le renouvellement cellulaire pendant la nuit. Rétinol encapsulé 0.5%.",
		Price:       5400,
		Image:       "https://images.unsplash.com/photo-1608248543803-ba4f8c70ae0b?w=400",
		Category:    response_models.CategorySerum,
	},
	{
		ID:          "bundle-starter",
		Name:        "Kit Découverte Regard",
		Description: "Le trio essentiel: Sérum Vitamine C + Contour Caféine + 5 paires de patchs.",
		Price:       7900,
		Image:       "https://images.unsplash.com/photo-1556228578-0d85b1a4d571?w=400",
		Category:    response_models.CategoryBundle,
		Featured:    true,
	},
	{
		ID:          "cream-hyaluronic",
		Name:        "Crème Acide Hyaluronique",
		Description: "Hydratation intense multi-poids moléculaires. Repulpe et lisse le contour des yeux.",
		Price:       4400,
		Image:       "https://images.unsplash.com/photo-1611930022073-b7a4ba5fcccd?w=400",
		Category:    response_models.CategoryCream,
	},
	{
		ID:          "gua-sha",
		Name:        "Gua Sha Quartz Rose",
		Description: "Outil de massage traditionnel pour stimuler la circulation et réduire les poches.",
		Price:       1900,
		Image:       "https://images.unsplash.com/photo-1608571423902-eed4a5ad8108?w=400",
		Category:    response_models.CategoryTool,
	},
}

func init() {
	for i := range catalog {
		catalog[i].Currency = Currency
		catalog[i].InStock = true
	}
}

type CatalogServiceInterface interface {
	ListProducts() []response_models.Product
	GetProductById(id string) (response_models.Product, error)
	FeaturedProducts() []response_models.Product
	ProductsByCategory(category response_models.ProductCategory) []response_models.Product
	// CartView prices the cart. Items whose product is unknown are skipped.
	CartView(items []state_models.CartItem) response_models.CartView
	// OrderSnapshot turns the cart into order lines. ErrEmptyCart when nothing is priceable.
	OrderSnapshot(items []state_models.CartItem) ([]state_models.OrderItem, response_models.CartView, error)
}

type CatalogService struct {
	products []response_models.Product
	byID     map[string]int
}

func NewCatalogService() CatalogServiceInterface {
	byID := make(map[string]int, len(catalog))
	for i, p := range catalog {
		byID[p.ID] = i
	}
	return &CatalogService{products: catalog, byID: byID}
}

func (c *CatalogService) ListProducts() []response_models.Product {
	out := make([]response_models.Product, len(c.products))
	copy(out, c.products)
	return out
}

func (c *CatalogService) GetProductById(id string) (response_models.Product, error) {
	i, ok := c.byID[id]
	if !ok {
		return response_models.Product{}, utils.ErrProductNotFound
	}
	return c.products[i], nil
}

func (c *CatalogService) FeaturedProducts() []response_models.Product {
	var out []response_models.Product
	for _, p := range c.products {
		if p.Featured {
			out = append(out, p)
		}
	}
	return out
}

func (c *CatalogService) ProductsByCategory(category response_models.ProductCategory) []response_models.Product {
	var out []response_models.Product
	for _, p := range c.products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

func (c *CatalogService) CartView(items []state_models.CartItem) response_models.CartView {
	view := response_models.CartView{Items: []response_models.CartLine{}}
	for _, item := range items {
		product, err := c.GetProductById(item.ProductID)
		if err != nil {
			continue
		}
		line := response_models.CartLine{
			Product:   product,
			Quantity:  item.Quantity,
			LineTotal: product.Price * int64(item.Quantity),
		}
		view.Items = append(view.Items, line)
		view.ItemCount += item.Quantity
		view.Subtotal += line.LineTotal
	}

	view.Shipping = ShippingFor(view.Subtotal)
	view.Total = view.Subtotal + view.Shipping
	if view.Shipping > 0 {
		view.FreeShippingRemaining = FreeShippingThreshold - view.Subtotal
	}
	view.FormattedTotal = FormatPrice(view.Total)
	return view
}

func (c *CatalogService) OrderSnapshot(items []state_models.CartItem) ([]state_models.OrderItem, response_models.CartView, error) {
	view := c.CartView(items)
	if len(view.Items) == 0 {
		return nil, view, utils.ErrEmptyCart
	}

	lines := make([]state_models.OrderItem, 0, len(view.Items))
	for _, l := range view.Items {
		lines = append(lines, state_models.OrderItem{
			Name:     l.Product.Name,
			Quantity: l.Quantity,
			Price:    l.Product.Price,
		})
	}
	return lines, view, nil
}

// ShippingFor is free strictly above the threshold.
func ShippingFor(subtotal int64) int64 {
	if subtotal > FreeShippingThreshold {
		return 0
	}
	return ShippingFee
}

// FormatPrice renders cents the French way: 4900 -> "49,00 €", 123456 -> "1 234,56 €".
func FormatPrice(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}

	units := strconv.FormatInt(cents/100, 10)
	var grouped strings.Builder
	for i, r := range units {
		if i > 0 && (len(units)-i)%3 == 0 {
			grouped.WriteByte(' ')
		}
		grouped.WriteRune(r)
	}

	frac := cents % 100
	fracStr := strconv.FormatInt(frac, 10)
	if frac < 10 {
		fracStr = "0" + fracStr
	}
	return sign + grouped.String() + "," + fracStr + " €"
}
