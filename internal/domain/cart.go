package domain

import "github.com/shopspring/decimal"

type Product struct {
	ID        string          `json:"_id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Thumbnail string          `json:"thumbnail,omitempty"`
}

type CartItem struct {
	ID       string  `json:"_id"`
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// LineTotal is price × quantity for a single line.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CartPage is one paginated slice of the server-persisted cart.
type CartPage struct {
	Items      []CartItem      `json:"items"`
	Page       int             `json:"page"`
	TotalPages int             `json:"total_pages"`
	TotalItems int             `json:"total_items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

func (p CartPage) Empty() bool {
	return len(p.Items) == 0
}

// LastPage is the highest valid page number. An empty cart still has page 1.
func (p CartPage) LastPage() int {
	return max(p.TotalPages, 1)
}

// OutOfRange reports a page pointer past the last page.
func (p CartPage) OutOfRange() bool {
	return p.Page > p.LastPage()
}

// Normalize fixes a zero page number and fills the subtotal and item count
// when the server did not send them.
func (p *CartPage) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Subtotal.IsZero() && len(p.Items) > 0 {
		p.Subtotal = SumItems(p.Items)
	}
	if p.TotalItems == 0 && p.TotalPages <= 1 {
		p.TotalItems = len(p.Items)
	}
}

// Clone returns a deep copy safe to hand out of a lock.
func (p CartPage) Clone() CartPage {
	c := p
	c.Items = append([]CartItem(nil), p.Items...)
	return c
}

func SumItems(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}
